package expansion

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/fyrsmithlabs/novenad/internal/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pnContent = "Pai nosso que estais no céu, santificado seja o vosso nome."

func strPtr(s string) *string { return &s }

func blocksPtr(bs ...content.Block) *content.Blocks {
	out := content.Blocks(bs)
	if out == nil {
		out = content.Blocks{}
	}
	return &out
}

func testRegistry(t *testing.T) *content.Registry {
	t.Helper()
	r, err := content.NewRegistry([]content.GlobalText{
		{Key: "pn", Title: "Pai-Nosso", Content: pnContent},
		{Key: "am", Title: "Ave-Maria", Content: "Ave Maria, cheia de graça."},
		{Key: "gl", Title: "Glória ao Pai", Content: "Glória ao Pai."},
	})
	require.NoError(t, err)
	return r
}

func testNovena() *content.Novena {
	return &content.Novena{
		ID:   "teste",
		Slug: "novena-teste",
		Meta: content.Meta{Title: "Novena de teste", DaysCount: 9},
		Script: []content.ScriptStep{
			{Kind: content.StepFixed, Ref: "abertura"},
			{Kind: content.StepDay},
			{Kind: content.StepCommon, Ref: "pn"},
		},
		FixedTexts:  map[string]content.LocalText{"abertura": {Title: "Abertura", Content: strPtr("Vinde, Espírito Santo.")}},
		CommonTexts: map[string]content.LocalText{"pn": {Title: "Pai-Nosso"}},
		Defaults: content.Defaults{
			Opening: content.Blocks{content.Ref("local:abertura")},
			Closing: content.Blocks{content.Rubric("Todos:"), content.Ref("global:pn"), content.Ref("global:gl")},
		},
		Days: []content.Day{
			{Number: 1, Title: "Primeiro dia", Content: content.Blocks{content.Text("Meditação do dia 1"), content.Ref("global:am")}},
			{Number: 2, Title: "Segundo dia", Content: content.Blocks{content.Text("dia 2")}, Opening: blocksPtr()},
			{Number: 3, Title: "Terceiro dia", Content: content.Blocks{content.Text("dia 3")}, Closing: blocksPtr(content.Text("Amém."))},
			{Number: 5, Title: "Quinto dia", Content: content.Blocks{content.Ref("global:doesnotexist")}},
			{Number: 6, Title: "Sexto dia", Content: content.Blocks{content.Ref("heaven:pn")}},
		},
	}
}

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(testRegistry(t))
	require.NoError(t, err)
	return e
}

func TestNewEngine(t *testing.T) {
	_, err := NewEngine(nil)
	assert.Error(t, err)
}

func TestExpandDay(t *testing.T) {
	e := newEngine(t)
	n := testNovena()

	t.Run("uses defaults when no override is declared", func(t *testing.T) {
		got, err := e.ExpandDay(n, 1)
		require.NoError(t, err)

		wantOpening, err := e.expandSection(n, n.Defaults.Opening)
		require.NoError(t, err)
		wantClosing, err := e.expandSection(n, n.Defaults.Closing)
		require.NoError(t, err)

		assert.Equal(t, wantOpening, got.Parts.Opening)
		assert.Equal(t, wantClosing, got.Parts.Closing)
		assert.Equal(t, 1, got.Day)
		assert.Equal(t, "Primeiro dia", got.Title)
	})

	t.Run("explicit empty override suppresses the default", func(t *testing.T) {
		got, err := e.ExpandDay(n, 2)
		require.NoError(t, err)
		assert.NotNil(t, got.Parts.Opening)
		assert.Empty(t, got.Parts.Opening)
		assert.Len(t, got.Parts.Closing, 3, "closing still falls back to the default")
	})

	t.Run("non-empty override replaces the default", func(t *testing.T) {
		got, err := e.ExpandDay(n, 3)
		require.NoError(t, err)
		assert.Equal(t, []Block{{Type: TypeText, Text: "Amém."}}, got.Parts.Closing)
	})

	t.Run("global reference carries registry text byte for byte", func(t *testing.T) {
		got, err := e.ExpandDay(n, 1)
		require.NoError(t, err)

		pn := got.Parts.Closing[1]
		assert.Equal(t, TypeRef, pn.Type)
		assert.Equal(t, ScopeGlobal, pn.Scope)
		assert.Equal(t, "pn", pn.Key)
		assert.Equal(t, "Pai-Nosso", pn.Title)
		require.NotNil(t, pn.Content)
		assert.Equal(t, pnContent, *pn.Content)
	})

	t.Run("local reference resolves against the novena tables", func(t *testing.T) {
		got, err := e.ExpandDay(n, 1)
		require.NoError(t, err)

		open := got.Parts.Opening[0]
		assert.Equal(t, ScopeLocal, open.Scope)
		assert.Equal(t, "Abertura", open.Title)
		assert.Equal(t, "Vinde, Espírito Santo.", *open.Content)
		assert.False(t, open.Memorized)
	})

	t.Run("rubric and text blocks keep their literal", func(t *testing.T) {
		got, err := e.ExpandDay(n, 1)
		require.NoError(t, err)
		assert.Equal(t, Block{Type: TypeRubric, Text: "Todos:"}, got.Parts.Closing[0])
		assert.Equal(t, Block{Type: TypeText, Text: "Meditação do dia 1"}, got.Parts.Body[0])
	})

	t.Run("missing day is not found", func(t *testing.T) {
		got, err := e.ExpandDay(n, 4)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, content.ErrDayNotFound)
		assert.ErrorIs(t, err, content.ErrNotFound)
	})

	t.Run("unresolved reference fails the whole day", func(t *testing.T) {
		got, err := e.ExpandDay(n, 5)
		assert.Nil(t, got)
		require.ErrorIs(t, err, ErrUnresolvedReference)

		var refErr *ReferenceError
		require.True(t, errors.As(err, &refErr))
		assert.Equal(t, ScopeGlobal, refErr.Scope)
		assert.Equal(t, "doesnotexist", refErr.Key)
		assert.Contains(t, err.Error(), `no global text "doesnotexist"`)
	})

	t.Run("unknown scope is an invalid reference", func(t *testing.T) {
		got, err := e.ExpandDay(n, 6)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, ErrInvalidReference)
		assert.NotErrorIs(t, err, content.ErrNotFound)
	})

	t.Run("materializes the script", func(t *testing.T) {
		got, err := e.ExpandDay(n, 1)
		require.NoError(t, err)
		require.Len(t, got.Steps, 3)

		assert.Equal(t, content.StepFixed, got.Steps[0].Kind)
		assert.Equal(t, "Abertura", got.Steps[0].Title)
		assert.Equal(t, Step{Kind: content.StepDay, Title: "Primeiro dia"}, got.Steps[1])
		assert.True(t, got.Steps[2].Memorized)
		assert.Nil(t, got.Steps[2].Content)
	})

	t.Run("dangling script step surfaces as a data error", func(t *testing.T) {
		bad := testNovena()
		bad.Script = append(bad.Script, content.ScriptStep{Kind: content.StepAction, Ref: "pedido"})

		_, err := e.ExpandDay(bad, 1)
		assert.ErrorIs(t, err, content.ErrDanglingRef)
	})
}

func TestRawDay(t *testing.T) {
	e := newEngine(t)
	n := testNovena()

	t.Run("returns default sections unexpanded", func(t *testing.T) {
		got, err := e.RawDay(n, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, got.Day)
		assert.Equal(t, n.Defaults.Opening, got.Opening)
		assert.Equal(t, n.Days[0].Content, got.Body)
		assert.Equal(t, n.Defaults.Closing, got.Closing)
		assert.Equal(t, n.Defaults, got.Defaults)
	})

	t.Run("encodes blocks in source shape", func(t *testing.T) {
		got, err := e.RawDay(n, 2)
		require.NoError(t, err)

		out, err := json.Marshal(got)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"day": 2,
			"title": "Segundo dia",
			"opening": [],
			"body": ["dia 2"],
			"closing": [{"rubric": "Todos:"}, {"ref": "global:pn"}, {"ref": "global:gl"}],
			"defaults": {
				"opening": [{"ref": "local:abertura"}],
				"closing": [{"rubric": "Todos:"}, {"ref": "global:pn"}, {"ref": "global:gl"}]
			}
		}`, string(out))
	})

	t.Run("raw mode does not resolve references", func(t *testing.T) {
		_, err := e.RawDay(n, 5)
		assert.NoError(t, err)
	})

	t.Run("missing day is not found", func(t *testing.T) {
		_, err := e.RawDay(n, 7)
		assert.ErrorIs(t, err, content.ErrDayNotFound)
	})
}

func TestSplitRef(t *testing.T) {
	tests := []struct {
		ref     string
		scope   Scope
		key     string
		wantErr bool
	}{
		{ref: "global:pn", scope: ScopeGlobal, key: "pn"},
		{ref: "local:abertura", scope: ScopeLocal, key: "abertura"},
		{ref: "local:a:b", scope: ScopeLocal, key: "a:b"},
		{ref: "pn", wantErr: true},
		{ref: "global:", wantErr: true},
		{ref: "Global:pn", wantErr: true},
		{ref: ":pn", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			scope, key, err := SplitRef(tt.ref)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidReference)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.scope, scope)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestCheck(t *testing.T) {
	e := newEngine(t)

	t.Run("embedded content expands cleanly", func(t *testing.T) {
		snap, err := content.LoadEmbedded()
		require.NoError(t, err)
		engine, err := NewEngine(snap.Registry)
		require.NoError(t, err)
		assert.NoError(t, engine.Check(snap.Store))
	})

	t.Run("reports the first broken day", func(t *testing.T) {
		store, err := content.NewStore([]*content.Novena{testNovena()})
		require.NoError(t, err)
		err = e.Check(store)
		assert.ErrorIs(t, err, ErrUnresolvedReference)
		assert.Contains(t, err.Error(), `novena "teste"`)
	})
}
