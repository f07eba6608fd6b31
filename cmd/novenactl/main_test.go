package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fyrsmithlabs/novenad/internal/expansion"
	"github.com/fyrsmithlabs/novenad/internal/scheduler"
	"github.com/fyrsmithlabs/novenad/internal/subscription"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs novenactl with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// isolate points HOME at a temp dir so no real config file is read, and
// selects the log push driver.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("PUSH_DRIVER", "log")
	return filepath.Join(home, "novenad.db")
}

func TestRootCmd_Subcommands(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range newRootCmd().Commands() {
		names[cmd.Name()] = true
		assert.NotEmpty(t, cmd.Short, "%s has no short description", cmd.Name())
	}
	for _, want := range []string{"validate", "expand", "pray", "sub", "sweep"} {
		assert.True(t, names[want], "missing %s command", want)
	}
}

func TestValidateCmd(t *testing.T) {
	out, err := execute(t, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "ok: 2 novenas")
	assert.Contains(t, out, "7 global texts")
}

func TestValidateCmd_MissingDir(t *testing.T) {
	_, err := execute(t, "validate", "--content-dir", filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestValidateCmd_UnresolvedReference(t *testing.T) {
	dir := t.TempDir()
	globals := `[{"key": "pn", "title": "Pai-Nosso", "content": "Pai nosso"}]`
	novenas := `[{
	"id": "n1", "slug": "novena-1", "lang": "pt-BR",
	"meta": {"title": "Novena 1", "caption": "c", "daysCount": 1, "tags": []},
	"script": [{"kind": "day"}],
	"fixedTexts": {}, "actionTexts": {}, "commonTexts": {},
	"defaults": {"opening": [], "closing": []},
	"days": [{"day": 1, "title": "Dia 1", "content": [{"ref": "global:missing"}]}],
	"version": 1, "updatedAt": "2024-01-01T00:00:00Z"
}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "globals.json"), []byte(globals), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "novenas.json"), []byte(novenas), 0o600))

	_, err := execute(t, "validate", "--content-dir", dir)
	assert.ErrorIs(t, err, expansion.ErrUnresolvedReference)

	_, err = execute(t, "expand", "n1", "1", "--raw", "--content-dir", dir)
	assert.ErrorIs(t, err, expansion.ErrUnresolvedReference, "every command refuses unchecked content")
}

func TestExpandCmd(t *testing.T) {
	t.Run("expanded", func(t *testing.T) {
		out, err := execute(t, "expand", "aparecida", "1")
		require.NoError(t, err)

		var day expansion.ExpandedDay
		require.NoError(t, json.Unmarshal([]byte(out), &day))
		assert.Equal(t, 1, day.Day)
		require.NotEmpty(t, day.Parts.Opening)
		assert.Equal(t, "sc", day.Parts.Opening[0].Key)
	})

	t.Run("raw", func(t *testing.T) {
		out, err := execute(t, "expand", "aparecida", "9", "--raw")
		require.NoError(t, err)

		var raw map[string]json.RawMessage
		require.NoError(t, json.Unmarshal([]byte(out), &raw))
		assert.JSONEq(t, `[]`, string(raw["opening"]))
		assert.Contains(t, raw, "defaults")
	})

	t.Run("bad day", func(t *testing.T) {
		_, err := execute(t, "expand", "aparecida", "um")
		assert.ErrorContains(t, err, "must be an integer")
	})

	t.Run("unknown novena", func(t *testing.T) {
		_, err := execute(t, "expand", "nope", "1")
		assert.ErrorContains(t, err, "not found")
	})
}

func TestPrayCmd(t *testing.T) {
	out, err := execute(t, "pray", "sao-jose", "1", "--width", "100")
	require.NoError(t, err)
	assert.Contains(t, out, "Dia 1")
	assert.Contains(t, out, "Abertura")
}

func TestSubLifecycle(t *testing.T) {
	db := isolate(t)

	out, err := execute(t, "sub", "add", "u1", "novena-nossa-senhora-aparecida", "--token", "tok-1234", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "subscribed u1 to aparecida")

	_, err = execute(t, "sub", "complete", "u1", "--date", "2026-03-10", "--db", db)
	require.NoError(t, err)

	out, err = execute(t, "sub", "advance", "u1", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "day 2")

	out, err = execute(t, "sub", "list", "--json", "--db", db)
	require.NoError(t, err)
	var subs []subscription.Subscription
	require.NoError(t, json.Unmarshal([]byte(out), &subs))
	require.Len(t, subs, 1)
	assert.Equal(t, "2026-03-10", subs[0].LastCompleted)
	assert.Equal(t, "Novena a Nossa Senhora Aparecida", subs[0].NovenaTitle)

	_, err = execute(t, "sub", "deactivate", "u1", "--db", db)
	require.NoError(t, err)

	out, err = execute(t, "sub", "list", "--json", "--db", db)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, out)

	out, err = execute(t, "sub", "list", "--all", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "u1")
}

func TestSubAdd_Validation(t *testing.T) {
	db := isolate(t)

	_, err := execute(t, "sub", "add", "u1", "aparecida", "--db", db)
	assert.ErrorContains(t, err, "token")

	_, err = execute(t, "sub", "add", "u1", "aparecida", "--token", "t", "--day", "10", "--db", db)
	assert.Error(t, err)

	_, err = execute(t, "sub", "add", "u1", "aparecida", "--token", "t", "--platform", "symbian", "--db", db)
	assert.ErrorIs(t, err, subscription.ErrInvalid)

	_, err = execute(t, "sub", "advance", "ghost", "--db", db)
	assert.ErrorIs(t, err, subscription.ErrNotFound)
}

func TestSweepCmd(t *testing.T) {
	db := isolate(t)

	_, err := execute(t, "sub", "add", "u1", "aparecida", "--token", "tok-1", "--db", db)
	require.NoError(t, err)
	_, err = execute(t, "sub", "add", "u2", "sao-jose", "--token", "tok-2", "--db", db)
	require.NoError(t, err)

	out, err := execute(t, "sweep", "--period", "evening", "--db", db)
	require.NoError(t, err)

	var report scheduler.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, scheduler.PeriodEvening, report.Period)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 2, report.Sent)

	_, err = execute(t, "sweep", "--period", "noon", "--db", db)
	assert.ErrorContains(t, err, "unknown period")
}
