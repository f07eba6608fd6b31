package expansion

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fyrsmithlabs/novenad/internal/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const loadGlobals = `[{"key": "pn", "title": "Pai-Nosso", "content": "Pai nosso que estais no céu"}]`

func loadNovenas(ref string) string {
	return `[{
	"id": "n1", "slug": "novena-1", "lang": "pt-BR",
	"meta": {"title": "Novena 1", "caption": "c", "daysCount": 3, "tags": []},
	"script": [{"kind": "day"}],
	"fixedTexts": {}, "actionTexts": {}, "commonTexts": {},
	"defaults": {"opening": [], "closing": []},
	"days": [{"day": 1, "title": "Dia 1", "content": [{"ref": "` + ref + `"}]}],
	"version": 1, "updatedAt": "2024-01-01T00:00:00Z"
}]`
}

func writeContent(t *testing.T, novenas string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, content.GlobalsFile), []byte(loadGlobals), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, content.NovenasFile), []byte(novenas), 0o600))
	return dir
}

func TestLoad(t *testing.T) {
	t.Run("embedded content", func(t *testing.T) {
		snap, engine, err := Load("")
		require.NoError(t, err)
		require.NotNil(t, engine)
		assert.GreaterOrEqual(t, snap.Store.Len(), 2)
	})

	t.Run("content directory", func(t *testing.T) {
		snap, _, err := Load(writeContent(t, loadNovenas("global:pn")))
		require.NoError(t, err)
		assert.Equal(t, 1, snap.Store.Len())
	})

	t.Run("unresolved reference fails the load", func(t *testing.T) {
		_, _, err := Load(writeContent(t, loadNovenas("global:missing")))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnresolvedReference))
		assert.Contains(t, err.Error(), "checking content")
	})

	t.Run("missing directory", func(t *testing.T) {
		_, _, err := Load(filepath.Join(t.TempDir(), "missing"))
		assert.ErrorContains(t, err, "loading content")
	})
}
