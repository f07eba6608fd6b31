package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fyrsmithlabs/novenad/internal/content"
	"github.com/fyrsmithlabs/novenad/internal/expansion"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

func setupTestServer(t *testing.T) *Server {
	t.Helper()
	snap, err := content.LoadEmbedded()
	require.NoError(t, err)
	return newTestServer(t, snap)
}

func newTestServer(t *testing.T, snap *content.Snapshot) *Server {
	t.Helper()
	engine, err := expansion.NewEngine(snap.Registry)
	require.NoError(t, err)

	mp := metric.NewMeterProvider()
	server, err := NewServer(snap, engine, zap.NewNop(), &Config{
		Host:        "localhost",
		Port:        8080,
		CacheMaxAge: 5 * time.Minute,
		Gatherer:    prometheus.NewRegistry(),
		Metrics:     NewHTTPMetricsWithMeter(mp.Meter(httpInstrumentationName), nil),
	})
	require.NoError(t, err)
	return server
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestNewServer(t *testing.T) {
	snap, err := content.LoadEmbedded()
	require.NoError(t, err)
	engine, err := expansion.NewEngine(snap.Registry)
	require.NoError(t, err)

	t.Run("uses defaults when config is nil", func(t *testing.T) {
		server, err := NewServer(snap, engine, zap.NewNop(), nil)
		require.NoError(t, err)
		assert.Equal(t, "localhost", server.config.Host)
		assert.Equal(t, 8080, server.config.Port)
	})

	t.Run("returns error when logger is nil", func(t *testing.T) {
		_, err := NewServer(snap, engine, nil, nil)
		assert.ErrorContains(t, err, "logger is required")
	})

	t.Run("returns error when snapshot is nil", func(t *testing.T) {
		_, err := NewServer(nil, engine, zap.NewNop(), nil)
		assert.ErrorContains(t, err, "snapshot cannot be nil")
	})

	t.Run("returns error when engine is nil", func(t *testing.T) {
		_, err := NewServer(snap, nil, zap.NewNop(), nil)
		assert.ErrorContains(t, err, "engine cannot be nil")
	})
}

func TestHandleHealth(t *testing.T) {
	rec := get(t, setupTestServer(t), "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[HealthResponse](t, rec)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Novenas)
	assert.Equal(t, 7, resp.GlobalTexts)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestHandleListNovenas(t *testing.T) {
	server := setupTestServer(t)

	t.Run("lists every novena", func(t *testing.T) {
		rec := get(t, server, "/novenas")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "public, max-age=300", rec.Header().Get(echo.HeaderCacheControl))

		list := decode[[]content.Summary](t, rec)
		require.Len(t, list, 2)
		assert.Equal(t, "aparecida", list[0].ID)
		assert.Equal(t, 9, list[0].DaysCount)
	})

	t.Run("filters by tag", func(t *testing.T) {
		list := decode[[]content.Summary](t, get(t, server, "/novenas?tag=santos"))
		require.Len(t, list, 1)
		assert.Equal(t, "sao-jose", list[0].ID)
	})

	t.Run("unknown tag is an empty array", func(t *testing.T) {
		rec := get(t, server, "/novenas?tag=nenhuma")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})
}

func TestHandleGetNovena(t *testing.T) {
	server := setupTestServer(t)

	for _, target := range []string{"/novenas/aparecida", "/novenas/novena-nossa-senhora-aparecida"} {
		t.Run(target, func(t *testing.T) {
			rec := get(t, server, target)
			require.Equal(t, http.StatusOK, rec.Code)
			var doc map[string]json.RawMessage
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
			assert.JSONEq(t, `"aparecida"`, string(doc["id"]))
			assert.Contains(t, doc, "script")
			assert.Contains(t, doc, "defaults")
		})
	}

	t.Run("unknown novena", func(t *testing.T) {
		rec := get(t, server, "/novenas/nope")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Empty(t, rec.Header().Get(echo.HeaderCacheControl))
		assert.Contains(t, decode[ErrorResponse](t, rec).Error, "not found")
	})
}

func TestHandleGetDay(t *testing.T) {
	server := setupTestServer(t)

	t.Run("expanded by default", func(t *testing.T) {
		rec := get(t, server, "/novenas/aparecida/dias/1")
		require.Equal(t, http.StatusOK, rec.Code)

		day := decode[expansion.ExpandedDay](t, rec)
		assert.Equal(t, 1, day.Day)
		require.NotEmpty(t, day.Parts.Opening)
		assert.Equal(t, expansion.TypeRef, day.Parts.Opening[0].Type)
		assert.Equal(t, "sc", day.Parts.Opening[0].Key)
		assert.NotEmpty(t, day.Steps)
	})

	t.Run("explicit empty opening", func(t *testing.T) {
		day := decode[expansion.ExpandedDay](t, get(t, server, "/novenas/aparecida/dias/9?expand=1"))
		assert.Empty(t, day.Parts.Opening)
		assert.Equal(t, "sr", day.Parts.Closing[0].Key)
	})

	t.Run("raw day keeps source shapes", func(t *testing.T) {
		rec := get(t, server, "/novenas/aparecida/dias/9?expand=0")
		require.Equal(t, http.StatusOK, rec.Code)

		var raw map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
		assert.JSONEq(t, `[]`, string(raw["opening"]))
		assert.JSONEq(t, `[{"ref":"global:sr"},{"rubric":"Encerre com um momento de ação de graças."}]`, string(raw["closing"]))
		assert.Contains(t, string(raw["defaults"]), `"global:sc"`)
	})

	t.Run("null override falls back to default", func(t *testing.T) {
		day := decode[expansion.ExpandedDay](t, get(t, server, "/novenas/sao-jose/dias/9"))
		require.Len(t, day.Parts.Opening, 2)
		assert.Equal(t, "sc", day.Parts.Opening[0].Key)
	})

	tests := []struct {
		name   string
		target string
		status int
	}{
		{"non-integer day", "/novenas/aparecida/dias/um", http.StatusBadRequest},
		{"day zero", "/novenas/aparecida/dias/0", http.StatusBadRequest},
		{"day beyond daysCount", "/novenas/aparecida/dias/10", http.StatusBadRequest},
		{"bad expand flag", "/novenas/aparecida/dias/1?expand=yes", http.StatusBadRequest},
		{"unknown novena", "/novenas/nope/dias/1", http.StatusNotFound},
		{"unknown novena with bad day", "/novenas/nope/dias/abc", http.StatusNotFound},
		{"unknown novena with bad expand", "/novenas/nope/dias/1?expand=yes", http.StatusNotFound},
		{"day in range but absent", "/novenas/sao-jose/dias/4", http.StatusNotFound},
		{"unknown route", "/novenas/aparecida/semanas/1", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, server, tt.target)
			assert.Equal(t, tt.status, rec.Code)
			assert.NotEmpty(t, decode[ErrorResponse](t, rec).Error)
		})
	}
}

func TestHandleGetDay_BrokenReference(t *testing.T) {
	reg, err := content.NewRegistry([]content.GlobalText{{Key: "pn", Title: "Pai-Nosso", Content: "Pai nosso..."}})
	require.NoError(t, err)
	store, err := content.NewStore([]*content.Novena{{
		ID:   "quebrada",
		Slug: "novena-quebrada",
		Meta: content.Meta{Title: "Quebrada", DaysCount: 1},
		Days: []content.Day{{
			Number:  1,
			Title:   "Único dia",
			Content: content.Blocks{content.Ref("global:doesnotexist")},
		}},
	}})
	require.NoError(t, err)
	server := newTestServer(t, &content.Snapshot{Registry: reg, Store: store})

	rec := get(t, server, "/novenas/quebrada/dias/1")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Error, `no global text "doesnotexist"`)

	t.Run("raw mode still works", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, get(t, server, "/novenas/quebrada/dias/1?expand=0").Code)
	})
}

func TestHandleGlobalTexts(t *testing.T) {
	server := setupTestServer(t)

	t.Run("ordered by key", func(t *testing.T) {
		list := decode[[]content.GlobalText](t, get(t, server, "/texts/global"))
		require.Len(t, list, 7)
		for i := 1; i < len(list); i++ {
			assert.Less(t, list[i-1].Key, list[i].Key)
		}
	})

	t.Run("single text", func(t *testing.T) {
		text := decode[content.GlobalText](t, get(t, server, "/texts/global/pn"))
		assert.Equal(t, "pn", text.Key)
		assert.True(t, strings.HasPrefix(text.Content, "Pai nosso"))
	})

	t.Run("unknown key", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, get(t, server, "/texts/global/xyz").Code)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	server := setupTestServer(t)
	rec := get(t, server, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestShutdown(t *testing.T) {
	server := setupTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, server.Shutdown(ctx))
}
