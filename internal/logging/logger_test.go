package logging

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/fyrsmithlabs/novenad/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(NewDefaultConfig(), nil)
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.True(t, logger.Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Enabled(zapcore.DebugLevel))

	t.Run("rejects invalid config", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Format = "xml"
		_, err := NewLogger(cfg, nil)
		assert.Error(t, err)
	})

	t.Run("otel output without provider and no stdout fails", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Output = OutputConfig{OTEL: true}
		_, err := NewLogger(cfg, nil)
		assert.Error(t, err)
	})
}

func TestFromObservability(t *testing.T) {
	cfg, err := FromObservability(config.ObservabilityConfig{
		LogLevel:    "trace",
		LogFormat:   "console",
		ServiceName: "novenad-staging",
	})
	require.NoError(t, err)
	assert.Equal(t, TraceLevel, cfg.Level)
	assert.Equal(t, "console", cfg.Format)
	assert.Equal(t, "novenad-staging", cfg.Fields["service"])
	assert.False(t, cfg.Output.OTEL)

	_, err = FromObservability(config.ObservabilityConfig{LogLevel: "loud", LogFormat: "json"})
	assert.Error(t, err)
}

func TestLogger_Levels(t *testing.T) {
	tl := NewTestLogger()
	ctx := context.Background()

	tl.Trace(ctx, "expanding block")
	tl.Debug(ctx, "loaded content")
	tl.Info(ctx, "sweep started")
	tl.Warn(ctx, "retrying delivery")
	tl.Error(ctx, "delivery failed")

	entries := tl.All()
	require.Len(t, entries, 5)
	assert.Equal(t, TraceLevel, entries[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[4].Level)
}

func TestContextFields(t *testing.T) {
	t.Run("empty context", func(t *testing.T) {
		assert.Empty(t, ContextFields(context.Background()))
	})

	t.Run("sweep novena and request", func(t *testing.T) {
		ctx := WithSweep(context.Background(), "sw-1", "morning")
		ctx = WithNovena(ctx, "aparecida")
		ctx = WithRequestID(ctx, "req-42")

		tl := NewTestLogger()
		tl.Info(ctx, "reminder sent")

		tl.AssertField(t, "reminder sent", "sweep.id", "sw-1")
		tl.AssertField(t, "reminder sent", "sweep.period", "morning")
		tl.AssertField(t, "reminder sent", "novena.id", "aparecida")
		tl.AssertField(t, "reminder sent", "request.id", "req-42")
	})

	t.Run("malformed ids are dropped", func(t *testing.T) {
		ctx := WithRequestID(context.Background(), "bad id\n")
		ctx = WithNovena(ctx, "")
		assert.Equal(t, "", RequestIDFromContext(ctx))
		assert.Equal(t, "", NovenaIDFromContext(ctx))
	})

	t.Run("trace correlation", func(t *testing.T) {
		sc := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    trace.TraceID{1, 2, 3},
			SpanID:     trace.SpanID{4, 5, 6},
			TraceFlags: trace.FlagsSampled,
		})
		ctx := trace.ContextWithSpanContext(context.Background(), sc)

		m := map[string]bool{}
		for _, f := range ContextFields(ctx) {
			m[f.Key] = true
		}
		assert.True(t, m["trace_id"])
		assert.True(t, m["span_id"])
	})
}

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	tl := NewTestLogger()
	ctx := WithLogger(context.Background(), tl.Logger)
	FromContext(ctx).Info(ctx, "via context")
	tl.AssertLogged(t, zapcore.InfoLevel, "via context")
}

func TestLevelFromString(t *testing.T) {
	l, err := LevelFromString("trace")
	require.NoError(t, err)
	assert.Equal(t, TraceLevel, l)

	l, err = LevelFromString("warn")
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, l)

	_, err = LevelFromString("verbose")
	assert.Error(t, err)
}

func TestRedactingEncoder(t *testing.T) {
	enc, err := NewRedactingEncoder(newEncoder("json"), NewDefaultConfig().Redaction)
	require.NoError(t, err)

	buf, err := enc.EncodeEntry(zapcore.Entry{Message: "fcm token refreshed", Time: time.Unix(0, 0)}, []zapcore.Field{
		zap.String("access_token", "ya29.secret"),
		zap.String("header", "Bearer ya29.secret"),
		zap.String("novena", "aparecida"),
		Secret("credentials_json", config.Secret(`{"private_key":"x"}`)),
		Token("device", "abcdefgh1234"),
	})
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "[REDACTED]", out["access_token"])
	assert.Equal(t, "[REDACTED:pattern]", out["header"])
	assert.Equal(t, "aparecida", out["novena"])
	assert.Equal(t, "[REDACTED:19]", out["credentials_json"])
	assert.Equal(t, "…1234", out["device"])
	assert.NotContains(t, buf.String(), "ya29")
}

func TestSampling_NeverDropsErrors(t *testing.T) {
	core, observed := observer.New(TraceLevel)
	sampled := newSampledCore(core, SamplingConfig{
		Enabled:    true,
		Tick:       time.Minute,
		Initial:    1,
		Thereafter: 0,
	})
	logger := zap.New(sampled)

	for i := 0; i < 5; i++ {
		logger.Info("same message")
		logger.Error("delivery failed")
	}

	assert.Equal(t, 1, observed.FilterMessage("same message").Len())
	assert.Equal(t, 5, observed.FilterMessage("delivery failed").Len())
}
