package logging

import (
	"context"
	"regexp"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const maxIDLen = 128

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_.:-]+$`)

type sweepCtxKey struct{}
type novenaCtxKey struct{}
type requestCtxKey struct{}
type loggerCtxKey struct{}

// Sweep identifies one reminder sweep.
type Sweep struct {
	ID     string
	Period string
}

// ContextFields extracts correlation fields from ctx.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 6)

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if s, ok := ctx.Value(sweepCtxKey{}).(Sweep); ok {
		fields = append(fields,
			zap.String("sweep.id", s.ID),
			zap.String("sweep.period", s.Period),
		)
	}
	if id := NovenaIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("novena.id", id))
	}
	if id := RequestIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("request.id", id))
	}
	return fields
}

func validID(id string) bool {
	return id != "" && len(id) <= maxIDLen && idPattern.MatchString(id)
}

// WithSweep tags ctx with a sweep. Invalid ids leave ctx unchanged.
func WithSweep(ctx context.Context, id, period string) context.Context {
	if !validID(id) {
		return ctx
	}
	return context.WithValue(ctx, sweepCtxKey{}, Sweep{ID: id, Period: period})
}

// SweepFromContext returns the sweep ctx is tagged with.
func SweepFromContext(ctx context.Context) (Sweep, bool) {
	s, ok := ctx.Value(sweepCtxKey{}).(Sweep)
	return s, ok
}

// WithNovena tags ctx with the novena being served or reminded.
func WithNovena(ctx context.Context, id string) context.Context {
	if !validID(id) {
		return ctx
	}
	return context.WithValue(ctx, novenaCtxKey{}, id)
}

// NovenaIDFromContext returns the novena id, or "".
func NovenaIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(novenaCtxKey{}).(string)
	return id
}

// WithRequestID tags ctx with an HTTP request id. Request ids may come from
// the client, so malformed ones are dropped rather than logged.
func WithRequestID(ctx context.Context, id string) context.Context {
	if !validID(id) {
		return ctx
	}
	return context.WithValue(ctx, requestCtxKey{}, id)
}

// RequestIDFromContext returns the request id, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestCtxKey{}).(string)
	return id
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext returns the logger stored in ctx, or a nop logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok {
		return l
	}
	return NewNop()
}
