// Package logging provides structured logging for novenad.
//
// Logger wraps zap with a Trace level below Debug, an optional OpenTelemetry
// log bridge next to stdout, redaction of credential-bearing fields, and
// sampling that never drops errors.
//
// Every method takes a context. Correlation data stored on it is emitted as
// fields:
//
//	ctx = logging.WithSweep(ctx, sweepID, "morning")
//	ctx = logging.WithNovena(ctx, "aparecida")
//	logger.Info(ctx, "reminder sent", zap.String("subscription.id", id))
//
// produces
//
//	{"level":"info","msg":"reminder sent","sweep.id":"...","sweep.period":"morning","novena.id":"aparecida",...}
//
// Tests use NewTestLogger, which records entries in memory.
package logging
