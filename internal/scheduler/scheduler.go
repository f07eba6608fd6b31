// Package scheduler sends the twice-daily novena reminders.
//
// Two cron triggers (morning and evening, in the configured time zone) each
// run a Sweep: every active subscription that has not recorded today's
// prayer gets one push notification. Deliveries fan out with bounded
// concurrency. Transient failures are retried with exponential backoff;
// permanent ones are not. A failed recipient never affects the others, and
// nothing is queued for later once the attempts run out.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/fyrsmithlabs/novenad/internal/logging"
	"github.com/fyrsmithlabs/novenad/internal/push"
	"github.com/fyrsmithlabs/novenad/internal/subscription"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const instrumentationName = "github.com/fyrsmithlabs/novenad/internal/scheduler"

// ReminderTitle is the notification title for every reminder.
const ReminderTitle = "Hora da sua novena 🙏"

// ReminderType is the "type" value in the notification data.
const ReminderType = "novena_reminder"

// Lister yields the subscriptions a sweep should consider.
type Lister interface {
	ListActive(ctx context.Context) ([]subscription.Subscription, error)
}

// Report summarises one sweep.
type Report struct {
	SweepID  string        `json:"sweepId"`
	Period   Period        `json:"period"`
	Date     string        `json:"date"`
	Total    int           `json:"total"`
	Sent     int           `json:"sent"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// Scheduler owns the cron triggers and runs sweeps.
type Scheduler struct {
	cfg     Config
	store   Lister
	sender  push.Sender
	logger  *logging.Logger
	metrics *Metrics
	tracer  trace.Tracer
	now     func() time.Time

	mu     sync.Mutex
	cron   *cron.Cron
	cancel context.CancelFunc
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithMetrics records sweep metrics on m.
func WithMetrics(m *Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// WithTracer replaces the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *Scheduler) { s.tracer = t }
}

// New creates a scheduler. Triggers do not fire until Start.
func New(cfg Config, store Lister, sender push.Sender, logger *logging.Logger, opts ...Option) (*Scheduler, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("scheduler config: %w", err)
	}
	if store == nil {
		return nil, errors.New("subscription store is required")
	}
	if sender == nil {
		return nil, errors.New("push sender is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Scheduler{
		cfg:    cfg,
		store:  store,
		sender: sender,
		logger: logger.Named("scheduler"),
		tracer: otel.Tracer(instrumentationName),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	return s, nil
}

// Start registers both triggers and starts the cron loop. Sweeps started
// by a trigger derive from ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return errors.New("scheduler already started")
	}

	cronLogger := cron.PrintfLogger(zap.NewStdLog(s.logger.Underlying()))
	c := cron.New(
		cron.WithLocation(s.cfg.Location),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	runCtx, cancel := context.WithCancel(ctx)
	for _, trigger := range []struct {
		period Period
		spec   string
	}{
		{PeriodMorning, s.cfg.Morning},
		{PeriodEvening, s.cfg.Evening},
	} {
		period := trigger.period
		if _, err := c.AddFunc(trigger.spec, func() {
			_, _ = s.Sweep(runCtx, period)
		}); err != nil {
			cancel()
			return fmt.Errorf("adding %s trigger: %w", period, err)
		}
	}

	c.Start()
	s.cron = c
	s.cancel = cancel

	s.logger.Info(ctx, "scheduler started",
		zap.String("timezone", s.cfg.Location.String()),
		zap.String("morning", s.cfg.Morning),
		zap.String("evening", s.cfg.Evening),
	)
	return nil
}

// Stop halts the triggers, cancels running sweeps and waits for them to
// return or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron, s.cancel = nil, nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}

	done := c.Stop()
	cancel()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for running sweeps: %w", ctx.Err())
	}
}

// Sweep runs one pass over the active subscriptions. It returns an error
// only when the subscriptions cannot be listed; delivery failures are
// counted in the report.
func (s *Scheduler) Sweep(ctx context.Context, period Period) (Report, error) {
	start := s.now()
	report := Report{
		SweepID: uuid.NewString(),
		Period:  period,
		Date:    start.In(s.cfg.Location).Format(subscription.DateLayout),
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.SweepTimeout)
	defer cancel()
	ctx = logging.WithSweep(ctx, report.SweepID, string(period))
	ctx, span := s.tracer.Start(ctx, "scheduler.sweep", trace.WithAttributes(
		attribute.String("sweep.id", report.SweepID),
		attribute.String("sweep.period", string(period)),
		attribute.String("sweep.date", report.Date),
	))
	defer span.End()

	subs, err := s.store.ListActive(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list active subscriptions")
		s.metrics.SweepsTotal.WithLabelValues(string(period), "error").Inc()
		s.logger.Error(ctx, "sweep aborted: listing subscriptions failed", zap.Error(err))
		return report, fmt.Errorf("listing active subscriptions: %w", err)
	}
	report.Total = len(subs)

	var sent, skipped, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for _, sub := range subs {
		if sub.CompletedOn(report.Date) {
			skipped.Add(1)
			continue
		}
		g.Go(func() error {
			if err := s.deliver(ctx, period, sub); err != nil {
				failed.Add(1)
				return nil
			}
			sent.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	report.Sent = int(sent.Load())
	report.Skipped = int(skipped.Load())
	report.Failed = int(failed.Load())
	report.Duration = s.now().Sub(start)

	p := string(period)
	outcome := "ok"
	if ctx.Err() != nil {
		outcome = "timeout"
	}
	s.metrics.SweepsTotal.WithLabelValues(p, outcome).Inc()
	s.metrics.RemindersTotal.WithLabelValues(p, "sent").Add(float64(report.Sent))
	s.metrics.RemindersTotal.WithLabelValues(p, "skipped").Add(float64(report.Skipped))
	s.metrics.RemindersTotal.WithLabelValues(p, "failed").Add(float64(report.Failed))
	s.metrics.SweepDuration.WithLabelValues(p).Observe(report.Duration.Seconds())
	s.metrics.LastSweepSeconds.WithLabelValues(p).Set(float64(s.now().Unix()))

	span.SetAttributes(
		attribute.Int("sweep.total", report.Total),
		attribute.Int("sweep.sent", report.Sent),
		attribute.Int("sweep.skipped", report.Skipped),
		attribute.Int("sweep.failed", report.Failed),
	)
	switch {
	case outcome == "timeout":
		span.SetStatus(codes.Error, "sweep timed out")
	case report.Failed > 0:
		span.SetStatus(codes.Error, "some deliveries failed")
	}

	s.logger.Info(ctx, "sweep finished",
		zap.String("outcome", outcome),
		zap.String("date", report.Date),
		zap.Int("total", report.Total),
		zap.Int("sent", report.Sent),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

// deliver sends one reminder, retrying transient failures.
func (s *Scheduler) deliver(ctx context.Context, period Period, sub subscription.Subscription) error {
	ctx = logging.WithNovena(ctx, sub.NovenaID)
	msg := NewReminder(period, sub)

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = s.cfg.InitialBackoff
	eb.MaxInterval = s.cfg.MaxBackoff

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		sendCtx, cancel := context.WithTimeout(ctx, s.cfg.DeliveryTimeout)
		defer cancel()

		err := s.sender.Send(sendCtx, msg)
		switch {
		case err == nil:
			s.metrics.AttemptsTotal.WithLabelValues("ok").Inc()
			return struct{}{}, nil
		case push.IsPermanent(err):
			s.metrics.AttemptsTotal.WithLabelValues("permanent").Inc()
			return struct{}{}, backoff.Permanent(err)
		default:
			s.metrics.AttemptsTotal.WithLabelValues("transient").Inc()
			return struct{}{}, err
		}
	},
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(s.cfg.MaxAttempts),
		backoff.WithNotify(func(err error, wait time.Duration) {
			s.logger.Warn(ctx, "delivery failed, retrying",
				zap.String("user.id", sub.UserID),
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(err),
			)
		}),
	)
	if err != nil {
		s.logger.Error(ctx, "delivery failed",
			zap.String("user.id", sub.UserID),
			zap.String("notification.id", msg.ID),
			logging.Token("token", sub.Token),
			zap.Int("attempts", attempt),
			zap.Bool("permanent", push.IsPermanent(err)),
			zap.Error(err),
		)
		return err
	}

	s.logger.Debug(ctx, "reminder sent",
		zap.String("user.id", sub.UserID),
		zap.String("notification.id", msg.ID),
		zap.Int("day", sub.CurrentDay),
	)
	return nil
}

// NewReminder builds the notification for sub.
func NewReminder(period Period, sub subscription.Subscription) push.Message {
	id := uuid.NewString()
	return push.Message{
		ID:       id,
		Token:    sub.Token,
		Platform: string(sub.Platform),
		Title:    ReminderTitle,
		Body:     reminderBody(period, sub.CurrentDay, sub.NovenaTitle),
		Data: map[string]string{
			"type":           ReminderType,
			"novenaId":       sub.NovenaID,
			"day":            strconv.Itoa(sub.CurrentDay),
			"period":         string(period),
			"notificationId": id,
		},
	}
}

func reminderBody(period Period, day int, title string) string {
	if period == PeriodEvening {
		return fmt.Sprintf("Ainda dá tempo! Reze hoje o dia %d da %s.", day, title)
	}
	return fmt.Sprintf("Bom dia! Hoje é o dia %d da %s. Reserve um momento para rezar.", day, title)
}
