package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for reminder sweeps.
//
// Metrics:
//   - novenad_sweeps_total{period,outcome} - sweeps by outcome (ok, timeout, error)
//   - novenad_reminders_total{period,result} - recipients by result (sent, skipped, failed)
//   - novenad_delivery_attempts_total{result} - individual Send calls (ok, transient, permanent)
//   - novenad_sweep_duration_seconds{period} - sweep wall time
//   - novenad_last_sweep_timestamp_seconds{period} - completion time of the last sweep
type Metrics struct {
	SweepsTotal      *prometheus.CounterVec
	RemindersTotal   *prometheus.CounterVec
	AttemptsTotal    *prometheus.CounterVec
	SweepDuration    *prometheus.HistogramVec
	LastSweepSeconds *prometheus.GaugeVec
}

// NewMetrics registers the scheduler metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SweepsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "novenad_sweeps_total",
				Help: "Total number of reminder sweeps",
			},
			[]string{"period", "outcome"},
		),
		RemindersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "novenad_reminders_total",
				Help: "Total number of subscriptions processed by sweeps",
			},
			[]string{"period", "result"},
		),
		AttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "novenad_delivery_attempts_total",
				Help: "Total number of push delivery attempts",
			},
			[]string{"result"},
		),
		SweepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "novenad_sweep_duration_seconds",
				Help:    "Duration of reminder sweeps in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"period"},
		),
		LastSweepSeconds: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "novenad_last_sweep_timestamp_seconds",
				Help: "Unix time the last sweep finished",
			},
			[]string{"period"},
		),
	}
}
