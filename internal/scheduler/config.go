package scheduler

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/novenad/internal/config"
	"github.com/robfig/cron/v3"
)

// Period names one of the two daily triggers.
type Period string

const (
	PeriodMorning Period = "morning"
	PeriodEvening Period = "evening"
)

// ParsePeriod accepts "morning" or "evening".
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case PeriodMorning, PeriodEvening:
		return Period(s), nil
	}
	return "", fmt.Errorf("unknown period %q (want morning or evening)", s)
}

// Config is the resolved scheduler configuration.
type Config struct {
	Location        *time.Location
	Morning         string
	Evening         string
	Concurrency     int
	DeliveryTimeout time.Duration
	SweepTimeout    time.Duration
	MaxAttempts     uint
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
}

// FromConfig resolves the time zone and checks both cron expressions.
func FromConfig(c config.SchedulerConfig) (Config, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return Config{}, fmt.Errorf("loading timezone %q: %w", c.Timezone, err)
	}
	cfg := Config{
		Location:        loc,
		Morning:         c.Morning,
		Evening:         c.Evening,
		Concurrency:     c.Concurrency,
		DeliveryTimeout: c.DeliveryTimeout,
		SweepTimeout:    c.SweepTimeout,
		MaxAttempts:     uint(max(c.MaxAttempts, 1)),
		InitialBackoff:  c.InitialBackoff,
		MaxBackoff:      c.MaxBackoff,
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.Location == nil {
		return fmt.Errorf("location is required")
	}
	for name, spec := range map[string]string{"morning": c.Morning, "evening": c.Evening} {
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("%s schedule %q: %w", name, spec, err)
		}
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be >= 1, got %d", c.Concurrency)
	}
	if c.DeliveryTimeout <= 0 || c.SweepTimeout <= 0 {
		return fmt.Errorf("delivery and sweep timeouts must be positive")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be >= 1")
	}
	return nil
}
