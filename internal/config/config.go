// Package config provides configuration loading for novenad.
//
// Configuration is layered: built-in defaults, then an optional YAML file,
// then environment variables. See LoadWithFile for the precedence rules and
// the environment variable mapping.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // scheduler timezones must resolve on minimal images
)

// Push delivery drivers.
const (
	DriverFCM  = "fcm"
	DriverNATS = "nats"
	DriverLog  = "log"
)

// ErrMissingCredentials is returned when the fcm driver has no credential.
var ErrMissingCredentials = errors.New("push credentials are required for the fcm driver")

// Config holds the complete novenad configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Content       ContentConfig       `koanf:"content"`
	Scheduler     SchedulerConfig     `koanf:"scheduler"`
	Push          PushConfig          `koanf:"push"`
	Store         StoreConfig         `koanf:"store"`
	Observability ObservabilityConfig `koanf:"observability"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"http_port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CacheMaxAge     time.Duration `koanf:"cache_max_age"` // Cache-Control max-age for content responses; 0 disables the header
}

// ContentConfig says where novena content is read from.
type ContentConfig struct {
	Dir string `koanf:"dir"` // Directory with globals.json and novenas.json; empty uses the embedded content
}

// SchedulerConfig holds the reminder scheduler configuration.
type SchedulerConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Timezone        string        `koanf:"timezone"` // IANA zone used for trigger times and "today"
	Morning         string        `koanf:"morning"`  // cron spec (minute hour dom month dow)
	Evening         string        `koanf:"evening"`
	Concurrency     int           `koanf:"concurrency"`
	DeliveryTimeout time.Duration `koanf:"delivery_timeout"`
	SweepTimeout    time.Duration `koanf:"sweep_timeout"`
	MaxAttempts     int           `koanf:"max_attempts"`
	InitialBackoff  time.Duration `koanf:"initial_backoff"`
	MaxBackoff      time.Duration `koanf:"max_backoff"`
}

// PushConfig holds push delivery configuration.
type PushConfig struct {
	Driver          string  `koanf:"driver"`
	Credentials     Secret  `koanf:"credentials"`      // service account JSON, raw or base64
	CredentialsFile string  `koanf:"credentials_file"` // path to the service account JSON
	ProjectID       string  `koanf:"project_id"`       // overrides the project of the credential
	Endpoint        string  `koanf:"endpoint"`         // FCM API base URL
	RateLimit       float64 `koanf:"rate_limit"`       // sends per second
	Burst           int     `koanf:"burst"`
	NATSURL         string  `koanf:"nats_url"`
	NATSSubject     string  `koanf:"nats_subject"`
	AndroidChannel  string  `koanf:"android_channel"`
}

// StoreConfig holds the subscription store configuration.
type StoreConfig struct {
	Path string `koanf:"path"` // SQLite database file
}

// ObservabilityConfig holds logging and OpenTelemetry configuration.
type ObservabilityConfig struct {
	LogLevel        string `koanf:"log_level"`
	LogFormat       string `koanf:"log_format"`
	EnableTelemetry bool   `koanf:"enable_telemetry"`
	OTLPEndpoint    string `koanf:"otlp_endpoint"`
	ServiceName     string `koanf:"service_name"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ShutdownTimeout: 10 * time.Second,
			CacheMaxAge:     5 * time.Minute,
		},
		Scheduler: SchedulerConfig{
			Enabled:         true,
			Timezone:        "America/Sao_Paulo",
			Morning:         "0 9 * * *",
			Evening:         "0 20 * * *",
			Concurrency:     8,
			DeliveryTimeout: 10 * time.Second,
			SweepTimeout:    10 * time.Minute,
			MaxAttempts:     3,
			InitialBackoff:  500 * time.Millisecond,
			MaxBackoff:      5 * time.Second,
		},
		Push: PushConfig{
			Driver:         DriverFCM,
			Endpoint:       "https://fcm.googleapis.com",
			RateLimit:      50,
			Burst:          10,
			NATSSubject:    "novenad.push",
			AndroidChannel: "novena_reminders",
		},
		Store: StoreConfig{
			Path: "novenad.db",
		},
		Observability: ObservabilityConfig{
			LogLevel:     "info",
			LogFormat:    "json",
			OTLPEndpoint: "localhost:4317",
			ServiceName:  "novenad",
		},
	}
}

// Validate validates the configuration.
//
// The fcm push driver without a credential is an error: the process must
// not start unable to deliver reminders.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.Server.CacheMaxAge < 0 {
		return errors.New("cache max age cannot be negative")
	}

	if c.Scheduler.Enabled {
		if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
			return fmt.Errorf("invalid scheduler timezone %q: %w", c.Scheduler.Timezone, err)
		}
		if strings.TrimSpace(c.Scheduler.Morning) == "" || strings.TrimSpace(c.Scheduler.Evening) == "" {
			return errors.New("scheduler morning and evening specs are required")
		}
		if c.Scheduler.Concurrency < 1 {
			return fmt.Errorf("scheduler concurrency must be >= 1, got %d", c.Scheduler.Concurrency)
		}
		if c.Scheduler.MaxAttempts < 1 {
			return fmt.Errorf("scheduler max attempts must be >= 1, got %d", c.Scheduler.MaxAttempts)
		}
		if c.Scheduler.DeliveryTimeout <= 0 || c.Scheduler.SweepTimeout <= 0 {
			return errors.New("scheduler timeouts must be positive")
		}
	}

	switch c.Push.Driver {
	case DriverFCM:
		if !c.Push.Credentials.IsSet() && c.Push.CredentialsFile == "" {
			return ErrMissingCredentials
		}
		if c.Push.RateLimit <= 0 || c.Push.Burst < 1 {
			return errors.New("push rate limit and burst must be positive")
		}
	case DriverNATS:
		if c.Push.NATSURL == "" || c.Push.NATSSubject == "" {
			return errors.New("nats push driver requires nats_url and nats_subject")
		}
	case DriverLog:
	default:
		return fmt.Errorf("unknown push driver %q (want fcm, nats or log)", c.Push.Driver)
	}

	if c.Store.Path == "" {
		return errors.New("store path is required")
	}

	if f := c.Observability.LogFormat; f != "json" && f != "console" {
		return fmt.Errorf("log format must be 'json' or 'console', got %q", f)
	}
	if c.Observability.EnableTelemetry && c.Observability.ServiceName == "" {
		return errors.New("service name required when telemetry is enabled")
	}

	return nil
}

// CredentialsJSON returns the service account document for the fcm driver.
// The inline credential may be raw JSON or base64-encoded JSON; otherwise
// the credentials file is read.
func (p PushConfig) CredentialsJSON() ([]byte, error) {
	if p.Credentials.IsSet() {
		raw := strings.TrimSpace(p.Credentials.Value())
		if strings.HasPrefix(raw, "{") {
			return []byte(raw), nil
		}
		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("push credentials are neither JSON nor base64: %w", err)
		}
		return decoded, nil
	}
	if p.CredentialsFile != "" {
		data, err := os.ReadFile(p.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("reading push credentials file: %w", err)
		}
		return data, nil
	}
	return nil, ErrMissingCredentials
}
