// Novenad serves novena content over HTTP and sends daily prayer reminders.
//
// Configuration is read from an optional YAML file and the environment,
// with a .env file in the working directory loaded first. See
// internal/config for the keys.
//
// Usage:
//
//	# Start with defaults (fcm driver needs credentials)
//	PUSH_CREDENTIALS="$(cat service-account.json)" novenad
//
//	# Local development without push delivery
//	PUSH_DRIVER=log PORT=9090 novenad
//
//	# Explicit config file
//	novenad --config /etc/novenad/config.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/novenad/internal/config"
	"github.com/fyrsmithlabs/novenad/internal/expansion"
	httpserver "github.com/fyrsmithlabs/novenad/internal/http"
	"github.com/fyrsmithlabs/novenad/internal/logging"
	"github.com/fyrsmithlabs/novenad/internal/push"
	"github.com/fyrsmithlabs/novenad/internal/scheduler"
	"github.com/fyrsmithlabs/novenad/internal/subscription"
	"github.com/fyrsmithlabs/novenad/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  novenad [--config path]   Start the daemon\n")
			fmt.Fprintf(os.Stderr, "  novenad version           Show version information\n")
			os.Exit(1)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("novenad: %v", err)
	}
}

func printVersion() {
	fmt.Printf("novenad by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run wires every component and blocks until ctx is cancelled:
//  1. Loads and validates configuration
//  2. Initializes telemetry and logger
//  3. Loads content and checks every reference
//  4. Opens the subscription store and push sender
//  5. Starts the scheduler and the HTTP server
//  6. Shuts everything down in reverse order
func run(ctx context.Context, configPath string) error {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	tel, err := telemetry.New(ctx, telemetry.FromObservability(cfg.Observability, version))
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			log.Printf("telemetry shutdown: %v", err)
		}
	}()

	logCfg, err := logging.FromObservability(cfg.Observability)
	if err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	logger, err := logging.NewLogger(logCfg, tel.LoggerProvider())
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if tel.Err() != nil {
		logger.Warn(ctx, "telemetry degraded", zap.Error(tel.Err()))
	}
	logger.Info(ctx, "starting novenad",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("push_driver", cfg.Push.Driver),
		zap.Bool("scheduler", cfg.Scheduler.Enabled),
	)

	snap, engine, err := expansion.Load(cfg.Content.Dir)
	if err != nil {
		return err
	}
	logger.Info(ctx, "content loaded",
		zap.Int("novenas", snap.Store.Len()),
		zap.Int("global_texts", snap.Registry.Len()),
		zap.String("source", contentSource(cfg.Content.Dir)),
	)

	var (
		sched   *scheduler.Scheduler
		release = func() {}
	)
	if cfg.Scheduler.Enabled {
		sched, release, err = startScheduler(ctx, cfg, tel, logger)
		if err != nil {
			return err
		}
	}
	defer release()

	srv, err := httpserver.NewServer(snap, engine, logger.Underlying(), &httpserver.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		CacheMaxAge: cfg.Server.CacheMaxAge,
		Gatherer:    prometheus.DefaultGatherer,
		Metrics:     httpserver.NewHTTPMetricsWithMeter(tel.Meter("github.com/fyrsmithlabs/novenad/internal/http"), logger.Underlying()),
	})
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	case serveErr = <-errCh:
		logger.Error(context.Background(), "http server failed", zap.Error(serveErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn(shutdownCtx, "http shutdown", zap.Error(err))
	}
	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			logger.Warn(shutdownCtx, "scheduler shutdown", zap.Error(err))
		}
	}
	logger.Info(shutdownCtx, "shutdown complete")
	return serveErr
}

func contentSource(dir string) string {
	if dir == "" {
		return "embedded"
	}
	return dir
}

// startScheduler opens the store and sender and starts the triggers. The
// returned release function closes both once the scheduler has stopped.
func startScheduler(ctx context.Context, cfg *config.Config, tel *telemetry.Telemetry, logger *logging.Logger) (*scheduler.Scheduler, func(), error) {
	schedCfg, err := scheduler.FromConfig(cfg.Scheduler)
	if err != nil {
		return nil, nil, err
	}

	db, err := subscription.OpenDB(cfg.Store.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening subscription store: %w", err)
	}

	sender, closeSender, err := push.New(ctx, cfg.Push, logger)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("creating push sender: %w", err)
	}
	release := func() {
		closeSender()
		db.Close()
	}

	sched, err := scheduler.New(schedCfg, subscription.NewSQLiteStore(db), sender, logger,
		scheduler.WithMetrics(scheduler.NewMetrics(prometheus.DefaultRegisterer)),
		scheduler.WithTracer(tel.Tracer("github.com/fyrsmithlabs/novenad/internal/scheduler")),
	)
	if err != nil {
		release()
		return nil, nil, err
	}
	if err := sched.Start(ctx); err != nil {
		release()
		return nil, nil, err
	}
	return sched, release, nil
}
