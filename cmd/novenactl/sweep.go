package main

import (
	"fmt"

	"github.com/fyrsmithlabs/novenad/internal/config"
	"github.com/fyrsmithlabs/novenad/internal/logging"
	"github.com/fyrsmithlabs/novenad/internal/push"
	"github.com/fyrsmithlabs/novenad/internal/scheduler"
	"github.com/fyrsmithlabs/novenad/internal/subscription"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
)

func newSweepCmd(flags *globalFlags) *cobra.Command {
	var period string
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one reminder sweep now",
		Long: `Run one reminder sweep immediately with the configured push driver and
print the report as JSON. Subscriptions already completed today are skipped,
so running a sweep by hand never double-notifies a user who has prayed.

Examples:
  # Morning sweep using the configured driver
  novenactl sweep --period morning

  # Dry run against a local database
  PUSH_DRIVER=log novenactl sweep --db ./novenad.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := scheduler.ParsePeriod(period)
			if err != nil {
				return err
			}
			cfg, err := config.LoadWithFile(flags.configPath)
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
			if flags.dbPath != "" {
				cfg.Store.Path = flags.dbPath
			}

			logCfg, err := logging.FromObservability(cfg.Observability)
			if err != nil {
				return err
			}
			logCfg.Format = "console"
			logCfg.Output.Writer = zapcore.AddSync(cmd.ErrOrStderr())
			logger, err := logging.NewLogger(logCfg, nil)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			schedCfg, err := scheduler.FromConfig(cfg.Scheduler)
			if err != nil {
				return err
			}

			db, err := subscription.OpenDB(cfg.Store.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			sender, closeSender, err := push.New(ctx, cfg.Push, logger)
			if err != nil {
				return err
			}
			defer closeSender()

			sched, err := scheduler.New(schedCfg, subscription.NewSQLiteStore(db), sender, logger)
			if err != nil {
				return err
			}
			report, err := sched.Sweep(ctx, p)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVar(&period, "period", string(scheduler.PeriodMorning), "morning or evening")
	return cmd
}
