package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/novenad/internal/config"
	"github.com/fyrsmithlabs/novenad/internal/expansion"
	"github.com/fyrsmithlabs/novenad/internal/render"
	"github.com/fyrsmithlabs/novenad/internal/subscription"
	"github.com/spf13/cobra"
)

// openStore opens the database named by --db, falling back to store.path.
func openStore(flags *globalFlags) (*subscription.SQLiteStore, *sql.DB, error) {
	path := flags.dbPath
	if path == "" {
		cfg, err := config.LoadWithFile(flags.configPath)
		if err != nil {
			return nil, nil, fmt.Errorf("loading configuration: %w", err)
		}
		path = cfg.Store.Path
	}
	db, err := subscription.OpenDB(path)
	if err != nil {
		return nil, nil, err
	}
	return subscription.NewSQLiteStore(db), db, nil
}

// withStore runs fn against an open store and closes it afterwards.
func withStore(cmd *cobra.Command, flags *globalFlags, fn func(ctx context.Context, store *subscription.SQLiteStore) error) error {
	store, db, err := openStore(flags)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(cmd.Context(), store)
}

func newSubCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sub",
		Short: "Manage reminder subscriptions",
		Long: `Create and update the subscription records the reminder scheduler reads.

Examples:
  novenactl sub add u1 aparecida --token <fcm-token> --platform android
  novenactl sub complete u1 --date 2026-03-10
  novenactl sub advance u1
  novenactl sub deactivate u1
  novenactl sub list --all`,
	}
	cmd.AddCommand(
		newSubAddCmd(flags),
		newSubCompleteCmd(flags),
		newSubAdvanceCmd(flags),
		newSubDeactivateCmd(flags),
		newSubListCmd(flags),
	)
	return cmd
}

func newSubAddCmd(flags *globalFlags) *cobra.Command {
	var (
		token    string
		platform string
		day      int
	)
	cmd := &cobra.Command{
		Use:   "add <user> <novena>",
		Short: "Subscribe a user to a novena",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, _, err := expansion.Load(flags.contentDir)
			if err != nil {
				return err
			}
			novena, err := snap.Store.Get(args[1])
			if err != nil {
				return err
			}
			if err := novena.CheckDay(day); err != nil {
				return err
			}
			sub := &subscription.Subscription{
				UserID:      args[0],
				NovenaID:    novena.ID,
				NovenaTitle: novena.Meta.Title,
				CurrentDay:  day,
				Active:      true,
				Token:       token,
				Platform:    subscription.Platform(platform),
			}
			return withStore(cmd, flags, func(ctx context.Context, store *subscription.SQLiteStore) error {
				if err := store.Upsert(ctx, sub); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "subscribed %s to %s (day %d)\n", sub.UserID, sub.NovenaID, sub.CurrentDay)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "device push token")
	cmd.Flags().StringVar(&platform, "platform", string(subscription.PlatformAndroid), "android, ios or web")
	cmd.Flags().IntVar(&day, "day", 1, "current day")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func newSubCompleteCmd(flags *globalFlags) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "complete <user>",
		Short: "Record that the user prayed today",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if date == "" {
				date = time.Now().Format(subscription.DateLayout)
			}
			return withStore(cmd, flags, func(ctx context.Context, store *subscription.SQLiteStore) error {
				if err := store.MarkCompleted(ctx, args[0], date); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s completed on %s\n", args[0], date)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "completion date, YYYY-MM-DD (default: today)")
	return cmd
}

func newSubAdvanceCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "advance <user>",
		Short: "Move the user to the next day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, flags, func(ctx context.Context, store *subscription.SQLiteStore) error {
				if err := store.Advance(ctx, args[0]); err != nil {
					return err
				}
				sub, err := store.Get(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is on day %d\n", sub.UserID, sub.CurrentDay)
				return nil
			})
		},
	}
}

func newSubDeactivateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <user>",
		Short: "Stop sending reminders to the user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, flags, func(ctx context.Context, store *subscription.SQLiteStore) error {
				if err := store.SetActive(ctx, args[0], false); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s deactivated\n", args[0])
				return nil
			})
		},
	}
}

func newSubListCmd(flags *globalFlags) *cobra.Command {
	var (
		all    bool
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List subscriptions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, flags, func(ctx context.Context, store *subscription.SQLiteStore) error {
				list := store.ListActive
				if all {
					list = store.List
				}
				subs, err := list(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					if subs == nil {
						subs = []subscription.Subscription{}
					}
					return writeJSON(cmd.OutOrStdout(), subs)
				}
				fmt.Fprintln(cmd.OutOrStdout(), render.Subscriptions(subs))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include inactive subscriptions")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
