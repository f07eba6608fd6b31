// Package main implements novenactl, the operator CLI for novenad content
// and subscriptions.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	contentDir string
	dbPath     string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:   "novenactl",
		Short: "Operator CLI for novenad",
		Long: `novenactl validates and previews novena content, manages reminder
subscriptions and runs reminder sweeps on demand.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to YAML config file")
	root.PersistentFlags().StringVar(&flags.contentDir, "content-dir", "", "directory with globals.json and novenas.json (default: embedded content)")
	root.PersistentFlags().StringVar(&flags.dbPath, "db", "", "subscription database (default: store.path from config)")

	root.AddCommand(
		newValidateCmd(flags),
		newExpandCmd(flags),
		newPrayCmd(flags),
		newSubCmd(flags),
		newSweepCmd(flags),
	)
	return root
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
