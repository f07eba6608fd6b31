package main

import (
	"fmt"
	"strconv"

	"github.com/fyrsmithlabs/novenad/internal/expansion"
	"github.com/fyrsmithlabs/novenad/internal/render"
	"github.com/spf13/cobra"
)

func newValidateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load and check the content documents",
		Long: `Load globals.json and novenas.json, check block shapes and resolve
every reference of every day, exactly as novenad does at startup.

Examples:
  # Check the embedded content
  novenactl validate

  # Check a content directory before deploying it
  novenactl validate --content-dir ./content`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, _, err := expansion.Load(flags.contentDir)
			if err != nil {
				return err
			}
			days := 0
			for _, n := range snap.Store.List() {
				days += len(n.Days)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d novenas, %d days, %d global texts\n",
				snap.Store.Len(), days, snap.Registry.Len())
			return nil
		},
	}
}

func newExpandCmd(flags *globalFlags) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "expand <novena> <day>",
		Short: "Print a day as JSON",
		Long: `Print one day of a novena as the HTTP API would return it.

Examples:
  # Expanded day
  novenactl expand aparecida 3

  # Source blocks and novena defaults, references untouched
  novenactl expand aparecida 3 --raw`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, engine, err := expansion.Load(flags.contentDir)
			if err != nil {
				return err
			}
			novena, err := snap.Store.Get(args[0])
			if err != nil {
				return err
			}
			day, err := parseDay(args[1])
			if err != nil {
				return err
			}
			if raw {
				out, err := engine.RawDay(novena, day)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), out)
			}
			out, err := engine.ExpandDay(novena, day)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print source blocks without resolving references")
	return cmd
}

func newPrayCmd(flags *globalFlags) *cobra.Command {
	var width int
	cmd := &cobra.Command{
		Use:   "pray <novena> <day>",
		Short: "Render a day for reading in the terminal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, engine, err := expansion.Load(flags.contentDir)
			if err != nil {
				return err
			}
			novena, err := snap.Store.Get(args[0])
			if err != nil {
				return err
			}
			number, err := parseDay(args[1])
			if err != nil {
				return err
			}
			day, err := engine.ExpandDay(novena, number)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.Day(novena.Meta.Title, day, width))
			return nil
		},
	}
	cmd.Flags().IntVar(&width, "width", render.DefaultWidth, "page width in columns")
	return cmd
}

func parseDay(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("day must be an integer, got %q", s)
	}
	return n, nil
}
