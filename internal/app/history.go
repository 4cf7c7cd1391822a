package app

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/delete-after/internal/config"
	"github.com/blackwell-systems/delete-after/internal/duration"
	"github.com/blackwell-systems/delete-after/internal/output"
	"github.com/blackwell-systems/delete-after/internal/store"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit int
		prune string
	)

	cmd := &cobra.Command{
		Use:   "history [RUN_ID]",
		Short: "Show runs recorded in the journal",
		Long: `List runs recorded with --journal, newest first. With a RUN_ID, show that
run's deletions and errors.

The journal is an audit trail only. Runs never read it back, so deleting
it has no effect on what gets deleted.`,
		Example: `  # List the last 20 runs
  delete-after history

  # Show deletions and errors of one run
  delete-after history 5f0c7e1e-1d7b-4f0e-9a55-2d4f0f1b0a11

  # Drop journal entries older than 90 days
  delete-after history --prune "90 days"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, args, limit, prune)
		},
	}

	cmd.Flags().String(config.Journal, "", "journal path (default: $XDG_CONFIG_HOME/delete-after/journal.db)")
	cmd.Flags().String(config.ConfigFile, "", "config file (default: $XDG_CONFIG_HOME/delete-after/config.yaml)")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list (0 for all)")
	cmd.Flags().StringVar(&prune, "prune", "", `delete runs older than this age, e.g. "90 days"`)
	return cmd
}

func runHistory(cmd *cobra.Command, args []string, limit int, prune string) error {
	settings, err := config.Load(cmd.Flags(), nil)
	if err != nil {
		return err
	}
	path, err := journalPath(settings)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("no journal at %s: run delete-after with --journal first", path)
	}

	st, err := store.New(path)
	if err != nil {
		return err
	}
	defer st.Close()

	out := cmd.OutOrStdout()

	if prune != "" {
		spec, err := duration.Parse(prune)
		if err != nil {
			return fmt.Errorf("invalid --prune age: %w", err)
		}
		n, err := st.PruneRuns(time.Now().Add(-spec.Duration()))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Pruned %d runs older than %s.\n", n, spec)
		return nil
	}

	if len(args) == 1 {
		run, err := st.GetRun(args[0])
		if err != nil {
			return err
		}
		events, err := st.ListEvents(run.ID)
		if err != nil {
			return err
		}
		fmt.Fprint(out, output.RenderRunDetail(run, events))
		return nil
	}

	runs, err := st.ListRuns(limit)
	if err != nil {
		return err
	}
	fmt.Fprint(out, output.RenderRunsTable(runs, time.Now()))
	return nil
}
