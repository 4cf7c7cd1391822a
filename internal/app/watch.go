package app

import (
	"context"
	"errors"
	"sync"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/delete-after/internal/config"
	"github.com/blackwell-systems/delete-after/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [flags] ROOT...",
		Short: "Run now and then repeatedly on a cron schedule",
		Long: `Run immediately, then again on every tick of --schedule until interrupted.
A tick that arrives while a run is still in progress is skipped.

When a config file is in use it is re-read on change; the new roots and
run options apply from the next run. Logging options are fixed at start.

Each run is independent: nothing carries over between runs except the
optional journal, which is never consulted for decisions.`,
		Example: `  # Hourly, with a guard against a second instance
  delete-after watch --pid-file /run/delete-after.pid /srv/tmp

  # Every day at 03:00
  delete-after watch --schedule "0 3 * * *" /srv/tmp`,
		Args: cobra.ArbitraryArgs,
		RunE: runWatch,
	}

	config.RegisterWatchFlags(cmd.Flags())
	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	settings, err := config.Load(cmd.Flags(), args)
	if err != nil {
		return err
	}
	if len(settings.Roots) == 0 {
		return errNoRoots
	}

	logger, err := newLogger(cmd.OutOrStdout(), settings)
	if err != nil {
		return err
	}
	defer logger.Close()

	if settings.PIDFile != "" {
		release, err := watcher.AcquirePIDFile(expandHome(settings.PIDFile))
		if err != nil {
			return err
		}
		defer release()
	}

	var (
		mu      sync.Mutex
		current = settings
	)
	reload := func() error {
		s, err := config.Load(cmd.Flags(), args)
		if err != nil {
			return err
		}
		if len(s.Roots) == 0 {
			return errNoRoots
		}
		mu.Lock()
		current = s
		mu.Unlock()
		return nil
	}

	w, err := watcher.New(watcher.Config{
		Schedule:       settings.Schedule,
		ConfigFile:     settings.Source,
		OnConfigChange: reload,
	}, logger.Logger)
	if err != nil {
		return err
	}

	return w.Run(cmd.Context(), func(ctx context.Context) {
		mu.Lock()
		s := current
		mu.Unlock()

		if err := executeRun(ctx, cmd.OutOrStdout(), logger.Logger, s); err != nil {
			if errors.Is(err, ErrRunErrors) {
				logger.Warn().Err(err).Msg("run finished with errors, continuing on schedule")
				return
			}
			logger.Error().Err(err).Msg("run failed, continuing on schedule")
		}
	})
}
