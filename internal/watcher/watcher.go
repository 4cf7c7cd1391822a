package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultDebounce delays config reloads so an editor's burst of writes
// triggers a single reload.
const DefaultDebounce = 200 * time.Millisecond

// Config configures a Watcher.
type Config struct {
	// Schedule is a standard cron expression or descriptor such as
	// "@hourly" or "@every 30m".
	Schedule string

	// ConfigFile is re-read through OnConfigChange when it changes.
	// Empty disables watching.
	ConfigFile string

	// OnConfigChange is called after ConfigFile changes.
	OnConfigChange func() error

	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration
}

// Watcher runs a job immediately and then on a schedule until its context
// ends. Runs never overlap: a tick that fires while a run is in progress is
// skipped.
type Watcher struct {
	cfg      Config
	schedule cron.Schedule
	log      zerolog.Logger
}

// New validates the schedule.
func New(cfg Config, log zerolog.Logger) (*Watcher, error) {
	if cfg.Schedule == "" {
		return nil, fmt.Errorf("schedule cannot be empty")
	}
	schedule, err := cron.ParseStandard(cfg.Schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid cron schedule %q: %w", cfg.Schedule, err)
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	return &Watcher{
		cfg:      cfg,
		schedule: schedule,
		log:      log.With().Str("component", "watcher").Logger(),
	}, nil
}

// Next returns the first scheduled run after t.
func (w *Watcher) Next(t time.Time) time.Time {
	return w.schedule.Next(t)
}

// Run blocks until ctx is cancelled. job receives ctx so an in-flight run
// stops with the watcher.
func (w *Watcher) Run(ctx context.Context, job func(context.Context)) error {
	var mu sync.Mutex
	runJob := func() {
		if !mu.TryLock() {
			w.log.Warn().Msg("previous run still in progress, skipping this tick")
			return
		}
		defer mu.Unlock()
		job(ctx)
	}

	if w.cfg.ConfigFile != "" && w.cfg.OnConfigChange != nil {
		stop, err := w.watchConfig(ctx)
		if err != nil {
			return err
		}
		defer stop()
	}

	runJob()
	if ctx.Err() != nil {
		return nil
	}

	c := cron.New()
	c.Schedule(w.schedule, cron.FuncJob(runJob))
	c.Start()
	w.log.Info().
		Str("schedule", w.cfg.Schedule).
		Time("next_run", w.Next(time.Now())).
		Msg("watcher started")

	<-ctx.Done()
	// Wait for a running job to observe the cancellation.
	<-c.Stop().Done()
	w.log.Info().Msg("watcher stopped")
	return nil
}

// watchConfig watches the directory holding the config file, since editors
// often replace the file rather than write it in place.
func (w *Watcher) watchConfig(ctx context.Context) (func(), error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	path := filepath.Clean(w.cfg.ConfigFile)
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	d := newDebouncer(w.cfg.Debounce)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != path || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				w.log.Debug().Str("path", event.Name).Str("op", event.Op.String()).Msg("config file event")
				d.trigger(w.reload)
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				w.log.Error().Err(err).Msg("config watch error")
			}
		}
	}()

	return func() {
		fsw.Close()
		<-done
		d.stop()
	}, nil
}

func (w *Watcher) reload() {
	if err := w.cfg.OnConfigChange(); err != nil {
		w.log.Error().Err(err).Str("config", w.cfg.ConfigFile).Msg("config reload failed, keeping previous settings")
		return
	}
	w.log.Info().Str("config", w.cfg.ConfigFile).Msg("config reloaded")
}

// debouncer runs the last triggered function once no trigger has arrived
// for the interval.
type debouncer struct {
	mu       sync.Mutex
	interval time.Duration
	timer    *time.Timer
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{interval: interval}
}

func (d *debouncer) trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, fn)
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}
