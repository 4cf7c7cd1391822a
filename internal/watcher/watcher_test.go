package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNew_ValidatesSchedule(t *testing.T) {
	tests := []struct {
		name     string
		schedule string
		wantErr  bool
	}{
		{"descriptor", "@hourly", false},
		{"every", "@every 30m", false},
		{"standard", "0 3 * * *", false},
		{"empty", "", true},
		{"garbage", "every tuesday", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(Config{Schedule: tt.schedule}, zerolog.Nop())
			if (err != nil) != tt.wantErr {
				t.Errorf("New(%q) error = %v, wantErr %v", tt.schedule, err, tt.wantErr)
			}
		})
	}
}

func TestNext(t *testing.T) {
	w, err := New(Config{Schedule: "0 3 * * *"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	from := time.Date(2026, 3, 1, 12, 0, 0, 0, time.Local)
	want := time.Date(2026, 3, 2, 3, 0, 0, 0, time.Local)
	if got := w.Next(from); !got.Equal(want) {
		t.Errorf("Next() = %v, want %v", got, want)
	}
}

func TestRun_RunsImmediatelyAndStopsOnCancel(t *testing.T) {
	w, err := New(Config{Schedule: "@hourly"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(context.Context) {
			runs.Add(1)
			cancel()
		})
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancellation")
	}
	if got := runs.Load(); got != 1 {
		t.Errorf("job ran %d times, want 1", got)
	}
}

func TestRun_RepeatsOnSchedule(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping scheduled run test in short mode")
	}
	w, err := New(Config{Schedule: "@every 1s"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var runs atomic.Int32
	err = w.Run(ctx, func(context.Context) {
		if runs.Add(1) == 2 {
			cancel()
		}
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := runs.Load(); got < 2 {
		t.Errorf("job ran %d times, want at least 2", got)
	}
}

func TestRun_ReloadsConfigOnChange(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgFile, []byte("verbose: false\n"), 0644); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan struct{}, 1)
	w, err := New(Config{
		Schedule:   "@hourly",
		ConfigFile: cfgFile,
		Debounce:   10 * time.Millisecond,
		OnConfigChange: func() error {
			select {
			case reloaded <- struct{}{}:
			default:
			}
			return nil
		},
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(context.Context) { close(started) })
	}()
	<-started

	// Unrelated files in the same directory are ignored.
	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cfgFile, []byte("verbose: true\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-reloaded:
	case <-time.After(5 * time.Second):
		t.Fatal("config change did not trigger a reload")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}
}

func TestDebouncer_CoalescesTriggers(t *testing.T) {
	d := newDebouncer(20 * time.Millisecond)
	var calls atomic.Int32
	for i := 0; i < 5; i++ {
		d.trigger(func() { calls.Add(1) })
	}
	time.Sleep(100 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("debounced function ran %d times, want 1", got)
	}
	d.stop()
}
