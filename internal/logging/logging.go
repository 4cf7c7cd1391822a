// Package logging builds the zerolog logger for a run: human-readable lines on
// stdout plus an append-only log file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

const (
	// SystemLogPath is used when /var/log is writable.
	SystemLogPath = "/var/log/delete_after.log"
	// UserLogName is created in the home directory otherwise.
	UserLogName = "delete_after.log"
)

// Options configures the logger.
type Options struct {
	Verbose bool

	// File is the log file path. Empty selects DefaultLogPath.
	File string
	// NoFile disables the file sink.
	NoFile bool
	// Format of the file sink: "text" (default) or "json".
	Format string

	// Console defaults to os.Stdout.
	Console io.Writer
}

// Logger owns the sinks of a run.
type Logger struct {
	zerolog.Logger
	path string
	file *os.File
}

// Path returns the log file in use, or "" when there is none.
func (l *Logger) Path() string { return l.path }

// Close closes the log file.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// New builds a logger. The console sink is coloured only when it is a
// terminal and NO_COLOR is unset.
func New(opts Options) (*Logger, error) {
	level := zerolog.InfoLevel
	if opts.Verbose {
		level = zerolog.DebugLevel
	}

	console := opts.Console
	if console == nil {
		console = os.Stdout
	}
	writers := []io.Writer{zerolog.ConsoleWriter{
		Out:        console,
		TimeFormat: time.DateTime,
		NoColor:    !colorEnabled(console),
	}}

	l := &Logger{}
	if !opts.NoFile {
		path := opts.File
		if path == "" {
			path = DefaultLogPath()
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		l.file = f
		l.path = path

		fileWriter, err := fileSink(f, opts.Format)
		if err != nil {
			f.Close()
			return nil, err
		}
		writers = append(writers, fileWriter)
	}

	l.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Str("component", "delete_after").
		Logger()
	return l, nil
}

func fileSink(w io.Writer, format string) (io.Writer, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}, nil
	case "json":
		return w, nil
	default:
		return nil, fmt.Errorf("unknown log format %q (want text or json)", format)
	}
}

// DefaultLogPath returns SystemLogPath when /var/log is writable and
// ~/delete_after.log otherwise.
func DefaultLogPath() string {
	if dirWritable(filepath.Dir(SystemLogPath)) {
		return SystemLogPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return UserLogName
	}
	return filepath.Join(home, UserLogName)
}

// dirWritable probes dir by creating and removing a temp file.
func dirWritable(dir string) bool {
	f, err := os.CreateTemp(dir, ".delete_after-probe-*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return true
}

func colorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	type fder interface {
		Fd() uintptr
	}
	if f, ok := w.(fder); ok {
		return isatty.IsTerminal(f.Fd())
	}
	return false
}
