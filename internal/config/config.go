// Package config resolves delete-after settings from flags, environment
// variables and an optional YAML config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Keys shared by flags, environment variables (DELETE_AFTER_*) and the
// config file.
const (
	DryRun      = "dry-run"
	Verbose     = "verbose"
	LogFile     = "log-file"
	NoLogFile   = "no-log-file"
	LogFormat   = "log-format"
	Journal     = "journal"
	MetricsFile = "metrics-file"
	ReportFile  = "report-file"
	ConfigFile  = "config"
	Roots       = "roots"

	Schedule = "schedule"
	PIDFile  = "pid-file"
)

// DefaultSchedule is the watch mode schedule when none is configured.
const DefaultSchedule = "@hourly"

// EnvPrefix is prepended to upper-cased keys, with "-" replaced by "_".
const EnvPrefix = "delete_after"

// Settings is the resolved configuration of one invocation.
type Settings struct {
	DryRun      bool
	Verbose     bool
	LogFile     string
	NoLogFile   bool
	LogFormat   string
	Journal     string
	MetricsFile string
	ReportFile  string
	Roots       []string

	// Watch mode only.
	Schedule string
	PIDFile  string

	// Source is the config file that was read, if any.
	Source string
}

// Dir returns the delete-after config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/delete-after.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "delete-after"), nil
}

// DefaultJournalPath is used when --journal is given without a value.
func DefaultJournalPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "journal.db"), nil
}

// RegisterFlags adds the run flags to fs.
func RegisterFlags(fs *flag.FlagSet) {
	fs.BoolP(DryRun, "n", false, "report what would be deleted without deleting anything")
	fs.BoolP(Verbose, "v", false, "log kept and skipped files too")
	fs.String(LogFile, "", "log file path (default: /var/log/delete_after.log or ~/delete_after.log)")
	fs.Bool(NoLogFile, false, "do not write a log file")
	fs.String(LogFormat, "text", "log file format (text, json)")
	fs.String(Journal, "", "record the run in this SQLite journal")
	fs.String(MetricsFile, "", "write Prometheus textfile metrics to this path")
	fs.String(ReportFile, "", "write the run report to this path (.json, .yaml)")
	fs.String(ConfigFile, "", "config file (default: $XDG_CONFIG_HOME/delete-after/config.yaml)")
}

// RegisterWatchFlags adds the run flags plus the watch mode flags to fs.
func RegisterWatchFlags(fs *flag.FlagSet) {
	RegisterFlags(fs)
	fs.String(Schedule, DefaultSchedule, `cron schedule between runs, e.g. "@every 30m" or "0 3 * * *"`)
	fs.String(PIDFile, "", "refuse to start if the process in this PID file is alive")
}

// Load merges fs, the environment and the config file, in that order of
// precedence. args are positional roots; when empty the configured roots
// are used.
func Load(fs *flag.FlagSet, args []string) (*Settings, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault(LogFormat, "text")
	v.SetDefault(Schedule, DefaultSchedule)
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	source, err := readConfigFile(v, v.GetString(ConfigFile))
	if err != nil {
		return nil, err
	}

	s := &Settings{
		DryRun:      v.GetBool(DryRun),
		Verbose:     v.GetBool(Verbose),
		LogFile:     v.GetString(LogFile),
		NoLogFile:   v.GetBool(NoLogFile),
		LogFormat:   strings.ToLower(v.GetString(LogFormat)),
		Journal:     v.GetString(Journal),
		MetricsFile: v.GetString(MetricsFile),
		ReportFile:  v.GetString(ReportFile),
		Roots:       args,
		Schedule:    v.GetString(Schedule),
		PIDFile:     v.GetString(PIDFile),
		Source:      source,
	}
	if len(s.Roots) == 0 {
		s.Roots = v.GetStringSlice(Roots)
	}
	s.Roots = lo.Uniq(lo.Compact(lo.Map(s.Roots, func(r string, _ int) string {
		return strings.TrimSpace(r)
	})))

	if s.LogFormat != "text" && s.LogFormat != "json" {
		return nil, fmt.Errorf("unknown log format %q (want text or json)", s.LogFormat)
	}
	return s, nil
}

// readConfigFile reads path, or the default config file when path is empty.
// A missing default file is not an error.
func readConfigFile(v *viper.Viper, path string) (string, error) {
	explicit := path != ""
	if !explicit {
		dir, err := Dir()
		if err != nil {
			return "", nil
		}
		path = filepath.Join(dir, "config.yaml")
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return path, nil
}
