package app

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/blackwell-systems/delete-after/internal/resolver"
)

// tree is a scratch root holding a "1 day" marker, one expired file and one
// fresh file.
type tree struct {
	root  string
	old   string
	fresh string
}

func newTree(t *testing.T) tree {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("EvalSymlinks: %v", err)
	}

	tr := tree{
		root:  root,
		old:   filepath.Join(root, "old.log"),
		fresh: filepath.Join(root, "fresh.log"),
	}
	for path, content := range map[string]string{
		filepath.Join(root, resolver.MarkerName): "1 day\n",
		tr.old:   "old",
		tr.fresh: "fresh",
	} {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	stale := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(tr.old, stale, stale); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}
	return tr
}

// execute runs a fresh root command with an isolated config directory.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func TestRootCommand(t *testing.T) {
	if !strings.HasPrefix(RootCmd.Use, "delete-after") {
		t.Errorf("expected Use to start with 'delete-after', got '%s'", RootCmd.Use)
	}
	if RootCmd.Short == "" {
		t.Error("expected Short description to be set")
	}
	if RootCmd.Long == "" {
		t.Error("expected Long description to be set")
	}
	if RootCmd.RunE == nil {
		t.Error("expected RootCmd.RunE to be set")
	}
	if !RootCmd.SilenceUsage || !RootCmd.SilenceErrors {
		t.Error("expected SilenceUsage and SilenceErrors to be true")
	}
	if RootCmd.SuggestionsMinimumDistance != 2 {
		t.Errorf("SuggestionsMinimumDistance = %d, want 2", RootCmd.SuggestionsMinimumDistance)
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	found := make(map[string]bool)
	for _, cmd := range RootCmd.Commands() {
		found[cmd.Name()] = true
	}
	for _, expected := range []string{"explain", "history", "units", "version", "watch"} {
		if !found[expected] {
			t.Errorf("expected command '%s' to be registered", expected)
		}
	}
}

func TestRootCommandFlags(t *testing.T) {
	tests := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{"dry-run", "n", "false"},
		{"verbose", "v", "false"},
		{"log-file", "", ""},
		{"no-log-file", "", "false"},
		{"log-format", "", "text"},
		{"journal", "", ""},
		{"metrics-file", "", ""},
		{"report-file", "", ""},
		{"config", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := RootCmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("flag %q not found", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("flag %q shorthand = %q, want %q", tt.name, flag.Shorthand, tt.shorthand)
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("flag %q default = %q, want %q", tt.name, flag.DefValue, tt.defValue)
			}
			if flag.Usage == "" {
				t.Errorf("flag %q has no usage text", tt.name)
			}
		})
	}
}

func TestRun_DeletesExpiredFiles(t *testing.T) {
	tr := newTree(t)

	out, err := execute(t, "--no-log-file", tr.root)
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, out)
	}

	if exists(tr.old) {
		t.Error("expired file should have been deleted")
	}
	if !exists(tr.fresh) {
		t.Error("fresh file should have been kept")
	}
	if !exists(filepath.Join(tr.root, resolver.MarkerName)) {
		t.Error("marker must never be deleted")
	}
	for _, want := range []string{"deleted", "Directories scanned: 1", "Markers found: 1", "Files deleted: 1", "Errors: 0"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRun_DryRunDeletesNothing(t *testing.T) {
	tr := newTree(t)

	out, err := execute(t, "--no-log-file", "-n", tr.root)
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, out)
	}
	if !exists(tr.old) {
		t.Error("dry run must not delete")
	}
	for _, want := range []string{"DRY RUN", "Summary (dry run)", "Files that would be deleted: 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRun_WritesLogFile(t *testing.T) {
	tr := newTree(t)
	logFile := filepath.Join(t.TempDir(), "delete_after.log")

	if _, err := execute(t, "--log-file", logFile, tr.root); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), tr.old) || !strings.Contains(string(data), "scan completed") {
		t.Errorf("log file missing entries:\n%s", data)
	}
}

func TestRun_Artifacts(t *testing.T) {
	tr := newTree(t)
	dir := t.TempDir()
	journal := filepath.Join(dir, "state", "journal.db")
	metricsFile := filepath.Join(dir, "delete_after.prom")
	reportFile := filepath.Join(dir, "report.yaml")

	out, err := execute(t, "--no-log-file",
		"--journal", journal,
		"--metrics-file", metricsFile,
		"--report-file", reportFile,
		tr.root)
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, out)
	}

	for _, path := range []string{journal, metricsFile, reportFile} {
		if !exists(path) {
			t.Errorf("expected %s to be written", path)
		}
	}

	report, _ := os.ReadFile(reportFile)
	if !strings.Contains(string(report), tr.old) {
		t.Errorf("report should list the deleted file:\n%s", report)
	}
	metrics, _ := os.ReadFile(metricsFile)
	if !strings.Contains(string(metrics), `delete_after_files{decision="deleted"} 1`) {
		t.Errorf("metrics missing deleted count:\n%s", metrics)
	}

	out, err = execute(t, "history", "--journal", journal)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if strings.Contains(out, "No runs recorded") || !strings.Contains(out, "live") {
		t.Errorf("history should list the live run:\n%s", out)
	}
}

func TestRun_ErrorsFailTheCommand(t *testing.T) {
	tr := newTree(t)
	missing := filepath.Join(tr.root, "does-not-exist")

	out, err := execute(t, "--no-log-file", missing, tr.root)
	if !errors.Is(err, ErrRunErrors) {
		t.Fatalf("expected ErrRunErrors, got %v", err)
	}
	if exists(tr.old) {
		t.Error("a missing root must not stop the other roots")
	}
	if !strings.Contains(out, "Errors: 1") {
		t.Errorf("summary should count the missing root:\n%s", out)
	}
}

func TestRun_RequiresRoots(t *testing.T) {
	_, err := execute(t, "--no-log-file")
	if err == nil || !strings.Contains(err.Error(), "no roots") {
		t.Errorf("expected a missing roots error, got %v", err)
	}
}

func TestRun_ArtifactFailureIsReported(t *testing.T) {
	tr := newTree(t)
	bad := filepath.Join(t.TempDir(), "missing-dir", "metrics.prom")

	_, err := execute(t, "--no-log-file", "--metrics-file", bad, tr.root)
	if err == nil || !strings.Contains(err.Error(), "metrics") {
		t.Errorf("expected a metrics error, got %v", err)
	}
	if errors.Is(err, ErrRunErrors) {
		t.Error("an output failure is not a run error")
	}
}
