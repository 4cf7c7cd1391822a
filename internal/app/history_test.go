package app

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/blackwell-systems/delete-after/internal/report"
	"github.com/blackwell-systems/delete-after/internal/store"
)

func seedJournal(t *testing.T, path string, started time.Time, id string) {
	t.Helper()
	if err := recordJournal(path, finishedReport(id, started), []string{"/srv/tmp"}); err != nil {
		t.Fatalf("recordJournal: %v", err)
	}
}

func finishedReport(id string, started time.Time) *report.Report {
	rep := report.New(id, false, started)
	rep.Finish(started.Add(time.Second))
	return rep
}

func TestHistoryCommand(t *testing.T) {
	cmd := newHistoryCmd()
	if cmd.Use != "history [RUN_ID]" {
		t.Errorf("Use = %q", cmd.Use)
	}
	for _, name := range []string{"journal", "config", "limit", "prune"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("flag %q not found", name)
		}
	}
}

func TestHistory_ListAndShow(t *testing.T) {
	journal := filepath.Join(t.TempDir(), "journal.db")
	now := time.Now()
	seedJournal(t, journal, now.Add(-2*time.Hour), "run-old")
	seedJournal(t, journal, now.Add(-time.Hour), "run-new")

	out, err := execute(t, "history", "--journal", journal)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(out, "run-old") || !strings.Contains(out, "run-new") {
		t.Errorf("history should list both runs:\n%s", out)
	}
	if strings.Index(out, "run-new") > strings.Index(out, "run-old") {
		t.Error("runs should be listed newest first")
	}

	out, err = execute(t, "history", "--journal", journal, "--limit", "1")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if strings.Contains(out, "run-old") {
		t.Errorf("--limit 1 should only show the newest run:\n%s", out)
	}

	out, err = execute(t, "history", "--journal", journal, "run-old")
	if err != nil {
		t.Fatalf("history run-old failed: %v", err)
	}
	if !strings.Contains(out, "run-old") || !strings.Contains(out, "No deletions or errors") {
		t.Errorf("unexpected run detail:\n%s", out)
	}

	if _, err := execute(t, "history", "--journal", journal, "run-missing"); err == nil {
		t.Error("unknown run id should be an error")
	}
}

func TestHistory_Prune(t *testing.T) {
	journal := filepath.Join(t.TempDir(), "journal.db")
	now := time.Now()
	seedJournal(t, journal, now.Add(-100*24*time.Hour), "run-ancient")
	seedJournal(t, journal, now.Add(-time.Hour), "run-recent")

	out, err := execute(t, "history", "--journal", journal, "--prune", "90 days")
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if !strings.Contains(out, "Pruned 1 runs") {
		t.Errorf("unexpected prune output: %q", out)
	}

	st, err := store.New(journal)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	defer st.Close()
	runs, err := st.ListRuns(0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "run-recent" {
		t.Errorf("expected only run-recent to remain, got %d runs", len(runs))
	}

	if _, err := execute(t, "history", "--journal", journal, "--prune", "soon"); err == nil {
		t.Error("an invalid prune age should be an error")
	}
}

func TestHistory_MissingJournal(t *testing.T) {
	_, err := execute(t, "history", "--journal", filepath.Join(t.TempDir(), "none.db"))
	if err == nil || !strings.Contains(err.Error(), "no journal") {
		t.Errorf("expected a missing journal error, got %v", err)
	}
}
