package output

import (
	"strings"
	"testing"
	"time"

	"github.com/blackwell-systems/delete-after/internal/duration"
	"github.com/blackwell-systems/delete-after/internal/expiry"
	"github.com/blackwell-systems/delete-after/internal/report"
	"github.com/blackwell-systems/delete-after/internal/resolver"
	"github.com/blackwell-systems/delete-after/internal/store"
)

func assertContains(t *testing.T, result string, want ...string) {
	t.Helper()
	for _, s := range want {
		if !strings.Contains(result, s) {
			t.Errorf("expected result to contain %q, got:\n%s", s, result)
		}
	}
}

func TestRenderSummary(t *testing.T) {
	tests := []struct {
		name     string
		summary  report.Summary
		contains []string
		excludes []string
	}{
		{
			name: "single root live run",
			summary: report.Summary{
				Counts: report.Counts{Scanned: 4, Deleted: 2, Kept: 1, SkippedNoRule: 1, Directories: 3, Markers: 2, BytesFreed: 2048},
				Roots: []report.RootSummary{
					{Root: "/srv/tmp", Counts: report.Counts{Scanned: 4, Deleted: 2, Kept: 1, SkippedNoRule: 1, BytesFreed: 2048}},
				},
			},
			contains: []string{"Summary", "/srv/tmp", "Deleted", "2.0 KiB",
				"Directories scanned: 3", "Markers found: 2", "Files deleted: 2", "Errors: 0"},
			excludes: []string{"Total", "dry run"},
		},
		{
			name: "dry run with several roots",
			summary: report.Summary{
				DryRun: true,
				Counts: report.Counts{Scanned: 3, Deleted: 3, Errors: 1, Markers: 2, MarkerErrors: 1},
				Roots: []report.RootSummary{
					{Root: "/a", Counts: report.Counts{Scanned: 1, Deleted: 1}},
					{Root: "/b", Counts: report.Counts{Scanned: 2, Deleted: 2, Errors: 1}},
				},
			},
			contains: []string{"Summary (dry run)", "Would del", "Total",
				"Markers found: 2 (1 invalid)", "Files that would be deleted: 3", "Errors: 1"},
		},
		{
			name:     "interrupted",
			summary:  report.Summary{Interrupted: true},
			contains: []string{"interrupted"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RenderSummary(tt.summary)
			assertContains(t, result, tt.contains...)
			for _, s := range tt.excludes {
				if strings.Contains(result, s) {
					t.Errorf("expected result not to contain %q, got:\n%s", s, result)
				}
			}
		})
	}
}

func TestRenderRunsTable(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if got := RenderRunsTable(nil, now); !strings.Contains(got, "No runs recorded") {
		t.Errorf("empty table = %q", got)
	}

	runs := []*store.Run{
		{ID: "run-2", StartedAt: now.Add(-2 * time.Hour), DryRun: true, Roots: []string{"/a"}, Scanned: 5, Deleted: 1},
		{ID: "run-1", StartedAt: now.Add(-72 * time.Hour), Interrupted: true, Roots: []string{"/a", "/b"}, Errors: 2, BytesFreed: 1 << 20},
	}
	result := RenderRunsTable(runs, now)
	assertContains(t, result, "run-2", "2 hours ago", "dry", "run-1", "3 days ago", "live*", "1.0 MiB", "/a,/b")

	if strings.Index(result, "run-2") > strings.Index(result, "run-1") {
		t.Error("runs should keep the given order")
	}
}

func TestRenderRunDetail(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	run := &store.Run{
		ID: "abc", StartedAt: start, FinishedAt: start.Add(1500 * time.Millisecond),
		Roots: []string{"/srv"}, Scanned: 3, Deleted: 1, Errors: 1, Directories: 2, Markers: 1,
	}
	events := []*store.Event{
		{Path: "/srv/old.log", Decision: "deleted", AgeSeconds: 864000, LimitSeconds: 432000},
		{Path: "/srv/locked", Decision: "error", Reason: "permission denied", Simulated: true},
	}

	result := RenderRunDetail(run, events)
	assertContains(t, result, "abc", "1.5s", "/srv", "3 scanned", "1 deleted", "2 directories",
		"/srv/old.log", "10.0d", "5.0d", "error?", "permission denied")
}

func TestRenderEventsTable_Empty(t *testing.T) {
	if got := RenderEventsTable(nil); !strings.Contains(got, "No deletions or errors") {
		t.Errorf("RenderEventsTable(nil) = %q", got)
	}
}

func TestRenderExplain(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	spec := duration.MustParse("5 days")

	withRule := expiry.Outcome{
		Candidate: resolver.Candidate{
			Root: "/srv", Path: "/srv/a/old.log", Kind: resolver.KindFile,
			ModTime: now.Add(-10 * 24 * time.Hour), Spec: &spec, MarkerDir: "/srv/a",
		},
		Decision:    expiry.Deleted,
		Reason:      "age 10.0 days reached limit 5 days",
		EvaluatedAt: now,
	}
	assertContains(t, RenderExplain(withRule),
		"/srv/a/old.log", "5 days (from /srv/a)", "deleted", "age 10.0 days", "ago")

	noRule := expiry.Outcome{
		Candidate:   resolver.Candidate{Root: "/srv", Path: "/srv/keep.txt", Kind: resolver.KindFile, ModTime: now},
		Decision:    expiry.SkippedNoRule,
		EvaluatedAt: now,
	}
	assertContains(t, RenderExplain(noRule), "Rule:", "none", "skipped-no-rule")
}

func TestRenderUnits(t *testing.T) {
	result := RenderUnits(duration.Aliases())
	assertContains(t, result, "minute", "60", "month", "2592000", "year", "31536000", "mo", "hr")

	lines := strings.Split(strings.TrimSpace(result), "\n")
	// header, rule, then one line per unit
	if len(lines) != 2+7 {
		t.Errorf("expected 7 unit lines, got %d:\n%s", len(lines)-2, result)
	}
}

func TestFormatSeconds(t *testing.T) {
	tests := []struct {
		secs int64
		want string
	}{
		{0, "-"},
		{45, "45s"},
		{90, "1.5m"},
		{5400, "1.5h"},
		{129600, "1.5d"},
	}
	for _, tt := range tests {
		if got := formatSeconds(tt.secs); got != tt.want {
			t.Errorf("formatSeconds(%d) = %q, want %q", tt.secs, got, tt.want)
		}
	}
}

func TestFormatRelativeTime(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"zero", time.Time{}, "never"},
		{"just now", now.Add(-10 * time.Second), "just now"},
		{"one minute", now.Add(-time.Minute), "1 minute ago"},
		{"hours", now.Add(-5 * time.Hour), "5 hours ago"},
		{"one day", now.Add(-25 * time.Hour), "1 day ago"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatRelativeTime(tt.t, now); got != tt.want {
				t.Errorf("formatRelativeTime() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdefgh", 6); got != "abc..." {
		t.Errorf("truncate() = %q", got)
	}
	if got := truncate("abc", 6); got != "abc" {
		t.Errorf("truncate() = %q", got)
	}
	if got := truncateLeft("/very/long/path/name", 10); got != "...th/name" {
		t.Errorf("truncateLeft() = %q", got)
	}
}
