// Package output renders run summaries, journal history and rule
// explanations for the terminal.
//
// Colour is applied only when stdout is a TTY and NO_COLOR is unset.
package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/delete-after/internal/duration"
	"github.com/blackwell-systems/delete-after/internal/expiry"
	"github.com/blackwell-systems/delete-after/internal/report"
	"github.com/blackwell-systems/delete-after/internal/store"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
	gray   = color.New(color.FgHiBlack)
	bold   = color.New(color.Bold)
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

func colorize(c *color.Color, text string) string {
	if IsColorEnabled() {
		return c.Sprint(text)
	}
	return text
}

// decisionColor maps a decision label to its display colour.
func decisionColor(decision string) *color.Color {
	switch decision {
	case expiry.Deleted.String():
		return red
	case expiry.Kept.String():
		return green
	case expiry.Errored.String():
		return yellow
	default:
		return gray
	}
}

const summaryRow = "%-32s %8s %8s %8s %8s %8s %7s %10s\n"

// RenderSummary renders the per-root table followed by the totals line.
func RenderSummary(s report.Summary) string {
	var sb strings.Builder

	title := "Summary"
	deletedHeader := "Deleted"
	if s.DryRun {
		title = "Summary (dry run)"
		deletedHeader = "Would del"
	}
	if s.Interrupted {
		title += " - interrupted"
	}
	sb.WriteString(colorize(bold, title))
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf(summaryRow,
		"Root", "Scanned", deletedHeader, "Kept", "No rule", "Skipped", "Errors", "Freed"))
	sb.WriteString(strings.Repeat("─", 97))
	sb.WriteString("\n")

	for _, r := range s.Roots {
		sb.WriteString(countsRow(truncateLeft(r.Root, 32), r.Counts))
	}
	if len(s.Roots) > 1 {
		sb.WriteString(strings.Repeat("─", 97))
		sb.WriteString("\n")
		sb.WriteString(countsRow("Total", s.Counts))
	}

	sb.WriteString("\n")
	sb.WriteString(RenderTotalsLine(s))
	sb.WriteString("\n")
	return sb.String()
}

func countsRow(label string, c report.Counts) string {
	return fmt.Sprintf(summaryRow,
		label,
		fmt.Sprint(c.Scanned),
		fmt.Sprint(c.Deleted),
		fmt.Sprint(c.Kept),
		fmt.Sprint(c.SkippedNoRule),
		fmt.Sprint(c.Skipped),
		fmt.Sprint(c.Errors),
		humanize.IBytes(uint64(c.BytesFreed)))
}

// RenderTotalsLine renders the one-line run summary.
// Format: "Directories scanned: 3 · Markers found: 2 · Files deleted: 5 · Errors: 0"
func RenderTotalsLine(s report.Summary) string {
	deleted := "Files deleted"
	if s.DryRun {
		deleted = "Files that would be deleted"
	}

	markers := fmt.Sprintf("Markers found: %d", s.Markers)
	if s.MarkerErrors > 0 {
		markers += fmt.Sprintf(" (%d invalid)", s.MarkerErrors)
	}

	errs := fmt.Sprintf("Errors: %d", s.Errors)
	if s.Errors > 0 {
		errs = colorize(yellow, errs)
	}

	return fmt.Sprintf("Directories scanned: %d · %s · %s: %d · %s",
		s.Directories, markers, deleted, s.Deleted, errs)
}

// RenderRunsTable renders journaled runs, newest first as given.
func RenderRunsTable(runs []*store.Run, now time.Time) string {
	if len(runs) == 0 {
		return "No runs recorded.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-36s %-16s %-5s %8s %8s %7s %10s  %s\n",
		"Run", "Started", "Mode", "Scanned", "Deleted", "Errors", "Freed", "Roots"))
	sb.WriteString(strings.Repeat("─", 110))
	sb.WriteString("\n")

	for _, r := range runs {
		mode := "live"
		if r.DryRun {
			mode = "dry"
		}
		if r.Interrupted {
			mode += "*"
		}
		sb.WriteString(fmt.Sprintf("%-36s %-16s %-5s %8d %8d %7d %10s  %s\n",
			r.ID,
			formatRelativeTime(r.StartedAt, now),
			mode,
			r.Scanned,
			r.Deleted,
			r.Errors,
			humanize.IBytes(uint64(r.BytesFreed)),
			truncate(strings.Join(r.Roots, ","), 40)))
	}
	return sb.String()
}

// RenderRunDetail renders one run and its journaled events.
func RenderRunDetail(r *store.Run, events []*store.Event) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-12s %s\n", "Run:", colorize(bold, r.ID)))
	sb.WriteString(fmt.Sprintf("%-12s %s\n", "Started:", r.StartedAt.Local().Format(time.DateTime)))
	sb.WriteString(fmt.Sprintf("%-12s %s\n", "Duration:", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond)))
	sb.WriteString(fmt.Sprintf("%-12s %t\n", "Dry run:", r.DryRun))
	if r.Interrupted {
		sb.WriteString(fmt.Sprintf("%-12s %s\n", "Status:", colorize(yellow, "interrupted")))
	}
	sb.WriteString(fmt.Sprintf("%-12s %s\n", "Roots:", strings.Join(r.Roots, ", ")))
	sb.WriteString(fmt.Sprintf("%-12s %d scanned, %d deleted, %d kept, %d without rule, %d skipped, %d errors\n",
		"Files:", r.Scanned, r.Deleted, r.Kept, r.SkippedNoRule, r.Skipped, r.Errors))
	sb.WriteString(fmt.Sprintf("%-12s %d directories, %d markers, %s freed\n",
		"Walk:", r.Directories, r.Markers, humanize.IBytes(uint64(r.BytesFreed))))

	sb.WriteString("\n")
	sb.WriteString(RenderEventsTable(events))
	return sb.String()
}

// RenderEventsTable renders journaled deletions and errors.
func RenderEventsTable(events []*store.Event) string {
	if len(events) == 0 {
		return "No deletions or errors recorded.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-9s %-10s %-12s %s\n", "Decision", "Age", "Limit", "Path"))
	sb.WriteString(strings.Repeat("─", 80))
	sb.WriteString("\n")

	for _, e := range events {
		label := e.Decision
		if e.Simulated {
			label += "?"
		}
		sb.WriteString(fmt.Sprintf("%s %-10s %-12s %s\n",
			colorize(decisionColor(e.Decision), fmt.Sprintf("%-9s", label)),
			formatSeconds(e.AgeSeconds),
			formatSeconds(e.LimitSeconds),
			e.Path))
		if e.Decision == expiry.Errored.String() && e.Reason != "" {
			sb.WriteString(fmt.Sprintf("%-9s %s\n", "", colorize(gray, e.Reason)))
		}
	}
	return sb.String()
}

// RenderExplain renders the decision a run would make for a single file.
func RenderExplain(o expiry.Outcome) string {
	var sb strings.Builder
	c := o.Candidate

	sb.WriteString(fmt.Sprintf("%-10s %s\n", "File:", colorize(bold, c.Path)))
	sb.WriteString(fmt.Sprintf("%-10s %s\n", "Root:", c.Root))
	if !c.ModTime.IsZero() {
		sb.WriteString(fmt.Sprintf("%-10s %s (%s)\n", "Modified:",
			c.ModTime.Local().Format(time.DateTime), humanize.RelTime(c.ModTime, o.EvaluatedAt, "ago", "from now")))
	}
	if c.HasRule() {
		sb.WriteString(fmt.Sprintf("%-10s %s (from %s)\n", "Rule:", c.Spec, c.MarkerDir))
	} else {
		sb.WriteString(fmt.Sprintf("%-10s %s\n", "Rule:", colorize(gray, "none")))
	}
	sb.WriteString(fmt.Sprintf("%-10s %s\n", "Decision:",
		colorize(decisionColor(o.Decision.String()), o.Decision.String())))
	if o.Reason != "" {
		sb.WriteString(fmt.Sprintf("%-10s %s\n", "Reason:", o.Reason))
	}
	return sb.String()
}

// RenderUnits renders the accepted unit tokens grouped by unit.
func RenderUnits(aliases []duration.Alias) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-8s %-12s %s\n", "Unit", "Seconds", "Tokens"))
	sb.WriteString(strings.Repeat("─", 60))
	sb.WriteString("\n")

	var (
		current duration.Unit
		tokens  []string
	)
	flush := func() {
		if current == 0 {
			return
		}
		sb.WriteString(fmt.Sprintf("%-8s %-12d %s\n", current, current.Seconds(), strings.Join(tokens, ", ")))
	}
	for _, a := range aliases {
		if a.Unit != current {
			flush()
			current = a.Unit
			tokens = nil
		}
		tokens = append(tokens, a.Token)
	}
	flush()
	return sb.String()
}

// formatSeconds renders a second count in the largest whole-ish unit.
func formatSeconds(secs int64) string {
	if secs <= 0 {
		return "-"
	}
	d := time.Duration(secs) * time.Second
	switch {
	case d >= 24*time.Hour:
		return fmt.Sprintf("%.1fd", d.Hours()/24)
	case d >= time.Hour:
		return fmt.Sprintf("%.1fh", d.Hours())
	case d >= time.Minute:
		return fmt.Sprintf("%.1fm", d.Minutes())
	default:
		return fmt.Sprintf("%ds", secs)
	}
}

// formatRelativeTime converts a timestamp to relative time (e.g., "2 days ago").
func formatRelativeTime(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}

	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute") + " ago"
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour") + " ago"
	case diff < 30*24*time.Hour:
		return plural(int(diff.Hours()/24), "day") + " ago"
	default:
		return t.Local().Format(time.DateOnly)
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// truncate truncates a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// truncateLeft keeps the tail of long paths, which is the informative end.
func truncateLeft(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[len(s)-maxLen:]
	}
	return "..." + s[len(s)-maxLen+3:]
}
