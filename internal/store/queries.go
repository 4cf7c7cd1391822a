package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/blackwell-systems/delete-after/internal/expiry"
	"github.com/blackwell-systems/delete-after/internal/report"
)

// timeLayout is fixed-width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// RecordRun writes the run summary and its deletion and error events in one
// transaction.
func (s *Store) RecordRun(rep *report.Report, roots []string) error {
	sum := rep.Summarize()

	rootsJSON, err := json.Marshal(roots)
	if err != nil {
		return fmt.Errorf("failed to marshal roots: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs
		(id, started_at, finished_at, dry_run, interrupted, roots, scanned, deleted, kept,
		 skipped_no_rule, skipped, errors, directories, markers, bytes_freed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		sum.RunID,
		sum.StartedAt.UTC().Format(timeLayout),
		sum.FinishedAt.UTC().Format(timeLayout),
		sum.DryRun,
		sum.Interrupted,
		string(rootsJSON),
		sum.Scanned,
		sum.Deleted,
		sum.Kept,
		sum.SkippedNoRule,
		sum.Skipped,
		sum.Errors,
		sum.Directories,
		sum.Markers,
		sum.BytesFreed,
	)
	if err != nil {
		return wrapQueryErr(err, "failed to insert run %s", sum.RunID)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO run_events (run_id, path, decision, reason, age_seconds, limit_seconds, simulated)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return wrapQueryErr(err, "failed to prepare event insert")
	}
	defer stmt.Close()

	for _, o := range rep.Outcomes() {
		if o.Decision != expiry.Deleted && o.Decision != expiry.Errored {
			continue
		}
		var limit int64
		if o.Candidate.Spec != nil {
			limit = o.Candidate.Spec.Seconds()
		}
		if _, err := stmt.Exec(
			sum.RunID,
			o.Candidate.Path,
			o.Decision.String(),
			o.Reason,
			int64(o.Age.Seconds()),
			limit,
			o.Simulated,
		); err != nil {
			return fmt.Errorf("failed to insert event for %s: %w", o.Candidate.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", sum.RunID, err)
	}
	return nil
}

const runColumns = `id, started_at, finished_at, dry_run, interrupted, roots, scanned, deleted, kept,
	skipped_no_rule, skipped, errors, directories, markers, bytes_freed`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var startedAt, finishedAt, rootsJSON string

	err := row.Scan(
		&run.ID,
		&startedAt,
		&finishedAt,
		&run.DryRun,
		&run.Interrupted,
		&rootsJSON,
		&run.Scanned,
		&run.Deleted,
		&run.Kept,
		&run.SkippedNoRule,
		&run.Skipped,
		&run.Errors,
		&run.Directories,
		&run.Markers,
		&run.BytesFreed,
	)
	if err != nil {
		return nil, err
	}

	if run.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
		return nil, fmt.Errorf("failed to parse started_at for %s: %w", run.ID, err)
	}
	if run.FinishedAt, err = time.Parse(timeLayout, finishedAt); err != nil {
		return nil, fmt.Errorf("failed to parse finished_at for %s: %w", run.ID, err)
	}
	if err := json.Unmarshal([]byte(rootsJSON), &run.Roots); err != nil {
		return nil, fmt.Errorf("failed to unmarshal roots for %s: %w", run.ID, err)
	}

	return &run, nil
}

// ListRuns returns the most recent runs, newest first. limit <= 0 means all.
func (s *Store) ListRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.Query(`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, wrapQueryErr(err, "failed to list runs")
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(id string) (*Run, error) {
	run, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, wrapQueryErr(err, "failed to get run %s", id)
	}
	return run, nil
}

// ListEvents returns the journaled events of a run in recording order.
func (s *Store) ListEvents(runID string) ([]*Event, error) {
	rows, err := s.db.Query(`
		SELECT run_id, path, decision, reason, age_seconds, limit_seconds, simulated
		FROM run_events
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, wrapQueryErr(err, "failed to list events for %s", runID)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var e Event
		var reason sql.NullString
		if err := rows.Scan(&e.RunID, &e.Path, &e.Decision, &reason, &e.AgeSeconds, &e.LimitSeconds, &e.Simulated); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		e.Reason = reason.String
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

// PruneRuns deletes runs (and their events) started before cutoff and
// returns how many were removed.
func (s *Store) PruneRuns(cutoff time.Time) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM runs WHERE started_at < ?`, cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, wrapQueryErr(err, "failed to prune runs")
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
