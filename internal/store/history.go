package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"showkeeper/internal/actions"
)

// ScanRecord summarises one scan and the run that followed it.
type ScanRecord struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Shows      int
	Missing    int
	Duplicates int
	Proposed   int
	Residual   int
	Cancelled  bool
}

// FailedAction is an action a run could not complete.
type FailedAction struct {
	ID         int64
	ScanID     string
	Key        string
	Kind       string
	Name       string
	Produces   string
	Error      string
	RecordedAt time.Time
}

// BeginScan records the start of a scan.
func (s *Store) BeginScan(ctx context.Context, id string, started time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scans (id, started_at) VALUES (?, ?)`,
		id, formatTime(started),
	)
	if err != nil {
		return fmt.Errorf("insert scan: %w", err)
	}
	return nil
}

// FinishScan stores the scan's totals.
func (s *Store) FinishScan(ctx context.Context, rec ScanRecord) error {
	finished := rec.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE scans
         SET finished_at = ?, shows = ?, missing = ?, duplicates = ?,
             proposed = ?, residual = ?, cancelled = ?
         WHERE id = ?`,
		formatTime(finished), rec.Shows, rec.Missing, rec.Duplicates,
		rec.Proposed, rec.Residual, boolToInt(rec.Cancelled), rec.ID,
	)
	if err != nil {
		return fmt.Errorf("update scan: %w", err)
	}
	return nil
}

// RecordFailures stores the residual actions of a run.
func (s *Store) RecordFailures(ctx context.Context, scanID string, residual []actions.Action) error {
	if len(residual) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin failures tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := formatTime(time.Now())
	for _, a := range residual {
		message := a.Status().Message()
		if message == "" && !a.Status().Done() {
			message = "not run"
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO failed_actions (scan_id, action_key, kind, name, produces, error_message, recorded_at)
             VALUES (?, ?, ?, ?, ?, ?, ?)`,
			scanID, a.Key(), a.Kind().String(), a.Name(), a.Produces(), nullableString(message), now,
		); err != nil {
			return fmt.Errorf("insert failure: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit failures: %w", err)
	}
	return nil
}

// LastScan returns the most recent scan, or nil when none was recorded.
func (s *Store) LastScan(ctx context.Context) (*ScanRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, shows, missing, duplicates, proposed, residual, cancelled
         FROM scans ORDER BY started_at DESC LIMIT 1`)
	var (
		rec       ScanRecord
		started   sql.NullString
		finished  sql.NullString
		cancelled int
	)
	err := row.Scan(&rec.ID, &started, &finished, &rec.Shows, &rec.Missing, &rec.Duplicates,
		&rec.Proposed, &rec.Residual, &cancelled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last scan: %w", err)
	}
	rec.StartedAt = parseTime(started)
	rec.FinishedAt = parseTime(finished)
	rec.Cancelled = cancelled != 0
	return &rec, nil
}

// Failures returns the failed actions of one scan in recorded order.
func (s *Store) Failures(ctx context.Context, scanID string) ([]FailedAction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, scan_id, action_key, kind, name, produces, error_message, recorded_at
         FROM failed_actions WHERE scan_id = ? ORDER BY id`, scanID)
	if err != nil {
		return nil, fmt.Errorf("list failures: %w", err)
	}
	defer rows.Close()

	var out []FailedAction
	for rows.Next() {
		var (
			f        FailedAction
			message  sql.NullString
			recorded sql.NullString
		)
		if err := rows.Scan(&f.ID, &f.ScanID, &f.Key, &f.Kind, &f.Name, &f.Produces, &message, &recorded); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		f.Error = message.String
		f.RecordedAt = parseTime(recorded)
		out = append(out, f)
	}
	return out, rows.Err()
}

// PruneScans deletes scans older than cutoff along with their failures.
func (s *Store) PruneScans(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin prune tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cut := formatTime(cutoff)
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM failed_actions WHERE scan_id IN (SELECT id FROM scans WHERE started_at < ?)`, cut,
	); err != nil {
		return 0, fmt.Errorf("prune failures: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM scans WHERE started_at < ?`, cut)
	if err != nil {
		return 0, fmt.Errorf("prune scans: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit prune: %w", err)
	}
	return n, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
