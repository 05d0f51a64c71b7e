// Package sqlite implements the worker run ledger on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doosr/doosr/internal/platform/storage/sqlitemigrate"
	"github.com/doosr/doosr/internal/services/worker/storage"
	"github.com/doosr/doosr/internal/services/worker/storage/sqlite/migrations"
)

const runColumns = `id, job, outcome, processed, notified, skipped, last_error, started_at, finished_at`

// Store provides SQLite-backed worker run persistence.
type Store struct {
	sqlDB *sql.DB
}

var _ storage.RunStore = (*Store)(nil)

// Open opens a worker SQLite store at path, applying migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	sqlDB, err := sqlitemigrate.Open(ctx, path, migrations.FS)
	if err != nil {
		return nil, err
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

// RecordRun persists one job run.
func (s *Store) RecordRun(ctx context.Context, run storage.RunRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	run.Job = strings.TrimSpace(run.Job)
	run.Outcome = strings.TrimSpace(run.Outcome)
	run.LastError = strings.TrimSpace(run.LastError)
	if run.Job == "" {
		return fmt.Errorf("job is required")
	}
	if run.Outcome == "" {
		return fmt.Errorf("outcome is required")
	}
	if run.StartedAt.IsZero() {
		return fmt.Errorf("start time is required")
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = run.StartedAt
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO job_runs (job, outcome, processed, notified, skipped, last_error, started_at, finished_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`,
		run.Job,
		run.Outcome,
		run.Processed,
		run.Notified,
		run.Skipped,
		run.LastError,
		run.StartedAt.UTC().UnixMilli(),
		run.FinishedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// ListRuns lists newest-first run records.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]storage.RunRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+runColumns+`
FROM job_runs
ORDER BY started_at DESC, id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	records := make([]storage.RunRecord, 0, limit)
	for rows.Next() {
		record, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return records, nil
}

// LastSuccess returns the newest succeeded run of job.
func (s *Store) LastSuccess(ctx context.Context, job string) (storage.RunRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.RunRecord{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+runColumns+`
FROM job_runs
WHERE job = ? AND outcome = ?
ORDER BY started_at DESC, id DESC
LIMIT 1
`, strings.TrimSpace(job), storage.OutcomeSucceeded)
	record, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.RunRecord{}, storage.ErrNotFound
	}
	return record, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (storage.RunRecord, error) {
	var (
		record     storage.RunRecord
		startedAt  int64
		finishedAt int64
	)
	if err := row.Scan(
		&record.ID,
		&record.Job,
		&record.Outcome,
		&record.Processed,
		&record.Notified,
		&record.Skipped,
		&record.LastError,
		&startedAt,
		&finishedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.RunRecord{}, err
		}
		return storage.RunRecord{}, fmt.Errorf("scan run: %w", err)
	}
	record.StartedAt = time.UnixMilli(startedAt).UTC()
	record.FinishedAt = time.UnixMilli(finishedAt).UTC()
	return record, nil
}
