// Package storage defines the worker's job run ledger.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates no run matched the query.
var ErrNotFound = errors.New("record not found")

// Run outcomes.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// RunRecord is one durable job execution.
type RunRecord struct {
	ID         int64
	Job        string
	Outcome    string
	Processed  int
	Notified   int
	Skipped    int
	LastError  string
	StartedAt  time.Time
	FinishedAt time.Time
}

// RunStore persists job runs.
type RunStore interface {
	RecordRun(ctx context.Context, run RunRecord) error
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
	// LastSuccess returns the newest succeeded run of job.
	LastSuccess(ctx context.Context, job string) (RunRecord, error)
}
