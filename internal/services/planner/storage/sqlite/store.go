// Package sqlite implements planner storage on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/doosr/doosr/internal/platform/storage/sqlitemigrate"
	"github.com/doosr/doosr/internal/services/planner/storage"
	"github.com/doosr/doosr/internal/services/planner/storage/sqlite/migrations"
)

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store provides SQLite-backed persistence for planner state.
type Store struct {
	sqlDB *sql.DB
	q     queryer
	inTx  bool
}

var _ storage.Store = (*Store)(nil)

// Open opens a planner SQLite store at path, applying migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	sqlDB, err := sqlitemigrate.Open(ctx, path, migrations.FS)
	if err != nil {
		return nil, err
	}
	return &Store{sqlDB: sqlDB, q: sqlDB}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil || s.inTx {
		return nil
	}
	return s.sqlDB.Close()
}

// WithinTx runs fn inside one transaction. Nested calls reuse the outer
// transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx storage.Store) error) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if s.inTx {
		return fn(ctx, s)
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin planner tx: %w", err)
	}
	if err := fn(ctx, &Store{sqlDB: s.sqlDB, q: tx, inTx: true}); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback planner tx: %v", err, rollbackErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit planner tx: %w", err)
	}
	return nil
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil || s.q == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

func toMillis(value time.Time) int64 {
	return sqlitemigrate.ToMillis(value)
}

func fromMillis(value int64) time.Time {
	return sqlitemigrate.FromMillis(value)
}

func requireIDs(userID, recordID, what string) (string, string, error) {
	userID = strings.TrimSpace(userID)
	recordID = strings.TrimSpace(recordID)
	if userID == "" {
		return "", "", fmt.Errorf("user id is required")
	}
	if recordID == "" {
		return "", "", fmt.Errorf("%s id is required", what)
	}
	return userID, recordID, nil
}

// inClause returns "?, ?, ?" for the de-duplicated non-blank ids and the
// matching args, prefixed by leading.
func inClause(ids []string, leading ...any) (string, []any, int) {
	seen := make(map[string]struct{}, len(ids))
	args := append([]any(nil), leading...)
	marks := make([]string, 0, len(ids))
	for _, raw := range ids {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		marks = append(marks, "?")
		args = append(args, value)
	}
	return strings.Join(marks, ", "), args, len(marks)
}

func affectedOrNotFound(result sql.Result, what string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", what, err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
