// Package sqlite implements journal storage on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/doosr/doosr/internal/platform/storage/sqlitemigrate"
	"github.com/doosr/doosr/internal/services/journal/storage"
	"github.com/doosr/doosr/internal/services/journal/storage/sqlite/migrations"
)

const (
	journalColumns  = `id, user_id, title, encrypted, descendant_id, created_at, updated_at`
	promptColumns   = `id, user_id, text, active, created_at, updated_at`
	fragmentColumns = `id, user_id, journal_id, prompt_id, content, ciphertext, encrypted, created_at, updated_at`
)

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store provides SQLite-backed persistence for journals.
type Store struct {
	sqlDB *sql.DB
	q     queryer
	inTx  bool
}

var _ storage.Store = (*Store)(nil)

// Open opens a journal SQLite store at path, applying migrations.
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
		return fmt.Errorf("begin journal tx: %w", err)
	}
	if err := fn(ctx, &Store{sqlDB: s.sqlDB, q: tx, inTx: true}); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback journal tx: %v", err, rollbackErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit journal tx: %w", err)
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

// GetJournal loads one journal.
func (s *Store) GetJournal(ctx context.Context, userID, journalID string) (storage.JournalRecord, error) {
	found, err := s.GetJournals(ctx, userID, []string{journalID})
	if err != nil {
		return storage.JournalRecord{}, err
	}
	record, ok := found[strings.TrimSpace(journalID)]
	if !ok {
		return storage.JournalRecord{}, storage.ErrNotFound
	}
	return record, nil
}

// GetJournals batch-loads journals keyed by id.
func (s *Store) GetJournals(ctx context.Context, userID string, journalIDs []string) (map[string]storage.JournalRecord, error) {
	out := map[string]storage.JournalRecord{}
	err := s.batch(ctx, "journals", journalColumns, userID, journalIDs, func(scan func(...any) error) error {
		record, err := scanJournal(scan)
		if err == nil {
			out[record.ID] = record
		}
		return err
	})
	return out, err
}

// PutJournal inserts or updates a journal.
func (s *Store) PutJournal(ctx context.Context, journal storage.JournalRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(journal.ID) == "" || strings.TrimSpace(journal.UserID) == "" {
		return fmt.Errorf("journal id and user id are required")
	}
	_, err := s.q.ExecContext(ctx, `
INSERT INTO journals (`+journalColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    title = excluded.title,
    updated_at = excluded.updated_at
WHERE journals.user_id = excluded.user_id
`, journal.ID, journal.UserID, journal.Title, journal.Encrypted, journal.DescendantID,
		sqlitemigrate.ToMillis(journal.CreatedAt), sqlitemigrate.ToMillis(journal.UpdatedAt))
	if err != nil {
		return fmt.Errorf("put journal: %w", err)
	}
	return nil
}

// DeleteJournal removes a journal; its fragments cascade.
func (s *Store) DeleteJournal(ctx context.Context, userID, journalID string) error {
	return s.delete(ctx, "journals", userID, journalID)
}

// ListJournals lists a user's journals oldest first.
func (s *Store) ListJournals(ctx context.Context, userID string) ([]storage.JournalRecord, error) {
	var out []storage.JournalRecord
	err := s.list(ctx, `SELECT `+journalColumns+` FROM journals WHERE user_id = ? ORDER BY created_at ASC, id ASC`,
		[]any{strings.TrimSpace(userID)}, func(scan func(...any) error) error {
			record, err := scanJournal(scan)
			if err == nil {
				out = append(out, record)
			}
			return err
		})
	return out, err
}

// GetPrompt loads one prompt.
func (s *Store) GetPrompt(ctx context.Context, userID, promptID string) (storage.PromptRecord, error) {
	found, err := s.GetPrompts(ctx, userID, []string{promptID})
	if err != nil {
		return storage.PromptRecord{}, err
	}
	record, ok := found[strings.TrimSpace(promptID)]
	if !ok {
		return storage.PromptRecord{}, storage.ErrNotFound
	}
	return record, nil
}

// GetPrompts batch-loads prompts keyed by id.
func (s *Store) GetPrompts(ctx context.Context, userID string, promptIDs []string) (map[string]storage.PromptRecord, error) {
	out := map[string]storage.PromptRecord{}
	err := s.batch(ctx, "prompts", promptColumns, userID, promptIDs, func(scan func(...any) error) error {
		record, err := scanPrompt(scan)
		if err == nil {
			out[record.ID] = record
		}
		return err
	})
	return out, err
}

// PutPrompt inserts or updates a prompt.
func (s *Store) PutPrompt(ctx context.Context, prompt storage.PromptRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(prompt.ID) == "" || strings.TrimSpace(prompt.UserID) == "" {
		return fmt.Errorf("prompt id and user id are required")
	}
	_, err := s.q.ExecContext(ctx, `
INSERT INTO prompts (`+promptColumns+`)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    text = excluded.text,
    active = excluded.active,
    updated_at = excluded.updated_at
WHERE prompts.user_id = excluded.user_id
`, prompt.ID, prompt.UserID, prompt.Text, prompt.Active,
		sqlitemigrate.ToMillis(prompt.CreatedAt), sqlitemigrate.ToMillis(prompt.UpdatedAt))
	if err != nil {
		return fmt.Errorf("put prompt: %w", err)
	}
	return nil
}

// ListPrompts lists a user's prompts oldest first.
func (s *Store) ListPrompts(ctx context.Context, userID string, activeOnly bool) ([]storage.PromptRecord, error) {
	query := `SELECT ` + promptColumns + ` FROM prompts WHERE user_id = ?`
	if activeOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY created_at ASC, id ASC`
	var out []storage.PromptRecord
	err := s.list(ctx, query, []any{strings.TrimSpace(userID)}, func(scan func(...any) error) error {
		record, err := scanPrompt(scan)
		if err == nil {
			out = append(out, record)
		}
		return err
	})
	return out, err
}

// GetFragments batch-loads fragments keyed by id.
func (s *Store) GetFragments(ctx context.Context, userID string, fragmentIDs []string) (map[string]storage.FragmentRecord, error) {
	out := map[string]storage.FragmentRecord{}
	err := s.batch(ctx, "fragments", fragmentColumns, userID, fragmentIDs, func(scan func(...any) error) error {
		record, err := scanFragment(scan)
		if err == nil {
			out[record.ID] = record
		}
		return err
	})
	return out, err
}

// PutFragment inserts or updates a fragment.
func (s *Store) PutFragment(ctx context.Context, fragment storage.FragmentRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(fragment.ID) == "" || strings.TrimSpace(fragment.UserID) == "" || strings.TrimSpace(fragment.JournalID) == "" {
		return fmt.Errorf("fragment id, user id and journal id are required")
	}
	_, err := s.q.ExecContext(ctx, `
INSERT INTO fragments (`+fragmentColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    content = excluded.content,
    ciphertext = excluded.ciphertext,
    encrypted = excluded.encrypted,
    updated_at = excluded.updated_at
WHERE fragments.user_id = excluded.user_id
`, fragment.ID, fragment.UserID, fragment.JournalID, fragment.PromptID, fragment.Content, fragment.Ciphertext,
		fragment.Encrypted, sqlitemigrate.ToMillis(fragment.CreatedAt), sqlitemigrate.ToMillis(fragment.UpdatedAt))
	if err != nil {
		if sqlitemigrate.IsForeignKeyViolation(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("put fragment: %w", err)
	}
	return nil
}

// DeleteFragment removes one fragment.
func (s *Store) DeleteFragment(ctx context.Context, userID, fragmentID string) error {
	return s.delete(ctx, "fragments", userID, fragmentID)
}

// ListFragments lists a journal's fragments oldest first.
func (s *Store) ListFragments(ctx context.Context, userID, journalID string) ([]storage.FragmentRecord, error) {
	return s.listFragments(ctx, `user_id = ? AND journal_id = ?`, strings.TrimSpace(userID), strings.TrimSpace(journalID))
}

// ListEncryptedFragments lists every sealed fragment of a user.
func (s *Store) ListEncryptedFragments(ctx context.Context, userID string) ([]storage.FragmentRecord, error) {
	return s.listFragments(ctx, `user_id = ? AND encrypted = 1`, strings.TrimSpace(userID))
}

func (s *Store) listFragments(ctx context.Context, where string, args ...any) ([]storage.FragmentRecord, error) {
	var out []storage.FragmentRecord
	err := s.list(ctx, `SELECT `+fragmentColumns+` FROM fragments WHERE `+where+` ORDER BY created_at ASC, id ASC`, args,
		func(scan func(...any) error) error {
			record, err := scanFragment(scan)
			if err == nil {
				out = append(out, record)
			}
			return err
		})
	return out, err
}

// GetKeyMaterial loads a user's key material.
func (s *Store) GetKeyMaterial(ctx context.Context, userID string) (storage.KeyMaterial, error) {
	if err := s.ready(ctx); err != nil {
		return storage.KeyMaterial{}, err
	}
	var (
		material  storage.KeyMaterial
		createdAt int64
		updatedAt int64
	)
	err := s.q.QueryRowContext(ctx, `
SELECT user_id, salt, iterations, verifier, created_at, updated_at
FROM key_material WHERE user_id = ?
`, strings.TrimSpace(userID)).Scan(&material.UserID, &material.Salt, &material.Iterations, &material.Verifier, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.KeyMaterial{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.KeyMaterial{}, fmt.Errorf("get key material: %w", err)
	}
	material.CreatedAt = sqlitemigrate.FromMillis(createdAt)
	material.UpdatedAt = sqlitemigrate.FromMillis(updatedAt)
	return material, nil
}

// PutKeyMaterial inserts or replaces a user's key material.
func (s *Store) PutKeyMaterial(ctx context.Context, material storage.KeyMaterial) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(material.UserID) == "" || len(material.Salt) == 0 || material.Verifier == "" {
		return fmt.Errorf("key material user, salt and verifier are required")
	}
	_, err := s.q.ExecContext(ctx, `
INSERT INTO key_material (user_id, salt, iterations, verifier, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
    salt = excluded.salt,
    iterations = excluded.iterations,
    verifier = excluded.verifier,
    updated_at = excluded.updated_at
`, material.UserID, material.Salt, material.Iterations, material.Verifier,
		sqlitemigrate.ToMillis(material.CreatedAt), sqlitemigrate.ToMillis(material.UpdatedAt))
	if err != nil {
		return fmt.Errorf("put key material: %w", err)
	}
	return nil
}

func (s *Store) delete(ctx context.Context, table, userID, id string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	userID, id = strings.TrimSpace(userID), strings.TrimSpace(id)
	if userID == "" || id == "" {
		return fmt.Errorf("user id and %s id are required", strings.TrimSuffix(table, "s"))
	}
	result, err := s.q.ExecContext(ctx, `DELETE FROM `+table+` WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) batch(ctx context.Context, table, columns, userID string, ids []string, each func(scan func(...any) error) error) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	marks, args, n := inClause(ids, userID)
	if n == 0 {
		return s.ready(ctx)
	}
	return s.list(ctx, `SELECT `+columns+` FROM `+table+` WHERE user_id = ? AND id IN (`+marks+`)`, args, each)
}

func (s *Store) list(ctx context.Context, query string, args []any, each func(scan func(...any) error) error) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query journal store: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		if err := each(rows.Scan); err != nil {
			return fmt.Errorf("scan journal row: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate journal rows: %w", err)
	}
	return nil
}

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

func scanJournal(scan func(...any) error) (storage.JournalRecord, error) {
	var (
		record    storage.JournalRecord
		createdAt int64
		updatedAt int64
	)
	if err := scan(&record.ID, &record.UserID, &record.Title, &record.Encrypted, &record.DescendantID, &createdAt, &updatedAt); err != nil {
		return storage.JournalRecord{}, err
	}
	record.CreatedAt = sqlitemigrate.FromMillis(createdAt)
	record.UpdatedAt = sqlitemigrate.FromMillis(updatedAt)
	return record, nil
}

func scanPrompt(scan func(...any) error) (storage.PromptRecord, error) {
	var (
		record    storage.PromptRecord
		createdAt int64
		updatedAt int64
	)
	if err := scan(&record.ID, &record.UserID, &record.Text, &record.Active, &createdAt, &updatedAt); err != nil {
		return storage.PromptRecord{}, err
	}
	record.CreatedAt = sqlitemigrate.FromMillis(createdAt)
	record.UpdatedAt = sqlitemigrate.FromMillis(updatedAt)
	return record, nil
}

func scanFragment(scan func(...any) error) (storage.FragmentRecord, error) {
	var (
		record    storage.FragmentRecord
		createdAt int64
		updatedAt int64
	)
	if err := scan(&record.ID, &record.UserID, &record.JournalID, &record.PromptID, &record.Content, &record.Ciphertext,
		&record.Encrypted, &createdAt, &updatedAt); err != nil {
		return storage.FragmentRecord{}, err
	}
	record.CreatedAt = sqlitemigrate.FromMillis(createdAt)
	record.UpdatedAt = sqlitemigrate.FromMillis(updatedAt)
	return record, nil
}
