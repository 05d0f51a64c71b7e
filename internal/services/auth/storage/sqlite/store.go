// Package sqlite implements auth storage on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doosr/doosr/internal/platform/storage/sqlitemigrate"
	"github.com/doosr/doosr/internal/services/auth/storage"
	"github.com/doosr/doosr/internal/services/auth/storage/sqlite/migrations"
)

const (
	userColumns    = `id, email, display_name, password_hash, locale, time_zone, created_at, updated_at`
	sessionColumns = `id, user_id, user_agent, created_at, expires_at, revoked_at`
)

// Store implements auth persistence over SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ storage.Store = (*Store)(nil)

// Open opens an auth SQLite store at path, applying migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	sqlDB, err := sqlitemigrate.Open(ctx, path, migrations.FS)
	if err != nil {
		return nil, err
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the underlying SQLite database.
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

// PutUser inserts a user record.
func (s *Store) PutUser(ctx context.Context, u storage.UserRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(u.ID) == "" {
		return fmt.Errorf("user id is required")
	}
	if strings.TrimSpace(u.Email) == "" {
		return fmt.Errorf("email is required")
	}
	if u.PasswordHash == "" {
		return fmt.Errorf("password hash is required")
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO users (`+userColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, u.ID, u.Email, u.DisplayName, u.PasswordHash, u.Locale, u.TimeZone,
		sqlitemigrate.ToMillis(u.CreatedAt), sqlitemigrate.ToMillis(u.UpdatedAt))
	if err != nil {
		if sqlitemigrate.IsUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

// GetUser fetches a user record by ID.
func (s *Store) GetUser(ctx context.Context, userID string) (storage.UserRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.UserRecord{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, strings.TrimSpace(userID))
	return userFromRow(row, "get user")
}

// GetUserByEmail fetches a user record by its normalized email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (storage.UserRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.UserRecord{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, strings.TrimSpace(email))
	return userFromRow(row, "get user by email")
}

// UpdateUserPreferences replaces the editable profile fields.
func (s *Store) UpdateUserPreferences(ctx context.Context, userID, displayName, locale, timeZone string, updatedAt time.Time) (storage.UserRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.UserRecord{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `
UPDATE users SET display_name = ?, locale = ?, time_zone = ?, updated_at = ?
WHERE id = ?
RETURNING `+userColumns,
		displayName, locale, timeZone, sqlitemigrate.ToMillis(updatedAt), strings.TrimSpace(userID))
	return userFromRow(row, "update user preferences")
}

// ListUserIDs lists every user id in creation order.
func (s *Store) ListUserIDs(ctx context.Context) ([]string, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT id FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user ids: %w", err)
	}
	return ids, nil
}

// PutSession inserts a session record.
func (s *Store) PutSession(ctx context.Context, session storage.SessionRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(session.ID) == "" || strings.TrimSpace(session.UserID) == "" {
		return fmt.Errorf("session id and user id are required")
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO sessions (`+sessionColumns+`)
VALUES (?, ?, ?, ?, ?, ?)
`, session.ID, session.UserID, session.UserAgent, sqlitemigrate.ToMillis(session.CreatedAt),
		sqlitemigrate.ToMillis(session.ExpiresAt), sqlitemigrate.NullMillis(session.RevokedAt))
	if err != nil {
		switch {
		case sqlitemigrate.IsUniqueViolation(err):
			return storage.ErrConflict
		case sqlitemigrate.IsForeignKeyViolation(err):
			return storage.ErrNotFound
		}
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

// GetSession fetches a session by ID, revoked or not.
func (s *Store) GetSession(ctx context.Context, sessionID string) (storage.SessionRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.SessionRecord{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, strings.TrimSpace(sessionID))
	var record storage.SessionRecord
	var createdAt, expiresAt int64
	var revokedAt sql.NullInt64
	if err := row.Scan(&record.ID, &record.UserID, &record.UserAgent, &createdAt, &expiresAt, &revokedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.SessionRecord{}, storage.ErrNotFound
		}
		return storage.SessionRecord{}, fmt.Errorf("get session: %w", err)
	}
	record.CreatedAt = sqlitemigrate.FromMillis(createdAt)
	record.ExpiresAt = sqlitemigrate.FromMillis(expiresAt)
	record.RevokedAt = sqlitemigrate.FromNullMillis(revokedAt)
	return record, nil
}

// RevokeSession marks a session revoked; revoking twice keeps the first time.
func (s *Store) RevokeSession(ctx context.Context, sessionID string, revokedAt time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx, `UPDATE sessions SET revoked_at = COALESCE(revoked_at, ?) WHERE id = ?`,
		sqlitemigrate.ToMillis(revokedAt), strings.TrimSpace(sessionID))
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke session rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteExpiredSessions removes sessions past their expiry.
func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, sqlitemigrate.ToMillis(now))
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}

func userFromRow(row *sql.Row, op string) (storage.UserRecord, error) {
	var record storage.UserRecord
	var createdAt, updatedAt int64
	if err := row.Scan(&record.ID, &record.Email, &record.DisplayName, &record.PasswordHash, &record.Locale,
		&record.TimeZone, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.UserRecord{}, storage.ErrNotFound
		}
		return storage.UserRecord{}, fmt.Errorf("%s: %w", op, err)
	}
	record.CreatedAt = sqlitemigrate.FromMillis(createdAt)
	record.UpdatedAt = sqlitemigrate.FromMillis(updatedAt)
	return record, nil
}
