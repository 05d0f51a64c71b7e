// Package storage defines the persistence contracts of the auth service.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates a write violated a uniqueness constraint.
	ErrConflict = errors.New("record conflict")
)

// UserRecord is one registered account.
type UserRecord struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	Locale       string
	TimeZone     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SessionRecord is one signed-in browser or client.
type SessionRecord struct {
	ID        string
	UserID    string
	UserAgent string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt time.Time
}

// UserStore persists accounts.
type UserStore interface {
	// PutUser inserts a new user; a taken email returns ErrConflict.
	PutUser(ctx context.Context, user UserRecord) error
	GetUser(ctx context.Context, userID string) (UserRecord, error)
	GetUserByEmail(ctx context.Context, email string) (UserRecord, error)
	UpdateUserPreferences(ctx context.Context, userID, displayName, locale, timeZone string, updatedAt time.Time) (UserRecord, error)
	ListUserIDs(ctx context.Context) ([]string, error)
}

// SessionStore persists sessions so tokens can be revoked before expiry.
type SessionStore interface {
	PutSession(ctx context.Context, session SessionRecord) error
	GetSession(ctx context.Context, sessionID string) (SessionRecord, error)
	RevokeSession(ctx context.Context, sessionID string, revokedAt time.Time) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// Store is the full auth persistence surface.
type Store interface {
	UserStore
	SessionStore
}
