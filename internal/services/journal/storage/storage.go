// Package storage defines the persistence contracts of the journal service.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates a uniqueness constraint was violated.
	ErrConflict = errors.New("record conflict")
)

// JournalRecord is a named journal. Its entries are ordered by the planner
// outline identified by DescendantID.
type JournalRecord struct {
	ID           string
	UserID       string
	Title        string
	Encrypted    bool
	DescendantID string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PromptRecord is a reusable journaling question.
type PromptRecord struct {
	ID        string
	UserID    string
	Text      string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FragmentRecord is one journal entry. Exactly one of Content and
// Ciphertext is set, depending on Encrypted.
type FragmentRecord struct {
	ID         string
	UserID     string
	JournalID  string
	PromptID   string
	Content    string
	Ciphertext string
	Encrypted  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// KeyMaterial is the per-user data needed to re-derive and verify the
// journal key. The key itself is never stored.
type KeyMaterial struct {
	UserID     string
	Salt       []byte
	Iterations int
	Verifier   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// JournalStore persists journals.
type JournalStore interface {
	GetJournal(ctx context.Context, userID, journalID string) (JournalRecord, error)
	GetJournals(ctx context.Context, userID string, journalIDs []string) (map[string]JournalRecord, error)
	PutJournal(ctx context.Context, journal JournalRecord) error
	ListJournals(ctx context.Context, userID string) ([]JournalRecord, error)
	// DeleteJournal removes a journal and its fragments.
	DeleteJournal(ctx context.Context, userID, journalID string) error
}

// PromptStore persists prompts.
type PromptStore interface {
	GetPrompt(ctx context.Context, userID, promptID string) (PromptRecord, error)
	GetPrompts(ctx context.Context, userID string, promptIDs []string) (map[string]PromptRecord, error)
	PutPrompt(ctx context.Context, prompt PromptRecord) error
	// ListPrompts returns prompts oldest first.
	ListPrompts(ctx context.Context, userID string, activeOnly bool) ([]PromptRecord, error)
}

// FragmentStore persists fragments.
type FragmentStore interface {
	GetFragments(ctx context.Context, userID string, fragmentIDs []string) (map[string]FragmentRecord, error)
	PutFragment(ctx context.Context, fragment FragmentRecord) error
	// ListFragments returns a journal's fragments oldest first.
	ListFragments(ctx context.Context, userID, journalID string) ([]FragmentRecord, error)
	ListEncryptedFragments(ctx context.Context, userID string) ([]FragmentRecord, error)
	DeleteFragment(ctx context.Context, userID, fragmentID string) error
}

// KeyStore persists key material.
type KeyStore interface {
	GetKeyMaterial(ctx context.Context, userID string) (KeyMaterial, error)
	PutKeyMaterial(ctx context.Context, material KeyMaterial) error
}

// Store is the full journal persistence contract.
type Store interface {
	JournalStore
	PromptStore
	FragmentStore
	KeyStore
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}
