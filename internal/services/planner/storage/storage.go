// Package storage defines the persistence contracts of the planner service.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/doosr/doosr/internal/services/planner/descendant"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates a uniqueness constraint was violated.
	ErrConflict = errors.New("record conflict")
)

// ItemState is the lifecycle state of an item.
type ItemState string

const (
	ItemTodo     ItemState = "todo"
	ItemDoing    ItemState = "doing"
	ItemDone     ItemState = "done"
	ItemDropped  ItemState = "dropped"
	ItemDeferred ItemState = "deferred"
)

// Valid reports whether s is a known state.
func (s ItemState) Valid() bool {
	switch s {
	case ItemTodo, ItemDoing, ItemDone, ItemDropped, ItemDeferred:
		return true
	}
	return false
}

// Open reports whether s still needs attention. Open items live in their
// parent's active list.
func (s ItemState) Open() bool {
	return s == ItemTodo || s == ItemDoing
}

// DayRecord is the root of one calendar day for one user.
type DayRecord struct {
	ID           string
	UserID       string
	Date         string
	DescendantID string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ItemRecord is a task with its own nested children.
type ItemRecord struct {
	ID           string
	UserID       string
	Title        string
	State        ItemState
	DescendantID string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  time.Time
}

// ListRecord is a named, optionally reusable collection of children.
type ListRecord struct {
	ID           string
	UserID       string
	Title        string
	Reusable     bool
	DescendantID string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ChecklistEntry is one line of a checklist.
type ChecklistEntry struct {
	Text    string `json:"text"`
	Checked bool   `json:"checked"`
}

// ChecklistRecord is a flat list of checkable entries.
type ChecklistRecord struct {
	ID        string
	UserID    string
	Title     string
	Entries   []ChecklistEntry
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NoteRecord is free text attached to a node.
type NoteRecord struct {
	ID        string
	UserID    string
	Body      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DayStore persists days.
type DayStore interface {
	GetDay(ctx context.Context, userID, date string) (DayRecord, error)
	GetDayByID(ctx context.Context, userID, dayID string) (DayRecord, error)
	PutDay(ctx context.Context, day DayRecord) error
	ListDays(ctx context.Context, userID, fromDate, toDate string) ([]DayRecord, error)
}

// DescendantStore persists descendants and their ordered refs.
type DescendantStore interface {
	GetDescendant(ctx context.Context, userID, descendantID string) (descendant.Descendant, error)
	GetDescendants(ctx context.Context, userID string, descendantIDs []string) (map[string]descendant.Descendant, error)
	PutDescendant(ctx context.Context, d descendant.Descendant) error
	DeleteDescendant(ctx context.Context, userID, descendantID string) error
	// CountReferences counts descendants of userID holding ref.
	CountReferences(ctx context.Context, userID string, ref descendant.Ref) (int, error)
}

// ItemStore persists items.
type ItemStore interface {
	GetItem(ctx context.Context, userID, itemID string) (ItemRecord, error)
	GetItems(ctx context.Context, userID string, itemIDs []string) (map[string]ItemRecord, error)
	PutItem(ctx context.Context, item ItemRecord) error
	DeleteItem(ctx context.Context, userID, itemID string) error
}

// ListStore persists lists.
type ListStore interface {
	GetList(ctx context.Context, userID, listID string) (ListRecord, error)
	GetLists(ctx context.Context, userID string, listIDs []string) (map[string]ListRecord, error)
	PutList(ctx context.Context, list ListRecord) error
	ListLists(ctx context.Context, userID string, reusableOnly bool) ([]ListRecord, error)
}

// ChecklistStore persists checklists.
type ChecklistStore interface {
	GetChecklist(ctx context.Context, userID, checklistID string) (ChecklistRecord, error)
	GetChecklists(ctx context.Context, userID string, checklistIDs []string) (map[string]ChecklistRecord, error)
	PutChecklist(ctx context.Context, checklist ChecklistRecord) error
	DeleteChecklist(ctx context.Context, userID, checklistID string) error
}

// NoteStore persists notes.
type NoteStore interface {
	GetNote(ctx context.Context, userID, noteID string) (NoteRecord, error)
	GetNotes(ctx context.Context, userID string, noteIDs []string) (map[string]NoteRecord, error)
	PutNote(ctx context.Context, note NoteRecord) error
	DeleteNote(ctx context.Context, userID, noteID string) error
}

// Store is the full planner persistence contract.
type Store interface {
	DayStore
	DescendantStore
	ItemStore
	ListStore
	ChecklistStore
	NoteStore
	// WithinTx runs fn against a transaction-bound Store, committing when fn
	// returns nil.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}
