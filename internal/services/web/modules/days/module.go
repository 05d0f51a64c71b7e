// Package days serves the day pages and every planner tree mutation.
package days

import (
	"context"
	"net/http"
	"time"

	"github.com/doosr/doosr/internal/services/planner/descendant"
	plannerdomain "github.com/doosr/doosr/internal/services/planner/domain"
	"github.com/doosr/doosr/internal/services/planner/storage"
	"github.com/doosr/doosr/internal/services/planner/tree"
	module "github.com/doosr/doosr/internal/services/web/module"
	"github.com/doosr/doosr/internal/services/web/platform/modulehandler"
	"github.com/doosr/doosr/internal/services/web/routepath"
)

// Planner is the planner surface the module drives.
type Planner interface {
	Day(ctx context.Context, userID, date string) (storage.DayRecord, error)
	DayTree(ctx context.Context, userID, date string, opts plannerdomain.TreeOptions) (storage.DayRecord, tree.Tree, error)
	AddItem(ctx context.Context, userID, parentID, title string, position int) (storage.ItemRecord, error)
	RenameItem(ctx context.Context, userID, itemID, title string) (storage.ItemRecord, error)
	SetItemState(ctx context.Context, userID, parentID, itemID string, state storage.ItemState) (storage.ItemRecord, error)
	ListLists(ctx context.Context, userID string, reusableOnly bool) ([]storage.ListRecord, error)
	AttachList(ctx context.Context, userID, parentID, listID string) error
	AddChecklist(ctx context.Context, userID, parentID, title string, entries []string) (storage.ChecklistRecord, error)
	ToggleChecklistEntry(ctx context.Context, userID, checklistID string, index int) (storage.ChecklistRecord, error)
	AddChecklistEntry(ctx context.Context, userID, checklistID, text string) (storage.ChecklistRecord, error)
	AddNote(ctx context.Context, userID, parentID, body string) (storage.NoteRecord, error)
	MoveRef(ctx context.Context, userID, parentID string, ref descendant.Ref, index int) error
	RemoveRef(ctx context.Context, userID, parentID string, ref descendant.Ref) error
	Rollover(ctx context.Context, userID, from, to string) (int, error)
}

// Module provides the /days/ routes.
type Module struct {
	planner Planner
	base    modulehandler.Base
	now     func() time.Time
}

// New returns a days module.
func New(planner Planner, base modulehandler.Base) Module {
	return Module{planner: planner, base: base, now: time.Now}
}

// WithClock returns a copy of m reading the current time from clock.
func (m Module) WithClock(clock func() time.Time) Module {
	if clock != nil {
		m.now = clock
	}
	return m
}

// ID returns a stable module identifier.
func (Module) ID() string { return "days" }

// Mount wires day route handlers.
func (m Module) Mount() (module.Mount, error) {
	mux := http.NewServeMux()
	registerRoutes(mux, handlers{Base: m.base, planner: m.planner, now: m.now})
	return module.Mount{Prefix: routepath.DaysPrefix, Handler: m.base.RequireUser(mux)}, nil
}
