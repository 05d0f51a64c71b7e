// Package lists serves the list index and list pages.
package lists

import (
	"context"
	"net/http"
	"time"

	"github.com/doosr/doosr/internal/services/planner/storage"
	"github.com/doosr/doosr/internal/services/planner/tree"
	module "github.com/doosr/doosr/internal/services/web/module"
	"github.com/doosr/doosr/internal/services/web/platform/modulehandler"
	"github.com/doosr/doosr/internal/services/web/routepath"
)

// Planner is the planner surface the module drives.
type Planner interface {
	CreateList(ctx context.Context, userID, title string, reusable bool) (storage.ListRecord, error)
	ListLists(ctx context.Context, userID string, reusableOnly bool) ([]storage.ListRecord, error)
	ListTree(ctx context.Context, userID, listID string) (storage.ListRecord, tree.Tree, error)
	AddItem(ctx context.Context, userID, parentID, title string, position int) (storage.ItemRecord, error)
}

// Module provides the /lists/ routes.
type Module struct {
	planner Planner
	base    modulehandler.Base
	now     func() time.Time
}

// New returns a lists module.
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
func (Module) ID() string { return "lists" }

// Mount wires list route handlers.
func (m Module) Mount() (module.Mount, error) {
	mux := http.NewServeMux()
	registerRoutes(mux, handlers{Base: m.base, planner: m.planner, now: m.now})
	return module.Mount{Prefix: routepath.ListsPrefix, Handler: m.base.RequireUser(mux)}, nil
}
