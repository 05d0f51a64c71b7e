package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	plannerdomain "github.com/doosr/doosr/internal/services/planner/domain"
	"github.com/doosr/doosr/internal/services/planner/storage"
	"github.com/doosr/doosr/internal/services/planner/tree"
)

// callTimeout caps the time a single tool call may spend in the planner.
const callTimeout = 5 * time.Second

// Planner is the planner surface the tools use.
type Planner interface {
	Day(ctx context.Context, userID, date string) (storage.DayRecord, error)
	DayTree(ctx context.Context, userID, date string, opts plannerdomain.TreeOptions) (storage.DayRecord, tree.Tree, error)
	AddItem(ctx context.Context, userID, parentID, title string, position int) (storage.ItemRecord, error)
	SetItemState(ctx context.Context, userID, parentID, itemID string, state storage.ItemState) (storage.ItemRecord, error)
}

// ResourceUpdateNotifier announces that a resource URI changed.
type ResourceUpdateNotifier func(ctx context.Context, uri string)

// Scope is the user the server acts for.
type Scope struct {
	UserID   string
	Location *time.Location
	Clock    func() time.Time
}

func (s Scope) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

func (s Scope) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

// Date normalizes value to YYYY-MM-DD, defaulting to today.
func (s Scope) Date(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return s.now().In(s.location()).Format(plannerdomain.DateLayout), nil
	}
	parsed, err := time.Parse(plannerdomain.DateLayout, value)
	if err != nil {
		return "", fmt.Errorf("date %q must be YYYY-MM-DD", value)
	}
	return parsed.Format(plannerdomain.DateLayout), nil
}

// civil parses value as a UTC midnight civil date.
func (s Scope) civil(value string) (time.Time, string, error) {
	date, err := s.Date(value)
	if err != nil {
		return time.Time{}, "", err
	}
	parsed, _ := time.Parse(plannerdomain.DateLayout, date)
	return parsed, date, nil
}
