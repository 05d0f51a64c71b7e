package domain

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	plannerdomain "github.com/doosr/doosr/internal/services/planner/domain"
	"github.com/doosr/doosr/internal/services/planner/storage/sqlite"
	"github.com/google/go-cmp/cmp"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// 2026-09-17 01:30 UTC is still Wednesday the 16th in New York.
var testNow = time.Date(2026, 9, 17, 1, 30, 0, 0, time.UTC)

func testScope(t *testing.T) Scope {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return Scope{UserID: "u1", Location: loc, Clock: func() time.Time { return testNow }}
}

func newTestPlanner(t *testing.T) *plannerdomain.Service {
	t.Helper()
	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "planner.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return plannerdomain.NewService(store, plannerdomain.WithClock(func() time.Time { return testNow }))
}

type notifications struct {
	mu   sync.Mutex
	uris []string
}

func (n *notifications) notify(_ context.Context, uri string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.uris = append(n.uris, uri)
}

func TestScopeDate(t *testing.T) {
	t.Parallel()

	scope := testScope(t)
	got, err := scope.Date("")
	if err != nil {
		t.Fatalf("default date: %v", err)
	}
	if got != "2026-09-16" {
		t.Fatalf("Date(\"\") = %q, want %q", got, "2026-09-16")
	}
	if got, _ := scope.Date(" 2026-01-02 "); got != "2026-01-02" {
		t.Fatalf("Date = %q, want %q", got, "2026-01-02")
	}
	if _, err := scope.Date("16/09/2026"); err == nil {
		t.Fatal("expected error for malformed date")
	}
}

func TestAddItemShowsInDayTree(t *testing.T) {
	t.Parallel()

	scope := testScope(t)
	planner := newTestPlanner(t)
	notes := &notifications{}
	ctx := context.Background()

	_, item, err := AddItemHandler(planner, scope, notes.notify)(ctx, nil, AddItemInput{Title: "Plan {{weekday}}"})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if item.Date != "2026-09-16" || item.State != "todo" || item.Title != "Plan {{weekday}}" {
		t.Fatalf("item = %+v, want todo on 2026-09-16 with raw title", item)
	}
	if diff := cmp.Diff([]string{"doosr://days/2026-09-16"}, notes.uris); diff != "" {
		t.Fatalf("notifications mismatch (-want +got):\n%s", diff)
	}

	_, day, err := DayTreeHandler(planner, scope)(ctx, nil, DayTreeInput{Date: "2026-09-16"})
	if err != nil {
		t.Fatalf("day tree: %v", err)
	}
	want := []TreeNode{{
		Type:     "item",
		ID:       item.ID,
		ParentID: day.DescendantID,
		Title:    "Plan Wednesday",
		State:    "todo",
		Active:   true,
	}}
	if diff := cmp.Diff(want, day.Nodes); diff != "" {
		t.Fatalf("nodes mismatch (-want +got):\n%s", diff)
	}
}

func TestAddItemRejectsEmptyTitle(t *testing.T) {
	t.Parallel()

	_, _, err := AddItemHandler(newTestPlanner(t), testScope(t), nil)(context.Background(), nil, AddItemInput{Title: "  "})
	if err == nil {
		t.Fatal("expected error for empty title")
	}
}

func TestSetItemStateMovesItemToInactive(t *testing.T) {
	t.Parallel()

	scope := testScope(t)
	planner := newTestPlanner(t)
	notes := &notifications{}
	ctx := context.Background()

	_, item, err := AddItemHandler(planner, scope, nil)(ctx, nil, AddItemInput{Date: "2026-09-10", Title: "Ship release"})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	_, done, err := SetItemStateHandler(planner, scope, notes.notify)(ctx, nil, SetItemStateInput{Date: "2026-09-10", ItemID: item.ID, State: "done"})
	if err != nil {
		t.Fatalf("set item state: %v", err)
	}
	if done.State != "done" || done.CompletedAt == "" {
		t.Fatalf("item = %+v, want done with completion time", done)
	}
	if diff := cmp.Diff([]string{"doosr://days/2026-09-10"}, notes.uris); diff != "" {
		t.Fatalf("notifications mismatch (-want +got):\n%s", diff)
	}

	_, active, err := DayTreeHandler(planner, scope)(ctx, nil, DayTreeInput{Date: "2026-09-10"})
	if err != nil {
		t.Fatalf("day tree: %v", err)
	}
	if len(active.Nodes) != 0 {
		t.Fatalf("active nodes = %+v, want none", active.Nodes)
	}
	_, all, err := DayTreeHandler(planner, scope)(ctx, nil, DayTreeInput{Date: "2026-09-10", IncludeInactive: true})
	if err != nil {
		t.Fatalf("day tree: %v", err)
	}
	if len(all.Nodes) != 1 || all.Nodes[0].Active || all.Nodes[0].State != "done" {
		t.Fatalf("nodes = %+v, want one inactive done item", all.Nodes)
	}
}

func TestSetItemStateErrors(t *testing.T) {
	t.Parallel()

	scope := testScope(t)
	planner := newTestPlanner(t)
	ctx := context.Background()
	_, item, err := AddItemHandler(planner, scope, nil)(ctx, nil, AddItemInput{Title: "Water plants"})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}

	handler := SetItemStateHandler(planner, scope, nil)
	tests := []struct {
		name  string
		input SetItemStateInput
		want  string
	}{
		{name: "missing id", input: SetItemStateInput{State: "done"}, want: "item_id is required"},
		{name: "other day", input: SetItemStateInput{Date: "2026-09-15", ItemID: item.ID, State: "done"}, want: "is not on 2026-09-15"},
		{name: "bad state", input: SetItemStateInput{ItemID: item.ID, State: "finished"}, want: "item state is invalid"},
	}
	for _, tt := range tests {
		_, _, err := handler(ctx, nil, tt.input)
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Fatalf("%s: err = %v, want %q", tt.name, err, tt.want)
		}
	}
}

func TestDayResourceHandler(t *testing.T) {
	t.Parallel()

	scope := testScope(t)
	planner := newTestPlanner(t)
	ctx := context.Background()
	if _, _, err := AddItemHandler(planner, scope, nil)(ctx, nil, AddItemInput{Date: "2026-09-16", Title: "Read"}); err != nil {
		t.Fatalf("add item: %v", err)
	}

	handler := DayResourceHandler(planner, scope)
	result, err := handler(ctx, &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: DayURI("2026-09-16")}})
	if err != nil {
		t.Fatalf("read resource: %v", err)
	}
	if len(result.Contents) != 1 || !strings.Contains(result.Contents[0].Text, `"title": "Read"`) {
		t.Fatalf("contents = %+v, want day with Read item", result.Contents)
	}
	if _, err := handler(ctx, &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: "doosr://lists/1"}}); err == nil {
		t.Fatal("expected error for foreign uri")
	}
}

func TestFixedDateHandler(t *testing.T) {
	t.Parallel()

	handler := FixedDateHandler(testScope(t))
	tests := []struct {
		date string
		want FixedDateResult
	}{
		{
			date: "",
			want: FixedDateResult{Date: "2026-09-16", Fixed: "Sol 13, 2026", Year: 2026, Month: 7, MonthName: "Sol", Day: 13, Weekday: "Friday", Week: 2, DayOfYear: 181},
		},
		{
			date: "2027-03-19",
			want: FixedDateResult{Date: "2027-03-19", Fixed: "Year Day 2026", Year: 2026, DayOfYear: 365, Special: "year_day"},
		},
	}
	for _, tt := range tests {
		_, got, err := handler(context.Background(), nil, FixedDateInput{Date: tt.date})
		if err != nil {
			t.Fatalf("fixed date %q: %v", tt.date, err)
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Fatalf("fixed date %q mismatch (-want +got):\n%s", tt.date, diff)
		}
	}
	if _, _, err := handler(context.Background(), nil, FixedDateInput{Date: "2026-13-01"}); err == nil {
		t.Fatal("expected error for invalid date")
	}
}

func TestInterpolateHandler(t *testing.T) {
	t.Parallel()

	_, got, err := InterpolateHandler(testScope(t))(context.Background(), nil, InterpolateInput{
		Text: "{{weekday}} on {{fixed_date}}, {{nope}} {{NOPE}}",
	})
	if err != nil {
		t.Fatalf("interpolate: %v", err)
	}
	want := InterpolateResult{
		Date:    "2026-09-16",
		Text:    "Wednesday on Sol 13, 2026, {{nope}} {{NOPE}}",
		Unknown: []string{"nope"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("interpolate mismatch (-want +got):\n%s", diff)
	}
}
