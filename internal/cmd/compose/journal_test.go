package compose

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	journaldomain "github.com/doosr/doosr/internal/services/journal/domain"
	journalsqlite "github.com/doosr/doosr/internal/services/journal/storage/sqlite"
	"github.com/doosr/doosr/internal/services/planner/descendant"
	plannerdomain "github.com/doosr/doosr/internal/services/planner/domain"
	plannerstorage "github.com/doosr/doosr/internal/services/planner/storage"
	plannersqlite "github.com/doosr/doosr/internal/services/planner/storage/sqlite"
)

func TestJournalRendersInsideDayTree(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	now := time.Date(2026, 9, 16, 21, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	plannerStore, err := plannersqlite.Open(ctx, filepath.Join(dir, "planner.db"))
	if err != nil {
		t.Fatalf("open planner store: %v", err)
	}
	t.Cleanup(func() { _ = plannerStore.Close() })
	journalStore, err := journalsqlite.Open(ctx, filepath.Join(dir, "journal.db"))
	if err != nil {
		t.Fatalf("open journal store: %v", err)
	}
	t.Cleanup(func() { _ = journalStore.Close() })

	planner := plannerdomain.NewService(plannerStore, plannerdomain.WithClock(clock))
	journals := journaldomain.NewService(journalStore, nil, journaldomain.WithClock(clock), journaldomain.WithOutline(Outline{Planner: planner}))
	planner.SetJournals(Source{Journals: journals})

	day, err := planner.Day(ctx, "u1", "2026-09-16")
	if err != nil {
		t.Fatalf("day: %v", err)
	}
	journal, err := journals.CreateJournal(ctx, "u1", "Evening log", false, day.DescendantID)
	if err != nil {
		t.Fatalf("create journal: %v", err)
	}
	if journal.DescendantID == "" {
		t.Fatal("journal has no outline")
	}
	fragment, err := journals.AddFragment(ctx, "u1", "", journal.ID, "", "Long walk by the river")
	if err != nil {
		t.Fatalf("add fragment: %v", err)
	}

	_, tr, err := planner.DayTree(ctx, "u1", "2026-09-16", plannerdomain.TreeOptions{})
	if err != nil {
		t.Fatalf("day tree: %v", err)
	}
	node := tr.Find(descendant.Ref{Type: descendant.RefJournal, ID: journal.ID})
	if node == nil || node.Display != "Evening log" {
		t.Fatalf("journal node = %+v, want Evening log", node)
	}
	if len(node.Children) != 1 || node.Children[0].Ref.ID != fragment.ID {
		t.Fatalf("journal children = %+v, want fragment %s", node.Children, fragment.ID)
	}
	if child := node.Children[0]; child.Fragment == nil || child.Fragment.Locked || child.Display == "" {
		t.Fatalf("fragment node = %+v, want unlocked preview", child)
	}
	if len(tr.Missing) != 0 {
		t.Fatalf("missing = %v, want none", tr.Missing)
	}
}

func TestFailedJournalAttachRemovesOutline(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	plannerStore, err := plannersqlite.Open(ctx, filepath.Join(dir, "planner.db"))
	if err != nil {
		t.Fatalf("open planner store: %v", err)
	}
	t.Cleanup(func() { _ = plannerStore.Close() })
	journalStore, err := journalsqlite.Open(ctx, filepath.Join(dir, "journal.db"))
	if err != nil {
		t.Fatalf("open journal store: %v", err)
	}
	t.Cleanup(func() { _ = journalStore.Close() })

	n := 0
	planner := plannerdomain.NewService(plannerStore, plannerdomain.WithIDGenerator(func() (string, error) {
		n++
		return fmt.Sprintf("p-%d", n), nil
	}))
	journals := journaldomain.NewService(journalStore, nil, journaldomain.WithOutline(Outline{Planner: planner}))

	if _, err := journals.CreateJournal(ctx, "u1", "Evening log", false, "missing-parent"); !errors.Is(err, plannerdomain.ErrNotFound) {
		t.Fatalf("create journal err = %v, want planner ErrNotFound", err)
	}
	if _, err := plannerStore.GetDescendant(ctx, "u1", "p-1"); !errors.Is(err, plannerstorage.ErrNotFound) {
		t.Fatalf("outline after failed create err = %v, want ErrNotFound", err)
	}
	list, err := journals.ListJournals(ctx, "u1")
	if err != nil || len(list) != 0 {
		t.Fatalf("journals after failed create = %+v, %v, want none", list, err)
	}
}
