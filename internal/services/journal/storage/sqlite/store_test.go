package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/doosr/doosr/internal/services/journal/storage"
	"github.com/google/go-cmp/cmp"
)

var testNow = time.Date(2026, 9, 17, 20, 0, 0, 0, time.UTC)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestJournalAndFragments(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)
	ctx := context.Background()

	journal := storage.JournalRecord{ID: "j1", UserID: "u1", Title: "Diary", Encrypted: true, DescendantID: "d1", CreatedAt: testNow, UpdatedAt: testNow}
	if err := store.PutJournal(ctx, journal); err != nil {
		t.Fatalf("put journal: %v", err)
	}
	got, err := store.GetJournal(ctx, "u1", "j1")
	if err != nil {
		t.Fatalf("get journal: %v", err)
	}
	if diff := cmp.Diff(journal, got); diff != "" {
		t.Fatalf("journal (-want +got):\n%s", diff)
	}
	if _, err := store.GetJournal(ctx, "u2", "j1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("other user err = %v, want ErrNotFound", err)
	}

	for i, id := range []string{"f2", "f1"} {
		fragment := storage.FragmentRecord{ID: id, UserID: "u1", JournalID: "j1", Ciphertext: "v1.x", Encrypted: true,
			CreatedAt: testNow.Add(time.Duration(i) * time.Minute), UpdatedAt: testNow}
		if err := store.PutFragment(ctx, fragment); err != nil {
			t.Fatalf("put fragment: %v", err)
		}
	}
	if err := store.PutFragment(ctx, storage.FragmentRecord{ID: "f3", UserID: "u1", JournalID: "j1", Content: "plain", CreatedAt: testNow.Add(time.Hour), UpdatedAt: testNow}); err != nil {
		t.Fatalf("put plain fragment: %v", err)
	}
	fragments, err := store.ListFragments(ctx, "u1", "j1")
	if err != nil {
		t.Fatalf("list fragments: %v", err)
	}
	var ids []string
	for _, f := range fragments {
		ids = append(ids, f.ID)
	}
	if diff := cmp.Diff([]string{"f2", "f1", "f3"}, ids); diff != "" {
		t.Fatalf("fragment order (-want +got):\n%s", diff)
	}
	sealed, err := store.ListEncryptedFragments(ctx, "u1")
	if err != nil || len(sealed) != 2 {
		t.Fatalf("encrypted fragments = %d, %v; want 2", len(sealed), err)
	}

	err = store.PutFragment(ctx, storage.FragmentRecord{ID: "f9", UserID: "u1", JournalID: "missing", Content: "x", CreatedAt: testNow, UpdatedAt: testNow})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("orphan fragment err = %v, want ErrNotFound", err)
	}
}

func TestDeleteFragmentAndJournal(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.PutJournal(ctx, storage.JournalRecord{ID: "j1", UserID: "u1", Title: "Diary", DescendantID: "d1", CreatedAt: testNow, UpdatedAt: testNow}); err != nil {
		t.Fatalf("put journal: %v", err)
	}
	for _, id := range []string{"f1", "f2"} {
		if err := store.PutFragment(ctx, storage.FragmentRecord{ID: id, UserID: "u1", JournalID: "j1", Content: id, CreatedAt: testNow, UpdatedAt: testNow}); err != nil {
			t.Fatalf("put fragment: %v", err)
		}
	}

	if err := store.DeleteFragment(ctx, "u2", "f1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("other user delete err = %v, want ErrNotFound", err)
	}
	if err := store.DeleteFragment(ctx, "u1", "f1"); err != nil {
		t.Fatalf("delete fragment: %v", err)
	}
	fragments, err := store.ListFragments(ctx, "u1", "j1")
	if err != nil || len(fragments) != 1 || fragments[0].ID != "f2" {
		t.Fatalf("fragments after delete = %+v, %v, want f2", fragments, err)
	}

	if err := store.DeleteJournal(ctx, "u1", "j1"); err != nil {
		t.Fatalf("delete journal: %v", err)
	}
	if _, err := store.GetJournal(ctx, "u1", "j1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("deleted journal err = %v, want ErrNotFound", err)
	}
	if fragments, err := store.ListFragments(ctx, "u1", "j1"); err != nil || len(fragments) != 0 {
		t.Fatalf("fragments of deleted journal = %+v, %v, want none", fragments, err)
	}
}

func TestPromptsActiveFilter(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)
	ctx := context.Background()
	prompts := []storage.PromptRecord{
		{ID: "p1", UserID: "u1", Text: "Gratitude?", Active: true, CreatedAt: testNow, UpdatedAt: testNow},
		{ID: "p2", UserID: "u1", Text: "Regrets?", Active: false, CreatedAt: testNow.Add(time.Minute), UpdatedAt: testNow},
		{ID: "p3", UserID: "u1", Text: "Tomorrow?", Active: true, CreatedAt: testNow.Add(2 * time.Minute), UpdatedAt: testNow},
	}
	for _, p := range prompts {
		if err := store.PutPrompt(ctx, p); err != nil {
			t.Fatalf("put prompt: %v", err)
		}
	}
	active, err := store.ListPrompts(ctx, "u1", true)
	if err != nil {
		t.Fatalf("list prompts: %v", err)
	}
	if len(active) != 2 || active[0].ID != "p1" || active[1].ID != "p3" {
		t.Fatalf("active prompts = %+v", active)
	}
	all, _ := store.ListPrompts(ctx, "u1", false)
	if len(all) != 3 {
		t.Fatalf("all prompts = %d, want 3", len(all))
	}
}

func TestKeyMaterialUpsert(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)
	ctx := context.Background()

	if _, err := store.GetKeyMaterial(ctx, "u1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("missing key material err = %v, want ErrNotFound", err)
	}
	material := storage.KeyMaterial{UserID: "u1", Salt: []byte("salt-salt-salt-1"), Iterations: 1000, Verifier: "v1.a", CreatedAt: testNow, UpdatedAt: testNow}
	if err := store.PutKeyMaterial(ctx, material); err != nil {
		t.Fatalf("put key material: %v", err)
	}
	material.Salt = []byte("salt-salt-salt-2")
	material.Verifier = "v1.b"
	if err := store.PutKeyMaterial(ctx, material); err != nil {
		t.Fatalf("replace key material: %v", err)
	}
	got, err := store.GetKeyMaterial(ctx, "u1")
	if err != nil {
		t.Fatalf("get key material: %v", err)
	}
	if diff := cmp.Diff(material, got); diff != "" {
		t.Fatalf("key material (-want +got):\n%s", diff)
	}
}
