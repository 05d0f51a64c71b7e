package tree

import (
	"testing"
	"time"

	"github.com/doosr/doosr/internal/core/tokens"
	"github.com/doosr/doosr/internal/services/planner/descendant"
	"github.com/doosr/doosr/internal/services/planner/storage"
	"github.com/google/go-cmp/cmp"
)

func ref(t descendant.RefType, id string) descendant.Ref { return descendant.Ref{Type: t, ID: id} }

func itemRef(id string) descendant.Ref { return ref(descendant.RefItem, id) }

type fixture struct {
	c Collections
}

func newFixture() *fixture {
	return &fixture{c: Collections{
		Descendants: map[string]descendant.Descendant{},
		Items:       map[string]storage.ItemRecord{},
		Lists:       map[string]storage.ListRecord{},
		Checklists:  map[string]storage.ChecklistRecord{},
		Notes:       map[string]storage.NoteRecord{},
		Journals:    map[string]JournalView{},
		Prompts:     map[string]PromptView{},
		Fragments:   map[string]FragmentView{},
	}}
}

func (f *fixture) item(id, title string, active []descendant.Ref, inactive ...descendant.Ref) {
	descID := "d-" + id
	f.c.Items[id] = storage.ItemRecord{ID: id, Title: title, State: storage.ItemTodo, DescendantID: descID}
	f.c.Descendants[descID] = descendant.Descendant{ID: descID, OwnerType: descendant.OwnerItem, OwnerID: id, Active: active, Inactive: inactive}
}

// shape renders the tree as "depth:display" lines for compact comparison.
func shape(t Tree) []string {
	var out []string
	t.Walk(func(n *Node) bool {
		out = append(out, string(rune('0'+n.Depth))+":"+n.Display)
		return true
	})
	return out
}

func TestBuildOrdersActiveThenInactive(t *testing.T) {
	t.Parallel()
	f := newFixture()
	f.item("a", "A", nil)
	f.item("b", "B", []descendant.Ref{itemRef("c")})
	f.item("c", "C", nil)
	f.item("z", "Z", nil)
	root := descendant.Descendant{ID: "root", Active: []descendant.Ref{itemRef("b"), itemRef("a")}, Inactive: []descendant.Ref{itemRef("z")}}

	got := Build(root, f.c, Options{})
	if diff := cmp.Diff([]string{"0:B", "1:C", "0:A"}, shape(got)); diff != "" {
		t.Fatalf("active only (-want +got):\n%s", diff)
	}

	got = Build(root, f.c, Options{IncludeInactive: true})
	if diff := cmp.Diff([]string{"0:B", "1:C", "0:A", "0:Z"}, shape(got)); diff != "" {
		t.Fatalf("with inactive (-want +got):\n%s", diff)
	}
	if z := got.Find(itemRef("z")); z == nil || z.Active {
		t.Fatalf("Find(z) = %+v, want inactive node", z)
	}
}

func TestBuildBreaksCycles(t *testing.T) {
	t.Parallel()
	f := newFixture()
	// a contains b, b contains a.
	f.item("a", "A", []descendant.Ref{itemRef("b")})
	f.item("b", "B", []descendant.Ref{itemRef("a")})
	root := descendant.Descendant{ID: "root", Active: []descendant.Ref{itemRef("a")}}

	got := Build(root, f.c, Options{})
	if diff := cmp.Diff([]string{"0:A", "1:B"}, shape(got)); diff != "" {
		t.Fatalf("cycle (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]descendant.Ref{itemRef("a")}, got.Repeats); diff != "" {
		t.Fatalf("repeats (-want +got):\n%s", diff)
	}
}

func TestBuildDoesNotReexpandSharedDescendant(t *testing.T) {
	t.Parallel()
	f := newFixture()
	f.item("leaf", "Leaf", nil)
	f.c.Lists["l1"] = storage.ListRecord{ID: "l1", Title: "First", DescendantID: "shared"}
	f.c.Lists["l2"] = storage.ListRecord{ID: "l2", Title: "Second", DescendantID: "shared"}
	f.c.Descendants["shared"] = descendant.Descendant{ID: "shared", Active: []descendant.Ref{itemRef("leaf")}}
	root := descendant.Descendant{ID: "root", Active: []descendant.Ref{ref(descendant.RefList, "l1"), ref(descendant.RefList, "l2")}}

	got := Build(root, f.c, Options{})
	if diff := cmp.Diff([]string{"0:First", "1:Leaf", "0:Second"}, shape(got)); diff != "" {
		t.Fatalf("shared (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]descendant.Ref{ref(descendant.RefList, "l2")}, got.Cycles); diff != "" {
		t.Fatalf("cycles (-want +got):\n%s", diff)
	}
}

func TestBuildRootSelfReference(t *testing.T) {
	t.Parallel()
	f := newFixture()
	f.c.Lists["l"] = storage.ListRecord{ID: "l", Title: "Self", DescendantID: "root"}
	root := descendant.Descendant{ID: "root", Active: []descendant.Ref{ref(descendant.RefList, "l")}}
	f.c.Descendants["root"] = root

	got := Build(root, f.c, Options{})
	if got.Count() != 1 {
		t.Fatalf("Count = %d, want 1", got.Count())
	}
	if len(got.Cycles) != 1 {
		t.Fatalf("Cycles = %v, want one", got.Cycles)
	}
}

func TestBuildReportsMissingAndTruncated(t *testing.T) {
	t.Parallel()
	f := newFixture()
	f.item("a", "A", []descendant.Ref{itemRef("b")})
	f.item("b", "B", []descendant.Ref{itemRef("c")})
	f.item("c", "C", nil)
	root := descendant.Descendant{ID: "root", Active: []descendant.Ref{itemRef("ghost"), itemRef("a"), ref(descendant.RefJournal, "j")}}

	got := Build(root, f.c, Options{MaxDepth: 2})
	if diff := cmp.Diff([]string{"0:A", "1:B"}, shape(got)); diff != "" {
		t.Fatalf("truncated (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]descendant.Ref{itemRef("ghost"), ref(descendant.RefJournal, "j")}, got.Missing); diff != "" {
		t.Fatalf("missing (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]descendant.Ref{itemRef("b")}, got.Truncated); diff != "" {
		t.Fatalf("truncated refs (-want +got):\n%s", diff)
	}
}

func TestBuildInterpolatesAndMaterializesEveryType(t *testing.T) {
	t.Parallel()
	f := newFixture()
	f.item("a", "Review {{fixed_date}}", nil)
	f.c.Checklists["cl"] = storage.ChecklistRecord{ID: "cl", Title: "Pack for {{weekday}}"}
	f.c.Notes["n"] = storage.NoteRecord{ID: "n", Body: "  first line\nsecond"}
	f.c.Journals["j"] = JournalView{ID: "j", Title: "Diary", DescendantID: "jd"}
	f.c.Descendants["jd"] = descendant.Descendant{ID: "jd", Active: []descendant.Ref{ref(descendant.RefJournalPrompt, "p"), ref(descendant.RefJournalFragment, "fr")}}
	f.c.Prompts["p"] = PromptView{ID: "p", Text: "What went well?"}
	f.c.Fragments["fr"] = FragmentView{ID: "fr", Locked: true}
	root := descendant.Descendant{ID: "root", Active: []descendant.Ref{
		itemRef("a"), ref(descendant.RefChecklist, "cl"), ref(descendant.RefNote, "n"), ref(descendant.RefJournal, "j"),
	}}

	opts := Options{Tokens: tokens.NewContext(time.Date(2026, 9, 17, 0, 0, 0, 0, time.UTC))}
	got := Build(root, f.c, opts)
	want := []string{"0:Review Sol 14, 2026", "0:Pack for Thursday", "0:first line", "0:Diary", "1:What went well?", "1:"}
	if diff := cmp.Diff(want, shape(got)); diff != "" {
		t.Fatalf("display (-want +got):\n%s", diff)
	}
	if n := got.Find(ref(descendant.RefJournalFragment, "fr")); n == nil || n.Fragment == nil || !n.Fragment.Locked {
		t.Fatalf("fragment node = %+v", n)
	}

	raw := Build(root, f.c, Options{})
	if n := raw.Find(itemRef("a")); n.Display != "Review {{fixed_date}}" {
		t.Fatalf("uninterpolated display = %q", n.Display)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	t.Parallel()
	f := newFixture()
	f.item("a", "A", []descendant.Ref{itemRef("b"), itemRef("c")})
	f.item("b", "B", []descendant.Ref{itemRef("c")})
	f.item("c", "C", []descendant.Ref{itemRef("a")})
	root := descendant.Descendant{ID: "root", Active: []descendant.Ref{itemRef("a"), itemRef("c")}}

	first := shape(Build(root, f.c, Options{}))
	for i := 0; i < 20; i++ {
		if diff := cmp.Diff(first, shape(Build(root, f.c, Options{}))); diff != "" {
			t.Fatalf("run %d differs (-first +got):\n%s", i, diff)
		}
	}
	if diff := cmp.Diff([]string{"0:A", "1:B", "2:C"}, first); diff != "" {
		t.Fatalf("shape (-want +got):\n%s", diff)
	}
}
