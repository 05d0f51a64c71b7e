// Package tree materializes the polymorphic planner hierarchy below a root
// descendant.
//
// Build walks a preloaded set of typed collections. Two visited sets keep
// the walk finite and each record unique: a descendant is expanded at most
// once, and a record (type and id) is emitted at most once. The first
// occurrence in walk order wins; later ones are reported in Repeats.
package tree

import (
	"strings"
	"time"

	"github.com/doosr/doosr/internal/core/tokens"
	"github.com/doosr/doosr/internal/services/planner/descendant"
	"github.com/doosr/doosr/internal/services/planner/storage"
)

// DefaultMaxDepth bounds nesting when Options.MaxDepth is zero.
const DefaultMaxDepth = 16

// JournalView is the planner-facing projection of a journal.
type JournalView struct {
	ID           string
	Title        string
	Encrypted    bool
	DescendantID string
}

// PromptView is the planner-facing projection of a journal prompt.
type PromptView struct {
	ID   string
	Text string
}

// FragmentView is the planner-facing projection of a journal fragment.
// Locked fragments carry no preview.
type FragmentView struct {
	ID        string
	JournalID string
	PromptID  string
	Preview   string
	Locked    bool
	CreatedAt time.Time
}

// Collections holds every record Build may reference, keyed by id.
type Collections struct {
	Descendants map[string]descendant.Descendant
	Items       map[string]storage.ItemRecord
	Lists       map[string]storage.ListRecord
	Checklists  map[string]storage.ChecklistRecord
	Notes       map[string]storage.NoteRecord
	Journals    map[string]JournalView
	Prompts     map[string]PromptView
	Fragments   map[string]FragmentView
}

// Options tunes a build.
type Options struct {
	// MaxDepth is the number of nesting levels emitted; zero means
	// DefaultMaxDepth.
	MaxDepth int
	// IncludeInactive emits inactive children after active ones.
	IncludeInactive bool
	// Tokens resolves title placeholders. A zero Date disables interpolation.
	Tokens tokens.Context
}

func (o Options) maxDepth() int {
	if o.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return o.MaxDepth
}

// Node is one materialized child. Exactly one record pointer is set.
type Node struct {
	Ref       descendant.Ref
	Active    bool
	Depth     int
	Display   string
	Item      *storage.ItemRecord
	List      *storage.ListRecord
	Checklist *storage.ChecklistRecord
	Note      *storage.NoteRecord
	Journal   *JournalView
	Prompt    *PromptView
	Fragment  *FragmentView
	// DescendantID is the node's own child list, when it has one.
	DescendantID string
	Children     []*Node
}

// Tree is the result of a build.
type Tree struct {
	Root  descendant.Descendant
	Nodes []*Node
	// Missing lists refs whose record was not found.
	Missing []descendant.Ref
	// Repeats lists refs skipped because the record was already emitted.
	Repeats []descendant.Ref
	// Cycles lists refs whose child list was already expanded.
	Cycles []descendant.Ref
	// Truncated lists refs whose children were cut by MaxDepth.
	Truncated []descendant.Ref
}

// Walk visits nodes depth-first in display order. Returning false from fn
// skips the node's children.
func (t Tree) Walk(fn func(*Node) bool) {
	var walk func([]*Node)
	walk = func(nodes []*Node) {
		for _, n := range nodes {
			if fn(n) {
				walk(n.Children)
			}
		}
	}
	walk(t.Nodes)
}

// Count returns the number of materialized nodes.
func (t Tree) Count() int {
	count := 0
	t.Walk(func(*Node) bool { count++; return true })
	return count
}

// Find returns the first node holding ref.
func (t Tree) Find(ref descendant.Ref) *Node {
	var found *Node
	t.Walk(func(n *Node) bool {
		if found == nil && n.Ref == ref {
			found = n
		}
		return found == nil
	})
	return found
}

// Build materializes the children of root from c.
func Build(root descendant.Descendant, c Collections, opts Options) Tree {
	b := &builder{
		c:           c,
		opts:        opts,
		maxDepth:    opts.maxDepth(),
		descendants: map[string]struct{}{root.ID: {}},
		records:     map[descendant.Ref]struct{}{},
		tree:        Tree{Root: root},
	}
	b.tree.Nodes = b.children(root, 0)
	return b.tree
}

type builder struct {
	c           Collections
	opts        Options
	maxDepth    int
	descendants map[string]struct{}
	records     map[descendant.Ref]struct{}
	tree        Tree
}

func (b *builder) children(d descendant.Descendant, depth int) []*Node {
	var out []*Node
	emit := func(refs []descendant.Ref, active bool) {
		for _, ref := range refs {
			if node := b.node(ref, active, depth); node != nil {
				out = append(out, node)
			}
		}
	}
	emit(d.Active, true)
	if b.opts.IncludeInactive {
		emit(d.Inactive, false)
	}
	return out
}

func (b *builder) node(ref descendant.Ref, active bool, depth int) *Node {
	if _, seen := b.records[ref]; seen {
		b.tree.Repeats = append(b.tree.Repeats, ref)
		return nil
	}
	n, ok := b.materialize(ref)
	if !ok {
		b.tree.Missing = append(b.tree.Missing, ref)
		return nil
	}
	b.records[ref] = struct{}{}
	n.Active = active
	n.Depth = depth

	if n.DescendantID == "" {
		return n
	}
	child, ok := b.c.Descendants[n.DescendantID]
	if !ok || child.Len() == 0 {
		return n
	}
	if _, expanded := b.descendants[n.DescendantID]; expanded {
		b.tree.Cycles = append(b.tree.Cycles, ref)
		return n
	}
	if depth+1 >= b.maxDepth {
		b.tree.Truncated = append(b.tree.Truncated, ref)
		return n
	}
	b.descendants[n.DescendantID] = struct{}{}
	n.Children = b.children(child, depth+1)
	return n
}

func (b *builder) materialize(ref descendant.Ref) (*Node, bool) {
	n := &Node{Ref: ref}
	switch ref.Type {
	case descendant.RefItem:
		record, ok := b.c.Items[ref.ID]
		if !ok {
			return nil, false
		}
		n.Item = &record
		n.Display = b.interpolate(record.Title)
		n.DescendantID = record.DescendantID
	case descendant.RefList:
		record, ok := b.c.Lists[ref.ID]
		if !ok {
			return nil, false
		}
		n.List = &record
		n.Display = b.interpolate(record.Title)
		n.DescendantID = record.DescendantID
	case descendant.RefChecklist:
		record, ok := b.c.Checklists[ref.ID]
		if !ok {
			return nil, false
		}
		n.Checklist = &record
		n.Display = b.interpolate(record.Title)
	case descendant.RefNote:
		record, ok := b.c.Notes[ref.ID]
		if !ok {
			return nil, false
		}
		n.Note = &record
		n.Display = b.interpolate(firstLine(record.Body))
	case descendant.RefJournal:
		view, ok := b.c.Journals[ref.ID]
		if !ok {
			return nil, false
		}
		n.Journal = &view
		n.Display = view.Title
		n.DescendantID = view.DescendantID
	case descendant.RefJournalPrompt:
		view, ok := b.c.Prompts[ref.ID]
		if !ok {
			return nil, false
		}
		n.Prompt = &view
		n.Display = b.interpolate(view.Text)
	case descendant.RefJournalFragment:
		view, ok := b.c.Fragments[ref.ID]
		if !ok {
			return nil, false
		}
		n.Fragment = &view
		n.Display = view.Preview
	default:
		return nil, false
	}
	return n, true
}

func (b *builder) interpolate(text string) string {
	if b.opts.Tokens.Date.IsZero() {
		return text
	}
	return tokens.Interpolate(text, b.opts.Tokens)
}

func firstLine(text string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	return strings.TrimSpace(line)
}
