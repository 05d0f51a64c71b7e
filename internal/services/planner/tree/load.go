package tree

import (
	"context"
	"fmt"

	"github.com/doosr/doosr/internal/services/planner/descendant"
	"github.com/doosr/doosr/internal/services/planner/storage"
)

// Source is the planner storage subset Load reads from.
type Source interface {
	GetDescendant(ctx context.Context, userID, descendantID string) (descendant.Descendant, error)
	GetDescendants(ctx context.Context, userID string, descendantIDs []string) (map[string]descendant.Descendant, error)
	GetItems(ctx context.Context, userID string, itemIDs []string) (map[string]storage.ItemRecord, error)
	GetLists(ctx context.Context, userID string, listIDs []string) (map[string]storage.ListRecord, error)
	GetChecklists(ctx context.Context, userID string, checklistIDs []string) (map[string]storage.ChecklistRecord, error)
	GetNotes(ctx context.Context, userID string, noteIDs []string) (map[string]storage.NoteRecord, error)
}

// JournalSource resolves journal refs. Fragment previews come back
// decrypted only for sessions holding the journal key.
type JournalSource interface {
	JournalViews(ctx context.Context, userID string, journalIDs []string) (map[string]JournalView, error)
	PromptViews(ctx context.Context, userID string, promptIDs []string) (map[string]PromptView, error)
	FragmentViews(ctx context.Context, userID string, fragmentIDs []string) (map[string]FragmentView, error)
}

// Load gathers the records below rootID breadth-first, one batch query per
// record type per level, and builds the tree. journals may be nil, in which
// case journal refs are reported missing.
func Load(ctx context.Context, src Source, journals JournalSource, userID, rootID string, opts Options) (Tree, error) {
	if src == nil {
		return Tree{}, fmt.Errorf("tree source is required")
	}
	root, err := src.GetDescendant(ctx, userID, rootID)
	if err != nil {
		return Tree{}, fmt.Errorf("load root descendant: %w", err)
	}
	c := Collections{
		Descendants: map[string]descendant.Descendant{root.ID: root},
		Items:       map[string]storage.ItemRecord{},
		Lists:       map[string]storage.ListRecord{},
		Checklists:  map[string]storage.ChecklistRecord{},
		Notes:       map[string]storage.NoteRecord{},
		Journals:    map[string]JournalView{},
		Prompts:     map[string]PromptView{},
		Fragments:   map[string]FragmentView{},
	}
	l := loader{src: src, journals: journals, userID: userID, c: &c}

	frontier := []descendant.Descendant{root}
	for depth := 0; len(frontier) > 0 && depth < opts.maxDepth(); depth++ {
		next, err := l.level(ctx, frontier, opts.IncludeInactive)
		if err != nil {
			return Tree{}, err
		}
		frontier = next
	}
	return Build(root, c, opts), nil
}

type loader struct {
	src      Source
	journals JournalSource
	userID   string
	c        *Collections
}

// level loads every record referenced by frontier and returns the child
// descendants not seen before.
func (l loader) level(ctx context.Context, frontier []descendant.Descendant, includeInactive bool) ([]descendant.Descendant, error) {
	wanted := map[descendant.RefType][]string{}
	for _, d := range frontier {
		refs := d.Active
		if includeInactive {
			refs = d.Children()
		}
		for _, ref := range refs {
			if !l.loaded(ref) {
				wanted[ref.Type] = append(wanted[ref.Type], ref.ID)
			}
		}
	}

	var childIDs []string
	addChild := func(id string) {
		if id == "" {
			return
		}
		if _, ok := l.c.Descendants[id]; !ok {
			childIDs = append(childIDs, id)
		}
	}

	if ids := wanted[descendant.RefItem]; len(ids) > 0 {
		items, err := l.src.GetItems(ctx, l.userID, ids)
		if err != nil {
			return nil, fmt.Errorf("load items: %w", err)
		}
		for id, record := range items {
			l.c.Items[id] = record
			addChild(record.DescendantID)
		}
	}
	if ids := wanted[descendant.RefList]; len(ids) > 0 {
		lists, err := l.src.GetLists(ctx, l.userID, ids)
		if err != nil {
			return nil, fmt.Errorf("load lists: %w", err)
		}
		for id, record := range lists {
			l.c.Lists[id] = record
			addChild(record.DescendantID)
		}
	}
	if ids := wanted[descendant.RefChecklist]; len(ids) > 0 {
		checklists, err := l.src.GetChecklists(ctx, l.userID, ids)
		if err != nil {
			return nil, fmt.Errorf("load checklists: %w", err)
		}
		for id, record := range checklists {
			l.c.Checklists[id] = record
		}
	}
	if ids := wanted[descendant.RefNote]; len(ids) > 0 {
		notes, err := l.src.GetNotes(ctx, l.userID, ids)
		if err != nil {
			return nil, fmt.Errorf("load notes: %w", err)
		}
		for id, record := range notes {
			l.c.Notes[id] = record
		}
	}
	if l.journals != nil {
		if ids := wanted[descendant.RefJournal]; len(ids) > 0 {
			views, err := l.journals.JournalViews(ctx, l.userID, ids)
			if err != nil {
				return nil, fmt.Errorf("load journals: %w", err)
			}
			for id, view := range views {
				l.c.Journals[id] = view
				addChild(view.DescendantID)
			}
		}
		if ids := wanted[descendant.RefJournalPrompt]; len(ids) > 0 {
			views, err := l.journals.PromptViews(ctx, l.userID, ids)
			if err != nil {
				return nil, fmt.Errorf("load prompts: %w", err)
			}
			for id, view := range views {
				l.c.Prompts[id] = view
			}
		}
		if ids := wanted[descendant.RefJournalFragment]; len(ids) > 0 {
			views, err := l.journals.FragmentViews(ctx, l.userID, ids)
			if err != nil {
				return nil, fmt.Errorf("load fragments: %w", err)
			}
			for id, view := range views {
				l.c.Fragments[id] = view
			}
		}
	}

	if len(childIDs) == 0 {
		return nil, nil
	}
	children, err := l.src.GetDescendants(ctx, l.userID, childIDs)
	if err != nil {
		return nil, fmt.Errorf("load descendants: %w", err)
	}
	next := make([]descendant.Descendant, 0, len(children))
	for _, id := range childIDs {
		d, ok := children[id]
		if !ok {
			continue
		}
		if _, seen := l.c.Descendants[id]; seen {
			continue
		}
		l.c.Descendants[id] = d
		next = append(next, d)
	}
	return next, nil
}

func (l loader) loaded(ref descendant.Ref) bool {
	var ok bool
	switch ref.Type {
	case descendant.RefItem:
		_, ok = l.c.Items[ref.ID]
	case descendant.RefList:
		_, ok = l.c.Lists[ref.ID]
	case descendant.RefChecklist:
		_, ok = l.c.Checklists[ref.ID]
	case descendant.RefNote:
		_, ok = l.c.Notes[ref.ID]
	case descendant.RefJournal:
		_, ok = l.c.Journals[ref.ID]
	case descendant.RefJournalPrompt:
		_, ok = l.c.Prompts[ref.ID]
	case descendant.RefJournalFragment:
		_, ok = l.c.Fragments[ref.ID]
	}
	return ok
}
