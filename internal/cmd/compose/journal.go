// Package compose holds the adapters that let independent services call
// each other. Process commands wire them; services never import one
// another.
package compose

import (
	"context"

	journaldomain "github.com/doosr/doosr/internal/services/journal/domain"
	"github.com/doosr/doosr/internal/services/planner/descendant"
	"github.com/doosr/doosr/internal/services/planner/tree"
)

// Descendants is the planner surface journal outlines need.
type Descendants interface {
	NewOwnedDescendant(ctx context.Context, userID string, ownerType descendant.OwnerType, ownerID string) (descendant.Descendant, error)
	AttachRef(ctx context.Context, userID, parentID string, ref descendant.Ref) error
	DeleteOwnedDescendant(ctx context.Context, userID string, ownerType descendant.OwnerType, descendantID string) error
}

// Journals is the journal surface planner trees need.
type Journals interface {
	JournalViews(ctx context.Context, userID string, journalIDs []string) (map[string]journaldomain.JournalView, error)
	PromptViews(ctx context.Context, userID string, promptIDs []string) (map[string]journaldomain.PromptView, error)
	FragmentViews(ctx context.Context, userID string, fragmentIDs []string) (map[string]journaldomain.FragmentView, error)
}

// Outline orders journal content with planner descendants.
type Outline struct {
	Planner Descendants
}

var _ journaldomain.Outline = Outline{}

// CreateOutline creates a journal-owned descendant.
func (o Outline) CreateOutline(ctx context.Context, userID, journalID string) (string, error) {
	d, err := o.Planner.NewOwnedDescendant(ctx, userID, descendant.OwnerJournal, journalID)
	if err != nil {
		return "", err
	}
	return d.ID, nil
}

// AppendToOutline appends a journal child to outlineID.
func (o Outline) AppendToOutline(ctx context.Context, userID, outlineID, kind, childID string) error {
	return o.Planner.AttachRef(ctx, userID, outlineID, descendant.Ref{Type: descendant.RefType(kind), ID: childID})
}

// DeleteOutline removes a journal-owned descendant.
func (o Outline) DeleteOutline(ctx context.Context, userID, outlineID string) error {
	return o.Planner.DeleteOwnedDescendant(ctx, userID, descendant.OwnerJournal, outlineID)
}

// Source renders journal records inside planner trees.
type Source struct {
	Journals Journals
}

var _ tree.JournalSource = Source{}

// JournalViews converts journal projections for tree rendering.
func (s Source) JournalViews(ctx context.Context, userID string, journalIDs []string) (map[string]tree.JournalView, error) {
	views, err := s.Journals.JournalViews(ctx, userID, journalIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]tree.JournalView, len(views))
	for id, v := range views {
		out[id] = tree.JournalView{ID: v.ID, Title: v.Title, Encrypted: v.Encrypted, DescendantID: v.DescendantID}
	}
	return out, nil
}

// PromptViews converts prompt projections for tree rendering.
func (s Source) PromptViews(ctx context.Context, userID string, promptIDs []string) (map[string]tree.PromptView, error) {
	views, err := s.Journals.PromptViews(ctx, userID, promptIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]tree.PromptView, len(views))
	for id, v := range views {
		out[id] = tree.PromptView{ID: v.ID, Text: v.Text}
	}
	return out, nil
}

// FragmentViews converts fragment projections for tree rendering.
func (s Source) FragmentViews(ctx context.Context, userID string, fragmentIDs []string) (map[string]tree.FragmentView, error) {
	views, err := s.Journals.FragmentViews(ctx, userID, fragmentIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]tree.FragmentView, len(views))
	for id, v := range views {
		out[id] = tree.FragmentView{
			ID:        v.ID,
			JournalID: v.JournalID,
			PromptID:  v.PromptID,
			Preview:   v.Preview,
			Locked:    v.Locked,
			CreatedAt: v.CreatedAt,
		}
	}
	return out, nil
}
