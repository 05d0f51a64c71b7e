package domain

import (
	"context"
	"time"

	"github.com/doosr/doosr/internal/platform/requestctx"
	"github.com/doosr/doosr/internal/services/journal/crypto"
	"github.com/doosr/doosr/internal/services/journal/storage"
)

// JournalView is the outline-facing projection of a journal.
type JournalView struct {
	ID           string
	Title        string
	Encrypted    bool
	DescendantID string
}

// PromptView is the outline-facing projection of a prompt.
type PromptView struct {
	ID   string
	Text string
}

// FragmentView is the outline-facing projection of a fragment. The
// preview is only filled when the request's session holds the key.
type FragmentView struct {
	ID        string
	JournalID string
	PromptID  string
	Preview   string
	Locked    bool
	CreatedAt time.Time
}

// JournalViews batch-loads journals for tree rendering.
func (s *Service) JournalViews(ctx context.Context, userID string, journalIDs []string) (map[string]JournalView, error) {
	userID, err := s.begin(userID)
	if err != nil {
		return nil, err
	}
	records, err := s.store.GetJournals(ctx, userID, journalIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]JournalView, len(records))
	for id, record := range records {
		out[id] = JournalView{ID: record.ID, Title: record.Title, Encrypted: record.Encrypted, DescendantID: record.DescendantID}
	}
	return out, nil
}

// PromptViews batch-loads prompts for tree rendering.
func (s *Service) PromptViews(ctx context.Context, userID string, promptIDs []string) (map[string]PromptView, error) {
	userID, err := s.begin(userID)
	if err != nil {
		return nil, err
	}
	records, err := s.store.GetPrompts(ctx, userID, promptIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]PromptView, len(records))
	for id, record := range records {
		out[id] = PromptView{ID: record.ID, Text: record.Text}
	}
	return out, nil
}

// FragmentViews batch-loads fragments for tree rendering, opening sealed
// previews with the key of the session carried by ctx.
func (s *Service) FragmentViews(ctx context.Context, userID string, fragmentIDs []string) (map[string]FragmentView, error) {
	userID, err := s.begin(userID)
	if err != nil {
		return nil, err
	}
	records, err := s.store.GetFragments(ctx, userID, fragmentIDs)
	if err != nil {
		return nil, err
	}
	var key []byte
	for _, record := range records {
		if record.Encrypted {
			key, _ = s.sessionKey(userID, requestctx.SessionIDFromContext(ctx))
			break
		}
	}
	defer crypto.Zero(key)

	out := make(map[string]FragmentView, len(records))
	for id, record := range records {
		out[id] = fragmentView(userID, key, record)
	}
	return out, nil
}

func fragmentView(userID string, key []byte, record storage.FragmentRecord) FragmentView {
	view := FragmentView{ID: record.ID, JournalID: record.JournalID, PromptID: record.PromptID, CreatedAt: record.CreatedAt}
	if !record.Encrypted {
		view.Preview = Preview(record.Content)
		return view
	}
	if key == nil {
		view.Locked = true
		return view
	}
	plaintext, err := crypto.Open(key, record.Ciphertext, crypto.FragmentAAD(userID, record.ID))
	if err != nil {
		view.Locked = true
		return view
	}
	view.Preview = Preview(string(plaintext))
	crypto.Zero(plaintext)
	return view
}
