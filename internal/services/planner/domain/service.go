// Package domain implements the planner use-cases: days, items, lists,
// checklists, notes and the descendant trees that order them.
package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/doosr/doosr/internal/core/tokens"
	apperrors "github.com/doosr/doosr/internal/platform/errors"
	"github.com/doosr/doosr/internal/platform/id"
	"github.com/doosr/doosr/internal/services/planner/descendant"
	"github.com/doosr/doosr/internal/services/planner/storage"
	"github.com/doosr/doosr/internal/services/planner/tree"
)

// DateLayout is the civil date format days are keyed by.
const DateLayout = "2006-01-02"

// Live channels and event names published after mutations. Changes to a
// day's own descendant go to that day's channel; changes that cannot be
// tied to one day, such as nested items or shared lists, go to
// ChannelPlanner.
const (
	ChannelPlanner        = "planner"
	EventDescendantUpdate = "descendant.updated"
	EventRecordUpdate     = "record.updated"
)

// DayChannel names the live channel of one civil date.
func DayChannel(date string) string { return "day:" + date }

// ListChannel names the live channel of one list.
func ListChannel(listID string) string { return "list:" + listID }

var (
	// ErrStoreNotConfigured indicates the service is missing persistence wiring.
	ErrStoreNotConfigured = apperrors.New(apperrors.KindUnavailable, "errors.unavailable", "planner store is not configured")
	// ErrUserIDRequired indicates the caller identity is missing.
	ErrUserIDRequired = apperrors.New(apperrors.KindUnauthorized, "errors.unauthorized", "user id is required")
	// ErrInvalidDate indicates a date is not YYYY-MM-DD.
	ErrInvalidDate = apperrors.New(apperrors.KindInvalidInput, "planner.errors.invalid_date", "date must be YYYY-MM-DD")
	// ErrTitleRequired indicates an empty title.
	ErrTitleRequired = apperrors.New(apperrors.KindInvalidInput, "planner.errors.title_required", "title is required")
	// ErrBodyRequired indicates an empty note body.
	ErrBodyRequired = apperrors.New(apperrors.KindInvalidInput, "planner.errors.body_required", "note body is required")
	// ErrInvalidState indicates an unknown item state.
	ErrInvalidState = apperrors.New(apperrors.KindInvalidInput, "planner.errors.invalid_state", "item state is invalid")
	// ErrInvalidRef indicates a malformed reference.
	ErrInvalidRef = apperrors.New(apperrors.KindInvalidInput, "planner.errors.invalid_ref", "reference is invalid")
	// ErrEntryIndex indicates a checklist entry index out of range.
	ErrEntryIndex = apperrors.New(apperrors.KindInvalidInput, "planner.errors.entry_index", "checklist entry index is out of range")
	// ErrNotFound indicates a planner record was not found for the user.
	ErrNotFound = apperrors.New(apperrors.KindNotFound, "planner.errors.not_found", "planner record not found")
	// ErrAlreadyAttached indicates the parent already holds the reference.
	ErrAlreadyAttached = apperrors.New(apperrors.KindConflict, "planner.errors.already_attached", "reference is already attached")
	// ErrNotAttached indicates the parent does not hold the reference.
	ErrNotAttached = apperrors.New(apperrors.KindNotFound, "planner.errors.not_attached", "reference is not attached")
)

// Publisher receives change notifications for live updates.
type Publisher interface {
	Publish(userID, channel, event string, data any)
}

// DescendantEvent is the payload of EventDescendantUpdate.
type DescendantEvent struct {
	DescendantID string               `json:"descendant_id"`
	OwnerType    descendant.OwnerType `json:"owner_type"`
	OwnerID      string               `json:"owner_id"`
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the wall clock.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithIDGenerator overrides record id generation.
func WithIDGenerator(newID func() (string, error)) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithPublisher attaches a live update publisher.
func WithPublisher(publisher Publisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

// WithJournals attaches the journal reader used when building trees.
func WithJournals(journals tree.JournalSource) Option {
	return func(s *Service) { s.journals = journals }
}

// Service orchestrates planner behavior for one store.
type Service struct {
	store     storage.Store
	clock     func() time.Time
	newID     func() (string, error)
	publisher Publisher
	journals  tree.JournalSource
}

// NewService constructs planner use-cases.
func NewService(store storage.Store, opts ...Option) *Service {
	s := &Service{store: store, clock: time.Now, newID: id.NewID}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetJournals attaches the journal reader after construction. Composition
// uses it to break the planner/journal construction cycle.
func (s *Service) SetJournals(journals tree.JournalSource) {
	s.journals = journals
}

// TreeOptions tunes tree reads.
type TreeOptions struct {
	MaxDepth        int
	IncludeInactive bool
}

// Day returns the user's day for date, creating it and its descendant on
// first access.
func (s *Service) Day(ctx context.Context, userID, date string) (storage.DayRecord, error) {
	userID, err := s.begin(userID)
	if err != nil {
		return storage.DayRecord{}, err
	}
	date, err = normalizeDate(date)
	if err != nil {
		return storage.DayRecord{}, err
	}
	day, err := s.store.GetDay(ctx, userID, date)
	if err == nil {
		return day, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return storage.DayRecord{}, err
	}

	now := s.now()
	dayID, err := s.newID()
	if err != nil {
		return storage.DayRecord{}, err
	}
	descID, err := s.newID()
	if err != nil {
		return storage.DayRecord{}, err
	}
	day = storage.DayRecord{ID: dayID, UserID: userID, Date: date, DescendantID: descID, CreatedAt: now, UpdatedAt: now}
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx storage.Store) error {
		d := descendant.Descendant{ID: descID, UserID: userID, OwnerType: descendant.OwnerDay, OwnerID: dayID, CreatedAt: now, UpdatedAt: now}
		if err := tx.PutDescendant(ctx, d); err != nil {
			return err
		}
		return tx.PutDay(ctx, day)
	})
	if errors.Is(err, storage.ErrConflict) {
		// Another request created the day first.
		return s.store.GetDay(ctx, userID, date)
	}
	if err != nil {
		return storage.DayRecord{}, err
	}
	return day, nil
}

// ListDays lists existing days between from and to inclusive.
func (s *Service) ListDays(ctx context.Context, userID, from, to string) ([]storage.DayRecord, error) {
	userID, err := s.begin(userID)
	if err != nil {
		return nil, err
	}
	if from, err = normalizeDate(from); err != nil {
		return nil, err
	}
	if to, err = normalizeDate(to); err != nil {
		return nil, err
	}
	if to < from {
		from, to = to, from
	}
	return s.store.ListDays(ctx, userID, from, to)
}

// DayTree materializes the day's hierarchy with titles interpolated for
// that date.
func (s *Service) DayTree(ctx context.Context, userID, date string, opts TreeOptions) (storage.DayRecord, tree.Tree, error) {
	day, err := s.Day(ctx, userID, date)
	if err != nil {
		return storage.DayRecord{}, tree.Tree{}, err
	}
	viewDate, _ := time.Parse(DateLayout, day.Date)
	t, err := s.load(ctx, day.UserID, day.DescendantID, opts, viewDate)
	if err != nil {
		return storage.DayRecord{}, tree.Tree{}, err
	}
	return day, t, nil
}

// ListTree materializes a list's hierarchy, interpolated for today.
func (s *Service) ListTree(ctx context.Context, userID, listID string) (storage.ListRecord, tree.Tree, error) {
	userID, err := s.begin(userID)
	if err != nil {
		return storage.ListRecord{}, tree.Tree{}, err
	}
	list, err := s.store.GetList(ctx, userID, strings.TrimSpace(listID))
	if err != nil {
		return storage.ListRecord{}, tree.Tree{}, mapStoreErr(err)
	}
	t, err := s.load(ctx, userID, list.DescendantID, TreeOptions{IncludeInactive: true}, s.now())
	if err != nil {
		return storage.ListRecord{}, tree.Tree{}, err
	}
	return list, t, nil
}

// Descendant loads one of the user's descendants.
func (s *Service) Descendant(ctx context.Context, userID, descendantID string) (descendant.Descendant, error) {
	userID, err := s.begin(userID)
	if err != nil {
		return descendant.Descendant{}, err
	}
	d, err := s.store.GetDescendant(ctx, userID, strings.TrimSpace(descendantID))
	return d, mapStoreErr(err)
}

func (s *Service) load(ctx context.Context, userID, rootID string, opts TreeOptions, viewDate time.Time) (tree.Tree, error) {
	t, err := tree.Load(ctx, s.store, s.journals, userID, rootID, tree.Options{
		MaxDepth:        opts.MaxDepth,
		IncludeInactive: opts.IncludeInactive,
		Tokens:          tokens.NewContext(viewDate),
	})
	if err != nil {
		return tree.Tree{}, mapStoreErr(err)
	}
	return t, nil
}

// AddItem creates an item under parentID at position; a negative position
// appends.
func (s *Service) AddItem(ctx context.Context, userID, parentID, title string, position int) (storage.ItemRecord, error) {
	userID, err := s.begin(userID)
	if err != nil {
		return storage.ItemRecord{}, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return storage.ItemRecord{}, ErrTitleRequired
	}
	itemID, descID, err := s.newIDPair()
	if err != nil {
		return storage.ItemRecord{}, err
	}
	now := s.now()
	item := storage.ItemRecord{ID: itemID, UserID: userID, Title: title, State: storage.ItemTodo, DescendantID: descID, CreatedAt: now, UpdatedAt: now}
	var parent descendant.Descendant
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx storage.Store) error {
		parent, err = loadParent(ctx, tx, userID, parentID)
		if err != nil {
			return err
		}
		own := descendant.Descendant{ID: descID, UserID: userID, OwnerType: descendant.OwnerItem, OwnerID: itemID, CreatedAt: now, UpdatedAt: now}
		if err := tx.PutDescendant(ctx, own); err != nil {
			return err
		}
		if err := tx.PutItem(ctx, item); err != nil {
			return err
		}
		ref := descendant.Ref{Type: descendant.RefItem, ID: itemID}
		if position < 0 {
			position = len(parent.Active)
		}
		if err := parent.Insert(ref, position, true); err != nil {
			return mapDescendantErr(err)
		}
		return s.saveParent(ctx, tx, &parent)
	})
	if err != nil {
		return storage.ItemRecord{}, err
	}
	s.publish(ctx, parent)
	return item, nil
}

// RenameItem changes an item's title.
func (s *Service) RenameItem(ctx context.Context, userID, itemID, title string) (storage.ItemRecord, error) {
	userID, err := s.begin(userID)
	if err != nil {
		return storage.ItemRecord{}, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return storage.ItemRecord{}, ErrTitleRequired
	}
	item, err := s.store.GetItem(ctx, userID, strings.TrimSpace(itemID))
	if err != nil {
		return storage.ItemRecord{}, mapStoreErr(err)
	}
	item.Title = title
	item.UpdatedAt = s.now()
	if err := s.store.PutItem(ctx, item); err != nil {
		return storage.ItemRecord{}, err
	}
	s.publishOwner(ctx, userID, item.DescendantID, descendant.OwnerItem, item.ID)
	return item, nil
}

// SetItemState changes an item's state and moves its ref between the
// parent's active and inactive lists to match.
func (s *Service) SetItemState(ctx context.Context, userID, parentID, itemID string, state storage.ItemState) (storage.ItemRecord, error) {
	userID, err := s.begin(userID)
	if err != nil {
		return storage.ItemRecord{}, err
	}
	state = storage.ItemState(strings.ToLower(strings.TrimSpace(string(state))))
	if !state.Valid() {
		return storage.ItemRecord{}, ErrInvalidState
	}
	var (
		item   storage.ItemRecord
		parent descendant.Descendant
	)
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx storage.Store) error {
		parent, err = loadParent(ctx, tx, userID, parentID)
		if err != nil {
			return err
		}
		item, err = tx.GetItem(ctx, userID, strings.TrimSpace(itemID))
		if err != nil {
			return mapStoreErr(err)
		}
		ref := descendant.Ref{Type: descendant.RefItem, ID: item.ID}
		if state.Open() {
			err = parent.Activate(ref)
		} else {
			err = parent.Deactivate(ref)
		}
		if err != nil {
			return mapDescendantErr(err)
		}
		now := s.now()
		switch {
		case state == storage.ItemDone && item.State != storage.ItemDone:
			item.CompletedAt = now
		case state != storage.ItemDone:
			item.CompletedAt = time.Time{}
		}
		item.State = state
		item.UpdatedAt = now
		if err := tx.PutItem(ctx, item); err != nil {
			return err
		}
		return s.saveParent(ctx, tx, &parent)
	})
	if err != nil {
		return storage.ItemRecord{}, err
	}
	s.publish(ctx, parent)
	return item, nil
}

// CreateList creates a standalone list.
func (s *Service) CreateList(ctx context.Context, userID, title string, reusable bool) (storage.ListRecord, error) {
	userID, err := s.begin(userID)
	if err != nil {
		return storage.ListRecord{}, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return storage.ListRecord{}, ErrTitleRequired
	}
	listID, descID, err := s.newIDPair()
	if err != nil {
		return storage.ListRecord{}, err
	}
	now := s.now()
	list := storage.ListRecord{ID: listID, UserID: userID, Title: title, Reusable: reusable, DescendantID: descID, CreatedAt: now, UpdatedAt: now}
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx storage.Store) error {
		own := descendant.Descendant{ID: descID, UserID: userID, OwnerType: descendant.OwnerList, OwnerID: listID, CreatedAt: now, UpdatedAt: now}
		if err := tx.PutDescendant(ctx, own); err != nil {
			return err
		}
		return tx.PutList(ctx, list)
	})
	if err != nil {
		return storage.ListRecord{}, err
	}
	return list, nil
}

// ListLists lists the user's lists, optionally only reusable ones.
func (s *Service) ListLists(ctx context.Context, userID string, reusableOnly bool) ([]storage.ListRecord, error) {
	userID, err := s.begin(userID)
	if err != nil {
		return nil, err
	}
	return s.store.ListLists(ctx, userID, reusableOnly)
}

// AttachList appends an existing list to parentID.
func (s *Service) AttachList(ctx context.Context, userID, parentID, listID string) error {
	userID, err := s.begin(userID)
	if err != nil {
		return err
	}
	if _, err := s.store.GetList(ctx, userID, strings.TrimSpace(listID)); err != nil {
		return mapStoreErr(err)
	}
	return s.AttachRef(ctx, userID, parentID, descendant.Ref{Type: descendant.RefList, ID: strings.TrimSpace(listID)})
}

// AddChecklist creates a checklist under parentID.
func (s *Service) AddChecklist(ctx context.Context, userID, parentID, title string, entries []string) (storage.ChecklistRecord, error) {
	userID, err := s.begin(userID)
	if err != nil {
		return storage.ChecklistRecord{}, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return storage.ChecklistRecord{}, ErrTitleRequired
	}
	checklistID, err := s.newID()
	if err != nil {
		return storage.ChecklistRecord{}, err
	}
	now := s.now()
	checklist := storage.ChecklistRecord{ID: checklistID, UserID: userID, Title: title, CreatedAt: now, UpdatedAt: now}
	for _, text := range entries {
		if text = strings.TrimSpace(text); text != "" {
			checklist.Entries = append(checklist.Entries, storage.ChecklistEntry{Text: text})
		}
	}
	parent, err := s.createUnder(ctx, userID, parentID, descendant.Ref{Type: descendant.RefChecklist, ID: checklistID}, func(ctx context.Context, tx storage.Store) error {
		return tx.PutChecklist(ctx, checklist)
	})
	if err != nil {
		return storage.ChecklistRecord{}, err
	}
	s.publish(ctx, parent)
	return checklist, nil
}

// ToggleChecklistEntry flips the checked flag of entry index.
func (s *Service) ToggleChecklistEntry(ctx context.Context, userID, checklistID string, index int) (storage.ChecklistRecord, error) {
	return s.updateChecklist(ctx, userID, checklistID, func(c *storage.ChecklistRecord) error {
		if index < 0 || index >= len(c.Entries) {
			return ErrEntryIndex
		}
		c.Entries[index].Checked = !c.Entries[index].Checked
		return nil
	})
}

// AddChecklistEntry appends an unchecked entry.
func (s *Service) AddChecklistEntry(ctx context.Context, userID, checklistID, text string) (storage.ChecklistRecord, error) {
	text = strings.TrimSpace(text)
	return s.updateChecklist(ctx, userID, checklistID, func(c *storage.ChecklistRecord) error {
		if text == "" {
			return ErrTitleRequired
		}
		c.Entries = append(c.Entries, storage.ChecklistEntry{Text: text})
		return nil
	})
}

func (s *Service) updateChecklist(ctx context.Context, userID, checklistID string, mutate func(*storage.ChecklistRecord) error) (storage.ChecklistRecord, error) {
	userID, err := s.begin(userID)
	if err != nil {
		return storage.ChecklistRecord{}, err
	}
	checklist, err := s.store.GetChecklist(ctx, userID, strings.TrimSpace(checklistID))
	if err != nil {
		return storage.ChecklistRecord{}, mapStoreErr(err)
	}
	if err := mutate(&checklist); err != nil {
		return storage.ChecklistRecord{}, err
	}
	checklist.UpdatedAt = s.now()
	if err := s.store.PutChecklist(ctx, checklist); err != nil {
		return storage.ChecklistRecord{}, err
	}
	s.publishRecord(userID, descendant.Ref{Type: descendant.RefChecklist, ID: checklist.ID})
	return checklist, nil
}

// AddNote creates a note under parentID.
func (s *Service) AddNote(ctx context.Context, userID, parentID, body string) (storage.NoteRecord, error) {
	userID, err := s.begin(userID)
	if err != nil {
		return storage.NoteRecord{}, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return storage.NoteRecord{}, ErrBodyRequired
	}
	noteID, err := s.newID()
	if err != nil {
		return storage.NoteRecord{}, err
	}
	now := s.now()
	note := storage.NoteRecord{ID: noteID, UserID: userID, Body: body, CreatedAt: now, UpdatedAt: now}
	parent, err := s.createUnder(ctx, userID, parentID, descendant.Ref{Type: descendant.RefNote, ID: noteID}, func(ctx context.Context, tx storage.Store) error {
		return tx.PutNote(ctx, note)
	})
	if err != nil {
		return storage.NoteRecord{}, err
	}
	s.publish(ctx, parent)
	return note, nil
}

// UpdateNote replaces a note's body.
func (s *Service) UpdateNote(ctx context.Context, userID, noteID, body string) (storage.NoteRecord, error) {
	userID, err := s.begin(userID)
	if err != nil {
		return storage.NoteRecord{}, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return storage.NoteRecord{}, ErrBodyRequired
	}
	note, err := s.store.GetNote(ctx, userID, strings.TrimSpace(noteID))
	if err != nil {
		return storage.NoteRecord{}, mapStoreErr(err)
	}
	note.Body = body
	note.UpdatedAt = s.now()
	if err := s.store.PutNote(ctx, note); err != nil {
		return storage.NoteRecord{}, err
	}
	s.publishRecord(userID, descendant.Ref{Type: descendant.RefNote, ID: note.ID})
	return note, nil
}

// AttachRef appends an existing record to parentID. Journal refs arrive
// here from the journal service.
func (s *Service) AttachRef(ctx context.Context, userID, parentID string, ref descendant.Ref) error {
	userID, err := s.begin(userID)
	if err != nil {
		return err
	}
	if err := ref.Validate(); err != nil {
		return ErrInvalidRef
	}
	parent, err := s.mutateParent(ctx, userID, parentID, func(d *descendant.Descendant) error {
		return d.Append(ref, true)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, parent)
	return nil
}

// NewOwnedDescendant creates an empty descendant for an owner living in
// another service, such as a journal.
func (s *Service) NewOwnedDescendant(ctx context.Context, userID string, ownerType descendant.OwnerType, ownerID string) (descendant.Descendant, error) {
	userID, err := s.begin(userID)
	if err != nil {
		return descendant.Descendant{}, err
	}
	ownerID = strings.TrimSpace(ownerID)
	if !ownerType.Valid() || ownerID == "" {
		return descendant.Descendant{}, ErrInvalidRef
	}
	descID, err := s.newID()
	if err != nil {
		return descendant.Descendant{}, err
	}
	now := s.now()
	d := descendant.Descendant{ID: descID, UserID: userID, OwnerType: ownerType, OwnerID: ownerID, CreatedAt: now, UpdatedAt: now}
	if err := s.store.PutDescendant(ctx, d); err != nil {
		return descendant.Descendant{}, err
	}
	return d, nil
}

// DeleteOwnedDescendant removes an empty descendant created by
// NewOwnedDescendant for an owner of ownerType.
func (s *Service) DeleteOwnedDescendant(ctx context.Context, userID string, ownerType descendant.OwnerType, descendantID string) error {
	userID, err := s.begin(userID)
	if err != nil {
		return err
	}
	return s.store.WithinTx(ctx, func(ctx context.Context, tx storage.Store) error {
		d, err := tx.GetDescendant(ctx, userID, strings.TrimSpace(descendantID))
		if err != nil {
			return mapStoreErr(err)
		}
		if d.OwnerType != ownerType || d.Len() > 0 {
			return ErrInvalidRef
		}
		return mapStoreErr(tx.DeleteDescendant(ctx, userID, d.ID))
	})
}

// MoveRef repositions ref within its list in parentID.
func (s *Service) MoveRef(ctx context.Context, userID, parentID string, ref descendant.Ref, index int) error {
	userID, err := s.begin(userID)
	if err != nil {
		return err
	}
	parent, err := s.mutateParent(ctx, userID, parentID, func(d *descendant.Descendant) error {
		return d.Move(ref, index)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, parent)
	return nil
}

// RemoveRef detaches ref from parentID. Items, checklists and notes no
// longer referenced anywhere are deleted.
func (s *Service) RemoveRef(ctx context.Context, userID, parentID string, ref descendant.Ref) error {
	userID, err := s.begin(userID)
	if err != nil {
		return err
	}
	var parent descendant.Descendant
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx storage.Store) error {
		parent, err = loadParent(ctx, tx, userID, parentID)
		if err != nil {
			return err
		}
		if err := parent.Remove(ref); err != nil {
			return mapDescendantErr(err)
		}
		if err := s.saveParent(ctx, tx, &parent); err != nil {
			return err
		}
		remaining, err := tx.CountReferences(ctx, userID, ref)
		if err != nil {
			return err
		}
		if remaining > 0 {
			return nil
		}
		return deleteOrphan(ctx, tx, userID, ref)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, parent)
	return nil
}

func deleteOrphan(ctx context.Context, tx storage.Store, userID string, ref descendant.Ref) error {
	ignoreMissing := func(err error) error {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}
	switch ref.Type {
	case descendant.RefItem:
		item, err := tx.GetItem(ctx, userID, ref.ID)
		if err != nil {
			return ignoreMissing(err)
		}
		if err := tx.DeleteItem(ctx, userID, item.ID); err != nil {
			return err
		}
		return ignoreMissing(tx.DeleteDescendant(ctx, userID, item.DescendantID))
	case descendant.RefChecklist:
		return ignoreMissing(tx.DeleteChecklist(ctx, userID, ref.ID))
	case descendant.RefNote:
		return ignoreMissing(tx.DeleteNote(ctx, userID, ref.ID))
	}
	return nil
}

// Rollover moves every open item from day from onto day to, appending and
// skipping refs already present. It returns the number of moved items.
func (s *Service) Rollover(ctx context.Context, userID, from, to string) (int, error) {
	userID, err := s.begin(userID)
	if err != nil {
		return 0, err
	}
	if from, err = normalizeDate(from); err != nil {
		return 0, err
	}
	if to, err = normalizeDate(to); err != nil {
		return 0, err
	}
	if from == to {
		return 0, nil
	}
	source, err := s.store.GetDay(ctx, userID, from)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	target, err := s.Day(ctx, userID, to)
	if err != nil {
		return 0, err
	}

	var (
		moved      int
		fromDesc   descendant.Descendant
		targetDesc descendant.Descendant
	)
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx storage.Store) error {
		fromDesc, err = tx.GetDescendant(ctx, userID, source.DescendantID)
		if err != nil {
			return err
		}
		targetDesc, err = tx.GetDescendant(ctx, userID, target.DescendantID)
		if err != nil {
			return err
		}
		var itemIDs []string
		for _, ref := range fromDesc.Active {
			if ref.Type == descendant.RefItem {
				itemIDs = append(itemIDs, ref.ID)
			}
		}
		if len(itemIDs) == 0 {
			return nil
		}
		items, err := tx.GetItems(ctx, userID, itemIDs)
		if err != nil {
			return err
		}
		for _, itemID := range itemIDs {
			item, ok := items[itemID]
			if !ok || !item.State.Open() {
				continue
			}
			ref := descendant.Ref{Type: descendant.RefItem, ID: itemID}
			if err := fromDesc.Remove(ref); err != nil {
				return err
			}
			if found, _ := targetDesc.Contains(ref); found {
				continue
			}
			if err := targetDesc.Append(ref, true); err != nil {
				return err
			}
			moved++
		}
		if err := s.saveParent(ctx, tx, &fromDesc); err != nil {
			return err
		}
		return s.saveParent(ctx, tx, &targetDesc)
	})
	if err != nil {
		return 0, err
	}
	if moved > 0 {
		s.publish(ctx, fromDesc)
		s.publish(ctx, targetDesc)
	}
	return moved, nil
}

func (s *Service) createUnder(ctx context.Context, userID, parentID string, ref descendant.Ref, put func(context.Context, storage.Store) error) (descendant.Descendant, error) {
	var parent descendant.Descendant
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx storage.Store) error {
		var err error
		parent, err = loadParent(ctx, tx, userID, parentID)
		if err != nil {
			return err
		}
		if err := put(ctx, tx); err != nil {
			return err
		}
		if err := parent.Append(ref, true); err != nil {
			return mapDescendantErr(err)
		}
		return s.saveParent(ctx, tx, &parent)
	})
	return parent, err
}

func (s *Service) mutateParent(ctx context.Context, userID, parentID string, mutate func(*descendant.Descendant) error) (descendant.Descendant, error) {
	var parent descendant.Descendant
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx storage.Store) error {
		var err error
		parent, err = loadParent(ctx, tx, userID, parentID)
		if err != nil {
			return err
		}
		if err := mutate(&parent); err != nil {
			return mapDescendantErr(err)
		}
		return s.saveParent(ctx, tx, &parent)
	})
	return parent, err
}

func loadParent(ctx context.Context, tx storage.Store, userID, parentID string) (descendant.Descendant, error) {
	parent, err := tx.GetDescendant(ctx, userID, strings.TrimSpace(parentID))
	if err != nil {
		return descendant.Descendant{}, mapStoreErr(err)
	}
	return parent, nil
}

func (s *Service) saveParent(ctx context.Context, tx storage.Store, parent *descendant.Descendant) error {
	parent.UpdatedAt = s.now()
	return tx.PutDescendant(ctx, *parent)
}

func (s *Service) publish(ctx context.Context, d descendant.Descendant) {
	if s.publisher == nil || d.ID == "" {
		return
	}
	event := DescendantEvent{DescendantID: d.ID, OwnerType: d.OwnerType, OwnerID: d.OwnerID}
	switch d.OwnerType {
	case descendant.OwnerDay:
		day, err := s.store.GetDayByID(ctx, d.UserID, d.OwnerID)
		if err == nil {
			s.publisher.Publish(d.UserID, DayChannel(day.Date), EventDescendantUpdate, event)
			return
		}
	case descendant.OwnerList:
		s.publisher.Publish(d.UserID, ListChannel(d.OwnerID), EventDescendantUpdate, event)
	}
	s.publisher.Publish(d.UserID, ChannelPlanner, EventDescendantUpdate, event)
}

func (s *Service) publishOwner(ctx context.Context, userID, descendantID string, ownerType descendant.OwnerType, ownerID string) {
	s.publish(ctx, descendant.Descendant{ID: descendantID, UserID: userID, OwnerType: ownerType, OwnerID: ownerID})
}

// publishRecord announces a change to a record without its own descendant.
func (s *Service) publishRecord(userID string, ref descendant.Ref) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(userID, ChannelPlanner, EventRecordUpdate, ref)
}

func (s *Service) begin(userID string) (string, error) {
	if s == nil || s.store == nil {
		return "", ErrStoreNotConfigured
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", ErrUserIDRequired
	}
	return userID, nil
}

func (s *Service) newIDPair() (string, string, error) {
	first, err := s.newID()
	if err != nil {
		return "", "", err
	}
	second, err := s.newID()
	if err != nil {
		return "", "", err
	}
	return first, second, nil
}

func (s *Service) now() time.Time {
	return s.clock().UTC()
}

func normalizeDate(value string) (string, error) {
	parsed, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return "", ErrInvalidDate
	}
	return parsed.Format(DateLayout), nil
}

func mapStoreErr(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func mapDescendantErr(err error) error {
	switch {
	case errors.Is(err, descendant.ErrDuplicateRef):
		return ErrAlreadyAttached
	case errors.Is(err, descendant.ErrRefNotFound):
		return ErrNotAttached
	case errors.Is(err, descendant.ErrInvalidRef):
		return ErrInvalidRef
	}
	return err
}
