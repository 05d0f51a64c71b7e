// Package domain implements journals, prompts and fragments, including
// end-to-end encryption of fragment content with a mnemonic-derived key.
package domain

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/doosr/doosr/internal/platform/errors"
	"github.com/doosr/doosr/internal/platform/id"
	"github.com/doosr/doosr/internal/services/journal/crypto"
	"github.com/doosr/doosr/internal/services/journal/storage"
)

const previewRunes = 80

var (
	ErrStoreNotConfigured = apperrors.New(apperrors.KindUnavailable, "errors.unavailable", "journal store is not configured")
	ErrUserIDRequired     = apperrors.New(apperrors.KindUnauthorized, "errors.unauthorized", "user id is required")
	ErrTitleRequired      = apperrors.New(apperrors.KindInvalidInput, "journal.errors.title_required", "journal title is required")
	ErrContentRequired    = apperrors.New(apperrors.KindInvalidInput, "journal.errors.content_required", "fragment content is required")
	ErrPromptTextRequired = apperrors.New(apperrors.KindInvalidInput, "journal.errors.prompt_required", "prompt text is required")
	ErrInvalidDate        = apperrors.New(apperrors.KindInvalidInput, "journal.errors.invalid_date", "date must be YYYY-MM-DD")
	ErrNotFound           = apperrors.New(apperrors.KindNotFound, "journal.errors.not_found", "journal record not found")
	ErrNoPrompts          = apperrors.New(apperrors.KindNotFound, "journal.errors.no_prompts", "no active prompts")
	ErrEncryptionNotSetup = apperrors.New(apperrors.KindConflict, "journal.errors.encryption_not_setup", "journal encryption is not set up")
	ErrEncryptionSetup    = apperrors.New(apperrors.KindConflict, "journal.errors.encryption_setup", "journal encryption is already set up")
	ErrLocked             = apperrors.New(apperrors.KindLocked, "journal.errors.locked", "journal is locked")
	ErrSessionRequired    = apperrors.New(apperrors.KindUnauthorized, "errors.unauthorized", "session id is required")
	ErrInvalidMnemonic    = apperrors.New(apperrors.KindInvalidInput, "journal.errors.invalid_mnemonic", "recovery phrase is invalid")
	ErrWrongMnemonic      = apperrors.New(apperrors.KindForbidden, "journal.errors.wrong_mnemonic", "recovery phrase does not match")
	ErrCorruptFragment    = apperrors.New(apperrors.KindUnknown, "errors.unknown", "fragment could not be decrypted")
)

// Outline is the planner port ordering journal content.
type Outline interface {
	// CreateOutline creates an empty ordered child list owned by a journal
	// and returns its id.
	CreateOutline(ctx context.Context, userID, journalID string) (string, error)
	// AppendToOutline appends a typed child ("journal", "journal_prompt" or
	// "journal_fragment") to outlineID.
	AppendToOutline(ctx context.Context, userID, outlineID, kind, childID string) error
	// DeleteOutline removes an outline created by CreateOutline.
	DeleteOutline(ctx context.Context, userID, outlineID string) error
}

// Outline child kinds.
const (
	KindJournal  = "journal"
	KindPrompt   = "journal_prompt"
	KindFragment = "journal_fragment"
)

// Journal is a named journal.
type Journal struct {
	ID           string
	UserID       string
	Title        string
	Encrypted    bool
	DescendantID string
	CreatedAt    time.Time
}

// Prompt is a reusable journaling question.
type Prompt struct {
	ID        string
	Text      string
	Active    bool
	CreatedAt time.Time
}

// Fragment is a journal entry as seen by one session. Locked fragments
// carry no content.
type Fragment struct {
	ID        string
	JournalID string
	PromptID  string
	Content   string
	Encrypted bool
	Locked    bool
	CreatedAt time.Time
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

// WithIterations overrides the PBKDF2 work factor for new key material.
func WithIterations(iterations int) Option {
	return func(s *Service) {
		if iterations > 0 {
			s.iterations = iterations
		}
	}
}

// WithOutline attaches the planner outline port.
func WithOutline(outline Outline) Option {
	return func(s *Service) { s.outline = outline }
}

// Service orchestrates journal behavior.
type Service struct {
	store      storage.Store
	keyring    *crypto.Keyring
	outline    Outline
	clock      func() time.Time
	newID      func() (string, error)
	iterations int
}

// NewService constructs journal use-cases. A nil keyring gets a default one.
func NewService(store storage.Store, keyring *crypto.Keyring, opts ...Option) *Service {
	s := &Service{
		store:      store,
		keyring:    keyring,
		clock:      time.Now,
		newID:      id.NewID,
		iterations: crypto.DefaultIterations,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.keyring == nil {
		s.keyring = crypto.NewKeyring(0, s.clock)
	}
	return s
}

// Keyring exposes the session keyring for sweeping.
func (s *Service) Keyring() *crypto.Keyring {
	return s.keyring
}

// CreateJournal creates a journal and its outline. Encrypted journals need
// key material. A non-empty parentID attaches the journal there.
func (s *Service) CreateJournal(ctx context.Context, userID, title string, encrypted bool, parentID string) (Journal, error) {
	userID, err := s.begin(userID)
	if err != nil {
		return Journal{}, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return Journal{}, ErrTitleRequired
	}
	if encrypted {
		if _, err := s.store.GetKeyMaterial(ctx, userID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return Journal{}, ErrEncryptionNotSetup
			}
			return Journal{}, err
		}
	}
	journalID, err := s.newID()
	if err != nil {
		return Journal{}, err
	}
	record := storage.JournalRecord{ID: journalID, UserID: userID, Title: title, Encrypted: encrypted, CreatedAt: s.now(), UpdatedAt: s.now()}
	if s.outline != nil {
		record.DescendantID, err = s.outline.CreateOutline(ctx, userID, journalID)
		if err != nil {
			return Journal{}, err
		}
	}
	if err := s.store.PutJournal(ctx, record); err != nil {
		return Journal{}, errors.Join(err, s.deleteOutline(ctx, userID, record.DescendantID))
	}
	if parentID = strings.TrimSpace(parentID); parentID != "" && s.outline != nil {
		if err := s.outline.AppendToOutline(ctx, userID, parentID, KindJournal, journalID); err != nil {
			cleanup := s.store.DeleteJournal(context.WithoutCancel(ctx), userID, journalID)
			return Journal{}, errors.Join(err, cleanup, s.deleteOutline(ctx, userID, record.DescendantID))
		}
	}
	return journalFromRecord(record), nil
}

// ListJournals lists a user's journals oldest first.
func (s *Service) ListJournals(ctx context.Context, userID string) ([]Journal, error) {
	userID, err := s.begin(userID)
	if err != nil {
		return nil, err
	}
	records, err := s.store.ListJournals(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]Journal, 0, len(records))
	for _, record := range records {
		out = append(out, journalFromRecord(record))
	}
	return out, nil
}

// Journal loads one journal.
func (s *Service) Journal(ctx context.Context, userID, journalID string) (Journal, error) {
	userID, err := s.begin(userID)
	if err != nil {
		return Journal{}, err
	}
	record, err := s.store.GetJournal(ctx, userID, strings.TrimSpace(journalID))
	if err != nil {
		return Journal{}, mapStoreErr(err)
	}
	return journalFromRecord(record), nil
}

// AddFragment writes an entry, sealing it when the journal is encrypted.
// promptID is optional.
func (s *Service) AddFragment(ctx context.Context, userID, sessionID, journalID, promptID, content string) (Fragment, error) {
	userID, err := s.begin(userID)
	if err != nil {
		return Fragment{}, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return Fragment{}, ErrContentRequired
	}
	journal, err := s.store.GetJournal(ctx, userID, strings.TrimSpace(journalID))
	if err != nil {
		return Fragment{}, mapStoreErr(err)
	}
	if promptID = strings.TrimSpace(promptID); promptID != "" {
		if _, err := s.store.GetPrompt(ctx, userID, promptID); err != nil {
			return Fragment{}, mapStoreErr(err)
		}
	}
	fragmentID, err := s.newID()
	if err != nil {
		return Fragment{}, err
	}
	now := s.now()
	record := storage.FragmentRecord{
		ID: fragmentID, UserID: userID, JournalID: journal.ID, PromptID: promptID,
		Encrypted: journal.Encrypted, CreatedAt: now, UpdatedAt: now,
	}
	if journal.Encrypted {
		key, err := s.sessionKey(userID, sessionID)
		if err != nil {
			return Fragment{}, err
		}
		defer crypto.Zero(key)
		record.Ciphertext, err = crypto.Seal(key, []byte(content), crypto.FragmentAAD(userID, fragmentID))
		if err != nil {
			return Fragment{}, err
		}
	} else {
		record.Content = content
	}
	if err := s.store.PutFragment(ctx, record); err != nil {
		return Fragment{}, mapStoreErr(err)
	}
	if s.outline != nil && journal.DescendantID != "" {
		if err := s.outline.AppendToOutline(ctx, userID, journal.DescendantID, KindFragment, fragmentID); err != nil {
			return Fragment{}, errors.Join(err, s.store.DeleteFragment(context.WithoutCancel(ctx), userID, fragmentID))
		}
	}
	return Fragment{
		ID: record.ID, JournalID: record.JournalID, PromptID: record.PromptID, Content: content,
		Encrypted: record.Encrypted, CreatedAt: record.CreatedAt,
	}, nil
}

// Fragments lists a journal's entries as seen by sessionID: sealed content
// is opened when the session is unlocked and marked Locked otherwise.
func (s *Service) Fragments(ctx context.Context, userID, sessionID, journalID string) ([]Fragment, error) {
	userID, err := s.begin(userID)
	if err != nil {
		return nil, err
	}
	journal, err := s.store.GetJournal(ctx, userID, strings.TrimSpace(journalID))
	if err != nil {
		return nil, mapStoreErr(err)
	}
	records, err := s.store.ListFragments(ctx, userID, journal.ID)
	if err != nil {
		return nil, err
	}
	return s.reveal(userID, sessionID, records)
}

func (s *Service) reveal(userID, sessionID string, records []storage.FragmentRecord) ([]Fragment, error) {
	var key []byte
	for _, record := range records {
		if record.Encrypted {
			key, _ = s.sessionKey(userID, sessionID)
			break
		}
	}
	defer crypto.Zero(key)

	out := make([]Fragment, 0, len(records))
	for _, record := range records {
		fragment := Fragment{
			ID: record.ID, JournalID: record.JournalID, PromptID: record.PromptID,
			Encrypted: record.Encrypted, CreatedAt: record.CreatedAt, Content: record.Content,
		}
		if record.Encrypted {
			if key == nil {
				fragment.Locked = true
			} else {
				plaintext, err := crypto.Open(key, record.Ciphertext, crypto.FragmentAAD(userID, record.ID))
				if err != nil {
					return nil, apperrors.Wrap(apperrors.KindUnknown, ErrCorruptFragment.Key, "open fragment "+record.ID, err)
				}
				fragment.Content = string(plaintext)
			}
		}
		out = append(out, fragment)
	}
	return out, nil
}

// CreatePrompt stores an active prompt.
func (s *Service) CreatePrompt(ctx context.Context, userID, text string) (Prompt, error) {
	userID, err := s.begin(userID)
	if err != nil {
		return Prompt{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Prompt{}, ErrPromptTextRequired
	}
	promptID, err := s.newID()
	if err != nil {
		return Prompt{}, err
	}
	now := s.now()
	record := storage.PromptRecord{ID: promptID, UserID: userID, Text: text, Active: true, CreatedAt: now, UpdatedAt: now}
	if err := s.store.PutPrompt(ctx, record); err != nil {
		return Prompt{}, err
	}
	return promptFromRecord(record), nil
}

// SetPromptActive toggles whether a prompt takes part in daily selection.
func (s *Service) SetPromptActive(ctx context.Context, userID, promptID string, active bool) (Prompt, error) {
	userID, err := s.begin(userID)
	if err != nil {
		return Prompt{}, err
	}
	record, err := s.store.GetPrompt(ctx, userID, strings.TrimSpace(promptID))
	if err != nil {
		return Prompt{}, mapStoreErr(err)
	}
	record.Active = active
	record.UpdatedAt = s.now()
	if err := s.store.PutPrompt(ctx, record); err != nil {
		return Prompt{}, err
	}
	return promptFromRecord(record), nil
}

// ListPrompts lists prompts oldest first.
func (s *Service) ListPrompts(ctx context.Context, userID string, activeOnly bool) ([]Prompt, error) {
	userID, err := s.begin(userID)
	if err != nil {
		return nil, err
	}
	records, err := s.store.ListPrompts(ctx, userID, activeOnly)
	if err != nil {
		return nil, err
	}
	out := make([]Prompt, 0, len(records))
	for _, record := range records {
		out = append(out, promptFromRecord(record))
	}
	return out, nil
}

// PromptForDate picks the active prompt for a civil date: the day of year
// modulo the number of active prompts, in creation order.
func (s *Service) PromptForDate(ctx context.Context, userID, date string) (Prompt, error) {
	parsed, err := time.Parse("2006-01-02", strings.TrimSpace(date))
	if err != nil {
		return Prompt{}, ErrInvalidDate
	}
	prompts, err := s.ListPrompts(ctx, userID, true)
	if err != nil {
		return Prompt{}, err
	}
	if len(prompts) == 0 {
		return Prompt{}, ErrNoPrompts
	}
	return prompts[parsed.YearDay()%len(prompts)], nil
}

// SetupEncryption creates key material for a user and returns the recovery
// phrase. The phrase is shown once and never stored.
func (s *Service) SetupEncryption(ctx context.Context, userID string) (string, error) {
	userID, err := s.begin(userID)
	if err != nil {
		return "", err
	}
	if _, err := s.store.GetKeyMaterial(ctx, userID); err == nil {
		return "", ErrEncryptionSetup
	} else if !errors.Is(err, storage.ErrNotFound) {
		return "", err
	}
	phrase, material, key, err := s.newMaterial(userID)
	if err != nil {
		return "", err
	}
	crypto.Zero(key)
	if err := s.store.PutKeyMaterial(ctx, material); err != nil {
		return "", err
	}
	return phrase, nil
}

// Unlock derives the key from phrase, checks it against the stored
// verifier, and holds it for sessionID.
func (s *Service) Unlock(ctx context.Context, userID, sessionID, phrase string) error {
	userID, err := s.begin(userID)
	if err != nil {
		return err
	}
	if sessionID = strings.TrimSpace(sessionID); sessionID == "" {
		return ErrSessionRequired
	}
	material, err := s.store.GetKeyMaterial(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrEncryptionNotSetup
	}
	if err != nil {
		return err
	}
	key, err := crypto.DeriveKey(phrase, material.Salt, material.Iterations)
	if err != nil {
		return ErrInvalidMnemonic
	}
	defer crypto.Zero(key)
	if err := crypto.CheckVerifier(key, material.Verifier); err != nil {
		return ErrWrongMnemonic
	}
	s.keyring.Put(sessionID, userID, key)
	return nil
}

// Lock forgets the session's key.
func (s *Service) Lock(sessionID string) {
	s.keyring.Delete(strings.TrimSpace(sessionID))
}

// IsUnlocked reports whether sessionID holds userID's key.
func (s *Service) IsUnlocked(userID, sessionID string) bool {
	key, ok := s.keyring.Get(strings.TrimSpace(sessionID), strings.TrimSpace(userID))
	crypto.Zero(key)
	return ok
}

// EncryptionEnabled reports whether the user has key material.
func (s *Service) EncryptionEnabled(ctx context.Context, userID string) (bool, error) {
	userID, err := s.begin(userID)
	if err != nil {
		return false, err
	}
	_, err = s.store.GetKeyMaterial(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// RotateMnemonic replaces the user's key: every sealed fragment is
// re-encrypted under a key from a fresh phrase, which is returned. The
// calling session must be unlocked; other sessions are locked.
func (s *Service) RotateMnemonic(ctx context.Context, userID, sessionID string) (string, error) {
	userID, err := s.begin(userID)
	if err != nil {
		return "", err
	}
	oldKey, err := s.sessionKey(userID, sessionID)
	if err != nil {
		return "", err
	}
	defer crypto.Zero(oldKey)
	existing, err := s.store.GetKeyMaterial(ctx, userID)
	if err != nil {
		return "", mapStoreErr(err)
	}
	phrase, material, newKey, err := s.newMaterial(userID)
	if err != nil {
		return "", err
	}
	defer crypto.Zero(newKey)
	material.CreatedAt = existing.CreatedAt

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx storage.Store) error {
		fragments, err := tx.ListEncryptedFragments(ctx, userID)
		if err != nil {
			return err
		}
		for _, fragment := range fragments {
			aad := crypto.FragmentAAD(userID, fragment.ID)
			plaintext, err := crypto.Open(oldKey, fragment.Ciphertext, aad)
			if err != nil {
				return apperrors.Wrap(apperrors.KindUnknown, ErrCorruptFragment.Key, "open fragment "+fragment.ID, err)
			}
			fragment.Ciphertext, err = crypto.Seal(newKey, plaintext, aad)
			crypto.Zero(plaintext)
			if err != nil {
				return err
			}
			fragment.UpdatedAt = material.UpdatedAt
			if err := tx.PutFragment(ctx, fragment); err != nil {
				return err
			}
		}
		return tx.PutKeyMaterial(ctx, material)
	})
	if err != nil {
		return "", err
	}
	s.keyring.DeleteUser(userID, "")
	s.keyring.Put(strings.TrimSpace(sessionID), userID, newKey)
	return phrase, nil
}

func (s *Service) newMaterial(userID string) (string, storage.KeyMaterial, []byte, error) {
	phrase, err := crypto.Generate()
	if err != nil {
		return "", storage.KeyMaterial{}, nil, err
	}
	salt, err := crypto.NewSalt()
	if err != nil {
		return "", storage.KeyMaterial{}, nil, err
	}
	key, err := crypto.DeriveKey(phrase, salt, s.iterations)
	if err != nil {
		return "", storage.KeyMaterial{}, nil, err
	}
	verifier, err := crypto.Verifier(key)
	if err != nil {
		crypto.Zero(key)
		return "", storage.KeyMaterial{}, nil, err
	}
	now := s.now()
	material := storage.KeyMaterial{UserID: userID, Salt: salt, Iterations: s.iterations, Verifier: verifier, CreatedAt: now, UpdatedAt: now}
	return phrase, material, key, nil
}

func (s *Service) sessionKey(userID, sessionID string) ([]byte, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrLocked
	}
	key, ok := s.keyring.Get(sessionID, userID)
	if !ok {
		return nil, ErrLocked
	}
	return key, nil
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

func (s *Service) now() time.Time {
	return s.clock().UTC()
}

func journalFromRecord(record storage.JournalRecord) Journal {
	return Journal{
		ID: record.ID, UserID: record.UserID, Title: record.Title, Encrypted: record.Encrypted,
		DescendantID: record.DescendantID, CreatedAt: record.CreatedAt,
	}
}

func promptFromRecord(record storage.PromptRecord) Prompt {
	return Prompt{ID: record.ID, Text: record.Text, Active: record.Active, CreatedAt: record.CreatedAt}
}

// deleteOutline undoes CreateOutline after a failed write. It runs even
// when ctx is canceled.
func (s *Service) deleteOutline(ctx context.Context, userID, outlineID string) error {
	if s.outline == nil || outlineID == "" {
		return nil
	}
	return s.outline.DeleteOutline(context.WithoutCancel(ctx), userID, outlineID)
}

func mapStoreErr(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// Preview returns the first line of content cut to a display length.
func Preview(content string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(content), "\n")
	line = strings.TrimSpace(line)
	if utf8.RuneCountInString(line) <= previewRunes {
		return line
	}
	runes := []rune(line)
	return string(runes[:previewRunes-1]) + "…"
}
