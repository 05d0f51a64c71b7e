// Package domain implements registration, password authentication and the
// session lifecycle.
package domain

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"
	"unicode/utf8"

	apperrors "github.com/doosr/doosr/internal/platform/errors"
	"github.com/doosr/doosr/internal/platform/i18n"
	"github.com/doosr/doosr/internal/platform/id"
	"github.com/doosr/doosr/internal/services/auth/session"
	"github.com/doosr/doosr/internal/services/auth/storage"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/language"
)

// MinPasswordLength is the shortest accepted password, in characters.
const MinPasswordLength = 10

const maxPasswordBytes = 72

var (
	ErrStoreNotConfigured = apperrors.New(apperrors.KindUnavailable, "errors.unavailable", "auth store is not configured")
	ErrUserIDRequired     = apperrors.New(apperrors.KindUnauthorized, "errors.unauthorized", "user id is required")
	ErrInvalidEmail       = apperrors.New(apperrors.KindInvalidInput, "auth.errors.invalid_email", "email address is invalid")
	ErrPasswordTooShort   = apperrors.New(apperrors.KindInvalidInput, "auth.errors.password_too_short", "password is too short")
	ErrPasswordTooLong    = apperrors.New(apperrors.KindInvalidInput, "auth.errors.password_too_long", "password is too long")
	ErrInvalidTimeZone    = apperrors.New(apperrors.KindInvalidInput, "auth.errors.invalid_time_zone", "time zone is unknown")
	ErrEmailTaken         = apperrors.New(apperrors.KindConflict, "auth.errors.email_taken", "email is already registered")
	ErrInvalidCredentials = apperrors.New(apperrors.KindUnauthorized, "auth.errors.invalid_credentials", "email or password is incorrect")
	ErrSessionInvalid     = apperrors.New(apperrors.KindUnauthorized, "auth.errors.session_invalid", "session is invalid or expired")
	ErrNotFound           = apperrors.New(apperrors.KindNotFound, "auth.errors.not_found", "user not found")
)

// User is a registered account without its password hash.
type User struct {
	ID          string
	Email       string
	DisplayName string
	Locale      string
	TimeZone    string
	CreatedAt   time.Time
}

// Location returns the user's time zone, UTC when unset or unknown.
func (u User) Location() *time.Location {
	if loc, err := time.LoadLocation(u.TimeZone); err == nil && u.TimeZone != "" {
		return loc
	}
	return time.UTC
}

// RegisterInput carries a sign-up form.
type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
	Locale      string
	TimeZone    string
}

// Preferences carries the editable profile fields.
type Preferences struct {
	DisplayName string
	Locale      string
	TimeZone    string
}

// Session is a verified signed-in session.
type Session struct {
	ID        string
	User      User
	Token     string
	ExpiresAt time.Time
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

// WithBcryptCost overrides the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.cost = cost
		}
	}
}

// Service orchestrates accounts and sessions.
type Service struct {
	store  storage.Store
	tokens *session.Issuer
	clock  func() time.Time
	newID  func() (string, error)
	cost   int

	dummyOnce sync.Once
	dummyHash []byte
}

// NewService constructs auth use-cases.
func NewService(store storage.Store, tokens *session.Issuer, opts ...Option) *Service {
	s := &Service{store: store, tokens: tokens, clock: time.Now, newID: id.NewID, cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an account. Emails are compared case-insensitively.
func (s *Service) Register(ctx context.Context, input RegisterInput) (User, error) {
	if s == nil || s.store == nil {
		return User{}, ErrStoreNotConfigured
	}
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return User{}, err
	}
	if err := validatePassword(input.Password); err != nil {
		return User{}, err
	}
	prefs, err := normalizePreferences(Preferences{DisplayName: input.DisplayName, Locale: input.Locale, TimeZone: input.TimeZone})
	if err != nil {
		return User{}, err
	}
	if prefs.DisplayName == "" {
		prefs.DisplayName = strings.SplitN(email, "@", 2)[0]
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	userID, err := s.newID()
	if err != nil {
		return User{}, fmt.Errorf("generate user id: %w", err)
	}
	now := s.now()
	record := storage.UserRecord{
		ID:           userID,
		Email:        email,
		DisplayName:  prefs.DisplayName,
		PasswordHash: string(hash),
		Locale:       prefs.Locale,
		TimeZone:     prefs.TimeZone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.PutUser(ctx, record); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return User{}, ErrEmailTaken
		}
		return User{}, err
	}
	return userFromRecord(record), nil
}

// Authenticate checks an email and password pair.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	if s == nil || s.store == nil {
		return User{}, ErrStoreNotConfigured
	}
	normalized, err := normalizeEmail(email)
	if err != nil {
		return User{}, ErrInvalidCredentials
	}
	record, err := s.store.GetUserByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Unknown emails pay the same bcrypt cost as wrong passwords.
			_ = bcrypt.CompareHashAndPassword(s.placeholderHash(), []byte(password))
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(record.PasswordHash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return userFromRecord(record), nil
}

// User returns one account.
func (s *Service) User(ctx context.Context, userID string) (User, error) {
	if s == nil || s.store == nil {
		return User{}, ErrStoreNotConfigured
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return User{}, ErrUserIDRequired
	}
	record, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return User{}, mapStoreErr(err)
	}
	return userFromRecord(record), nil
}

// Locale returns the language userID reads in, the default language when the
// user cannot be loaded.
func (s *Service) Locale(ctx context.Context, userID string) language.Tag {
	user, err := s.User(ctx, userID)
	if err != nil {
		return i18n.DefaultTag()
	}
	tag, _ := i18n.ParseTag(user.Locale)
	return tag
}

// ListUserIDs lists every account id, oldest first.
func (s *Service) ListUserIDs(ctx context.Context) ([]string, error) {
	if s == nil || s.store == nil {
		return nil, ErrStoreNotConfigured
	}
	return s.store.ListUserIDs(ctx)
}

// UpdatePreferences changes the display name, language and time zone.
func (s *Service) UpdatePreferences(ctx context.Context, userID string, prefs Preferences) (User, error) {
	if s == nil || s.store == nil {
		return User{}, ErrStoreNotConfigured
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return User{}, ErrUserIDRequired
	}
	current, err := s.User(ctx, userID)
	if err != nil {
		return User{}, err
	}
	prefs, err = normalizePreferences(prefs)
	if err != nil {
		return User{}, err
	}
	if prefs.DisplayName == "" {
		prefs.DisplayName = current.DisplayName
	}
	record, err := s.store.UpdateUserPreferences(ctx, userID, prefs.DisplayName, prefs.Locale, prefs.TimeZone, s.now())
	if err != nil {
		return User{}, mapStoreErr(err)
	}
	return userFromRecord(record), nil
}

// StartSession records a new session for userID and returns its signed
// token.
func (s *Service) StartSession(ctx context.Context, userID, userAgent string) (Session, error) {
	if s == nil || s.store == nil || s.tokens == nil {
		return Session{}, ErrStoreNotConfigured
	}
	user, err := s.User(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	sessionID, err := s.newID()
	if err != nil {
		return Session{}, fmt.Errorf("generate session id: %w", err)
	}
	token, claims, err := s.tokens.Issue(user.ID, sessionID)
	if err != nil {
		return Session{}, err
	}
	if err := s.store.PutSession(ctx, storage.SessionRecord{
		ID:        sessionID,
		UserID:    user.ID,
		UserAgent: truncate(strings.TrimSpace(userAgent), 256),
		CreatedAt: s.now(),
		ExpiresAt: claims.ExpiresAt,
	}); err != nil {
		return Session{}, mapStoreErr(err)
	}
	return Session{ID: sessionID, User: user, Token: token, ExpiresAt: claims.ExpiresAt}, nil
}

// ResolveSession verifies token and loads its user. Revoked, expired and
// forged tokens all return ErrSessionInvalid.
func (s *Service) ResolveSession(ctx context.Context, token string) (Session, error) {
	if s == nil || s.store == nil || s.tokens == nil {
		return Session{}, ErrStoreNotConfigured
	}
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrSessionInvalid, err)
	}
	record, err := s.store.GetSession(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Session{}, ErrSessionInvalid
		}
		return Session{}, err
	}
	if record.UserID != claims.UserID || !record.RevokedAt.IsZero() || !s.now().Before(record.ExpiresAt) {
		return Session{}, ErrSessionInvalid
	}
	user, err := s.User(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrSessionInvalid
		}
		return Session{}, err
	}
	return Session{ID: record.ID, User: user, Token: token, ExpiresAt: record.ExpiresAt}, nil
}

// EndSession revokes the session behind token. Unknown tokens are ignored.
func (s *Service) EndSession(ctx context.Context, token string) error {
	if s == nil || s.store == nil || s.tokens == nil {
		return ErrStoreNotConfigured
	}
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil
	}
	if err := s.store.RevokeSession(ctx, claims.SessionID, s.now()); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	return nil
}

// PruneSessions deletes expired sessions.
func (s *Service) PruneSessions(ctx context.Context) (int64, error) {
	if s == nil || s.store == nil {
		return 0, ErrStoreNotConfigured
	}
	return s.store.DeleteExpiredSessions(ctx, s.now())
}

func (s *Service) placeholderHash() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("placeholder-password"), s.cost)
	})
	return s.dummyHash
}

func (s *Service) now() time.Time {
	return s.clock().UTC()
}

func normalizeEmail(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	parsed, err := mail.ParseAddress(raw)
	if err != nil || parsed.Address != raw {
		return "", ErrInvalidEmail
	}
	return strings.ToLower(parsed.Address), nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	// bcrypt ignores everything past 72 bytes.
	if len(password) > maxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}

func normalizePreferences(prefs Preferences) (Preferences, error) {
	prefs.DisplayName = truncate(strings.TrimSpace(prefs.DisplayName), 80)
	tag, _ := i18n.ParseTag(prefs.Locale)
	prefs.Locale = i18n.Locale(tag)
	prefs.TimeZone = strings.TrimSpace(prefs.TimeZone)
	if prefs.TimeZone == "" {
		prefs.TimeZone = "UTC"
	}
	if _, err := time.LoadLocation(prefs.TimeZone); err != nil {
		return Preferences{}, ErrInvalidTimeZone
	}
	return prefs, nil
}

func truncate(value string, limit int) string {
	if utf8.RuneCountInString(value) <= limit {
		return value
	}
	return string([]rune(value)[:limit])
}

func mapStoreErr(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func userFromRecord(record storage.UserRecord) User {
	return User{
		ID:          record.ID,
		Email:       record.Email,
		DisplayName: record.DisplayName,
		Locale:      record.Locale,
		TimeZone:    record.TimeZone,
		CreatedAt:   record.CreatedAt,
	}
}
