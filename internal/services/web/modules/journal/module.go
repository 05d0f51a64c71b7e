// Package journal serves journals, prompts and the encryption lifecycle.
package journal

import (
	"context"
	"net/http"
	"time"

	journaldomain "github.com/doosr/doosr/internal/services/journal/domain"
	module "github.com/doosr/doosr/internal/services/web/module"
	"github.com/doosr/doosr/internal/services/web/platform/modulehandler"
	"github.com/doosr/doosr/internal/services/web/routepath"
)

// Service is the journal surface the module drives.
type Service interface {
	CreateJournal(ctx context.Context, userID, title string, encrypted bool, parentID string) (journaldomain.Journal, error)
	ListJournals(ctx context.Context, userID string) ([]journaldomain.Journal, error)
	Journal(ctx context.Context, userID, journalID string) (journaldomain.Journal, error)
	AddFragment(ctx context.Context, userID, sessionID, journalID, promptID, content string) (journaldomain.Fragment, error)
	Fragments(ctx context.Context, userID, sessionID, journalID string) ([]journaldomain.Fragment, error)
	CreatePrompt(ctx context.Context, userID, text string) (journaldomain.Prompt, error)
	SetPromptActive(ctx context.Context, userID, promptID string, active bool) (journaldomain.Prompt, error)
	ListPrompts(ctx context.Context, userID string, activeOnly bool) ([]journaldomain.Prompt, error)
	PromptForDate(ctx context.Context, userID, date string) (journaldomain.Prompt, error)
	SetupEncryption(ctx context.Context, userID string) (string, error)
	Unlock(ctx context.Context, userID, sessionID, phrase string) error
	Lock(sessionID string)
	IsUnlocked(userID, sessionID string) bool
	EncryptionEnabled(ctx context.Context, userID string) (bool, error)
	RotateMnemonic(ctx context.Context, userID, sessionID string) (string, error)
}

// Module provides the /journal/ routes.
type Module struct {
	service Service
	base    modulehandler.Base
	now     func() time.Time
}

// New returns a journal module.
func New(service Service, base modulehandler.Base) Module {
	return Module{service: service, base: base, now: time.Now}
}

// WithClock returns a copy of m reading the current time from clock.
func (m Module) WithClock(clock func() time.Time) Module {
	if clock != nil {
		m.now = clock
	}
	return m
}

// ID returns a stable module identifier.
func (Module) ID() string { return "journal" }

// Mount wires journal route handlers.
func (m Module) Mount() (module.Mount, error) {
	mux := http.NewServeMux()
	registerRoutes(mux, handlers{Base: m.base, service: m.service, now: m.now})
	return module.Mount{Prefix: routepath.JournalPrefix, Handler: m.base.RequireUser(mux)}, nil
}
