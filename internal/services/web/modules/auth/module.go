// Package auth serves sign-in, registration, sign-out and account settings.
package auth

import (
	"context"
	"net/http"

	authdomain "github.com/doosr/doosr/internal/services/auth/domain"
	module "github.com/doosr/doosr/internal/services/web/module"
	"github.com/doosr/doosr/internal/services/web/platform/modulehandler"
	"github.com/doosr/doosr/internal/services/web/platform/ratelimit"
	"github.com/doosr/doosr/internal/services/web/routepath"
)

// Service is the account surface the module drives.
type Service interface {
	Register(ctx context.Context, input authdomain.RegisterInput) (authdomain.User, error)
	Authenticate(ctx context.Context, email, password string) (authdomain.User, error)
	StartSession(ctx context.Context, userID, userAgent string) (authdomain.Session, error)
	EndSession(ctx context.Context, token string) error
	User(ctx context.Context, userID string) (authdomain.User, error)
	UpdatePreferences(ctx context.Context, userID string, prefs authdomain.Preferences) (authdomain.User, error)
}

// Option configures a Module.
type Option func(*Module)

// WithLoginLimiter throttles credential submissions per client address.
func WithLoginLimiter(limiter *ratelimit.Limiter) Option {
	return func(m *Module) { m.limiter = limiter }
}

// WithRegisterHook runs after a successful registration.
func WithRegisterHook(hook func(ctx context.Context, user authdomain.User)) Option {
	return func(m *Module) { m.onRegister = hook }
}

// WithLogoutHook runs with the ending session id on sign-out.
func WithLogoutHook(hook func(sessionID string)) Option {
	return func(m *Module) { m.onLogout = hook }
}

// Module provides the /auth/ routes.
type Module struct {
	service    Service
	base       modulehandler.Base
	limiter    *ratelimit.Limiter
	onRegister func(ctx context.Context, user authdomain.User)
	onLogout   func(sessionID string)
}

// New returns an auth module.
func New(service Service, base modulehandler.Base, opts ...Option) Module {
	m := Module{service: service, base: base}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// ID returns a stable module identifier.
func (Module) ID() string { return "auth" }

// Mount wires auth route handlers.
func (m Module) Mount() (module.Mount, error) {
	mux := http.NewServeMux()
	registerRoutes(mux, newHandlers(m))
	return module.Mount{Prefix: routepath.AuthPrefix, Handler: mux}, nil
}
