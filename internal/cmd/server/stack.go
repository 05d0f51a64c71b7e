package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/doosr/doosr/internal/cmd/compose"
	"github.com/doosr/doosr/internal/platform/i18n"
	accountingdomain "github.com/doosr/doosr/internal/services/accounting/domain"
	accountingsqlite "github.com/doosr/doosr/internal/services/accounting/storage/sqlite"
	authdomain "github.com/doosr/doosr/internal/services/auth/domain"
	"github.com/doosr/doosr/internal/services/auth/session"
	authsqlite "github.com/doosr/doosr/internal/services/auth/storage/sqlite"
	"github.com/doosr/doosr/internal/services/journal/crypto"
	journaldomain "github.com/doosr/doosr/internal/services/journal/domain"
	journalsqlite "github.com/doosr/doosr/internal/services/journal/storage/sqlite"
	"github.com/doosr/doosr/internal/services/live"
	notificationsdomain "github.com/doosr/doosr/internal/services/notifications/domain"
	"github.com/doosr/doosr/internal/services/notifications/render"
	notificationssqlite "github.com/doosr/doosr/internal/services/notifications/storage/sqlite"
	plannerdomain "github.com/doosr/doosr/internal/services/planner/domain"
	plannersqlite "github.com/doosr/doosr/internal/services/planner/storage/sqlite"
	webapp "github.com/doosr/doosr/internal/services/web/app"
	module "github.com/doosr/doosr/internal/services/web/module"
	"github.com/doosr/doosr/internal/services/web/modules"
	authmodule "github.com/doosr/doosr/internal/services/web/modules/auth"
	"github.com/doosr/doosr/internal/services/web/platform/metrics"
	"github.com/doosr/doosr/internal/services/web/platform/modulehandler"
	"github.com/doosr/doosr/internal/services/web/platform/ratelimit"
	"github.com/doosr/doosr/internal/services/web/platform/requestmeta"
	"github.com/doosr/doosr/internal/services/web/platform/sessioncookie"
	workerapp "github.com/doosr/doosr/internal/services/worker/app"
)

// sourceAuth tags notifications produced by account events.
const sourceAuth = "auth"

// ErrSessionSecretRequired reports a missing DOOSR_SESSION_SECRET.
var ErrSessionSecretRequired = errors.New("session secret is required")

type closer interface{ Close() error }

// stack is the composed web process: stores, services and the root handler.
type stack struct {
	handler  http.Handler
	hub      *live.Hub
	keyring  *crypto.Keyring
	limiter  *ratelimit.Limiter
	users    *authdomain.Service
	notifier *notificationsdomain.Service
	closers  []closer
}

func newStack(ctx context.Context, cfg Config) (_ *stack, err error) {
	secret := strings.TrimSpace(cfg.SessionSecret)
	if secret == "" {
		return nil, ErrSessionSecretRequired
	}
	issuer, err := session.NewIssuer([]byte(secret), cfg.SessionTTL, nil)
	if err != nil {
		return nil, fmt.Errorf("session issuer: %w", err)
	}

	s := &stack{}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	authStore, err := authsqlite.Open(ctx, cfg.AuthDBPath)
	if err != nil {
		return nil, fmt.Errorf("open auth store: %w", err)
	}
	s.closers = append(s.closers, authStore)
	plannerStore, err := plannersqlite.Open(ctx, cfg.PlannerDBPath)
	if err != nil {
		return nil, fmt.Errorf("open planner store: %w", err)
	}
	s.closers = append(s.closers, plannerStore)
	journalStore, err := journalsqlite.Open(ctx, cfg.JournalDBPath)
	if err != nil {
		return nil, fmt.Errorf("open journal store: %w", err)
	}
	s.closers = append(s.closers, journalStore)
	accountingStore, err := accountingsqlite.Open(ctx, cfg.AccountingDBPath)
	if err != nil {
		return nil, fmt.Errorf("open accounting store: %w", err)
	}
	s.closers = append(s.closers, accountingStore)
	notificationsStore, err := notificationssqlite.Open(ctx, cfg.NotificationsDBPath)
	if err != nil {
		return nil, fmt.Errorf("open notifications store: %w", err)
	}
	s.closers = append(s.closers, notificationsStore)

	webMetrics := metrics.New()
	s.hub = live.NewHub(live.WithObserver(webMetrics), live.WithLogger(log.Default()))
	s.keyring = crypto.NewKeyring(cfg.JournalKeyTTL, nil)
	s.limiter = ratelimit.New(cfg.LoginRateEvery, cfg.LoginRateBurst)

	s.users = authdomain.NewService(authStore, issuer)
	s.notifier = notificationsdomain.NewService(notificationsStore, notificationsdomain.WithPublisher(s.hub))
	planner := plannerdomain.NewService(plannerStore, plannerdomain.WithPublisher(s.hub))
	journal := journaldomain.NewService(journalStore, s.keyring, journaldomain.WithOutline(compose.Outline{Planner: planner}))
	planner.SetJournals(compose.Source{Journals: journal})
	invoices := accountingdomain.NewService(accountingStore)

	policy := requestmeta.SchemePolicy{TrustForwardedProto: cfg.TrustForwardedProto}
	s.handler, err = webapp.BuildRootHandler(webapp.Config{
		Modules: modules.All(modules.Dependencies{
			Base: modulehandler.NewBase(policy, s.notifier.CountUnread),
			Auth: s.users,
			AuthOptions: []authmodule.Option{
				authmodule.WithLoginLimiter(s.limiter),
				authmodule.WithRegisterHook(s.welcome),
				authmodule.WithLogoutHook(journal.Lock),
			},
			Days:          planner,
			Lists:         planner,
			Journal:       journal,
			Invoices:      invoices,
			Notifications: s.notifier,
		}),
		Policy:         policy,
		ResolveSession: s.resolveViewer,
		Live:           live.Handler(s.hub, s.authenticate),
		Metrics:        webMetrics,
		Logger:         log.Default(),
	})
	if err != nil {
		return nil, fmt.Errorf("build web handler: %w", err)
	}
	return s, nil
}

// Close releases every store in reverse open order.
func (s *stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			log.Printf("close store: %v", err)
		}
	}
	s.closers = nil
}

func (s *stack) resolveViewer(ctx context.Context, token string) (module.Viewer, error) {
	resolved, err := s.users.ResolveSession(ctx, token)
	if err != nil {
		return module.Viewer{}, err
	}
	user := resolved.User
	lang, _ := i18n.ParseTag(user.Locale)
	return module.Viewer{
		UserID:      user.ID,
		SessionID:   resolved.ID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		Lang:        lang,
		Location:    user.Location(),
	}, nil
}

// authenticate admits websocket upgrades that carry a live session cookie.
func (s *stack) authenticate(r *http.Request) (string, bool) {
	token, ok := sessioncookie.Read(r)
	if !ok {
		return "", false
	}
	viewer, err := s.resolveViewer(r.Context(), token)
	if err != nil {
		return "", false
	}
	return viewer.UserID, true
}

// welcome leaves a greeting in the new account's inbox.
func (s *stack) welcome(ctx context.Context, user authdomain.User) {
	payload, err := json.Marshal(render.WelcomePayload{DisplayName: user.DisplayName})
	if err != nil {
		log.Printf("encode welcome payload: %v", err)
		return
	}
	if _, err := s.notifier.CreateIntent(ctx, notificationsdomain.CreateIntentInput{
		RecipientUserID: user.ID,
		MessageType:     render.TypeSystemWelcome,
		PayloadJSON:     string(payload),
		DedupeKey:       "welcome",
		Source:          sourceAuth,
	}); err != nil {
		log.Printf("user=%s welcome notification: %v", user.ID, err)
	}
}

// sweep drops expired journal keys and idle rate-limit buckets until ctx
// ends.
func (s *stack) sweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if removed := s.keyring.Sweep(); removed > 0 {
			log.Printf("journal keys expired=%d", removed)
		}
		s.limiter.Sweep()
	}
}

func (s *stack) workerRuntime(cfg Config) (workerapp.RuntimeConfig, error) {
	location, err := time.LoadLocation(cfg.WorkerTimeZone)
	if err != nil {
		return workerapp.RuntimeConfig{}, fmt.Errorf("load time zone %q: %w", cfg.WorkerTimeZone, err)
	}
	return workerapp.RuntimeConfig{
		Port:                -1,
		AuthDBPath:          cfg.AuthDBPath,
		PlannerDBPath:       cfg.PlannerDBPath,
		JournalDBPath:       cfg.JournalDBPath,
		AccountingDBPath:    cfg.AccountingDBPath,
		NotificationsDBPath: cfg.NotificationsDBPath,
		WorkerDBPath:        cfg.WorkerDBPath,
		Location:            location,
		Publisher:           s.hub,
	}, nil
}
