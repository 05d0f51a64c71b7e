package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	authdomain "github.com/doosr/doosr/internal/services/auth/domain"
	"github.com/doosr/doosr/internal/services/auth/session"
	"github.com/doosr/doosr/internal/services/auth/storage/sqlite"
	module "github.com/doosr/doosr/internal/services/web/module"
	"github.com/doosr/doosr/internal/services/web/platform/modulehandler"
	"github.com/doosr/doosr/internal/services/web/platform/ratelimit"
	"github.com/doosr/doosr/internal/services/web/platform/requestmeta"
	"github.com/doosr/doosr/internal/services/web/platform/sessioncookie"
	"github.com/doosr/doosr/internal/services/web/platform/webctx"
	"golang.org/x/crypto/bcrypt"
)

func newAuthService(t *testing.T) *authdomain.Service {
	t.Helper()
	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	issuer, err := session.NewIssuer([]byte(strings.Repeat("s", 32)), time.Hour, nil)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	return authdomain.NewService(store, issuer, authdomain.WithBcryptCost(bcrypt.MinCost))
}

func mount(t *testing.T, svc Service, opts ...Option) http.Handler {
	t.Helper()
	m, err := New(svc, modulehandler.NewBase(requestmeta.SchemePolicy{}, nil), opts...).Mount()
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	if m.Prefix != "/auth/" {
		t.Fatalf("Prefix = %q, want %q", m.Prefix, "/auth/")
	}
	return m.Handler
}

func postForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == sessioncookie.Name {
			return cookie
		}
	}
	t.Fatalf("no session cookie in %v", rec.Result().Cookies())
	return nil
}

func TestRegisterStartsSessionAndRunsHook(t *testing.T) {
	t.Parallel()

	svc := newAuthService(t)
	var registered authdomain.User
	handler := mount(t, svc, WithRegisterHook(func(_ context.Context, user authdomain.User) { registered = user }))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, postForm("/auth/register", url.Values{
		"email":        {"Ana@Example.com"},
		"password":     {"correct horse battery"},
		"display_name": {"Ana"},
		"locale":       {"pt-BR"},
		"time_zone":    {"America/Sao_Paulo"},
	}))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d; body %s", rec.Code, http.StatusSeeOther, rec.Body.String())
	}
	if got := rec.Header().Get("Location"); got != "/days/" {
		t.Fatalf("Location = %q, want %q", got, "/days/")
	}
	if registered.Email != "ana@example.com" {
		t.Fatalf("hook user = %+v", registered)
	}
	resolved, err := svc.ResolveSession(context.Background(), sessionCookie(t, rec).Value)
	if err != nil {
		t.Fatalf("resolve session: %v", err)
	}
	if resolved.User.ID != registered.ID {
		t.Fatalf("session user = %q, want %q", resolved.User.ID, registered.ID)
	}
}

func TestRegisterRerendersFormOnError(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	mount(t, newAuthService(t)).ServeHTTP(rec, postForm("/auth/register", url.Values{
		"email":    {"ana@example.com"},
		"password": {"short"},
	}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `role="alert"`) || !strings.Contains(body, `value="ana@example.com"`) {
		t.Fatalf("body = %q, want alert and kept email", body)
	}
}

func TestLoginRedirectsToSafeNext(t *testing.T) {
	t.Parallel()

	svc := newAuthService(t)
	if _, err := svc.Register(context.Background(), authdomain.RegisterInput{Email: "ana@example.com", Password: "correct horse battery"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	handler := mount(t, svc)

	tests := map[string]string{
		"/lists/abc":         "/lists/abc",
		"https://evil.test/": "/days/",
	}
	for next, want := range tests {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, postForm("/auth/login", url.Values{
			"email":    {"ana@example.com"},
			"password": {"correct horse battery"},
			"next":     {next},
		}))
		if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != want {
			t.Fatalf("next %q: status %d Location %q, want 303 %q", next, rec.Code, rec.Header().Get("Location"), want)
		}
		sessionCookie(t, rec)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, postForm("/auth/login", url.Values{"email": {"ana@example.com"}, "password": {"wrong password!"}}))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if !strings.Contains(rec.Body.String(), "Email or password is incorrect.") {
		t.Fatalf("body = %q, want localized credentials error", rec.Body.String())
	}
}

func TestLoginIsRateLimited(t *testing.T) {
	t.Parallel()

	handler := mount(t, newAuthService(t), WithLoginLimiter(ratelimit.New(time.Hour, 2)))
	codes := make([]int, 0, 3)
	for range 3 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, postForm("/auth/login", url.Values{"email": {"x@example.com"}, "password": {"nope nope nope"}}))
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusUnauthorized || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v, want 401 first and 429 last", codes)
	}
}

func TestLogoutEndsSession(t *testing.T) {
	t.Parallel()

	svc := newAuthService(t)
	user, err := svc.Register(context.Background(), authdomain.RegisterInput{Email: "ana@example.com", Password: "correct horse battery"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	started, err := svc.StartSession(context.Background(), user.ID, "test")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	var mu sync.Mutex
	var locked []string
	handler := mount(t, svc, WithLogoutHook(func(sessionID string) {
		mu.Lock()
		defer mu.Unlock()
		locked = append(locked, sessionID)
	}))

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: sessioncookie.Name, Value: started.Token})
	req = req.WithContext(webctx.WithViewer(req.Context(), module.Viewer{UserID: user.ID, SessionID: started.ID}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/auth/login" {
		t.Fatalf("status %d Location %q", rec.Code, rec.Header().Get("Location"))
	}
	if cookie := sessionCookie(t, rec); cookie.MaxAge >= 0 {
		t.Fatalf("cookie = %+v, want cleared", cookie)
	}
	if _, err := svc.ResolveSession(context.Background(), started.Token); err == nil {
		t.Fatal("session still resolves after logout")
	}
	if len(locked) != 1 || locked[0] != started.ID {
		t.Fatalf("logout hook calls = %v", locked)
	}
}

func TestAccountUpdatesPreferences(t *testing.T) {
	t.Parallel()

	svc := newAuthService(t)
	user, err := svc.Register(context.Background(), authdomain.RegisterInput{Email: "ana@example.com", Password: "correct horse battery"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	handler := mount(t, svc)
	viewer := module.Viewer{UserID: user.ID, Email: user.Email}

	anonymous := httptest.NewRecorder()
	handler.ServeHTTP(anonymous, httptest.NewRequest(http.MethodGet, "/auth/account", nil))
	if anonymous.Code != http.StatusSeeOther {
		t.Fatalf("anonymous status = %d, want %d", anonymous.Code, http.StatusSeeOther)
	}

	req := postForm("/auth/account", url.Values{"display_name": {"Ana B"}, "locale": {"pt-BR"}, "time_zone": {"Europe/Lisbon"}})
	req = req.WithContext(webctx.WithViewer(req.Context(), viewer))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/auth/account" {
		t.Fatalf("status %d Location %q", rec.Code, rec.Header().Get("Location"))
	}

	updated, err := svc.User(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("user: %v", err)
	}
	if updated.DisplayName != "Ana B" || updated.Locale != "pt-BR" || updated.TimeZone != "Europe/Lisbon" {
		t.Fatalf("user = %+v", updated)
	}

	page := httptest.NewRequest(http.MethodGet, "/auth/account", nil)
	page = page.WithContext(webctx.WithViewer(page.Context(), viewer))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, page)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `value="Ana B"`) {
		t.Fatalf("account page status %d body %q", rec.Code, rec.Body.String())
	}
}
