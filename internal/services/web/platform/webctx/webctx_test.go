package webctx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/doosr/doosr/internal/platform/requestctx"
	module "github.com/doosr/doosr/internal/services/web/module"
	"github.com/doosr/doosr/internal/services/web/platform/sessioncookie"
	"golang.org/x/text/language"
)

func resolveFixed(_ context.Context, token string) (module.Viewer, error) {
	if token != "good" {
		return module.Viewer{}, errors.New("bad token")
	}
	sao, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		sao = time.UTC
	}
	return module.Viewer{UserID: "u1", SessionID: "s1", DisplayName: "Ana", Lang: language.BrazilianPortuguese, Location: sao}, nil
}

func serve(t *testing.T, req *http.Request) *http.Request {
	t.Helper()
	var seen *http.Request
	Middleware(resolveFixed)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = r
	})).ServeHTTP(httptest.NewRecorder(), req)
	if seen == nil {
		t.Fatal("handler was not called")
	}
	return seen
}

func TestMiddlewareResolvesViewer(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/days/", nil)
	req.AddCookie(&http.Cookie{Name: sessioncookie.Name, Value: "good"})
	req.Header.Set("Accept-Language", "en-US")
	seen := serve(t, req)

	viewer := Viewer(seen)
	if viewer.UserID != "u1" || viewer.DisplayName != "Ana" {
		t.Fatalf("Viewer = %+v", viewer)
	}
	if got := requestctx.UserIDFromContext(seen.Context()); got != "u1" {
		t.Fatalf("UserIDFromContext = %q, want %q", got, "u1")
	}
	if got := requestctx.SessionIDFromContext(seen.Context()); got != "s1" {
		t.Fatalf("SessionIDFromContext = %q, want %q", got, "s1")
	}
	if got := Lang(seen); got != language.BrazilianPortuguese {
		t.Fatalf("Lang = %v, want pt-BR from the user locale", got)
	}
	if Location(seen) == nil {
		t.Fatal("Location = nil")
	}
}

func TestMiddlewareAnonymousFallsBackToAcceptLanguage(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	req.AddCookie(&http.Cookie{Name: sessioncookie.Name, Value: "forged"})
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9")
	seen := serve(t, req)

	if _, ok := ViewerFromContext(seen.Context()); ok {
		t.Fatal("forged cookie produced a viewer")
	}
	if got := Lang(seen); got != language.BrazilianPortuguese {
		t.Fatalf("Lang = %v, want pt-BR", got)
	}
	if got := Location(seen); got != time.UTC {
		t.Fatalf("Location = %v, want UTC", got)
	}
}
