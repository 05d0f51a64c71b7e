package pagerender

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	module "github.com/doosr/doosr/internal/services/web/module"
	"github.com/doosr/doosr/internal/services/web/platform/flash"
	"github.com/doosr/doosr/internal/services/web/platform/requestmeta"
	"github.com/doosr/doosr/internal/services/web/platform/webctx"
	webtemplates "github.com/doosr/doosr/internal/services/web/templates"
)

func TestWriteFullPageWithViewerChrome(t *testing.T) {
	t.Parallel()

	written := httptest.NewRecorder()
	flash.Write(written, httptest.NewRequest(http.MethodPost, "/", nil), flash.Success("web.lists.created"), requestmeta.SchemePolicy{})

	req := httptest.NewRequest(http.MethodGet, "/lists/", nil)
	req.AddCookie(written.Result().Cookies()[0])
	req = req.WithContext(webctx.WithViewer(req.Context(), module.Viewer{UserID: "u1", DisplayName: "Ana"}))
	rec := httptest.NewRecorder()
	rd := Renderer{Unread: func(_ context.Context, userID string) (int, error) {
		if userID != "u1" {
			t.Errorf("Unread userID = %q, want u1", userID)
		}
		return 3, nil
	}}
	if err := rd.Write(rec, req, Page{Title: "Lists", Fragment: webtemplates.Text("hello")}); err != nil {
		t.Fatalf("write: %v", err)
	}

	body := rec.Body.String()
	for _, want := range []string{"<!DOCTYPE html>", `<main id="main-content">hello</main>`, "Ana", `class="toast toast-success"`, "(3)"} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q in %q", want, body)
		}
	}
}

func TestWriteHTMXFragment(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/lists/", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	if err := (Renderer{}).Write(rec, req, Page{Status: http.StatusCreated, Fragment: webtemplates.Text("x")}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
	if got := rec.Body.String(); got != `<main id="main-content">x</main>` {
		t.Fatalf("body = %q", got)
	}
}
