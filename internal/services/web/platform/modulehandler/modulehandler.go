// Package modulehandler provides the shared scaffold embedded by web module
// handlers: viewer lookup, localization, page rendering and error writing.
package modulehandler

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/a-h/templ"
	apperrors "github.com/doosr/doosr/internal/platform/errors"
	module "github.com/doosr/doosr/internal/services/web/module"
	"github.com/doosr/doosr/internal/services/web/platform/flash"
	"github.com/doosr/doosr/internal/services/web/platform/httpx"
	"github.com/doosr/doosr/internal/services/web/platform/pagerender"
	"github.com/doosr/doosr/internal/services/web/platform/requestmeta"
	"github.com/doosr/doosr/internal/services/web/platform/webctx"
	"github.com/doosr/doosr/internal/services/web/platform/weberror"
	"github.com/doosr/doosr/internal/services/web/routepath"
	"golang.org/x/text/message"
)

// maxFormBytes bounds urlencoded form bodies.
const maxFormBytes = 64 << 10

var errSignInRequired = apperrors.New(apperrors.KindUnauthorized, "errors.unauthorized", "sign in required")

// Base carries the request-scoped helpers shared by module handlers.
type Base struct {
	pages pagerender.Renderer
}

// NewBase builds a handler base.
func NewBase(policy requestmeta.SchemePolicy, unread pagerender.UnreadCounter) Base {
	return Base{pages: pagerender.Renderer{Policy: policy, Unread: unread}}
}

// Viewer returns the signed-in viewer or the zero viewer.
func (b Base) Viewer(r *http.Request) module.Viewer {
	return webctx.Viewer(r)
}

// Printer returns a catalog printer for the request language.
func (b Base) Printer(r *http.Request) *message.Printer {
	return webctx.Printer(r)
}

// Location returns the viewer's time zone.
func (b Base) Location(r *http.Request) *time.Location {
	return webctx.Location(r)
}

// Today returns the viewer's current local date.
func (b Base) Today(r *http.Request, now time.Time) time.Time {
	local := now.In(b.Location(r))
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// WritePage renders fragment inside the shared layout.
func (b Base) WritePage(w http.ResponseWriter, r *http.Request, title string, fragment templ.Component) {
	b.WritePageStatus(w, r, http.StatusOK, title, fragment)
}

// WritePageStatus renders fragment inside the shared layout with status.
func (b Base) WritePageStatus(w http.ResponseWriter, r *http.Request, status int, title string, fragment templ.Component) {
	if err := b.pages.Write(w, r, pagerender.Page{Title: title, Status: status, Fragment: fragment}); err != nil {
		weberror.Write(w, r, err)
	}
}

// Policy returns the scheme policy cookies are written with.
func (b Base) Policy() requestmeta.SchemePolicy {
	return b.pages.Policy
}

// WriteError renders err for the client.
func (b Base) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	weberror.Write(w, r, err)
}

// ErrorMessage returns the localized user-facing message for err.
func (b Base) ErrorMessage(r *http.Request, err error) string {
	return weberror.PublicMessage(r, err)
}

// WriteJSON writes payload with a 200 status.
func (b Base) WriteJSON(w http.ResponseWriter, payload any) {
	_ = httpx.WriteJSON(w, http.StatusOK, payload)
}

// Redirect sends the client to location, storing an optional flash notice.
func (b Base) Redirect(w http.ResponseWriter, r *http.Request, location, noticeKey string) {
	if noticeKey != "" {
		flash.Write(w, r, flash.Success(noticeKey), b.pages.Policy)
	}
	httpx.WriteRedirect(w, r, location)
}

// ParseForm parses a bounded urlencoded body.
func (b Base) ParseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		return apperrors.Wrap(apperrors.KindInvalidInput, "errors.invalid_input", "parse form", err)
	}
	return nil
}

// FormValue returns a trimmed form value.
func (b Base) FormValue(r *http.Request, name string) string {
	return strings.TrimSpace(r.PostFormValue(name))
}

// RequireUser wraps next so anonymous requests are redirected to the login
// page, or rejected with 401 when they asked for JSON.
func (b Base) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.Viewer(r).SignedIn() {
			next.ServeHTTP(w, r)
			return
		}
		if httpx.WantsJSON(r) || r.Method != http.MethodGet {
			weberror.Write(w, r, errSignInRequired)
			return
		}
		httpx.WriteRedirect(w, r, routepath.AuthLogin+"?next="+url.QueryEscape(r.URL.RequestURI()))
	})
}
