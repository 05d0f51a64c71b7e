// Package weberror renders localized error responses for web modules.
package weberror

import (
	"log"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	apperrors "github.com/doosr/doosr/internal/platform/errors"
	"github.com/doosr/doosr/internal/platform/i18n"
	"github.com/doosr/doosr/internal/services/web/platform/httpx"
	"github.com/doosr/doosr/internal/services/web/platform/webctx"
	webtemplates "github.com/doosr/doosr/internal/services/web/templates"
)

// PublicMessage resolves a user-safe localized message for err.
func PublicMessage(r *http.Request, err error) string {
	lang := webctx.Lang(r)
	for _, key := range []string{apperrors.LocalizationKey(err), "errors." + string(apperrors.KindOf(err))} {
		if key == "" || key == "errors." {
			continue
		}
		if text := i18n.Text(lang, key); text != key {
			return text
		}
	}
	return http.StatusText(Status(err))
}

// Status maps err to an HTTP status, treating nil as an internal error.
func Status(err error) int {
	status := apperrors.HTTPStatus(err)
	if status < http.StatusBadRequest {
		return http.StatusInternalServerError
	}
	return status
}

// Write renders err as JSON, an htmx fragment or a full page depending on
// what the client asked for.
func Write(w http.ResponseWriter, r *http.Request, err error) {
	status := Status(err)
	if status >= http.StatusInternalServerError {
		log.Printf("web: %s %s failed: %v", r.Method, r.URL.Path, err)
	}
	message := PublicMessage(r, err)
	if httpx.WantsJSON(r) {
		code := string(apperrors.KindOf(err))
		if code == "" {
			code = string(apperrors.KindUnknown)
		}
		_ = httpx.WriteJSONError(w, status, code, message)
		return
	}

	loc := webctx.Printer(r)
	fragment := webtemplates.ErrorState(status, message, loc)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if httpx.IsHTMXRequest(r) {
		_ = webtemplates.MainContent().Render(templ.WithChildren(r.Context(), fragment), w)
		return
	}
	viewer := webctx.Viewer(r)
	page := webtemplates.Page{
		Title:       webtemplates.ErrorTitle(status, loc),
		Lang:        i18n.Locale(webctx.Lang(r)),
		CurrentPath: r.URL.Path,
		SignedIn:    viewer.SignedIn(),
		UserName:    strings.TrimSpace(viewer.DisplayName),
		Loc:         loc,
	}
	_ = webtemplates.Layout(page).Render(templ.WithChildren(r.Context(), fragment), w)
}
