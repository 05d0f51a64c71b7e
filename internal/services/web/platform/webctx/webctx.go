// Package webctx resolves the viewer and language of a web request.
package webctx

import (
	"context"
	"net/http"
	"time"

	"github.com/doosr/doosr/internal/platform/i18n"
	"github.com/doosr/doosr/internal/platform/requestctx"
	module "github.com/doosr/doosr/internal/services/web/module"
	"github.com/doosr/doosr/internal/services/web/platform/sessioncookie"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type viewerKey struct{}

type langKey struct{}

// ResolveSession turns a session cookie token into a viewer.
type ResolveSession func(ctx context.Context, token string) (module.Viewer, error)

// WithViewer stores viewer on ctx along with its user and session ids.
func WithViewer(ctx context.Context, viewer module.Viewer) context.Context {
	ctx = context.WithValue(ctx, viewerKey{}, viewer)
	ctx = requestctx.WithUserID(ctx, viewer.UserID)
	return requestctx.WithSessionID(ctx, viewer.SessionID)
}

// ViewerFromContext returns the stored viewer.
func ViewerFromContext(ctx context.Context) (module.Viewer, bool) {
	viewer, ok := ctx.Value(viewerKey{}).(module.Viewer)
	return viewer, ok && viewer.SignedIn()
}

// Viewer returns the request viewer, or a zero viewer for anonymous requests.
func Viewer(r *http.Request) module.Viewer {
	viewer, _ := ViewerFromContext(r.Context())
	return viewer
}

// Lang returns the request language: the signed-in user's locale, else the
// best Accept-Language match.
func Lang(r *http.Request) language.Tag {
	if tag, ok := r.Context().Value(langKey{}).(language.Tag); ok {
		return tag
	}
	if viewer, ok := ViewerFromContext(r.Context()); ok && viewer.Lang != language.Und {
		return viewer.Lang
	}
	return i18n.MatchAcceptLanguage(r.Header.Get("Accept-Language"))
}

// Printer returns a catalog printer for the request language.
func Printer(r *http.Request) *message.Printer {
	return i18n.Printer(Lang(r))
}

// Location returns the viewer's time zone, defaulting to UTC.
func Location(r *http.Request) *time.Location {
	if viewer, ok := ViewerFromContext(r.Context()); ok && viewer.Location != nil {
		return viewer.Location
	}
	return time.UTC
}

// Middleware resolves the session cookie into a viewer. Requests with a
// missing or invalid cookie continue anonymously.
func Middleware(resolve ResolveSession) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if token, ok := sessioncookie.Read(r); ok && resolve != nil {
				if viewer, err := resolve(ctx, token); err == nil && viewer.SignedIn() {
					ctx = WithViewer(ctx, viewer)
				}
			}
			r = r.WithContext(ctx)
			r = r.WithContext(context.WithValue(ctx, langKey{}, Lang(r)))
			next.ServeHTTP(w, r)
		})
	}
}
