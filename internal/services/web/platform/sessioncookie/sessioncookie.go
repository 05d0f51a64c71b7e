// Package sessioncookie reads and writes the signed session token cookie.
package sessioncookie

import (
	"net/http"
	"strings"
	"time"

	"github.com/doosr/doosr/internal/services/web/platform/requestmeta"
)

// Name is the session cookie name.
const Name = "doosr_session"

// Read returns the trimmed session token when present.
func Read(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	cookie, err := r.Cookie(Name)
	if err != nil {
		return "", false
	}
	value := strings.TrimSpace(cookie.Value)
	return value, value != ""
}

// Write stores token until expiresAt.
func Write(w http.ResponseWriter, r *http.Request, token string, expiresAt time.Time, policy requestmeta.SchemePolicy) {
	http.SetCookie(w, &http.Cookie{
		Name:     Name,
		Value:    strings.TrimSpace(token),
		Path:     "/",
		Expires:  expiresAt.UTC(),
		HttpOnly: true,
		Secure:   requestmeta.IsHTTPS(r, policy),
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear expires the session cookie.
func Clear(w http.ResponseWriter, r *http.Request, policy requestmeta.SchemePolicy) {
	http.SetCookie(w, &http.Cookie{
		Name:     Name,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   requestmeta.IsHTTPS(r, policy),
		SameSite: http.SameSiteLaxMode,
	})
}
