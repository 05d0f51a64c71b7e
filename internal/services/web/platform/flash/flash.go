// Package flash carries one-time notices across a redirect.
package flash

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/doosr/doosr/internal/services/web/platform/requestmeta"
)

// CookieName is the flash cookie name.
const CookieName = "doosr_flash"

// Kind classifies how a notice is presented.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Notice references one catalog message.
type Notice struct {
	Kind Kind   `json:"kind"`
	Key  string `json:"key"`
}

// Success builds a success notice for key.
func Success(key string) Notice {
	return Notice{Kind: KindSuccess, Key: key}
}

// Write stores notice for the next page render.
func Write(w http.ResponseWriter, r *http.Request, notice Notice, policy requestmeta.SchemePolicy) {
	notice, ok := normalize(notice)
	if !ok {
		return
	}
	payload, err := json.Marshal(notice)
	if err != nil {
		return
	}
	setCookie(w, r, base64.RawURLEncoding.EncodeToString(payload), 0, policy)
}

// ReadAndClear returns the pending notice and expires the cookie.
func ReadAndClear(w http.ResponseWriter, r *http.Request, policy requestmeta.SchemePolicy) (Notice, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return Notice{}, false
	}
	setCookie(w, r, "", -1, policy)
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(cookie.Value))
	if err != nil {
		return Notice{}, false
	}
	var notice Notice
	if err := json.Unmarshal(decoded, &notice); err != nil {
		return Notice{}, false
	}
	return normalize(notice)
}

func setCookie(w http.ResponseWriter, r *http.Request, value string, maxAge int, policy requestmeta.SchemePolicy) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   requestmeta.IsHTTPS(r, policy),
		SameSite: http.SameSiteLaxMode,
	})
}

func normalize(notice Notice) (Notice, bool) {
	notice.Key = strings.TrimSpace(notice.Key)
	switch notice.Kind {
	case KindSuccess, KindError:
	default:
		return Notice{}, false
	}
	return notice, notice.Key != ""
}
