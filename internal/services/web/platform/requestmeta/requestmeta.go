// Package requestmeta answers scheme and origin questions about requests.
package requestmeta

import (
	"net/http"
	"net/url"
	"strings"
)

// SchemePolicy controls whether X-Forwarded-Proto is trusted.
type SchemePolicy struct {
	TrustForwardedProto bool
}

// IsHTTPS reports whether r arrived over HTTPS under policy.
func IsHTTPS(r *http.Request, policy SchemePolicy) bool {
	return scheme(r, policy) == "https"
}

// SameOrigin reports whether the Origin header, or the Referer when Origin
// is absent, names the scheme, host and port r was served on.
func SameOrigin(r *http.Request, policy SchemePolicy) bool {
	if r == nil {
		return false
	}
	source := strings.TrimSpace(r.Header.Get("Origin"))
	if source == "" {
		source = strings.TrimSpace(r.Header.Get("Referer"))
	}
	if source == "" {
		return false
	}
	parsed, err := url.Parse(source)
	if err != nil || parsed.Host == "" {
		return false
	}
	reqScheme := scheme(r, policy)
	if !strings.EqualFold(parsed.Scheme, reqScheme) {
		return false
	}
	host, port := splitHost(r.Host, reqScheme)
	if host == "" {
		return false
	}
	originHost, originPort := splitHost(parsed.Host, reqScheme)
	return originHost == host && originPort == port
}

// RequireSameOrigin rejects unsafe methods that lack same-origin proof.
func RequireSameOrigin(policy SchemePolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
			default:
				if !SameOrigin(r, policy) {
					http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func scheme(r *http.Request, policy SchemePolicy) string {
	if r == nil {
		return ""
	}
	if policy.TrustForwardedProto {
		if forwarded := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto"))); forwarded == "http" || forwarded == "https" {
			return forwarded
		}
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

func splitHost(raw, scheme string) (string, string) {
	parsed, err := url.Parse("//" + strings.TrimSpace(raw))
	if err != nil {
		return "", ""
	}
	port := parsed.Port()
	if port == "" {
		port = "80"
		if scheme == "https" {
			port = "443"
		}
	}
	return strings.ToLower(parsed.Hostname()), port
}
