// Package httpx provides HTTP middleware and response helpers shared by web
// modules.
package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/doosr/doosr/internal/platform/id"
)

const (
	htmxHeader         = "HX-Request"
	htmxRedirectHeader = "HX-Redirect"
	// RequestIDHeader carries the correlation id in both directions.
	RequestIDHeader = "X-Request-ID"
	maxRequestIDLen = 128
)

// Middleware wraps an HTTP handler.
type Middleware func(http.Handler) http.Handler

// Chain applies middleware in declaration order: the first one sees the
// request first.
func Chain(handler http.Handler, middleware ...Middleware) http.Handler {
	if handler == nil {
		handler = http.NotFoundHandler()
	}
	wrapped := handler
	for idx := len(middleware) - 1; idx >= 0; idx-- {
		if middleware[idx] == nil {
			continue
		}
		wrapped = middleware[idx](wrapped)
	}
	return wrapped
}

// RequestID keeps a well-formed inbound X-Request-ID or assigns a new one,
// and echoes it on the response.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := strings.TrimSpace(r.Header.Get(RequestIDHeader))
			if requestID == "" || len(requestID) > maxRequestIDLen || strings.ContainsAny(requestID, " \t\r\n") {
				generated, err := id.NewID()
				if err != nil {
					generated = "unknown"
				}
				requestID = generated
				r.Header.Set(RequestIDHeader, requestID)
			}
			w.Header().Set(RequestIDHeader, requestID)
			next.ServeHTTP(w, r)
		})
	}
}

// RecoverPanic converts panics into HTTP 500 responses and logs the stack.
func RecoverPanic(logger *log.Logger) Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				if recovered == http.ErrAbortHandler {
					panic(recovered)
				}
				logger.Printf(
					"panic recovered method=%s path=%s request_id=%s panic=%v stack=%s",
					r.Method,
					r.URL.Path,
					r.Header.Get(RequestIDHeader),
					recovered,
					strings.TrimSpace(string(debug.Stack())),
				)
				w.WriteHeader(http.StatusInternalServerError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequestContext returns r.Context() with a nil-safe fallback.
func RequestContext(r *http.Request) context.Context {
	if r == nil {
		return context.Background()
	}
	return r.Context()
}

// IsHTMXRequest reports whether the current request came from htmx.
func IsHTMXRequest(r *http.Request) bool {
	if r == nil {
		return false
	}
	return strings.EqualFold(r.Header.Get(htmxHeader), "true")
}

// WantsJSON reports whether the client asked for a JSON response.
func WantsJSON(r *http.Request) bool {
	if r == nil {
		return false
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// WriteJSON writes a JSON response with the provided status code.
func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return fmt.Errorf("response writer is required")
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(payload)
}

// WriteJSONError writes {"error": message, "code": code}.
func WriteJSONError(w http.ResponseWriter, status int, code, message string) error {
	return WriteJSON(w, status, map[string]string{"error": message, "code": code})
}

// DecodeJSON decodes a request body of at most maxBytes into target.
func DecodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, target any) error {
	body := http.MaxBytesReader(w, r.Body, maxBytes)
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("decode json body: %w", err)
	}
	return nil
}

// WriteRedirect redirects with HX-Redirect for htmx and 303 otherwise.
func WriteRedirect(w http.ResponseWriter, r *http.Request, location string) {
	if IsHTMXRequest(r) {
		w.Header().Set(htmxRedirectHeader, location)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}
