// Package static embeds the stylesheet and the live-update client script.
package static

import (
	"embed"
	"net/http"
	"strings"
)

// FS exposes web static assets for HTTP serving.
//
//go:embed *.css *.js
var FS embed.FS

// Handler serves FS below prefix with explicit content types.
func Handler(prefix string) http.Handler {
	return http.StripPrefix(prefix, withMime(http.FileServerFS(FS)))
}

func withMime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch path := strings.ToLower(r.URL.Path); {
		case strings.HasSuffix(path, ".css"):
			w.Header().Set("Content-Type", "text/css; charset=utf-8")
		case strings.HasSuffix(path, ".js"):
			w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
		}
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
