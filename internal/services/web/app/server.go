package app

import (
	"io"
	"log"
	"net/http"

	"github.com/doosr/doosr/internal/platform/otel"
	"github.com/doosr/doosr/internal/services/web/platform/httpx"
	"github.com/doosr/doosr/internal/services/web/platform/observability"
	"github.com/doosr/doosr/internal/services/web/platform/requestmeta"
	"github.com/doosr/doosr/internal/services/web/platform/webctx"
	"github.com/doosr/doosr/internal/services/web/routepath"
	"github.com/doosr/doosr/internal/services/web/static"
)

// Route paths owned by the root handler.
const (
	HealthPath   = "/up"
	MetricsPath  = "/metrics"
	LivePath     = "/ws"
	StaticPrefix = "/static/"
)

// BuildRootHandler composes modules, operational routes and the shared
// middleware chain. The websocket route skips middleware that wraps the
// response writer, since upgrades need the raw connection.
func BuildRootHandler(cfg Config) (http.Handler, error) {
	root, err := Compose(cfg.Modules)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	home := routepath.SafeNext(cfg.Home, routepath.DaysPrefix)
	root.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, home, http.StatusSeeOther)
	})
	root.Handle("GET "+StaticPrefix, static.Handler(StaticPrefix))
	root.HandleFunc("GET "+HealthPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		if cfg.Ready != nil {
			if err := cfg.Ready(r.Context()); err != nil {
				logger.Printf("health check failed: %v", err)
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		_, _ = io.WriteString(w, "ok")
	})

	middleware := []httpx.Middleware{
		httpx.RecoverPanic(logger),
		httpx.RequestID(),
		observability.RequestLogger(logger),
	}
	if cfg.Metrics != nil {
		root.Handle("GET "+MetricsPath, cfg.Metrics.Handler())
		middleware = append(middleware, cfg.Metrics.Middleware)
	}
	middleware = append(middleware,
		otel.HTTPMiddleware,
		webctx.Middleware(cfg.ResolveSession),
		requestmeta.RequireSameOrigin(cfg.Policy),
	)
	pages := httpx.Chain(root, middleware...)
	if cfg.Live == nil {
		return pages, nil
	}

	outer := http.NewServeMux()
	outer.Handle(LivePath, httpx.Chain(cfg.Live, httpx.RecoverPanic(logger), httpx.RequestID()))
	outer.Handle("/", pages)
	return outer, nil
}
