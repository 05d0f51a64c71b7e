package app

import (
	"context"
	"log"
	"net/http"

	module "github.com/doosr/doosr/internal/services/web/module"
	"github.com/doosr/doosr/internal/services/web/platform/metrics"
	"github.com/doosr/doosr/internal/services/web/platform/requestmeta"
	"github.com/doosr/doosr/internal/services/web/platform/webctx"
)

// Config captures the composition inputs for the web root handler.
type Config struct {
	Modules []module.Module
	Policy  requestmeta.SchemePolicy
	// ResolveSession turns a session cookie into a viewer.
	ResolveSession webctx.ResolveSession
	// Live serves /ws; nil leaves the route unmounted.
	Live    http.Handler
	Metrics *metrics.Metrics
	Logger  *log.Logger
	// Ready backs /up; nil always reports healthy.
	Ready func(context.Context) error
	// Home is where / redirects.
	Home string
}
