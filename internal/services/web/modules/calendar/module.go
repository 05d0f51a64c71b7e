// Package calendar serves the fixed calendar year view and date conversion.
package calendar

import (
	"net/http"
	"time"

	module "github.com/doosr/doosr/internal/services/web/module"
	"github.com/doosr/doosr/internal/services/web/platform/modulehandler"
	"github.com/doosr/doosr/internal/services/web/routepath"
)

// Module provides the public /calendar/ routes.
type Module struct {
	base modulehandler.Base
	now  func() time.Time
}

// New returns a calendar module.
func New(base modulehandler.Base) Module {
	return Module{base: base, now: time.Now}
}

// WithClock returns a copy of m reading the current time from clock.
func (m Module) WithClock(clock func() time.Time) Module {
	if clock != nil {
		m.now = clock
	}
	return m
}

// ID returns a stable module identifier.
func (Module) ID() string { return "calendar" }

// Mount wires calendar route handlers.
func (m Module) Mount() (module.Mount, error) {
	mux := http.NewServeMux()
	h := handlers{Base: m.base, now: m.now}
	mux.HandleFunc(http.MethodGet+" "+routepath.CalendarPrefix+"{$}", h.handleCurrentYear)
	mux.HandleFunc(http.MethodGet+" "+routepath.CalendarConvert, h.handleConvert)
	mux.HandleFunc(http.MethodGet+" "+routepath.CalendarPrefix+"{year}", h.handleYear)
	return module.Mount{Prefix: routepath.CalendarPrefix, Handler: mux}, nil
}
