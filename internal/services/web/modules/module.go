// Package modules composes the doosr web feature modules.
package modules

import (
	"time"

	module "github.com/doosr/doosr/internal/services/web/module"
	"github.com/doosr/doosr/internal/services/web/modules/auth"
	"github.com/doosr/doosr/internal/services/web/modules/days"
	"github.com/doosr/doosr/internal/services/web/modules/invoices"
	"github.com/doosr/doosr/internal/services/web/modules/journal"
	"github.com/doosr/doosr/internal/services/web/modules/lists"
	"github.com/doosr/doosr/internal/services/web/modules/notifications"
	"github.com/doosr/doosr/internal/services/web/platform/modulehandler"
)

// Mount aliases the module mount contract.
type Mount = module.Mount

// Module aliases the module interface contract.
type Module = module.Module

// Dependencies carries the domain services required to compose the web
// module registry. Each field is typed as the narrow interface defined by the
// consuming module, so modules cannot reach services they were not given.
type Dependencies struct {
	Base modulehandler.Base

	Auth        auth.Service
	AuthOptions []auth.Option

	Days          days.Planner
	Lists         lists.Planner
	Journal       journal.Service
	Invoices      invoices.Service
	Notifications notifications.Service

	// Clock overrides the wall clock used to resolve "today". Nil means
	// time.Now.
	Clock func() time.Time
}
