package modules

import (
	"github.com/doosr/doosr/internal/services/web/modules/auth"
	"github.com/doosr/doosr/internal/services/web/modules/calendar"
	"github.com/doosr/doosr/internal/services/web/modules/days"
	"github.com/doosr/doosr/internal/services/web/modules/invoices"
	"github.com/doosr/doosr/internal/services/web/modules/journal"
	"github.com/doosr/doosr/internal/services/web/modules/lists"
	"github.com/doosr/doosr/internal/services/web/modules/notifications"
)

// DefaultPublicModules returns modules that serve anonymous visitors.
func DefaultPublicModules(deps Dependencies) []Module {
	return []Module{
		auth.New(deps.Auth, deps.Base, deps.AuthOptions...),
		calendar.New(deps.Base).WithClock(deps.Clock),
	}
}

// DefaultProtectedModules returns modules that require a signed-in user.
// Modules whose service is missing are left out.
func DefaultProtectedModules(deps Dependencies) []Module {
	var out []Module
	if deps.Days != nil {
		out = append(out, days.New(deps.Days, deps.Base).WithClock(deps.Clock))
	}
	if deps.Lists != nil {
		out = append(out, lists.New(deps.Lists, deps.Base).WithClock(deps.Clock))
	}
	if deps.Journal != nil {
		out = append(out, journal.New(deps.Journal, deps.Base).WithClock(deps.Clock))
	}
	if deps.Invoices != nil {
		out = append(out, invoices.New(deps.Invoices, deps.Base).WithClock(deps.Clock))
	}
	if deps.Notifications != nil {
		out = append(out, notifications.New(deps.Notifications, deps.Base).WithClock(deps.Clock))
	}
	return out
}

// All returns the public modules followed by the protected ones.
func All(deps Dependencies) []Module {
	return append(DefaultPublicModules(deps), DefaultProtectedModules(deps)...)
}
