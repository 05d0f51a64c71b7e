package modules

import (
	"testing"

	"github.com/doosr/doosr/internal/services/web/modules/auth"
	"github.com/doosr/doosr/internal/services/web/modules/days"
	"github.com/doosr/doosr/internal/services/web/modules/invoices"
	"github.com/doosr/doosr/internal/services/web/modules/journal"
	"github.com/doosr/doosr/internal/services/web/modules/lists"
	"github.com/doosr/doosr/internal/services/web/modules/notifications"
	"github.com/doosr/doosr/internal/services/web/platform/modulehandler"
	"github.com/doosr/doosr/internal/services/web/platform/requestmeta"
)

type (
	authStub          struct{ auth.Service }
	daysStub          struct{ days.Planner }
	listsStub         struct{ lists.Planner }
	journalStub       struct{ journal.Service }
	invoicesStub      struct{ invoices.Service }
	notificationsStub struct{ notifications.Service }
)

func fullDependencies() Dependencies {
	return Dependencies{
		Base:          modulehandler.NewBase(requestmeta.SchemePolicy{}, nil),
		Auth:          authStub{},
		Days:          daysStub{},
		Lists:         listsStub{},
		Journal:       journalStub{},
		Invoices:      invoicesStub{},
		Notifications: notificationsStub{},
	}
}

func TestDefaultModulesSplitPublicAndProtected(t *testing.T) {
	t.Parallel()

	deps := fullDependencies()
	if got := len(DefaultPublicModules(deps)); got != 2 {
		t.Fatalf("public module count = %d, want %d", got, 2)
	}
	if got := len(DefaultProtectedModules(deps)); got != 5 {
		t.Fatalf("protected module count = %d, want %d", got, 5)
	}
}

func TestProtectedModulesSkipMissingServices(t *testing.T) {
	t.Parallel()

	deps := fullDependencies()
	deps.Invoices = nil
	deps.Journal = nil
	ids := map[string]bool{}
	for _, m := range DefaultProtectedModules(deps) {
		ids[m.ID()] = true
	}
	if ids["invoices"] || ids["journal"] {
		t.Fatalf("protected ids = %v, want invoices and journal skipped", ids)
	}
	if !ids["days"] || !ids["lists"] || !ids["notifications"] {
		t.Fatalf("protected ids = %v, want days, lists and notifications", ids)
	}
}

func TestAllModulesMountUniquePrefixes(t *testing.T) {
	t.Parallel()

	seenIDs := map[string]struct{}{}
	seenPrefixes := map[string]string{}
	for _, m := range All(fullDependencies()) {
		if _, ok := seenIDs[m.ID()]; ok {
			t.Fatalf("duplicate module id %q", m.ID())
		}
		seenIDs[m.ID()] = struct{}{}

		mount, err := m.Mount()
		if err != nil {
			t.Fatalf("module %q mount error = %v", m.ID(), err)
		}
		if mount.Prefix == "" || mount.Handler == nil {
			t.Fatalf("module %q mount = %+v, want prefix and handler", m.ID(), mount)
		}
		if owner, ok := seenPrefixes[mount.Prefix]; ok {
			t.Fatalf("module %q duplicates prefix %q owned by %q", m.ID(), mount.Prefix, owner)
		}
		seenPrefixes[mount.Prefix] = m.ID()
	}
	if len(seenIDs) != 7 {
		t.Fatalf("module count = %d, want %d", len(seenIDs), 7)
	}
}
