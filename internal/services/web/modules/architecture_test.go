package modules

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/doosr/doosr/internal/services/web/routepath"
)

// sharedPackages live under modules/ but hold views reused by several
// modules rather than routes.
var sharedPackages = map[string]struct{}{
	"plannerview": {},
}

func TestFeatureModulesDoNotImportSiblingModules(t *testing.T) {
	t.Parallel()

	entries, err := filepath.Glob(filepath.Join("*", "*.go"))
	if err != nil {
		t.Fatalf("glob module files: %v", err)
	}
	fset := token.NewFileSet()
	for _, file := range entries {
		parsed, err := parser.ParseFile(fset, file, nil, parser.ImportsOnly)
		if err != nil {
			t.Fatalf("parse imports for %s: %v", file, err)
		}
		for _, imp := range parsed.Imports {
			path := strings.Trim(imp.Path.Value, "\"")
			_, sibling, ok := strings.Cut(path, "/internal/services/web/modules/")
			if !ok {
				continue
			}
			if _, shared := sharedPackages[sibling]; shared {
				continue
			}
			t.Fatalf("file %s imports sibling module path %q", file, path)
		}
	}
}

func TestRoutePrefixesRemainUniqueConstants(t *testing.T) {
	t.Parallel()

	prefixes := []string{
		routepath.AuthPrefix,
		routepath.DaysPrefix,
		routepath.ListsPrefix,
		routepath.JournalPrefix,
		routepath.CalendarPrefix,
		routepath.InvoicesPrefix,
		routepath.NotificationsPrefix,
	}
	seen := map[string]struct{}{}
	for _, prefix := range prefixes {
		if _, ok := seen[prefix]; ok {
			t.Fatalf("duplicate route prefix constant %q", prefix)
		}
		seen[prefix] = struct{}{}
	}
}

func TestFeatureModulesFollowTemplate(t *testing.T) {
	t.Parallel()

	areas := []string{"auth", "calendar", "days", "lists", "journal", "invoices", "notifications"}
	requiredFiles := []string{"module.go", "handlers.go", "handlers_test.go", "views.go"}
	for _, area := range areas {
		for _, file := range requiredFiles {
			path := filepath.Join(area, file)
			if _, err := os.Stat(path); err != nil {
				t.Fatalf("module %q missing required file %q: %v", area, file, err)
			}
		}
	}
}
