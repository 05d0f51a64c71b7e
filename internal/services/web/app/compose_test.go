package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	module "github.com/doosr/doosr/internal/services/web/module"
)

type stubModule struct {
	id    string
	mount module.Mount
	err   error
}

func (m stubModule) ID() string { return m.id }

func (m stubModule) Mount() (module.Mount, error) { return m.mount, m.err }

func statusHandler(status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	})
}

func TestComposeRejectsDuplicateModulePrefix(t *testing.T) {
	t.Parallel()

	_, err := Compose([]module.Module{
		stubModule{id: "one", mount: module.Mount{Prefix: "/one/", Handler: statusHandler(http.StatusOK)}},
		stubModule{id: "two", mount: module.Mount{Prefix: "/one/", Handler: statusHandler(http.StatusOK)}},
	})
	if err == nil || !strings.Contains(err.Error(), `owned by module "one"`) {
		t.Fatalf("Compose err = %v, want duplicate prefix error", err)
	}
}

func TestComposeRejectsInvalidModules(t *testing.T) {
	t.Parallel()

	tests := map[string]module.Module{
		"missing leading slash":  stubModule{id: "bad", mount: module.Mount{Prefix: "days/", Handler: statusHandler(http.StatusOK)}},
		"missing trailing slash": stubModule{id: "bad", mount: module.Mount{Prefix: "/days", Handler: statusHandler(http.StatusOK)}},
		"surrounding whitespace": stubModule{id: "bad", mount: module.Mount{Prefix: "/days/ ", Handler: statusHandler(http.StatusOK)}},
		"root prefix":            stubModule{id: "bad", mount: module.Mount{Prefix: "/", Handler: statusHandler(http.StatusOK)}},
		"missing handler":        stubModule{id: "bad", mount: module.Mount{Prefix: "/days/"}},
		"mount error":            stubModule{id: "bad", err: http.ErrAbortHandler},
		"nil module":             nil,
	}
	for name, feature := range tests {
		if _, err := Compose([]module.Module{feature}); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestComposeRoutesByPrefix(t *testing.T) {
	t.Parallel()

	mux, err := Compose([]module.Module{
		stubModule{id: "days", mount: module.Mount{Prefix: "/days/", Handler: statusHandler(http.StatusTeapot)}},
		stubModule{id: "lists", mount: module.Mount{Prefix: "/lists/", Handler: statusHandler(http.StatusAccepted)}},
	})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	tests := map[string]int{
		"/days/2026-09-17": http.StatusTeapot,
		"/lists/abc":       http.StatusAccepted,
		"/journal/":        http.StatusNotFound,
	}
	for path, want := range tests {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != want {
			t.Fatalf("GET %s status = %d, want %d", path, rec.Code, want)
		}
	}
}
