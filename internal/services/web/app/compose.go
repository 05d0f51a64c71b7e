package app

import (
	"fmt"
	"net/http"
	"strings"

	module "github.com/doosr/doosr/internal/services/web/module"
)

// Compose mounts every module on one mux. Prefixes must be unique and of
// the form /name/.
func Compose(modules []module.Module) (*http.ServeMux, error) {
	root := http.NewServeMux()
	seen := make(map[string]string)
	for _, feature := range modules {
		if feature == nil {
			return nil, fmt.Errorf("module is nil")
		}
		mount, prefix, err := resolveMount(feature)
		if err != nil {
			return nil, err
		}
		if previous, ok := seen[prefix]; ok {
			return nil, fmt.Errorf("module %q duplicates prefix %q owned by module %q", feature.ID(), prefix, previous)
		}
		seen[prefix] = feature.ID()
		root.Handle(prefix, mount.Handler)
	}
	return root, nil
}

func resolveMount(feature module.Module) (module.Mount, string, error) {
	mount, err := feature.Mount()
	if err != nil {
		return module.Mount{}, "", fmt.Errorf("mount module %q: %w", feature.ID(), err)
	}
	prefix := mount.Prefix
	if err := validatePrefix(prefix); err != nil {
		return module.Mount{}, "", fmt.Errorf("mount module %q has invalid prefix %q: %w", feature.ID(), mount.Prefix, err)
	}
	if mount.Handler == nil {
		return module.Mount{}, "", fmt.Errorf("mount module %q: handler is required", feature.ID())
	}
	return mount, prefix, nil
}

func validatePrefix(prefix string) error {
	if prefix == "" {
		return fmt.Errorf("prefix is required")
	}
	if strings.TrimSpace(prefix) != prefix {
		return fmt.Errorf("prefix must not include surrounding whitespace")
	}
	if !strings.HasPrefix(prefix, "/") {
		return fmt.Errorf("prefix must begin with /")
	}
	if !strings.HasSuffix(prefix, "/") {
		return fmt.Errorf("prefix must end with /")
	}
	if prefix == "/" {
		return fmt.Errorf("prefix must name a path segment")
	}
	return nil
}
