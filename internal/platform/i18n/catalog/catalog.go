// Package catalog loads the embedded YAML message catalogs and registers
// them with golang.org/x/text/message.
package catalog

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// BaseLocale is the locale every key must exist in.
const BaseLocale = "en-US"

type catalogFile struct {
	Locale    string            `yaml:"locale"`
	Namespace string            `yaml:"namespace"`
	Messages  map[string]string `yaml:"messages"`
}

// LocaleCatalog stores all messages for one locale, grouped by namespace.
type LocaleCatalog struct {
	Locale     string
	Namespaces map[string]map[string]string
	Messages   map[string]string
}

// Bundle contains every loaded locale catalog.
type Bundle struct {
	locales map[string]*LocaleCatalog
}

//go:embed locales/*/*.yaml
var embeddedFS embed.FS

var defaultBundle = mustLoadAndRegisterEmbedded()

// Default returns the process-wide embedded bundle.
func Default() *Bundle {
	return defaultBundle
}

// LoadEmbedded loads the catalogs compiled into the binary.
func LoadEmbedded() (*Bundle, error) {
	return LoadFromFS(embeddedFS)
}

// LoadFromFS loads locales/<locale>/<namespace>.yaml files from catalogFS.
func LoadFromFS(catalogFS fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(catalogFS, "locales/*/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	bundle := &Bundle{locales: map[string]*LocaleCatalog{}}
	for _, p := range paths {
		data, err := fs.ReadFile(catalogFS, p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", p, err)
		}
		if err := bundle.addFile(p, file); err != nil {
			return nil, err
		}
	}
	if !bundle.HasLocale(BaseLocale) {
		return nil, fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}
	return bundle, nil
}

func (b *Bundle) addFile(p string, file catalogFile) error {
	localeFromPath := path.Base(path.Dir(p))
	namespaceFromPath := strings.TrimSuffix(path.Base(p), path.Ext(p))

	locale := strings.TrimSpace(file.Locale)
	if locale != localeFromPath {
		return fmt.Errorf("catalog %s: locale %q must match path locale %q", p, locale, localeFromPath)
	}
	namespace := strings.TrimSpace(file.Namespace)
	if namespace != namespaceFromPath {
		return fmt.Errorf("catalog %s: namespace %q must match file name %q", p, namespace, namespaceFromPath)
	}
	if len(file.Messages) == 0 {
		return fmt.Errorf("catalog %s: messages are required", p)
	}

	lc, ok := b.locales[locale]
	if !ok {
		lc = &LocaleCatalog{Locale: locale, Namespaces: map[string]map[string]string{}, Messages: map[string]string{}}
		b.locales[locale] = lc
	}
	if _, exists := lc.Namespaces[namespace]; exists {
		return fmt.Errorf("catalog %s: namespace %q already defined for %q", p, namespace, locale)
	}

	nsMessages := make(map[string]string, len(file.Messages))
	for key, value := range file.Messages {
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("catalog %s: message key cannot be blank", p)
		}
		if !strings.HasPrefix(key, namespace+".") {
			return fmt.Errorf("catalog %s: key %q must start with %q", p, key, namespace+".")
		}
		if _, exists := lc.Messages[key]; exists {
			return fmt.Errorf("catalog %s: duplicate key %q in %q", p, key, locale)
		}
		lc.Messages[key] = value
		nsMessages[key] = value
	}
	lc.Namespaces[namespace] = nsMessages
	return nil
}

// Register installs every message into the x/text default catalog, under
// both the full tag and its base language.
func (b *Bundle) Register() error {
	if b == nil {
		return nil
	}
	for _, locale := range b.Locales() {
		tag, err := language.Parse(locale)
		if err != nil {
			return fmt.Errorf("parse locale tag %q: %w", locale, err)
		}
		tags := []language.Tag{tag}
		if base, conf := tag.Base(); conf != language.No {
			if baseTag, err := language.Parse(base.String()); err == nil && baseTag != tag {
				tags = append(tags, baseTag)
			}
		}
		for key, value := range b.locales[locale].Messages {
			for _, t := range tags {
				if err := message.SetString(t, key, value); err != nil {
					return fmt.Errorf("register %s %s: %w", locale, key, err)
				}
			}
		}
	}
	return nil
}

// HasLocale reports whether locale was loaded.
func (b *Bundle) HasLocale(locale string) bool {
	if b == nil {
		return false
	}
	_, ok := b.locales[strings.TrimSpace(locale)]
	return ok
}

// Locales returns the loaded locale identifiers, sorted.
func (b *Bundle) Locales() []string {
	if b == nil {
		return nil
	}
	out := make([]string, 0, len(b.locales))
	for locale := range b.locales {
		out = append(out, locale)
	}
	sort.Strings(out)
	return out
}

// Message returns one message with base-locale fallback.
func (b *Bundle) Message(locale, key string) (string, bool) {
	if b == nil {
		return "", false
	}
	key = strings.TrimSpace(key)
	if lc, ok := b.locales[strings.TrimSpace(locale)]; ok {
		if value, ok := lc.Messages[key]; ok {
			return value, true
		}
	}
	if lc, ok := b.locales[BaseLocale]; ok {
		value, ok := lc.Messages[key]
		return value, ok
	}
	return "", false
}

// MissingKeys lists base-locale keys that locale does not translate.
func (b *Bundle) MissingKeys(locale string) []string {
	if b == nil {
		return nil
	}
	base := b.locales[BaseLocale]
	target, ok := b.locales[strings.TrimSpace(locale)]
	if base == nil || !ok {
		return nil
	}
	var missing []string
	for key := range base.Messages {
		if _, ok := target.Messages[key]; !ok {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	return missing
}

func mustLoadAndRegisterEmbedded() *Bundle {
	bundle, err := LoadEmbedded()
	if err != nil {
		panic(err)
	}
	if err := bundle.Register(); err != nil {
		panic(err)
	}
	return bundle
}
