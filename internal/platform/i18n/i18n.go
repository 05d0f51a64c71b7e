// Package i18n resolves request languages and renders catalog messages.
package i18n

import (
	"strings"

	"github.com/doosr/doosr/internal/platform/i18n/catalog"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var supported = []language.Tag{
	language.AmericanEnglish,
	language.BrazilianPortuguese,
}

var matcher = language.NewMatcher(supported)

// SupportedTags returns the languages the catalogs translate.
func SupportedTags() []language.Tag {
	out := make([]language.Tag, len(supported))
	copy(out, supported)
	return out
}

// DefaultTag returns the fallback language.
func DefaultTag() language.Tag {
	return supported[0]
}

// ParseTag parses value and reports whether it matches a supported language.
func ParseTag(value string) (language.Tag, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return DefaultTag(), false
	}
	tag, err := language.Parse(value)
	if err != nil {
		return DefaultTag(), false
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return DefaultTag(), false
	}
	return supported[idx], true
}

// MatchAcceptLanguage picks the best supported tag for an Accept-Language
// header value.
func MatchAcceptLanguage(header string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return DefaultTag()
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return DefaultTag()
	}
	return supported[idx]
}

// Printer returns a message printer bound to the embedded catalogs.
func Printer(tag language.Tag) *message.Printer {
	_ = catalog.Default()
	return message.NewPrinter(tag)
}

// Text renders key for tag, falling back to the base locale and finally to
// the key itself.
func Text(tag language.Tag, key string, args ...any) string {
	if value, ok := catalog.Default().Message(Locale(tag), key); ok {
		if len(args) == 0 {
			return value
		}
		return Printer(tag).Sprintf(key, args...)
	}
	return key
}

// Locale returns the catalog locale name for tag.
func Locale(tag language.Tag) string {
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return catalog.BaseLocale
	}
	return supported[idx].String()
}
