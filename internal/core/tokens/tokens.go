// Package tokens expands {{token}} placeholders in titles against the day
// the content is viewed on.
package tokens

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/doosr/doosr/internal/core/fixedcalendar"
)

var placeholder = regexp.MustCompile(`\\?\{\{([^{}]*)\}\}`)

// Context is the viewing day placeholders resolve against.
type Context struct {
	// Date is the civil day being viewed; its location is ignored.
	Date time.Time
}

// NewContext returns a Context for the civil date of t.
func NewContext(t time.Time) Context {
	return Context{Date: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

type resolver func(ctx Context, arg string, hasArg bool) (string, bool)

var resolvers = map[string]resolver{
	"date":          resolveDate,
	"weekday":       noArg(func(c Context) string { return c.Date.Weekday().String() }),
	"month":         noArg(func(c Context) string { return c.Date.Month().String() }),
	"year":          noArg(func(c Context) string { return strconv.Itoa(c.Date.Year()) }),
	"day":           noArg(func(c Context) string { return strconv.Itoa(c.Date.Day()) }),
	"day_of_year":   noArg(func(c Context) string { return strconv.Itoa(c.Date.YearDay()) }),
	"week":          noArg(isoWeek),
	"fixed_date":    noArg(func(c Context) string { return c.fixed().String() }),
	"fixed_month":   noArg(fixedMonth),
	"fixed_day":     noArg(fixedDay),
	"fixed_weekday": noArg(fixedWeekday),
	"days_until":    daysBetween(1),
	"days_since":    daysBetween(-1),
}

// Interpolate replaces every known placeholder in text. Unknown names and
// malformed arguments are left verbatim; a backslash before the opening
// braces emits the placeholder literally.
func Interpolate(text string, ctx Context) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	ctx = NewContext(ctx.Date)
	return placeholder.ReplaceAllStringFunc(text, func(match string) string {
		if strings.HasPrefix(match, `\`) {
			return match[1:]
		}
		name, arg, hasArg := split(match[2 : len(match)-2])
		resolve, ok := resolvers[name]
		if !ok {
			return match
		}
		value, ok := resolve(ctx, arg, hasArg)
		if !ok {
			return match
		}
		return value
	})
}

// Tokens lists the normalized placeholder names used in text, in order of
// appearance, including unknown ones.
func Tokens(text string) []string {
	var out []string
	for _, match := range placeholder.FindAllString(text, -1) {
		if strings.HasPrefix(match, `\`) {
			continue
		}
		name, _, _ := split(match[2 : len(match)-2])
		out = append(out, name)
	}
	return out
}

// Known reports whether name is a supported placeholder.
func Known(name string) bool {
	_, ok := resolvers[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

func split(body string) (name, arg string, hasArg bool) {
	body = strings.TrimSpace(body)
	name, arg, hasArg = strings.Cut(body, ":")
	return strings.ToLower(strings.TrimSpace(name)), strings.TrimSpace(arg), hasArg
}

func noArg(fn func(Context) string) resolver {
	return func(ctx Context, _ string, hasArg bool) (string, bool) {
		if hasArg {
			return "", false
		}
		return fn(ctx), true
	}
}

func resolveDate(ctx Context, layout string, hasArg bool) (string, bool) {
	if !hasArg {
		return ctx.Date.Format(time.DateOnly), true
	}
	if layout == "" {
		return "", false
	}
	return ctx.Date.Format(layout), true
}

const secondsPerDay = 24 * 60 * 60

func daysBetween(sign int) resolver {
	return func(ctx Context, arg string, hasArg bool) (string, bool) {
		if !hasArg {
			return "", false
		}
		target, err := time.Parse(time.DateOnly, arg)
		if err != nil {
			return "", false
		}
		days := (target.Unix() - ctx.Date.Unix()) / secondsPerDay
		return strconv.FormatInt(int64(sign)*days, 10), true
	}
}

func isoWeek(ctx Context) string {
	_, week := ctx.Date.ISOWeek()
	return strconv.Itoa(week)
}

func (c Context) fixed() fixedcalendar.Date {
	return fixedcalendar.FromGregorian(c.Date)
}

func specialLabel(d fixedcalendar.Date) (string, bool) {
	switch d.Special {
	case fixedcalendar.LeapDay:
		return "Leap Day", true
	case fixedcalendar.YearDay:
		return "Year Day", true
	}
	return "", false
}

func fixedMonth(ctx Context) string {
	d := ctx.fixed()
	if label, ok := specialLabel(d); ok {
		return label
	}
	return d.MonthName()
}

func fixedDay(ctx Context) string {
	d := ctx.fixed()
	if label, ok := specialLabel(d); ok {
		return label
	}
	return strconv.Itoa(d.Day)
}

func fixedWeekday(ctx Context) string {
	d := ctx.fixed()
	if label, ok := specialLabel(d); ok {
		return label
	}
	weekday, _ := d.Weekday()
	return weekday.String()
}
