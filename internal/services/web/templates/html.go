// Package templates holds the templ components shared by every web page:
// the document layout, navigation and small HTML building blocks.
package templates

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// Attr is one HTML attribute. Attributes render in declaration order.
type Attr struct {
	Name  string
	Value string
}

// A builds attributes from name/value pairs. A trailing name without a
// value renders as a boolean attribute.
func A(pairs ...string) []Attr {
	attrs := make([]Attr, 0, (len(pairs)+1)/2)
	for i := 0; i < len(pairs); i += 2 {
		attr := Attr{Name: pairs[i]}
		if i+1 < len(pairs) {
			attr.Value = pairs[i+1]
		} else {
			attr.Value = pairs[i]
		}
		attrs = append(attrs, attr)
	}
	return attrs
}

var voidElements = map[string]bool{
	"br": true, "hr": true, "img": true, "input": true, "link": true, "meta": true,
}

var urlAttributes = map[string]bool{"href": true, "action": true, "src": true}

// El renders <tag attrs>children</tag>. Attribute values are escaped and
// URL attributes are sanitized.
func El(tag string, attrs []Attr, children ...templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString("<")
		b.WriteString(tag)
		for _, attr := range attrs {
			value := attr.Value
			if urlAttributes[attr.Name] {
				value = string(templ.URL(value))
			}
			b.WriteString(" ")
			b.WriteString(attr.Name)
			b.WriteString(`="`)
			b.WriteString(templ.EscapeString(value))
			b.WriteString(`"`)
		}
		b.WriteString(">")
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
		if voidElements[tag] {
			return nil
		}
		for _, child := range children {
			if child == nil {
				continue
			}
			if err := child.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</"+tag+">")
		return err
	})
}

// Text renders escaped text.
func Text(s string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, templ.EscapeString(s))
		return err
	})
}

// Textf renders escaped formatted text.
func Textf(format string, args ...any) templ.Component {
	return Text(fmt.Sprintf(format, args...))
}

// Group renders components one after another.
func Group(children ...templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		for _, child := range children {
			if child == nil {
				continue
			}
			if err := child.Render(ctx, w); err != nil {
				return err
			}
		}
		return nil
	})
}

// If renders c when cond holds.
func If(cond bool, c templ.Component) templ.Component {
	if !cond {
		return nil
	}
	return c
}

// Children renders the children passed through templ.WithChildren.
func Children() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return templ.GetChildren(ctx).Render(ctx, w)
	})
}

// Link renders an anchor.
func Link(href, label string, attrs ...Attr) templ.Component {
	return El("a", append(A("href", href), attrs...), Text(label))
}

// Hidden renders a hidden form input.
func Hidden(name, value string) templ.Component {
	return El("input", A("type", "hidden", "name", name, "value", value))
}

// Field renders a labelled input.
func Field(label, inputType, name, value string, extra ...Attr) templ.Component {
	attrs := append(A("type", inputType, "name", name, "id", "field-"+name, "value", value), extra...)
	return El("p", A("class", "field"),
		El("label", A("for", "field-"+name), Text(label)),
		El("input", attrs),
	)
}

// TextArea renders a labelled textarea.
func TextArea(label, name, value string) templ.Component {
	return El("p", A("class", "field"),
		El("label", A("for", "field-"+name), Text(label)),
		El("textarea", A("name", name, "id", "field-"+name, "rows", "4"), Text(value)),
	)
}

// Select renders a labelled select with options as value/label pairs.
func Select(label, name, selected string, options ...[2]string) templ.Component {
	opts := make([]templ.Component, 0, len(options))
	for _, option := range options {
		attrs := A("value", option[0])
		if option[0] == selected {
			attrs = append(attrs, Attr{Name: "selected", Value: "selected"})
		}
		opts = append(opts, El("option", attrs, Text(option[1])))
	}
	return El("p", A("class", "field"),
		El("label", A("for", "field-"+name), Text(label)),
		El("select", A("name", name, "id", "field-"+name), opts...),
	)
}

// Form renders a POST form with an htmx-boosted submit.
func Form(action string, children ...templ.Component) templ.Component {
	return El("form", A("method", "post", "action", action, "hx-boost", "true"), children...)
}

// Submit renders a submit button.
func Submit(label string) templ.Component {
	return El("button", A("type", "submit"), Text(label))
}

// ActionButton renders a one-button POST form carrying hidden fields given
// as name/value pairs.
func ActionButton(action, label string, fields ...string) templ.Component {
	children := make([]templ.Component, 0, len(fields)/2+1)
	for i := 0; i+1 < len(fields); i += 2 {
		children = append(children, Hidden(fields[i], fields[i+1]))
	}
	children = append(children, Submit(label))
	return El("form", A("method", "post", "action", action, "class", "inline", "hx-boost", "true"), children...)
}

// Alert renders an error message, or nothing when message is empty.
func Alert(message string) templ.Component {
	if message == "" {
		return nil
	}
	return El("p", A("class", "alert", "role", "alert"), Text(message))
}
