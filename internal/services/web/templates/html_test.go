package templates

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"
)

func render(t *testing.T, ctx context.Context, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	return buf.String()
}

func TestElEscapesTextAndAttributes(t *testing.T) {
	t.Parallel()

	got := render(t, context.Background(), El("p", A("title", `"x" & y`, "hidden"), Text("<b>hi</b>"), nil))
	want := `<p title="&#34;x&#34; &amp; y" hidden="hidden">&lt;b&gt;hi&lt;/b&gt;</p>`
	if got != want {
		t.Fatalf("El = %q, want %q", got, want)
	}
}

func TestElSanitizesURLs(t *testing.T) {
	t.Parallel()

	got := render(t, context.Background(), Link("javascript:alert(1)", "x"))
	if strings.Contains(got, "javascript:") {
		t.Fatalf("Link = %q, want unsafe scheme removed", got)
	}
	if got := render(t, context.Background(), El("input", A("type", "text"))); got != `<input type="text">` {
		t.Fatalf("void element = %q", got)
	}
}

func TestSelectMarksSelectedOption(t *testing.T) {
	t.Parallel()

	got := render(t, context.Background(), Select("State", "state", "done", [2]string{"todo", "To do"}, [2]string{"done", "Done"}))
	if !strings.Contains(got, `<option value="done" selected="selected">Done</option>`) {
		t.Fatalf("Select = %q", got)
	}
	if strings.Contains(got, `<option value="todo" selected`) {
		t.Fatalf("Select = %q, want only one selected option", got)
	}
}

func TestActionButtonCarriesHiddenFields(t *testing.T) {
	t.Parallel()

	got := render(t, context.Background(), ActionButton("/days/2026-09-17/state", "Done", "item_id", "abc", "state", "done"))
	for _, want := range []string{
		`action="/days/2026-09-17/state"`,
		`<input type="hidden" name="item_id" value="abc">`,
		`<input type="hidden" name="state" value="done">`,
		`<button type="submit">Done</button>`,
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("ActionButton = %q, missing %q", got, want)
		}
	}
}

func TestLayoutWrapsChildrenInMain(t *testing.T) {
	t.Parallel()

	ctx := templ.WithChildren(context.Background(), Text("body"))
	got := render(t, ctx, Layout(Page{Title: "Today", Lang: "pt-BR", CurrentPath: "/days/2026-09-17", SignedIn: true, UserName: "ana"}))
	for _, want := range []string{
		"<!DOCTYPE html>",
		`<html lang="pt-BR">`,
		`<main id="main-content">body</main>`,
		`<a href="/days/" aria-current="page">web.nav.today</a>`,
		`<title>Today · web.app.name</title>`,
		`<link rel="stylesheet" href="/static/doosr.css">`,
		`<script src="/static/live.js" defer="defer"></script>`,
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("Layout missing %q in %q", want, got)
		}
	}
}

func TestLayoutAnonymousShowsLogin(t *testing.T) {
	t.Parallel()

	ctx := templ.WithChildren(context.Background(), Text(""))
	got := render(t, ctx, Layout(Page{}))
	if !strings.Contains(got, `href="/auth/login"`) || strings.Contains(got, "/auth/logout") || strings.Contains(got, "live.js") {
		t.Fatalf("anonymous layout = %q", got)
	}
}

func TestTFallsBackToKey(t *testing.T) {
	t.Parallel()

	if got := T(nil, "web.nav.%d", 3); got != "web.nav.3" {
		t.Fatalf("T = %q, want %q", got, "web.nav.3")
	}
}
