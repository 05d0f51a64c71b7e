package templates

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// MainContentID is the element htmx swaps on boosted navigation.
const MainContentID = "main-content"

// Toast is a one-time notice shown above the page content.
type Toast struct {
	Kind    string
	Message string
}

// Page carries the chrome state of a full document render.
type Page struct {
	Title       string
	Lang        string
	CurrentPath string
	UserName    string
	SignedIn    bool
	UnreadCount int
	Toast       *Toast
	Loc         Localizer
}

type navEntry struct {
	href string
	key  string
}

var navEntries = []navEntry{
	{href: "/days/", key: "web.nav.today"},
	{href: "/lists/", key: "web.nav.lists"},
	{href: "/journal/", key: "web.nav.journal"},
	{href: "/calendar/", key: "web.nav.calendar"},
	{href: "/invoices/", key: "web.nav.invoices"},
}

// Layout renders the full HTML document around its templ children.
func Layout(page Page) templ.Component {
	lang := page.Lang
	if lang == "" {
		lang = "en-US"
	}
	title := T(page.Loc, "web.app.name")
	if page.Title != "" {
		title = page.Title + " · " + title
	}
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<!DOCTYPE html>"); err != nil {
			return err
		}
		doc := El("html", A("lang", lang),
			El("head", nil,
				El("meta", A("charset", "utf-8")),
				El("meta", A("name", "viewport", "content", "width=device-width, initial-scale=1")),
				El("title", nil, Text(title)),
				El("link", A("rel", "stylesheet", "href", "/static/doosr.css")),
				El("script", A("src", "https://unpkg.com/htmx.org@2.0.4", "defer", "defer")),
				liveScript(page.SignedIn),
			),
			El("body", A("hx-boost", "true", "hx-target", "#"+MainContentID, "hx-select", "#"+MainContentID, "hx-swap", "outerHTML"),
				header(page),
				toast(page.Toast),
				MainContent(),
			),
		)
		return doc.Render(ctx, w)
	})
}

// MainContent renders the swappable main element around its templ children.
func MainContent() templ.Component {
	return El("main", A("id", MainContentID), Children())
}

func header(page Page) templ.Component {
	if !page.SignedIn {
		return El("header", A("class", "site-header"),
			El("nav", nil,
				Link("/auth/login", T(page.Loc, "web.nav.login")),
				Text(" "),
				Link("/auth/register", T(page.Loc, "web.nav.register")),
			),
		)
	}
	links := make([]templ.Component, 0, len(navEntries)+3)
	for _, entry := range navEntries {
		var attrs []Attr
		if strings.HasPrefix(page.CurrentPath, entry.href) {
			attrs = A("aria-current", "page")
		}
		links = append(links, Link(entry.href, T(page.Loc, entry.key), attrs...), Text(" "))
	}
	inbox := T(page.Loc, "web.nav.notifications")
	if page.UnreadCount > 0 {
		inbox = T(page.Loc, "web.nav.notifications_unread", page.UnreadCount)
	}
	links = append(links,
		El("a", A("href", "/notifications/", "id", "nav-notifications", "hx-get", "/notifications/unread", "hx-trigger", "live:notifications from:body", "hx-swap", "innerHTML"), Text(inbox)),
		Text(" "),
		Link("/auth/account", page.UserName),
		ActionButton("/auth/logout", T(page.Loc, "web.nav.logout")),
	)
	return El("header", A("class", "site-header"), El("nav", nil, links...))
}

// liveScript loads the websocket client for signed-in pages only.
func liveScript(signedIn bool) templ.Component {
	if !signedIn {
		return nil
	}
	return El("script", A("src", "/static/live.js", "defer", "defer"))
}

func toast(t *Toast) templ.Component {
	if t == nil || strings.TrimSpace(t.Message) == "" {
		return nil
	}
	return El("div", A("class", "toast toast-"+t.Kind, "role", "status"), Text(t.Message))
}
