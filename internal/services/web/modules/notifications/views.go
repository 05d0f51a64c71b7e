package notifications

import (
	"net/url"
	"time"

	"github.com/a-h/templ"
	"github.com/doosr/doosr/internal/services/web/routepath"
	ui "github.com/doosr/doosr/internal/services/web/templates"
)

type inboxView struct {
	Items         []notificationSummary
	NextPageToken string
	Unread        int
	Now           time.Time
}

func inboxPage(view inboxView, loc ui.Localizer) templ.Component {
	rows := make([]templ.Component, 0, len(view.Items))
	for _, item := range view.Items {
		class := "notification"
		if !item.Read {
			class += " unread"
		}
		var open templ.Component = ui.Link(item.URL, ui.T(loc, "web.notifications.open"))
		if !item.Read {
			open = ui.ActionButton(routepath.NotificationRead(item.ID), ui.T(loc, "web.notifications.open"))
		}
		rows = append(rows, ui.El("li", ui.A("class", class, "data-notification", item.ID),
			ui.El("h2", nil, ui.Text(item.Title)),
			ui.El("p", nil, ui.Text(item.Body)),
			ui.El("p", ui.A("class", "meta"),
				ui.Text(notificationSourceLabel(item.Source, loc)+" · "),
				ui.El("time", ui.A("datetime", item.CreatedAt.UTC().Format(time.RFC3339)), ui.Text(notificationCreatedLabel(item.CreatedAt, view.Now, loc))),
			),
			open,
		))
	}
	var list templ.Component = ui.El("ul", ui.A("class", "inbox"), rows...)
	if len(rows) == 0 {
		list = ui.El("p", ui.A("class", "empty"), ui.Text(ui.T(loc, "web.notifications.empty")))
	}
	var next templ.Component
	if view.NextPageToken != "" {
		next = ui.Link(routepath.NotificationsPrefix+"?"+url.Values{"page_token": {view.NextPageToken}}.Encode(), ui.T(loc, "web.notifications.older"), ui.A("rel", "next")...)
	}
	return ui.El("section", ui.A("class", "notifications", "hx-get", routepath.NotificationsPrefix, "hx-trigger", "live:notifications from:body",
		"hx-select", "#"+ui.MainContentID, "hx-target", "#"+ui.MainContentID, "hx-swap", "outerHTML"),
		ui.El("h1", nil, ui.Text(ui.T(loc, "web.notifications.title"))),
		ui.El("p", ui.A("class", "unread-count"), ui.Text(unreadLabel(view.Unread, loc))),
		list,
		next,
		ui.Link(routepath.NotificationSubscriptions, ui.T(loc, "web.notifications.subscriptions")),
	)
}

func subscriptionsPage(subscriptions []subscriptionSummary, loc ui.Localizer) templ.Component {
	rows := make([]templ.Component, 0, len(subscriptions))
	for _, s := range subscriptions {
		label := s.UserAgent
		if label == "" {
			label = s.Endpoint
		}
		rows = append(rows, ui.El("li", ui.A("data-subscription", s.ID),
			ui.Text(label+" · "+s.CreatedAt.UTC().Format(time.DateOnly)),
			ui.ActionButton(routepath.Subscription(s.ID)+"/remove", ui.T(loc, "web.notifications.unsubscribe")),
		))
	}
	var list templ.Component = ui.El("ul", ui.A("class", "subscriptions"), rows...)
	if len(rows) == 0 {
		list = ui.El("p", ui.A("class", "empty"), ui.Text(ui.T(loc, "web.notifications.no_subscriptions")))
	}
	return ui.El("section", ui.A("class", "push-subscriptions"),
		ui.El("h1", nil, ui.Text(ui.T(loc, "web.notifications.subscriptions"))),
		ui.El("p", ui.A("class", "hint"), ui.Text(ui.T(loc, "web.notifications.subscribe_hint"))),
		list,
		ui.Link(routepath.NotificationsPrefix, ui.T(loc, "web.notifications.back")),
	)
}
