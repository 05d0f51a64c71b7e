package notifications

import (
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/a-h/templ"
	apperrors "github.com/doosr/doosr/internal/platform/errors"
	notificationsdomain "github.com/doosr/doosr/internal/services/notifications/domain"
	"github.com/doosr/doosr/internal/services/web/platform/httpx"
	"github.com/doosr/doosr/internal/services/web/platform/modulehandler"
	"github.com/doosr/doosr/internal/services/web/routepath"
	webtemplates "github.com/doosr/doosr/internal/services/web/templates"
)

const maxSubscriptionBytes = 8 << 10

var errInvalidSubscription = apperrors.New(apperrors.KindInvalidInput, "errors.invalid_input", "push subscription body is invalid")

type handlers struct {
	modulehandler.Base
	service Service
	now     func() time.Time
}

func (h handlers) handleInbox(w http.ResponseWriter, r *http.Request) {
	userID := h.Viewer(r).UserID
	page, err := h.service.ListInbox(r.Context(), userID, 0, r.URL.Query().Get("page_token"))
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	unread, err := h.service.CountUnread(r.Context(), userID)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	loc := h.Printer(r)
	items := make([]notificationSummary, 0, len(page.Notifications))
	for _, n := range page.Notifications {
		items = append(items, summarize(n, loc))
	}
	if httpx.WantsJSON(r) {
		h.WriteJSON(w, inboxPayload{Notifications: items, NextPageToken: page.NextPageToken, Unread: unread})
		return
	}
	view := inboxView{Items: items, NextPageToken: page.NextPageToken, Unread: unread, Now: h.now()}
	h.WritePage(w, r, webtemplates.T(loc, "web.notifications.title"), inboxPage(view, loc))
}

// handleUnread answers the nav badge refresh: JSON clients get the count,
// htmx gets the nav label.
func (h handlers) handleUnread(w http.ResponseWriter, r *http.Request) {
	unread, err := h.service.CountUnread(r.Context(), h.Viewer(r).UserID)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	if httpx.WantsJSON(r) {
		h.WriteJSON(w, unreadPayload{Unread: unread})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = io.WriteString(w, templ.EscapeString(unreadLabel(unread, h.Printer(r))))
}

func (h handlers) handleRead(w http.ResponseWriter, r *http.Request) {
	notification, err := h.service.MarkRead(r.Context(), h.Viewer(r).UserID, r.PathValue("id"))
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	summary := summarize(notification, h.Printer(r))
	if httpx.WantsJSON(r) {
		h.WriteJSON(w, summary)
		return
	}
	h.Redirect(w, r, routepath.SafeNext(summary.URL, routepath.NotificationsPrefix), "")
}

func (h handlers) handleSubscriptions(w http.ResponseWriter, r *http.Request) {
	subscriptions, err := h.service.ListSubscriptions(r.Context(), h.Viewer(r).UserID)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	out := make([]subscriptionSummary, 0, len(subscriptions))
	for _, s := range subscriptions {
		out = append(out, summarizeSubscription(s))
	}
	if httpx.WantsJSON(r) {
		h.WriteJSON(w, out)
		return
	}
	loc := h.Printer(r)
	h.WritePage(w, r, webtemplates.T(loc, "web.notifications.subscriptions"), subscriptionsPage(out, loc))
}

// handleSubscribe accepts the browser PushSubscription JSON or the
// endpoint, p256dh and auth form fields.
func (h handlers) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	input := notificationsdomain.SubscribeInput{UserAgent: r.UserAgent()}
	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType == "application/json" {
		var body pushSubscriptionBody
		if err := httpx.DecodeJSON(w, r, maxSubscriptionBytes, &body); err != nil {
			h.WriteError(w, r, apperrors.Wrap(apperrors.KindInvalidInput, "errors.invalid_input", "decode push subscription", err))
			return
		}
		input.Endpoint, input.P256DH, input.Auth = body.Endpoint, body.Keys.P256DH, body.Keys.Auth
	} else {
		if err := h.ParseForm(w, r); err != nil {
			h.WriteError(w, r, err)
			return
		}
		input.Endpoint, input.P256DH, input.Auth = h.FormValue(r, "endpoint"), h.FormValue(r, "p256dh"), h.FormValue(r, "auth")
	}
	if input.P256DH == "" || input.Auth == "" {
		h.WriteError(w, r, errInvalidSubscription)
		return
	}
	subscription, err := h.service.Subscribe(r.Context(), h.Viewer(r).UserID, input)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	if httpx.WantsJSON(r) {
		h.WriteJSON(w, summarizeSubscription(subscription))
		return
	}
	h.Redirect(w, r, routepath.NotificationSubscriptions, "web.notifications.subscribed")
}

// handleUnsubscribe removes a subscription by id or by its escaped endpoint.
func (h handlers) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Unsubscribe(r.Context(), h.Viewer(r).UserID, r.PathValue("id")); err != nil {
		h.WriteError(w, r, err)
		return
	}
	if r.Method == http.MethodDelete || httpx.WantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.Redirect(w, r, routepath.NotificationSubscriptions, "web.notifications.unsubscribed")
}
