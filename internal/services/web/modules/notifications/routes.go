package notifications

import (
	"net/http"

	"github.com/doosr/doosr/internal/services/web/routepath"
)

func registerRoutes(mux *http.ServeMux, h handlers) {
	if mux == nil {
		return
	}
	mux.HandleFunc(http.MethodGet+" "+routepath.NotificationsPrefix+"{$}", h.handleInbox)
	mux.HandleFunc(http.MethodGet+" "+routepath.NotificationsUnread, h.handleUnread)
	mux.HandleFunc(http.MethodPost+" "+routepath.NotificationsPrefix+"{id}/read", h.handleRead)
	mux.HandleFunc(http.MethodGet+" "+routepath.NotificationSubscriptions, h.handleSubscriptions)
	mux.HandleFunc(http.MethodPost+" "+routepath.NotificationSubscriptions, h.handleSubscribe)
	mux.HandleFunc(http.MethodDelete+" "+routepath.NotificationSubscriptions+"/{id}", h.handleUnsubscribe)
	mux.HandleFunc(http.MethodPost+" "+routepath.NotificationSubscriptions+"/{id}/remove", h.handleUnsubscribe)
}
