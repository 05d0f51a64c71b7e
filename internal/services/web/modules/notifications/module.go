// Package notifications serves the inbox and push subscription routes.
package notifications

import (
	"context"
	"net/http"
	"time"

	notificationsdomain "github.com/doosr/doosr/internal/services/notifications/domain"
	module "github.com/doosr/doosr/internal/services/web/module"
	"github.com/doosr/doosr/internal/services/web/platform/modulehandler"
	"github.com/doosr/doosr/internal/services/web/routepath"
)

// Service is the notification surface the module drives.
type Service interface {
	ListInbox(ctx context.Context, userID string, pageSize int, pageToken string) (notificationsdomain.NotificationPage, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, notificationID string) (notificationsdomain.Notification, error)
	Subscribe(ctx context.Context, userID string, input notificationsdomain.SubscribeInput) (notificationsdomain.Subscription, error)
	Unsubscribe(ctx context.Context, userID, subscriptionIDOrEndpoint string) error
	ListSubscriptions(ctx context.Context, userID string) ([]notificationsdomain.Subscription, error)
}

// Module provides authenticated notification routes.
type Module struct {
	service Service
	base    modulehandler.Base
	now     func() time.Time
}

// New returns a notifications module.
func New(service Service, base modulehandler.Base) Module {
	return Module{service: service, base: base, now: time.Now}
}

// WithClock returns a copy of m reading the current time from clock.
func (m Module) WithClock(clock func() time.Time) Module {
	if clock != nil {
		m.now = clock
	}
	return m
}

// ID returns a stable module identifier.
func (Module) ID() string { return "notifications" }

// Mount wires notifications route handlers.
func (m Module) Mount() (module.Mount, error) {
	mux := http.NewServeMux()
	registerRoutes(mux, handlers{Base: m.base, service: m.service, now: m.now})
	return module.Mount{Prefix: routepath.NotificationsPrefix, Handler: m.base.RequireUser(mux)}, nil
}
