package notifications

import (
	"time"

	notificationsdomain "github.com/doosr/doosr/internal/services/notifications/domain"
	notificationsrender "github.com/doosr/doosr/internal/services/notifications/render"
)

// notificationSummary is a transport-safe inbox item with rendered copy.
type notificationSummary struct {
	ID          string     `json:"id"`
	MessageType string     `json:"message_type"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	URL         string     `json:"url"`
	Source      string     `json:"source,omitempty"`
	Read        bool       `json:"read"`
	CreatedAt   time.Time  `json:"created_at"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
}

type inboxPayload struct {
	Notifications []notificationSummary `json:"notifications"`
	NextPageToken string                `json:"next_page_token,omitempty"`
	Unread        int                   `json:"unread"`
}

type unreadPayload struct {
	Unread int `json:"unread"`
}

type subscriptionSummary struct {
	ID        string    `json:"id"`
	Endpoint  string    `json:"endpoint"`
	UserAgent string    `json:"user_agent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// pushSubscriptionBody mirrors the browser PushSubscription JSON.
type pushSubscriptionBody struct {
	Endpoint       string  `json:"endpoint"`
	ExpirationTime *int64  `json:"expirationTime,omitempty"`
	Keys           pushKey `json:"keys"`
}

type pushKey struct {
	P256DH string `json:"p256dh"`
	Auth   string `json:"auth"`
}

func summarize(n notificationsdomain.Notification, loc notificationsrender.Localizer) notificationSummary {
	rendered := notificationsrender.Render(loc, notificationsrender.Input{
		Type:        n.MessageType,
		PayloadJSON: n.PayloadJSON,
		Channel:     notificationsrender.ChannelInApp,
	})
	return notificationSummary{
		ID:          n.ID,
		MessageType: n.MessageType,
		Title:       rendered.Title,
		Body:        rendered.BodyText,
		URL:         rendered.URL,
		Source:      n.Source,
		Read:        n.Read(),
		CreatedAt:   n.CreatedAt,
		ReadAt:      n.ReadAt,
	}
}

func summarizeSubscription(s notificationsdomain.Subscription) subscriptionSummary {
	return subscriptionSummary{ID: s.ID, Endpoint: s.Endpoint, UserAgent: s.UserAgent, CreatedAt: s.CreatedAt}
}
