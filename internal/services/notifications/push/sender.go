// Package push delivers rendered notifications to browser push endpoints.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/doosr/doosr/internal/services/notifications/storage"
)

const (
	defaultTTL     = 24 * time.Hour
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 512
)

// ErrSubscriptionGone reports that the push service no longer knows the
// endpoint and the subscription should be removed.
var ErrSubscriptionGone = errors.New("push subscription gone")

// Message is the payload shown by the browser.
type Message struct {
	NotificationID string        `json:"notification_id"`
	Type           string        `json:"type"`
	Title          string        `json:"title"`
	Body           string        `json:"body"`
	URL            string        `json:"url,omitempty"`
	TTL            time.Duration `json:"-"`
}

// Sender delivers one message to one subscription.
type Sender interface {
	Send(ctx context.Context, subscription storage.PushSubscription, msg Message) error
}

// LogSender writes messages to a logger instead of delivering them.
type LogSender struct {
	Logger *log.Logger
}

// Send logs msg.
func (s LogSender) Send(_ context.Context, subscription storage.PushSubscription, msg Message) error {
	logger := s.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("push user=%s subscription=%s notification=%s type=%s title=%q",
		subscription.UserID, subscription.ID, msg.NotificationID, msg.Type, msg.Title)
	return nil
}

// WebhookSender POSTs messages as JSON to the subscription endpoint.
type WebhookSender struct {
	client *http.Client
}

// NewWebhookSender builds a sender. A nil client gets a 10 second timeout.
func NewWebhookSender(client *http.Client) *WebhookSender {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &WebhookSender{client: client}
}

type webhookBody struct {
	Message
	Keys webhookKeys `json:"keys"`
}

type webhookKeys struct {
	P256DH string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// Send delivers msg. 404 and 410 responses yield ErrSubscriptionGone.
func (s *WebhookSender) Send(ctx context.Context, subscription storage.PushSubscription, msg Message) error {
	body, err := json.Marshal(webhookBody{Message: msg, Keys: webhookKeys{P256DH: subscription.P256DH, Auth: subscription.Auth}})
	if err != nil {
		return fmt.Errorf("encode push message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, subscription.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	ttl := msg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("TTL", strconv.Itoa(int(ttl/time.Second)))

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return ErrSubscriptionGone
	default:
		return fmt.Errorf("push endpoint status %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}
}
