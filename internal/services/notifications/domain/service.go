// Package domain implements the notification inbox, push subscriptions and
// the push delivery dispatcher.
package domain

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/doosr/doosr/internal/platform/errors"
	"github.com/doosr/doosr/internal/platform/id"
	"github.com/doosr/doosr/internal/services/notifications/storage"
)

// Live channel and event published when the inbox changes.
const (
	ChannelNotifications = "notifications"
	EventCreated         = "notification.created"
	EventRead            = "notification.read"
)

var (
	// ErrStoreNotConfigured indicates the service is missing persistence wiring.
	ErrStoreNotConfigured = apperrors.New(apperrors.KindUnavailable, "errors.unavailable", "notification store is not configured")
	// ErrUserIDRequired indicates recipient identity is required.
	ErrUserIDRequired = apperrors.New(apperrors.KindUnauthorized, "errors.unauthorized", "user id is required")
	// ErrMessageTypeRequired indicates a producer omitted the message type.
	ErrMessageTypeRequired = apperrors.New(apperrors.KindInvalidInput, "notification.errors.message_type_required", "message type is required")
	// ErrInvalidEndpoint indicates a push subscription endpoint is not an absolute https URL.
	ErrInvalidEndpoint = apperrors.New(apperrors.KindInvalidInput, "notification.errors.invalid_endpoint", "push endpoint must be an https URL")
	// ErrNotFound indicates a notification or subscription was not found.
	ErrNotFound = apperrors.New(apperrors.KindNotFound, "notification.errors.not_found", "notification not found")
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Publisher receives inbox change notifications for live updates.
type Publisher interface {
	Publish(userID, channel, event string, data any)
}

// Notification is one inbox item.
type Notification struct {
	ID              string
	RecipientUserID string
	MessageType     string
	PayloadJSON     string
	DedupeKey       string
	Source          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ReadAt          *time.Time
}

// Read reports whether the recipient acknowledged the notification.
func (n Notification) Read() bool {
	return n.ReadAt != nil
}

// NotificationPage is a paged recipient inbox view.
type NotificationPage struct {
	Notifications []Notification
	NextPageToken string
}

// CreateIntentInput describes one producer notification request.
type CreateIntentInput struct {
	RecipientUserID string
	MessageType     string
	PayloadJSON     string
	DedupeKey       string
	Source          string
}

// Subscription is one push endpoint registered by a browser.
type Subscription struct {
	ID        string
	Endpoint  string
	P256DH    string
	Auth      string
	UserAgent string
	CreatedAt time.Time
}

// SubscribeInput carries a browser PushSubscription.
type SubscribeInput struct {
	Endpoint  string
	P256DH    string
	Auth      string
	UserAgent string
}

// Event is the payload published on ChannelNotifications.
type Event struct {
	NotificationID string `json:"notification_id"`
	MessageType    string `json:"message_type,omitempty"`
	Unread         int    `json:"unread"`
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the wall clock.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithIDGenerator overrides record id generation.
func WithIDGenerator(newID func() (string, error)) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithPublisher attaches a live update publisher.
func WithPublisher(publisher Publisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

// Service orchestrates the recipient inbox and push subscriptions.
type Service struct {
	store     storage.Store
	clock     func() time.Time
	newID     func() (string, error)
	publisher Publisher
}

// NewService constructs notification use-cases.
func NewService(store storage.Store, opts ...Option) *Service {
	s := &Service{store: store, clock: time.Now, newID: id.NewID}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateIntent stores one notification with its channel deliveries. A
// repeated dedupe key returns the existing notification.
func (s *Service) CreateIntent(ctx context.Context, input CreateIntentInput) (Notification, error) {
	recipient, err := s.begin(input.RecipientUserID)
	if err != nil {
		return Notification{}, err
	}
	messageType := NormalizeMessageType(input.MessageType)
	if messageType == "" {
		return Notification{}, ErrMessageTypeRequired
	}
	dedupeKey := strings.TrimSpace(input.DedupeKey)
	if dedupeKey != "" {
		existing, err := s.store.GetNotificationByRecipientAndDedupeKey(ctx, recipient, dedupeKey)
		if err == nil {
			return notificationFromRecord(existing), nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return Notification{}, err
		}
	}

	notificationID, err := s.newID()
	if err != nil {
		return Notification{}, fmt.Errorf("generate notification id: %w", err)
	}
	now := s.now()
	record := storage.NotificationRecord{
		ID:              notificationID,
		RecipientUserID: recipient,
		MessageType:     messageType,
		PayloadJSON:     strings.TrimSpace(input.PayloadJSON),
		DedupeKey:       dedupeKey,
		Source:          strings.TrimSpace(input.Source),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if record.PayloadJSON == "" {
		record.PayloadJSON = "{}"
	}

	deliveries, err := s.initialDeliveries(ctx, record, now)
	if err != nil {
		return Notification{}, err
	}
	if err := s.store.PutNotificationWithDeliveries(ctx, record, deliveries); err != nil {
		// A concurrent producer won the dedupe race.
		if dedupeKey != "" && errors.Is(err, storage.ErrConflict) {
			existing, lookupErr := s.store.GetNotificationByRecipientAndDedupeKey(ctx, recipient, dedupeKey)
			if lookupErr != nil {
				return Notification{}, err
			}
			return notificationFromRecord(existing), nil
		}
		return Notification{}, err
	}

	notification := notificationFromRecord(record)
	s.publish(ctx, recipient, EventCreated, notification)
	return notification, nil
}

func (s *Service) initialDeliveries(ctx context.Context, record storage.NotificationRecord, now time.Time) ([]storage.DeliveryRecord, error) {
	policy := ResolveDeliveryPolicy(record.MessageType)
	var deliveries []storage.DeliveryRecord
	if policy.InApp {
		deliveries = append(deliveries, storage.DeliveryRecord{
			NotificationID: record.ID,
			Channel:        storage.DeliveryChannelInApp,
			Status:         storage.DeliveryStatusDelivered,
			NextAttemptAt:  now,
			CreatedAt:      now,
			UpdatedAt:      now,
			DeliveredAt:    &now,
		})
	}
	if policy.Push {
		subscriptions, err := s.store.ListSubscriptions(ctx, record.RecipientUserID)
		if err != nil {
			return nil, err
		}
		status := storage.DeliveryStatusPending
		if len(subscriptions) == 0 {
			status = storage.DeliveryStatusSkipped
		}
		deliveries = append(deliveries, storage.DeliveryRecord{
			NotificationID: record.ID,
			Channel:        storage.DeliveryChannelPush,
			Status:         status,
			NextAttemptAt:  now,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}
	return deliveries, nil
}

// ListInbox lists the recipient's notifications newest first.
func (s *Service) ListInbox(ctx context.Context, userID string, pageSize int, pageToken string) (NotificationPage, error) {
	recipient, err := s.begin(userID)
	if err != nil {
		return NotificationPage{}, err
	}
	switch {
	case pageSize <= 0:
		pageSize = defaultPageSize
	case pageSize > maxPageSize:
		pageSize = maxPageSize
	}
	page, err := s.store.ListNotificationsByRecipient(ctx, recipient, pageSize, strings.TrimSpace(pageToken))
	if err != nil {
		return NotificationPage{}, mapStoreErr(err)
	}
	out := NotificationPage{NextPageToken: page.NextPageToken}
	out.Notifications = make([]Notification, 0, len(page.Notifications))
	for _, record := range page.Notifications {
		out.Notifications = append(out.Notifications, notificationFromRecord(record))
	}
	return out, nil
}

// CountUnread returns the number of unread inbox notifications.
func (s *Service) CountUnread(ctx context.Context, userID string) (int, error) {
	recipient, err := s.begin(userID)
	if err != nil {
		return 0, err
	}
	return s.store.CountUnreadNotificationsByRecipient(ctx, recipient)
}

// MarkRead acknowledges one notification. Marking twice keeps the first read
// time.
func (s *Service) MarkRead(ctx context.Context, userID, notificationID string) (Notification, error) {
	recipient, err := s.begin(userID)
	if err != nil {
		return Notification{}, err
	}
	notificationID = strings.TrimSpace(notificationID)
	if notificationID == "" {
		return Notification{}, ErrNotFound
	}
	record, err := s.store.MarkNotificationRead(ctx, recipient, notificationID, s.now())
	if err != nil {
		return Notification{}, mapStoreErr(err)
	}
	notification := notificationFromRecord(record)
	s.publish(ctx, recipient, EventRead, notification)
	return notification, nil
}

// Subscribe registers a push endpoint. Subscribing the same endpoint again
// refreshes its keys.
func (s *Service) Subscribe(ctx context.Context, userID string, input SubscribeInput) (Subscription, error) {
	owner, err := s.begin(userID)
	if err != nil {
		return Subscription{}, err
	}
	endpoint := strings.TrimSpace(input.Endpoint)
	if !validEndpoint(endpoint) {
		return Subscription{}, ErrInvalidEndpoint
	}
	subscriptionID, err := s.newID()
	if err != nil {
		return Subscription{}, fmt.Errorf("generate subscription id: %w", err)
	}
	stored, err := s.store.PutSubscription(ctx, storage.PushSubscription{
		ID:        subscriptionID,
		UserID:    owner,
		Endpoint:  endpoint,
		P256DH:    strings.TrimSpace(input.P256DH),
		Auth:      strings.TrimSpace(input.Auth),
		UserAgent: strings.TrimSpace(input.UserAgent),
		CreatedAt: s.now(),
	})
	if err != nil {
		return Subscription{}, err
	}
	return subscriptionFromRecord(stored), nil
}

// Unsubscribe removes a push endpoint by id or by endpoint URL.
func (s *Service) Unsubscribe(ctx context.Context, userID, subscriptionIDOrEndpoint string) error {
	owner, err := s.begin(userID)
	if err != nil {
		return err
	}
	target := strings.TrimSpace(subscriptionIDOrEndpoint)
	if target == "" {
		return ErrNotFound
	}
	if strings.Contains(target, "://") {
		err = s.store.DeleteSubscriptionByEndpoint(ctx, owner, target)
	} else {
		err = s.store.DeleteSubscription(ctx, owner, target)
	}
	return mapStoreErr(err)
}

// ListSubscriptions lists the user's push endpoints oldest first.
func (s *Service) ListSubscriptions(ctx context.Context, userID string) ([]Subscription, error) {
	owner, err := s.begin(userID)
	if err != nil {
		return nil, err
	}
	records, err := s.store.ListSubscriptions(ctx, owner)
	if err != nil {
		return nil, err
	}
	out := make([]Subscription, 0, len(records))
	for _, record := range records {
		out = append(out, subscriptionFromRecord(record))
	}
	return out, nil
}

func (s *Service) publish(ctx context.Context, userID, event string, notification Notification) {
	if s.publisher == nil {
		return
	}
	payload := Event{NotificationID: notification.ID, MessageType: notification.MessageType}
	if unread, err := s.store.CountUnreadNotificationsByRecipient(ctx, userID); err == nil {
		payload.Unread = unread
	}
	s.publisher.Publish(userID, ChannelNotifications, event, payload)
}

func (s *Service) begin(userID string) (string, error) {
	if s == nil || s.store == nil {
		return "", ErrStoreNotConfigured
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", ErrUserIDRequired
	}
	return userID, nil
}

func (s *Service) now() time.Time {
	return s.clock().UTC()
}

func validEndpoint(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return parsed.Scheme == "https" && parsed.Host != ""
}

func mapStoreErr(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func notificationFromRecord(record storage.NotificationRecord) Notification {
	return Notification(record)
}

func subscriptionFromRecord(record storage.PushSubscription) Subscription {
	return Subscription{
		ID:        record.ID,
		Endpoint:  record.Endpoint,
		P256DH:    record.P256DH,
		Auth:      record.Auth,
		UserAgent: record.UserAgent,
		CreatedAt: record.CreatedAt,
	}
}
