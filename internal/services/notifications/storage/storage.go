// Package storage defines the persistence contracts of the notifications
// service.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested notification or delivery record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates a requested write conflicts with uniqueness constraints.
	ErrConflict = errors.New("record conflict")
)

// DeliveryChannel identifies one notification channel type.
type DeliveryChannel string

const (
	// DeliveryChannelInApp represents inbox delivery.
	DeliveryChannelInApp DeliveryChannel = "in_app"
	// DeliveryChannelPush represents web push delivery to every subscription.
	DeliveryChannelPush DeliveryChannel = "push"
)

// DeliveryStatus identifies one delivery lifecycle state.
type DeliveryStatus string

const (
	// DeliveryStatusPending means the delivery is queued for processing.
	DeliveryStatusPending DeliveryStatus = "pending"
	// DeliveryStatusFailed means the last attempt failed and will be retried.
	DeliveryStatusFailed DeliveryStatus = "failed"
	// DeliveryStatusDelivered means the channel delivery was completed.
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	// DeliveryStatusSkipped means there was nowhere to deliver.
	DeliveryStatusSkipped DeliveryStatus = "skipped"
	// DeliveryStatusDead means retries were exhausted.
	DeliveryStatusDead DeliveryStatus = "dead"
)

// NotificationRecord stores one user notification inbox item.
type NotificationRecord struct {
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

// NotificationPage stores a paged inbox listing result.
type NotificationPage struct {
	Notifications []NotificationRecord
	NextPageToken string
}

// DeliveryRecord stores one channel-delivery attempt state.
type DeliveryRecord struct {
	NotificationID string
	Channel        DeliveryChannel
	Status         DeliveryStatus
	AttemptCount   int
	NextAttemptAt  time.Time
	LastError      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeliveredAt    *time.Time
}

// PushSubscription is one browser push endpoint of a user.
type PushSubscription struct {
	ID        string
	UserID    string
	Endpoint  string
	P256DH    string
	Auth      string
	UserAgent string
	CreatedAt time.Time
}

// NotificationStore persists notification inbox state.
type NotificationStore interface {
	GetNotification(ctx context.Context, notificationID string) (NotificationRecord, error)
	GetNotificationByRecipientAndDedupeKey(ctx context.Context, recipientUserID string, dedupeKey string) (NotificationRecord, error)
	ListNotificationsByRecipient(ctx context.Context, recipientUserID string, pageSize int, pageToken string) (NotificationPage, error)
	CountUnreadNotificationsByRecipient(ctx context.Context, recipientUserID string) (int, error)
	MarkNotificationRead(ctx context.Context, recipientUserID string, notificationID string, readAt time.Time) (NotificationRecord, error)
	// PutNotificationWithDeliveries atomically persists a notification with
	// its initial channel deliveries.
	PutNotificationWithDeliveries(ctx context.Context, notification NotificationRecord, deliveries []DeliveryRecord) error
}

// DeliveryStore persists channel delivery attempt state.
type DeliveryStore interface {
	GetDelivery(ctx context.Context, notificationID string, channel DeliveryChannel) (DeliveryRecord, error)
	// LeaseDeliveries returns up to limit due deliveries of channel and pushes
	// their next attempt to leaseUntil so concurrent workers skip them.
	LeaseDeliveries(ctx context.Context, channel DeliveryChannel, limit int, now, leaseUntil time.Time) ([]DeliveryRecord, error)
	MarkDeliveryRetry(ctx context.Context, notificationID string, channel DeliveryChannel, attemptCount int, nextAttemptAt time.Time, lastError string, updatedAt time.Time) error
	MarkDeliveryFinished(ctx context.Context, notificationID string, channel DeliveryChannel, status DeliveryStatus, attemptCount int, lastError string, finishedAt time.Time) error
}

// SubscriptionStore persists push subscriptions.
type SubscriptionStore interface {
	// PutSubscription upserts by (user, endpoint), keeping the original id.
	PutSubscription(ctx context.Context, subscription PushSubscription) (PushSubscription, error)
	ListSubscriptions(ctx context.Context, userID string) ([]PushSubscription, error)
	DeleteSubscription(ctx context.Context, userID, subscriptionID string) error
	DeleteSubscriptionByEndpoint(ctx context.Context, userID, endpoint string) error
}

// Store is the full notifications persistence surface.
type Store interface {
	NotificationStore
	DeliveryStore
	SubscriptionStore
}
