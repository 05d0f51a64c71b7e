package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doosr/doosr/internal/platform/i18n"
	"github.com/doosr/doosr/internal/services/notifications/push"
	"github.com/doosr/doosr/internal/services/notifications/render"
	"github.com/doosr/doosr/internal/services/notifications/storage"
	"golang.org/x/text/language"
)

const (
	defaultBatchSize     = 20
	defaultLeaseDuration = 2 * time.Minute
	defaultRetryBase     = 30 * time.Second
	defaultRetryMax      = 30 * time.Minute
	defaultMaxAttempts   = 8
	maxLastErrorLength   = 500
)

// LocaleResolver returns the language notifications for userID are rendered
// in.
type LocaleResolver func(ctx context.Context, userID string) language.Tag

// DispatcherConfig tunes push delivery.
type DispatcherConfig struct {
	BatchSize     int
	LeaseDuration time.Duration
	RetryBase     time.Duration
	RetryMax      time.Duration
	MaxAttempts   int
}

func (c DispatcherConfig) normalized() DispatcherConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.LeaseDuration <= 0 {
		c.LeaseDuration = defaultLeaseDuration
	}
	if c.RetryBase <= 0 {
		c.RetryBase = defaultRetryBase
	}
	if c.RetryMax < c.RetryBase {
		c.RetryMax = defaultRetryMax
		if c.RetryMax < c.RetryBase {
			c.RetryMax = c.RetryBase
		}
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	return c
}

// DispatchStats summarizes one dispatcher pass.
type DispatchStats struct {
	Leased    int
	Delivered int
	Retried   int
	Dead      int
	Skipped   int
	Removed   int
}

// Dispatcher sends due push deliveries to every subscription of their
// recipient.
type Dispatcher struct {
	store   storage.Store
	sender  push.Sender
	locale  LocaleResolver
	config  DispatcherConfig
	pushTTL time.Duration
}

// NewDispatcher builds a dispatcher. A nil locale resolver renders in the
// default language.
func NewDispatcher(store storage.Store, sender push.Sender, locale LocaleResolver, config DispatcherConfig) *Dispatcher {
	return &Dispatcher{
		store:   store,
		sender:  sender,
		locale:  locale,
		config:  config.normalized(),
		pushTTL: 24 * time.Hour,
	}
}

// RunOnce leases up to BatchSize due push deliveries and attempts each one.
// Failures of individual deliveries are recorded on the delivery and joined
// into the returned error only when bookkeeping itself fails.
func (d *Dispatcher) RunOnce(ctx context.Context, now time.Time) (DispatchStats, error) {
	if d == nil || d.store == nil || d.sender == nil {
		return DispatchStats{}, ErrStoreNotConfigured
	}
	now = now.UTC()
	leased, err := d.store.LeaseDeliveries(ctx, storage.DeliveryChannelPush, d.config.BatchSize, now, now.Add(d.config.LeaseDuration))
	if err != nil {
		return DispatchStats{}, fmt.Errorf("lease push deliveries: %w", err)
	}
	stats := DispatchStats{Leased: len(leased)}
	var errs []error
	for _, delivery := range leased {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := d.deliver(ctx, now, delivery, &stats); err != nil {
			errs = append(errs, fmt.Errorf("delivery %s: %w", delivery.NotificationID, err))
		}
	}
	return stats, errors.Join(errs...)
}

func (d *Dispatcher) deliver(ctx context.Context, now time.Time, delivery storage.DeliveryRecord, stats *DispatchStats) error {
	attempt := delivery.AttemptCount + 1
	notification, err := d.store.GetNotification(ctx, delivery.NotificationID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			stats.Dead++
			return d.finish(ctx, delivery, storage.DeliveryStatusDead, attempt, "notification missing", now)
		}
		return err
	}
	subscriptions, err := d.store.ListSubscriptions(ctx, notification.RecipientUserID)
	if err != nil {
		return err
	}
	if len(subscriptions) == 0 {
		stats.Skipped++
		return d.finish(ctx, delivery, storage.DeliveryStatusSkipped, delivery.AttemptCount, "", now)
	}

	out := render.Render(i18n.Printer(d.tag(ctx, notification.RecipientUserID)), render.Input{
		Type:        notification.MessageType,
		PayloadJSON: notification.PayloadJSON,
		Channel:     render.ChannelPush,
	})
	message := push.Message{
		NotificationID: notification.ID,
		Type:           notification.MessageType,
		Title:          out.Title,
		Body:           out.BodyText,
		URL:            out.URL,
		TTL:            d.pushTTL,
	}

	sent := 0
	var failures []string
	for _, subscription := range subscriptions {
		err := d.sender.Send(ctx, subscription, message)
		switch {
		case err == nil:
			sent++
		case errors.Is(err, push.ErrSubscriptionGone):
			if delErr := d.store.DeleteSubscription(ctx, subscription.UserID, subscription.ID); delErr != nil && !errors.Is(delErr, storage.ErrNotFound) {
				return delErr
			}
			stats.Removed++
		default:
			failures = append(failures, err.Error())
		}
	}

	switch {
	case len(failures) == 0 && sent > 0:
		stats.Delivered++
		return d.finish(ctx, delivery, storage.DeliveryStatusDelivered, attempt, "", now)
	case len(failures) == 0:
		stats.Skipped++
		return d.finish(ctx, delivery, storage.DeliveryStatusSkipped, attempt, "all subscriptions gone", now)
	}
	lastError := truncate(strings.Join(failures, "; "), maxLastErrorLength)
	if attempt >= d.config.MaxAttempts {
		stats.Dead++
		return d.finish(ctx, delivery, storage.DeliveryStatusDead, attempt, lastError, now)
	}
	stats.Retried++
	next := now.Add(d.retryDelay(attempt))
	return d.store.MarkDeliveryRetry(ctx, delivery.NotificationID, delivery.Channel, attempt, next, lastError, now)
}

func (d *Dispatcher) finish(ctx context.Context, delivery storage.DeliveryRecord, status storage.DeliveryStatus, attempt int, lastError string, now time.Time) error {
	return d.store.MarkDeliveryFinished(ctx, delivery.NotificationID, delivery.Channel, status, attempt, lastError, now)
}

func (d *Dispatcher) tag(ctx context.Context, userID string) language.Tag {
	if d.locale == nil {
		return i18n.DefaultTag()
	}
	return d.locale(ctx, userID)
}

// retryDelay doubles from RetryBase per attempt, capped at RetryMax.
func (d *Dispatcher) retryDelay(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	delay := d.config.RetryBase
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= d.config.RetryMax {
			return d.config.RetryMax
		}
	}
	return delay
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit]
}
