// Package sqlite implements notifications storage on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doosr/doosr/internal/platform/storage/sqlitemigrate"
	"github.com/doosr/doosr/internal/services/notifications/storage"
	"github.com/doosr/doosr/internal/services/notifications/storage/sqlite/migrations"
)

const (
	notificationColumns = `id, recipient_user_id, message_type, payload_json, dedupe_key, source, created_at, updated_at, read_at`
	deliveryColumns     = `notification_id, channel, status, attempt_count, next_attempt_at, last_error, created_at, updated_at, delivered_at`
	subscriptionColumns = `id, user_id, endpoint, p256dh, auth, user_agent, created_at`
)

// Store provides SQLite-backed persistence for notifications state.
type Store struct {
	sqlDB *sql.DB
}

var _ storage.Store = (*Store)(nil)

// Open opens a notifications SQLite store at path, applying migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	sqlDB, err := sqlitemigrate.Open(ctx, path, migrations.FS)
	if err != nil {
		return nil, err
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

// PutNotificationWithDeliveries atomically persists one notification with initial deliveries.
func (s *Store) PutNotificationWithDeliveries(ctx context.Context, notification storage.NotificationRecord, deliveries []storage.DeliveryRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	normalizedNotification, err := normalizeNotificationRecord(notification)
	if err != nil {
		return err
	}
	normalizedDeliveries := make([]storage.DeliveryRecord, 0, len(deliveries))
	for _, delivery := range deliveries {
		normalizedDelivery, normalizeErr := normalizeDeliveryRecord(delivery)
		if normalizeErr != nil {
			return normalizeErr
		}
		normalizedDeliveries = append(normalizedDeliveries, normalizedDelivery)
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin notification write: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback notification write: %v", cause, rollbackErr)
		}
		return cause
	}

	if err := putNotificationExec(ctx, tx, normalizedNotification); err != nil {
		return rollbackWith(err)
	}
	for _, delivery := range normalizedDeliveries {
		if err := putDeliveryExec(ctx, tx, delivery); err != nil {
			return rollbackWith(err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit notification write: %w", err)
	}
	return nil
}

// GetNotification loads one notification by id regardless of recipient.
func (s *Store) GetNotification(ctx context.Context, notificationID string) (storage.NotificationRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.NotificationRecord{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = ?`, strings.TrimSpace(notificationID))
	return notificationFromRow(row, "get notification")
}

// GetNotificationByRecipientAndDedupeKey loads one recipient notification by dedupe key.
func (s *Store) GetNotificationByRecipientAndDedupeKey(ctx context.Context, recipientUserID string, dedupeKey string) (storage.NotificationRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.NotificationRecord{}, err
	}
	recipientUserID = strings.TrimSpace(recipientUserID)
	dedupeKey = strings.TrimSpace(dedupeKey)
	if recipientUserID == "" {
		return storage.NotificationRecord{}, fmt.Errorf("recipient user id is required")
	}
	if dedupeKey == "" {
		return storage.NotificationRecord{}, storage.ErrNotFound
	}
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+notificationColumns+`
FROM notifications
WHERE recipient_user_id = ? AND dedupe_key = ?
`, recipientUserID, dedupeKey)
	return notificationFromRow(row, "get notification by dedupe key")
}

// ListNotificationsByRecipient lists one recipient inbox newest-first with
// cursor pagination. The page token is the id of the last notification seen.
func (s *Store) ListNotificationsByRecipient(ctx context.Context, recipientUserID string, pageSize int, pageToken string) (storage.NotificationPage, error) {
	if err := s.ready(ctx); err != nil {
		return storage.NotificationPage{}, err
	}
	recipientUserID = strings.TrimSpace(recipientUserID)
	pageToken = strings.TrimSpace(pageToken)
	if recipientUserID == "" {
		return storage.NotificationPage{}, fmt.Errorf("recipient user id is required")
	}
	if pageSize <= 0 {
		return storage.NotificationPage{}, fmt.Errorf("page size must be greater than zero")
	}

	query := `
SELECT n.id, n.recipient_user_id, n.message_type, n.payload_json, n.dedupe_key, n.source, n.created_at, n.updated_at, n.read_at
FROM notifications n
JOIN notification_deliveries d ON d.notification_id = n.id
WHERE n.recipient_user_id = ?
  AND d.channel = ?
  AND d.status = ?`
	args := []any{recipientUserID, storage.DeliveryChannelInApp, storage.DeliveryStatusDelivered}
	if pageToken != "" {
		tokenCreatedAt, err := s.notificationCreatedAtByID(ctx, recipientUserID, pageToken)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return storage.NotificationPage{}, nil
			}
			return storage.NotificationPage{}, err
		}
		query += `
  AND (n.created_at < ? OR (n.created_at = ? AND n.id < ?))`
		args = append(args, sqlitemigrate.ToMillis(tokenCreatedAt), sqlitemigrate.ToMillis(tokenCreatedAt), pageToken)
	}
	query += `
ORDER BY n.created_at DESC, n.id DESC
LIMIT ?`
	args = append(args, pageSize+1)

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return storage.NotificationPage{}, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()
	return collectNotificationPage(rows, pageSize)
}

// CountUnreadNotificationsByRecipient returns unread inbox count for one recipient.
func (s *Store) CountUnreadNotificationsByRecipient(ctx context.Context, recipientUserID string) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	recipientUserID = strings.TrimSpace(recipientUserID)
	if recipientUserID == "" {
		return 0, fmt.Errorf("recipient user id is required")
	}

	var unreadCount int
	if err := s.sqlDB.QueryRowContext(ctx, `
SELECT COUNT(1)
FROM notifications n
JOIN notification_deliveries d ON d.notification_id = n.id
WHERE n.recipient_user_id = ?
  AND n.read_at IS NULL
  AND d.channel = ?
  AND d.status = ?
`, recipientUserID, storage.DeliveryChannelInApp, storage.DeliveryStatusDelivered).Scan(&unreadCount); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return unreadCount, nil
}

// MarkNotificationRead marks one notification row as read for a recipient.
func (s *Store) MarkNotificationRead(ctx context.Context, recipientUserID string, notificationID string, readAt time.Time) (storage.NotificationRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.NotificationRecord{}, err
	}
	recipientUserID = strings.TrimSpace(recipientUserID)
	notificationID = strings.TrimSpace(notificationID)
	if recipientUserID == "" || notificationID == "" {
		return storage.NotificationRecord{}, fmt.Errorf("recipient user id and notification id are required")
	}

	now := sqlitemigrate.ToMillis(readAt)
	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE notifications
SET read_at = COALESCE(read_at, ?), updated_at = ?
WHERE recipient_user_id = ?
  AND id = ?
  AND EXISTS (
    SELECT 1
    FROM notification_deliveries d
    WHERE d.notification_id = notifications.id
      AND d.channel = ?
      AND d.status = ?
  )
`, now, now, recipientUserID, notificationID, storage.DeliveryChannelInApp, storage.DeliveryStatusDelivered)
	if err != nil {
		return storage.NotificationRecord{}, fmt.Errorf("mark notification read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storage.NotificationRecord{}, fmt.Errorf("mark notification read rows affected: %w", err)
	}
	if affected == 0 {
		return storage.NotificationRecord{}, storage.ErrNotFound
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE recipient_user_id = ? AND id = ?`,
		recipientUserID, notificationID)
	return notificationFromRow(row, "get notification by id")
}

// LeaseDeliveries claims due deliveries ordered by next-attempt time.
func (s *Store) LeaseDeliveries(ctx context.Context, channel storage.DeliveryChannel, limit int, now, leaseUntil time.Time) ([]storage.DeliveryRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	channel = storage.DeliveryChannel(strings.TrimSpace(string(channel)))
	if channel == "" {
		return nil, fmt.Errorf("delivery channel is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	if now.IsZero() || leaseUntil.Before(now) {
		return nil, fmt.Errorf("lease window is invalid")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin delivery lease: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
SELECT `+deliveryColumns+`
FROM notification_deliveries
WHERE channel = ?
  AND status IN (?, ?)
  AND next_attempt_at <= ?
ORDER BY next_attempt_at ASC, notification_id ASC
LIMIT ?
`, channel, storage.DeliveryStatusPending, storage.DeliveryStatusFailed, sqlitemigrate.ToMillis(now), limit)
	if err != nil {
		return nil, fmt.Errorf("list due deliveries: %w", err)
	}
	results := make([]storage.DeliveryRecord, 0, limit)
	for rows.Next() {
		record, scanErr := scanDelivery(rows.Scan)
		if scanErr != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan due delivery row: %w", scanErr)
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate due delivery rows: %w", err)
	}
	_ = rows.Close()

	for _, record := range results {
		if _, err := tx.ExecContext(ctx, `
UPDATE notification_deliveries SET next_attempt_at = ? WHERE notification_id = ? AND channel = ?
`, sqlitemigrate.ToMillis(leaseUntil), record.NotificationID, record.Channel); err != nil {
			return nil, fmt.Errorf("lease delivery: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit delivery lease: %w", err)
	}
	return results, nil
}

// GetDelivery returns one channel delivery of a notification.
func (s *Store) GetDelivery(ctx context.Context, notificationID string, channel storage.DeliveryChannel) (storage.DeliveryRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.DeliveryRecord{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+deliveryColumns+`
FROM notification_deliveries
WHERE notification_id = ? AND channel = ?
`, strings.TrimSpace(notificationID), channel)
	record, err := scanDelivery(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.DeliveryRecord{}, storage.ErrNotFound
		}
		return storage.DeliveryRecord{}, fmt.Errorf("get delivery: %w", err)
	}
	return record, nil
}

// MarkDeliveryRetry records one failed delivery attempt and schedules the next.
func (s *Store) MarkDeliveryRetry(ctx context.Context, notificationID string, channel storage.DeliveryChannel, attemptCount int, nextAttemptAt time.Time, lastError string, updatedAt time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if attemptCount < 0 {
		return fmt.Errorf("attempt count must be non-negative")
	}
	if nextAttemptAt.IsZero() {
		return fmt.Errorf("next attempt at is required")
	}
	return s.updateDelivery(ctx, "mark delivery retry", `
UPDATE notification_deliveries
SET status = ?, attempt_count = ?, next_attempt_at = ?, last_error = ?, updated_at = ?, delivered_at = NULL
WHERE notification_id = ? AND channel = ?
`, storage.DeliveryStatusFailed, attemptCount, sqlitemigrate.ToMillis(nextAttemptAt), strings.TrimSpace(lastError),
		sqlitemigrate.ToMillis(updatedAt), strings.TrimSpace(notificationID), channel)
}

// MarkDeliveryFinished records a terminal delivery state. Delivered rows
// also get delivered_at.
func (s *Store) MarkDeliveryFinished(ctx context.Context, notificationID string, channel storage.DeliveryChannel, status storage.DeliveryStatus, attemptCount int, lastError string, finishedAt time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	switch status {
	case storage.DeliveryStatusDelivered, storage.DeliveryStatusSkipped, storage.DeliveryStatusDead:
	default:
		return fmt.Errorf("delivery status %q is not terminal", status)
	}
	if finishedAt.IsZero() {
		return fmt.Errorf("finished at is required")
	}
	var deliveredAt sql.NullInt64
	if status == storage.DeliveryStatusDelivered {
		deliveredAt = sqlitemigrate.NullMillis(finishedAt)
	}
	return s.updateDelivery(ctx, "mark delivery finished", `
UPDATE notification_deliveries
SET status = ?, attempt_count = ?, last_error = ?, updated_at = ?, delivered_at = ?
WHERE notification_id = ? AND channel = ?
`, status, attemptCount, strings.TrimSpace(lastError), sqlitemigrate.ToMillis(finishedAt), deliveredAt,
		strings.TrimSpace(notificationID), channel)
}

func (s *Store) updateDelivery(ctx context.Context, op, query string, args ...any) error {
	result, err := s.sqlDB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// PutSubscription upserts a push subscription by user and endpoint.
func (s *Store) PutSubscription(ctx context.Context, subscription storage.PushSubscription) (storage.PushSubscription, error) {
	if err := s.ready(ctx); err != nil {
		return storage.PushSubscription{}, err
	}
	subscription.UserID = strings.TrimSpace(subscription.UserID)
	subscription.Endpoint = strings.TrimSpace(subscription.Endpoint)
	if strings.TrimSpace(subscription.ID) == "" || subscription.UserID == "" || subscription.Endpoint == "" {
		return storage.PushSubscription{}, fmt.Errorf("subscription id, user id and endpoint are required")
	}
	row := s.sqlDB.QueryRowContext(ctx, `
INSERT INTO push_subscriptions (`+subscriptionColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id, endpoint) DO UPDATE SET
    p256dh = excluded.p256dh,
    auth = excluded.auth,
    user_agent = excluded.user_agent
RETURNING `+subscriptionColumns,
		subscription.ID, subscription.UserID, subscription.Endpoint, subscription.P256DH, subscription.Auth,
		subscription.UserAgent, sqlitemigrate.ToMillis(subscription.CreatedAt))
	stored, err := scanSubscription(row.Scan)
	if err != nil {
		if sqlitemigrate.IsUniqueViolation(err) {
			return storage.PushSubscription{}, storage.ErrConflict
		}
		return storage.PushSubscription{}, fmt.Errorf("put subscription: %w", err)
	}
	return stored, nil
}

// ListSubscriptions lists a user's push subscriptions oldest first.
func (s *Store) ListSubscriptions(ctx context.Context, userID string) ([]storage.PushSubscription, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+subscriptionColumns+` FROM push_subscriptions WHERE user_id = ? ORDER BY created_at ASC, id ASC
`, strings.TrimSpace(userID))
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()
	var out []storage.PushSubscription
	for rows.Next() {
		record, err := scanSubscription(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan subscription row: %w", err)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscription rows: %w", err)
	}
	return out, nil
}

// DeleteSubscription removes one subscription of a user.
func (s *Store) DeleteSubscription(ctx context.Context, userID, subscriptionID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.deleteSubscription(ctx, `DELETE FROM push_subscriptions WHERE user_id = ? AND id = ?`,
		strings.TrimSpace(userID), strings.TrimSpace(subscriptionID))
}

// DeleteSubscriptionByEndpoint removes a subscription the push service
// reported as gone.
func (s *Store) DeleteSubscriptionByEndpoint(ctx context.Context, userID, endpoint string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.deleteSubscription(ctx, `DELETE FROM push_subscriptions WHERE user_id = ? AND endpoint = ?`,
		strings.TrimSpace(userID), strings.TrimSpace(endpoint))
}

func (s *Store) deleteSubscription(ctx context.Context, query string, args ...any) error {
	result, err := s.sqlDB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) notificationCreatedAtByID(ctx context.Context, recipientUserID string, notificationID string) (time.Time, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT n.created_at
FROM notifications n
JOIN notification_deliveries d ON d.notification_id = n.id
WHERE n.recipient_user_id = ?
  AND n.id = ?
  AND d.channel = ?
  AND d.status = ?
`, recipientUserID, notificationID, storage.DeliveryChannelInApp, storage.DeliveryStatusDelivered)
	var createdAtMillis int64
	if err := row.Scan(&createdAtMillis); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, storage.ErrNotFound
		}
		return time.Time{}, fmt.Errorf("lookup notification cursor: %w", err)
	}
	return sqlitemigrate.FromMillis(createdAtMillis), nil
}

type scanner func(dest ...any) error

type sqlExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func normalizeNotificationRecord(record storage.NotificationRecord) (storage.NotificationRecord, error) {
	record.ID = strings.TrimSpace(record.ID)
	record.RecipientUserID = strings.TrimSpace(record.RecipientUserID)
	record.MessageType = strings.TrimSpace(record.MessageType)
	record.DedupeKey = strings.TrimSpace(record.DedupeKey)
	record.Source = strings.TrimSpace(record.Source)
	record.PayloadJSON = strings.TrimSpace(record.PayloadJSON)
	if record.PayloadJSON == "" {
		record.PayloadJSON = "{}"
	}
	switch {
	case record.ID == "":
		return storage.NotificationRecord{}, fmt.Errorf("notification id is required")
	case record.RecipientUserID == "":
		return storage.NotificationRecord{}, fmt.Errorf("recipient user id is required")
	case record.MessageType == "":
		return storage.NotificationRecord{}, fmt.Errorf("message type is required")
	case record.CreatedAt.IsZero() || record.UpdatedAt.IsZero():
		return storage.NotificationRecord{}, fmt.Errorf("timestamps are required")
	}
	return record, nil
}

func normalizeDeliveryRecord(record storage.DeliveryRecord) (storage.DeliveryRecord, error) {
	record.NotificationID = strings.TrimSpace(record.NotificationID)
	record.Channel = storage.DeliveryChannel(strings.TrimSpace(string(record.Channel)))
	record.Status = storage.DeliveryStatus(strings.TrimSpace(string(record.Status)))
	record.LastError = strings.TrimSpace(record.LastError)
	switch {
	case record.NotificationID == "":
		return storage.DeliveryRecord{}, fmt.Errorf("notification id is required")
	case record.Channel == "":
		return storage.DeliveryRecord{}, fmt.Errorf("delivery channel is required")
	case record.Status == "":
		return storage.DeliveryRecord{}, fmt.Errorf("delivery status is required")
	case record.NextAttemptAt.IsZero():
		return storage.DeliveryRecord{}, fmt.Errorf("next attempt at is required")
	case record.CreatedAt.IsZero() || record.UpdatedAt.IsZero():
		return storage.DeliveryRecord{}, fmt.Errorf("timestamps are required")
	}
	return record, nil
}

func putNotificationExec(ctx context.Context, execer sqlExecer, record storage.NotificationRecord) error {
	var readAt sql.NullInt64
	if record.ReadAt != nil {
		readAt = sqlitemigrate.NullMillis(*record.ReadAt)
	}
	_, err := execer.ExecContext(ctx, `
INSERT INTO notifications (`+notificationColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    message_type = excluded.message_type,
    payload_json = excluded.payload_json,
    source = excluded.source,
    updated_at = excluded.updated_at,
    read_at = excluded.read_at
`,
		record.ID,
		record.RecipientUserID,
		record.MessageType,
		record.PayloadJSON,
		record.DedupeKey,
		record.Source,
		sqlitemigrate.ToMillis(record.CreatedAt),
		sqlitemigrate.ToMillis(record.UpdatedAt),
		readAt,
	)
	if err != nil {
		if sqlitemigrate.IsUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("put notification: %w", err)
	}
	return nil
}

func putDeliveryExec(ctx context.Context, execer sqlExecer, record storage.DeliveryRecord) error {
	var deliveredAt sql.NullInt64
	if record.DeliveredAt != nil {
		deliveredAt = sqlitemigrate.NullMillis(*record.DeliveredAt)
	}
	_, err := execer.ExecContext(ctx, `
INSERT INTO notification_deliveries (`+deliveryColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(notification_id, channel) DO UPDATE SET
    status = excluded.status,
    attempt_count = excluded.attempt_count,
    next_attempt_at = excluded.next_attempt_at,
    last_error = excluded.last_error,
    updated_at = excluded.updated_at,
    delivered_at = excluded.delivered_at
`,
		record.NotificationID,
		record.Channel,
		record.Status,
		record.AttemptCount,
		sqlitemigrate.ToMillis(record.NextAttemptAt),
		record.LastError,
		sqlitemigrate.ToMillis(record.CreatedAt),
		sqlitemigrate.ToMillis(record.UpdatedAt),
		deliveredAt,
	)
	if err != nil {
		if sqlitemigrate.IsUniqueViolation(err) || sqlitemigrate.IsForeignKeyViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("put delivery: %w", err)
	}
	return nil
}

func notificationFromRow(row *sql.Row, op string) (storage.NotificationRecord, error) {
	record, err := scanNotification(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.NotificationRecord{}, storage.ErrNotFound
		}
		return storage.NotificationRecord{}, fmt.Errorf("%s: %w", op, err)
	}
	return record, nil
}

func scanNotification(scan scanner) (storage.NotificationRecord, error) {
	var record storage.NotificationRecord
	var createdAt int64
	var updatedAt int64
	var readAt sql.NullInt64
	if err := scan(
		&record.ID,
		&record.RecipientUserID,
		&record.MessageType,
		&record.PayloadJSON,
		&record.DedupeKey,
		&record.Source,
		&createdAt,
		&updatedAt,
		&readAt,
	); err != nil {
		return storage.NotificationRecord{}, err
	}
	record.CreatedAt = sqlitemigrate.FromMillis(createdAt)
	record.UpdatedAt = sqlitemigrate.FromMillis(updatedAt)
	if readAt.Valid {
		value := sqlitemigrate.FromMillis(readAt.Int64)
		record.ReadAt = &value
	}
	return record, nil
}

func collectNotificationPage(rows *sql.Rows, pageSize int) (storage.NotificationPage, error) {
	page := storage.NotificationPage{
		Notifications: make([]storage.NotificationRecord, 0, pageSize),
	}
	for rows.Next() {
		record, err := scanNotification(rows.Scan)
		if err != nil {
			return storage.NotificationPage{}, fmt.Errorf("scan notification row: %w", err)
		}
		page.Notifications = append(page.Notifications, record)
	}
	if err := rows.Err(); err != nil {
		return storage.NotificationPage{}, fmt.Errorf("iterate notification rows: %w", err)
	}
	if len(page.Notifications) > pageSize {
		page.NextPageToken = page.Notifications[pageSize-1].ID
		page.Notifications = page.Notifications[:pageSize]
	}
	return page, nil
}

func scanDelivery(scan scanner) (storage.DeliveryRecord, error) {
	var record storage.DeliveryRecord
	var nextAttemptAt int64
	var createdAt int64
	var updatedAt int64
	var deliveredAt sql.NullInt64
	if err := scan(
		&record.NotificationID,
		&record.Channel,
		&record.Status,
		&record.AttemptCount,
		&nextAttemptAt,
		&record.LastError,
		&createdAt,
		&updatedAt,
		&deliveredAt,
	); err != nil {
		return storage.DeliveryRecord{}, err
	}
	record.NextAttemptAt = sqlitemigrate.FromMillis(nextAttemptAt)
	record.CreatedAt = sqlitemigrate.FromMillis(createdAt)
	record.UpdatedAt = sqlitemigrate.FromMillis(updatedAt)
	if deliveredAt.Valid {
		value := sqlitemigrate.FromMillis(deliveredAt.Int64)
		record.DeliveredAt = &value
	}
	return record, nil
}

func scanSubscription(scan scanner) (storage.PushSubscription, error) {
	var record storage.PushSubscription
	var createdAt int64
	if err := scan(&record.ID, &record.UserID, &record.Endpoint, &record.P256DH, &record.Auth, &record.UserAgent, &createdAt); err != nil {
		return storage.PushSubscription{}, err
	}
	record.CreatedAt = sqlitemigrate.FromMillis(createdAt)
	return record, nil
}
