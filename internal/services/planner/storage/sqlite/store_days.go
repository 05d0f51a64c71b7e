package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/doosr/doosr/internal/platform/storage/sqlitemigrate"
	"github.com/doosr/doosr/internal/services/planner/storage"
)

const dayColumns = `id, user_id, date, descendant_id, created_at, updated_at`

// GetDay loads the day of userID for date (YYYY-MM-DD).
func (s *Store) GetDay(ctx context.Context, userID, date string) (storage.DayRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.DayRecord{}, err
	}
	userID, date, err := requireIDs(userID, date, "date")
	if err != nil {
		return storage.DayRecord{}, err
	}
	row := s.q.QueryRowContext(ctx, `SELECT `+dayColumns+` FROM days WHERE user_id = ? AND date = ?`, userID, date)
	record, err := scanDay(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.DayRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.DayRecord{}, fmt.Errorf("get day: %w", err)
	}
	return record, nil
}

// GetDayByID loads a day of userID by its id.
func (s *Store) GetDayByID(ctx context.Context, userID, dayID string) (storage.DayRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.DayRecord{}, err
	}
	userID, dayID, err := requireIDs(userID, dayID, "day")
	if err != nil {
		return storage.DayRecord{}, err
	}
	row := s.q.QueryRowContext(ctx, `SELECT `+dayColumns+` FROM days WHERE user_id = ? AND id = ?`, userID, dayID)
	record, err := scanDay(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.DayRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.DayRecord{}, fmt.Errorf("get day by id: %w", err)
	}
	return record, nil
}

// PutDay inserts or updates a day. A second day for the same user and date
// is rejected with ErrConflict.
func (s *Store) PutDay(ctx context.Context, day storage.DayRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(day.ID) == "" || strings.TrimSpace(day.UserID) == "" || strings.TrimSpace(day.Date) == "" {
		return fmt.Errorf("day id, user id and date are required")
	}
	if strings.TrimSpace(day.DescendantID) == "" {
		return fmt.Errorf("day descendant id is required")
	}
	_, err := s.q.ExecContext(ctx, `
INSERT INTO days (id, user_id, date, descendant_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    descendant_id = excluded.descendant_id,
    updated_at = excluded.updated_at
`, day.ID, day.UserID, day.Date, day.DescendantID, toMillis(day.CreatedAt), toMillis(day.UpdatedAt))
	if sqlitemigrate.IsUniqueViolation(err) {
		return storage.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("put day: %w", err)
	}
	return nil
}

// ListDays lists the days of userID between fromDate and toDate inclusive,
// oldest first. Blank bounds are open.
func (s *Store) ListDays(ctx context.Context, userID, fromDate, toDate string) ([]storage.DayRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	query := `SELECT ` + dayColumns + ` FROM days WHERE user_id = ?`
	args := []any{userID}
	if from := strings.TrimSpace(fromDate); from != "" {
		query += ` AND date >= ?`
		args = append(args, from)
	}
	if to := strings.TrimSpace(toDate); to != "" {
		query += ` AND date <= ?`
		args = append(args, to)
	}
	query += ` ORDER BY date ASC`

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}
	defer rows.Close()

	var out []storage.DayRecord
	for rows.Next() {
		record, err := scanDay(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan day: %w", err)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate days: %w", err)
	}
	return out, nil
}

func scanDay(scan func(dest ...any) error) (storage.DayRecord, error) {
	var (
		record               storage.DayRecord
		createdAt, updatedAt int64
	)
	if err := scan(&record.ID, &record.UserID, &record.Date, &record.DescendantID, &createdAt, &updatedAt); err != nil {
		return storage.DayRecord{}, err
	}
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}
