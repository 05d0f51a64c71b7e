package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/doosr/doosr/internal/platform/storage/sqlitemigrate"
	"github.com/doosr/doosr/internal/services/planner/storage"
)

const (
	itemColumns      = `id, user_id, title, state, descendant_id, created_at, updated_at, completed_at`
	listColumns      = `id, user_id, title, reusable, descendant_id, created_at, updated_at`
	checklistColumns = `id, user_id, title, entries_json, created_at, updated_at`
	noteColumns      = `id, user_id, body, created_at, updated_at`
)

// GetItem loads one item.
func (s *Store) GetItem(ctx context.Context, userID, itemID string) (storage.ItemRecord, error) {
	found, err := s.GetItems(ctx, userID, []string{itemID})
	if err != nil {
		return storage.ItemRecord{}, err
	}
	record, ok := found[strings.TrimSpace(itemID)]
	if !ok {
		return storage.ItemRecord{}, storage.ErrNotFound
	}
	return record, nil
}

// GetItems batch-loads items keyed by id.
func (s *Store) GetItems(ctx context.Context, userID string, itemIDs []string) (map[string]storage.ItemRecord, error) {
	out := map[string]storage.ItemRecord{}
	err := s.batch(ctx, "items", itemColumns, userID, itemIDs, func(scan func(...any) error) error {
		record, err := scanItem(scan)
		if err != nil {
			return err
		}
		out[record.ID] = record
		return nil
	})
	return out, err
}

// PutItem inserts or updates an item.
func (s *Store) PutItem(ctx context.Context, item storage.ItemRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(item.ID) == "" || strings.TrimSpace(item.UserID) == "" {
		return fmt.Errorf("item id and user id are required")
	}
	if !item.State.Valid() {
		return fmt.Errorf("item state %q is invalid", item.State)
	}
	_, err := s.q.ExecContext(ctx, `
INSERT INTO items (`+itemColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    title = excluded.title,
    state = excluded.state,
    updated_at = excluded.updated_at,
    completed_at = excluded.completed_at
WHERE items.user_id = excluded.user_id
`, item.ID, item.UserID, item.Title, string(item.State), item.DescendantID,
		toMillis(item.CreatedAt), toMillis(item.UpdatedAt), sqlitemigrate.NullMillis(item.CompletedAt))
	if err != nil {
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// DeleteItem removes an item row.
func (s *Store) DeleteItem(ctx context.Context, userID, itemID string) error {
	return s.deleteRow(ctx, "items", userID, itemID)
}

// GetList loads one list.
func (s *Store) GetList(ctx context.Context, userID, listID string) (storage.ListRecord, error) {
	found, err := s.GetLists(ctx, userID, []string{listID})
	if err != nil {
		return storage.ListRecord{}, err
	}
	record, ok := found[strings.TrimSpace(listID)]
	if !ok {
		return storage.ListRecord{}, storage.ErrNotFound
	}
	return record, nil
}

// GetLists batch-loads lists keyed by id.
func (s *Store) GetLists(ctx context.Context, userID string, listIDs []string) (map[string]storage.ListRecord, error) {
	out := map[string]storage.ListRecord{}
	err := s.batch(ctx, "lists", listColumns, userID, listIDs, func(scan func(...any) error) error {
		record, err := scanList(scan)
		if err != nil {
			return err
		}
		out[record.ID] = record
		return nil
	})
	return out, err
}

// PutList inserts or updates a list.
func (s *Store) PutList(ctx context.Context, list storage.ListRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(list.ID) == "" || strings.TrimSpace(list.UserID) == "" {
		return fmt.Errorf("list id and user id are required")
	}
	_, err := s.q.ExecContext(ctx, `
INSERT INTO lists (`+listColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    title = excluded.title,
    reusable = excluded.reusable,
    updated_at = excluded.updated_at
WHERE lists.user_id = excluded.user_id
`, list.ID, list.UserID, list.Title, list.Reusable, list.DescendantID, toMillis(list.CreatedAt), toMillis(list.UpdatedAt))
	if err != nil {
		return fmt.Errorf("put list: %w", err)
	}
	return nil
}

// ListLists lists the lists of userID ordered by title.
func (s *Store) ListLists(ctx context.Context, userID string, reusableOnly bool) ([]storage.ListRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	query := `SELECT ` + listColumns + ` FROM lists WHERE user_id = ?`
	if reusableOnly {
		query += ` AND reusable = 1`
	}
	query += ` ORDER BY title COLLATE NOCASE ASC, id ASC`
	rows, err := s.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list lists: %w", err)
	}
	defer rows.Close()
	var out []storage.ListRecord
	for rows.Next() {
		record, err := scanList(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan list: %w", err)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lists: %w", err)
	}
	return out, nil
}

// GetChecklist loads one checklist.
func (s *Store) GetChecklist(ctx context.Context, userID, checklistID string) (storage.ChecklistRecord, error) {
	found, err := s.GetChecklists(ctx, userID, []string{checklistID})
	if err != nil {
		return storage.ChecklistRecord{}, err
	}
	record, ok := found[strings.TrimSpace(checklistID)]
	if !ok {
		return storage.ChecklistRecord{}, storage.ErrNotFound
	}
	return record, nil
}

// GetChecklists batch-loads checklists keyed by id.
func (s *Store) GetChecklists(ctx context.Context, userID string, checklistIDs []string) (map[string]storage.ChecklistRecord, error) {
	out := map[string]storage.ChecklistRecord{}
	err := s.batch(ctx, "checklists", checklistColumns, userID, checklistIDs, func(scan func(...any) error) error {
		record, err := scanChecklist(scan)
		if err != nil {
			return err
		}
		out[record.ID] = record
		return nil
	})
	return out, err
}

// PutChecklist inserts or updates a checklist.
func (s *Store) PutChecklist(ctx context.Context, checklist storage.ChecklistRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(checklist.ID) == "" || strings.TrimSpace(checklist.UserID) == "" {
		return fmt.Errorf("checklist id and user id are required")
	}
	entries := checklist.Entries
	if entries == nil {
		entries = []storage.ChecklistEntry{}
	}
	entriesJSON, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode checklist entries: %w", err)
	}
	_, err = s.q.ExecContext(ctx, `
INSERT INTO checklists (`+checklistColumns+`)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    title = excluded.title,
    entries_json = excluded.entries_json,
    updated_at = excluded.updated_at
WHERE checklists.user_id = excluded.user_id
`, checklist.ID, checklist.UserID, checklist.Title, string(entriesJSON), toMillis(checklist.CreatedAt), toMillis(checklist.UpdatedAt))
	if err != nil {
		return fmt.Errorf("put checklist: %w", err)
	}
	return nil
}

// DeleteChecklist removes a checklist row.
func (s *Store) DeleteChecklist(ctx context.Context, userID, checklistID string) error {
	return s.deleteRow(ctx, "checklists", userID, checklistID)
}

// GetNote loads one note.
func (s *Store) GetNote(ctx context.Context, userID, noteID string) (storage.NoteRecord, error) {
	found, err := s.GetNotes(ctx, userID, []string{noteID})
	if err != nil {
		return storage.NoteRecord{}, err
	}
	record, ok := found[strings.TrimSpace(noteID)]
	if !ok {
		return storage.NoteRecord{}, storage.ErrNotFound
	}
	return record, nil
}

// GetNotes batch-loads notes keyed by id.
func (s *Store) GetNotes(ctx context.Context, userID string, noteIDs []string) (map[string]storage.NoteRecord, error) {
	out := map[string]storage.NoteRecord{}
	err := s.batch(ctx, "notes", noteColumns, userID, noteIDs, func(scan func(...any) error) error {
		var (
			record               storage.NoteRecord
			createdAt, updatedAt int64
		)
		if err := scan(&record.ID, &record.UserID, &record.Body, &createdAt, &updatedAt); err != nil {
			return err
		}
		record.CreatedAt = fromMillis(createdAt)
		record.UpdatedAt = fromMillis(updatedAt)
		out[record.ID] = record
		return nil
	})
	return out, err
}

// PutNote inserts or updates a note.
func (s *Store) PutNote(ctx context.Context, note storage.NoteRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(note.ID) == "" || strings.TrimSpace(note.UserID) == "" {
		return fmt.Errorf("note id and user id are required")
	}
	_, err := s.q.ExecContext(ctx, `
INSERT INTO notes (`+noteColumns+`)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    body = excluded.body,
    updated_at = excluded.updated_at
WHERE notes.user_id = excluded.user_id
`, note.ID, note.UserID, note.Body, toMillis(note.CreatedAt), toMillis(note.UpdatedAt))
	if err != nil {
		return fmt.Errorf("put note: %w", err)
	}
	return nil
}

// DeleteNote removes a note row.
func (s *Store) DeleteNote(ctx context.Context, userID, noteID string) error {
	return s.deleteRow(ctx, "notes", userID, noteID)
}

func (s *Store) batch(ctx context.Context, table, columns, userID string, ids []string, each func(scan func(...any) error) error) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	marks, args, n := inClause(ids, userID)
	if n == 0 {
		return nil
	}
	rows, err := s.q.QueryContext(ctx, `SELECT `+columns+` FROM `+table+` WHERE user_id = ? AND id IN (`+marks+`)`, args...)
	if err != nil {
		return fmt.Errorf("get %s: %w", table, err)
	}
	defer rows.Close()
	for rows.Next() {
		if err := each(rows.Scan); err != nil {
			return fmt.Errorf("scan %s: %w", table, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate %s: %w", table, err)
	}
	return nil
}

func (s *Store) deleteRow(ctx context.Context, table, userID, recordID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	userID, recordID, err := requireIDs(userID, recordID, strings.TrimSuffix(table, "s"))
	if err != nil {
		return err
	}
	result, err := s.q.ExecContext(ctx, `DELETE FROM `+table+` WHERE user_id = ? AND id = ?`, userID, recordID)
	if err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	return affectedOrNotFound(result, "delete "+table)
}

func scanItem(scan func(...any) error) (storage.ItemRecord, error) {
	var (
		record               storage.ItemRecord
		state                string
		createdAt, updatedAt int64
		completedAt          sql.NullInt64
	)
	if err := scan(&record.ID, &record.UserID, &record.Title, &state, &record.DescendantID, &createdAt, &updatedAt, &completedAt); err != nil {
		return storage.ItemRecord{}, err
	}
	record.State = storage.ItemState(state)
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	record.CompletedAt = sqlitemigrate.FromNullMillis(completedAt)
	return record, nil
}

func scanList(scan func(...any) error) (storage.ListRecord, error) {
	var (
		record               storage.ListRecord
		createdAt, updatedAt int64
	)
	if err := scan(&record.ID, &record.UserID, &record.Title, &record.Reusable, &record.DescendantID, &createdAt, &updatedAt); err != nil {
		return storage.ListRecord{}, err
	}
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}

func scanChecklist(scan func(...any) error) (storage.ChecklistRecord, error) {
	var (
		record               storage.ChecklistRecord
		entriesJSON          string
		createdAt, updatedAt int64
	)
	if err := scan(&record.ID, &record.UserID, &record.Title, &entriesJSON, &createdAt, &updatedAt); err != nil {
		return storage.ChecklistRecord{}, err
	}
	if err := json.Unmarshal([]byte(entriesJSON), &record.Entries); err != nil {
		return storage.ChecklistRecord{}, fmt.Errorf("decode checklist entries: %w", err)
	}
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}
