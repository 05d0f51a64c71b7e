package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/doosr/doosr/internal/services/planner/descendant"
	"github.com/doosr/doosr/internal/services/planner/storage"
)

// GetDescendant loads one descendant with its ordered refs.
func (s *Store) GetDescendant(ctx context.Context, userID, descendantID string) (descendant.Descendant, error) {
	if err := s.ready(ctx); err != nil {
		return descendant.Descendant{}, err
	}
	userID, descendantID, err := requireIDs(userID, descendantID, "descendant")
	if err != nil {
		return descendant.Descendant{}, err
	}
	found, err := s.GetDescendants(ctx, userID, []string{descendantID})
	if err != nil {
		return descendant.Descendant{}, err
	}
	d, ok := found[descendantID]
	if !ok {
		return descendant.Descendant{}, storage.ErrNotFound
	}
	return d, nil
}

// GetDescendants batch-loads descendants of userID keyed by id. Missing ids
// are absent from the result.
func (s *Store) GetDescendants(ctx context.Context, userID string, descendantIDs []string) (map[string]descendant.Descendant, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	marks, args, n := inClause(descendantIDs, userID)
	out := make(map[string]descendant.Descendant, n)
	if n == 0 {
		return out, nil
	}

	rows, err := s.q.QueryContext(ctx, `
SELECT id, user_id, owner_type, owner_id, created_at, updated_at
FROM descendants
WHERE user_id = ? AND id IN (`+marks+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("get descendants: %w", err)
	}
	for rows.Next() {
		var (
			d                    descendant.Descendant
			ownerType            string
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&d.ID, &d.UserID, &ownerType, &d.OwnerID, &createdAt, &updatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan descendant: %w", err)
		}
		d.OwnerType = descendant.OwnerType(ownerType)
		d.CreatedAt = fromMillis(createdAt)
		d.UpdatedAt = fromMillis(updatedAt)
		out[d.ID] = d
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate descendants: %w", err)
	}
	rows.Close()
	if len(out) == 0 {
		return out, nil
	}

	refRows, err := s.q.QueryContext(ctx, `
SELECT descendant_id, ref_type, ref_id, active
FROM descendant_refs
WHERE descendant_id IN (`+marks+`)
ORDER BY descendant_id, active DESC, position ASC`, args[1:]...)
	if err != nil {
		return nil, fmt.Errorf("get descendant refs: %w", err)
	}
	defer refRows.Close()
	for refRows.Next() {
		var (
			ownerID, refType, refID string
			active                  bool
		)
		if err := refRows.Scan(&ownerID, &refType, &refID, &active); err != nil {
			return nil, fmt.Errorf("scan descendant ref: %w", err)
		}
		d, ok := out[ownerID]
		if !ok {
			continue
		}
		ref := descendant.Ref{Type: descendant.RefType(refType), ID: refID}
		if active {
			d.Active = append(d.Active, ref)
		} else {
			d.Inactive = append(d.Inactive, ref)
		}
		out[ownerID] = d
	}
	if err := refRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate descendant refs: %w", err)
	}
	return out, nil
}

// PutDescendant upserts d and replaces its refs atomically.
func (s *Store) PutDescendant(ctx context.Context, d descendant.Descendant) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(d.ID) == "" || strings.TrimSpace(d.UserID) == "" {
		return fmt.Errorf("descendant id and user id are required")
	}
	if !d.OwnerType.Valid() || strings.TrimSpace(d.OwnerID) == "" {
		return fmt.Errorf("descendant owner is invalid")
	}
	return s.WithinTx(ctx, func(ctx context.Context, tx storage.Store) error {
		q := tx.(*Store).q
		if _, err := q.ExecContext(ctx, `
INSERT INTO descendants (id, user_id, owner_type, owner_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at
`, d.ID, d.UserID, string(d.OwnerType), d.OwnerID, toMillis(d.CreatedAt), toMillis(d.UpdatedAt)); err != nil {
			return fmt.Errorf("put descendant: %w", err)
		}
		if _, err := q.ExecContext(ctx, `DELETE FROM descendant_refs WHERE descendant_id = ?`, d.ID); err != nil {
			return fmt.Errorf("clear descendant refs: %w", err)
		}
		insert := func(refs []descendant.Ref, active bool) error {
			for i, ref := range refs {
				if _, err := q.ExecContext(ctx, `
INSERT INTO descendant_refs (descendant_id, ref_type, ref_id, active, position)
VALUES (?, ?, ?, ?, ?)
`, d.ID, string(ref.Type), ref.ID, active, i); err != nil {
					return fmt.Errorf("put descendant ref %s: %w", ref, err)
				}
			}
			return nil
		}
		if err := insert(d.Active, true); err != nil {
			return err
		}
		return insert(d.Inactive, false)
	})
}

// DeleteDescendant removes one descendant and its refs.
func (s *Store) DeleteDescendant(ctx context.Context, userID, descendantID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	userID, descendantID, err := requireIDs(userID, descendantID, "descendant")
	if err != nil {
		return err
	}
	result, err := s.q.ExecContext(ctx, `DELETE FROM descendants WHERE user_id = ? AND id = ?`, userID, descendantID)
	if err != nil {
		return fmt.Errorf("delete descendant: %w", err)
	}
	return affectedOrNotFound(result, "delete descendant")
}

// CountReferences counts the descendants of userID that hold ref.
func (s *Store) CountReferences(ctx context.Context, userID string, ref descendant.Ref) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	if strings.TrimSpace(userID) == "" {
		return 0, fmt.Errorf("user id is required")
	}
	var count int
	err := s.q.QueryRowContext(ctx, `
SELECT COUNT(1)
FROM descendant_refs r
JOIN descendants d ON d.id = r.descendant_id
WHERE d.user_id = ? AND r.ref_type = ? AND r.ref_id = ?
`, userID, string(ref.Type), ref.ID).Scan(&count)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("count references: %w", err)
	}
	return count, nil
}
