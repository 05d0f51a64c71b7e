// Package sqlite implements accounting storage on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/doosr/doosr/internal/platform/storage/sqlitemigrate"
	"github.com/doosr/doosr/internal/services/accounting/filter"
	"github.com/doosr/doosr/internal/services/accounting/storage"
	"github.com/doosr/doosr/internal/services/accounting/storage/sqlite/migrations"
)

const (
	customerColumns = `id, user_id, name, email, address, currency, created_at, updated_at`
	invoiceColumns  = `id, user_id, customer_id, number, status, currency, issue_date, due_date, tax_rate_bp, notes,
subtotal_minor, tax_minor, total_minor, paid_at, created_at, updated_at`
	lineColumns = `id, invoice_id, description, quantity_milli, unit_price_minor, position`

	defaultPageSize = 50
	maxPageSize     = 200
)

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store provides SQLite-backed persistence for customers and invoices.
type Store struct {
	sqlDB *sql.DB
	q     queryer
	inTx  bool
}

var _ storage.Store = (*Store)(nil)

// Open opens an accounting SQLite store at path, applying migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	sqlDB, err := sqlitemigrate.Open(ctx, path, migrations.FS)
	if err != nil {
		return nil, err
	}
	return &Store{sqlDB: sqlDB, q: sqlDB}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil || s.inTx {
		return nil
	}
	return s.sqlDB.Close()
}

// WithinTx runs fn inside one transaction. Nested calls reuse the outer
// transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx storage.Store) error) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if s.inTx {
		return fn(ctx, s)
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin accounting tx: %w", err)
	}
	if err := fn(ctx, &Store{sqlDB: s.sqlDB, q: tx, inTx: true}); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback accounting tx: %v", err, rollbackErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit accounting tx: %w", err)
	}
	return nil
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil || s.q == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

// PutCustomer inserts or updates a customer.
func (s *Store) PutCustomer(ctx context.Context, customer storage.CustomerRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(customer.ID) == "" || strings.TrimSpace(customer.UserID) == "" {
		return fmt.Errorf("customer id and user id are required")
	}
	_, err := s.q.ExecContext(ctx, `
INSERT INTO customers (`+customerColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    name = excluded.name,
    email = excluded.email,
    address = excluded.address,
    currency = excluded.currency,
    updated_at = excluded.updated_at
WHERE customers.user_id = excluded.user_id
`, customer.ID, customer.UserID, customer.Name, customer.Email, customer.Address, customer.Currency,
		sqlitemigrate.ToMillis(customer.CreatedAt), sqlitemigrate.ToMillis(customer.UpdatedAt))
	if err != nil {
		return fmt.Errorf("put customer: %w", err)
	}
	return nil
}

// GetCustomer loads one customer.
func (s *Store) GetCustomer(ctx context.Context, userID, customerID string) (storage.CustomerRecord, error) {
	var found []storage.CustomerRecord
	err := s.list(ctx, `SELECT `+customerColumns+` FROM customers WHERE user_id = ? AND id = ?`,
		[]any{strings.TrimSpace(userID), strings.TrimSpace(customerID)}, func(scan func(...any) error) error {
			record, err := scanCustomer(scan)
			if err == nil {
				found = append(found, record)
			}
			return err
		})
	if err != nil {
		return storage.CustomerRecord{}, err
	}
	if len(found) == 0 {
		return storage.CustomerRecord{}, storage.ErrNotFound
	}
	return found[0], nil
}

// ListCustomers lists a user's customers by name.
func (s *Store) ListCustomers(ctx context.Context, userID string) ([]storage.CustomerRecord, error) {
	var out []storage.CustomerRecord
	err := s.list(ctx, `SELECT `+customerColumns+` FROM customers WHERE user_id = ? ORDER BY name ASC, id ASC`,
		[]any{strings.TrimSpace(userID)}, func(scan func(...any) error) error {
			record, err := scanCustomer(scan)
			if err == nil {
				out = append(out, record)
			}
			return err
		})
	return out, err
}

// PutInvoice upserts an invoice and replaces its lines in one transaction.
func (s *Store) PutInvoice(ctx context.Context, invoice storage.InvoiceRecord) error {
	if strings.TrimSpace(invoice.ID) == "" || strings.TrimSpace(invoice.UserID) == "" {
		return fmt.Errorf("invoice id and user id are required")
	}
	return s.WithinTx(ctx, func(ctx context.Context, tx storage.Store) error {
		return tx.(*Store).putInvoice(ctx, invoice)
	})
}

func (s *Store) putInvoice(ctx context.Context, invoice storage.InvoiceRecord) error {
	result, err := s.q.ExecContext(ctx, `
INSERT INTO invoices (`+invoiceColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    customer_id = excluded.customer_id,
    number = excluded.number,
    status = excluded.status,
    currency = excluded.currency,
    issue_date = excluded.issue_date,
    due_date = excluded.due_date,
    tax_rate_bp = excluded.tax_rate_bp,
    notes = excluded.notes,
    subtotal_minor = excluded.subtotal_minor,
    tax_minor = excluded.tax_minor,
    total_minor = excluded.total_minor,
    paid_at = excluded.paid_at,
    updated_at = excluded.updated_at
WHERE invoices.user_id = excluded.user_id
`, invoice.ID, invoice.UserID, invoice.CustomerID, invoice.Number, invoice.Status, invoice.Currency,
		invoice.IssueDate, invoice.DueDate, invoice.TaxRateBP, invoice.Notes,
		invoice.SubtotalMinor, invoice.TaxMinor, invoice.TotalMinor, sqlitemigrate.NullMillis(invoice.PaidAt),
		sqlitemigrate.ToMillis(invoice.CreatedAt), sqlitemigrate.ToMillis(invoice.UpdatedAt))
	if err != nil {
		switch {
		case sqlitemigrate.IsForeignKeyViolation(err):
			return storage.ErrNotFound
		case sqlitemigrate.IsUniqueViolation(err):
			return storage.ErrConflict
		}
		return fmt.Errorf("put invoice: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return storage.ErrNotFound
	}
	if _, err := s.q.ExecContext(ctx, `DELETE FROM invoice_lines WHERE invoice_id = ?`, invoice.ID); err != nil {
		return fmt.Errorf("clear invoice lines: %w", err)
	}
	for _, line := range invoice.Lines {
		if _, err := s.q.ExecContext(ctx, `
INSERT INTO invoice_lines (`+lineColumns+`) VALUES (?, ?, ?, ?, ?, ?)
`, line.ID, invoice.ID, line.Description, line.QuantityMilli, line.UnitPriceMinor, line.Position); err != nil {
			return fmt.Errorf("put invoice line: %w", err)
		}
	}
	return nil
}

// GetInvoice loads one invoice with its lines.
func (s *Store) GetInvoice(ctx context.Context, userID, invoiceID string) (storage.InvoiceRecord, error) {
	found, err := s.queryInvoices(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE user_id = ? AND id = ?`,
		strings.TrimSpace(userID), strings.TrimSpace(invoiceID))
	if err != nil {
		return storage.InvoiceRecord{}, err
	}
	if len(found) == 0 {
		return storage.InvoiceRecord{}, storage.ErrNotFound
	}
	return found[0], nil
}

// ListInvoices returns one page of a user's invoices matching cond. The page
// token is the decimal offset of the next page.
func (s *Store) ListInvoices(ctx context.Context, userID string, cond filter.Condition, pageSize int, pageToken string) (storage.Page, error) {
	offset := 0
	if token := strings.TrimSpace(pageToken); token != "" {
		parsed, err := strconv.Atoi(token)
		if err != nil || parsed < 0 {
			return storage.Page{}, fmt.Errorf("invalid page token %q", pageToken)
		}
		offset = parsed
	}
	switch {
	case pageSize <= 0:
		pageSize = defaultPageSize
	case pageSize > maxPageSize:
		pageSize = maxPageSize
	}

	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE user_id = ?`
	args := []any{strings.TrimSpace(userID)}
	if !cond.Empty() {
		query += ` AND ` + cond.Clause
		args = append(args, cond.Params...)
	}
	query += ` ORDER BY issue_date DESC, created_at DESC, id ASC LIMIT ? OFFSET ?`
	args = append(args, pageSize+1, offset)

	found, err := s.queryInvoices(ctx, query, args...)
	if err != nil {
		return storage.Page{}, err
	}
	page := storage.Page{Invoices: found}
	if len(found) > pageSize {
		page.Invoices = found[:pageSize]
		page.NextPageToken = strconv.Itoa(offset + pageSize)
	}
	return page, nil
}

// ListOverdue returns sent invoices due before today across all users.
func (s *Store) ListOverdue(ctx context.Context, today string) ([]storage.InvoiceRecord, error) {
	return s.queryInvoices(ctx, `SELECT `+invoiceColumns+` FROM invoices
WHERE status = 'sent' AND due_date < ? ORDER BY due_date ASC, id ASC`, strings.TrimSpace(today))
}

// NextInvoiceSequence allocates the next invoice sequence for user and year.
func (s *Store) NextInvoiceSequence(ctx context.Context, userID string, year int) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	var next int
	err := s.q.QueryRowContext(ctx, `
INSERT INTO invoice_sequences (user_id, year, last_value) VALUES (?, ?, 1)
ON CONFLICT(user_id, year) DO UPDATE SET last_value = invoice_sequences.last_value + 1
RETURNING last_value
`, strings.TrimSpace(userID), year).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next invoice sequence: %w", err)
	}
	return next, nil
}

func (s *Store) queryInvoices(ctx context.Context, query string, args ...any) ([]storage.InvoiceRecord, error) {
	var out []storage.InvoiceRecord
	err := s.list(ctx, query, args, func(scan func(...any) error) error {
		record, err := scanInvoice(scan)
		if err == nil {
			out = append(out, record)
		}
		return err
	})
	if err != nil || len(out) == 0 {
		return out, err
	}

	ids := make([]string, len(out))
	index := make(map[string]int, len(out))
	for i, invoice := range out {
		ids[i] = invoice.ID
		index[invoice.ID] = i
	}
	marks, lineArgs := inClause(ids)
	err = s.list(ctx, `SELECT `+lineColumns+` FROM invoice_lines WHERE invoice_id IN (`+marks+`) ORDER BY position ASC, id ASC`,
		lineArgs, func(scan func(...any) error) error {
			var (
				line      storage.LineRecord
				invoiceID string
			)
			if err := scan(&line.ID, &invoiceID, &line.Description, &line.QuantityMilli, &line.UnitPriceMinor, &line.Position); err != nil {
				return err
			}
			if i, ok := index[invoiceID]; ok {
				out[i].Lines = append(out[i].Lines, line)
			}
			return nil
		})
	return out, err
}

func (s *Store) list(ctx context.Context, query string, args []any, each func(scan func(...any) error) error) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query accounting store: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		if err := each(rows.Scan); err != nil {
			return fmt.Errorf("scan accounting row: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate accounting rows: %w", err)
	}
	return nil
}

func inClause(ids []string) (string, []any) {
	args := make([]any, len(ids))
	marks := make([]string, len(ids))
	for i, value := range ids {
		marks[i] = "?"
		args[i] = value
	}
	return strings.Join(marks, ", "), args
}

func scanCustomer(scan func(...any) error) (storage.CustomerRecord, error) {
	var (
		record    storage.CustomerRecord
		createdAt int64
		updatedAt int64
	)
	if err := scan(&record.ID, &record.UserID, &record.Name, &record.Email, &record.Address, &record.Currency, &createdAt, &updatedAt); err != nil {
		return storage.CustomerRecord{}, err
	}
	record.CreatedAt = sqlitemigrate.FromMillis(createdAt)
	record.UpdatedAt = sqlitemigrate.FromMillis(updatedAt)
	return record, nil
}

func scanInvoice(scan func(...any) error) (storage.InvoiceRecord, error) {
	var (
		record    storage.InvoiceRecord
		paidAt    sql.NullInt64
		createdAt int64
		updatedAt int64
	)
	if err := scan(&record.ID, &record.UserID, &record.CustomerID, &record.Number, &record.Status, &record.Currency,
		&record.IssueDate, &record.DueDate, &record.TaxRateBP, &record.Notes,
		&record.SubtotalMinor, &record.TaxMinor, &record.TotalMinor, &paidAt, &createdAt, &updatedAt); err != nil {
		return storage.InvoiceRecord{}, err
	}
	record.PaidAt = sqlitemigrate.FromNullMillis(paidAt)
	record.CreatedAt = sqlitemigrate.FromMillis(createdAt)
	record.UpdatedAt = sqlitemigrate.FromMillis(updatedAt)
	return record, nil
}
