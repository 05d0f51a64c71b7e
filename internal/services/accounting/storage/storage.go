// Package storage defines the persistence contracts of the accounting
// service.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/doosr/doosr/internal/services/accounting/filter"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates a uniqueness constraint was violated.
	ErrConflict = errors.New("record conflict")
)

// CustomerRecord is a billed party.
type CustomerRecord struct {
	ID        string
	UserID    string
	Name      string
	Email     string
	Address   string
	Currency  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LineRecord is one invoice line. Quantity is in thousandths.
type LineRecord struct {
	ID             string
	Description    string
	QuantityMilli  int64
	UnitPriceMinor int64
	Position       int
}

// InvoiceRecord is an invoice with its lines and cached totals.
type InvoiceRecord struct {
	ID            string
	UserID        string
	CustomerID    string
	Number        string
	Status        string
	Currency      string
	IssueDate     string
	DueDate       string
	TaxRateBP     int64
	Notes         string
	SubtotalMinor int64
	TaxMinor      int64
	TotalMinor    int64
	Lines         []LineRecord
	PaidAt        time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Page is a window of invoices plus the token for the next one.
type Page struct {
	Invoices      []InvoiceRecord
	NextPageToken string
}

// CustomerStore persists customers.
type CustomerStore interface {
	PutCustomer(ctx context.Context, customer CustomerRecord) error
	GetCustomer(ctx context.Context, userID, customerID string) (CustomerRecord, error)
	ListCustomers(ctx context.Context, userID string) ([]CustomerRecord, error)
}

// InvoiceStore persists invoices and their lines.
type InvoiceStore interface {
	// PutInvoice upserts the invoice and replaces its lines.
	PutInvoice(ctx context.Context, invoice InvoiceRecord) error
	GetInvoice(ctx context.Context, userID, invoiceID string) (InvoiceRecord, error)
	// ListInvoices returns invoices matching cond, newest issue date first.
	ListInvoices(ctx context.Context, userID string, cond filter.Condition, pageSize int, pageToken string) (Page, error)
	// ListOverdue returns sent invoices of every user due before today.
	ListOverdue(ctx context.Context, today string) ([]InvoiceRecord, error)
	// NextInvoiceSequence atomically allocates the next number for a user
	// and year, starting at 1.
	NextInvoiceSequence(ctx context.Context, userID string, year int) (int, error)
}

// Store is the full accounting persistence surface.
type Store interface {
	CustomerStore
	InvoiceStore
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}
