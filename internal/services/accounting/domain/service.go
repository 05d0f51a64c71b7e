// Package domain implements customers and invoices: line totals in integer
// minor units, the draft/sent/paid/void lifecycle and per-year numbering.
package domain

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	apperrors "github.com/doosr/doosr/internal/platform/errors"
	"github.com/doosr/doosr/internal/platform/id"
	"github.com/doosr/doosr/internal/services/accounting/filter"
	"github.com/doosr/doosr/internal/services/accounting/money"
	"github.com/doosr/doosr/internal/services/accounting/storage"
)

// DateLayout is the civil date format of issue and due dates.
const DateLayout = "2006-01-02"

const (
	defaultTermDays = 30
	maxTaxRateBP    = 10000
)

// Status is an invoice lifecycle state.
type Status string

const (
	StatusDraft Status = "draft"
	StatusSent  Status = "sent"
	StatusPaid  Status = "paid"
	StatusVoid  Status = "void"
)

var (
	ErrStoreNotConfigured = apperrors.New(apperrors.KindUnavailable, "errors.unavailable", "accounting store is not configured")
	ErrUserIDRequired     = apperrors.New(apperrors.KindUnauthorized, "errors.unauthorized", "user id is required")
	ErrNameRequired       = apperrors.New(apperrors.KindInvalidInput, "accounting.errors.name_required", "customer name is required")
	ErrInvalidEmail       = apperrors.New(apperrors.KindInvalidInput, "accounting.errors.invalid_email", "customer email is invalid")
	ErrInvalidCurrency    = apperrors.New(apperrors.KindInvalidInput, "accounting.errors.invalid_currency", "currency must be an ISO 4217 code")
	ErrInvalidDate        = apperrors.New(apperrors.KindInvalidInput, "accounting.errors.invalid_date", "date must be YYYY-MM-DD")
	ErrDueBeforeIssue     = apperrors.New(apperrors.KindInvalidInput, "accounting.errors.due_before_issue", "due date is before issue date")
	ErrInvalidTaxRate     = apperrors.New(apperrors.KindInvalidInput, "accounting.errors.invalid_tax_rate", "tax rate must be between 0 and 10000 basis points")
	ErrInvalidLine        = apperrors.New(apperrors.KindInvalidInput, "accounting.errors.invalid_line", "line needs a description and a positive quantity")
	ErrAmountTooLarge     = apperrors.New(apperrors.KindInvalidInput, "accounting.errors.amount_too_large", "invoice amounts are too large")
	ErrInvalidFilter      = apperrors.New(apperrors.KindInvalidInput, "accounting.errors.invalid_filter", "invoice filter is invalid")
	ErrEmptyInvoice       = apperrors.New(apperrors.KindInvalidInput, "accounting.errors.empty_invoice", "invoice has no lines")
	ErrNotDraft           = apperrors.New(apperrors.KindConflict, "accounting.errors.not_draft", "only draft invoices can be edited")
	ErrInvalidTransition  = apperrors.New(apperrors.KindConflict, "accounting.errors.invalid_transition", "invoice status change is not allowed")
	ErrNotFound           = apperrors.New(apperrors.KindNotFound, "accounting.errors.not_found", "accounting record not found")
)

// Customer is a billed party.
type Customer struct {
	ID        string
	Name      string
	Email     string
	Address   string
	Currency  string
	CreatedAt time.Time
}

// CustomerInput carries the editable customer fields.
type CustomerInput struct {
	Name     string
	Email    string
	Address  string
	Currency string
}

// Line is one invoice line.
type Line struct {
	ID             string
	Description    string
	QuantityMilli  int64
	UnitPriceMinor int64
	Position       int
}

// Amount is the rounded line total. Stored lines always fit in int64.
func (l Line) Amount() int64 {
	amount, _ := LineAmount(l.QuantityMilli, l.UnitPriceMinor)
	return amount
}

// LineInput carries a new line.
type LineInput struct {
	Description    string
	QuantityMilli  int64
	UnitPriceMinor int64
}

// Invoice is an invoice with its lines and totals.
type Invoice struct {
	ID         string
	UserID     string
	CustomerID string
	Number     string
	Status     Status
	Currency   string
	IssueDate  string
	DueDate    string
	TaxRateBP  int64
	Notes      string
	Lines      []Line
	Totals     Totals
	PaidAt     time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Overdue reports whether the invoice is sent and due before today.
func (i Invoice) Overdue(today string) bool {
	return i.Status == StatusSent && i.DueDate < today
}

// InvoiceInput carries the fields of a new draft. Empty Currency uses the
// customer's; empty DueDate is the issue date plus 30 days.
type InvoiceInput struct {
	CustomerID string
	Currency   string
	IssueDate  string
	DueDate    string
	TaxRateBP  int64
	Notes      string
}

// ListRequest selects a page of invoices with an AIP-160 filter.
type ListRequest struct {
	Filter    string
	PageSize  int
	PageToken string
}

// InvoicePage is one page of invoices.
type InvoicePage struct {
	Invoices      []Invoice
	NextPageToken string
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

// Service orchestrates invoicing.
type Service struct {
	store storage.Store
	clock func() time.Time
	newID func() (string, error)
}

// NewService constructs accounting use-cases.
func NewService(store storage.Store, opts ...Option) *Service {
	s := &Service{store: store, clock: time.Now, newID: id.NewID}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateCustomer stores a new customer.
func (s *Service) CreateCustomer(ctx context.Context, userID string, input CustomerInput) (Customer, error) {
	userID, err := s.begin(userID)
	if err != nil {
		return Customer{}, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Customer{}, ErrNameRequired
	}
	email := strings.TrimSpace(input.Email)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return Customer{}, ErrInvalidEmail
		}
	}
	currency, err := normalizeCurrency(input.Currency)
	if err != nil {
		return Customer{}, err
	}
	customerID, err := s.newID()
	if err != nil {
		return Customer{}, err
	}
	now := s.now()
	record := storage.CustomerRecord{
		ID: customerID, UserID: userID, Name: name, Email: email,
		Address: strings.TrimSpace(input.Address), Currency: currency, CreatedAt: now, UpdatedAt: now,
	}
	if err := s.store.PutCustomer(ctx, record); err != nil {
		return Customer{}, err
	}
	return customerFromRecord(record), nil
}

// ListCustomers lists a user's customers by name.
func (s *Service) ListCustomers(ctx context.Context, userID string) ([]Customer, error) {
	userID, err := s.begin(userID)
	if err != nil {
		return nil, err
	}
	records, err := s.store.ListCustomers(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]Customer, 0, len(records))
	for _, record := range records {
		out = append(out, customerFromRecord(record))
	}
	return out, nil
}

// CreateInvoice opens a draft invoice for a customer.
func (s *Service) CreateInvoice(ctx context.Context, userID string, input InvoiceInput) (Invoice, error) {
	userID, err := s.begin(userID)
	if err != nil {
		return Invoice{}, err
	}
	customer, err := s.store.GetCustomer(ctx, userID, strings.TrimSpace(input.CustomerID))
	if err != nil {
		return Invoice{}, mapStoreErr(err)
	}
	currency := customer.Currency
	if strings.TrimSpace(input.Currency) != "" {
		if currency, err = normalizeCurrency(input.Currency); err != nil {
			return Invoice{}, err
		}
	}
	now := s.now()
	issue := now
	if value := strings.TrimSpace(input.IssueDate); value != "" {
		if issue, err = time.Parse(DateLayout, value); err != nil {
			return Invoice{}, ErrInvalidDate
		}
	}
	due := issue.AddDate(0, 0, defaultTermDays)
	if value := strings.TrimSpace(input.DueDate); value != "" {
		if due, err = time.Parse(DateLayout, value); err != nil {
			return Invoice{}, ErrInvalidDate
		}
	}
	issueDate, dueDate := issue.Format(DateLayout), due.Format(DateLayout)
	if dueDate < issueDate {
		return Invoice{}, ErrDueBeforeIssue
	}
	if input.TaxRateBP < 0 || input.TaxRateBP > maxTaxRateBP {
		return Invoice{}, ErrInvalidTaxRate
	}
	invoiceID, err := s.newID()
	if err != nil {
		return Invoice{}, err
	}
	invoice := Invoice{
		ID: invoiceID, UserID: userID, CustomerID: customer.ID, Status: StatusDraft, Currency: currency,
		IssueDate: issueDate, DueDate: dueDate, TaxRateBP: input.TaxRateBP, Notes: strings.TrimSpace(input.Notes),
		CreatedAt: now, UpdatedAt: now,
	}
	if err := s.store.PutInvoice(ctx, invoiceToRecord(invoice)); err != nil {
		return Invoice{}, mapStoreErr(err)
	}
	return invoice, nil
}

// AddLine appends a line to a draft invoice.
func (s *Service) AddLine(ctx context.Context, userID, invoiceID string, input LineInput) (Invoice, error) {
	description := strings.TrimSpace(input.Description)
	if description == "" || input.QuantityMilli <= 0 {
		return Invoice{}, ErrInvalidLine
	}
	lineID, err := s.newID()
	if err != nil {
		return Invoice{}, err
	}
	return s.editDraft(ctx, userID, invoiceID, func(invoice *Invoice) error {
		invoice.Lines = append(invoice.Lines, Line{
			ID: lineID, Description: description, QuantityMilli: input.QuantityMilli,
			UnitPriceMinor: input.UnitPriceMinor, Position: len(invoice.Lines),
		})
		return nil
	})
}

// RemoveLine deletes a line from a draft invoice.
func (s *Service) RemoveLine(ctx context.Context, userID, invoiceID, lineID string) (Invoice, error) {
	lineID = strings.TrimSpace(lineID)
	return s.editDraft(ctx, userID, invoiceID, func(invoice *Invoice) error {
		kept := invoice.Lines[:0]
		for _, line := range invoice.Lines {
			if line.ID != lineID {
				line.Position = len(kept)
				kept = append(kept, line)
			}
		}
		if len(kept) == len(invoice.Lines) {
			return ErrNotFound
		}
		invoice.Lines = kept
		return nil
	})
}

// Send issues a draft, allocating its number on first send.
func (s *Service) Send(ctx context.Context, userID, invoiceID string) (Invoice, error) {
	return s.transition(ctx, userID, invoiceID, func(tx storage.Store, invoice *Invoice) error {
		if invoice.Status != StatusDraft {
			return ErrInvalidTransition
		}
		if len(invoice.Lines) == 0 {
			return ErrEmptyInvoice
		}
		if invoice.Number == "" {
			year, err := time.Parse(DateLayout, invoice.IssueDate)
			if err != nil {
				return ErrInvalidDate
			}
			seq, err := tx.NextInvoiceSequence(ctx, invoice.UserID, year.Year())
			if err != nil {
				return err
			}
			invoice.Number = FormatNumber(year.Year(), seq)
		}
		invoice.Status = StatusSent
		return nil
	})
}

// MarkPaid records payment of a sent invoice.
func (s *Service) MarkPaid(ctx context.Context, userID, invoiceID string) (Invoice, error) {
	return s.transition(ctx, userID, invoiceID, func(_ storage.Store, invoice *Invoice) error {
		if invoice.Status != StatusSent {
			return ErrInvalidTransition
		}
		invoice.Status = StatusPaid
		invoice.PaidAt = s.now()
		return nil
	})
}

// Void cancels a draft or sent invoice.
func (s *Service) Void(ctx context.Context, userID, invoiceID string) (Invoice, error) {
	return s.transition(ctx, userID, invoiceID, func(_ storage.Store, invoice *Invoice) error {
		if invoice.Status != StatusDraft && invoice.Status != StatusSent {
			return ErrInvalidTransition
		}
		invoice.Status = StatusVoid
		return nil
	})
}

// Invoice loads one invoice.
func (s *Service) Invoice(ctx context.Context, userID, invoiceID string) (Invoice, error) {
	userID, err := s.begin(userID)
	if err != nil {
		return Invoice{}, err
	}
	record, err := s.store.GetInvoice(ctx, userID, strings.TrimSpace(invoiceID))
	if err != nil {
		return Invoice{}, mapStoreErr(err)
	}
	return invoiceFromRecord(record), nil
}

// ListInvoices returns one page of invoices matching req.Filter.
func (s *Service) ListInvoices(ctx context.Context, userID string, req ListRequest) (InvoicePage, error) {
	userID, err := s.begin(userID)
	if err != nil {
		return InvoicePage{}, err
	}
	cond, err := filter.Parse(req.Filter)
	if err != nil {
		return InvoicePage{}, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	page, err := s.store.ListInvoices(ctx, userID, cond, req.PageSize, req.PageToken)
	if err != nil {
		return InvoicePage{}, err
	}
	out := InvoicePage{NextPageToken: page.NextPageToken, Invoices: make([]Invoice, 0, len(page.Invoices))}
	for _, record := range page.Invoices {
		out.Invoices = append(out.Invoices, invoiceFromRecord(record))
	}
	return out, nil
}

// ListOverdue returns every user's sent invoices due before the civil date
// of now.
func (s *Service) ListOverdue(ctx context.Context, now time.Time) ([]Invoice, error) {
	if s == nil || s.store == nil {
		return nil, ErrStoreNotConfigured
	}
	records, err := s.store.ListOverdue(ctx, now.Format(DateLayout))
	if err != nil {
		return nil, err
	}
	out := make([]Invoice, 0, len(records))
	for _, record := range records {
		out = append(out, invoiceFromRecord(record))
	}
	return out, nil
}

// FormatNumber renders an invoice number such as INV-2026-0007.
func FormatNumber(year, seq int) string {
	return fmt.Sprintf("INV-%d-%04d", year, seq)
}

func (s *Service) editDraft(ctx context.Context, userID, invoiceID string, edit func(*Invoice) error) (Invoice, error) {
	return s.transition(ctx, userID, invoiceID, func(_ storage.Store, invoice *Invoice) error {
		if invoice.Status != StatusDraft {
			return ErrNotDraft
		}
		return edit(invoice)
	})
}

func (s *Service) transition(ctx context.Context, userID, invoiceID string, change func(tx storage.Store, invoice *Invoice) error) (Invoice, error) {
	userID, err := s.begin(userID)
	if err != nil {
		return Invoice{}, err
	}
	var out Invoice
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx storage.Store) error {
		record, err := tx.GetInvoice(ctx, userID, strings.TrimSpace(invoiceID))
		if err != nil {
			return mapStoreErr(err)
		}
		invoice := invoiceFromRecord(record)
		if err := change(tx, &invoice); err != nil {
			return err
		}
		totals, err := ComputeTotals(invoice.Lines, invoice.TaxRateBP)
		if err != nil {
			return err
		}
		invoice.Totals = totals
		invoice.UpdatedAt = s.now()
		if err := tx.PutInvoice(ctx, invoiceToRecord(invoice)); err != nil {
			return mapStoreErr(err)
		}
		out = invoice
		return nil
	})
	return out, err
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

func normalizeCurrency(code string) (string, error) {
	unit, err := money.Unit(code)
	if err != nil || unit.String() == "XXX" {
		return "", ErrInvalidCurrency
	}
	return unit.String(), nil
}

func mapStoreErr(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func customerFromRecord(record storage.CustomerRecord) Customer {
	return Customer{
		ID: record.ID, Name: record.Name, Email: record.Email, Address: record.Address,
		Currency: record.Currency, CreatedAt: record.CreatedAt,
	}
}

func invoiceFromRecord(record storage.InvoiceRecord) Invoice {
	invoice := Invoice{
		ID: record.ID, UserID: record.UserID, CustomerID: record.CustomerID, Number: record.Number,
		Status: Status(record.Status), Currency: record.Currency, IssueDate: record.IssueDate, DueDate: record.DueDate,
		TaxRateBP: record.TaxRateBP, Notes: record.Notes,
		Totals:    Totals{Subtotal: record.SubtotalMinor, Tax: record.TaxMinor, Total: record.TotalMinor},
		PaidAt:    record.PaidAt, CreatedAt: record.CreatedAt, UpdatedAt: record.UpdatedAt,
	}
	for _, line := range record.Lines {
		invoice.Lines = append(invoice.Lines, Line(line))
	}
	return invoice
}

func invoiceToRecord(invoice Invoice) storage.InvoiceRecord {
	record := storage.InvoiceRecord{
		ID: invoice.ID, UserID: invoice.UserID, CustomerID: invoice.CustomerID, Number: invoice.Number,
		Status: string(invoice.Status), Currency: invoice.Currency, IssueDate: invoice.IssueDate, DueDate: invoice.DueDate,
		TaxRateBP: invoice.TaxRateBP, Notes: invoice.Notes,
		SubtotalMinor: invoice.Totals.Subtotal, TaxMinor: invoice.Totals.Tax, TotalMinor: invoice.Totals.Total,
		PaidAt: invoice.PaidAt, CreatedAt: invoice.CreatedAt, UpdatedAt: invoice.UpdatedAt,
	}
	for _, line := range invoice.Lines {
		record.Lines = append(record.Lines, storage.LineRecord(line))
	}
	return record
}
