// Package invoices serves customers, invoices and their lifecycle.
package invoices

import (
	"context"
	"net/http"
	"time"

	accountingdomain "github.com/doosr/doosr/internal/services/accounting/domain"
	module "github.com/doosr/doosr/internal/services/web/module"
	"github.com/doosr/doosr/internal/services/web/platform/modulehandler"
	"github.com/doosr/doosr/internal/services/web/routepath"
)

// Service is the accounting surface the module drives.
type Service interface {
	CreateCustomer(ctx context.Context, userID string, input accountingdomain.CustomerInput) (accountingdomain.Customer, error)
	ListCustomers(ctx context.Context, userID string) ([]accountingdomain.Customer, error)
	CreateInvoice(ctx context.Context, userID string, input accountingdomain.InvoiceInput) (accountingdomain.Invoice, error)
	AddLine(ctx context.Context, userID, invoiceID string, input accountingdomain.LineInput) (accountingdomain.Invoice, error)
	RemoveLine(ctx context.Context, userID, invoiceID, lineID string) (accountingdomain.Invoice, error)
	Send(ctx context.Context, userID, invoiceID string) (accountingdomain.Invoice, error)
	MarkPaid(ctx context.Context, userID, invoiceID string) (accountingdomain.Invoice, error)
	Void(ctx context.Context, userID, invoiceID string) (accountingdomain.Invoice, error)
	Invoice(ctx context.Context, userID, invoiceID string) (accountingdomain.Invoice, error)
	ListInvoices(ctx context.Context, userID string, req accountingdomain.ListRequest) (accountingdomain.InvoicePage, error)
}

// Module provides the /invoices/ routes.
type Module struct {
	service Service
	base    modulehandler.Base
	now     func() time.Time
}

// New returns an invoices module.
func New(service Service, base modulehandler.Base) Module {
	return Module{service: service, base: base, now: time.Now}
}

// WithClock returns a copy of m reading the current time from clock.
func (m Module) WithClock(clock func() time.Time) Module {
	if clock != nil {
		m.now = clock
	}
	return m
}

// ID returns a stable module identifier.
func (Module) ID() string { return "invoices" }

// Mount wires invoice route handlers.
func (m Module) Mount() (module.Mount, error) {
	mux := http.NewServeMux()
	registerRoutes(mux, handlers{Base: m.base, service: m.service, now: m.now})
	return module.Mount{Prefix: routepath.InvoicesPrefix, Handler: m.base.RequireUser(mux)}, nil
}
