package invoices

import (
	"net/http"

	"github.com/doosr/doosr/internal/services/web/routepath"
)

func registerRoutes(mux *http.ServeMux, h handlers) {
	mux.HandleFunc(http.MethodGet+" "+routepath.InvoicesPrefix+"{$}", h.handleIndex)
	mux.HandleFunc(http.MethodPost+" "+routepath.InvoicesPrefix+"{$}", h.handleCreate)
	mux.HandleFunc(http.MethodGet+" "+routepath.InvoiceCustomers, h.handleCustomers)
	mux.HandleFunc(http.MethodPost+" "+routepath.InvoiceCustomers, h.handleCreateCustomer)
	mux.HandleFunc(http.MethodGet+" "+routepath.InvoicesPrefix+"{id}", h.handleInvoice)
	mux.HandleFunc(http.MethodPost+" "+routepath.InvoicesPrefix+"{id}/lines", h.handleAddLine)
	mux.HandleFunc(http.MethodPost+" "+routepath.InvoicesPrefix+"{id}/lines/{line}/remove", h.handleRemoveLine)
	mux.HandleFunc(http.MethodPost+" "+routepath.InvoicesPrefix+"{id}/status", h.handleStatus)
}
