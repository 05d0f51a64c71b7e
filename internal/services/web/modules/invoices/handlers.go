package invoices

import (
	"net/http"
	"strconv"
	"time"

	accountingdomain "github.com/doosr/doosr/internal/services/accounting/domain"
	"github.com/doosr/doosr/internal/services/accounting/money"
	"github.com/doosr/doosr/internal/services/web/platform/httpx"
	"github.com/doosr/doosr/internal/services/web/platform/modulehandler"
	"github.com/doosr/doosr/internal/services/web/platform/webctx"
	"github.com/doosr/doosr/internal/services/web/routepath"
	webtemplates "github.com/doosr/doosr/internal/services/web/templates"
)

const (
	defaultPageSize = 25
	quantityScale   = 3
	taxRateScale    = 2
)

type handlers struct {
	modulehandler.Base
	service Service
	now     func() time.Time
}

func (h handlers) today(r *http.Request) string {
	return h.Today(r, h.now()).Format(accountingdomain.DateLayout)
}

func (h handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := accountingdomain.ListRequest{Filter: query.Get("filter"), PageSize: defaultPageSize, PageToken: query.Get("page_token")}
	if raw := query.Get("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 {
			h.WriteError(w, r, errInvalidParam)
			return
		}
		req.PageSize = size
	}
	userID := h.Viewer(r).UserID
	page, err := h.service.ListInvoices(r.Context(), userID, req)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	today := h.today(r)
	if httpx.WantsJSON(r) {
		out := pagePayload{NextPageToken: page.NextPageToken, Invoices: make([]invoicePayload, 0, len(page.Invoices))}
		for _, inv := range page.Invoices {
			out.Invoices = append(out.Invoices, encodeInvoice(inv, today))
		}
		h.WriteJSON(w, out)
		return
	}
	customers, err := h.service.ListCustomers(r.Context(), userID)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	loc := h.Printer(r)
	view := indexView{Filter: req.Filter, Page: page, Customers: customers, Today: today, Lang: webctx.Lang(r)}
	h.WritePage(w, r, webtemplates.T(loc, "web.invoices.title"), indexPage(view, loc))
}

func (h handlers) handleCreate(w http.ResponseWriter, r *http.Request) {
	if !h.parse(w, r) {
		return
	}
	input := accountingdomain.InvoiceInput{
		CustomerID: h.FormValue(r, "customer_id"),
		Currency:   h.FormValue(r, "currency"),
		IssueDate:  h.FormValue(r, "issue_date"),
		DueDate:    h.FormValue(r, "due_date"),
		Notes:      r.PostFormValue("notes"),
	}
	if raw := h.FormValue(r, "tax_rate"); raw != "" {
		bp, err := money.ParseMinor(raw, taxRateScale)
		if err != nil {
			h.WriteError(w, r, errInvalidAmount)
			return
		}
		input.TaxRateBP = bp
	}
	inv, err := h.service.CreateInvoice(r.Context(), h.Viewer(r).UserID, input)
	h.finish(w, r, inv, err, "web.invoices.created")
}

func (h handlers) handleCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.service.ListCustomers(r.Context(), h.Viewer(r).UserID)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	if httpx.WantsJSON(r) {
		out := make([]customerPayload, 0, len(customers))
		for _, c := range customers {
			out = append(out, encodeCustomer(c))
		}
		h.WriteJSON(w, out)
		return
	}
	loc := h.Printer(r)
	h.WritePage(w, r, webtemplates.T(loc, "web.invoices.customers"), customersPage(customers, loc))
}

func (h handlers) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	if !h.parse(w, r) {
		return
	}
	customer, err := h.service.CreateCustomer(r.Context(), h.Viewer(r).UserID, accountingdomain.CustomerInput{
		Name:     h.FormValue(r, "name"),
		Email:    h.FormValue(r, "email"),
		Address:  r.PostFormValue("address"),
		Currency: h.FormValue(r, "currency"),
	})
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	if httpx.WantsJSON(r) {
		h.WriteJSON(w, encodeCustomer(customer))
		return
	}
	h.Redirect(w, r, routepath.InvoiceCustomers, "web.invoices.customer_created")
}

func (h handlers) handleInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.service.Invoice(r.Context(), h.Viewer(r).UserID, r.PathValue("id"))
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	today := h.today(r)
	if httpx.WantsJSON(r) {
		h.WriteJSON(w, encodeInvoice(inv, today))
		return
	}
	loc := h.Printer(r)
	title := inv.Number
	if title == "" {
		title = webtemplates.T(loc, "web.invoices.draft")
	}
	h.WritePage(w, r, title, invoicePage(inv, today, webctx.Lang(r), loc))
}

func (h handlers) handleAddLine(w http.ResponseWriter, r *http.Request) {
	if !h.parse(w, r) {
		return
	}
	userID := h.Viewer(r).UserID
	current, err := h.service.Invoice(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	unit, err := money.Unit(current.Currency)
	if err != nil {
		h.WriteError(w, r, accountingdomain.ErrInvalidCurrency)
		return
	}
	quantity, err := money.ParseMinor(h.FormValue(r, "quantity"), quantityScale)
	if err != nil {
		h.WriteError(w, r, errInvalidAmount)
		return
	}
	price, err := money.ParseMinor(h.FormValue(r, "unit_price"), money.Scale(unit))
	if err != nil {
		h.WriteError(w, r, errInvalidAmount)
		return
	}
	inv, err := h.service.AddLine(r.Context(), userID, current.ID, accountingdomain.LineInput{
		Description:    h.FormValue(r, "description"),
		QuantityMilli:  quantity,
		UnitPriceMinor: price,
	})
	h.finish(w, r, inv, err, "")
}

func (h handlers) handleRemoveLine(w http.ResponseWriter, r *http.Request) {
	inv, err := h.service.RemoveLine(r.Context(), h.Viewer(r).UserID, r.PathValue("id"), r.PathValue("line"))
	h.finish(w, r, inv, err, "")
}

func (h handlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !h.parse(w, r) {
		return
	}
	userID, invoiceID := h.Viewer(r).UserID, r.PathValue("id")
	var (
		inv accountingdomain.Invoice
		err error
	)
	switch h.FormValue(r, "action") {
	case "send":
		inv, err = h.service.Send(r.Context(), userID, invoiceID)
	case "paid":
		inv, err = h.service.MarkPaid(r.Context(), userID, invoiceID)
	case "void":
		inv, err = h.service.Void(r.Context(), userID, invoiceID)
	default:
		err = errInvalidAction
	}
	h.finish(w, r, inv, err, "web.invoices.status_"+string(inv.Status))
}

func (h handlers) finish(w http.ResponseWriter, r *http.Request, inv accountingdomain.Invoice, err error, noticeKey string) {
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	if httpx.WantsJSON(r) {
		h.WriteJSON(w, encodeInvoice(inv, h.today(r)))
		return
	}
	h.Redirect(w, r, routepath.Invoice(inv.ID), noticeKey)
}

func (h handlers) parse(w http.ResponseWriter, r *http.Request) bool {
	if err := h.ParseForm(w, r); err != nil {
		h.WriteError(w, r, err)
		return false
	}
	return true
}
