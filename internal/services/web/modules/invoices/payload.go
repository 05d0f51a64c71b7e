package invoices

import (
	accountingdomain "github.com/doosr/doosr/internal/services/accounting/domain"
)

type customerPayload struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Address  string `json:"address,omitempty"`
	Currency string `json:"currency"`
}

type linePayload struct {
	ID             string `json:"id"`
	Description    string `json:"description"`
	QuantityMilli  int64  `json:"quantity_milli"`
	UnitPriceMinor int64  `json:"unit_price_minor"`
	AmountMinor    int64  `json:"amount_minor"`
}

type invoicePayload struct {
	ID            string        `json:"id"`
	CustomerID    string        `json:"customer_id"`
	Number        string        `json:"number,omitempty"`
	Status        string        `json:"status"`
	Currency      string        `json:"currency"`
	IssueDate     string        `json:"issue_date"`
	DueDate       string        `json:"due_date"`
	TaxRateBP     int64         `json:"tax_rate_bp"`
	Notes         string        `json:"notes,omitempty"`
	Lines         []linePayload `json:"lines"`
	SubtotalMinor int64         `json:"subtotal_minor"`
	TaxMinor      int64         `json:"tax_minor"`
	TotalMinor    int64         `json:"total_minor"`
	Overdue       bool          `json:"overdue"`
}

type pagePayload struct {
	Invoices      []invoicePayload `json:"invoices"`
	NextPageToken string           `json:"next_page_token,omitempty"`
}

func encodeCustomer(c accountingdomain.Customer) customerPayload {
	return customerPayload{ID: c.ID, Name: c.Name, Email: c.Email, Address: c.Address, Currency: c.Currency}
}

func encodeInvoice(inv accountingdomain.Invoice, today string) invoicePayload {
	out := invoicePayload{
		ID:            inv.ID,
		CustomerID:    inv.CustomerID,
		Number:        inv.Number,
		Status:        string(inv.Status),
		Currency:      inv.Currency,
		IssueDate:     inv.IssueDate,
		DueDate:       inv.DueDate,
		TaxRateBP:     inv.TaxRateBP,
		Notes:         inv.Notes,
		Lines:         make([]linePayload, 0, len(inv.Lines)),
		SubtotalMinor: inv.Totals.Subtotal,
		TaxMinor:      inv.Totals.Tax,
		TotalMinor:    inv.Totals.Total,
		Overdue:       inv.Overdue(today),
	}
	for _, line := range inv.Lines {
		out.Lines = append(out.Lines, linePayload{
			ID: line.ID, Description: line.Description, QuantityMilli: line.QuantityMilli,
			UnitPriceMinor: line.UnitPriceMinor, AmountMinor: line.Amount(),
		})
	}
	return out
}
