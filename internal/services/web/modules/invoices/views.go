package invoices

import (
	"net/url"

	"github.com/a-h/templ"
	accountingdomain "github.com/doosr/doosr/internal/services/accounting/domain"
	"github.com/doosr/doosr/internal/services/accounting/money"
	"github.com/doosr/doosr/internal/services/web/routepath"
	ui "github.com/doosr/doosr/internal/services/web/templates"
	"golang.org/x/text/language"
)

type indexView struct {
	Filter    string
	Page      accountingdomain.InvoicePage
	Customers []accountingdomain.Customer
	Today     string
	Lang      language.Tag
}

func statusLabel(status accountingdomain.Status, loc ui.Localizer) string {
	return ui.T(loc, "web.invoices.status."+string(status))
}

func indexPage(view indexView, loc ui.Localizer) templ.Component {
	names := make(map[string]string, len(view.Customers))
	for _, c := range view.Customers {
		names[c.ID] = c.Name
	}
	rows := make([]templ.Component, 0, len(view.Page.Invoices))
	for _, inv := range view.Page.Invoices {
		number := inv.Number
		if number == "" {
			number = ui.T(loc, "web.invoices.draft")
		}
		class := "status-" + string(inv.Status)
		if inv.Overdue(view.Today) {
			class += " overdue"
		}
		rows = append(rows, ui.El("tr", ui.A("class", class, "data-invoice", inv.ID),
			ui.El("td", nil, ui.Link(routepath.Invoice(inv.ID), number)),
			ui.El("td", nil, ui.Text(names[inv.CustomerID])),
			ui.El("td", nil, ui.Text(statusLabel(inv.Status, loc))),
			ui.El("td", nil, ui.Text(inv.DueDate)),
			ui.El("td", ui.A("class", "amount"), ui.Text(money.Format(inv.Totals.Total, inv.Currency, view.Lang))),
		))
	}
	var table templ.Component = ui.El("table", ui.A("class", "invoices"),
		ui.El("thead", nil, ui.El("tr", nil,
			ui.El("th", nil, ui.Text(ui.T(loc, "web.invoices.number"))),
			ui.El("th", nil, ui.Text(ui.T(loc, "web.invoices.customer"))),
			ui.El("th", nil, ui.Text(ui.T(loc, "web.invoices.status"))),
			ui.El("th", nil, ui.Text(ui.T(loc, "web.invoices.due_date"))),
			ui.El("th", nil, ui.Text(ui.T(loc, "web.invoices.total"))),
		)),
		ui.El("tbody", nil, rows...),
	)
	if len(rows) == 0 {
		table = ui.El("p", ui.A("class", "empty"), ui.Text(ui.T(loc, "web.invoices.empty")))
	}
	var next templ.Component
	if view.Page.NextPageToken != "" {
		query := url.Values{"page_token": {view.Page.NextPageToken}}
		if view.Filter != "" {
			query.Set("filter", view.Filter)
		}
		next = ui.Link(routepath.InvoicesPrefix+"?"+query.Encode(), ui.T(loc, "web.invoices.next_page"), ui.A("rel", "next")...)
	}
	return ui.El("section", ui.A("class", "invoices-index"),
		ui.El("h1", nil, ui.Text(ui.T(loc, "web.invoices.title"))),
		ui.El("form", ui.A("method", "get", "action", routepath.InvoicesPrefix, "class", "filter"),
			ui.Field(ui.T(loc, "web.invoices.filter"), "search", "filter", view.Filter, ui.A("placeholder", `status = "sent"`)...),
			ui.Submit(ui.T(loc, "web.invoices.apply_filter")),
		),
		table,
		next,
		createForm(view.Customers, loc),
		ui.Link(routepath.InvoiceCustomers, ui.T(loc, "web.invoices.customers")),
	)
}

func createForm(customers []accountingdomain.Customer, loc ui.Localizer) templ.Component {
	if len(customers) == 0 {
		return ui.El("p", ui.A("class", "hint"), ui.Link(routepath.InvoiceCustomers, ui.T(loc, "web.invoices.add_customer_first")))
	}
	options := make([][2]string, 0, len(customers))
	for _, c := range customers {
		options = append(options, [2]string{c.ID, c.Name + " (" + c.Currency + ")"})
	}
	return ui.El("details", nil,
		ui.El("summary", nil, ui.Text(ui.T(loc, "web.invoices.new"))),
		ui.Form(routepath.InvoicesPrefix,
			ui.Select(ui.T(loc, "web.invoices.customer"), "customer_id", "", options...),
			ui.Field(ui.T(loc, "web.invoices.currency"), "text", "currency", "", ui.A("maxlength", "3")...),
			ui.Field(ui.T(loc, "web.invoices.issue_date"), "date", "issue_date", ""),
			ui.Field(ui.T(loc, "web.invoices.due_date"), "date", "due_date", ""),
			ui.Field(ui.T(loc, "web.invoices.tax_rate"), "text", "tax_rate", "", ui.A("inputmode", "decimal")...),
			ui.TextArea(ui.T(loc, "web.invoices.notes"), "notes", ""),
			ui.Submit(ui.T(loc, "web.invoices.create")),
		),
	)
}

func invoicePage(inv accountingdomain.Invoice, today string, lang language.Tag, loc ui.Localizer) templ.Component {
	format := func(minor int64) templ.Component {
		return ui.Text(money.Format(minor, inv.Currency, lang))
	}
	draft := inv.Status == accountingdomain.StatusDraft
	lines := make([]templ.Component, 0, len(inv.Lines))
	for _, line := range inv.Lines {
		var remove templ.Component
		if draft {
			remove = ui.ActionButton(routepath.InvoiceLineRemove(inv.ID, line.ID), ui.T(loc, "web.tree.remove"))
		}
		lines = append(lines, ui.El("tr", ui.A("data-line", line.ID),
			ui.El("td", nil, ui.Text(line.Description)),
			ui.El("td", ui.A("class", "quantity"), ui.Text(ui.T(loc, "web.invoices.quantity_value", float64(line.QuantityMilli)/1000))),
			ui.El("td", ui.A("class", "amount"), format(line.UnitPriceMinor)),
			ui.El("td", ui.A("class", "amount"), format(line.Amount())),
			ui.El("td", nil, remove),
		))
	}
	number := inv.Number
	if number == "" {
		number = ui.T(loc, "web.invoices.draft")
	}
	return ui.El("section", ui.A("class", "invoice", "data-status", string(inv.Status)),
		ui.El("h1", nil, ui.Text(number)),
		ui.El("dl", nil,
			ui.El("dt", nil, ui.Text(ui.T(loc, "web.invoices.status"))),
			ui.El("dd", nil, ui.Text(statusLabel(inv.Status, loc)), ui.If(inv.Overdue(today), ui.El("strong", ui.A("class", "overdue"), ui.Text(" "+ui.T(loc, "web.invoices.overdue"))))),
			ui.El("dt", nil, ui.Text(ui.T(loc, "web.invoices.issue_date"))),
			ui.El("dd", nil, ui.Text(inv.IssueDate)),
			ui.El("dt", nil, ui.Text(ui.T(loc, "web.invoices.due_date"))),
			ui.El("dd", nil, ui.Text(inv.DueDate)),
		),
		ui.El("table", ui.A("class", "lines"),
			ui.El("thead", nil, ui.El("tr", nil,
				ui.El("th", nil, ui.Text(ui.T(loc, "web.invoices.description"))),
				ui.El("th", nil, ui.Text(ui.T(loc, "web.invoices.quantity"))),
				ui.El("th", nil, ui.Text(ui.T(loc, "web.invoices.unit_price"))),
				ui.El("th", nil, ui.Text(ui.T(loc, "web.invoices.amount"))),
				ui.El("th", nil),
			)),
			ui.El("tbody", nil, lines...),
			ui.El("tfoot", nil,
				ui.El("tr", nil, ui.El("th", ui.A("colspan", "3"), ui.Text(ui.T(loc, "web.invoices.subtotal"))), ui.El("td", ui.A("class", "amount"), format(inv.Totals.Subtotal))),
				ui.El("tr", nil, ui.El("th", ui.A("colspan", "3"), ui.Text(ui.T(loc, "web.invoices.tax"))), ui.El("td", ui.A("class", "amount"), format(inv.Totals.Tax))),
				ui.El("tr", nil, ui.El("th", ui.A("colspan", "3"), ui.Text(ui.T(loc, "web.invoices.total"))), ui.El("td", ui.A("class", "amount total"), format(inv.Totals.Total))),
			),
		),
		ui.If(inv.Notes != "", ui.El("p", ui.A("class", "notes"), ui.Text(inv.Notes))),
		ui.If(draft, ui.Form(routepath.Invoice(inv.ID)+"/lines",
			ui.Field(ui.T(loc, "web.invoices.description"), "text", "description", "", ui.A("required", "required")...),
			ui.Field(ui.T(loc, "web.invoices.quantity"), "text", "quantity", "1", ui.A("inputmode", "decimal")...),
			ui.Field(ui.T(loc, "web.invoices.unit_price"), "text", "unit_price", "", ui.A("inputmode", "decimal")...),
			ui.Submit(ui.T(loc, "web.invoices.add_line")),
		)),
		statusActions(inv, loc),
		ui.Link(routepath.InvoicesPrefix, ui.T(loc, "web.invoices.back")),
	)
}

func statusActions(inv accountingdomain.Invoice, loc ui.Localizer) templ.Component {
	action := routepath.Invoice(inv.ID) + "/status"
	switch inv.Status {
	case accountingdomain.StatusDraft:
		return ui.Group(
			ui.If(len(inv.Lines) > 0, ui.ActionButton(action, ui.T(loc, "web.invoices.send"), "action", "send")),
			ui.ActionButton(action, ui.T(loc, "web.invoices.void"), "action", "void"),
		)
	case accountingdomain.StatusSent:
		return ui.Group(
			ui.ActionButton(action, ui.T(loc, "web.invoices.mark_paid"), "action", "paid"),
			ui.ActionButton(action, ui.T(loc, "web.invoices.void"), "action", "void"),
		)
	}
	return nil
}

func customersPage(customers []accountingdomain.Customer, loc ui.Localizer) templ.Component {
	rows := make([]templ.Component, 0, len(customers))
	for _, c := range customers {
		rows = append(rows, ui.El("li", ui.A("data-customer", c.ID),
			ui.Text(c.Name+" · "+c.Currency),
			ui.If(c.Email != "", ui.Text(" · "+c.Email)),
		))
	}
	return ui.El("section", ui.A("class", "customers"),
		ui.El("h1", nil, ui.Text(ui.T(loc, "web.invoices.customers"))),
		ui.El("ul", nil, rows...),
		ui.Form(routepath.InvoiceCustomers,
			ui.Field(ui.T(loc, "web.invoices.name"), "text", "name", "", ui.A("required", "required")...),
			ui.Field(ui.T(loc, "web.auth.email"), "email", "email", ""),
			ui.TextArea(ui.T(loc, "web.invoices.address"), "address", ""),
			ui.Field(ui.T(loc, "web.invoices.currency"), "text", "currency", "", ui.A("maxlength", "3", "required", "required")...),
			ui.Submit(ui.T(loc, "web.invoices.add_customer")),
		),
		ui.Link(routepath.InvoicesPrefix, ui.T(loc, "web.invoices.back")),
	)
}
