package lists

import (
	"github.com/a-h/templ"
	"github.com/doosr/doosr/internal/services/planner/storage"
	"github.com/doosr/doosr/internal/services/planner/tree"
	"github.com/doosr/doosr/internal/services/web/modules/plannerview"
	"github.com/doosr/doosr/internal/services/web/routepath"
	ui "github.com/doosr/doosr/internal/services/web/templates"
)

func indexPage(lists []storage.ListRecord, loc ui.Localizer) templ.Component {
	rows := make([]templ.Component, 0, len(lists))
	for _, list := range lists {
		rows = append(rows, ui.El("li", ui.A("data-list", list.ID),
			ui.Link(routepath.List(list.ID), list.Title),
			ui.If(list.Reusable, ui.El("span", ui.A("class", "badge"), ui.Text(ui.T(loc, "web.lists.reusable")))),
		))
	}
	var listing templ.Component = ui.El("ul", ui.A("class", "lists"), rows...)
	if len(lists) == 0 {
		listing = ui.El("p", ui.A("class", "empty"), ui.Text(ui.T(loc, "web.lists.empty")))
	}
	return ui.El("section", ui.A("class", "lists-index"),
		ui.El("h1", nil, ui.Text(ui.T(loc, "web.lists.title"))),
		listing,
		ui.El("h2", nil, ui.Text(ui.T(loc, "web.lists.new"))),
		ui.Form(routepath.ListsPrefix,
			ui.Field(ui.T(loc, "web.tree.title"), "text", "title", "", ui.A("required", "required")...),
			ui.El("p", ui.A("class", "field"),
				ui.El("label", nil,
					ui.El("input", ui.A("type", "checkbox", "name", "reusable", "value", "true")),
					ui.Text(" "+ui.T(loc, "web.lists.reusable")),
				),
			),
			ui.Submit(ui.T(loc, "web.lists.create")),
		),
	)
}

// listPage renders a list's tree. Node mutations post through today's day
// routes and return here.
func listPage(list storage.ListRecord, t tree.Tree, today string, loc ui.Localizer) templ.Component {
	actions := plannerview.Actions{Date: today, ReturnTo: routepath.List(list.ID)}
	channel := "list:" + list.ID
	return ui.El("section", ui.A("class", "list", "data-live-channel", channel,
		"hx-get", routepath.List(list.ID), "hx-trigger", "live:"+channel+" from:body", "hx-select", "#"+ui.MainContentID, "hx-target", "#"+ui.MainContentID, "hx-swap", "outerHTML"),
		ui.El("h1", nil, ui.Text(list.Title)),
		ui.If(list.Reusable, ui.El("p", ui.A("class", "badge"), ui.Text(ui.T(loc, "web.lists.reusable")))),
		plannerview.Tree(t, actions, loc),
		ui.El("h2", nil, ui.Text(ui.T(loc, "web.days.add_item"))),
		ui.Form(routepath.List(list.ID)+"/items",
			ui.Hidden("parent_id", list.DescendantID),
			ui.Field(ui.T(loc, "web.tree.title"), "text", "title", "", ui.A("required", "required")...),
			ui.Submit(ui.T(loc, "web.tree.add")),
		),
		ui.Link(routepath.ListsPrefix, ui.T(loc, "web.lists.back")),
	)
}
