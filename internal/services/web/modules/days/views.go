package days

import (
	"time"

	"github.com/a-h/templ"
	"github.com/doosr/doosr/internal/core/fixedcalendar"
	plannerdomain "github.com/doosr/doosr/internal/services/planner/domain"
	"github.com/doosr/doosr/internal/services/planner/storage"
	"github.com/doosr/doosr/internal/services/planner/tree"
	"github.com/doosr/doosr/internal/services/web/modules/plannerview"
	"github.com/doosr/doosr/internal/services/web/routepath"
	ui "github.com/doosr/doosr/internal/services/web/templates"
)

type dayView struct {
	Date         string
	DescendantID string
	Today        string
	Parsed       time.Time
	Fixed        fixedcalendar.Date
	Tree         tree.Tree
	Reusable     []storage.ListRecord
}

func dayPage(view dayView, loc ui.Localizer) templ.Component {
	actions := plannerview.Actions{Date: view.Date, ReturnTo: routepath.Day(view.Date)}
	prev := view.Parsed.AddDate(0, 0, -1).Format(plannerdomain.DateLayout)
	next := view.Parsed.AddDate(0, 0, 1).Format(plannerdomain.DateLayout)
	channel := plannerdomain.DayChannel(view.Date)
	// Nested items and attached lists publish on the planner channel.
	trigger := "live:" + channel + " from:body, live:" + plannerdomain.ChannelPlanner + " from:body"
	return ui.El("section", ui.A("class", "day", "data-live-channel", channel,
		"hx-get", routepath.Day(view.Date), "hx-trigger", trigger, "hx-select", "#"+ui.MainContentID, "hx-target", "#"+ui.MainContentID, "hx-swap", "outerHTML"),
		ui.El("header", nil,
			ui.El("h1", nil, ui.Text(ui.T(loc, "web.days.heading", ui.T(loc, "web.weekday."+view.Parsed.Weekday().String()), view.Date))),
			ui.El("p", ui.A("class", "fixed-date"), ui.Text(view.Fixed.String())),
			ui.El("nav", nil,
				ui.Link(routepath.Day(prev), ui.T(loc, "web.days.previous")),
				ui.Text(" "),
				ui.If(view.Date != view.Today, ui.Link(routepath.Day(view.Today), ui.T(loc, "web.nav.today"))),
				ui.Text(" "),
				ui.Link(routepath.Day(next), ui.T(loc, "web.days.next")),
			),
		),
		plannerview.Tree(view.Tree, actions, loc),
		ui.El("h2", nil, ui.Text(ui.T(loc, "web.days.add_item"))),
		plannerview.AddItemForm(actions, view.DescendantID, loc),
		attachListForm(view, loc),
		ui.El("details", nil,
			ui.El("summary", nil, ui.Text(ui.T(loc, "web.days.add_checklist"))),
			ui.Form(routepath.DayAction(view.Date, "checklists"),
				ui.Hidden("parent_id", view.DescendantID),
				ui.Field(ui.T(loc, "web.tree.title"), "text", "title", "", ui.A("required", "required")...),
				ui.TextArea(ui.T(loc, "web.days.checklist_entries"), "entries", ""),
				ui.Submit(ui.T(loc, "web.tree.add")),
			),
		),
		ui.El("details", nil,
			ui.El("summary", nil, ui.Text(ui.T(loc, "web.days.add_note"))),
			ui.Form(routepath.DayAction(view.Date, "notes"),
				ui.Hidden("parent_id", view.DescendantID),
				ui.TextArea(ui.T(loc, "web.days.note_body"), "body", ""),
				ui.Submit(ui.T(loc, "web.tree.add")),
			),
		),
		ui.ActionButton(routepath.DayAction(view.Date, "rollover"), ui.T(loc, "web.days.rollover"), "from", prev),
	)
}

func attachListForm(view dayView, loc ui.Localizer) templ.Component {
	if len(view.Reusable) == 0 {
		return nil
	}
	options := make([][2]string, 0, len(view.Reusable))
	for _, list := range view.Reusable {
		options = append(options, [2]string{list.ID, list.Title})
	}
	return ui.Form(routepath.DayAction(view.Date, "lists"),
		ui.Hidden("parent_id", view.DescendantID),
		ui.Select(ui.T(loc, "web.days.attach_list"), "list_id", "", options...),
		ui.Submit(ui.T(loc, "web.days.attach")),
	)
}
