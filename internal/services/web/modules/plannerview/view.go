// Package plannerview renders planner trees for the day and list pages and
// encodes them for JSON clients.
package plannerview

import (
	"strconv"

	"github.com/a-h/templ"
	"github.com/doosr/doosr/internal/services/planner/storage"
	"github.com/doosr/doosr/internal/services/planner/tree"
	"github.com/doosr/doosr/internal/services/web/routepath"
	ui "github.com/doosr/doosr/internal/services/web/templates"
)

// Actions is where node forms post. Every mutation route lives below a
// day; ReturnTo is where the handler redirects afterwards.
type Actions struct {
	Date     string
	ReturnTo string
}

func (a Actions) path(action string) string {
	return routepath.DayAction(a.Date, action)
}

func (a Actions) button(action, label string, fields ...string) templ.Component {
	return ui.ActionButton(a.path(action), label, append(fields, "return_to", a.ReturnTo)...)
}

var itemStates = []storage.ItemState{
	storage.ItemTodo, storage.ItemDoing, storage.ItemDone, storage.ItemDropped, storage.ItemDeferred,
}

// Tree renders t as nested lists with inline actions.
func Tree(t tree.Tree, actions Actions, loc ui.Localizer) templ.Component {
	if len(t.Nodes) == 0 {
		return ui.El("p", ui.A("class", "empty"), ui.Text(ui.T(loc, "web.tree.empty")))
	}
	return nodes(t.Nodes, t.Root.ID, actions, loc)
}

func nodes(list []*tree.Node, parentID string, actions Actions, loc ui.Localizer) templ.Component {
	items := make([]templ.Component, 0, len(list))
	for i, n := range list {
		items = append(items, node(n, parentID, i, len(list), actions, loc))
	}
	return ui.El("ul", ui.A("class", "tree", "data-descendant", parentID), items...)
}

func node(n *tree.Node, parentID string, index, siblings int, actions Actions, loc ui.Localizer) templ.Component {
	class := "node node-" + string(n.Ref.Type)
	if !n.Active {
		class += " inactive"
	}
	ref := n.Ref.String()
	var body templ.Component
	switch {
	case n.Item != nil:
		class += " state-" + string(n.Item.State)
		body = itemBody(n, parentID, actions, loc)
	case n.List != nil:
		body = ui.Link(routepath.List(n.List.ID), n.Display)
	case n.Checklist != nil:
		body = checklistBody(n, actions, loc)
	case n.Note != nil:
		body = ui.El("p", ui.A("class", "note"), ui.Text(n.Display))
	case n.Journal != nil:
		body = ui.Link(routepath.Journal(n.Journal.ID), n.Display)
	case n.Prompt != nil:
		body = ui.El("q", nil, ui.Text(n.Display))
	case n.Fragment != nil:
		if n.Fragment.Locked {
			body = ui.El("span", ui.A("class", "locked"), ui.Text(ui.T(loc, "web.tree.locked_fragment")))
		} else {
			body = ui.Link(routepath.Journal(n.Fragment.JournalID), n.Display)
		}
	}
	controls := []templ.Component{}
	if index > 0 {
		controls = append(controls, actions.button("refs/move", "↑", "parent_id", parentID, "ref", ref, "index", strconv.Itoa(index-1)))
	}
	if index < siblings-1 {
		controls = append(controls, actions.button("refs/move", "↓", "parent_id", parentID, "ref", ref, "index", strconv.Itoa(index+1)))
	}
	controls = append(controls, actions.button("refs/remove", ui.T(loc, "web.tree.remove"), "parent_id", parentID, "ref", ref))

	children := []templ.Component{body, ui.El("span", ui.A("class", "controls"), controls...)}
	if len(n.Children) > 0 {
		children = append(children, nodes(n.Children, n.DescendantID, actions, loc))
	}
	if n.Item != nil && n.DescendantID != "" {
		children = append(children, ui.El("details", nil,
			ui.El("summary", nil, ui.Text(ui.T(loc, "web.tree.add_subitem"))),
			AddItemForm(actions, n.DescendantID, loc),
		))
	}
	return ui.El("li", ui.A("class", class, "data-ref", ref), children...)
}

func itemBody(n *tree.Node, parentID string, actions Actions, loc ui.Localizer) templ.Component {
	options := make([][2]string, 0, len(itemStates))
	for _, state := range itemStates {
		options = append(options, [2]string{string(state), ui.T(loc, "web.state."+string(state))})
	}
	return ui.Group(
		ui.El("span", ui.A("class", "title"), ui.Text(n.Display)),
		ui.El("form", ui.A("method", "post", "action", actions.path("state"), "class", "inline", "hx-boost", "true"),
			ui.Hidden("parent_id", parentID),
			ui.Hidden("item_id", n.Item.ID),
			ui.Hidden("return_to", actions.ReturnTo),
			ui.Select(ui.T(loc, "web.tree.state"), "state", string(n.Item.State), options...),
			ui.Submit(ui.T(loc, "web.tree.apply")),
		),
		ui.El("details", nil,
			ui.El("summary", nil, ui.Text(ui.T(loc, "web.tree.rename"))),
			ui.El("form", ui.A("method", "post", "action", actions.path("rename"), "hx-boost", "true"),
				ui.Hidden("item_id", n.Item.ID),
				ui.Hidden("return_to", actions.ReturnTo),
				ui.Field(ui.T(loc, "web.tree.title"), "text", "title", n.Item.Title),
				ui.Submit(ui.T(loc, "web.tree.save")),
			),
		),
	)
}

func checklistBody(n *tree.Node, actions Actions, loc ui.Localizer) templ.Component {
	entries := make([]templ.Component, 0, len(n.Checklist.Entries))
	for i, entry := range n.Checklist.Entries {
		mark := "☐"
		if entry.Checked {
			mark = "☑"
		}
		entries = append(entries, ui.El("li", nil,
			actions.button("checklists/toggle", mark, "checklist_id", n.Checklist.ID, "index", strconv.Itoa(i)),
			ui.Text(" "+entry.Text),
		))
	}
	return ui.Group(
		ui.El("strong", nil, ui.Text(n.Display)),
		ui.El("ul", ui.A("class", "checklist"), entries...),
		ui.El("form", ui.A("method", "post", "action", actions.path("checklists/entries"), "class", "inline", "hx-boost", "true"),
			ui.Hidden("checklist_id", n.Checklist.ID),
			ui.Hidden("return_to", actions.ReturnTo),
			ui.Field(ui.T(loc, "web.tree.entry"), "text", "text", ""),
			ui.Submit(ui.T(loc, "web.tree.add")),
		),
	)
}

// AddItemForm renders the new-item form for parentID.
func AddItemForm(actions Actions, parentID string, loc ui.Localizer) templ.Component {
	return ui.El("form", ui.A("method", "post", "action", actions.path("items"), "class", "add-item", "hx-boost", "true"),
		ui.Hidden("parent_id", parentID),
		ui.Hidden("return_to", actions.ReturnTo),
		ui.Field(ui.T(loc, "web.tree.title"), "text", "title", "", ui.A("required", "required")...),
		ui.Submit(ui.T(loc, "web.tree.add")),
	)
}

