package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	plannerdomain "github.com/doosr/doosr/internal/services/planner/domain"
	"github.com/doosr/doosr/internal/services/planner/descendant"
	"github.com/doosr/doosr/internal/services/planner/storage"
	"github.com/doosr/doosr/internal/services/planner/tree"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const dayURIPrefix = "doosr://days/"

// DayURI returns the resource URI of the day tree for date.
func DayURI(date string) string {
	return dayURIPrefix + date
}

// DayTreeInput represents the MCP tool input for reading a day.
type DayTreeInput struct {
	Date            string `json:"date,omitempty" jsonschema:"civil date YYYY-MM-DD; defaults to today"`
	IncludeInactive bool   `json:"include_inactive,omitempty" jsonschema:"also list completed, dropped and deferred entries"`
}

// TreeNode is one flattened tree entry.
type TreeNode struct {
	Type     string `json:"type" jsonschema:"record type (item, list, checklist, note, journal, journal_prompt, journal_fragment)"`
	ID       string `json:"id" jsonschema:"record identifier"`
	ParentID string `json:"parent_id" jsonschema:"descendant identifier of the containing child list"`
	Depth    int    `json:"depth" jsonschema:"nesting depth, zero for direct children of the day"`
	Title    string `json:"title" jsonschema:"display text with placeholders resolved for the day"`
	State    string `json:"state,omitempty" jsonschema:"item state (todo, doing, done, dropped, deferred)"`
	Active   bool   `json:"active" jsonschema:"whether the entry is in the active list"`
	Locked   bool   `json:"locked,omitempty" jsonschema:"encrypted journal content that is currently locked"`
}

// DayTreeResult represents the MCP tool output for a day.
type DayTreeResult struct {
	Date         string     `json:"date" jsonschema:"civil date YYYY-MM-DD"`
	DescendantID string     `json:"descendant_id" jsonschema:"descendant identifier of the day"`
	Nodes        []TreeNode `json:"nodes" jsonschema:"entries in display order, parents before children"`
	Missing      int        `json:"missing,omitempty" jsonschema:"references whose record no longer exists"`
}

// DayTreeTool defines the MCP tool schema for reading a day.
func DayTreeTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "day_tree",
		Description: "Returns the user's planner day as a flattened tree of items, lists, checklists, notes and journal entries.",
	}
}

// DayTreeHandler reads a day, creating it on first access.
func DayTreeHandler(planner Planner, scope Scope) mcp.ToolHandlerFor[DayTreeInput, DayTreeResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input DayTreeInput) (*mcp.CallToolResult, DayTreeResult, error) {
		date, err := scope.Date(input.Date)
		if err != nil {
			return nil, DayTreeResult{}, err
		}
		result, err := loadDayTree(ctx, planner, scope, date, input.IncludeInactive)
		if err != nil {
			return nil, DayTreeResult{}, err
		}
		return nil, result, nil
	}
}

// AddItemInput represents the MCP tool input for adding an item to a day.
type AddItemInput struct {
	Date  string `json:"date,omitempty" jsonschema:"civil date YYYY-MM-DD; defaults to today"`
	Title string `json:"title" jsonschema:"item title; may contain placeholders such as {{weekday}}"`
}

// ItemResult represents an item after a tool changed it.
type ItemResult struct {
	ID          string `json:"id" jsonschema:"item identifier"`
	Date        string `json:"date" jsonschema:"civil date of the day holding the item"`
	Title       string `json:"title" jsonschema:"stored item title"`
	State       string `json:"state" jsonschema:"item state"`
	CompletedAt string `json:"completed_at,omitempty" jsonschema:"RFC3339 timestamp when the item was done"`
}

// AddItemTool defines the MCP tool schema for adding an item.
func AddItemTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "add_item",
		Description: "Appends a todo item to the user's day.",
	}
}

// AddItemHandler appends an item to the day's active list.
func AddItemHandler(planner Planner, scope Scope, notify ResourceUpdateNotifier) mcp.ToolHandlerFor[AddItemInput, ItemResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input AddItemInput) (*mcp.CallToolResult, ItemResult, error) {
		if planner == nil {
			return nil, ItemResult{}, fmt.Errorf("planner is not configured")
		}
		date, err := scope.Date(input.Date)
		if err != nil {
			return nil, ItemResult{}, err
		}
		runCtx, cancel := context.WithTimeout(ctx, callTimeout)
		defer cancel()

		day, err := planner.Day(runCtx, scope.UserID, date)
		if err != nil {
			return nil, ItemResult{}, fmt.Errorf("load day: %w", err)
		}
		item, err := planner.AddItem(runCtx, scope.UserID, day.DescendantID, input.Title, -1)
		if err != nil {
			return nil, ItemResult{}, fmt.Errorf("add item: %w", err)
		}
		if notify != nil {
			notify(ctx, DayURI(date))
		}
		return nil, itemResult(item, date), nil
	}
}

// SetItemStateInput represents the MCP tool input for an item state change.
type SetItemStateInput struct {
	Date   string `json:"date,omitempty" jsonschema:"civil date YYYY-MM-DD of the day holding the item; defaults to today"`
	ItemID string `json:"item_id" jsonschema:"item identifier from day_tree"`
	State  string `json:"state" jsonschema:"new state: todo, doing, done, dropped or deferred"`
}

// SetItemStateTool defines the MCP tool schema for changing an item state.
func SetItemStateTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "set_item_state",
		Description: "Changes the state of an item on the user's day. Open states keep it active; done, dropped and deferred move it to the inactive list.",
	}
}

// SetItemStateHandler changes the state of an item found anywhere in the
// day's tree.
func SetItemStateHandler(planner Planner, scope Scope, notify ResourceUpdateNotifier) mcp.ToolHandlerFor[SetItemStateInput, ItemResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SetItemStateInput) (*mcp.CallToolResult, ItemResult, error) {
		if planner == nil {
			return nil, ItemResult{}, fmt.Errorf("planner is not configured")
		}
		date, err := scope.Date(input.Date)
		if err != nil {
			return nil, ItemResult{}, err
		}
		itemID := strings.TrimSpace(input.ItemID)
		if itemID == "" {
			return nil, ItemResult{}, fmt.Errorf("item_id is required")
		}
		runCtx, cancel := context.WithTimeout(ctx, callTimeout)
		defer cancel()

		_, t, err := planner.DayTree(runCtx, scope.UserID, date, plannerdomain.TreeOptions{IncludeInactive: true})
		if err != nil {
			return nil, ItemResult{}, fmt.Errorf("load day tree: %w", err)
		}
		parentID, ok := parentOf(t, descendant.Ref{Type: descendant.RefItem, ID: itemID})
		if !ok {
			return nil, ItemResult{}, fmt.Errorf("item %s is not on %s", itemID, date)
		}
		item, err := planner.SetItemState(runCtx, scope.UserID, parentID, itemID, storage.ItemState(input.State))
		if err != nil {
			return nil, ItemResult{}, fmt.Errorf("set item state: %w", err)
		}
		if notify != nil {
			notify(ctx, DayURI(date))
		}
		return nil, itemResult(item, date), nil
	}
}

// DayResourceTemplate defines the MCP resource template for day trees.
func DayResourceTemplate() *mcp.ResourceTemplate {
	return &mcp.ResourceTemplate{
		Name:        "day",
		Title:       "Planner day",
		Description: "Readable day tree. URI format: doosr://days/{date}",
		MIMEType:    "application/json",
		URITemplate: dayURIPrefix + "{date}",
	}
}

// DayResourceHandler reads the day named by the request URI.
func DayResourceHandler(planner Planner, scope Scope) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if req == nil || req.Params == nil || req.Params.URI == "" {
			return nil, fmt.Errorf("day is required; use URI format %s{date}", dayURIPrefix)
		}
		uri := req.Params.URI
		value, ok := strings.CutPrefix(uri, dayURIPrefix)
		if !ok || value == "" {
			return nil, mcp.ResourceNotFoundError(uri)
		}
		date, err := scope.Date(value)
		if err != nil {
			return nil, err
		}
		result, err := loadDayTree(ctx, planner, scope, date, true)
		if err != nil {
			return nil, err
		}
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal day: %w", err)
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(data),
			}},
		}, nil
	}
}

func loadDayTree(ctx context.Context, planner Planner, scope Scope, date string, includeInactive bool) (DayTreeResult, error) {
	if planner == nil {
		return DayTreeResult{}, fmt.Errorf("planner is not configured")
	}
	runCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	day, t, err := planner.DayTree(runCtx, scope.UserID, date, plannerdomain.TreeOptions{IncludeInactive: includeInactive})
	if err != nil {
		return DayTreeResult{}, fmt.Errorf("load day tree: %w", err)
	}
	result := DayTreeResult{
		Date:         day.Date,
		DescendantID: day.DescendantID,
		Nodes:        []TreeNode{},
		Missing:      len(t.Missing),
	}
	flatten(t.Nodes, day.DescendantID, &result.Nodes)
	return result, nil
}

func flatten(nodes []*tree.Node, parentID string, out *[]TreeNode) {
	for _, n := range nodes {
		entry := TreeNode{
			Type:     string(n.Ref.Type),
			ID:       n.Ref.ID,
			ParentID: parentID,
			Depth:    n.Depth,
			Title:    n.Display,
			Active:   n.Active,
		}
		switch {
		case n.Item != nil:
			entry.State = string(n.Item.State)
		case n.Fragment != nil:
			entry.Locked = n.Fragment.Locked
		}
		*out = append(*out, entry)
		flatten(n.Children, n.DescendantID, out)
	}
}

// parentOf returns the descendant id of the child list holding ref.
func parentOf(t tree.Tree, ref descendant.Ref) (string, bool) {
	var find func(nodes []*tree.Node, parentID string) (string, bool)
	find = func(nodes []*tree.Node, parentID string) (string, bool) {
		for _, n := range nodes {
			if n.Ref == ref {
				return parentID, true
			}
			if id, ok := find(n.Children, n.DescendantID); ok {
				return id, true
			}
		}
		return "", false
	}
	return find(t.Nodes, t.Root.ID)
}

func itemResult(item storage.ItemRecord, date string) ItemResult {
	result := ItemResult{
		ID:    item.ID,
		Date:  date,
		Title: item.Title,
		State: string(item.State),
	}
	if !item.CompletedAt.IsZero() {
		result.CompletedAt = item.CompletedAt.UTC().Format(time.RFC3339)
	}
	return result
}
