package plannerview

import (
	"github.com/doosr/doosr/internal/services/planner/descendant"
	"github.com/doosr/doosr/internal/services/planner/storage"
	"github.com/doosr/doosr/internal/services/planner/tree"
)

// Node is the JSON form of one tree node.
type Node struct {
	Ref          descendant.Ref           `json:"ref"`
	Active       bool                     `json:"active"`
	Depth        int                      `json:"depth"`
	Display      string                   `json:"display"`
	State        storage.ItemState        `json:"state,omitempty"`
	Body         string                   `json:"body,omitempty"`
	Entries      []storage.ChecklistEntry `json:"entries,omitempty"`
	Encrypted    bool                     `json:"encrypted,omitempty"`
	Locked       bool                     `json:"locked,omitempty"`
	DescendantID string                   `json:"descendant_id,omitempty"`
	Children     []Node                   `json:"children,omitempty"`
}

// Tree is the JSON form of a materialized tree.
type Tree struct {
	DescendantID string           `json:"descendant_id"`
	Nodes        []Node           `json:"nodes"`
	Missing      []descendant.Ref `json:"missing,omitempty"`
	Repeats      []descendant.Ref `json:"repeats,omitempty"`
	Cycles       []descendant.Ref `json:"cycles,omitempty"`
	Truncated    []descendant.Ref `json:"truncated,omitempty"`
}

// Encode converts t to its JSON form.
func Encode(t tree.Tree) Tree {
	return Tree{
		DescendantID: t.Root.ID,
		Nodes:        encodeNodes(t.Nodes),
		Missing:      t.Missing,
		Repeats:      t.Repeats,
		Cycles:       t.Cycles,
		Truncated:    t.Truncated,
	}
}

func encodeNodes(nodes []*tree.Node) []Node {
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		encoded := Node{
			Ref:          n.Ref,
			Active:       n.Active,
			Depth:        n.Depth,
			Display:      n.Display,
			DescendantID: n.DescendantID,
		}
		switch {
		case n.Item != nil:
			encoded.State = n.Item.State
		case n.Checklist != nil:
			encoded.Entries = n.Checklist.Entries
		case n.Note != nil:
			encoded.Body = n.Note.Body
		case n.Journal != nil:
			encoded.Encrypted = n.Journal.Encrypted
		case n.Fragment != nil:
			encoded.Locked = n.Fragment.Locked
		}
		if len(n.Children) > 0 {
			encoded.Children = encodeNodes(n.Children)
		}
		out = append(out, encoded)
	}
	return out
}
