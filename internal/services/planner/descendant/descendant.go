// Package descendant models the ordered child references of a planner
// node. A Descendant belongs to exactly one owner (a day, item, list or
// journal) and keeps two ordered lists: active children, shown first, and
// inactive children (finished or dismissed) shown after them.
package descendant

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// RefType names the kind of record a Ref points at.
type RefType string

const (
	RefItem            RefType = "item"
	RefList            RefType = "list"
	RefChecklist       RefType = "checklist"
	RefNote            RefType = "note"
	RefJournal         RefType = "journal"
	RefJournalPrompt   RefType = "journal_prompt"
	RefJournalFragment RefType = "journal_fragment"
)

// OwnerType names the kind of record that owns a Descendant.
type OwnerType string

const (
	OwnerDay     OwnerType = "day"
	OwnerItem    OwnerType = "item"
	OwnerList    OwnerType = "list"
	OwnerJournal OwnerType = "journal"
)

var (
	// ErrDuplicateRef is returned when a ref is already a child.
	ErrDuplicateRef = errors.New("reference already present")
	// ErrRefNotFound is returned when a ref is not a child.
	ErrRefNotFound = errors.New("reference not present")
	// ErrInvalidRef is returned for malformed references.
	ErrInvalidRef = errors.New("invalid reference")
)

// Ref is a typed pointer to a child record.
type Ref struct {
	Type RefType `json:"type"`
	ID   string  `json:"id"`
}

// String renders the ref as "type:id".
func (r Ref) String() string {
	return string(r.Type) + ":" + r.ID
}

// Validate reports whether r names a known type and a non-empty id.
func (r Ref) Validate() error {
	if !r.Type.Valid() {
		return fmt.Errorf("%w: type %q", ErrInvalidRef, r.Type)
	}
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidRef)
	}
	return nil
}

// ParseRef parses the "type:id" form produced by Ref.String.
func ParseRef(value string) (Ref, error) {
	typ, refID, ok := strings.Cut(strings.TrimSpace(value), ":")
	if !ok {
		return Ref{}, fmt.Errorf("%w: %q", ErrInvalidRef, value)
	}
	ref := Ref{Type: RefType(typ), ID: refID}
	if err := ref.Validate(); err != nil {
		return Ref{}, err
	}
	return ref, nil
}

// Valid reports whether t is a known ref type.
func (t RefType) Valid() bool {
	switch t {
	case RefItem, RefList, RefChecklist, RefNote, RefJournal, RefJournalPrompt, RefJournalFragment:
		return true
	}
	return false
}

// Valid reports whether t is a known owner type.
func (t OwnerType) Valid() bool {
	switch t {
	case OwnerDay, OwnerItem, OwnerList, OwnerJournal:
		return true
	}
	return false
}

// Descendant is the ordered child list of one owner. A ref appears at most
// once across Active and Inactive.
type Descendant struct {
	ID        string
	UserID    string
	OwnerType OwnerType
	OwnerID   string
	Active    []Ref
	Inactive  []Ref
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy.
func (d Descendant) Clone() Descendant {
	out := d
	out.Active = append([]Ref(nil), d.Active...)
	out.Inactive = append([]Ref(nil), d.Inactive...)
	return out
}

// Contains reports whether ref is a child and whether it is active.
func (d Descendant) Contains(ref Ref) (found bool, active bool) {
	if indexOf(d.Active, ref) >= 0 {
		return true, true
	}
	if indexOf(d.Inactive, ref) >= 0 {
		return true, false
	}
	return false, false
}

// Children returns active refs followed by inactive refs.
func (d Descendant) Children() []Ref {
	out := make([]Ref, 0, len(d.Active)+len(d.Inactive))
	out = append(out, d.Active...)
	return append(out, d.Inactive...)
}

// Len returns the number of children.
func (d Descendant) Len() int {
	return len(d.Active) + len(d.Inactive)
}

// Append adds ref at the end of the active or inactive list.
func (d *Descendant) Append(ref Ref, active bool) error {
	if active {
		return d.Insert(ref, len(d.Active), true)
	}
	return d.Insert(ref, len(d.Inactive), false)
}

// Insert adds ref at index of the chosen list; the index is clamped.
func (d *Descendant) Insert(ref Ref, index int, active bool) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	if found, _ := d.Contains(ref); found {
		return fmt.Errorf("%w: %s", ErrDuplicateRef, ref)
	}
	if active {
		d.Active = insertAt(d.Active, ref, index)
	} else {
		d.Inactive = insertAt(d.Inactive, ref, index)
	}
	return nil
}

// Remove drops ref from whichever list holds it.
func (d *Descendant) Remove(ref Ref) error {
	if i := indexOf(d.Active, ref); i >= 0 {
		d.Active = removeAt(d.Active, i)
		return nil
	}
	if i := indexOf(d.Inactive, ref); i >= 0 {
		d.Inactive = removeAt(d.Inactive, i)
		return nil
	}
	return fmt.Errorf("%w: %s", ErrRefNotFound, ref)
}

// Deactivate moves an active ref to the head of the inactive list. It is a
// no-op for refs that are already inactive.
func (d *Descendant) Deactivate(ref Ref) error {
	found, active := d.Contains(ref)
	if !found {
		return fmt.Errorf("%w: %s", ErrRefNotFound, ref)
	}
	if !active {
		return nil
	}
	d.Active = removeAt(d.Active, indexOf(d.Active, ref))
	d.Inactive = insertAt(d.Inactive, ref, 0)
	return nil
}

// Activate moves an inactive ref to the end of the active list. It is a
// no-op for refs that are already active.
func (d *Descendant) Activate(ref Ref) error {
	found, active := d.Contains(ref)
	if !found {
		return fmt.Errorf("%w: %s", ErrRefNotFound, ref)
	}
	if active {
		return nil
	}
	d.Inactive = removeAt(d.Inactive, indexOf(d.Inactive, ref))
	d.Active = append(d.Active, ref)
	return nil
}

// Move repositions ref within its own list; the index is clamped.
func (d *Descendant) Move(ref Ref, index int) error {
	if i := indexOf(d.Active, ref); i >= 0 {
		d.Active = insertAt(removeAt(d.Active, i), ref, index)
		return nil
	}
	if i := indexOf(d.Inactive, ref); i >= 0 {
		d.Inactive = insertAt(removeAt(d.Inactive, i), ref, index)
		return nil
	}
	return fmt.Errorf("%w: %s", ErrRefNotFound, ref)
}

func indexOf(refs []Ref, ref Ref) int {
	for i, r := range refs {
		if r == ref {
			return i
		}
	}
	return -1
}

func insertAt(refs []Ref, ref Ref, index int) []Ref {
	if index < 0 {
		index = 0
	}
	if index > len(refs) {
		index = len(refs)
	}
	out := make([]Ref, 0, len(refs)+1)
	out = append(out, refs[:index]...)
	out = append(out, ref)
	return append(out, refs[index:]...)
}

func removeAt(refs []Ref, index int) []Ref {
	out := make([]Ref, 0, len(refs)-1)
	out = append(out, refs[:index]...)
	return append(out, refs[index+1:]...)
}
