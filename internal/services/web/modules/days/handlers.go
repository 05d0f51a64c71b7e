package days

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/doosr/doosr/internal/core/fixedcalendar"
	"github.com/doosr/doosr/internal/services/planner/descendant"
	plannerdomain "github.com/doosr/doosr/internal/services/planner/domain"
	"github.com/doosr/doosr/internal/services/planner/storage"
	"github.com/doosr/doosr/internal/services/web/modules/plannerview"
	"github.com/doosr/doosr/internal/services/web/platform/httpx"
	"github.com/doosr/doosr/internal/services/web/platform/modulehandler"
	"github.com/doosr/doosr/internal/services/web/routepath"
	webtemplates "github.com/doosr/doosr/internal/services/web/templates"
)

type handlers struct {
	modulehandler.Base
	planner Planner
	now     func() time.Time
}

type result struct {
	ID    string            `json:"id,omitempty"`
	State storage.ItemState `json:"state,omitempty"`
	Ref   string            `json:"ref,omitempty"`
	Moved *int              `json:"moved,omitempty"`
}

type dayPayload struct {
	Date      string           `json:"date"`
	FixedDate string           `json:"fixed_date"`
	Tree      plannerview.Tree `json:"tree"`
}

func (h handlers) handleToday(w http.ResponseWriter, r *http.Request) {
	today := h.Today(r, h.now()).Format(plannerdomain.DateLayout)
	httpx.WriteRedirect(w, r, routepath.Day(today))
}

func (h handlers) handleDay(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")
	day, t, err := h.planner.DayTree(r.Context(), h.Viewer(r).UserID, date, plannerdomain.TreeOptions{IncludeInactive: true})
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	view := dayView{Date: day.Date, DescendantID: day.DescendantID, Today: h.Today(r, h.now()).Format(plannerdomain.DateLayout), Tree: t}
	if parsed, err := time.Parse(plannerdomain.DateLayout, day.Date); err == nil {
		view.Parsed = parsed
		view.Fixed = fixedcalendar.FromGregorian(parsed)
	}
	if httpx.WantsJSON(r) {
		h.WriteJSON(w, dayPayload{Date: day.Date, FixedDate: view.Fixed.String(), Tree: plannerview.Encode(t)})
		return
	}
	lists, err := h.planner.ListLists(r.Context(), h.Viewer(r).UserID, true)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	view.Reusable = lists
	h.WritePage(w, r, day.Date, dayPage(view, h.Printer(r)))
}

func (h handlers) handleTree(w http.ResponseWriter, r *http.Request) {
	opts := plannerdomain.TreeOptions{IncludeInactive: true}
	query := r.URL.Query()
	if raw := query.Get("depth"); raw != "" {
		depth, err := strconv.Atoi(raw)
		if err != nil || depth < 0 {
			h.WriteError(w, r, errInvalidParam)
			return
		}
		opts.MaxDepth = depth
	}
	if raw := query.Get("inactive"); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			h.WriteError(w, r, errInvalidParam)
			return
		}
		opts.IncludeInactive = include
	}
	_, t, err := h.planner.DayTree(r.Context(), h.Viewer(r).UserID, r.PathValue("date"), opts)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.WriteJSON(w, plannerview.Encode(t))
}

func (h handlers) handleAddItem(w http.ResponseWriter, r *http.Request) {
	if !h.parse(w, r) {
		return
	}
	position := -1
	if raw := h.FormValue(r, "position"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.WriteError(w, r, errInvalidParam)
			return
		}
		position = parsed
	}
	parentID, ok := h.parent(w, r)
	if !ok {
		return
	}
	item, err := h.planner.AddItem(r.Context(), h.Viewer(r).UserID, parentID, h.FormValue(r, "title"), position)
	h.finish(w, r, result{ID: item.ID, State: item.State}, err)
}

func (h handlers) handleSetState(w http.ResponseWriter, r *http.Request) {
	if !h.parse(w, r) {
		return
	}
	item, err := h.planner.SetItemState(r.Context(), h.Viewer(r).UserID, h.FormValue(r, "parent_id"), h.FormValue(r, "item_id"), storage.ItemState(h.FormValue(r, "state")))
	h.finish(w, r, result{ID: item.ID, State: item.State}, err)
}

func (h handlers) handleRename(w http.ResponseWriter, r *http.Request) {
	if !h.parse(w, r) {
		return
	}
	item, err := h.planner.RenameItem(r.Context(), h.Viewer(r).UserID, h.FormValue(r, "item_id"), h.FormValue(r, "title"))
	h.finish(w, r, result{ID: item.ID, State: item.State}, err)
}

func (h handlers) handleAttachList(w http.ResponseWriter, r *http.Request) {
	if !h.parse(w, r) {
		return
	}
	parentID, ok := h.parent(w, r)
	if !ok {
		return
	}
	listID := h.FormValue(r, "list_id")
	err := h.planner.AttachList(r.Context(), h.Viewer(r).UserID, parentID, listID)
	h.finish(w, r, result{Ref: descendant.Ref{Type: descendant.RefList, ID: listID}.String()}, err)
}

func (h handlers) handleAddChecklist(w http.ResponseWriter, r *http.Request) {
	if !h.parse(w, r) {
		return
	}
	parentID, ok := h.parent(w, r)
	if !ok {
		return
	}
	checklist, err := h.planner.AddChecklist(r.Context(), h.Viewer(r).UserID, parentID, h.FormValue(r, "title"), splitEntries(r.PostFormValue("entries")))
	h.finish(w, r, result{ID: checklist.ID}, err)
}

func (h handlers) handleToggleEntry(w http.ResponseWriter, r *http.Request) {
	if !h.parse(w, r) {
		return
	}
	index, err := strconv.Atoi(h.FormValue(r, "index"))
	if err != nil {
		h.WriteError(w, r, errInvalidParam)
		return
	}
	checklist, err := h.planner.ToggleChecklistEntry(r.Context(), h.Viewer(r).UserID, h.FormValue(r, "checklist_id"), index)
	h.finish(w, r, result{ID: checklist.ID}, err)
}

func (h handlers) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	if !h.parse(w, r) {
		return
	}
	checklist, err := h.planner.AddChecklistEntry(r.Context(), h.Viewer(r).UserID, h.FormValue(r, "checklist_id"), h.FormValue(r, "text"))
	h.finish(w, r, result{ID: checklist.ID}, err)
}

func (h handlers) handleAddNote(w http.ResponseWriter, r *http.Request) {
	if !h.parse(w, r) {
		return
	}
	parentID, ok := h.parent(w, r)
	if !ok {
		return
	}
	note, err := h.planner.AddNote(r.Context(), h.Viewer(r).UserID, parentID, r.PostFormValue("body"))
	h.finish(w, r, result{ID: note.ID}, err)
}

func (h handlers) handleMoveRef(w http.ResponseWriter, r *http.Request) {
	if !h.parse(w, r) {
		return
	}
	ref, err := descendant.ParseRef(h.FormValue(r, "ref"))
	if err != nil {
		h.WriteError(w, r, plannerdomain.ErrInvalidRef)
		return
	}
	index, err := strconv.Atoi(h.FormValue(r, "index"))
	if err != nil {
		h.WriteError(w, r, errInvalidParam)
		return
	}
	err = h.planner.MoveRef(r.Context(), h.Viewer(r).UserID, h.FormValue(r, "parent_id"), ref, index)
	h.finish(w, r, result{Ref: ref.String()}, err)
}

func (h handlers) handleRemoveRef(w http.ResponseWriter, r *http.Request) {
	if !h.parse(w, r) {
		return
	}
	ref, err := descendant.ParseRef(h.FormValue(r, "ref"))
	if err != nil {
		h.WriteError(w, r, plannerdomain.ErrInvalidRef)
		return
	}
	err = h.planner.RemoveRef(r.Context(), h.Viewer(r).UserID, h.FormValue(r, "parent_id"), ref)
	h.finish(w, r, result{Ref: ref.String()}, err)
}

func (h handlers) handleRollover(w http.ResponseWriter, r *http.Request) {
	if !h.parse(w, r) {
		return
	}
	to := r.PathValue("date")
	from := h.FormValue(r, "from")
	if from == "" {
		parsed, err := time.Parse(plannerdomain.DateLayout, to)
		if err != nil {
			h.WriteError(w, r, plannerdomain.ErrInvalidDate)
			return
		}
		from = parsed.AddDate(0, 0, -1).Format(plannerdomain.DateLayout)
	}
	moved, err := h.planner.Rollover(r.Context(), h.Viewer(r).UserID, from, to)
	h.finish(w, r, result{Moved: &moved}, err)
}

func (h handlers) parse(w http.ResponseWriter, r *http.Request) bool {
	if err := h.ParseForm(w, r); err != nil {
		h.WriteError(w, r, err)
		return false
	}
	return true
}

// parent returns the parent_id form value, defaulting to the day's own
// descendant.
func (h handlers) parent(w http.ResponseWriter, r *http.Request) (string, bool) {
	if parentID := h.FormValue(r, "parent_id"); parentID != "" {
		return parentID, true
	}
	day, err := h.planner.Day(r.Context(), h.Viewer(r).UserID, r.PathValue("date"))
	if err != nil {
		h.WriteError(w, r, err)
		return "", false
	}
	return day.DescendantID, true
}

// finish answers a mutation with the result as JSON, or by redirecting to
// return_to or the day page.
func (h handlers) finish(w http.ResponseWriter, r *http.Request, payload result, err error) {
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	if httpx.WantsJSON(r) {
		h.WriteJSON(w, payload)
		return
	}
	h.Redirect(w, r, routepath.SafeNext(h.FormValue(r, "return_to"), routepath.Day(r.PathValue("date"))), "")
}

func splitEntries(raw string) []string {
	var entries []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			entries = append(entries, line)
		}
	}
	return entries
}
