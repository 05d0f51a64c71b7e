package lists

import (
	"net/http"
	"strconv"
	"time"

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

type listSummary struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Reusable     bool   `json:"reusable"`
	DescendantID string `json:"descendant_id"`
}

type listPayload struct {
	List listSummary      `json:"list"`
	Tree plannerview.Tree `json:"tree"`
}

func summarize(list storage.ListRecord) listSummary {
	return listSummary{ID: list.ID, Title: list.Title, Reusable: list.Reusable, DescendantID: list.DescendantID}
}

func (h handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	lists, err := h.planner.ListLists(r.Context(), h.Viewer(r).UserID, false)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	if httpx.WantsJSON(r) {
		out := make([]listSummary, 0, len(lists))
		for _, list := range lists {
			out = append(out, summarize(list))
		}
		h.WriteJSON(w, out)
		return
	}
	loc := h.Printer(r)
	h.WritePage(w, r, webtemplates.T(loc, "web.lists.title"), indexPage(lists, loc))
}

func (h handlers) handleCreate(w http.ResponseWriter, r *http.Request) {
	if err := h.ParseForm(w, r); err != nil {
		h.WriteError(w, r, err)
		return
	}
	reusable, _ := strconv.ParseBool(h.FormValue(r, "reusable"))
	list, err := h.planner.CreateList(r.Context(), h.Viewer(r).UserID, h.FormValue(r, "title"), reusable)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	if httpx.WantsJSON(r) {
		h.WriteJSON(w, summarize(list))
		return
	}
	h.Redirect(w, r, routepath.List(list.ID), "web.lists.created")
}

func (h handlers) handleList(w http.ResponseWriter, r *http.Request) {
	list, t, err := h.planner.ListTree(r.Context(), h.Viewer(r).UserID, r.PathValue("id"))
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	if httpx.WantsJSON(r) {
		h.WriteJSON(w, listPayload{List: summarize(list), Tree: plannerview.Encode(t)})
		return
	}
	today := h.Today(r, h.now()).Format(plannerdomain.DateLayout)
	h.WritePage(w, r, list.Title, listPage(list, t, today, h.Printer(r)))
}

func (h handlers) handleAddItem(w http.ResponseWriter, r *http.Request) {
	if err := h.ParseForm(w, r); err != nil {
		h.WriteError(w, r, err)
		return
	}
	userID := h.Viewer(r).UserID
	parentID := h.FormValue(r, "parent_id")
	if parentID == "" {
		list, _, err := h.planner.ListTree(r.Context(), userID, r.PathValue("id"))
		if err != nil {
			h.WriteError(w, r, err)
			return
		}
		parentID = list.DescendantID
	}
	item, err := h.planner.AddItem(r.Context(), userID, parentID, h.FormValue(r, "title"), -1)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	if httpx.WantsJSON(r) {
		h.WriteJSON(w, map[string]string{"id": item.ID, "state": string(item.State)})
		return
	}
	h.Redirect(w, r, routepath.List(r.PathValue("id")), "")
}
