package days

import "net/http"

func registerRoutes(mux *http.ServeMux, h handlers) {
	mux.HandleFunc("GET /days/{$}", h.handleToday)
	mux.HandleFunc("GET /days/{date}", h.handleDay)
	mux.HandleFunc("GET /days/{date}/tree", h.handleTree)
	mux.HandleFunc("POST /days/{date}/items", h.handleAddItem)
	mux.HandleFunc("POST /days/{date}/state", h.handleSetState)
	mux.HandleFunc("POST /days/{date}/rename", h.handleRename)
	mux.HandleFunc("POST /days/{date}/lists", h.handleAttachList)
	mux.HandleFunc("POST /days/{date}/checklists", h.handleAddChecklist)
	mux.HandleFunc("POST /days/{date}/checklists/toggle", h.handleToggleEntry)
	mux.HandleFunc("POST /days/{date}/checklists/entries", h.handleAddEntry)
	mux.HandleFunc("POST /days/{date}/notes", h.handleAddNote)
	mux.HandleFunc("POST /days/{date}/refs/move", h.handleMoveRef)
	mux.HandleFunc("POST /days/{date}/refs/remove", h.handleRemoveRef)
	mux.HandleFunc("POST /days/{date}/rollover", h.handleRollover)
}
