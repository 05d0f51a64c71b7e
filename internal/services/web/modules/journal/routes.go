package journal

import (
	"net/http"

	"github.com/doosr/doosr/internal/services/web/routepath"
)

func registerRoutes(mux *http.ServeMux, h handlers) {
	mux.HandleFunc(http.MethodGet+" "+routepath.JournalPrefix+"{$}", h.handleIndex)
	mux.HandleFunc(http.MethodPost+" "+routepath.JournalCreate, h.handleCreate)
	mux.HandleFunc(http.MethodGet+" "+routepath.JournalPrefix+"{id}", h.handleJournal)
	mux.HandleFunc(http.MethodPost+" "+routepath.JournalPrefix+"{id}/fragments", h.handleAddFragment)
	mux.HandleFunc(http.MethodPost+" "+routepath.JournalPrompts, h.handleCreatePrompt)
	mux.HandleFunc(http.MethodPost+" "+routepath.JournalPrompts+"/{id}/toggle", h.handleTogglePrompt)
	mux.HandleFunc(http.MethodPost+" "+routepath.JournalSetup, h.handleSetup)
	mux.HandleFunc(http.MethodPost+" "+routepath.JournalUnlock, h.handleUnlock)
	mux.HandleFunc(http.MethodPost+" "+routepath.JournalLock, h.handleLock)
	mux.HandleFunc(http.MethodPost+" "+routepath.JournalRotate, h.handleRotate)
}
