package lists

import (
	"net/http"

	"github.com/doosr/doosr/internal/services/web/routepath"
)

func registerRoutes(mux *http.ServeMux, h handlers) {
	mux.HandleFunc(http.MethodGet+" "+routepath.ListsPrefix+"{$}", h.handleIndex)
	mux.HandleFunc(http.MethodPost+" "+routepath.ListsPrefix+"{$}", h.handleCreate)
	mux.HandleFunc(http.MethodGet+" "+routepath.ListsPrefix+"{id}", h.handleList)
	mux.HandleFunc(http.MethodPost+" "+routepath.ListsPrefix+"{id}/items", h.handleAddItem)
}
