package handler

import (
	"net/http"
	"strconv"

	"github.com/orchardhq/orchard/internal/api/response"
	"github.com/orchardhq/orchard/internal/core"
)

// Search serves cross-resource lookups over tenants, instances and
// backups.
type Search struct {
	svc *core.SearchService
}

func NewSearch(svc *core.SearchService) *Search {
	return &Search{svc: svc}
}

type searchResponse struct {
	Results []core.SearchResult `json:"results"`
}

const maxSearchLimit = 20

// Search handles GET /search?q=...&limit=... An empty query short-circuits
// to an empty result set rather than matching everything.
func (h *Search) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		response.WriteJSON(w, http.StatusOK, searchResponse{Results: []core.SearchResult{}})
		return
	}

	limit := 5
	if parsed, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && parsed > 0 && parsed <= maxSearchLimit {
		limit = parsed
	}

	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if results == nil {
		results = []core.SearchResult{}
	}

	response.WriteJSON(w, http.StatusOK, searchResponse{Results: results})
}
