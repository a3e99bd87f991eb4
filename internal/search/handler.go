package search

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	dErrors "shahid/pkg/domain-errors"
	"shahid/pkg/platform/httputil"
)

// Handler exposes search over HTTP.
type Handler struct {
	index *Index
}

func NewHandler(index *Index) *Handler {
	return &Handler{index: index}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/posts/search", h.HandleSearch)
}

func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "query parameter q is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	results, err := h.index.Search(r.Context(), query, limit)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "search failed"))
		return
	}
	if results == nil {
		results = []Result{}
	}
	httputil.WriteJSON(w, http.StatusOK, results)
}
