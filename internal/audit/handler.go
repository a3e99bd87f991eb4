package audit

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	id "shahid/pkg/domain"
	"shahid/pkg/platform/httputil"
)

const defaultListLimit = 100

// Handler exposes the audit trail to administrators.
type Handler struct {
	store  Store
	logger *slog.Logger
}

func NewHandler(store Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// RegisterAdmin mounts the audit endpoints behind RequireAdmin.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/audit", h.HandleListRecent)
	r.Get("/audit/actors/{userID}", h.HandleListByActor)
}

func (h *Handler) HandleListRecent(w http.ResponseWriter, r *http.Request) {
	events, err := h.store.ListRecent(r.Context(), limitParam(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, events)
}

func (h *Handler) HandleListByActor(w http.ResponseWriter, r *http.Request) {
	actorID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	events, err := h.store.ListByActor(r.Context(), actorID, limitParam(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, events)
}

func limitParam(r *http.Request) int {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 1000 {
		return defaultListLimit
	}
	return limit
}
