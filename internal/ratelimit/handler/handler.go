// Package handler exposes the admin surface of the rate limit module: IP
// bans and limit resets.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"shahid/internal/ratelimit/models"
	dErrors "shahid/pkg/domain-errors"
	"shahid/pkg/platform/httputil"
)

// Service is the admin surface the handler depends on.
type Service interface {
	BanIP(ctx context.Context, ip, reason string) (*models.IPBan, error)
	UnbanIP(ctx context.Context, ip string) error
	ListBans(ctx context.Context) ([]*models.IPBan, error)
	ResetLimits(ctx context.Context, ip, userID string) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterAdmin mounts the endpoints behind RequireAdmin.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/ipbans", h.HandleListBans)
	r.Post("/ipbans", h.HandleBan)
	r.Delete("/ipbans/{ip}", h.HandleUnban)
	r.Post("/ratelimits/reset", h.HandleReset)
}

type banRequest struct {
	IP     string `json:"ip"`
	Reason string `json:"reason"`
}

type resetRequest struct {
	IP     string `json:"ip"`
	UserID string `json:"user_id"`
}

func (h *Handler) HandleListBans(w http.ResponseWriter, r *http.Request) {
	bans, err := h.service.ListBans(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, bans)
}

func (h *Handler) HandleBan(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[banRequest](w, r)
	if !ok {
		return
	}
	ban, err := h.service.BanIP(r.Context(), req.IP, req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, ban)
}

func (h *Handler) HandleUnban(w http.ResponseWriter, r *http.Request) {
	// IPv6 addresses arrive URL-encoded in the path.
	ip, err := url.PathUnescape(chi.URLParam(r, "ip"))
	if err != nil || ip == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid ip address"))
		return
	}
	if err := h.service.UnbanIP(r.Context(), ip); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[resetRequest](w, r)
	if !ok {
		return
	}
	if req.IP == "" && req.UserID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "ip or user_id is required"))
		return
	}
	if err := h.service.ResetLimits(r.Context(), req.IP, req.UserID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusNoContent, nil)
}
