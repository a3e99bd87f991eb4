// Package handler exposes the verification workflow over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"shahid/internal/verification/models"
	id "shahid/pkg/domain"
	"shahid/pkg/platform/httputil"
)

// Service is the verification surface the handler depends on.
type Service interface {
	Submit(ctx context.Context, requestedRole, note string) (*models.Request, error)
	MyRequests(ctx context.Context) ([]*models.Request, error)
	GetRequest(ctx context.Context, requestID id.RequestID) (*models.Request, error)
	ListRequests(ctx context.Context, status string, limit, offset int) ([]*models.Request, error)
	StartReview(ctx context.Context, requestID id.RequestID) (*models.Request, error)
	Decide(ctx context.Context, requestID id.RequestID, approve bool, note string) (*models.Request, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterProtected mounts the applicant-facing endpoints behind RequireAuth.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Post("/verification/requests", h.HandleSubmit)
	r.Get("/verification/requests/mine", h.HandleMyRequests)
	r.Get("/verification/requests/{requestID}", h.HandleGetRequest)
}

// RegisterAdmin mounts the review queue behind RequireAdmin.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/verifications", h.HandleListRequests)
	r.Post("/verifications/{requestID}/review", h.HandleStartReview)
	r.Post("/verifications/{requestID}/approve", h.HandleApprove)
	r.Post("/verifications/{requestID}/reject", h.HandleReject)
}

type submitRequest struct {
	RequestedRole string `json:"requested_role"`
	Note          string `json:"note"`
}

type decisionRequest struct {
	Note string `json:"note"`
}

func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[submitRequest](w, r)
	if !ok {
		return
	}
	request, err := h.service.Submit(r.Context(), req.RequestedRole, req.Note)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, request)
}

func (h *Handler) HandleMyRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.service.MyRequests(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, requests)
}

func (h *Handler) HandleGetRequest(w http.ResponseWriter, r *http.Request) {
	requestID, ok := h.pathRequestID(w, r)
	if !ok {
		return
	}
	request, err := h.service.GetRequest(r.Context(), requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, request)
}

func (h *Handler) HandleListRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	requests, err := h.service.ListRequests(r.Context(), q.Get("status"), limit, offset)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, requests)
}

func (h *Handler) HandleStartReview(w http.ResponseWriter, r *http.Request) {
	requestID, ok := h.pathRequestID(w, r)
	if !ok {
		return
	}
	request, err := h.service.StartReview(r.Context(), requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, request)
}

func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, true)
}

func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, false)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, approve bool) {
	requestID, ok := h.pathRequestID(w, r)
	if !ok {
		return
	}
	// The decision note is optional, so an empty body is accepted.
	var req decisionRequest
	if r.ContentLength != 0 {
		if req, ok = httputil.Decode[decisionRequest](w, r); !ok {
			return
		}
	}
	request, err := h.service.Decide(r.Context(), requestID, approve, req.Note)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, request)
}

func (h *Handler) pathRequestID(w http.ResponseWriter, r *http.Request) (id.RequestID, bool) {
	requestID, err := id.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.RequestID{}, false
	}
	return requestID, true
}
