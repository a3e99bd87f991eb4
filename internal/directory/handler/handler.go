// Package handler exposes the directory module over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"shahid/internal/directory/models"
	id "shahid/pkg/domain"
	dErrors "shahid/pkg/domain-errors"
	"shahid/pkg/platform/httputil"
)

// Service is the directory surface the handler depends on.
type Service interface {
	CreatePerson(ctx context.Context, name, role, image string) (*models.Person, error)
	GetPerson(ctx context.Context, personID id.PersonID) (*models.Person, error)
	ListPeople(ctx context.Context, status, role string, limit, offset int) ([]*models.Person, error)
	ApprovePerson(ctx context.Context, personID id.PersonID) (*models.Person, error)
	ChangePersonRole(ctx context.Context, personID id.PersonID, role string) (*models.Person, error)
	DeletePerson(ctx context.Context, personID id.PersonID) error

	CreateEvent(ctx context.Context, title, description string, date time.Time) (*models.Event, error)
	GetEvent(ctx context.Context, eventID id.EventID) (*models.Event, error)
	ListEvents(ctx context.Context, status string, limit, offset int) ([]*models.Event, error)
	ApproveEvent(ctx context.Context, eventID id.EventID) (*models.Event, error)
	AssignJournalist(ctx context.Context, eventID id.EventID, userID id.UserID) (*models.Event, error)
	AddParticipant(ctx context.Context, eventID id.EventID, personID id.PersonID) (*models.Event, error)
	DeleteEvent(ctx context.Context, eventID id.EventID) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic mounts the read-only directory.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/people", h.HandleListPeople)
	r.Get("/people/{personID}", h.HandleGetPerson)
	r.Get("/events", h.HandleListEvents)
	r.Get("/events/{eventID}", h.HandleGetEvent)
}

// RegisterProtected mounts submission endpoints behind RequireAuth.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Post("/people", h.HandleCreatePerson)
	r.Post("/events", h.HandleCreateEvent)
}

// RegisterAdmin mounts moderation endpoints behind RequireAdmin.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/people/{personID}/approve", h.HandleApprovePerson)
	r.Put("/people/{personID}/role", h.HandleChangePersonRole)
	r.Delete("/people/{personID}", h.HandleDeletePerson)
	r.Post("/events/{eventID}/approve", h.HandleApproveEvent)
	r.Post("/events/{eventID}/journalists", h.HandleAssignJournalist)
	r.Post("/events/{eventID}/participants", h.HandleAddParticipant)
	r.Delete("/events/{eventID}", h.HandleDeleteEvent)
}

type createPersonRequest struct {
	Name  string `json:"name"`
	Role  string `json:"role"`
	Image string `json:"image"`
}

type changePersonRoleRequest struct {
	Role string `json:"role"`
}

type createEventRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

type assignJournalistRequest struct {
	UserID string `json:"user_id"`
}

type addParticipantRequest struct {
	PersonID string `json:"person_id"`
}

func (h *Handler) HandleCreatePerson(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[createPersonRequest](w, r)
	if !ok {
		return
	}
	p, err := h.service.CreatePerson(r.Context(), req.Name, req.Role, req.Image)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) HandleGetPerson(w http.ResponseWriter, r *http.Request) {
	personID, ok := h.pathPersonID(w, r)
	if !ok {
		return
	}
	p, err := h.service.GetPerson(r.Context(), personID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) HandleListPeople(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	people, err := h.service.ListPeople(r.Context(), q.Get("status"), q.Get("role"), limit, offset)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, people)
}

func (h *Handler) HandleApprovePerson(w http.ResponseWriter, r *http.Request) {
	personID, ok := h.pathPersonID(w, r)
	if !ok {
		return
	}
	p, err := h.service.ApprovePerson(r.Context(), personID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) HandleChangePersonRole(w http.ResponseWriter, r *http.Request) {
	personID, ok := h.pathPersonID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.Decode[changePersonRoleRequest](w, r)
	if !ok {
		return
	}
	p, err := h.service.ChangePersonRole(r.Context(), personID, req.Role)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) HandleDeletePerson(w http.ResponseWriter, r *http.Request) {
	personID, ok := h.pathPersonID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeletePerson(r.Context(), personID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleCreateEvent(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[createEventRequest](w, r)
	if !ok {
		return
	}
	date, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		if date, err = time.Parse("2006-01-02", req.Date); err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "date must be RFC 3339 or YYYY-MM-DD"))
			return
		}
	}

	e, err := h.service.CreateEvent(r.Context(), req.Title, req.Description, date)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, e)
}

func (h *Handler) HandleGetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := h.pathEventID(w, r)
	if !ok {
		return
	}
	e, err := h.service.GetEvent(r.Context(), eventID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	events, err := h.service.ListEvents(r.Context(), q.Get("status"), limit, offset)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, events)
}

func (h *Handler) HandleApproveEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := h.pathEventID(w, r)
	if !ok {
		return
	}
	e, err := h.service.ApproveEvent(r.Context(), eventID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) HandleAssignJournalist(w http.ResponseWriter, r *http.Request) {
	eventID, ok := h.pathEventID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.Decode[assignJournalistRequest](w, r)
	if !ok {
		return
	}
	userID, err := id.ParseUserID(req.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	e, err := h.service.AssignJournalist(r.Context(), eventID, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) HandleAddParticipant(w http.ResponseWriter, r *http.Request) {
	eventID, ok := h.pathEventID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.Decode[addParticipantRequest](w, r)
	if !ok {
		return
	}
	personID, err := id.ParsePersonID(req.PersonID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	e, err := h.service.AddParticipant(r.Context(), eventID, personID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) HandleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := h.pathEventID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteEvent(r.Context(), eventID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) pathPersonID(w http.ResponseWriter, r *http.Request) (id.PersonID, bool) {
	personID, err := id.ParsePersonID(chi.URLParam(r, "personID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.PersonID{}, false
	}
	return personID, true
}

func (h *Handler) pathEventID(w http.ResponseWriter, r *http.Request) (id.EventID, bool) {
	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.EventID{}, false
	}
	return eventID, true
}
