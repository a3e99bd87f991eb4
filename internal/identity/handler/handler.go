// Package handler exposes the identity module over HTTP.
package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"shahid/internal/identity/models"
	"shahid/internal/identity/service"
	id "shahid/pkg/domain"
	dErrors "shahid/pkg/domain-errors"
	"shahid/pkg/platform/httputil"
	"shahid/pkg/requestcontext"
)

// Service is the identity surface the handler depends on.
type Service interface {
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	Authenticate(ctx context.Context, username, password string) (*service.AuthResult, error)
	Logout(ctx context.Context, jti string) error
	GetUser(ctx context.Context, userID id.UserID) (*models.User, error)
	ChangePassword(ctx context.Context, userID id.UserID, current, next string) error
	UpdateProfile(ctx context.Context, userID id.UserID, bio string) (*models.User, error)
	UploadDocument(ctx context.Context, userID id.UserID, filename string, content io.Reader, intendedRole string) (*models.User, error)

	ListUsers(ctx context.Context, filter service.UserFilter) ([]*models.User, error)
	ChangeRole(ctx context.Context, userID id.UserID, newRole string) (*models.User, error)
	Ban(ctx context.Context, userID id.UserID, reason string) (*models.User, error)
	Unban(ctx context.Context, userID id.UserID) (*models.User, error)
	DeleteUser(ctx context.Context, userID id.UserID) error
	ConfirmIdentity(ctx context.Context, userID id.UserID) (*models.User, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic mounts the unauthenticated auth endpoints.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/auth/register", h.HandleRegister)
	r.Post("/auth/login", h.HandleLogin)
}

// RegisterProtected mounts self-service endpoints behind RequireAuth.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Post("/auth/logout", h.HandleLogout)
	r.Get("/users/me", h.HandleMe)
	r.Put("/users/me", h.HandleUpdateProfile)
	r.Put("/users/me/password", h.HandleChangePassword)
	r.Post("/me/uid-document", h.HandleUploadDocument)
}

// RegisterAdmin mounts user administration behind RequireAdmin.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/users", h.HandleListUsers)
	r.Get("/users/{userID}", h.HandleGetUser)
	r.Put("/users/{userID}/role", h.HandleChangeRole)
	r.Post("/users/{userID}/ban", h.HandleBan)
	r.Post("/users/{userID}/unban", h.HandleUnban)
	r.Post("/users/{userID}/confirm-identity", h.HandleConfirmIdentity)
	r.Delete("/users/{userID}", h.HandleDeleteUser)
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[registerRequest](w, r)
	if !ok {
		return
	}

	user, err := h.service.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, fromUser(user))
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[loginRequest](w, r)
	if !ok {
		return
	}

	result, err := h.service.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, loginResponse{
		Token: result.Token,
		User:  fromUser(result.User),
	})
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.service.Logout(ctx, requestcontext.TokenID(ctx)); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := h.service.GetUser(ctx, requestcontext.UserID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromUser(user))
}

func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[changePasswordRequest](w, r)
	if !ok {
		return
	}

	if err := h.service.ChangePassword(ctx, requestcontext.UserID(ctx), req.CurrentPassword, req.NewPassword); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[updateProfileRequest](w, r)
	if !ok {
		return
	}

	user, err := h.service.UpdateProfile(ctx, requestcontext.UserID(ctx), req.Bio)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromUser(user))
}

// HandleUploadDocument accepts a multipart form with a "document" file and an
// optional "intended_role" field.
func (h *Handler) HandleUploadDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(12 << 20); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed multipart form"))
		return
	}
	file, header, err := r.FormFile("document")
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "document file is required"))
		return
	}
	defer file.Close()

	user, err := h.service.UploadDocument(ctx, requestcontext.UserID(ctx),
		header.Filename, file, r.FormValue("intended_role"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromUser(user))
}

func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	filter := service.UserFilter{
		Role:   q.Get("role"),
		Limit:  limit,
		Offset: offset,
	}
	if raw := q.Get("banned"); raw != "" {
		banned, err := strconv.ParseBool(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "banned must be true or false"))
			return
		}
		filter.Banned = &banned
	}

	users, err := h.service.ListUsers(ctx, filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromUsers(users))
}

func (h *Handler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.pathUserID(w, r)
	if !ok {
		return
	}
	user, err := h.service.GetUser(ctx, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromUser(user))
}

func (h *Handler) HandleChangeRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.pathUserID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.Decode[changeRoleRequest](w, r)
	if !ok {
		return
	}

	user, err := h.service.ChangeRole(ctx, userID, req.Role)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromUser(user))
}

func (h *Handler) HandleBan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.pathUserID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.Decode[banRequest](w, r)
	if !ok {
		return
	}

	user, err := h.service.Ban(ctx, userID, req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromUser(user))
}

func (h *Handler) HandleUnban(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.pathUserID(w, r)
	if !ok {
		return
	}
	user, err := h.service.Unban(ctx, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromUser(user))
}

func (h *Handler) HandleConfirmIdentity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.pathUserID(w, r)
	if !ok {
		return
	}
	user, err := h.service.ConfirmIdentity(ctx, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromUser(user))
}

func (h *Handler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.pathUserID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteUser(ctx, userID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) pathUserID(w http.ResponseWriter, r *http.Request) (id.UserID, bool) {
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.UserID{}, false
	}
	return userID, true
}
