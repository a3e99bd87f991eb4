// Package handler exposes the content module over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"shahid/internal/content/models"
	"shahid/internal/content/service"
	id "shahid/pkg/domain"
	"shahid/pkg/platform/httputil"
)

// Service is the content surface the handler depends on.
type Service interface {
	CreatePost(ctx context.Context, in service.CreatePostInput) (*models.Post, error)
	GetPost(ctx context.Context, postID id.PostID) (*models.Post, error)
	ListPosts(ctx context.Context, filter service.ListFilter) ([]*models.Post, error)
	UpdatePost(ctx context.Context, postID id.PostID, title, body string) (*models.Post, error)
	DeletePost(ctx context.Context, postID id.PostID) error
	SetStatus(ctx context.Context, postID id.PostID, status, reason string) (*models.Post, error)

	ToggleLike(ctx context.Context, postID id.PostID) (*service.LikeResult, error)
	ToggleTrust(ctx context.Context, postID id.PostID) (*service.TrustResult, error)
	Confirm(ctx context.Context, postID id.PostID, confirmType string) (*models.Confirmation, error)
	ListConfirmations(ctx context.Context, postID id.PostID) ([]models.Confirmation, error)

	Report(ctx context.Context, postID id.PostID, reason, detail string) (*models.Report, error)
	ListReports(ctx context.Context, status string, limit, offset int) ([]*models.Report, error)
	HandleReport(ctx context.Context, reportID id.ReportID, resolve bool) (*models.Report, error)

	CreateComment(ctx context.Context, postID id.PostID, body, attachment string) (*models.Comment, error)
	ListComments(ctx context.Context, postID id.PostID, limit, offset int) ([]*models.Comment, error)
	UpdateComment(ctx context.Context, commentID id.CommentID, body string) (*models.Comment, error)
	DeleteComment(ctx context.Context, commentID id.CommentID) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic mounts read-only endpoints available without a token.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/posts", h.HandleListPosts)
	r.Get("/posts/{postID}", h.HandleGetPost)
	r.Get("/posts/{postID}/comments", h.HandleListComments)
	r.Get("/posts/{postID}/confirmations", h.HandleListConfirmations)
}

// RegisterProtected mounts endpoints behind RequireAuth.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Post("/posts", h.HandleCreatePost)
	r.Put("/posts/{postID}", h.HandleUpdatePost)
	r.Delete("/posts/{postID}", h.HandleDeletePost)
	r.Post("/posts/{postID}/like", h.HandleToggleLike)
	r.Post("/posts/{postID}/trust", h.HandleToggleTrust)
	r.Post("/posts/{postID}/confirm", h.HandleConfirm)
	r.Post("/posts/{postID}/report", h.HandleReport)
	r.Post("/posts/{postID}/comments", h.HandleCreateComment)
	r.Put("/comments/{commentID}", h.HandleUpdateComment)
	r.Delete("/comments/{commentID}", h.HandleDeleteComment)
}

// RegisterAdmin mounts moderation endpoints behind RequireAdmin.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Put("/posts/{postID}/status", h.HandleSetStatus)
	r.Get("/reports", h.HandleListReports)
	r.Post("/reports/{reportID}/resolve", h.HandleResolveReport)
	r.Post("/reports/{reportID}/dismiss", h.HandleDismissReport)
}

type createPostRequest struct {
	Title      string   `json:"title"`
	Body       string   `json:"body"`
	EventID    string   `json:"event_id"`
	PeopleIDs  []string `json:"people_ids"`
	Attachment string   `json:"attachment"`
}

type updatePostRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type setStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type confirmRequest struct {
	Type string `json:"type"`
}

type reportRequest struct {
	Reason string `json:"reason"`
	Detail string `json:"detail"`
}

type commentRequest struct {
	Body       string `json:"body"`
	Attachment string `json:"attachment"`
}

func (h *Handler) HandleCreatePost(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[createPostRequest](w, r)
	if !ok {
		return
	}

	in := service.CreatePostInput{Title: req.Title, Body: req.Body, Attachment: req.Attachment}
	if req.EventID != "" {
		eventID, err := id.ParseEventID(req.EventID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		in.EventID = &eventID
	}
	for _, raw := range req.PeopleIDs {
		personID, err := id.ParsePersonID(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		in.PeopleIDs = append(in.PeopleIDs, personID)
	}

	post, err := h.service.CreatePost(r.Context(), in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, post)
}

func (h *Handler) HandleUpdatePost(w http.ResponseWriter, r *http.Request) {
	postID, ok := h.pathPostID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.Decode[updatePostRequest](w, r)
	if !ok {
		return
	}
	post, err := h.service.UpdatePost(r.Context(), postID, req.Title, req.Body)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, post)
}

func (h *Handler) HandleGetPost(w http.ResponseWriter, r *http.Request) {
	postID, ok := h.pathPostID(w, r)
	if !ok {
		return
	}
	post, err := h.service.GetPost(r.Context(), postID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, post)
}

func (h *Handler) HandleListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	filter := service.ListFilter{
		Status: q.Get("status"),
		Limit:  limit,
		Offset: offset,
	}
	if author := q.Get("author_id"); author != "" {
		authorID, err := id.ParseUserID(author)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.AuthorID = authorID
	}

	posts, err := h.service.ListPosts(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, posts)
}

func (h *Handler) HandleDeletePost(w http.ResponseWriter, r *http.Request) {
	postID, ok := h.pathPostID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeletePost(r.Context(), postID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleSetStatus(w http.ResponseWriter, r *http.Request) {
	postID, ok := h.pathPostID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.Decode[setStatusRequest](w, r)
	if !ok {
		return
	}
	post, err := h.service.SetStatus(r.Context(), postID, req.Status, req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, post)
}

func (h *Handler) HandleToggleLike(w http.ResponseWriter, r *http.Request) {
	postID, ok := h.pathPostID(w, r)
	if !ok {
		return
	}
	result, err := h.service.ToggleLike(r.Context(), postID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) HandleToggleTrust(w http.ResponseWriter, r *http.Request) {
	postID, ok := h.pathPostID(w, r)
	if !ok {
		return
	}
	result, err := h.service.ToggleTrust(r.Context(), postID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	postID, ok := h.pathPostID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.Decode[confirmRequest](w, r)
	if !ok {
		return
	}
	confirmation, err := h.service.Confirm(r.Context(), postID, req.Type)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, confirmation)
}

func (h *Handler) HandleListConfirmations(w http.ResponseWriter, r *http.Request) {
	postID, ok := h.pathPostID(w, r)
	if !ok {
		return
	}
	confirmations, err := h.service.ListConfirmations(r.Context(), postID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, confirmations)
}

func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	postID, ok := h.pathPostID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.Decode[reportRequest](w, r)
	if !ok {
		return
	}
	report, err := h.service.Report(r.Context(), postID, req.Reason, req.Detail)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, report)
}

func (h *Handler) HandleListReports(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	reports, err := h.service.ListReports(r.Context(), q.Get("status"), limit, offset)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reports)
}

func (h *Handler) HandleResolveReport(w http.ResponseWriter, r *http.Request) {
	h.handleReport(w, r, true)
}

func (h *Handler) HandleDismissReport(w http.ResponseWriter, r *http.Request) {
	h.handleReport(w, r, false)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request, resolve bool) {
	reportID, err := id.ParseReportID(chi.URLParam(r, "reportID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	report, err := h.service.HandleReport(r.Context(), reportID, resolve)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) HandleCreateComment(w http.ResponseWriter, r *http.Request) {
	postID, ok := h.pathPostID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.Decode[commentRequest](w, r)
	if !ok {
		return
	}
	comment, err := h.service.CreateComment(r.Context(), postID, req.Body, req.Attachment)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, comment)
}

func (h *Handler) HandleListComments(w http.ResponseWriter, r *http.Request) {
	postID, ok := h.pathPostID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	comments, err := h.service.ListComments(r.Context(), postID, limit, offset)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, comments)
}

func (h *Handler) HandleUpdateComment(w http.ResponseWriter, r *http.Request) {
	commentID, err := id.ParseCommentID(chi.URLParam(r, "commentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.Decode[commentRequest](w, r)
	if !ok {
		return
	}
	comment, err := h.service.UpdateComment(r.Context(), commentID, req.Body)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, comment)
}

func (h *Handler) HandleDeleteComment(w http.ResponseWriter, r *http.Request) {
	commentID, err := id.ParseCommentID(chi.URLParam(r, "commentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.DeleteComment(r.Context(), commentID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) pathPostID(w http.ResponseWriter, r *http.Request) (id.PostID, bool) {
	postID, err := id.ParsePostID(chi.URLParam(r, "postID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.PostID{}, false
	}
	return postID, true
}
