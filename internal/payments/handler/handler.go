// Package handler exposes the payments module over HTTP: methods, charges,
// subscriptions, and the gateway webhook endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"shahid/internal/payments/models"
	"shahid/internal/payments/service"
	id "shahid/pkg/domain"
	dErrors "shahid/pkg/domain-errors"
	"shahid/pkg/platform/httputil"
)

var validate = validator.New()

// Service is the payments surface the handler depends on.
type Service interface {
	AddMethod(ctx context.Context, in service.AddMethodInput) (*models.PaymentMethod, error)
	ListMethods(ctx context.Context) ([]*models.PaymentMethod, error)
	SetDefaultMethod(ctx context.Context, methodID id.MethodID) (*models.PaymentMethod, error)
	RemoveMethod(ctx context.Context, methodID id.MethodID) error
	Charge(ctx context.Context, in service.ChargeInput) (*models.Transaction, error)
	GetTransaction(ctx context.Context, txID id.TransactionID) (*models.Transaction, error)
	ListTransactions(ctx context.Context, limit, offset int) ([]*models.Transaction, error)
	Refund(ctx context.Context, txID id.TransactionID) (*models.Transaction, error)
	Subscribe(ctx context.Context, plan string, methodID *id.MethodID) (*models.Subscription, error)
	MySubscription(ctx context.Context) (*models.Subscription, error)
	CancelSubscription(ctx context.Context) (*models.Subscription, error)
	HandleWebhook(ctx context.Context, gatewayName string, event service.WebhookEvent) error
}

// WebhookSecrets maps gateway name to its shared webhook signing secret.
type WebhookSecrets map[string]string

type Handler struct {
	service Service
	secrets WebhookSecrets
	logger  *slog.Logger
}

func New(service Service, secrets WebhookSecrets, logger *slog.Logger) *Handler {
	return &Handler{service: service, secrets: secrets, logger: logger}
}

// RegisterProtected mounts the user-facing endpoints behind RequireAuth.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Get("/payments/methods", h.HandleListMethods)
	r.Post("/payments/methods", h.HandleAddMethod)
	r.Post("/payments/methods/{methodID}/default", h.HandleSetDefault)
	r.Delete("/payments/methods/{methodID}", h.HandleRemoveMethod)

	r.Post("/payments/charge", h.HandleCharge)
	r.Get("/payments/transactions", h.HandleListTransactions)
	r.Get("/payments/transactions/{transactionID}", h.HandleGetTransaction)
	r.Post("/payments/transactions/{transactionID}/refund", h.HandleRefund)

	r.Get("/payments/subscription", h.HandleMySubscription)
	r.Post("/payments/subscriptions", h.HandleSubscribe)
	r.Delete("/payments/subscription", h.HandleCancelSubscription)
}

// RegisterPublic mounts the webhook endpoints. Unauthenticated; each request
// is verified against the gateway's signing secret instead.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/payments/webhooks/{gateway}", h.HandleWebhook)
}

type addMethodRequest struct {
	Type        string `json:"type" validate:"required"`
	Token       string `json:"token" validate:"required"`
	Gateway     string `json:"gateway"`
	MakeDefault bool   `json:"make_default"`
}

type chargeRequest struct {
	MethodID    string `json:"method_id"`
	Type        string `json:"type" validate:"required"`
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Currency    string `json:"currency" validate:"required,len=3,uppercase"`
	Description string `json:"description" validate:"max=500"`
}

type subscribeRequest struct {
	Plan     string `json:"plan" validate:"required"`
	MethodID string `json:"method_id"`
}

func (h *Handler) HandleListMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := h.service.ListMethods(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, methods)
}

func (h *Handler) HandleAddMethod(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[addMethodRequest](w, r)
	if !ok {
		return
	}
	if err := validate.Struct(req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "type and token are required"))
		return
	}

	method, err := h.service.AddMethod(r.Context(), service.AddMethodInput{
		Type:        req.Type,
		Token:       req.Token,
		Gateway:     req.Gateway,
		MakeDefault: req.MakeDefault,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, method)
}

func (h *Handler) HandleSetDefault(w http.ResponseWriter, r *http.Request) {
	methodID, ok := h.pathMethodID(w, r)
	if !ok {
		return
	}
	method, err := h.service.SetDefaultMethod(r.Context(), methodID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, method)
}

func (h *Handler) HandleRemoveMethod(w http.ResponseWriter, r *http.Request) {
	methodID, ok := h.pathMethodID(w, r)
	if !ok {
		return
	}
	if err := h.service.RemoveMethod(r.Context(), methodID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) HandleCharge(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[chargeRequest](w, r)
	if !ok {
		return
	}
	if err := validate.Struct(req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "amount must be positive and currency a three-letter uppercase code"))
		return
	}

	in := service.ChargeInput{
		Type:        req.Type,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
	}
	if req.MethodID != "" {
		methodID, err := id.ParseMethodID(req.MethodID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		in.MethodID = &methodID
	}

	tx, err := h.service.Charge(r.Context(), in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, tx)
}

func (h *Handler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	txs, err := h.service.ListTransactions(r.Context(), limit, offset)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, txs)
}

func (h *Handler) HandleGetTransaction(w http.ResponseWriter, r *http.Request) {
	txID, ok := h.pathTransactionID(w, r)
	if !ok {
		return
	}
	tx, err := h.service.GetTransaction(r.Context(), txID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tx)
}

func (h *Handler) HandleRefund(w http.ResponseWriter, r *http.Request) {
	txID, ok := h.pathTransactionID(w, r)
	if !ok {
		return
	}
	refund, err := h.service.Refund(r.Context(), txID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, refund)
}

func (h *Handler) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[subscribeRequest](w, r)
	if !ok {
		return
	}
	if err := validate.Struct(req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "plan is required"))
		return
	}

	var methodID *id.MethodID
	if req.MethodID != "" {
		parsed, err := id.ParseMethodID(req.MethodID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		methodID = &parsed
	}

	sub, err := h.service.Subscribe(r.Context(), req.Plan, methodID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, sub)
}

func (h *Handler) HandleMySubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := h.service.MySubscription(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sub)
}

func (h *Handler) HandleCancelSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := h.service.CancelSubscription(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sub)
}

func (h *Handler) pathMethodID(w http.ResponseWriter, r *http.Request) (id.MethodID, bool) {
	methodID, err := id.ParseMethodID(chi.URLParam(r, "methodID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.MethodID{}, false
	}
	return methodID, true
}

func (h *Handler) pathTransactionID(w http.ResponseWriter, r *http.Request) (id.TransactionID, bool) {
	txID, err := id.ParseTransactionID(chi.URLParam(r, "transactionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.TransactionID{}, false
	}
	return txID, true
}
