package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"shahid/internal/payments/service"
	dErrors "shahid/pkg/domain-errors"
	"shahid/pkg/platform/httputil"
)

const (
	// signatureHeader carries the hex HMAC-SHA256 of the raw body, keyed
	// with the per-gateway webhook secret.
	signatureHeader = "X-Webhook-Signature"
	maxWebhookBody  = 1 << 20
)

// webhookPayload is the envelope both gateways are configured to send.
type webhookPayload struct {
	Type        string    `json:"type"`
	ProviderRef string    `json:"provider_ref"`
	PeriodEnd   time.Time `json:"period_end,omitempty"`
}

func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	gatewayName := chi.URLParam(r, "gateway")
	secret, ok := h.secrets[gatewayName]
	if !ok || secret == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "unknown webhook gateway"))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unreadable webhook body"))
		return
	}

	if !verifySignature(body, r.Header.Get(signatureHeader), secret) {
		h.logger.WarnContext(r.Context(), "webhook signature rejected", "gateway", gatewayName)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid webhook signature"))
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed webhook body"))
		return
	}
	if payload.Type == "" || payload.ProviderRef == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "webhook type and provider_ref are required"))
		return
	}

	err = h.service.HandleWebhook(r.Context(), gatewayName, service.WebhookEvent{
		Type:        payload.Type,
		ProviderRef: payload.ProviderRef,
		PeriodEnd:   payload.PeriodEnd,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"received": "true"})
}

func verifySignature(body []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
