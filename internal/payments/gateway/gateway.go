// Package gateway adapts external payment providers behind one interface.
// Adapters are thin HTTP clients; all business rules live in the service.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"shahid/internal/platform/config"
	dErrors "shahid/pkg/domain-errors"
)

// Gateway is the provider-neutral payment surface.
type Gateway interface {
	// Name identifies the provider ("stripe", "paypal").
	Name() string
	// CreatePaymentMethod exchanges a client-side token for a reusable
	// provider reference. Raw card numbers never reach this service.
	CreatePaymentMethod(ctx context.Context, req CreateMethodRequest) (*MethodResult, error)
	// Charge captures a one-off payment against a stored method.
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	// CreateSubscription starts a recurring billing agreement.
	CreateSubscription(ctx context.Context, req SubscriptionRequest) (*SubscriptionResult, error)
	// CancelSubscription stops a billing agreement.
	CancelSubscription(ctx context.Context, providerRef string) error
	// Refund returns money for a captured charge.
	Refund(ctx context.Context, req RefundRequest) (*RefundResult, error)
}

type CreateMethodRequest struct {
	// Token is the client-side tokenization result (Stripe token, PayPal
	// vault setup token).
	Token string
	Type  string
}

type MethodResult struct {
	ProviderRef string
	CardLast4   string
	CardBrand   string
	ExpMonth    int
	ExpYear     int
}

type ChargeRequest struct {
	MethodRef   string
	Amount      int64
	Currency    string
	Description string
	// IdempotencyKey dedupes retried charges at the provider.
	IdempotencyKey string
}

type ChargeResult struct {
	ProviderRef string
	// Captured is false when the provider left the charge pending.
	Captured bool
}

type SubscriptionRequest struct {
	MethodRef string
	Plan      string
	// Price is minor units per month.
	Price    int64
	Currency string
}

type SubscriptionResult struct {
	ProviderRef string
	PeriodEnd   time.Time
}

type RefundRequest struct {
	ChargeRef string
	Amount    int64
	Currency  string
}

type RefundResult struct {
	ProviderRef string
}

// Error is a provider failure with enough detail to decide between client
// fault (declined) and provider fault (outage).
type Error struct {
	Gateway    string
	Code       string
	Message    string
	HTTPStatus int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s gateway: %s (%s)", e.Gateway, e.Message, e.Code)
}

// IsDecline reports whether the failure is the payer's fault rather than an
// outage. Declines map to validation errors for the client; outages to
// unavailable.
func (e *Error) IsDecline() bool {
	return e.HTTPStatus >= 400 && e.HTTPStatus < 500
}

// New constructs the named gateway from configuration. An empty credential
// set disables the provider.
func New(name string, cfg config.PaymentsConfig, client *http.Client) (Gateway, error) {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	switch name {
	case "stripe":
		if cfg.StripeSecretKey == "" {
			return nil, dErrors.New(dErrors.CodeUnavailable, "stripe gateway is not configured")
		}
		return NewStripe(cfg.StripeAPIBase, cfg.StripeSecretKey, client), nil
	case "paypal":
		if cfg.PayPalClientID == "" || cfg.PayPalClientSecret == "" {
			return nil, dErrors.New(dErrors.CodeUnavailable, "paypal gateway is not configured")
		}
		return NewPayPal(cfg.PayPalAPIBase, cfg.PayPalClientID, cfg.PayPalClientSecret, client), nil
	}
	return nil, dErrors.New(dErrors.CodeValidation, "unknown payment gateway")
}
