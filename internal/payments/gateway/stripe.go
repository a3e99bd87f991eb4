package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Stripe talks to the Stripe REST API. Requests are form-encoded per the
// Stripe wire format; responses are JSON.
type Stripe struct {
	apiBase   string
	secretKey string
	client    *http.Client
}

func NewStripe(apiBase, secretKey string, client *http.Client) *Stripe {
	return &Stripe{
		apiBase:   strings.TrimRight(apiBase, "/"),
		secretKey: secretKey,
		client:    client,
	}
}

func (s *Stripe) Name() string { return "stripe" }

type stripeObject struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Card   *struct {
		Last4    string `json:"last4"`
		Brand    string `json:"brand"`
		ExpMonth int    `json:"exp_month"`
		ExpYear  int    `json:"exp_year"`
	} `json:"card"`
	CurrentPeriodEnd int64 `json:"current_period_end"`
	Error            *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *Stripe) CreatePaymentMethod(ctx context.Context, req CreateMethodRequest) (*MethodResult, error) {
	form := url.Values{}
	form.Set("type", "card")
	form.Set("card[token]", req.Token)

	obj, err := s.post(ctx, "/v1/payment_methods", form, "")
	if err != nil {
		return nil, err
	}

	result := &MethodResult{ProviderRef: obj.ID}
	if obj.Card != nil {
		result.CardLast4 = obj.Card.Last4
		result.CardBrand = obj.Card.Brand
		result.ExpMonth = obj.Card.ExpMonth
		result.ExpYear = obj.Card.ExpYear
	}
	return result, nil
}

func (s *Stripe) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.Amount, 10))
	form.Set("currency", strings.ToLower(req.Currency))
	form.Set("payment_method", req.MethodRef)
	form.Set("description", req.Description)
	form.Set("confirm", "true")

	obj, err := s.post(ctx, "/v1/payment_intents", form, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	return &ChargeResult{
		ProviderRef: obj.ID,
		Captured:    obj.Status == "succeeded",
	}, nil
}

func (s *Stripe) CreateSubscription(ctx context.Context, req SubscriptionRequest) (*SubscriptionResult, error) {
	form := url.Values{}
	form.Set("default_payment_method", req.MethodRef)
	form.Set("items[0][price_data][unit_amount]", strconv.FormatInt(req.Price, 10))
	form.Set("items[0][price_data][currency]", strings.ToLower(req.Currency))
	form.Set("items[0][price_data][recurring][interval]", "month")
	form.Set("metadata[plan]", req.Plan)

	obj, err := s.post(ctx, "/v1/subscriptions", form, "")
	if err != nil {
		return nil, err
	}

	periodEnd := time.Now().AddDate(0, 1, 0)
	if obj.CurrentPeriodEnd > 0 {
		periodEnd = time.Unix(obj.CurrentPeriodEnd, 0)
	}
	return &SubscriptionResult{ProviderRef: obj.ID, PeriodEnd: periodEnd}, nil
}

func (s *Stripe) CancelSubscription(ctx context.Context, providerRef string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		s.apiBase+"/v1/subscriptions/"+url.PathEscape(providerRef), nil)
	if err != nil {
		return fmt.Errorf("build stripe request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.secretKey)

	_, err = s.do(httpReq)
	return err
}

func (s *Stripe) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	form := url.Values{}
	form.Set("payment_intent", req.ChargeRef)
	form.Set("amount", strconv.FormatInt(req.Amount, 10))

	obj, err := s.post(ctx, "/v1/refunds", form, "")
	if err != nil {
		return nil, err
	}
	return &RefundResult{ProviderRef: obj.ID}, nil
}

func (s *Stripe) post(ctx context.Context, path string, form url.Values, idempotencyKey string) (*stripeObject, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.apiBase+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build stripe request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.secretKey)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if idempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", idempotencyKey)
	}
	return s.do(httpReq)
}

func (s *Stripe) do(httpReq *http.Request) (*stripeObject, error) {
	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, &Error{Gateway: "stripe", Code: "network_error", Message: err.Error(), HTTPStatus: http.StatusBadGateway}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &Error{Gateway: "stripe", Code: "read_error", Message: err.Error(), HTTPStatus: http.StatusBadGateway}
	}

	var obj stripeObject
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, &Error{Gateway: "stripe", Code: "bad_response", Message: "unparseable response", HTTPStatus: resp.StatusCode}
	}

	if resp.StatusCode >= 400 {
		gwErr := &Error{Gateway: "stripe", Code: "api_error", Message: "request failed", HTTPStatus: resp.StatusCode}
		if obj.Error != nil {
			gwErr.Code = obj.Error.Code
			gwErr.Message = obj.Error.Message
		}
		return nil, gwErr
	}
	return &obj, nil
}
