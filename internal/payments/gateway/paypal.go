package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// PayPal talks to the PayPal REST API: OAuth2 client-credentials for auth,
// JSON bodies throughout. Access tokens are cached until shortly before
// expiry.
type PayPal struct {
	apiBase      string
	clientID     string
	clientSecret string
	client       *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewPayPal(apiBase, clientID, clientSecret string, client *http.Client) *PayPal {
	return &PayPal{
		apiBase:      strings.TrimRight(apiBase, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		client:       client,
	}
}

func (p *PayPal) Name() string { return "paypal" }

func (p *PayPal) token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.accessToken != "" && time.Now().Before(p.tokenExpiry) {
		return p.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.apiBase+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build paypal token request: %w", err)
	}
	httpReq.SetBasicAuth(p.clientID, p.clientSecret)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", &Error{Gateway: "paypal", Code: "network_error", Message: err.Error(), HTTPStatus: http.StatusBadGateway}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", &Error{Gateway: "paypal", Code: "auth_failed", Message: "token request rejected", HTTPStatus: resp.StatusCode}
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", &Error{Gateway: "paypal", Code: "bad_response", Message: "unparseable token response", HTTPStatus: resp.StatusCode}
	}

	p.accessToken = tok.AccessToken
	// Refresh a minute early to avoid racing the expiry.
	p.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)
	return p.accessToken, nil
}

type paypalObject struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	BillingInfo *struct {
		NextBillingTime time.Time `json:"next_billing_time"`
	} `json:"billing_info"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

func (p *PayPal) CreatePaymentMethod(ctx context.Context, req CreateMethodRequest) (*MethodResult, error) {
	payload := map[string]any{
		"payment_source": map[string]any{
			"token": map[string]string{"id": req.Token, "type": "SETUP_TOKEN"},
		},
	}
	obj, err := p.post(ctx, "/v3/vault/payment-tokens", payload)
	if err != nil {
		return nil, err
	}
	return &MethodResult{ProviderRef: obj.ID}, nil
}

func (p *PayPal) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	payload := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"amount": map[string]string{
				"currency_code": req.Currency,
				"value":         minorToDecimal(req.Amount),
			},
			"description": req.Description,
		}},
		"payment_source": map[string]any{
			"token": map[string]string{"id": req.MethodRef, "type": "PAYMENT_METHOD_TOKEN"},
		},
	}
	obj, err := p.post(ctx, "/v2/checkout/orders", payload)
	if err != nil {
		return nil, err
	}
	return &ChargeResult{
		ProviderRef: obj.ID,
		Captured:    obj.Status == "COMPLETED",
	}, nil
}

func (p *PayPal) CreateSubscription(ctx context.Context, req SubscriptionRequest) (*SubscriptionResult, error) {
	payload := map[string]any{
		"plan_id": req.Plan,
		"payment_source": map[string]any{
			"token": map[string]string{"id": req.MethodRef, "type": "PAYMENT_METHOD_TOKEN"},
		},
	}
	obj, err := p.post(ctx, "/v1/billing/subscriptions", payload)
	if err != nil {
		return nil, err
	}

	periodEnd := time.Now().AddDate(0, 1, 0)
	if obj.BillingInfo != nil && !obj.BillingInfo.NextBillingTime.IsZero() {
		periodEnd = obj.BillingInfo.NextBillingTime
	}
	return &SubscriptionResult{ProviderRef: obj.ID, PeriodEnd: periodEnd}, nil
}

func (p *PayPal) CancelSubscription(ctx context.Context, providerRef string) error {
	_, err := p.post(ctx, "/v1/billing/subscriptions/"+url.PathEscape(providerRef)+"/cancel",
		map[string]string{"reason": "user requested cancellation"})
	return err
}

func (p *PayPal) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	payload := map[string]any{
		"amount": map[string]string{
			"currency_code": req.Currency,
			"value":         minorToDecimal(req.Amount),
		},
	}
	obj, err := p.post(ctx, "/v2/payments/captures/"+url.PathEscape(req.ChargeRef)+"/refund", payload)
	if err != nil {
		return nil, err
	}
	return &RefundResult{ProviderRef: obj.ID}, nil
}

func (p *PayPal) post(ctx context.Context, path string, payload any) (*paypalObject, error) {
	token, err := p.token(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode paypal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiBase+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build paypal request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, &Error{Gateway: "paypal", Code: "network_error", Message: err.Error(), HTTPStatus: http.StatusBadGateway}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &Error{Gateway: "paypal", Code: "read_error", Message: err.Error(), HTTPStatus: http.StatusBadGateway}
	}

	var obj paypalObject
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, &Error{Gateway: "paypal", Code: "bad_response", Message: "unparseable response", HTTPStatus: resp.StatusCode}
		}
	}

	if resp.StatusCode >= 400 {
		gwErr := &Error{Gateway: "paypal", Code: "api_error", Message: "request failed", HTTPStatus: resp.StatusCode}
		if obj.Name != "" {
			gwErr.Code = obj.Name
		}
		if obj.Message != "" {
			gwErr.Message = obj.Message
		}
		return nil, gwErr
	}
	return &obj, nil
}

// minorToDecimal renders minor units as the decimal string PayPal expects.
// Assumes two-decimal currencies, which covers the platform's accepted set.
func minorToDecimal(amount int64) string {
	return fmt.Sprintf("%d.%02d", amount/100, amount%100)
}
