// Package models holds the payment domain types: stored payment methods,
// transactions, and subscriptions. Monetary amounts are minor units (cents)
// in an int64, never floating point.
package models

import (
	"time"

	id "shahid/pkg/domain"
	dErrors "shahid/pkg/domain-errors"
)

// MethodType is the kind of stored payment method.
type MethodType string

const (
	MethodCreditCard   MethodType = "credit_card"
	MethodDebitCard    MethodType = "debit_card"
	MethodPayPal       MethodType = "paypal"
	MethodStripe       MethodType = "stripe"
	MethodBankTransfer MethodType = "bank_transfer"
)

// ParseMethodType validates a method type string.
func ParseMethodType(s string) (MethodType, error) {
	switch MethodType(s) {
	case MethodCreditCard, MethodDebitCard, MethodPayPal, MethodStripe, MethodBankTransfer:
		return MethodType(s), nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "unknown payment method type")
}

func (t MethodType) isCard() bool {
	return t == MethodCreditCard || t == MethodDebitCard
}

// PaymentMethod is a tokenized payment instrument. Raw card numbers never
// touch this system; the gateway returns a provider reference and display
// metadata.
type PaymentMethod struct {
	ID     id.MethodID `json:"id"`
	UserID id.UserID   `json:"user_id"`
	Type   MethodType  `json:"type"`
	// Default marks the method charged when no method is specified. At most
	// one per user.
	Default bool `json:"default"`
	Active  bool `json:"active"`

	// Card display metadata, set for card types only.
	CardLast4 string `json:"card_last4,omitempty"`
	CardBrand string `json:"card_brand,omitempty"`
	ExpMonth  int    `json:"exp_month,omitempty"`
	ExpYear   int    `json:"exp_year,omitempty"`

	// Gateway names the provider; ProviderRef is its token for this method.
	Gateway     string `json:"gateway"`
	ProviderRef string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewPaymentMethod validates and builds a stored method from a gateway
// tokenization result.
func NewPaymentMethod(methodID id.MethodID, userID id.UserID, methodType MethodType, gateway, providerRef string, now time.Time) (*PaymentMethod, error) {
	if _, err := ParseMethodType(string(methodType)); err != nil {
		return nil, err
	}
	if gateway == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "gateway is required")
	}
	if providerRef == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "payment method has no provider reference")
	}
	return &PaymentMethod{
		ID:          methodID,
		UserID:      userID,
		Type:        methodType,
		Active:      true,
		Gateway:     gateway,
		ProviderRef: providerRef,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// SetCardMeta attaches display metadata for card methods.
func (m *PaymentMethod) SetCardMeta(last4, brand string, expMonth, expYear int) error {
	if !m.Type.isCard() {
		return dErrors.New(dErrors.CodeValidation, "card metadata only applies to card methods")
	}
	if len(last4) != 4 {
		return dErrors.New(dErrors.CodeValidation, "card last4 must be four digits")
	}
	if expMonth < 1 || expMonth > 12 {
		return dErrors.New(dErrors.CodeValidation, "card expiry month out of range")
	}
	m.CardLast4 = last4
	m.CardBrand = brand
	m.ExpMonth = expMonth
	m.ExpYear = expYear
	return nil
}

// CanCharge reports whether the method may be used for a new transaction.
func (m *PaymentMethod) CanCharge(now time.Time) error {
	if !m.Active {
		return dErrors.New(dErrors.CodeConflict, "payment method is deactivated")
	}
	if m.Type.isCard() && m.ExpYear > 0 {
		endOfMonth := time.Date(m.ExpYear, time.Month(m.ExpMonth)+1, 1, 0, 0, 0, 0, time.UTC)
		if !now.Before(endOfMonth) {
			return dErrors.New(dErrors.CodeConflict, "card has expired")
		}
	}
	return nil
}

// ApplyDefault marks the method as the user's default.
func (m *PaymentMethod) ApplyDefault(now time.Time) {
	m.Default = true
	m.UpdatedAt = now
}

// ClearDefault removes the default mark.
func (m *PaymentMethod) ClearDefault(now time.Time) {
	m.Default = false
	m.UpdatedAt = now
}

// CanDeactivate guards removal.
func (m *PaymentMethod) CanDeactivate() error {
	if !m.Active {
		return dErrors.New(dErrors.CodeConflict, "payment method is already deactivated")
	}
	return nil
}

// ApplyDeactivation soft-deletes the method. Deactivated methods stay for
// transaction history but cannot be charged or made default.
func (m *PaymentMethod) ApplyDeactivation(now time.Time) {
	m.Active = false
	m.Default = false
	m.UpdatedAt = now
}
