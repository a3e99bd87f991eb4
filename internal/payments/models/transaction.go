package models

import (
	"time"

	id "shahid/pkg/domain"
	dErrors "shahid/pkg/domain-errors"
)

// TransactionType is what the money movement is for.
type TransactionType string

const (
	TxPayment      TransactionType = "payment"
	TxRefund       TransactionType = "refund"
	TxSubscription TransactionType = "subscription"
	TxDonation     TransactionType = "donation"
)

// ParseTransactionType validates a transaction type string.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(s) {
	case TxPayment, TxRefund, TxSubscription, TxDonation:
		return TransactionType(s), nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "unknown transaction type")
}

// TransactionStatus is the transaction lifecycle state.
type TransactionStatus string

const (
	TxPending    TransactionStatus = "pending"
	TxProcessing TransactionStatus = "processing"
	TxCompleted  TransactionStatus = "completed"
	TxFailed     TransactionStatus = "failed"
	TxCancelled  TransactionStatus = "cancelled"
	TxRefunded   TransactionStatus = "refunded"
)

// txTransitions is the allowed status graph. Failed, cancelled, and refunded
// are terminal.
var txTransitions = map[TransactionStatus][]TransactionStatus{
	TxPending:    {TxProcessing, TxCompleted, TxFailed, TxCancelled},
	TxProcessing: {TxCompleted, TxFailed, TxCancelled},
	TxCompleted:  {TxRefunded},
}

// Transaction records one money movement. Amount is minor units of Currency.
type Transaction struct {
	ID       id.TransactionID  `json:"id"`
	UserID   id.UserID         `json:"user_id"`
	MethodID *id.MethodID      `json:"method_id,omitempty"`
	Type     TransactionType   `json:"type"`
	Status   TransactionStatus `json:"status"`

	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description,omitempty"`

	Gateway     string `json:"gateway"`
	ProviderRef string `json:"provider_ref,omitempty"`

	// Client metadata captured at creation for dispute handling.
	IP        string `json:"-"`
	UserAgent string `json:"-"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewTransaction validates and builds a pending transaction.
func NewTransaction(txID id.TransactionID, userID id.UserID, txType TransactionType, amount int64, currency, description string, now time.Time) (*Transaction, error) {
	if _, err := ParseTransactionType(string(txType)); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "amount must be positive")
	}
	if !validCurrency(currency) {
		return nil, dErrors.New(dErrors.CodeValidation, "currency must be a three-letter ISO 4217 code")
	}
	if len(description) > 500 {
		return nil, dErrors.New(dErrors.CodeValidation, "description must be at most 500 characters")
	}
	return &Transaction{
		ID:          txID,
		UserID:      userID,
		Type:        txType,
		Status:      TxPending,
		Amount:      amount,
		Currency:    currency,
		Description: description,
		CreatedAt:   now,
	}, nil
}

// CanTransition checks the status graph.
func (t *Transaction) CanTransition(to TransactionStatus) error {
	for _, allowed := range txTransitions[t.Status] {
		if allowed == to {
			return nil
		}
	}
	return dErrors.New(dErrors.CodeConflict, "transaction cannot move from "+string(t.Status)+" to "+string(to))
}

// ApplyStatus moves the transaction, stamping CompletedAt on completion.
// Callers validate with CanTransition first.
func (t *Transaction) ApplyStatus(to TransactionStatus, now time.Time) {
	t.Status = to
	if to == TxCompleted {
		completed := now
		t.CompletedAt = &completed
	}
}

// CanRefund guards refund creation: only completed payments qualify.
func (t *Transaction) CanRefund() error {
	if t.Type == TxRefund {
		return dErrors.New(dErrors.CodeConflict, "a refund cannot be refunded")
	}
	if t.Status != TxCompleted {
		return dErrors.New(dErrors.CodeConflict, "only completed transactions can be refunded")
	}
	return nil
}

func validCurrency(currency string) bool {
	if len(currency) != 3 {
		return false
	}
	for _, c := range currency {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}
