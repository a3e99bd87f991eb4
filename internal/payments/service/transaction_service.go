package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"shahid/internal/audit"
	identitymodels "shahid/internal/identity/models"
	"shahid/internal/payments/gateway"
	"shahid/internal/payments/models"
	id "shahid/pkg/domain"
	dErrors "shahid/pkg/domain-errors"
	"shahid/pkg/platform/sentinel"
	"shahid/pkg/requestcontext"
)

// ChargeInput describes a one-off charge. A nil MethodID charges the
// caller's default method.
type ChargeInput struct {
	MethodID    *id.MethodID
	Type        string
	Amount      int64
	Currency    string
	Description string
}

// Charge runs a payment or donation end to end: pending transaction row,
// gateway capture, final status. The transaction row is written before the
// gateway call so a crash mid-charge leaves an auditable pending record.
func (s *Service) Charge(ctx context.Context, in ChargeInput) (*models.Transaction, error) {
	userID := requestcontext.UserID(ctx)
	now := requestcontext.Now(ctx)

	txType, err := models.ParseTransactionType(in.Type)
	if err != nil {
		return nil, err
	}
	if txType == models.TxRefund {
		return nil, dErrors.New(dErrors.CodeValidation, "refunds are issued against a transaction, not charged")
	}

	method, err := s.chargeableMethod(ctx, userID, in.MethodID, now)
	if err != nil {
		return nil, err
	}

	tx, err := models.NewTransaction(id.NewTransactionID(), userID, txType, in.Amount, in.Currency, in.Description, now)
	if err != nil {
		return nil, err
	}
	tx.MethodID = &method.ID
	tx.Gateway = method.Gateway
	tx.IP = requestcontext.ClientIP(ctx)
	tx.UserAgent = requestcontext.UserAgent(ctx)

	if err := s.transactions.Create(ctx, tx); err != nil {
		return nil, wrapTxErr(err)
	}
	s.emit(ctx, audit.Event{
		Action:  audit.ActionPaymentAttempt,
		ActorID: userID,
		Metadata: map[string]string{
			"transaction_id": tx.ID.String(),
			"amount":         formatAmount(tx.Amount, tx.Currency),
			"gateway":        tx.Gateway,
		},
	})

	gw, err := s.resolveGateway(method.Gateway)
	if err != nil {
		return nil, err
	}

	gwCtx, span := tracer.Start(ctx, "payments.gateway.Charge")
	span.SetAttributes(
		attribute.String("gateway", tx.Gateway),
		attribute.String("currency", tx.Currency),
	)
	result, gwErr := gw.Charge(gwCtx, gateway.ChargeRequest{
		MethodRef:      method.ProviderRef,
		Amount:         tx.Amount,
		Currency:       tx.Currency,
		Description:    tx.Description,
		IdempotencyKey: tx.ID.String(),
	})
	span.End()
	if gwErr != nil {
		return nil, s.failCharge(ctx, tx, gwErr)
	}

	target := models.TxProcessing
	if result.Captured {
		target = models.TxCompleted
	}
	tx, err = s.transactions.Execute(ctx, tx.ID,
		func(t *models.Transaction) error { return t.CanTransition(target) },
		func(t *models.Transaction) {
			t.ProviderRef = result.ProviderRef
			t.ApplyStatus(target, now)
		},
	)
	if err != nil {
		return nil, wrapTxErr(err)
	}

	if target == models.TxCompleted {
		s.recordChargeOutcome(ctx, tx, "completed")
	}
	s.logger.InfoContext(ctx, "charge processed",
		"transaction_id", tx.ID, "status", tx.Status, "gateway", tx.Gateway)
	return tx, nil
}

// failCharge marks the transaction failed and returns the client-facing
// error.
func (s *Service) failCharge(ctx context.Context, tx *models.Transaction, gwErr error) error {
	now := requestcontext.Now(ctx)
	if _, err := s.transactions.Execute(ctx, tx.ID,
		func(t *models.Transaction) error { return t.CanTransition(models.TxFailed) },
		func(t *models.Transaction) { t.ApplyStatus(models.TxFailed, now) },
	); err != nil {
		s.logger.ErrorContext(ctx, "failed to mark transaction failed",
			"transaction_id", tx.ID, "error", err)
	}

	if s.metrics != nil {
		s.metrics.Charges.WithLabelValues(tx.Gateway, "failed").Inc()
	}
	s.emit(ctx, audit.Event{
		Action:  audit.ActionPaymentFailed,
		ActorID: tx.UserID,
		Metadata: map[string]string{
			"transaction_id": tx.ID.String(),
			"gateway":        tx.Gateway,
		},
	})
	return gatewayError(gwErr)
}

func (s *Service) recordChargeOutcome(ctx context.Context, tx *models.Transaction, outcome string) {
	if s.metrics != nil {
		s.metrics.Charges.WithLabelValues(tx.Gateway, outcome).Inc()
		if outcome == "completed" {
			s.metrics.ChargedAmount.WithLabelValues(tx.Currency).Add(float64(tx.Amount))
		}
	}
	s.emit(ctx, audit.Event{
		Action:  audit.ActionPaymentSucceeded,
		ActorID: tx.UserID,
		Metadata: map[string]string{
			"transaction_id": tx.ID.String(),
			"amount":         formatAmount(tx.Amount, tx.Currency),
			"gateway":        tx.Gateway,
		},
	})
}

// GetTransaction returns a transaction visible to its owner or an admin.
func (s *Service) GetTransaction(ctx context.Context, txID id.TransactionID) (*models.Transaction, error) {
	tx, err := s.transactions.FindByID(ctx, txID)
	if err != nil {
		return nil, wrapTxErr(err)
	}
	if tx.UserID != requestcontext.UserID(ctx) && !isAdmin(ctx) {
		return nil, dErrors.New(dErrors.CodeNotFound, "transaction not found")
	}
	return tx, nil
}

// ListTransactions returns the caller's transaction history, newest first.
func (s *Service) ListTransactions(ctx context.Context, limit, offset int) ([]*models.Transaction, error) {
	txs, err := s.transactions.ListByUser(ctx, requestcontext.UserID(ctx), limit, offset)
	if err != nil {
		return nil, wrapTxErr(err)
	}
	return txs, nil
}

// Refund returns the money for a completed transaction. The original moves
// to refunded and a separate refund transaction records the reverse flow.
func (s *Service) Refund(ctx context.Context, txID id.TransactionID) (*models.Transaction, error) {
	userID := requestcontext.UserID(ctx)
	now := requestcontext.Now(ctx)

	original, err := s.transactions.FindByID(ctx, txID)
	if err != nil {
		return nil, wrapTxErr(err)
	}
	if original.UserID != userID && !isAdmin(ctx) {
		return nil, dErrors.New(dErrors.CodeNotFound, "transaction not found")
	}
	if err := original.CanRefund(); err != nil {
		return nil, err
	}

	gw, err := s.resolveGateway(original.Gateway)
	if err != nil {
		return nil, err
	}
	gwCtx, span := tracer.Start(ctx, "payments.gateway.Refund")
	span.SetAttributes(attribute.String("gateway", original.Gateway))
	result, gwErr := gw.Refund(gwCtx, gateway.RefundRequest{
		ChargeRef: original.ProviderRef,
		Amount:    original.Amount,
		Currency:  original.Currency,
	})
	span.End()
	if gwErr != nil {
		return nil, gatewayError(gwErr)
	}

	original, err = s.transactions.Execute(ctx, original.ID,
		func(t *models.Transaction) error { return t.CanTransition(models.TxRefunded) },
		func(t *models.Transaction) { t.ApplyStatus(models.TxRefunded, now) },
	)
	if err != nil {
		return nil, wrapTxErr(err)
	}

	refund, err := models.NewTransaction(id.NewTransactionID(), original.UserID, models.TxRefund,
		original.Amount, original.Currency, "refund of "+original.ID.String(), now)
	if err != nil {
		return nil, err
	}
	refund.MethodID = original.MethodID
	refund.Gateway = original.Gateway
	refund.ProviderRef = result.ProviderRef
	refund.ApplyStatus(models.TxCompleted, now)
	if err := s.transactions.Create(ctx, refund); err != nil {
		return nil, wrapTxErr(err)
	}

	if s.metrics != nil {
		s.metrics.Refunds.WithLabelValues(original.Gateway).Inc()
	}
	s.emit(ctx, audit.Event{
		Action:       audit.ActionRefundRequested,
		ActorID:      requestcontext.UserID(ctx),
		TargetUserID: original.UserID,
		Metadata: map[string]string{
			"transaction_id": original.ID.String(),
			"refund_id":      refund.ID.String(),
			"amount":         formatAmount(original.Amount, original.Currency),
		},
	})
	s.logger.InfoContext(ctx, "refund issued",
		"transaction_id", original.ID, "refund_id", refund.ID)
	return refund, nil
}

// chargeableMethod resolves the explicit or default method and checks it can
// be charged now.
func (s *Service) chargeableMethod(ctx context.Context, userID id.UserID, methodID *id.MethodID, now time.Time) (*models.PaymentMethod, error) {
	var method *models.PaymentMethod
	if methodID != nil {
		m, err := s.ownedMethod(ctx, userID, *methodID)
		if err != nil {
			return nil, err
		}
		method = m
	} else {
		methods, err := s.methods.ListByUser(ctx, userID)
		if err != nil {
			return nil, wrapMethodErr(err)
		}
		for _, m := range methods {
			if m.Default {
				method = m
				break
			}
		}
		if method == nil {
			return nil, dErrors.New(dErrors.CodeValidation, "no default payment method")
		}
	}

	if err := method.CanCharge(now); err != nil {
		return nil, err
	}
	return method, nil
}

func isAdmin(ctx context.Context) bool {
	return requestcontext.Role(ctx) == string(identitymodels.RoleAdmin)
}

func wrapTxErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "transaction not found")
	case dErrors.CodeOf(err) != dErrors.CodeInternal:
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "transaction store failure")
	}
}
