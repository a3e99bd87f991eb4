package service

import (
	"context"
	"errors"
	"time"

	"shahid/internal/audit"
	"shahid/internal/payments/models"
	dErrors "shahid/pkg/domain-errors"
	"shahid/pkg/platform/sentinel"
	"shahid/pkg/requestcontext"
)

// WebhookEvent is the provider-neutral form of a webhook delivery. The
// handler verifies the signature and maps the provider payload into this
// shape before calling the service.
type WebhookEvent struct {
	// Type is the normalized event name: payment.completed, payment.failed,
	// payment.refunded, subscription.renewed, subscription.suspended,
	// subscription.cancelled, subscription.expired.
	Type string
	// ProviderRef identifies the transaction or subscription at the gateway.
	ProviderRef string
	// PeriodEnd is set on subscription.renewed.
	PeriodEnd time.Time
}

// HandleWebhook applies a verified gateway notification to local state.
// Unknown references are ignored rather than erroring: gateways retry
// deliveries and may notify about objects created out of band.
func (s *Service) HandleWebhook(ctx context.Context, gatewayName string, event WebhookEvent) error {
	var (
		err     error
		outcome = "processed"
	)
	switch event.Type {
	case "payment.completed":
		err = s.applyTransactionStatus(ctx, gatewayName, event.ProviderRef, models.TxCompleted)
	case "payment.failed":
		err = s.applyTransactionStatus(ctx, gatewayName, event.ProviderRef, models.TxFailed)
	case "payment.refunded":
		err = s.applyTransactionStatus(ctx, gatewayName, event.ProviderRef, models.TxRefunded)
	case "subscription.renewed":
		err = s.applySubscriptionChange(ctx, gatewayName, event.ProviderRef, func(sub *models.Subscription, now time.Time) {
			periodEnd := event.PeriodEnd
			if periodEnd.IsZero() {
				periodEnd = sub.CurrentPeriodEnd.AddDate(0, 1, 0)
			}
			sub.ApplyRenewal(periodEnd, now)
		})
	case "subscription.suspended":
		err = s.applySubscriptionChange(ctx, gatewayName, event.ProviderRef, func(sub *models.Subscription, now time.Time) {
			sub.ApplySuspension(now)
		})
	case "subscription.cancelled":
		err = s.applySubscriptionChange(ctx, gatewayName, event.ProviderRef, func(sub *models.Subscription, now time.Time) {
			if sub.CanCancel() == nil {
				sub.ApplyCancellation(now)
			}
		})
	case "subscription.expired":
		err = s.applySubscriptionChange(ctx, gatewayName, event.ProviderRef, func(sub *models.Subscription, now time.Time) {
			sub.ApplyExpiry(now)
		})
	default:
		outcome = "ignored"
	}

	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) || dErrors.HasCode(err, dErrors.CodeConflict) {
			// Retried or out-of-order delivery; acknowledge so the gateway
			// stops resending.
			s.logger.WarnContext(ctx, "webhook did not apply",
				"gateway", gatewayName, "type", event.Type, "error", err)
			outcome = "ignored"
			err = nil
		} else {
			outcome = "rejected"
		}
	}

	if s.metrics != nil {
		s.metrics.Webhooks.WithLabelValues(gatewayName, outcome).Inc()
	}
	s.emit(ctx, audit.Event{
		Action: audit.ActionWebhookReceived,
		Metadata: map[string]string{
			"gateway": gatewayName,
			"type":    event.Type,
			"outcome": outcome,
		},
	})
	return err
}

func (s *Service) applyTransactionStatus(ctx context.Context, gatewayName, providerRef string, target models.TransactionStatus) error {
	tx, err := s.transactions.FindByProviderRef(ctx, gatewayName, providerRef)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "transaction not found")
		}
		return wrapTxErr(err)
	}

	now := requestcontext.Now(ctx)
	tx, err = s.transactions.Execute(ctx, tx.ID,
		func(t *models.Transaction) error { return t.CanTransition(target) },
		func(t *models.Transaction) { t.ApplyStatus(target, now) },
	)
	if err != nil {
		return wrapTxErr(err)
	}

	if target == models.TxCompleted {
		s.recordChargeOutcome(ctx, tx, "completed")
	}
	return nil
}

func (s *Service) applySubscriptionChange(ctx context.Context, gatewayName, providerRef string, change func(*models.Subscription, time.Time)) error {
	sub, err := s.subscriptions.FindByProviderRef(ctx, gatewayName, providerRef)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "subscription not found")
		}
		return wrapSubErr(err)
	}

	now := requestcontext.Now(ctx)
	_, err = s.subscriptions.Execute(ctx, sub.ID,
		func(*models.Subscription) error { return nil },
		func(sb *models.Subscription) { change(sb, now) },
	)
	if err != nil {
		return wrapSubErr(err)
	}
	return nil
}
