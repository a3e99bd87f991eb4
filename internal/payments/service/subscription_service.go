package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"shahid/internal/audit"
	"shahid/internal/payments/gateway"
	"shahid/internal/payments/models"
	id "shahid/pkg/domain"
	dErrors "shahid/pkg/domain-errors"
	"shahid/pkg/platform/sentinel"
	"shahid/pkg/requestcontext"
)

// Subscribe starts a recurring plan on the given (or default) method. A user
// has at most one subscription row; resubscribing reactivates it.
func (s *Service) Subscribe(ctx context.Context, plan string, methodID *id.MethodID) (*models.Subscription, error) {
	userID := requestcontext.UserID(ctx)
	now := requestcontext.Now(ctx)

	parsedPlan, err := models.ParsePlan(plan)
	if err != nil {
		return nil, err
	}

	method, err := s.chargeableMethod(ctx, userID, methodID, now)
	if err != nil {
		return nil, err
	}

	existing, err := s.subscriptions.FindByUser(ctx, userID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, wrapSubErr(err)
	}
	if existing != nil {
		if err := existing.CanReactivate(); err != nil {
			return nil, err
		}
	}

	gw, err := s.resolveGateway(method.Gateway)
	if err != nil {
		return nil, err
	}
	gwCtx, span := tracer.Start(ctx, "payments.gateway.CreateSubscription")
	span.SetAttributes(
		attribute.String("gateway", gw.Name()),
		attribute.String("plan", string(parsedPlan)),
	)
	result, gwErr := gw.CreateSubscription(gwCtx, gateway.SubscriptionRequest{
		MethodRef: method.ProviderRef,
		Plan:      string(parsedPlan),
		Price:     parsedPlan.Price(),
		Currency:  "USD",
	})
	span.End()
	if gwErr != nil {
		return nil, gatewayError(gwErr)
	}

	var sub *models.Subscription
	if existing != nil {
		sub, err = s.subscriptions.Execute(ctx, existing.ID,
			func(sb *models.Subscription) error { return sb.CanReactivate() },
			func(sb *models.Subscription) { sb.ApplyReactivation(parsedPlan, result.ProviderRef, now) },
		)
		if err != nil {
			return nil, wrapSubErr(err)
		}
	} else {
		sub, err = models.NewSubscription(id.NewSubscriptionID(), userID, parsedPlan, gw.Name(), result.ProviderRef, now)
		if err != nil {
			return nil, err
		}
		if !result.PeriodEnd.IsZero() {
			sub.CurrentPeriodEnd = result.PeriodEnd
		}
		if err := s.subscriptions.Create(ctx, sub); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return nil, dErrors.New(dErrors.CodeConflict, "user already has a subscription")
			}
			return nil, wrapSubErr(err)
		}
	}

	if s.metrics != nil {
		s.metrics.Subscriptions.WithLabelValues(string(parsedPlan), "created").Inc()
	}
	s.emit(ctx, audit.Event{
		Action:  audit.ActionSubscriptionCreated,
		ActorID: userID,
		Metadata: map[string]string{
			"subscription_id": sub.ID.String(),
			"plan":            string(parsedPlan),
			"monthly_price":   formatAmount(sub.MonthlyPrice, sub.Currency),
		},
	})
	s.logger.InfoContext(ctx, "subscription started",
		"subscription_id", sub.ID, "plan", parsedPlan, "user_id", userID)
	return sub, nil
}

// MySubscription returns the caller's subscription.
func (s *Service) MySubscription(ctx context.Context) (*models.Subscription, error) {
	sub, err := s.subscriptions.FindByUser(ctx, requestcontext.UserID(ctx))
	if err != nil {
		return nil, wrapSubErr(err)
	}
	return sub, nil
}

// CancelSubscription stops the caller's subscription at the gateway and
// marks it cancelled. Access runs until the paid period ends.
func (s *Service) CancelSubscription(ctx context.Context) (*models.Subscription, error) {
	userID := requestcontext.UserID(ctx)
	now := requestcontext.Now(ctx)

	sub, err := s.subscriptions.FindByUser(ctx, userID)
	if err != nil {
		return nil, wrapSubErr(err)
	}
	if err := sub.CanCancel(); err != nil {
		return nil, err
	}

	gw, err := s.resolveGateway(sub.Gateway)
	if err != nil {
		return nil, err
	}
	if sub.ProviderRef != "" {
		gwCtx, span := tracer.Start(ctx, "payments.gateway.CancelSubscription")
		span.SetAttributes(attribute.String("gateway", sub.Gateway))
		gwErr := gw.CancelSubscription(gwCtx, sub.ProviderRef)
		span.End()
		if gwErr != nil {
			return nil, gatewayError(gwErr)
		}
	}

	sub, err = s.subscriptions.Execute(ctx, sub.ID,
		func(sb *models.Subscription) error { return sb.CanCancel() },
		func(sb *models.Subscription) { sb.ApplyCancellation(now) },
	)
	if err != nil {
		return nil, wrapSubErr(err)
	}

	if s.metrics != nil {
		s.metrics.Subscriptions.WithLabelValues(string(sub.Plan), "cancelled").Inc()
	}
	s.emit(ctx, audit.Event{
		Action:  audit.ActionSubscriptionCancelled,
		ActorID: userID,
		Metadata: map[string]string{
			"subscription_id": sub.ID.String(),
			"plan":            string(sub.Plan),
		},
	})
	s.logger.InfoContext(ctx, "subscription cancelled",
		"subscription_id", sub.ID, "user_id", userID)
	return sub, nil
}

func wrapSubErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "subscription not found")
	case dErrors.CodeOf(err) != dErrors.CodeInternal:
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "subscription store failure")
	}
}
