package service

import (
	"context"
	"errors"

	"shahid/internal/payments/gateway"
	"shahid/internal/payments/models"
	id "shahid/pkg/domain"
	dErrors "shahid/pkg/domain-errors"
	"shahid/pkg/platform/sentinel"
	"shahid/pkg/requestcontext"
)

// AddMethodInput carries a tokenized instrument from the client.
type AddMethodInput struct {
	Type        string
	Token       string
	Gateway     string
	MakeDefault bool
}

// AddMethod exchanges the client token at the gateway and stores the result.
// The user's first method becomes the default automatically.
func (s *Service) AddMethod(ctx context.Context, in AddMethodInput) (*models.PaymentMethod, error) {
	userID := requestcontext.UserID(ctx)

	methodType, err := models.ParseMethodType(in.Type)
	if err != nil {
		return nil, err
	}
	if in.Token == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "payment token is required")
	}

	gw, err := s.resolveGateway(in.Gateway)
	if err != nil {
		return nil, err
	}

	result, err := gw.CreatePaymentMethod(ctx, gateway.CreateMethodRequest{
		Token: in.Token,
		Type:  in.Type,
	})
	if err != nil {
		return nil, gatewayError(err)
	}

	now := requestcontext.Now(ctx)
	method, err := models.NewPaymentMethod(id.NewMethodID(), userID, methodType, gw.Name(), result.ProviderRef, now)
	if err != nil {
		return nil, err
	}
	if result.CardLast4 != "" {
		if err := method.SetCardMeta(result.CardLast4, result.CardBrand, result.ExpMonth, result.ExpYear); err != nil {
			return nil, err
		}
	}

	existing, err := s.methods.ListByUser(ctx, userID)
	if err != nil {
		return nil, wrapMethodErr(err)
	}
	if in.MakeDefault || len(existing) == 0 {
		if err := s.methods.ClearDefault(ctx, userID); err != nil {
			return nil, wrapMethodErr(err)
		}
		method.ApplyDefault(now)
	}

	if err := s.methods.Create(ctx, method); err != nil {
		return nil, wrapMethodErr(err)
	}

	s.logger.InfoContext(ctx, "payment method added",
		"method_id", method.ID, "user_id", userID, "gateway", method.Gateway)
	return method, nil
}

// ListMethods returns the caller's methods, active and deactivated.
func (s *Service) ListMethods(ctx context.Context) ([]*models.PaymentMethod, error) {
	methods, err := s.methods.ListByUser(ctx, requestcontext.UserID(ctx))
	if err != nil {
		return nil, wrapMethodErr(err)
	}
	return methods, nil
}

// SetDefaultMethod makes the method the caller's default, clearing the
// previous one.
func (s *Service) SetDefaultMethod(ctx context.Context, methodID id.MethodID) (*models.PaymentMethod, error) {
	userID := requestcontext.UserID(ctx)

	method, err := s.ownedMethod(ctx, userID, methodID)
	if err != nil {
		return nil, err
	}
	if !method.Active {
		return nil, dErrors.New(dErrors.CodeConflict, "payment method is deactivated")
	}

	if err := s.methods.ClearDefault(ctx, userID); err != nil {
		return nil, wrapMethodErr(err)
	}

	now := requestcontext.Now(ctx)
	method, err = s.methods.Execute(ctx, methodID,
		func(m *models.PaymentMethod) error {
			if !m.Active {
				return dErrors.New(dErrors.CodeConflict, "payment method is deactivated")
			}
			return nil
		},
		func(m *models.PaymentMethod) { m.ApplyDefault(now) },
	)
	if err != nil {
		return nil, wrapMethodErr(err)
	}
	return method, nil
}

// RemoveMethod deactivates the method. History stays; charging stops.
func (s *Service) RemoveMethod(ctx context.Context, methodID id.MethodID) error {
	userID := requestcontext.UserID(ctx)

	if _, err := s.ownedMethod(ctx, userID, methodID); err != nil {
		return err
	}

	now := requestcontext.Now(ctx)
	_, err := s.methods.Execute(ctx, methodID,
		func(m *models.PaymentMethod) error { return m.CanDeactivate() },
		func(m *models.PaymentMethod) { m.ApplyDeactivation(now) },
	)
	if err != nil {
		return wrapMethodErr(err)
	}

	s.logger.InfoContext(ctx, "payment method removed", "method_id", methodID, "user_id", userID)
	return nil
}

// ownedMethod loads a method and hides other users' methods behind not found.
func (s *Service) ownedMethod(ctx context.Context, userID id.UserID, methodID id.MethodID) (*models.PaymentMethod, error) {
	method, err := s.methods.FindByID(ctx, methodID)
	if err != nil {
		return nil, wrapMethodErr(err)
	}
	if method.UserID != userID {
		return nil, dErrors.New(dErrors.CodeNotFound, "payment method not found")
	}
	return method, nil
}

func wrapMethodErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "payment method not found")
	case dErrors.CodeOf(err) != dErrors.CodeInternal:
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "payment method store failure")
	}
}
