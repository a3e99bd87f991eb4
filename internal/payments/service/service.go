// Package service orchestrates payment methods, charges, refunds, and
// subscriptions over the gateway adapters.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"go.opentelemetry.io/otel"

	"shahid/internal/audit"
	"shahid/internal/payments/gateway"
	paymetrics "shahid/internal/payments/metrics"
	"shahid/internal/payments/models"
	id "shahid/pkg/domain"
	dErrors "shahid/pkg/domain-errors"
)

var tracer = otel.Tracer("shahid/internal/payments")

// MethodStore persists payment methods.
type MethodStore interface {
	Create(ctx context.Context, method *models.PaymentMethod) error
	FindByID(ctx context.Context, methodID id.MethodID) (*models.PaymentMethod, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.PaymentMethod, error)
	Execute(ctx context.Context, methodID id.MethodID, validate func(*models.PaymentMethod) error, mutate func(*models.PaymentMethod)) (*models.PaymentMethod, error)
	ClearDefault(ctx context.Context, userID id.UserID) error
}

// TransactionStore persists transactions.
type TransactionStore interface {
	Create(ctx context.Context, tx *models.Transaction) error
	FindByID(ctx context.Context, txID id.TransactionID) (*models.Transaction, error)
	FindByProviderRef(ctx context.Context, gateway, providerRef string) (*models.Transaction, error)
	ListByUser(ctx context.Context, userID id.UserID, limit, offset int) ([]*models.Transaction, error)
	Execute(ctx context.Context, txID id.TransactionID, validate func(*models.Transaction) error, mutate func(*models.Transaction)) (*models.Transaction, error)
}

// SubscriptionStore persists subscriptions.
type SubscriptionStore interface {
	Create(ctx context.Context, sub *models.Subscription) error
	FindByID(ctx context.Context, subID id.SubscriptionID) (*models.Subscription, error)
	FindByUser(ctx context.Context, userID id.UserID) (*models.Subscription, error)
	FindByProviderRef(ctx context.Context, gateway, providerRef string) (*models.Subscription, error)
	Execute(ctx context.Context, subID id.SubscriptionID, validate func(*models.Subscription) error, mutate func(*models.Subscription)) (*models.Subscription, error)
}

// AuditPublisher records payment events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// Service wires the payments module together.
type Service struct {
	methods        MethodStore
	transactions   TransactionStore
	subscriptions  SubscriptionStore
	gateways       map[string]gateway.Gateway
	defaultGateway string
	logger         *slog.Logger
	publisher      AuditPublisher
	metrics        *paymetrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

func WithMetrics(m *paymetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(methods MethodStore, transactions TransactionStore, subscriptions SubscriptionStore, gateways map[string]gateway.Gateway, defaultGateway string, opts ...Option) *Service {
	s := &Service{
		methods:        methods,
		transactions:   transactions,
		subscriptions:  subscriptions,
		gateways:       gateways,
		defaultGateway: defaultGateway,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.publisher != nil {
		s.publisher.Emit(ctx, event)
	}
}

func (s *Service) resolveGateway(name string) (gateway.Gateway, error) {
	if name == "" {
		name = s.defaultGateway
	}
	gw, ok := s.gateways[name]
	if !ok {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown payment gateway")
	}
	return gw, nil
}

// gatewayError translates a provider failure into a domain error. Declines
// are the payer's problem; everything else is an upstream outage.
func gatewayError(err error) error {
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) && gwErr.IsDecline() {
		return dErrors.New(dErrors.CodeInvalidInput, "payment was declined: "+gwErr.Message)
	}
	return dErrors.Wrap(err, dErrors.CodeUnavailable, "payment provider is unavailable")
}

// formatAmount renders minor units plus currency for audit metadata.
func formatAmount(amount int64, currency string) string {
	return strconv.FormatInt(amount, 10) + " " + currency
}
