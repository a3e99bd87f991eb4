// Package service runs the role verification workflow: users apply for the
// journalist or politician role with an uploaded identity document, admins
// review and decide. Approval promotes the account and confirms its identity.
package service

import (
	"context"
	"log/slog"

	"shahid/internal/audit"
	identitymodels "shahid/internal/identity/models"
	"shahid/internal/verification/metrics"
	"shahid/internal/verification/models"
	id "shahid/pkg/domain"
)

// RequestStore persists verification requests. CreateIfNoneOpen returns
// ErrConflict when the user already has an open request.
type RequestStore interface {
	CreateIfNoneOpen(ctx context.Context, request *models.Request) error
	FindByID(ctx context.Context, requestID id.RequestID) (*models.Request, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Request, error)
	List(ctx context.Context, status models.RequestStatus, limit, offset int) ([]*models.Request, error)
	Execute(ctx context.Context, requestID id.RequestID, validate func(*models.Request) error, mutate func(*models.Request)) (*models.Request, error)
}

// UserStore is the slice of the identity store the workflow needs: reading
// the applicant's document and promoting the account on approval.
type UserStore interface {
	FindByID(ctx context.Context, userID id.UserID) (*identitymodels.User, error)
	Execute(ctx context.Context, userID id.UserID, validate func(*identitymodels.User) error, mutate func(*identitymodels.User)) (*identitymodels.User, error)
}

// AuditPublisher records the review decisions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

type Service struct {
	requests  RequestStore
	users     UserStore
	logger    *slog.Logger
	publisher AuditPublisher
	metrics   *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(requests RequestStore, users UserStore, opts ...Option) *Service {
	s := &Service{
		requests: requests,
		users:    users,
		logger:   slog.Default(),
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
