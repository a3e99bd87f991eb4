// Package service orchestrates account lifecycle: registration, login,
// identity documents, and the admin operations that change roles and bans.
package service

import (
	"context"
	"log/slog"
	"time"

	"shahid/internal/audit"
	identitymetrics "shahid/internal/identity/metrics"
	"shahid/internal/identity/models"
	userstore "shahid/internal/identity/store/user"
	id "shahid/pkg/domain"
)

// UserStore persists accounts. Execute runs validate-then-mutate under the
// store's lock (mutex or FOR UPDATE).
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Execute(ctx context.Context, userID id.UserID, validate func(*models.User) error, mutate func(*models.User)) (*models.User, error)
	List(ctx context.Context, filter userstore.ListFilter) ([]*models.User, error)
	Delete(ctx context.Context, userID id.UserID) error
	Count(ctx context.Context) (int, error)
}

// TokenIssuer issues and revokes access tokens.
type TokenIssuer interface {
	Issue(user *models.User, now time.Time) (string, error)
	Revoke(ctx context.Context, jti string) error
}

// AuditPublisher records security-relevant actions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// LockoutGuard tracks failed logins per identifier. Check returns an error
// while the identifier is locked out.
type LockoutGuard interface {
	Check(ctx context.Context, identifier string) error
	RecordFailure(ctx context.Context, identifier string) error
	Reset(ctx context.Context, identifier string) error
}

// Service wires the identity module together.
type Service struct {
	users      UserStore
	tokens     TokenIssuer
	logger     *slog.Logger
	publisher  AuditPublisher
	lockout    LockoutGuard
	metrics    *identitymetrics.Metrics
	bcryptCost int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

func WithLockoutGuard(guard LockoutGuard) Option {
	return func(s *Service) { s.lockout = guard }
}

func WithMetrics(m *identitymetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.bcryptCost = cost }
}

func New(users UserStore, tokens TokenIssuer, opts ...Option) *Service {
	s := &Service{
		users:      users,
		tokens:     tokens,
		logger:     slog.Default(),
		bcryptCost: 12,
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
