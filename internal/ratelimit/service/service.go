// Package service enforces request rate limits, auth lockouts, and IP bans.
package service

import (
	"context"
	"log/slog"
	"time"

	"shahid/internal/audit"
	"shahid/internal/platform/config"
	ratemetrics "shahid/internal/ratelimit/metrics"
	"shahid/internal/ratelimit/models"
)

// BucketStore is the sliding window behind per-class request limits.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)
	Reset(ctx context.Context, key string) error
}

// LockoutStore persists failed-login records. Get returns nil when no record
// exists for the key.
type LockoutStore interface {
	Get(ctx context.Context, key string) (*models.FailureRecord, error)
	Put(ctx context.Context, key string, record *models.FailureRecord, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// BanStore persists admin-placed IP bans.
type BanStore interface {
	Create(ctx context.Context, ban *models.IPBan) error
	FindByIP(ctx context.Context, ip string) (*models.IPBan, error)
	Delete(ctx context.Context, ip string) error
	List(ctx context.Context) ([]*models.IPBan, error)
}

// AuditPublisher records security events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// Service wires the rate limiting module together. It also implements the
// identity module's LockoutGuard.
type Service struct {
	buckets   BucketStore
	lockouts  LockoutStore
	bans      BanStore
	cfg       config.RateLimitConfig
	logger    *slog.Logger
	publisher AuditPublisher
	metrics   *ratemetrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

func WithMetrics(m *ratemetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(buckets BucketStore, lockouts LockoutStore, bans BanStore, cfg config.RateLimitConfig, opts ...Option) *Service {
	s := &Service{
		buckets:  buckets,
		lockouts: lockouts,
		bans:     bans,
		cfg:      cfg,
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

// limitFor maps an endpoint class to its per-minute budget.
func (s *Service) limitFor(class models.EndpointClass) int {
	switch class {
	case models.ClassAuth:
		return s.cfg.AuthPerMinute
	case models.ClassSensitive:
		return s.cfg.SensitivePerMinute
	case models.ClassRead:
		return s.cfg.ReadPerMinute
	case models.ClassWrite:
		return s.cfg.WritePerMinute
	}
	return 0
}
