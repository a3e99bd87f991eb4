// Package service manages the directory of people and events referenced by
// testimonies. Entries from regular users wait for admin approval; admin
// submissions go live immediately.
package service

import (
	"context"
	"log/slog"

	"shahid/internal/audit"
	"shahid/internal/directory/metrics"
	"shahid/internal/directory/models"
	"shahid/internal/directory/store/event"
	"shahid/internal/directory/store/person"
	identitymodels "shahid/internal/identity/models"
	id "shahid/pkg/domain"
)

// PersonStore persists directory people.
type PersonStore interface {
	Create(ctx context.Context, p *models.Person) error
	FindByID(ctx context.Context, personID id.PersonID) (*models.Person, error)
	List(ctx context.Context, filter person.ListFilter) ([]*models.Person, error)
	Execute(ctx context.Context, personID id.PersonID, validate func(*models.Person) error, mutate func(*models.Person)) (*models.Person, error)
	Delete(ctx context.Context, personID id.PersonID) error
}

// EventStore persists directory events.
type EventStore interface {
	Create(ctx context.Context, e *models.Event) error
	FindByID(ctx context.Context, eventID id.EventID) (*models.Event, error)
	List(ctx context.Context, filter event.ListFilter) ([]*models.Event, error)
	Execute(ctx context.Context, eventID id.EventID, validate func(*models.Event) error, mutate func(*models.Event)) (*models.Event, error)
	Delete(ctx context.Context, eventID id.EventID) error
}

// UserDirectory resolves accounts, used to check the journalist role before
// assigning someone to an event.
type UserDirectory interface {
	GetUser(ctx context.Context, userID id.UserID) (*identitymodels.User, error)
}

// AuditPublisher records admin actions on directory entries.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

type Service struct {
	people    PersonStore
	events    EventStore
	users     UserDirectory
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

func New(people PersonStore, events EventStore, users UserDirectory, opts ...Option) *Service {
	s := &Service{
		people: people,
		events: events,
		users:  users,
		logger: slog.Default(),
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
