// Package service orchestrates the content module: post lifecycle,
// interactions (likes, trusts, confirmations), reports, and comments.
package service

import (
	"context"
	"log/slog"

	"shahid/internal/audit"
	contentmetrics "shahid/internal/content/metrics"
	"shahid/internal/content/models"
	"shahid/internal/content/store/post"
	identitymodels "shahid/internal/identity/models"
	id "shahid/pkg/domain"
)

// PostStore persists posts.
type PostStore interface {
	Create(ctx context.Context, p *models.Post) error
	FindByID(ctx context.Context, postID id.PostID) (*models.Post, error)
	List(ctx context.Context, filter post.ListFilter) ([]*models.Post, error)
	Execute(ctx context.Context, postID id.PostID, validate func(*models.Post) error, mutate func(*models.Post)) (*models.Post, error)
	Delete(ctx context.Context, postID id.PostID) error
}

// InteractionStore persists likes, trusts, and confirmations.
type InteractionStore interface {
	ToggleLike(ctx context.Context, postID id.PostID, userID id.UserID) (bool, int, error)
	ToggleTrust(ctx context.Context, postID id.PostID, userID id.UserID) (bool, int, error)
	AddConfirmation(ctx context.Context, confirmation models.Confirmation) error
	ListConfirmations(ctx context.Context, postID id.PostID) ([]models.Confirmation, error)
}

// ReportStore persists reports.
type ReportStore interface {
	Create(ctx context.Context, report *models.Report) error
	FindByID(ctx context.Context, reportID id.ReportID) (*models.Report, error)
	CountByPost(ctx context.Context, postID id.PostID) (int, error)
	List(ctx context.Context, status models.ReportStatus, limit, offset int) ([]*models.Report, error)
	Execute(ctx context.Context, reportID id.ReportID, validate func(*models.Report) error, mutate func(*models.Report)) (*models.Report, error)
}

// CommentStore persists comments.
type CommentStore interface {
	Create(ctx context.Context, comment *models.Comment) error
	FindByID(ctx context.Context, commentID id.CommentID) (*models.Comment, error)
	ListByPost(ctx context.Context, postID id.PostID, limit, offset int) ([]*models.Comment, error)
	Update(ctx context.Context, comment *models.Comment) error
	Delete(ctx context.Context, commentID id.CommentID) error
	DeleteByPost(ctx context.Context, postID id.PostID) error
}

// UserDirectory resolves the acting user's current role and flags. The role
// claim in the token can be stale; moderation-relevant checks go to the store.
type UserDirectory interface {
	GetUser(ctx context.Context, userID id.UserID) (*identitymodels.User, error)
}

// Screener flags blocked terms in post text.
type Screener interface {
	Check(text string) []string
}

// SearchIndex receives approved posts for full-text search. Implementations
// must tolerate duplicate index calls for the same post.
type SearchIndex interface {
	IndexPost(p *models.Post) error
	DeletePost(postID id.PostID) error
}

// AuditPublisher records moderation actions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// Service wires the content module together.
type Service struct {
	posts        PostStore
	interactions InteractionStore
	reports      ReportStore
	comments     CommentStore
	users        UserDirectory

	screener  Screener
	search    SearchIndex
	publisher AuditPublisher
	logger    *slog.Logger
	metrics   *contentmetrics.Metrics

	trustThreshold   int
	reportEscalation int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

func WithScreener(screener Screener) Option {
	return func(s *Service) { s.screener = screener }
}

func WithSearchIndex(index SearchIndex) Option {
	return func(s *Service) { s.search = index }
}

func WithMetrics(m *contentmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithThresholds overrides the trust and report-escalation thresholds.
func WithThresholds(trust, escalation int) Option {
	return func(s *Service) {
		if trust > 0 {
			s.trustThreshold = trust
		}
		if escalation > 0 {
			s.reportEscalation = escalation
		}
	}
}

func New(posts PostStore, interactions InteractionStore, reports ReportStore, comments CommentStore, users UserDirectory, opts ...Option) *Service {
	s := &Service{
		posts:            posts,
		interactions:     interactions,
		reports:          reports,
		comments:         comments,
		users:            users,
		logger:           slog.Default(),
		trustThreshold:   3,
		reportEscalation: 5,
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

func (s *Service) indexPost(p *models.Post) {
	if s.search == nil {
		return
	}
	if p.IsApproved() {
		if err := s.search.IndexPost(p); err != nil {
			s.logger.Warn("search index update failed", "post_id", p.ID, "error", err)
		}
		return
	}
	if err := s.search.DeletePost(p.ID); err != nil {
		s.logger.Warn("search index removal failed", "post_id", p.ID, "error", err)
	}
}
