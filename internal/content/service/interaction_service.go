package service

import (
	"context"
	"errors"
	"strconv"

	"go.opentelemetry.io/otel/attribute"

	"shahid/internal/audit"
	"shahid/internal/content/models"
	identitymodels "shahid/internal/identity/models"
	id "shahid/pkg/domain"
	dErrors "shahid/pkg/domain-errors"
	"shahid/pkg/platform/sentinel"
	"shahid/pkg/requestcontext"
)

// LikeResult reports the state after a like toggle.
type LikeResult struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}

// ToggleLike flips the caller's like on an approved post.
func (s *Service) ToggleLike(ctx context.Context, postID id.PostID) (*LikeResult, error) {
	userID := requestcontext.UserID(ctx)
	p, err := s.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !p.IsApproved() {
		return nil, dErrors.New(dErrors.CodeConflict, "only approved posts can be liked")
	}

	liked, count, err := s.interactions.ToggleLike(ctx, postID, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to toggle like")
	}

	now := requestcontext.Now(ctx)
	if _, err := s.posts.Execute(ctx, postID,
		func(*models.Post) error { return nil },
		func(p *models.Post) {
			p.LikeCount = count
			p.UpdatedAt = now
		},
	); err != nil {
		s.logger.WarnContext(ctx, "like counter update failed", "post_id", postID, "error", err)
	}

	return &LikeResult{Liked: liked, LikeCount: count}, nil
}

// TrustResult reports the state after a trust toggle.
type TrustResult struct {
	Trusted    bool `json:"trusted"`
	TrustCount int  `json:"trust_count"`
	Verified   bool `json:"verified"`
}

// ToggleTrust flips the caller's trust on a post. Only journalists,
// politicians, and admins may trust. Crossing the threshold marks the post
// verified; dropping back to zero clears the flag.
func (s *Service) ToggleTrust(ctx context.Context, postID id.PostID) (*TrustResult, error) {
	ctx, span := tracer.Start(ctx, "content.ToggleTrust")
	defer span.End()

	userID := requestcontext.UserID(ctx)
	actor, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.IsPrivileged() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only journalists, politicians, and admins can trust posts")
	}

	p, err := s.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !p.IsApproved() {
		return nil, dErrors.New(dErrors.CodeConflict, "only approved posts can be trusted")
	}

	wasVerified := p.Verified
	trusted, count, err := s.interactions.ToggleTrust(ctx, postID, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to toggle trust")
	}

	now := requestcontext.Now(ctx)
	updated, err := s.posts.Execute(ctx, postID,
		func(*models.Post) error { return nil },
		func(p *models.Post) {
			p.ApplyTrustCount(count, s.trustThreshold, now)
		},
	)
	if err != nil {
		return nil, wrapPostErr(err)
	}

	if s.metrics != nil {
		s.metrics.TrustToggles.Inc()
	}
	span.SetAttributes(
		attribute.Int("post.trust_count", count),
		attribute.Bool("post.verified", updated.Verified),
	)

	switch {
	case !wasVerified && updated.Verified:
		if s.metrics != nil {
			s.metrics.PostsVerified.Inc()
		}
		s.emit(ctx, audit.Event{
			Action:       audit.ActionPostVerified,
			ActorID:      userID,
			TargetPostID: postID,
			Metadata:     map[string]string{"trust_count": strconv.Itoa(count)},
		})
	case wasVerified && !updated.Verified:
		s.emit(ctx, audit.Event{
			Action:       audit.ActionPostUnverified,
			ActorID:      userID,
			TargetPostID: postID,
		})
	}

	return &TrustResult{Trusted: trusted, TrustCount: count, Verified: updated.Verified}, nil
}

// Confirm places a role-typed confirmation on a post. Journalists place
// journalist confirmations, politicians politician confirmations; admins may
// place either.
func (s *Service) Confirm(ctx context.Context, postID id.PostID, typeStr string) (*models.Confirmation, error) {
	confirmType, err := models.ParseConfirmationType(typeStr)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown confirmation type")
	}

	userID := requestcontext.UserID(ctx)
	actor, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !confirmationAllowed(actor.Role, confirmType) {
		return nil, dErrors.New(dErrors.CodeForbidden, "role does not match confirmation type")
	}

	p, err := s.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !p.IsApproved() {
		return nil, dErrors.New(dErrors.CodeConflict, "only approved posts can be confirmed")
	}

	confirmation := models.Confirmation{
		PostID:    postID,
		UserID:    userID,
		Type:      confirmType,
		CreatedAt: requestcontext.Now(ctx),
	}
	if err := s.interactions.AddConfirmation(ctx, confirmation); err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) || errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "confirmation already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to add confirmation")
	}
	return &confirmation, nil
}

// ListConfirmations returns the confirmations on a post.
func (s *Service) ListConfirmations(ctx context.Context, postID id.PostID) ([]models.Confirmation, error) {
	if _, err := s.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	confirmations, err := s.interactions.ListConfirmations(ctx, postID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list confirmations")
	}
	return confirmations, nil
}

func confirmationAllowed(role identitymodels.Role, confirmType models.ConfirmationType) bool {
	switch confirmType {
	case models.ConfirmJournalist:
		return role == identitymodels.RoleJournalist || role == identitymodels.RoleAdmin
	case models.ConfirmPolitician:
		return role == identitymodels.RolePolitician || role == identitymodels.RoleAdmin
	default:
		return false
	}
}
