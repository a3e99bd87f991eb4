package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"shahid/internal/audit"
	identitymodels "shahid/internal/identity/models"
	"shahid/internal/verification/models"
	id "shahid/pkg/domain"
	dErrors "shahid/pkg/domain-errors"
	"shahid/pkg/platform/sentinel"
	"shahid/pkg/requestcontext"
)

// Submit files a verification request for the calling user. The requested
// role defaults to the intention recorded with the document upload; the
// document itself must already be on file.
func (s *Service) Submit(ctx context.Context, requestedRole, note string) (*models.Request, error) {
	userID := requestcontext.UserID(ctx)

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "user store failure")
	}
	if user.Banned {
		return nil, dErrors.New(dErrors.CodeForbidden, "banned users cannot request verification")
	}
	if requestedRole == "" {
		requestedRole = string(user.IntendedRole)
	}
	if user.Role == identitymodels.Role(requestedRole) {
		return nil, dErrors.New(dErrors.CodeConflict, "user already holds this role")
	}

	request, err := models.NewRequest(id.NewRequestID(), userID, requestedRole,
		user.UIDDocumentPath, note, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	if err := s.requests.CreateIfNoneOpen(ctx, request); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "a verification request is already open")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create verification request")
	}

	s.logger.InfoContext(ctx, "verification request submitted",
		slog.String("request_id", request.ID.String()),
		slog.String("requested_role", request.RequestedRole))
	if s.metrics != nil {
		s.metrics.Submitted.Inc()
	}
	return request, nil
}

// MyRequests lists the calling user's requests, newest first.
func (s *Service) MyRequests(ctx context.Context) ([]*models.Request, error) {
	requests, err := s.requests.ListByUser(ctx, requestcontext.UserID(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list verification requests")
	}
	return requests, nil
}

// ListRequests pages the review queue, optionally filtered by status.
func (s *Service) ListRequests(ctx context.Context, status string, limit, offset int) ([]*models.Request, error) {
	var filter models.RequestStatus
	if status != "" {
		switch models.RequestStatus(status) {
		case models.StatusPending, models.StatusUnderReview, models.StatusApproved, models.StatusRejected:
			filter = models.RequestStatus(status)
		default:
			return nil, dErrors.New(dErrors.CodeValidation, "unknown request status")
		}
	}
	requests, err := s.requests.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list verification requests")
	}
	return requests, nil
}

// GetRequest returns a single request. Admins see everything; other callers
// only their own.
func (s *Service) GetRequest(ctx context.Context, requestID id.RequestID) (*models.Request, error) {
	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, wrapRequestErr(err)
	}
	if requestcontext.Role(ctx) != string(identitymodels.RoleAdmin) && request.UserID != requestcontext.UserID(ctx) {
		return nil, dErrors.New(dErrors.CodeNotFound, "verification request not found")
	}
	return request, nil
}

// StartReview claims a pending request for review.
func (s *Service) StartReview(ctx context.Context, requestID id.RequestID) (*models.Request, error) {
	request, err := s.requests.Execute(ctx, requestID,
		func(r *models.Request) error {
			if err := r.CanStartReview(); err != nil {
				return dErrors.New(dErrors.CodeConflict, err.Error())
			}
			return nil
		},
		func(r *models.Request) {
			r.ApplyStartReview()
		},
	)
	if err != nil {
		return nil, wrapRequestErr(err)
	}
	return request, nil
}

// Decide closes an open request. On approval the applicant receives the
// requested role and their identity is confirmed, so future posts from the
// account skip the review queue.
func (s *Service) Decide(ctx context.Context, requestID id.RequestID, approve bool, note string) (*models.Request, error) {
	reviewerID := requestcontext.UserID(ctx)
	now := requestcontext.Now(ctx)

	request, err := s.requests.Execute(ctx, requestID,
		func(r *models.Request) error {
			if err := r.CanDecide(); err != nil {
				return dErrors.New(dErrors.CodeConflict, err.Error())
			}
			return nil
		},
		func(r *models.Request) {
			r.ApplyDecision(approve, reviewerID, note, now)
		},
	)
	if err != nil {
		return nil, wrapRequestErr(err)
	}

	outcome := "rejected"
	if approve {
		outcome = "approved"
		if err := s.promote(ctx, request, now); err != nil {
			// The decision must not stand without the role grant.
			s.reopen(ctx, request.ID)
			return nil, err
		}
	}

	s.emit(ctx, audit.Event{
		Action:       audit.ActionVerificationHandled,
		ActorID:      reviewerID,
		TargetUserID: request.UserID,
		Reason:       note,
		Metadata: map[string]string{
			"requested_role": request.RequestedRole,
			"outcome":        outcome,
		},
	})
	if s.metrics != nil {
		s.metrics.Decisions.WithLabelValues(outcome).Inc()
	}
	s.logger.InfoContext(ctx, "verification request decided",
		slog.String("request_id", request.ID.String()),
		slog.String("outcome", outcome))
	return request, nil
}

// reopen reverts a just-approved request after a failed promotion.
func (s *Service) reopen(ctx context.Context, requestID id.RequestID) {
	if _, err := s.requests.Execute(ctx, requestID,
		func(*models.Request) error { return nil },
		func(r *models.Request) { r.ApplyReopen() },
	); err != nil {
		s.logger.ErrorContext(ctx, "failed to reopen verification request",
			slog.String("request_id", requestID.String()), slog.Any("error", err))
	}
}

// promote applies the approved role and confirms identity on the applicant.
// Both changes land in one Execute so a concurrent ban cannot interleave.
func (s *Service) promote(ctx context.Context, request *models.Request, now time.Time) error {
	role, err := identitymodels.ParseRole(request.RequestedRole)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "stored request carries an unknown role")
	}

	_, err = s.users.Execute(ctx, request.UserID,
		func(u *identitymodels.User) error {
			if u.Banned {
				return dErrors.New(dErrors.CodeConflict, "cannot promote a banned user")
			}
			return nil
		},
		func(u *identitymodels.User) {
			if u.Role != role {
				u.ApplyRole(role, now)
			}
			if !u.IdentityConfirmed {
				u.ApplyIdentityConfirmation(now)
			}
		},
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeConflict, "applicant account no longer exists")
		}
		return wrapRequestErr(err)
	}

	s.emit(ctx, audit.Event{
		Action:       audit.ActionRoleChange,
		ActorID:      requestcontext.UserID(ctx),
		TargetUserID: request.UserID,
		Metadata:     map[string]string{"to": string(role), "via": "verification"},
	})
	return nil
}

func wrapRequestErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "verification request not found")
	case dErrors.CodeOf(err) != dErrors.CodeInternal:
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "verification store failure")
	}
}
