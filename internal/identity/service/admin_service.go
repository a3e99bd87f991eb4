package service

import (
	"context"
	"errors"

	"shahid/internal/audit"
	"shahid/internal/identity/models"
	userstore "shahid/internal/identity/store/user"
	id "shahid/pkg/domain"
	dErrors "shahid/pkg/domain-errors"
	"shahid/pkg/platform/sentinel"
	"shahid/pkg/requestcontext"
)

// UserFilter is the caller-facing filter for ListUsers.
type UserFilter struct {
	Role   string
	Banned *bool
	Limit  int
	Offset int
}

// ListUsers returns a page of accounts for the admin view, optionally
// narrowed by role and ban state.
func (s *Service) ListUsers(ctx context.Context, filter UserFilter) ([]*models.User, error) {
	storeFilter := userstore.ListFilter{
		Banned: filter.Banned,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	if filter.Role != "" {
		role, err := models.ParseRole(filter.Role)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeValidation, "unknown role")
		}
		storeFilter.Role = &role
	}
	if storeFilter.Limit <= 0 || storeFilter.Limit > 200 {
		storeFilter.Limit = 50
	}
	if storeFilter.Offset < 0 {
		storeFilter.Offset = 0
	}

	users, err := s.users.List(ctx, storeFilter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
	}
	return users, nil
}

// ChangeRole sets a user's role. Admin only; the change is audited with the
// previous role in the metadata.
func (s *Service) ChangeRole(ctx context.Context, userID id.UserID, newRole string) (*models.User, error) {
	role, err := models.ParseRole(newRole)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown role")
	}

	now := requestcontext.Now(ctx)
	var previous models.Role
	user, err := s.users.Execute(ctx, userID,
		func(u *models.User) error {
			previous = u.Role
			if err := u.CanChangeRole(role); err != nil {
				return dErrors.New(dErrors.CodeConflict, "user already has this role")
			}
			return nil
		},
		func(u *models.User) {
			u.ApplyRole(role, now)
		},
	)
	if err != nil {
		return nil, wrapUserErr(err)
	}

	s.emit(ctx, audit.Event{
		Action:       audit.ActionRoleChange,
		ActorID:      requestcontext.UserID(ctx),
		TargetUserID: userID,
		Metadata:     map[string]string{"from": string(previous), "to": string(role)},
	})
	if s.metrics != nil {
		s.metrics.RoleChanges.WithLabelValues(string(role)).Inc()
	}
	return user, nil
}

// Ban blocks an account. The reason is required and recorded on the user and
// in the audit trail.
func (s *Service) Ban(ctx context.Context, userID id.UserID, reason string) (*models.User, error) {
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "ban reason is required")
	}

	now := requestcontext.Now(ctx)
	user, err := s.users.Execute(ctx, userID,
		func(u *models.User) error {
			if err := u.CanBan(); err != nil {
				return dErrors.New(dErrors.CodeConflict, err.Error())
			}
			return nil
		},
		func(u *models.User) {
			u.ApplyBan(reason, requestcontext.UserID(ctx), now)
		},
	)
	if err != nil {
		return nil, wrapUserErr(err)
	}

	s.emit(ctx, audit.Event{
		Action:       audit.ActionUserBanned,
		ActorID:      requestcontext.UserID(ctx),
		TargetUserID: userID,
		Reason:       reason,
	})
	if s.metrics != nil {
		s.metrics.Bans.Inc()
	}
	return user, nil
}

// Unban lifts a ban and clears the recorded reason.
func (s *Service) Unban(ctx context.Context, userID id.UserID) (*models.User, error) {
	now := requestcontext.Now(ctx)
	user, err := s.users.Execute(ctx, userID,
		func(u *models.User) error {
			if err := u.CanUnban(); err != nil {
				return dErrors.New(dErrors.CodeConflict, err.Error())
			}
			return nil
		},
		func(u *models.User) {
			u.ApplyUnban(now)
		},
	)
	if err != nil {
		return nil, wrapUserErr(err)
	}

	s.emit(ctx, audit.Event{
		Action:       audit.ActionUserUnbanned,
		ActorID:      requestcontext.UserID(ctx),
		TargetUserID: userID,
	})
	return user, nil
}

// DeleteUser removes an account. Admins cannot delete themselves.
func (s *Service) DeleteUser(ctx context.Context, userID id.UserID) error {
	if requestcontext.UserID(ctx) == userID {
		return dErrors.New(dErrors.CodeForbidden, "cannot delete your own account")
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete user")
	}

	s.emit(ctx, audit.Event{
		Action:       audit.ActionUserDeleted,
		ActorID:      requestcontext.UserID(ctx),
		TargetUserID: userID,
	})
	return nil
}

// ConfirmIdentity marks the account as identity-verified. Posts from
// confirmed users are auto-approved.
func (s *Service) ConfirmIdentity(ctx context.Context, userID id.UserID) (*models.User, error) {
	now := requestcontext.Now(ctx)
	user, err := s.users.Execute(ctx, userID,
		func(u *models.User) error {
			if u.IdentityConfirmed {
				return dErrors.New(dErrors.CodeConflict, "identity is already confirmed")
			}
			return nil
		},
		func(u *models.User) {
			u.ApplyIdentityConfirmation(now)
		},
	)
	if err != nil {
		return nil, wrapUserErr(err)
	}

	s.emit(ctx, audit.Event{
		Action:       audit.ActionIdentityConfirmed,
		ActorID:      requestcontext.UserID(ctx),
		TargetUserID: userID,
	})
	return user, nil
}
