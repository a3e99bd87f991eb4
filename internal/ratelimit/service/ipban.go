package service

import (
	"context"
	"errors"
	"log/slog"

	"shahid/internal/audit"
	"shahid/internal/ratelimit/models"
	dErrors "shahid/pkg/domain-errors"
	"shahid/pkg/platform/sentinel"
	"shahid/pkg/requestcontext"
)

// BanIP blocks an address platform-wide. Admin only; the router guards the
// route, the service records who placed the ban.
func (s *Service) BanIP(ctx context.Context, ip, reason string) (*models.IPBan, error) {
	actorID := requestcontext.UserID(ctx)
	ban, err := models.NewIPBan(ip, reason, actorID, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	if err := s.bans.Create(ctx, ban); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "ip is already banned")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "ip ban store failure")
	}

	s.logAudit(ctx, slog.LevelInfo, audit.ActionIPBanned, "ip banned",
		"banned_ip", ip, "reason", reason, "admin_id", actorID.String())
	return ban, nil
}

// UnbanIP lifts a ban.
func (s *Service) UnbanIP(ctx context.Context, ip string) error {
	if err := s.bans.Delete(ctx, ip); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "ip ban not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "ip ban store failure")
	}

	s.logAudit(ctx, slog.LevelInfo, audit.ActionIPUnbanned, "ip unbanned",
		"banned_ip", ip, "admin_id", requestcontext.UserID(ctx).String())
	return nil
}

// ListBans returns all active bans, newest first.
func (s *Service) ListBans(ctx context.Context) ([]*models.IPBan, error) {
	bans, err := s.bans.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "ip ban store failure")
	}
	return bans, nil
}

// IsBanned reports whether an address is banned. The middleware calls it on
// every request, before any rate limit check.
func (s *Service) IsBanned(ctx context.Context, ip string) (bool, error) {
	_, err := s.bans.FindByIP(ctx, ip)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "ip ban store failure")
	}
	if s.metrics != nil {
		s.metrics.BannedRejections.Inc()
	}
	return true, nil
}
