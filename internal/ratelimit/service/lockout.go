package service

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"shahid/internal/audit"
	"shahid/internal/ratelimit/models"
	dErrors "shahid/pkg/domain-errors"
	"shahid/pkg/requestcontext"
)

// Auth lockout. Failure records are keyed by identifier plus source IP so an
// attacker cannot lock a victim out from a different address. The identity
// service calls Check before verifying credentials, RecordFailure on a bad
// attempt, and Reset on success.

// Check returns a rate_limited error while the identifier is hard-locked.
func (s *Service) Check(ctx context.Context, identifier string) error {
	key := models.LockoutKey(identifier, requestcontext.ClientIP(ctx))
	record, err := s.lockouts.Get(ctx, key)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "lockout check failed")
	}
	if record == nil {
		return nil
	}

	now := requestcontext.Now(ctx)
	if record.IsLockedAt(now) {
		return dErrors.New(dErrors.CodeRateLimited, "too many failed login attempts, try again later")
	}
	return nil
}

// RecordFailure adds one failed attempt. Crossing the captcha threshold sets
// the captcha flag; crossing the lockout threshold hard-locks the identifier
// and emits a security audit event.
func (s *Service) RecordFailure(ctx context.Context, identifier string) error {
	key := models.LockoutKey(identifier, requestcontext.ClientIP(ctx))
	record, err := s.lockouts.Get(ctx, key)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "lockout lookup failed")
	}
	if record == nil {
		record = &models.FailureRecord{}
	}

	now := requestcontext.Now(ctx)
	record.RecordFailure(now, s.cfg.FailureWindow)
	if s.metrics != nil {
		s.metrics.AuthFailures.Inc()
	}

	if !record.RequiresCaptcha && record.FailureCount >= s.cfg.CaptchaAfter {
		record.RequiresCaptcha = true
		if s.metrics != nil {
			s.metrics.CaptchaRequired.Inc()
		}
		s.logger.Warn("captcha threshold crossed",
			"failures", record.FailureCount,
		)
	}

	if record.LockedUntil == nil && record.FailureCount >= s.cfg.LockoutAfter {
		record.ApplyLock(s.cfg.LockoutTTL, now)
		if s.metrics != nil {
			s.metrics.Lockouts.Inc()
		}
		s.logAudit(ctx, slog.LevelWarn, audit.ActionLockoutTriggered, "auth lockout triggered",
			"identifier", identifier,
			"failures", strconv.Itoa(record.FailureCount),
			"locked_until", record.LockedUntil.UTC().Format(time.RFC3339),
		)
	}

	// TTL covers the remaining window, or the lock where that is longer.
	ttl := s.cfg.FailureWindow
	if record.LockedUntil != nil && record.LockedUntil.Sub(now) > ttl {
		ttl = record.LockedUntil.Sub(now)
	}
	if err := s.lockouts.Put(ctx, key, record, ttl); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "lockout record failed")
	}
	return nil
}

// Reset clears the failure history after a successful login.
func (s *Service) Reset(ctx context.Context, identifier string) error {
	key := models.LockoutKey(identifier, requestcontext.ClientIP(ctx))
	if err := s.lockouts.Delete(ctx, key); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "lockout reset failed")
	}
	return nil
}

// LockoutState reports the captcha and lock status for an identifier. The
// login handler uses it to tell clients when to render a captcha.
func (s *Service) LockoutState(ctx context.Context, identifier string) (*models.AuthCheckResult, error) {
	key := models.LockoutKey(identifier, requestcontext.ClientIP(ctx))
	record, err := s.lockouts.Get(ctx, key)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "lockout lookup failed")
	}

	result := &models.AuthCheckResult{}
	result.Allowed = true
	if record == nil {
		return result, nil
	}

	now := requestcontext.Now(ctx)
	if record.WindowExpired(now, s.cfg.FailureWindow) && !record.IsLockedAt(now) {
		return result, nil
	}

	result.FailureCount = record.FailureCount
	result.RequiresCaptcha = record.RequiresCaptcha
	if record.IsLockedAt(now) {
		result.Allowed = false
		result.ResetAt = *record.LockedUntil
		result.RetryAfter = int(record.LockedUntil.Sub(now).Seconds()) + 1
	}
	return result, nil
}
