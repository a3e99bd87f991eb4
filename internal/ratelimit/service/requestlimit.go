package service

import (
	"context"
	"log/slog"
	"time"

	"shahid/internal/audit"
	"shahid/internal/ratelimit/models"
	dErrors "shahid/pkg/domain-errors"
)

// Request limits are sliding one-minute windows per endpoint class, tracked
// separately per IP and per authenticated user.

const limitWindow = time.Minute

// CheckIP checks the per-IP budget for an endpoint class.
func (s *Service) CheckIP(ctx context.Context, ip string, class models.EndpointClass) (*models.RateLimitResult, error) {
	if !class.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown endpoint class")
	}
	return s.check(ctx, models.IPKey(ip, class), class, map[string]string{"ip": ip})
}

// CheckUser checks the per-user budget for an endpoint class.
func (s *Service) CheckUser(ctx context.Context, userID string, class models.EndpointClass) (*models.RateLimitResult, error) {
	if !class.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown endpoint class")
	}
	return s.check(ctx, models.UserKey(userID, class), class, map[string]string{"user_id": userID})
}

// CheckBoth checks IP then user and returns the more restrictive outcome.
// Either budget running out denies the request.
func (s *Service) CheckBoth(ctx context.Context, ip, userID string, class models.EndpointClass) (*models.RateLimitResult, error) {
	ipResult, err := s.CheckIP(ctx, ip, class)
	if err != nil {
		return nil, err
	}
	if !ipResult.Allowed {
		return ipResult, nil
	}

	userResult, err := s.CheckUser(ctx, userID, class)
	if err != nil {
		return nil, err
	}
	if !userResult.Allowed {
		return userResult, nil
	}

	if userResult.Remaining < ipResult.Remaining {
		return userResult, nil
	}
	return ipResult, nil
}

// ResetLimits clears all class buckets for an identifier key prefix. Admins
// use it to unstick a legitimate caller.
func (s *Service) ResetLimits(ctx context.Context, ip, userID string) error {
	for _, class := range []models.EndpointClass{models.ClassAuth, models.ClassSensitive, models.ClassRead, models.ClassWrite} {
		if ip != "" {
			if err := s.buckets.Reset(ctx, models.IPKey(ip, class)); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "rate limit reset failed")
			}
		}
		if userID != "" {
			if err := s.buckets.Reset(ctx, models.UserKey(userID, class)); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "rate limit reset failed")
			}
		}
	}
	return nil
}

func (s *Service) check(ctx context.Context, key string, class models.EndpointClass, identity map[string]string) (*models.RateLimitResult, error) {
	limit := s.limitFor(class)
	result, err := s.buckets.Allow(ctx, key, limit, limitWindow)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "rate limit check failed")
	}

	if s.metrics != nil {
		outcome := "allowed"
		if !result.Allowed {
			outcome = "denied"
		}
		s.metrics.Checks.WithLabelValues(string(class), outcome).Inc()
	}

	if !result.Allowed {
		attrList := []any{
			"class", string(class),
			"limit", limit,
			"retry_after", result.RetryAfter,
		}
		for k, v := range identity {
			attrList = append(attrList, k, v)
		}
		s.logAudit(ctx, slog.LevelWarn, audit.ActionRateLimitExceeded, "rate limit exceeded", attrList...)
	}

	return result, nil
}
