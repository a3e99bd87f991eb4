// Package middleware mounts rate limiting and IP ban enforcement on the
// router. Limiter errors fail open: an unreachable Redis must not take the
// platform down with it.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"shahid/internal/ratelimit/models"
	dErrors "shahid/pkg/domain-errors"
	"shahid/pkg/platform/httputil"
	"shahid/pkg/requestcontext"
)

// Limiter is the slice of the rate limit service the middleware needs.
type Limiter interface {
	CheckIP(ctx context.Context, ip string, class models.EndpointClass) (*models.RateLimitResult, error)
	CheckBoth(ctx context.Context, ip, userID string, class models.EndpointClass) (*models.RateLimitResult, error)
	IsBanned(ctx context.Context, ip string) (bool, error)
}

type Middleware struct {
	limiter  Limiter
	logger   *slog.Logger
	disabled bool
}

type Option func(*Middleware)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Middleware) { m.logger = logger }
}

// WithDisabled turns both limiting and ban checks into no-ops. Demo mode.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) { m.disabled = disabled }
}

func New(limiter Limiter, opts ...Option) *Middleware {
	m := &Middleware{
		limiter: limiter,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RejectBanned blocks requests from banned addresses before any other work.
func (m *Middleware) RejectBanned(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.disabled {
			next.ServeHTTP(w, r)
			return
		}

		ip := requestcontext.ClientIP(r.Context())
		banned, err := m.limiter.IsBanned(r.Context(), ip)
		if err != nil {
			m.logger.WarnContext(r.Context(), "ip ban check failed, allowing request", "error", err)
			next.ServeHTTP(w, r)
			return
		}
		if banned {
			httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "access from this address is blocked"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Limit enforces the per-class budget. Authenticated requests count against
// both the IP and user buckets; anonymous requests against the IP only.
func (m *Middleware) Limit(class models.EndpointClass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			ip := requestcontext.ClientIP(ctx)
			userID := requestcontext.UserID(ctx)

			var (
				result *models.RateLimitResult
				err    error
			)
			if userID.IsNil() {
				result, err = m.limiter.CheckIP(ctx, ip, class)
			} else {
				result, err = m.limiter.CheckBoth(ctx, ip, userID.String(), class)
			}
			if err != nil {
				m.logger.WarnContext(ctx, "rate limit check failed, allowing request",
					"class", class, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
				httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "rate limit exceeded"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
