package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"shahid/internal/ratelimit/models"
	id "shahid/pkg/domain"
	"shahid/pkg/requestcontext"
)

type fakeLimiter struct {
	result *models.RateLimitResult
	err    error
	banned map[string]bool
	banErr error

	lastIP     string
	lastUserID string
	lastClass  models.EndpointClass
}

func (f *fakeLimiter) CheckIP(ctx context.Context, ip string, class models.EndpointClass) (*models.RateLimitResult, error) {
	f.lastIP, f.lastUserID, f.lastClass = ip, "", class
	return f.result, f.err
}

func (f *fakeLimiter) CheckBoth(ctx context.Context, ip, userID string, class models.EndpointClass) (*models.RateLimitResult, error) {
	f.lastIP, f.lastUserID, f.lastClass = ip, userID, class
	return f.result, f.err
}

func (f *fakeLimiter) IsBanned(ctx context.Context, ip string) (bool, error) {
	return f.banned[ip], f.banErr
}

type MiddlewareSuite struct {
	suite.Suite
	limiter *fakeLimiter
}

func (s *MiddlewareSuite) SetupTest() {
	s.limiter = &fakeLimiter{banned: map[string]bool{}}
}

func TestMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareSuite))
}

func (s *MiddlewareSuite) serve(h http.Handler, ctx context.Context) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/posts", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func (s *MiddlewareSuite) TestLimit() {
	ctx := requestcontext.WithClientMetadata(context.Background(), "203.0.113.1", "test")

	s.Run("sets rate limit headers on allowed requests", func() {
		s.limiter.result = &models.RateLimitResult{
			Allowed:   true,
			Limit:     100,
			Remaining: 99,
			ResetAt:   time.Now().Add(time.Minute),
		}
		mw := New(s.limiter)

		rec := s.serve(mw.Limit(models.ClassRead)(okHandler()), ctx)
		s.Equal(http.StatusOK, rec.Code)
		s.Equal("100", rec.Header().Get("X-RateLimit-Limit"))
		s.Equal("99", rec.Header().Get("X-RateLimit-Remaining"))
		s.NotEmpty(rec.Header().Get("X-RateLimit-Reset"))
		s.Equal("203.0.113.1", s.limiter.lastIP)
		s.Equal(models.ClassRead, s.limiter.lastClass)
	})

	s.Run("denied requests get 429 with retry-after", func() {
		s.limiter.result = &models.RateLimitResult{
			Allowed:    false,
			Limit:      100,
			Remaining:  0,
			ResetAt:    time.Now().Add(30 * time.Second),
			RetryAfter: 30,
		}
		mw := New(s.limiter)

		rec := s.serve(mw.Limit(models.ClassRead)(okHandler()), ctx)
		s.Equal(http.StatusTooManyRequests, rec.Code)
		s.Equal("30", rec.Header().Get("Retry-After"))
		s.Equal("0", rec.Header().Get("X-RateLimit-Remaining"))
	})

	s.Run("authenticated requests count against both buckets", func() {
		s.limiter.result = &models.RateLimitResult{Allowed: true, Limit: 50, Remaining: 49, ResetAt: time.Now()}
		mw := New(s.limiter)
		userID := id.NewUserID()
		authed := requestcontext.WithUserID(ctx, userID)

		rec := s.serve(mw.Limit(models.ClassWrite)(okHandler()), authed)
		s.Equal(http.StatusOK, rec.Code)
		s.Equal(userID.String(), s.limiter.lastUserID)
	})

	s.Run("limiter errors fail open", func() {
		s.limiter.result = nil
		s.limiter.err = errors.New("redis down")
		mw := New(s.limiter)

		rec := s.serve(mw.Limit(models.ClassRead)(okHandler()), ctx)
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("disabled middleware passes through", func() {
		s.limiter.err = errors.New("should not be called")
		mw := New(s.limiter, WithDisabled(true))

		rec := s.serve(mw.Limit(models.ClassAuth)(okHandler()), ctx)
		s.Equal(http.StatusOK, rec.Code)
		s.Empty(rec.Header().Get("X-RateLimit-Limit"))
	})
}

func (s *MiddlewareSuite) TestRejectBanned() {
	s.Run("banned addresses are rejected", func() {
		s.limiter.banned["203.0.113.66"] = true
		mw := New(s.limiter)
		ctx := requestcontext.WithClientMetadata(context.Background(), "203.0.113.66", "test")

		rec := s.serve(mw.RejectBanned(okHandler()), ctx)
		s.Equal(http.StatusForbidden, rec.Code)
	})

	s.Run("clean addresses pass", func() {
		mw := New(s.limiter)
		ctx := requestcontext.WithClientMetadata(context.Background(), "203.0.113.67", "test")

		rec := s.serve(mw.RejectBanned(okHandler()), ctx)
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("ban store errors fail open", func() {
		s.limiter.banErr = errors.New("db down")
		mw := New(s.limiter)
		ctx := requestcontext.WithClientMetadata(context.Background(), "203.0.113.68", "test")

		rec := s.serve(mw.RejectBanned(okHandler()), ctx)
		s.Equal(http.StatusOK, rec.Code)
	})
}
