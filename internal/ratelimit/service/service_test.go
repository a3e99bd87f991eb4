package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"shahid/internal/audit"
	"shahid/internal/platform/config"
	"shahid/internal/ratelimit/models"
	"shahid/internal/ratelimit/store/bucket"
	"shahid/internal/ratelimit/store/ipban"
	"shahid/internal/ratelimit/store/lockout"
	id "shahid/pkg/domain"
	dErrors "shahid/pkg/domain-errors"
	"shahid/pkg/requestcontext"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []audit.Event
}

func (p *recordingPublisher) Emit(ctx context.Context, event audit.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) count(action audit.Action) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Action == action {
			n++
		}
	}
	return n
}

func (p *recordingPublisher) last(action audit.Action) (audit.Event, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.events) - 1; i >= 0; i-- {
		if p.events[i].Action == action {
			return p.events[i], true
		}
	}
	return audit.Event{}, false
}

type RateLimitSuite struct {
	suite.Suite
	svc       *Service
	cfg       config.RateLimitConfig
	publisher *recordingPublisher
	ctx       context.Context
}

func (s *RateLimitSuite) SetupTest() {
	s.cfg = config.RateLimitConfig{
		Enabled:            true,
		AuthPerMinute:      3,
		SensitivePerMinute: 5,
		ReadPerMinute:      10,
		WritePerMinute:     5,
		FailureWindow:      time.Hour,
		CaptchaAfter:       3,
		LockoutAfter:       5,
		LockoutTTL:         15 * time.Minute,
	}
	s.publisher = &recordingPublisher{}
	s.svc = New(
		bucket.NewMemoryStore(),
		lockout.NewMemoryStore(),
		ipban.NewMemoryStore(),
		s.cfg,
		WithAuditPublisher(s.publisher),
	)
	s.ctx = requestcontext.WithClientMetadata(context.Background(), "203.0.113.7", "test")
}

func TestRateLimitSuite(t *testing.T) {
	suite.Run(t, new(RateLimitSuite))
}

func (s *RateLimitSuite) TestRequestLimits() {
	s.Run("allows up to the class budget then denies", func() {
		for i := 0; i < s.cfg.AuthPerMinute; i++ {
			result, err := s.svc.CheckIP(s.ctx, "198.51.100.1", models.ClassAuth)
			s.Require().NoError(err)
			s.True(result.Allowed)
			s.Equal(s.cfg.AuthPerMinute, result.Limit)
		}

		result, err := s.svc.CheckIP(s.ctx, "198.51.100.1", models.ClassAuth)
		s.Require().NoError(err)
		s.False(result.Allowed)
		s.Zero(result.Remaining)
		s.Positive(result.RetryAfter)
		s.Equal(1, s.publisher.count(audit.ActionRateLimitExceeded))
	})

	s.Run("buckets are independent per class and identifier", func() {
		for i := 0; i < s.cfg.AuthPerMinute; i++ {
			_, err := s.svc.CheckIP(s.ctx, "198.51.100.2", models.ClassAuth)
			s.Require().NoError(err)
		}

		result, err := s.svc.CheckIP(s.ctx, "198.51.100.2", models.ClassRead)
		s.Require().NoError(err)
		s.True(result.Allowed)

		result, err = s.svc.CheckIP(s.ctx, "198.51.100.3", models.ClassAuth)
		s.Require().NoError(err)
		s.True(result.Allowed)
	})

	s.Run("checking both returns the tighter budget", func() {
		userID := id.NewUserID().String()
		result, err := s.svc.CheckBoth(s.ctx, "198.51.100.4", userID, models.ClassWrite)
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(s.cfg.WritePerMinute-1, result.Remaining)
	})

	s.Run("exhausted user budget denies even with ip budget left", func() {
		userID := id.NewUserID().String()
		for i := 0; i < s.cfg.WritePerMinute; i++ {
			_, err := s.svc.CheckBoth(s.ctx, "198.51.100.5", userID, models.ClassWrite)
			s.Require().NoError(err)
		}

		// Fresh IP, same user.
		result, err := s.svc.CheckBoth(s.ctx, "198.51.100.6", userID, models.ClassWrite)
		s.Require().NoError(err)
		s.False(result.Allowed)
	})

	s.Run("reset restores the budget", func() {
		for i := 0; i < s.cfg.AuthPerMinute; i++ {
			_, err := s.svc.CheckIP(s.ctx, "198.51.100.7", models.ClassAuth)
			s.Require().NoError(err)
		}
		s.Require().NoError(s.svc.ResetLimits(s.ctx, "198.51.100.7", ""))

		result, err := s.svc.CheckIP(s.ctx, "198.51.100.7", models.ClassAuth)
		s.Require().NoError(err)
		s.True(result.Allowed)
	})

	s.Run("rejects an unknown class", func() {
		_, err := s.svc.CheckIP(s.ctx, "198.51.100.8", models.EndpointClass("bogus"))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *RateLimitSuite) TestAuthLockout() {
	s.Run("captcha flag rises before the hard lock", func() {
		for i := 0; i < s.cfg.CaptchaAfter; i++ {
			s.Require().NoError(s.svc.RecordFailure(s.ctx, "victim"))
		}

		state, err := s.svc.LockoutState(s.ctx, "victim")
		s.Require().NoError(err)
		s.True(state.Allowed)
		s.True(state.RequiresCaptcha)
		s.Equal(s.cfg.CaptchaAfter, state.FailureCount)
		s.NoError(s.svc.Check(s.ctx, "victim"))
	})

	s.Run("crossing the lockout threshold locks and audits", func() {
		for i := 0; i < s.cfg.LockoutAfter; i++ {
			s.Require().NoError(s.svc.RecordFailure(s.ctx, "bruteforced"))
		}

		err := s.svc.Check(s.ctx, "bruteforced")
		s.True(dErrors.HasCode(err, dErrors.CodeRateLimited))
		s.Equal(1, s.publisher.count(audit.ActionLockoutTriggered))

		event, ok := s.publisher.last(audit.ActionLockoutTriggered)
		s.Require().True(ok)
		s.Equal("bruteforced", event.Metadata["identifier"])
		s.Equal("5", event.Metadata["failures"])
		s.NotEmpty(event.Metadata["locked_until"])

		state, stateErr := s.svc.LockoutState(s.ctx, "bruteforced")
		s.Require().NoError(stateErr)
		s.False(state.Allowed)
		s.Positive(state.RetryAfter)
	})

	s.Run("failures from another address do not lock the victim", func() {
		for i := 0; i < s.cfg.LockoutAfter; i++ {
			s.Require().NoError(s.svc.RecordFailure(s.ctx, "targeted"))
		}

		otherIP := requestcontext.WithClientMetadata(context.Background(), "203.0.113.99", "test")
		s.NoError(s.svc.Check(otherIP, "targeted"))
	})

	s.Run("reset clears the failure history", func() {
		for i := 0; i < s.cfg.LockoutAfter; i++ {
			s.Require().NoError(s.svc.RecordFailure(s.ctx, "recovered"))
		}
		s.Require().NoError(s.svc.Reset(s.ctx, "recovered"))

		s.NoError(s.svc.Check(s.ctx, "recovered"))
		state, err := s.svc.LockoutState(s.ctx, "recovered")
		s.Require().NoError(err)
		s.True(state.Allowed)
		s.Zero(state.FailureCount)
	})

	s.Run("the window restarts after it expires", func() {
		past := requestcontext.WithTime(s.ctx, time.Now().Add(-2*time.Hour))
		s.Require().NoError(s.svc.RecordFailure(past, "patient"))
		s.Require().NoError(s.svc.RecordFailure(past, "patient"))

		s.Require().NoError(s.svc.RecordFailure(s.ctx, "patient"))
		state, err := s.svc.LockoutState(s.ctx, "patient")
		s.Require().NoError(err)
		s.Equal(1, state.FailureCount)
	})
}

func (s *RateLimitSuite) TestIPBans() {
	admin := id.NewUserID()
	adminCtx := requestcontext.WithUserID(s.ctx, admin)

	s.Run("banning an address rejects it and audits", func() {
		ban, err := s.svc.BanIP(adminCtx, "192.0.2.1", "scraping")
		s.Require().NoError(err)
		s.Equal(admin, ban.BannedBy)
		s.Equal(1, s.publisher.count(audit.ActionIPBanned))

		event, ok := s.publisher.last(audit.ActionIPBanned)
		s.Require().True(ok)
		s.Equal(admin, event.ActorID)
		s.Equal("scraping", event.Reason)
		s.Equal("192.0.2.1", event.Metadata["banned_ip"])

		banned, err := s.svc.IsBanned(s.ctx, "192.0.2.1")
		s.Require().NoError(err)
		s.True(banned)
	})

	s.Run("double ban conflicts", func() {
		_, err := s.svc.BanIP(adminCtx, "192.0.2.2", "spam")
		s.Require().NoError(err)
		_, err = s.svc.BanIP(adminCtx, "192.0.2.2", "spam again")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("ban requires a reason", func() {
		_, err := s.svc.BanIP(adminCtx, "192.0.2.3", "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unban lifts the block", func() {
		_, err := s.svc.BanIP(adminCtx, "192.0.2.4", "temporary")
		s.Require().NoError(err)
		s.Require().NoError(s.svc.UnbanIP(adminCtx, "192.0.2.4"))

		banned, err := s.svc.IsBanned(s.ctx, "192.0.2.4")
		s.Require().NoError(err)
		s.False(banned)
		s.Equal(1, s.publisher.count(audit.ActionIPUnbanned))
	})

	s.Run("unban of an unknown address is not found", func() {
		err := s.svc.UnbanIP(adminCtx, "192.0.2.200")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("list returns active bans", func() {
		_, err := s.svc.BanIP(adminCtx, "192.0.2.5", "abuse")
		s.Require().NoError(err)
		bans, err := s.svc.ListBans(adminCtx)
		s.Require().NoError(err)
		s.NotEmpty(bans)
	})
}
