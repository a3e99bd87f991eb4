package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"shahid/internal/audit"
	"shahid/internal/identity/models"
	"shahid/internal/identity/store/user"
	dErrors "shahid/pkg/domain-errors"
	"shahid/pkg/requestcontext"
)

type stubTokens struct{}

func (stubTokens) Issue(u *models.User, now time.Time) (string, error) { return "token-" + u.Username, nil }
func (stubTokens) Revoke(ctx context.Context, jti string) error        { return nil }

type recordingPublisher struct {
	mu     sync.Mutex
	events []audit.Event
}

func (p *recordingPublisher) Emit(ctx context.Context, event audit.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) actions() []audit.Action {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]audit.Action, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Action)
	}
	return out
}

type fakeLockout struct {
	mu       sync.Mutex
	failures map[string]int
	locked   map[string]bool
}

func newFakeLockout() *fakeLockout {
	return &fakeLockout{failures: map[string]int{}, locked: map[string]bool{}}
}

func (f *fakeLockout) Check(ctx context.Context, identifier string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locked[identifier] {
		return dErrors.New(dErrors.CodeRateLimited, "account temporarily locked")
	}
	return nil
}

func (f *fakeLockout) RecordFailure(ctx context.Context, identifier string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[identifier]++
	return nil
}

func (f *fakeLockout) Reset(ctx context.Context, identifier string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[identifier] = 0
	return nil
}

type IdentityServiceSuite struct {
	suite.Suite
	svc       *Service
	users     *user.MemoryStore
	publisher *recordingPublisher
	lockout   *fakeLockout
	ctx       context.Context
}

func (s *IdentityServiceSuite) SetupTest() {
	s.users = user.NewMemoryStore()
	s.publisher = &recordingPublisher{}
	s.lockout = newFakeLockout()
	s.svc = New(s.users, stubTokens{},
		WithAuditPublisher(s.publisher),
		WithLockoutGuard(s.lockout),
		WithBcryptCost(bcrypt.MinCost),
	)
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
}

func TestIdentityServiceSuite(t *testing.T) {
	suite.Run(t, new(IdentityServiceSuite))
}

func (s *IdentityServiceSuite) register(username string) *models.User {
	u, err := s.svc.Register(s.ctx, username, username+"@example.org", "correct-horse")
	s.Require().NoError(err)
	return u
}

func (s *IdentityServiceSuite) asAdmin() context.Context {
	admin, err := s.users.FindByUsername(s.ctx, "the-admin")
	if err != nil {
		admin = s.register("the-admin")
		_, err = s.users.Execute(s.ctx, admin.ID,
			func(*models.User) error { return nil },
			func(u *models.User) { u.Role = models.RoleAdmin },
		)
		s.Require().NoError(err)
	}
	return requestcontext.WithUserID(s.ctx, admin.ID)
}

func (s *IdentityServiceSuite) TestRegister() {
	s.Run("creates normal user", func() {
		u := s.register("fresh")
		s.Equal(models.RoleNormal, u.Role)
		s.False(u.IdentityConfirmed)
	})

	s.Run("rejects short password", func() {
		_, err := s.svc.Register(s.ctx, "shorty", "", "tiny")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects duplicate username", func() {
		s.register("taken")
		_, err := s.svc.Register(s.ctx, "taken", "", "correct-horse")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("rejects duplicate email", func() {
		s.register("original")
		_, err := s.svc.Register(s.ctx, "copycat", "original@example.org", "correct-horse")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *IdentityServiceSuite) TestAuthenticate() {
	s.Run("issues token on success", func() {
		s.register("login-ok")
		result, err := s.svc.Authenticate(s.ctx, "login-ok", "correct-horse")
		s.Require().NoError(err)
		s.Equal("token-login-ok", result.Token)
	})

	s.Run("wrong password records failure and hides cause", func() {
		s.register("login-bad")
		_, err := s.svc.Authenticate(s.ctx, "login-bad", "wrong")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.Equal(1, s.lockout.failures["login-bad"])
		s.Contains(s.publisher.actions(), audit.ActionAuthFailed)
	})

	s.Run("unknown user gets the same error as wrong password", func() {
		_, badUser := s.svc.Authenticate(s.ctx, "ghost", "whatever")
		s.register("real-user")
		_, badPass := s.svc.Authenticate(s.ctx, "real-user", "wrong")
		s.Require().Error(badUser)
		s.Require().Error(badPass)
		s.Equal(badUser.Error(), badPass.Error())
	})

	s.Run("banned user cannot log in", func() {
		u := s.register("banned-user")
		adminCtx := s.asAdmin()
		_, err := s.svc.Ban(adminCtx, u.ID, "spam")
		s.Require().NoError(err)

		_, err = s.svc.Authenticate(s.ctx, "banned-user", "correct-horse")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("locked identifier is rejected before password check", func() {
		s.register("locked-user")
		s.lockout.locked["locked-user"] = true
		_, err := s.svc.Authenticate(s.ctx, "locked-user", "correct-horse")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeRateLimited))
	})

	s.Run("success resets the failure count", func() {
		s.register("resilient")
		_, _ = s.svc.Authenticate(s.ctx, "resilient", "wrong")
		s.Equal(1, s.lockout.failures["resilient"])

		_, err := s.svc.Authenticate(s.ctx, "resilient", "correct-horse")
		s.Require().NoError(err)
		s.Equal(0, s.lockout.failures["resilient"])
	})
}

func (s *IdentityServiceSuite) TestChangePassword() {
	u := s.register("rotator")

	err := s.svc.ChangePassword(s.ctx, u.ID, "wrong", "brand-new-pass")
	s.Require().True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	s.Require().NoError(s.svc.ChangePassword(s.ctx, u.ID, "correct-horse", "brand-new-pass"))

	_, err = s.svc.Authenticate(s.ctx, "rotator", "brand-new-pass")
	s.Require().NoError(err)
}

func (s *IdentityServiceSuite) TestAdminOperations() {
	s.Run("role change is audited with previous role", func() {
		u := s.register("promotee")
		adminCtx := s.asAdmin()

		updated, err := s.svc.ChangeRole(adminCtx, u.ID, "journalist")
		s.Require().NoError(err)
		s.Equal(models.RoleJournalist, updated.Role)

		last := s.publisher.events[len(s.publisher.events)-1]
		s.Equal(audit.ActionRoleChange, last.Action)
		s.Equal("normal", last.Metadata["from"])
		s.Equal("journalist", last.Metadata["to"])
	})

	s.Run("setting the same role conflicts", func() {
		u := s.register("stagnant")
		adminCtx := s.asAdmin()
		_, err := s.svc.ChangeRole(adminCtx, u.ID, "normal")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("ban requires a reason", func() {
		u := s.register("no-reason")
		adminCtx := s.asAdmin()
		_, err := s.svc.Ban(adminCtx, u.ID, "")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("ban then unban round-trips", func() {
		u := s.register("bounce")
		adminCtx := s.asAdmin()

		banned, err := s.svc.Ban(adminCtx, u.ID, "incitement")
		s.Require().NoError(err)
		s.True(banned.Banned)
		s.Require().NotNil(banned.BannedBy)
		s.Equal(requestcontext.UserID(adminCtx), *banned.BannedBy)

		unbanned, err := s.svc.Unban(adminCtx, u.ID)
		s.Require().NoError(err)
		s.False(unbanned.Banned)
		s.Empty(unbanned.BanReason)
		s.Nil(unbanned.BannedBy)
	})

	s.Run("admin cannot delete themselves", func() {
		adminCtx := s.asAdmin()
		err := s.svc.DeleteUser(adminCtx, requestcontext.UserID(adminCtx))
		s.Require().True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("confirm identity is idempotent-checked", func() {
		u := s.register("confirmee")
		adminCtx := s.asAdmin()

		confirmed, err := s.svc.ConfirmIdentity(adminCtx, u.ID)
		s.Require().NoError(err)
		s.True(confirmed.IdentityConfirmed)

		_, err = s.svc.ConfirmIdentity(adminCtx, u.ID)
		s.Require().True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *IdentityServiceSuite) TestListUsersFilters() {
	adminCtx := s.asAdmin()
	reporter := s.register("list-reporter")
	_, err := s.svc.ChangeRole(adminCtx, reporter.ID, "journalist")
	s.Require().NoError(err)

	outcast := s.register("list-outcast")
	_, err = s.svc.Ban(adminCtx, outcast.ID, "spam")
	s.Require().NoError(err)

	s.Run("filters by role", func() {
		users, err := s.svc.ListUsers(adminCtx, UserFilter{Role: "journalist"})
		s.Require().NoError(err)
		s.Require().Len(users, 1)
		s.Equal("list-reporter", users[0].Username)
	})

	s.Run("filters by ban state", func() {
		banned := true
		users, err := s.svc.ListUsers(adminCtx, UserFilter{Banned: &banned})
		s.Require().NoError(err)
		s.Require().Len(users, 1)
		s.Equal("list-outcast", users[0].Username)
	})

	s.Run("rejects unknown role", func() {
		_, err := s.svc.ListUsers(adminCtx, UserFilter{Role: "superuser"})
		s.Require().True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *IdentityServiceSuite) TestUpdateProfile() {
	u := s.register("biographer")
	ctx := requestcontext.WithUserID(s.ctx, u.ID)

	updated, err := s.svc.UpdateProfile(ctx, u.ID, "field reporter since 2011")
	s.Require().NoError(err)
	s.Equal("field reporter since 2011", updated.Bio)

	_, err = s.svc.UpdateProfile(ctx, u.ID, strings.Repeat("x", 2001))
	s.Require().True(dErrors.HasCode(err, dErrors.CodeValidation))
}
