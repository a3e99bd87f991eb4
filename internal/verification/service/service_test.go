package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"shahid/internal/audit"
	identitymodels "shahid/internal/identity/models"
	identitystore "shahid/internal/identity/store/user"
	"shahid/internal/verification/models"
	"shahid/internal/verification/store/request"
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

func (p *recordingPublisher) has(action audit.Action) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.events {
		if e.Action == action {
			return true
		}
	}
	return false
}

type VerificationSuite struct {
	suite.Suite
	svc       *Service
	users     *identitystore.MemoryStore
	publisher *recordingPublisher
	ctx       context.Context
}

func (s *VerificationSuite) SetupTest() {
	s.users = identitystore.NewMemoryStore()
	s.publisher = &recordingPublisher{}
	s.svc = New(
		request.NewMemoryStore(),
		s.users,
		WithAuditPublisher(s.publisher),
	)
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
}

func TestVerificationSuite(t *testing.T) {
	suite.Run(t, new(VerificationSuite))
}

func (s *VerificationSuite) newApplicant(username string, intended identitymodels.Role) *identitymodels.User {
	user, err := identitymodels.NewUser(id.NewUserID(), username, "", "hash", time.Now())
	s.Require().NoError(err)
	s.Require().NoError(user.ApplyDocument("uploads/documents/"+username+".pdf", intended, time.Now()))
	s.Require().NoError(s.users.Create(s.ctx, user))
	return user
}

func (s *VerificationSuite) newAdmin(username string) *identitymodels.User {
	user, err := identitymodels.NewUser(id.NewUserID(), username, "", "hash", time.Now())
	s.Require().NoError(err)
	user.Role = identitymodels.RoleAdmin
	s.Require().NoError(s.users.Create(s.ctx, user))
	return user
}

func (s *VerificationSuite) as(user *identitymodels.User) context.Context {
	ctx := requestcontext.WithUserID(s.ctx, user.ID)
	return requestcontext.WithRole(ctx, string(user.Role))
}

func (s *VerificationSuite) TestSubmit() {
	s.Run("defaults to the intended role from the upload", func() {
		applicant := s.newApplicant("reporter", identitymodels.RoleJournalist)
		req, err := s.svc.Submit(s.as(applicant), "", "I cover the northern region.")
		s.Require().NoError(err)
		s.Equal("journalist", req.RequestedRole)
		s.Equal(models.StatusPending, req.Status)
		s.Equal(applicant.UIDDocumentPath, req.DocumentPath)
	})

	s.Run("rejects a second open request", func() {
		applicant := s.newApplicant("eager", identitymodels.RoleJournalist)
		_, err := s.svc.Submit(s.as(applicant), "", "")
		s.Require().NoError(err)

		_, err = s.svc.Submit(s.as(applicant), "", "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("requires an uploaded document", func() {
		user, err := identitymodels.NewUser(id.NewUserID(), "undocumented", "", "hash", time.Now())
		s.Require().NoError(err)
		s.Require().NoError(s.users.Create(s.ctx, user))

		_, err = s.svc.Submit(s.as(user), "journalist", "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("rejects the admin role", func() {
		applicant := s.newApplicant("ambitious", identitymodels.RolePolitician)
		_, err := s.svc.Submit(s.as(applicant), "admin", "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("rejects a role the user already holds", func() {
		applicant := s.newApplicant("already", identitymodels.RoleJournalist)
		_, err := s.users.Execute(s.ctx, applicant.ID,
			func(u *identitymodels.User) error { return nil },
			func(u *identitymodels.User) { u.ApplyRole(identitymodels.RoleJournalist, time.Now()) },
		)
		s.Require().NoError(err)

		_, err = s.svc.Submit(s.as(applicant), "journalist", "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *VerificationSuite) TestReviewLifecycle() {
	applicant := s.newApplicant("hopeful", identitymodels.RoleJournalist)
	admin := s.newAdmin("reviewer")

	req, err := s.svc.Submit(s.as(applicant), "", "")
	s.Require().NoError(err)

	s.Run("pending enters review", func() {
		reviewed, err := s.svc.StartReview(s.as(admin), req.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusUnderReview, reviewed.Status)
	})

	s.Run("review cannot start twice", func() {
		_, err := s.svc.StartReview(s.as(admin), req.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("approval promotes the applicant", func() {
		decided, err := s.svc.Decide(s.as(admin), req.ID, true, "credentials check out")
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, decided.Status)
		s.Require().NotNil(decided.HandledBy)
		s.Equal(admin.ID, *decided.HandledBy)

		promoted, err := s.users.FindByID(s.ctx, applicant.ID)
		s.Require().NoError(err)
		s.Equal(identitymodels.RoleJournalist, promoted.Role)
		s.True(promoted.IdentityConfirmed)

		s.True(s.publisher.has(audit.ActionVerificationHandled))
		s.True(s.publisher.has(audit.ActionRoleChange))
	})

	s.Run("decided requests stay decided", func() {
		_, err := s.svc.Decide(s.as(admin), req.ID, false, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *VerificationSuite) TestRejectionLeavesRoleUnchanged() {
	applicant := s.newApplicant("unlucky", identitymodels.RolePolitician)
	admin := s.newAdmin("strict")

	req, err := s.svc.Submit(s.as(applicant), "", "")
	s.Require().NoError(err)

	decided, err := s.svc.Decide(s.as(admin), req.ID, false, "document unreadable")
	s.Require().NoError(err)
	s.Equal(models.StatusRejected, decided.Status)
	s.Equal("document unreadable", decided.Note)

	unchanged, err := s.users.FindByID(s.ctx, applicant.ID)
	s.Require().NoError(err)
	s.Equal(identitymodels.RoleNormal, unchanged.Role)
	s.False(unchanged.IdentityConfirmed)

	s.Run("a rejected applicant may reapply", func() {
		_, err := s.svc.Submit(s.as(applicant), "", "second attempt")
		s.Require().NoError(err)
	})
}

func (s *VerificationSuite) TestFailedPromotionReopensRequest() {
	applicant := s.newApplicant("doomed", identitymodels.RoleJournalist)
	admin := s.newAdmin("careful")

	req, err := s.svc.Submit(s.as(applicant), "", "")
	s.Require().NoError(err)
	_, err = s.svc.StartReview(s.as(admin), req.ID)
	s.Require().NoError(err)

	// The applicant is banned between the review and the decision.
	_, err = s.users.Execute(s.ctx, applicant.ID,
		func(u *identitymodels.User) error { return nil },
		func(u *identitymodels.User) { u.ApplyBan("spam", admin.ID, time.Now()) },
	)
	s.Require().NoError(err)

	_, err = s.svc.Decide(s.as(admin), req.ID, true, "looks fine")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	s.Run("the request stays open", func() {
		got, err := s.svc.GetRequest(s.as(admin), req.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusUnderReview, got.Status)
		s.Nil(got.HandledBy)
		s.Nil(got.HandledAt)
	})

	s.Run("the applicant was not promoted", func() {
		user, err := s.users.FindByID(s.ctx, applicant.ID)
		s.Require().NoError(err)
		s.Equal(identitymodels.RoleNormal, user.Role)
		s.False(user.IdentityConfirmed)
	})

	s.Run("the decision can be retried after an unban", func() {
		_, err := s.users.Execute(s.ctx, applicant.ID,
			func(u *identitymodels.User) error { return nil },
			func(u *identitymodels.User) { u.ApplyUnban(time.Now()) },
		)
		s.Require().NoError(err)

		decided, err := s.svc.Decide(s.as(admin), req.ID, true, "looks fine")
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, decided.Status)

		promoted, err := s.users.FindByID(s.ctx, applicant.ID)
		s.Require().NoError(err)
		s.Equal(identitymodels.RoleJournalist, promoted.Role)
	})
}

func (s *VerificationSuite) TestVisibility() {
	applicant := s.newApplicant("private", identitymodels.RoleJournalist)
	stranger := s.newApplicant("nosy", identitymodels.RoleJournalist)
	admin := s.newAdmin("overseer")

	req, err := s.svc.Submit(s.as(applicant), "", "")
	s.Require().NoError(err)

	s.Run("owner sees their request", func() {
		got, err := s.svc.GetRequest(s.as(applicant), req.ID)
		s.Require().NoError(err)
		s.Equal(req.ID, got.ID)
	})

	s.Run("stranger gets not found", func() {
		_, err := s.svc.GetRequest(s.as(stranger), req.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("admin sees the queue", func() {
		got, err := s.svc.GetRequest(s.as(admin), req.ID)
		s.Require().NoError(err)
		s.Equal(req.ID, got.ID)

		queue, err := s.svc.ListRequests(s.as(admin), "pending", 10, 0)
		s.Require().NoError(err)
		s.Require().Len(queue, 1)
	})

	s.Run("unknown status filter is rejected", func() {
		_, err := s.svc.ListRequests(s.as(admin), "bogus", 10, 0)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}
