package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"shahid/internal/audit"
	"shahid/internal/directory/models"
	"shahid/internal/directory/store/event"
	"shahid/internal/directory/store/person"
	identitymodels "shahid/internal/identity/models"
	identitystore "shahid/internal/identity/store/user"
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

type userDirectory struct {
	users *identitystore.MemoryStore
}

func (d userDirectory) GetUser(ctx context.Context, userID id.UserID) (*identitymodels.User, error) {
	return d.users.FindByID(ctx, userID)
}

type DirectorySuite struct {
	suite.Suite
	svc       *Service
	users     *identitystore.MemoryStore
	publisher *recordingPublisher
	ctx       context.Context
}

func (s *DirectorySuite) SetupTest() {
	s.users = identitystore.NewMemoryStore()
	s.publisher = &recordingPublisher{}
	s.svc = New(
		person.NewMemoryStore(),
		event.NewMemoryStore(),
		userDirectory{users: s.users},
		WithAuditPublisher(s.publisher),
	)
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
}

func TestDirectorySuite(t *testing.T) {
	suite.Run(t, new(DirectorySuite))
}

func (s *DirectorySuite) newUser(username string, role identitymodels.Role) *identitymodels.User {
	user, err := identitymodels.NewUser(id.NewUserID(), username, "", "hash", time.Now())
	s.Require().NoError(err)
	user.Role = role
	s.Require().NoError(s.users.Create(s.ctx, user))
	return user
}

func (s *DirectorySuite) as(user *identitymodels.User) context.Context {
	ctx := requestcontext.WithUserID(s.ctx, user.ID)
	return requestcontext.WithRole(ctx, string(user.Role))
}

func (s *DirectorySuite) TestPersonModeration() {
	citizen := s.newUser("citizen", identitymodels.RoleNormal)
	admin := s.newUser("curator", identitymodels.RoleAdmin)

	s.Run("user submissions wait for approval", func() {
		p, err := s.svc.CreatePerson(s.as(citizen), "Ahmad K.", "witness", "")
		s.Require().NoError(err)
		s.Equal(models.StatusPending, p.Status)

		visible, err := s.svc.ListPeople(s.as(citizen), "", "", 10, 0)
		s.Require().NoError(err)
		s.Empty(visible)

		queue, err := s.svc.ListPeople(s.as(admin), "pending", "", 10, 0)
		s.Require().NoError(err)
		s.Require().Len(queue, 1)
	})

	s.Run("admin submissions publish immediately", func() {
		p, err := s.svc.CreatePerson(s.as(admin), "Dr. Salim", "official", "")
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, p.Status)
	})

	s.Run("approval publishes and audits", func() {
		p, err := s.svc.CreatePerson(s.as(citizen), "Layla M.", "victim", "")
		s.Require().NoError(err)

		approved, err := s.svc.ApprovePerson(s.as(admin), p.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, approved.Status)
		s.True(s.publisher.has(audit.ActionPersonStatusChange))

		_, err = s.svc.ApprovePerson(s.as(admin), p.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("role change is audited", func() {
		p, err := s.svc.CreatePerson(s.as(admin), "Unknown Man", "other", "")
		s.Require().NoError(err)

		changed, err := s.svc.ChangePersonRole(s.as(admin), p.ID, "witness")
		s.Require().NoError(err)
		s.Equal(models.PersonWitness, changed.Role)
		s.True(s.publisher.has(audit.ActionPersonRoleChange))
	})

	s.Run("unknown role is rejected", func() {
		_, err := s.svc.CreatePerson(s.as(citizen), "Someone", "bystander", "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("delete removes the entry", func() {
		p, err := s.svc.CreatePerson(s.as(admin), "Temporary", "other", "")
		s.Require().NoError(err)
		s.Require().NoError(s.svc.DeletePerson(s.as(admin), p.ID))
		s.True(s.publisher.has(audit.ActionPersonDeleted))

		_, err = s.svc.GetPerson(s.as(admin), p.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *DirectorySuite) TestEventLifecycle() {
	citizen := s.newUser("organizer", identitymodels.RoleNormal)
	admin := s.newUser("chief", identitymodels.RoleAdmin)
	journalist := s.newUser("field-reporter", identitymodels.RoleJournalist)

	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	s.Run("user events queue, admin events publish", func() {
		pending, err := s.svc.CreateEvent(s.as(citizen), "Market shelling", "Strike on the central market.", date)
		s.Require().NoError(err)
		s.Equal(models.StatusPending, pending.Status)

		published, err := s.svc.CreateEvent(s.as(admin), "Hospital strike", "Documented attack.", date)
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, published.Status)
	})

	s.Run("approval audits", func() {
		e, err := s.svc.CreateEvent(s.as(citizen), "Checkpoint incident", "", date)
		s.Require().NoError(err)

		approved, err := s.svc.ApproveEvent(s.as(admin), e.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, approved.Status)
		s.True(s.publisher.has(audit.ActionEventStatusChange))
	})

	s.Run("journalists must hold the journalist role", func() {
		e, err := s.svc.CreateEvent(s.as(admin), "Prison visit", "", date)
		s.Require().NoError(err)

		_, err = s.svc.AssignJournalist(s.as(admin), e.ID, citizen.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))

		assigned, err := s.svc.AssignJournalist(s.as(admin), e.ID, journalist.ID)
		s.Require().NoError(err)
		s.True(assigned.HasJournalist(journalist.ID))

		_, err = s.svc.AssignJournalist(s.as(admin), e.ID, journalist.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("participants come from the directory", func() {
		e, err := s.svc.CreateEvent(s.as(admin), "Rally", "", date)
		s.Require().NoError(err)

		p, err := s.svc.CreatePerson(s.as(admin), "Witness A", "witness", "")
		s.Require().NoError(err)

		withParticipant, err := s.svc.AddParticipant(s.as(admin), e.ID, p.ID)
		s.Require().NoError(err)
		s.True(withParticipant.HasParticipant(p.ID))

		_, err = s.svc.AddParticipant(s.as(admin), e.ID, id.NewPersonID())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("pending events are hidden from strangers", func() {
		e, err := s.svc.CreateEvent(s.as(citizen), "Unreviewed", "", date)
		s.Require().NoError(err)

		stranger := s.newUser("stranger", identitymodels.RoleNormal)
		_, err = s.svc.GetEvent(s.as(stranger), e.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

		own, err := s.svc.GetEvent(s.as(citizen), e.ID)
		s.Require().NoError(err)
		s.Equal(e.ID, own.ID)
	})
}
