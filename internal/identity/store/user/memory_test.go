package user

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"shahid/internal/identity/models"
	id "shahid/pkg/domain"
	"shahid/pkg/platform/sentinel"
)

type UserStoreSuite struct {
	suite.Suite
	store *MemoryStore
	ctx   context.Context
}

func (s *UserStoreSuite) SetupTest() {
	s.store = NewMemoryStore()
	s.ctx = context.Background()
}

func TestUserStoreSuite(t *testing.T) {
	suite.Run(t, new(UserStoreSuite))
}

func (s *UserStoreSuite) newUser(username string) *models.User {
	user, err := models.NewUser(id.NewUserID(), username, username+"@example.org", "$2a$10$hash", time.Now())
	s.Require().NoError(err)
	return user
}

func (s *UserStoreSuite) TestCreationAndLookups() {
	s.Run("creates and finds user by ID", func() {
		user := s.newUser("samira")
		s.Require().NoError(s.store.Create(s.ctx, user))

		found, err := s.store.FindByID(s.ctx, user.ID)
		s.Require().NoError(err)
		s.Equal("samira", found.Username)
		s.Equal(models.RoleNormal, found.Role)
	})

	s.Run("finds by username case-insensitively", func() {
		user := s.newUser("Khaled")
		s.Require().NoError(s.store.Create(s.ctx, user))

		found, err := s.store.FindByUsername(s.ctx, "khaled")
		s.Require().NoError(err)
		s.Equal(user.ID, found.ID)
	})

	s.Run("returns ErrNotFound for unknown user", func() {
		_, err := s.store.FindByID(s.ctx, id.NewUserID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *UserStoreSuite) TestUsernameUniqueness() {
	s.Run("rejects duplicate username", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newUser("dupe")))

		err := s.store.Create(s.ctx, s.newUser("dupe"))
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("rejects duplicate differing only in case", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newUser("Casey")))

		err := s.store.Create(s.ctx, s.newUser("CASEY"))
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})
}

func (s *UserStoreSuite) TestEmailUniqueness() {
	s.Run("rejects duplicate email under a different username", func() {
		first := s.newUser("writer")
		s.Require().NoError(s.store.Create(s.ctx, first))

		second := s.newUser("impostor")
		second.Email = "writer@example.org"
		err := s.store.Create(s.ctx, second)
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("rejects duplicate differing only in case", func() {
		first := s.newUser("lower")
		s.Require().NoError(s.store.Create(s.ctx, first))

		second := s.newUser("upper")
		second.Email = "LOWER@EXAMPLE.ORG"
		err := s.store.Create(s.ctx, second)
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("accounts without an email do not collide", func() {
		first := s.newUser("quiet-one")
		first.Email = ""
		s.Require().NoError(s.store.Create(s.ctx, first))

		second := s.newUser("quiet-two")
		second.Email = ""
		s.Require().NoError(s.store.Create(s.ctx, second))
	})
}

func (s *UserStoreSuite) TestExecute() {
	s.Run("applies mutation under lock", func() {
		user := s.newUser("mutable")
		s.Require().NoError(s.store.Create(s.ctx, user))

		updated, err := s.store.Execute(s.ctx, user.ID,
			func(u *models.User) error { return u.CanChangeRole(models.RoleJournalist) },
			func(u *models.User) { u.ApplyRole(models.RoleJournalist, time.Now()) },
		)
		s.Require().NoError(err)
		s.Equal(models.RoleJournalist, updated.Role)

		found, err := s.store.FindByID(s.ctx, user.ID)
		s.Require().NoError(err)
		s.Equal(models.RoleJournalist, found.Role)
	})

	s.Run("validation failure leaves user unchanged", func() {
		user := s.newUser("immutable")
		s.Require().NoError(s.store.Create(s.ctx, user))

		_, err := s.store.Execute(s.ctx, user.ID,
			func(u *models.User) error { return u.CanChangeRole(models.RoleNormal) },
			func(u *models.User) { u.ApplyRole(models.RoleNormal, time.Now()) },
		)
		s.Require().Error(err)

		found, err := s.store.FindByID(s.ctx, user.ID)
		s.Require().NoError(err)
		s.Equal(models.RoleNormal, found.Role)
	})

	s.Run("returns ErrNotFound for unknown user", func() {
		_, err := s.store.Execute(s.ctx, id.NewUserID(),
			func(*models.User) error { return nil },
			func(*models.User) {},
		)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *UserStoreSuite) TestDeleteFreesUsernameAndEmail() {
	user := s.newUser("recyclable")
	s.Require().NoError(s.store.Create(s.ctx, user))
	s.Require().NoError(s.store.Delete(s.ctx, user.ID))

	_, err := s.store.FindByID(s.ctx, user.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	s.Require().NoError(s.store.Create(s.ctx, s.newUser("recyclable")))
}

func (s *UserStoreSuite) TestListPagination() {
	for _, name := range []string{"alpha", "beta", "gamma"} {
		u := s.newUser(name)
		u.CreatedAt = time.Now()
		s.Require().NoError(s.store.Create(s.ctx, u))
		time.Sleep(time.Millisecond)
	}

	page, err := s.store.List(s.ctx, ListFilter{Limit: 2})
	s.Require().NoError(err)
	s.Len(page, 2)

	rest, err := s.store.List(s.ctx, ListFilter{Limit: 2, Offset: 2})
	s.Require().NoError(err)
	s.Len(rest, 1)

	count, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(3, count)
}

func (s *UserStoreSuite) TestListFilters() {
	journalist := s.newUser("journalist")
	journalist.Role = models.RoleJournalist
	s.Require().NoError(s.store.Create(s.ctx, journalist))

	banned := s.newUser("banned")
	banned.ApplyBan("spam", id.NewUserID(), time.Now())
	s.Require().NoError(s.store.Create(s.ctx, banned))

	s.Require().NoError(s.store.Create(s.ctx, s.newUser("bystander")))

	role := models.RoleJournalist
	byRole, err := s.store.List(s.ctx, ListFilter{Role: &role, Limit: 10})
	s.Require().NoError(err)
	s.Require().Len(byRole, 1)
	s.Equal("journalist", byRole[0].Username)

	isBanned := true
	byBan, err := s.store.List(s.ctx, ListFilter{Banned: &isBanned, Limit: 10})
	s.Require().NoError(err)
	s.Require().Len(byBan, 1)
	s.Equal("banned", byBan[0].Username)
}
