//go:build integration

package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"shahid/internal/identity/models"
	id "shahid/pkg/domain"
	"shahid/pkg/platform/sentinel"
	"shahid/pkg/testutil/containers"
)

type PostgresUserSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *PostgresStore
	ctx   context.Context
}

func TestPostgresUserSuite(t *testing.T) {
	suite.Run(t, new(PostgresUserSuite))
}

func (s *PostgresUserSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = NewPostgresStore(s.pg.Pool)
	s.ctx = context.Background()
}

func (s *PostgresUserSuite) SetupTest() {
	_, err := s.pg.Pool.Exec(s.ctx, `TRUNCATE users CASCADE`)
	s.Require().NoError(err)
}

func (s *PostgresUserSuite) newUser(username string) *models.User {
	u, err := models.NewUser(id.NewUserID(), username, username+"@example.org", "x", time.Now().UTC())
	s.Require().NoError(err)
	return u
}

func (s *PostgresUserSuite) TestCreateAndFind() {
	u := s.newUser("reporter")
	s.Require().NoError(s.store.Create(s.ctx, u))

	found, err := s.store.FindByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(u.Username, found.Username)
	s.Equal(u.Role, found.Role)

	// Username lookup is case insensitive.
	found, err = s.store.FindByUsername(s.ctx, "REPORTER")
	s.Require().NoError(err)
	s.Equal(u.ID, found.ID)
}

func (s *PostgresUserSuite) TestDuplicateUsernameConflicts() {
	s.Require().NoError(s.store.Create(s.ctx, s.newUser("taken")))

	err := s.store.Create(s.ctx, s.newUser("taken"))
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresUserSuite) TestDuplicateEmailConflicts() {
	s.Require().NoError(s.store.Create(s.ctx, s.newUser("claimed")))

	dupe := s.newUser("another")
	dupe.Email = "Claimed@example.org"
	err := s.store.Create(s.ctx, dupe)
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresUserSuite) TestExecutePersistsMutation() {
	u := s.newUser("promotee")
	s.Require().NoError(s.store.Create(s.ctx, u))

	now := time.Now().UTC()
	updated, err := s.store.Execute(s.ctx, u.ID,
		func(*models.User) error { return nil },
		func(usr *models.User) { usr.ApplyRole(models.RoleJournalist, now) },
	)
	s.Require().NoError(err)
	s.Equal(models.RoleJournalist, updated.Role)

	found, err := s.store.FindByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(models.RoleJournalist, found.Role)
}

func (s *PostgresUserSuite) TestExecuteValidationRollsBack() {
	u := s.newUser("frozen")
	s.Require().NoError(s.store.Create(s.ctx, u))

	wantErr := errors.New("rejected")
	_, err := s.store.Execute(s.ctx, u.ID,
		func(*models.User) error { return wantErr },
		func(usr *models.User) { usr.ApplyRole(models.RoleAdmin, time.Now().UTC()) },
	)
	s.ErrorIs(err, wantErr)

	found, err := s.store.FindByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(models.RoleNormal, found.Role)
}

func (s *PostgresUserSuite) TestDeleteAndCount() {
	u := s.newUser("ephemeral")
	s.Require().NoError(s.store.Create(s.ctx, u))

	count, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, count)

	s.Require().NoError(s.store.Delete(s.ctx, u.ID))

	_, err = s.store.FindByID(s.ctx, u.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.ErrorIs(s.store.Delete(s.ctx, u.ID), sentinel.ErrNotFound)
}

func (s *PostgresUserSuite) TestListPagination() {
	for _, name := range []string{"a1", "a2", "a3"} {
		s.Require().NoError(s.store.Create(s.ctx, s.newUser(name)))
	}

	page, err := s.store.List(s.ctx, ListFilter{Limit: 2})
	s.Require().NoError(err)
	s.Len(page, 2)

	rest, err := s.store.List(s.ctx, ListFilter{Limit: 2, Offset: 2})
	s.Require().NoError(err)
	s.Len(rest, 1)

	banned := s.newUser("a4")
	banned.ApplyBan("spam", id.NewUserID(), time.Now().UTC())
	s.Require().NoError(s.store.Create(s.ctx, banned))

	isBanned := true
	byBan, err := s.store.List(s.ctx, ListFilter{Banned: &isBanned, Limit: 10})
	s.Require().NoError(err)
	s.Require().Len(byBan, 1)
	s.Equal("a4", byBan[0].Username)
}
