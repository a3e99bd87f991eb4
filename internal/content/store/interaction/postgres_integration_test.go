//go:build integration

package interaction

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"shahid/internal/content/models"
	"shahid/internal/content/store/post"
	identitymodels "shahid/internal/identity/models"
	"shahid/internal/identity/store/user"
	id "shahid/pkg/domain"
	"shahid/pkg/platform/sentinel"
	"shahid/pkg/testutil/containers"
)

type PostgresInteractionSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *PostgresStore
	posts *post.PostgresStore
	users *user.PostgresStore
	ctx   context.Context
}

func TestPostgresInteractionSuite(t *testing.T) {
	suite.Run(t, new(PostgresInteractionSuite))
}

func (s *PostgresInteractionSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = NewPostgresStore(s.pg.Pool)
	s.posts = post.NewPostgresStore(s.pg.Pool)
	s.users = user.NewPostgresStore(s.pg.Pool)
	s.ctx = context.Background()
}

func (s *PostgresInteractionSuite) SetupTest() {
	_, err := s.pg.Pool.Exec(s.ctx, `TRUNCATE users CASCADE`)
	s.Require().NoError(err)
}

// seed creates the user and post rows the interaction foreign keys need.
func (s *PostgresInteractionSuite) seed(username string) (id.PostID, id.UserID) {
	now := time.Now().UTC()
	u, err := identitymodels.NewUser(id.NewUserID(), username, username+"@example.org", "x", now)
	s.Require().NoError(err)
	s.Require().NoError(s.users.Create(s.ctx, u))

	p, err := models.NewPost(id.NewPostID(), u.ID, "Seeded report", "Body text for the seeded report.", now)
	s.Require().NoError(err)
	s.Require().NoError(s.posts.Create(s.ctx, p))
	return p.ID, u.ID
}

func (s *PostgresInteractionSuite) TestConfirmationTypesAreIndependent() {
	postID, userID := s.seed("confirmer")
	now := time.Now().UTC()

	s.Require().NoError(s.store.AddConfirmation(s.ctx, models.Confirmation{
		PostID: postID, UserID: userID, Type: models.ConfirmJournalist, CreatedAt: now,
	}))

	// The same user may place the other type on the same post.
	s.Require().NoError(s.store.AddConfirmation(s.ctx, models.Confirmation{
		PostID: postID, UserID: userID, Type: models.ConfirmPolitician, CreatedAt: now,
	}))

	err := s.store.AddConfirmation(s.ctx, models.Confirmation{
		PostID: postID, UserID: userID, Type: models.ConfirmJournalist, CreatedAt: now,
	})
	s.Require().ErrorIs(err, sentinel.ErrConflict)

	confirmations, err := s.store.ListConfirmations(s.ctx, postID)
	s.Require().NoError(err)
	s.Len(confirmations, 2)
}

func (s *PostgresInteractionSuite) TestToggleLikeRoundTrip() {
	postID, userID := s.seed("liker")

	active, count, err := s.store.ToggleLike(s.ctx, postID, userID)
	s.Require().NoError(err)
	s.True(active)
	s.Equal(1, count)

	active, count, err = s.store.ToggleLike(s.ctx, postID, userID)
	s.Require().NoError(err)
	s.False(active)
	s.Equal(0, count)
}
