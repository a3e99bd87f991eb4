package search

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"shahid/internal/content/models"
	id "shahid/pkg/domain"
)

type SearchSuite struct {
	suite.Suite
	index *Index
	ctx   context.Context
}

func (s *SearchSuite) SetupTest() {
	index, err := New("", slog.Default())
	s.Require().NoError(err)
	s.index = index
	s.ctx = context.Background()
}

func (s *SearchSuite) TearDownTest() {
	s.Require().NoError(s.index.Close())
}

func TestSearchSuite(t *testing.T) {
	suite.Run(t, new(SearchSuite))
}

func (s *SearchSuite) newPost(title, body string) *models.Post {
	p, err := models.NewPost(id.NewPostID(), id.NewUserID(), title, body, time.Now())
	s.Require().NoError(err)
	p.Status = models.StatusApproved
	return p
}

func (s *SearchSuite) TestIndexAndSearch() {
	hospital := s.newPost("Hospital shelling documented", "Video evidence of the strike on the hospital.")
	market := s.newPost("Market reopens", "The central market reopened after repairs.")
	s.Require().NoError(s.index.IndexPost(hospital))
	s.Require().NoError(s.index.IndexPost(market))

	results, err := s.index.Search(s.ctx, "hospital", 10)
	s.Require().NoError(err)
	s.Require().Len(results, 1)
	s.Equal(hospital.ID.String(), results[0].PostID)
	s.Equal("Hospital shelling documented", results[0].Title)
}

func (s *SearchSuite) TestTitleOutranksBody() {
	titleHit := s.newPost("Ceasefire announced", "Officials spoke to the press this morning.")
	bodyHit := s.newPost("Morning briefing", "Reports mention a possible ceasefire soon.")
	s.Require().NoError(s.index.IndexPost(titleHit))
	s.Require().NoError(s.index.IndexPost(bodyHit))

	results, err := s.index.Search(s.ctx, "ceasefire", 10)
	s.Require().NoError(err)
	s.Require().Len(results, 2)
	s.Equal(titleHit.ID.String(), results[0].PostID)
}

func (s *SearchSuite) TestFuzzyFallback() {
	p := s.newPost("Checkpoint closure near Idlib", "The northern checkpoint closed at dawn.")
	s.Require().NoError(s.index.IndexPost(p))

	results, err := s.index.Search(s.ctx, "checkpoint", 10)
	s.Require().NoError(err)
	s.Require().Len(results, 1)

	// One edit away still finds the document.
	results, err = s.index.Search(s.ctx, "chekpoint", 10)
	s.Require().NoError(err)
	s.Require().Len(results, 1)
	s.Equal(p.ID.String(), results[0].PostID)
}

func (s *SearchSuite) TestDeleteRemovesDocument() {
	p := s.newPost("Ephemeral report", "This will be withdrawn.")
	s.Require().NoError(s.index.IndexPost(p))
	s.Require().NoError(s.index.DeletePost(p.ID))

	results, err := s.index.Search(s.ctx, "ephemeral", 10)
	s.Require().NoError(err)
	s.Empty(results)
}

func (s *SearchSuite) TestRebuildSkipsUnapproved() {
	approved := s.newPost("Approved entry", "Visible content.")
	pending := s.newPost("Pending entry", "Hidden content.")
	pending.Status = models.StatusPendingReview

	s.Require().NoError(s.index.Rebuild([]*models.Post{approved, pending}))

	results, err := s.index.Search(s.ctx, "entry", 10)
	s.Require().NoError(err)
	s.Require().Len(results, 1)
	s.Equal(approved.ID.String(), results[0].PostID)
}
