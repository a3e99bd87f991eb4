package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	contentmodels "shahid/internal/content/models"
	"shahid/internal/content/store/post"
	"shahid/internal/search"
	id "shahid/pkg/domain"
)

type RebuildSuite struct {
	suite.Suite
	posts *post.MemoryStore
	index *search.Index
	ctx   context.Context
}

func TestRebuildSuite(t *testing.T) {
	suite.Run(t, new(RebuildSuite))
}

func (s *RebuildSuite) SetupTest() {
	s.posts = post.NewMemoryStore()
	index, err := search.New("", slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.Require().NoError(err)
	s.index = index
	s.ctx = context.Background()
}

func (s *RebuildSuite) TearDownTest() {
	s.Require().NoError(s.index.Close())
}

func (s *RebuildSuite) storePost(title string, status contentmodels.PostStatus) {
	p, err := contentmodels.NewPost(id.NewPostID(), id.NewUserID(), title, "Documented incident near the crossing.", time.Now())
	s.Require().NoError(err)
	p.Status = status
	s.Require().NoError(s.posts.Create(s.ctx, p))
}

// Indexing on boot must cover every approved post, not just the first store
// page.
func (s *RebuildSuite) TestRebuildIndexesAllApprovedPosts() {
	for i := 0; i < 60; i++ {
		s.storePost(fmt.Sprintf("Report %d", i), contentmodels.StatusApproved)
	}
	s.storePost("Unreviewed report", contentmodels.StatusPendingReview)

	s.Require().NoError(rebuildSearchIndex(s.ctx, s.posts, s.index))

	results, err := s.index.Search(s.ctx, "incident", 100)
	s.Require().NoError(err)
	s.Len(results, 60)
}
