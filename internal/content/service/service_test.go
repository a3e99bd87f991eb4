package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"shahid/internal/audit"
	"shahid/internal/content/models"
	"shahid/internal/content/screening"
	"shahid/internal/content/store/comment"
	"shahid/internal/content/store/interaction"
	"shahid/internal/content/store/post"
	"shahid/internal/content/store/report"
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

type fakeIndex struct {
	mu      sync.Mutex
	indexed map[id.PostID]bool
}

func (f *fakeIndex) IndexPost(p *models.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed[p.ID] = true
	return nil
}

func (f *fakeIndex) DeletePost(postID id.PostID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.indexed, postID)
	return nil
}

type ContentServiceSuite struct {
	suite.Suite
	svc       *Service
	users     *identitystore.MemoryStore
	publisher *recordingPublisher
	index     *fakeIndex
	ctx       context.Context
}

func (s *ContentServiceSuite) SetupTest() {
	s.users = identitystore.NewMemoryStore()
	s.publisher = &recordingPublisher{}
	s.index = &fakeIndex{indexed: make(map[id.PostID]bool)}

	screener, err := screening.New([]string{"blockedword"})
	s.Require().NoError(err)

	s.svc = New(
		post.NewMemoryStore(),
		interaction.NewMemoryStore(),
		report.NewMemoryStore(),
		comment.NewMemoryStore(),
		userDirectory{users: s.users},
		WithAuditPublisher(s.publisher),
		WithScreener(screener),
		WithSearchIndex(s.index),
		WithThresholds(3, 5),
	)
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
}

func TestContentServiceSuite(t *testing.T) {
	suite.Run(t, new(ContentServiceSuite))
}

func (s *ContentServiceSuite) newUser(username string, role identitymodels.Role, confirmed bool) *identitymodels.User {
	user, err := identitymodels.NewUser(id.NewUserID(), username, "", "hash", time.Now())
	s.Require().NoError(err)
	user.Role = role
	user.IdentityConfirmed = confirmed
	s.Require().NoError(s.users.Create(s.ctx, user))
	return user
}

func (s *ContentServiceSuite) as(user *identitymodels.User) context.Context {
	ctx := requestcontext.WithUserID(s.ctx, user.ID)
	return requestcontext.WithRole(ctx, string(user.Role))
}

func (s *ContentServiceSuite) approvedPost(author *identitymodels.User) *models.Post {
	p, err := s.svc.CreatePost(s.as(author), CreatePostInput{Title: "Documented incident", Body: "A detailed account of events."})
	s.Require().NoError(err)
	if !p.IsApproved() {
		admin := s.newUser("approver-"+author.Username, identitymodels.RoleAdmin, true)
		p, err = s.svc.SetStatus(s.as(admin), p.ID, "approved", "")
		s.Require().NoError(err)
	}
	return p
}

func (s *ContentServiceSuite) TestCreatePostModeration() {
	s.Run("normal user enters review", func() {
		author := s.newUser("citizen", identitymodels.RoleNormal, false)
		p, err := s.svc.CreatePost(s.as(author), CreatePostInput{Title: "Title", Body: "Something happened downtown today."})
		s.Require().NoError(err)
		s.Equal(models.StatusPendingReview, p.Status)
		s.False(p.Verified)
		s.False(s.index.indexed[p.ID])
	})

	s.Run("identity-confirmed user is auto-approved", func() {
		author := s.newUser("confirmed", identitymodels.RoleNormal, true)
		p, err := s.svc.CreatePost(s.as(author), CreatePostInput{Title: "Title", Body: "Report from a confirmed source."})
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, p.Status)
		s.False(p.Verified)
		s.True(s.index.indexed[p.ID])
	})

	s.Run("politician is approved and pre-verified", func() {
		author := s.newUser("official", identitymodels.RolePolitician, false)
		p, err := s.svc.CreatePost(s.as(author), CreatePostInput{Title: "Title", Body: "Official statement text."})
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, p.Status)
		s.True(p.Verified)
	})

	s.Run("blocked term forces review even for admins", func() {
		author := s.newUser("sysop", identitymodels.RoleAdmin, true)
		p, err := s.svc.CreatePost(s.as(author), CreatePostInput{Title: "Title", Body: "Contains blockedword in the body."})
		s.Require().NoError(err)
		s.Equal(models.StatusPendingReview, p.Status)
		s.True(p.Flagged)
	})

	s.Run("banned user cannot post", func() {
		author := s.newUser("pariah", identitymodels.RoleNormal, false)
		_, err := s.users.Execute(s.ctx, author.ID,
			func(*identitymodels.User) error { return nil },
			func(u *identitymodels.User) { u.ApplyBan("spam", id.NewUserID(), time.Now()) },
		)
		s.Require().NoError(err)

		_, err = s.svc.CreatePost(s.as(author), CreatePostInput{Title: "Title", Body: "Body text."})
		s.Require().True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("empty title is rejected", func() {
		author := s.newUser("untitled", identitymodels.RoleNormal, false)
		_, err := s.svc.CreatePost(s.as(author), CreatePostInput{Title: "  ", Body: "Body text."})
		s.Require().True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ContentServiceSuite) TestVisibility() {
	author := s.newUser("drafter", identitymodels.RoleNormal, false)
	p, err := s.svc.CreatePost(s.as(author), CreatePostInput{Title: "Pending", Body: "Unreviewed content."})
	s.Require().NoError(err)

	s.Run("author sees own pending post", func() {
		got, err := s.svc.GetPost(s.as(author), p.ID)
		s.Require().NoError(err)
		s.Equal(p.ID, got.ID)
	})

	s.Run("stranger gets not found", func() {
		stranger := s.newUser("stranger", identitymodels.RoleNormal, false)
		_, err := s.svc.GetPost(s.as(stranger), p.ID)
		s.Require().True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("admin sees pending post", func() {
		admin := s.newUser("overseer", identitymodels.RoleAdmin, true)
		_, err := s.svc.GetPost(s.as(admin), p.ID)
		s.Require().NoError(err)
	})

	s.Run("anonymous list only returns approved", func() {
		confirmed := s.newUser("visible", identitymodels.RoleNormal, true)
		_, err := s.svc.CreatePost(s.as(confirmed), CreatePostInput{Title: "Public", Body: "Approved content."})
		s.Require().NoError(err)

		posts, err := s.svc.ListPosts(s.ctx, ListFilter{})
		s.Require().NoError(err)
		for _, got := range posts {
			s.Equal(models.StatusApproved, got.Status)
		}
	})
}

func (s *ContentServiceSuite) TestTrustThreshold() {
	author := s.newUser("witness", identitymodels.RoleNormal, true)
	p := s.approvedPost(author)

	trusters := []*identitymodels.User{
		s.newUser("press-one", identitymodels.RoleJournalist, true),
		s.newUser("press-two", identitymodels.RoleJournalist, true),
		s.newUser("senator", identitymodels.RolePolitician, true),
	}

	s.Run("normal users cannot trust", func() {
		pleb := s.newUser("pleb", identitymodels.RoleNormal, false)
		_, err := s.svc.ToggleTrust(s.as(pleb), p.ID)
		s.Require().True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("third trust verifies the post", func() {
		for i, truster := range trusters {
			result, err := s.svc.ToggleTrust(s.as(truster), p.ID)
			s.Require().NoError(err)
			s.True(result.Trusted)
			s.Equal(i+1, result.TrustCount)
			s.Equal(i == 2, result.Verified)
		}
		s.True(s.publisher.has(audit.ActionPostVerified))
	})

	s.Run("dropping below threshold keeps verified until zero", func() {
		result, err := s.svc.ToggleTrust(s.as(trusters[0]), p.ID)
		s.Require().NoError(err)
		s.False(result.Trusted)
		s.Equal(2, result.TrustCount)
		s.True(result.Verified)

		for _, truster := range trusters[1:] {
			result, err = s.svc.ToggleTrust(s.as(truster), p.ID)
			s.Require().NoError(err)
		}
		s.Equal(0, result.TrustCount)
		s.False(result.Verified)
		s.True(s.publisher.has(audit.ActionPostUnverified))
	})
}

func (s *ContentServiceSuite) TestConfirmations() {
	author := s.newUser("src", identitymodels.RoleNormal, true)
	p := s.approvedPost(author)
	journalist := s.newUser("scoop", identitymodels.RoleJournalist, true)

	s.Run("journalist places journalist confirmation", func() {
		c, err := s.svc.Confirm(s.as(journalist), p.ID, "journalist_confirm")
		s.Require().NoError(err)
		s.Equal(models.ConfirmJournalist, c.Type)
	})

	s.Run("duplicate confirmation conflicts", func() {
		_, err := s.svc.Confirm(s.as(journalist), p.ID, "journalist_confirm")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("journalist cannot place politician confirmation", func() {
		_, err := s.svc.Confirm(s.as(journalist), p.ID, "politician_confirm")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("admin may place either type", func() {
		admin := s.newUser("modhat", identitymodels.RoleAdmin, true)
		_, err := s.svc.Confirm(s.as(admin), p.ID, "politician_confirm")
		s.Require().NoError(err)

		confirmations, err := s.svc.ListConfirmations(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Len(confirmations, 2)
	})
}

func (s *ContentServiceSuite) TestReportsAndEscalation() {
	author := s.newUser("reportee", identitymodels.RoleNormal, true)
	p := s.approvedPost(author)

	s.Run("author cannot report own post", func() {
		_, err := s.svc.Report(s.as(author), p.ID, "spam", "")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("duplicate report conflicts", func() {
		reporter := s.newUser("snitch", identitymodels.RoleNormal, false)
		_, err := s.svc.Report(s.as(reporter), p.ID, "spam", "looks automated")
		s.Require().NoError(err)

		_, err = s.svc.Report(s.as(reporter), p.ID, "offensive", "")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("fifth report escalates the post back to review", func() {
		for i := 0; i < 4; i++ {
			reporter := s.newUser("reporter-"+string(rune('a'+i)), identitymodels.RoleNormal, false)
			_, err := s.svc.Report(s.as(reporter), p.ID, "fake_news", "")
			s.Require().NoError(err)
		}

		admin := s.newUser("janitor", identitymodels.RoleAdmin, true)
		got, err := s.svc.GetPost(s.as(admin), p.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusPendingReview, got.Status)
		s.Equal(5, got.ReportCount)
		s.True(s.publisher.has(audit.ActionPostEscalated))
		s.False(s.index.indexed[p.ID])
	})

	s.Run("admin resolves a report once", func() {
		admin := s.newUser("resolver", identitymodels.RoleAdmin, true)
		reports, err := s.svc.ListReports(s.as(admin), "pending", 10, 0)
		s.Require().NoError(err)
		s.Require().NotEmpty(reports)

		handled, err := s.svc.HandleReport(s.as(admin), reports[0].ID, true)
		s.Require().NoError(err)
		s.Equal(models.ReportResolved, handled.Status)
		s.Require().NotNil(handled.HandledBy)
		s.Equal(admin.ID, *handled.HandledBy)
		s.NotNil(handled.HandledAt)

		_, err = s.svc.HandleReport(s.as(admin), reports[0].ID, false)
		s.Require().True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *ContentServiceSuite) TestLikesAndComments() {
	author := s.newUser("poster", identitymodels.RoleNormal, true)
	p := s.approvedPost(author)
	fan := s.newUser("fan", identitymodels.RoleNormal, false)

	s.Run("like toggles on and off", func() {
		result, err := s.svc.ToggleLike(s.as(fan), p.ID)
		s.Require().NoError(err)
		s.True(result.Liked)
		s.Equal(1, result.LikeCount)

		result, err = s.svc.ToggleLike(s.as(fan), p.ID)
		s.Require().NoError(err)
		s.False(result.Liked)
		s.Equal(0, result.LikeCount)
	})

	s.Run("comment lifecycle", func() {
		c, err := s.svc.CreateComment(s.as(fan), p.ID, "I saw this too.", "")
		s.Require().NoError(err)

		comments, err := s.svc.ListComments(s.ctx, p.ID, 0, 0)
		s.Require().NoError(err)
		s.Len(comments, 1)

		other := s.newUser("other", identitymodels.RoleNormal, false)
		err = s.svc.DeleteComment(s.as(other), c.ID)
		s.Require().True(dErrors.HasCode(err, dErrors.CodeForbidden))

		s.Require().NoError(s.svc.DeleteComment(s.as(fan), c.ID))
	})
}

func (s *ContentServiceSuite) TestDeletePost() {
	author := s.newUser("owner", identitymodels.RoleNormal, true)
	p := s.approvedPost(author)

	stranger := s.newUser("vandal", identitymodels.RoleNormal, false)
	err := s.svc.DeletePost(s.as(stranger), p.ID)
	s.Require().True(dErrors.HasCode(err, dErrors.CodeForbidden))

	s.Require().NoError(s.svc.DeletePost(s.as(author), p.ID))
	s.False(s.index.indexed[p.ID])
	s.True(s.publisher.has(audit.ActionPostDeleted))

	_, err = s.svc.GetPost(s.as(author), p.ID)
	s.Require().True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ContentServiceSuite) TestEditPost() {
	author := s.newUser("editor", identitymodels.RoleNormal, true)
	p := s.approvedPost(author)

	s.Run("author edits their post", func() {
		edited, err := s.svc.UpdatePost(s.as(author), p.ID, "Updated title", "Updated body text.")
		s.Require().NoError(err)
		s.Equal("Updated title", edited.Title)
		s.Equal(models.StatusApproved, edited.Status)
	})

	s.Run("strangers cannot edit", func() {
		stranger := s.newUser("intruder", identitymodels.RoleNormal, false)
		_, err := s.svc.UpdatePost(s.as(stranger), p.ID, "Hijacked", "Body.")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("blocked terms send an approved post back to review", func() {
		edited, err := s.svc.UpdatePost(s.as(author), p.ID, "Updated title", "Now with blockedword inside.")
		s.Require().NoError(err)
		s.True(edited.Flagged)
		s.Equal(models.StatusPendingReview, edited.Status)
		s.False(s.index.indexed[p.ID])
	})
}

func (s *ContentServiceSuite) TestEditComment() {
	author := s.newUser("speaker", identitymodels.RoleNormal, true)
	p := s.approvedPost(author)
	fan := s.newUser("listener", identitymodels.RoleNormal, false)

	c, err := s.svc.CreateComment(s.as(fan), p.ID, "First impression.", "")
	s.Require().NoError(err)

	edited, err := s.svc.UpdateComment(s.as(fan), c.ID, "Second thoughts.")
	s.Require().NoError(err)
	s.Equal("Second thoughts.", edited.Body)

	_, err = s.svc.UpdateComment(s.as(author), c.ID, "Not yours.")
	s.Require().True(dErrors.HasCode(err, dErrors.CodeForbidden))
}
