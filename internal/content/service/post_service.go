package service

import (
	"context"
	"errors"
	"strings"

	"github.com/abadojack/whatlanggo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"shahid/internal/audit"
	"shahid/internal/content/models"
	"shahid/internal/content/store/post"
	id "shahid/pkg/domain"
	dErrors "shahid/pkg/domain-errors"
	"shahid/pkg/platform/sentinel"
	"shahid/pkg/requestcontext"
)

var tracer = otel.Tracer("shahid/internal/content")

// CreatePostInput carries everything a new post may arrive with. Only Title
// and Body are required.
type CreatePostInput struct {
	Title      string
	Body       string
	EventID    *id.EventID
	PeopleIDs  []id.PersonID
	Attachment string
}

// CreatePost stores a new post. The initial moderation status follows the
// author's standing: admin and politician posts are approved and pre-verified,
// identity-confirmed authors are approved, everyone else enters review.
// Blocked-term matches force review regardless of standing.
func (s *Service) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	ctx, span := tracer.Start(ctx, "content.CreatePost")
	defer span.End()

	authorID := requestcontext.UserID(ctx)
	author, err := s.users.GetUser(ctx, authorID)
	if err != nil {
		return nil, err
	}
	if author.Banned {
		return nil, dErrors.New(dErrors.CodeForbidden, "banned users cannot post")
	}

	now := requestcontext.Now(ctx)
	p, err := models.NewPost(id.NewPostID(), authorID, in.Title, in.Body, now)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}
	p.EventID = in.EventID
	p.PeopleIDs = in.PeopleIDs
	p.Attachment = in.Attachment

	var matched []string
	if s.screener != nil {
		matched = s.screener.Check(p.Title + "\n" + p.Body)
	}
	p.Flagged = len(matched) > 0

	decision := models.InitialModeration(string(author.Role), author.IdentityConfirmed, p.Flagged)
	p.Status = decision.Status
	p.Verified = decision.Verified

	info := whatlanggo.Detect(p.Body)
	if info.IsReliable() {
		p.Language = whatlanggo.LangToString(info.Lang)
	}

	if err := s.posts.Create(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create post")
	}
	s.indexPost(p)

	span.SetAttributes(
		attribute.String("post.status", string(p.Status)),
		attribute.Bool("post.flagged", p.Flagged),
	)
	if s.metrics != nil {
		s.metrics.PostsCreated.WithLabelValues(string(p.Status)).Inc()
	}
	s.logger.InfoContext(ctx, "post created",
		"post_id", p.ID, "author_id", authorID,
		"status", string(p.Status), "language", p.Language, "flagged", p.Flagged)
	if p.Flagged {
		s.logger.WarnContext(ctx, "post flagged by term screen",
			"post_id", p.ID, "terms", strings.Join(matched, ","))
	}
	return p, nil
}

// GetPost loads a post. Posts outside the approved status are visible only to
// their author and admins.
func (s *Service) GetPost(ctx context.Context, postID id.PostID) (*models.Post, error) {
	p, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, wrapPostErr(err)
	}
	if !p.IsApproved() && !s.canModerate(ctx, p) {
		return nil, dErrors.New(dErrors.CodeNotFound, "post not found")
	}
	return p, nil
}

// ListFilter is the caller-facing filter for ListPosts.
type ListFilter struct {
	Status   string
	AuthorID id.UserID
	Limit    int
	Offset   int
}

// ListPosts returns posts. Non-admin callers only ever see approved posts,
// except when listing their own.
func (s *Service) ListPosts(ctx context.Context, filter ListFilter) ([]*models.Post, error) {
	storeFilter := post.ListFilter{Limit: filter.Limit, Offset: filter.Offset}

	if !filter.AuthorID.IsNil() {
		storeFilter.AuthorID = &filter.AuthorID
	}

	admin := requestcontext.Role(ctx) == "admin"
	ownFeed := !filter.AuthorID.IsNil() && filter.AuthorID == requestcontext.UserID(ctx)

	switch {
	case admin && filter.Status != "":
		status, err := models.ParsePostStatus(filter.Status)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeValidation, "unknown post status")
		}
		storeFilter.Status = &status
	case admin, ownFeed:
		// No status restriction.
	default:
		approved := models.StatusApproved
		storeFilter.Status = &approved
	}

	posts, err := s.posts.List(ctx, storeFilter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list posts")
	}
	return posts, nil
}

// UpdatePost replaces a post's title and body. Author only. The new content
// passes through the blocked-term screen again; a hit drops an approved post
// back into review.
func (s *Service) UpdatePost(ctx context.Context, postID id.PostID, title, body string) (*models.Post, error) {
	title, body, err := models.ValidatePostContent(title, body)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, err.Error())
	}

	var matched []string
	if s.screener != nil {
		matched = s.screener.Check(title + "\n" + body)
	}
	flagged := len(matched) > 0

	editorID := requestcontext.UserID(ctx)
	now := requestcontext.Now(ctx)
	p, err := s.posts.Execute(ctx, postID,
		func(p *models.Post) error {
			return p.CanEdit(editorID)
		},
		func(p *models.Post) {
			p.ApplyEdit(title, body, now)
			p.Flagged = flagged
			if flagged && p.IsApproved() {
				p.ApplyStatus(models.StatusPendingReview, now)
			}
			info := whatlanggo.Detect(p.Body)
			if info.IsReliable() {
				p.Language = whatlanggo.LangToString(info.Lang)
			}
		},
	)
	if err != nil {
		return nil, wrapPostErr(err)
	}
	s.indexPost(p)

	if flagged {
		s.logger.WarnContext(ctx, "edited post flagged by term screen",
			"post_id", p.ID, "terms", strings.Join(matched, ","))
	}
	return p, nil
}

// DeletePost removes a post together with its comments and search entry.
// Authors can delete their own posts; admins can delete any.
func (s *Service) DeletePost(ctx context.Context, postID id.PostID) error {
	p, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return wrapPostErr(err)
	}
	if !s.canModerate(ctx, p) {
		return dErrors.New(dErrors.CodeForbidden, "only the author or an admin can delete a post")
	}

	if err := s.posts.Delete(ctx, postID); err != nil {
		return wrapPostErr(err)
	}
	if err := s.comments.DeleteByPost(ctx, postID); err != nil {
		s.logger.WarnContext(ctx, "comment cleanup failed", "post_id", postID, "error", err)
	}
	if s.search != nil {
		if err := s.search.DeletePost(postID); err != nil {
			s.logger.WarnContext(ctx, "search index removal failed", "post_id", postID, "error", err)
		}
	}

	s.emit(ctx, audit.Event{
		Action:       audit.ActionPostDeleted,
		ActorID:      requestcontext.UserID(ctx),
		TargetUserID: p.AuthorID,
		TargetPostID: postID,
	})
	return nil
}

// SetStatus is the admin moderation decision on a post.
func (s *Service) SetStatus(ctx context.Context, postID id.PostID, statusStr, reason string) (*models.Post, error) {
	status, err := models.ParsePostStatus(statusStr)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown post status")
	}

	now := requestcontext.Now(ctx)
	var previous models.PostStatus
	p, err := s.posts.Execute(ctx, postID,
		func(p *models.Post) error {
			previous = p.Status
			if err := p.CanSetStatus(status); err != nil {
				return dErrors.New(dErrors.CodeConflict, err.Error())
			}
			return nil
		},
		func(p *models.Post) {
			p.ApplyStatus(status, now)
		},
	)
	if err != nil {
		return nil, wrapPostErr(err)
	}
	s.indexPost(p)

	s.emit(ctx, audit.Event{
		Action:       audit.ActionPostStatus,
		ActorID:      requestcontext.UserID(ctx),
		TargetUserID: p.AuthorID,
		TargetPostID: postID,
		Reason:       reason,
		Metadata:     map[string]string{"from": string(previous), "to": string(status)},
	})
	return p, nil
}

func (s *Service) canModerate(ctx context.Context, p *models.Post) bool {
	if requestcontext.Role(ctx) == "admin" {
		return true
	}
	return p.AuthorID == requestcontext.UserID(ctx)
}

func wrapPostErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "post not found")
	case dErrors.CodeOf(err) != dErrors.CodeInternal:
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "post store failure")
	}
}
