package service

import (
	"context"
	"errors"

	"shahid/internal/content/models"
	id "shahid/pkg/domain"
	dErrors "shahid/pkg/domain-errors"
	"shahid/pkg/platform/sentinel"
	"shahid/pkg/requestcontext"
)

// CreateComment adds a comment to an approved post.
func (s *Service) CreateComment(ctx context.Context, postID id.PostID, body, attachment string) (*models.Comment, error) {
	authorID := requestcontext.UserID(ctx)
	p, err := s.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !p.IsApproved() {
		return nil, dErrors.New(dErrors.CodeConflict, "only approved posts accept comments")
	}

	comment, err := models.NewComment(id.NewCommentID(), postID, authorID, body, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}
	comment.Attachment = attachment

	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create comment")
	}
	return comment, nil
}

// UpdateComment replaces a comment body. Author only.
func (s *Service) UpdateComment(ctx context.Context, commentID id.CommentID, body string) (*models.Comment, error) {
	comment, err := s.comments.FindByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "comment not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load comment")
	}

	if err := comment.CanEdit(requestcontext.UserID(ctx)); err != nil {
		return nil, err
	}
	if err := comment.ApplyEdit(body, requestcontext.Now(ctx)); err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, err.Error())
	}

	if err := s.comments.Update(ctx, comment); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update comment")
	}
	return comment, nil
}

// ListComments returns the comments on a post, oldest first.
func (s *Service) ListComments(ctx context.Context, postID id.PostID, limit, offset int) ([]*models.Comment, error) {
	if _, err := s.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByPost(ctx, postID, limit, offset)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list comments")
	}
	return comments, nil
}

// DeleteComment removes a comment. Authors delete their own; admins any.
func (s *Service) DeleteComment(ctx context.Context, commentID id.CommentID) error {
	comment, err := s.comments.FindByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "comment not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load comment")
	}

	admin := requestcontext.Role(ctx) == "admin"
	if !admin && comment.AuthorID != requestcontext.UserID(ctx) {
		return dErrors.New(dErrors.CodeForbidden, "only the author or an admin can delete a comment")
	}

	if err := s.comments.Delete(ctx, commentID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete comment")
	}
	return nil
}
