// Package models holds the content aggregates: posts, comments, and the
// interaction records (likes, trusts, confirmations, reports).
package models

import (
	"strings"
	"time"

	id "shahid/pkg/domain"
	dErrors "shahid/pkg/domain-errors"
)

// PostStatus is the moderation state of a post.
type PostStatus string

const (
	StatusPendingReview PostStatus = "pending_review"
	StatusApproved      PostStatus = "approved"
	StatusRejected      PostStatus = "rejected"
	StatusRemoved       PostStatus = "removed"
)

// ParsePostStatus validates a status string.
func ParsePostStatus(s string) (PostStatus, error) {
	switch PostStatus(s) {
	case StatusPendingReview, StatusApproved, StatusRejected, StatusRemoved:
		return PostStatus(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown post status %q", s)
	}
}

// validTransitions maps each status to the statuses an admin may move it to.
// Removed is terminal.
var validTransitions = map[PostStatus][]PostStatus{
	StatusPendingReview: {StatusApproved, StatusRejected, StatusRemoved},
	StatusApproved:      {StatusPendingReview, StatusRejected, StatusRemoved},
	StatusRejected:      {StatusPendingReview, StatusApproved, StatusRemoved},
	StatusRemoved:       {},
}

// CanTransitionTo reports whether the status change is allowed.
func (s PostStatus) CanTransitionTo(next PostStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Post is the aggregate root for published content.
//
// Invariants:
//   - Title is non-empty and at most 300 characters
//   - Body is non-empty
//   - Status transitions follow validTransitions; removed is terminal
//   - Verified is set when TrustCount reaches the trust threshold and
//     cleared when it returns to zero
//   - Counters never go negative
type Post struct {
	ID       id.PostID  `json:"id"`
	AuthorID id.UserID  `json:"author_id"`
	Title    string     `json:"title"`
	Body     string     `json:"body"`
	Language string     `json:"language,omitempty"`
	Status   PostStatus `json:"status"`
	Verified bool       `json:"verified"`

	// EventID links the post to a directory event; PeopleIDs names the
	// directory people it concerns.
	EventID   *id.EventID   `json:"event_id,omitempty"`
	PeopleIDs []id.PersonID `json:"people_ids,omitempty"`

	// Attachment is a stored upload reference (image or document).
	Attachment string `json:"attachment,omitempty"`

	// Flagged marks posts whose body matched the blocked-term screen.
	// Flagged posts always enter review regardless of author role.
	Flagged bool `json:"flagged,omitempty"`

	LikeCount   int `json:"like_count"`
	TrustCount  int `json:"trust_count"`
	ReportCount int `json:"report_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidatePostContent normalizes and checks a title/body pair. Callers run
// it before NewPost or ApplyEdit.
func ValidatePostContent(title, body string) (string, string, error) {
	title = strings.TrimSpace(title)
	body = strings.TrimSpace(body)
	if title == "" {
		return "", "", dErrors.New(dErrors.CodeInvariantViolation, "post title cannot be empty")
	}
	if len(title) > 300 {
		return "", "", dErrors.New(dErrors.CodeInvariantViolation, "post title must be 300 characters or less")
	}
	if body == "" {
		return "", "", dErrors.New(dErrors.CodeInvariantViolation, "post body cannot be empty")
	}
	return title, body, nil
}

func NewPost(postID id.PostID, authorID id.UserID, title, body string, now time.Time) (*Post, error) {
	title, body, err := ValidatePostContent(title, body)
	if err != nil {
		return nil, err
	}
	return &Post{
		ID:        postID,
		AuthorID:  authorID,
		Title:     title,
		Body:      body,
		Status:    StatusPendingReview,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (p *Post) IsApproved() bool { return p.Status == StatusApproved }

// CanSetStatus checks an admin status change.
func (p *Post) CanSetStatus(next PostStatus) error {
	if p.Status == next {
		return dErrors.New(dErrors.CodeInvariantViolation, "post already has this status")
	}
	if !p.Status.CanTransitionTo(next) {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "cannot move post from %s to %s", p.Status, next)
	}
	return nil
}

func (p *Post) ApplyStatus(next PostStatus, now time.Time) {
	p.Status = next
	p.UpdatedAt = now
}

// CanEdit restricts edits to the author while the post is not removed.
func (p *Post) CanEdit(editorID id.UserID) error {
	if p.AuthorID != editorID {
		return dErrors.New(dErrors.CodeForbidden, "only the author can edit a post")
	}
	if p.Status == StatusRemoved {
		return dErrors.New(dErrors.CodeInvariantViolation, "removed posts cannot be edited")
	}
	return nil
}

// ApplyEdit replaces title and body, both already normalized through
// ValidatePostContent. The caller re-runs moderation on the new content.
func (p *Post) ApplyEdit(title, body string, now time.Time) {
	p.Title = title
	p.Body = body
	p.UpdatedAt = now
}

// ApplyTrustCount records a new trust count and resolves the verified flag
// against the threshold. Verification flips on at the threshold and off only
// when the count returns to zero.
func (p *Post) ApplyTrustCount(count, threshold int, now time.Time) {
	if count < 0 {
		count = 0
	}
	p.TrustCount = count
	switch {
	case count >= threshold:
		p.Verified = true
	case count == 0:
		p.Verified = false
	}
	p.UpdatedAt = now
}
