package models

import (
	"strings"
	"time"

	id "shahid/pkg/domain"
	dErrors "shahid/pkg/domain-errors"
)

// ConfirmationType is the role-typed endorsement a privileged user places on
// a post. A user can hold at most one confirmation of each type per post.
type ConfirmationType string

const (
	ConfirmJournalist ConfirmationType = "journalist_confirm"
	ConfirmPolitician ConfirmationType = "politician_confirm"
)

func ParseConfirmationType(s string) (ConfirmationType, error) {
	switch ConfirmationType(s) {
	case ConfirmJournalist, ConfirmPolitician:
		return ConfirmationType(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown confirmation type %q", s)
	}
}

// Confirmation records a typed endorsement.
type Confirmation struct {
	PostID    id.PostID        `json:"post_id"`
	UserID    id.UserID        `json:"user_id"`
	Type      ConfirmationType `json:"type"`
	CreatedAt time.Time        `json:"created_at"`
}

// ReportReason categorizes a report.
type ReportReason string

const (
	ReasonSpam      ReportReason = "spam"
	ReasonFakeNews  ReportReason = "fake_news"
	ReasonOffensive ReportReason = "offensive"
	ReasonOther     ReportReason = "other"
)

func ParseReportReason(s string) (ReportReason, error) {
	switch ReportReason(s) {
	case ReasonSpam, ReasonFakeNews, ReasonOffensive, ReasonOther:
		return ReportReason(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown report reason %q", s)
	}
}

// ReportStatus tracks admin handling of a report.
type ReportStatus string

const (
	ReportPending   ReportStatus = "pending"
	ReportResolved  ReportStatus = "resolved"
	ReportDismissed ReportStatus = "dismissed"
)

// Report is a user complaint about a post. One report per user per post.
type Report struct {
	ID         id.ReportID  `json:"id"`
	PostID     id.PostID    `json:"post_id"`
	ReporterID id.UserID    `json:"reporter_id"`
	Reason     ReportReason `json:"reason"`
	Detail     string       `json:"detail,omitempty"`
	Status     ReportStatus `json:"status"`
	CreatedAt  time.Time    `json:"created_at"`
	HandledBy  *id.UserID   `json:"handled_by,omitempty"`
	HandledAt  *time.Time   `json:"handled_at,omitempty"`
}

func NewReport(reportID id.ReportID, postID id.PostID, reporterID id.UserID, reason ReportReason, detail string, now time.Time) *Report {
	return &Report{
		ID:         reportID,
		PostID:     postID,
		ReporterID: reporterID,
		Reason:     reason,
		Detail:     strings.TrimSpace(detail),
		Status:     ReportPending,
		CreatedAt:  now,
	}
}

// CanHandle checks that the report is still open.
func (r *Report) CanHandle() error {
	if r.Status != ReportPending {
		return dErrors.New(dErrors.CodeInvariantViolation, "report has already been handled")
	}
	return nil
}

// ApplyHandling closes the report as resolved or dismissed and records the
// handling admin.
func (r *Report) ApplyHandling(status ReportStatus, handlerID id.UserID, now time.Time) {
	r.Status = status
	r.HandledBy = &handlerID
	r.HandledAt = &now
}

// Comment is a reply on a post.
type Comment struct {
	ID         id.CommentID `json:"id"`
	PostID     id.PostID    `json:"post_id"`
	AuthorID   id.UserID    `json:"author_id"`
	Body       string       `json:"body"`
	Attachment string       `json:"attachment,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

func NewComment(commentID id.CommentID, postID id.PostID, authorID id.UserID, body string, now time.Time) (*Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "comment body cannot be empty")
	}
	if len(body) > 2000 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "comment body must be 2000 characters or less")
	}
	return &Comment{
		ID:        commentID,
		PostID:    postID,
		AuthorID:  authorID,
		Body:      body,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CanEdit restricts comment edits to the author.
func (c *Comment) CanEdit(editorID id.UserID) error {
	if c.AuthorID != editorID {
		return dErrors.New(dErrors.CodeForbidden, "only the author can edit a comment")
	}
	return nil
}

// ApplyEdit replaces the comment body.
func (c *Comment) ApplyEdit(body string, now time.Time) error {
	body = strings.TrimSpace(body)
	if body == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "comment body cannot be empty")
	}
	if len(body) > 2000 {
		return dErrors.New(dErrors.CodeInvariantViolation, "comment body must be 2000 characters or less")
	}
	c.Body = body
	c.UpdatedAt = now
	return nil
}
