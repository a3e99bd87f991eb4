// Package models holds the role verification request aggregate.
package models

import (
	"time"

	id "shahid/pkg/domain"
	dErrors "shahid/pkg/domain-errors"
)

// RequestStatus is the review state of a verification request.
type RequestStatus string

const (
	StatusPending     RequestStatus = "pending"
	StatusUnderReview RequestStatus = "under_review"
	StatusApproved    RequestStatus = "approved"
	StatusRejected    RequestStatus = "rejected"
)

// IsOpen reports whether the request still awaits a decision.
func (s RequestStatus) IsOpen() bool {
	return s == StatusPending || s == StatusUnderReview
}

// Request is a user's application for the journalist or politician role.
//
// Invariants:
//   - RequestedRole is journalist or politician, never admin
//   - DocumentPath is non-empty; a request cannot be filed without an
//     uploaded identity document
//   - A user holds at most one open request at a time (enforced by the store)
//   - Approved and rejected are terminal
type Request struct {
	ID            id.RequestID  `json:"id"`
	UserID        id.UserID     `json:"user_id"`
	RequestedRole string        `json:"requested_role"`
	DocumentPath  string        `json:"document_path"`
	Status        RequestStatus `json:"status"`

	// Note carries the applicant's motivation and, after handling, the
	// reviewer's decision note.
	Note string `json:"note,omitempty"`

	HandledBy *id.UserID `json:"handled_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	HandledAt *time.Time `json:"handled_at,omitempty"`
}

func NewRequest(requestID id.RequestID, userID id.UserID, requestedRole, documentPath, note string, now time.Time) (*Request, error) {
	if requestedRole != "journalist" && requestedRole != "politician" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "requested role must be journalist or politician")
	}
	if documentPath == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "an identity document must be uploaded first")
	}
	return &Request{
		ID:            requestID,
		UserID:        userID,
		RequestedRole: requestedRole,
		DocumentPath:  documentPath,
		Status:        StatusPending,
		Note:          note,
		CreatedAt:     now,
	}, nil
}

// CanStartReview checks the pending -> under_review transition.
func (r *Request) CanStartReview() error {
	if r.Status != StatusPending {
		return dErrors.New(dErrors.CodeInvariantViolation, "only pending requests can enter review")
	}
	return nil
}

func (r *Request) ApplyStartReview() {
	r.Status = StatusUnderReview
}

// CanDecide checks that the request is still open.
func (r *Request) CanDecide() error {
	if !r.Status.IsOpen() {
		return dErrors.New(dErrors.CodeInvariantViolation, "request has already been decided")
	}
	return nil
}

// ApplyDecision closes the request.
func (r *Request) ApplyDecision(approve bool, reviewerID id.UserID, note string, now time.Time) {
	if approve {
		r.Status = StatusApproved
	} else {
		r.Status = StatusRejected
	}
	if note != "" {
		r.Note = note
	}
	r.HandledBy = &reviewerID
	r.HandledAt = &now
}

// ApplyReopen puts an approved request back under review when the role grant
// could not be applied, so the decision stays retryable.
func (r *Request) ApplyReopen() {
	r.Status = StatusUnderReview
	r.HandledBy = nil
	r.HandledAt = nil
}
