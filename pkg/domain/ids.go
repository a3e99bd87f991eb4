// Package domain holds typed identifiers shared across modules.
//
// Each entity gets its own UUID-backed type so the compiler rejects
// cross-entity assignments (a PostID can never be passed where a UserID is
// expected). Parse functions enforce the invariant that IDs are valid,
// non-nil UUIDs at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "shahid/pkg/domain-errors"
)

type (
	// UserID identifies a platform account.
	UserID uuid.UUID
	// PostID identifies a testimony post.
	PostID uuid.UUID
	// CommentID identifies a comment on a post.
	CommentID uuid.UUID
	// ReportID identifies a post report.
	ReportID uuid.UUID
	// RequestID identifies a role verification request.
	RequestID uuid.UUID
	// PersonID identifies a directory person record.
	PersonID uuid.UUID
	// EventID identifies a directory event record.
	EventID uuid.UUID
	// MethodID identifies a stored payment method.
	MethodID uuid.UUID
	// TransactionID identifies a payment transaction.
	TransactionID uuid.UUID
	// SubscriptionID identifies a subscription.
	SubscriptionID uuid.UUID
)

func parse(kind, s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind+" id")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id cannot be nil")
	}
	return u, nil
}

func ParseUserID(s string) (UserID, error) {
	u, err := parse("user", s)
	return UserID(u), err
}

func ParsePostID(s string) (PostID, error) {
	u, err := parse("post", s)
	return PostID(u), err
}

func ParseCommentID(s string) (CommentID, error) {
	u, err := parse("comment", s)
	return CommentID(u), err
}

func ParseReportID(s string) (ReportID, error) {
	u, err := parse("report", s)
	return ReportID(u), err
}

func ParseRequestID(s string) (RequestID, error) {
	u, err := parse("request", s)
	return RequestID(u), err
}

func ParsePersonID(s string) (PersonID, error) {
	u, err := parse("person", s)
	return PersonID(u), err
}

func ParseEventID(s string) (EventID, error) {
	u, err := parse("event", s)
	return EventID(u), err
}

func ParseMethodID(s string) (MethodID, error) {
	u, err := parse("payment method", s)
	return MethodID(u), err
}

func ParseTransactionID(s string) (TransactionID, error) {
	u, err := parse("transaction", s)
	return TransactionID(u), err
}

func ParseSubscriptionID(s string) (SubscriptionID, error) {
	u, err := parse("subscription", s)
	return SubscriptionID(u), err
}

func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id PostID) String() string         { return uuid.UUID(id).String() }
func (id CommentID) String() string      { return uuid.UUID(id).String() }
func (id ReportID) String() string       { return uuid.UUID(id).String() }
func (id RequestID) String() string      { return uuid.UUID(id).String() }
func (id PersonID) String() string       { return uuid.UUID(id).String() }
func (id EventID) String() string        { return uuid.UUID(id).String() }
func (id MethodID) String() string       { return uuid.UUID(id).String() }
func (id TransactionID) String() string  { return uuid.UUID(id).String() }
func (id SubscriptionID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id PostID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id CommentID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id ReportID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id RequestID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id PersonID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id EventID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id MethodID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id TransactionID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id SubscriptionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// NewUserID mints a random user ID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewPostID mints a random post ID.
func NewPostID() PostID { return PostID(uuid.New()) }

// NewCommentID mints a random comment ID.
func NewCommentID() CommentID { return CommentID(uuid.New()) }

// NewReportID mints a random report ID.
func NewReportID() ReportID { return ReportID(uuid.New()) }

// NewRequestID mints a random verification request ID.
func NewRequestID() RequestID { return RequestID(uuid.New()) }

// NewPersonID mints a random person ID.
func NewPersonID() PersonID { return PersonID(uuid.New()) }

// NewEventID mints a random event ID.
func NewEventID() EventID { return EventID(uuid.New()) }

// NewMethodID mints a random payment method ID.
func NewMethodID() MethodID { return MethodID(uuid.New()) }

// NewTransactionID mints a random transaction ID.
func NewTransactionID() TransactionID { return TransactionID(uuid.New()) }

// NewSubscriptionID mints a random subscription ID.
func NewSubscriptionID() SubscriptionID { return SubscriptionID(uuid.New()) }
