package models

import (
	"time"

	id "shahid/pkg/domain"
	dErrors "shahid/pkg/domain-errors"
)

const maxTitleLength = 300

// Event groups testimonies around a documented incident. Participants are
// directory people; journalists are platform accounts holding the
// journalist role who cover the event.
type Event struct {
	ID             id.EventID      `json:"id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Date           time.Time       `json:"date"`
	CreatedBy      id.UserID       `json:"created_by"`
	ParticipantIDs []id.PersonID   `json:"participant_ids,omitempty"`
	JournalistIDs  []id.UserID     `json:"journalist_ids,omitempty"`
	Status         DirectoryStatus `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func NewEvent(eventID id.EventID, createdBy id.UserID, title, description string, date, now time.Time) (*Event, error) {
	if title == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "event title is required")
	}
	if len(title) > maxTitleLength {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "event title is too long")
	}
	if date.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "event date is required")
	}
	return &Event{
		ID:          eventID,
		Title:       title,
		Description: description,
		Date:        date,
		CreatedBy:   createdBy,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (e *Event) IsApproved() bool { return e.Status == StatusApproved }

func (e *Event) CanApprove() error {
	if e.Status == StatusApproved {
		return dErrors.New(dErrors.CodeInvariantViolation, "event is already approved")
	}
	return nil
}

func (e *Event) ApplyApproval(now time.Time) {
	e.Status = StatusApproved
	e.UpdatedAt = now
}

// HasJournalist reports whether the user is already assigned.
func (e *Event) HasJournalist(userID id.UserID) bool {
	for _, existing := range e.JournalistIDs {
		if existing == userID {
			return true
		}
	}
	return false
}

// ApplyJournalist assigns a journalist. The caller has already checked the
// account holds the journalist role.
func (e *Event) ApplyJournalist(userID id.UserID, now time.Time) {
	e.JournalistIDs = append(e.JournalistIDs, userID)
	e.UpdatedAt = now
}

// HasParticipant reports whether the person is already linked.
func (e *Event) HasParticipant(personID id.PersonID) bool {
	for _, existing := range e.ParticipantIDs {
		if existing == personID {
			return true
		}
	}
	return false
}

func (e *Event) ApplyParticipant(personID id.PersonID, now time.Time) {
	e.ParticipantIDs = append(e.ParticipantIDs, personID)
	e.UpdatedAt = now
}
