// Package models holds the directory aggregates: the people named in
// testimonies and the events that tie testimonies together.
package models

import (
	"time"

	id "shahid/pkg/domain"
	dErrors "shahid/pkg/domain-errors"
)

// DirectoryStatus is the moderation state of a directory entry. Entries from
// non-admin users wait for approval before they appear publicly.
type DirectoryStatus string

const (
	StatusPending  DirectoryStatus = "pending"
	StatusApproved DirectoryStatus = "approved"
)

// PersonRole describes how a person relates to the documented events.
type PersonRole string

const (
	PersonVictim      PersonRole = "victim"
	PersonWitness     PersonRole = "witness"
	PersonPerpetrator PersonRole = "perpetrator"
	PersonJournalist  PersonRole = "journalist"
	PersonActivist    PersonRole = "activist"
	PersonOfficial    PersonRole = "official"
	PersonOther       PersonRole = "other"
)

func ParsePersonRole(s string) (PersonRole, error) {
	switch role := PersonRole(s); role {
	case PersonVictim, PersonWitness, PersonPerpetrator, PersonJournalist,
		PersonActivist, PersonOfficial, PersonOther:
		return role, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "unknown person role")
	}
}

const maxNameLength = 200

// Person is a directory record for someone named in testimonies.
type Person struct {
	ID        id.PersonID     `json:"id"`
	Name      string          `json:"name"`
	Role      PersonRole      `json:"role"`
	Image     string          `json:"image,omitempty"`
	AddedBy   id.UserID       `json:"added_by"`
	Status    DirectoryStatus `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func NewPerson(personID id.PersonID, addedBy id.UserID, name string, role PersonRole, image string, now time.Time) (*Person, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "person name is required")
	}
	if len(name) > maxNameLength {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "person name is too long")
	}
	return &Person{
		ID:        personID,
		Name:      name,
		Role:      role,
		Image:     image,
		AddedBy:   addedBy,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (p *Person) IsApproved() bool { return p.Status == StatusApproved }

// CanApprove rejects approving twice.
func (p *Person) CanApprove() error {
	if p.Status == StatusApproved {
		return dErrors.New(dErrors.CodeInvariantViolation, "person is already approved")
	}
	return nil
}

func (p *Person) ApplyApproval(now time.Time) {
	p.Status = StatusApproved
	p.UpdatedAt = now
}

// CanChangeRole rejects a no-op change.
func (p *Person) CanChangeRole(role PersonRole) error {
	if p.Role == role {
		return dErrors.New(dErrors.CodeInvariantViolation, "person already has this role")
	}
	return nil
}

func (p *Person) ApplyRole(role PersonRole, now time.Time) {
	p.Role = role
	p.UpdatedAt = now
}
