package models

import (
	"net/mail"
	"strings"
	"time"

	id "shahid/pkg/domain"
	dErrors "shahid/pkg/domain-errors"
)

// User is the aggregate root for an account.
//
// Invariants:
//   - Username is non-empty, at most 150 characters, no whitespace
//   - Email parses as an address when set
//   - Role is one of the ParseRole values
//   - A banned user keeps its role; the ban flag gates access, not the role
//   - IdentityConfirmed is set only by an admin (directly or by approving a
//     verification request) and never cleared by role changes
type User struct {
	ID           id.UserID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Bio          string    `json:"bio,omitempty"`

	// IntendedRole is the role named during document upload, carried until a
	// verification request is filed.
	IntendedRole      Role   `json:"intended_role,omitempty"`
	UIDDocumentPath   string `json:"uid_document_path,omitempty"`
	IdentityConfirmed bool   `json:"identity_confirmed"`

	Banned    bool       `json:"banned"`
	BanReason string     `json:"ban_reason,omitempty"`
	BannedAt  *time.Time `json:"banned_at,omitempty"`
	BannedBy  *id.UserID `json:"banned_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewUser(userID id.UserID, username, email, passwordHash string, now time.Time) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "username cannot be empty")
	}
	if len(username) > 150 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "username must be 150 characters or less")
	}
	if strings.ContainsAny(username, " \t\n") {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "username cannot contain whitespace")
	}
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "email is not a valid address")
		}
	}
	if passwordHash == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "password hash cannot be empty")
	}
	return &User{
		ID:           userID,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         RoleNormal,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// IsActive reports whether the account may act. A ban is the only thing
// that deactivates an account.
func (u *User) IsActive() bool { return !u.Banned }

// CanBan checks the ban transition. Admins cannot be banned; demote first.
func (u *User) CanBan() error {
	if u.Banned {
		return dErrors.New(dErrors.CodeInvariantViolation, "user is already banned")
	}
	if u.IsAdmin() {
		return dErrors.New(dErrors.CodeInvariantViolation, "admin accounts cannot be banned")
	}
	return nil
}

func (u *User) ApplyBan(reason string, by id.UserID, now time.Time) {
	u.Banned = true
	u.BanReason = reason
	u.BannedAt = &now
	u.BannedBy = &by
	u.UpdatedAt = now
}

func (u *User) CanUnban() error {
	if !u.Banned {
		return dErrors.New(dErrors.CodeInvariantViolation, "user is not banned")
	}
	return nil
}

func (u *User) ApplyUnban(now time.Time) {
	u.Banned = false
	u.BanReason = ""
	u.BannedAt = nil
	u.BannedBy = nil
	u.UpdatedAt = now
}

// ApplyBio sets the profile text shown on the public directory pages.
func (u *User) ApplyBio(bio string, now time.Time) error {
	if len(bio) > 2000 {
		return dErrors.New(dErrors.CodeInvariantViolation, "bio must be 2000 characters or less")
	}
	u.Bio = bio
	u.UpdatedAt = now
	return nil
}

// CanChangeRole checks a role transition set by an admin.
func (u *User) CanChangeRole(newRole Role) error {
	if u.Role == newRole {
		return dErrors.New(dErrors.CodeInvariantViolation, "user already has this role")
	}
	return nil
}

func (u *User) ApplyRole(newRole Role, now time.Time) {
	u.Role = newRole
	u.UpdatedAt = now
}

// ApplyIdentityConfirmation marks the account as identity-verified.
func (u *User) ApplyIdentityConfirmation(now time.Time) {
	u.IdentityConfirmed = true
	u.UpdatedAt = now
}

// ApplyDocument records an uploaded identity document and the role the user
// intends to request with it.
func (u *User) ApplyDocument(path string, intended Role, now time.Time) error {
	if path == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "document path cannot be empty")
	}
	if intended != "" && !intended.Requestable() {
		return dErrors.New(dErrors.CodeInvariantViolation, "intended role must be journalist or politician")
	}
	u.UIDDocumentPath = path
	u.IntendedRole = intended
	u.UpdatedAt = now
	return nil
}
