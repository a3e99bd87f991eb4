package models

import (
	dErrors "shahid/pkg/domain-errors"
)

// Role is the trust level a user carries on the platform.
type Role string

const (
	RoleNormal     Role = "normal"
	RoleJournalist Role = "journalist"
	RolePolitician Role = "politician"
	RoleAdmin      Role = "admin"
)

// ParseRole validates a role string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleNormal, RoleJournalist, RolePolitician, RoleAdmin:
		return Role(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown role %q", s)
	}
}

// IsPrivileged reports whether the role counts toward post trust.
// Only journalists, politicians, and admins can verify content.
func (r Role) IsPrivileged() bool {
	return r == RoleJournalist || r == RolePolitician || r == RoleAdmin
}

// AutoApprovesOwnPosts reports whether posts from this role skip review.
func (r Role) AutoApprovesOwnPosts() bool {
	return r == RoleAdmin || r == RolePolitician
}

// Requestable reports whether users may apply for this role through a
// verification request. Admin is never requestable.
func (r Role) Requestable() bool {
	return r == RoleJournalist || r == RolePolitician
}
