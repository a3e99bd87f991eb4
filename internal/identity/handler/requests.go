package handler

import (
	"time"

	"shahid/internal/identity/models"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type updateProfileRequest struct {
	Bio string `json:"bio"`
}

type changeRoleRequest struct {
	Role string `json:"role"`
}

type banRequest struct {
	Reason string `json:"reason"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

type userResponse struct {
	ID                string     `json:"id"`
	Username          string     `json:"username"`
	Email             string     `json:"email,omitempty"`
	Role              string     `json:"role"`
	Bio               string     `json:"bio,omitempty"`
	IdentityConfirmed bool       `json:"identity_confirmed"`
	Active            bool       `json:"active"`
	Banned            bool       `json:"banned"`
	BanReason         string     `json:"ban_reason,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	BannedAt          *time.Time `json:"banned_at,omitempty"`
	BannedBy          string     `json:"banned_by,omitempty"`
}

func fromUser(u *models.User) userResponse {
	resp := userResponse{
		ID:                u.ID.String(),
		Username:          u.Username,
		Email:             u.Email,
		Role:              string(u.Role),
		Bio:               u.Bio,
		IdentityConfirmed: u.IdentityConfirmed,
		Active:            u.IsActive(),
		Banned:            u.Banned,
		BanReason:         u.BanReason,
		CreatedAt:         u.CreatedAt,
		BannedAt:          u.BannedAt,
	}
	if u.BannedBy != nil {
		resp.BannedBy = u.BannedBy.String()
	}
	return resp
}

func fromUsers(users []*models.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, fromUser(u))
	}
	return out
}
