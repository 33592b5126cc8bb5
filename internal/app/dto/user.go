package dto

import (
	"time"

	domainuser "spacebook/internal/domain/user"
)

type UserProfile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"createdAt"`
}

// AuthResponse is returned by register and login. The token goes into the
// Authorization header as "Bearer <token>".
type AuthResponse struct {
	User      UserProfile `json:"user"`
	Token     string      `json:"token"`
	TokenType string      `json:"tokenType"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

func MapUserProfile(u *domainuser.User) UserProfile {
	if u == nil {
		return UserProfile{}
	}
	profile := UserProfile{ID: string(u.ID), Email: u.Email, Name: u.Name, CreatedAt: u.CreatedAt}
	for _, role := range u.Roles {
		profile.Roles = append(profile.Roles, string(role))
	}
	return profile
}

func NewAuthResponse(u *domainuser.User, token string, expiresAt time.Time) AuthResponse {
	return AuthResponse{User: MapUserProfile(u), Token: token, TokenType: "Bearer", ExpiresAt: expiresAt}
}
