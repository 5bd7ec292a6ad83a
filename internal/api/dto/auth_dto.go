package dto

import "time"

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	UserName string `json:"user_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest carries the expired access token and the refresh token.
type RefreshRequest struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token        string    `json:"token"`
	ExpiresAt    time.Time `json:"expires_at"`
	RefreshToken string    `json:"refresh_token"`
	UserName     string    `json:"user_name"`
	Roles        []string  `json:"roles"`
}

// UserResponse is the public account shape.
type UserResponse struct {
	ID       string   `json:"id"`
	UserName string   `json:"user_name"`
	Email    string   `json:"email"`
	IsActive bool     `json:"is_active"`
	Roles    []string `json:"roles,omitempty"`
}
