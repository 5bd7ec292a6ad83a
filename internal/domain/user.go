package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role names as they appear in token role claims.
const (
	RoleAdmin    = "Admin"
	RoleERP      = "ERP"
	RoleEmployee = "Employee"
)

// User is a plain account record. Credential verification lives in the auth
// package; the user only carries the stored hash.
type User struct {
	ID           uuid.UUID
	UserName     string
	Email        string
	PasswordHash string
	IsActive     bool
	Roles        []string
	Claims       map[string]string
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// At most one live refresh token per user; a new login or a successful
	// refresh overwrites it.
	RefreshToken           *string
	RefreshTokenExpiryDate *time.Time
}

// Actor is the resolved identity a request acts as. The boundary layer builds
// it once per request from the bearer token and threads it explicitly through
// every core call.
type Actor struct {
	UserID uuid.UUID
	Roles  []string
}

// HasRole reports membership of a single role.
func (a Actor) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports Admin role membership.
func (a Actor) IsAdmin() bool { return a.HasRole(RoleAdmin) }

// IsERP reports ERP role membership.
func (a Actor) IsERP() bool { return a.HasRole(RoleERP) }
