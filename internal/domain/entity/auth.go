package entity

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken represents a long-lived, authorized user session.
// Only the SHA-256 hash of the raw token is stored.
type RefreshToken struct {
	ID        uuid.UUID // The unique ID for this specific refresh token record.
	UserID    uuid.UUID // Links this session to the User it belongs to.
	TokenHash string    // SHA-256 hash of the raw refresh token.
	ExpiresAt time.Time // After this instant the token is rejected and deleted when presented.
	CreatedAt time.Time // When the session was created, i.e. login or the last rotation.
}

// IsExpired reports whether the token is past its expiry at now.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Identity is the verified view of an account carried inside an access token and
// propagated to downstream services through the x-user-* headers.
type Identity struct {
	UserID      uuid.UUID
	Email       string
	Name        string
	Role        Role
	ClinicID    string
	Permissions Permissions
}

// IdentityOf projects the current database record of a user.
func IdentityOf(u *User) *Identity {
	return &Identity{
		UserID:      u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Role:        u.Role,
		ClinicID:    u.ClinicIDValue(),
		Permissions: u.Permissions,
	}
}

// HasRole reports whether the identity holds one of the roles.
func (i *Identity) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}

	return false
}
