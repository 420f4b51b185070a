package service

import (
	"time"

	"dbaportal/internal/domain/entity"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token type discriminators carried in the "type" claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims defines the custom claims for the JWT tokens.
// Refresh tokens carry only the subject and the type.
type Claims struct {
	Email       string   `json:"email,omitempty"`
	Name        string   `json:"name,omitempty"`
	Role        string   `json:"role,omitempty"`
	ClinicID    string   `json:"clinicId,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	Type        string   `json:"type"`
	jwt.RegisteredClaims
}

// TokenService defines the interface for generating and validating JWTs.
type TokenService interface {
	// GenerateTokens creates a new access token and refresh token for the identity.
	GenerateTokens(identity *entity.Identity) (accessToken string, refreshToken string, err error)

	// ValidateAccessToken returns ErrTokenExpired or ErrTokenInvalid (domain errors) on failure.
	ValidateAccessToken(tokenString string) (*Claims, error)

	// ValidateRefreshToken returns ErrRefreshTokenExpired for an authentic expired token and
	// ErrRefreshTokenInvalid for any other failure.
	ValidateRefreshToken(tokenString string) (*Claims, error)

	// HashToken returns the storage key of an opaque or signed token.
	HashToken(token string) string

	// GetAccessTokenDuration returns the configured duration for access tokens.
	GetAccessTokenDuration() time.Duration

	// GetRefreshTokenDuration returns the configured duration for refresh tokens.
	GetRefreshTokenDuration() time.Duration
}

// UserID parses the subject claim.
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// Identity rebuilds the identity carried by an access token. Unknown permissions are dropped.
func (c *Claims) Identity() (*entity.Identity, error) {
	userID, err := c.UserID()
	if err != nil {
		return nil, err
	}

	return &entity.Identity{
		UserID:      userID,
		Email:       c.Email,
		Name:        c.Name,
		Role:        entity.Role(c.Role),
		ClinicID:    c.ClinicID,
		Permissions: entity.PermissionsFromStrings(c.Permissions),
	}, nil
}
