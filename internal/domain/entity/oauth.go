package entity

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Grant types accepted by the token endpoint.
const (
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypeRefreshToken      = "refresh_token"
)

// OAuthClient is a registered machine client of the delegated-authorization flow.
type OAuthClient struct {
	ID           uuid.UUID
	ClientID     string
	SecretHash   string // bcrypt hash of the client secret.
	Name         string
	RedirectURIs []string
	Scopes       []string
	CreatedAt    time.Time
}

// AllowsRedirect reports whether uri is registered for the client. Matching is exact.
func (c *OAuthClient) AllowsRedirect(uri string) bool {
	return slices.Contains(c.RedirectURIs, uri)
}

// NarrowScope returns the requested scopes the client is allowed to ask for.
// An empty request yields every registered scope.
func (c *OAuthClient) NarrowScope(requested string) string {
	fields := strings.Fields(requested)
	if len(fields) == 0 {
		return strings.Join(c.Scopes, " ")
	}

	granted := make([]string, 0, len(fields))
	for _, s := range fields {
		if slices.Contains(c.Scopes, s) && !slices.Contains(granted, s) {
			granted = append(granted, s)
		}
	}

	return strings.Join(granted, " ")
}

// AuthorizationCode is a single-use, time-boxed grant bound to a client and redirect URI.
type AuthorizationCode struct {
	ID          uuid.UUID
	CodeHash    string
	ClientID    string
	UserID      uuid.UUID
	RedirectURI string
	Scope       string
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// IsExpired reports whether the code is past its expiry at now.
func (c *AuthorizationCode) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// OAuthToken is an opaque access/refresh pair issued to a client on behalf of a user.
type OAuthToken struct {
	ID               uuid.UUID
	AccessTokenHash  string
	RefreshTokenHash string
	ClientID         string
	UserID           uuid.UUID
	Scope            string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	CreatedAt        time.Time
}
