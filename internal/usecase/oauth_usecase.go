package usecase

import (
	"context"
	"time"

	"dbaportal/internal/domain/entity"
)

// RegisterClientInput describes a new machine client.
type RegisterClientInput struct {
	Name         string
	RedirectURIs []string
	Scopes       []string
}

// RegisterClientOutput carries the plaintext secret. It is never retrievable again.
type RegisterClientOutput struct {
	Client       *entity.OAuthClient
	ClientSecret string
}

// AuthorizeInput is the consent request of a signed-in user.
type AuthorizeInput struct {
	Identity    *entity.Identity
	ClientID    string
	RedirectURI string
	Scope       string
	State       string
}

// AuthorizeOutput is where the user agent is sent next.
type AuthorizeOutput struct {
	RedirectURL string
}

// TokenInput is the body of the token endpoint.
type TokenInput struct {
	GrantType    string
	ClientID     string
	ClientSecret string
	Code         string
	RedirectURI  string
	RefreshToken string
}

// OAuthTokenOutput follows the RFC 6749 token response.
type OAuthTokenOutput struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    time.Duration
	Scope        string
}

// UserInfo is the profile released to a client.
type UserInfo struct {
	Subject  string
	Email    string
	Name     string
	Role     entity.Role
	ClinicID string
	Scope    string
}

// RevokeInput identifies a token to revoke on behalf of its client.
type RevokeInput struct {
	Token        string
	ClientID     string
	ClientSecret string
}

// OAuthUsecase defines the delegated-authorization flow for machine clients.
type OAuthUsecase interface {
	RegisterClient(ctx context.Context, input *RegisterClientInput) (*RegisterClientOutput, error)
	Authorize(ctx context.Context, input *AuthorizeInput) (*AuthorizeOutput, error)
	Token(ctx context.Context, input *TokenInput) (*OAuthTokenOutput, error)
	UserInfo(ctx context.Context, accessToken string) (*UserInfo, error)
	Revoke(ctx context.Context, input *RevokeInput) error
}
