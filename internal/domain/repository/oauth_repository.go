package repository

import (
	"context"

	"dbaportal/internal/domain/entity"

	"github.com/pkg/errors"
)

// Domain-specific errors for OAuth persistence.
var (
	ErrOAuthClientNotFound       = errors.New("oauth client not found")
	ErrAuthorizationCodeNotFound = errors.New("authorization code not found")
	ErrOAuthTokenNotFound        = errors.New("oauth token not found")
)

// OAuthRepository persists clients, authorization codes and issued tokens of the delegated flow.
type OAuthRepository interface {
	CreateClient(ctx context.Context, client *entity.OAuthClient) error
	FindClientByClientID(ctx context.Context, clientID string) (*entity.OAuthClient, error)

	CreateAuthorizationCode(ctx context.Context, code *entity.AuthorizationCode) error
	FindAuthorizationCodeByHash(ctx context.Context, codeHash string) (*entity.AuthorizationCode, error)
	// DeleteAuthorizationCodeByHash consumes a code. ErrAuthorizationCodeNotFound when it was already gone.
	DeleteAuthorizationCodeByHash(ctx context.Context, codeHash string) error

	CreateToken(ctx context.Context, token *entity.OAuthToken) error
	FindTokenByAccessHash(ctx context.Context, accessHash string) (*entity.OAuthToken, error)
	FindTokenByRefreshHash(ctx context.Context, refreshHash string) (*entity.OAuthToken, error)
	// DeleteTokenByRefreshHash consumes a refresh token. ErrOAuthTokenNotFound when it was already gone.
	DeleteTokenByRefreshHash(ctx context.Context, refreshHash string) error
	// DeleteTokenByHash removes the token whose access or refresh hash matches, scoped to the client.
	DeleteTokenByHash(ctx context.Context, clientID, tokenHash string) (int64, error)
}
