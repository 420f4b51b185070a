package repository

import (
	"context"

	"dbaportal/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrRefreshTokenNotFound is returned when a refresh token is not found,
// including when a conditional delete matched no row.
var ErrRefreshTokenNotFound = errors.New("refresh token not found")

// RefreshTokenRepository defines the interface for refresh token and session management operations.
type RefreshTokenRepository interface {
	// CreateRefreshToken persists a new refresh token, representing a user session.
	CreateRefreshToken(ctx context.Context, token *entity.RefreshToken) error

	// FindRefreshTokenByHash retrieves a refresh token record by its securely stored hash.
	FindRefreshTokenByHash(ctx context.Context, tokenHash string) (*entity.RefreshToken, error)

	// FindRefreshTokensByUserID retrieves all active refresh tokens for a specific user.
	FindRefreshTokensByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.RefreshToken, error)

	// DeleteRefreshTokenByHash deletes a refresh token by its hash.
	// It returns ErrRefreshTokenNotFound when no row was deleted, which makes it usable
	// as the compare-and-swap step of rotation.
	DeleteRefreshTokenByHash(ctx context.Context, tokenHash string) error

	// DeleteRefreshTokenForUser removes one session of a user. ErrRefreshTokenNotFound when
	// the session does not exist or belongs to someone else.
	DeleteRefreshTokenForUser(ctx context.Context, userID, id uuid.UUID) error

	// DeleteRefreshTokensByUserID removes every refresh token of a user and returns how many were removed.
	DeleteRefreshTokensByUserID(ctx context.Context, userID uuid.UUID) (int64, error)

	// DeleteExpiredRefreshTokens removes all expired refresh tokens and returns how many were removed.
	DeleteExpiredRefreshTokens(ctx context.Context) (int64, error)
}
