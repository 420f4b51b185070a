// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"

	"dbaportal/internal/domain/entity"

	"github.com/google/uuid"
)

// --- Input DTOs ---

// SignupInput defines the data required to request an account.
type SignupInput struct {
	Email    string
	Password string
	Name     string
}

// LoginInput defines the data required for a user to log in.
type LoginInput struct {
	Email    string
	Password string
}

// RefreshInput carries the refresh token presented by the client.
type RefreshInput struct {
	RefreshToken string
}

// LogoutInput identifies what to revoke. With a RefreshToken only that session ends;
// without one every session of UserID ends.
type LogoutInput struct {
	UserID       uuid.UUID
	RefreshToken string
}

// --- Output DTOs ---

// SignupOutput returns the pending account. No tokens are issued before approval.
type SignupOutput struct {
	User *entity.User
}

// TokenOutput returns a freshly minted token pair.
type TokenOutput struct {
	AccessToken  string
	RefreshToken string
	User         *entity.User
}

// AuthUsecase defines credential issuance and verification.
// This is the contract that the delivery layer (e.g., API handlers) will depend on.
type AuthUsecase interface {
	Signup(ctx context.Context, input *SignupInput) (*SignupOutput, error)
	Login(ctx context.Context, input *LoginInput) (*TokenOutput, error)
	Refresh(ctx context.Context, input *RefreshInput) (*TokenOutput, error)
	Logout(ctx context.Context, input *LogoutInput) error

	// Verify checks the token and then the current database state of its subject.
	Verify(ctx context.Context, accessToken string) (*entity.Identity, error)
	Me(ctx context.Context, userID uuid.UUID) (*entity.User, error)

	ListSessions(ctx context.Context, userID uuid.UUID) ([]*entity.RefreshToken, error)
	RevokeSession(ctx context.Context, userID, sessionID uuid.UUID) error
	CleanupExpiredSessions(ctx context.Context) (int64, error)
}
