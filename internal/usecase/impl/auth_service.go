// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"
	"strings"
	"time"

	deliverycontext "dbaportal/internal/delivery/context"
	"dbaportal/internal/domain/entity"
	domainerrors "dbaportal/internal/domain/errors"
	"dbaportal/internal/domain/repository"
	"dbaportal/internal/domain/service"
	"dbaportal/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// authService implements the AuthUsecase interface.
type authService struct {
	txManager        repository.TransactionManager
	userRepo         repository.UserRepository
	refreshTokenRepo repository.RefreshTokenRepository
	hasher           service.PasswordHasher
	tokenService     service.TokenService
	publisher        service.EventPublisher
	notifier         service.AdminNotifier
	logger           *slog.Logger
	now              func() time.Time
}

// AuthServiceParams holds dependencies for AuthService, injected by Fx.
type AuthServiceParams struct {
	fx.In

	TxManager        repository.TransactionManager
	UserRepo         repository.UserRepository
	RefreshTokenRepo repository.RefreshTokenRepository
	Hasher           service.PasswordHasher
	TokenService     service.TokenService
	Publisher        service.EventPublisher
	Notifier         service.AdminNotifier
	Logger           *slog.Logger
}

// NewAuthService is the constructor for authService. It receives all dependencies as interfaces.
func NewAuthService(params AuthServiceParams) usecase.AuthUsecase {
	return &authService{
		txManager:        params.TxManager,
		userRepo:         params.UserRepo,
		refreshTokenRepo: params.RefreshTokenRepo,
		hasher:           params.Hasher,
		tokenService:     params.TokenService,
		publisher:        params.Publisher,
		notifier:         params.Notifier,
		logger:           params.Logger,
		now:              time.Now,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *authService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Signup creates a PENDING account. No token is issued until an administrator approves it.
func (srv *authService) Signup(ctx context.Context, input *usecase.SignupInput) (*usecase.SignupOutput, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	srv.log(ctx).Info("Starting signup", slog.String("email", email))

	_, err := srv.userRepo.FindByEmail(ctx, email)
	if err == nil {
		return nil, errors.Wrap(domainerrors.ErrUserAlreadyExists, "signup failed")
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, errors.Wrap(err, "failed to look up email")
	}

	passwordHash, err := srv.hasher.Hash(input.Password)
	if err != nil {
		srv.log(ctx).Error("Failed to hash password during signup", slog.Any("error", err))

		return nil, errors.Wrap(domainerrors.ErrPasswordHashFailed.WithDetails(err.Error()), "signup failed")
	}

	newUser := entity.NewPendingUser(email, passwordHash, strings.TrimSpace(input.Name))
	if err := srv.userRepo.Create(ctx, newUser); err != nil {
		if errors.Is(err, repository.ErrUserEmailTaken) {
			return nil, errors.Wrap(domainerrors.ErrUserAlreadyExists, "signup failed")
		}

		return nil, errors.Wrap(err, "failed to create user during signup")
	}

	srv.announceSignup(ctx, newUser)
	srv.log(ctx).Info("Signup completed, awaiting approval", slog.Any("userID", newUser.ID))

	return &usecase.SignupOutput{User: newUser}, nil
}

// announceSignup fires the signup event and the admin push. Neither may fail the signup.
func (srv *authService) announceSignup(ctx context.Context, user *entity.User) {
	event := newAccountEvent(ctx, service.EventAccountSignedUp, user, uuid.Nil)
	if err := srv.publisher.PublishAccountEvent(ctx, event); err != nil {
		srv.log(ctx).Warn("Failed to publish signup event", slog.Any("userID", user.ID), slog.Any("error", err))
	}

	data := map[string]string{
		"type":    service.EventAccountSignedUp,
		"user_id": user.ID.String(),
	}
	if err := srv.notifier.NotifyAdmins(ctx, "신규 가입 요청", user.Name+" ("+user.Email+") 님이 승인을 기다리고 있습니다.", data); err != nil {
		srv.log(ctx).Warn("Failed to notify administrators of signup", slog.Any("userID", user.ID), slog.Any("error", err))
	}
}

// Login checks the password before the approval state. Status messages are only returned
// for a matching password.
func (srv *authService) Login(ctx context.Context, input *usecase.LoginInput) (*usecase.TokenOutput, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	srv.log(ctx).Debug("Starting user login", slog.String("email", email))

	user, err := srv.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			srv.log(ctx).Warn("Login failed", slog.String("email", email), slog.String("reason", "unknown email"))

			return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "login failed")
		}

		return nil, errors.Wrap(err, "failed to find user by email")
	}

	if !srv.hasher.Check(input.Password, user.PasswordHash) {
		srv.log(ctx).Warn("Login failed", slog.String("email", email), slog.String("reason", "password mismatch"))

		return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "login failed")
	}

	if err := statusError(user); err != nil {
		srv.log(ctx).Warn("Login refused", slog.Any("userID", user.ID), slog.String("status", string(user.Status)))

		return nil, errors.Wrap(err, "login failed")
	}

	output, err := srv.issueTokens(ctx, srv.refreshTokenRepo, user)
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue tokens during login")
	}
	srv.log(ctx).Debug("User logged in successfully", slog.Any("userID", user.ID))

	return output, nil
}

// statusError maps a non-approved account to the status-specific login error.
func statusError(user *entity.User) error {
	switch user.Status {
	case entity.UserStatusApproved:
		return nil
	case entity.UserStatusPending:
		return domainerrors.ErrAccountPending
	case entity.UserStatusRejected:
		return domainerrors.ErrAccountRejected
	default:
		return domainerrors.ErrAccountNotApproved
	}
}

// issueTokens mints a pair for the user's current record and stores the refresh hash.
func (srv *authService) issueTokens(ctx context.Context, refreshRepo repository.RefreshTokenRepository, user *entity.User) (*usecase.TokenOutput, error) {
	accessToken, refreshToken, err := srv.tokenService.GenerateTokens(entity.IdentityOf(user))
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate tokens")
	}

	now := srv.now()
	record := &entity.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: srv.tokenService.HashToken(refreshToken),
		ExpiresAt: now.Add(srv.tokenService.GetRefreshTokenDuration()),
		CreatedAt: now,
	}
	if err := refreshRepo.CreateRefreshToken(ctx, record); err != nil {
		return nil, errors.Wrap(err, "failed to store refresh token")
	}

	return &usecase.TokenOutput{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	}, nil
}

// Refresh exchanges a refresh token for a new pair. The old token is consumed by a conditional
// delete inside the transaction, so of two concurrent exchanges only one can commit.
func (srv *authService) Refresh(ctx context.Context, input *usecase.RefreshInput) (*usecase.TokenOutput, error) {
	if input.RefreshToken == "" {
		return nil, errors.WithStack(domainerrors.ErrRefreshTokenMissing)
	}

	tokenHash := srv.tokenService.HashToken(input.RefreshToken)

	claims, err := srv.tokenService.ValidateRefreshToken(input.RefreshToken)
	if err != nil {
		if errors.Is(err, domainerrors.ErrRefreshTokenExpired) {
			srv.deleteExpiredRefreshToken(ctx, tokenHash)
		}

		return nil, errors.Wrap(err, "invalid refresh token")
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrRefreshTokenInvalid, "refresh token subject is not a user id")
	}

	stored, err := srv.refreshTokenRepo.FindRefreshTokenByHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			srv.log(ctx).Warn("Refresh with unknown or already rotated token", slog.Any("userID", userID))

			return nil, errors.Wrap(domainerrors.ErrRefreshTokenInvalid, "refresh token not found")
		}

		return nil, errors.Wrap(err, "failed to find refresh token")
	}
	if stored.UserID != userID {
		return nil, errors.Wrap(domainerrors.ErrRefreshTokenInvalid, "refresh token subject mismatch")
	}
	if stored.IsExpired(srv.now()) {
		srv.deleteExpiredRefreshToken(ctx, tokenHash)

		return nil, errors.Wrap(domainerrors.ErrRefreshTokenExpired, "refresh token expired")
	}

	var output *usecase.TokenOutput
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		refreshRepo := repoFactory.NewRefreshTokenRepository()
		userRepo := repoFactory.NewUserRepository()

		if err := refreshRepo.DeleteRefreshTokenByHash(ctx, tokenHash); err != nil {
			if errors.Is(err, repository.ErrRefreshTokenNotFound) {
				return errors.Wrap(domainerrors.ErrInvalidGrant, "refresh token already rotated")
			}

			return errors.Wrap(err, "failed to consume refresh token")
		}

		user, err := userRepo.FindByID(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return errors.Wrap(domainerrors.ErrAccountNotApproved, "user no longer exists")
			}

			return errors.Wrap(err, "failed to find user")
		}
		if !user.IsApproved() {
			return errors.Wrap(domainerrors.ErrAccountNotApproved, "user is not approved")
		}

		output, err = srv.issueTokens(ctx, refreshRepo, user)

		return err
	})
	if err != nil {
		srv.log(ctx).Warn("Refresh token rotation failed", slog.Any("userID", userID), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to execute refresh token transaction")
	}

	srv.log(ctx).Debug("Refresh token rotated", slog.Any("userID", userID))

	return output, nil
}

func (srv *authService) deleteExpiredRefreshToken(ctx context.Context, tokenHash string) {
	err := srv.refreshTokenRepo.DeleteRefreshTokenByHash(ctx, tokenHash)
	if err != nil && !errors.Is(err, repository.ErrRefreshTokenNotFound) {
		srv.log(ctx).Warn("Failed to delete expired refresh token", slog.Any("error", err))
	}
}

// Logout is idempotent: nothing to delete is not an error.
func (srv *authService) Logout(ctx context.Context, input *usecase.LogoutInput) error {
	if input.RefreshToken != "" {
		tokenHash := srv.tokenService.HashToken(input.RefreshToken)
		if err := srv.refreshTokenRepo.DeleteRefreshTokenByHash(ctx, tokenHash); err != nil && !errors.Is(err, repository.ErrRefreshTokenNotFound) {
			srv.log(ctx).Error("Failed to delete refresh token", slog.Any("error", err))

			return errors.Wrap(err, "failed to delete refresh token")
		}
		srv.log(ctx).Info("Session logged out", slog.Any("userID", input.UserID))

		return nil
	}

	if input.UserID == uuid.Nil {
		return nil
	}

	removed, err := srv.refreshTokenRepo.DeleteRefreshTokensByUserID(ctx, input.UserID)
	if err != nil {
		srv.log(ctx).Error("Failed to delete refresh tokens of user", slog.Any("userID", input.UserID), slog.Any("error", err))

		return errors.Wrap(err, "failed to delete refresh tokens")
	}
	srv.log(ctx).Info("All sessions logged out", slog.Any("userID", input.UserID), slog.Int64("removed", removed))

	return nil
}

// Verify is the stateful check behind the gateway's remote strategy: the signature must hold
// and the subject must still exist and be APPROVED. The identity reflects the current record.
func (srv *authService) Verify(ctx context.Context, accessToken string) (*entity.Identity, error) {
	if accessToken == "" {
		return nil, errors.WithStack(domainerrors.ErrTokenMissing)
	}

	claims, err := srv.tokenService.ValidateAccessToken(accessToken)
	if err != nil {
		return nil, errors.Wrap(err, "token verification failed")
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrTokenInvalid, "token subject is not a user id")
	}

	user, err := srv.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, errors.Wrap(domainerrors.ErrTokenInvalid.WithDetails("subject no longer exists"), "token verification failed")
		}

		return nil, errors.Wrap(err, "failed to find user")
	}
	if !user.IsApproved() {
		srv.log(ctx).Warn("Verify refused for non-approved user", slog.Any("userID", userID), slog.String("status", string(user.Status)))

		return nil, errors.Wrap(domainerrors.ErrAccountNotApproved, "token verification failed")
	}

	return entity.IdentityOf(user), nil
}

func (srv *authService) Me(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := srv.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, errors.Wrap(domainerrors.ErrUserNotFound, "failed to load profile")
		}

		return nil, errors.Wrap(err, "failed to find user")
	}

	return user, nil
}

// ListSessions returns the unexpired refresh tokens of the user.
func (srv *authService) ListSessions(ctx context.Context, userID uuid.UUID) ([]*entity.RefreshToken, error) {
	tokens, err := srv.refreshTokenRepo.FindRefreshTokensByUserID(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list sessions")
	}

	now := srv.now()
	active := make([]*entity.RefreshToken, 0, len(tokens))
	for _, token := range tokens {
		if !token.IsExpired(now) {
			active = append(active, token)
		}
	}

	return active, nil
}

func (srv *authService) RevokeSession(ctx context.Context, userID, sessionID uuid.UUID) error {
	if err := srv.refreshTokenRepo.DeleteRefreshTokenForUser(ctx, userID, sessionID); err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return errors.Wrap(domainerrors.ErrSessionNotFound, "failed to revoke session")
		}

		return errors.Wrap(err, "failed to revoke session")
	}
	srv.log(ctx).Info("Session revoked", slog.Any("userID", userID), slog.Any("sessionID", sessionID))

	return nil
}

func (srv *authService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	removed, err := srv.refreshTokenRepo.DeleteExpiredRefreshTokens(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to clean up expired sessions")
	}
	srv.log(ctx).Info("Expired sessions cleaned up", slog.Int64("removed", removed))

	return removed, nil
}

func newAccountEvent(ctx context.Context, eventType string, user *entity.User, actorID uuid.UUID) *service.AccountEvent {
	event := &service.AccountEvent{
		RequestID:  deliverycontext.GetRequestIDFromContext(ctx),
		EventID:    uuid.New().String(),
		Type:       eventType,
		UserID:     user.ID.String(),
		Email:      user.Email,
		ClinicID:   user.ClinicIDValue(),
		Role:       user.Role.String(),
		OccurredAt: time.Now().UTC(),
	}
	if actorID != uuid.Nil {
		event.ActorID = actorID.String()
	}

	return event
}
