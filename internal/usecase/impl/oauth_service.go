package impl

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"dbaportal/config"
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

const (
	clientIDPrefix   = "dba_"
	tokenTypeBearer  = "Bearer"
	opaqueTokenBytes = 32
)

// oauthService implements the OAuthUsecase interface.
type oauthService struct {
	txManager       repository.TransactionManager
	oauthRepo       repository.OAuthRepository
	userRepo        repository.UserRepository
	hasher          service.PasswordHasher
	tokenService    service.TokenService
	codeTTL         time.Duration
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	logger          *slog.Logger
	now             func() time.Time
}

// OAuthServiceParams holds dependencies for OAuthService, injected by Fx.
type OAuthServiceParams struct {
	fx.In

	TxManager    repository.TransactionManager
	OAuthRepo    repository.OAuthRepository
	UserRepo     repository.UserRepository
	Hasher       service.PasswordHasher
	TokenService service.TokenService
	Config       *config.Config
	Logger       *slog.Logger
}

func NewOAuthService(params OAuthServiceParams) usecase.OAuthUsecase {
	return &oauthService{
		txManager:       params.TxManager,
		oauthRepo:       params.OAuthRepo,
		userRepo:        params.UserRepo,
		hasher:          params.Hasher,
		tokenService:    params.TokenService,
		codeTTL:         params.Config.OAuth.CodeTTL,
		accessTokenTTL:  params.Config.OAuth.AccessTokenTTL,
		refreshTokenTTL: params.Config.OAuth.RefreshTokenTTL,
		logger:          params.Logger,
		now:             time.Now,
	}
}

func (srv *oauthService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// RegisterClient creates a client and returns its secret in plaintext exactly once.
func (srv *oauthService) RegisterClient(ctx context.Context, input *usecase.RegisterClientInput) (*usecase.RegisterClientOutput, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errors.WithStack(domainerrors.ErrValidationFailed.WithDetails("client name is required"))
	}
	if len(input.RedirectURIs) == 0 {
		return nil, errors.WithStack(domainerrors.ErrValidationFailed.WithDetails("at least one redirect uri is required"))
	}
	for _, raw := range input.RedirectURIs {
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" || u.Fragment != "" {
			return nil, errors.WithStack(domainerrors.ErrValidationFailed.WithDetails("invalid redirect uri: " + raw))
		}
	}

	idPart, err := randomToken(16)
	if err != nil {
		return nil, err
	}
	secret, err := randomToken(opaqueTokenBytes)
	if err != nil {
		return nil, err
	}
	secretHash, err := srv.hasher.Hash(secret)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrPasswordHashFailed.WithDetails(err.Error()), "failed to hash client secret")
	}

	client := &entity.OAuthClient{
		ID:           uuid.New(),
		ClientID:     clientIDPrefix + idPart,
		SecretHash:   secretHash,
		Name:         name,
		RedirectURIs: input.RedirectURIs,
		Scopes:       input.Scopes,
		CreatedAt:    srv.now(),
	}
	if err := srv.oauthRepo.CreateClient(ctx, client); err != nil {
		return nil, errors.Wrap(err, "failed to create oauth client")
	}
	srv.log(ctx).Info("OAuth client registered", slog.String("clientID", client.ClientID), slog.String("name", name))

	return &usecase.RegisterClientOutput{Client: client, ClientSecret: secret}, nil
}

// Authorize issues a code for the signed-in user and builds the redirect back to the client.
func (srv *oauthService) Authorize(ctx context.Context, input *usecase.AuthorizeInput) (*usecase.AuthorizeOutput, error) {
	if input.Identity == nil {
		return nil, errors.WithStack(domainerrors.ErrUnauthenticated)
	}

	client, err := srv.findClient(ctx, input.ClientID)
	if err != nil {
		return nil, err
	}
	if !client.AllowsRedirect(input.RedirectURI) {
		return nil, errors.WithStack(domainerrors.ErrOAuthInvalidRequest.WithDetails("redirect_uri is not registered"))
	}

	if _, err := srv.approvedUser(ctx, srv.userRepo, input.Identity.UserID); err != nil {
		return nil, err
	}

	code, err := randomToken(opaqueTokenBytes)
	if err != nil {
		return nil, err
	}

	now := srv.now()
	authCode := &entity.AuthorizationCode{
		ID:          uuid.New(),
		CodeHash:    srv.tokenService.HashToken(code),
		ClientID:    client.ClientID,
		UserID:      input.Identity.UserID,
		RedirectURI: input.RedirectURI,
		Scope:       client.NarrowScope(input.Scope),
		ExpiresAt:   now.Add(srv.codeTTL),
		CreatedAt:   now,
	}
	if err := srv.oauthRepo.CreateAuthorizationCode(ctx, authCode); err != nil {
		return nil, errors.Wrap(err, "failed to store authorization code")
	}

	redirect, err := url.Parse(input.RedirectURI)
	if err != nil {
		return nil, errors.WithStack(domainerrors.ErrOAuthInvalidRequest.WithDetails("redirect_uri is malformed"))
	}
	query := redirect.Query()
	query.Set("code", code)
	if input.State != "" {
		query.Set("state", input.State)
	}
	redirect.RawQuery = query.Encode()

	srv.log(ctx).Info("Authorization code issued", slog.String("clientID", client.ClientID), slog.Any("userID", input.Identity.UserID))

	return &usecase.AuthorizeOutput{RedirectURL: redirect.String()}, nil
}

// Token implements the authorization_code and refresh_token grants.
func (srv *oauthService) Token(ctx context.Context, input *usecase.TokenInput) (*usecase.OAuthTokenOutput, error) {
	if input.GrantType == "" {
		return nil, errors.WithStack(domainerrors.ErrOAuthInvalidRequest.WithDetails("grant_type is required"))
	}

	client, err := srv.authenticateClient(ctx, input.ClientID, input.ClientSecret)
	if err != nil {
		return nil, err
	}

	switch input.GrantType {
	case entity.GrantTypeAuthorizationCode:
		return srv.exchangeCode(ctx, client, input)
	case entity.GrantTypeRefreshToken:
		return srv.rotateRefreshToken(ctx, client, input)
	default:
		return nil, errors.WithStack(domainerrors.ErrOAuthUnsupportedGrantType)
	}
}

func (srv *oauthService) exchangeCode(ctx context.Context, client *entity.OAuthClient, input *usecase.TokenInput) (*usecase.OAuthTokenOutput, error) {
	if input.Code == "" {
		return nil, errors.WithStack(domainerrors.ErrOAuthInvalidRequest.WithDetails("code is required"))
	}

	codeHash := srv.tokenService.HashToken(input.Code)
	code, err := srv.oauthRepo.FindAuthorizationCodeByHash(ctx, codeHash)
	if err != nil {
		if errors.Is(err, repository.ErrAuthorizationCodeNotFound) {
			return nil, errors.WithStack(domainerrors.ErrOAuthInvalidGrant.WithDetails("unknown or used code"))
		}

		return nil, errors.Wrap(err, "failed to find authorization code")
	}
	// a mismatched exchange burns the code
	if code.ClientID != client.ClientID || code.RedirectURI != input.RedirectURI {
		srv.log(ctx).Warn("Authorization code presented by another client or redirect_uri",
			slog.String("clientID", client.ClientID),
			slog.String("codeClientID", code.ClientID),
		)
		srv.discardCode(ctx, codeHash)

		return nil, errors.WithStack(domainerrors.ErrOAuthInvalidGrant.WithDetails("code was issued to another client or redirect_uri"))
	}
	if code.IsExpired(srv.now()) {
		srv.discardCode(ctx, codeHash)

		return nil, errors.WithStack(domainerrors.ErrOAuthInvalidGrant.WithDetails("code expired"))
	}

	var output *usecase.OAuthTokenOutput
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		oauthRepo := repoFactory.NewOAuthRepository()

		if err := oauthRepo.DeleteAuthorizationCodeByHash(ctx, codeHash); err != nil {
			if errors.Is(err, repository.ErrAuthorizationCodeNotFound) {
				return errors.WithStack(domainerrors.ErrOAuthInvalidGrant.WithDetails("code already used"))
			}

			return errors.Wrap(err, "failed to consume authorization code")
		}

		if _, err := srv.approvedUser(ctx, repoFactory.NewUserRepository(), code.UserID); err != nil {
			return err
		}

		var issueErr error
		output, issueErr = srv.issueTokenPair(ctx, oauthRepo, client.ClientID, code.UserID, code.Scope)

		return issueErr
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to exchange authorization code")
	}

	return output, nil
}

func (srv *oauthService) discardCode(ctx context.Context, codeHash string) {
	err := srv.oauthRepo.DeleteAuthorizationCodeByHash(ctx, codeHash)
	if err != nil && !errors.Is(err, repository.ErrAuthorizationCodeNotFound) {
		srv.log(ctx).Warn("Failed to delete authorization code", slog.Any("error", err))
	}
}

func (srv *oauthService) rotateRefreshToken(ctx context.Context, client *entity.OAuthClient, input *usecase.TokenInput) (*usecase.OAuthTokenOutput, error) {
	if input.RefreshToken == "" {
		return nil, errors.WithStack(domainerrors.ErrOAuthInvalidRequest.WithDetails("refresh_token is required"))
	}

	refreshHash := srv.tokenService.HashToken(input.RefreshToken)
	token, err := srv.oauthRepo.FindTokenByRefreshHash(ctx, refreshHash)
	if err != nil {
		if errors.Is(err, repository.ErrOAuthTokenNotFound) {
			return nil, errors.WithStack(domainerrors.ErrOAuthInvalidGrant.WithDetails("unknown refresh token"))
		}

		return nil, errors.Wrap(err, "failed to find oauth token")
	}
	if token.ClientID != client.ClientID {
		return nil, errors.WithStack(domainerrors.ErrOAuthInvalidGrant.WithDetails("refresh token was issued to another client"))
	}
	if !srv.now().Before(token.RefreshExpiresAt) {
		if err := srv.oauthRepo.DeleteTokenByRefreshHash(ctx, refreshHash); err != nil && !errors.Is(err, repository.ErrOAuthTokenNotFound) {
			srv.log(ctx).Warn("Failed to delete expired oauth token", slog.Any("error", err))
		}

		return nil, errors.WithStack(domainerrors.ErrOAuthInvalidGrant.WithDetails("refresh token expired"))
	}

	var output *usecase.OAuthTokenOutput
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		oauthRepo := repoFactory.NewOAuthRepository()

		if err := oauthRepo.DeleteTokenByRefreshHash(ctx, refreshHash); err != nil {
			if errors.Is(err, repository.ErrOAuthTokenNotFound) {
				return errors.WithStack(domainerrors.ErrOAuthInvalidGrant.WithDetails("refresh token already used"))
			}

			return errors.Wrap(err, "failed to consume refresh token")
		}

		if _, err := srv.approvedUser(ctx, repoFactory.NewUserRepository(), token.UserID); err != nil {
			return err
		}

		var issueErr error
		output, issueErr = srv.issueTokenPair(ctx, oauthRepo, client.ClientID, token.UserID, token.Scope)

		return issueErr
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to rotate oauth refresh token")
	}

	return output, nil
}

// UserInfo releases the profile behind an unexpired access token of an APPROVED user.
func (srv *oauthService) UserInfo(ctx context.Context, accessToken string) (*usecase.UserInfo, error) {
	if accessToken == "" {
		return nil, errors.WithStack(domainerrors.ErrOAuthInvalidToken)
	}

	token, err := srv.oauthRepo.FindTokenByAccessHash(ctx, srv.tokenService.HashToken(accessToken))
	if err != nil {
		if errors.Is(err, repository.ErrOAuthTokenNotFound) {
			return nil, errors.WithStack(domainerrors.ErrOAuthInvalidToken)
		}

		return nil, errors.Wrap(err, "failed to find oauth token")
	}
	if !srv.now().Before(token.AccessExpiresAt) {
		return nil, errors.WithStack(domainerrors.ErrOAuthInvalidToken.WithDetails("access token expired"))
	}

	user, err := srv.userRepo.FindByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, errors.WithStack(domainerrors.ErrOAuthInvalidToken)
		}

		return nil, errors.Wrap(err, "failed to find user")
	}
	if !user.IsApproved() {
		return nil, errors.WithStack(domainerrors.ErrOAuthInvalidToken.WithDetails("user is not approved"))
	}

	return &usecase.UserInfo{
		Subject:  user.ID.String(),
		Email:    user.Email,
		Name:     user.Name,
		Role:     user.Role,
		ClinicID: user.ClinicIDValue(),
		Scope:    token.Scope,
	}, nil
}

// Revoke deletes the access or refresh token. Unknown tokens are not an error.
func (srv *oauthService) Revoke(ctx context.Context, input *usecase.RevokeInput) error {
	client, err := srv.authenticateClient(ctx, input.ClientID, input.ClientSecret)
	if err != nil {
		return err
	}
	if input.Token == "" {
		return errors.WithStack(domainerrors.ErrOAuthInvalidRequest.WithDetails("token is required"))
	}

	removed, err := srv.oauthRepo.DeleteTokenByHash(ctx, client.ClientID, srv.tokenService.HashToken(input.Token))
	if err != nil {
		return errors.Wrap(err, "failed to revoke oauth token")
	}
	srv.log(ctx).Info("OAuth token revoked", slog.String("clientID", client.ClientID), slog.Int64("removed", removed))

	return nil
}

func (srv *oauthService) findClient(ctx context.Context, clientID string) (*entity.OAuthClient, error) {
	if clientID == "" {
		return nil, errors.WithStack(domainerrors.ErrOAuthInvalidRequest.WithDetails("client_id is required"))
	}

	client, err := srv.oauthRepo.FindClientByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrOAuthClientNotFound) {
			return nil, errors.WithStack(domainerrors.ErrOAuthInvalidClient)
		}

		return nil, errors.Wrap(err, "failed to find oauth client")
	}

	return client, nil
}

func (srv *oauthService) authenticateClient(ctx context.Context, clientID, clientSecret string) (*entity.OAuthClient, error) {
	client, err := srv.findClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if clientSecret == "" || !srv.hasher.Check(clientSecret, client.SecretHash) {
		srv.log(ctx).Warn("OAuth client authentication failed", slog.String("clientID", clientID))

		return nil, errors.WithStack(domainerrors.ErrOAuthInvalidClient)
	}

	return client, nil
}

func (srv *oauthService) approvedUser(ctx context.Context, userRepo repository.UserRepository, userID uuid.UUID) (*entity.User, error) {
	user, err := userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, errors.WithStack(domainerrors.ErrOAuthInvalidGrant.WithDetails("user no longer exists"))
		}

		return nil, errors.Wrap(err, "failed to find user")
	}
	if !user.IsApproved() {
		return nil, errors.WithStack(domainerrors.ErrAccountNotApproved)
	}

	return user, nil
}

func (srv *oauthService) issueTokenPair(ctx context.Context, oauthRepo repository.OAuthRepository, clientID string, userID uuid.UUID, scope string) (*usecase.OAuthTokenOutput, error) {
	accessToken, err := randomToken(opaqueTokenBytes)
	if err != nil {
		return nil, err
	}
	refreshToken, err := randomToken(opaqueTokenBytes)
	if err != nil {
		return nil, err
	}

	now := srv.now()
	record := &entity.OAuthToken{
		ID:               uuid.New(),
		AccessTokenHash:  srv.tokenService.HashToken(accessToken),
		RefreshTokenHash: srv.tokenService.HashToken(refreshToken),
		ClientID:         clientID,
		UserID:           userID,
		Scope:            scope,
		AccessExpiresAt:  now.Add(srv.accessTokenTTL),
		RefreshExpiresAt: now.Add(srv.refreshTokenTTL),
		CreatedAt:        now,
	}
	if err := oauthRepo.CreateToken(ctx, record); err != nil {
		return nil, errors.Wrap(err, "failed to store oauth token")
	}

	return &usecase.OAuthTokenOutput{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    srv.accessTokenTTL,
		Scope:        scope,
	}, nil
}

// randomToken returns n random bytes, base64url encoded without padding.
func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "failed to read random bytes")
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}
