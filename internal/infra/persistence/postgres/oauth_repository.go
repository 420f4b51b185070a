package postgres

import (
	"context"
	"strings"

	"dbaportal/internal/domain/entity"
	domainerrors "dbaportal/internal/domain/errors"
	"dbaportal/internal/domain/repository"
	"dbaportal/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// oauthRepository implements the domain.OAuthRepository interface.
type oauthRepository struct {
	db *gorm.DB
}

// NewOAuthRepository is the constructor for oauthRepository.
func NewOAuthRepository(db *gorm.DB) repository.OAuthRepository {
	return &oauthRepository{db: db}
}

func (repo *oauthRepository) CreateClient(ctx context.Context, client *entity.OAuthClient) error {
	if client.ID == uuid.Nil {
		client.ID = uuid.New()
	}
	clientM := &model.OAuthClientModel{
		ID:           client.ID,
		ClientID:     client.ClientID,
		SecretHash:   client.SecretHash,
		Name:         client.Name,
		RedirectURIs: strings.Join(client.RedirectURIs, " "),
		Scopes:       strings.Join(client.Scopes, " "),
	}

	if err := repo.db.WithContext(ctx).Create(clientM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return domainerrors.ErrConflict.WrapMessage("oauth client id already exists")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create oauth client")
	}

	client.CreatedAt = clientM.CreatedAt

	return nil
}

func (repo *oauthRepository) FindClientByClientID(ctx context.Context, clientID string) (*entity.OAuthClient, error) {
	var clientM model.OAuthClientModel
	if err := repo.db.WithContext(ctx).Where("client_id = ?", clientID).First(&clientM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrOAuthClientNotFound
		}

		return nil, errors.WithStack(err)
	}

	return &entity.OAuthClient{
		ID:           clientM.ID,
		ClientID:     clientM.ClientID,
		SecretHash:   clientM.SecretHash,
		Name:         clientM.Name,
		RedirectURIs: strings.Fields(clientM.RedirectURIs),
		Scopes:       strings.Fields(clientM.Scopes),
		CreatedAt:    clientM.CreatedAt,
	}, nil
}

func (repo *oauthRepository) CreateAuthorizationCode(ctx context.Context, code *entity.AuthorizationCode) error {
	if code.ID == uuid.Nil {
		code.ID = uuid.New()
	}
	codeM := &model.AuthorizationCodeModel{
		ID:          code.ID,
		CodeHash:    code.CodeHash,
		ClientID:    code.ClientID,
		UserID:      code.UserID,
		RedirectURI: code.RedirectURI,
		Scope:       code.Scope,
		ExpiresAt:   code.ExpiresAt,
	}

	if err := repo.db.WithContext(ctx).Create(codeM).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to create authorization code")
	}

	code.CreatedAt = codeM.CreatedAt

	return nil
}

func (repo *oauthRepository) FindAuthorizationCodeByHash(ctx context.Context, codeHash string) (*entity.AuthorizationCode, error) {
	var codeM model.AuthorizationCodeModel
	if err := repo.db.WithContext(ctx).Where("code_hash = ?", codeHash).First(&codeM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrAuthorizationCodeNotFound
		}

		return nil, errors.WithStack(err)
	}

	return &entity.AuthorizationCode{
		ID:          codeM.ID,
		CodeHash:    codeM.CodeHash,
		ClientID:    codeM.ClientID,
		UserID:      codeM.UserID,
		RedirectURI: codeM.RedirectURI,
		Scope:       codeM.Scope,
		ExpiresAt:   codeM.ExpiresAt,
		CreatedAt:   codeM.CreatedAt,
	}, nil
}

func (repo *oauthRepository) DeleteAuthorizationCodeByHash(ctx context.Context, codeHash string) error {
	result := repo.db.WithContext(ctx).Where("code_hash = ?", codeHash).Delete(&model.AuthorizationCodeModel{})
	if result.Error != nil {
		return errors.WithStack(result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrAuthorizationCodeNotFound
	}

	return nil
}

func (repo *oauthRepository) CreateToken(ctx context.Context, token *entity.OAuthToken) error {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	tokenM := &model.OAuthTokenModel{
		ID:               token.ID,
		AccessTokenHash:  token.AccessTokenHash,
		RefreshTokenHash: token.RefreshTokenHash,
		ClientID:         token.ClientID,
		UserID:           token.UserID,
		Scope:            token.Scope,
		AccessExpiresAt:  token.AccessExpiresAt,
		RefreshExpiresAt: token.RefreshExpiresAt,
	}

	if err := repo.db.WithContext(ctx).Create(tokenM).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to create oauth token")
	}

	token.CreatedAt = tokenM.CreatedAt

	return nil
}

func (repo *oauthRepository) FindTokenByAccessHash(ctx context.Context, accessHash string) (*entity.OAuthToken, error) {
	return repo.findToken(ctx, "access_token_hash = ?", accessHash)
}

func (repo *oauthRepository) FindTokenByRefreshHash(ctx context.Context, refreshHash string) (*entity.OAuthToken, error) {
	return repo.findToken(ctx, "refresh_token_hash = ?", refreshHash)
}

func (repo *oauthRepository) DeleteTokenByRefreshHash(ctx context.Context, refreshHash string) error {
	result := repo.db.WithContext(ctx).Where("refresh_token_hash = ?", refreshHash).Delete(&model.OAuthTokenModel{})
	if result.Error != nil {
		return errors.WithStack(result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrOAuthTokenNotFound
	}

	return nil
}

func (repo *oauthRepository) DeleteTokenByHash(ctx context.Context, clientID, tokenHash string) (int64, error) {
	result := repo.db.WithContext(ctx).
		Where("client_id = ? AND (access_token_hash = ? OR refresh_token_hash = ?)", clientID, tokenHash, tokenHash).
		Delete(&model.OAuthTokenModel{})
	if result.Error != nil {
		return 0, errors.WithStack(result.Error)
	}

	return result.RowsAffected, nil
}

func (repo *oauthRepository) findToken(ctx context.Context, cond string, hash string) (*entity.OAuthToken, error) {
	var tokenM model.OAuthTokenModel
	if err := repo.db.WithContext(ctx).Where(cond, hash).First(&tokenM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrOAuthTokenNotFound
		}

		return nil, errors.WithStack(err)
	}

	return &entity.OAuthToken{
		ID:               tokenM.ID,
		AccessTokenHash:  tokenM.AccessTokenHash,
		RefreshTokenHash: tokenM.RefreshTokenHash,
		ClientID:         tokenM.ClientID,
		UserID:           tokenM.UserID,
		Scope:            tokenM.Scope,
		AccessExpiresAt:  tokenM.AccessExpiresAt,
		RefreshExpiresAt: tokenM.RefreshExpiresAt,
		CreatedAt:        tokenM.CreatedAt,
	}, nil
}
