// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"dbaportal/config"
	"dbaportal/internal/domain/entity"
	domainerrors "dbaportal/internal/domain/errors"
	"dbaportal/internal/domain/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// jwtService is a concrete implementation of the TokenService interface using the JWT standard.
type jwtService struct {
	accessSecret  []byte        // Secret key for signing access tokens.
	refreshSecret []byte        // Secret key for signing refresh tokens.
	accessTTL     time.Duration // Time-to-live for access tokens.
	refreshTTL    time.Duration // Time-to-live for refresh tokens.
	now           func() time.Time
}

// NewJWTService is the constructor for jwtService.
func NewJWTService(cfg *config.Config) (service.TokenService, error) {
	if cfg.SecretKey.Access == "" || cfg.SecretKey.Refresh == "" {
		return nil, errors.New("jwt secrets must be provided")
	}

	accessTTL, refreshTTL := 15*time.Minute, 7*24*time.Hour
	if cfg.Auth != nil {
		if cfg.Auth.AccessTokenTTL > 0 {
			accessTTL = cfg.Auth.AccessTokenTTL
		}
		if cfg.Auth.RefreshTokenTTL > 0 {
			refreshTTL = cfg.Auth.RefreshTokenTTL
		}
	}

	return &jwtService{
		accessSecret:  []byte(cfg.SecretKey.Access),
		refreshSecret: []byte(cfg.SecretKey.Refresh),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}, nil
}

// GenerateTokens creates a new access token and refresh token for the identity.
func (s *jwtService) GenerateTokens(identity *entity.Identity) (accessToken string, refreshToken string, err error) {
	now := s.now()

	accessClaims := &service.Claims{
		Email:            identity.Email,
		Name:             identity.Name,
		Role:             identity.Role.String(),
		ClinicID:         identity.ClinicID,
		Permissions:      identity.Permissions.ToStrings(),
		Type:             service.TokenTypeAccess,
		RegisteredClaims: s.registeredClaims(identity.UserID, now, s.accessTTL),
	}
	accessToken, err = jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString(s.accessSecret)
	if err != nil {
		return "", "", errors.Wrap(err, "sign access token")
	}

	refreshClaims := &service.Claims{
		Type:             service.TokenTypeRefresh,
		RegisteredClaims: s.registeredClaims(identity.UserID, now, s.refreshTTL),
	}
	refreshToken, err = jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString(s.refreshSecret)
	if err != nil {
		return "", "", errors.Wrap(err, "sign refresh token")
	}

	return accessToken, refreshToken, nil
}

// ValidateAccessToken distinguishes expiry from every other failure so clients know to refresh.
func (s *jwtService) ValidateAccessToken(tokenString string) (*service.Claims, error) {
	claims, err := s.parse(tokenString, s.accessSecret)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domainerrors.ErrTokenExpired.WrapMessage("validate access token")
		}

		return nil, domainerrors.ErrTokenInvalid.WithDetails(err.Error())
	}

	if claims.Type != service.TokenTypeAccess {
		return nil, domainerrors.ErrTokenInvalid.WithDetails("unexpected token type")
	}

	return claims, nil
}

// ValidateRefreshToken reports an authentic but expired refresh JWT as ErrRefreshTokenExpired.
// jwt checks the signature before the claims, so expiry is only reported for tokens this service signed.
func (s *jwtService) ValidateRefreshToken(tokenString string) (*service.Claims, error) {
	claims, err := s.parse(tokenString, s.refreshSecret)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domainerrors.ErrRefreshTokenExpired.WrapMessage("validate refresh token")
		}

		return nil, domainerrors.ErrRefreshTokenInvalid.WithDetails(err.Error())
	}

	if claims.Type != service.TokenTypeRefresh {
		return nil, domainerrors.ErrRefreshTokenInvalid.WithDetails("unexpected token type")
	}

	return claims, nil
}

// HashToken returns the hex SHA-256 of the token.
func (s *jwtService) HashToken(token string) string {
	return HashToken(token)
}

// GetAccessTokenDuration returns the configured duration for access tokens.
func (s *jwtService) GetAccessTokenDuration() time.Duration {
	return s.accessTTL
}

// GetRefreshTokenDuration returns the configured duration for refresh tokens.
func (s *jwtService) GetRefreshTokenDuration() time.Duration {
	return s.refreshTTL
}

func (s *jwtService) parse(tokenString string, secret []byte) (*service.Claims, error) {
	claims := &service.Claims{}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if _, err := claims.UserID(); err != nil {
		return nil, errors.Wrap(err, "invalid subject")
	}

	return claims, nil
}

func (s *jwtService) registeredClaims(userID uuid.UUID, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   userID.String(),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

// HashToken returns the hex SHA-256 of a token, the storage key of refresh tokens and OAuth artifacts.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))

	return hex.EncodeToString(sum[:])
}
