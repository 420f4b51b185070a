package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"dbaportal/config"
	deliverycontext "dbaportal/internal/delivery/context"
	"dbaportal/internal/delivery/identity"
	"dbaportal/internal/domain/entity"
	domainerrors "dbaportal/internal/domain/errors"
	"dbaportal/internal/domain/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

const verifyPath = "/api/auth/verify"

// Verifier turns an access token into the identity forwarded downstream.
type Verifier interface {
	Verify(ctx context.Context, token string) (*entity.Identity, error)
}

// VerifierParams holds dependencies for the configured verifier, injected by Fx.
type VerifierParams struct {
	fx.In

	Config *config.Config
	Tokens service.TokenService
}

// NewVerifier selects local or remote verification from gateway.verification.
func NewVerifier(params VerifierParams) (Verifier, error) {
	gw := params.Config.Gateway
	if gw == nil {
		return nil, errors.New("gateway configuration is required")
	}

	switch gw.Verification {
	case config.VerificationLocal, "":
		return NewLocalVerifier(params.Tokens), nil
	case config.VerificationRemote:
		if gw.AuthServiceURL == "" {
			return nil, errors.New("gateway.authServiceUrl is required for remote verification")
		}

		return NewRemoteVerifier(gw.AuthServiceURL, params.Config.Auth.InternalToken, gw.RemoteTimeout), nil
	default:
		return nil, errors.Errorf("unknown verification strategy: %s", gw.Verification)
	}
}

type localVerifier struct {
	tokens service.TokenService
}

// NewLocalVerifier checks signature and expiry only. Revocation and approval
// changes take effect when the access token expires.
func NewLocalVerifier(tokens service.TokenService) Verifier {
	return &localVerifier{tokens: tokens}
}

func (v *localVerifier) Verify(_ context.Context, token string) (*entity.Identity, error) {
	claims, err := v.tokens.ValidateAccessToken(token)
	if err != nil {
		return nil, err
	}

	verified, err := claims.Identity()
	if err != nil {
		return nil, errors.WithStack(domainerrors.ErrTokenInvalid.WithDetails("malformed subject"))
	}

	return verified, nil
}

type remoteVerifier struct {
	endpoint      string
	internalToken string
	client        *http.Client
}

// NewRemoteVerifier asks the auth service, which also checks the account is still approved.
func NewRemoteVerifier(authServiceURL, internalToken string, timeout time.Duration) Verifier {
	return &remoteVerifier{
		endpoint:      strings.TrimRight(authServiceURL, "/") + verifyPath,
		internalToken: internalToken,
		client:        &http.Client{Timeout: timeout},
	}
}

type verifyEnvelope struct {
	Data struct {
		UserID      string   `json:"userId"`
		Email       string   `json:"email"`
		Name        string   `json:"name"`
		Role        string   `json:"role"`
		ClinicID    string   `json:"clinicId"`
		Permissions []string `json:"permissions"`
	} `json:"data"`
	Error string `json:"error"`
}

func (v *remoteVerifier) Verify(ctx context.Context, token string) (*entity.Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build verify request")
	}
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	if v.internalToken != "" {
		req.Header.Set(identity.HeaderInternalToken, v.internalToken)
	}
	if requestID := deliverycontext.GetRequestIDFromContext(ctx); requestID != "" {
		req.Header.Set(deliverycontext.HeaderXRequestID, requestID)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, errors.WithStack(domainerrors.ErrServiceUnavailable.WithDetails("auth service unreachable: " + err.Error()))
	}
	defer resp.Body.Close()

	var body verifyEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil && resp.StatusCode == http.StatusOK {
		return nil, errors.WithStack(domainerrors.ErrServiceUnavailable.WithDetails("malformed verify response"))
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, errors.WithStack(remoteAuthError(body.Error))
	default:
		return nil, errors.WithStack(domainerrors.ErrServiceUnavailable.WithDetails("verify returned " + resp.Status))
	}

	userID, err := uuid.Parse(body.Data.UserID)
	if err != nil {
		return nil, errors.WithStack(domainerrors.ErrTokenInvalid.WithDetails("malformed subject"))
	}

	return &entity.Identity{
		UserID:      userID,
		Email:       body.Data.Email,
		Name:        body.Data.Name,
		Role:        entity.Role(body.Data.Role),
		ClinicID:    body.Data.ClinicID,
		Permissions: entity.PermissionsFromStrings(body.Data.Permissions),
	}, nil
}

// remoteAuthError keeps the expired/malformed distinction of the auth service.
func remoteAuthError(code string) *domainerrors.BaseError {
	switch code {
	case domainerrors.ErrTokenExpired.ErrorCode():
		return domainerrors.ErrTokenExpired
	case domainerrors.ErrTokenMissing.ErrorCode():
		return domainerrors.ErrTokenMissing
	case domainerrors.ErrAccountNotApproved.ErrorCode():
		return domainerrors.ErrAccountNotApproved
	default:
		return domainerrors.ErrTokenInvalid
	}
}
