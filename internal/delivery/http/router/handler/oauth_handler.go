package handler

import (
	"log/slog"
	"net/http"

	"dbaportal/internal/delivery/http/cookie"
	"dbaportal/internal/delivery/identity"
	"dbaportal/internal/delivery/response"
	domainerrors "dbaportal/internal/domain/errors"
	"dbaportal/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

const responseTypeCode = "code"

// OAuthHandlerParams holds dependencies for OAuthHandler, injected by Fx.
type OAuthHandlerParams struct {
	fx.In

	OAuthUC usecase.OAuthUsecase
	Logger  *slog.Logger
}

// OAuthHandler serves the authorization-code flow for machine clients.
type OAuthHandler struct {
	uc     usecase.OAuthUsecase
	logger *slog.Logger
}

// NewOAuthHandler is the constructor for OAuthHandler.
func NewOAuthHandler(params OAuthHandlerParams) *OAuthHandler {
	return &OAuthHandler{
		uc:     params.OAuthUC,
		logger: params.Logger,
	}
}

// AuthorizeRequest is read from the query on GET and from the form on POST.
type AuthorizeRequest struct {
	ResponseType string `query:"response_type" form:"response_type" json:"response_type"`
	ClientID     string `query:"client_id" form:"client_id" json:"client_id"`
	RedirectURI  string `query:"redirect_uri" form:"redirect_uri" json:"redirect_uri"`
	Scope        string `query:"scope" form:"scope" json:"scope"`
	State        string `query:"state" form:"state" json:"state"`
}

// TokenRequest is the form of POST /oauth/token.
type TokenRequest struct {
	GrantType    string `form:"grant_type" json:"grant_type"`
	ClientID     string `form:"client_id" json:"client_id"`
	ClientSecret string `form:"client_secret" json:"client_secret"`
	Code         string `form:"code" json:"code"`
	RedirectURI  string `form:"redirect_uri" json:"redirect_uri"`
	RefreshToken string `form:"refresh_token" json:"refresh_token"`
}

// TokenResponse follows RFC 6749 section 5.1.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// RevokeRequest is the form of POST /oauth/revoke.
type RevokeRequest struct {
	Token        string `form:"token" json:"token"`
	ClientID     string `form:"client_id" json:"client_id"`
	ClientSecret string `form:"client_secret" json:"client_secret"`
}

// UserInfoResponse is the profile released to a client.
type UserInfoResponse struct {
	Sub      string `json:"sub"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	ClinicID string `json:"clinicId,omitempty"`
	Scope    string `json:"scope,omitempty"`
}

// Authorize issues a code for the signed-in user. GET redirects the user agent,
// POST returns the redirect target for consent pages that navigate themselves.
func (h *OAuthHandler) Authorize(c echo.Context) error {
	caller, err := identity.Current(c)
	if err != nil {
		return err
	}

	var req AuthorizeRequest
	if err := c.Bind(&req); err != nil {
		return errors.WithStack(domainerrors.ErrOAuthInvalidRequest.WithDetails("malformed authorization request"))
	}
	if req.ResponseType != "" && req.ResponseType != responseTypeCode {
		return errors.WithStack(domainerrors.ErrOAuthInvalidRequest.WithDetails("response_type must be code"))
	}

	output, err := h.uc.Authorize(c.Request().Context(), &usecase.AuthorizeInput{
		Identity:    caller,
		ClientID:    req.ClientID,
		RedirectURI: req.RedirectURI,
		Scope:       req.Scope,
		State:       req.State,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	if c.Request().Method == http.MethodGet {
		return c.Redirect(http.StatusFound, output.RedirectURL)
	}

	return response.Success(c, http.StatusOK, map[string]string{"redirectUrl": output.RedirectURL}, "")
}

// Token exchanges a code or a refresh token. Client credentials may come from
// HTTP Basic authentication or the form.
func (h *OAuthHandler) Token(c echo.Context) error {
	var req TokenRequest
	if err := c.Bind(&req); err != nil {
		return errors.WithStack(domainerrors.ErrOAuthInvalidRequest.WithDetails("malformed token request"))
	}
	if id, secret, ok := c.Request().BasicAuth(); ok {
		req.ClientID, req.ClientSecret = id, secret
	}

	output, err := h.uc.Token(c.Request().Context(), &usecase.TokenInput{
		GrantType:    req.GrantType,
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
		Code:         req.Code,
		RedirectURI:  req.RedirectURI,
		RefreshToken: req.RefreshToken,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")

	return c.JSON(http.StatusOK, &TokenResponse{
		AccessToken:  output.AccessToken,
		TokenType:    output.TokenType,
		ExpiresIn:    int64(output.ExpiresIn.Seconds()),
		RefreshToken: output.RefreshToken,
		Scope:        output.Scope,
	})
}

// UserInfo returns the profile behind an OAuth access token.
func (h *OAuthHandler) UserInfo(c echo.Context) error {
	info, err := h.uc.UserInfo(c.Request().Context(), cookie.BearerToken(c.Request()))
	if err != nil {
		return errors.WithStack(err)
	}

	return c.JSON(http.StatusOK, &UserInfoResponse{
		Sub:      info.Subject,
		Email:    info.Email,
		Name:     info.Name,
		Role:     info.Role.String(),
		ClinicID: info.ClinicID,
		Scope:    info.Scope,
	})
}

// Revoke deletes a token of the authenticated client. Unknown tokens succeed.
func (h *OAuthHandler) Revoke(c echo.Context) error {
	var req RevokeRequest
	if err := c.Bind(&req); err != nil {
		return errors.WithStack(domainerrors.ErrOAuthInvalidRequest.WithDetails("malformed revocation request"))
	}
	if id, secret, ok := c.Request().BasicAuth(); ok {
		req.ClientID, req.ClientSecret = id, secret
	}

	if err := h.uc.Revoke(c.Request().Context(), &usecase.RevokeInput{
		Token:        req.Token,
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
	}); err != nil {
		return errors.WithStack(err)
	}

	return c.NoContent(http.StatusOK)
}
