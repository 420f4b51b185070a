// Package handler contains the HTTP handlers of the auth service.
package handler

import (
	"log/slog"
	"net/http"

	"dbaportal/internal/delivery/http/cookie"
	"dbaportal/internal/delivery/identity"
	"dbaportal/internal/delivery/response"
	"dbaportal/internal/domain/entity"
	domainerrors "dbaportal/internal/domain/errors"
	"dbaportal/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// AuthHandlerParams holds dependencies for AuthHandler, injected by Fx.
type AuthHandlerParams struct {
	fx.In

	AuthUC  usecase.AuthUsecase
	Cookies *cookie.Manager
	Logger  *slog.Logger
}

// AuthHandler serves credential issuance and the session endpoints.
type AuthHandler struct {
	uc      usecase.AuthUsecase
	cookies *cookie.Manager
	logger  *slog.Logger
}

// NewAuthHandler is the constructor for AuthHandler.
func NewAuthHandler(params AuthHandlerParams) *AuthHandler {
	return &AuthHandler{
		uc:      params.AuthUC,
		cookies: params.Cookies,
		logger:  params.Logger,
	}
}

// SignupRequest is the body of POST /api/auth/signup.
type SignupRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"required,max=100"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest lets non-browser clients send the refresh token in the body.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Signup creates a pending account. No cookies are issued.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req SignupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	output, err := h.uc.Signup(c.Request().Context(), &usecase.SignupInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusCreated, newUserView(output.User), "가입 신청이 완료되었습니다. 관리자 승인 후 로그인할 수 있습니다")
}

// Login authenticates an approved account and sets the auth cookies.
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	output, err := h.uc.Login(c.Request().Context(), &usecase.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	h.cookies.SetAuthCookies(c, output.AccessToken, output.RefreshToken)

	return response.Success(c, http.StatusOK, &TokenView{
		AccessToken: output.AccessToken,
		User:        newUserView(output.User),
	}, "로그인되었습니다")
}

// Refresh rotates the refresh token taken from the cookie or the body.
func (h *AuthHandler) Refresh(c echo.Context) error {
	token := cookie.RefreshToken(c.Request())
	if token == "" {
		var req RefreshRequest
		if err := c.Bind(&req); err != nil {
			return errors.WithStack(domainerrors.ErrValidationFailed.WithDetails("invalid request body"))
		}
		token = req.RefreshToken
	}
	if token == "" {
		return errors.WithStack(domainerrors.ErrRefreshTokenMissing)
	}

	output, err := h.uc.Refresh(c.Request().Context(), &usecase.RefreshInput{RefreshToken: token})
	if err != nil {
		var appErr domainerrors.AppError
		if errors.As(err, &appErr) && appErr.HTTPCode() == http.StatusUnauthorized {
			h.cookies.ClearAuthCookies(c)
		}

		return errors.WithStack(err)
	}

	h.cookies.SetAuthCookies(c, output.AccessToken, output.RefreshToken)

	return response.Success(c, http.StatusOK, &TokenView{
		AccessToken: output.AccessToken,
		User:        newUserView(output.User),
	}, "토큰이 갱신되었습니다")
}

// Logout ends the presented session, or every session of the caller when no
// refresh token is presented. It always succeeds and always clears the cookies.
func (h *AuthHandler) Logout(c echo.Context) error {
	input := &usecase.LogoutInput{RefreshToken: cookie.RefreshToken(c.Request())}
	if input.RefreshToken == "" {
		var req RefreshRequest
		if err := c.Bind(&req); err == nil {
			input.RefreshToken = req.RefreshToken
		}
	}
	if caller, err := identity.Current(c); err == nil {
		input.UserID = caller.UserID
	}

	if err := h.uc.Logout(c.Request().Context(), input); err != nil {
		return errors.WithStack(err)
	}

	h.cookies.ClearAuthCookies(c)

	return response.Success(c, http.StatusOK, nil, "로그아웃되었습니다")
}

// Verify checks the presented access token against the current account state.
func (h *AuthHandler) Verify(c echo.Context) error {
	verified, err := h.uc.Verify(c.Request().Context(), cookie.AccessToken(c.Request()))
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, newIdentityView(verified), "")
}

// Me returns the caller's account.
func (h *AuthHandler) Me(c echo.Context) error {
	caller, err := identity.Current(c)
	if err != nil {
		return err
	}

	user, err := h.uc.Me(c.Request().Context(), caller.UserID)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, newUserView(user), "")
}

// ListSessions returns the caller's active sessions.
func (h *AuthHandler) ListSessions(c echo.Context) error {
	caller, err := identity.Current(c)
	if err != nil {
		return err
	}

	sessions, err := h.uc.ListSessions(c.Request().Context(), caller.UserID)
	if err != nil {
		return errors.WithStack(err)
	}

	views := make([]*SessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, &SessionView{ID: s.ID.String(), CreatedAt: s.CreatedAt, ExpiresAt: s.ExpiresAt})
	}

	return response.Success(c, http.StatusOK, views, "")
}

// RevokeSession ends one of the caller's sessions.
func (h *AuthHandler) RevokeSession(c echo.Context) error {
	caller, err := identity.Current(c)
	if err != nil {
		return err
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return errors.WithStack(domainerrors.ErrSessionNotFound)
	}

	if err := h.uc.RevokeSession(c.Request().Context(), caller.UserID, sessionID); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, nil, "세션이 종료되었습니다")
}

// HealthCheck is a simple handler to check if the service is up.
func HealthCheck(c echo.Context) error {
	return response.Success(c, http.StatusOK, map[string]string{"status": "ok"}, "")
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return errors.WithStack(domainerrors.ErrValidationFailed.WithDetails("invalid request body"))
	}

	return errors.WithStack(c.Validate(req))
}

func parseUserID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, errors.WithStack(domainerrors.ErrUserNotFound)
	}

	return id, nil
}

func parsePermissions(tags []string) (entity.Permissions, error) {
	perms := entity.PermissionsFromStrings(tags)
	if len(perms) != len(tags) {
		return nil, errors.WithStack(domainerrors.ErrValidationFailed.WithDetails("unknown or duplicate permission"))
	}

	return perms, nil
}
