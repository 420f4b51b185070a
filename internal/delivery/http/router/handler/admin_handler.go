package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"dbaportal/internal/delivery/identity"
	"dbaportal/internal/delivery/response"
	"dbaportal/internal/domain/entity"
	domainerrors "dbaportal/internal/domain/errors"
	"dbaportal/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// AdminHandlerParams holds dependencies for AdminHandler, injected by Fx.
type AdminHandlerParams struct {
	fx.In

	AdminUC usecase.AdminUsecase
	OAuthUC usecase.OAuthUsecase
	Logger  *slog.Logger
}

// AdminHandler serves the approval workflow and client registration.
type AdminHandler struct {
	adminUC usecase.AdminUsecase
	oauthUC usecase.OAuthUsecase
	logger  *slog.Logger
}

// NewAdminHandler is the constructor for AdminHandler.
func NewAdminHandler(params AdminHandlerParams) *AdminHandler {
	return &AdminHandler{
		adminUC: params.AdminUC,
		oauthUC: params.OAuthUC,
		logger:  params.Logger,
	}
}

// ApproveRequest assigns the tenant and role of a pending account.
type ApproveRequest struct {
	ClinicID    string   `json:"clinicId" validate:"required,max=64"`
	Role        string   `json:"role" validate:"required"`
	Permissions []string `json:"permissions"`
}

// RegisterClientRequest is the body of POST /api/auth/admin/oauth/clients.
type RegisterClientRequest struct {
	Name         string   `json:"name" validate:"required,max=100"`
	RedirectURIs []string `json:"redirectUris" validate:"required,min=1,dive,required,url"`
	Scopes       []string `json:"scopes"`
}

// RegisterClientResponse shows the client secret exactly once.
type RegisterClientResponse struct {
	ClientID     string   `json:"clientId"`
	ClientSecret string   `json:"clientSecret"`
	Name         string   `json:"name"`
	RedirectURIs []string `json:"redirectUris"`
	Scopes       []string `json:"scopes"`
}

// ListUsers returns accounts, optionally filtered by ?status=.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	actor, err := identity.Current(c)
	if err != nil {
		return err
	}

	status := entity.UserStatus(strings.ToUpper(c.QueryParam("status")))

	users, err := h.adminUC.ListUsers(c.Request().Context(), actor, status)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, newUserViews(users), "")
}

// Approve activates a pending account.
func (h *AdminHandler) Approve(c echo.Context) error {
	actor, err := identity.Current(c)
	if err != nil {
		return err
	}

	userID, err := parseUserID(c)
	if err != nil {
		return err
	}

	var req ApproveRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	role, ok := entity.ParseRole(strings.ToUpper(req.Role))
	if !ok {
		return errors.WithStack(domainerrors.ErrValidationFailed.WithDetails("unknown role"))
	}

	perms, err := parsePermissions(req.Permissions)
	if err != nil {
		return err
	}

	user, err := h.adminUC.Approve(c.Request().Context(), &usecase.ApproveInput{
		Actor:       actor,
		UserID:      userID,
		ClinicID:    req.ClinicID,
		Role:        role,
		Permissions: perms,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, newUserView(user), "승인되었습니다")
}

// Reject rejects a pending account or revokes an approved one.
func (h *AdminHandler) Reject(c echo.Context) error {
	actor, err := identity.Current(c)
	if err != nil {
		return err
	}

	userID, err := parseUserID(c)
	if err != nil {
		return err
	}

	user, err := h.adminUC.Reject(c.Request().Context(), &usecase.RejectInput{
		Actor:  actor,
		UserID: userID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, newUserView(user), "거절되었습니다")
}

// RegisterClient creates a machine client of the delegated-authorization flow.
func (h *AdminHandler) RegisterClient(c echo.Context) error {
	var req RegisterClientRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	output, err := h.oauthUC.RegisterClient(c.Request().Context(), &usecase.RegisterClientInput{
		Name:         req.Name,
		RedirectURIs: req.RedirectURIs,
		Scopes:       req.Scopes,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusCreated, &RegisterClientResponse{
		ClientID:     output.Client.ClientID,
		ClientSecret: output.ClientSecret,
		Name:         output.Client.Name,
		RedirectURIs: output.Client.RedirectURIs,
		Scopes:       output.Client.Scopes,
	}, "")
}
