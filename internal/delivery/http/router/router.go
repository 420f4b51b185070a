// Package router contains routing and server setup for the auth service.
package router

import (
	"dbaportal/config"
	"dbaportal/internal/delivery/http/router/handler"
	"dbaportal/internal/delivery/identity"
	"dbaportal/internal/domain/entity"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	AuthHandler  *handler.AuthHandler
	AdminHandler *handler.AdminHandler
	OAuthHandler *handler.OAuthHandler
	Config       *config.Config
}

// router holds all the handlers that need to be registered.
type router struct {
	authHandler   *handler.AuthHandler
	adminHandler  *handler.AdminHandler
	oauthHandler  *handler.OAuthHandler
	internalToken string
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		authHandler:   params.AuthHandler,
		adminHandler:  params.AdminHandler,
		oauthHandler:  params.OAuthHandler,
		internalToken: params.Config.Auth.InternalToken,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	// Everything below is reached through the gateway only
	extract := identity.Extract(r.internalToken)

	authGroup := e.Group("/api/auth", extract)
	{
		authGroup.POST("/signup", r.authHandler.Signup)
		authGroup.POST("/login", r.authHandler.Login)
		authGroup.POST("/refresh", r.authHandler.Refresh)
		authGroup.POST("/logout", r.authHandler.Logout)
		authGroup.GET("/verify", r.authHandler.Verify)
		authGroup.GET("/me", r.authHandler.Me, identity.RequireAuth)
		authGroup.GET("/sessions", r.authHandler.ListSessions, identity.RequireAuth)
		authGroup.DELETE("/sessions/:id", r.authHandler.RevokeSession, identity.RequireAuth)
	}

	adminGroup := authGroup.Group("/admin")
	{
		approvers := identity.RequireRoleOrPermission(entity.PermissionUsersApprove, entity.RoleAdmin, entity.RoleSuperAdmin)
		adminGroup.GET("/users", r.adminHandler.ListUsers, approvers)
		adminGroup.POST("/users/:id/approve", r.adminHandler.Approve, approvers)
		adminGroup.POST("/users/:id/reject", r.adminHandler.Reject, approvers)

		adminGroup.POST("/oauth/clients", r.adminHandler.RegisterClient, identity.RequireRole(entity.RoleSuperAdmin))
	}

	oauthGroup := e.Group("/oauth", extract)
	{
		oauthGroup.GET("/authorize", r.oauthHandler.Authorize, identity.RequireAuth)
		oauthGroup.POST("/authorize", r.oauthHandler.Authorize, identity.RequireAuth)
		oauthGroup.POST("/token", r.oauthHandler.Token)
		oauthGroup.GET("/userinfo", r.oauthHandler.UserInfo)
		oauthGroup.POST("/revoke", r.oauthHandler.Revoke)
	}
}
