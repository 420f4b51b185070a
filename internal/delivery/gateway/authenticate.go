package gateway

import (
	"net/http"

	deliverycontext "dbaportal/internal/delivery/context"
	"dbaportal/internal/delivery/http/cookie"
	"dbaportal/internal/delivery/identity"
	"dbaportal/internal/domain/entity"
	domainerrors "dbaportal/internal/domain/errors"
	"dbaportal/internal/errors"

	"github.com/labstack/echo/v4"
)

// publicPaths bypass token verification. Matching is exact.
var publicPaths = map[string]struct{}{
	"/health":           {},
	"/health/services":  {},
	"/metrics":          {},
	"/api/auth/login":   {},
	"/api/auth/signup":  {},
	"/api/auth/refresh": {},
	"/oauth/token":      {},
	"/oauth/revoke":     {},
	"/oauth/userinfo":   {},
}

// strictPaths share the credential-guessing limiter.
var strictPaths = map[string]struct{}{
	"/api/auth/login":  {},
	"/api/auth/signup": {},
}

func isPublic(path string) bool {
	_, ok := publicPaths[path]

	return ok
}

func isStrict(path string) bool {
	_, ok := strictPaths[path]

	return ok
}

// authenticate replaces whatever identity headers the client sent with the verified ones.
// Public paths continue without identity but still carry the internal token.
func (g *Gateway) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		stripIdentityHeaders(req.Header)
		if g.internalToken != "" {
			req.Header.Set(identity.HeaderInternalToken, g.internalToken)
		}

		if isPublic(req.URL.Path) {
			return next(c)
		}

		token := cookie.AccessToken(req)
		if token == "" {
			g.metrics.AuthFailed(domainerrors.ErrTokenMissing.ErrorCode())

			return errors.WithStack(domainerrors.ErrTokenMissing)
		}

		verified, err := g.verifier.Verify(req.Context(), token)
		if err != nil {
			if appErr, ok := errors.AsType[domainerrors.AppError](err); ok {
				g.metrics.AuthFailed(appErr.ErrorCode())
			}

			return err
		}

		writeIdentityHeaders(req.Header, verified)
		deliverycontext.SetIdentity(c, verified)

		return next(c)
	}
}

func stripIdentityHeaders(header http.Header) {
	for _, name := range identity.IdentityHeaders {
		header.Del(name)
	}
}

func writeIdentityHeaders(header http.Header, verified *entity.Identity) {
	header.Set(identity.HeaderUserID, verified.UserID.String())
	header.Set(identity.HeaderClinicID, verified.ClinicID)
	header.Set(identity.HeaderUserRole, verified.Role.String())
	header.Set(identity.HeaderUserEmail, verified.Email)
	header.Set(identity.HeaderUserName, identity.EncodeName(verified.Name))
	header.Set(identity.HeaderPermissions, verified.Permissions.Join())
}
