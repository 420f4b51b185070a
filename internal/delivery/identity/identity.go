// Package identity rebuilds the caller identity that the gateway forwards as x-user-* headers,
// and guards routes on it. Every domain service mounts Extract in front of its handlers.
package identity

import (
	"crypto/subtle"
	"net/url"
	"strings"

	deliverycontext "dbaportal/internal/delivery/context"
	"dbaportal/internal/domain/entity"
	domainerrors "dbaportal/internal/domain/errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// Headers written by the gateway on verified requests.
const (
	HeaderUserID        = "X-User-Id"
	HeaderClinicID      = "X-Clinic-Id"
	HeaderUserRole      = "X-User-Role"
	HeaderUserEmail     = "X-User-Email"
	HeaderUserName      = "X-User-Name"
	HeaderPermissions   = "X-User-Permissions"
	HeaderInternalToken = "X-Internal-Token"
)

// IdentityHeaders lists every header the gateway owns. Inbound copies are always discarded.
var IdentityHeaders = []string{
	HeaderUserID,
	HeaderClinicID,
	HeaderUserRole,
	HeaderUserEmail,
	HeaderUserName,
	HeaderPermissions,
	HeaderInternalToken,
}

// Extract checks x-internal-token and then reads the identity headers onto the request.
// With an empty internalToken the check is skipped, which is only valid in development.
// Requests without x-user-id continue anonymously; guards decide whether that is allowed.
func Extract(internalToken string) echo.MiddlewareFunc {
	expected := []byte(internalToken)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header

			if len(expected) > 0 {
				presented := []byte(header.Get(HeaderInternalToken))
				if subtle.ConstantTimeCompare(presented, expected) != 1 {
					return errors.WithStack(domainerrors.ErrInternalTokenInvalid)
				}
			}

			rawID := header.Get(HeaderUserID)
			if rawID == "" {
				return next(c)
			}

			userID, err := uuid.Parse(rawID)
			if err != nil {
				return errors.WithStack(domainerrors.ErrUnauthenticated.WithDetails("malformed x-user-id"))
			}

			deliverycontext.SetIdentity(c, FromHeaders(userID, header.Get))

			return next(c)
		}
	}
}

// FromHeaders builds the identity for userID from the remaining x-user-* values.
func FromHeaders(userID uuid.UUID, get func(string) string) *entity.Identity {
	name := get(HeaderUserName)
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}

	return &entity.Identity{
		UserID:      userID,
		ClinicID:    strings.TrimSpace(get(HeaderClinicID)),
		Role:        entity.Role(strings.TrimSpace(get(HeaderUserRole))),
		Email:       get(HeaderUserEmail),
		Name:        name,
		Permissions: entity.ParsePermissions(get(HeaderPermissions)),
	}
}

// EncodeName percent-encodes a display name for the x-user-name header.
func EncodeName(name string) string {
	return url.PathEscape(name)
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if deliverycontext.GetIdentity(c) == nil {
			return errors.WithStack(domainerrors.ErrUnauthenticated)
		}

		return next(c)
	}
}

// RequireClinic rejects callers without a tenant with 400 MISSING_CLINIC_CONTEXT.
func RequireClinic(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		identity := deliverycontext.GetIdentity(c)
		if identity == nil {
			return errors.WithStack(domainerrors.ErrUnauthenticated)
		}
		if identity.ClinicID == "" {
			return errors.WithStack(domainerrors.ErrMissingClinicContext)
		}

		return next(c)
	}
}

// RequireRole allows callers holding any of the roles.
func RequireRole(roles ...entity.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity := deliverycontext.GetIdentity(c)
			if identity == nil {
				return errors.WithStack(domainerrors.ErrUnauthenticated)
			}
			if !identity.HasRole(roles...) {
				return errors.WithStack(domainerrors.ErrForbidden)
			}

			return next(c)
		}
	}
}

// RequirePermission allows callers holding the capability.
func RequirePermission(permission entity.Permission) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity := deliverycontext.GetIdentity(c)
			if identity == nil {
				return errors.WithStack(domainerrors.ErrUnauthenticated)
			}
			if !identity.Permissions.Contains(permission) {
				return errors.WithStack(domainerrors.ErrInsufficientPermission)
			}

			return next(c)
		}
	}
}

// RequireRoleOrPermission allows callers holding any of the roles or the capability.
func RequireRoleOrPermission(permission entity.Permission, roles ...entity.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity := deliverycontext.GetIdentity(c)
			if identity == nil {
				return errors.WithStack(domainerrors.ErrUnauthenticated)
			}
			if !identity.HasRole(roles...) && !identity.Permissions.Contains(permission) {
				return errors.WithStack(domainerrors.ErrForbidden)
			}

			return next(c)
		}
	}
}

// ClinicID is the only source of the tenant id for queries. It never reads the request body or query.
func ClinicID(c echo.Context) (string, error) {
	identity := deliverycontext.GetIdentity(c)
	if identity == nil {
		return "", errors.WithStack(domainerrors.ErrUnauthenticated)
	}
	if identity.ClinicID == "" {
		return "", errors.WithStack(domainerrors.ErrMissingClinicContext)
	}

	return identity.ClinicID, nil
}

// Current returns the caller or ErrUnauthenticated.
func Current(c echo.Context) (*entity.Identity, error) {
	identity := deliverycontext.GetIdentity(c)
	if identity == nil {
		return nil, errors.WithStack(domainerrors.ErrUnauthenticated)
	}

	return identity, nil
}
