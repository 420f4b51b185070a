package gateway

import (
	"log/slog"

	domainerrors "dbaportal/internal/domain/errors"
	"dbaportal/internal/infra/ratelimit"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
)

// rateLimiter keys clients by IP. Store failures admit the request.
func (g *Gateway) rateLimiter(tier string, store echomiddleware.RateLimiterStore, skipper echomiddleware.Skipper) echo.MiddlewareFunc {
	return echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Skipper: skipper,
		Store:   ratelimit.FailOpen(store, tier, g.logger),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(_ echo.Context, err error) error {
			return errors.WithStack(domainerrors.ErrForbidden.WithDetails(err.Error()))
		},
		DenyHandler: func(c echo.Context, identifier string, _ error) error {
			g.metrics.RateLimited(tier)
			g.logger.Warn("Rate limit exceeded",
				slog.String("tier", tier),
				slog.String("client_ip", identifier),
				slog.String("path", c.Request().URL.Path),
			)

			return errors.WithStack(domainerrors.ErrTooManyRequests)
		},
	})
}
