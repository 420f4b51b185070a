// Package gateway is the single entry point of the portal. It verifies credentials,
// rewrites the identity headers and proxies by path prefix to the domain services.
package gateway

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"dbaportal/config"
	"dbaportal/internal/delivery"
	"dbaportal/internal/delivery/middleware"
	"dbaportal/internal/domain/lifecycle"
	"dbaportal/internal/errors"
	"dbaportal/internal/infra/metrics"
	"dbaportal/internal/infra/ratelimit"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"
	"golang.org/x/net/http2"
)

// ServerParams holds dependencies for the gateway, injected by Fx.
type ServerParams struct {
	fx.In

	Lc       fx.Lifecycle
	Config   *config.Config
	Logger   *slog.Logger
	Verifier Verifier
	Stores   *ratelimit.Stores
	Metrics  *metrics.Metrics
}

// Gateway owns the echo engine of the edge process.
type Gateway struct {
	cfg           *config.GatewayConfig
	logger        *slog.Logger
	verifier      Verifier
	stores        *ratelimit.Stores
	metrics       *metrics.Metrics
	internalToken string
	health        *http.Client
	server        *echo.Echo
}

// NewServer builds the gateway and registers its shutdown hook.
func NewServer(params ServerParams) (delivery.Delivery, error) {
	g, err := New(params.Config, params.Logger, params.Verifier, params.Stores, params.Metrics)
	if err != nil {
		return nil, err
	}

	params.Lc.Append(fx.Hook{
		OnStop: g.stop,
	})

	return g, nil
}

// New wires the middleware chain, the local endpoints and one proxy per service.
func New(cfg *config.Config, logger *slog.Logger, verifier Verifier, stores *ratelimit.Stores, m *metrics.Metrics) (*Gateway, error) {
	if cfg.Gateway == nil {
		return nil, errors.New("gateway configuration is required")
	}
	gw := cfg.Gateway

	g := &Gateway{
		cfg:           gw,
		logger:        logger,
		verifier:      verifier,
		stores:        stores,
		metrics:       m,
		internalToken: cfg.Auth.InternalToken,
		health:        &http.Client{Timeout: gw.HealthTimeout},
	}

	e := echo.New()
	e.HideBanner = true
	e.IPExtractor = echo.ExtractIPFromXFFHeader()
	e.Server.ReadTimeout = gw.HTTP.Timeouts.ReadTimeout
	e.Server.ReadHeaderTimeout = gw.HTTP.Timeouts.ReadHeaderTimeout
	e.Server.WriteTimeout = gw.HTTP.Timeouts.WriteTimeout
	e.Server.IdleTimeout = gw.HTTP.Timeouts.IdleTimeout

	// 1. Recover middleware first (to catch panics early)
	e.Use(echomiddleware.Recover())

	// 2. Request ID middleware, forwarded upstream through the request header
	e.Use(middleware.NewRequestIDMiddleware(logger).Process)

	// 3. Logger middleware
	e.Use(middleware.NewLoggerMiddleware(logger, cfg).Handle)

	// 4. CORS with credentials for the portal frontends
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     gw.CORSOrigins,
		AllowCredentials: true,
	}))

	// 5. Request body size limit
	e.Use(echomiddleware.BodyLimit(gw.HTTP.MaxRequestBodySize))

	// 6. Rate limiting before any verification work
	e.Use(g.rateLimiter(ratelimit.TierStrict, stores.Strict, func(c echo.Context) bool {
		return !isStrict(c.Request().URL.Path)
	}))
	e.Use(g.rateLimiter(ratelimit.TierGeneral, stores.General, func(c echo.Context) bool {
		return isStrict(c.Request().URL.Path)
	}))

	// 7. Identity
	e.Use(g.authenticate)

	e.HTTPErrorHandler = middleware.NewErrorMiddleware(logger, cfg).HandleHTTPError

	e.GET("/health", g.healthCheck)
	e.GET("/health/services", g.servicesHealthCheck)
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	if err := g.registerProxies(e); err != nil {
		return nil, err
	}

	g.server = e

	return g, nil
}

// ServeHTTP makes the gateway usable with httptest.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.server.ServeHTTP(w, r)
}

func (g *Gateway) Serve(ctx context.Context) error {
	hostPort := net.JoinHostPort("0.0.0.0", strconv.Itoa(g.cfg.HTTP.Port))
	g.logger.Info("Starting gateway HTTP server", slog.String("host_port", hostPort))
	h2Server := &http2.Server{
		IdleTimeout: g.cfg.HTTP.Timeouts.IdleTimeout,
	}

	return errors.IgnoreServerClosed(g.server.StartH2CServer(hostPort, h2Server))
}

func (g *Gateway) stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, lifecycle.DefaultTimeout)
	defer cancel()

	g.logger.Info("Shutting down gateway HTTP server")

	return errors.WithStack(g.server.Shutdown(shutdownCtx))
}
