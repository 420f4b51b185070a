package gateway

import (
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dbaportal/config"
	domainerrors "dbaportal/internal/domain/errors"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
)

func (g *Gateway) registerProxies(e *echo.Echo) error {
	transport := newTransport(g.cfg)

	for _, svc := range g.cfg.Services {
		target, err := url.Parse(svc.URL)
		if err != nil {
			return errors.Wrapf(err, "service %s: invalid url", svc.Name)
		}

		group := e.Group(strings.TrimRight(svc.Prefix, "/"))
		group.Use(g.observe(svc.Name))
		group.Use(echomiddleware.ProxyWithConfig(echomiddleware.ProxyConfig{
			Balancer: echomiddleware.NewRoundRobinBalancer([]*echomiddleware.ProxyTarget{
				{Name: svc.Name, URL: target},
			}),
			Transport: transport,
			ErrorHandler: func(c echo.Context, err error) error {
				g.logger.Error("Upstream unavailable",
					slog.String("service", svc.Name),
					slog.String("path", c.Request().URL.Path),
					slog.Any("error", err),
				)

				return errors.WithStack(domainerrors.ErrServiceUnavailable.WithDetails(svc.Name + " unreachable"))
			},
		}))
	}

	return nil
}

// observe records the outcome of every proxied request, including failed dials.
func (g *Gateway) observe(service string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				status = http.StatusInternalServerError
				var appErr domainerrors.AppError
				if errors.As(err, &appErr) {
					status = appErr.HTTPCode()
				}
			}
			g.metrics.ObserveProxied(service, status, time.Since(start))

			return err
		}
	}
}

func newTransport(cfg *config.GatewayConfig) *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Proxy.DialTimeout > 0 {
		transport.DialContext = (&net.Dialer{
			Timeout:   cfg.Proxy.DialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext
	}
	if cfg.Proxy.ResponseHeaderTimeout > 0 {
		transport.ResponseHeaderTimeout = cfg.Proxy.ResponseHeaderTimeout
	}

	return transport
}
