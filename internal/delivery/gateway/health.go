package gateway

import (
	"context"
	"net/http"
	"strings"
	"time"

	deliverycontext "dbaportal/internal/delivery/context"
	"dbaportal/internal/delivery/response"
	domainerrors "dbaportal/internal/domain/errors"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"
)

const (
	statusUp   = "up"
	statusDown = "down"
)

// ServiceHealth is the probe result of one upstream.
type ServiceHealth struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	LatencyMs int64  `json:"latencyMs"`
	Error     string `json:"error,omitempty"`
}

func (g *Gateway) healthCheck(c echo.Context) error {
	return response.Success(c, http.StatusOK, map[string]string{"status": "ok"}, "")
}

// servicesHealthCheck probes every upstream concurrently and answers 503 if any is down.
func (g *Gateway) servicesHealthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), g.cfg.HealthTimeout)
	defer cancel()

	results := make([]ServiceHealth, len(g.cfg.Services))
	var eg errgroup.Group
	for i, svc := range g.cfg.Services {
		eg.Go(func() error {
			results[i] = g.probe(ctx, svc.Name, strings.TrimRight(svc.URL, "/")+"/health")

			return nil
		})
	}
	_ = eg.Wait()

	status := http.StatusOK
	for _, r := range results {
		if r.Status != statusUp {
			status = http.StatusServiceUnavailable

			break
		}
	}

	return c.JSON(status, domainerrors.SuccessResponse{
		Success:   status == http.StatusOK,
		Data:      results,
		RequestID: deliverycontext.GetRequestID(c),
	})
}

func (g *Gateway) probe(ctx context.Context, name, target string) ServiceHealth {
	start := time.Now()
	result := ServiceHealth{Name: name, Status: statusDown}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		result.Error = err.Error()

		return result
	}

	resp, err := g.health.Do(req)
	result.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		result.Error = err.Error()

		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		result.Error = resp.Status

		return result
	}
	result.Status = statusUp

	return result
}
