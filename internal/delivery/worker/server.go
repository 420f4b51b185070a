// Package worker runs the background jobs of the auth service.
package worker

import (
	"context"
	"log/slog"
	"time"

	"dbaportal/config"
	"dbaportal/internal/delivery"
	"dbaportal/internal/domain/lifecycle"
	"dbaportal/internal/usecase"

	"go.uber.org/fx"
)

type sessionSweeper struct {
	interval time.Duration
	authUC   usecase.AuthUsecase
	logger   *slog.Logger
	done     chan struct{}
	stopped  chan struct{}
}

// ServerParams holds dependencies for the session sweeper
type ServerParams struct {
	fx.In

	Lc     fx.Lifecycle
	Cfg    *config.Config
	Logger *slog.Logger
	AuthUC usecase.AuthUsecase
}

// NewSessionSweeper purges expired refresh tokens every auth.sessionCleanupInterval.
func NewSessionSweeper(params ServerParams) (delivery.Delivery, error) {
	srv := &sessionSweeper{
		interval: params.Cfg.Auth.SessionCleanupInterval,
		authUC:   params.AuthUC,
		logger:   params.Logger.With(slog.String("component", "session_sweeper")),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}

	params.Lc.Append(fx.Hook{
		OnStop: srv.stop,
	})

	return srv, nil
}

// Serve blocks until the sweeper is stopped.
func (s *sessionSweeper) Serve(ctx context.Context) error {
	defer close(s.stopped)

	if s.interval <= 0 {
		s.logger.Info("Session sweeper disabled")
		<-s.done

		return nil
	}

	s.logger.Info("Starting session sweeper", slog.Duration("interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return nil
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *sessionSweeper) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, lifecycle.DefaultTimeout)
	defer cancel()

	removed, err := s.authUC.CleanupExpiredSessions(sweepCtx)
	if err != nil {
		s.logger.Error("Failed to clean up expired sessions", slog.Any("error", err))

		return
	}
	if removed > 0 {
		s.logger.Info("Removed expired sessions", slog.Int64("count", removed))
	}
}

// stop signals the loop and waits for an in-flight sweep.
func (s *sessionSweeper) stop(ctx context.Context) error {
	s.logger.Info("Shutting down session sweeper")
	close(s.done)

	select {
	case <-s.stopped:
	case <-ctx.Done():
	}

	return nil
}
