package main

import (
	"context"
	"log/slog"
	"os"

	"dbaportal/config"
	"dbaportal/internal/delivery"
	"dbaportal/internal/delivery/gateway"
	"dbaportal/internal/infra/auth"
	logs "dbaportal/internal/infra/log"
	"dbaportal/internal/infra/metrics"
	"dbaportal/internal/infra/ratelimit"

	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		injectService(),
		injectDelivery(),
		fx.Invoke(
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Options(
		fx.Provide(
			config.New,
			logs.New,
			context.Background,
		),
		ratelimit.Module,
		metrics.Module,
	)
}

// The gateway only needs the access secret for local verification.
func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			auth.NewJWTService,
			gateway.NewVerifier,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				gateway.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

func startServer(ctx context.Context, params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start gateway", slog.Any("error", err))
				os.Exit(1)
			}
		}()
	}
}
