package main

import (
	"context"
	"log/slog"
	"os"

	"dbaportal/config"
	"dbaportal/internal/delivery"
	"dbaportal/internal/delivery/http"
	"dbaportal/internal/delivery/http/cookie"
	"dbaportal/internal/delivery/http/router/handler"
	"dbaportal/internal/delivery/worker"
	"dbaportal/internal/infra/auth"
	logs "dbaportal/internal/infra/log"
	"dbaportal/internal/infra/notification"
	"dbaportal/internal/infra/persistence/postgres"
	"dbaportal/internal/infra/pubsub"
	"dbaportal/internal/usecase/impl"

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
		injectRepo(),
		injectService(),
		injectUsecase(),
		injectDelivery(),
		injectHandler(),
		fx.Invoke(
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
	)
}

// injectRepo provides the gorm pool, the transaction manager and the repositories.
func injectRepo() fx.Option {
	return postgres.Module
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			auth.NewBcryptHasher,
			auth.NewJWTService,
			notification.NewAdminNotifier,
		),
		pubsub.Module,
	)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewAuthService,
			impl.NewAdminService,
			impl.NewOAuthService,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			cookie.NewManager,
			handler.NewAuthHandler,
			handler.NewAdminHandler,
			handler.NewOAuthHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				http.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
			fx.Annotate(
				worker.NewSessionSweeper,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

func startServer(ctx context.Context, params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))
				os.Exit(1)
			}
		}()
	}
}
