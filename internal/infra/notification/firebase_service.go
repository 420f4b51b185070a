// Package notification delivers administrator push notices through Firebase Cloud Messaging.
package notification

import (
	"context"
	"log/slog"

	"dbaportal/config"
	"dbaportal/internal/domain/service"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"google.golang.org/api/option"
)

// messageSender is the part of *messaging.Client the notifier needs.
type messageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

type firebaseNotifier struct {
	client messageSender
	topic  string
	logger *slog.Logger
}

// NewFirebaseNotifier creates a notifier publishing to the administrator FCM topic.
func NewFirebaseNotifier(ctx context.Context, cfg *config.FirebaseConfig, logger *slog.Logger) (service.AdminNotifier, error) {
	opts := []option.ClientOption{}
	if cfg.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsPath))
	}

	var appConfig *firebase.Config
	if cfg.ProjectID != "" {
		appConfig = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, appConfig, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize Firebase app")
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get messaging client")
	}

	return newFirebaseNotifier(client, cfg.AdminTopic, logger), nil
}

func newFirebaseNotifier(client messageSender, topic string, logger *slog.Logger) *firebaseNotifier {
	return &firebaseNotifier{
		client: client,
		topic:  topic,
		logger: logger,
	}
}

// NotifyAdmins sends one topic message; every administrator device subscribed to the topic receives it.
func (n *firebaseNotifier) NotifyAdmins(ctx context.Context, title, body string, data map[string]string) error {
	message := &messaging.Message{
		Topic: n.topic,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	messageID, err := n.client.Send(ctx, message)
	if err != nil {
		return errors.Wrap(err, "failed to send admin notification")
	}

	n.logger.Debug("Admin notification sent",
		slog.String("topic", n.topic),
		slog.String("message_id", messageID),
	)

	return nil
}

// noopNotifier is used when Firebase is not configured.
type noopNotifier struct {
	logger *slog.Logger
}

func (n *noopNotifier) NotifyAdmins(_ context.Context, title, _ string, _ map[string]string) error {
	n.logger.Debug("Admin notifications disabled, skipping", slog.String("title", title))

	return nil
}

// NotifierParams holds dependencies for AdminNotifier, injected by Fx
type NotifierParams struct {
	fx.In

	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

// NewAdminNotifier selects Firebase when configured, otherwise a no-op notifier.
func NewAdminNotifier(params NotifierParams) (service.AdminNotifier, error) {
	cfg := params.Config.Firebase
	if cfg == nil || cfg.AdminTopic == "" || (cfg.ProjectID == "" && cfg.CredentialsPath == "") {
		params.Logger.Info("Firebase not configured, admin notifications disabled")

		return &noopNotifier{logger: params.Logger}, nil
	}

	return NewFirebaseNotifier(params.Ctx, cfg, params.Logger)
}
