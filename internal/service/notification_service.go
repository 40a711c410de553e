package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/marketplace-service/internal/events"
	"github.com/spec-kit/marketplace-service/internal/mail"
)

// NotificationService reacts to domain events with email and log output.
type NotificationService struct {
	dispatcher events.Dispatcher
	mailer     mail.Mailer
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, mailer mail.Mailer, logger *zap.Logger) *NotificationService {
	return &NotificationService{dispatcher: dispatcher, mailer: mailer, logger: logger}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventUserSignedUp, n.handleUserSignedUp)
	n.dispatcher.Subscribe(events.EventPasswordChanged, n.handlePasswordChanged)
	n.dispatcher.Subscribe(events.EventJobCreated, n.handleJobCreated)
	n.dispatcher.Subscribe(events.EventReviewCreated, n.handleReviewCreated)
}

func (n *NotificationService) handleUserSignedUp(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.UserSignedUpPayload)
	if !ok {
		return nil
	}
	n.logger.Info("UserSignedUp", zap.String("subject_id", event.SubjectID))
	return n.mailer.Send(ctx, mail.Message{
		To:      payload.Email,
		Subject: "Welcome to the marketplace",
		Body:    "Hi " + payload.Name + ", your account is ready.",
	})
}

func (n *NotificationService) handlePasswordChanged(_ context.Context, event events.Event) error {
	n.logger.Info("PasswordChanged", zap.String("subject_id", event.SubjectID))
	return nil
}

func (n *NotificationService) handleJobCreated(_ context.Context, event events.Event) error {
	n.logger.Info("JobCreated", zap.String("subject_id", event.SubjectID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleReviewCreated(_ context.Context, event events.Event) error {
	n.logger.Info("ReviewCreated", zap.String("subject_id", event.SubjectID), zap.Any("payload", event.Payload))
	return nil
}
