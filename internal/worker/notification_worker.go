package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/marketplace-service/internal/events"
	"github.com/spec-kit/marketplace-service/internal/mail"
	"github.com/spec-kit/marketplace-service/internal/service"
)

// StartNotificationWorker wires the event dispatcher to its notification
// consumers and returns the dispatcher services publish into.
func StartNotificationWorker(mailer mail.Mailer, logger *zap.Logger) events.Dispatcher {
	dispatcher := events.NewInMemoryDispatcher(func(event events.Event, err error) {
		logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("subject_id", event.SubjectID),
			zap.Error(err))
	})

	notifications := service.NewNotificationService(dispatcher, mailer, logger)
	notifications.RegisterHandlers()
	return dispatcher
}
