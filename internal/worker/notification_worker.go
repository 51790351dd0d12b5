package worker

import (
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/service"
)

// StartNotificationWorker registers the event subscribers that fan out
// notifications and follow-up surveys.
func StartNotificationWorker(dispatcher events.Dispatcher, notificationService *service.NotificationService, surveyService *service.SurveyService) {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	if surveyService != nil && dispatcher != nil {
		surveyService.RegisterHandlers(dispatcher)
	}
}
