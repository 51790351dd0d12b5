package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/notify"
	"github.com/spec-kit/grievance-service/internal/observability"
)

// NotificationService turns domain events into outbound notifications.
// Delivery runs in the background and never fails the publishing operation.
type NotificationService struct {
	dispatcher          events.Dispatcher
	notifier            notify.Notifier
	logger              *zap.Logger
	metrics             *observability.Metrics
	escalationRecipient string
	capRecipient        string
	timeout             time.Duration
	wg                  sync.WaitGroup
}

// NotificationDependencies configures the service.
type NotificationDependencies struct {
	Dispatcher          events.Dispatcher
	Notifier            notify.Notifier
	Logger              *zap.Logger
	Metrics             *observability.Metrics
	EscalationRecipient string
	CapRecipient        string
	Timeout             time.Duration
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notify.NewLog(logger)
	}
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &NotificationService{
		dispatcher:          deps.Dispatcher,
		notifier:            notifier,
		logger:              logger,
		metrics:             deps.Metrics,
		escalationRecipient: deps.EscalationRecipient,
		capRecipient:        deps.CapRecipient,
		timeout:             timeout,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventComplaintCreated, n.logEvent)
	n.dispatcher.Subscribe(events.EventStatusChanged, n.logEvent)
	n.dispatcher.Subscribe(events.EventComplaintAssigned, n.logEvent)
	n.dispatcher.Subscribe(events.EventCommentAdded, n.logEvent)
	n.dispatcher.Subscribe(events.EventSLABreached, n.handleBreach)
	n.dispatcher.Subscribe(events.EventComplaintEscalated, n.handleEscalated)
	n.dispatcher.Subscribe(events.EventEscalationCapReached, n.handleCapReached)
	n.dispatcher.Subscribe(events.EventResolutionSubmitted, n.handleResolutionSubmitted)
	n.dispatcher.Subscribe(events.EventSurveySent, n.handleSurvey)
	n.dispatcher.Subscribe(events.EventSurveyReminder, n.handleSurvey)
}

// Wait blocks until in-flight deliveries finish.
func (n *NotificationService) Wait() {
	n.wg.Wait()
}

func (n *NotificationService) logEvent(_ context.Context, event events.Event) error {
	n.logger.Debug("event", zap.String("type", string(event.Type)), zap.String("ticket_id", event.TicketID))
	return nil
}

func (n *NotificationService) handleBreach(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.SLABreachedPayload)
	if !ok {
		return nil
	}
	payload := map[string]any{
		"breach_id":   p.BreachID,
		"breach_type": p.BreachType,
		"due_at":      p.DueAt,
	}
	if p.AssigneeID != nil {
		n.send(ctx, *p.AssigneeID, notify.TemplateSLABreach, event.TicketID, payload)
	}
	n.send(ctx, n.escalationRecipient, notify.TemplateSLABreach, event.TicketID, payload)
	return nil
}

func (n *NotificationService) handleEscalated(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.EscalatedPayload)
	if !ok {
		return nil
	}
	payload := map[string]any{
		"level":        p.Level,
		"reason":       p.Reason,
		"triggered_by": p.TriggeredBy,
	}
	if p.EscalatedTo != nil {
		n.send(ctx, *p.EscalatedTo, notify.TemplateEscalation, event.TicketID, payload)
	}
	n.send(ctx, n.escalationRecipient, notify.TemplateEscalation, event.TicketID, payload)
	return nil
}

func (n *NotificationService) handleCapReached(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(CapReachedPayload)
	if !ok {
		return nil
	}
	n.send(ctx, n.capRecipient, notify.TemplateEscalation, event.TicketID, map[string]any{
		"level":       p.Level,
		"max_level":   p.MaxLevel,
		"cap_reached": true,
	})
	return nil
}

func (n *NotificationService) handleResolutionSubmitted(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.ResolutionPayload)
	if !ok {
		return nil
	}
	n.send(ctx, p.SubmitterID, notify.TemplateResolutionSubmitted, event.TicketID, map[string]any{
		"resolution_id": p.ResolutionID,
		"summary":       p.Summary,
	})
	return nil
}

func (n *NotificationService) handleSurvey(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.SurveyPayload)
	if !ok {
		return nil
	}
	n.send(ctx, p.RecipientID, notify.TemplateSurveyInvite, event.TicketID, map[string]any{
		"survey_id": p.SurveyID,
		"reminder":  p.Reminder,
	})
	return nil
}

// send delivers in the background on a context detached from the request.
func (n *NotificationService) send(ctx context.Context, recipient string, template notify.TemplateKind, ticketID string, payload map[string]any) {
	if recipient == "" {
		return
	}
	msg := notify.Message{Recipient: recipient, Template: template, TicketID: ticketID, Payload: payload}
	detached := context.WithoutCancel(ctx)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(detached, n.timeout)
		defer cancel()
		if err := n.notifier.Notify(ctx, msg); err != nil {
			n.metrics.RecordNotificationFailure(string(template))
			n.logger.Warn("notification failed",
				zap.String("recipient", recipient),
				zap.String("template", string(template)),
				zap.String("ticket_id", ticketID),
				zap.Error(err))
		}
	}()
}
