package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/notify"
	"github.com/spec-kit/grievance-service/internal/observability"
)

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
	err  error
}

func (r *recordingNotifier) Notify(_ context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return r.err
}

func (r *recordingNotifier) recipients(template notify.TemplateKind) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, m := range r.msgs {
		if m.Template == template {
			out = append(out, m.Recipient)
		}
	}
	return out
}

func newNotificationFixture(notifier notify.Notifier, metrics *observability.Metrics) (*NotificationService, events.Dispatcher) {
	dispatcher := events.NewInMemoryDispatcher()
	svc := NewNotificationService(NotificationDependencies{
		Dispatcher:          dispatcher,
		Notifier:            notifier,
		Metrics:             metrics,
		EscalationRecipient: "supervisors",
		CapRecipient:        "admins",
		Timeout:             time.Second,
	})
	svc.RegisterHandlers()
	return svc, dispatcher
}

func TestNotificationRouting(t *testing.T) {
	rec := &recordingNotifier{}
	svc, dispatcher := newNotificationFixture(rec, nil)
	ctx := context.Background()
	assignee := "staff-7"

	publish := func(et events.EventType, payload any) {
		require.NoError(t, dispatcher.Publish(ctx, events.Event{Type: et, TicketID: "t-1", Payload: payload}))
	}
	publish(events.EventSLABreached, events.SLABreachedPayload{BreachID: "b-1", BreachType: domain.BreachResponse, AssigneeID: &assignee})
	publish(events.EventComplaintEscalated, events.EscalatedPayload{Level: 1, TriggeredBy: domain.TriggerSLABreach})
	publish(events.EventEscalationCapReached, CapReachedPayload{Level: 3, MaxLevel: 3})
	publish(events.EventResolutionSubmitted, events.ResolutionPayload{ResolutionID: "r-1", SubmitterID: "student-1"})
	publish(events.EventSurveySent, events.SurveyPayload{SurveyID: "s-1", RecipientID: "student-1"})
	publish(events.EventCommentAdded, events.CommentAddedPayload{CommentID: "c-1"})
	svc.Wait()

	assert.ElementsMatch(t, []string{"staff-7", "supervisors"}, rec.recipients(notify.TemplateSLABreach))
	assert.ElementsMatch(t, []string{"supervisors", "admins"}, rec.recipients(notify.TemplateEscalation))
	assert.Equal(t, []string{"student-1"}, rec.recipients(notify.TemplateResolutionSubmitted))
	assert.Equal(t, []string{"student-1"}, rec.recipients(notify.TemplateSurveyInvite))
}

func TestNotificationFailureNeverFailsPublisher(t *testing.T) {
	rec := &recordingNotifier{err: errors.New("smtp down")}
	metrics := observability.NewMetrics()
	svc, dispatcher := newNotificationFixture(rec, metrics)

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:     events.EventResolutionSubmitted,
		TicketID: "t-1",
		Payload:  events.ResolutionPayload{ResolutionID: "r-1", SubmitterID: "student-1"},
	})
	require.NoError(t, err)
	svc.Wait()

	count, err := testutil.GatherAndCount(metrics.Registry(), "grievance_notification_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNotificationSurvivesCancelledRequest(t *testing.T) {
	rec := &recordingNotifier{}
	svc, dispatcher := newNotificationFixture(rec, nil)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		Type:    events.EventSurveySent,
		Payload: events.SurveyPayload{SurveyID: "s-1", RecipientID: "student-1"},
	}))
	cancel()
	svc.Wait()

	assert.Len(t, rec.recipients(notify.TemplateSurveyInvite), 1)
}
