package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/spec-kit/grievance-service/internal/config"
)

type failing struct{ err error }

func (f failing) Notify(context.Context, Message) error { return f.err }

type recording struct{ got []Message }

func (r *recording) Notify(_ context.Context, msg Message) error {
	r.got = append(r.got, msg)
	return nil
}

func TestMultiDeliversToEveryChannel(t *testing.T) {
	rec := &recording{}
	boom := errors.New("smtp down")
	m := Multi{failing{err: boom}, rec}

	err := m.Notify(context.Background(), Message{Recipient: "staff-1", Template: TemplateEscalation})
	require.ErrorIs(t, err, boom)
	require.Len(t, rec.got, 1)
	assert.Equal(t, TemplateEscalation, rec.got[0].Template)
}

func TestWebhookPostsJSON(t *testing.T) {
	var received Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	hook := NewWebhook(srv.URL, time.Second)
	err := hook.Notify(context.Background(), Message{
		Recipient: "grievance-supervisors",
		Template:  TemplateSLABreach,
		TicketID:  "t-1",
		Payload:   map[string]any{"breach_type": "response"},
	})
	require.NoError(t, err)
	assert.Equal(t, "t-1", received.TicketID)
	assert.Equal(t, "response", received.Payload["breach_type"])
}

func TestWebhookReportsFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL, time.Second).Notify(context.Background(), Message{Template: TemplateSurveyInvite})
	assert.Error(t, err)
}

func TestEmailResolvesRecipients(t *testing.T) {
	cfg := config.NotificationConfig{EmailFrom: "noreply@school.test", EmailFallbackTo: "office@school.test", TimeoutSeconds: 1}
	e := NewEmail(cfg)

	var sent []*gomail.Message
	e.send = func(msg *gomail.Message) error {
		sent = append(sent, msg)
		return nil
	}

	require.NoError(t, e.Notify(context.Background(), Message{Recipient: "parent@home.test", Template: TemplateSurveyInvite}))
	require.NoError(t, e.Notify(context.Background(), Message{Recipient: "staff-7", Template: TemplateEscalation, TicketID: "t-9"}))
	require.Len(t, sent, 2)
	assert.Equal(t, []string{"parent@home.test"}, sent[0].GetHeader("To"))
	assert.Equal(t, []string{"office@school.test"}, sent[1].GetHeader("To"))
	assert.Equal(t, []string{"Complaint t-9 escalated"}, sent[1].GetHeader("Subject"))
}

func TestEmailSkipsWithoutAddress(t *testing.T) {
	e := NewEmail(config.NotificationConfig{EmailFrom: "noreply@school.test"})
	called := false
	e.send = func(*gomail.Message) error {
		called = true
		return nil
	}
	require.NoError(t, e.Notify(context.Background(), Message{Recipient: "staff-7"}))
	assert.False(t, called)
}
