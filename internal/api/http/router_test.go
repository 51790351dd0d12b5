package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/api/http/handlers"
	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/clock"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/observability"
	"github.com/spec-kit/grievance-service/internal/repository/memory"
	"github.com/spec-kit/grievance-service/internal/service"
	"github.com/spec-kit/grievance-service/internal/worker"
)

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

type testServer struct {
	app    *fiber.App
	tokens *auth.TokenManager
	clock  *clock.Fake
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	fake := clock.NewFake(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	dispatcher := events.NewInMemoryDispatcher()
	coreDeps := service.CoreDependencies{
		Repos:        memory.NewStore().Set(),
		Clock:        fake,
		Dispatcher:   dispatcher,
		StoreTimeout: 2 * time.Second,
	}
	metrics := observability.NewMetrics()

	policy := service.NewSLAPolicyService(coreDeps)
	assignment := service.NewAssignmentService(service.AssignmentDependencies{CoreDependencies: coreDeps, DefaultAssignee: "triage-queue"})
	tickets := service.NewTicketService(service.TicketDependencies{
		CoreDependencies: coreDeps,
		Policy:           policy,
		Assignment:       assignment,
		ReopenGrace:      72 * time.Hour,
	})
	escalation := service.NewEscalationService(service.EscalationDependencies{
		CoreDependencies: coreDeps,
		Assignment:       assignment,
		Metrics:          metrics,
		MaxLevel:         3,
		CapAction:        service.CapActionNotify,
	})
	monitor := service.NewSLAMonitor(service.MonitorDependencies{
		CoreDependencies: coreDeps,
		Escalation:       escalation,
		Metrics:          metrics,
	})
	surveys := service.NewSurveyService(service.SurveyDependencies{CoreDependencies: coreDeps, AutoSend: true})
	worker.StartNotificationWorker(dispatcher, nil, surveys)

	tokens := auth.NewTokenManager("test-secret", 30)
	app := NewApp("grievance-test", zap.NewNop(), metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:     handlers.NewHealthHandler("grievance-test", "test", handlers.Dependency{Name: "store", Check: okPinger{}}),
		Tickets:    handlers.NewTicketsHandler(tickets),
		Workflow:   handlers.NewWorkflowHandler(service.NewResolutionService(coreDeps), surveys),
		Escalation: handlers.NewEscalationHandler(escalation, worker.NewSLAScheduler(monitor, nil, "", time.Minute)),
		Policy:     handlers.NewPolicyHandler(policy, assignment),
		Feedback: handlers.NewFeedbackHandler(service.NewAnonymousFeedbackService(service.AnonymousFeedbackDependencies{
			CoreDependencies: coreDeps,
			TokenPepper:      "pepper",
		})),
		Analytics:      handlers.NewAnalyticsHandler(service.NewAnalyticsService(service.AnalyticsDependencies{CoreDependencies: coreDeps})),
		Metrics:        metrics,
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
	})
	return &testServer{app: app, tokens: tokens, clock: fake}
}

func (s *testServer) do(t *testing.T, actor *domain.Actor, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor != nil {
		token, _, err := s.tokens.GenerateToken(*actor)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func data(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	d, ok := body["data"].(map[string]any)
	require.True(t, ok, "missing data object: %v", body)
	return d
}

var (
	student    = domain.Actor{ID: "student-1", Role: domain.RoleStudent}
	otherKid   = domain.Actor{ID: "student-2", Role: domain.RoleStudent}
	staff      = domain.Actor{ID: "staff-1", Role: domain.RoleStaff}
	supervisor = domain.Actor{ID: "supervisor-1", Role: domain.RoleSupervisor}
	admin      = domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}
)

func createComplaint(t *testing.T, s *testServer) string {
	t.Helper()
	status, body := s.do(t, &student, nethttp.MethodPost, "/api/v1/tickets", map[string]any{
		"title":       "Broken heater",
		"description": "Room 12 is freezing",
		"category":    "facilities",
		"priority":    "high",
	})
	require.Equal(t, nethttp.StatusCreated, status, body)
	return data(t, body)["id"].(string)
}

func TestCreateComplaintComputesDeadlines(t *testing.T) {
	s := newTestServer(t)
	status, body := s.do(t, &student, nethttp.MethodPost, "/api/v1/tickets", map[string]any{
		"title":       "Broken heater",
		"description": "Room 12 is freezing",
		"category":    "facilities",
		"priority":    "high",
	})
	require.Equal(t, nethttp.StatusCreated, status)

	d := data(t, body)
	assert.Equal(t, "submitted", d["status"])
	assert.Equal(t, "triage-queue", d["assignee_id"])
	assert.Equal(t, "2026-03-02T10:00:00Z", d["due_at"])
	assert.Equal(t, "2026-03-03T09:00:00Z", d["resolution_due_at"])
}

func TestValidationEnvelope(t *testing.T) {
	s := newTestServer(t)
	status, body := s.do(t, &student, nethttp.MethodPost, "/api/v1/tickets", map[string]any{
		"description": "missing title",
		"category":    "facilities",
	})
	assert.Equal(t, nethttp.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", body["code"])
	assert.NotEmpty(t, body["error"])
	fields, ok := body["fields"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "required", fields["title"])
	assert.Equal(t, "required", fields["priority"])
}

func TestAuthenticationAndRoleGuards(t *testing.T) {
	s := newTestServer(t)
	id := createComplaint(t, s)

	status, body := s.do(t, nil, nethttp.MethodGet, "/api/v1/tickets/"+id, nil)
	assert.Equal(t, nethttp.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", body["code"])

	status, body = s.do(t, &student, nethttp.MethodPost, "/api/v1/tickets/"+id+"/acknowledge", nil)
	assert.Equal(t, nethttp.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", body["code"])

	status, _ = s.do(t, &otherKid, nethttp.MethodGet, "/api/v1/tickets/"+id, nil)
	assert.Equal(t, nethttp.StatusForbidden, status)
}

func TestInvalidTransitionMapsTo422(t *testing.T) {
	s := newTestServer(t)
	id := createComplaint(t, s)

	status, body := s.do(t, &staff, nethttp.MethodPost, "/api/v1/tickets/"+id+"/status", map[string]any{"status": "closed"})
	assert.Equal(t, nethttp.StatusUnprocessableEntity, status)
	assert.Equal(t, "INVALID_TRANSITION", body["code"])
}

func TestResolutionRoundTripOverHTTP(t *testing.T) {
	s := newTestServer(t)
	id := createComplaint(t, s)

	status, _ := s.do(t, &staff, nethttp.MethodPost, "/api/v1/tickets/"+id+"/acknowledge", map[string]any{"note": "on it"})
	require.Equal(t, nethttp.StatusOK, status)
	status, _ = s.do(t, &staff, nethttp.MethodPost, "/api/v1/tickets/"+id+"/status", map[string]any{"status": "in_progress"})
	require.Equal(t, nethttp.StatusOK, status)

	status, body := s.do(t, &staff, nethttp.MethodPost, "/api/v1/tickets/"+id+"/resolutions", map[string]any{"summary": "Replaced the thermostat"})
	require.Equal(t, nethttp.StatusCreated, status, body)
	assert.Equal(t, "pending", data(t, body)["verification"])

	status, body = s.do(t, &staff, nethttp.MethodPost, "/api/v1/tickets/"+id+"/resolutions", map[string]any{"summary": "again"})
	assert.Equal(t, nethttp.StatusConflict, status)
	assert.Equal(t, "ALREADY_SUBMITTED", body["code"])

	status, body = s.do(t, &student, nethttp.MethodPost, "/api/v1/tickets/"+id+"/resolutions/verify", nil)
	require.Equal(t, nethttp.StatusOK, status, body)
	assert.Equal(t, "closed", data(t, body)["status"])

	status, body = s.do(t, &student, nethttp.MethodGet, "/api/v1/tickets/"+id+"/survey", nil)
	require.Equal(t, nethttp.StatusOK, status, body)
	surveyID := data(t, body)["id"].(string)

	status, body = s.do(t, &student, nethttp.MethodPost, "/api/v1/surveys/"+surveyID+"/response", map[string]any{"rating": 6})
	assert.Equal(t, nethttp.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", body["code"])

	status, _ = s.do(t, &student, nethttp.MethodPost, "/api/v1/surveys/"+surveyID+"/response", map[string]any{"rating": 4})
	assert.Equal(t, nethttp.StatusCreated, status)

	status, body = s.do(t, &student, nethttp.MethodPost, "/api/v1/surveys/"+surveyID+"/response", map[string]any{"rating": 5})
	assert.Equal(t, nethttp.StatusConflict, status)
	assert.Equal(t, "ALREADY_SUBMITTED", body["code"])
}

func TestSweepEndpointReportsBreaches(t *testing.T) {
	s := newTestServer(t)
	id := createComplaint(t, s)
	s.clock.Advance(2 * time.Hour)

	status, _ := s.do(t, &supervisor, nethttp.MethodPost, "/api/v1/admin/sla/sweep", nil)
	assert.Equal(t, nethttp.StatusForbidden, status)

	status, body := s.do(t, &admin, nethttp.MethodPost, "/api/v1/admin/sla/sweep", nil)
	require.Equal(t, nethttp.StatusOK, status)
	report := data(t, body)
	assert.EqualValues(t, 1, report["scanned"])
	assert.EqualValues(t, 1, report["breaches_created"])
	assert.EqualValues(t, 1, report["escalations"])

	status, body = s.do(t, &staff, nethttp.MethodGet, "/api/v1/tickets/"+id, nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.EqualValues(t, 1, data(t, body)["escalation_level"])

	status, body = s.do(t, &staff, nethttp.MethodGet, "/api/v1/breaches?status=open", nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.Len(t, body["data"], 1)
}

func TestRuleReorderRequiresCompleteList(t *testing.T) {
	s := newTestServer(t)
	var ids []string
	for _, name := range []string{"facilities", "transport"} {
		status, body := s.do(t, &supervisor, nethttp.MethodPost, "/api/v1/assignment-rules", map[string]any{
			"name":        name,
			"conditions":  map[string]any{"categories": []string{name}},
			"assignee_id": name + "-team",
		})
		require.Equal(t, nethttp.StatusCreated, status, body)
		ids = append(ids, data(t, body)["id"].(string))
	}

	status, body := s.do(t, &supervisor, nethttp.MethodPut, "/api/v1/assignment-rules/order", map[string]any{"ids": ids[:1]})
	assert.Equal(t, nethttp.StatusUnprocessableEntity, status, body)

	status, body = s.do(t, &supervisor, nethttp.MethodPut, "/api/v1/assignment-rules/order", map[string]any{"ids": []string{ids[1], ids[0]}})
	require.Equal(t, nethttp.StatusOK, status, body)
	list := body["data"].([]any)
	assert.Equal(t, ids[1], list[0].(map[string]any)["id"])

	status, body = s.do(t, &staff, nethttp.MethodPost, "/api/v1/assignment-rules/preview", map[string]any{"category": "transport", "priority": "low"})
	require.Equal(t, nethttp.StatusOK, status, body)
	assert.Equal(t, "transport-team", data(t, body)["assignee_id"])
}

func TestAnonymousFeedbackIsPublicAndTokenScoped(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, nil, nethttp.MethodPost, "/api/v1/feedback", map[string]any{"body": "The canteen is unsafe"})
	require.Equal(t, nethttp.StatusCreated, status, body)
	created := data(t, body)
	token := created["lookup_token"].(string)
	require.NotEmpty(t, token)

	status, body = s.do(t, nil, nethttp.MethodPost, "/api/v1/feedback/lookup", map[string]any{"token": token})
	require.Equal(t, nethttp.StatusOK, status)
	view := data(t, body)
	assert.Equal(t, "received", view["status"])
	assert.NotContains(t, view, "token_hash")

	status, body = s.do(t, nil, nethttp.MethodPost, "/api/v1/feedback/lookup", map[string]any{"token": "not-a-token"})
	assert.Equal(t, nethttp.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body["code"])

	status, _ = s.do(t, &student, nethttp.MethodGet, "/api/v1/admin/feedback", nil)
	assert.Equal(t, nethttp.StatusForbidden, status)

	status, _ = s.do(t, &staff, nethttp.MethodDelete, "/api/v1/admin/feedback/"+created["id"].(string), nil)
	assert.Equal(t, nethttp.StatusForbidden, status)
	status, _ = s.do(t, &admin, nethttp.MethodDelete, "/api/v1/admin/feedback/"+created["id"].(string), nil)
	assert.Equal(t, nethttp.StatusNoContent, status)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, nil, nethttp.MethodGet, "/health/ready", nil)
	assert.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "ready", body["status"])

	resp, err := s.app.Test(httptest.NewRequest(nethttp.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)

	status, body = s.do(t, nil, nethttp.MethodGet, "/nope", nil)
	assert.Equal(t, nethttp.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body["code"])
}
