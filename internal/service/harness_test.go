package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/grievance-service/internal/clock"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/repository"
	"github.com/spec-kit/grievance-service/internal/repository/memory"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

var (
	student    = domain.Actor{ID: "student-1", Role: domain.RoleStudent}
	parent     = domain.Actor{ID: "parent-1", Role: domain.RoleParent}
	staff      = domain.Actor{ID: "staff-1", Role: domain.RoleStaff}
	supervisor = domain.Actor{ID: "supervisor-1", Role: domain.RoleSupervisor}
	admin      = domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}

	epoch = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
)

type harnessConfig struct {
	maxLevel      int
	capAction     string
	reassignOnSLA bool
	autoSurvey    bool
	wrap          func(repository.Set) repository.Set
}

type harness struct {
	ctx   context.Context
	store *memory.Store
	clock *clock.Fake

	policy      *SLAPolicyService
	assignment  *AssignmentService
	tickets     *TicketService
	escalation  *EscalationService
	monitor     *SLAMonitor
	resolutions *ResolutionService
	surveys     *SurveyService
	feedback    *AnonymousFeedbackService
	analytics   *AnalyticsService

	mu     sync.Mutex
	events []events.Event
}

func newHarness(t *testing.T, opts ...func(*harnessConfig)) *harness {
	t.Helper()
	cfg := harnessConfig{maxLevel: 3, capAction: CapActionNotify, reassignOnSLA: true, autoSurvey: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	h := &harness{
		ctx:   context.Background(),
		store: memory.NewStore(),
		clock: clock.NewFake(epoch),
	}
	repos := h.store.Set()
	if cfg.wrap != nil {
		repos = cfg.wrap(repos)
	}
	dispatcher := events.NewInMemoryDispatcher()
	coreDeps := CoreDependencies{
		Repos:        repos,
		Clock:        h.clock,
		Dispatcher:   dispatcher,
		StoreTimeout: 2 * time.Second,
	}

	h.policy = NewSLAPolicyService(coreDeps)
	h.assignment = NewAssignmentService(AssignmentDependencies{CoreDependencies: coreDeps, DefaultAssignee: "triage-queue"})
	h.tickets = NewTicketService(TicketDependencies{
		CoreDependencies: coreDeps,
		Policy:           h.policy,
		Assignment:       h.assignment,
		ReopenGrace:      72 * time.Hour,
	})
	h.escalation = NewEscalationService(EscalationDependencies{
		CoreDependencies: coreDeps,
		Assignment:       h.assignment,
		MaxLevel:         cfg.maxLevel,
		CapAction:        cfg.capAction,
		ReassignOnSLA:    cfg.reassignOnSLA,
	})
	h.monitor = NewSLAMonitor(MonitorDependencies{
		CoreDependencies: coreDeps,
		Escalation:       h.escalation,
		Workers:          4,
		BatchSize:        2,
		TicketTimeout:    2 * time.Second,
	})
	h.resolutions = NewResolutionService(coreDeps)
	h.surveys = NewSurveyService(SurveyDependencies{CoreDependencies: coreDeps, AutoSend: cfg.autoSurvey})
	h.surveys.RegisterHandlers(dispatcher)
	h.feedback = NewAnonymousFeedbackService(AnonymousFeedbackDependencies{CoreDependencies: coreDeps, TokenPepper: "test-pepper"})
	h.analytics = NewAnalyticsService(AnalyticsDependencies{CoreDependencies: coreDeps})

	for _, et := range []events.EventType{
		events.EventComplaintCreated, events.EventStatusChanged, events.EventComplaintAssigned,
		events.EventCommentAdded, events.EventSLABreached, events.EventComplaintEscalated,
		events.EventEscalationCapReached, events.EventResolutionSubmitted, events.EventResolutionVerified,
		events.EventResolutionRejected, events.EventSurveySent, events.EventSurveyReminder,
	} {
		dispatcher.Subscribe(et, func(_ context.Context, ev events.Event) error {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.events = append(h.events, ev)
			return nil
		})
	}
	return h
}

func (h *harness) published(eventType events.EventType) []events.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []events.Event
	for _, ev := range h.events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func (h *harness) create(t *testing.T, category domain.ComplaintCategory, priority domain.ComplaintPriority, tags ...string) *domain.Complaint {
	t.Helper()
	c, err := h.tickets.Create(h.ctx, student, CreateComplaintInput{
		Title:       "Heating not working",
		Description: "The heater in room 12 has been broken for a week.",
		Category:    category,
		Priority:    priority,
		Tags:        tags,
	})
	require.NoError(t, err)
	return c
}

// inProgress creates a ticket and walks it to in_progress.
func (h *harness) inProgress(t *testing.T) *domain.Complaint {
	t.Helper()
	c := h.create(t, domain.CategoryFacilities, domain.PriorityMedium)
	_, err := h.tickets.Acknowledge(h.ctx, staff, c.ID, "on it")
	require.NoError(t, err)
	c, err = h.tickets.UpdateStatus(h.ctx, staff, c.ID, domain.StatusInProgress, "")
	require.NoError(t, err)
	return c
}

// closed creates a ticket and walks it through verification.
func (h *harness) closed(t *testing.T) *domain.Complaint {
	t.Helper()
	c := h.inProgress(t)
	_, err := h.resolutions.Submit(h.ctx, staff, c.ID, ResolutionInput{Summary: "Heater replaced"})
	require.NoError(t, err)
	c, err = h.resolutions.Verify(h.ctx, student, c.ID)
	require.NoError(t, err)
	return c
}

// seed inserts a ticket directly in the given status.
func (h *harness) seed(t *testing.T, id string, status domain.ComplaintStatus) *domain.Complaint {
	t.Helper()
	c := &domain.Complaint{
		ID:              id,
		Key:             "CMP-" + id,
		Title:           "Seeded",
		Description:     "Seeded ticket",
		Category:        domain.CategoryOther,
		Priority:        domain.PriorityLow,
		Status:          status,
		SubmitterID:     student.ID,
		SubmitterType:   domain.SubmitterStudent,
		CreatedAt:       h.clock.Now(),
		UpdatedAt:       h.clock.Now(),
		DueAt:           h.clock.Now().Add(time.Hour),
		ResolutionDueAt: h.clock.Now().Add(24 * time.Hour),
		Version:         1,
	}
	require.NoError(t, h.store.Tickets().Create(h.ctx, c))
	return c
}

func (h *harness) breaches(t *testing.T, ticketID string) []domain.SLABreach {
	t.Helper()
	list, err := h.store.Breaches().ListByTicket(h.ctx, ticketID)
	require.NoError(t, err)
	return list
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var de *apperrors.DomainError
	require.True(t, errors.As(err, &de), "expected domain error, got %v", err)
	require.Equal(t, code, de.Code, de.Message)
}
