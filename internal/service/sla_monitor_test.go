package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/repository"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

func TestSweepCreatesResponseBreachAndEscalates(t *testing.T) {
	h := newHarness(t)
	_, err := h.policy.Create(h.ctx, admin, SLAConfigInput{
		Category:          domain.CategoryFacilities,
		Priority:          domain.PriorityHigh,
		ResponseMinutes:   60,
		ResolutionMinutes: 1440,
		Enabled:           true,
	})
	require.NoError(t, err)
	c := h.create(t, domain.CategoryFacilities, domain.PriorityHigh)
	assert.Equal(t, c.CreatedAt.Add(60*time.Minute), c.DueAt)

	h.clock.Advance(61 * time.Minute)
	report := h.monitor.Sweep(h.ctx)

	assert.Equal(t, 1, report.Scanned)
	assert.Equal(t, 1, report.BreachesCreated)
	assert.Equal(t, 1, report.Escalations)
	assert.Empty(t, report.Errors)

	breaches := h.breaches(t, c.ID)
	require.Len(t, breaches, 1)
	assert.Equal(t, domain.BreachResponse, breaches[0].BreachType)
	assert.Equal(t, domain.BreachOpen, breaches[0].Status)
	assert.NotNil(t, breaches[0].EscalatedAt)

	got, err := h.tickets.Get(h.ctx, staff, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.EscalationLevel)
	assert.Len(t, h.published(events.EventSLABreached), 1)
	assert.Len(t, h.published(events.EventComplaintEscalated), 1)
}

func TestSweepIsIdempotent(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 5; i++ {
		h.create(t, domain.CategoryAcademic, domain.PriorityUrgent)
	}
	h.clock.Advance(time.Hour)

	first := h.monitor.Sweep(h.ctx)
	assert.Equal(t, 5, first.Scanned)
	assert.Equal(t, 5, first.BreachesCreated)

	second := h.monitor.Sweep(h.ctx)
	assert.Equal(t, 5, second.Scanned)
	assert.Zero(t, second.BreachesCreated)
	assert.Zero(t, second.Escalations)

	all, err := h.store.Breaches().List(h.ctx, repository.BreachFilter{Limit: -1})
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestRecomputedDeadlineKeepsSingleOpenBreachPerType(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, domain.CategoryAcademic, domain.PriorityLow)
	h.clock.Advance(500 * time.Minute)

	first := h.monitor.Sweep(h.ctx)
	require.Equal(t, 1, first.BreachesCreated)

	_, err := h.tickets.UpdatePriority(h.ctx, staff, c.ID, domain.PriorityUrgent)
	require.NoError(t, err)

	second := h.monitor.Sweep(h.ctx)
	assert.Empty(t, second.Errors)

	responses := 0
	resolutions := 0
	for _, b := range h.breaches(t, c.ID) {
		require.Equal(t, domain.BreachOpen, b.Status)
		switch b.BreachType {
		case domain.BreachResponse:
			responses++
		case domain.BreachResolution:
			resolutions++
		}
	}
	assert.Equal(t, 1, responses)
	// The urgent resolution target is now overdue too, which is a distinct breach.
	assert.Equal(t, 1, resolutions)

	got, err := h.tickets.Get(h.ctx, staff, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.EscalationLevel)

	third := h.monitor.Sweep(h.ctx)
	assert.Zero(t, third.BreachesCreated)
	assert.Zero(t, third.Escalations)
}

func TestSweepSkipsRespondedAndResolvedTickets(t *testing.T) {
	h := newHarness(t)
	acked := h.create(t, domain.CategoryAcademic, domain.PriorityUrgent)
	_, err := h.tickets.Acknowledge(h.ctx, staff, acked.ID, "")
	require.NoError(t, err)

	resolved := h.inProgress(t)
	_, err = h.resolutions.Submit(h.ctx, staff, resolved.ID, ResolutionInput{Summary: "done"})
	require.NoError(t, err)

	h.clock.Advance(30 * 24 * time.Hour)
	h.monitor.Sweep(h.ctx)

	ackBreaches := h.breaches(t, acked.ID)
	require.Len(t, ackBreaches, 1)
	assert.Equal(t, domain.BreachResolution, ackBreaches[0].BreachType)
	assert.Empty(t, h.breaches(t, resolved.ID))
}

func TestAcknowledgeAddressesOpenResponseBreach(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, domain.CategoryAcademic, domain.PriorityUrgent)
	h.clock.Advance(time.Hour)
	h.monitor.Sweep(h.ctx)

	_, err := h.tickets.Acknowledge(h.ctx, staff, c.ID, "sorry for the delay")
	require.NoError(t, err)

	breaches := h.breaches(t, c.ID)
	require.Len(t, breaches, 1)
	assert.Equal(t, domain.BreachAddressed, breaches[0].Status)
}

func TestEscalationCapOnSweep(t *testing.T) {
	h := newHarness(t, func(c *harnessConfig) { c.maxLevel = 1 })
	c := h.create(t, domain.CategoryAcademic, domain.PriorityUrgent)

	h.clock.Advance(5 * time.Hour)
	report := h.monitor.Sweep(h.ctx)
	assert.Equal(t, 2, report.BreachesCreated)
	assert.Equal(t, 1, report.Escalations)

	got, err := h.tickets.Get(h.ctx, staff, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.EscalationLevel)
	for _, b := range h.breaches(t, c.ID) {
		assert.NotNil(t, b.EscalatedAt, "capped breach still counts as escalated")
	}
	assert.Len(t, h.published(events.EventEscalationCapReached), 1)

	again := h.monitor.Sweep(h.ctx)
	assert.Zero(t, again.Escalations)
	assert.Len(t, h.published(events.EventEscalationCapReached), 1)
}

func TestEscalationCapRejectIsSilent(t *testing.T) {
	h := newHarness(t, func(c *harnessConfig) {
		c.maxLevel = 1
		c.capAction = CapActionReject
	})
	h.create(t, domain.CategoryAcademic, domain.PriorityUrgent)
	h.clock.Advance(5 * time.Hour)
	h.monitor.Sweep(h.ctx)

	assert.Empty(t, h.published(events.EventEscalationCapReached))
}

type flakyTickets struct {
	repository.TicketRepository
	failID string
}

func (f flakyTickets) GetByID(ctx context.Context, id string) (*domain.Complaint, error) {
	if id == f.failID {
		return nil, errors.New("connection reset")
	}
	return f.TicketRepository.GetByID(ctx, id)
}

func TestSweepIsolatesTicketFailures(t *testing.T) {
	const failID = "t-bad"
	h := newHarness(t, func(c *harnessConfig) {
		c.wrap = func(set repository.Set) repository.Set {
			set.Tickets = flakyTickets{TicketRepository: set.Tickets, failID: failID}
			return set
		}
	})
	h.seed(t, "t-a", domain.StatusSubmitted)
	h.seed(t, failID, domain.StatusSubmitted)
	h.seed(t, "t-c", domain.StatusInProgress)
	h.clock.Advance(2 * time.Hour)

	report := h.monitor.Sweep(h.ctx)

	assert.Equal(t, 3, report.Scanned)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, failID, report.Errors[0].TicketID)
	assert.NotContains(t, report.Errors[0].Error, "connection reset", "storage errors are not leaked verbatim")
	assert.Len(t, h.breaches(t, "t-a"), 1)
	assert.Len(t, h.breaches(t, "t-c"), 1)
	assert.Empty(t, h.breaches(t, failID))
}

func TestSweepPagesThroughBatches(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 7; i++ {
		h.seed(t, fmt.Sprintf("t-%02d", i), domain.StatusSubmitted)
	}
	h.seed(t, "t-closed", domain.StatusClosed)
	h.clock.Advance(2 * time.Hour)

	report := h.monitor.Sweep(h.ctx)
	assert.Equal(t, 7, report.Scanned)
	assert.Equal(t, 7, report.BreachesCreated)
}

func TestSweepStopsWhenCancelled(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "t-1", domain.StatusSubmitted)
	ctx, cancel := context.WithCancel(h.ctx)
	cancel()

	report := h.monitor.Sweep(ctx)
	assert.True(t, report.Cancelled)
	assert.Zero(t, report.Scanned)
}

func TestManualEscalation(t *testing.T) {
	h := newHarness(t, func(c *harnessConfig) { c.maxLevel = 2 })
	_, err := h.assignment.CreateRule(h.ctx, admin, RuleInput{
		Name:       "escalations go to the head",
		Conditions: domain.RuleConditions{Tags: []string{domain.EscalatedTag}},
		AssigneeID: "head-of-school",
		Enabled:    true,
	})
	require.NoError(t, err)
	c := h.create(t, domain.CategorySafety, domain.PriorityHigh)

	_, err = h.escalation.Escalate(h.ctx, domain.EscalationRequest{TicketID: c.ID, Reason: "parent call", Actor: staff})
	requireCode(t, err, apperrors.CodeForbidden)

	_, err = h.escalation.Escalate(h.ctx, domain.EscalationRequest{TicketID: c.ID, Actor: supervisor})
	requireCode(t, err, apperrors.CodeValidation)

	esc, err := h.escalation.Escalate(h.ctx, domain.EscalationRequest{TicketID: c.ID, Reason: "parent call", Actor: supervisor})
	require.NoError(t, err)
	assert.Equal(t, 1, esc.EscalationLevel)
	require.NotNil(t, esc.AssigneeID)
	assert.Equal(t, "head-of-school", *esc.AssigneeID)

	_, err = h.escalation.Escalate(h.ctx, domain.EscalationRequest{TicketID: c.ID, Reason: "skip", TargetLevel: 1, Actor: supervisor})
	requireCode(t, err, apperrors.CodeValidation)

	esc, err = h.escalation.Escalate(h.ctx, domain.EscalationRequest{TicketID: c.ID, Reason: "board", TargetLevel: 2, Actor: supervisor})
	require.NoError(t, err)
	assert.Equal(t, 2, esc.EscalationLevel)

	_, err = h.escalation.Escalate(h.ctx, domain.EscalationRequest{TicketID: c.ID, Reason: "more", Actor: supervisor})
	requireCode(t, err, apperrors.CodeInvalidTransition)
}

func TestEscalatingTerminalTicketFails(t *testing.T) {
	h := newHarness(t)
	c := h.closed(t)

	_, err := h.escalation.Escalate(h.ctx, domain.EscalationRequest{TicketID: c.ID, Reason: "late", Actor: supervisor})
	requireCode(t, err, apperrors.CodeInvalidTransition)
}

func TestEscalatingSameBreachTwiceIsNoop(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, domain.CategoryAcademic, domain.PriorityUrgent)
	h.clock.Advance(time.Hour)
	h.monitor.Sweep(h.ctx)
	breaches := h.breaches(t, c.ID)
	require.Len(t, breaches, 1)

	got, err := h.escalation.Escalate(h.ctx, domain.EscalationRequest{
		TicketID: c.ID,
		Reason:   "again",
		BreachID: &breaches[0].ID,
		Actor:    supervisor,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, got.EscalationLevel)
}

func TestAddressAndExcuseBreach(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, domain.CategoryAcademic, domain.PriorityUrgent)
	h.clock.Advance(5 * time.Hour)
	h.monitor.Sweep(h.ctx)
	breaches := h.breaches(t, c.ID)
	require.Len(t, breaches, 2)

	addressed, err := h.escalation.AddressBreach(h.ctx, staff, breaches[0].ID, "called the family")
	require.NoError(t, err)
	assert.Equal(t, domain.BreachAddressed, addressed.Status)

	_, err = h.escalation.ExcuseBreach(h.ctx, supervisor, breaches[0].ID, "duplicate")
	requireCode(t, err, apperrors.CodeInvalidTransition)

	_, err = h.escalation.ExcuseBreach(h.ctx, staff, breaches[1].ID, "holiday")
	requireCode(t, err, apperrors.CodeForbidden)
	_, err = h.escalation.ExcuseBreach(h.ctx, supervisor, breaches[1].ID, " ")
	requireCode(t, err, apperrors.CodeValidation)
	excused, err := h.escalation.ExcuseBreach(h.ctx, supervisor, breaches[1].ID, "school holiday")
	require.NoError(t, err)
	assert.Equal(t, domain.BreachExcused, excused.Status)

	h.clock.Advance(time.Hour)
	report := h.monitor.Sweep(h.ctx)
	assert.Zero(t, report.BreachesCreated, "closed breaches are not reopened")

	open, err := h.escalation.ListBreaches(h.ctx, staff, repository.BreachFilter{Statuses: []domain.BreachStatus{domain.BreachOpen}})
	require.NoError(t, err)
	assert.Empty(t, open)
}
