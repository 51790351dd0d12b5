package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/repository"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

func TestCreateComputesDeadlinesFromConfig(t *testing.T) {
	h := newHarness(t)
	_, err := h.policy.Create(h.ctx, admin, SLAConfigInput{
		Category:          domain.CategoryFacilities,
		Priority:          domain.PriorityHigh,
		ResponseMinutes:   60,
		ResolutionMinutes: 1440,
		Enabled:           true,
	})
	require.NoError(t, err)

	c := h.create(t, domain.CategoryFacilities, domain.PriorityHigh, " Heating ", "heating")

	assert.Equal(t, c.CreatedAt.Add(60*time.Minute), c.DueAt)
	assert.Equal(t, c.CreatedAt.Add(1440*time.Minute), c.ResolutionDueAt)
	assert.Equal(t, domain.StatusSubmitted, c.Status)
	assert.Equal(t, domain.SubmitterStudent, c.SubmitterType)
	assert.Equal(t, []string{"heating"}, c.Tags)
	assert.Regexp(t, `^CMP-[0-9A-F]{8}$`, c.Key)
	require.NotNil(t, c.AssigneeID)
	assert.Equal(t, "triage-queue", *c.AssigneeID)

	history, err := h.tickets.History(h.ctx, student, c.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.ComplaintStatus(""), history[0].StatusChange.FromStatus)
	assert.Equal(t, domain.StatusSubmitted, history[0].StatusChange.ToStatus)

	assert.Len(t, h.published(events.EventComplaintCreated), 1)
	assert.Len(t, h.published(events.EventComplaintAssigned), 1)
}

func TestCreateFallsBackToWildcardThenDefault(t *testing.T) {
	h := newHarness(t)
	_, err := h.policy.Create(h.ctx, admin, SLAConfigInput{
		Category:          domain.CategoryAny,
		Priority:          domain.PriorityLow,
		ResponseMinutes:   15,
		ResolutionMinutes: 30,
		Enabled:           true,
	})
	require.NoError(t, err)

	wild := h.create(t, domain.CategoryFood, domain.PriorityLow)
	assert.Equal(t, wild.CreatedAt.Add(15*time.Minute), wild.DueAt)

	def := h.create(t, domain.CategoryFood, domain.PriorityUrgent)
	targets := domain.DefaultSLATargets[domain.PriorityUrgent]
	assert.Equal(t, def.CreatedAt.Add(time.Duration(targets.ResponseMinutes)*time.Minute), def.DueAt)
	assert.False(t, def.ResolutionDueAt.Before(def.DueAt))
}

func TestCreateValidation(t *testing.T) {
	h := newHarness(t)

	_, err := h.tickets.Create(h.ctx, student, CreateComplaintInput{Category: "weather"})
	requireCode(t, err, apperrors.CodeValidation)
	de := apperrors.ToDomainError(err)
	assert.Contains(t, de.Details, "title")
	assert.Contains(t, de.Details, "description")
	assert.Contains(t, de.Details, "category")
	assert.Equal(t, "required", de.Details["priority"])

	_, err = h.tickets.Create(h.ctx, student, CreateComplaintInput{
		Title:       "Bus late",
		Description: "Route 4 was forty minutes late",
		Category:    domain.CategoryTransport,
	})
	requireCode(t, err, apperrors.CodeValidation)
	assert.Equal(t, map[string]any{"priority": "required"}, apperrors.ToDomainError(err).Details)

	_, err = h.tickets.Create(h.ctx, domain.Actor{}, CreateComplaintInput{})
	requireCode(t, err, apperrors.CodeUnauthorized)
}

func TestAcknowledgeOnlyFromSubmitted(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, domain.CategoryAcademic, domain.PriorityMedium)

	_, err := h.tickets.Acknowledge(h.ctx, student, c.ID, "")
	requireCode(t, err, apperrors.CodeForbidden)

	ack, err := h.tickets.Acknowledge(h.ctx, staff, c.ID, "looking into it")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAcknowledged, ack.Status)
	require.NotNil(t, ack.RespondedAt)

	_, err = h.tickets.Acknowledge(h.ctx, staff, c.ID, "")
	requireCode(t, err, apperrors.CodeInvalidTransition)
}

func TestUpdateStatusRejectsWorkflowTargets(t *testing.T) {
	h := newHarness(t)
	c := h.inProgress(t)

	_, err := h.tickets.UpdateStatus(h.ctx, staff, c.ID, domain.StatusResolved, "")
	requireCode(t, err, apperrors.CodeInvalidTransition)
	assert.Equal(t, "submitResolution", apperrors.ToDomainError(err).Details["operation"])

	_, err = h.tickets.UpdateStatus(h.ctx, staff, c.ID, domain.StatusClosed, "")
	requireCode(t, err, apperrors.CodeInvalidTransition)

	_, err = h.tickets.UpdateStatus(h.ctx, staff, c.ID, "archived", "")
	requireCode(t, err, apperrors.CodeValidation)
}

func TestStateMachineSafety(t *testing.T) {
	for _, from := range domain.Statuses {
		for _, to := range domain.Statuses {
			h := newHarness(t)
			c := h.seed(t, "t-"+string(from), from)

			_, err := h.tickets.UpdateStatus(h.ctx, staff, c.ID, to, "")
			_, owned := domain.WorkflowOperation(to)
			if domain.IsValidTransition(from, to) && !owned {
				assert.NoError(t, err, "%s -> %s", from, to)
				continue
			}
			requireCode(t, err, apperrors.CodeInvalidTransition)

			after, getErr := h.store.Tickets().GetByID(h.ctx, c.ID)
			require.NoError(t, getErr)
			assert.Equal(t, from, after.Status, "%s -> %s must not change state", from, to)
		}
	}
}

func TestCommentRules(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, domain.CategoryFees, domain.PriorityLow)

	_, err := h.tickets.Comment(h.ctx, student, c.ID, "  ", false)
	requireCode(t, err, apperrors.CodeValidation)

	_, err = h.tickets.Comment(h.ctx, student, c.ID, "private", true)
	requireCode(t, err, apperrors.CodeForbidden)

	_, err = h.tickets.Comment(h.ctx, staff, c.ID, "check ledger", true)
	require.NoError(t, err)
	public, err := h.tickets.Comment(h.ctx, student, c.ID, "any update?", false)
	require.NoError(t, err)

	visible, err := h.tickets.Comments(h.ctx, student, c.ID)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, public.ID, visible[0].ID)

	all, err := h.tickets.Comments(h.ctx, staff, c.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = h.tickets.Withdraw(h.ctx, student, c.ID, "sorted out")
	require.NoError(t, err)
	_, err = h.tickets.Comment(h.ctx, student, c.ID, "thanks", false)
	requireCode(t, err, apperrors.CodeInvalidTransition)
}

func TestCommentAllowedOnClosedTicket(t *testing.T) {
	h := newHarness(t)
	c := h.closed(t)

	_, err := h.tickets.Comment(h.ctx, staff, c.ID, "archived for audit", false)
	require.NoError(t, err)
}

func TestDeleteCommentRequiresAuthorOrAdmin(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, domain.CategoryFees, domain.PriorityLow)
	comment, err := h.tickets.Comment(h.ctx, student, c.ID, "hello", false)
	require.NoError(t, err)

	err = h.tickets.DeleteComment(h.ctx, staff, comment.ID)
	requireCode(t, err, apperrors.CodeForbidden)

	require.NoError(t, h.tickets.DeleteComment(h.ctx, admin, comment.ID))
	err = h.tickets.DeleteComment(h.ctx, admin, comment.ID)
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestSubmittersOnlySeeTheirOwnTickets(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, domain.CategoryBullying, domain.PriorityHigh)
	other := domain.Actor{ID: "student-2", Role: domain.RoleStudent}

	_, err := h.tickets.Get(h.ctx, other, c.ID)
	requireCode(t, err, apperrors.CodeForbidden)

	list, err := h.tickets.List(h.ctx, other, repository.ComplaintFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = h.tickets.List(h.ctx, staff, repository.ComplaintFilter{
		Categories: []domain.ComplaintCategory{domain.CategoryBullying},
	})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = h.tickets.List(h.ctx, staff, repository.ComplaintFilter{Statuses: []domain.ComplaintStatus{"lost"}})
	requireCode(t, err, apperrors.CodeValidation)
}

func TestReopenWithinGraceWindow(t *testing.T) {
	h := newHarness(t)
	c := h.closed(t)

	h.clock.Advance(24 * time.Hour)
	reopened, err := h.tickets.Reopen(h.ctx, student, c.ID, "heater broke again")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReopened, reopened.Status)
	assert.Equal(t, 1, reopened.ReopenCount)
	assert.Nil(t, reopened.ClosedAt)

	_, err = h.resolutions.Active(h.ctx, staff, c.ID)
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestReopenAfterGraceWindowFails(t *testing.T) {
	h := newHarness(t)
	c := h.closed(t)

	h.clock.Advance(73 * time.Hour)
	_, err := h.tickets.Reopen(h.ctx, student, c.ID, "still broken")
	requireCode(t, err, apperrors.CodeInvalidTransition)
}

func TestReopenFromInProgressFails(t *testing.T) {
	h := newHarness(t)
	c := h.inProgress(t)

	_, err := h.tickets.Reopen(h.ctx, student, c.ID, "why")
	requireCode(t, err, apperrors.CodeInvalidTransition)
}

func TestWithdrawExcusesOpenBreaches(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, domain.CategoryTransport, domain.PriorityUrgent)
	h.clock.Advance(5 * time.Hour)
	h.monitor.Sweep(h.ctx)
	require.NotEmpty(t, h.breaches(t, c.ID))

	_, err := h.tickets.Withdraw(h.ctx, staff, c.ID, "")
	requireCode(t, err, apperrors.CodeForbidden)

	withdrawn, err := h.tickets.Withdraw(h.ctx, student, c.ID, "bus route changed")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWithdrawn, withdrawn.Status)
	for _, b := range h.breaches(t, c.ID) {
		assert.Equal(t, domain.BreachExcused, b.Status)
	}

	_, err = h.tickets.Withdraw(h.ctx, student, c.ID, "again")
	requireCode(t, err, apperrors.CodeInvalidTransition)
}

func TestUpdatePriorityRecomputesFromCreation(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, domain.CategoryAcademic, domain.PriorityLow)
	h.clock.Advance(10 * time.Minute)

	updated, err := h.tickets.UpdatePriority(h.ctx, staff, c.ID, domain.PriorityUrgent)
	require.NoError(t, err)
	urgent := domain.DefaultSLATargets[domain.PriorityUrgent]
	assert.Equal(t, c.CreatedAt.Add(time.Duration(urgent.ResponseMinutes)*time.Minute), updated.DueAt)

	history, err := h.tickets.History(h.ctx, staff, c.ID)
	require.NoError(t, err)
	var kinds []domain.StatusChangeKind
	for _, e := range history {
		if e.StatusChange != nil {
			kinds = append(kinds, e.StatusChange.Kind)
		}
	}
	assert.Contains(t, kinds, domain.ChangeKindPriority)
	assert.Contains(t, kinds, domain.ChangeKindSLARecompute)

	same, err := h.tickets.UpdatePriority(h.ctx, staff, c.ID, domain.PriorityUrgent)
	require.NoError(t, err)
	assert.Equal(t, updated.Version, same.Version)
}

func TestReassignRestartsClock(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, domain.CategoryAcademic, domain.PriorityMedium)
	h.clock.Advance(2 * time.Hour)

	_, err := h.tickets.Reassign(h.ctx, staff, c.ID, "counselor-9", "")
	requireCode(t, err, apperrors.CodeForbidden)

	updated, err := h.tickets.Reassign(h.ctx, supervisor, c.ID, "counselor-9", "subject expert")
	require.NoError(t, err)
	require.NotNil(t, updated.AssigneeID)
	assert.Equal(t, "counselor-9", *updated.AssigneeID)
	medium := domain.DefaultSLATargets[domain.PriorityMedium]
	assert.Equal(t, h.clock.Now().Add(time.Duration(medium.ResponseMinutes)*time.Minute), updated.DueAt)
}

func TestConcurrentMutationsAreSerialized(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, domain.CategoryFood, domain.PriorityLow)

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.tickets.Comment(h.ctx, staff, c.ID, "ping", false)
			assert.NoError(t, err)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := h.tickets.Acknowledge(h.ctx, staff, c.ID, "")
		assert.NoError(t, err)
	}()
	wg.Wait()

	comments, err := h.tickets.Comments(h.ctx, staff, c.ID)
	require.NoError(t, err)
	assert.Len(t, comments, writers)

	got, err := h.tickets.Get(h.ctx, staff, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAcknowledged, got.Status)
}
