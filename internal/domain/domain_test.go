package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTransitionTable(t *testing.T) {
	assert.True(t, IsValidTransition(StatusSubmitted, StatusAcknowledged))
	assert.True(t, IsValidTransition(StatusAcknowledged, StatusInProgress))
	assert.True(t, IsValidTransition(StatusInProgress, StatusResolved))
	assert.True(t, IsValidTransition(StatusResolved, StatusVerified))
	assert.True(t, IsValidTransition(StatusVerified, StatusClosed))
	assert.True(t, IsValidTransition(StatusResolved, StatusReopened))
	assert.True(t, IsValidTransition(StatusReopened, StatusInProgress))
	assert.True(t, IsValidTransition(StatusClosed, StatusReopened))

	assert.False(t, IsValidTransition(StatusSubmitted, StatusInProgress))
	assert.False(t, IsValidTransition(StatusInProgress, StatusClosed))
	assert.False(t, IsValidTransition(StatusClosed, StatusWithdrawn))
	assert.Empty(t, AllowedTransitions(StatusWithdrawn))
}

func TestWithdrawnReachableFromEveryNonTerminalState(t *testing.T) {
	for _, status := range Statuses {
		if status.IsTerminal() {
			assert.False(t, IsValidTransition(status, StatusWithdrawn), status)
			continue
		}
		assert.True(t, IsValidTransition(status, StatusWithdrawn), status)
	}
}

func TestWorkflowOperation(t *testing.T) {
	op, ok := WorkflowOperation(StatusResolved)
	assert.True(t, ok)
	assert.Equal(t, "submitResolution", op)

	_, ok = WorkflowOperation(StatusInProgress)
	assert.False(t, ok)
}

func TestRuleMatches(t *testing.T) {
	rule := AssignmentRule{
		Enabled: true,
		Conditions: RuleConditions{
			Categories: []ComplaintCategory{CategoryFacilities},
			Tags:       []string{"building-a", "urgent-repair"},
		},
	}

	assert.True(t, rule.Matches(RuleSubject{
		Category: CategoryFacilities,
		Priority: PriorityLow,
		Tags:     []string{"urgent-repair", "building-a", "extra"},
	}))
	assert.False(t, rule.Matches(RuleSubject{Category: CategoryFacilities, Tags: []string{"building-a"}}))
	assert.False(t, rule.Matches(RuleSubject{Category: CategoryTransport, Tags: []string{"building-a", "urgent-repair"}}))

	rule.Enabled = false
	assert.False(t, rule.Matches(RuleSubject{Category: CategoryFacilities, Tags: []string{"building-a", "urgent-repair"}}))
}

func TestEmptyConditionsMatchAnything(t *testing.T) {
	rule := AssignmentRule{Enabled: true}
	assert.True(t, rule.Matches(RuleSubject{Category: CategoryOther, Priority: PriorityUrgent}))
}

func TestDeadlinesNeverInvert(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	due, resolutionDue := SLATargets{ResponseMinutes: 60, ResolutionMinutes: 1440}.Deadlines(base)
	assert.Equal(t, base.Add(time.Hour), due)
	assert.Equal(t, base.Add(24*time.Hour), resolutionDue)

	due, resolutionDue = SLATargets{ResponseMinutes: 120, ResolutionMinutes: 30}.Deadlines(base)
	assert.False(t, resolutionDue.Before(due))
}

func TestDefaultTargetsCoverEveryPriority(t *testing.T) {
	for _, p := range Priorities {
		targets, ok := DefaultSLATargets[p]
		assert.True(t, ok, p)
		assert.Positive(t, targets.ResponseMinutes)
		assert.GreaterOrEqual(t, targets.ResolutionMinutes, targets.ResponseMinutes)
	}
}

func TestComplaintCloneIsDeep(t *testing.T) {
	assignee := "staff-1"
	c := Complaint{Tags: []string{"a"}, AssigneeID: &assignee}
	clone := c.Clone()
	clone.Tags[0] = "b"
	*clone.AssigneeID = "staff-2"

	assert.Equal(t, "a", c.Tags[0])
	assert.Equal(t, "staff-1", *c.AssigneeID)
}
