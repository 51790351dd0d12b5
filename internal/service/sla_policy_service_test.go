package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/grievance-service/internal/domain"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

func TestSLAConfigUniquenessAmongEnabled(t *testing.T) {
	h := newHarness(t)
	input := SLAConfigInput{
		Category:          domain.CategoryTransport,
		Priority:          domain.PriorityHigh,
		ResponseMinutes:   30,
		ResolutionMinutes: 600,
		Enabled:           true,
	}
	first, err := h.policy.Create(h.ctx, admin, input)
	require.NoError(t, err)

	_, err = h.policy.Create(h.ctx, admin, input)
	requireCode(t, err, apperrors.CodeConflict)

	input.Enabled = false
	disabled, err := h.policy.Create(h.ctx, admin, input)
	require.NoError(t, err)

	input.Enabled = true
	_, err = h.policy.Update(h.ctx, admin, disabled.ID, input)
	requireCode(t, err, apperrors.CodeConflict)

	require.NoError(t, h.policy.Delete(h.ctx, supervisor, first.ID))
	_, err = h.policy.Update(h.ctx, admin, disabled.ID, input)
	require.NoError(t, err)
}

func TestSLAConfigValidation(t *testing.T) {
	h := newHarness(t)

	_, err := h.policy.Create(h.ctx, staff, SLAConfigInput{})
	requireCode(t, err, apperrors.CodeForbidden)

	_, err = h.policy.Create(h.ctx, admin, SLAConfigInput{
		Category:          domain.CategoryFees,
		Priority:          domain.PriorityLow,
		ResponseMinutes:   120,
		ResolutionMinutes: 60,
	})
	requireCode(t, err, apperrors.CodeValidation)
	assert.Contains(t, apperrors.ToDomainError(err).Details, "resolution_minutes")

	_, err = h.policy.Resolve(h.ctx, "weather", domain.PriorityLow)
	requireCode(t, err, apperrors.CodeValidation)
}

func TestDisabledConfigIsIgnored(t *testing.T) {
	h := newHarness(t)
	_, err := h.policy.Create(h.ctx, admin, SLAConfigInput{
		Category:          domain.CategoryFees,
		Priority:          domain.PriorityLow,
		ResponseMinutes:   5,
		ResolutionMinutes: 10,
	})
	require.NoError(t, err)

	targets, err := h.policy.Resolve(h.ctx, domain.CategoryFees, domain.PriorityLow)
	require.NoError(t, err)
	assert.Equal(t, "system_default", targets.Source)
}
