package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainErrorKeepsDomainErrors(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewInvalidTransition("cannot acknowledge", map[string]any{"status": "closed"}))

	de := ToDomainError(err)
	require.NotNil(t, de)
	assert.Equal(t, CodeInvalidTransition, de.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, de.HTTPStatus)
	assert.Equal(t, "closed", de.Details["status"])
}

func TestToDomainErrorHidesInternalErrors(t *testing.T) {
	de := ToDomainError(errors.New("pq: relation complaints does not exist"))

	assert.Equal(t, CodeInternal, de.Code)
	assert.Equal(t, "internal server error", de.Message)
	assert.Equal(t, http.StatusInternalServerError, de.HTTPStatus)
}

func TestStatusMapping(t *testing.T) {
	cases := map[string]struct {
		err    error
		status int
	}{
		CodeValidation:       {NewValidationError("bad", nil), http.StatusBadRequest},
		CodeForbidden:        {NewForbidden("no"), http.StatusForbidden},
		CodeNotFound:         {NewNotFound("complaint", nil), http.StatusNotFound},
		CodeAlreadySubmitted: {NewAlreadySubmitted("dup", nil), http.StatusConflict},
		CodeConflict:         {NewConflict("race", nil), http.StatusConflict},
	}
	for code, tc := range cases {
		de := ToDomainError(tc.err)
		assert.Equal(t, code, de.Code)
		assert.Equal(t, tc.status, de.HTTPStatus, code)
		assert.True(t, HasCode(tc.err, code))
	}
}

func TestToDomainErrorNil(t *testing.T) {
	assert.Nil(t, ToDomainError(nil))
}
