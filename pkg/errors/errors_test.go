package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKinds(t *testing.T) {
	cases := []struct {
		err    *AppError
		kind   ErrorType
		status int
	}{
		{NewValidationError("bad input"), ErrorTypeValidation, http.StatusBadRequest},
		{NewNotFoundError("cohort"), ErrorTypeNotFound, http.StatusNotFound},
		{NewConflictError("taken"), ErrorTypeConflict, http.StatusConflict},
		{NewForbiddenError(""), ErrorTypeForbidden, http.StatusForbidden},
		{NewUnavailableError("dynamodb"), ErrorTypeUnavailable, http.StatusServiceUnavailable},
		{NewDatabaseError("put", errors.New("boom")), ErrorTypeDatabase, http.StatusInternalServerError},
		{NewInternalError("oops"), ErrorTypeInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.kind, tc.err.Type)
		assert.Equal(t, tc.status, tc.err.HTTPStatus)
		assert.True(t, IsType(tc.err, tc.kind))
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	inner := NewConflictError("join code taken")
	wrapped := fmt.Errorf("create cohort: %w", inner)

	assert.True(t, IsConflict(wrapped))
	require.NotNil(t, GetAppError(wrapped))
	assert.Equal(t, ErrorTypeConflict, GetAppError(wrapped).Type)
}

func TestWrap(t *testing.T) {
	t.Run("preserves an existing kind", func(t *testing.T) {
		err := Wrap(NewNotFoundError("cohort"), "join cohort")
		assert.True(t, IsNotFound(err))
		assert.Contains(t, err.Error(), "join cohort")
	})

	t.Run("promotes a plain error to internal", func(t *testing.T) {
		err := Wrap(errors.New("boom"), "something")
		assert.True(t, IsType(err, ErrorTypeInternal))
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, "noop"))
	})
}

func TestWithCauseUnwraps(t *testing.T) {
	cause := errors.New("conditional check failed")
	err := NewConflictError("taken").WithCause(cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "conditional check failed")
}
