package services

import (
	"context"
	"testing"

	"civica-backend/domain"
	"civica-backend/infrastructure/persistence/memory"
	appErrors "civica-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newReflectionFixture(t *testing.T) (*ReflectionService, *CohortService, *EnrollmentService, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	events := &capturingPublisher{}
	metrics := newCapturingMetrics()
	logger := zap.NewNop()
	return NewReflectionService(store, store, metrics, logger),
		NewCohortService(store, events, metrics, logger),
		NewEnrollmentService(store, events, metrics, logger),
		store
}

func TestSubmitReflection(t *testing.T) {
	ctx := context.Background()
	priorities := []string{"housing", "transit"}

	t.Run("submits once", func(t *testing.T) {
		reflections, cohorts, enrollment, _ := newReflectionFixture(t)
		cohort := enrolled(t, cohorts, enrollment, "student-1")

		ref, err := reflections.SubmitReflection(ctx, "student-1", cohort.ID, priorities, "I moved from oppose to support", "how many agreed with me", "attend a council meeting")
		require.NoError(t, err)
		assert.Equal(t, priorities, ref.TopPriorities)
	})

	t.Run("second submission is a conflict", func(t *testing.T) {
		reflections, cohorts, enrollment, _ := newReflectionFixture(t)
		cohort := enrolled(t, cohorts, enrollment, "student-1")

		_, err := reflections.SubmitReflection(ctx, "student-1", cohort.ID, priorities, "", "", "")
		require.NoError(t, err)

		_, err = reflections.SubmitReflection(ctx, "student-1", cohort.ID, priorities, "", "", "")
		require.Error(t, err)
		assert.True(t, appErrors.IsConflict(err))
	})

	t.Run("unenrolled student is forbidden", func(t *testing.T) {
		reflections, cohorts, enrollment, _ := newReflectionFixture(t)
		cohort := enrolled(t, cohorts, enrollment)

		_, err := reflections.SubmitReflection(ctx, "student-9", cohort.ID, priorities, "", "", "")
		require.Error(t, err)
		assert.True(t, appErrors.IsForbidden(err))
	})

	t.Run("empty priorities are a validation error", func(t *testing.T) {
		reflections, cohorts, enrollment, _ := newReflectionFixture(t)
		cohort := enrolled(t, cohorts, enrollment, "student-1")

		_, err := reflections.SubmitReflection(ctx, "student-1", cohort.ID, nil, "", "", "")
		require.Error(t, err)
		assert.True(t, appErrors.IsValidation(err))
	})
}

func TestGetReflectionAuthorization(t *testing.T) {
	ctx := context.Background()
	reflections, cohorts, enrollment, _ := newReflectionFixture(t)
	cohort := enrolled(t, cohorts, enrollment, "student-1", "student-2")

	_, err := reflections.SubmitReflection(ctx, "student-1", cohort.ID, []string{"housing"}, "", "", "")
	require.NoError(t, err)

	t.Run("student reads their own", func(t *testing.T) {
		ref, err := reflections.GetReflection(ctx, cohort.ID, "student-1", "student-1", domain.RoleStudent)
		require.NoError(t, err)
		assert.Equal(t, "student-1", ref.StudentID)
	})

	t.Run("student cannot read a classmate's", func(t *testing.T) {
		_, err := reflections.GetReflection(ctx, cohort.ID, "student-1", "student-2", domain.RoleStudent)
		require.Error(t, err)
		assert.True(t, appErrors.IsForbidden(err))
	})

	t.Run("owning teacher reads any", func(t *testing.T) {
		ref, err := reflections.GetReflection(ctx, cohort.ID, "student-1", "teacher-1", domain.RoleTeacher)
		require.NoError(t, err)
		assert.Equal(t, "student-1", ref.StudentID)
	})

	t.Run("other teacher is forbidden", func(t *testing.T) {
		_, err := reflections.GetReflection(ctx, cohort.ID, "student-1", "teacher-2", domain.RoleTeacher)
		require.Error(t, err)
		assert.True(t, appErrors.IsForbidden(err))
	})
}

func TestListReflections(t *testing.T) {
	ctx := context.Background()
	reflections, cohorts, enrollment, _ := newReflectionFixture(t)
	cohort := enrolled(t, cohorts, enrollment, "student-1", "student-2")

	_, err := reflections.SubmitReflection(ctx, "student-1", cohort.ID, []string{"housing"}, "", "", "")
	require.NoError(t, err)
	_, err = reflections.SubmitReflection(ctx, "student-2", cohort.ID, []string{"transit"}, "", "", "")
	require.NoError(t, err)

	listed, err := reflections.ListReflections(ctx, cohort.ID, "teacher-1")
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	_, err = reflections.ListReflections(ctx, cohort.ID, "teacher-2")
	require.Error(t, err)
	assert.True(t, appErrors.IsForbidden(err))
}
