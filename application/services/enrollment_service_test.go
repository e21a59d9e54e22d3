package services

import (
	"context"
	"testing"

	"civica-backend/domain"
	appErrors "civica-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinCohort(t *testing.T) {
	ctx := context.Background()

	t.Run("join code is case-insensitive", func(t *testing.T) {
		cohorts, enrollment, _, events, _ := newCohortFixture(t)
		cohort, err := cohorts.CreateCohort(ctx, "teacher-1", "Period 3", "9-10")
		require.NoError(t, err)

		profile, joined, err := enrollment.JoinCohort(ctx, "student-1", "  "+cohort.JoinCode+" ")
		require.NoError(t, err)
		assert.Equal(t, cohort.ID, joined.ID)
		assert.Len(t, events.published(), 1)

		// The caller gets the membership itself back, not just the cohort.
		require.NotNil(t, profile)
		assert.Equal(t, "student-1", profile.UserID)
		assert.Equal(t, cohort.ID, profile.CohortID)
		assert.False(t, profile.JoinedAt.IsZero())
	})

	t.Run("unknown code is not found", func(t *testing.T) {
		_, enrollment, _, _, _ := newCohortFixture(t)

		_, _, err := enrollment.JoinCohort(ctx, "student-1", "ZZZZZZ")
		require.Error(t, err)
		assert.True(t, appErrors.IsNotFound(err))
	})

	t.Run("malformed code is a validation error", func(t *testing.T) {
		_, enrollment, _, _, _ := newCohortFixture(t)

		_, _, err := enrollment.JoinCohort(ctx, "student-1", "ABC")
		require.Error(t, err)
		assert.True(t, appErrors.IsValidation(err))
	})

	t.Run("joining twice is a conflict", func(t *testing.T) {
		cohorts, enrollment, _, _, _ := newCohortFixture(t)
		cohort, err := cohorts.CreateCohort(ctx, "teacher-1", "Period 3", "9-10")
		require.NoError(t, err)

		_, _, err = enrollment.JoinCohort(ctx, "student-1", cohort.JoinCode)
		require.NoError(t, err)

		_, _, err = enrollment.JoinCohort(ctx, "student-1", cohort.JoinCode)
		require.Error(t, err)
		assert.True(t, appErrors.IsConflict(err))

		// The count was not bumped by the failed join.
		current, err := cohorts.GetCohort(ctx, cohort.ID, "teacher-1", domain.RoleTeacher)
		require.NoError(t, err)
		assert.Equal(t, 1, current.StudentCount)
	})

	t.Run("archived cohort rejects joins", func(t *testing.T) {
		cohorts, enrollment, _, _, _ := newCohortFixture(t)
		cohort, err := cohorts.CreateCohort(ctx, "teacher-1", "Period 3", "9-10")
		require.NoError(t, err)
		status := domain.CohortStatusArchived
		_, err = cohorts.UpdateCohort(ctx, cohort.ID, "teacher-1", cohortUpdate(nil, &status))
		require.NoError(t, err)

		_, _, err = enrollment.JoinCohort(ctx, "student-1", cohort.JoinCode)
		require.Error(t, err)
		assert.True(t, appErrors.IsConflict(err))
	})

	t.Run("counter drift leaves the membership durable", func(t *testing.T) {
		cohorts, enrollment, store, _, _ := newCohortFixture(t)
		cohort, err := cohorts.CreateCohort(ctx, "teacher-1", "Period 3", "9-10")
		require.NoError(t, err)

		store.SetError("IncrementStudentCount", assert.AnError)
		_, _, err = enrollment.JoinCohort(ctx, "student-1", cohort.JoinCode)
		require.NoError(t, err)
		store.ClearErrors()

		roster, err := cohorts.ListStudents(ctx, cohort.ID, "teacher-1")
		require.NoError(t, err)
		assert.Len(t, roster, 1)

		// The denormalized count lags; membership rows stay the source
		// of truth.
		current, err := cohorts.GetCohort(ctx, cohort.ID, "teacher-1", domain.RoleTeacher)
		require.NoError(t, err)
		assert.Equal(t, 0, current.StudentCount)
	})
}

func TestListMemberships(t *testing.T) {
	ctx := context.Background()
	cohorts, enrollment, _, _, _ := newCohortFixture(t)

	first, err := cohorts.CreateCohort(ctx, "teacher-1", "Period 1", "9-10")
	require.NoError(t, err)
	second, err := cohorts.CreateCohort(ctx, "teacher-1", "Period 2", "9-10")
	require.NoError(t, err)

	_, _, err = enrollment.JoinCohort(ctx, "student-1", first.JoinCode)
	require.NoError(t, err)
	_, _, err = enrollment.JoinCohort(ctx, "student-1", second.JoinCode)
	require.NoError(t, err)

	memberships, err := enrollment.ListMemberships(ctx, "student-1")
	require.NoError(t, err)
	assert.Len(t, memberships, 2)
}
