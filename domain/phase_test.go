package domain

import (
	"testing"

	appErrors "civica-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhaseNext(t *testing.T) {
	t.Run("walks the full sequence in order", func(t *testing.T) {
		expected := []Phase{
			PhaseExploration,
			PhasePositions,
			PhaseDiscussion,
			PhaseRevision,
			PhaseReflection,
			PhaseCompleted,
		}

		current := PhaseNotStarted
		for _, want := range expected {
			next, err := current.Next()
			require.NoError(t, err)
			assert.Equal(t, want, next)
			current = next
		}
	})

	t.Run("completed is a no-op", func(t *testing.T) {
		next, err := PhaseCompleted.Next()
		require.NoError(t, err)
		assert.Equal(t, PhaseCompleted, next)
	})

	t.Run("unknown phase is a validation error", func(t *testing.T) {
		_, err := Phase("warmup").Next()
		require.Error(t, err)
		assert.True(t, appErrors.IsValidation(err))
	})
}

func TestValidateTransition(t *testing.T) {
	t.Run("immediate successor is allowed", func(t *testing.T) {
		assert.NoError(t, ValidateTransition(PhaseNotStarted, PhaseExploration))
		assert.NoError(t, ValidateTransition(PhaseReflection, PhaseCompleted))
	})

	t.Run("skipping a phase is a conflict", func(t *testing.T) {
		err := ValidateTransition(PhaseExploration, PhaseDiscussion)
		require.Error(t, err)
		assert.True(t, appErrors.IsConflict(err))
	})

	t.Run("regression is a conflict", func(t *testing.T) {
		err := ValidateTransition(PhaseDiscussion, PhasePositions)
		require.Error(t, err)
		assert.True(t, appErrors.IsConflict(err))
	})

	t.Run("staying put is a conflict", func(t *testing.T) {
		err := ValidateTransition(PhaseDiscussion, PhaseDiscussion)
		require.Error(t, err)
		assert.True(t, appErrors.IsConflict(err))
	})

	t.Run("unknown phase is a validation error", func(t *testing.T) {
		err := ValidateTransition(Phase("warmup"), PhaseExploration)
		require.Error(t, err)
		assert.True(t, appErrors.IsValidation(err))
	})
}

func TestPhasePredicates(t *testing.T) {
	assert.True(t, PhaseNotStarted.IsValid())
	assert.True(t, PhaseCompleted.IsValid())
	assert.False(t, Phase("warmup").IsValid())

	assert.True(t, PhaseCompleted.IsTerminal())
	assert.False(t, PhaseReflection.IsTerminal())
}
