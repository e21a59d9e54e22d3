package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func positionAt(studentID string, stance Stance, createdAt time.Time) *Position {
	p, _ := NewPosition(studentID, "cohort-1", "policy-1", stance, "because", "")
	p.CreatedAt = createdAt
	return p
}

func TestNewRevision(t *testing.T) {
	original, err := NewPosition("student-1", "cohort-1", "policy-1", StanceSupport, "initial take", "")
	require.NoError(t, err)

	rev, err := NewRevision(original, StanceOppose, "changed my mind", "they argue costs fall over time")
	require.NoError(t, err)

	assert.True(t, rev.IsRevision)
	assert.Equal(t, original.ID, rev.OriginalPositionID)
	assert.NotEqual(t, original.ID, rev.ID)
	assert.Equal(t, original.StudentID, rev.StudentID)
	assert.Equal(t, original.PolicyID, rev.PolicyID)

	// The original is untouched.
	assert.False(t, original.IsRevision)
	assert.Empty(t, original.OriginalPositionID)
}

func TestLatestPerStudent(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	a1 := positionAt("student-a", StanceSupport, base)
	a2 := positionAt("student-a", StanceOppose, base.Add(time.Hour))
	b1 := positionAt("student-b", StanceNeutral, base.Add(time.Minute))

	latest := LatestPerStudent([]*Position{a1, b1, a2})
	require.Len(t, latest, 2)
	assert.Equal(t, "student-a", latest[0].StudentID)
	assert.Equal(t, StanceOppose, latest[0].Stance)
	assert.Equal(t, "student-b", latest[1].StudentID)
}

func TestStanceDistribution(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	positions := []*Position{
		positionAt("student-a", StanceSupport, base),
		positionAt("student-a", StanceOppose, base.Add(time.Hour)), // supersedes
		positionAt("student-b", StanceOppose, base),
		positionAt("student-c", StanceNeutral, base),
	}

	dist := StanceDistribution(positions)
	assert.Equal(t, 2, dist[StanceOppose])
	assert.Equal(t, 1, dist[StanceNeutral])
	assert.Zero(t, dist[StanceSupport])

	// Each student counts exactly once.
	total := 0
	for _, n := range dist {
		total += n
	}
	assert.Equal(t, 3, total)
}

func TestStanceIsValid(t *testing.T) {
	assert.True(t, StanceStronglySupport.IsValid())
	assert.True(t, StanceStronglyOppose.IsValid())
	assert.False(t, Stance("meh").IsValid())
}
