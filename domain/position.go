package domain

import (
	"sort"
	"time"

	appErrors "civica-backend/pkg/errors"

	"github.com/google/uuid"
)

// Stance is a student's categorical position on a policy.
type Stance string

const (
	StanceStronglySupport Stance = "strongly_support"
	StanceSupport         Stance = "support"
	StanceNeutral         Stance = "neutral"
	StanceOppose          Stance = "oppose"
	StanceStronglyOppose  Stance = "strongly_oppose"
)

// IsValid reports whether s is a known stance.
func (s Stance) IsValid() bool {
	switch s {
	case StanceStronglySupport, StanceSupport, StanceNeutral, StanceOppose, StanceStronglyOppose:
		return true
	}
	return false
}

// Position is a student's stance and reasoning on one policy. Revisions are
// additive: a revision links to its predecessor and the original is never
// mutated or removed.
type Position struct {
	ID                 string
	StudentID          string
	CohortID           string
	PolicyID           string
	Stance             Stance
	Reasoning          string
	Steelman           string
	IsRevision         bool
	OriginalPositionID string
	CreatedAt          time.Time
}

// NewPosition creates an initial position for a student on a policy.
func NewPosition(studentID, cohortID, policyID string, stance Stance, reasoning, steelman string) (*Position, error) {
	if studentID == "" || cohortID == "" || policyID == "" {
		return nil, appErrors.NewValidationError("studentID, cohortID and policyID are required")
	}
	if !stance.IsValid() {
		return nil, appErrors.NewValidationError("unknown stance")
	}
	if reasoning == "" {
		return nil, appErrors.NewValidationError("reasoning cannot be empty")
	}
	return &Position{
		ID:        uuid.New().String(),
		StudentID: studentID,
		CohortID:  cohortID,
		PolicyID:  policyID,
		Stance:    stance,
		Reasoning: reasoning,
		Steelman:  steelman,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// NewRevision creates a revision superseding original for the same student
// and policy.
func NewRevision(original *Position, stance Stance, reasoning, steelman string) (*Position, error) {
	rev, err := NewPosition(original.StudentID, original.CohortID, original.PolicyID, stance, reasoning, steelman)
	if err != nil {
		return nil, err
	}
	rev.IsRevision = true
	rev.OriginalPositionID = original.ID
	return rev, nil
}

// LatestPerStudent resolves "latest position per student" by grouping on
// StudentID and keeping the max-by-CreatedAt row. For a student with a
// revision the revision wins over the original.
func LatestPerStudent(positions []*Position) []*Position {
	latest := make(map[string]*Position, len(positions))
	for _, p := range positions {
		cur, ok := latest[p.StudentID]
		if !ok || p.CreatedAt.After(cur.CreatedAt) {
			latest[p.StudentID] = p
		}
	}
	out := make([]*Position, 0, len(latest))
	for _, p := range latest {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out
}

// StanceDistribution tallies the latest stance per student. Each student
// counts exactly once.
func StanceDistribution(positions []*Position) map[Stance]int {
	dist := make(map[Stance]int)
	for _, p := range LatestPerStudent(positions) {
		dist[p.Stance]++
	}
	return dist
}
