package domain

import (
	"fmt"

	appErrors "civica-backend/pkg/errors"
)

// Phase is one stage of the classroom exercise. Cohorts move through the
// phases strictly in order; a phase is never skipped and never revisited.
type Phase string

const (
	PhaseNotStarted  Phase = "not_started"
	PhaseExploration Phase = "exploration"
	PhasePositions   Phase = "positions"
	PhaseDiscussion  Phase = "discussion"
	PhaseRevision    Phase = "revision"
	PhaseReflection  Phase = "reflection"
	PhaseCompleted   Phase = "completed"
)

// phaseOrder is the single source of truth for the progression.
var phaseOrder = []Phase{
	PhaseNotStarted,
	PhaseExploration,
	PhasePositions,
	PhaseDiscussion,
	PhaseRevision,
	PhaseReflection,
	PhaseCompleted,
}

// phaseIndex returns the position of p in the ordering, or -1 for an
// unknown phase.
func phaseIndex(p Phase) int {
	for i, phase := range phaseOrder {
		if phase == p {
			return i
		}
	}
	return -1
}

// IsValid reports whether p is one of the defined phases.
func (p Phase) IsValid() bool {
	return phaseIndex(p) >= 0
}

// IsTerminal reports whether p is the final phase.
func (p Phase) IsTerminal() bool {
	return p == PhaseCompleted
}

// Next returns the phase that follows p. The terminal phase returns itself:
// advancing a finished cohort is a no-op, not an error.
func (p Phase) Next() (Phase, error) {
	idx := phaseIndex(p)
	if idx < 0 {
		return "", appErrors.NewValidationError(fmt.Sprintf("unknown phase %q", p))
	}
	if p.IsTerminal() {
		return p, nil
	}
	return phaseOrder[idx+1], nil
}

// ValidateTransition rejects any explicit target that is not the immediate
// successor of from. Regressions and skips are conflicts, never applied
// silently.
func ValidateTransition(from, to Phase) error {
	fromIdx := phaseIndex(from)
	toIdx := phaseIndex(to)
	if fromIdx < 0 || toIdx < 0 {
		return appErrors.NewValidationError(fmt.Sprintf("unknown phase in transition %q -> %q", from, to))
	}
	if toIdx != fromIdx+1 {
		return appErrors.NewConflictError(fmt.Sprintf("invalid phase transition %q -> %q", from, to))
	}
	return nil
}
