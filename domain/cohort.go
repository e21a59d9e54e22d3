package domain

import (
	"time"

	appErrors "civica-backend/pkg/errors"

	"github.com/google/uuid"
)

// CohortStatus is the administrative state of a cohort, distinct from its
// pedagogical phase.
type CohortStatus string

const (
	CohortStatusDraft    CohortStatus = "draft"
	CohortStatusActive   CohortStatus = "active"
	CohortStatusArchived CohortStatus = "archived"
)

// IsValid reports whether s is a known status.
func (s CohortStatus) IsValid() bool {
	return s == CohortStatusDraft || s == CohortStatusActive || s == CohortStatusArchived
}

// Cohort is one teacher-run class instance. StudentCount is a denormalized
// aggregate maintained by atomic counter updates; it mirrors the number of
// StudentProfile rows for this cohort.
type Cohort struct {
	ID           string
	TeacherID    string
	Name         string
	GradeLevel   string
	JoinCode     string
	Status       CohortStatus
	CurrentPhase Phase
	StudentCount int
	StartDate    *time.Time
	EndDate      *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewCohort creates a draft cohort with a freshly generated join code. The
// repository is responsible for guaranteeing the code is unique before the
// cohort becomes visible.
func NewCohort(teacherID, name, gradeLevel string) (*Cohort, error) {
	if teacherID == "" {
		return nil, appErrors.NewValidationError("teacherID cannot be empty")
	}
	if name == "" {
		return nil, appErrors.NewValidationError("name cannot be empty")
	}
	if gradeLevel == "" {
		return nil, appErrors.NewValidationError("gradeLevel cannot be empty")
	}
	now := time.Now().UTC()
	return &Cohort{
		ID:           uuid.New().String(),
		TeacherID:    teacherID,
		Name:         name,
		GradeLevel:   gradeLevel,
		JoinCode:     GenerateJoinCode(),
		Status:       CohortStatusDraft,
		CurrentPhase: PhaseNotStarted,
		StudentCount: 0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// OwnedBy reports whether the cohort belongs to the given teacher.
func (c *Cohort) OwnedBy(teacherID string) bool {
	return c.TeacherID == teacherID
}

// PhaseAdvance describes the field changes one phase transition applies.
// The zero value of the date pointers means "leave unchanged".
type PhaseAdvance struct {
	From      Phase
	To        Phase
	SetStatus CohortStatus
	StartDate *time.Time
	EndDate   *time.Time
}

// PlanAdvance computes the next transition for the cohort and its side
// effects. Advancing a completed cohort yields From == To with no effects.
func (c *Cohort) PlanAdvance(now time.Time) (PhaseAdvance, error) {
	next, err := c.CurrentPhase.Next()
	if err != nil {
		return PhaseAdvance{}, err
	}
	adv := PhaseAdvance{From: c.CurrentPhase, To: next}
	if next == c.CurrentPhase {
		return adv, nil
	}
	if next == PhaseExploration && c.StartDate == nil {
		t := now.UTC()
		adv.StartDate = &t
		adv.SetStatus = CohortStatusActive
	}
	if next == PhaseCompleted {
		t := now.UTC()
		adv.EndDate = &t
	}
	return adv, nil
}
