// Package services contains the application layer: use-case orchestration
// over the repository ports, with authorization checks and best-effort
// event and metric emission.
package services

import (
	"context"
	"time"

	"civica-backend/application/ports"
	"civica-backend/domain"
	appErrors "civica-backend/pkg/errors"

	"go.uber.org/zap"
)

// maxJoinCodeAttempts bounds how many fresh codes CreateCohort will try
// when the generated code collides with an existing one.
const maxJoinCodeAttempts = 5

// CohortService orchestrates cohort lifecycle operations for teachers.
type CohortService struct {
	cohorts ports.CohortRepository
	events  ports.EventPublisher
	metrics ports.MetricsRecorder
	logger  *zap.Logger
}

// NewCohortService creates a new cohort service.
func NewCohortService(
	cohorts ports.CohortRepository,
	events ports.EventPublisher,
	metrics ports.MetricsRecorder,
	logger *zap.Logger,
) *CohortService {
	return &CohortService{
		cohorts: cohorts,
		events:  events,
		metrics: metrics,
		logger:  logger,
	}
}

// CreateCohort creates a draft cohort owned by the teacher. Join-code
// collisions surface as conditional-write conflicts; the service
// regenerates the code and retries a bounded number of times.
func (s *CohortService) CreateCohort(ctx context.Context, teacherID, name, gradeLevel string) (*domain.Cohort, error) {
	cohort, err := domain.NewCohort(teacherID, name, gradeLevel)
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		err = s.cohorts.CreateCohort(ctx, cohort)
		if err == nil {
			break
		}
		if !appErrors.IsConflict(err) {
			return nil, err
		}
		if attempt >= maxJoinCodeAttempts {
			return nil, appErrors.NewConflictError("join code allocation exhausted").WithCause(err)
		}
		s.logger.Warn("Join code collision, regenerating",
			zap.String("cohortID", cohort.ID),
			zap.Int("attempt", attempt),
		)
		cohort.JoinCode = domain.GenerateJoinCode()
	}

	s.metrics.Count(ctx, "CohortCreated", 1)
	s.logger.Info("Cohort created",
		zap.String("cohortID", cohort.ID),
		zap.String("teacherID", teacherID),
	)
	return cohort, nil
}

// GetCohort returns a cohort visible to the caller. Teachers see only
// their own cohorts; students must be enrolled.
func (s *CohortService) GetCohort(ctx context.Context, cohortID, callerID string, role domain.Role) (*domain.Cohort, error) {
	cohort, err := s.cohorts.GetCohortByID(ctx, cohortID)
	if err != nil {
		return nil, err
	}
	switch role {
	case domain.RoleTeacher:
		if !cohort.OwnedBy(callerID) {
			return nil, appErrors.NewForbiddenError("cohort belongs to another teacher")
		}
	case domain.RoleStudent:
		if _, err := s.cohorts.GetStudentProfile(ctx, cohortID, callerID); err != nil {
			if appErrors.IsNotFound(err) {
				return nil, appErrors.NewForbiddenError("not enrolled in this cohort")
			}
			return nil, err
		}
	default:
		return nil, appErrors.NewForbiddenError("unknown role")
	}
	return cohort, nil
}

// ListCohorts returns the teacher's cohorts, newest first.
func (s *CohortService) ListCohorts(ctx context.Context, teacherID string) ([]*domain.Cohort, error) {
	return s.cohorts.GetCohortsByTeacher(ctx, teacherID)
}

// UpdateCohort applies a partial update to a cohort the teacher owns.
func (s *CohortService) UpdateCohort(ctx context.Context, cohortID, teacherID string, update ports.CohortUpdate) (*domain.Cohort, error) {
	cohort, err := s.cohorts.GetCohortByID(ctx, cohortID)
	if err != nil {
		return nil, err
	}
	if !cohort.OwnedBy(teacherID) {
		return nil, appErrors.NewForbiddenError("cohort belongs to another teacher")
	}
	if update.Status != nil && !update.Status.IsValid() {
		return nil, appErrors.NewValidationError("unknown cohort status")
	}
	return s.cohorts.UpdateCohort(ctx, cohortID, update)
}

// AdvancePhase moves a cohort to the next phase in the fixed sequence.
// Advancing a completed cohort is a no-op that returns the cohort
// unchanged. The write is conditional on the phase the plan was computed
// from, so two racing teachers cannot double-advance.
func (s *CohortService) AdvancePhase(ctx context.Context, cohortID, teacherID string) (*domain.Cohort, error) {
	cohort, err := s.cohorts.GetCohortByID(ctx, cohortID)
	if err != nil {
		return nil, err
	}
	if !cohort.OwnedBy(teacherID) {
		return nil, appErrors.NewForbiddenError("cohort belongs to another teacher")
	}

	adv, err := cohort.PlanAdvance(time.Now())
	if err != nil {
		return nil, err
	}
	if adv.From == adv.To {
		return cohort, nil
	}

	updated, err := s.cohorts.AdvancePhase(ctx, cohortID, adv)
	if err != nil {
		return nil, err
	}

	if err := s.events.Publish(ctx, domain.CohortPhaseChanged{
		CohortID:  cohortID,
		TeacherID: teacherID,
		FromPhase: adv.From,
		ToPhase:   adv.To,
		Timestamp: time.Now().UTC(),
	}); err != nil {
		s.logger.Warn("Failed to publish phase change event",
			zap.String("cohortID", cohortID),
			zap.Error(err),
		)
	}
	s.metrics.Count(ctx, "PhaseAdvanced", 1)
	s.logger.Info("Cohort phase advanced",
		zap.String("cohortID", cohortID),
		zap.String("from", string(adv.From)),
		zap.String("to", string(adv.To)),
	)
	return updated, nil
}

// ListStudents returns the roster of a cohort the teacher owns.
func (s *CohortService) ListStudents(ctx context.Context, cohortID, teacherID string) ([]*domain.StudentProfile, error) {
	cohort, err := s.cohorts.GetCohortByID(ctx, cohortID)
	if err != nil {
		return nil, err
	}
	if !cohort.OwnedBy(teacherID) {
		return nil, appErrors.NewForbiddenError("cohort belongs to another teacher")
	}
	return s.cohorts.GetStudentProfilesByCohort(ctx, cohortID)
}
