package services

import (
	"context"

	"civica-backend/application/ports"
	"civica-backend/domain"
	appErrors "civica-backend/pkg/errors"

	"go.uber.org/zap"
)

// ReflectionService handles the end-of-cycle reflections students submit
// during the reflection phase.
type ReflectionService struct {
	reflections ports.ReflectionRepository
	cohorts     ports.CohortRepository
	metrics     ports.MetricsRecorder
	logger      *zap.Logger
}

// NewReflectionService creates a new reflection service.
func NewReflectionService(
	reflections ports.ReflectionRepository,
	cohorts ports.CohortRepository,
	metrics ports.MetricsRecorder,
	logger *zap.Logger,
) *ReflectionService {
	return &ReflectionService{
		reflections: reflections,
		cohorts:     cohorts,
		metrics:     metrics,
		logger:      logger,
	}
}

// SubmitReflection records a student's reflection. One per (student,
// cohort); a second submission is a Conflict, enforced by the storage
// layer's conditional write rather than a read-then-write check.
func (s *ReflectionService) SubmitReflection(ctx context.Context, studentID, cohortID string, topPriorities []string, whatChanged, whatSurprised, nextSteps string) (*domain.Reflection, error) {
	if _, err := s.cohorts.GetStudentProfile(ctx, cohortID, studentID); err != nil {
		if appErrors.IsNotFound(err) {
			return nil, appErrors.NewForbiddenError("not enrolled in this cohort")
		}
		return nil, err
	}

	reflection, err := domain.NewReflection(studentID, cohortID, topPriorities, whatChanged, whatSurprised, nextSteps)
	if err != nil {
		return nil, err
	}
	if err := s.reflections.CreateReflection(ctx, reflection); err != nil {
		return nil, err
	}

	s.metrics.Count(ctx, "ReflectionSubmitted", 1)
	s.logger.Info("Reflection submitted",
		zap.String("cohortID", cohortID),
		zap.String("studentID", studentID),
	)
	return reflection, nil
}

// GetReflection returns one student's reflection. Students may read only
// their own; teachers may read any reflection in a cohort they own.
func (s *ReflectionService) GetReflection(ctx context.Context, cohortID, studentID, callerID string, role domain.Role) (*domain.Reflection, error) {
	switch role {
	case domain.RoleStudent:
		if callerID != studentID {
			return nil, appErrors.NewForbiddenError("students may only read their own reflection")
		}
	case domain.RoleTeacher:
		cohort, err := s.cohorts.GetCohortByID(ctx, cohortID)
		if err != nil {
			return nil, err
		}
		if !cohort.OwnedBy(callerID) {
			return nil, appErrors.NewForbiddenError("cohort belongs to another teacher")
		}
	default:
		return nil, appErrors.NewForbiddenError("unknown role")
	}
	return s.reflections.GetReflection(ctx, cohortID, studentID)
}

// ListReflections returns every reflection in a cohort the teacher owns.
func (s *ReflectionService) ListReflections(ctx context.Context, cohortID, teacherID string) ([]*domain.Reflection, error) {
	cohort, err := s.cohorts.GetCohortByID(ctx, cohortID)
	if err != nil {
		return nil, err
	}
	if !cohort.OwnedBy(teacherID) {
		return nil, appErrors.NewForbiddenError("cohort belongs to another teacher")
	}
	return s.reflections.GetReflectionsByCohort(ctx, cohortID)
}
