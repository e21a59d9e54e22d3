package services

import (
	"context"
	"time"

	"civica-backend/application/ports"
	"civica-backend/domain"
	appErrors "civica-backend/pkg/errors"

	"go.uber.org/zap"
)

// EnrollmentService handles students redeeming join codes and listing
// their memberships.
type EnrollmentService struct {
	cohorts ports.CohortRepository
	events  ports.EventPublisher
	metrics ports.MetricsRecorder
	logger  *zap.Logger
}

// NewEnrollmentService creates a new enrollment service.
func NewEnrollmentService(
	cohorts ports.CohortRepository,
	events ports.EventPublisher,
	metrics ports.MetricsRecorder,
	logger *zap.Logger,
) *EnrollmentService {
	return &EnrollmentService{
		cohorts: cohorts,
		events:  events,
		metrics: metrics,
		logger:  logger,
	}
}

// JoinCohort redeems a join code for a student and returns the created
// membership together with the cohort it belongs to. The code lookup is
// case-insensitive. Joining a cohort twice is a Conflict; an unknown code
// is NotFound, an expected outcome for a mistyped code.
func (s *EnrollmentService) JoinCohort(ctx context.Context, studentID, code string) (*domain.StudentProfile, *domain.Cohort, error) {
	if studentID == "" {
		return nil, nil, appErrors.NewValidationError("studentID cannot be empty")
	}
	code = domain.NormalizeJoinCode(code)
	if len(code) != domain.JoinCodeLength {
		return nil, nil, appErrors.NewValidationError("join code must be 6 characters")
	}

	cohort, err := s.cohorts.GetCohortByJoinCode(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	if cohort.Status == domain.CohortStatusArchived {
		return nil, nil, appErrors.NewConflictError("cohort is archived")
	}

	profile := &domain.StudentProfile{
		UserID:   studentID,
		CohortID: cohort.ID,
		JoinedAt: time.Now().UTC(),
	}
	if err := s.cohorts.CreateStudentProfile(ctx, profile); err != nil {
		return nil, nil, err
	}

	if err := s.events.Publish(ctx, domain.StudentJoinedCohort{
		CohortID:  cohort.ID,
		StudentID: studentID,
		Timestamp: profile.JoinedAt,
	}); err != nil {
		s.logger.Warn("Failed to publish student joined event",
			zap.String("cohortID", cohort.ID),
			zap.Error(err),
		)
	}
	s.metrics.Count(ctx, "StudentJoined", 1)
	s.logger.Info("Student joined cohort",
		zap.String("cohortID", cohort.ID),
		zap.String("studentID", studentID),
	)
	return profile, cohort, nil
}

// ListMemberships returns the cohorts a student belongs to, most recent
// join first.
func (s *EnrollmentService) ListMemberships(ctx context.Context, studentID string) ([]*domain.StudentProfile, error) {
	return s.cohorts.GetCohortsByStudent(ctx, studentID)
}
