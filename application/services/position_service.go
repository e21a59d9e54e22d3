package services

import (
	"context"

	"civica-backend/application/ports"
	"civica-backend/domain"
	appErrors "civica-backend/pkg/errors"

	"go.uber.org/zap"
)

// PositionService handles students taking and revising positions on
// policies, and the aggregate views teachers see.
type PositionService struct {
	positions ports.PositionRepository
	cohorts   ports.CohortRepository
	metrics   ports.MetricsRecorder
	logger    *zap.Logger
}

// NewPositionService creates a new position service.
func NewPositionService(
	positions ports.PositionRepository,
	cohorts ports.CohortRepository,
	metrics ports.MetricsRecorder,
	logger *zap.Logger,
) *PositionService {
	return &PositionService{
		positions: positions,
		cohorts:   cohorts,
		metrics:   metrics,
		logger:    logger,
	}
}

// SubmitPosition records a student's stance on a policy. A second
// submission for the same policy becomes a revision linked to the
// student's most recent prior position; the original row is never
// touched.
func (s *PositionService) SubmitPosition(ctx context.Context, studentID, cohortID, policyID string, stance domain.Stance, reasoning, steelman string) (*domain.Position, error) {
	if _, err := s.cohorts.GetStudentProfile(ctx, cohortID, studentID); err != nil {
		if appErrors.IsNotFound(err) {
			return nil, appErrors.NewForbiddenError("not enrolled in this cohort")
		}
		return nil, err
	}

	prior, err := s.latestForPolicy(ctx, studentID, cohortID, policyID)
	if err != nil {
		return nil, err
	}

	var position *domain.Position
	if prior == nil {
		position, err = domain.NewPosition(studentID, cohortID, policyID, stance, reasoning, steelman)
	} else {
		position, err = domain.NewRevision(prior, stance, reasoning, steelman)
	}
	if err != nil {
		return nil, err
	}

	if err := s.positions.CreatePosition(ctx, position); err != nil {
		return nil, err
	}

	s.metrics.Count(ctx, "PositionSubmitted", 1)
	s.logger.Debug("Position submitted",
		zap.String("positionID", position.ID),
		zap.String("policyID", policyID),
		zap.Bool("isRevision", position.IsRevision),
	)
	return position, nil
}

// latestForPolicy finds the student's most recent position on one policy,
// or nil when they have not taken one yet.
func (s *PositionService) latestForPolicy(ctx context.Context, studentID, cohortID, policyID string) (*domain.Position, error) {
	all, err := s.positions.GetPositionsByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	var latest *domain.Position
	for _, p := range all {
		if p.CohortID != cohortID || p.PolicyID != policyID {
			continue
		}
		if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
			latest = p
		}
	}
	return latest, nil
}

// GetPositionsByPolicy lists every position row, originals and revisions,
// for one policy in a cohort the teacher owns.
func (s *PositionService) GetPositionsByPolicy(ctx context.Context, cohortID, policyID, teacherID string) ([]*domain.Position, error) {
	cohort, err := s.cohorts.GetCohortByID(ctx, cohortID)
	if err != nil {
		return nil, err
	}
	if !cohort.OwnedBy(teacherID) {
		return nil, appErrors.NewForbiddenError("cohort belongs to another teacher")
	}
	return s.positions.GetPositionsByPolicy(ctx, cohortID, policyID)
}

// GetStanceDistribution tallies the latest stance per student for one
// policy. Each student counts exactly once; a revision supersedes the
// original in the tally.
func (s *PositionService) GetStanceDistribution(ctx context.Context, cohortID, policyID string) (map[domain.Stance]int, error) {
	positions, err := s.positions.GetPositionsByPolicy(ctx, cohortID, policyID)
	if err != nil {
		return nil, err
	}
	return domain.StanceDistribution(positions), nil
}

// GetPositionHistory returns a student's own position rows, oldest first.
func (s *PositionService) GetPositionHistory(ctx context.Context, studentID string) ([]*domain.Position, error) {
	return s.positions.GetPositionsByStudent(ctx, studentID)
}
