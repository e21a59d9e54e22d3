// Package ports defines the interfaces the application layer depends on.
// Implementations live under infrastructure/persistence; tests use the
// in-memory versions.
package ports

import (
	"context"

	"civica-backend/domain"
)

// UserRepository persists users and their role-specific profiles.
type UserRepository interface {
	// CreateUser writes the user row and an email uniqueness guard in one
	// transaction. Returns a Conflict error when the email is taken.
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, userID string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	PutTeacherProfile(ctx context.Context, profile *domain.TeacherProfile) error
	GetTeacherProfile(ctx context.Context, userID string) (*domain.TeacherProfile, error)
}

// CohortRepository persists cohorts and student memberships.
type CohortRepository interface {
	// CreateCohort writes the cohort row with both secondary-index
	// projections and the join-code uniqueness guard in one atomic
	// transaction. Returns a Conflict error when the join code is taken.
	CreateCohort(ctx context.Context, cohort *domain.Cohort) error
	GetCohortByID(ctx context.Context, cohortID string) (*domain.Cohort, error)
	// GetCohortByJoinCode is case-insensitive and returns NotFound when no
	// cohort matches; a mistyped code is an expected outcome.
	GetCohortByJoinCode(ctx context.Context, code string) (*domain.Cohort, error)
	// GetCohortsByTeacher returns newest-first; the ordering comes from the
	// index sort key, not a post-query sort.
	GetCohortsByTeacher(ctx context.Context, teacherID string) ([]*domain.Cohort, error)
	// UpdateCohort touches only the non-nil fields, never a blind full
	// overwrite.
	UpdateCohort(ctx context.Context, cohortID string, update CohortUpdate) (*domain.Cohort, error)
	// AdvancePhase applies a planned transition conditionally on the cohort
	// still being in the expected phase; a stale racer gets a Conflict.
	AdvancePhase(ctx context.Context, cohortID string, adv domain.PhaseAdvance) (*domain.Cohort, error)

	// CreateStudentProfile writes one membership row per (user, cohort) and
	// atomically increments the cohort's student count as a secondary
	// effect. Joining twice is a Conflict.
	CreateStudentProfile(ctx context.Context, profile *domain.StudentProfile) error
	GetStudentProfile(ctx context.Context, cohortID, userID string) (*domain.StudentProfile, error)
	GetStudentProfilesByCohort(ctx context.Context, cohortID string) ([]*domain.StudentProfile, error)
	GetCohortsByStudent(ctx context.Context, userID string) ([]*domain.StudentProfile, error)
}

// CohortUpdate lists the cohort fields a teacher may change in place.
type CohortUpdate struct {
	Name   *string
	Status *domain.CohortStatus
}

// PositionRepository persists positions. Rows are append-only; a revision
// links its predecessor and never replaces it.
type PositionRepository interface {
	CreatePosition(ctx context.Context, position *domain.Position) error
	GetPositionByID(ctx context.Context, positionID string) (*domain.Position, error)
	GetPositionsByPolicy(ctx context.Context, cohortID, policyID string) ([]*domain.Position, error)
	GetPositionsByStudent(ctx context.Context, studentID string) ([]*domain.Position, error)
}

// DiscussionRepository persists discussion posts and maintains the
// denormalized reply count on parents.
type DiscussionRepository interface {
	CreatePost(ctx context.Context, post *domain.DiscussionPost) error
	GetPostByID(ctx context.Context, postID string) (*domain.DiscussionPost, error)
	GetPostsByPolicy(ctx context.Context, cohortID, policyID string) ([]*domain.DiscussionPost, error)
	GetReplies(ctx context.Context, parentID string) ([]*domain.DiscussionPost, error)
	// IncrementReplyCount applies an atomic delta to a parent post's
	// counter without a prior read.
	IncrementReplyCount(ctx context.Context, post *domain.DiscussionPost, delta int) error
	SetFlagged(ctx context.Context, post *domain.DiscussionPost, flagged bool) error
	// DeletePost removes a flagged post (moderation only).
	DeletePost(ctx context.Context, post *domain.DiscussionPost) error
}

// ReflectionRepository persists reflections, one per (student, cohort).
type ReflectionRepository interface {
	// CreateReflection fails with Conflict when the student already
	// reflected in this cohort.
	CreateReflection(ctx context.Context, reflection *domain.Reflection) error
	GetReflection(ctx context.Context, cohortID, studentID string) (*domain.Reflection, error)
	GetReflectionsByCohort(ctx context.Context, cohortID string) ([]*domain.Reflection, error)
}

// EventPublisher emits domain events to the event bus. Best effort:
// callers log failures and move on.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.DomainEvent) error
}

// MetricsRecorder counts notable operations. Best effort.
type MetricsRecorder interface {
	Count(ctx context.Context, name string, value float64)
}
