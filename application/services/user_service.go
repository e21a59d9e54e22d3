package services

import (
	"context"

	"civica-backend/application/ports"
	"civica-backend/domain"
	appErrors "civica-backend/pkg/errors"

	"go.uber.org/zap"
)

// UserService bootstraps user records from authenticated identities. The
// identity provider is an external collaborator; this service only
// mirrors its users into the table.
type UserService struct {
	users  ports.UserRepository
	logger *zap.Logger
}

// NewUserService creates a new user service.
func NewUserService(users ports.UserRepository, logger *zap.Logger) *UserService {
	return &UserService{
		users:  users,
		logger: logger,
	}
}

// EnsureUser creates the user row on first contact and returns the
// existing one afterwards. Creation is idempotent per email: a concurrent
// duplicate loses the conditional write and falls back to the read.
func (s *UserService) EnsureUser(ctx context.Context, email, displayName string, role domain.Role) (*domain.User, error) {
	existing, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !appErrors.IsNotFound(err) {
		return nil, err
	}

	user, err := domain.NewUser(email, displayName, role)
	if err != nil {
		return nil, err
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if appErrors.IsConflict(err) {
			return s.users.GetUserByEmail(ctx, email)
		}
		return nil, err
	}

	s.logger.Info("User created",
		zap.String("userID", user.ID),
		zap.String("role", string(role)),
	)
	return user, nil
}

// GetUser returns one user by id.
func (s *UserService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.GetUserByID(ctx, userID)
}

// PutTeacherProfile upserts the teacher-specific metadata. Only teachers
// carry one.
func (s *UserService) PutTeacherProfile(ctx context.Context, userID, schoolName, state string, gradeLevels []string) (*domain.TeacherProfile, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role != domain.RoleTeacher {
		return nil, appErrors.NewForbiddenError("only teachers have a teacher profile")
	}

	profile := &domain.TeacherProfile{
		UserID:      userID,
		SchoolName:  schoolName,
		State:       state,
		GradeLevels: gradeLevels,
	}
	if err := s.users.PutTeacherProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// GetTeacherProfile returns the teacher metadata for one user.
func (s *UserService) GetTeacherProfile(ctx context.Context, userID string) (*domain.TeacherProfile, error) {
	return s.users.GetTeacherProfile(ctx, userID)
}
