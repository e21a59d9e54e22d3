package domain

import (
	"strings"
	"time"

	appErrors "civica-backend/pkg/errors"

	"github.com/google/uuid"
)

// Role distinguishes the two kinds of authenticated people.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	return r == RoleTeacher || r == RoleStudent
}

// User is an authenticated person. The ID is immutable once assigned; the
// identity provider itself is an external collaborator.
type User struct {
	ID          string
	Email       string
	DisplayName string
	Role        Role
	CreatedAt   time.Time
}

// NewUser creates a user record at signup.
func NewUser(email, displayName string, role Role) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, appErrors.NewValidationError("email cannot be empty")
	}
	if displayName == "" {
		return nil, appErrors.NewValidationError("displayName cannot be empty")
	}
	if !role.IsValid() {
		return nil, appErrors.NewValidationError("role must be teacher or student")
	}
	return &User{
		ID:          uuid.New().String(),
		Email:       email,
		DisplayName: displayName,
		Role:        role,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// TeacherProfile is teacher-specific metadata, 1:1 with a User whose role is
// teacher.
type TeacherProfile struct {
	UserID      string
	SchoolName  string
	State       string
	GradeLevels []string
}

// StudentProfile is a student's membership in one cohort, created when a
// join code is redeemed. One row per (user, cohort).
type StudentProfile struct {
	UserID   string
	CohortID string
	JoinedAt time.Time
}
