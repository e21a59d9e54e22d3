package services

import (
	"context"
	"testing"

	"civica-backend/domain"
	"civica-backend/infrastructure/persistence/memory"
	appErrors "civica-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEnsureUser(t *testing.T) {
	ctx := context.Background()

	t.Run("creates on first contact", func(t *testing.T) {
		svc := NewUserService(memory.NewStore(), zap.NewNop())

		user, err := svc.EnsureUser(ctx, "Pat@School.EDU", "Pat", domain.RoleTeacher)
		require.NoError(t, err)
		assert.Equal(t, "pat@school.edu", user.Email)
		assert.Equal(t, domain.RoleTeacher, user.Role)
	})

	t.Run("returns the existing user afterwards", func(t *testing.T) {
		svc := NewUserService(memory.NewStore(), zap.NewNop())

		first, err := svc.EnsureUser(ctx, "pat@school.edu", "Pat", domain.RoleTeacher)
		require.NoError(t, err)

		second, err := svc.EnsureUser(ctx, "PAT@school.edu", "Different Name", domain.RoleTeacher)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, "Pat", second.DisplayName)
	})

	t.Run("rejects an unknown role", func(t *testing.T) {
		svc := NewUserService(memory.NewStore(), zap.NewNop())

		_, err := svc.EnsureUser(ctx, "pat@school.edu", "Pat", domain.Role("admin"))
		require.Error(t, err)
		assert.True(t, appErrors.IsValidation(err))
	})
}

func TestTeacherProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("teacher upserts a profile", func(t *testing.T) {
		svc := NewUserService(memory.NewStore(), zap.NewNop())

		user, err := svc.EnsureUser(ctx, "pat@school.edu", "Pat", domain.RoleTeacher)
		require.NoError(t, err)

		profile, err := svc.PutTeacherProfile(ctx, user.ID, "Lincoln High", "OR", []string{"9-10"})
		require.NoError(t, err)
		assert.Equal(t, user.ID, profile.UserID)

		got, err := svc.GetTeacherProfile(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "Lincoln High", got.SchoolName)
	})

	t.Run("students cannot have one", func(t *testing.T) {
		svc := NewUserService(memory.NewStore(), zap.NewNop())

		user, err := svc.EnsureUser(ctx, "sam@school.edu", "Sam", domain.RoleStudent)
		require.NoError(t, err)

		_, err = svc.PutTeacherProfile(ctx, user.ID, "Lincoln High", "OR", []string{"9-10"})
		require.Error(t, err)
		assert.True(t, appErrors.IsForbidden(err))
	})
}
