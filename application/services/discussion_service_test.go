package services

import (
	"context"
	"testing"

	"civica-backend/infrastructure/persistence/memory"
	appErrors "civica-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newDiscussionFixture(t *testing.T) (*DiscussionService, *CohortService, *EnrollmentService, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	events := &capturingPublisher{}
	metrics := newCapturingMetrics()
	logger := zap.NewNop()
	return NewDiscussionService(store, store, metrics, logger),
		NewCohortService(store, events, metrics, logger),
		NewEnrollmentService(store, events, metrics, logger),
		store
}

func TestCreatePost(t *testing.T) {
	ctx := context.Background()

	t.Run("reply bumps the parent's count", func(t *testing.T) {
		discussions, cohorts, enrollment, _ := newDiscussionFixture(t)
		cohort := enrolled(t, cohorts, enrollment, "student-1", "student-2")

		parent, err := discussions.CreatePost(ctx, cohort.ID, "policy-1", "student-1", "I think this helps renters", "")
		require.NoError(t, err)
		assert.Zero(t, parent.ReplyCount)

		reply, err := discussions.CreatePost(ctx, cohort.ID, "policy-1", "student-2", "What about landlords?", parent.ID)
		require.NoError(t, err)
		assert.Equal(t, parent.ID, reply.ParentID)

		got, err := discussions.posts.GetPostByID(ctx, parent.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.ReplyCount)

		replies, err := discussions.GetReplies(ctx, parent.ID)
		require.NoError(t, err)
		require.Len(t, replies, 1)
		assert.Equal(t, reply.ID, replies[0].ID)
	})

	t.Run("reply to a missing parent is not found", func(t *testing.T) {
		discussions, cohorts, enrollment, _ := newDiscussionFixture(t)
		cohort := enrolled(t, cohorts, enrollment, "student-1")

		_, err := discussions.CreatePost(ctx, cohort.ID, "policy-1", "student-1", "hello", "missing-parent")
		require.Error(t, err)
		assert.True(t, appErrors.IsNotFound(err))
	})

	t.Run("reply cannot cross discussions", func(t *testing.T) {
		discussions, cohorts, enrollment, _ := newDiscussionFixture(t)
		cohort := enrolled(t, cohorts, enrollment, "student-1")

		parent, err := discussions.CreatePost(ctx, cohort.ID, "policy-1", "student-1", "topic A", "")
		require.NoError(t, err)

		_, err = discussions.CreatePost(ctx, cohort.ID, "policy-2", "student-1", "reply from topic B", parent.ID)
		require.Error(t, err)
		assert.True(t, appErrors.IsValidation(err))
	})

	t.Run("replies cannot nest", func(t *testing.T) {
		discussions, cohorts, enrollment, _ := newDiscussionFixture(t)
		cohort := enrolled(t, cohorts, enrollment, "student-1")

		parent, err := discussions.CreatePost(ctx, cohort.ID, "policy-1", "student-1", "top", "")
		require.NoError(t, err)
		reply, err := discussions.CreatePost(ctx, cohort.ID, "policy-1", "student-1", "first level", parent.ID)
		require.NoError(t, err)

		_, err = discussions.CreatePost(ctx, cohort.ID, "policy-1", "student-1", "second level", reply.ID)
		require.Error(t, err)
		assert.True(t, appErrors.IsValidation(err))
	})

	t.Run("failed counter update does not lose the reply", func(t *testing.T) {
		discussions, cohorts, enrollment, store := newDiscussionFixture(t)
		cohort := enrolled(t, cohorts, enrollment, "student-1")

		parent, err := discussions.CreatePost(ctx, cohort.ID, "policy-1", "student-1", "top", "")
		require.NoError(t, err)

		store.SetError("IncrementReplyCount", assert.AnError)
		reply, err := discussions.CreatePost(ctx, cohort.ID, "policy-1", "student-1", "reply", parent.ID)
		require.NoError(t, err)
		store.ClearErrors()

		replies, err := discussions.GetReplies(ctx, parent.ID)
		require.NoError(t, err)
		require.Len(t, replies, 1)
		assert.Equal(t, reply.ID, replies[0].ID)

		// Count lags behind; child rows remain the source of truth.
		got, err := discussions.posts.GetPostByID(ctx, parent.ID)
		require.NoError(t, err)
		assert.Zero(t, got.ReplyCount)
	})
}

func TestModeration(t *testing.T) {
	ctx := context.Background()

	t.Run("only flagged posts can be deleted", func(t *testing.T) {
		discussions, cohorts, enrollment, _ := newDiscussionFixture(t)
		cohort := enrolled(t, cohorts, enrollment, "student-1")

		post, err := discussions.CreatePost(ctx, cohort.ID, "policy-1", "student-1", "off topic", "")
		require.NoError(t, err)

		err = discussions.DeletePost(ctx, post.ID, "teacher-1")
		require.Error(t, err)
		assert.True(t, appErrors.IsConflict(err))

		require.NoError(t, discussions.FlagPost(ctx, post.ID, "teacher-1"))
		require.NoError(t, discussions.DeletePost(ctx, post.ID, "teacher-1"))

		_, err = discussions.posts.GetPostByID(ctx, post.ID)
		assert.True(t, appErrors.IsNotFound(err))
	})

	t.Run("deleting a flagged reply decrements the parent", func(t *testing.T) {
		discussions, cohorts, enrollment, _ := newDiscussionFixture(t)
		cohort := enrolled(t, cohorts, enrollment, "student-1", "student-2")

		parent, err := discussions.CreatePost(ctx, cohort.ID, "policy-1", "student-1", "top", "")
		require.NoError(t, err)
		reply, err := discussions.CreatePost(ctx, cohort.ID, "policy-1", "student-2", "rude", parent.ID)
		require.NoError(t, err)

		require.NoError(t, discussions.FlagPost(ctx, reply.ID, "teacher-1"))
		require.NoError(t, discussions.DeletePost(ctx, reply.ID, "teacher-1"))

		got, err := discussions.posts.GetPostByID(ctx, parent.ID)
		require.NoError(t, err)
		assert.Zero(t, got.ReplyCount)
	})

	t.Run("non-owner teacher cannot moderate", func(t *testing.T) {
		discussions, cohorts, enrollment, _ := newDiscussionFixture(t)
		cohort := enrolled(t, cohorts, enrollment, "student-1")

		post, err := discussions.CreatePost(ctx, cohort.ID, "policy-1", "student-1", "fine post", "")
		require.NoError(t, err)

		err = discussions.FlagPost(ctx, post.ID, "teacher-2")
		require.Error(t, err)
		assert.True(t, appErrors.IsForbidden(err))
	})
}

func TestGetThreadOrdering(t *testing.T) {
	ctx := context.Background()
	discussions, cohorts, enrollment, _ := newDiscussionFixture(t)
	cohort := enrolled(t, cohorts, enrollment, "student-1")

	var ids []string
	for _, content := range []string{"first", "second", "third"} {
		post, err := discussions.CreatePost(ctx, cohort.ID, "policy-1", "student-1", content, "")
		require.NoError(t, err)
		ids = append(ids, post.ID)
	}

	thread, err := discussions.GetThread(ctx, cohort.ID, "policy-1")
	require.NoError(t, err)
	require.Len(t, thread, 3)
	for i, post := range thread {
		assert.Equal(t, ids[i], post.ID)
	}

	other, err := discussions.GetThread(ctx, cohort.ID, "policy-2")
	require.NoError(t, err)
	assert.Empty(t, other)
}
