package dynamodb

import (
	"testing"
	"time"

	"civica-backend/domain"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var codecNow = time.Date(2026, 3, 14, 9, 30, 0, 123456789, time.UTC)

// marshalRoundTrip pushes an item through the same attributevalue codec the
// repositories use, so a mistagged or dropped field fails here instead of
// silently losing data in the table.
func marshalRoundTrip[T any](t *testing.T, item T) (T, map[string]types.AttributeValue) {
	t.Helper()
	raw, err := attributevalue.MarshalMap(item)
	require.NoError(t, err)
	var out T
	require.NoError(t, attributevalue.UnmarshalMap(raw, &out))
	return out, raw
}

func TestCohortCodecRoundTrip(t *testing.T) {
	cohort := &domain.Cohort{
		ID:           "cohort-1",
		TeacherID:    "teacher-1",
		Name:         "Period 3",
		GradeLevel:   "9-10",
		JoinCode:     "KXM42P",
		Status:       domain.CohortStatusDraft,
		CurrentPhase: domain.PhaseNotStarted,
		StudentCount: 4,
		CreatedAt:    codecNow,
		UpdatedAt:    codecNow.Add(time.Minute),
	}

	t.Run("draft cohort has no run dates", func(t *testing.T) {
		item, raw := marshalRoundTrip(t, cohortToItem(cohort))
		_, hasStart := raw["StartDate"]
		_, hasEnd := raw["EndDate"]
		assert.False(t, hasStart)
		assert.False(t, hasEnd)

		got, err := cohortFromItem(item)
		require.NoError(t, err)
		assert.Equal(t, cohort.ID, got.ID)
		assert.Equal(t, cohort.TeacherID, got.TeacherID)
		assert.Equal(t, cohort.Name, got.Name)
		assert.Equal(t, cohort.GradeLevel, got.GradeLevel)
		assert.Equal(t, cohort.JoinCode, got.JoinCode)
		assert.Equal(t, cohort.Status, got.Status)
		assert.Equal(t, cohort.CurrentPhase, got.CurrentPhase)
		assert.Equal(t, cohort.StudentCount, got.StudentCount)
		assert.True(t, got.CreatedAt.Equal(cohort.CreatedAt))
		assert.True(t, got.UpdatedAt.Equal(cohort.UpdatedAt))
		assert.Nil(t, got.StartDate)
		assert.Nil(t, got.EndDate)
	})

	t.Run("completed cohort keeps both run dates", func(t *testing.T) {
		start := codecNow.Add(time.Hour)
		end := codecNow.Add(48 * time.Hour)
		completed := *cohort
		completed.Status = domain.CohortStatusActive
		completed.CurrentPhase = domain.PhaseCompleted
		completed.StartDate = &start
		completed.EndDate = &end

		item, _ := marshalRoundTrip(t, cohortToItem(&completed))
		got, err := cohortFromItem(item)
		require.NoError(t, err)
		require.NotNil(t, got.StartDate)
		require.NotNil(t, got.EndDate)
		assert.True(t, got.StartDate.Equal(start))
		assert.True(t, got.EndDate.Equal(end))
	})

	t.Run("join code is stored normalized", func(t *testing.T) {
		lower := *cohort
		lower.JoinCode = "kxm42p"
		item, _ := marshalRoundTrip(t, cohortToItem(&lower))
		got, err := cohortFromItem(item)
		require.NoError(t, err)
		assert.Equal(t, "KXM42P", got.JoinCode)
	})
}

func TestPositionCodecRoundTrip(t *testing.T) {
	original := &domain.Position{
		ID:        "position-1",
		StudentID: "student-1",
		CohortID:  "cohort-1",
		PolicyID:  "policy-1",
		Stance:    domain.StanceSupport,
		Reasoning: "lowers rents near transit",
		Steelman:  "could displace small landlords",
		CreatedAt: codecNow,
	}

	t.Run("original omits the revision link", func(t *testing.T) {
		item, raw := marshalRoundTrip(t, positionToItem(original))
		_, hasLink := raw["OriginalPositionID"]
		assert.False(t, hasLink)

		got, err := positionFromItem(item)
		require.NoError(t, err)
		assert.Equal(t, original.ID, got.ID)
		assert.Equal(t, original.StudentID, got.StudentID)
		assert.Equal(t, original.CohortID, got.CohortID)
		assert.Equal(t, original.PolicyID, got.PolicyID)
		assert.Equal(t, original.Stance, got.Stance)
		assert.Equal(t, original.Reasoning, got.Reasoning)
		assert.Equal(t, original.Steelman, got.Steelman)
		assert.False(t, got.IsRevision)
		assert.Empty(t, got.OriginalPositionID)
		assert.True(t, got.CreatedAt.Equal(original.CreatedAt))
	})

	t.Run("revision keeps its link to the original", func(t *testing.T) {
		revision := *original
		revision.ID = "position-2"
		revision.Stance = domain.StanceOppose
		revision.IsRevision = true
		revision.OriginalPositionID = original.ID
		revision.CreatedAt = codecNow.Add(time.Hour)

		item, _ := marshalRoundTrip(t, positionToItem(&revision))
		got, err := positionFromItem(item)
		require.NoError(t, err)
		assert.True(t, got.IsRevision)
		assert.Equal(t, original.ID, got.OriginalPositionID)
		assert.Equal(t, domain.StanceOppose, got.Stance)
	})
}

func TestDiscussionCodecRoundTrip(t *testing.T) {
	post := &domain.DiscussionPost{
		ID:         "post-1",
		CohortID:   "cohort-1",
		PolicyID:   "policy-1",
		AuthorID:   "student-1",
		Content:    "I think this helps renters",
		ReplyCount: 2,
		CreatedAt:  codecNow,
		UpdatedAt:  codecNow,
	}

	t.Run("top-level post carries no thread projection", func(t *testing.T) {
		item, raw := marshalRoundTrip(t, discussionToItem(post))
		_, hasGSI2PK := raw["GSI2PK"]
		_, hasParent := raw["ParentID"]
		assert.False(t, hasGSI2PK)
		assert.False(t, hasParent)

		got, err := discussionFromItem(item)
		require.NoError(t, err)
		assert.Equal(t, post.ID, got.ID)
		assert.Equal(t, post.CohortID, got.CohortID)
		assert.Equal(t, post.PolicyID, got.PolicyID)
		assert.Equal(t, post.AuthorID, got.AuthorID)
		assert.Empty(t, got.ParentID)
		assert.Equal(t, post.Content, got.Content)
		assert.False(t, got.IsFlagged)
		assert.Equal(t, post.ReplyCount, got.ReplyCount)
		assert.True(t, got.CreatedAt.Equal(post.CreatedAt))
	})

	t.Run("reply projects into the parent's thread", func(t *testing.T) {
		reply := *post
		reply.ID = "post-2"
		reply.ParentID = post.ID
		reply.ReplyCount = 0
		reply.IsFlagged = true

		item, raw := marshalRoundTrip(t, discussionToItem(&reply))
		require.Contains(t, raw, "GSI2PK")
		require.Contains(t, raw, "GSI2SK")

		got, err := discussionFromItem(item)
		require.NoError(t, err)
		assert.Equal(t, post.ID, got.ParentID)
		assert.True(t, got.IsFlagged)
	})
}

func TestUserCodecRoundTrip(t *testing.T) {
	user := &domain.User{
		ID:          "user-1",
		Email:       "Pat@School.EDU",
		DisplayName: "Pat",
		Role:        domain.RoleTeacher,
		CreatedAt:   codecNow,
	}

	item, _ := marshalRoundTrip(t, userToItem(user))
	got, err := userFromItem(item)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "pat@school.edu", got.Email)
	assert.Equal(t, user.DisplayName, got.DisplayName)
	assert.Equal(t, user.Role, got.Role)
	assert.True(t, got.CreatedAt.Equal(user.CreatedAt))
}

func TestStudentProfileCodecRoundTrip(t *testing.T) {
	item := studentProfileItem{
		PK:         "COHORT#cohort-1",
		SK:         "MEMBER#user-1",
		EntityType: "STUDENT_PROFILE",
		UserID:     "user-1",
		CohortID:   "cohort-1",
		JoinedAt:   codecNow.Format(time.RFC3339Nano),
	}

	raw, err := attributevalue.MarshalMap(item)
	require.NoError(t, err)
	got, err := studentProfileFromMap(raw)
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "cohort-1", got.CohortID)
	assert.True(t, got.JoinedAt.Equal(codecNow))
}

func TestReflectionCodecRoundTrip(t *testing.T) {
	reflection := &domain.Reflection{
		ID:            "reflection-1",
		StudentID:     "student-1",
		CohortID:      "cohort-1",
		TopPriorities: []string{"housing", "transit", "schools"},
		WhatChanged:   "I moved from oppose to support",
		WhatSurprised: "how many classmates agreed",
		NextSteps:     "attend a council meeting",
		CompletedAt:   codecNow,
	}

	item, _ := marshalRoundTrip(t, reflectionToItem(reflection))
	got, err := reflectionFromItem(item)
	require.NoError(t, err)
	assert.Equal(t, reflection.ID, got.ID)
	assert.Equal(t, reflection.StudentID, got.StudentID)
	assert.Equal(t, reflection.CohortID, got.CohortID)
	assert.Equal(t, reflection.TopPriorities, got.TopPriorities)
	assert.Equal(t, reflection.WhatChanged, got.WhatChanged)
	assert.Equal(t, reflection.WhatSurprised, got.WhatSurprised)
	assert.Equal(t, reflection.NextSteps, got.NextSteps)
	assert.True(t, got.CompletedAt.Equal(reflection.CompletedAt))
}

func TestCodecRejectsMangledTimestamps(t *testing.T) {
	cohort := &domain.Cohort{
		ID:           "cohort-1",
		TeacherID:    "teacher-1",
		Name:         "Period 3",
		GradeLevel:   "9-10",
		JoinCode:     "KXM42P",
		Status:       domain.CohortStatusDraft,
		CurrentPhase: domain.PhaseNotStarted,
		CreatedAt:    codecNow,
		UpdatedAt:    codecNow,
	}
	item := cohortToItem(cohort)
	item.CreatedAt = "yesterday"

	_, err := cohortFromItem(item)
	assert.Error(t, err)
}
