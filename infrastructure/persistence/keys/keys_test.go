package keys

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJoinCodeKeysNormalizeCase(t *testing.T) {
	// The same normalization on write and lookup is what makes the
	// uniqueness guard and the resolver agree.
	assert.Equal(t, JoinCodeGuardKey("abc234").PK, JoinCodeGuardKey("ABC234").PK)
	assert.Equal(t, "JOINCODE#ABC234", JoinCodeLookupPK("abc234"))

	idx := CohortIndexKey("xyz789", "teacher-1", time.Now())
	assert.Equal(t, "JOINCODE#XYZ789", idx.GSI1PK)
}

func TestEmailKeysNormalizeCase(t *testing.T) {
	assert.Equal(t, EmailGuardKey("Pat@School.EDU").PK, EmailGuardKey("pat@school.edu").PK)
	assert.Equal(t, "EMAIL#pat@school.edu", UserIndexKey("Pat@School.EDU").GSI1PK)
}

func TestSortKeysOrderChronologically(t *testing.T) {
	early := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)

	first := PositionKey("cohort-1", "policy-1", early, "p1")
	second := PositionKey("cohort-1", "policy-1", late, "p2")
	assert.Equal(t, first.PK, second.PK)
	assert.Less(t, first.SK, second.SK)
	assert.True(t, strings.HasPrefix(first.SK, PositionSKPrefix("policy-1")))

	firstPost := DiscussionPostKey("cohort-1", "policy-1", early, "d1")
	secondPost := DiscussionPostKey("cohort-1", "policy-1", late, "d2")
	assert.Less(t, firstPost.SK, secondPost.SK)
	assert.True(t, strings.HasPrefix(firstPost.SK, DiscussionSKPrefix("policy-1")))
}

func TestPolicyPrefixesDoNotOverlap(t *testing.T) {
	// Positions and discussion posts share a partition; their sort key
	// prefixes must keep the range queries disjoint.
	pos := PositionKey("cohort-1", "policy-1", time.Now(), "p1")
	assert.False(t, strings.HasPrefix(pos.SK, DiscussionSKPrefix("policy-1")))

	post := DiscussionPostKey("cohort-1", "policy-1", time.Now(), "d1")
	assert.False(t, strings.HasPrefix(post.SK, PositionSKPrefix("policy-1")))
}

func TestDiscussionPostIndexKey(t *testing.T) {
	t.Run("top-level post has no thread projection", func(t *testing.T) {
		idx := DiscussionPostIndexKey("post-1", "", time.Now())
		assert.Equal(t, "POST#post-1", idx.GSI1PK)
		assert.Empty(t, idx.GSI2PK)
		assert.Empty(t, idx.GSI2SK)
	})

	t.Run("reply is projected under its parent", func(t *testing.T) {
		idx := DiscussionPostIndexKey("post-2", "post-1", time.Now())
		assert.Equal(t, "THREAD#post-1", idx.GSI2PK)
		assert.True(t, strings.HasPrefix(idx.GSI2SK, "REPLY#"))
	})
}

func TestMembershipAndReflectionKeys(t *testing.T) {
	member := StudentProfileKey("cohort-1", "student-1")
	assert.Equal(t, "COHORT#cohort-1", member.PK)
	assert.Equal(t, "STUDENT#student-1", member.SK)
	assert.True(t, strings.HasPrefix(member.SK, StudentProfileSKPrefix))

	ref := ReflectionKey("cohort-1", "student-1")
	assert.Equal(t, member.PK, ref.PK)
	assert.Equal(t, "REFLECTION#student-1", ref.SK)
	assert.True(t, strings.HasPrefix(ref.SK, ReflectionSKPrefix))
}
