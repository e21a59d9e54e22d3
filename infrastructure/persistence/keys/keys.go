// Package keys maps logical entity identities to physical storage
// locations. All rows live in one table addressed by (PK, SK), with two
// global secondary indexes for the non-primary access patterns. Every key
// is derived from immutable ids only, so renames never relocate a row.
package keys

import (
	"fmt"
	"strings"
	"time"
)

// Entity type discriminator values stored on every item.
const (
	EntityTypeUser           = "USER"
	EntityTypeTeacherProfile = "TEACHER_PROFILE"
	EntityTypeStudentProfile = "STUDENT_PROFILE"
	EntityTypeCohort         = "COHORT"
	EntityTypePosition       = "POSITION"
	EntityTypeDiscussionPost = "DISCUSSION_POST"
	EntityTypeReflection     = "REFLECTION"
	EntityTypeGuard          = "GUARD"
)

// Key is the two-part physical address of a row.
type Key struct {
	PK string
	SK string
}

// IndexKey is a secondary-index projection of a row. Empty fields mean the
// row is not projected into that index.
type IndexKey struct {
	GSI1PK string
	GSI1SK string
	GSI2PK string
	GSI2SK string
}

// sortableTime renders a timestamp so lexicographic order equals
// chronological order within a sort key.
func sortableTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// User: direct lookup by id, alternate lookup by email through GSI1.

func UserKey(userID string) Key {
	return Key{PK: "USER#" + userID, SK: "PROFILE"}
}

func UserIndexKey(email string) IndexKey {
	return IndexKey{GSI1PK: "EMAIL#" + strings.ToLower(email), GSI1SK: "PROFILE"}
}

func TeacherProfileKey(userID string) Key {
	return Key{PK: "USER#" + userID, SK: "PROFILE#TEACHER"}
}

// EmailGuardKey addresses the uniqueness guard row written in the same
// transaction as a new user.
func EmailGuardKey(email string) Key {
	return Key{PK: "EMAIL#" + strings.ToLower(email), SK: "GUARD"}
}

// Cohort: metadata row under its own partition; GSI1 resolves a join code,
// GSI2 lists a teacher's cohorts newest-first by creation time.

func CohortKey(cohortID string) Key {
	return Key{PK: "COHORT#" + cohortID, SK: "METADATA"}
}

func CohortIndexKey(joinCode, teacherID string, createdAt time.Time) IndexKey {
	return IndexKey{
		GSI1PK: "JOINCODE#" + strings.ToUpper(joinCode),
		GSI1SK: "METADATA",
		GSI2PK: "TEACHER#" + teacherID,
		GSI2SK: "COHORT#" + sortableTime(createdAt),
	}
}

// JoinCodeGuardKey addresses the uniqueness guard row for a join code. The
// code is upper-cased here and in CohortIndexKey; using the same
// normalization on write and lookup is what makes the uniqueness check
// actually match.
func JoinCodeGuardKey(joinCode string) Key {
	return Key{PK: "JOINCODE#" + strings.ToUpper(joinCode), SK: "GUARD"}
}

// JoinCodeLookupPK is the GSI1 partition key used to resolve a code.
func JoinCodeLookupPK(joinCode string) string {
	return "JOINCODE#" + strings.ToUpper(joinCode)
}

// TeacherCohortsPK is the GSI2 partition key listing a teacher's cohorts.
func TeacherCohortsPK(teacherID string) string {
	return "TEACHER#" + teacherID
}

// StudentProfile: stored under the cohort partition so membership rows can
// be range-queried per cohort; GSI1 lists one student's cohorts.

func StudentProfileKey(cohortID, userID string) Key {
	return Key{PK: "COHORT#" + cohortID, SK: "STUDENT#" + userID}
}

func StudentProfileIndexKey(userID string, joinedAt time.Time) IndexKey {
	return IndexKey{
		GSI1PK: "USER#" + userID,
		GSI1SK: "COHORT#" + sortableTime(joinedAt),
	}
}

// StudentProfileSKPrefix matches all membership rows under a cohort.
const StudentProfileSKPrefix = "STUDENT#"

// Position: stored under the cohort partition with a sort key composed for
// prefix-range queries per policy; GSI1 resolves a position by id, GSI2
// lists one student's positions chronologically.

func PositionKey(cohortID, policyID string, createdAt time.Time, positionID string) Key {
	return Key{
		PK: "COHORT#" + cohortID,
		SK: fmt.Sprintf("POLICY#%s#POSITION#%s#%s", policyID, sortableTime(createdAt), positionID),
	}
}

func PositionIndexKey(positionID, studentID string, createdAt time.Time) IndexKey {
	return IndexKey{
		GSI1PK: "POSITION#" + positionID,
		GSI1SK: "METADATA",
		GSI2PK: "STUDENT#" + studentID,
		GSI2SK: "POSITION#" + sortableTime(createdAt),
	}
}

// PositionSKPrefix matches all positions for one policy in a cohort.
func PositionSKPrefix(policyID string) string {
	return fmt.Sprintf("POLICY#%s#POSITION#", policyID)
}

// PositionLookupPK is the GSI1 partition key for lookup by position id.
func PositionLookupPK(positionID string) string {
	return "POSITION#" + positionID
}

// DiscussionPost: same composition as positions so "all posts under policy
// X in cohort Y, ordered by creation time" is a begins-with range query.
// Replies are additionally projected into GSI2 under their parent.

func DiscussionPostKey(cohortID, policyID string, createdAt time.Time, postID string) Key {
	return Key{
		PK: "COHORT#" + cohortID,
		SK: fmt.Sprintf("POLICY#%s#DISCUSSION#%s#%s", policyID, sortableTime(createdAt), postID),
	}
}

func DiscussionPostIndexKey(postID, parentID string, createdAt time.Time) IndexKey {
	ik := IndexKey{
		GSI1PK: "POST#" + postID,
		GSI1SK: "METADATA",
	}
	if parentID != "" {
		ik.GSI2PK = "THREAD#" + parentID
		ik.GSI2SK = "REPLY#" + sortableTime(createdAt)
	}
	return ik
}

// DiscussionSKPrefix matches all discussion posts for one policy in a
// cohort.
func DiscussionSKPrefix(policyID string) string {
	return fmt.Sprintf("POLICY#%s#DISCUSSION#", policyID)
}

// PostLookupPK is the GSI1 partition key for lookup by post id.
func PostLookupPK(postID string) string {
	return "POST#" + postID
}

// ThreadPK is the GSI2 partition key listing replies under a parent post.
func ThreadPK(parentID string) string {
	return "THREAD#" + parentID
}

// Reflection: one row per (student, cohort) under the cohort partition;
// GSI1 resolves a reflection by id.

func ReflectionKey(cohortID, studentID string) Key {
	return Key{PK: "COHORT#" + cohortID, SK: "REFLECTION#" + studentID}
}

func ReflectionIndexKey(reflectionID string) IndexKey {
	return IndexKey{GSI1PK: "REFLECTION#" + reflectionID, GSI1SK: "METADATA"}
}

// ReflectionSKPrefix matches all reflections under a cohort.
const ReflectionSKPrefix = "REFLECTION#"
