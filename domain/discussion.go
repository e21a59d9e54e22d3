package domain

import (
	"time"

	appErrors "civica-backend/pkg/errors"

	"github.com/google/uuid"
)

// DiscussionPost is a top-level post or a threaded reply. ReplyCount on a
// parent is a denormalized aggregate maintained by atomic counter updates.
type DiscussionPost struct {
	ID         string
	CohortID   string
	PolicyID   string
	AuthorID   string
	ParentID   string
	Content    string
	IsFlagged  bool
	ReplyCount int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewDiscussionPost creates a post. A non-empty parentID makes it a reply;
// the caller is responsible for incrementing the parent's reply count.
func NewDiscussionPost(cohortID, policyID, authorID, content, parentID string) (*DiscussionPost, error) {
	if cohortID == "" || policyID == "" || authorID == "" {
		return nil, appErrors.NewValidationError("cohortID, policyID and authorID are required")
	}
	if content == "" {
		return nil, appErrors.NewValidationError("content cannot be empty")
	}
	now := time.Now().UTC()
	return &DiscussionPost{
		ID:        uuid.New().String(),
		CohortID:  cohortID,
		PolicyID:  policyID,
		AuthorID:  authorID,
		ParentID:  parentID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsReply reports whether the post is threaded under a parent.
func (p *DiscussionPost) IsReply() bool {
	return p.ParentID != ""
}
