package services

import (
	"context"

	"civica-backend/application/ports"
	"civica-backend/domain"
	appErrors "civica-backend/pkg/errors"

	"go.uber.org/zap"
)

// DiscussionService handles threaded discussion posts and teacher
// moderation.
type DiscussionService struct {
	posts   ports.DiscussionRepository
	cohorts ports.CohortRepository
	metrics ports.MetricsRecorder
	logger  *zap.Logger
}

// NewDiscussionService creates a new discussion service.
func NewDiscussionService(
	posts ports.DiscussionRepository,
	cohorts ports.CohortRepository,
	metrics ports.MetricsRecorder,
	logger *zap.Logger,
) *DiscussionService {
	return &DiscussionService{
		posts:   posts,
		cohorts: cohorts,
		metrics: metrics,
		logger:  logger,
	}
}

// CreatePost writes a top-level post or a reply. For a reply the parent
// must exist and sit in the same cohort and policy; its reply count is
// incremented after the reply is durable, so a failed increment leaves a
// visible reply and a low count rather than a lost reply.
func (s *DiscussionService) CreatePost(ctx context.Context, cohortID, policyID, authorID, content, parentID string) (*domain.DiscussionPost, error) {
	var parent *domain.DiscussionPost
	if parentID != "" {
		var err error
		parent, err = s.posts.GetPostByID(ctx, parentID)
		if err != nil {
			return nil, err
		}
		if parent.CohortID != cohortID || parent.PolicyID != policyID {
			return nil, appErrors.NewValidationError("parent post belongs to a different discussion")
		}
		if parent.IsReply() {
			return nil, appErrors.NewValidationError("replies cannot be nested")
		}
	}

	post, err := domain.NewDiscussionPost(cohortID, policyID, authorID, content, parentID)
	if err != nil {
		return nil, err
	}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		return nil, err
	}

	if parent != nil {
		if err := s.posts.IncrementReplyCount(ctx, parent, 1); err != nil {
			s.logger.Warn("Failed to increment reply count",
				zap.String("parentID", parent.ID),
				zap.Error(err),
			)
		}
	}

	s.metrics.Count(ctx, "DiscussionPostCreated", 1)
	return post, nil
}

// GetThread returns the posts for one policy in creation order, replies
// included.
func (s *DiscussionService) GetThread(ctx context.Context, cohortID, policyID string) ([]*domain.DiscussionPost, error) {
	return s.posts.GetPostsByPolicy(ctx, cohortID, policyID)
}

// GetReplies returns the replies under one parent, oldest first.
func (s *DiscussionService) GetReplies(ctx context.Context, parentID string) ([]*domain.DiscussionPost, error) {
	return s.posts.GetReplies(ctx, parentID)
}

// FlagPost marks a post for moderation review. Only the owning teacher
// may flag.
func (s *DiscussionService) FlagPost(ctx context.Context, postID, teacherID string) error {
	post, err := s.authorizeModeration(ctx, postID, teacherID)
	if err != nil {
		return err
	}
	if err := s.posts.SetFlagged(ctx, post, true); err != nil {
		return err
	}
	s.metrics.Count(ctx, "PostFlagged", 1)
	return nil
}

// DeletePost removes a flagged post. Only flagged posts can be deleted;
// deleting a reply decrements the parent's reply count afterwards, with
// the same drift tolerance as creation.
func (s *DiscussionService) DeletePost(ctx context.Context, postID, teacherID string) error {
	post, err := s.authorizeModeration(ctx, postID, teacherID)
	if err != nil {
		return err
	}
	if !post.IsFlagged {
		return appErrors.NewConflictError("only flagged posts can be deleted")
	}
	if err := s.posts.DeletePost(ctx, post); err != nil {
		return err
	}

	if post.IsReply() {
		parent, err := s.posts.GetPostByID(ctx, post.ParentID)
		if err == nil {
			err = s.posts.IncrementReplyCount(ctx, parent, -1)
		}
		if err != nil {
			s.logger.Warn("Failed to decrement reply count",
				zap.String("parentID", post.ParentID),
				zap.Error(err),
			)
		}
	}
	return nil
}

// authorizeModeration loads the post and verifies the caller owns the
// cohort it lives in.
func (s *DiscussionService) authorizeModeration(ctx context.Context, postID, teacherID string) (*domain.DiscussionPost, error) {
	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	cohort, err := s.cohorts.GetCohortByID(ctx, post.CohortID)
	if err != nil {
		return nil, err
	}
	if !cohort.OwnedBy(teacherID) {
		return nil, appErrors.NewForbiddenError("cohort belongs to another teacher")
	}
	return post, nil
}
