package dynamodb

import (
	"context"
	"time"

	"civica-backend/application/ports"
	"civica-backend/domain"
	"civica-backend/infrastructure/persistence/keys"
	appErrors "civica-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// DiscussionRepository implements ports.DiscussionRepository. ReplyCount on
// a parent is maintained with atomic counter updates, never read-modify-
// write.
type DiscussionRepository struct {
	client    *awsdynamodb.Client
	tableName string
	gsi1Name  string
	gsi2Name  string
	counters  *Counters
	logger    *zap.Logger
}

// NewDiscussionRepository creates a new DiscussionRepository.
func NewDiscussionRepository(client *awsdynamodb.Client, tableName, gsi1Name, gsi2Name string, counters *Counters, logger *zap.Logger) ports.DiscussionRepository {
	return &DiscussionRepository{
		client:    client,
		tableName: tableName,
		gsi1Name:  gsi1Name,
		gsi2Name:  gsi2Name,
		counters:  counters,
		logger:    logger,
	}
}

// discussionItem is the physical shape of a discussion post row.
type discussionItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	GSI1PK     string `dynamodbav:"GSI1PK"`
	GSI1SK     string `dynamodbav:"GSI1SK"`
	GSI2PK     string `dynamodbav:"GSI2PK,omitempty"`
	GSI2SK     string `dynamodbav:"GSI2SK,omitempty"`
	EntityType string `dynamodbav:"EntityType"`
	PostID     string `dynamodbav:"PostID"`
	CohortID   string `dynamodbav:"CohortID"`
	PolicyID   string `dynamodbav:"PolicyID"`
	AuthorID   string `dynamodbav:"AuthorID"`
	ParentID   string `dynamodbav:"ParentID,omitempty"`
	Content    string `dynamodbav:"Content"`
	IsFlagged  bool   `dynamodbav:"IsFlagged"`
	ReplyCount int    `dynamodbav:"ReplyCount"`
	CreatedAt  string `dynamodbav:"CreatedAt"`
	UpdatedAt  string `dynamodbav:"UpdatedAt"`
}

func discussionToItem(p *domain.DiscussionPost) discussionItem {
	key := keys.DiscussionPostKey(p.CohortID, p.PolicyID, p.CreatedAt, p.ID)
	idx := keys.DiscussionPostIndexKey(p.ID, p.ParentID, p.CreatedAt)
	return discussionItem{
		PK:         key.PK,
		SK:         key.SK,
		GSI1PK:     idx.GSI1PK,
		GSI1SK:     idx.GSI1SK,
		GSI2PK:     idx.GSI2PK,
		GSI2SK:     idx.GSI2SK,
		EntityType: keys.EntityTypeDiscussionPost,
		PostID:     p.ID,
		CohortID:   p.CohortID,
		PolicyID:   p.PolicyID,
		AuthorID:   p.AuthorID,
		ParentID:   p.ParentID,
		Content:    p.Content,
		IsFlagged:  p.IsFlagged,
		ReplyCount: p.ReplyCount,
		CreatedAt:  p.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:  p.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func discussionFromItem(item discussionItem) (*domain.DiscussionPost, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
	if err != nil {
		return nil, appErrors.NewDatabaseError("parse post timestamps", err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, item.UpdatedAt)
	if err != nil {
		return nil, appErrors.NewDatabaseError("parse post timestamps", err)
	}
	return &domain.DiscussionPost{
		ID:         item.PostID,
		CohortID:   item.CohortID,
		PolicyID:   item.PolicyID,
		AuthorID:   item.AuthorID,
		ParentID:   item.ParentID,
		Content:    item.Content,
		IsFlagged:  item.IsFlagged,
		ReplyCount: item.ReplyCount,
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
	}, nil
}

// CreatePost appends a post row. Incrementing the parent's reply count is
// the caller's follow-up step, so a failed increment never rolls back a
// visible post.
func (r *DiscussionRepository) CreatePost(ctx context.Context, post *domain.DiscussionPost) error {
	av, err := attributevalue.MarshalMap(discussionToItem(post))
	if err != nil {
		return appErrors.NewDatabaseError("marshal post", err)
	}

	_, err = r.client.PutItem(ctx, &awsdynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return translateError("create post", err)
	}

	r.logger.Debug("Discussion post created",
		zap.String("postID", post.ID),
		zap.String("cohortID", post.CohortID),
		zap.Bool("isReply", post.IsReply()),
	)
	return nil
}

// GetPostByID resolves a post through GSI1.
func (r *DiscussionRepository) GetPostByID(ctx context.Context, postID string) (*domain.DiscussionPost, error) {
	result, err := r.client.Query(ctx, &awsdynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(r.gsi1Name),
		KeyConditionExpression: aws.String("GSI1PK = :pk AND GSI1SK = :sk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: keys.PostLookupPK(postID)},
			":sk": &types.AttributeValueMemberS{Value: "METADATA"},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, translateError("query post by id", err)
	}
	if len(result.Items) == 0 {
		return nil, appErrors.NewNotFoundError("post")
	}

	var item discussionItem
	if err := attributevalue.UnmarshalMap(result.Items[0], &item); err != nil {
		return nil, appErrors.NewDatabaseError("unmarshal post", err)
	}
	return discussionFromItem(item)
}

// GetPostsByPolicy lists all posts for one policy in a cohort in creation
// order, replies included; a single begins-with range query on the sort
// key.
func (r *DiscussionRepository) GetPostsByPolicy(ctx context.Context, cohortID, policyID string) ([]*domain.DiscussionPost, error) {
	result, err := r.client.Query(ctx, &awsdynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: keys.CohortKey(cohortID).PK},
			":sk": &types.AttributeValueMemberS{Value: keys.DiscussionSKPrefix(policyID)},
		},
	})
	if err != nil {
		return nil, translateError("query posts by policy", err)
	}
	return r.collect(result.Items)
}

// GetReplies lists the replies threaded under a parent, oldest first,
// through GSI2.
func (r *DiscussionRepository) GetReplies(ctx context.Context, parentID string) ([]*domain.DiscussionPost, error) {
	result, err := r.client.Query(ctx, &awsdynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(r.gsi2Name),
		KeyConditionExpression: aws.String("GSI2PK = :pk AND begins_with(GSI2SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: keys.ThreadPK(parentID)},
			":sk": &types.AttributeValueMemberS{Value: "REPLY#"},
		},
	})
	if err != nil {
		return nil, translateError("query replies", err)
	}
	return r.collect(result.Items)
}

// IncrementReplyCount applies an atomic delta to a parent's counter.
func (r *DiscussionRepository) IncrementReplyCount(ctx context.Context, post *domain.DiscussionPost, delta int) error {
	key := keys.DiscussionPostKey(post.CohortID, post.PolicyID, post.CreatedAt, post.ID)
	return r.counters.Add(ctx, key, "ReplyCount", delta)
}

// SetFlagged marks or unmarks a post for moderation.
func (r *DiscussionRepository) SetFlagged(ctx context.Context, post *domain.DiscussionPost, flagged bool) error {
	update := expression.Set(expression.Name("IsFlagged"), expression.Value(flagged)).
		Set(expression.Name("UpdatedAt"), expression.Value(time.Now().UTC().Format(time.RFC3339Nano)))
	expr, err := expression.NewBuilder().
		WithUpdate(update).
		WithCondition(expression.AttributeExists(expression.Name("PK"))).
		Build()
	if err != nil {
		return appErrors.NewDatabaseError("build flag update", err)
	}

	key := keys.DiscussionPostKey(post.CohortID, post.PolicyID, post.CreatedAt, post.ID)
	_, err = r.client.UpdateItem(ctx, &awsdynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: key.PK},
			"SK": &types.AttributeValueMemberS{Value: key.SK},
		},
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		translated := translateError("set flagged", err)
		if isConditionalFailure(translated) {
			return appErrors.NewNotFoundError("post")
		}
		return translated
	}
	return nil
}

// DeletePost removes a post row. Moderation is the only flow that deletes;
// the caller decrements the parent's reply count afterwards.
func (r *DiscussionRepository) DeletePost(ctx context.Context, post *domain.DiscussionPost) error {
	key := keys.DiscussionPostKey(post.CohortID, post.PolicyID, post.CreatedAt, post.ID)
	_, err := r.client.DeleteItem(ctx, &awsdynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: key.PK},
			"SK": &types.AttributeValueMemberS{Value: key.SK},
		},
	})
	if err != nil {
		return translateError("delete post", err)
	}

	r.logger.Info("Discussion post deleted",
		zap.String("postID", post.ID),
		zap.String("cohortID", post.CohortID),
	)
	return nil
}

func (r *DiscussionRepository) collect(items []map[string]types.AttributeValue) ([]*domain.DiscussionPost, error) {
	posts := make([]*domain.DiscussionPost, 0, len(items))
	for _, raw := range items {
		var item discussionItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			r.logger.Warn("Failed to unmarshal post item", zap.Error(err))
			continue
		}
		post, err := discussionFromItem(item)
		if err != nil {
			r.logger.Warn("Failed to reconstruct post", zap.String("postID", item.PostID), zap.Error(err))
			continue
		}
		posts = append(posts, post)
	}
	return posts, nil
}
