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
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// PositionRepository implements ports.PositionRepository. Position rows are
// append-only: revisions are new rows linked to their predecessor, the
// original is never touched.
type PositionRepository struct {
	client    *awsdynamodb.Client
	tableName string
	gsi1Name  string
	gsi2Name  string
	logger    *zap.Logger
}

// NewPositionRepository creates a new PositionRepository.
func NewPositionRepository(client *awsdynamodb.Client, tableName, gsi1Name, gsi2Name string, logger *zap.Logger) ports.PositionRepository {
	return &PositionRepository{
		client:    client,
		tableName: tableName,
		gsi1Name:  gsi1Name,
		gsi2Name:  gsi2Name,
		logger:    logger,
	}
}

// positionItem is the physical shape of a position row.
type positionItem struct {
	PK                 string `dynamodbav:"PK"`
	SK                 string `dynamodbav:"SK"`
	GSI1PK             string `dynamodbav:"GSI1PK"`
	GSI1SK             string `dynamodbav:"GSI1SK"`
	GSI2PK             string `dynamodbav:"GSI2PK"`
	GSI2SK             string `dynamodbav:"GSI2SK"`
	EntityType         string `dynamodbav:"EntityType"`
	PositionID         string `dynamodbav:"PositionID"`
	StudentID          string `dynamodbav:"StudentID"`
	CohortID           string `dynamodbav:"CohortID"`
	PolicyID           string `dynamodbav:"PolicyID"`
	Stance             string `dynamodbav:"Stance"`
	Reasoning          string `dynamodbav:"Reasoning"`
	Steelman           string `dynamodbav:"Steelman"`
	IsRevision         bool   `dynamodbav:"IsRevision"`
	OriginalPositionID string `dynamodbav:"OriginalPositionID,omitempty"`
	CreatedAt          string `dynamodbav:"CreatedAt"`
}

func positionToItem(p *domain.Position) positionItem {
	key := keys.PositionKey(p.CohortID, p.PolicyID, p.CreatedAt, p.ID)
	idx := keys.PositionIndexKey(p.ID, p.StudentID, p.CreatedAt)
	return positionItem{
		PK:                 key.PK,
		SK:                 key.SK,
		GSI1PK:             idx.GSI1PK,
		GSI1SK:             idx.GSI1SK,
		GSI2PK:             idx.GSI2PK,
		GSI2SK:             idx.GSI2SK,
		EntityType:         keys.EntityTypePosition,
		PositionID:         p.ID,
		StudentID:          p.StudentID,
		CohortID:           p.CohortID,
		PolicyID:           p.PolicyID,
		Stance:             string(p.Stance),
		Reasoning:          p.Reasoning,
		Steelman:           p.Steelman,
		IsRevision:         p.IsRevision,
		OriginalPositionID: p.OriginalPositionID,
		CreatedAt:          p.CreatedAt.Format(time.RFC3339Nano),
	}
}

func positionFromItem(item positionItem) (*domain.Position, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
	if err != nil {
		return nil, appErrors.NewDatabaseError("parse position timestamps", err)
	}
	return &domain.Position{
		ID:                 item.PositionID,
		StudentID:          item.StudentID,
		CohortID:           item.CohortID,
		PolicyID:           item.PolicyID,
		Stance:             domain.Stance(item.Stance),
		Reasoning:          item.Reasoning,
		Steelman:           item.Steelman,
		IsRevision:         item.IsRevision,
		OriginalPositionID: item.OriginalPositionID,
		CreatedAt:          createdAt,
	}, nil
}

// CreatePosition appends a position row.
func (r *PositionRepository) CreatePosition(ctx context.Context, position *domain.Position) error {
	av, err := attributevalue.MarshalMap(positionToItem(position))
	if err != nil {
		return appErrors.NewDatabaseError("marshal position", err)
	}

	_, err = r.client.PutItem(ctx, &awsdynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return translateError("create position", err)
	}

	r.logger.Debug("Position created",
		zap.String("positionID", position.ID),
		zap.String("cohortID", position.CohortID),
		zap.String("policyID", position.PolicyID),
		zap.Bool("isRevision", position.IsRevision),
	)
	return nil
}

// GetPositionByID resolves a position through GSI1.
func (r *PositionRepository) GetPositionByID(ctx context.Context, positionID string) (*domain.Position, error) {
	result, err := r.client.Query(ctx, &awsdynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(r.gsi1Name),
		KeyConditionExpression: aws.String("GSI1PK = :pk AND GSI1SK = :sk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: keys.PositionLookupPK(positionID)},
			":sk": &types.AttributeValueMemberS{Value: "METADATA"},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, translateError("query position by id", err)
	}
	if len(result.Items) == 0 {
		return nil, appErrors.NewNotFoundError("position")
	}

	var item positionItem
	if err := attributevalue.UnmarshalMap(result.Items[0], &item); err != nil {
		return nil, appErrors.NewDatabaseError("unmarshal position", err)
	}
	return positionFromItem(item)
}

// GetPositionsByPolicy lists every position (originals and revisions) for
// one policy in a cohort, oldest first; the sort key prefix makes this a
// single range query.
func (r *PositionRepository) GetPositionsByPolicy(ctx context.Context, cohortID, policyID string) ([]*domain.Position, error) {
	result, err := r.client.Query(ctx, &awsdynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: keys.CohortKey(cohortID).PK},
			":sk": &types.AttributeValueMemberS{Value: keys.PositionSKPrefix(policyID)},
		},
	})
	if err != nil {
		return nil, translateError("query positions by policy", err)
	}
	return r.collect(result.Items)
}

// GetPositionsByStudent lists one student's positions across cohorts
// through GSI2, oldest first.
func (r *PositionRepository) GetPositionsByStudent(ctx context.Context, studentID string) ([]*domain.Position, error) {
	result, err := r.client.Query(ctx, &awsdynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(r.gsi2Name),
		KeyConditionExpression: aws.String("GSI2PK = :pk AND begins_with(GSI2SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: "STUDENT#" + studentID},
			":sk": &types.AttributeValueMemberS{Value: "POSITION#"},
		},
	})
	if err != nil {
		return nil, translateError("query positions by student", err)
	}
	return r.collect(result.Items)
}

func (r *PositionRepository) collect(items []map[string]types.AttributeValue) ([]*domain.Position, error) {
	positions := make([]*domain.Position, 0, len(items))
	for _, raw := range items {
		var item positionItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			r.logger.Warn("Failed to unmarshal position item", zap.Error(err))
			continue
		}
		position, err := positionFromItem(item)
		if err != nil {
			r.logger.Warn("Failed to reconstruct position", zap.String("positionID", item.PositionID), zap.Error(err))
			continue
		}
		positions = append(positions, position)
	}
	return positions, nil
}
