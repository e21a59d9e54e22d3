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

// ReflectionRepository implements ports.ReflectionRepository. The sort key
// is keyed by student id, so one conditional put enforces the
// once-per-(student, cohort) rule.
type ReflectionRepository struct {
	client    *awsdynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewReflectionRepository creates a new ReflectionRepository.
func NewReflectionRepository(client *awsdynamodb.Client, tableName string, logger *zap.Logger) ports.ReflectionRepository {
	return &ReflectionRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// reflectionItem is the physical shape of a reflection row.
type reflectionItem struct {
	PK            string   `dynamodbav:"PK"`
	SK            string   `dynamodbav:"SK"`
	GSI1PK        string   `dynamodbav:"GSI1PK"`
	GSI1SK        string   `dynamodbav:"GSI1SK"`
	EntityType    string   `dynamodbav:"EntityType"`
	ReflectionID  string   `dynamodbav:"ReflectionID"`
	StudentID     string   `dynamodbav:"StudentID"`
	CohortID      string   `dynamodbav:"CohortID"`
	TopPriorities []string `dynamodbav:"TopPriorities"`
	WhatChanged   string   `dynamodbav:"WhatChanged"`
	WhatSurprised string   `dynamodbav:"WhatSurprised"`
	NextSteps     string   `dynamodbav:"NextSteps"`
	CompletedAt   string   `dynamodbav:"CompletedAt"`
}

func reflectionToItem(ref *domain.Reflection) reflectionItem {
	key := keys.ReflectionKey(ref.CohortID, ref.StudentID)
	idx := keys.ReflectionIndexKey(ref.ID)
	return reflectionItem{
		PK:            key.PK,
		SK:            key.SK,
		GSI1PK:        idx.GSI1PK,
		GSI1SK:        idx.GSI1SK,
		EntityType:    keys.EntityTypeReflection,
		ReflectionID:  ref.ID,
		StudentID:     ref.StudentID,
		CohortID:      ref.CohortID,
		TopPriorities: ref.TopPriorities,
		WhatChanged:   ref.WhatChanged,
		WhatSurprised: ref.WhatSurprised,
		NextSteps:     ref.NextSteps,
		CompletedAt:   ref.CompletedAt.Format(time.RFC3339Nano),
	}
}

func reflectionFromItem(item reflectionItem) (*domain.Reflection, error) {
	completedAt, err := time.Parse(time.RFC3339Nano, item.CompletedAt)
	if err != nil {
		return nil, appErrors.NewDatabaseError("parse reflection timestamps", err)
	}
	return &domain.Reflection{
		ID:            item.ReflectionID,
		StudentID:     item.StudentID,
		CohortID:      item.CohortID,
		TopPriorities: item.TopPriorities,
		WhatChanged:   item.WhatChanged,
		WhatSurprised: item.WhatSurprised,
		NextSteps:     item.NextSteps,
		CompletedAt:   completedAt,
	}, nil
}

// CreateReflection writes the reflection conditionally; a second submission
// from the same student in the same cohort is a Conflict.
func (r *ReflectionRepository) CreateReflection(ctx context.Context, reflection *domain.Reflection) error {
	av, err := attributevalue.MarshalMap(reflectionToItem(reflection))
	if err != nil {
		return appErrors.NewDatabaseError("marshal reflection", err)
	}

	_, err = r.client.PutItem(ctx, &awsdynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		translated := translateError("create reflection", err)
		if isConditionalFailure(translated) {
			return appErrors.NewConflictError("reflection already submitted for this cohort").WithCause(err)
		}
		return translated
	}

	r.logger.Debug("Reflection created",
		zap.String("reflectionID", reflection.ID),
		zap.String("cohortID", reflection.CohortID),
		zap.String("studentID", reflection.StudentID),
	)
	return nil
}

// GetReflection retrieves one student's reflection by primary key.
func (r *ReflectionRepository) GetReflection(ctx context.Context, cohortID, studentID string) (*domain.Reflection, error) {
	key := keys.ReflectionKey(cohortID, studentID)
	result, err := r.client.GetItem(ctx, &awsdynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: key.PK},
			"SK": &types.AttributeValueMemberS{Value: key.SK},
		},
	})
	if err != nil {
		return nil, translateError("get reflection", err)
	}
	if result.Item == nil {
		return nil, appErrors.NewNotFoundError("reflection")
	}

	var item reflectionItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, appErrors.NewDatabaseError("unmarshal reflection", err)
	}
	return reflectionFromItem(item)
}

// GetReflectionsByCohort lists all reflections under a cohort.
func (r *ReflectionRepository) GetReflectionsByCohort(ctx context.Context, cohortID string) ([]*domain.Reflection, error) {
	result, err := r.client.Query(ctx, &awsdynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: keys.CohortKey(cohortID).PK},
			":sk": &types.AttributeValueMemberS{Value: keys.ReflectionSKPrefix},
		},
	})
	if err != nil {
		return nil, translateError("query reflections", err)
	}

	reflections := make([]*domain.Reflection, 0, len(result.Items))
	for _, raw := range result.Items {
		var item reflectionItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			r.logger.Warn("Failed to unmarshal reflection item", zap.Error(err))
			continue
		}
		reflection, err := reflectionFromItem(item)
		if err != nil {
			r.logger.Warn("Failed to reconstruct reflection", zap.String("reflectionID", item.ReflectionID), zap.Error(err))
			continue
		}
		reflections = append(reflections, reflection)
	}
	return reflections, nil
}
