package dynamodb

import (
	"context"

	"civica-backend/infrastructure/persistence/keys"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// Counters applies atomic deltas to denormalized aggregate fields
// (StudentCount on a cohort, ReplyCount on a discussion post). The delta is
// applied server-side with an ADD expression; there is never a prior read,
// so concurrent writers cannot lose an increment.
type Counters struct {
	client    *awsdynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewCounters creates a counter maintainer bound to the table.
func NewCounters(client *awsdynamodb.Client, tableName string, logger *zap.Logger) *Counters {
	return &Counters{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// Add applies field += delta at the row addressed by key.
func (c *Counters) Add(ctx context.Context, key keys.Key, field string, delta int) error {
	update := expression.Add(expression.Name(field), expression.Value(delta))
	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return translateError("counter add", err)
	}

	_, err = c.client.UpdateItem(ctx, &awsdynamodb.UpdateItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: key.PK},
			"SK": &types.AttributeValueMemberS{Value: key.SK},
		},
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		// The row must already exist; a counter update never creates one.
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		c.logger.Warn("Counter update failed",
			zap.String("pk", key.PK),
			zap.String("sk", key.SK),
			zap.String("field", field),
			zap.Int("delta", delta),
			zap.Error(err),
		)
		return translateError("counter add", err)
	}
	return nil
}
