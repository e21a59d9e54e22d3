// Package di hand-wires the dependency graph: AWS clients, repositories,
// services, and the shared logger.
package di

import (
	"context"

	"civica-backend/application/ports"
	"civica-backend/infrastructure/config"
	"civica-backend/infrastructure/messaging/eventbridge"
	"civica-backend/infrastructure/persistence/dynamodb"
	"civica-backend/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
)

// ProvideLogger creates the shared logger.
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideAWSConfig loads the AWS SDK configuration.
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client.
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client.
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client, or nil when
// metrics are disabled.
func ProvideCloudWatchClient(awsCfg aws.Config, cfg *config.Config) *awscloudwatch.Client {
	if !cfg.EnableMetrics {
		return nil
	}
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideCounters creates the shared atomic counter helper.
func ProvideCounters(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) *dynamodb.Counters {
	return dynamodb.NewCounters(client, cfg.DynamoDBTable, logger)
}

// ProvideUserRepository creates the user repository.
func ProvideUserRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.UserRepository {
	return dynamodb.NewUserRepository(client, cfg.DynamoDBTable, cfg.GSI1IndexName, logger)
}

// ProvideCohortRepository creates the cohort repository.
func ProvideCohortRepository(client *awsdynamodb.Client, counters *dynamodb.Counters, cfg *config.Config, logger *zap.Logger) ports.CohortRepository {
	return dynamodb.NewCohortRepository(client, cfg.DynamoDBTable, cfg.GSI1IndexName, cfg.GSI2IndexName, counters, logger)
}

// ProvidePositionRepository creates the position repository.
func ProvidePositionRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.PositionRepository {
	return dynamodb.NewPositionRepository(client, cfg.DynamoDBTable, cfg.GSI1IndexName, cfg.GSI2IndexName, logger)
}

// ProvideDiscussionRepository creates the discussion repository.
func ProvideDiscussionRepository(client *awsdynamodb.Client, counters *dynamodb.Counters, cfg *config.Config, logger *zap.Logger) ports.DiscussionRepository {
	return dynamodb.NewDiscussionRepository(client, cfg.DynamoDBTable, cfg.GSI1IndexName, cfg.GSI2IndexName, counters, logger)
}

// ProvideReflectionRepository creates the reflection repository.
func ProvideReflectionRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.ReflectionRepository {
	return dynamodb.NewReflectionRepository(client, cfg.DynamoDBTable, logger)
}

// ProvideEventPublisher creates the event publisher.
func ProvideEventPublisher(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventPublisher {
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// ProvideMetrics creates the metrics recorder.
func ProvideMetrics(client *awscloudwatch.Client, cfg *config.Config, logger *zap.Logger) ports.MetricsRecorder {
	return observability.NewMetrics("Civica/Backend", cfg.Environment, client, logger)
}
