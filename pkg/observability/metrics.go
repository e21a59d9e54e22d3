// Package observability records operational metrics in CloudWatch.
package observability

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

// Metrics implements ports.MetricsRecorder on CloudWatch. A nil client
// disables recording, which is what local development and tests use.
type Metrics struct {
	namespace   string
	environment string
	client      *cloudwatch.Client
	logger      *zap.Logger
}

// NewMetrics creates a new metrics recorder.
func NewMetrics(namespace, environment string, client *cloudwatch.Client, logger *zap.Logger) *Metrics {
	return &Metrics{
		namespace:   namespace,
		environment: environment,
		client:      client,
		logger:      logger,
	}
}

// Count emits a count metric. Best effort: a PutMetricData failure is
// logged and swallowed.
func (m *Metrics) Count(ctx context.Context, name string, value float64) {
	if m.client == nil {
		return
	}

	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []types.MetricDatum{
			{
				MetricName: aws.String(name),
				Dimensions: []types.Dimension{
					{
						Name:  aws.String("Environment"),
						Value: aws.String(m.environment),
					},
				},
				Value:     aws.Float64(value),
				Unit:      types.StandardUnitCount,
				Timestamp: aws.Time(time.Now()),
			},
		},
	})
	if err != nil {
		m.logger.Warn("Failed to put metric data",
			zap.String("metric", name),
			zap.Error(err),
		)
	}
}
