package di

import (
	"context"
	"fmt"

	"civica-backend/application/ports"
	"civica-backend/application/services"
	"civica-backend/infrastructure/config"
	"civica-backend/pkg/auth"

	"go.uber.org/zap"
)

// Container holds the fully wired application.
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	Users       ports.UserRepository
	Cohorts     ports.CohortRepository
	Positions   ports.PositionRepository
	Discussions ports.DiscussionRepository
	Reflections ports.ReflectionRepository

	UserService       *services.UserService
	CohortService     *services.CohortService
	EnrollmentService *services.EnrollmentService
	PositionService   *services.PositionService
	DiscussionService *services.DiscussionService
	ReflectionService *services.ReflectionService

	JWTValidator *auth.JWTValidator
}

// InitializeContainer builds the dependency graph from configuration.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	awsCfg, err := ProvideAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	dynamoClient := ProvideDynamoDBClient(awsCfg)
	eventClient := ProvideEventBridgeClient(awsCfg)
	cloudwatchClient := ProvideCloudWatchClient(awsCfg, cfg)

	counters := ProvideCounters(dynamoClient, cfg, logger)
	users := ProvideUserRepository(dynamoClient, cfg, logger)
	cohorts := ProvideCohortRepository(dynamoClient, counters, cfg, logger)
	positions := ProvidePositionRepository(dynamoClient, cfg, logger)
	discussions := ProvideDiscussionRepository(dynamoClient, counters, cfg, logger)
	reflections := ProvideReflectionRepository(dynamoClient, cfg, logger)

	events := ProvideEventPublisher(eventClient, cfg, logger)
	metrics := ProvideMetrics(cloudwatchClient, cfg, logger)

	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" && cfg.IsDevelopment() {
		jwtSecret = "development-secret-change-in-production"
	}
	validator, err := auth.NewJWTValidator(jwtSecret, cfg.JWTIssuer)
	if err != nil {
		return nil, fmt.Errorf("initialize JWT validator: %w", err)
	}

	return &Container{
		Config: cfg,
		Logger: logger,

		Users:       users,
		Cohorts:     cohorts,
		Positions:   positions,
		Discussions: discussions,
		Reflections: reflections,

		UserService:       services.NewUserService(users, logger),
		CohortService:     services.NewCohortService(cohorts, events, metrics, logger),
		EnrollmentService: services.NewEnrollmentService(cohorts, events, metrics, logger),
		PositionService:   services.NewPositionService(positions, cohorts, metrics, logger),
		DiscussionService: services.NewDiscussionService(discussions, cohorts, metrics, logger),
		ReflectionService: services.NewReflectionService(reflections, cohorts, metrics, logger),

		JWTValidator: validator,
	}, nil
}
