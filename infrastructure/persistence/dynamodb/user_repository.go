package dynamodb

import (
	"context"
	"strings"
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

// UserRepository implements ports.UserRepository against the single table.
type UserRepository struct {
	client    *awsdynamodb.Client
	tableName string
	gsi1Name  string
	logger    *zap.Logger
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(client *awsdynamodb.Client, tableName, gsi1Name string, logger *zap.Logger) ports.UserRepository {
	return &UserRepository{
		client:    client,
		tableName: tableName,
		gsi1Name:  gsi1Name,
		logger:    logger,
	}
}

// userItem is the physical shape of a user row.
type userItem struct {
	PK          string `dynamodbav:"PK"`
	SK          string `dynamodbav:"SK"`
	GSI1PK      string `dynamodbav:"GSI1PK"`
	GSI1SK      string `dynamodbav:"GSI1SK"`
	EntityType  string `dynamodbav:"EntityType"`
	UserID      string `dynamodbav:"UserID"`
	Email       string `dynamodbav:"Email"`
	DisplayName string `dynamodbav:"DisplayName"`
	Role        string `dynamodbav:"Role"`
	CreatedAt   string `dynamodbav:"CreatedAt"`
}

// teacherProfileItem is the physical shape of a teacher profile row.
type teacherProfileItem struct {
	PK          string   `dynamodbav:"PK"`
	SK          string   `dynamodbav:"SK"`
	EntityType  string   `dynamodbav:"EntityType"`
	UserID      string   `dynamodbav:"UserID"`
	SchoolName  string   `dynamodbav:"SchoolName"`
	State       string   `dynamodbav:"State"`
	GradeLevels []string `dynamodbav:"GradeLevels"`
}

func userToItem(user *domain.User) userItem {
	key := keys.UserKey(user.ID)
	idx := keys.UserIndexKey(user.Email)
	return userItem{
		PK:          key.PK,
		SK:          key.SK,
		GSI1PK:      idx.GSI1PK,
		GSI1SK:      idx.GSI1SK,
		EntityType:  keys.EntityTypeUser,
		UserID:      user.ID,
		Email:       strings.ToLower(user.Email),
		DisplayName: user.DisplayName,
		Role:        string(user.Role),
		CreatedAt:   user.CreatedAt.Format(time.RFC3339Nano),
	}
}

func userFromItem(item userItem) (*domain.User, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
	if err != nil {
		return nil, appErrors.NewDatabaseError("parse user timestamps", err)
	}
	return &domain.User{
		ID:          item.UserID,
		Email:       item.Email,
		DisplayName: item.DisplayName,
		Role:        domain.Role(item.Role),
		CreatedAt:   createdAt,
	}, nil
}

// CreateUser writes the user row and its email uniqueness guard in one
// transaction. A taken email cancels the whole transaction and surfaces as
// a Conflict.
func (r *UserRepository) CreateUser(ctx context.Context, user *domain.User) error {
	av, err := attributevalue.MarshalMap(userToItem(user))
	if err != nil {
		return appErrors.NewDatabaseError("marshal user", err)
	}

	guardKey := keys.EmailGuardKey(user.Email)
	guard := map[string]types.AttributeValue{
		"PK":         &types.AttributeValueMemberS{Value: guardKey.PK},
		"SK":         &types.AttributeValueMemberS{Value: guardKey.SK},
		"EntityType": &types.AttributeValueMemberS{Value: keys.EntityTypeGuard},
		"UserID":     &types.AttributeValueMemberS{Value: user.ID},
	}

	_, err = r.client.TransactWriteItems(ctx, &awsdynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           aws.String(r.tableName),
					Item:                av,
					ConditionExpression: aws.String("attribute_not_exists(PK)"),
				},
			},
			{
				Put: &types.Put{
					TableName:           aws.String(r.tableName),
					Item:                guard,
					ConditionExpression: aws.String("attribute_not_exists(PK)"),
				},
			},
		},
	})
	if err != nil {
		translated := translateError("create user", err)
		if appErrors.IsConflict(translated) {
			return appErrors.NewConflictError("email already registered").WithCause(err)
		}
		return translated
	}

	r.logger.Info("User created",
		zap.String("userID", user.ID),
		zap.String("role", string(user.Role)),
	)
	return nil
}

// GetUserByID retrieves a user by primary key.
func (r *UserRepository) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	key := keys.UserKey(userID)
	result, err := r.client.GetItem(ctx, &awsdynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: key.PK},
			"SK": &types.AttributeValueMemberS{Value: key.SK},
		},
	})
	if err != nil {
		return nil, translateError("get user", err)
	}
	if result.Item == nil {
		return nil, appErrors.NewNotFoundError("user")
	}

	var item userItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, appErrors.NewDatabaseError("unmarshal user", err)
	}
	return userFromItem(item)
}

// GetUserByEmail resolves a user through the email index.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	idx := keys.UserIndexKey(email)
	result, err := r.client.Query(ctx, &awsdynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(r.gsi1Name),
		KeyConditionExpression: aws.String("GSI1PK = :pk AND GSI1SK = :sk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: idx.GSI1PK},
			":sk": &types.AttributeValueMemberS{Value: idx.GSI1SK},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, translateError("query user by email", err)
	}
	if len(result.Items) == 0 {
		return nil, appErrors.NewNotFoundError("user")
	}

	var item userItem
	if err := attributevalue.UnmarshalMap(result.Items[0], &item); err != nil {
		return nil, appErrors.NewDatabaseError("unmarshal user", err)
	}
	return userFromItem(item)
}

// PutTeacherProfile writes or replaces a teacher's profile row.
func (r *UserRepository) PutTeacherProfile(ctx context.Context, profile *domain.TeacherProfile) error {
	key := keys.TeacherProfileKey(profile.UserID)
	av, err := attributevalue.MarshalMap(teacherProfileItem{
		PK:          key.PK,
		SK:          key.SK,
		EntityType:  keys.EntityTypeTeacherProfile,
		UserID:      profile.UserID,
		SchoolName:  profile.SchoolName,
		State:       profile.State,
		GradeLevels: profile.GradeLevels,
	})
	if err != nil {
		return appErrors.NewDatabaseError("marshal teacher profile", err)
	}

	_, err = r.client.PutItem(ctx, &awsdynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	})
	if err != nil {
		return translateError("put teacher profile", err)
	}
	return nil
}

// GetTeacherProfile retrieves a teacher's profile by primary key.
func (r *UserRepository) GetTeacherProfile(ctx context.Context, userID string) (*domain.TeacherProfile, error) {
	key := keys.TeacherProfileKey(userID)
	result, err := r.client.GetItem(ctx, &awsdynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: key.PK},
			"SK": &types.AttributeValueMemberS{Value: key.SK},
		},
	})
	if err != nil {
		return nil, translateError("get teacher profile", err)
	}
	if result.Item == nil {
		return nil, appErrors.NewNotFoundError("teacher profile")
	}

	var item teacherProfileItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, appErrors.NewDatabaseError("unmarshal teacher profile", err)
	}
	return &domain.TeacherProfile{
		UserID:      item.UserID,
		SchoolName:  item.SchoolName,
		State:       item.State,
		GradeLevels: item.GradeLevels,
	}, nil
}
