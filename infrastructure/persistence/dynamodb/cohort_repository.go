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

// CohortRepository implements ports.CohortRepository against the single
// table. Student memberships live under the cohort partition so the
// student-count invariant can be checked with one range query.
type CohortRepository struct {
	client    *awsdynamodb.Client
	tableName string
	gsi1Name  string
	gsi2Name  string
	counters  *Counters
	logger    *zap.Logger
}

// NewCohortRepository creates a new CohortRepository.
func NewCohortRepository(client *awsdynamodb.Client, tableName, gsi1Name, gsi2Name string, counters *Counters, logger *zap.Logger) ports.CohortRepository {
	return &CohortRepository{
		client:    client,
		tableName: tableName,
		gsi1Name:  gsi1Name,
		gsi2Name:  gsi2Name,
		counters:  counters,
		logger:    logger,
	}
}

// cohortItem is the physical shape of a cohort metadata row.
type cohortItem struct {
	PK           string `dynamodbav:"PK"`
	SK           string `dynamodbav:"SK"`
	GSI1PK       string `dynamodbav:"GSI1PK"`
	GSI1SK       string `dynamodbav:"GSI1SK"`
	GSI2PK       string `dynamodbav:"GSI2PK"`
	GSI2SK       string `dynamodbav:"GSI2SK"`
	EntityType   string `dynamodbav:"EntityType"`
	CohortID     string `dynamodbav:"CohortID"`
	TeacherID    string `dynamodbav:"TeacherID"`
	Name         string `dynamodbav:"Name"`
	GradeLevel   string `dynamodbav:"GradeLevel"`
	JoinCode     string `dynamodbav:"JoinCode"`
	Status       string `dynamodbav:"Status"`
	CurrentPhase string `dynamodbav:"CurrentPhase"`
	StudentCount int    `dynamodbav:"StudentCount"`
	StartDate    string `dynamodbav:"StartDate,omitempty"`
	EndDate      string `dynamodbav:"EndDate,omitempty"`
	CreatedAt    string `dynamodbav:"CreatedAt"`
	UpdatedAt    string `dynamodbav:"UpdatedAt"`
}

// studentProfileItem is the physical shape of a membership row.
type studentProfileItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	GSI1PK     string `dynamodbav:"GSI1PK"`
	GSI1SK     string `dynamodbav:"GSI1SK"`
	EntityType string `dynamodbav:"EntityType"`
	UserID     string `dynamodbav:"UserID"`
	CohortID   string `dynamodbav:"CohortID"`
	JoinedAt   string `dynamodbav:"JoinedAt"`
}

func cohortToItem(c *domain.Cohort) cohortItem {
	key := keys.CohortKey(c.ID)
	idx := keys.CohortIndexKey(c.JoinCode, c.TeacherID, c.CreatedAt)
	item := cohortItem{
		PK:           key.PK,
		SK:           key.SK,
		GSI1PK:       idx.GSI1PK,
		GSI1SK:       idx.GSI1SK,
		GSI2PK:       idx.GSI2PK,
		GSI2SK:       idx.GSI2SK,
		EntityType:   keys.EntityTypeCohort,
		CohortID:     c.ID,
		TeacherID:    c.TeacherID,
		Name:         c.Name,
		GradeLevel:   c.GradeLevel,
		JoinCode:     domain.NormalizeJoinCode(c.JoinCode),
		Status:       string(c.Status),
		CurrentPhase: string(c.CurrentPhase),
		StudentCount: c.StudentCount,
		CreatedAt:    c.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:    c.UpdatedAt.Format(time.RFC3339Nano),
	}
	if c.StartDate != nil {
		item.StartDate = c.StartDate.Format(time.RFC3339Nano)
	}
	if c.EndDate != nil {
		item.EndDate = c.EndDate.Format(time.RFC3339Nano)
	}
	return item
}

func cohortFromItem(item cohortItem) (*domain.Cohort, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
	if err != nil {
		return nil, appErrors.NewDatabaseError("parse cohort timestamps", err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, item.UpdatedAt)
	if err != nil {
		return nil, appErrors.NewDatabaseError("parse cohort timestamps", err)
	}
	cohort := &domain.Cohort{
		ID:           item.CohortID,
		TeacherID:    item.TeacherID,
		Name:         item.Name,
		GradeLevel:   item.GradeLevel,
		JoinCode:     item.JoinCode,
		Status:       domain.CohortStatus(item.Status),
		CurrentPhase: domain.Phase(item.CurrentPhase),
		StudentCount: item.StudentCount,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}
	if item.StartDate != "" {
		t, err := time.Parse(time.RFC3339Nano, item.StartDate)
		if err != nil {
			return nil, appErrors.NewDatabaseError("parse cohort timestamps", err)
		}
		cohort.StartDate = &t
	}
	if item.EndDate != "" {
		t, err := time.Parse(time.RFC3339Nano, item.EndDate)
		if err != nil {
			return nil, appErrors.NewDatabaseError("parse cohort timestamps", err)
		}
		cohort.EndDate = &t
	}
	return cohort, nil
}

// CreateCohort writes the cohort row (with both index projections) and the
// join-code guard in one atomic transaction. A live duplicate code cancels
// the transaction; the caller regenerates and retries.
func (r *CohortRepository) CreateCohort(ctx context.Context, cohort *domain.Cohort) error {
	av, err := attributevalue.MarshalMap(cohortToItem(cohort))
	if err != nil {
		return appErrors.NewDatabaseError("marshal cohort", err)
	}

	guardKey := keys.JoinCodeGuardKey(cohort.JoinCode)
	guard := map[string]types.AttributeValue{
		"PK":         &types.AttributeValueMemberS{Value: guardKey.PK},
		"SK":         &types.AttributeValueMemberS{Value: guardKey.SK},
		"EntityType": &types.AttributeValueMemberS{Value: keys.EntityTypeGuard},
		"CohortID":   &types.AttributeValueMemberS{Value: cohort.ID},
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
		return translateError("create cohort", err)
	}

	r.logger.Info("Cohort created",
		zap.String("cohortID", cohort.ID),
		zap.String("teacherID", cohort.TeacherID),
	)
	return nil
}

// GetCohortByID retrieves a cohort by primary key.
func (r *CohortRepository) GetCohortByID(ctx context.Context, cohortID string) (*domain.Cohort, error) {
	key := keys.CohortKey(cohortID)
	result, err := r.client.GetItem(ctx, &awsdynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: key.PK},
			"SK": &types.AttributeValueMemberS{Value: key.SK},
		},
	})
	if err != nil {
		return nil, translateError("get cohort", err)
	}
	if result.Item == nil {
		return nil, appErrors.NewNotFoundError("cohort")
	}

	var item cohortItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, appErrors.NewDatabaseError("unmarshal cohort", err)
	}
	return cohortFromItem(item)
}

// GetCohortByJoinCode resolves a code through GSI1. Lookup is
// case-insensitive because the same normalization runs on write and read.
// No match is NotFound, not an error: a mistyped code is expected.
func (r *CohortRepository) GetCohortByJoinCode(ctx context.Context, code string) (*domain.Cohort, error) {
	normalized := domain.NormalizeJoinCode(code)
	result, err := r.client.Query(ctx, &awsdynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(r.gsi1Name),
		KeyConditionExpression: aws.String("GSI1PK = :pk AND GSI1SK = :sk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: keys.JoinCodeLookupPK(normalized)},
			":sk": &types.AttributeValueMemberS{Value: "METADATA"},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, translateError("query cohort by join code", err)
	}
	if len(result.Items) == 0 {
		return nil, appErrors.NewNotFoundError("cohort")
	}

	var item cohortItem
	if err := attributevalue.UnmarshalMap(result.Items[0], &item); err != nil {
		return nil, appErrors.NewDatabaseError("unmarshal cohort", err)
	}
	return cohortFromItem(item)
}

// GetCohortsByTeacher lists a teacher's cohorts newest-first. The ordering
// is the GSI2 sort key read backwards, not a post-query sort.
func (r *CohortRepository) GetCohortsByTeacher(ctx context.Context, teacherID string) ([]*domain.Cohort, error) {
	result, err := r.client.Query(ctx, &awsdynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(r.gsi2Name),
		KeyConditionExpression: aws.String("GSI2PK = :pk AND begins_with(GSI2SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: keys.TeacherCohortsPK(teacherID)},
			":sk": &types.AttributeValueMemberS{Value: "COHORT#"},
		},
		ScanIndexForward: aws.Bool(false),
	})
	if err != nil {
		return nil, translateError("query cohorts by teacher", err)
	}

	cohorts := make([]*domain.Cohort, 0, len(result.Items))
	for _, raw := range result.Items {
		var item cohortItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			r.logger.Warn("Failed to unmarshal cohort item", zap.Error(err))
			continue
		}
		cohort, err := cohortFromItem(item)
		if err != nil {
			r.logger.Warn("Failed to reconstruct cohort", zap.String("cohortID", item.CohortID), zap.Error(err))
			continue
		}
		cohorts = append(cohorts, cohort)
	}
	return cohorts, nil
}

// UpdateCohort applies a narrow update touching only the listed fields, so
// concurrent partial updates never clobber each other.
func (r *CohortRepository) UpdateCohort(ctx context.Context, cohortID string, update ports.CohortUpdate) (*domain.Cohort, error) {
	set := expression.Set(expression.Name("UpdatedAt"), expression.Value(time.Now().UTC().Format(time.RFC3339Nano)))
	if update.Name != nil {
		set = set.Set(expression.Name("Name"), expression.Value(*update.Name))
	}
	if update.Status != nil {
		set = set.Set(expression.Name("Status"), expression.Value(string(*update.Status)))
	}
	expr, err := expression.NewBuilder().
		WithUpdate(set).
		WithCondition(expression.AttributeExists(expression.Name("PK"))).
		Build()
	if err != nil {
		return nil, appErrors.NewDatabaseError("build cohort update", err)
	}

	key := keys.CohortKey(cohortID)
	result, err := r.client.UpdateItem(ctx, &awsdynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: key.PK},
			"SK": &types.AttributeValueMemberS{Value: key.SK},
		},
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		translated := translateError("update cohort", err)
		if isConditionalFailure(translated) {
			return nil, appErrors.NewNotFoundError("cohort")
		}
		return nil, translated
	}

	var item cohortItem
	if err := attributevalue.UnmarshalMap(result.Attributes, &item); err != nil {
		return nil, appErrors.NewDatabaseError("unmarshal cohort", err)
	}
	return cohortFromItem(item)
}

// AdvancePhase writes the planned transition conditionally on the cohort
// still being in the expected phase. Two racing advances cannot both apply:
// the stale one fails the condition and surfaces as a Conflict.
func (r *CohortRepository) AdvancePhase(ctx context.Context, cohortID string, adv domain.PhaseAdvance) (*domain.Cohort, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	set := expression.Set(expression.Name("CurrentPhase"), expression.Value(string(adv.To))).
		Set(expression.Name("UpdatedAt"), expression.Value(now))
	if adv.SetStatus != "" {
		set = set.Set(expression.Name("Status"), expression.Value(string(adv.SetStatus)))
	}
	if adv.StartDate != nil {
		set = set.Set(expression.Name("StartDate"), expression.Value(adv.StartDate.Format(time.RFC3339Nano)))
	}
	if adv.EndDate != nil {
		set = set.Set(expression.Name("EndDate"), expression.Value(adv.EndDate.Format(time.RFC3339Nano)))
	}
	expr, err := expression.NewBuilder().
		WithUpdate(set).
		WithCondition(expression.Equal(expression.Name("CurrentPhase"), expression.Value(string(adv.From)))).
		Build()
	if err != nil {
		return nil, appErrors.NewDatabaseError("build phase advance", err)
	}

	key := keys.CohortKey(cohortID)
	result, err := r.client.UpdateItem(ctx, &awsdynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: key.PK},
			"SK": &types.AttributeValueMemberS{Value: key.SK},
		},
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		translated := translateError("advance phase", err)
		if isConditionalFailure(translated) {
			return nil, appErrors.NewConflictError("cohort phase changed concurrently").WithCause(err)
		}
		return nil, translated
	}

	var item cohortItem
	if err := attributevalue.UnmarshalMap(result.Attributes, &item); err != nil {
		return nil, appErrors.NewDatabaseError("unmarshal cohort", err)
	}

	r.logger.Info("Cohort phase advanced",
		zap.String("cohortID", cohortID),
		zap.String("from", string(adv.From)),
		zap.String("to", string(adv.To)),
	)
	return cohortFromItem(item)
}

// CreateStudentProfile writes one membership row per (user, cohort) and
// then bumps the cohort's student count. The two writes are deliberately
// not one transaction: a crash in between leaves the counter low by one,
// which is accepted bounded drift, while the membership itself is never
// lost.
func (r *CohortRepository) CreateStudentProfile(ctx context.Context, profile *domain.StudentProfile) error {
	key := keys.StudentProfileKey(profile.CohortID, profile.UserID)
	idx := keys.StudentProfileIndexKey(profile.UserID, profile.JoinedAt)
	av, err := attributevalue.MarshalMap(studentProfileItem{
		PK:         key.PK,
		SK:         key.SK,
		GSI1PK:     idx.GSI1PK,
		GSI1SK:     idx.GSI1SK,
		EntityType: keys.EntityTypeStudentProfile,
		UserID:     profile.UserID,
		CohortID:   profile.CohortID,
		JoinedAt:   profile.JoinedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return appErrors.NewDatabaseError("marshal student profile", err)
	}

	_, err = r.client.PutItem(ctx, &awsdynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		translated := translateError("create student profile", err)
		if isConditionalFailure(translated) {
			return appErrors.NewConflictError("student already joined this cohort").WithCause(err)
		}
		return translated
	}

	if err := r.counters.Add(ctx, keys.CohortKey(profile.CohortID), "StudentCount", 1); err != nil {
		// The membership row is durable; the count will read low until a
		// reconciliation recomputes it. Not surfaced to the student.
		r.logger.Warn("Student count increment failed after join",
			zap.String("cohortID", profile.CohortID),
			zap.String("userID", profile.UserID),
			zap.Error(err),
		)
	}
	return nil
}

// GetStudentProfile retrieves one membership row by primary key.
func (r *CohortRepository) GetStudentProfile(ctx context.Context, cohortID, userID string) (*domain.StudentProfile, error) {
	key := keys.StudentProfileKey(cohortID, userID)
	result, err := r.client.GetItem(ctx, &awsdynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: key.PK},
			"SK": &types.AttributeValueMemberS{Value: key.SK},
		},
	})
	if err != nil {
		return nil, translateError("get student profile", err)
	}
	if result.Item == nil {
		return nil, appErrors.NewNotFoundError("student profile")
	}
	return studentProfileFromMap(result.Item)
}

// GetStudentProfilesByCohort lists all membership rows under a cohort.
func (r *CohortRepository) GetStudentProfilesByCohort(ctx context.Context, cohortID string) ([]*domain.StudentProfile, error) {
	result, err := r.client.Query(ctx, &awsdynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: keys.CohortKey(cohortID).PK},
			":sk": &types.AttributeValueMemberS{Value: keys.StudentProfileSKPrefix},
		},
	})
	if err != nil {
		return nil, translateError("query student profiles", err)
	}

	profiles := make([]*domain.StudentProfile, 0, len(result.Items))
	for _, raw := range result.Items {
		profile, err := studentProfileFromMap(raw)
		if err != nil {
			r.logger.Warn("Failed to unmarshal student profile", zap.Error(err))
			continue
		}
		profiles = append(profiles, profile)
	}
	return profiles, nil
}

// GetCohortsByStudent lists a student's memberships through GSI1, most
// recent join first.
func (r *CohortRepository) GetCohortsByStudent(ctx context.Context, userID string) ([]*domain.StudentProfile, error) {
	result, err := r.client.Query(ctx, &awsdynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(r.gsi1Name),
		KeyConditionExpression: aws.String("GSI1PK = :pk AND begins_with(GSI1SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: "USER#" + userID},
			":sk": &types.AttributeValueMemberS{Value: "COHORT#"},
		},
		ScanIndexForward: aws.Bool(false),
	})
	if err != nil {
		return nil, translateError("query cohorts by student", err)
	}

	profiles := make([]*domain.StudentProfile, 0, len(result.Items))
	for _, raw := range result.Items {
		profile, err := studentProfileFromMap(raw)
		if err != nil {
			r.logger.Warn("Failed to unmarshal student profile", zap.Error(err))
			continue
		}
		profiles = append(profiles, profile)
	}
	return profiles, nil
}

func studentProfileFromMap(raw map[string]types.AttributeValue) (*domain.StudentProfile, error) {
	var item studentProfileItem
	if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
		return nil, appErrors.NewDatabaseError("unmarshal student profile", err)
	}
	joinedAt, err := time.Parse(time.RFC3339Nano, item.JoinedAt)
	if err != nil {
		return nil, appErrors.NewDatabaseError("parse student profile timestamps", err)
	}
	return &domain.StudentProfile{
		UserID:   item.UserID,
		CohortID: item.CohortID,
		JoinedAt: joinedAt,
	}, nil
}
