package dynamodb

import (
	"errors"

	appErrors "civica-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// translateError maps DynamoDB SDK failures onto the application error
// kinds. Conditional failures become conflicts; throttling and internal
// service errors become retryable unavailability; everything else is a
// database error.
func translateError(operation string, err error) error {
	if err == nil {
		return nil
	}

	var conditionFailed *types.ConditionalCheckFailedException
	if errors.As(err, &conditionFailed) {
		return appErrors.NewConflictError(operation + ": conditional check failed").WithCause(err)
	}

	var txCanceled *types.TransactionCanceledException
	if errors.As(err, &txCanceled) {
		for _, reason := range txCanceled.CancellationReasons {
			if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
				return appErrors.NewConflictError(operation + ": conditional check failed").WithCause(err)
			}
		}
		return appErrors.NewDatabaseError(operation, err)
	}

	var throughputExceeded *types.ProvisionedThroughputExceededException
	var requestLimit *types.RequestLimitExceeded
	var internalError *types.InternalServerError
	if errors.As(err, &throughputExceeded) || errors.As(err, &requestLimit) || errors.As(err, &internalError) {
		return appErrors.NewUnavailableError("dynamodb").WithCause(err)
	}

	return appErrors.NewDatabaseError(operation, err)
}

// isConditionalFailure reports whether err is a conflict caused by a
// conditional write, after translation.
func isConditionalFailure(err error) bool {
	return appErrors.IsConflict(err)
}
