package auth

import (
	"context"

	"civica-backend/domain"
)

type contextKey string

const userContextKey contextKey = "user_context"

// UserContext is the authenticated caller, attached to the request
// context by the authentication middleware.
type UserContext struct {
	UserID string
	Email  string
	Role   domain.Role
}

// WithUser attaches the authenticated caller to the context.
func WithUser(ctx context.Context, user UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext extracts the authenticated caller.
func UserFromContext(ctx context.Context) (UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(UserContext)
	return user, ok
}
