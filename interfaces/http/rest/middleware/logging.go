// Package middleware holds the HTTP middleware shared by all routes.
package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type contextKey int

const requestUserKey contextKey = iota

// requestUser is a mutable slot the authentication middleware fills in
// once the token checks out, so the access log can attribute the request
// even though authentication runs further down the chain.
type requestUser struct {
	id   string
	role string
}

func requestUserFrom(ctx context.Context) *requestUser {
	entry, _ := ctx.Value(requestUserKey).(*requestUser)
	return entry
}

// Logger creates a request logging middleware. Authenticated requests log
// the caller's id and role; unauthenticated ones log only transport
// fields.
func Logger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			entry := &requestUser{}
			r = r.WithContext(context.WithValue(r.Context(), requestUserKey, entry))

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("requestID", middleware.GetReqID(r.Context())),
				zap.String("remoteAddr", r.RemoteAddr),
			}
			if entry.id != "" {
				fields = append(fields,
					zap.String("userID", entry.id),
					zap.String("role", entry.role),
				)
			}
			logger.Info("HTTP Request", fields...)
		})
	}
}
