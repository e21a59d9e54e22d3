package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"civica-backend/pkg/auth"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerAttributesAuthenticatedRequests(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	validator, err := auth.NewJWTValidator("test-secret", "civica-backend")
	require.NoError(t, err)

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := Logger(logger)(Authenticate(validator)(ok))

	t.Run("authenticated request logs the caller", func(t *testing.T) {
		logs.TakeAll()

		token := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
			UserID: "teacher-1",
			Email:  "pat@school.edu",
			Role:   "teacher",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "civica-backend",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		signed, err := token.SignedString([]byte("test-secret"))
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/cohorts", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusNoContent, rec.Code)
		entries := logs.TakeAll()
		require.Len(t, entries, 1)
		fields := entries[0].ContextMap()
		assert.Equal(t, "teacher-1", fields["userID"])
		assert.Equal(t, "teacher", fields["role"])
		assert.Equal(t, int64(http.StatusNoContent), fields["status"])
	})

	t.Run("rejected request logs without a caller", func(t *testing.T) {
		logs.TakeAll()

		req := httptest.NewRequest(http.MethodGet, "/api/v1/cohorts", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		entries := logs.TakeAll()
		require.Len(t, entries, 1)
		fields := entries[0].ContextMap()
		_, hasUser := fields["userID"]
		assert.False(t, hasUser)
		assert.Equal(t, "/api/v1/cohorts", fields["path"])
	})
}
