package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func TestValidateToken(t *testing.T) {
	validator, err := NewJWTValidator(testSecret, "civica-backend")
	require.NoError(t, err)

	valid := Claims{
		UserID: "user-1",
		Email:  "pat@school.edu",
		Role:   "teacher",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "civica-backend",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	t.Run("accepts a valid token", func(t *testing.T) {
		claims, err := validator.ValidateToken("Bearer " + signToken(t, valid))
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID)
		assert.Equal(t, "teacher", claims.Role)
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		expired := valid
		expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

		_, err := validator.ValidateToken(signToken(t, expired))
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("rejects a wrong issuer", func(t *testing.T) {
		wrong := valid
		wrong.Issuer = "someone-else"

		_, err := validator.ValidateToken(signToken(t, wrong))
		assert.ErrorIs(t, err, ErrInvalidClaims)
	})

	t.Run("rejects an unknown role", func(t *testing.T) {
		wrong := valid
		wrong.Role = "admin"

		_, err := validator.ValidateToken(signToken(t, wrong))
		assert.ErrorIs(t, err, ErrInvalidClaims)
	})

	t.Run("rejects a missing subject", func(t *testing.T) {
		wrong := valid
		wrong.UserID = ""

		_, err := validator.ValidateToken(signToken(t, wrong))
		assert.ErrorIs(t, err, ErrInvalidClaims)
	})

	t.Run("rejects a tampered signature", func(t *testing.T) {
		other := jwt.NewWithClaims(jwt.SigningMethodHS256, valid)
		signed, err := other.SignedString([]byte("other-secret"))
		require.NoError(t, err)

		_, err = validator.ValidateToken(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects an empty token", func(t *testing.T) {
		_, err := validator.ValidateToken("")
		assert.ErrorIs(t, err, ErrMissingToken)
	})
}

func TestNewJWTValidatorRequiresSecret(t *testing.T) {
	_, err := NewJWTValidator("", "civica-backend")
	assert.Error(t, err)
}
