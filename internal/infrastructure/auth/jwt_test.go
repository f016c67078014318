package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockops/backend/internal/infrastructure/config"
)

func newTestService(expiration time.Duration) *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:          "test-secret-key-0123456789abcdef",
		TokenExpiration: expiration,
		Issuer:          "stockops-test",
	})
}

func TestJWTService_GenerateAndValidate(t *testing.T) {
	service := newTestService(time.Minute)
	operatorID := uuid.New()

	token, expiresAt, err := service.GenerateToken(operatorID, "warehouse-clerk", []string{"inventory"})
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Minute), expiresAt, 5*time.Second)

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, operatorID.String(), claims.OperatorID)
	assert.Equal(t, "warehouse-clerk", claims.Username)
	assert.Equal(t, []string{"inventory"}, claims.Roles)

	parsed, err := claims.OperatorUUID()
	require.NoError(t, err)
	assert.Equal(t, operatorID, parsed)
}

func TestJWTService_ValidateToken(t *testing.T) {
	t.Run("rejects an expired token", func(t *testing.T) {
		service := newTestService(-time.Minute)
		token, _, err := service.GenerateToken(uuid.New(), "clerk", nil)
		require.NoError(t, err)

		_, err = service.ValidateToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("rejects a token signed with a different secret", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{
			Secret:          "another-secret-key-fedcba9876543210",
			TokenExpiration: time.Minute,
			Issuer:          "stockops-test",
		})
		token, _, err := other.GenerateToken(uuid.New(), "clerk", nil)
		require.NoError(t, err)

		_, err = newTestService(time.Minute).ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects garbage input", func(t *testing.T) {
		_, err := newTestService(time.Minute).ValidateToken("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
