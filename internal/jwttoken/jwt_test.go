package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "gearcheck/pkg/domain-errors"
)

func TestValidateToken(t *testing.T) {
	svc := New("test-signing-key", "gearcheck-test")

	t.Run("round-trips actor claims", func(t *testing.T) {
		token, err := svc.GenerateToken("sup_1", "Marie Dupont", "chef", time.Hour)
		require.NoError(t, err)

		claims, err := svc.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, "sup_1", claims.ActorID)
		assert.Equal(t, "Marie Dupont", claims.Name)
		assert.Equal(t, "chef", claims.Role)
	})

	t.Run("rejects expired token", func(t *testing.T) {
		token, err := svc.GenerateToken("sup_1", "Marie Dupont", "chef", -time.Minute)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		require.Error(t, err)
		assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
	})

	t.Run("rejects token signed with another key", func(t *testing.T) {
		other := New("different-key", "gearcheck-test")
		token, err := other.GenerateToken("sup_1", "Marie Dupont", "chef", time.Hour)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		require.Error(t, err)
		assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("not-a-token")
		require.Error(t, err)
	})
}
