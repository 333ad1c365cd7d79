package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/taskboard/internal/models"
	"github.com/tgienger/taskboard/internal/perrors"
)

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", hash)
	assert.True(t, CheckPassword(hash, "s3cret!"))
	assert.False(t, CheckPassword(hash, "wrong"))
}

func TestIssueAndVerify(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)
	u := &models.User{ID: 12, Username: "maria", Role: models.RoleMember}

	tok, err := tokens.Issue(u)
	require.NoError(t, err)

	id, err := tokens.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)
}

func TestVerifyRejects(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	tokens := NewTokens("test-secret", time.Hour)
	tokens.now = func() time.Time { return now }

	tok, err := tokens.Issue(&models.User{ID: 1, Username: "admin"})
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		later := NewTokens("test-secret", time.Hour)
		later.now = func() time.Time { return now.Add(2 * time.Hour) }
		_, err := later.Verify(tok)
		assert.True(t, perrors.IsUnauthorized(err))
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokens("other-secret", time.Hour)
		other.now = tokens.now
		_, err := other.Verify(tok)
		assert.True(t, perrors.IsUnauthorized(err))
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := tokens.Verify("not-a-token")
		assert.True(t, perrors.IsUnauthorized(err))
	})

	t.Run("unsigned", func(t *testing.T) {
		none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "1", "iss": issuer}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = tokens.Verify(none)
		assert.True(t, perrors.IsUnauthorized(err))
	})
}
