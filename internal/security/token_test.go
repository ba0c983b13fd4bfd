package security_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/takuyakubo/knowledge-system/internal/security"
)

const testSecret = "test-signing-secret"

func TestAccessToken_RoundTrip(t *testing.T) {
	signed, err := security.GenerateAccessToken(testSecret, 42, "sess-abc", 15*time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := security.ParseAccessToken(signed, testSecret)
	require.NoError(t, err)
	require.Equal(t, int64(42), claims.UserID)
	require.Equal(t, "sess-abc", claims.SessionID)
	require.Equal(t, "42", claims.Subject)
	require.Equal(t, "sess-abc", claims.ID)
	require.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

func TestParseAccessToken_WrongSecret(t *testing.T) {
	signed, err := security.GenerateAccessToken(testSecret, 42, "sess-abc", 15*time.Minute)
	require.NoError(t, err)

	_, err = security.ParseAccessToken(signed, "different-secret")
	require.Error(t, err)
	require.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestParseAccessToken_Expired(t *testing.T) {
	signed, err := security.GenerateAccessToken(testSecret, 42, "sess-abc", -time.Minute)
	require.NoError(t, err)

	_, err = security.ParseAccessToken(signed, testSecret)
	require.Error(t, err)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestParseAccessToken_Garbage(t *testing.T) {
	_, err := security.ParseAccessToken("not.a.jwt", testSecret)
	require.Error(t, err)
}

func TestGenerateRefreshToken_HashMatches(t *testing.T) {
	token, hash, err := security.GenerateRefreshToken(64)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, security.HashRefreshToken(token), hash)

	other, _, err := security.GenerateRefreshToken(64)
	require.NoError(t, err)
	require.NotEqual(t, token, other)
}

func TestGenerateRefreshToken_DefaultLength(t *testing.T) {
	token, hash, err := security.GenerateRefreshToken(0)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Len(t, hash, 32)
}

func TestGenerateOneShotToken_Unique(t *testing.T) {
	a, err := security.GenerateOneShotToken()
	require.NoError(t, err)
	b, err := security.GenerateOneShotToken()
	require.NoError(t, err)

	require.NotEmpty(t, a)
	require.NotEqual(t, a, b)
}
