package security_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/takuyakubo/knowledge-system/internal/security"
)

// lightParams keeps the argon2 work factor small so the suite stays fast.
var lightParams = security.Argon2Params{
	Time:    1,
	Memory:  8 * 1024,
	Threads: 1,
	KeyLen:  32,
	SaltLen: 16,
}

func TestPassword_RoundTrip(t *testing.T) {
	hash, err := security.HashPasswordWithParams("correct horse battery", lightParams)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(hash), "$argon2id$v=19$"))

	ok, err := security.VerifyPassword("correct horse battery", hash)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = security.VerifyPassword("wrong password", hash)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPassword_SaltsDiffer(t *testing.T) {
	first, err := security.HashPasswordWithParams("same password", lightParams)
	require.NoError(t, err)
	second, err := security.HashPasswordWithParams("same password", lightParams)
	require.NoError(t, err)

	require.NotEqual(t, string(first), string(second))

	ok, err := security.VerifyPassword("same password", first)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = security.VerifyPassword("same password", second)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestPassword_DefaultParams(t *testing.T) {
	hash, err := security.HashPassword("default params password")
	require.NoError(t, err)

	ok, err := security.VerifyPassword("default params password", hash)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	for _, hash := range []string{
		"",
		"plain-sha256-digest",
		"$argon2i$v=19$t=1,m=8192,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$t=1,m=8192,p=1$c2FsdA$aGFzaA",
	} {
		_, err := security.VerifyPassword("anything", []byte(hash))
		require.Error(t, err, "hash %q must be rejected", hash)
	}
}

func TestVerifyPassword_BadBase64(t *testing.T) {
	_, err := security.VerifyPassword("anything", []byte("$argon2id$v=19$t=1,m=8192,p=1$!!notbase64!!$aGFzaA"))
	require.Error(t, err)
}
