package security

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func setupSessionConfig(t *testing.T, ttl time.Duration) {
	t.Helper()

	viper.Set("security.jwt_secret", "test-secret")
	viper.Set("auth.session_ttl", ttl)

	t.Cleanup(func() {
		viper.Set("security.jwt_secret", "")
		viper.Set("auth.session_ttl", 0)
	})
}

func TestSession_IssueAndVerify(t *testing.T) {
	setupSessionConfig(t, time.Hour)

	token, err := IssueSession("u1", "a@x.com", "user")
	require.NoError(t, err)

	claims, err := VerifySession(token)
	require.NoError(t, err)
	require.Equal(t, "u1", claims.UserID)
	require.Equal(t, "a@x.com", claims.Email)
	require.Equal(t, "user", claims.Role)
}

func TestSession_VerifyIsIdempotent(t *testing.T) {
	setupSessionConfig(t, time.Hour)

	token, err := IssueSession("u1", "a@x.com", "admin")
	require.NoError(t, err)

	first, err := VerifySession(token)
	require.NoError(t, err)

	second, err := VerifySession(token)
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func TestSession_Expired(t *testing.T) {
	setupSessionConfig(t, -time.Minute)

	token, err := IssueSession("u1", "a@x.com", "user")
	require.NoError(t, err)

	_, err = VerifySession(token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestSession_WrongKey(t *testing.T) {
	setupSessionConfig(t, time.Hour)

	token, err := IssueSession("u1", "a@x.com", "user")
	require.NoError(t, err)

	viper.Set("security.jwt_secret", "a-different-secret")

	_, err = VerifySession(token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestSession_Malformed(t *testing.T) {
	setupSessionConfig(t, time.Hour)

	for _, bad := range []string{"", "garbage", "a.b.c"} {
		_, err := VerifySession(bad)
		require.ErrorIs(t, err, ErrTokenInvalid, "token %q", bad)
	}
}
