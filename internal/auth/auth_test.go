package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	issuer := NewIssuer("secret", "leaderboard", time.Minute)

	token, err := issuer.Issue("user-1", "student")
	require.NoError(t, err)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "student", claims.Role)
	assert.Equal(t, "user-1", claims.Subject)
}

func TestParseTokenRejects(t *testing.T) {
	good, err := NewAccessToken("secret", "leaderboard", time.Minute, Claims{UserID: "u", Role: "admin"})
	require.NoError(t, err)
	expired, err := NewAccessToken("secret", "leaderboard", -time.Minute, Claims{UserID: "u", Role: "admin"})
	require.NoError(t, err)
	noUser, err := NewAccessToken("secret", "leaderboard", time.Minute, Claims{Role: "admin"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		secret string
		issuer string
		token  string
	}{
		{"wrong secret", "other", "leaderboard", good},
		{"wrong issuer", "secret", "someone-else", good},
		{"expired", "secret", "leaderboard", expired},
		{"missing user", "secret", "leaderboard", noUser},
		{"garbage", "secret", "leaderboard", "not-a-token"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseToken(tc.secret, tc.issuer, tc.token)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret")
	require.NoError(t, err)
	assert.NotEqual(t, "secret", hash)
	assert.NoError(t, CheckPassword(hash, "secret"))
	assert.Error(t, CheckPassword(hash, "wrong"))
}
