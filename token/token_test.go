package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-only-secret"))
	require.NoError(t, err)
	return raw
}

func TestDecode(t *testing.T) {
	exp := time.Now().Add(72 * time.Hour).Truncate(time.Second)
	raw := sign(t, jwt.MapClaims{"user_id": "u1", "name": "Ava", "exp": exp.Unix()})

	c, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "u1", c.UserID)
	assert.Equal(t, "Ava", c.Name)
	assert.True(t, exp.Equal(c.ExpiresAt), "got expiry %v, want %v", c.ExpiresAt, exp)
}

func TestDecodeUserIDAlias(t *testing.T) {
	c, err := Decode(sign(t, jwt.MapClaims{"userID": "u2"}))
	require.NoError(t, err)
	assert.Equal(t, "u2", c.UserID)
	assert.Empty(t, c.Name)
	assert.True(t, c.ExpiresAt.IsZero())
}

func TestDecodeDoesNotVerify(t *testing.T) {
	// Signed with a key the client never sees, and already expired.
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"user_id": "u3",
		"exp":     time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte("another-secret"))
	require.NoError(t, err)

	c, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "u3", c.UserID)
}

func TestDecodeMalformed(t *testing.T) {
	cases := map[string]string{
		"empty":           "",
		"whitespace":      "   ",
		"not a jwt":       "definitely-not-a-token",
		"bad segments":    "a.b.c",
		"missing user id": sign(t, jwt.MapClaims{"name": "Ava"}),
		"empty user id":   sign(t, jwt.MapClaims{"user_id": ""}),
		"non-string id":   sign(t, jwt.MapClaims{"user_id": 42}),
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			c, err := Decode(raw)
			require.ErrorIs(t, err, ErrMalformed)
			assert.Equal(t, Claims{}, c)
		})
	}
}
