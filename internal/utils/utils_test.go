package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	id := Identity{UserID: "u-1", Username: "hana", Email: "hana@example.com"}
	tok, err := NewSessionToken("secret", id, time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.Exp, 5*time.Second)

	got, err := ParseSessionToken("secret", tok.Token)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestParseSessionTokenRejects(t *testing.T) {
	good, err := NewSessionToken("secret", Identity{UserID: "u-1"}, time.Hour)
	require.NoError(t, err)
	expired, err := NewSessionToken("secret", Identity{UserID: "u-1"}, -time.Minute)
	require.NoError(t, err)
	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u-1"}).SignedString([]byte("secret"))
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"wrong secret": good.Token,
		"garbage":      "not-a-jwt",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSessionToken("other", raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
	for name, raw := range map[string]string{
		"expired":     expired.Token,
		"missing sub": noSub,
		"missing exp": noExp,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSessionToken("secret", raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("s3cret!", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "s3cret!"))
	assert.False(t, VerifyPassword(hash, "wrong"))
}

func TestHashPasswordRejectsShort(t *testing.T) {
	_, err := HashPassword("abc", bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrWeakPassword)
}
