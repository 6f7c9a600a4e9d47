package tokens

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-session-secret")

func TestSignSession_RoundTrip(t *testing.T) {
	t.Parallel()

	exp := time.Now().Add(time.Hour)
	tok, err := SignSession(42, "sid-1", exp, secret)
	require.NoError(t, err)

	claims, err := SessionClaimsFromToken(tok, secret)
	require.NoError(t, err)

	id, err := claims.UserID()
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)
	assert.Equal(t, "sid-1", claims.ID)
	assert.WithinDuration(t, exp, claims.ExpiresAt.Time, time.Second)
}

func TestSessionClaimsFromToken_Rejects(t *testing.T) {
	t.Parallel()

	expired, err := SignSession(1, "sid", time.Now().Add(-time.Minute), secret)
	require.NoError(t, err)

	otherKey, err := SignSession(1, "sid", time.Now().Add(time.Minute), []byte("other"))
	require.NoError(t, err)

	noJTI, err := SignSession(1, "", time.Now().Add(time.Minute), secret)
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			ID:        "sid",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}).SignedString(secret)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-jwt"},
		{name: "expired", token: expired},
		{name: "wrong key", token: otherKey},
		{name: "missing jti", token: noJTI},
		{name: "wrong alg", token: hs512},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			claims, err := SessionClaimsFromToken(tt.token, secret)
			assert.Nil(t, claims)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestSessionClaims_UserID_BadSubject(t *testing.T) {
	t.Parallel()

	c := SessionClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "abc"}}
	_, err := c.UserID()
	assert.ErrorIs(t, err, ErrInvalidToken)
}
