package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokens_RoundTrip(t *testing.T) {
	tokens := NewTokens(Config{Secret: "s3cret", Issuer: "travel-approval", TTL: time.Hour})

	raw, exp, err := tokens.Issue(42)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	userID, err := tokens.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestTokens_Rejects(t *testing.T) {
	tokens := NewTokens(Config{Secret: "s3cret", Issuer: "travel-approval", TTL: time.Hour})
	good, _, err := tokens.Issue(7)
	require.NoError(t, err)

	other, _, err := NewTokens(Config{Secret: "other", Issuer: "travel-approval"}).Issue(7)
	require.NoError(t, err)

	wrongIssuer, _, err := NewTokens(Config{Secret: "s3cret", Issuer: "someone-else"}).Issue(7)
	require.NoError(t, err)

	expired := NewTokens(Config{Secret: "s3cret", Issuer: "travel-approval", TTL: time.Minute})
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	stale, _, err := expired.Issue(7)
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "7"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "admin",
		Issuer:    "travel-approval",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	cases := map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": other,
		"wrong issuer": wrongIssuer,
		"expired":      stale,
		"alg none":     noneAlg,
		"bad subject":  badSubject,
		"tampered":     good + "x",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := tokens.Verify(raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestTokens_IssueRejectsBadUser(t *testing.T) {
	_, _, err := NewTokens(Config{Secret: "s"}).Issue(0)
	assert.Error(t, err)
}
