package session

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestNext(t *testing.T) {
	cases := []struct {
		from  Stage
		event Event
		want  Stage
	}{
		{StageUnauthenticated, EventCredentialsAccepted, StagePasscodePending},
		{StagePasscodePending, EventPasscodeVerified, StageAuthenticated},
		{StagePasscodePending, EventPasscodeRejected, StagePasscodePending},
		{StagePasscodePending, EventCredentialsAccepted, StagePasscodePending},
		{StageAuthenticated, EventSignedOut, StageUnauthenticated},
		{StagePasscodePending, EventSignedOut, StageUnauthenticated},
		{StageUnauthenticated, EventSignedOut, StageUnauthenticated},
	}
	for _, tc := range cases {
		got, err := Next(tc.from, tc.event)
		require.NoError(t, err, "%s on %s", tc.event, tc.from)
		assert.Equal(t, tc.want, got)
	}
}

func TestNextRejectsSkippingPasscode(t *testing.T) {
	for _, tc := range []struct {
		from  Stage
		event Event
	}{
		{StageUnauthenticated, EventPasscodeVerified},
		{StageUnauthenticated, EventPasscodeRejected},
		{StageAuthenticated, EventPasscodeVerified},
		{Stage("bogus"), EventSignedOut},
	} {
		_, err := Next(tc.from, tc.event)
		require.ErrorIs(t, err, ErrInvalidTransition)
	}
}

func TestIssueAndParse(t *testing.T) {
	issuer := NewIssuer(secret, "vaultline", time.Minute)
	token, exp, err := issuer.Issue(Principal{UserID: "u-1", Email: "a@b.co", Role: "customer", TokenVersion: 3}, StageAuthenticated)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Minute), exp, 2*time.Second)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	require.Equal(t, "u-1", claims.Subject)
	require.Equal(t, "a@b.co", claims.Email)
	require.Equal(t, StageAuthenticated, claims.Stage)
	require.Equal(t, 3, claims.Version)
	require.NotEmpty(t, claims.ID)
}

func TestParseRejections(t *testing.T) {
	issuer := NewIssuer(secret, "vaultline", time.Minute)
	token, _, err := issuer.Issue(Principal{UserID: "u-1"}, StageAuthenticated)
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewIssuer(strings.Repeat("x", 32), "vaultline", time.Minute).Parse(token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("wrong issuer", func(t *testing.T) {
		_, err := NewIssuer(secret, "other", time.Minute).Parse(token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("expired", func(t *testing.T) {
		late := NewIssuer(secret, "vaultline", time.Minute)
		late.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
		_, err := late.Parse(token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("none algorithm", func(t *testing.T) {
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1", Issuer: "vaultline", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute))},
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = issuer.Parse(unsigned)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("garbage", func(t *testing.T) {
		_, err := issuer.Parse("not.a.token")
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}
