package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret-at-least-16-bytes")

func TestVerifier_Verify(t *testing.T) {
	verifier := NewVerifier(testSecret, "panelhub")
	issuer := NewIssuer(testSecret, "panelhub")

	t.Run("valid nested token", func(t *testing.T) {
		token, err := issuer.Issue(42, RoleAdmin, time.Hour)
		require.NoError(t, err)

		claims, err := verifier.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, int64(42), claims.IdentityID())
		assert.Equal(t, RoleAdmin, claims.ClaimedRole())
	})

	t.Run("valid flat token", func(t *testing.T) {
		claims := &Claims{
			UserID: 7,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "panelhub",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
		require.NoError(t, err)

		got, err := verifier.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, int64(7), got.IdentityID())
		assert.Equal(t, Role(""), got.ClaimedRole())
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := issuer.Issue(42, RoleUser, -time.Minute)
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := NewIssuer([]byte("another-secret-of-some-length"), "panelhub").Issue(42, RoleUser, time.Hour)
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("tampered token", func(t *testing.T) {
		token, err := issuer.Issue(42, RoleUser, time.Hour)
		require.NoError(t, err)
		other, err := issuer.Issue(1, RoleAdmin, time.Hour)
		require.NoError(t, err)

		// Payload of one token with the signature of another
		parts := strings.Split(token, ".")
		otherParts := strings.Split(other, ".")
		tampered := parts[0] + "." + otherParts[1] + "." + parts[2]
		_, err = verifier.Verify(tampered)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		token, err := NewIssuer(testSecret, "someone-else").Issue(42, RoleUser, time.Hour)
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing identity", func(t *testing.T) {
		token, err := issuer.Issue(0, RoleUser, time.Hour)
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing expiry", func(t *testing.T) {
		claims := &Claims{User: &UserClaim{UserID: 42}, RegisteredClaims: jwt.RegisteredClaims{Issuer: "panelhub"}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unsigned token", func(t *testing.T) {
		claims := &Claims{User: &UserClaim{UserID: 42}, RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		for _, token := range []string{"", "abc", "a.b.c", "Bearer x"} {
			_, err := verifier.Verify(token)
			assert.ErrorIs(t, err, ErrInvalidToken, token)
		}
	})
}

func TestVerifier_NoIssuerCheck(t *testing.T) {
	verifier := NewVerifier(testSecret, "")
	token, err := NewIssuer(testSecret, "anything").Issue(3, RoleUser, time.Hour)
	require.NoError(t, err)

	claims, err := verifier.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(3), claims.IdentityID())
}

func TestClaims_IdentityID(t *testing.T) {
	var nilClaims *Claims
	assert.Equal(t, int64(0), nilClaims.IdentityID())

	assert.Equal(t, int64(5), (&Claims{UserID: 5}).IdentityID())
	assert.Equal(t, int64(9), (&Claims{User: &UserClaim{UserID: 9}, UserID: 5}).IdentityID())
	assert.Equal(t, int64(5), (&Claims{User: &UserClaim{}, UserID: 5}).IdentityID())
}
