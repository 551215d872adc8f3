package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier decodes and validates bearer tokens signed with a shared secret.
// It performs no I/O.
type Verifier struct {
	secret []byte
	issuer string
}

// NewVerifier creates a verifier for HS256 tokens.
// An empty issuer disables the issuer check.
func NewVerifier(secret []byte, issuer string) *Verifier {
	return &Verifier{
		secret: secret,
		issuer: issuer,
	}
}

// Verify validates the signature and expiry of tokenString and returns its claims.
// All failures are reported as ErrInvalidToken.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.IdentityID() <= 0 {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// Issuer signs tokens in the nested payload shape.
// Used by the dev token command and tests; production tokens come from the login service.
type Issuer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewIssuer creates a new token issuer
func NewIssuer(secret []byte, issuer string) *Issuer {
	return &Issuer{
		secret: secret,
		issuer: issuer,
		now:    time.Now,
	}
}

// Issue signs a token for identityID valid for ttl
func (i *Issuer) Issue(identityID int64, role Role, ttl time.Duration) (string, error) {
	now := i.now()
	claims := &Claims{
		User: &UserClaim{UserID: identityID, Role: role},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
