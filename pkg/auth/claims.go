package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// UserClaim is the nested user object carried by HTTP-issued tokens
type UserClaim struct {
	UserID int64 `json:"userId"`
	Role   Role  `json:"role,omitempty"`
}

// Claims is the decoded bearer payload.
//
// Two payload shapes exist in issued tokens: {"user":{"userId":N,"role":R}} and
// a flat {"userId":N}. Both decode into Claims and IdentityID hides the difference
// so HTTP and realtime paths resolve identities the same way.
type Claims struct {
	User   *UserClaim `json:"user,omitempty"`
	UserID int64      `json:"userId,omitempty"`
	jwt.RegisteredClaims
}

// IdentityID returns the claimed identity id, preferring the nested form
func (c *Claims) IdentityID() int64 {
	if c == nil {
		return 0
	}
	if c.User != nil && c.User.UserID != 0 {
		return c.User.UserID
	}
	return c.UserID
}

// ClaimedRole returns the role asserted in the token, if any.
// Authorization decisions use the role loaded from the store, not this value.
func (c *Claims) ClaimedRole() Role {
	if c == nil || c.User == nil {
		return ""
	}
	return c.User.Role
}
