package auth

import (
	"errors"
	"time"
)

var (
	// ErrInvalidToken covers every bearer verification failure. Expired,
	// malformed and tampered tokens are intentionally indistinguishable.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrIdentityNotFound is returned when a valid token references an
	// account that no longer exists.
	ErrIdentityNotFound = errors.New("identity not found")
)

// Role represents platform-level roles
type Role string

const (
	RoleUser  Role = "user"  // Regular reader
	RoleAdmin Role = "admin" // Platform administrator
)

// IsValid reports whether r is a known platform role
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Status represents the account status
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

// Identity is the resolved, non-secret view of an account.
// It never carries the password hash or any other credential material.
type Identity struct {
	ID         int64      `json:"userId"`
	Username   string     `json:"username"`
	Email      string     `json:"email,omitempty"`
	AvatarURL  string     `json:"avatarUrl,omitempty"`
	Role       Role       `json:"role"`
	Status     Status     `json:"status"`
	IsVerified bool       `json:"isVerified"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastLogin  *time.Time `json:"lastLogin,omitempty"`
}

// HasRole checks if the identity carries the given role
func (i *Identity) HasRole(role Role) bool {
	if i == nil {
		return false
	}
	return i.Role == role
}

// IsAdmin reports whether the identity is a platform administrator
func (i *Identity) IsAdmin() bool {
	return i.HasRole(RoleAdmin)
}
