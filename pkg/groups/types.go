package groups

import (
	"errors"
	"time"
)

var (
	// ErrGroupNotFound is returned when the group record does not exist
	ErrGroupNotFound = errors.New("group not found")
	// ErrResourceNotFound is returned when a comic or chapter on the scope path does not exist
	ErrResourceNotFound = errors.New("resource not found")
	// ErrForbidden is returned when the caller holds no standing in the group.
	// Missing membership is reported this way rather than as a not-found.
	ErrForbidden = errors.New("not a member of this group")
	// ErrMembershipNotFound is returned by membership mutations that match no row
	ErrMembershipNotFound = errors.New("membership not found")
	// ErrDuplicateMembership is returned when the (group, user) link already exists
	ErrDuplicateMembership = errors.New("user is already a member of this group")
	// ErrInvalidRole is returned for roles outside leader|member
	ErrInvalidRole = errors.New("invalid group role")
)

// Role is a member's collaborative role within a group
type Role string

const (
	RoleLeader Role = "leader"
	RoleMember Role = "member"
)

// IsValid checks if the role is valid
func (r Role) IsValid() bool {
	return r == RoleLeader || r == RoleMember
}

// Group represents a translation group
type Group struct {
	ID          int64     `json:"groupId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	AvatarURL   string    `json:"avatarUrl,omitempty"`
	OwnerID     int64     `json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Membership links a user to a group. One row per (group, user).
type Membership struct {
	GroupID  int64     `json:"groupId"`
	UserID   int64     `json:"userId"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Member is a membership joined with display attributes of the user
type Member struct {
	Membership
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Comic is the subset of a comic needed to resolve its group
type Comic struct {
	ID      int64  `json:"comicId"`
	GroupID int64  `json:"groupId"`
	Title   string `json:"title"`
}

// Chapter is the subset of a chapter needed to resolve its comic
type Chapter struct {
	ID      int64   `json:"chapterId"`
	ComicID int64   `json:"comicId"`
	Number  float64 `json:"chapterNumber"`
	Title   string  `json:"title,omitempty"`
}
