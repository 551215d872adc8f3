package groups

import (
	"context"
	"errors"
	"fmt"
)

// Action is an operation a caller attempts within a group
type Action string

const (
	// ActionView covers reading group-scoped translator resources
	ActionView Action = "view"
	// ActionContribute covers uploading and editing chapters
	ActionContribute Action = "contribute"
	// ActionManage covers roster changes and comic-level edits
	ActionManage Action = "manage"
)

// standing is the membership fact as a decision table key
type standing string

const (
	standingNone   standing = "none"
	standingMember standing = "member"
	standingLeader standing = "leader"
)

type decisionKey struct {
	isOwner  bool
	standing standing
}

// decisions lists every allowed (owner, membership) combination per action.
// Ownership and membership role are independent facts; an owner without a
// membership row is still allowed everything.
var decisions = map[decisionKey]map[Action]bool{
	{isOwner: true, standing: standingNone}:    {ActionView: true, ActionContribute: true, ActionManage: true},
	{isOwner: true, standing: standingMember}:  {ActionView: true, ActionContribute: true, ActionManage: true},
	{isOwner: true, standing: standingLeader}:  {ActionView: true, ActionContribute: true, ActionManage: true},
	{isOwner: false, standing: standingLeader}: {ActionView: true, ActionContribute: true, ActionManage: true},
	{isOwner: false, standing: standingMember}: {ActionView: true, ActionContribute: true},
	{isOwner: false, standing: standingNone}:   {},
}

// Authorization is the caller's standing within one group
type Authorization struct {
	GroupID int64 `json:"groupId"`
	IsOwner bool  `json:"isOwner"`
	// Role is nil when the caller has no membership row
	Role *Role `json:"role"`
}

func (a *Authorization) standing() standing {
	if a.Role == nil {
		return standingNone
	}
	switch *a.Role {
	case RoleLeader:
		return standingLeader
	case RoleMember:
		return standingMember
	default:
		return standingNone
	}
}

// Allows reports whether the action is permitted
func (a *Authorization) Allows(action Action) bool {
	if a == nil {
		return false
	}
	return decisions[decisionKey{isOwner: a.IsOwner, standing: a.standing()}][action]
}

// IsMember reports whether the caller holds a membership row
func (a *Authorization) IsMember() bool {
	return a != nil && a.Role != nil
}

// Gate loads the two authorization facts for a caller in a group
type Gate struct {
	store Store
}

// NewGate creates a new group gate
func NewGate(store Store) *Gate {
	return &Gate{store: store}
}

// Authorize loads the group and the caller's membership.
// It returns ErrGroupNotFound when the group is missing and ErrForbidden when
// the caller is neither the owner nor a member. An owner without a membership
// row is admitted here so that RequireLeader, which always runs behind this
// gate, can apply the owner bypass.
func (g *Gate) Authorize(ctx context.Context, groupID, identityID int64) (*Group, *Authorization, error) {
	group, err := g.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, nil, err
	}

	authz := &Authorization{
		GroupID: groupID,
		IsOwner: group.OwnerID == identityID,
	}

	membership, err := g.store.GetMembership(ctx, groupID, identityID)
	switch {
	case err == nil:
		role := membership.Role
		authz.Role = &role
	case errors.Is(err, ErrMembershipNotFound):
	default:
		return nil, nil, fmt.Errorf("failed to load membership: %w", err)
	}

	if !authz.Allows(ActionView) {
		return group, nil, ErrForbidden
	}

	return group, authz, nil
}
