// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
//
// USAGE PATTERN:
//
//	import "github.com/platinummonkey/panelhub/pkg/contextkeys"
//	ctx = contextkeys.WithIdentity(ctx, identity)
//	identity, ok := ctx.Value(contextkeys.IdentityKey).(*auth.Identity)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// IdentityKey contains *auth.Identity
	// Set by: middleware.AuthMiddleware (pkg/middleware/auth.go)
	// Required by: All protected API endpoints, group gates, role gate
	// Type: *auth.Identity
	IdentityKey Key = "identity"

	// GroupIDKey contains the group id a group-scoped request targets
	// Set by: groups.ScopeFromComic / ScopeFromChapter / ScopeFromPath
	// Required by: groups.BelongsToGroup
	// Type: int64
	GroupIDKey Key = "group_id"

	// GroupKey contains *groups.Group
	// Set by: groups.BelongsToGroup
	// Used by: groups.RequireLeader (owner bypass), group handlers
	// Type: *groups.Group
	GroupKey Key = "group"

	// GroupAuthorizationKey contains *groups.Authorization
	// Set by: groups.BelongsToGroup
	// Required by: groups.RequireLeader, group handlers
	// Type: *groups.Authorization
	GroupAuthorizationKey Key = "group_authorization"

	// RequestIDKey contains request ID string (UUID)
	// Set by: httputil.RequestIDMiddleware
	// Used by: httputil.LoggingMiddleware
	// Type: string
	RequestIDKey Key = "request_id"

	// UserIDKey contains user ID string
	// Set by: middleware.RequireAuth / OptionalAuth after identity resolution
	// Used by: user-scoped operations that only need the id
	// Type: string
	UserIDKey Key = "user_id"
)

// Helper functions for type-safe context operations

// WithIdentity adds the resolved identity to the context
func WithIdentity(ctx context.Context, identity interface{}) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

// WithGroupID adds the resolved group id to the context
func WithGroupID(ctx context.Context, groupID int64) context.Context {
	return context.WithValue(ctx, GroupIDKey, groupID)
}

// WithGroup adds the loaded group to the context
func WithGroup(ctx context.Context, group interface{}) context.Context {
	return context.WithValue(ctx, GroupKey, group)
}

// WithGroupAuthorization adds the caller's group authorization facts to the context
func WithGroupAuthorization(ctx context.Context, authz interface{}) context.Context {
	return context.WithValue(ctx, GroupAuthorizationKey, authz)
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithUserID adds user ID to the context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetGroupID retrieves the resolved group id from context
func GetGroupID(ctx context.Context) (int64, bool) {
	groupID, ok := ctx.Value(GroupIDKey).(int64)
	return groupID, ok
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetUserID retrieves user ID from context
func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(UserIDKey).(string); ok {
		return userID
	}
	return ""
}
