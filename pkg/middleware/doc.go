// Package middleware provides HTTP middleware for authentication and rate limiting.
//
// # Authentication gates
//
// RequireAuth rejects requests without a resolvable bearer token with 401 and
// attaches the resolved identity otherwise. OptionalAuth attaches an identity
// when one resolves and proceeds anonymously on any failure. RequireRole runs
// after RequireAuth and compares the attached identity's platform role.
//
//	router.Use(middleware.RequireAuth(resolver, logger, metrics))
//	admin.Use(middleware.RequireRole(auth.RoleAdmin, metrics))
//
// Handlers read the identity with IdentityFrom(r.Context()).
//
// # Rate Limiting
//
// RateLimit keys requests by client address. RateLimiter keeps token buckets
// in memory and DistributedRateLimiter counts fixed windows in Redis:
//
//	limiter := middleware.NewDistributedRateLimiter(redisClient, middleware.CodeRateLimitConfig(), "ratelimit")
//	router.Handle("/auth/verify-otp", middleware.RateLimit(limiter, "verify", logger)(h))
//
// # Related Packages
//
//   - pkg/auth: token verification and identity lookup
//   - pkg/groups: group-scoped authorization
package middleware
