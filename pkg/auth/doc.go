// Package auth provides bearer token verification and identity resolution for panelhub.
//
// # Overview
//
// Every authenticated entry point, HTTP or realtime, funnels through one pair:
//
//	verifier := auth.NewVerifier(secret, "panelhub")
//	resolver := auth.NewResolver(verifier, auth.NewPostgresIdentityStore(db))
//	identity, err := resolver.Resolve(ctx, token)
//
// Verify never distinguishes an expired token from a malformed one; callers
// see ErrInvalidToken for both. Resolve additionally returns ErrIdentityNotFound
// when the token is valid but the account is gone.
//
// # Token carriers
//
// HTTP requests carry "Authorization: Bearer <token>" (see BearerToken).
// Realtime handshakes may carry the token in three places, checked in order
// by HandshakeToken:
//
//	Sec-WebSocket-Protocol: bearer, <token>
//	/ws?token=<token>
//	Authorization: Bearer <token>
//
// # Caching
//
// CachedIdentityStore wraps any IdentityStore with an expirable LRU and
// collapses concurrent misses for the same id into one lookup.
package auth
