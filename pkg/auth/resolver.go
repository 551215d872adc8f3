package auth

import (
	"context"
)

// Resolver turns a bearer token into a resolved identity.
// It is the single verification path shared by HTTP middleware and the
// realtime handshake.
type Resolver struct {
	verifier *Verifier
	store    IdentityStore
}

// NewResolver creates a new resolver
func NewResolver(verifier *Verifier, store IdentityStore) *Resolver {
	return &Resolver{
		verifier: verifier,
		store:    store,
	}
}

// Resolve verifies token and loads the identity it references.
// Returns ErrInvalidToken, ErrIdentityNotFound, or a wrapped store error.
func (r *Resolver) Resolve(ctx context.Context, token string) (*Identity, error) {
	claims, err := r.verifier.Verify(token)
	if err != nil {
		return nil, err
	}
	return r.store.GetIdentity(ctx, claims.IdentityID())
}
