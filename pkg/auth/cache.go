package auth

import (
	"context"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultIdentityCacheTTL bounds how stale a cached identity can be
	DefaultIdentityCacheTTL = 30 * time.Second

	// lookupTimeout bounds a shared backend lookup, which outlives any single caller
	lookupTimeout = 5 * time.Second
)

// CachedIdentityStore fronts an IdentityStore with a bounded, expiring cache.
// Concurrent misses for the same id share one backend lookup.
//
// Cached entries may be up to ttl stale; role changes made elsewhere should
// call Invalidate.
type CachedIdentityStore struct {
	backend IdentityStore
	cache   *expirable.LRU[int64, *Identity]
	group   singleflight.Group
	ttl     time.Duration
}

// NewCachedIdentityStore creates a caching identity store. A non-positive ttl
// uses DefaultIdentityCacheTTL; entries always expire so deleted or demoted
// accounts stop resolving.
func NewCachedIdentityStore(backend IdentityStore, size int, ttl time.Duration) *CachedIdentityStore {
	if size <= 0 {
		size = 1024
	}
	if ttl <= 0 {
		ttl = DefaultIdentityCacheTTL
	}
	return &CachedIdentityStore{
		backend: backend,
		cache:   expirable.NewLRU[int64, *Identity](size, nil, ttl),
		ttl:     ttl,
	}
}

// GetIdentity returns a cached identity or loads it from the backend.
// Not-found results are not cached. The shared lookup is detached from the
// caller that started it, so one cancelled request cannot fail the others
// waiting on the same id; each caller still stops waiting when its own ctx ends.
func (s *CachedIdentityStore) GetIdentity(ctx context.Context, id int64) (*Identity, error) {
	if identity, ok := s.cache.Get(id); ok {
		return copyIdentity(identity), nil
	}

	ch := s.group.DoChan(strconv.FormatInt(id, 10), func() (interface{}, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
		defer cancel()

		identity, err := s.backend.GetIdentity(lookupCtx, id)
		if err != nil {
			return nil, err
		}
		s.cache.Add(id, identity)
		return identity, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return copyIdentity(res.Val.(*Identity)), nil
	}
}

// Invalidate drops a cached identity
func (s *CachedIdentityStore) Invalidate(id int64) {
	s.cache.Remove(id)
}

// Len returns the number of cached identities
func (s *CachedIdentityStore) Len() int {
	return s.cache.Len()
}

func copyIdentity(identity *Identity) *Identity {
	c := *identity
	return &c
}
