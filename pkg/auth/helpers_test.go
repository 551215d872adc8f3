package auth

import (
	"context"
	"sync"
	"sync/atomic"
)

// memoryIdentityStore is an in-memory IdentityStore for tests
type memoryIdentityStore struct {
	mu         sync.Mutex
	identities map[int64]*Identity
	calls      atomic.Int64
	err        error
}

func newMemoryIdentityStore(identities ...*Identity) *memoryIdentityStore {
	s := &memoryIdentityStore{identities: make(map[int64]*Identity)}
	for _, identity := range identities {
		s.identities[identity.ID] = identity
	}
	return s
}

func (s *memoryIdentityStore) GetIdentity(ctx context.Context, id int64) (*Identity, error) {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	identity, ok := s.identities[id]
	if !ok {
		return nil, ErrIdentityNotFound
	}
	c := *identity
	return &c, nil
}

func (s *memoryIdentityStore) setRole(id int64, role Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identities[id].Role = role
}

// blockingIdentityStore holds every lookup until release is closed or the
// lookup's context ends
type blockingIdentityStore struct {
	identity *Identity
	started  chan struct{}
	release  chan struct{}
	once     sync.Once
	calls    atomic.Int64
}

func newBlockingIdentityStore(identity *Identity) *blockingIdentityStore {
	return &blockingIdentityStore{
		identity: identity,
		started:  make(chan struct{}),
		release:  make(chan struct{}),
	}
}

func (s *blockingIdentityStore) GetIdentity(ctx context.Context, id int64) (*Identity, error) {
	s.calls.Add(1)
	s.once.Do(func() { close(s.started) })
	select {
	case <-s.release:
		c := *s.identity
		return &c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
