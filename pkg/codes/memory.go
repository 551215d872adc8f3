package codes

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	code      string
	createdAt time.Time
	expiresAt time.Time
}

// MemoryStore is a process-local Store. Expiry is checked lazily on Get,
// so an overwrite simply moves the deadline forward and no earlier timer
// can delete a newer code.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// MemoryOption configures a MemoryStore
type MemoryOption func(*MemoryStore)

// WithClock overrides the time source
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// NewMemoryStore creates an in-memory code store. A non-positive ttl uses DefaultTTL.
func NewMemoryStore(ttl time.Duration, opts ...MemoryOption) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &MemoryStore{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store saves code under key, replacing any existing code
func (s *MemoryStore) Store(_ context.Context, key, code string) error {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry{code: code, createdAt: now, expiresAt: now.Add(s.ttl)}
	return nil
}

// Get returns the code for key if it has not expired. Expired entries are dropped.
func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return "", false, nil
	}
	if !now.Before(e.expiresAt) {
		delete(s.entries, key)
		return "", false, nil
	}
	return e.code, true, nil
}

// Remove deletes the code for key
func (s *MemoryStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Purge drops every expired entry and returns how many were removed
func (s *MemoryStore) Purge() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, including expired ones not yet purged
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
