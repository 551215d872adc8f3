package auth

import (
	"context"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_Resolve(t *testing.T) {
	store := newMemoryIdentityStore(&Identity{ID: 42, Username: "reader", Role: RoleUser})
	resolver := NewResolver(NewVerifier(testSecret, ""), store)
	issuer := NewIssuer(testSecret, "")
	ctx := context.Background()

	t.Run("resolves existing identity", func(t *testing.T) {
		token, err := issuer.Issue(42, RoleUser, time.Hour)
		require.NoError(t, err)

		identity, err := resolver.Resolve(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, int64(42), identity.ID)
		assert.Equal(t, "reader", identity.Username)
	})

	t.Run("deleted account", func(t *testing.T) {
		token, err := issuer.Issue(99, RoleUser, time.Hour)
		require.NoError(t, err)

		_, err = resolver.Resolve(ctx, token)
		assert.ErrorIs(t, err, ErrIdentityNotFound)
	})

	t.Run("invalid token skips the store", func(t *testing.T) {
		before := store.calls.Load()
		_, err := resolver.Resolve(ctx, "not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
		assert.Equal(t, before, store.calls.Load())
	})

	t.Run("role comes from the store not the token", func(t *testing.T) {
		token, err := issuer.Issue(42, RoleAdmin, time.Hour)
		require.NoError(t, err)

		identity, err := resolver.Resolve(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, RoleUser, identity.Role)
	})
}

func TestCachedIdentityStore(t *testing.T) {
	ctx := context.Background()

	t.Run("caches hits", func(t *testing.T) {
		backend := newMemoryIdentityStore(&Identity{ID: 1, Role: RoleUser})
		cached := NewCachedIdentityStore(backend, 10, time.Minute)

		for i := 0; i < 5; i++ {
			identity, err := cached.GetIdentity(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, int64(1), identity.ID)
		}
		assert.Equal(t, int64(1), backend.calls.Load())
		assert.Equal(t, 1, cached.Len())
	})

	t.Run("does not cache misses", func(t *testing.T) {
		backend := newMemoryIdentityStore()
		cached := NewCachedIdentityStore(backend, 10, time.Minute)

		_, err := cached.GetIdentity(ctx, 1)
		assert.ErrorIs(t, err, ErrIdentityNotFound)
		_, err = cached.GetIdentity(ctx, 1)
		assert.ErrorIs(t, err, ErrIdentityNotFound)
		assert.Equal(t, int64(2), backend.calls.Load())
	})

	t.Run("invalidate reloads", func(t *testing.T) {
		backend := newMemoryIdentityStore(&Identity{ID: 1, Role: RoleUser})
		cached := NewCachedIdentityStore(backend, 10, time.Minute)

		_, err := cached.GetIdentity(ctx, 1)
		require.NoError(t, err)

		backend.setRole(1, RoleAdmin)
		identity, err := cached.GetIdentity(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, RoleUser, identity.Role)

		cached.Invalidate(1)
		identity, err = cached.GetIdentity(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, RoleAdmin, identity.Role)
	})

	t.Run("returned identity is a copy", func(t *testing.T) {
		backend := newMemoryIdentityStore(&Identity{ID: 1, Role: RoleUser})
		cached := NewCachedIdentityStore(backend, 10, time.Minute)

		identity, err := cached.GetIdentity(ctx, 1)
		require.NoError(t, err)
		identity.Role = RoleAdmin

		again, err := cached.GetIdentity(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, RoleUser, again.Role)
	})

	t.Run("propagates backend errors", func(t *testing.T) {
		backend := newMemoryIdentityStore()
		backend.err = fmt.Errorf("db down")
		cached := NewCachedIdentityStore(backend, 10, time.Minute)

		_, err := cached.GetIdentity(ctx, 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db down")
	})

	t.Run("concurrent lookups", func(t *testing.T) {
		backend := newMemoryIdentityStore(&Identity{ID: 1, Role: RoleUser})
		cached := NewCachedIdentityStore(backend, 10, time.Minute)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				identity, err := cached.GetIdentity(ctx, 1)
				assert.NoError(t, err)
				assert.Equal(t, int64(1), identity.ID)
			}()
		}
		wg.Wait()
		assert.LessOrEqual(t, backend.calls.Load(), int64(20))
	})

	t.Run("cancelled caller does not fail other waiters", func(t *testing.T) {
		backend := newBlockingIdentityStore(&Identity{ID: 7, Role: RoleUser})
		cached := NewCachedIdentityStore(backend, 10, time.Minute)

		firstCtx, cancelFirst := context.WithCancel(ctx)
		firstErr := make(chan error, 1)
		go func() {
			_, err := cached.GetIdentity(firstCtx, 7)
			firstErr <- err
		}()
		<-backend.started

		type outcome struct {
			identity *Identity
			err      error
		}
		second := make(chan outcome, 1)
		go func() {
			identity, err := cached.GetIdentity(context.Background(), 7)
			second <- outcome{identity, err}
		}()

		cancelFirst()
		assert.ErrorIs(t, <-firstErr, context.Canceled)

		close(backend.release)
		got := <-second
		require.NoError(t, got.err)
		assert.Equal(t, int64(7), got.identity.ID)
		assert.Equal(t, 1, cached.Len(), "the shared lookup still populates the cache")
	})

	t.Run("waiter gives up on its own deadline", func(t *testing.T) {
		backend := newBlockingIdentityStore(&Identity{ID: 8, Role: RoleUser})
		defer close(backend.release)
		cached := NewCachedIdentityStore(backend, 10, time.Minute)

		waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		_, err := cached.GetIdentity(waitCtx, 8)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("non-positive ttl still expires", func(t *testing.T) {
		backend := newMemoryIdentityStore(&Identity{ID: 1, Role: RoleAdmin})
		assert.Equal(t, DefaultIdentityCacheTTL, NewCachedIdentityStore(backend, 10, 0).ttl)
		assert.Equal(t, DefaultIdentityCacheTTL, NewCachedIdentityStore(backend, 10, -time.Second).ttl)
		assert.Equal(t, time.Minute, NewCachedIdentityStore(backend, 10, time.Minute).ttl)
	})
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		token  string
		ok     bool
	}{
		{"valid", "Bearer abc.def.ghi", "abc.def.ghi", true},
		{"lowercase scheme", "bearer abc", "abc", true},
		{"empty", "", "", false},
		{"no scheme", "abc", "", false},
		{"basic", "Basic dXNlcjpwYXNz", "", false},
		{"scheme only", "Bearer", "", false},
		{"empty token", "Bearer ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, ok := BearerToken(tt.header)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.token, token)
		})
	}
}

func TestHandshakeToken(t *testing.T) {
	t.Run("auth field wins", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws?token=from-query", nil)
		r.Header.Set("Sec-WebSocket-Protocol", "bearer, from-auth")
		r.Header.Set("Authorization", "Bearer from-header")
		assert.Equal(t, "from-auth", HandshakeToken(r))
	})

	t.Run("query before header", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws?token=from-query", nil)
		r.Header.Set("Authorization", "Bearer from-header")
		assert.Equal(t, "from-query", HandshakeToken(r))
	})

	t.Run("header last", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws", nil)
		r.Header.Set("Authorization", "Bearer from-header")
		assert.Equal(t, "from-header", HandshakeToken(r))
	})

	t.Run("subprotocol without bearer marker is ignored", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws", nil)
		r.Header.Set("Sec-WebSocket-Protocol", "chat, v2")
		assert.Equal(t, "", HandshakeToken(r))
	})

	t.Run("none", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws", nil)
		assert.Equal(t, "", HandshakeToken(r))
	})
}
