package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_Allow(t *testing.T) {
	limiter := NewRateLimiter(&RateLimitConfig{RequestsPerWindow: 2, WindowDuration: time.Minute})
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := limiter.Allow(ctx, "a")
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, _ := limiter.Allow(ctx, "a")
	assert.False(t, allowed)

	// other keys are independent
	allowed, _ = limiter.Allow(ctx, "b")
	assert.True(t, allowed)

	now = now.Add(30 * time.Second)
	allowed, _ = limiter.Allow(ctx, "a")
	assert.True(t, allowed)
	assert.Equal(t, 0, limiter.Remaining("a"))
}

func TestRateLimiter_Cleanup(t *testing.T) {
	limiter := NewRateLimiter(&RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute})
	now := time.Now()
	limiter.now = func() time.Time { return now }

	_, _ = limiter.Allow(context.Background(), "stale")
	now = now.Add(3 * time.Minute)
	limiter.Cleanup()

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	assert.Empty(t, limiter.buckets)
}

func TestDistributedRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	limiter := NewDistributedRateLimiter(client, &RateLimitConfig{RequestsPerWindow: 3, WindowDuration: time.Minute}, "")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "verify:1.2.3.4")
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, err := limiter.Allow(ctx, "verify:1.2.3.4")
	require.NoError(t, err)
	assert.False(t, allowed)

	remaining, err := limiter.Remaining(ctx, "verify:1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	ttl, err := limiter.TTL(ctx, "verify:1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, ttl)

	mr.FastForward(time.Minute)
	allowed, err = limiter.Allow(ctx, "verify:1.2.3.4")
	require.NoError(t, err)
	assert.True(t, allowed)

	require.NoError(t, limiter.Reset(ctx, "verify:1.2.3.4"))
	remaining, err = limiter.Remaining(ctx, "verify:1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, 3, remaining)
}

func TestDistributedRateLimiter_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	mr.Close()

	limiter := NewDistributedRateLimiter(client, nil, "ratelimit")
	allowed, err := limiter.Allow(context.Background(), "k")
	assert.Error(t, err)
	assert.True(t, allowed)
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, error) {
	return true, errors.New("redis error: connection refused")
}

func (failingLimiter) Window() time.Duration { return time.Minute }

func TestRateLimitMiddleware(t *testing.T) {
	logger, hook := test.NewNullLogger()
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	t.Run("blocks after limit", func(t *testing.T) {
		limiter := NewRateLimiter(&RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute})
		handler := RateLimit(limiter, "verify", logger)(ok)

		req := httptest.NewRequest(http.MethodPost, "/auth/verify-otp", nil)
		req.RemoteAddr = "10.0.0.1:5555"

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "60", rec.Header().Get("Retry-After"))
		assert.JSONEq(t, `{"message":"too many requests, try again later"}`, rec.Body.String())

		// a different client is unaffected
		other := httptest.NewRequest(http.MethodPost, "/auth/verify-otp", nil)
		other.RemoteAddr = "10.0.0.2:5555"
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, other)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("fails open", func(t *testing.T) {
		rec := httptest.NewRecorder()
		RateLimit(failingLimiter{}, "verify", logger)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, hook.LastEntry())
		assert.Equal(t, "rate limiter unavailable, allowing request", hook.LastEntry().Message)
	})
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"remote addr", "192.168.1.10:4000", nil, "192.168.1.10"},
		{"forwarded chain", "10.0.0.1:1", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "203.0.113.5"},
		{"real ip", "10.0.0.1:1", map[string]string{"X-Real-IP": "198.51.100.7"}, "198.51.100.7"},
		{"no port", "192.168.1.10", nil, "192.168.1.10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(req))
		})
	}
}
