package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeStore is an in-memory Store for limiter tests.
type fakeStore struct {
	counts map[string]int64
	ttls   map[string]time.Duration
	err    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		counts: make(map[string]int64),
		ttls:   make(map[string]time.Duration),
	}
}

func (s *fakeStore) Incr(_ context.Context, key string) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.counts[key]++
	return s.counts[key], nil
}

func (s *fakeStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	if s.err != nil {
		return s.err
	}
	s.ttls[key] = ttl
	return nil
}

func (s *fakeStore) Get(_ context.Context, key string) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.counts[key], nil
}

func (s *fakeStore) TTL(_ context.Context, key string) (time.Duration, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.ttls[key], nil
}

func (s *fakeStore) Del(_ context.Context, keys ...string) error {
	if s.err != nil {
		return s.err
	}
	for _, k := range keys {
		delete(s.counts, k)
		delete(s.ttls, k)
	}
	return nil
}

func newTestLimiter(store Store) *LoginLimiter {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewLoginLimiter(store, Config{MaxFailures: 3, Window: 15 * time.Minute}, logger)
}

func TestLimiter_AllowsUntilThreshold(t *testing.T) {
	ctx := context.Background()
	limiter := newTestLimiter(newFakeStore())

	for i := 0; i < 2; i++ {
		locked := limiter.RecordFailure(ctx, "jane@example.com", "10.0.0.1")
		assert.False(t, locked)

		ok, _ := limiter.Allow(ctx, "jane@example.com", "10.0.0.1")
		assert.True(t, ok)
	}

	// Third failure crosses the threshold exactly once.
	locked := limiter.RecordFailure(ctx, "jane@example.com", "10.0.0.1")
	assert.True(t, locked)

	ok, retryAfter := limiter.Allow(ctx, "jane@example.com", "10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, 15*time.Minute, retryAfter)
}

func TestLimiter_ThresholdReportedOnce(t *testing.T) {
	ctx := context.Background()
	limiter := newTestLimiter(newFakeStore())

	for i := 0; i < 2; i++ {
		limiter.RecordFailure(ctx, "jane@example.com", "")
	}
	assert.True(t, limiter.RecordFailure(ctx, "jane@example.com", ""))
	assert.False(t, limiter.RecordFailure(ctx, "jane@example.com", ""))
}

func TestLimiter_ResetClearsCounters(t *testing.T) {
	ctx := context.Background()
	limiter := newTestLimiter(newFakeStore())

	for i := 0; i < 3; i++ {
		limiter.RecordFailure(ctx, "jane@example.com", "10.0.0.1")
	}
	ok, _ := limiter.Allow(ctx, "jane@example.com", "10.0.0.1")
	assert.False(t, ok)

	limiter.Reset(ctx, "jane@example.com", "10.0.0.1")

	ok, _ = limiter.Allow(ctx, "jane@example.com", "10.0.0.1")
	assert.True(t, ok)
}

func TestLimiter_EmailsCountedCaseInsensitively(t *testing.T) {
	ctx := context.Background()
	limiter := newTestLimiter(newFakeStore())

	for i := 0; i < 3; i++ {
		limiter.RecordFailure(ctx, "Jane@Example.com", "")
	}

	ok, _ := limiter.Allow(ctx, "jane@example.com", "")
	assert.False(t, ok)
}

func TestLimiter_IPLockIndependentOfEmail(t *testing.T) {
	ctx := context.Background()
	limiter := newTestLimiter(newFakeStore())

	for i := 0; i < 3; i++ {
		limiter.RecordFailure(ctx, "jane@example.com", "10.0.0.1")
	}

	// Same IP with a different email is still blocked.
	ok, _ := limiter.Allow(ctx, "other@example.com", "10.0.0.1")
	assert.False(t, ok)

	// Same email from a different IP is also blocked.
	ok, _ = limiter.Allow(ctx, "jane@example.com", "10.0.0.2")
	assert.False(t, ok)
}

func TestLimiter_FailsOpenOnStoreErrors(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.err = errors.New("redis unavailable")
	limiter := newTestLimiter(store)

	locked := limiter.RecordFailure(ctx, "jane@example.com", "10.0.0.1")
	assert.False(t, locked)

	ok, _ := limiter.Allow(ctx, "jane@example.com", "10.0.0.1")
	assert.True(t, ok)
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, "300s", RetryAfter(5*time.Minute))
	assert.Equal(t, "1s", RetryAfter(0))
	assert.Equal(t, "1s", RetryAfter(200*time.Millisecond))
}
