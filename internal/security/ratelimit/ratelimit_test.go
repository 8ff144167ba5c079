package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, "test")
}

// stores runs a test body against both store implementations.
func stores(t *testing.T, body func(t *testing.T, store Store)) {
	t.Run("memory", func(t *testing.T) { body(t, NewMemoryStore()) })
	t.Run("redis", func(t *testing.T) { body(t, newRedisStore(t)) })
}

func TestLoginBlocksAfterFiveAttempts(t *testing.T) {
	stores(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		clock := newFakeClock()
		l := New(store, WithClock(clock.Now))

		for _, want := range []int{4, 3, 2, 1, 0} {
			res, err := l.Check(ctx, "user1", ActionLogin)
			require.NoError(t, err)
			assert.True(t, res.Allowed)
			assert.Equal(t, want, res.RemainingAttempts)
			assert.False(t, res.IsBlocked)
			assert.Equal(t, clock.Now().Add(15*time.Minute), res.ResetTime)
		}

		res, err := l.Check(ctx, "user1", ActionLogin)
		require.NoError(t, err)
		assert.False(t, res.Allowed)
		assert.True(t, res.IsBlocked)
		assert.Equal(t, 0, res.RemainingAttempts)
		assert.Equal(t, clock.Now().Add(30*time.Minute), res.ResetTime)

		// still blocked once the window has passed but the block has not
		blockedAt := clock.Now()
		clock.Advance(20 * time.Minute)
		res, err = l.Check(ctx, "user1", ActionLogin)
		require.NoError(t, err)
		assert.False(t, res.Allowed)
		assert.True(t, res.IsBlocked)
		assert.Equal(t, blockedAt.Add(30*time.Minute), res.ResetTime)

		clock.Advance(10 * time.Minute)
		res, err = l.Check(ctx, "user1", ActionLogin)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 4, res.RemainingAttempts)
	})
}

func TestLimitWithoutBlockRecoversAfterWindow(t *testing.T) {
	stores(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		clock := newFakeClock()
		l := New(store, WithClock(clock.Now))

		for i := 0; i < 5; i++ {
			res, err := l.Check(ctx, "a@b.edu", ActionOTPRequest)
			require.NoError(t, err)
			require.True(t, res.Allowed)
		}

		res, err := l.Check(ctx, "a@b.edu", ActionOTPRequest)
		require.NoError(t, err)
		assert.False(t, res.Allowed)
		assert.False(t, res.IsBlocked)
		assert.Equal(t, clock.Now().Add(time.Hour), res.ResetTime)

		clock.Advance(time.Hour)
		res, err = l.Check(ctx, "a@b.edu", ActionOTPRequest)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 4, res.RemainingAttempts)
	})
}

func TestKeysAndActionsAreIndependent(t *testing.T) {
	stores(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		l := New(store, WithConfig(ActionLogin, Config{MaxAttempts: 1, Window: time.Minute}))

		res, err := l.Check(ctx, "alice", ActionLogin)
		require.NoError(t, err)
		assert.True(t, res.Allowed)

		res, err = l.Check(ctx, "alice", ActionLogin)
		require.NoError(t, err)
		assert.False(t, res.Allowed)

		res, err = l.Check(ctx, "bob", ActionLogin)
		require.NoError(t, err)
		assert.True(t, res.Allowed)

		res, err = l.Check(ctx, "alice", ActionRegister)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})
}

func TestResetClearsBlock(t *testing.T) {
	stores(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		l := New(store, WithConfig(ActionPasswordReset, Config{MaxAttempts: 1, Window: time.Hour, BlockDuration: 2 * time.Hour}))

		_, err := l.Check(ctx, "k", ActionPasswordReset)
		require.NoError(t, err)
		res, err := l.Check(ctx, "k", ActionPasswordReset)
		require.NoError(t, err)
		require.True(t, res.IsBlocked)

		require.NoError(t, l.Reset(ctx, "k", ActionPasswordReset))

		res, err = l.Check(ctx, "k", ActionPasswordReset)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 0, res.RemainingAttempts)
	})
}

func TestStatusDoesNotConsume(t *testing.T) {
	stores(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		l := New(store)

		_, err := l.Check(ctx, "k", ActionRegister)
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			res, err := l.Status(ctx, "k", ActionRegister)
			require.NoError(t, err)
			assert.True(t, res.Allowed)
			assert.Equal(t, 2, res.RemainingAttempts)
		}
	})
}

func TestRemainingConsumesAnAttempt(t *testing.T) {
	stores(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		l := New(store)

		for _, want := range []int{2, 1, 0} {
			left, err := l.Remaining(ctx, "k", ActionRegister)
			require.NoError(t, err)
			assert.Equal(t, want, left)
		}

		res, err := l.Status(ctx, "k", ActionRegister)
		require.NoError(t, err)
		assert.False(t, res.Allowed)
	})
}

func TestUnknownActionUsesFormSubmission(t *testing.T) {
	l := New(nil)
	assert.Equal(t, DefaultConfigs()[ActionFormSubmission], l.ConfigFor(Action("newsletter")))

	ctx := context.Background()
	res, err := l.Check(ctx, "k", Action("newsletter"))
	require.NoError(t, err)
	assert.Equal(t, 19, res.RemainingAttempts)
}

func TestMemoryCleanupDropsExpiredKeys(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := NewMemoryStore()
	l := New(store, WithClock(clock.Now))

	_, err := l.Check(ctx, "short", ActionFormSubmission)
	require.NoError(t, err)
	_, err = l.Check(ctx, "long", ActionRegister)
	require.NoError(t, err)
	require.Equal(t, 2, store.Len())

	clock.Advance(2 * time.Minute)
	removed, err := l.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, store.Len())
}

func TestConcurrentChecksNeverExceedLimit(t *testing.T) {
	stores(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		l := New(store, WithConfig(ActionFormSubmission, Config{MaxAttempts: 5, Window: time.Minute}))

		var wg sync.WaitGroup
		var mu sync.Mutex
		allowed := 0
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := l.Check(ctx, "burst", ActionFormSubmission)
				if err == nil && res.Allowed {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 5, allowed)

		res, err := l.Status(ctx, "burst", ActionFormSubmission)
		require.NoError(t, err)
		assert.False(t, res.Allowed)
	})
}

func TestRedisStoreBlocksAcrossInstances(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	newLimiter := func() *Limiter {
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
		return New(NewRedisStore(rdb, "shared"))
	}
	a, b := newLimiter(), newLimiter()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		l := a
		if i%2 == 1 {
			l = b
		}
		res, err := l.Check(ctx, "user1", ActionLogin)
		require.NoError(t, err)
		require.True(t, res.Allowed)
	}

	res, err := b.Check(ctx, "user1", ActionLogin)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.True(t, res.IsBlocked)

	res, err = a.Status(ctx, "user1", ActionLogin)
	require.NoError(t, err)
	assert.True(t, res.IsBlocked)
}

func TestDetectBot(t *testing.T) {
	tests := []struct {
		ua   string
		want bool
	}{
		{"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_0) AppleWebKit/605.1.15 Safari/605.1.15", false},
		{"Googlebot/2.1 (+http://www.google.com/bot.html)", true},
		{"curl/8.4.0", true},
		{"python-requests/2.31", true},
		{"Mozilla/5.0 HeadlessChrome/120.0", true},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectBot(tt.ua), tt.ua)
	}
}

func TestIPLimiter(t *testing.T) {
	clock := newFakeClock()
	l := NewIPLimiter(1, 2)
	l.now = clock.Now

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"))

	clock.Advance(time.Second)
	assert.True(t, l.Allow("10.0.0.1"))

	clock.Advance(time.Hour)
	assert.Equal(t, 2, l.Evict(10*time.Minute))
}
