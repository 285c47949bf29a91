package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ScriptSorcerer23/Idea2Repo/internal/config"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestLimiter() (*MemoryLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	l := NewMemoryLimiter()
	l.now = clock.now
	return l, clock
}

func TestMemoryLimiter_FivePerMinute(t *testing.T) {
	l, clock := newTestLimiter()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ok, err := l.Allow(ctx, "1.2.3.4", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i+1)
		clock.t = clock.t.Add(time.Second)
	}

	ok, _ := l.Allow(ctx, "1.2.3.4", 5, time.Minute)
	assert.False(t, ok, "sixth request within the window")

	ok, _ = l.Allow(ctx, "5.6.7.8", 5, time.Minute)
	assert.True(t, ok, "other clients have their own window")

	// 第一个请求滑出窗口后腾出一个名额
	clock.t = clock.t.Add(55 * time.Second)
	ok, _ = l.Allow(ctx, "1.2.3.4", 5, time.Minute)
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "1.2.3.4", 5, time.Minute)
	assert.False(t, ok)
}

func TestMemoryLimiter_RejectedRequestsDoNotCount(t *testing.T) {
	l, clock := newTestLimiter()
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		_, _ = l.Allow(ctx, "k", 2, time.Minute)
	}
	clock.t = clock.t.Add(time.Minute + time.Millisecond)
	ok, _ := l.Allow(ctx, "k", 2, time.Minute)
	assert.True(t, ok)
}

func TestMemoryLimiter_ResetAndSweep(t *testing.T) {
	l, clock := newTestLimiter()
	ctx := context.Background()

	_, _ = l.Allow(ctx, "k", 1, time.Minute)
	require.NoError(t, l.Reset(ctx, "k"))
	ok, _ := l.Allow(ctx, "k", 1, time.Minute)
	assert.True(t, ok)

	clock.t = clock.t.Add(2 * time.Minute)
	l.sweep(clock.t.Add(-time.Minute))
	assert.Empty(t, l.windows)
}

func TestMemoryLimiter_Concurrent(t *testing.T) {
	l := NewMemoryLimiter()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow(context.Background(), "k", 5, time.Minute); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 5, allowed)
}

func TestNew_SelectsBackend(t *testing.T) {
	l, err := New(&config.RateLimitConfig{Enabled: true, Backend: BackendMemory}, nil)
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, BackendName(l))

	l, err = New(&config.RateLimitConfig{Enabled: false, Backend: BackendRedis}, nil)
	require.NoError(t, err)
	assert.Equal(t, BackendNone, BackendName(l))

	_, err = New(&config.RateLimitConfig{Enabled: true, Backend: BackendRedis}, nil)
	assert.Error(t, err)

	_, err = New(&config.RateLimitConfig{Enabled: true, Backend: "bogus"}, nil)
	assert.Error(t, err)

	ok, err := NoopLimiter{}.Allow(context.Background(), "k", 0, 0)
	require.NoError(t, err)
	assert.True(t, ok)
}
