package camara

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 5, 17, 6, 0, 0, 0, time.UTC)}
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

func TestTokenCacheRefreshesAtSafetyMargin(t *testing.T) {
	clock := newFakeClock()
	var calls int32
	cache := newTokenCache(func(ctx context.Context, scope string) (string, time.Duration, error) {
		n := atomic.AddInt32(&calls, 1)
		return fmt.Sprintf("token-%d", n), 120 * time.Second, nil
	}, clock.Now)

	ctx := context.Background()
	first, err := cache.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "token-1", first)

	// Still live just before expiry minus the margin.
	clock.Advance(89 * time.Second)
	again, err := cache.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, first, again)

	// At expiry minus the margin the entry is no longer served.
	clock.Advance(1 * time.Second)
	refreshed, err := cache.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "token-2", refreshed)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestTokenCacheIsPerScope(t *testing.T) {
	var calls int32
	cache := newTokenCache(func(ctx context.Context, scope string) (string, time.Duration, error) {
		atomic.AddInt32(&calls, 1)
		return "token-" + scope, time.Hour, nil
	}, nil)

	a, err := cache.Get(context.Background(), "a")
	require.NoError(t, err)
	b, err := cache.Get(context.Background(), "b")
	require.NoError(t, err)

	assert.Equal(t, "token-a", a)
	assert.Equal(t, "token-b", b)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestTokenCacheSingleRefreshUnderConcurrency(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	cache := newTokenCache(func(ctx context.Context, scope string) (string, time.Duration, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "shared", time.Hour, nil
	}, nil)

	const callers = 25
	var wg sync.WaitGroup
	results := make([]string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, err := cache.Get(context.Background(), "scope")
			if err == nil {
				results[i] = tok
			}
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	for _, tok := range results {
		assert.Equal(t, "shared", tok)
	}
}

func TestTokenCacheDoesNotStoreFailures(t *testing.T) {
	var calls int32
	cache := newTokenCache(func(ctx context.Context, scope string) (string, time.Duration, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return "", 0, errors.New("endpoint down")
		}
		return "recovered", time.Hour, nil
	}, nil)

	_, err := cache.Get(context.Background(), "a")
	require.Error(t, err)

	tok, err := cache.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "recovered", tok)
}

func TestTokenCacheWaiterHonoursCancellation(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	cache := newTokenCache(func(ctx context.Context, scope string) (string, time.Duration, error) {
		<-release
		return "late", time.Hour, nil
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := cache.Get(ctx, "a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
