package camara

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// TokenSafetyMargin is how long before expiry a cached token stops being served.
const TokenSafetyMargin = 30 * time.Second

const defaultTokenTTL = 3600 * time.Second

// TokenEntry is one cached bearer token
type TokenEntry struct {
	AccessToken string
	ExpiresAt   time.Time
	ScopeKey    string
}

// fetchTokenFunc performs the actual token acquisition for a canonical scope key.
type fetchTokenFunc func(ctx context.Context, scopeKey string) (accessToken string, ttl time.Duration, err error)

// tokenCache caches tokens per scope key. At most one fetch runs per scope;
// concurrent callers for the same scope share its result. The mutex only
// guards the map, never a fetch.
type tokenCache struct {
	mu      sync.Mutex
	entries map[string]TokenEntry
	group   singleflight.Group
	now     func() time.Time
	fetch   fetchTokenFunc
	onFetch func()
}

func newTokenCache(fetch fetchTokenFunc, now func() time.Time) *tokenCache {
	if now == nil {
		now = time.Now
	}
	return &tokenCache{
		entries: make(map[string]TokenEntry),
		now:     now,
		fetch:   fetch,
	}
}

// lookup returns the entry for key if it expires more than the safety margin from now
func (c *tokenCache) lookup(key string) (TokenEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok || !entry.ExpiresAt.After(c.now().Add(TokenSafetyMargin)) {
		return TokenEntry{}, false
	}
	return entry, true
}

func (c *tokenCache) store(entry TokenEntry) {
	c.mu.Lock()
	c.entries[entry.ScopeKey] = entry
	c.mu.Unlock()
}

// Get returns a live token for key, fetching one if needed.
func (c *tokenCache) Get(ctx context.Context, key string) (string, error) {
	if entry, ok := c.lookup(key); ok {
		return entry.AccessToken, nil
	}

	// The shared fetch must not die with whichever caller started it.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		if entry, ok := c.lookup(key); ok {
			return entry.AccessToken, nil
		}
		if c.onFetch != nil {
			c.onFetch()
		}

		issuedAt := c.now()
		token, ttl, err := c.fetch(fetchCtx, key)
		if err != nil {
			return "", err
		}
		if ttl <= 0 {
			ttl = defaultTokenTTL
		}
		c.store(TokenEntry{
			AccessToken: token,
			ExpiresAt:   issuedAt.Add(ttl),
			ScopeKey:    key,
		})
		return token, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
