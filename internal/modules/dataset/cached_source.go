package dataset

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aristath/portfolio-sim/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

type cacheEntry struct {
	series    domain.PriceSeries
	expiresAt time.Time
}

// CacheStats is a point-in-time view of the cache.
type CacheStats struct {
	Entries int   `json:"entries" msgpack:"entries"`
	Hits    int64 `json:"hits" msgpack:"hits"`
	Misses  int64 `json:"misses" msgpack:"misses"`
}

// CachedSource decorates a PriceSource with an in-memory TTL cache.
// Concurrent requests for the same window share one upstream fetch.
// Cached series are shared between callers and must not be modified.
type CachedSource struct {
	source domain.PriceSource
	ttl    time.Duration
	now    func() time.Time
	log    zerolog.Logger

	mu      sync.RWMutex
	entries map[string]cacheEntry
	group   singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCachedSource wraps source; entries live for ttl.
func NewCachedSource(source domain.PriceSource, ttl time.Duration, log zerolog.Logger) *CachedSource {
	return &CachedSource{
		source:  source,
		ttl:     ttl,
		now:     time.Now,
		log:     log.With().Str("component", "price_cache").Logger(),
		entries: make(map[string]cacheEntry),
	}
}

func cacheKey(ticker string, start, end time.Time) string {
	return fmt.Sprintf("%s|%s|%s", ticker, start.UTC().Format(domain.DateLayout), end.UTC().Format(domain.DateLayout))
}

// History implements domain.PriceSource.
func (c *CachedSource) History(ctx context.Context, ticker string, start, end time.Time) (domain.PriceSeries, error) {
	key := cacheKey(ticker, start, end)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && c.now().Before(entry.expiresAt) {
		c.hits.Add(1)
		return entry.series, nil
	}
	c.misses.Add(1)

	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		series, err := c.source.History(ctx, ticker, start, end)
		if err != nil {
			return nil, err
		}
		// Empty results are not cached so a later retry can succeed
		if len(series) > 0 {
			c.mu.Lock()
			c.entries[key] = cacheEntry{series: series, expiresAt: c.now().Add(c.ttl)}
			c.mu.Unlock()
		}
		return series, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.log.Debug().Str("ticker", ticker).Msg("Shared in-flight price fetch")
	}
	return v.(domain.PriceSeries), nil
}

// Purge removes expired entries and returns how many were dropped.
func (c *CachedSource) Purge() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Clear drops every entry.
func (c *CachedSource) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// Stats reports cache size and hit counters.
func (c *CachedSource) Stats() CacheStats {
	c.mu.RLock()
	n := len(c.entries)
	c.mu.RUnlock()
	return CacheStats{Entries: n, Hits: c.hits.Load(), Misses: c.misses.Load()}
}
