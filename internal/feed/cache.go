package feed

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DocumentFetcher retrieves the raw feed document.
type DocumentFetcher interface {
	FetchDocument(ctx context.Context) (string, error)
}

type pairKey struct {
	from     string
	to       string
	method   string
	location string
}

// Cache holds the current feed snapshot and its derived pair index. The
// snapshot is replaced wholesale on a successful refresh; a failed or empty
// refresh records the error and keeps the previous snapshot, so readers
// never observe a mix of old and new entries.
type Cache struct {
	fetcher DocumentFetcher
	ttl     time.Duration
	logger  zerolog.Logger

	mu         sync.RWMutex
	directions []Direction
	index      map[pairKey]Direction
	fetchedAt  time.Time
	lastErr    string
}

// NewCache constructs an empty cache over the given fetcher.
func NewCache(fetcher DocumentFetcher, ttl time.Duration, logger zerolog.Logger) *Cache {
	return &Cache{
		fetcher: fetcher,
		ttl:     ttl,
		logger:  logger.With().Str("component", "feed_cache").Logger(),
		index:   make(map[pairKey]Direction),
	}
}

// Fresh reports whether the snapshot is populated and within TTL.
func (c *Cache) Fresh() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.freshLocked()
}

func (c *Cache) freshLocked() bool {
	if len(c.directions) == 0 {
		return false
	}
	return time.Since(c.fetchedAt) < c.ttl
}

// Ensure refreshes the snapshot when stale. Concurrent callers serialize on
// the write lock; whoever loses the race finds a fresh snapshot and returns
// without a second fetch.
func (c *Cache) Ensure(ctx context.Context) {
	if c.Fresh() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.freshLocked() {
		return
	}
	c.refreshLocked(ctx)
}

// Refresh forces a fetch regardless of snapshot age.
func (c *Cache) Refresh(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshLocked(ctx)
}

func (c *Cache) refreshLocked(ctx context.Context) bool {
	document, err := c.fetcher.FetchDocument(ctx)
	if err != nil {
		c.lastErr = err.Error()
		c.logger.Warn().Err(err).Msg("feed fetch failed, keeping previous snapshot")
		return false
	}

	directions, err := ParseDocument(document)
	if err != nil {
		c.lastErr = err.Error()
		c.logger.Warn().Err(err).Msg("feed parse failed, keeping previous snapshot")
		return false
	}
	if len(directions) == 0 {
		c.lastErr = "feed document yielded no directions"
		c.logger.Warn().Msg("empty feed document, keeping previous snapshot")
		return false
	}

	c.directions = directions
	c.index = buildIndex(directions)
	c.fetchedAt = time.Now()
	c.lastErr = ""
	c.logger.Info().Int("directions", len(directions)).Msg("feed snapshot replaced")
	return true
}

// buildIndex derives the lookup structure: exact keys plus fallback entries
// without location and with the normalized RUB to-code. First match wins for
// fallbacks, matching the feed's document order.
func buildIndex(directions []Direction) map[pairKey]Direction {
	index := make(map[pairKey]Direction, len(directions)*2)
	for _, d := range directions {
		full := pairKey{from: d.FromCode, to: d.ToCode, method: d.Method, location: d.Location}
		index[full] = d

		noLocation := pairKey{from: d.FromCode, to: d.ToCode, method: d.Method}
		if _, ok := index[noLocation]; !ok {
			index[noLocation] = d
		}

		if normalized := d.NormalizedTo(); normalized != d.ToCode {
			key := pairKey{from: d.FromCode, to: normalized, method: d.Method, location: d.Location}
			if _, ok := index[key]; !ok {
				index[key] = d
			}
		}
	}
	return index
}

// Find looks up a direction trying location+method, then method only, then
// neither.
func (c *Cache) Find(from, to, method, location string) (Direction, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if location != "" {
		if d, ok := c.index[pairKey{from: from, to: to, method: method, location: location}]; ok {
			return d, true
		}
	}
	if d, ok := c.index[pairKey{from: from, to: to, method: method}]; ok {
		return d, true
	}
	if d, ok := c.index[pairKey{from: from, to: to}]; ok {
		return d, true
	}
	return Direction{}, false
}

// Directions returns a copy of the current snapshot.
func (c *Cache) Directions() []Direction {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Direction, len(c.directions))
	copy(out, c.directions)
	return out
}

// Info reports cache state for diagnostics.
type CacheInfo struct {
	Directions int
	Age        time.Duration
	Fresh      bool
	LastError  string
}

func (c *Cache) Info() CacheInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info := CacheInfo{
		Directions: len(c.directions),
		Fresh:      c.freshLocked(),
		LastError:  c.lastErr,
	}
	if !c.fetchedAt.IsZero() {
		info.Age = time.Since(c.fetchedAt)
	}
	return info
}
