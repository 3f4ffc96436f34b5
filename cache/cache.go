// Package cache holds recent search results keyed by query and strategy.
//
// Entries expire after a TTL. When a write pushes the cache past its
// capacity, only the best entries by (quality, age) are kept, down to a
// target size below capacity so that eviction does not run on every write.
package cache

import (
	"cmp"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/poiesic/noteseek/config"
	"github.com/poiesic/noteseek/core"
	"github.com/poiesic/noteseek/textproc"
)

type entry struct {
	key      string
	results  []core.SearchResult
	storedAt time.Time
	quality  float64
	strategy core.SearchMethod
}

// Stats describes the cache state.
type Stats struct {
	Size      int
	Capacity  int
	Target    int
	TTL       time.Duration
	Hits      int64
	Misses    int64
	Evictions int64
}

// ResultCache is a concurrency-safe TTL cache of search results.
type ResultCache struct {
	cfg    config.CacheConfig
	now    func() time.Time
	logger *slog.Logger

	mu        sync.Mutex
	entries   map[string]*entry
	hits      int64
	misses    int64
	evictions int64
}

// Option configures a ResultCache.
type Option func(*ResultCache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *ResultCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *ResultCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a cache. A target at or above capacity is lowered to
// capacity-1.
func New(cfg config.CacheConfig, opts ...Option) *ResultCache {
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	if cfg.Target >= cfg.Capacity || cfg.Target < 1 {
		cfg.Target = max(1, cfg.Capacity-1)
	}
	c := &ResultCache{
		cfg:     cfg,
		now:     time.Now,
		logger:  slog.Default(),
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "result-cache")
	return c
}

// Key returns the cache key for query under strategy.
func Key(query string, strategy core.SearchMethod) string {
	return NormalizeQuery(query) + "|" + string(strategy)
}

// NormalizeQuery lowercases query and collapses whitespace.
func NormalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// Get returns a copy of the cached results for query and strategy.
// Expired entries are evicted and reported as a miss.
func (c *ResultCache) Get(query string, strategy core.SearchMethod) ([]core.SearchResult, bool) {
	key := Key(query, strategy)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if ok && c.now().Sub(e.storedAt) >= c.cfg.TTL {
		delete(c.entries, key)
		ok = false
	}
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	return core.CloneResults(e.results), true
}

// Set stores a copy of results and returns the quality score assigned to
// them.
func (c *ResultCache) Set(query string, strategy core.SearchMethod, results []core.SearchResult) float64 {
	key := Key(query, strategy)
	quality := c.Quality(results)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &entry{
		key:      key,
		results:  core.CloneResults(results),
		storedAt: c.now(),
		quality:  quality,
		strategy: strategy,
	}
	if len(c.entries) > c.cfg.Capacity {
		c.evict()
	}
	return quality
}

// evict keeps the Target entries ranked highest by quality, then by
// recency. Caller must hold mu.
func (c *ResultCache) evict() {
	now := c.now()
	ranked := make([]*entry, 0, len(c.entries))
	for _, e := range c.entries {
		if now.Sub(e.storedAt) < c.cfg.TTL {
			ranked = append(ranked, e)
		}
	}
	slices.SortFunc(ranked, func(a, b *entry) int {
		if r := cmp.Compare(b.quality, a.quality); r != 0 {
			return r
		}
		if r := b.storedAt.Compare(a.storedAt); r != 0 {
			return r
		}
		return cmp.Compare(a.key, b.key)
	})
	if len(ranked) > c.cfg.Target {
		ranked = ranked[:c.cfg.Target]
	}

	before := len(c.entries)
	c.entries = make(map[string]*entry, len(ranked))
	for _, e := range ranked {
		c.entries[e.key] = e
	}
	c.evictions += int64(before - len(c.entries))
	c.logger.Debug("evicted cache entries", "before", before, "after", len(c.entries))
}

// Clear removes every entry.
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}

// Stats returns a snapshot of the cache state.
func (c *ResultCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Size:      len(c.entries),
		Capacity:  c.cfg.Capacity,
		Target:    c.cfg.Target,
		TTL:       c.cfg.TTL,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

// Quality scores a result set in [0,1] from its mean relevance, the
// diversity of its source types and how many results carry substantial
// content.
func (c *ResultCache) Quality(results []core.SearchResult) float64 {
	return Quality(c.cfg, results)
}

// Quality scores results using the weights in cfg.
func Quality(cfg config.CacheConfig, results []core.SearchResult) float64 {
	if len(results) == 0 {
		return 0
	}
	var relevance float64
	types := make(map[core.SourceType]bool)
	substantial := 0
	for _, r := range results {
		relevance += core.Clamp01(r.Relevance)
		types[r.SourceType] = true
		if textproc.RuneLen(r.Content) >= cfg.SubstantialContentChars {
			substantial++
		}
	}
	n := float64(len(results))
	diversity := 0.0
	if cfg.MaxSourceTypes > 0 {
		diversity = min(1, float64(len(types))/float64(cfg.MaxSourceTypes))
	}
	score := cfg.RelevanceWeight*(relevance/n) +
		cfg.DiversityWeight*diversity +
		cfg.ContentWeight*(float64(substantial)/n)
	return core.Clamp01(score)
}
