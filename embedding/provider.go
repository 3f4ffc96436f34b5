// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/poiesic/noteseek/ai"
	"github.com/poiesic/noteseek/core"
	"github.com/poiesic/noteseek/storage"
	"github.com/poiesic/noteseek/textproc"
)

const (
	DefaultMaxInputChars = 8000
	DefaultCacheTTL      = 30 * time.Minute
	DefaultCacheCapacity = 2000
	DefaultTimeout       = 10 * time.Second
)

type cacheEntry struct {
	vector   []float32
	storedAt time.Time
}

// Stats reports cache effectiveness.
type Stats struct {
	Size       int
	Capacity   int
	Hits       int64
	Misses     int64
	ModelCalls int64
}

// Provider embeds text with caching, throttling and timeouts.
type Provider struct {
	embedder ai.Embedder
	store    storage.EmbeddingStore
	limiter  *rate.Limiter
	logger   *slog.Logger
	now      func() time.Time
	model    string

	maxInputChars int
	ttl           time.Duration
	capacity      int
	timeout       time.Duration

	mu      sync.Mutex
	entries map[uint64]cacheEntry

	hits       atomic.Int64
	misses     atomic.Int64
	modelCalls atomic.Int64
}

var _ ai.Embedder = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider) error

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithModel scopes cache keys to the embedding model so vectors persisted
// for one model are never served for another.
func WithModel(name string) Option {
	return func(p *Provider) error {
		p.model = name
		return nil
	}
}

// WithStore adds a persistent second-level cache.
func WithStore(store storage.EmbeddingStore) Option {
	return func(p *Provider) error {
		p.store = store
		return nil
	}
}

// WithClock replaces time.Now for cache expiry.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) error {
		if now == nil {
			return errors.New("clock must not be nil")
		}
		p.now = now
		return nil
	}
}

// WithMaxInputChars sets the truncation limit in characters.
func WithMaxInputChars(n int) Option {
	return func(p *Provider) error {
		if n <= 0 {
			return fmt.Errorf("max input chars must be positive, got %d", n)
		}
		p.maxInputChars = n
		return nil
	}
}

// WithCache sets the cache TTL and capacity.
func WithCache(ttl time.Duration, capacity int) Option {
	return func(p *Provider) error {
		if ttl <= 0 || capacity <= 0 {
			return fmt.Errorf("cache ttl and capacity must be positive")
		}
		p.ttl = ttl
		p.capacity = capacity
		return nil
	}
}

// WithTimeout bounds every model call.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) error {
		p.timeout = d
		return nil
	}
}

// WithRateLimit throttles model calls with a token bucket. A zero rate
// disables throttling.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(p *Provider) error {
		if perSecond <= 0 {
			p.limiter = nil
			return nil
		}
		p.limiter = rate.NewLimiter(rate.Limit(perSecond), max(1, burst))
		return nil
	}
}

// NewProvider wraps embedder.
func NewProvider(embedder ai.Embedder, opts ...Option) (*Provider, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	p := &Provider{
		embedder:      embedder,
		logger:        slog.Default(),
		now:           time.Now,
		maxInputChars: DefaultMaxInputChars,
		ttl:           DefaultCacheTTL,
		capacity:      DefaultCacheCapacity,
		timeout:       DefaultTimeout,
		entries:       make(map[uint64]cacheEntry),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.logger = p.logger.With("component", "embedding-provider")
	return p, nil
}

// Embed returns the embedding for text, serving it from cache when a
// fresh entry exists.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text = textproc.Truncate(text, p.maxInputChars)
	hash := p.hash(text)

	if vec, ok := p.lookup(ctx, hash); ok {
		return vec, nil
	}

	if err := p.wait(ctx, "embed", 1); err != nil {
		return nil, err
	}
	callCtx, cancel := p.callContext(ctx)
	defer cancel()

	p.modelCalls.Add(1)
	vec, err := p.embedder.EmbedText(callCtx, text)
	if err != nil {
		return nil, &EmbeddingError{Op: "embed", Inputs: 1, Err: err}
	}
	if len(vec) == 0 {
		return nil, &EmbeddingError{Op: "embed", Inputs: 1, Err: ErrEmptyEmbedding}
	}
	p.remember(ctx, hash, vec)
	return slices.Clone(vec), nil
}

// EmbedBatch embeds texts in one model call for the entries not already
// cached. Results are returned in input order.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	hashes := make([]uint64, len(texts))

	var missing []string
	pending := make(map[uint64][]int)
	for i, text := range texts {
		text = textproc.Truncate(text, p.maxInputChars)
		hashes[i] = p.hash(text)
		if vec, ok := p.lookup(ctx, hashes[i]); ok {
			out[i] = vec
			continue
		}
		if _, seen := pending[hashes[i]]; !seen {
			missing = append(missing, text)
		}
		pending[hashes[i]] = append(pending[hashes[i]], i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	if err := p.wait(ctx, "embed_batch", len(missing)); err != nil {
		return nil, err
	}
	callCtx, cancel := p.callContext(ctx)
	defer cancel()

	p.modelCalls.Add(1)
	vecs, err := p.embedder.EmbedTexts(callCtx, missing)
	if err != nil {
		return nil, &EmbeddingError{Op: "embed_batch", Inputs: len(missing), Err: err}
	}
	if len(vecs) != len(missing) {
		return nil, &EmbeddingError{
			Op:     "embed_batch",
			Inputs: len(missing),
			Err:    fmt.Errorf("%w: expected %d, received %d", ErrBatchMismatch, len(missing), len(vecs)),
		}
	}

	for j, text := range missing {
		if len(vecs[j]) == 0 {
			return nil, &EmbeddingError{Op: "embed_batch", Inputs: len(missing), Err: ErrEmptyEmbedding}
		}
		hash := p.hash(text)
		p.remember(ctx, hash, vecs[j])
		for _, i := range pending[hash] {
			out[i] = slices.Clone(vecs[j])
		}
	}
	return out, nil
}

// EmbedText implements ai.Embedder.
func (p *Provider) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return p.Embed(ctx, text)
}

// EmbedTexts implements ai.Embedder.
func (p *Provider) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	return p.EmbedBatch(ctx, texts)
}

// Stats returns a snapshot of cache counters.
func (p *Provider) Stats() Stats {
	p.mu.Lock()
	size := len(p.entries)
	p.mu.Unlock()
	return Stats{
		Size:       size,
		Capacity:   p.capacity,
		Hits:       p.hits.Load(),
		Misses:     p.misses.Load(),
		ModelCalls: p.modelCalls.Load(),
	}
}

// Purge drops expired entries from memory and from the persistent store.
func (p *Provider) Purge(ctx context.Context) (int, error) {
	cutoff := p.now().Add(-p.ttl)
	removed := 0

	p.mu.Lock()
	for hash, e := range p.entries {
		if !e.storedAt.After(cutoff) {
			delete(p.entries, hash)
			removed++
		}
	}
	p.mu.Unlock()

	if p.store == nil {
		return removed, nil
	}
	n, err := p.store.PurgeEmbeddings(ctx, cutoff)
	if err != nil {
		return removed, fmt.Errorf("purging embedding store: %w", err)
	}
	return removed + n, nil
}

func (p *Provider) hash(text string) uint64 {
	if p.model == "" {
		return core.ContentHash(text)
	}
	return core.ContentHash(p.model + "\x00" + text)
}

func (p *Provider) fresh(storedAt time.Time) bool {
	return p.now().Sub(storedAt) < p.ttl
}

func (p *Provider) lookup(ctx context.Context, hash uint64) ([]float32, bool) {
	p.mu.Lock()
	e, ok := p.entries[hash]
	if ok && !p.fresh(e.storedAt) {
		delete(p.entries, hash)
		ok = false
	}
	p.mu.Unlock()
	if ok {
		p.hits.Add(1)
		return slices.Clone(e.vector), true
	}

	if p.store != nil {
		cached, err := p.store.GetEmbedding(ctx, hash)
		switch {
		case err == nil && p.fresh(cached.StoredAt):
			p.insert(hash, cacheEntry{vector: cached.Vector, storedAt: cached.StoredAt})
			p.hits.Add(1)
			return slices.Clone(cached.Vector), true
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			p.logger.Warn("embedding store lookup failed", "err", err)
		}
	}

	p.misses.Add(1)
	return nil, false
}

func (p *Provider) remember(ctx context.Context, hash uint64, vec []float32) {
	entry := cacheEntry{vector: slices.Clone(vec), storedAt: p.now()}
	p.insert(hash, entry)

	if p.store == nil {
		return
	}
	err := p.store.PutEmbedding(ctx, hash, &storage.CachedEmbedding{Vector: entry.vector, StoredAt: entry.storedAt})
	if err != nil {
		p.logger.Warn("persisting embedding failed", "err", err)
	}
}

// insert adds an entry, evicting the oldest entries when full.
func (p *Provider) insert(hash uint64, entry cacheEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.entries[hash]; !exists {
		for len(p.entries) >= p.capacity {
			var oldestHash uint64
			var oldest time.Time
			first := true
			for h, e := range p.entries {
				if first || e.storedAt.Before(oldest) {
					oldestHash, oldest, first = h, e.storedAt, false
				}
			}
			delete(p.entries, oldestHash)
		}
	}
	p.entries[hash] = entry
}

func (p *Provider) wait(ctx context.Context, op string, inputs int) error {
	if p.limiter == nil {
		return nil
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return &EmbeddingError{Op: op, Inputs: inputs, Err: err}
	}
	return nil
}

func (p *Provider) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.timeout)
}
