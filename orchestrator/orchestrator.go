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

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/poiesic/noteseek/cache"
	"github.com/poiesic/noteseek/config"
	"github.com/poiesic/noteseek/core"
	"github.com/poiesic/noteseek/prompt"
	"github.com/poiesic/noteseek/search"
	"github.com/poiesic/noteseek/storage"
	"github.com/poiesic/noteseek/validation"
)

// Request is one search submitted by a caller.
type Request struct {
	// SessionID scopes cancellation. Empty disables superseding.
	SessionID string
	Query     string
	// Strategy selects the search method. Empty means hybrid.
	Strategy core.SearchMethod
}

// Metrics describes how a response was produced.
type Metrics struct {
	SearchTimeMs     int64
	ResultCount      int
	Strategy         core.SearchMethod
	CacheHit         bool
	QualityScore     float64
	SemanticDegraded bool
	// Coalesced is set when the response shares another request's search.
	Coalesced bool
	Rejected  int
}

// Response is the outcome of a successful request.
type Response struct {
	Results []core.SearchResult
	Context string
	Metrics Metrics
	// NoRelevantContent is set when the search completed without results.
	NoRelevantContent bool
}

// outcome is the shareable product of one search run.
type outcome struct {
	results  []core.SearchResult
	quality  float64
	degraded bool
	rejected int
}

type session struct {
	seq    uint64
	cancel context.CancelFunc
}

// Orchestrator runs search requests against a document source.
type Orchestrator struct {
	source     storage.DocumentSource
	strategies map[core.SearchMethod]search.Strategy
	validator  *validation.Validator
	cache      *cache.ResultCache
	builder    *prompt.ContextBuilder
	monitor    Monitor
	logger     *slog.Logger
	now        func() time.Time

	group singleflight.Group

	mu       sync.Mutex
	sessions map[string]*session
	seq      uint64
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithValidator enables entity validation and re-ranking of results.
func WithValidator(v *validation.Validator) Option {
	return func(o *Orchestrator) error {
		o.validator = v
		return nil
	}
}

// WithCache replaces the default result cache.
func WithCache(c *cache.ResultCache) Option {
	return func(o *Orchestrator) error {
		if c != nil {
			o.cache = c
		}
		return nil
	}
}

// WithContextBuilder replaces the default context builder.
func WithContextBuilder(b *prompt.ContextBuilder) Option {
	return func(o *Orchestrator) error {
		if b != nil {
			o.builder = b
		}
		return nil
	}
}

// WithMonitor attaches a state machine observer.
func WithMonitor(m Monitor) Option {
	return func(o *Orchestrator) error {
		if m == nil {
			m = &noopMonitor{}
		}
		o.monitor = m
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger.With("component", "orchestrator")
		return nil
	}
}

// WithClock sets the time source used for metrics.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) error {
		if now != nil {
			o.now = now
		}
		return nil
	}
}

// New creates an Orchestrator serving the given strategies. Strategies are
// keyed by their Method; a later strategy replaces an earlier one with the
// same method.
func New(source storage.DocumentSource, strategies []search.Strategy, opts ...Option) (*Orchestrator, error) {
	if source == nil {
		return nil, ErrSourceRequired
	}
	if len(strategies) == 0 {
		return nil, ErrStrategyRequired
	}

	defaults := config.DefaultConfig()
	o := &Orchestrator{
		source:     source,
		strategies: make(map[core.SearchMethod]search.Strategy, len(strategies)),
		cache:      cache.New(defaults.Cache),
		builder:    prompt.NewContextBuilder(defaults.Context),
		monitor:    &noopMonitor{},
		logger:     slog.Default().With("component", "orchestrator"),
		now:        time.Now,
		sessions:   make(map[string]*session),
	}
	for _, s := range strategies {
		if s == nil {
			return nil, ErrStrategyRequired
		}
		o.strategies[s.Method()] = s
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Search runs one request through the state machine.
//
// An empty query completes immediately with no results and touches neither
// the cache nor any backend. Errors wrap ErrCorpusUnavailable,
// ErrAllStrategiesFailed or ErrCancelled.
func (o *Orchestrator) Search(ctx context.Context, req Request) (*Response, error) {
	start := o.now()
	method := req.Strategy
	if method == "" {
		method = core.SearchMethodHybrid
	}
	strategy, ok := o.strategies[method]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not configured", core.ErrInvalidSearchMethod, method)
	}

	t := &tracker{monitor: o.monitor, sessionID: req.SessionID, state: StateIdle}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		t.to(StateDone)
		return &Response{
			Results:           []core.SearchResult{},
			Metrics:           Metrics{Strategy: method},
			NoRelevantContent: true,
		}, nil
	}

	ctx, release := o.begin(ctx, req.SessionID)
	defer release()

	resp := &Response{Metrics: Metrics{Strategy: method}}
	var out *outcome

	t.to(StateCacheCheck)
	if cached, hit := o.cache.Get(query, method); hit {
		t.to(StateCacheHit)
		out = &outcome{results: cached, quality: o.cache.Quality(cached)}
		resp.Metrics.CacheHit = true
	} else {
		t.to(StateCacheMiss)
		var coalesced bool
		var err error
		out, coalesced, err = o.coalesce(ctx, query, strategy, t)
		if err != nil {
			return nil, o.fail(ctx, t, query, err)
		}
		resp.Metrics.Coalesced = coalesced
	}

	t.to(StateContextBuild)
	resp.Results = out.results
	resp.Context = o.builder.Build(out.results, query, out.quality)
	resp.NoRelevantContent = len(out.results) == 0
	resp.Metrics.ResultCount = len(out.results)
	resp.Metrics.QualityScore = out.quality
	resp.Metrics.SemanticDegraded = out.degraded
	resp.Metrics.Rejected = out.rejected
	resp.Metrics.SearchTimeMs = o.now().Sub(start).Milliseconds()
	t.to(StateDone)

	o.logger.Debug("search complete",
		"query", query,
		"strategy", method,
		"results", resp.Metrics.ResultCount,
		"cache_hit", resp.Metrics.CacheHit,
		"coalesced", resp.Metrics.Coalesced,
		"degraded", resp.Metrics.SemanticDegraded)
	return resp, nil
}

// coalesce shares one run among identical concurrent misses. A waiter whose
// leader was cancelled retries with its own context.
func (o *Orchestrator) coalesce(ctx context.Context, query string, strategy search.Strategy, t *tracker) (*outcome, bool, error) {
	key := cache.Key(query, strategy.Method())
	for {
		led := false
		v, err, _ := o.group.Do(key, func() (any, error) {
			led = true
			return o.run(ctx, query, strategy, t)
		})
		if err != nil {
			if !led && ctx.Err() == nil && isCancellation(err) {
				continue
			}
			return nil, !led, err
		}

		shared := v.(*outcome)
		out := *shared
		out.results = core.CloneResults(shared.results)
		if out.results == nil {
			out.results = []core.SearchResult{}
		}
		return &out, !led, nil
	}
}

// run performs the search, validation and cache store steps of a miss.
func (o *Orchestrator) run(ctx context.Context, query string, strategy search.Strategy, t *tracker) (*outcome, error) {
	t.to(StateSearching)
	corpus, err := o.source.ListDocuments(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", ErrCorpusUnavailable, err)
	}

	report := strategy.Run(ctx, corpus, query)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if report.Failed() {
		return nil, report.Err()
	}

	t.to(StateMerging)
	results := report.Results
	if results == nil {
		results = []core.SearchResult{}
	}

	t.to(StateValidating)
	var rejected int
	if o.validator != nil {
		analysis := o.validator.Analyze(query)
		var rejections []validation.Rejection
		results, rejections = o.validator.Rerank(results, &analysis)
		rejected = len(rejections)
		if rejected > 0 {
			o.monitor.Rejected(t.sessionID, rejections)
		}
	}

	// A cancelled run must not reach shared state.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := &outcome{results: results, degraded: report.Degraded(), rejected: rejected}
	if len(results) > 0 {
		t.to(StateCacheStore)
		out.quality = o.cache.Set(query, strategy.Method(), results)
	} else {
		out.quality = o.cache.Quality(results)
	}
	return out, nil
}

func (o *Orchestrator) fail(ctx context.Context, t *tracker, query string, err error) error {
	if ctx.Err() != nil {
		t.to(StateCancelled)
		o.logger.Debug("search cancelled", "query", query, "session", t.sessionID)
		if errors.Is(err, ErrCancelled) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	t.to(StateFailed)
	o.logger.Error("search failed", "query", query, "session", t.sessionID, "err", err)
	return err
}

// isCancellation reports whether err is a bare context error from a run
// that was cancelled, as opposed to a search fault.
func isCancellation(err error) bool {
	if errors.Is(err, ErrAllStrategiesFailed) || errors.Is(err, ErrCorpusUnavailable) {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// begin registers a request for sessionID, cancelling the session's
// previous request. The returned release must be called when the request ends.
func (o *Orchestrator) begin(parent context.Context, sessionID string) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	if sessionID == "" {
		return ctx, cancel
	}

	o.mu.Lock()
	o.seq++
	seq := o.seq
	if prev, ok := o.sessions[sessionID]; ok {
		prev.cancel()
		o.logger.Debug("superseding in-flight request", "session", sessionID)
	}
	o.sessions[sessionID] = &session{seq: seq, cancel: cancel}
	o.mu.Unlock()

	return ctx, func() {
		o.mu.Lock()
		if s, ok := o.sessions[sessionID]; ok && s.seq == seq {
			delete(o.sessions, sessionID)
		}
		o.mu.Unlock()
		cancel()
	}
}

// Cancel cancels the in-flight request of sessionID. It reports whether a
// request was cancelled.
func (o *Orchestrator) Cancel(sessionID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.sessions[sessionID]
	if !ok {
		return false
	}
	s.cancel()
	delete(o.sessions, sessionID)
	return true
}

// BuildContext assembles model context for results, sizing the budget by
// their quality.
func (o *Orchestrator) BuildContext(results []core.SearchResult, query string) string {
	return o.builder.Build(results, query, o.cache.Quality(results))
}

// CacheStats returns a snapshot of the result cache.
func (o *Orchestrator) CacheStats() cache.Stats {
	return o.cache.Stats()
}

// ClearCache drops every cached result.
func (o *Orchestrator) ClearCache() {
	o.cache.Clear()
}
