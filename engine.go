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

// Package noteseek wires the retrieval engine over a personal corpus of
// notes and saved videos.
package noteseek

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/noteseek/ai"
	"github.com/poiesic/noteseek/ai/openai"
	"github.com/poiesic/noteseek/cache"
	"github.com/poiesic/noteseek/config"
	"github.com/poiesic/noteseek/core"
	"github.com/poiesic/noteseek/embedding"
	"github.com/poiesic/noteseek/ingestion"
	"github.com/poiesic/noteseek/orchestrator"
	"github.com/poiesic/noteseek/prompt"
	"github.com/poiesic/noteseek/reindex"
	"github.com/poiesic/noteseek/search"
	"github.com/poiesic/noteseek/storage"
	"github.com/poiesic/noteseek/storage/badger"
	"github.com/poiesic/noteseek/validation"
)

// ErrCompletionFailed wraps failures of the answer model.
var ErrCompletionFailed = errors.New("completion failed")

// AnswerTemperature is the sampling temperature used by Ask.
const AnswerTemperature = 0.2

// Engine owns the index, the model clients and the search orchestrator.
type Engine struct {
	repos        *badger.Repositories
	vectors      storage.VectorStore
	source       storage.DocumentSource
	provider     ai.AIProvider
	ownsProvider bool
	embeddings   *embedding.Provider
	pipeline     *ingestion.Pipeline
	orchestrator *orchestrator.Orchestrator
	config       *config.Config
	logger       *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	config   *config.Config
	vectors  storage.VectorStore
	source   storage.DocumentSource
	provider ai.AIProvider
	monitor  orchestrator.Monitor
	logger   *slog.Logger
	inMemory bool
}

// WithConfig sets the retrieval configuration. Default is config.DefaultConfig().
func WithConfig(cfg *config.Config) EngineOption {
	return func(o *engineOptions) {
		o.config = cfg
	}
}

// WithVectorStore replaces the embedded BadgerDB vector index, for example
// with a pgvector store. The caller keeps ownership of the store.
func WithVectorStore(store storage.VectorStore) EngineOption {
	return func(o *engineOptions) {
		o.vectors = store
	}
}

// WithDocumentSource sets the corpus searched by each query. When the
// source is also a storage.DocumentStore, Index and Delete write through
// to it. Default is an empty in-memory store.
func WithDocumentSource(source storage.DocumentSource) EngineOption {
	return func(o *engineOptions) {
		o.source = source
	}
}

// WithAIProvider supplies the model clients. The caller keeps ownership.
// Default is an OpenAI-compatible provider built from the config.
func WithAIProvider(provider ai.AIProvider) EngineOption {
	return func(o *engineOptions) {
		o.provider = provider
	}
}

// WithMonitor observes the search state machine.
func WithMonitor(monitor orchestrator.Monitor) EngineOption {
	return func(o *engineOptions) {
		o.monitor = monitor
	}
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// WithInMemory keeps the index in memory. dbPath is ignored.
func WithInMemory() EngineOption {
	return func(o *engineOptions) {
		o.inMemory = true
	}
}

// NewEngine opens (or creates) the index at dbPath and wires the engine.
func NewEngine(dbPath string, opts ...EngineOption) (*Engine, error) {
	options := &engineOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.config == nil {
		options.config = config.DefaultConfig()
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if options.source == nil {
		options.source = storage.NewMemorySource()
	}
	cfg := options.config
	logger := options.logger

	repos, err := badger.OpenRepositories(dbPath, options.inMemory)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		repos:    repos,
		vectors:  options.vectors,
		source:   options.source,
		provider: options.provider,
		config:   cfg,
		logger:   logger.With("component", "engine"),
	}
	if e.vectors == nil {
		e.vectors = repos.Vectors
	}
	if e.provider == nil {
		provider, err := openai.NewProvider(&cfg.AI)
		if err != nil {
			repos.Close()
			return nil, err
		}
		e.provider = provider
		e.ownsProvider = true
	}

	if err := e.wire(cfg, logger, options.monitor); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

func (e *Engine) wire(cfg *config.Config, logger *slog.Logger, monitor orchestrator.Monitor) error {
	embeddings, err := embedding.NewProvider(e.provider.Embedder(),
		embedding.WithLogger(logger),
		embedding.WithModel(cfg.AI.EmbeddingModel),
		embedding.WithStore(e.repos.Embeddings),
		embedding.WithMaxInputChars(cfg.Embedding.MaxInputChars),
		embedding.WithCache(cfg.Embedding.CacheTTL, cfg.Embedding.CacheCapacity),
		embedding.WithTimeout(cfg.Timeouts.Embedding),
		embedding.WithRateLimit(cfg.Embedding.RequestsPerSecond, cfg.Embedding.Burst),
	)
	if err != nil {
		return err
	}
	e.embeddings = embeddings

	semantic, err := search.NewSemanticStrategy(embeddings, e.vectors, cfg.Semantic, cfg.Timeouts.VectorQuery,
		search.WithLogger(logger))
	if err != nil {
		return err
	}
	keyword, err := search.NewKeywordStrategy(cfg.Keyword, search.WithLogger(logger))
	if err != nil {
		return err
	}
	hybrid, err := search.NewHybridStrategy(semantic, keyword, cfg.Hybrid, search.WithLogger(logger))
	if err != nil {
		return err
	}

	validator, err := validation.NewValidator(cfg.Validator, validation.WithLogger(logger))
	if err != nil {
		return err
	}

	e.orchestrator, err = orchestrator.New(e.source,
		[]search.Strategy{semantic, keyword, hybrid},
		orchestrator.WithValidator(validator),
		orchestrator.WithCache(cache.New(cfg.Cache, cache.WithLogger(logger))),
		orchestrator.WithContextBuilder(prompt.NewContextBuilder(cfg.Context)),
		orchestrator.WithMonitor(monitor),
		orchestrator.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	e.pipeline, err = ingestion.NewPipeline(embeddings, e.vectors,
		ingestion.WithPoolSize(cfg.Indexing.PoolSize),
		ingestion.WithRetry(cfg.Indexing.MaxRetryAttempts, cfg.Indexing.RetryBaseDelay),
		ingestion.WithChunking(cfg.Semantic.ChunkSize, cfg.Semantic.ChunkOverlap),
		ingestion.WithLogger(logger),
	)
	return err
}

// Close releases the worker pool, the model clients the engine created
// and the index.
func (e *Engine) Close() error {
	if e.pipeline != nil {
		e.pipeline.Release()
	}
	if e.ownsProvider {
		if err := e.provider.Close(); err != nil {
			e.logger.Error("error closing AI provider", "err", err)
		}
	}
	if err := e.repos.Close(); err != nil {
		e.logger.Error("error closing index", "err", err)
		return err
	}
	return nil
}

// Config returns the active configuration.
func (e *Engine) Config() *config.Config {
	return e.config
}

// Search runs a request through the orchestrator.
func (e *Engine) Search(ctx context.Context, req orchestrator.Request) (*orchestrator.Response, error) {
	return e.orchestrator.Search(ctx, req)
}

// Cancel cancels the in-flight search of a session.
func (e *Engine) Cancel(sessionID string) bool {
	return e.orchestrator.Cancel(sessionID)
}

// BuildContext assembles model context for results.
func (e *Engine) BuildContext(results []core.SearchResult, query string) string {
	return e.orchestrator.BuildContext(results, query)
}

// CacheStats returns a snapshot of the result cache.
func (e *Engine) CacheStats() cache.Stats {
	return e.orchestrator.CacheStats()
}

// EmbeddingStats returns a snapshot of the embedding cache.
func (e *Engine) EmbeddingStats() embedding.Stats {
	return e.embeddings.Stats()
}

// PurgeEmbeddings removes expired persisted embeddings.
func (e *Engine) PurgeEmbeddings(ctx context.Context) (int, error) {
	return e.embeddings.Purge(ctx)
}

// IndexedChunks returns the number of vectors in the index, when the
// vector store can count them.
func (e *Engine) IndexedChunks(ctx context.Context) (int, error) {
	counter, ok := e.vectors.(interface {
		Count(ctx context.Context) (int, error)
	})
	if !ok {
		return 0, errors.ErrUnsupported
	}
	return counter.Count(ctx)
}

// Corpus returns the document source searched by the engine.
func (e *Engine) Corpus() storage.DocumentSource {
	return e.source
}

// Index stores doc (when the source is writable) and indexes its vectors.
func (e *Engine) Index(ctx context.Context, doc core.Document) error {
	if err := core.ValidateDocument(&doc); err != nil {
		return err
	}
	if store, ok := e.source.(storage.DocumentStore); ok {
		if err := store.PutDocuments(ctx, doc); err != nil {
			return fmt.Errorf("storing %s: %w", doc.ID, err)
		}
	}
	defer e.orchestrator.ClearCache()
	return e.pipeline.Upsert(ctx, doc)
}

// IndexAll stores and indexes docs on the worker pool. It returns the
// number of documents indexed. Invalid documents are reported in the
// joined error and never stored.
func (e *Engine) IndexAll(ctx context.Context, docs []core.Document, progress ingestion.ProgressFunc) (int, error) {
	if store, ok := e.source.(storage.DocumentStore); ok {
		valid := make([]core.Document, 0, len(docs))
		for _, d := range docs {
			if core.ValidateDocument(&d) == nil {
				valid = append(valid, d)
			}
		}
		if err := store.PutDocuments(ctx, valid...); err != nil {
			return 0, fmt.Errorf("storing documents: %w", err)
		}
	}
	defer e.orchestrator.ClearCache()
	return e.pipeline.IndexAll(ctx, docs, progress)
}

// IndexCorpus indexes every document of the source.
func (e *Engine) IndexCorpus(ctx context.Context, progress ingestion.ProgressFunc) (int, error) {
	docs, err := e.source.ListDocuments(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", orchestrator.ErrCorpusUnavailable, err)
	}
	defer e.orchestrator.ClearCache()
	return e.pipeline.IndexAll(ctx, docs, progress)
}

// Delete removes a document and its vectors.
func (e *Engine) Delete(ctx context.Context, documentID string) error {
	if store, ok := e.source.(storage.DocumentStore); ok {
		if err := store.DeleteDocument(ctx, documentID); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("deleting %s: %w", documentID, err)
		}
	}
	defer e.orchestrator.ClearCache()
	return e.pipeline.Delete(ctx, documentID)
}

// NewReindexer creates a resumable full rebuild of the vector index that
// reports progress to w.
func (e *Engine) NewReindexer(w io.Writer) (*reindex.Reindexer, error) {
	return reindex.NewReindexer(e.source, e.pipeline, &reindex.Config{
		BatchSize:      e.config.Indexing.BatchSize,
		EmbeddingModel: e.config.AI.EmbeddingModel,
	},
		reindex.WithCheckpoints(e.repos.Checkpoints),
		reindex.WithProgress(w),
		reindex.WithLogger(e.logger),
	)
}

// Answer is a grounded reply to a question.
type Answer struct {
	Text    string
	Sources []core.SearchResult
	// Grounded is false when no relevant content was found and the model
	// was not consulted.
	Grounded bool
	Usage    ai.Usage
	Metrics  orchestrator.Metrics
	Elapsed  time.Duration
}

// Ask answers question from the corpus. The model is only called when the
// search finds relevant content.
func (e *Engine) Ask(ctx context.Context, sessionID, question string) (*Answer, error) {
	start := time.Now()
	resp, err := e.orchestrator.Search(ctx, orchestrator.Request{
		SessionID: sessionID,
		Query:     question,
		Strategy:  core.SearchMethodHybrid,
	})
	if err != nil {
		return nil, err
	}

	answer := &Answer{Sources: resp.Results, Metrics: resp.Metrics}
	if resp.NoRelevantContent || resp.Context == "" {
		answer.Text = prompt.NoContextAnswer
		answer.Elapsed = time.Since(start)
		return answer, nil
	}

	cctx, cancel := context.WithTimeout(ctx, e.config.Timeouts.Completion)
	defer cancel()
	completion, err := e.provider.Completer().Complete(cctx, prompt.Answer(question, resp.Context), ai.CompletionOptions{
		Model:       e.config.AI.CompletionModel,
		Temperature: AnswerTemperature,
		MaxTokens:   e.config.AI.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompletionFailed, err)
	}

	answer.Text = completion.Text
	answer.Usage = completion.Usage
	answer.Grounded = true
	answer.Elapsed = time.Since(start)
	e.logger.Debug("answered question",
		"sources", len(resp.Results),
		"prompt_tokens", completion.Usage.PromptTokens,
		"elapsed", answer.Elapsed)
	return answer, nil
}
