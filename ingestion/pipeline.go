package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/noteseek/ai"
	"github.com/poiesic/noteseek/core"
	"github.com/poiesic/noteseek/storage"
)

const (
	DefaultChunkSize        = 1000
	DefaultMaxRetryAttempts = 3
	DefaultRetryBaseDelay   = 500 * time.Millisecond
)

// ProgressFunc is called after each document of a bulk index completes.
type ProgressFunc func(done, total int)

// Pipeline indexes documents into a vector store.
type Pipeline struct {
	embedder    ai.Embedder
	store       storage.VectorStore
	chunker     *Chunker
	pool        *ants.Pool
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent indexing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithRetry sets how often a chunk embedding is attempted and the base
// delay between attempts.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(p *Pipeline) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		p.maxAttempts = maxAttempts
		p.baseDelay = baseDelay
		return nil
	}
}

// WithChunking sets the chunk size and overlap in characters.
func WithChunking(size, overlap int) Option {
	return func(p *Pipeline) error {
		if size <= 0 || overlap < 0 || overlap >= size {
			return fmt.Errorf("invalid chunking: size %d, overlap %d", size, overlap)
		}
		p.chunker = NewChunker(size, overlap)
		return nil
	}
}

// NewPipeline creates a new indexing pipeline.
func NewPipeline(embedder ai.Embedder, store storage.VectorStore, opts ...Option) (*Pipeline, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if store == nil {
		return nil, ErrVectorStoreRequired
	}

	pool, err := ants.NewPool(max(1, runtime.NumCPU()/2))
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		embedder:    embedder,
		store:       store,
		chunker:     NewChunker(DefaultChunkSize, 0),
		pool:        pool,
		maxAttempts: DefaultMaxRetryAttempts,
		baseDelay:   DefaultRetryBaseDelay,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "ingestion")
	return p, nil
}

// Upsert replaces every vector of doc with freshly embedded chunks.
func (p *Pipeline) Upsert(ctx context.Context, doc core.Document) error {
	if err := core.ValidateDocument(&doc); err != nil {
		return err
	}

	chunks, err := p.chunker.Chunk(&doc)
	if err != nil {
		return fmt.Errorf("chunking %s: %w", doc.ID, err)
	}
	if len(chunks) == 0 {
		p.logger.Debug("document has no indexable text", "document", doc.ID)
		return p.Delete(ctx, doc.ID)
	}

	vectors := make([]core.EmbeddingVector, 0, len(chunks))
	var lastErr error
	for i, chunk := range chunks {
		var values []float32
		err := RetryWithBackoff(ctx, func() error {
			var embedErr error
			values, embedErr = p.embedder.EmbedText(ctx, embeddingText(&doc, chunk))
			return embedErr
		}, p.maxAttempts, p.baseDelay)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			p.logger.Warn("skipping chunk after failed embedding", "document", doc.ID, "chunk", i, "err", err)
			lastErr = err
			continue
		}
		vectors = append(vectors, core.EmbeddingVector{
			ID:     core.ChunkID(doc.ID, i),
			Values: values,
			Metadata: core.ChunkMetadata{
				DocumentID:   doc.ID,
				Title:        doc.Title,
				ContentChunk: chunk,
				SourceType:   doc.SourceType,
				CreatedAt:    doc.CreatedAt,
				ChunkIndex:   i,
				TotalChunks:  len(chunks),
			},
		})
	}
	if len(vectors) == 0 {
		return fmt.Errorf("%w: %s: %w", ErrNothingIndexed, doc.ID, lastErr)
	}

	if err := p.store.DeleteDocument(ctx, doc.ID); err != nil {
		return fmt.Errorf("clearing vectors of %s: %w", doc.ID, err)
	}
	if err := p.store.Upsert(ctx, vectors...); err != nil {
		return fmt.Errorf("storing vectors of %s: %w", doc.ID, err)
	}
	p.logger.Debug("indexed document", "document", doc.ID, "chunks", len(vectors), "skipped", len(chunks)-len(vectors))
	return nil
}

// embeddingText prefixes a chunk with its document title so that chunks
// deep in a long note still carry its subject.
func embeddingText(doc *core.Document, chunk string) string {
	if doc.Title == "" || doc.Title == chunk {
		return chunk
	}
	return doc.Title + "\n\n" + chunk
}

// Delete removes every vector of a document.
func (p *Pipeline) Delete(ctx context.Context, documentID string) error {
	if documentID == "" {
		return core.ErrEmptyID
	}
	if err := p.store.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("deleting vectors of %s: %w", documentID, err)
	}
	return nil
}

// IndexAll indexes docs on the worker pool and waits for completion. It
// returns the number of documents indexed and the joined errors of those
// that failed.
func (p *Pipeline) IndexAll(ctx context.Context, docs []core.Document, progress ProgressFunc) (int, error) {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		errs    []error
		done    int
		indexed int
	)

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
			break
		}
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			err := p.Upsert(ctx, doc)

			mu.Lock()
			defer mu.Unlock()
			done++
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", doc.ID, err))
			} else {
				indexed++
			}
			if progress != nil {
				progress(done, len(docs))
			}
		})
		if err != nil {
			wg.Done()
			mu.Lock()
			errs = append(errs, fmt.Errorf("submitting %s: %w", doc.ID, err))
			mu.Unlock()
		}
	}
	wg.Wait()

	if len(errs) > 0 {
		p.logger.Warn("bulk index finished with failures", "indexed", indexed, "failed", len(errs))
	}
	return indexed, errors.Join(errs...)
}

// Submit queues doc for background indexing. Failures are logged.
func (p *Pipeline) Submit(doc core.Document) error {
	return p.pool.Submit(func() {
		if err := p.Upsert(context.Background(), doc); err != nil {
			p.logger.Error("error indexing document", "document", doc.ID, "err", err)
		}
	})
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
