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

package reindex

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/poiesic/noteseek/core"
	"github.com/poiesic/noteseek/ingestion"
	"github.com/poiesic/noteseek/storage"
)

// DefaultCheckpointName is the checkpoint key used by a full reindex.
const DefaultCheckpointName = "reindex"

var (
	ErrSourceRequired  = errors.New("document source is required")
	ErrIndexerRequired = errors.New("indexer is required")
)

// Indexer indexes a batch of documents. *ingestion.Pipeline satisfies it.
type Indexer interface {
	IndexAll(ctx context.Context, docs []core.Document, progress ingestion.ProgressFunc) (int, error)
}

// Config holds configuration for a reindex run.
type Config struct {
	// BatchSize is the number of documents indexed between checkpoints.
	BatchSize int

	// ReportInterval is how often to report progress (number of documents).
	ReportInterval int

	// EmbeddingModel identifies the model vectors are built with. A
	// checkpoint written for another model is discarded.
	EmbeddingModel string

	// CheckpointName is the key the checkpoint is stored under.
	CheckpointName string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      50,
		ReportInterval: 50,
		CheckpointName: DefaultCheckpointName,
	}
}

// Summary describes a completed run.
type Summary struct {
	Total   int
	Indexed int
	Failed  int
	// Resumed is the number of documents skipped because a checkpoint
	// showed them as already processed.
	Resumed int
	Elapsed time.Duration
}

// Reindexer rebuilds the vector index for every document of a source.
type Reindexer struct {
	source      storage.DocumentSource
	indexer     Indexer
	checkpoints storage.CheckpointRepository
	config      *Config
	progress    io.Writer
	logger      *slog.Logger
}

// Option configures a Reindexer.
type Option func(*Reindexer) error

// WithCheckpoints enables resumable runs.
func WithCheckpoints(repo storage.CheckpointRepository) Option {
	return func(r *Reindexer) error {
		r.checkpoints = repo
		return nil
	}
}

// WithProgress sets the writer progress lines are printed to.
func WithProgress(w io.Writer) Option {
	return func(r *Reindexer) error {
		r.progress = w
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reindexer) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger.With("component", "reindexer")
		return nil
	}
}

// NewReindexer creates a Reindexer. A nil config uses DefaultConfig.
func NewReindexer(source storage.DocumentSource, indexer Indexer, config *Config, opts ...Option) (*Reindexer, error) {
	if source == nil {
		return nil, ErrSourceRequired
	}
	if indexer == nil {
		return nil, ErrIndexerRequired
	}

	defaults := DefaultConfig()
	if config == nil {
		config = defaults
	}
	if config.BatchSize < 1 {
		config.BatchSize = defaults.BatchSize
	}
	if config.ReportInterval < 1 {
		config.ReportInterval = config.BatchSize
	}
	if config.CheckpointName == "" {
		config.CheckpointName = defaults.CheckpointName
	}

	r := &Reindexer{
		source:   source,
		indexer:  indexer,
		config:   config,
		progress: io.Discard,
		logger:   slog.Default().With("component", "reindexer"),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Run reindexes the corpus. Documents that fail to index are counted and
// logged but do not stop the run. Cancellation stops it after the current
// batch, leaving the last checkpoint in place.
func (r *Reindexer) Run(ctx context.Context) (*Summary, error) {
	docs, err := r.source.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	slices.SortFunc(docs, func(a, b core.Document) int { return cmp.Compare(a.ID, b.ID) })

	summary := &Summary{Total: len(docs)}
	if len(docs) == 0 {
		fmt.Fprintf(r.progress, "No documents to reindex\n")
		return summary, r.clearCheckpoint(ctx)
	}

	checkpoint, err := r.loadCheckpoint(ctx)
	if err != nil {
		return nil, err
	}
	remaining := docs
	if checkpoint != nil {
		pos, _ := slices.BinarySearchFunc(docs, checkpoint.LastDocumentID, func(d core.Document, id string) int {
			return cmp.Compare(d.ID, id)
		})
		if pos < len(docs) && docs[pos].ID == checkpoint.LastDocumentID {
			pos++
		}
		remaining = docs[pos:]
		summary.Resumed = pos
		r.logger.Info("resuming reindex", "after", checkpoint.LastDocumentID, "skipped", pos)
	}

	fmt.Fprintf(r.progress, "Reindexing %d documents (batch size: %d)\n", len(remaining), r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, len(docs), r.config.ReportInterval)
	tracker.Start(summary.Resumed)

	processed := summary.Resumed
	for batch := range slices.Chunk(remaining, r.config.BatchSize) {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		indexed, err := r.indexer.IndexAll(ctx, batch, nil)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return summary, ctxErr
		}
		summary.Indexed += indexed
		summary.Failed += len(batch) - indexed
		if err != nil {
			r.logger.Warn("batch finished with failures", "failed", len(batch)-indexed, "err", err)
		}

		processed += len(batch)
		tracker.Update(processed)

		if err := r.saveCheckpoint(ctx, batch[len(batch)-1].ID, processed); err != nil {
			return summary, err
		}
	}

	tracker.Finish()
	summary.Elapsed = tracker.Elapsed()

	if err := r.clearCheckpoint(ctx); err != nil {
		return summary, err
	}

	fmt.Fprintf(r.progress, "Reindex complete. Indexed %d of %d documents in %v (%d failed)\n",
		summary.Indexed, summary.Total, summary.Elapsed.Round(time.Millisecond), summary.Failed)
	return summary, nil
}

func (r *Reindexer) loadCheckpoint(ctx context.Context) (*storage.IndexCheckpoint, error) {
	if r.checkpoints == nil {
		return nil, nil
	}
	cp, err := r.checkpoints.LoadCheckpoint(ctx, r.config.CheckpointName)
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if cp != nil && cp.EmbeddingModel != r.config.EmbeddingModel {
		r.logger.Info("discarding checkpoint for different embedding model",
			"checkpoint_model", cp.EmbeddingModel, "model", r.config.EmbeddingModel)
		return nil, nil
	}
	return cp, nil
}

func (r *Reindexer) saveCheckpoint(ctx context.Context, lastID string, processed int) error {
	if r.checkpoints == nil {
		return nil
	}
	err := r.checkpoints.SaveCheckpoint(ctx, &storage.IndexCheckpoint{
		Name:           r.config.CheckpointName,
		EmbeddingModel: r.config.EmbeddingModel,
		LastDocumentID: lastID,
		Processed:      processed,
	})
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

func (r *Reindexer) clearCheckpoint(ctx context.Context) error {
	if r.checkpoints == nil {
		return nil
	}
	if err := r.checkpoints.ClearCheckpoint(ctx, r.config.CheckpointName); err != nil {
		return fmt.Errorf("failed to clear checkpoint: %w", err)
	}
	return nil
}
