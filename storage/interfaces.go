package storage

import (
	"context"
	"time"

	"github.com/poiesic/noteseek/core"
)

// VectorStore persists chunk embeddings and answers nearest-neighbour queries.
type VectorStore interface {
	// Upsert inserts or replaces vectors by ID.
	Upsert(ctx context.Context, vectors ...core.EmbeddingVector) error

	// Query returns up to topK matches ordered by cosine similarity
	// (highest first). Scores are cosine similarities in [-1, 1].
	Query(ctx context.Context, vector []float32, topK int) ([]core.VectorMatch, error)

	// DeleteDocument removes every vector belonging to documentID.
	// Deleting an unknown document is not an error.
	DeleteDocument(ctx context.Context, documentID string) error

	// Count returns the number of stored vectors.
	Count(ctx context.Context) (int, error)

	// Close releases resources held by the store.
	Close() error
}

// CachedEmbedding is a persisted embedding with the time it was computed.
type CachedEmbedding struct {
	Vector   []float32
	StoredAt time.Time
}

// EmbeddingStore is a persistent second-level cache of embeddings keyed
// by content hash.
type EmbeddingStore interface {
	// GetEmbedding returns ErrNotFound when no entry exists for hash.
	GetEmbedding(ctx context.Context, hash uint64) (*CachedEmbedding, error)

	// PutEmbedding stores or replaces the entry for hash.
	PutEmbedding(ctx context.Context, hash uint64, entry *CachedEmbedding) error

	// PurgeEmbeddings deletes entries stored before cutoff and returns how
	// many were removed.
	PurgeEmbeddings(ctx context.Context, cutoff time.Time) (int, error)
}

// DocumentSource supplies the corpus snapshot searched by each query.
type DocumentSource interface {
	ListDocuments(ctx context.Context) ([]core.Document, error)
}

// DocumentStore is a DocumentSource that can also be written.
type DocumentStore interface {
	DocumentSource

	// PutDocuments inserts or replaces documents by ID.
	PutDocuments(ctx context.Context, docs ...core.Document) error

	// GetDocument returns ErrNotFound when the document does not exist.
	GetDocument(ctx context.Context, id string) (*core.Document, error)

	// DeleteDocument removes a document. Returns ErrNotFound if absent.
	DeleteDocument(ctx context.Context, id string) error
}

// IndexCheckpoint records progress of a full reindex so it can resume.
type IndexCheckpoint struct {
	Name           string
	EmbeddingModel string
	LastDocumentID string
	Processed      int
	UpdatedAt      time.Time
}

// CheckpointRepository persists reindex checkpoints.
type CheckpointRepository interface {
	// SaveCheckpoint stores the checkpoint under its Name.
	SaveCheckpoint(ctx context.Context, checkpoint *IndexCheckpoint) error

	// LoadCheckpoint returns nil, nil if no checkpoint exists.
	LoadCheckpoint(ctx context.Context, name string) (*IndexCheckpoint, error)

	// ClearCheckpoint removes the named checkpoint.
	ClearCheckpoint(ctx context.Context, name string) error
}
