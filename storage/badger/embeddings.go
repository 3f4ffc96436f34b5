package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/noteseek/storage"
)

// EmbeddingRepository implements storage.EmbeddingStore for BadgerDB.
type EmbeddingRepository struct {
	backend *Backend
}

var _ storage.EmbeddingStore = (*EmbeddingRepository)(nil)

// NewEmbeddingRepository creates a new EmbeddingRepository.
func NewEmbeddingRepository(backend *Backend) *EmbeddingRepository {
	return &EmbeddingRepository{backend: backend}
}

// GetEmbedding returns the cached embedding for hash.
func (r *EmbeddingRepository) GetEmbedding(ctx context.Context, hash uint64) (*storage.CachedEmbedding, error) {
	var entry *storage.CachedEmbedding
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeEmbeddingKey(hash))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			entry, unmarshalErr = storage.UnmarshalCachedEmbedding(val)
			return unmarshalErr
		})
	}, false)
	return entry, err
}

// PutEmbedding stores entry under hash.
func (r *EmbeddingRepository) PutEmbedding(ctx context.Context, hash uint64, entry *storage.CachedEmbedding) error {
	return r.backend.WithTransaction(ctx, func(ctx context.Context, tx *badger.Txn) error {
		return tx.Set(makeEmbeddingKey(hash), storage.MarshalCachedEmbedding(entry))
	})
}

// PurgeEmbeddings deletes entries stored before cutoff.
func (r *EmbeddingRepository) PurgeEmbeddings(ctx context.Context, cutoff time.Time) (int, error) {
	var stale [][]byte
	err := r.backend.scanPrefix(ctx, []byte(embeddingPrefix), func(key, val []byte) error {
		entry, err := storage.UnmarshalCachedEmbedding(val)
		if err != nil || entry.StoredAt.Before(cutoff) {
			stale = append(stale, key)
		}
		return nil
	})
	if err != nil || len(stale) == 0 {
		return 0, err
	}

	err = r.backend.WithTransaction(ctx, func(ctx context.Context, tx *badger.Txn) error {
		for _, key := range stale {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(stale), nil
}
