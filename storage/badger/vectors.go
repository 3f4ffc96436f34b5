package badger

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/noteseek/core"
	"github.com/poiesic/noteseek/storage"
)

// VectorRepository implements storage.VectorStore on BadgerDB with an
// exhaustive cosine scan. It suits personal corpora of a few hundred
// thousand chunks; larger deployments use storage/pgvector.
type VectorRepository struct {
	backend *Backend
}

var _ storage.VectorStore = (*VectorRepository)(nil)

// NewVectorRepository creates a new VectorRepository.
func NewVectorRepository(backend *Backend) *VectorRepository {
	return &VectorRepository{backend: backend}
}

// Upsert inserts or replaces vectors and maintains the document index.
func (r *VectorRepository) Upsert(ctx context.Context, vectors ...core.EmbeddingVector) error {
	if len(vectors) == 0 {
		return nil
	}
	return r.backend.WithTransaction(ctx, func(ctx context.Context, tx *badger.Txn) error {
		for i := range vectors {
			v := &vectors[i]
			if v.ID == "" || v.Metadata.DocumentID == "" {
				return fmt.Errorf("%w: vector without id or document id", storage.ErrInvalidQuery)
			}
			if err := tx.Set(makeVectorKey(v.ID), storage.MarshalEmbeddingVector(v)); err != nil {
				return err
			}
			if err := tx.Set(makeVectorDocKey(v.Metadata.DocumentID, v.ID), nil); err != nil {
				return err
			}
		}
		return nil
	})
}

// Query scans every stored vector and returns the topK most similar.
func (r *VectorRepository) Query(ctx context.Context, vector []float32, topK int) ([]core.VectorMatch, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: topK must be positive", storage.ErrInvalidQuery)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", storage.ErrInvalidQuery)
	}

	var matches []core.VectorMatch
	skipped := 0
	err := r.backend.scanPrefix(ctx, []byte(vectorPrefix), func(_, val []byte) error {
		stored, err := storage.UnmarshalEmbeddingVector(val)
		if err != nil {
			return err
		}
		if len(stored.Values) != len(vector) {
			skipped++
			return nil
		}
		matches = append(matches, core.VectorMatch{
			ID:       stored.ID,
			Score:    core.CosineSimilarity(vector, stored.Values),
			Metadata: stored.Metadata,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		r.backend.logger.Warn("skipped vectors with mismatched dimensions",
			"skipped", skipped, "query_dims", len(vector))
	}

	slices.SortFunc(matches, func(a, b core.VectorMatch) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// DeleteDocument removes all chunk vectors of documentID.
func (r *VectorRepository) DeleteDocument(ctx context.Context, documentID string) error {
	prefix := makePartialVectorDocKey(documentID)
	var chunkIDs []string
	err := r.backend.scanPrefix(ctx, prefix, func(key, _ []byte) error {
		id, err := chunkIDFromDocKey(key, documentID)
		if err != nil {
			return err
		}
		chunkIDs = append(chunkIDs, id)
		return nil
	})
	if err != nil || len(chunkIDs) == 0 {
		return err
	}

	return r.backend.WithTransaction(ctx, func(ctx context.Context, tx *badger.Txn) error {
		for _, id := range chunkIDs {
			if err := tx.Delete(makeVectorKey(id)); err != nil {
				return err
			}
			if err := tx.Delete(makeVectorDocKey(documentID, id)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Count returns the number of stored vectors.
func (r *VectorRepository) Count(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(vectorPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// Close is a no-op; the backend owns the database handle.
func (r *VectorRepository) Close() error {
	return nil
}
