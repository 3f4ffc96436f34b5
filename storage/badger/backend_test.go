package badger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/noteseek/core"
	"github.com/poiesic/noteseek/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend_InMemory(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestOpenBackend_FileSystem(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "db")
	backend, err := OpenBackend(dir, false)
	require.NoError(t, err)
	defer backend.Close()

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestOpenBackend_PathIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	_, err := OpenBackend(file, false)
	assert.Error(t, err)
}

func TestBackendClose(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)

	require.NoError(t, backend.Close())
	assert.True(t, backend.IsClosed())

	err = backend.WithTx(nil, false)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func vec(doc string, idx int, values ...float32) core.EmbeddingVector {
	return core.EmbeddingVector{
		ID:     core.ChunkID(doc, idx),
		Values: values,
		Metadata: core.ChunkMetadata{
			DocumentID:   doc,
			Title:        "title " + doc,
			ContentChunk: "chunk",
			SourceType:   core.SourceTypeNote,
			ChunkIndex:   idx,
			TotalChunks:  2,
		},
	}
}

func TestVectorRepository(t *testing.T) {
	repos, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	ctx := context.Background()
	store := repos.Vectors

	require.NoError(t, store.Upsert(ctx,
		vec("a", 0, 1, 0, 0),
		vec("a", 1, 0.9, 0.1, 0),
		vec("b", 0, 0, 0, 1),
		vec("a#b", 0, 0.5, 0.5, 0),
	))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	t.Run("query orders by cosine similarity", func(t *testing.T) {
		matches, err := store.Query(ctx, []float32{1, 0, 0}, 3)
		require.NoError(t, err)
		require.Len(t, matches, 3)
		assert.Equal(t, "a#0", matches[0].ID)
		assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
		assert.Equal(t, "a#1", matches[1].ID)
		assert.Equal(t, "a#b#0", matches[2].ID)
		assert.Equal(t, "a", matches[0].Metadata.DocumentID)
	})

	t.Run("mismatched dimensions are skipped", func(t *testing.T) {
		matches, err := store.Query(ctx, []float32{1, 0}, 10)
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("invalid arguments", func(t *testing.T) {
		_, err := store.Query(ctx, []float32{1, 0, 0}, 0)
		assert.ErrorIs(t, err, storage.ErrInvalidQuery)
		_, err = store.Query(ctx, nil, 1)
		assert.ErrorIs(t, err, storage.ErrInvalidQuery)
		assert.ErrorIs(t, store.Upsert(ctx, core.EmbeddingVector{ID: "x"}), storage.ErrInvalidQuery)
	})

	t.Run("upsert replaces by id", func(t *testing.T) {
		require.NoError(t, store.Upsert(ctx, vec("b", 0, 1, 0, 0)))
		count, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, count)
	})

	t.Run("delete document removes only its chunks", func(t *testing.T) {
		require.NoError(t, store.DeleteDocument(ctx, "a"))
		require.NoError(t, store.DeleteDocument(ctx, "missing"))

		matches, err := store.Query(ctx, []float32{1, 0, 0}, 10)
		require.NoError(t, err)
		ids := make([]string, 0, len(matches))
		for _, m := range matches {
			ids = append(ids, m.ID)
		}
		assert.ElementsMatch(t, []string{"b#0", "a#b#0"}, ids)
	})

	t.Run("cancelled query", func(t *testing.T) {
		many := make([]core.EmbeddingVector, 0, 600)
		for i := 0; i < 600; i++ {
			many = append(many, vec("bulk", i, 1, 1, 1))
		}
		require.NoError(t, store.Upsert(ctx, many...))

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := store.Query(cancelled, []float32{1, 0, 0}, 5)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestEmbeddingRepository(t *testing.T) {
	repos, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	ctx := context.Background()
	store := repos.Embeddings
	hash := core.ContentHash("hello")

	_, err = store.GetEmbedding(ctx, hash)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	old := time.Now().Add(-time.Hour).UTC()
	require.NoError(t, store.PutEmbedding(ctx, hash, &storage.CachedEmbedding{Vector: []float32{1, 2}, StoredAt: old}))
	require.NoError(t, store.PutEmbedding(ctx, 7, &storage.CachedEmbedding{Vector: []float32{3}, StoredAt: time.Now().UTC()}))

	got, err := store.GetEmbedding(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, got.Vector)

	removed, err := store.PurgeEmbeddings(ctx, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = store.GetEmbedding(ctx, hash)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = store.GetEmbedding(ctx, 7)
	assert.NoError(t, err)
}

func TestCheckpointRepository(t *testing.T) {
	repos, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	ctx := context.Background()
	store := repos.Checkpoints

	cp, err := store.LoadCheckpoint(ctx, "reindex")
	require.NoError(t, err)
	assert.Nil(t, cp)

	require.NoError(t, store.SaveCheckpoint(ctx, &storage.IndexCheckpoint{
		Name:           "reindex",
		EmbeddingModel: "m",
		LastDocumentID: "doc-3",
		Processed:      3,
	}))

	cp, err = store.LoadCheckpoint(ctx, "reindex")
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, "doc-3", cp.LastDocumentID)
	assert.Equal(t, 3, cp.Processed)
	assert.False(t, cp.UpdatedAt.IsZero())

	require.NoError(t, store.ClearCheckpoint(ctx, "reindex"))
	cp, err = store.LoadCheckpoint(ctx, "reindex")
	require.NoError(t, err)
	assert.Nil(t, cp)
}
