package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/noteseek/core"
	"github.com/poiesic/noteseek/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.PutEntries(ctx,
		Entry{
			Document: core.Document{ID: "n1", Title: "Knots", Content: "<p>Figure <b>eight</b></p><p>Bowline</p>", SourceType: core.SourceTypeNote, CreatedAt: created},
			Format:   FormatHTML,
		},
		Entry{
			Document: core.Document{ID: "v1", Title: "Podcast", SourceType: core.SourceTypeVideo, CreatedAt: created, ChannelName: "PowerfulJRE", VideoID: "abc"},
		},
	))

	docs, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "n1", docs[0].ID)
	assert.Equal(t, "Figure eight\nBowline", docs[0].Content)
	assert.True(t, created.Equal(docs[0].CreatedAt))

	assert.Equal(t, "PowerfulJRE", docs[1].ChannelName)
	assert.Equal(t, "abc", docs[1].VideoID)
	assert.Empty(t, docs[1].Content)

	t.Run("upsert replaces", func(t *testing.T) {
		require.NoError(t, store.PutDocuments(ctx, core.Document{ID: "v1", Title: "Renamed", SourceType: core.SourceTypeVideo, CreatedAt: created}))
		doc, err := store.GetDocument(ctx, "v1")
		require.NoError(t, err)
		assert.Equal(t, "Renamed", doc.Title)
		assert.Empty(t, doc.ChannelName)
	})

	t.Run("invalid document rejected", func(t *testing.T) {
		err := store.PutDocuments(ctx, core.Document{ID: "", SourceType: core.SourceTypeNote})
		assert.ErrorIs(t, err, core.ErrInvalidDocument)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.DeleteDocument(ctx, "n1"))
		assert.ErrorIs(t, store.DeleteDocument(ctx, "n1"), storage.ErrNotFound)
		_, err := store.GetDocument(ctx, "n1")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "notes.db")
	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.PutDocuments(context.Background(), core.Document{ID: "a", SourceType: core.SourceTypeNote, CreatedAt: time.Now().Add(-time.Minute)}))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	docs, err := reopened.ListDocuments(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.Equal(t, path, reopened.Path())
}
