package storage

import (
	"math"
	"testing"
	"time"

	"github.com/poiesic/noteseek/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddingVectorEncoding(t *testing.T) {
	now := time.Now().UTC()
	v := &core.EmbeddingVector{
		ID:     core.ChunkID("note-7", 2),
		Values: []float32{0.25, -1.5, float32(math.Inf(1)), 0},
		Metadata: core.ChunkMetadata{
			DocumentID:   "note-7",
			Title:        "Climbing knots — figure eight",
			ContentChunk: "Tie a figure eight follow-through.",
			SourceType:   core.SourceTypeVideo,
			CreatedAt:    now,
			ChunkIndex:   2,
			TotalChunks:  5,
		},
	}

	decoded, err := UnmarshalEmbeddingVector(MarshalEmbeddingVector(v))
	require.NoError(t, err)
	assert.Equal(t, v.ID, decoded.ID)
	assert.Equal(t, v.Values, decoded.Values)
	assert.True(t, now.Equal(decoded.Metadata.CreatedAt))
	decoded.Metadata.CreatedAt = v.Metadata.CreatedAt
	assert.Equal(t, v.Metadata, decoded.Metadata)
}

func TestCachedEmbeddingEncoding(t *testing.T) {
	e := &CachedEmbedding{Vector: []float32{1, 2, 3}, StoredAt: time.Unix(1700000000, 5).UTC()}
	decoded, err := UnmarshalCachedEmbedding(MarshalCachedEmbedding(e))
	require.NoError(t, err)
	assert.Equal(t, e, decoded)
}

func TestUnmarshal_Truncated(t *testing.T) {
	full := MarshalEmbeddingVector(&core.EmbeddingVector{
		ID:     "a#0",
		Values: []float32{1, 2, 3},
		Metadata: core.ChunkMetadata{
			DocumentID: "a",
			Title:      "title",
		},
	})

	for _, cut := range []int{0, 1, len(full) / 2, len(full) - 1} {
		_, err := UnmarshalEmbeddingVector(full[:cut])
		assert.ErrorIs(t, err, ErrSerializationFailed, "cut at %d", cut)
	}

	_, err := UnmarshalCheckpoint(nil)
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestCheckpointEncoding(t *testing.T) {
	c := &IndexCheckpoint{
		Name:           "reindex",
		EmbeddingModel: "embeddinggemma",
		LastDocumentID: "note-99",
		Processed:      99,
		UpdatedAt:      time.Unix(1700000000, 0).UTC(),
	}
	decoded, err := UnmarshalCheckpoint(MarshalCheckpoint(c))
	require.NoError(t, err)
	assert.Equal(t, c, decoded)
}
