package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentHash(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"short text", "test content"},
		{"empty string", ""},
		{"long content", "This is a much longer piece of content that should still hash consistently"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, ContentHash(tt.content), ContentHash(tt.content))
		})
	}

	assert.NotEqual(t, ContentHash("content1"), ContentHash("content2"))
}

func TestChunkID(t *testing.T) {
	id := ChunkID("note-1", 3)
	assert.Equal(t, "note-1#3", id)

	doc, idx, err := ParseChunkID(id)
	require.NoError(t, err)
	assert.Equal(t, "note-1", doc)
	assert.Equal(t, 3, idx)

	t.Run("document ids containing separator", func(t *testing.T) {
		doc, idx, err := ParseChunkID(ChunkID("a#b", 0))
		require.NoError(t, err)
		assert.Equal(t, "a#b", doc)
		assert.Equal(t, 0, idx)
	})

	for _, bad := range []string{"", "nohash", "#1", "doc#x", "doc#-2"} {
		_, _, err := ParseChunkID(bad)
		assert.ErrorIs(t, err, ErrInvalidChunkID, bad)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"scaled", []float32{1, 1}, []float32{3, 3}, 1},
		{"zero norm", []float32{0, 0}, []float32{1, 1}, 0},
		{"length mismatch", []float32{1}, []float32{1, 1}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(-0.5))
	assert.Equal(t, 1.0, Clamp01(1.3))
	assert.Equal(t, 0.4, Clamp01(0.4))
	assert.Equal(t, 0.0, Clamp01(math.NaN()))
}

func TestSortByRelevance(t *testing.T) {
	results := []SearchResult{
		{ID: "c", Relevance: 0.5},
		{ID: "b", Relevance: 0.9},
		{ID: "a", Relevance: 0.5},
	}
	SortByRelevance(results)

	ids := []string{results[0].ID, results[1].ID, results[2].ID}
	assert.Equal(t, []string{"b", "a", "c"}, ids)
}

func TestParseSearchMethod(t *testing.T) {
	m, err := ParseSearchMethod("")
	require.NoError(t, err)
	assert.Equal(t, SearchMethodHybrid, m)

	m, err = ParseSearchMethod("keyword")
	require.NoError(t, err)
	assert.Equal(t, SearchMethodKeyword, m)

	_, err = ParseSearchMethod("fuzzy")
	assert.ErrorIs(t, err, ErrInvalidSearchMethod)
}

func TestSearchResultMetadata(t *testing.T) {
	r := SearchResult{ID: "x"}
	assert.Equal(t, SearchMethod(""), r.Method())
	assert.Zero(t, r.TopicRelevance())

	r.Metadata = HybridMetadata{MetadataBase: MetadataBase{TopicRelevance: 0.5}}
	assert.Equal(t, SearchMethodHybrid, r.Method())
	assert.Equal(t, 0.5, r.TopicRelevance())
}

func TestSourceTypeLabel(t *testing.T) {
	assert.Equal(t, "[NOTE]", SourceTypeNote.Label())
	assert.Equal(t, "[VIDEO]", SourceTypeVideo.Label())
}
