package prompt

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/poiesic/noteseek/config"
	"github.com/poiesic/noteseek/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func builder() *ContextBuilder {
	return NewContextBuilder(config.DefaultConfig().Context)
}

func longResults(n int) []core.SearchResult {
	out := make([]core.SearchResult, n)
	for i := range out {
		out[i] = core.SearchResult{
			ID:         fmt.Sprintf("doc-%d", i),
			Title:      fmt.Sprintf("Note %d", i),
			Content:    strings.Repeat("climbing knots ", 67)[:1000],
			Relevance:  0.9 - float64(i)*0.1,
			SourceType: core.SourceTypeNote,
		}
	}
	return out
}

func TestBudget(t *testing.T) {
	b := builder()
	assert.Equal(t, 1500, b.Budget(0.4))
	assert.Equal(t, 1500, b.Budget(0.5))
	assert.Equal(t, 2000, b.Budget(0.6))
	assert.Equal(t, 2000, b.Budget(0.7))
	assert.Equal(t, 2500, b.Budget(0.8))
}

func TestBuild_Budget(t *testing.T) {
	b := builder()
	results := longResults(5)
	for i := range results {
		results[i].Snippet = results[i].Content
	}

	low := b.Build(results, "climbing knots", 0.4)
	assert.LessOrEqual(t, utf8.RuneCountInString(low), 1500)
	assert.True(t, strings.HasPrefix(low, "[NOTE] Note 0:\n"))

	high := b.Build(results, "climbing knots", 0.8)
	assert.LessOrEqual(t, utf8.RuneCountInString(high), 2500)
	assert.Greater(t, len(high), len(low))

	// Two entries fit whole and the third is cut short.
	assert.Contains(t, high, "[NOTE] Note 1:\n")
	assert.Contains(t, high, "[NOTE] Note 2:\n")
	assert.True(t, strings.HasSuffix(high, "...\n\n"))
	assert.NotContains(t, high, "Note 3")
}

func TestBuild_DropsTooSmallRemainder(t *testing.T) {
	cfg := config.DefaultConfig().Context
	cfg.LowBudget = 60
	b := NewContextBuilder(cfg)

	results := []core.SearchResult{
		{ID: "a", Title: "A", Snippet: strings.Repeat("x", 30), Relevance: 0.9, SourceType: core.SourceTypeNote},
		{ID: "b", Title: "B", Snippet: strings.Repeat("y", 100), Relevance: 0.8, SourceType: core.SourceTypeVideo},
	}
	out := b.Build(results, "q", 0)
	assert.Equal(t, "[NOTE] A:\n"+strings.Repeat("x", 30)+"\n\n", out)
}

func TestBuild_Priority(t *testing.T) {
	b := builder()
	results := []core.SearchResult{
		{ID: "plain", Title: "Plain", Snippet: "plain", Relevance: 0.7, SourceType: core.SourceTypeNote,
			Metadata: core.KeywordMetadata{}},
		{ID: "topical", Title: "Topical", Snippet: "topical", Relevance: 0.6, SourceType: core.SourceTypeVideo,
			Metadata: core.SemanticMetadata{MetadataBase: core.MetadataBase{TopicRelevance: 1}}},
	}
	out := b.Build(results, "q", 0.9)
	require.Equal(t, "[VIDEO] Topical:\ntopical\n\n[NOTE] Plain:\nplain\n\n", out)
}

func TestBuild_SnippetFallback(t *testing.T) {
	b := builder()
	results := []core.SearchResult{
		{ID: "a", Title: "Content only", Content: "Figure eight knot.", Relevance: 0.9, SourceType: core.SourceTypeNote},
		{ID: "b", Title: "Title only", Relevance: 0.8, SourceType: core.SourceTypeVideo},
	}
	out := b.Build(results, "knot", 0.9)
	assert.Equal(t, "[NOTE] Content only:\nFigure eight knot.\n\n[VIDEO] Title only:\n\n\n", out)
}

func TestBuild_Empty(t *testing.T) {
	assert.Empty(t, builder().Build(nil, "anything", 1))
}

func TestAnswer(t *testing.T) {
	p := Answer("  what knots?  ", "[NOTE] Knots:\nbowline\n\n")
	assert.Contains(t, p, "Sources:\n[NOTE] Knots:\nbowline\n\nQuestion: what knots?\nAnswer:")
}
