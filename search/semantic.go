package search

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/poiesic/noteseek/ai"
	"github.com/poiesic/noteseek/config"
	"github.com/poiesic/noteseek/core"
	"github.com/poiesic/noteseek/storage"
	"github.com/poiesic/noteseek/textproc"
)

// DefaultVectorQueryTimeout bounds a single vector store query.
const DefaultVectorQueryTimeout = 5 * time.Second

// SemanticStrategy ranks documents by cosine similarity between the query
// embedding and their indexed chunks.
type SemanticStrategy struct {
	embedder     ai.Embedder
	store        storage.VectorStore
	cfg          config.SemanticConfig
	queryTimeout time.Duration
	settings
}

var _ Strategy = (*SemanticStrategy)(nil)

// NewSemanticStrategy creates a semantic strategy. queryTimeout bounds each
// vector store call; zero selects DefaultVectorQueryTimeout.
func NewSemanticStrategy(
	embedder ai.Embedder,
	store storage.VectorStore,
	cfg config.SemanticConfig,
	queryTimeout time.Duration,
	opts ...Option,
) (*SemanticStrategy, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if store == nil {
		return nil, ErrVectorStoreRequired
	}
	s, err := newSettings("semantic-search", opts)
	if err != nil {
		return nil, err
	}
	if queryTimeout <= 0 {
		queryTimeout = DefaultVectorQueryTimeout
	}
	return &SemanticStrategy{
		embedder:     embedder,
		store:        store,
		cfg:          cfg,
		queryTimeout: queryTimeout,
		settings:     s,
	}, nil
}

// Method implements Strategy.
func (s *SemanticStrategy) Method() core.SearchMethod {
	return core.SearchMethodSemantic
}

// Search implements Strategy. Embedding and vector store failures are
// logged and produce an empty result with a nil error.
func (s *SemanticStrategy) Search(ctx context.Context, corpus []core.Document, query string) ([]core.SearchResult, error) {
	report := s.Run(ctx, corpus, query)
	if report.SemanticFault != nil {
		return nil, nil
	}
	return report.Results, nil
}

// Run implements Strategy.
func (s *SemanticStrategy) Run(ctx context.Context, corpus []core.Document, query string) *Report {
	s.monitor.Start(core.SearchMethodSemantic, query)
	results, err := s.SearchDetailed(ctx, corpus, query)
	s.monitor.AfterSemanticSearch(resultIDs(results), err)
	s.monitor.Finish(results)
	return &Report{Method: core.SearchMethodSemantic, Results: results, SemanticFault: err}
}

// SearchDetailed performs the search and returns any embedding or vector
// store fault to the caller.
func (s *SemanticStrategy) SearchDetailed(ctx context.Context, corpus []core.Document, query string) ([]core.SearchResult, error) {
	vector, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Warn("query embedding failed", "err", err)
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	queryCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	matches, err := s.store.Query(queryCtx, vector, s.cfg.TopK*s.cfg.ChunkFanout)
	cancel()
	if err != nil {
		s.logger.Warn("vector query failed", "err", err)
		return nil, fmt.Errorf("%w: %w", storage.ErrVectorBackend, err)
	}

	docs := make(map[string]*core.Document, len(corpus))
	for i := range corpus {
		docs[corpus[i].ID] = &corpus[i]
	}

	kept := matches[:0:0]
	for _, m := range matches {
		if m.Score >= s.cfg.SimilarityThreshold {
			kept = append(kept, m)
		}
	}
	slices.SortStableFunc(kept, func(a, b core.VectorMatch) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	terms := textproc.WordsLongerThan(textproc.FilterStopWords(textproc.Tokenize(query)), 2)
	seen := make(map[string]bool)
	var results []core.SearchResult
	stale := 0
	for _, m := range kept {
		if len(results) == s.cfg.TopK {
			break
		}
		docID := m.Metadata.DocumentID
		if seen[docID] {
			continue
		}
		seen[docID] = true

		doc, ok := docs[docID]
		if !ok {
			stale++
			continue
		}

		chunk := m.Metadata.ContentChunk
		if chunk == "" {
			chunk = doc.Content
		}
		result := core.ResultFromDocument(doc)
		result.Relevance = core.Clamp01(m.Score)
		result.Snippet = textproc.DensitySnippet(chunk, terms, s.cfg.SnippetLength)
		result.Metadata = core.SemanticMetadata{
			MetadataBase: core.MetadataBase{
				KeyTerms:       terms,
				TopicRelevance: textproc.TopicRelevance(terms, doc.Title+" "+doc.Content),
			},
			Similarity:  m.Score,
			ChunkIndex:  m.Metadata.ChunkIndex,
			TotalChunks: m.Metadata.TotalChunks,
		}
		results = append(results, result)
	}

	core.SortByRelevance(results)
	s.logger.Debug("semantic search complete",
		"query", query, "matches", len(matches), "above_threshold", len(kept), "stale", stale, "results", len(results))
	return results, nil
}
