package search

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/poiesic/noteseek/config"
	"github.com/poiesic/noteseek/core"
)

// HybridStrategy runs semantic and keyword search concurrently and fuses
// their scores.
type HybridStrategy struct {
	semantic *SemanticStrategy
	keyword  *KeywordStrategy
	cfg      config.HybridConfig
	settings
}

var _ Strategy = (*HybridStrategy)(nil)

// NewHybridStrategy creates a hybrid strategy over both branches.
func NewHybridStrategy(semantic *SemanticStrategy, keyword *KeywordStrategy, cfg config.HybridConfig, opts ...Option) (*HybridStrategy, error) {
	if semantic == nil || keyword == nil {
		return nil, ErrStrategyRequired
	}
	s, err := newSettings("hybrid-search", opts)
	if err != nil {
		return nil, err
	}
	return &HybridStrategy{semantic: semantic, keyword: keyword, cfg: cfg, settings: s}, nil
}

// Method implements Strategy.
func (h *HybridStrategy) Method() core.SearchMethod {
	return core.SearchMethodHybrid
}

// Search implements Strategy. It fails only when both branches fault.
func (h *HybridStrategy) Search(ctx context.Context, corpus []core.Document, query string) ([]core.SearchResult, error) {
	report := h.Run(ctx, corpus, query)
	if err := report.Err(); err != nil {
		return nil, err
	}
	return report.Results, nil
}

// Run implements Strategy. Both branches always complete before merging.
func (h *HybridStrategy) Run(ctx context.Context, corpus []core.Document, query string) *Report {
	h.monitor.Start(core.SearchMethodHybrid, query)
	report := &Report{Method: core.SearchMethodHybrid}

	var semantic, keyword []core.SearchResult
	var g errgroup.Group
	g.Go(func() error {
		semantic, report.SemanticFault = h.semantic.SearchDetailed(ctx, corpus, query)
		return nil
	})
	g.Go(func() error {
		keyword, report.KeywordFault = h.keyword.search(ctx, corpus, query)
		return nil
	})
	_ = g.Wait()

	h.monitor.AfterSemanticSearch(resultIDs(semantic), report.SemanticFault)
	h.monitor.AfterKeywordSearch(resultIDs(keyword))

	switch {
	case report.Failed():
		h.logger.Error("all search branches failed",
			"semantic_err", report.SemanticFault, "keyword_err", report.KeywordFault)
	case report.SemanticFault != nil:
		h.logger.Warn("semantic search unavailable, using keyword results", "err", report.SemanticFault)
		report.Results = h.limit(keyword)
	case report.KeywordFault != nil:
		report.Results = h.Merge(semantic, nil)
	default:
		report.Results = h.Merge(semantic, keyword)
	}

	h.monitor.Finish(report.Results)
	return report
}

// Merge fuses semantic and keyword results. Documents found by both get
// the semantic score plus the weighted keyword score. Strong semantic-only
// hits are boosted and keyword-only hits pass through unchanged.
func (h *HybridStrategy) Merge(semantic, keyword []core.SearchResult) []core.SearchResult {
	byID := make(map[string]*core.SearchResult, len(keyword))
	for i := range keyword {
		byID[keyword[i].ID] = &keyword[i]
	}

	merged := make([]core.SearchResult, 0, len(semantic)+len(keyword))
	used := make(map[string]bool, len(semantic))
	for _, sem := range semantic {
		if used[sem.ID] {
			continue
		}
		used[sem.ID] = true
		similarity := sem.Relevance
		if md, ok := sem.Metadata.(core.SemanticMetadata); ok {
			similarity = md.Similarity
		}

		r := sem
		if kw, ok := byID[sem.ID]; ok {
			r.Relevance = core.Clamp01(sem.Relevance + kw.Relevance*h.cfg.KeywordWeight)
			base := baseOf(&sem)
			base.KeyTerms = mergeTerms(base.KeyTerms, baseOf(kw).KeyTerms)
			base.TopicRelevance = max(base.TopicRelevance, kw.TopicRelevance())
			chunk := 0
			if md, ok := sem.Metadata.(core.SemanticMetadata); ok {
				chunk = md.ChunkIndex
			}
			r.Metadata = core.HybridMetadata{
				MetadataBase:  base,
				Similarity:    similarity,
				SemanticScore: sem.Relevance,
				KeywordScore:  kw.Relevance,
				ChunkIndex:    chunk,
			}
			if r.Snippet == "" {
				r.Snippet = kw.Snippet
			}
		} else if similarity > h.cfg.HighSimilarityCutoff {
			r.Relevance = core.Clamp01(sem.Relevance * h.cfg.HighSimilarityBoost)
		}
		merged = append(merged, r)
	}

	for _, kw := range keyword {
		if !used[kw.ID] {
			used[kw.ID] = true
			merged = append(merged, kw)
		}
	}

	core.SortByRelevance(merged)
	return h.limit(merged)
}

// limit caps results at the hybrid result size. Keyword results arrive
// sorted, so a degraded run returns a prefix of the keyword-only ranking.
func (h *HybridStrategy) limit(results []core.SearchResult) []core.SearchResult {
	if h.cfg.MaxResults > 0 && len(results) > h.cfg.MaxResults {
		return results[:h.cfg.MaxResults]
	}
	return results
}

func baseOf(r *core.SearchResult) core.MetadataBase {
	if r.Metadata == nil {
		return core.MetadataBase{}
	}
	return r.Metadata.Base()
}

func mergeTerms(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, t := range append(append([]string(nil), a...), b...) {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
