// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package search

import (
	"context"
	"strings"

	"github.com/poiesic/noteseek/config"
	"github.com/poiesic/noteseek/core"
	"github.com/poiesic/noteseek/textproc"
)

// ctxCheckInterval is how many documents are scored between context checks.
const ctxCheckInterval = 256

// KeywordStrategy scores documents by phrase, proximity and word matches.
// It is local and deterministic.
type KeywordStrategy struct {
	cfg config.KeywordConfig
	settings
}

var _ Strategy = (*KeywordStrategy)(nil)

// NewKeywordStrategy creates a keyword strategy.
func NewKeywordStrategy(cfg config.KeywordConfig, opts ...Option) (*KeywordStrategy, error) {
	s, err := newSettings("keyword-search", opts)
	if err != nil {
		return nil, err
	}
	return &KeywordStrategy{cfg: cfg, settings: s}, nil
}

// Method implements Strategy.
func (k *KeywordStrategy) Method() core.SearchMethod {
	return core.SearchMethodKeyword
}

// Search implements Strategy. The only error it returns is a context error.
func (k *KeywordStrategy) Search(ctx context.Context, corpus []core.Document, query string) ([]core.SearchResult, error) {
	report := k.Run(ctx, corpus, query)
	return report.Results, report.KeywordFault
}

// Run implements Strategy.
func (k *KeywordStrategy) Run(ctx context.Context, corpus []core.Document, query string) *Report {
	k.monitor.Start(core.SearchMethodKeyword, query)
	results, err := k.search(ctx, corpus, query)
	k.monitor.AfterKeywordSearch(resultIDs(results))
	k.monitor.Finish(results)
	return &Report{Method: core.SearchMethodKeyword, Results: results, KeywordFault: err}
}

// keywordQuery is the parsed form of a query used for scoring.
type keywordQuery struct {
	tokens  []string
	phrases []string
	words   []string
}

func (k *KeywordStrategy) parse(query string) keywordQuery {
	tokens := textproc.Tokenize(query)
	return keywordQuery{
		tokens:  tokens,
		phrases: textproc.Phrases(tokens, k.cfg.MinPhraseLength),
		words:   textproc.WordsLongerThan(textproc.FilterStopWords(tokens), 2),
	}
}

func (k *KeywordStrategy) search(ctx context.Context, corpus []core.Document, query string) ([]core.SearchResult, error) {
	q := k.parse(query)
	if len(q.tokens) == 0 {
		return nil, nil
	}

	var results []core.SearchResult
	for i := range corpus {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if r, ok := k.score(&corpus[i], q); ok {
			results = append(results, r)
		}
	}

	core.SortByRelevance(results)
	if len(results) > k.cfg.MaxResults {
		results = results[:k.cfg.MaxResults]
	}
	k.logger.Debug("keyword search complete", "query", query, "candidates", len(corpus), "results", len(results))
	return results, nil
}

func (k *KeywordStrategy) score(doc *core.Document, q keywordQuery) (core.SearchResult, bool) {
	title := strings.ToLower(doc.Title)
	content := strings.ToLower(doc.Content)

	var score float64
	var matched []string
	for _, phrase := range q.phrases {
		hit := false
		if strings.Contains(title, phrase) {
			score += k.cfg.TitlePhraseBonus
			hit = true
		}
		if strings.Contains(content, phrase) {
			score += k.cfg.ContentPhraseBonus
			hit = true
		}
		if hit {
			matched = append(matched, phrase)
		}
	}

	contentTokens := textproc.Tokenize(doc.Content)
	score += k.cfg.ProximityBonus * float64(textproc.AdjacentPairs(q.tokens, contentTokens))

	titleWords := textproc.Set(textproc.Tokenize(doc.Title))
	contentWords := textproc.Set(contentTokens)
	for _, w := range q.words {
		if titleWords[w] {
			score += k.cfg.TitleWordBonus
		}
		if contentWords[w] {
			score += k.cfg.ContentWordBonus
		}
	}

	// Quality bonuses only lift documents that already matched.
	if score == 0 {
		return core.SearchResult{}, false
	}
	if textproc.RuneLen(doc.Content) >= k.cfg.LongContentChars {
		score += k.cfg.LongContentBonus
	}
	if doc.IsTranscription() {
		score += k.cfg.TranscriptionBonus
	}
	if score < k.cfg.MinScore {
		return core.SearchResult{}, false
	}

	result := core.ResultFromDocument(doc)
	result.Relevance = core.Clamp01(score)
	result.Snippet = textproc.DensitySnippet(doc.Content, q.words, k.cfg.SnippetLength)
	result.Metadata = core.KeywordMetadata{
		MetadataBase: core.MetadataBase{
			KeyTerms:       q.words,
			TopicRelevance: textproc.TopicRelevance(q.words, title+" "+content),
		},
		MatchedPhrases: matched,
		Score:          score,
	}
	return result, true
}
