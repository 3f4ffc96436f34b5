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


// Package prompt turns ranked search results into text for a language model.
package prompt

import (
	"cmp"
	"slices"
	"strings"

	"github.com/poiesic/noteseek/config"
	"github.com/poiesic/noteseek/core"
	"github.com/poiesic/noteseek/textproc"
)

const (
	ellipsis = "..."
	// fallbackSnippetChars sizes snippets cut from content when a result
	// carries none.
	fallbackSnippetChars = 300
)

// ContextBuilder assembles a character-bounded context from results.
type ContextBuilder struct {
	cfg config.ContextConfig
}

// NewContextBuilder creates a builder.
func NewContextBuilder(cfg config.ContextConfig) *ContextBuilder {
	return &ContextBuilder{cfg: cfg}
}

// Budget returns the character budget for a result set of the given quality.
func (b *ContextBuilder) Budget(quality float64) int {
	switch {
	case quality > b.cfg.HighQuality:
		return b.cfg.HighBudget
	case quality > b.cfg.MediumQuality:
		return b.cfg.MediumBudget
	default:
		return b.cfg.LowBudget
	}
}

type candidate struct {
	result   *core.SearchResult
	priority float64
	snippet  string
}

// Build renders results in priority order as
//
//	[NOTE] Title:
//	snippet
//
// stopping at the budget for quality. The last entry that does not fit is
// truncated with an ellipsis when enough of its snippet remains, and
// dropped otherwise. The output never exceeds the budget in characters.
func (b *ContextBuilder) Build(results []core.SearchResult, query string, quality float64) string {
	if len(results) == 0 {
		return ""
	}
	budget := b.Budget(quality)
	terms := textproc.WordsLongerThan(textproc.FilterStopWords(textproc.Tokenize(query)), 2)

	candidates := make([]candidate, len(results))
	for i := range results {
		r := &results[i]
		topic := r.TopicRelevance()
		if r.Metadata == nil {
			topic = textproc.TopicRelevance(terms, r.Title+" "+r.Content)
		}
		candidates[i] = candidate{
			result:   r,
			priority: r.Relevance + topic*b.cfg.TopicWeight,
			snippet:  snippetFor(r, terms),
		}
	}
	slices.SortStableFunc(candidates, func(a, c candidate) int {
		if r := cmp.Compare(c.priority, a.priority); r != 0 {
			return r
		}
		return cmp.Compare(a.result.ID, c.result.ID)
	})

	var sb strings.Builder
	used := 0
	for _, c := range candidates {
		header := c.result.SourceType.Label() + " " + c.result.Title + ":\n"
		entry := header + c.snippet + "\n\n"
		size := textproc.RuneLen(entry)
		if used+size <= budget {
			sb.WriteString(entry)
			used += size
			continue
		}

		room := budget - used - textproc.RuneLen(header) - len(ellipsis) - len("\n\n")
		if room >= b.cfg.MinSnippetChars {
			snippet := strings.TrimRight(textproc.Truncate(c.snippet, room), " \n\t")
			sb.WriteString(header + snippet + ellipsis + "\n\n")
		}
		break
	}
	return sb.String()
}

// snippetFor picks the result's snippet, falling back to the densest part
// of its content, then to nothing.
func snippetFor(r *core.SearchResult, terms []string) string {
	if s := strings.TrimSpace(r.Snippet); s != "" {
		return s
	}
	if r.Content == "" {
		return ""
	}
	return textproc.DensitySnippet(r.Content, terms, fallbackSnippetChars)
}
