package core

import (
	"cmp"
	"slices"
	"time"
)

// SearchMethod names the strategy that produced a result.
type SearchMethod string

const (
	SearchMethodKeyword  SearchMethod = "keyword"
	SearchMethodSemantic SearchMethod = "semantic"
	SearchMethodHybrid   SearchMethod = "hybrid"
)

// ParseSearchMethod converts user input to a SearchMethod. The empty
// string selects hybrid.
func ParseSearchMethod(s string) (SearchMethod, error) {
	switch SearchMethod(s) {
	case "", SearchMethodHybrid:
		return SearchMethodHybrid, nil
	case SearchMethodKeyword, SearchMethodSemantic:
		return SearchMethod(s), nil
	default:
		return "", ErrInvalidSearchMethod
	}
}

// MetadataBase holds the fields every metadata variant carries.
type MetadataBase struct {
	KeyTerms       []string
	TopicRelevance float64
}

// Metadata is the strategy-specific detail attached to a SearchResult.
// The set of variants is closed: KeywordMetadata, SemanticMetadata and
// HybridMetadata.
type Metadata interface {
	SearchMethod() SearchMethod
	Base() MetadataBase
	isMetadata()
}

// KeywordMetadata is attached to lexical matches.
type KeywordMetadata struct {
	MetadataBase
	MatchedPhrases []string
	Score          float64
}

// SemanticMetadata is attached to vector matches.
type SemanticMetadata struct {
	MetadataBase
	Similarity  float64
	ChunkIndex  int
	TotalChunks int
}

// HybridMetadata is attached to documents found by both strategies.
type HybridMetadata struct {
	MetadataBase
	Similarity    float64
	SemanticScore float64
	KeywordScore  float64
	ChunkIndex    int
}

func (KeywordMetadata) SearchMethod() SearchMethod  { return SearchMethodKeyword }
func (SemanticMetadata) SearchMethod() SearchMethod { return SearchMethodSemantic }
func (HybridMetadata) SearchMethod() SearchMethod   { return SearchMethodHybrid }

func (m KeywordMetadata) Base() MetadataBase  { return m.MetadataBase }
func (m SemanticMetadata) Base() MetadataBase { return m.MetadataBase }
func (m HybridMetadata) Base() MetadataBase   { return m.MetadataBase }

func (KeywordMetadata) isMetadata()  {}
func (SemanticMetadata) isMetadata() {}
func (HybridMetadata) isMetadata()   {}

// SearchResult is a ranked document returned by a strategy.
type SearchResult struct {
	ID          string
	Title       string
	Content     string
	Relevance   float64
	Snippet     string
	SourceType  SourceType
	CreatedAt   time.Time
	ChannelName string
	Metadata    Metadata
}

// Method returns the strategy that produced r, or "" when no metadata is attached.
func (r *SearchResult) Method() SearchMethod {
	if r.Metadata == nil {
		return ""
	}
	return r.Metadata.SearchMethod()
}

// TopicRelevance returns the metadata topic relevance, or 0.
func (r *SearchResult) TopicRelevance() float64 {
	if r.Metadata == nil {
		return 0
	}
	return r.Metadata.Base().TopicRelevance
}

// ResultFromDocument copies the document fields shared with SearchResult.
func ResultFromDocument(doc *Document) SearchResult {
	return SearchResult{
		ID:          doc.ID,
		Title:       doc.Title,
		Content:     doc.Content,
		SourceType:  doc.SourceType,
		CreatedAt:   doc.CreatedAt,
		ChannelName: doc.ChannelName,
	}
}

// SortByRelevance orders results by relevance descending, breaking ties
// by ID ascending so ordering is deterministic.
func SortByRelevance(results []SearchResult) {
	slices.SortStableFunc(results, func(a, b SearchResult) int {
		if c := cmp.Compare(b.Relevance, a.Relevance); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// CloneResults returns a copy of results that shares no slice backing
// storage with the input.
func CloneResults(results []SearchResult) []SearchResult {
	if results == nil {
		return nil
	}
	return slices.Clone(results)
}
