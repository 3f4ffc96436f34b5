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

// Package config holds every retrieval threshold, weight, TTL and budget
// in one place so behavior can be tuned without code changes.
package config

import (
	"time"

	"github.com/poiesic/noteseek/ai"
)

// Config is the root configuration document.
type Config struct {
	AI        ai.Config       `yaml:"ai"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Keyword   KeywordConfig   `yaml:"keyword"`
	Semantic  SemanticConfig  `yaml:"semantic"`
	Hybrid    HybridConfig    `yaml:"hybrid"`
	Validator ValidatorConfig `yaml:"validator"`
	Cache     CacheConfig     `yaml:"cache"`
	Context   ContextConfig   `yaml:"context"`
	Timeouts  TimeoutConfig   `yaml:"timeouts"`
	Indexing  IndexingConfig  `yaml:"indexing"`
}

// EmbeddingConfig tunes the embedding provider.
type EmbeddingConfig struct {
	// MaxInputChars truncates input text before it is sent to the model.
	MaxInputChars int `yaml:"max_input_chars"`
	// CacheTTL is how long a computed embedding is reused.
	CacheTTL time.Duration `yaml:"cache_ttl"`
	// CacheCapacity bounds the in-memory embedding cache.
	CacheCapacity int `yaml:"cache_capacity"`
	// RequestsPerSecond throttles calls to the model. Zero disables throttling.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// KeywordConfig holds the lexical scoring weights.
type KeywordConfig struct {
	MinPhraseLength    int     `yaml:"min_phrase_length"`
	TitlePhraseBonus   float64 `yaml:"title_phrase_bonus"`
	ContentPhraseBonus float64 `yaml:"content_phrase_bonus"`
	ProximityBonus     float64 `yaml:"proximity_bonus"`
	TitleWordBonus     float64 `yaml:"title_word_bonus"`
	ContentWordBonus   float64 `yaml:"content_word_bonus"`
	LongContentBonus   float64 `yaml:"long_content_bonus"`
	LongContentChars   int     `yaml:"long_content_chars"`
	TranscriptionBonus float64 `yaml:"transcription_bonus"`
	MinScore           float64 `yaml:"min_score"`
	SnippetLength      int     `yaml:"snippet_length"`
	MaxResults         int     `yaml:"max_results"`
}

// SemanticConfig tunes vector search and chunking.
type SemanticConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	TopK                int     `yaml:"top_k"`
	// ChunkFanout multiplies TopK when querying the vector store so that
	// several chunks of one document do not crowd out other documents.
	ChunkFanout   int `yaml:"chunk_fanout"`
	ChunkSize     int `yaml:"chunk_size"`
	ChunkOverlap  int `yaml:"chunk_overlap"`
	SnippetLength int `yaml:"snippet_length"`
}

// HybridConfig holds the merge weights.
type HybridConfig struct {
	KeywordWeight        float64 `yaml:"keyword_weight"`
	HighSimilarityCutoff float64 `yaml:"high_similarity_cutoff"`
	HighSimilarityBoost  float64 `yaml:"high_similarity_boost"`
	MaxResults           int     `yaml:"max_results"`
}

// KnownEntity is a dictionary entry the validator can recognize in
// queries, titles and channel names.
type KnownEntity struct {
	Name     string   `yaml:"name"`
	Kind     string   `yaml:"kind"` // creator, person or topic
	Patterns []string `yaml:"patterns"`
}

// ValidatorConfig tunes the relevance gate.
type ValidatorConfig struct {
	MinEntityOverlap              float64       `yaml:"min_entity_overlap"`
	StrictMatchThreshold          float64       `yaml:"strict_match_threshold"`
	CreatorMismatchConfidence     float64       `yaml:"creator_mismatch_confidence"`
	ContentTypeMismatchConfidence float64       `yaml:"content_type_mismatch_confidence"`
	ReactionPenalty               float64       `yaml:"reaction_penalty"`
	CompilationPenalty            float64       `yaml:"compilation_penalty"`
	CreatorTitlePenalty           float64       `yaml:"creator_title_penalty"`
	DownWeight                    float64       `yaml:"down_weight"`
	KnownEntities                 []KnownEntity `yaml:"known_entities"`
}

// CacheConfig tunes the result cache.
type CacheConfig struct {
	TTL                     time.Duration `yaml:"ttl"`
	Capacity                int           `yaml:"capacity"`
	Target                  int           `yaml:"target"`
	RelevanceWeight         float64       `yaml:"relevance_weight"`
	DiversityWeight         float64       `yaml:"diversity_weight"`
	ContentWeight           float64       `yaml:"content_weight"`
	MaxSourceTypes          int           `yaml:"max_source_types"`
	SubstantialContentChars int           `yaml:"substantial_content_chars"`
}

// ContextConfig tunes context assembly.
type ContextConfig struct {
	HighQuality     float64 `yaml:"high_quality"`
	MediumQuality   float64 `yaml:"medium_quality"`
	HighBudget      int     `yaml:"high_budget"`
	MediumBudget    int     `yaml:"medium_budget"`
	LowBudget       int     `yaml:"low_budget"`
	TopicWeight     float64 `yaml:"topic_weight"`
	MinSnippetChars int     `yaml:"min_snippet_chars"`
}

// TimeoutConfig bounds every network-facing call.
type TimeoutConfig struct {
	Embedding   time.Duration `yaml:"embedding"`
	VectorQuery time.Duration `yaml:"vector_query"`
	Completion  time.Duration `yaml:"completion"`
}

// IndexingConfig tunes the background indexing pipeline.
type IndexingConfig struct {
	PoolSize         int           `yaml:"pool_size"`
	BatchSize        int           `yaml:"batch_size"`
	MaxRetryAttempts int           `yaml:"max_retry_attempts"`
	RetryBaseDelay   time.Duration `yaml:"retry_base_delay"`
}
