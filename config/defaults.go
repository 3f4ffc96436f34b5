package config

import (
	"runtime"
	"time"

	"github.com/poiesic/noteseek/ai"
)

// DefaultConfig returns the documented defaults.
func DefaultConfig() *Config {
	return &Config{
		AI: *ai.DefaultConfig(),
		Embedding: EmbeddingConfig{
			MaxInputChars:     8000,
			CacheTTL:          30 * time.Minute,
			CacheCapacity:     2000,
			RequestsPerSecond: 10,
			Burst:             5,
		},
		Keyword: KeywordConfig{
			MinPhraseLength:    6,
			TitlePhraseBonus:   0.5,
			ContentPhraseBonus: 0.3,
			ProximityBonus:     0.1,
			TitleWordBonus:     0.15,
			ContentWordBonus:   0.05,
			LongContentBonus:   0.05,
			LongContentChars:   500,
			TranscriptionBonus: 0.05,
			MinScore:           0.15,
			SnippetLength:      180,
			MaxResults:         20,
		},
		Semantic: SemanticConfig{
			SimilarityThreshold: 0.7,
			TopK:                8,
			ChunkFanout:         3,
			ChunkSize:           1000,
			ChunkOverlap:        0,
			SnippetLength:       180,
		},
		Hybrid: HybridConfig{
			KeywordWeight:        0.3,
			HighSimilarityCutoff: 0.7,
			HighSimilarityBoost:  1.3,
			MaxResults:           10,
		},
		Validator: ValidatorConfig{
			MinEntityOverlap:              0.6,
			StrictMatchThreshold:          0.8,
			CreatorMismatchConfidence:     0.1,
			ContentTypeMismatchConfidence: 0.5,
			ReactionPenalty:               0.3,
			CompilationPenalty:            0.5,
			CreatorTitlePenalty:           0.5,
			DownWeight:                    0.5,
			KnownEntities:                 DefaultKnownEntities(),
		},
		Cache: CacheConfig{
			TTL:                     60 * time.Second,
			Capacity:                100,
			Target:                  80,
			RelevanceWeight:         0.5,
			DiversityWeight:         0.3,
			ContentWeight:           0.2,
			MaxSourceTypes:          2,
			SubstantialContentChars: 200,
		},
		Context: ContextConfig{
			HighQuality:     0.7,
			MediumQuality:   0.5,
			HighBudget:      2500,
			MediumBudget:    2000,
			LowBudget:       1500,
			TopicWeight:     0.3,
			MinSnippetChars: 40,
		},
		Timeouts: TimeoutConfig{
			Embedding:   10 * time.Second,
			VectorQuery: 5 * time.Second,
			Completion:  60 * time.Second,
		},
		Indexing: IndexingConfig{
			PoolSize:         max(1, runtime.NumCPU()/2),
			BatchSize:        50,
			MaxRetryAttempts: 3,
			RetryBaseDelay:   500 * time.Millisecond,
		},
	}
}

// DefaultKnownEntities is the built-in creator dictionary. Users extend it
// through the known_entities section of the config file.
func DefaultKnownEntities() []KnownEntity {
	return []KnownEntity{
		{Name: "joe rogan", Kind: "creator", Patterns: []string{"joe rogan", "rogan", "jre", "powerfuljre"}},
		{Name: "lex fridman", Kind: "creator", Patterns: []string{"lex fridman", "fridman", "lexfridman"}},
		{Name: "marques brownlee", Kind: "creator", Patterns: []string{"marques brownlee", "mkbhd", "brownlee"}},
		{Name: "mrbeast", Kind: "creator", Patterns: []string{"mrbeast", "mr beast", "jimmy donaldson"}},
		{Name: "andrew huberman", Kind: "creator", Patterns: []string{"andrew huberman", "huberman", "hubermanlab"}},
		{Name: "veritasium", Kind: "creator", Patterns: []string{"veritasium", "derek muller"}},
	}
}
