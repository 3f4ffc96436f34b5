package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Load reads a YAML file over the defaults. Fields absent from the file
// keep their default values. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides selected fields from NOTESEEK_* environment variables.
func (c *Config) ApplyEnv() error {
	strs := map[string]*string{
		"NOTESEEK_EMBEDDING_HOST":   &c.AI.EmbeddingHost,
		"NOTESEEK_COMPLETION_HOST":  &c.AI.CompletionHost,
		"NOTESEEK_EMBEDDING_MODEL":  &c.AI.EmbeddingModel,
		"NOTESEEK_COMPLETION_MODEL": &c.AI.CompletionModel,
		"NOTESEEK_API_TOKEN":        &c.AI.APIToken,
	}
	for name, dst := range strs {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"NOTESEEK_CACHE_TTL":           &c.Cache.TTL,
		"NOTESEEK_EMBEDDING_CACHE_TTL": &c.Embedding.CacheTTL,
		"NOTESEEK_EMBEDDING_TIMEOUT":   &c.Timeouts.Embedding,
		"NOTESEEK_COMPLETION_TIMEOUT":  &c.Timeouts.Completion,
	}
	for name, dst := range durations {
		v, ok := os.LookupEnv(name)
		if !ok || v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = d
	}

	if v, ok := os.LookupEnv("NOTESEEK_MAX_TOKENS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("NOTESEEK_MAX_TOKENS: %w", err)
		}
		c.AI.MaxTokens = n
	}

	if v, ok := os.LookupEnv("NOTESEEK_SIMILARITY_THRESHOLD"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("NOTESEEK_SIMILARITY_THRESHOLD: %w", err)
		}
		c.Semantic.SimilarityThreshold = f
	}
	return nil
}

// Validate checks ranges and cross-field constraints.
func (c *Config) Validate() error {
	if err := c.AI.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	checks := []struct {
		ok  bool
		msg string
	}{
		{c.Embedding.MaxInputChars > 0, "embedding.max_input_chars must be positive"},
		{c.Embedding.CacheTTL > 0, "embedding.cache_ttl must be positive"},
		{c.Embedding.CacheCapacity > 0, "embedding.cache_capacity must be positive"},
		{c.Embedding.RequestsPerSecond >= 0, "embedding.requests_per_second must not be negative"},
		{inUnit(c.Keyword.MinScore), "keyword.min_score must be within [0,1]"},
		{c.Keyword.SnippetLength > 0, "keyword.snippet_length must be positive"},
		{c.Keyword.MaxResults > 0, "keyword.max_results must be positive"},
		{inUnit(c.Semantic.SimilarityThreshold), "semantic.similarity_threshold must be within [0,1]"},
		{c.Semantic.TopK > 0, "semantic.top_k must be positive"},
		{c.Semantic.ChunkFanout > 0, "semantic.chunk_fanout must be positive"},
		{c.Semantic.ChunkSize > 0, "semantic.chunk_size must be positive"},
		{c.Semantic.ChunkOverlap >= 0 && c.Semantic.ChunkOverlap < c.Semantic.ChunkSize, "semantic.chunk_overlap must be within [0, chunk_size)"},
		{inUnit(c.Hybrid.KeywordWeight), "hybrid.keyword_weight must be within [0,1]"},
		{c.Hybrid.HighSimilarityBoost >= 1, "hybrid.high_similarity_boost must be at least 1"},
		{c.Hybrid.MaxResults > 0, "hybrid.max_results must be positive"},
		{inUnit(c.Validator.MinEntityOverlap), "validator.min_entity_overlap must be within [0,1]"},
		{inUnit(c.Validator.StrictMatchThreshold), "validator.strict_match_threshold must be within [0,1]"},
		{inUnit(c.Validator.DownWeight), "validator.down_weight must be within [0,1]"},
		{c.Cache.TTL > 0, "cache.ttl must be positive"},
		{c.Cache.Capacity > 0, "cache.capacity must be positive"},
		{c.Cache.Target > 0 && c.Cache.Target < c.Cache.Capacity, "cache.target must be within (0, capacity)"},
		{c.Cache.MaxSourceTypes > 0, "cache.max_source_types must be positive"},
		{c.Context.LowBudget > 0, "context.low_budget must be positive"},
		{c.Context.LowBudget <= c.Context.MediumBudget && c.Context.MediumBudget <= c.Context.HighBudget, "context budgets must be ordered low <= medium <= high"},
		{c.Context.MediumQuality <= c.Context.HighQuality, "context.medium_quality must not exceed high_quality"},
		{c.Timeouts.Embedding > 0, "timeouts.embedding must be positive"},
		{c.Timeouts.VectorQuery > 0, "timeouts.vector_query must be positive"},
		{c.Timeouts.Completion > 0, "timeouts.completion must be positive"},
		{c.Indexing.PoolSize > 0, "indexing.pool_size must be positive"},
		{c.Indexing.BatchSize > 0, "indexing.batch_size must be positive"},
		{c.Indexing.MaxRetryAttempts > 0, "indexing.max_retry_attempts must be positive"},
	}
	for _, chk := range checks {
		if !chk.ok {
			return fmt.Errorf("%w: %s", ErrInvalidConfig, chk.msg)
		}
	}
	for _, e := range c.Validator.KnownEntities {
		if e.Name == "" {
			return fmt.Errorf("%w: validator.known_entities entry without name", ErrInvalidConfig)
		}
	}
	return nil
}

func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}
