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

package ai

import (
	"errors"
	"strings"
)

// Config holds configuration for AI service providers.
type Config struct {
	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	EmbeddingHost string `yaml:"embedding_host"`

	// CompletionHost is the base URL for the chat completion service API.
	CompletionHost string `yaml:"completion_host"`

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "embeddinggemma", "text-embedding-3-small"
	EmbeddingModel string `yaml:"embedding_model"`

	// CompletionModel is the model identifier used to answer questions
	// over assembled context.
	// Example: "qwen2.5:3b", "gpt-4o-mini"
	CompletionModel string `yaml:"completion_model"`

	// APIToken is sent as the bearer token. Local servers ignore it, so it
	// defaults to "none".
	APIToken string `yaml:"api_token"`

	// EmbeddingDimensions requests a specific vector size from models that
	// support it. Zero leaves the model default.
	EmbeddingDimensions int `yaml:"embedding_dimensions"`

	// MaxTokens caps the length of generated answers. Zero leaves the
	// server default.
	MaxTokens int `yaml:"max_tokens"`
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithCompletionHost sets the completion service host URL.
func WithCompletionHost(host string) ConfigOption {
	return func(c *Config) {
		c.CompletionHost = host
	}
}

// WithHost sets both embedding and completion hosts to the same URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
		c.CompletionHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithCompletionModel sets the completion model identifier.
func WithCompletionModel(model string) ConfigOption {
	return func(c *Config) {
		c.CompletionModel = model
	}
}

// WithAPIToken sets the bearer token used for both services.
func WithAPIToken(token string) ConfigOption {
	return func(c *Config) {
		c.APIToken = token
	}
}

// WithEmbeddingDimensions requests a specific embedding size.
func WithEmbeddingDimensions(dims int) ConfigOption {
	return func(c *Config) {
		c.EmbeddingDimensions = dims
	}
}

// WithMaxTokens caps the length of generated answers.
func WithMaxTokens(n int) ConfigOption {
	return func(c *Config) {
		c.MaxTokens = n
	}
}

// DefaultConfig returns a Config with sensible defaults for local OpenAI-compatible services.
// By default, both embedding and completion use the same host.
func DefaultConfig() *Config {
	defaultHost := "http://localhost:11434/v1"
	return &Config{
		EmbeddingHost:   defaultHost,
		CompletionHost:  defaultHost,
		EmbeddingModel:  "embeddinggemma",
		CompletionModel: "qwen2.5:3b",
		APIToken:        "none",
		MaxTokens:       512,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithHost("http://localhost:11434/v1"),
//	    WithEmbeddingModel("text-embedding-3-small"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// It adds the /v1 suffix to hosts if missing, which is required
// by most OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	c.EmbeddingHost = normalizeHost(c.EmbeddingHost)
	c.CompletionHost = normalizeHost(c.CompletionHost)
	if c.APIToken == "" {
		c.APIToken = "none"
	}
}

func normalizeHost(host string) string {
	if host == "" || strings.HasSuffix(host, "/v1") {
		return host
	}
	return strings.TrimSuffix(host, "/") + "/v1"
}

// Validate checks that the configuration is valid and complete.
// It normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if c.CompletionHost == "" {
		return errors.New("ai config: CompletionHost is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.CompletionModel == "" {
		return errors.New("ai config: CompletionModel is required")
	}
	if c.EmbeddingDimensions < 0 {
		return errors.New("ai config: EmbeddingDimensions must not be negative")
	}
	if c.MaxTokens < 0 {
		return errors.New("ai config: MaxTokens must not be negative")
	}
	return nil
}
