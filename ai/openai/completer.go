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

package openai

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/noteseek/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrNoChoices is returned when the model produced no completion choices.
var ErrNoChoices = errors.New("model returned no choices")

// Completer implements ai.Completer using OpenAI-compatible chat APIs.
type Completer struct {
	client llms.Model
	model  string
	logger *slog.Logger
}

// newCompleter is an internal constructor that returns the concrete type.
func newCompleter(config *ai.Config) (*Completer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.CompletionHost),
		openai.WithToken(config.APIToken),
		openai.WithModel(config.CompletionModel),
	)
	if err != nil {
		return nil, err
	}

	return &Completer{
		client: client,
		model:  config.CompletionModel,
		logger: slog.Default().With("component", "openai-completer"),
	}, nil
}

// NewCompleter creates a new completer using the provided configuration.
//
// Returns ai.Completer interface to enforce abstraction.
func NewCompleter(config *ai.Config) (ai.Completer, error) {
	return newCompleter(config)
}

// Complete sends a single human prompt preceded by the answering system
// prompt and returns the first choice.
func (c *Completer) Complete(ctx context.Context, prompt string, opts ai.CompletionOptions) (ai.Completion, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	callOpts := []llms.CallOption{llms.WithTemperature(opts.Temperature)}
	if opts.Model != "" {
		callOpts = append(callOpts, llms.WithModel(opts.Model))
	}
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
	}

	response, err := c.client.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		c.logger.Error("failed to generate content", "err", err)
		return ai.Completion{}, err
	}
	if len(response.Choices) < 1 {
		return ai.Completion{}, ErrNoChoices
	}

	choice := response.Choices[0]
	usage := usageFromInfo(choice.GenerationInfo)
	c.logger.Debug("completion finished",
		"prompt_tokens", usage.PromptTokens,
		"completion_tokens", usage.CompletionTokens,
		"stop_reason", choice.StopReason)

	return ai.Completion{
		Text:  trimResponse(choice.Content),
		Usage: usage,
	}, nil
}

func usageFromInfo(info map[string]any) ai.Usage {
	return ai.Usage{
		PromptTokens:     intFromInfo(info, "PromptTokens"),
		CompletionTokens: intFromInfo(info, "CompletionTokens"),
		TotalTokens:      intFromInfo(info, "TotalTokens"),
	}
}

func intFromInfo(info map[string]any, key string) int {
	switch v := info[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
