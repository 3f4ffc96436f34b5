package mock

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/poiesic/noteseek/ai"
)

// MockCompleter is a test double for ai.Completer.
type MockCompleter struct {
	// CompleteFunc is called by Complete if set.
	// If nil, echoes a fixed answer with usage derived from prompt length.
	CompleteFunc func(ctx context.Context, prompt string, opts ai.CompletionOptions) (ai.Completion, error)

	callCount atomic.Int64

	mu          sync.Mutex
	lastPrompt  string
	lastOptions ai.CompletionOptions
}

// NewMockCompleter creates a mock completer with default behavior.
func NewMockCompleter() *MockCompleter {
	return &MockCompleter{}
}

// Complete records the prompt and returns the injected or default completion.
func (m *MockCompleter) Complete(ctx context.Context, prompt string, opts ai.CompletionOptions) (ai.Completion, error) {
	m.callCount.Add(1)
	m.mu.Lock()
	m.lastPrompt = prompt
	m.lastOptions = opts
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt, opts)
	}
	if err := ctx.Err(); err != nil {
		return ai.Completion{}, err
	}
	promptTokens := len(prompt) / 4
	return ai.Completion{
		Text: "mock answer",
		Usage: ai.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: 2,
			TotalTokens:      promptTokens + 2,
		},
	}, nil
}

// CallCount returns the number of times Complete was called.
func (m *MockCompleter) CallCount() int {
	return int(m.callCount.Load())
}

// LastPrompt returns the most recent prompt passed to Complete.
func (m *MockCompleter) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPrompt
}

// LastOptions returns the options of the most recent Complete call.
func (m *MockCompleter) LastOptions() ai.CompletionOptions {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastOptions
}

// Reset clears the call count and custom functions.
func (m *MockCompleter) Reset() {
	m.callCount.Store(0)
	m.CompleteFunc = nil
	m.mu.Lock()
	m.lastPrompt = ""
	m.lastOptions = ai.CompletionOptions{}
	m.mu.Unlock()
}
