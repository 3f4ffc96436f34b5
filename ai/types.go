package ai

// CompletionOptions tunes a single completion request. Zero values leave
// the backend default in place.
type CompletionOptions struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Usage reports token accounting for a completion.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Completion is the result of a Completer call.
type Completion struct {
	Text  string
	Usage Usage
}
