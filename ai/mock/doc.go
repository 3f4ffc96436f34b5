// Package mock provides test double implementations of AI service interfaces.
//
// The mocks let tests run without model servers and give controlled,
// deterministic behavior.
//
// # Usage in Tests
//
//	embedder := mock.NewMockEmbedder()
//	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
//	    return []float32{0.1, 0.2, 0.3}, nil
//	}
//	count := embedder.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: unit vectors derived from an FNV hash of the text
//   - MockCompleter: a fixed answer with usage derived from prompt length
//   - MockProvider: aggregates both
package mock
