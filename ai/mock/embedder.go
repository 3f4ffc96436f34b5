package mock

import (
	"context"
	"hash/fnv"
	"math"
	"sync/atomic"
)

// MockEmbedder is a test double for ai.Embedder.
// It allows custom behavior injection via function fields.
type MockEmbedder struct {
	// EmbedTextFunc is called by EmbedText if set.
	// If nil, uses default deterministic behavior.
	EmbedTextFunc func(ctx context.Context, text string) ([]float32, error)

	// EmbedTextsFunc is called by EmbedTexts if set.
	// If nil, uses default deterministic behavior.
	EmbedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the size of generated vectors. Defaults to 384.
	Dimensions int

	callCount atomic.Int64
}

// NewMockEmbedder creates a mock embedder with default deterministic behavior.
// Note: Returns concrete type to allow test assertions via GetMockEmbedder().
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{Dimensions: 384}
}

// EmbedText generates a deterministic embedding based on text hash.
func (m *MockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	m.callCount.Add(1)

	if m.EmbedTextFunc != nil {
		return m.EmbedTextFunc(ctx, text)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return DeterministicVector(text, m.dims()), nil
}

// EmbedTexts generates deterministic embeddings for multiple texts.
func (m *MockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	m.callCount.Add(1)

	if m.EmbedTextsFunc != nil {
		return m.EmbedTextsFunc(ctx, texts)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = DeterministicVector(text, m.dims())
	}
	return embeddings, nil
}

// CallCount returns the number of times any method was called.
func (m *MockEmbedder) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and injected behavior.
func (m *MockEmbedder) Reset() {
	m.callCount.Store(0)
	m.EmbedTextFunc = nil
	m.EmbedTextsFunc = nil
}

func (m *MockEmbedder) dims() int {
	if m.Dimensions <= 0 {
		return 384
	}
	return m.Dimensions
}

// DeterministicVector creates a unit-length embedding vector from text.
// The same text always produces the same vector.
func DeterministicVector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vector := make([]float32, dim)
	for i := 0; i < dim; i++ {
		seed = seed*1664525 + 1013904223 // LCG constants
		vector[i] = float32(seed%1000) / 1000.0
	}
	return Normalize(vector)
}

// Normalize scales v to unit length in place and returns it.
func Normalize(v []float32) []float32 {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return v
	}
	inv := float32(1 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
	return v
}
