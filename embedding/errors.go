package embedding

import (
	"errors"
	"fmt"
)

var (
	// ErrEmbedderRequired is returned when no embedder is provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrEmptyEmbedding is returned when the model answers with no vector.
	ErrEmptyEmbedding = errors.New("empty embedding")

	// ErrBatchMismatch is returned when a batch call returns the wrong number of vectors.
	ErrBatchMismatch = errors.New("embedding batch size mismatch")
)

// EmbeddingError reports a failed call to the embedding model. It is
// recoverable: callers degrade rather than fail the whole query.
type EmbeddingError struct {
	// Op is "embed" or "embed_batch".
	Op string
	// Inputs is the number of texts the failed call carried.
	Inputs int
	Err    error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding %s (%d inputs): %v", e.Op, e.Inputs, e.Err)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}
