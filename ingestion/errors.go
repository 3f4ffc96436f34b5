package ingestion

import "errors"

var (
	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrVectorStoreRequired is returned when a vector store is not provided.
	ErrVectorStoreRequired = errors.New("vector store required")

	// ErrInvalidMaxAttempts is returned when maxAttempts is not positive.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrNothingIndexed is returned when no chunk of a document could be embedded.
	ErrNothingIndexed = errors.New("no chunks indexed")
)
