package indexer

import "errors"

var (
	// ErrInvalidConfig indicates the batch configuration failed validation.
	ErrInvalidConfig = errors.New("invalid indexer configuration")

	// ErrEmbedderRequired is returned when no embedder is provided.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrStoreRequired is returned when no vector store is provided.
	ErrStoreRequired = errors.New("vector store is required")
)
