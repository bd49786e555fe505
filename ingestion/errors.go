package ingestion

import "errors"

var (
	// ErrExtractorsRequired is returned when an extractor set is not provided.
	ErrExtractorsRequired = errors.New("extractor set required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrStoreRequired is returned when a vector store is not provided.
	ErrStoreRequired = errors.New("vector store required")

	// ErrNotFound is returned when the input directory does not exist.
	ErrNotFound = errors.New("directory not found")
)
