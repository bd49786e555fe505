package ai

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrEmbedderRequired is returned when a nil embedder is supplied
	ErrEmbedderRequired = errors.New("embedder is required")
)
