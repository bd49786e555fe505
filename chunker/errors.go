package chunker

import "errors"

var (
	// ErrInvalidConfig is returned when chunking parameters are inconsistent
	ErrInvalidConfig = errors.New("invalid chunker configuration")

	// ErrSinkRequired is returned when a nil sink is supplied
	ErrSinkRequired = errors.New("sink is required")
)
