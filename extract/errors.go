package extract

import "errors"

var (
	// ErrNotFound indicates that the document file does not exist.
	ErrNotFound = errors.New("file not found")

	// ErrUnsupportedFormat indicates a file extension no extractor handles.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)
