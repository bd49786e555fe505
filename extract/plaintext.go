package extract

import (
	"fmt"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// fallbackEncodings are tried in order when a file is not valid UTF-8.
var fallbackEncodings = []encoding.Encoding{
	charmap.ISO8859_1,
	charmap.Windows1252,
}

// PlainText extracts text files verbatim. Files that are not valid UTF-8
// are decoded through a chain of common single-byte legacy encodings.
type PlainText struct{}

// NewPlainText creates a PlainText extractor.
func NewPlainText() *PlainText {
	return &PlainText{}
}

// Extensions returns the plain-text extensions.
func (*PlainText) Extensions() []string {
	return []string{".txt", ".md", ".text"}
}

// Extract reads the file and returns its content as UTF-8.
func (*PlainText) Extract(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	if utf8.Valid(data) {
		return string(data), nil
	}

	for _, enc := range fallbackEncodings {
		decoded, err := enc.NewDecoder().Bytes(data)
		if err != nil {
			continue
		}
		return string(decoded), nil
	}
	return "", fmt.Errorf("decode %s: no known encoding applies", path)
}
