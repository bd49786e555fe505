package chunker

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/poiesic/indexit/core"
)

// DefaultChunkDir is where DirSink writes when no directory is given.
const DefaultChunkDir = "chunks_output"

// Sink receives chunks synchronously during enumeration. WriteChunk must
// persist the chunk before returning; an error aborts chunking.
type Sink interface {
	WriteChunk(chunk *core.Chunk) error
}

// DirSink persists each chunk as a standalone Markdown file in a directory.
type DirSink struct {
	dir string
}

var _ Sink = (*DirSink)(nil)

// NewDirSink creates dir (and any parents) if needed and returns a sink
// writing into it. An empty dir uses DefaultChunkDir.
func NewDirSink(dir string) (*DirSink, error) {
	if dir == "" {
		dir = DefaultChunkDir
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create chunk directory: %w", err)
	}
	return &DirSink{dir: dir}, nil
}

// Dir returns the directory chunk files are written into.
func (s *DirSink) Dir() string {
	return s.dir
}

// WriteChunk writes chunk_NNNNNN.md named by the chunk's 1-based ordinal.
// The ordinal is repeated in the file's heading and each file ends with a
// separator, so partial runs stay individually readable.
func (s *DirSink) WriteChunk(chunk *core.Chunk) error {
	ordinal := chunk.Index + 1
	path := filepath.Join(s.dir, fmt.Sprintf("chunk_%06d.md", ordinal))
	content := fmt.Sprintf("# Chunk %d\n\n%s\n\n---\n\n", ordinal, chunk.Content)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("write chunk file: %w", err)
	}
	return nil
}
