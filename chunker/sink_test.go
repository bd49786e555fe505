package chunker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/indexit/core"
)

func TestNewDirSink_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "chunks")

	sink, err := NewDirSink(dir)
	if err != nil {
		t.Fatalf("NewDirSink() error = %v", err)
	}
	if sink.Dir() != dir {
		t.Errorf("Dir() = %q, want %q", sink.Dir(), dir)
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if !info.IsDir() {
		t.Errorf("%q is not a directory", dir)
	}
}

func TestDirSink_WriteChunk(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewDirSink(dir)
	if err != nil {
		t.Fatalf("NewDirSink() error = %v", err)
	}

	chunks := []*core.Chunk{
		{ID: "doc_chunk_0", DocID: "doc", Index: 0, Content: "first chunk"},
		{ID: "doc_chunk_1", DocID: "doc", Index: 1, Content: "second chunk"},
	}
	for _, chunk := range chunks {
		if err := sink.WriteChunk(chunk); err != nil {
			t.Fatalf("WriteChunk(%d) error = %v", chunk.Index, err)
		}
	}

	tests := []struct {
		name     string
		filename string
		want     string
	}{
		{
			name:     "first file is one-based",
			filename: "chunk_000001.md",
			want:     "# Chunk 1\n\nfirst chunk\n\n---\n\n",
		},
		{
			name:     "second file",
			filename: "chunk_000002.md",
			want:     "# Chunk 2\n\nsecond chunk\n\n---\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := os.ReadFile(filepath.Join(dir, tt.filename))
			if err != nil {
				t.Fatalf("ReadFile() error = %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("file content = %q, want %q", string(data), tt.want)
			}
		})
	}
}

func TestDirSink_StreamedFromChunker(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewDirSink(dir)
	if err != nil {
		t.Fatalf("NewDirSink() error = %v", err)
	}

	c := mustChunker(t, &Config{ChunkSize: 4, ChunkOverlap: 1}, WithSink(sink))
	chunks, err := c.Split("doc", "ABCDEFGHIJ")
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != len(chunks) {
		t.Errorf("wrote %d files, want %d", len(entries), len(chunks))
	}
}
