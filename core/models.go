package core

//go:generate go run ../cmd/musgen

import (
	"encoding/binary"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// Key is a fixed 64-bit storage key for persisted records.
// It is derived deterministically from string identifiers.
type Key uint64

// KeyFromString derives a deterministic Key from a string using BLAKE2b hashing.
// This ensures that identical identifiers produce identical keys.
func KeyFromString(s string) Key {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(s))
	sum := h.Sum(nil)
	return Key(binary.LittleEndian.Uint64(sum))
}

// Metadata keys attached to every chunk. File ingestion adds the file_* keys,
// callers may merge arbitrary extra keys on top.
const (
	MetaChunkID     = "chunk_id"
	MetaChunkIndex  = "chunk_index"
	MetaTotalChunks = "total_chunks"
	MetaDocID       = "doc_id"
	MetaFilename    = "filename"
	MetaFilePath    = "file_path"
	MetaFileSize    = "file_size"
	MetaFileType    = "file_type"
)

// DefaultDocID is the document identifier used when callers index raw text
// without naming the document.
const DefaultDocID = "manual_entry"

// ChunkID formats the canonical chunk identifier for a document and a
// 0-based chunk index.
func ChunkID(docID string, index int) string {
	return docID + "_chunk_" + strconv.Itoa(index)
}

// Chunk is a contiguous slice of source text produced by the chunker.
// It is transient: chunks flow from the chunker through the batch indexer
// and are released batch-by-batch.
type Chunk struct {
	ID       string
	DocID    string
	Index    int // 0-based position within the document
	Content  string
	Metadata map[string]string
}

// ChunkRecord is the persisted form of an indexed chunk.
type ChunkRecord struct {
	ChunkID    string
	DocID      string
	Content    string
	Vector     []float32 // Embedding vector, normalized at insert
	Metadata   map[string]string
	InsertedAt time.Time // When the record was inserted into the store
}

// SearchHit represents a similarity-search result with its relevance score.
type SearchHit struct {
	ChunkID  string
	DocID    string
	Content  string
	Metadata map[string]string
	Score    float32 // Cosine similarity, higher is better
}
