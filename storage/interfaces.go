package storage

import (
	"context"

	"github.com/poiesic/indexit/core"
)

// VectorStore provides persistence and similarity search for embedded chunks.
// Implementations must be thread-safe and support concurrent access.
type VectorStore interface {
	// AddChunkRecords persists one or more chunk records in a single call.
	// A record with the ChunkID of an existing record overwrites it.
	// Sets InsertedAt if not already set.
	// Returns the records with timestamps populated.
	AddChunkRecords(ctx context.Context, records ...*core.ChunkRecord) ([]*core.ChunkRecord, error)

	// GetChunkRecord retrieves a single chunk record by its chunk ID.
	// Returns ErrNotFound if the record doesn't exist.
	GetChunkRecord(ctx context.Context, chunkID string) (*core.ChunkRecord, error)

	// FindSimilar finds chunks similar to the given query vector.
	// Returns hits with similarity >= minSimilarity, up to limit results.
	// Results are ordered by cosine similarity (highest first).
	FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchHit, error)

	// CountChunks returns the number of stored chunk records.
	CountChunks(ctx context.Context) (int, error)

	// DeleteByDoc removes every chunk belonging to a document.
	// Returns the number of chunks removed; zero with no error when the
	// document has none.
	DeleteByDoc(ctx context.Context, docID string) (int, error)

	// Clear removes all chunk records from the store.
	// Returns the number of chunks removed.
	Clear(ctx context.Context) (int, error)

	// Close closes the storage backend and releases resources.
	Close() error
}
