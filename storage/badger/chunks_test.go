package badger

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/poiesic/indexit/core"
	"github.com/poiesic/indexit/storage"
)

func TestChunkRecordBasics(t *testing.T) {
	// Create in-memory store
	store, err := NewMemoryStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	// Test adding a chunk record
	record := &core.ChunkRecord{
		ChunkID: "doc1_chunk_0",
		DocID:   "doc1",
		Content: "Hello, world!",
		Vector:  []float32{3, 4},
		Metadata: map[string]string{
			core.MetaChunkIndex: "0",
		},
	}

	added, err := store.AddChunkRecords(ctx, record)
	if err != nil {
		t.Fatalf("Failed to add chunk record: %v", err)
	}

	if len(added) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(added))
	}

	if added[0].InsertedAt.IsZero() {
		t.Fatal("Expected non-zero InsertedAt")
	}

	// Vector is normalized at insert: [3,4] has magnitude 5
	if math.Abs(float64(added[0].Vector[0])-0.6) > 1e-6 || math.Abs(float64(added[0].Vector[1])-0.8) > 1e-6 {
		t.Fatalf("Expected normalized vector [0.6 0.8], got %v", added[0].Vector)
	}

	// Test retrieving the record
	retrieved, err := store.GetChunkRecord(ctx, "doc1_chunk_0")
	if err != nil {
		t.Fatalf("Failed to get chunk record: %v", err)
	}

	if retrieved.Content != "Hello, world!" {
		t.Fatalf("Expected 'Hello, world!', got '%s'", retrieved.Content)
	}
	if retrieved.DocID != "doc1" {
		t.Fatalf("Expected doc ID 'doc1', got '%s'", retrieved.DocID)
	}
	if retrieved.Metadata[core.MetaChunkIndex] != "0" {
		t.Fatalf("Expected chunk index metadata '0', got '%s'", retrieved.Metadata[core.MetaChunkIndex])
	}
}

func TestAddChunkRecords_Validation(t *testing.T) {
	store, err := NewMemoryStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	// Missing chunk ID is rejected
	_, err = store.AddChunkRecords(ctx, &core.ChunkRecord{
		DocID:   "doc1",
		Content: "some content",
		Vector:  []float32{1, 0},
	})
	if !errors.Is(err, core.ErrInvalidChunkRecord) {
		t.Fatalf("Expected ErrInvalidChunkRecord, got %v", err)
	}

	// Missing vector is rejected
	_, err = store.AddChunkRecords(ctx, &core.ChunkRecord{
		ChunkID: "doc1_chunk_0",
		DocID:   "doc1",
		Content: "some content",
	})
	if !errors.Is(err, storage.ErrEmptyVector) {
		t.Fatalf("Expected ErrEmptyVector, got %v", err)
	}
}

func TestAddChunkRecords_Overwrite(t *testing.T) {
	store, err := NewMemoryStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	_, err = store.AddChunkRecords(ctx, &core.ChunkRecord{
		ChunkID: "doc1_chunk_0",
		DocID:   "doc1",
		Content: "original",
		Vector:  []float32{1, 0},
	})
	if err != nil {
		t.Fatalf("Failed to add record: %v", err)
	}

	// Same chunk ID overwrites in place
	_, err = store.AddChunkRecords(ctx, &core.ChunkRecord{
		ChunkID: "doc1_chunk_0",
		DocID:   "doc1",
		Content: "updated",
		Vector:  []float32{0, 1},
	})
	if err != nil {
		t.Fatalf("Failed to overwrite record: %v", err)
	}

	count, err := store.CountChunks(ctx)
	if err != nil {
		t.Fatalf("Failed to count chunks: %v", err)
	}
	if count != 1 {
		t.Fatalf("Expected 1 record after overwrite, got %d", count)
	}

	retrieved, err := store.GetChunkRecord(ctx, "doc1_chunk_0")
	if err != nil {
		t.Fatalf("Failed to get record: %v", err)
	}
	if retrieved.Content != "updated" {
		t.Fatalf("Expected 'updated', got '%s'", retrieved.Content)
	}
}

func TestGetChunkRecord_NotFound(t *testing.T) {
	store, err := NewMemoryStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	_, err = store.GetChunkRecord(context.Background(), "missing_chunk_0")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestFindSimilar(t *testing.T) {
	store, err := NewMemoryStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	// Four records along known directions
	records := []*core.ChunkRecord{
		{ChunkID: "doc1_chunk_0", DocID: "doc1", Content: "exact match", Vector: []float32{1, 0, 0}},
		{ChunkID: "doc1_chunk_1", DocID: "doc1", Content: "close match", Vector: []float32{1, 1, 0}},
		{ChunkID: "doc1_chunk_2", DocID: "doc1", Content: "orthogonal", Vector: []float32{0, 1, 0}},
		{ChunkID: "doc1_chunk_3", DocID: "doc1", Content: "opposite", Vector: []float32{-1, 0, 0}},
	}
	_, err = store.AddChunkRecords(ctx, records...)
	if err != nil {
		t.Fatalf("Failed to add records: %v", err)
	}

	// Query along the first axis, keep everything non-negative
	hits, err := store.FindSimilar(ctx, []float32{1, 0, 0}, 0, 10)
	if err != nil {
		t.Fatalf("Failed to search: %v", err)
	}

	if len(hits) != 3 {
		t.Fatalf("Expected 3 hits, got %d", len(hits))
	}

	// Verify order: most similar first
	if hits[0].Content != "exact match" {
		t.Errorf("Expected 'exact match' first, got '%s'", hits[0].Content)
	}
	if hits[1].Content != "close match" {
		t.Errorf("Expected 'close match' second, got '%s'", hits[1].Content)
	}
	if hits[2].Content != "orthogonal" {
		t.Errorf("Expected 'orthogonal' third, got '%s'", hits[2].Content)
	}

	if math.Abs(float64(hits[0].Score)-1.0) > 1e-6 {
		t.Errorf("Expected score 1.0 for exact match, got %f", hits[0].Score)
	}
	if math.Abs(float64(hits[1].Score)-1.0/math.Sqrt2) > 1e-6 {
		t.Errorf("Expected score ~0.7071 for close match, got %f", hits[1].Score)
	}

	// Raising the similarity floor drops the orthogonal hit
	hits, err = store.FindSimilar(ctx, []float32{1, 0, 0}, 0.5, 10)
	if err != nil {
		t.Fatalf("Failed to search with floor: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("Expected 2 hits above 0.5, got %d", len(hits))
	}

	// Limit truncates after sorting
	hits, err = store.FindSimilar(ctx, []float32{1, 0, 0}, 0, 1)
	if err != nil {
		t.Fatalf("Failed to search with limit: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("Expected 1 hit with limit 1, got %d", len(hits))
	}
	if hits[0].ChunkID != "doc1_chunk_0" {
		t.Fatalf("Expected best hit 'doc1_chunk_0', got '%s'", hits[0].ChunkID)
	}
}

func TestFindSimilar_InvalidQuery(t *testing.T) {
	store, err := NewMemoryStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	_, err = store.FindSimilar(ctx, nil, 0, 10)
	if !errors.Is(err, storage.ErrInvalidQuery) {
		t.Fatalf("Expected ErrInvalidQuery for empty vector, got %v", err)
	}

	_, err = store.FindSimilar(ctx, []float32{1, 0}, 0, 0)
	if !errors.Is(err, storage.ErrInvalidQuery) {
		t.Fatalf("Expected ErrInvalidQuery for zero limit, got %v", err)
	}
}

func TestFindSimilar_EmptyStore(t *testing.T) {
	store, err := NewMemoryStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	hits, err := store.FindSimilar(context.Background(), []float32{1, 0}, 0, 10)
	if err != nil {
		t.Fatalf("Failed to search empty store: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("Expected 0 hits from empty store, got %d", len(hits))
	}
}

func TestCountChunks(t *testing.T) {
	store, err := NewMemoryStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	count, err := store.CountChunks(ctx)
	if err != nil {
		t.Fatalf("Failed to count empty store: %v", err)
	}
	if count != 0 {
		t.Fatalf("Expected 0 records, got %d", count)
	}

	records := []*core.ChunkRecord{
		{ChunkID: "doc1_chunk_0", DocID: "doc1", Content: "one", Vector: []float32{1, 0}},
		{ChunkID: "doc1_chunk_1", DocID: "doc1", Content: "two", Vector: []float32{0, 1}},
		{ChunkID: "doc2_chunk_0", DocID: "doc2", Content: "three", Vector: []float32{1, 1}},
	}
	_, err = store.AddChunkRecords(ctx, records...)
	if err != nil {
		t.Fatalf("Failed to add records: %v", err)
	}

	count, err = store.CountChunks(ctx)
	if err != nil {
		t.Fatalf("Failed to count chunks: %v", err)
	}
	if count != 3 {
		t.Fatalf("Expected 3 records, got %d", count)
	}
}

func TestDeleteByDoc(t *testing.T) {
	store, err := NewMemoryStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	records := []*core.ChunkRecord{
		{ChunkID: "doc1_chunk_0", DocID: "doc1", Content: "keep 1", Vector: []float32{1, 0}},
		{ChunkID: "doc2_chunk_0", DocID: "doc2", Content: "drop 1", Vector: []float32{0, 1}},
		{ChunkID: "doc2_chunk_1", DocID: "doc2", Content: "drop 2", Vector: []float32{1, 1}},
	}
	_, err = store.AddChunkRecords(ctx, records...)
	if err != nil {
		t.Fatalf("Failed to add records: %v", err)
	}

	// Delete everything under doc2
	deleted, err := store.DeleteByDoc(ctx, "doc2")
	if err != nil {
		t.Fatalf("Failed to delete by doc: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("Expected 2 deletions, got %d", deleted)
	}

	// Verify deleted records are gone
	_, err = store.GetChunkRecord(ctx, "doc2_chunk_0")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for deleted chunk, got %v", err)
	}

	// Verify doc1 is untouched
	retrieved, err := store.GetChunkRecord(ctx, "doc1_chunk_0")
	if err != nil {
		t.Fatalf("Failed to get remaining record: %v", err)
	}
	if retrieved.Content != "keep 1" {
		t.Fatalf("Expected 'keep 1', got '%s'", retrieved.Content)
	}

	// Deleted records no longer appear in search results
	hits, err := store.FindSimilar(ctx, []float32{0, 1}, -1, 10)
	if err != nil {
		t.Fatalf("Failed to search after delete: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("Expected 1 hit after delete, got %d", len(hits))
	}

	// Deleting again is a no-op
	deleted, err = store.DeleteByDoc(ctx, "doc2")
	if err != nil {
		t.Fatalf("Failed on repeat delete: %v", err)
	}
	if deleted != 0 {
		t.Fatalf("Expected 0 deletions on repeat, got %d", deleted)
	}

	// Unknown document is a no-op
	deleted, err = store.DeleteByDoc(ctx, "never_indexed")
	if err != nil {
		t.Fatalf("Failed on unknown doc delete: %v", err)
	}
	if deleted != 0 {
		t.Fatalf("Expected 0 deletions for unknown doc, got %d", deleted)
	}
}

func TestClear(t *testing.T) {
	store, err := NewMemoryStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	records := []*core.ChunkRecord{
		{ChunkID: "doc1_chunk_0", DocID: "doc1", Content: "one", Vector: []float32{1, 0}},
		{ChunkID: "doc2_chunk_0", DocID: "doc2", Content: "two", Vector: []float32{0, 1}},
	}
	_, err = store.AddChunkRecords(ctx, records...)
	if err != nil {
		t.Fatalf("Failed to add records: %v", err)
	}

	cleared, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Failed to clear store: %v", err)
	}
	if cleared != 2 {
		t.Fatalf("Expected 2 cleared records, got %d", cleared)
	}

	count, err := store.CountChunks(ctx)
	if err != nil {
		t.Fatalf("Failed to count after clear: %v", err)
	}
	if count != 0 {
		t.Fatalf("Expected 0 records after clear, got %d", count)
	}

	_, err = store.GetChunkRecord(ctx, "doc1_chunk_0")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound after clear, got %v", err)
	}
}

func TestInsertedAtPreserved(t *testing.T) {
	store, err := NewMemoryStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	// An explicit timestamp survives the insert
	stamp := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	record := &core.ChunkRecord{
		ChunkID:    "doc1_chunk_0",
		DocID:      "doc1",
		Content:    "stamped",
		Vector:     []float32{1, 0},
		InsertedAt: stamp,
	}
	_, err = store.AddChunkRecords(ctx, record)
	if err != nil {
		t.Fatalf("Failed to add record: %v", err)
	}

	retrieved, err := store.GetChunkRecord(ctx, "doc1_chunk_0")
	if err != nil {
		t.Fatalf("Failed to get record: %v", err)
	}
	if !retrieved.InsertedAt.Equal(stamp) {
		t.Fatalf("Expected InsertedAt %v, got %v", stamp, retrieved.InsertedAt)
	}
}
