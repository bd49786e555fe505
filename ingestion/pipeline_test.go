package ingestion

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/indexit/chunker"
	"github.com/poiesic/indexit/core"
	"github.com/poiesic/indexit/extract"
	"github.com/poiesic/indexit/indexer"
	"github.com/poiesic/indexit/storage"
	"github.com/poiesic/indexit/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEmbedder implements ai.Embedder for testing
type testEmbedder struct {
	err error
}

func (m *testEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []float32{1, 0, 0}, nil
}

func (m *testEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 0, 0}
	}
	return vectors, nil
}

func setupTestStore(t *testing.T) storage.VectorStore {
	t.Helper()
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testExtractors(t *testing.T) *extract.Set {
	t.Helper()
	extractors, err := extract.NewSet()
	require.NoError(t, err)
	return extractors
}

func newTestPipeline(t *testing.T, store storage.VectorStore, opts ...Option) *Pipeline {
	t.Helper()
	pipeline, err := NewPipeline(testExtractors(t), &testEmbedder{}, store, opts...)
	require.NoError(t, err)
	t.Cleanup(pipeline.Release)
	return pipeline
}

// twoChunkText has no sentence boundaries, so ChunkSize 40 with no overlap
// splits it into exactly two chunks of 40 runes.
func twoChunkText() string {
	return strings.Repeat("a", 40) + strings.Repeat("b", 40)
}

func twoChunkOptions() Option {
	return WithChunking(chunker.Config{ChunkSize: 40, ChunkOverlap: 0})
}

func TestNewPipeline_Validation(t *testing.T) {
	store := setupTestStore(t)

	t.Run("nil extractors", func(t *testing.T) {
		_, err := NewPipeline(nil, &testEmbedder{}, store)
		assert.ErrorIs(t, err, ErrExtractorsRequired)
	})

	t.Run("nil embedder", func(t *testing.T) {
		_, err := NewPipeline(testExtractors(t), nil, store)
		assert.ErrorIs(t, err, ErrEmbedderRequired)
	})

	t.Run("nil store", func(t *testing.T) {
		_, err := NewPipeline(testExtractors(t), &testEmbedder{}, nil)
		assert.ErrorIs(t, err, ErrStoreRequired)
	})

	t.Run("invalid chunking config", func(t *testing.T) {
		_, err := NewPipeline(testExtractors(t), &testEmbedder{}, store,
			WithChunking(chunker.Config{ChunkSize: 100, ChunkOverlap: 100}))
		assert.ErrorIs(t, err, chunker.ErrInvalidConfig)
	})

	t.Run("invalid batching config", func(t *testing.T) {
		_, err := NewPipeline(testExtractors(t), &testEmbedder{}, store,
			WithBatching(indexer.Config{ProcessingBatchSize: 5, EmbeddingBatchSize: 10}))
		assert.ErrorIs(t, err, indexer.ErrInvalidConfig)
	})

	t.Run("nil sink rejected", func(t *testing.T) {
		_, err := NewPipeline(testExtractors(t), &testEmbedder{}, store,
			WithChunkSink(nil))
		assert.ErrorIs(t, err, chunker.ErrSinkRequired)
	})
}

func TestIndexText(t *testing.T) {
	store := setupTestStore(t)
	pipeline := newTestPipeline(t, store, twoChunkOptions())

	result, err := pipeline.IndexText(context.Background(), twoChunkText(), "doc1", nil)
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalChunks)
	assert.Equal(t, 2, result.ChunksIndexed)
	assert.Empty(t, result.FailedBatches)
	assert.Equal(t, 1.0, result.SuccessRate())

	count, err := store.CountChunks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	record, err := store.GetChunkRecord(context.Background(), "doc1_chunk_0")
	require.NoError(t, err)
	assert.Equal(t, "doc1", record.DocID)
	assert.Equal(t, strings.Repeat("a", 40), record.Content)
	assert.Equal(t, "0", record.Metadata[core.MetaChunkIndex])
	assert.Equal(t, "2", record.Metadata[core.MetaTotalChunks])
}

func TestIndexText_DefaultDocID(t *testing.T) {
	store := setupTestStore(t)
	pipeline := newTestPipeline(t, store)

	result, err := pipeline.IndexText(context.Background(), "a short note", "", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ChunksIndexed)

	record, err := store.GetChunkRecord(context.Background(), "manual_entry_chunk_0")
	require.NoError(t, err)
	assert.Equal(t, core.DefaultDocID, record.DocID)
}

func TestIndexText_MetadataOverlay(t *testing.T) {
	store := setupTestStore(t)
	pipeline := newTestPipeline(t, store)

	extra := map[string]string{
		"source":            "import",
		core.MetaChunkIndex: "999",
	}
	_, err := pipeline.IndexText(context.Background(), "overlay check", "doc2", extra)
	require.NoError(t, err)

	record, err := store.GetChunkRecord(context.Background(), "doc2_chunk_0")
	require.NoError(t, err)

	// Caller metadata is carried, but chunk-level fields win.
	assert.Equal(t, "import", record.Metadata["source"])
	assert.Equal(t, "0", record.Metadata[core.MetaChunkIndex])
	assert.Equal(t, "doc2", record.Metadata[core.MetaDocID])
}

func TestIndexText_EmbedderFailure(t *testing.T) {
	store := setupTestStore(t)
	embedder := &testEmbedder{err: errors.New("provider down")}
	pipeline, err := NewPipeline(testExtractors(t), embedder, store, twoChunkOptions())
	require.NoError(t, err)
	t.Cleanup(pipeline.Release)

	result, err := pipeline.IndexText(context.Background(), twoChunkText(), "doc1", nil)
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalChunks)
	assert.Equal(t, 0, result.ChunksIndexed)
	assert.Len(t, result.FailedBatches, 1)
	assert.Equal(t, 0.0, result.SuccessRate())

	count, err := store.CountChunks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestIndexText_ContextCanceled(t *testing.T) {
	store := setupTestStore(t)
	pipeline := newTestPipeline(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := pipeline.IndexText(ctx, "text that never gets indexed", "doc1", nil)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Equal(t, 0, result.ChunksIndexed)
}

func TestIndexText_ChunkSink(t *testing.T) {
	store := setupTestStore(t)
	dir := t.TempDir()
	sink, err := chunker.NewDirSink(dir)
	require.NoError(t, err)

	pipeline := newTestPipeline(t, store, twoChunkOptions(), WithChunkSink(sink))

	result, err := pipeline.IndexText(context.Background(), twoChunkText(), "doc1", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.ChunksIndexed)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestIndexFile(t *testing.T) {
	store := setupTestStore(t)
	pipeline := newTestPipeline(t, store, twoChunkOptions())

	path := filepath.Join(t.TempDir(), "report.txt")
	require.NoError(t, os.WriteFile(path, []byte(twoChunkText()), 0o644))

	result, err := pipeline.IndexFile(context.Background(), path, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalChunks)
	assert.Equal(t, 2, result.ChunksIndexed)

	record, err := store.GetChunkRecord(context.Background(), "report_chunk_0")
	require.NoError(t, err)
	assert.Equal(t, "report", record.DocID)
	assert.Equal(t, "report.txt", record.Metadata[core.MetaFilename])
	assert.Equal(t, path, record.Metadata[core.MetaFilePath])
	assert.Equal(t, "80", record.Metadata[core.MetaFileSize])
	assert.Equal(t, ".txt", record.Metadata[core.MetaFileType])
	assert.Equal(t, "2", record.Metadata[core.MetaTotalChunks])
}

func TestIndexFile_ExtraOverlaysBase(t *testing.T) {
	store := setupTestStore(t)
	pipeline := newTestPipeline(t, store)

	path := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("# Notes\n\nsome content"), 0o644))

	extra := map[string]string{core.MetaFilename: "renamed.md", "owner": "ops"}
	_, err := pipeline.IndexFile(context.Background(), path, extra)
	require.NoError(t, err)

	record, err := store.GetChunkRecord(context.Background(), "notes_chunk_0")
	require.NoError(t, err)
	assert.Equal(t, "renamed.md", record.Metadata[core.MetaFilename])
	assert.Equal(t, "ops", record.Metadata["owner"])
}

func TestIndexFile_NotFound(t *testing.T) {
	store := setupTestStore(t)
	pipeline := newTestPipeline(t, store)

	_, err := pipeline.IndexFile(context.Background(), filepath.Join(t.TempDir(), "missing.txt"), nil)
	assert.ErrorIs(t, err, extract.ErrNotFound)
}

func TestIndexFile_UnsupportedFormat(t *testing.T) {
	store := setupTestStore(t)
	pipeline := newTestPipeline(t, store)

	path := filepath.Join(t.TempDir(), "image.png")
	require.NoError(t, os.WriteFile(path, []byte{0x89, 'P', 'N', 'G'}, 0o644))

	_, err := pipeline.IndexFile(context.Background(), path, nil)
	assert.ErrorIs(t, err, extract.ErrUnsupportedFormat)
}
