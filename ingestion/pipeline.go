package ingestion

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/indexit/ai"
	"github.com/poiesic/indexit/chunker"
	"github.com/poiesic/indexit/core"
	"github.com/poiesic/indexit/extract"
	"github.com/poiesic/indexit/indexer"
	"github.com/poiesic/indexit/resource"
	"github.com/poiesic/indexit/storage"
)

// Pipeline orchestrates document indexing: extraction, chunking, embedding
// and persistence. Every invocation is independent; the pipeline keeps no
// state between calls.
type Pipeline struct {
	extractors *extract.Set
	embedder   ai.Embedder
	store      storage.VectorStore
	chunking   *chunker.Config
	batching   *indexer.Config
	sink       chunker.Sink
	governor   resource.Governor
	progress   io.Writer
	workers    int
	pool       *ants.Pool
	chunker    *chunker.TextChunker
	indexer    *indexer.BatchIndexer
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithChunking sets the chunking parameters.
// Default is chunker.DefaultConfig.
func WithChunking(config chunker.Config) Option {
	return func(p *Pipeline) error {
		p.chunking = &config
		return nil
	}
}

// WithBatching sets the batch indexing parameters.
// Default is indexer.DefaultConfig.
func WithBatching(config indexer.Config) Option {
	return func(p *Pipeline) error {
		p.batching = &config
		return nil
	}
}

// WithChunkSink attaches a sink that persists each chunk as it is emitted,
// before it is embedded.
func WithChunkSink(sink chunker.Sink) Option {
	return func(p *Pipeline) error {
		if sink == nil {
			return chunker.ErrSinkRequired
		}
		p.sink = sink
		return nil
	}
}

// WithGovernor sets the memory governor probed by the chunker and indexer.
// Default is resource.NopGovernor.
func WithGovernor(governor resource.Governor) Option {
	return func(p *Pipeline) error {
		if governor == nil {
			governor = resource.NopGovernor{}
		}
		p.governor = governor
		return nil
	}
}

// WithProgress sets the writer that receives progress lines during
// indexing. Default is io.Discard.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) error {
		if w == nil {
			w = io.Discard
		}
		p.progress = w
		return nil
	}
}

// WithWorkers sets the number of files indexed concurrently during
// directory walks. Default is 1, which keeps a single chunk batch in
// flight; larger values multiply the memory ceiling by the worker count.
func WithWorkers(n int) Option {
	return func(p *Pipeline) error {
		if n < 1 {
			n = 1
		}
		p.workers = n
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a document indexing pipeline.
func NewPipeline(
	extractors *extract.Set,
	embedder ai.Embedder,
	store storage.VectorStore,
	opts ...Option,
) (*Pipeline, error) {
	if extractors == nil {
		return nil, ErrExtractorsRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if store == nil {
		return nil, ErrStoreRequired
	}

	p := &Pipeline{
		extractors: extractors,
		embedder:   embedder,
		store:      store,
		governor:   resource.NopGovernor{},
		progress:   io.Discard,
		workers:    1,
		logger:     slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	// Create collaborators after options are applied (so they get final config)
	chunkerOpts := []chunker.Option{
		chunker.WithGovernor(p.governor),
		chunker.WithLogger(p.logger),
	}
	if p.sink != nil {
		chunkerOpts = append(chunkerOpts, chunker.WithSink(p.sink))
	}
	textChunker, err := chunker.New(p.chunking, chunkerOpts...)
	if err != nil {
		return nil, err
	}

	batchIndexer, err := indexer.New(embedder, store, p.batching,
		indexer.WithGovernor(p.governor),
		indexer.WithLogger(p.logger),
		indexer.WithProgress(p.progress))
	if err != nil {
		return nil, err
	}

	pool, err := ants.NewPool(p.workers)
	if err != nil {
		return nil, err
	}

	p.chunker = textChunker
	p.indexer = batchIndexer
	p.pool = pool
	p.logger = p.logger.With("component", "pipeline")

	return p, nil
}

// IndexFile extracts, chunks and indexes a single document file. The
// document id is the file name without its extension. Base metadata
// (filename, file_path, file_size, file_type) is overlaid by extra, and
// per-chunk fields overlay both.
func (p *Pipeline) IndexFile(ctx context.Context, path string, extra map[string]string) (*core.IndexingResult, error) {
	text, err := p.extractors.Extract(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	base := map[string]string{
		core.MetaFilename: filepath.Base(path),
		core.MetaFilePath: path,
		core.MetaFileSize: strconv.FormatInt(info.Size(), 10),
		core.MetaFileType: strings.ToLower(filepath.Ext(path)),
	}
	maps.Copy(base, extra)

	docID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	p.logger.Info("indexing file", "path", path, "doc_id", docID, "file_bytes", info.Size())

	return p.index(ctx, docID, text, base)
}

// IndexText chunks and indexes raw text without extraction. An empty docID
// falls back to core.DefaultDocID.
func (p *Pipeline) IndexText(ctx context.Context, text, docID string, extra map[string]string) (*core.IndexingResult, error) {
	if docID == "" {
		docID = core.DefaultDocID
	}
	p.logger.Info("indexing text", "doc_id", docID, "text_chars", len(text))

	return p.index(ctx, docID, text, extra)
}

// index runs the shared chunk-then-index machinery. Base metadata sits
// under each chunk's own fields.
func (p *Pipeline) index(ctx context.Context, docID, text string, base map[string]string) (*core.IndexingResult, error) {
	chunks, err := p.chunker.Split(docID, text)
	if err != nil {
		return nil, fmt.Errorf("failed to chunk document %s: %w", docID, err)
	}

	if len(base) > 0 {
		for _, chunk := range chunks {
			merged := make(map[string]string, len(base)+len(chunk.Metadata))
			maps.Copy(merged, base)
			maps.Copy(merged, chunk.Metadata)
			chunk.Metadata = merged
		}
	}

	return p.indexer.IndexChunks(ctx, chunks)
}

// Release frees the worker pool. The pipeline must not be used after
// calling Release. The injected store stays open for its owner to close.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
