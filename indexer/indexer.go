// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package indexer

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/indexit/ai"
	"github.com/poiesic/indexit/core"
	"github.com/poiesic/indexit/resource"
	"github.com/poiesic/indexit/storage"
)

// BatchIndexer embeds chunks and persists them in bounded batches.
type BatchIndexer struct {
	embedder ai.Embedder
	store    storage.VectorStore
	config   *Config
	governor resource.Governor
	logger   *slog.Logger
	progress io.Writer
}

// Option configures a BatchIndexer.
type Option func(*BatchIndexer) error

// WithGovernor sets the memory governor probed between batches.
func WithGovernor(governor resource.Governor) Option {
	return func(ix *BatchIndexer) error {
		if governor != nil {
			ix.governor = governor
		}
		return nil
	}
}

// WithLogger sets the logger used by the indexer.
func WithLogger(logger *slog.Logger) Option {
	return func(ix *BatchIndexer) error {
		if logger != nil {
			ix.logger = logger
		}
		return nil
	}
}

// WithProgress sets the writer that receives progress lines.
// Defaults to io.Discard.
func WithProgress(w io.Writer) Option {
	return func(ix *BatchIndexer) error {
		if w != nil {
			ix.progress = w
		}
		return nil
	}
}

// New creates a BatchIndexer with the given embedder, store, and batch
// configuration. A nil config selects DefaultConfig.
func New(embedder ai.Embedder, store storage.VectorStore, config *Config, opts ...Option) (*BatchIndexer, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if store == nil {
		return nil, ErrStoreRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	ix := &BatchIndexer{
		embedder: embedder,
		store:    store,
		config:   config,
		governor: resource.NopGovernor{},
		logger:   slog.Default(),
		progress: io.Discard,
	}

	for _, opt := range opts {
		if err := opt(ix); err != nil {
			return nil, err
		}
	}

	ix.logger = ix.logger.With("component", "batch-indexer")
	return ix, nil
}

// Config returns the indexer's batch configuration.
func (ix *BatchIndexer) Config() *Config {
	return ix.config
}

// IndexChunks embeds and stores chunks in processing batches.
//
// The slice is consumed: entries are nilled out as their batch completes, so
// live chunk memory stays bounded by the processing batch size. A failed
// batch is recorded in the result and never aborts the run. Cancellation is
// honored at batch boundaries and returns the partial result together with
// ctx.Err().
func (ix *BatchIndexer) IndexChunks(ctx context.Context, chunks []*core.Chunk) (*core.IndexingResult, error) {
	result := &core.IndexingResult{TotalChunks: len(chunks)}
	if len(chunks) == 0 {
		return result, nil
	}

	interval := ix.config.ReportInterval
	if interval <= 0 {
		interval = DefaultReportInterval
	}
	tracker := NewProgressTracker(ix.progress, len(chunks), interval)
	tracker.Start()

	for start := 0; start < len(chunks); start += ix.config.ProcessingBatchSize {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		end := min(start+ix.config.ProcessingBatchSize, len(chunks))
		batchNumber := start/ix.config.ProcessingBatchSize + 1

		if ix.governor.Check() == resource.StatusCritical {
			ix.governor.Reclaim()
		}

		ix.logger.Debug("processing batch",
			"batch", batchNumber, "start", start, "end", end)

		batch := chunks[start:end]
		if err := ix.indexBatch(ctx, batch); err != nil {
			ix.logger.Warn("batch failed",
				"batch", batchNumber, "start", start, "end", end, "error", err)
			result.FailedBatches = append(result.FailedBatches, core.BatchOutcome{
				BatchNumber: batchNumber,
				Start:       start,
				End:         end,
				Err:         err,
			})
		} else {
			result.ChunksIndexed += len(batch)
			tracker.Increment(len(batch))
		}

		// Release consumed entries so the batch can be collected.
		for i := start; i < end; i++ {
			chunks[i] = nil
		}
		ix.governor.Reclaim()
	}

	tracker.Finish()

	ix.logger.Info("indexing complete",
		"total_chunks", result.TotalChunks,
		"chunks_indexed", result.ChunksIndexed,
		"failed_batches", len(result.FailedBatches),
		"success_rate", result.SuccessRate())

	return result, nil
}

// indexBatch embeds one processing batch and stores it in a single call.
func (ix *BatchIndexer) indexBatch(ctx context.Context, batch []*core.Chunk) error {
	embeddings, err := ix.embedBatch(ctx, batch)
	if err != nil {
		return err
	}

	records := make([]*core.ChunkRecord, len(batch))
	for i, chunk := range batch {
		records[i] = &core.ChunkRecord{
			ChunkID:  chunk.ID,
			DocID:    chunk.DocID,
			Content:  chunk.Content,
			Vector:   embeddings[i],
			Metadata: chunk.Metadata,
		}
	}

	if _, err := ix.store.AddChunkRecords(ctx, records...); err != nil {
		return fmt.Errorf("failed to store batch: %w", err)
	}
	return nil
}

// embedBatch produces one embedding per chunk, calling the provider once per
// embedding sub-batch. Vectors come back in chunk order. Any provider error
// aborts the whole processing batch; retry policy belongs to the embedder.
func (ix *BatchIndexer) embedBatch(ctx context.Context, batch []*core.Chunk) ([][]float32, error) {
	embeddings := make([][]float32, 0, len(batch))

	for start := 0; start < len(batch); start += ix.config.EmbeddingBatchSize {
		end := min(start+ix.config.EmbeddingBatchSize, len(batch))

		texts := make([]string, end-start)
		for i, chunk := range batch[start:end] {
			texts[i] = chunk.Content
		}

		vectors, err := ix.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("failed to embed texts %d-%d: %w", start, end, err)
		}
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(texts), len(vectors))
		}

		embeddings = append(embeddings, vectors...)
	}

	return embeddings, nil
}
