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


package indexit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/indexit/ai"
	"github.com/poiesic/indexit/ai/openai"
	"github.com/poiesic/indexit/core"
	"github.com/poiesic/indexit/extract"
	"github.com/poiesic/indexit/ingestion"
	"github.com/poiesic/indexit/resource"
	"github.com/poiesic/indexit/storage"
	"github.com/poiesic/indexit/storage/badger"
	"github.com/poiesic/indexit/storage/qdrant"
)

// DefaultTopK is the default number of search results.
const DefaultTopK = 5

// Engine wires a vector store, an embedding provider and the document
// extractors into a single handle for library consumers.
type Engine struct {
	store      storage.VectorStore
	embedder   ai.Embedder
	extractors *extract.Set
	governor   resource.Governor
	logger     *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	aiConfig     *ai.Config
	qdrantConfig *qdrant.Config
	maxAttempts  int
	governor     resource.Governor
	logger       *slog.Logger
}

// WithAIConfig sets the embedding provider configuration.
func WithAIConfig(config *ai.Config) EngineOption {
	return func(o *engineOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithQdrant stores chunks in a remote Qdrant collection instead of the
// local Badger database. The dbPath argument to NewEngine is ignored.
func WithQdrant(config *qdrant.Config) EngineOption {
	return func(o *engineOptions) {
		o.qdrantConfig = config
	}
}

// WithEmbeddingRetries retries failed embedding calls up to maxAttempts
// times with exponential backoff. Zero or negative leaves retries off.
func WithEmbeddingRetries(maxAttempts int) EngineOption {
	return func(o *engineOptions) {
		o.maxAttempts = maxAttempts
	}
}

// WithGovernor sets the memory governor shared by extraction and indexing.
func WithGovernor(governor resource.Governor) EngineOption {
	return func(o *engineOptions) {
		if governor != nil {
			o.governor = governor
		}
	}
}

// WithLogger sets the logger used by the engine and its collaborators.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewEngine opens the vector store at dbPath and assembles the embedder and
// extractor set around it. With WithQdrant the store is remote and dbPath is
// ignored. The caller owns the returned Engine and must Close it.
func NewEngine(dbPath string, opts ...EngineOption) (*Engine, error) {
	// Apply options
	options := &engineOptions{
		aiConfig: ai.DefaultConfig(), // Default if not provided
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.governor == nil {
		options.governor = resource.NewGovernor(0, options.logger)
	}

	// Open vector store
	var store storage.VectorStore
	var err error
	if options.qdrantConfig != nil {
		store, err = qdrant.NewStore(options.qdrantConfig, qdrant.WithLogger(options.logger))
	} else {
		store, err = badger.NewStore(dbPath)
	}
	if err != nil {
		return nil, err
	}

	// Create embedder with configured settings
	embedder, err := openai.NewEmbedder(options.aiConfig)
	if err != nil {
		store.Close()
		return nil, err
	}
	if options.maxAttempts > 0 {
		embedder, err = ai.NewRetryEmbedder(embedder, options.maxAttempts, 0)
		if err != nil {
			store.Close()
			return nil, err
		}
	}

	// Create extractor set
	extractors, err := extract.NewSet(
		extract.WithGovernor(options.governor),
		extract.WithLogger(options.logger))
	if err != nil {
		store.Close()
		return nil, err
	}

	return &Engine{
		store:      store,
		embedder:   embedder,
		extractors: extractors,
		governor:   options.governor,
		logger:     options.logger,
	}, nil
}

func (e *Engine) Close() error {
	if err := e.store.Close(); err != nil {
		e.logger.Error("error closing vector store", "err", err)
		return err
	}
	return nil
}

func (e *Engine) Store() storage.VectorStore {
	return e.store
}

func (e *Engine) Embedder() ai.Embedder {
	return e.embedder
}

func (e *Engine) Extractors() *extract.Set {
	return e.extractors
}

// NewPipeline creates an ingestion pipeline on the engine's store, embedder
// and extractors. Caller options are applied after the engine's own, so they
// may override the governor and logger.
func (e *Engine) NewPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	base := []ingestion.Option{
		ingestion.WithGovernor(e.governor),
		ingestion.WithLogger(e.logger),
	}
	return ingestion.NewPipeline(e.extractors, e.embedder, e.store, append(base, opts...)...)
}

// Search embeds the query text and returns up to topK chunks scoring at or
// above minSimilarity, best first. A non-positive topK selects DefaultTopK.
func (e *Engine) Search(ctx context.Context, query string, topK int, minSimilarity float32) ([]*core.SearchHit, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	vector, err := e.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return e.store.FindSimilar(ctx, vector, minSimilarity, topK)
}
