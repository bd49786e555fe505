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


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/indexit"
	"github.com/poiesic/indexit/ai"
	"github.com/poiesic/indexit/chunker"
	"github.com/poiesic/indexit/core"
	"github.com/poiesic/indexit/extract"
	"github.com/poiesic/indexit/indexer"
	"github.com/poiesic/indexit/ingestion"
	"github.com/poiesic/indexit/storage/qdrant"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "indexit",
		Usage: "Index documents into a vector store and search them semantically",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory",
				Value:   "./indexit_db",
			},
			&cli.StringFlag{
				Name:  "qdrant",
				Usage: "Qdrant base URL; when set the local database is not used",
			},
			&cli.StringFlag{
				Name:  "collection",
				Usage: "Qdrant collection name",
				Value: "documents",
			},
			&cli.StringFlag{
				Name:  "embedding-host",
				Usage: "Embedding service host URL",
				Value: "http://localhost:11434/v1",
			},
			&cli.StringFlag{
				Name:  "embedding-model",
				Usage: "Embedding model name",
				Value: "embeddinggemma",
			},
			&cli.StringFlag{
				Name:  "api-key",
				Usage: "Bearer token for the embedding service",
				Value: "none",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "index",
				Usage:     "Index a document file into the vector store",
				ArgsUsage: "FILE",
				Action:    indexCommand,
				Flags: append(indexingFlags(),
					&cli.StringSliceFlag{
						Name:  "meta",
						Usage: "Extra metadata as key=value (repeatable)",
					},
				),
			},
			{
				Name:      "index-dir",
				Usage:     "Index every supported document under a directory",
				ArgsUsage: "DIR",
				Action:    indexDirCommand,
				Flags: append(indexingFlags(),
					&cli.BoolFlag{
						Name:  "recursive",
						Usage: "Descend into subdirectories",
						Value: true,
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of files indexed concurrently",
						Value: 1,
					},
				),
			},
			{
				Name:      "index-text",
				Usage:     "Index a raw text string",
				ArgsUsage: "TEXT",
				Action:    indexTextCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "doc-id",
						Usage: "Document identifier for the text",
						Value: core.DefaultDocID,
					},
					&cli.StringSliceFlag{
						Name:  "meta",
						Usage: "Extra metadata as key=value (repeatable)",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Search indexed chunks by semantic similarity",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Maximum number of results",
						Value:   indexit.DefaultTopK,
					},
				},
			},
			{
				Name:   "count",
				Usage:  "Print the number of stored chunks",
				Action: countCommand,
			},
			{
				Name:   "delete",
				Usage:  "Delete all chunks of one document",
				Action: deleteCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "doc",
						Usage:    "Document identifier to delete",
						Required: true,
					},
				},
			},
			{
				Name:   "clear",
				Usage:  "Delete every chunk in the store",
				Action: clearCommand,
			},
			{
				Name:      "chunk",
				Usage:     "Chunk a document to disk without indexing it",
				ArgsUsage: "FILE",
				Action:    chunkCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "out",
						Usage: "Directory for chunk files",
						Value: chunker.DefaultChunkDir,
					},
					&cli.IntFlag{
						Name:  "chunk-size",
						Usage: "Maximum chunk length in characters",
						Value: chunker.DefaultChunkSize,
					},
					&cli.IntFlag{
						Name:  "chunk-overlap",
						Usage: "Characters repeated between consecutive chunks",
						Value: chunker.DefaultChunkOverlap,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// indexingFlags are the chunking and batching flags shared by the index and
// index-dir commands.
func indexingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "chunk-size",
			Usage: "Maximum chunk length in characters",
			Value: chunker.DefaultChunkSize,
		},
		&cli.IntFlag{
			Name:  "chunk-overlap",
			Usage: "Characters repeated between consecutive chunks",
			Value: chunker.DefaultChunkOverlap,
		},
		&cli.IntFlag{
			Name:  "batch-size",
			Usage: "Number of texts per embedding API call",
			Value: indexer.DefaultEmbeddingBatchSize,
		},
		&cli.IntFlag{
			Name:  "processing-batch-size",
			Usage: "Number of chunks embedded and stored per batch",
			Value: indexer.DefaultProcessingBatchSize,
		},
		&cli.BoolFlag{
			Name:  "save-chunks",
			Usage: "Also write chunk files to disk while indexing",
		},
		&cli.StringFlag{
			Name:  "chunks-dir",
			Usage: "Directory for chunk files when --save-chunks is set",
			Value: chunker.DefaultChunkDir,
		},
		&cli.IntFlag{
			Name:  "retries",
			Usage: "Attempts per embedding call before a batch fails",
			Value: ai.DefaultMaxAttempts,
		},
	}
}

func indexCommand(c *cli.Context) error {
	ctx := context.Background()

	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("file path is required")
	}

	meta, err := parseMeta(c.StringSlice("meta"))
	if err != nil {
		return err
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	opts, err := pipelineOptions(c)
	if err != nil {
		return err
	}
	pipeline, err := engine.NewPipeline(opts...)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Release()

	result, err := pipeline.IndexFile(ctx, path, meta)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	printIndexingResult(result)
	return nil
}

func indexDirCommand(c *cli.Context) error {
	ctx := context.Background()

	dir := c.Args().First()
	if dir == "" {
		return fmt.Errorf("directory path is required")
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	opts, err := pipelineOptions(c)
	if err != nil {
		return err
	}
	opts = append(opts, ingestion.WithWorkers(c.Int("workers")))
	pipeline, err := engine.NewPipeline(opts...)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Release()

	result, err := pipeline.IndexDirectory(ctx, dir, ingestion.DirectoryOptions{
		Recursive: c.Bool("recursive"),
	})
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	for _, failure := range result.FailedFiles {
		fmt.Fprintf(os.Stderr, "failed: %s: %v\n", failure.Path, failure.Err)
	}
	fmt.Printf("Files processed: %d\n", result.TotalFiles)
	fmt.Printf("Files indexed: %d\n", result.SuccessfulFiles)
	fmt.Printf("Chunks indexed: %d\n", result.TotalChunksIndexed)
	return nil
}

func indexTextCommand(c *cli.Context) error {
	ctx := context.Background()

	text := c.Args().First()
	if text == "" {
		return fmt.Errorf("text is required")
	}

	meta, err := parseMeta(c.StringSlice("meta"))
	if err != nil {
		return err
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	pipeline, err := engine.NewPipeline(ingestion.WithProgress(os.Stderr))
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Release()

	result, err := pipeline.IndexText(ctx, text, c.String("doc-id"), meta)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	printIndexingResult(result)
	return nil
}

func searchCommand(c *cli.Context) error {
	ctx := context.Background()

	query := c.Args().First()
	if query == "" {
		return fmt.Errorf("query is required")
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	hits, err := engine.Search(ctx, query, c.Int("top-k"), 0)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(hits) == 0 {
		fmt.Println("No results found")
		return nil
	}
	for i, hit := range hits {
		fmt.Printf("%d. %s (similarity %.4f)\n", i+1, hit.ChunkID, hit.Score)
		if filename := hit.Metadata[core.MetaFilename]; filename != "" {
			fmt.Printf("   file: %s\n", filename)
		}
		fmt.Printf("   %s\n", preview(hit.Content, 150))
	}
	return nil
}

func countCommand(c *cli.Context) error {
	ctx := context.Background()

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	count, err := engine.Store().CountChunks(ctx)
	if err != nil {
		return fmt.Errorf("count failed: %w", err)
	}
	fmt.Printf("%d\n", count)
	return nil
}

func deleteCommand(c *cli.Context) error {
	ctx := context.Background()

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	docID := c.String("doc")
	deleted, err := engine.Store().DeleteByDoc(ctx, docID)
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	fmt.Printf("Deleted %d chunks of document %s\n", deleted, docID)
	return nil
}

func clearCommand(c *cli.Context) error {
	ctx := context.Background()

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	deleted, err := engine.Store().Clear(ctx)
	if err != nil {
		return fmt.Errorf("clear failed: %w", err)
	}
	fmt.Printf("Deleted %d chunks\n", deleted)
	return nil
}

// chunkCommand runs extraction and chunking only, writing chunk files to the
// output directory. No store or embedding service is touched.
func chunkCommand(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("file path is required")
	}

	extractors, err := extract.NewSet()
	if err != nil {
		return err
	}
	text, err := extractors.Extract(path)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	sink, err := chunker.NewDirSink(c.String("out"))
	if err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	textChunker, err := chunker.New(&chunker.Config{
		ChunkSize:    c.Int("chunk-size"),
		ChunkOverlap: c.Int("chunk-overlap"),
	}, chunker.WithSink(sink))
	if err != nil {
		return err
	}

	docID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	chunks, err := textChunker.Split(docID, text)
	if err != nil {
		return fmt.Errorf("chunking failed: %w", err)
	}

	fmt.Printf("Wrote %d chunks to %s\n", len(chunks), c.String("out"))
	return nil
}

// openEngine assembles an Engine from the global flags. Commands without a
// retries flag get an unwrapped embedder.
func openEngine(c *cli.Context) (*indexit.Engine, error) {
	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithAPIKey(c.String("api-key")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	opts := []indexit.EngineOption{indexit.WithAIConfig(aiConfig)}
	if url := c.String("qdrant"); url != "" {
		opts = append(opts, indexit.WithQdrant(&qdrant.Config{
			URL:        url,
			Collection: c.String("collection"),
		}))
	}
	if retries := c.Int("retries"); retries > 0 {
		opts = append(opts, indexit.WithEmbeddingRetries(retries))
	}

	engine, err := indexit.NewEngine(c.String("db"), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return engine, nil
}

// pipelineOptions builds ingestion options from the shared indexing flags.
func pipelineOptions(c *cli.Context) ([]ingestion.Option, error) {
	opts := []ingestion.Option{
		ingestion.WithChunking(chunker.Config{
			ChunkSize:    c.Int("chunk-size"),
			ChunkOverlap: c.Int("chunk-overlap"),
		}),
		ingestion.WithBatching(indexer.Config{
			ProcessingBatchSize: c.Int("processing-batch-size"),
			EmbeddingBatchSize:  c.Int("batch-size"),
		}),
		ingestion.WithProgress(os.Stderr),
	}
	if c.Bool("save-chunks") {
		sink, err := chunker.NewDirSink(c.String("chunks-dir"))
		if err != nil {
			return nil, fmt.Errorf("failed to create chunk sink: %w", err)
		}
		opts = append(opts, ingestion.WithChunkSink(sink))
	}
	return opts, nil
}

// parseMeta converts repeated key=value flags into a metadata map.
func parseMeta(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	meta := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid metadata %q: expected key=value", pair)
		}
		meta[key] = value
	}
	return meta, nil
}

func printIndexingResult(result *core.IndexingResult) {
	for _, batch := range result.FailedBatches {
		fmt.Fprintf(os.Stderr, "batch %d failed: %v\n", batch.BatchNumber, batch.Err)
	}
	fmt.Printf("Total chunks: %d\n", result.TotalChunks)
	fmt.Printf("Chunks indexed: %d\n", result.ChunksIndexed)
	fmt.Printf("Failed batches: %d\n", len(result.FailedBatches))
	fmt.Printf("Success rate: %.1f%%\n", result.SuccessRate()*100)
}

// preview truncates text for one-line display, keeping rune boundaries.
func preview(text string, limit int) string {
	text = strings.ReplaceAll(text, "\n", " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
