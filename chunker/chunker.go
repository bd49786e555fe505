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


package chunker

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/poiesic/indexit/core"
	"github.com/poiesic/indexit/resource"
)

// governorCheckInterval is the number of emitted chunks between memory
// pressure probes.
const governorCheckInterval = 100

// terminators lists boundary markers in priority order. The first kind with
// an occurrence inside the search window decides the boundary; later kinds
// are not consulted.
var terminators = [][]rune{{'.'}, {'!'}, {'?'}, {'\n', '\n'}}

// TextChunker splits documents into overlapping chunks, preferring to end
// each chunk at a sentence or paragraph boundary.
type TextChunker struct {
	config   *Config
	sink     Sink
	governor resource.Governor
	logger   *slog.Logger
}

// Option configures a TextChunker.
type Option func(*TextChunker) error

// WithSink attaches a sink that persists each chunk synchronously as it is
// emitted.
func WithSink(sink Sink) Option {
	return func(c *TextChunker) error {
		if sink == nil {
			return ErrSinkRequired
		}
		c.sink = sink
		return nil
	}
}

// WithGovernor sets the memory governor probed during chunking.
// Default is resource.NopGovernor.
func WithGovernor(governor resource.Governor) Option {
	return func(c *TextChunker) error {
		if governor == nil {
			governor = resource.NopGovernor{}
		}
		c.governor = governor
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *TextChunker) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// New creates a TextChunker. A nil config uses DefaultConfig. The config is
// validated here, so enumeration itself cannot fail on parameters.
func New(config *Config, opts ...Option) (*TextChunker, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &TextChunker{
		config:   config,
		governor: resource.NopGovernor{},
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	c.logger = c.logger.With("component", "chunker")
	return c, nil
}

// Config returns the chunking parameters in use.
func (c *TextChunker) Config() *Config {
	return c.config
}

// ForEach enumerates the chunks of text in index order, calling fn for each
// one. When a sink is attached, every chunk is persisted before fn sees it.
// Enumeration stops on the first error from the sink or fn.
//
// An empty docID falls back to core.DefaultDocID. Chunk metadata carries
// chunk_id, chunk_index and doc_id; total_chunks is only known once
// enumeration completes, so ForEach leaves it unset and Split backfills it.
func (c *TextChunker) ForEach(docID, text string, fn func(*core.Chunk) error) error {
	if docID == "" {
		docID = core.DefaultDocID
	}

	runes := []rune(text)
	length := len(runes)
	minChunk := c.config.MinChunkSize()

	c.logger.Debug("chunking document",
		"doc_id", docID,
		"text_runes", length,
		"chunk_size", c.config.ChunkSize,
		"chunk_overlap", c.config.ChunkOverlap,
		"min_chunk_size", minChunk)

	index := 0
	for start := 0; start < length; {
		end := start + c.config.ChunkSize
		if end < length {
			if pos := boundary(runes, start, end, minChunk); pos >= 0 {
				end = pos + 1
			}
		}

		if content := strings.TrimSpace(string(runes[start:min(end, length)])); content != "" {
			chunk := &core.Chunk{
				ID:      core.ChunkID(docID, index),
				DocID:   docID,
				Index:   index,
				Content: content,
				Metadata: map[string]string{
					core.MetaChunkID:    core.ChunkID(docID, index),
					core.MetaChunkIndex: strconv.Itoa(index),
					core.MetaDocID:      docID,
				},
			}

			if c.sink != nil {
				if err := c.sink.WriteChunk(chunk); err != nil {
					return fmt.Errorf("write chunk %d: %w", index, err)
				}
			}
			if err := fn(chunk); err != nil {
				return err
			}

			index++
			if index%governorCheckInterval == 0 {
				c.logger.Debug("chunking progress", "doc_id", docID, "chunks", index)
				if c.governor.Check() == resource.StatusCritical {
					c.governor.Reclaim()
				}
			}
		}

		// The advance uses the tentative end, which may sit past the
		// final rune. A snapped boundary near start can still move the
		// cursor backwards; force minimum progress so the loop always
		// terminates.
		next := end - c.config.ChunkOverlap
		if next <= start {
			next = start + minChunk
		}
		start = next
	}

	c.logger.Debug("chunking complete", "doc_id", docID, "chunks", index)
	return nil
}

// Split materializes the full chunk sequence for one document and backfills
// total_chunks into every chunk's metadata.
func (c *TextChunker) Split(docID, text string) ([]*core.Chunk, error) {
	var chunks []*core.Chunk
	err := c.ForEach(docID, text, func(chunk *core.Chunk) error {
		chunks = append(chunks, chunk)
		return nil
	})
	if err != nil {
		return nil, err
	}

	total := strconv.Itoa(len(chunks))
	for _, chunk := range chunks {
		chunk.Metadata[core.MetaTotalChunks] = total
	}
	return chunks, nil
}

// boundary locates a usable chunk boundary inside runes[start:end). The first
// terminator kind with any occurrence in the window decides; its rightmost
// occurrence is the candidate. A candidate closer than minChunk to start is
// rejected outright rather than falling through to later kinds. Returns the
// absolute index of the terminator's first rune, or -1.
func boundary(runes []rune, start, end, minChunk int) int {
	for _, term := range terminators {
		pos := lastIndex(runes, term, start, end)
		if pos < 0 {
			continue
		}
		if pos-start < minChunk {
			return -1
		}
		return pos
	}
	return -1
}

// lastIndex returns the highest index at which term occurs fully inside
// runes[start:end), or -1.
func lastIndex(runes, term []rune, start, end int) int {
	for pos := end - len(term); pos >= start; pos-- {
		if matchAt(runes, term, pos) {
			return pos
		}
	}
	return -1
}

func matchAt(runes, term []rune, pos int) bool {
	for i, r := range term {
		if runes[pos+i] != r {
			return false
		}
	}
	return true
}
