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

import "fmt"

const (
	// DefaultProcessingBatchSize is the number of chunks embedded, stored,
	// and released per processing batch.
	DefaultProcessingBatchSize = 100

	// DefaultEmbeddingBatchSize is the number of texts sent to the embedding
	// provider per call.
	DefaultEmbeddingBatchSize = 10

	// DefaultReportInterval is how often progress is reported, in chunks.
	DefaultReportInterval = 100
)

// Config holds batch sizing for the indexer.
type Config struct {
	// ProcessingBatchSize bounds how many chunks are live at once: one
	// batch is embedded, stored, and released before the next begins.
	ProcessingBatchSize int

	// EmbeddingBatchSize is the number of texts per embedding provider
	// call. Must not exceed ProcessingBatchSize.
	EmbeddingBatchSize int

	// ReportInterval is how often progress is reported, in chunks.
	// Zero or negative selects DefaultReportInterval.
	ReportInterval int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ProcessingBatchSize: DefaultProcessingBatchSize,
		EmbeddingBatchSize:  DefaultEmbeddingBatchSize,
		ReportInterval:      DefaultReportInterval,
	}
}

// Validate checks the configuration before any batch runs.
func (c *Config) Validate() error {
	if c.ProcessingBatchSize <= 0 {
		return fmt.Errorf("%w: processing batch size must be positive, got %d", ErrInvalidConfig, c.ProcessingBatchSize)
	}
	if c.EmbeddingBatchSize <= 0 {
		return fmt.Errorf("%w: embedding batch size must be positive, got %d", ErrInvalidConfig, c.EmbeddingBatchSize)
	}
	if c.EmbeddingBatchSize > c.ProcessingBatchSize {
		return fmt.Errorf("%w: embedding batch size %d must not exceed processing batch size %d", ErrInvalidConfig, c.EmbeddingBatchSize, c.ProcessingBatchSize)
	}
	return nil
}
