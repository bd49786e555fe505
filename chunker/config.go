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

import "fmt"

const (
	// DefaultChunkSize is the default maximum chunk length in runes.
	DefaultChunkSize = 1000

	// DefaultChunkOverlap is the default overlap between consecutive chunks.
	DefaultChunkOverlap = 200
)

// Config holds chunking parameters. All sizes count runes, not bytes, so
// multi-byte characters are never split mid-sequence.
type Config struct {
	// ChunkSize is the maximum length of a chunk.
	ChunkSize int

	// ChunkOverlap is the number of trailing runes repeated at the start
	// of the next chunk.
	ChunkOverlap int
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		ChunkSize:    DefaultChunkSize,
		ChunkOverlap: DefaultChunkOverlap,
	}
}

// MinChunkSize returns the closest a snapped boundary may sit to the chunk
// start, which is also the guaranteed minimum cursor advance per iteration.
func (c *Config) MinChunkSize() int {
	return max(c.ChunkSize/4, c.ChunkOverlap+10)
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfig, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("%w: chunk overlap must not be negative, got %d", ErrInvalidConfig, c.ChunkOverlap)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d",
			ErrInvalidConfig, c.ChunkOverlap, c.ChunkSize)
	}
	return nil
}
