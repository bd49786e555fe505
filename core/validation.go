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


package core

import (
	"fmt"
)

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - Content must not be empty
//   - ID must not be empty
//   - Index must not be negative
//
// NOT validated (populated by the pipeline):
//   - Metadata (total_chunks is backfilled after chunking completes)
//   - DocID (raw chunker output carries it in the ID)
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}

	if chunk.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyChunkID)
	}

	if chunk.Index < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrNegativeIndex)
	}

	return nil
}

// ValidateChunkRecord validates a ChunkRecord according to domain rules.
//
// Validation rules:
//   - ChunkID must not be empty
//   - DocID must not be empty
//   - Content must not be empty
//
// NOT validated:
//   - Vector (dimension checks belong to the store backend)
//   - InsertedAt (stamped by the store at insert)
func ValidateChunkRecord(record *ChunkRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidChunkRecord)
	}

	if record.ChunkID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunkRecord, ErrEmptyChunkID)
	}

	if record.DocID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunkRecord, ErrEmptyDocID)
	}

	if record.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunkRecord, ErrEmptyContent)
	}

	return nil
}
