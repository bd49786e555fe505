package core

import (
	"errors"
	"testing"
)

func TestValidateChunk(t *testing.T) {
	tests := []struct {
		name    string
		chunk   *Chunk
		wantErr error
	}{
		{
			name: "valid chunk",
			chunk: &Chunk{
				ID:      "report_chunk_0",
				DocID:   "report",
				Index:   0,
				Content: "Hello world",
			},
			wantErr: nil,
		},
		{
			name: "valid chunk without metadata",
			chunk: &Chunk{
				ID:       "report_chunk_3",
				Index:    3,
				Content:  "Trailing text",
				Metadata: nil,
			},
			wantErr: nil,
		},
		{
			name:    "nil chunk",
			chunk:   nil,
			wantErr: ErrInvalidChunk,
		},
		{
			name: "empty content",
			chunk: &Chunk{
				ID:      "report_chunk_0",
				Index:   0,
				Content: "",
			},
			wantErr: ErrEmptyContent,
		},
		{
			name: "empty id",
			chunk: &Chunk{
				ID:      "",
				Index:   0,
				Content: "Hello",
			},
			wantErr: ErrEmptyChunkID,
		},
		{
			name: "negative index",
			chunk: &Chunk{
				ID:      "report_chunk_0",
				Index:   -1,
				Content: "Hello",
			},
			wantErr: ErrNegativeIndex,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChunk(tt.chunk)

			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateChunk() error = %v, want nil", err)
				}
				return
			}

			if err == nil {
				t.Errorf("ValidateChunk() error = nil, want %v", tt.wantErr)
				return
			}

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateChunk() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateChunkRecord(t *testing.T) {
	tests := []struct {
		name    string
		record  *ChunkRecord
		wantErr error
	}{
		{
			name: "valid record",
			record: &ChunkRecord{
				ChunkID: "report_chunk_0",
				DocID:   "report",
				Content: "Hello world",
				Vector:  []float32{0.1, 0.2},
			},
			wantErr: nil,
		},
		{
			name: "valid record without vector",
			record: &ChunkRecord{
				ChunkID: "report_chunk_0",
				DocID:   "report",
				Content: "Hello world",
				Vector:  nil,
			},
			wantErr: nil,
		},
		{
			name:    "nil record",
			record:  nil,
			wantErr: ErrInvalidChunkRecord,
		},
		{
			name: "empty chunk id",
			record: &ChunkRecord{
				ChunkID: "",
				DocID:   "report",
				Content: "Hello",
			},
			wantErr: ErrEmptyChunkID,
		},
		{
			name: "empty doc id",
			record: &ChunkRecord{
				ChunkID: "report_chunk_0",
				DocID:   "",
				Content: "Hello",
			},
			wantErr: ErrEmptyDocID,
		},
		{
			name: "empty content",
			record: &ChunkRecord{
				ChunkID: "report_chunk_0",
				DocID:   "report",
				Content: "",
			},
			wantErr: ErrEmptyContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChunkRecord(tt.record)

			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateChunkRecord() error = %v, want nil", err)
				}
				return
			}

			if err == nil {
				t.Errorf("ValidateChunkRecord() error = nil, want %v", tt.wantErr)
				return
			}

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateChunkRecord() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
