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


package storage

import (
	"github.com/poiesic/indexit/core"
)

// MarshalKey serializes a Key to bytes.
func MarshalKey(key core.Key) []byte {
	buf := make([]byte, core.KeyMUS.Size(key))
	core.KeyMUS.Marshal(key, buf)
	return buf
}

// UnmarshalKey deserializes a Key from bytes.
func UnmarshalKey(data []byte) (core.Key, error) {
	key, _, err := core.KeyMUS.Unmarshal(data)
	return key, err
}

// MarshalChunkRecord serializes a ChunkRecord to bytes.
func MarshalChunkRecord(record *core.ChunkRecord) []byte {
	buf := make([]byte, core.ChunkRecordMUS.Size(*record))
	core.ChunkRecordMUS.Marshal(*record, buf)
	return buf
}

// UnmarshalChunkRecord deserializes a ChunkRecord from bytes.
func UnmarshalChunkRecord(data []byte) (*core.ChunkRecord, error) {
	record, _, err := core.ChunkRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &record, nil
}
