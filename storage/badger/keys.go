package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/indexit/core"
)

// Key prefixes for different data types
const (
	chunkRecordPrefix = "chkrec"
	chunkDocPrefix    = "chkdoc"
)

// makeChunkRecordKey generates a key for a chunk record by its derived key.
func makeChunkRecordKey(key core.Key) []byte {
	return []byte(fmt.Sprintf("%s:%d", chunkRecordPrefix, key))
}

// makeChunkDocKey generates a composite key for the document index.
// Format: prefix:docKey:chunkKey
func makeChunkDocKey(docKey, chunkKey core.Key) []byte {
	prefix := chunkDocPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 16 // 8 bytes for docKey + 8 bytes for chunkKey
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(docKey))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(chunkKey))
	return buf
}

// makePartialChunkDocKey generates a partial key for per-document scans.
// Format: prefix:docKey
func makePartialChunkDocKey(docKey core.Key) []byte {
	prefix := chunkDocPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8 // 8 bytes for docKey
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(docKey))
	return buf
}
