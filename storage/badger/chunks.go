package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/indexit/core"
	"github.com/poiesic/indexit/storage"
)

// Store implements storage.VectorStore for BadgerDB.
type Store struct {
	backend *Backend
}

var _ storage.VectorStore = (*Store)(nil)

// NewStore opens a BadgerDB-backed vector store at path, creating the
// directory if needed.
//
// Returns storage.VectorStore interface to enforce abstraction.
func NewStore(path string) (storage.VectorStore, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	return newStore(backend), nil
}

// newStore is an internal constructor that returns the concrete type.
func newStore(backend *Backend) *Store {
	return &Store{backend: backend}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.backend.Close()
}

// AddChunkRecords persists one or more chunk records.
// Vectors are normalized to unit length so similarity search reduces to a
// dot product. A record with the ChunkID of an existing record overwrites it.
func (s *Store) AddChunkRecords(ctx context.Context, records ...*core.ChunkRecord) ([]*core.ChunkRecord, error) {
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		for _, record := range records {
			if err := core.ValidateChunkRecord(record); err != nil {
				return err
			}
			if len(record.Vector) == 0 {
				return storage.ErrEmptyVector
			}

			record.Vector = NormalizeVector(record.Vector)
			if record.InsertedAt.IsZero() {
				record.InsertedAt = time.Now().UTC()
			}

			chunkKey := core.KeyFromString(record.ChunkID)

			// Store primary record
			key := makeChunkRecordKey(chunkKey)
			value := storage.MarshalChunkRecord(record)
			if err := tx.Set(key, value); err != nil {
				return err
			}

			// Update document index
			docKey := makeChunkDocKey(core.KeyFromString(record.DocID), chunkKey)
			if err := tx.Set(docKey, storage.MarshalKey(chunkKey)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return records, err
}

// GetChunkRecord retrieves a single chunk record by its chunk ID.
func (s *Store) GetChunkRecord(ctx context.Context, chunkID string) (*core.ChunkRecord, error) {
	var result *core.ChunkRecord
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		key := makeChunkRecordKey(core.KeyFromString(chunkID))
		var err error
		result, err = readChunkRecord(tx, key)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// FindSimilar finds chunks similar to the given query vector.
// The query vector is normalized before scoring, so scores are cosine
// similarities in [-1, 1].
func (s *Store) FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchHit, error) {
	if len(vector) == 0 || limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	query := NormalizeVector(vector)

	var hits []*core.SearchHit
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkRecordPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var record *core.ChunkRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalChunkRecord(val)
				return err
			})
			if err != nil {
				return err
			}
			if record == nil || len(record.Vector) == 0 {
				continue
			}

			// Stored vectors are unit length, so the dot product is
			// the cosine similarity.
			similarity := dotProduct(query, record.Vector)
			if similarity >= minSimilarity {
				hits = append(hits, &core.SearchHit{
					ChunkID:  record.ChunkID,
					DocID:    record.DocID,
					Content:  record.Content,
					Metadata: record.Metadata,
					Score:    similarity,
				})
			}
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}

	// Sort by similarity descending
	slices.SortFunc(hits, func(a, b *core.SearchHit) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}

	return hits, nil
}

// CountChunks returns the number of stored chunk records.
func (s *Store) CountChunks(ctx context.Context) (int, error) {
	count := 0
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkRecordPrefix + ":")
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// DeleteByDoc removes every chunk belonging to a document, including its
// document index entries. Returns the number of chunks removed.
func (s *Store) DeleteByDoc(ctx context.Context, docID string) (int, error) {
	docKey := core.KeyFromString(docID)

	// Collect keys first; deleting while iterating is not safe.
	var recordKeys [][]byte
	var indexKeys [][]byte
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		startKey := makePartialChunkDocKey(docKey)
		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if len(key) < len(startKey) {
				break
			}
			if slices.Compare(key[:len(startKey)], startKey) != 0 {
				break
			}

			var chunkKey core.Key
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				chunkKey, err = storage.UnmarshalKey(val)
				return err
			}); err != nil {
				return err
			}

			recordKeys = append(recordKeys, makeChunkRecordKey(chunkKey))
			indexKeys = append(indexKeys, iter.Item().KeyCopy(nil))
		}
		return nil
	}, false)
	if err != nil {
		return 0, err
	}

	if len(recordKeys) == 0 {
		return 0, nil
	}

	err = s.backend.WithTx(func(tx *badger.Txn) error {
		for _, key := range recordKeys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		for _, key := range indexKeys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}

	return len(recordKeys), nil
}

// Clear removes all chunk records from the store.
func (s *Store) Clear(ctx context.Context) (int, error) {
	count, err := s.CountChunks(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.backend.DropAll(); err != nil {
		return 0, err
	}
	return count, nil
}

// readChunkRecord reads a chunk record from the transaction.
// Returns nil without error when the key does not exist.
func readChunkRecord(tx *badger.Txn, key []byte) (*core.ChunkRecord, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var record *core.ChunkRecord
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		record, unmarshalErr = storage.UnmarshalChunkRecord(val)
		return unmarshalErr
	})
	return record, err
}
