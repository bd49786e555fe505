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


package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/poiesic/indexit/core"
	"github.com/poiesic/indexit/storage"
)

const (
	// DefaultCollection is the collection name used when none is configured.
	DefaultCollection = "chunks"

	// DefaultTimeout is the per-request timeout for Qdrant API calls.
	DefaultTimeout = 15 * time.Second
)

// Config holds connection settings for a Qdrant server.
type Config struct {
	// URL is the base URL of the Qdrant REST API, e.g. "http://localhost:6333".
	URL string

	// APIKey is sent as the api-key header when non-empty.
	APIKey string

	// Collection is the collection name. Empty selects DefaultCollection.
	Collection string

	// Timeout is the per-request timeout. Zero selects DefaultTimeout.
	Timeout time.Duration
}

// Store implements storage.VectorStore against a Qdrant REST endpoint.
type Store struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
	logger     *slog.Logger

	mu        sync.Mutex
	dimension int // 0 until the collection has been ensured
}

var _ storage.VectorStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store) error

// WithLogger sets the logger used by the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger != nil {
			s.logger = logger
		}
		return nil
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Store) error {
		if client != nil {
			s.client = client
		}
		return nil
	}
}

// NewStore creates a Qdrant-backed vector store.
//
// Returns storage.VectorStore interface to enforce abstraction.
func NewStore(config *Config, opts ...Option) (storage.VectorStore, error) {
	if config == nil {
		return nil, errors.New("qdrant config is required")
	}
	if config.URL == "" {
		return nil, errors.New("qdrant config: URL is required")
	}

	collection := config.Collection
	if collection == "" {
		collection = DefaultCollection
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	s := &Store{
		url:        strings.TrimSuffix(config.URL, "/"),
		apiKey:     config.APIKey,
		collection: collection,
		client:     &http.Client{Timeout: timeout},
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	s.logger = s.logger.With("component", "qdrant-store", "collection", collection)
	return s, nil
}

// Close releases idle connections. The server needs no teardown.
func (s *Store) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// pointPayload is the stored form of a chunk record minus its vector.
// The string chunk ID travels here because point IDs are numeric.
type pointPayload struct {
	ChunkID    string            `json:"chunk_id"`
	DocID      string            `json:"doc_id"`
	Content    string            `json:"content"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	InsertedAt string            `json:"inserted_at,omitempty"`
}

type point struct {
	ID      uint64       `json:"id"`
	Vector  []float32    `json:"vector"`
	Payload pointPayload `json:"payload"`
}

// AddChunkRecords persists one or more chunk records.
// The collection is created on the first insert, sized to the first vector.
// A record with the ChunkID of an existing record overwrites its point.
func (s *Store) AddChunkRecords(ctx context.Context, records ...*core.ChunkRecord) ([]*core.ChunkRecord, error) {
	if len(records) == 0 {
		return records, nil
	}

	for _, record := range records {
		if err := core.ValidateChunkRecord(record); err != nil {
			return nil, err
		}
		if len(record.Vector) == 0 {
			return nil, storage.ErrEmptyVector
		}
	}

	if err := s.ensureCollection(ctx, len(records[0].Vector)); err != nil {
		return nil, err
	}

	points := make([]point, len(records))
	for i, record := range records {
		if record.InsertedAt.IsZero() {
			record.InsertedAt = time.Now().UTC()
		}
		points[i] = point{
			ID:     uint64(core.KeyFromString(record.ChunkID)),
			Vector: record.Vector,
			Payload: pointPayload{
				ChunkID:    record.ChunkID,
				DocID:      record.DocID,
				Content:    record.Content,
				Metadata:   record.Metadata,
				InsertedAt: record.InsertedAt.Format(time.RFC3339Nano),
			},
		}
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, s.collection)
	if err := s.putJSON(ctx, url, map[string]any{"points": points}); err != nil {
		return nil, fmt.Errorf("failed to upsert points: %w", err)
	}
	return records, nil
}

// GetChunkRecord retrieves a single chunk record by its chunk ID.
func (s *Store) GetChunkRecord(ctx context.Context, chunkID string) (*core.ChunkRecord, error) {
	req := map[string]any{
		"ids":          []uint64{uint64(core.KeyFromString(chunkID))},
		"with_payload": true,
		"with_vector":  true,
	}
	var resp struct {
		Result []struct {
			Payload pointPayload `json:"payload"`
			Vector  []float32    `json:"vector"`
		} `json:"result"`
	}

	url := fmt.Sprintf("%s/collections/%s/points", s.url, s.collection)
	if err := s.postJSON(ctx, url, req, &resp); err != nil {
		if isNotFound(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve point: %w", err)
	}
	if len(resp.Result) == 0 {
		return nil, storage.ErrNotFound
	}

	return recordFromPayload(resp.Result[0].Payload, resp.Result[0].Vector), nil
}

// FindSimilar finds chunks similar to the given query vector. Scoring is
// server-side cosine similarity. A missing collection yields no hits.
func (s *Store) FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchHit, error) {
	if len(vector) == 0 || limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	req := map[string]any{
		"vector":          vector,
		"limit":           limit,
		"with_payload":    true,
		"score_threshold": minSimilarity,
	}
	var resp struct {
		Result []struct {
			Score   float32      `json:"score"`
			Payload pointPayload `json:"payload"`
		} `json:"result"`
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", s.url, s.collection)
	if err := s.postJSON(ctx, url, req, &resp); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to search points: %w", err)
	}

	hits := make([]*core.SearchHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hits = append(hits, &core.SearchHit{
			ChunkID:  r.Payload.ChunkID,
			DocID:    r.Payload.DocID,
			Content:  r.Payload.Content,
			Metadata: r.Payload.Metadata,
			Score:    r.Score,
		})
	}
	return hits, nil
}

// CountChunks returns the exact number of stored points.
func (s *Store) CountChunks(ctx context.Context) (int, error) {
	return s.countPoints(ctx, nil)
}

// DeleteByDoc removes every point belonging to a document.
// Returns the number of points removed.
func (s *Store) DeleteByDoc(ctx context.Context, docID string) (int, error) {
	filter := docFilter(docID)

	count, err := s.countPoints(ctx, filter)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}

	url := fmt.Sprintf("%s/collections/%s/points/delete?wait=true", s.url, s.collection)
	if err := s.postJSON(ctx, url, map[string]any{"filter": filter}, nil); err != nil {
		return 0, fmt.Errorf("failed to delete points: %w", err)
	}
	return count, nil
}

// Clear drops the collection. The next insert recreates it.
func (s *Store) Clear(ctx context.Context) (int, error) {
	count, err := s.countPoints(ctx, nil)
	if err != nil {
		return 0, err
	}

	url := fmt.Sprintf("%s/collections/%s", s.url, s.collection)
	if err := s.deleteJSON(ctx, url); err != nil && !isNotFound(err) {
		return 0, fmt.Errorf("failed to drop collection: %w", err)
	}

	s.mu.Lock()
	s.dimension = 0
	s.mu.Unlock()

	return count, nil
}

// ensureCollection creates the collection on first use and pins the vector
// dimension for the lifetime of the store.
func (s *Store) ensureCollection(ctx context.Context, dimension int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dimension != 0 {
		if dimension != s.dimension {
			return fmt.Errorf("vector dimension mismatch: collection is %d, got %d", s.dimension, dimension)
		}
		return nil
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	url := fmt.Sprintf("%s/collections/%s", s.url, s.collection)
	if err := s.putJSON(ctx, url, body); err != nil {
		// An existing collection answers 409; that is fine.
		var se *statusError
		if !errors.As(err, &se) || se.code != http.StatusConflict {
			return fmt.Errorf("failed to create collection: %w", err)
		}
	} else {
		s.logger.Info("created collection", "dimension", dimension)
	}

	s.dimension = dimension
	return nil
}

// countPoints counts points, optionally narrowed by a filter.
// A missing collection counts as zero.
func (s *Store) countPoints(ctx context.Context, filter map[string]any) (int, error) {
	req := map[string]any{"exact": true}
	if filter != nil {
		req["filter"] = filter
	}
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}

	url := fmt.Sprintf("%s/collections/%s/points/count", s.url, s.collection)
	if err := s.postJSON(ctx, url, req, &resp); err != nil {
		if isNotFound(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return resp.Result.Count, nil
}

func docFilter(docID string) map[string]any {
	return map[string]any{
		"must": []map[string]any{
			{"key": "doc_id", "match": map[string]any{"value": docID}},
		},
	}
}

func recordFromPayload(p pointPayload, vector []float32) *core.ChunkRecord {
	record := &core.ChunkRecord{
		ChunkID:  p.ChunkID,
		DocID:    p.DocID,
		Content:  p.Content,
		Metadata: p.Metadata,
		Vector:   vector,
	}
	if p.InsertedAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, p.InsertedAt); err == nil {
			record.InsertedAt = t
		}
	}
	return record
}

// statusError is a non-2xx response from the Qdrant API.
type statusError struct {
	method string
	url    string
	code   int
	status string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant %s %s failed: %s", e.method, e.url, e.status)
}

func isNotFound(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.code == http.StatusNotFound
}

func (s *Store) putJSON(ctx context.Context, url string, body any) error {
	return s.doJSON(ctx, http.MethodPut, url, body, nil)
}

func (s *Store) postJSON(ctx context.Context, url string, body any, out any) error {
	return s.doJSON(ctx, http.MethodPost, url, body, out)
}

func (s *Store) deleteJSON(ctx context.Context, url string) error {
	return s.doJSON(ctx, http.MethodDelete, url, nil, nil)
}

func (s *Store) doJSON(ctx context.Context, method, url string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return &statusError{method: method, url: url, code: resp.StatusCode, status: resp.Status}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
