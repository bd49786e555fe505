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


// Package storage provides the storage abstraction layer for indexit.
//
// This package defines the VectorStore interface that decouples chunk
// persistence and similarity search from business logic. It allows different
// storage backends to be used interchangeably.
//
// # Constructor Return Type Pattern
//
// This package follows a strict "return interface" pattern for all public
// constructors to enforce abstraction and enable multiple storage backend
// implementations:
//
//	store, err := badger.NewStore(path)  // returns storage.VectorStore interface
//
// This design decision prioritizes:
//   - Abstraction: Prevents accidental coupling to backend specifics
//   - Swappability: Embedded (BadgerDB) and remote (Qdrant) backends are
//     interchangeable behind the same interface
//   - Testing: Consumers can use in-memory or mock implementations without
//     modification
//
// Internal package constructors (newStore, newBackend, etc.) may return
// concrete types since they're only used within the implementation package.
//
// # Backends
//
//   - storage/badger: embedded BadgerDB store; vectors are normalized on
//     insert so cosine similarity reduces to a dot product scan
//   - storage/qdrant: remote Qdrant store over its REST API; similarity is
//     computed server-side with cosine distance
//
// # Usage
//
// Create a store instance:
//
//	store, err := badger.NewStore("/path/to/db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
// Use in tests with in-memory storage:
//
//	store, err := badger.NewMemoryStore()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
// # Thread Safety
//
// All store implementations must be thread-safe and support concurrent
// access from multiple goroutines.
//
// # Context Support
//
// All store methods accept context.Context for cancellation and timeout
// support. Pass context.Background() for operations without specific
// timeout requirements.
package storage
