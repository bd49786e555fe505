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


// Package ai provides abstractions for the embedding services used by indexit.
//
// This package defines the Embedder interface for turning text into vectors.
// It follows the dependency inversion principle, allowing the chunking and
// indexing logic to depend on abstractions rather than concrete providers.
//
// # Implementation Packages
//
// The ai package includes two implementation sub-packages:
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewEmbedder, ai.NewRetryEmbedder) return the
// INTERFACE type to enforce abstraction and prevent accidental coupling to
// concrete implementations.
//
//	embedder, err := openai.NewEmbedder(config)  // returns ai.Embedder
//
// Test utility constructors (mock.NewMockEmbedder) return CONCRETE types to
// enable test assertions and behavior injection via the mock's public fields
// and methods (EmbedTextsFunc, CallCount, Reset).
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithEmbeddingModel("embeddinggemma"))
//	embedder, err := openai.NewEmbedder(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Optionally wrap with retries for flaky providers.
//	embedder, err = ai.NewRetryEmbedder(embedder, ai.DefaultMaxAttempts, ai.DefaultRetryDelay)
//
//	vectors, err := embedder.EmbedTexts(ctx, []string{"first chunk", "second chunk"})
package ai
