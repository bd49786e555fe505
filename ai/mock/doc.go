// Package mock provides test double implementations of the ai interfaces.
//
// This package contains a mock implementation of ai.Embedder for use in unit
// tests. The mock allows tests to run without an external embedding service
// and enables controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	embedder := mock.NewMockEmbedder()
//	vectors, err := embedder.EmbedTexts(ctx, []string{"test"})
//
//	// Custom behavior injection
//	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
//	    return nil, errors.New("provider down")
//	}
//
//	// Check call counts
//	count := embedder.CallCount()
//
// # Default Behavior
//
// MockEmbedder returns deterministic unit vectors derived from an FNV hash of
// the input text, so identical texts always embed identically.
package mock
