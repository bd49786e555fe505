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


package ai

import (
	"context"
	"log/slog"
	"time"
)

const (
	// DefaultMaxAttempts is the default number of attempts per embedding call.
	DefaultMaxAttempts = 3

	// DefaultRetryDelay is the default base delay between retries.
	DefaultRetryDelay = 1 * time.Second
)

// RetryWithBackoff retries an operation with exponential backoff.
// maxAttempts: maximum number of attempts (must be > 0)
// baseDelay: base delay between retries (doubles on each retry)
// Returns the error from the last attempt if all attempts fail.
func RetryWithBackoff(ctx context.Context, operation func() error, maxAttempts int, baseDelay time.Duration) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		// Check context before attempting
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil // Success
		}

		slog.Debug("operation failed, will retry", "attempt", attempt, "maxAttempts", maxAttempts, "error", lastErr)

		// Don't sleep after the last attempt
		if attempt == maxAttempts {
			break
		}

		// Calculate exponential backoff: baseDelay * 2^(attempt-1)
		delay := baseDelay
		for i := 1; i < attempt; i++ {
			delay *= 2
		}

		// Sleep with context awareness
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			// Continue to next attempt
		}
	}

	return lastErr
}

// RetryEmbedder decorates an Embedder with retry-with-backoff on transient
// provider failures. Context cancellation is respected between attempts.
type RetryEmbedder struct {
	inner       Embedder
	maxAttempts int
	baseDelay   time.Duration
}

var _ Embedder = (*RetryEmbedder)(nil)

// NewRetryEmbedder wraps inner so every embedding call is attempted up to
// maxAttempts times with exponential backoff starting at baseDelay.
// A maxAttempts of 1 disables retries. A non-positive baseDelay uses
// DefaultRetryDelay.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewRetryEmbedder(inner Embedder, maxAttempts int, baseDelay time.Duration) (Embedder, error) {
	if inner == nil {
		return nil, ErrEmbedderRequired
	}
	if maxAttempts <= 0 {
		return nil, ErrInvalidMaxAttempts
	}
	if baseDelay <= 0 {
		baseDelay = DefaultRetryDelay
	}
	return &RetryEmbedder{
		inner:       inner,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
	}, nil
}

// EmbedText generates an embedding for a single text, retrying on failure.
func (r *RetryEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	var result []float32
	err := RetryWithBackoff(ctx, func() error {
		var embedErr error
		result, embedErr = r.inner.EmbedText(ctx, text)
		return embedErr
	}, r.maxAttempts, r.baseDelay)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// EmbedTexts generates embeddings for a batch of texts, retrying the whole
// batch on failure.
func (r *RetryEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	var result [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var embedErr error
		result, embedErr = r.inner.EmbedTexts(ctx, texts)
		return embedErr
	}, r.maxAttempts, r.baseDelay)
	if err != nil {
		return nil, err
	}
	return result, nil
}
