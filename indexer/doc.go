// Package indexer embeds document chunks and persists them to a vector store
// in bounded batches.
//
// Chunks are consumed in processing batches: each batch is embedded in
// sub-batches, written to the store in a single call, and released before the
// next batch begins, so live memory stays bounded regardless of document
// size. A failed batch is recorded in the result rather than aborting the
// run; callers inspect the result's success rate and failed batches to decide
// whether to retry.
package indexer
