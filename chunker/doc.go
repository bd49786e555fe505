// Package chunker splits document text into overlapping chunks sized for
// embedding and vector indexing.
//
// Chunk sizes are measured in runes, and each chunk prefers to end at a
// sentence or paragraph boundary when one falls inside the search window.
// Chunks can be consumed as a stream through ForEach or materialized with
// Split; an optional Sink persists every chunk synchronously as it is
// emitted, so a crash leaves all previously emitted chunks durable.
package chunker
