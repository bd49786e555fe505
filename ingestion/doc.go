// Package ingestion provides pipeline orchestration for indexing documents.
//
// The Pipeline type drives the full workflow for a document: extracting
// text from the source file, chunking it, embedding each chunk and
// persisting the records into a vector store. Files, raw text and whole
// directories share the same machinery; directory walks fan out over a
// bounded worker pool and record per-file failures without stopping the
// walk.
package ingestion
