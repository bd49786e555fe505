// Package qdrant implements the vector store against a Qdrant server over
// its REST API.
//
// The collection is created lazily on the first insert, sized to the first
// vector seen, with cosine distance. Point IDs are the unsigned 64-bit keys
// derived from chunk IDs; the original string IDs travel in the payload.
// Similarity scoring happens server-side, so vectors are stored as given.
package qdrant
