// Package vectorstore defines the storage contract the retrieval pipeline
// depends on: a record store keyed by opaque IDs that serves
// nearest-neighbor queries ordered by cosine distance. Backends live in
// subpackages (postgres, qdrant, memory).
package vectorstore

import "context"

// Record is one persisted chunk with its embedding.
type Record struct {
	ID         string
	Content    string
	Embedding  []float32
	Metadata   map[string]any
	ChunkIndex int
}

// Match is a nearest-neighbor hit. Distance is cosine distance; lower is
// closer.
type Match struct {
	Record
	Distance float64
}

// Store is the vector store contract. Implementations must be safe for
// concurrent use.
type Store interface {
	// TopK returns up to k records closest to vector, ordered by
	// ascending distance.
	TopK(ctx context.Context, vector []float32, k int) ([]Match, error)
	// Upsert inserts or replaces records in bulk.
	Upsert(ctx context.Context, records []Record) error
	// DeleteAll removes every record. Ingestion calls this before
	// storing a new document.
	DeleteAll(ctx context.Context) error
	// Close releases the underlying connection.
	Close() error
}
