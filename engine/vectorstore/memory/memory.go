// Package memory implements the vector store in process memory with
// brute-force cosine distance. It backs tests and keyless local runs; the
// contract matches the persistent backends exactly.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/docsage/docsage/engine/vectorstore"
)

// Store is an in-memory vectorstore.Store. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	records map[string]vectorstore.Record
}

// New creates an empty store.
func New() *Store {
	return &Store{records: make(map[string]vectorstore.Record)}
}

// TopK scans every record and returns the k closest by cosine distance.
func (s *Store) TopK(_ context.Context, vector []float32, k int) ([]vectorstore.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]vectorstore.Match, 0, len(s.records))
	for _, r := range s.records {
		matches = append(matches, vectorstore.Match{
			Record:   r,
			Distance: 1 - cosineSimilarity(vector, r.Embedding),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].ChunkIndex < matches[j].ChunkIndex
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Upsert inserts or replaces records.
func (s *Store) Upsert(_ context.Context, records []vectorstore.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		s.records[r.ID] = r
	}
	return nil
}

// DeleteAll removes every record.
func (s *Store) DeleteAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]vectorstore.Record)
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
