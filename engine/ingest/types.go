package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/docsage/docsage/engine/domain"
	"github.com/docsage/docsage/engine/vectorstore"
	"github.com/docsage/docsage/pkg/resilience"
)

// Job is an ingestion request: a document on disk to be indexed.
type Job struct {
	DocID string `json:"doc_id"`
	Name  string `json:"name"`
	Path  string `json:"path"`
}

// RawDocument is a job with its text extracted.
type RawDocument struct {
	DocID string
	Name  string
	Text  string
}

// ChunkedDocument is a raw document split into embeddable chunks.
type ChunkedDocument struct {
	RawDocument
	Chunks []domain.Chunk
}

// EmbeddedDocument is a chunked document with one vector per chunk.
type EmbeddedDocument struct {
	ChunkedDocument
	Embeddings [][]float32
}

// Report summarizes a completed ingestion.
type Report struct {
	DocID      string `json:"doc_id"`
	Name       string `json:"name"`
	ChunkCount int    `json:"chunk_count"`
}

// Embedder turns chunk texts into vectors. *gemini.Client satisfies it.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Deps holds the external dependencies for the ingestion pipeline.
type Deps struct {
	Embedder Embedder
	Store    vectorstore.Store
	Chunker  *Chunker
	// Limiter throttles embedding calls. Optional.
	Limiter *resilience.Limiter
	// Observe receives per-stage durations for metrics. Optional.
	Observe func(stage string, d time.Duration, err error)
	Logger  *slog.Logger
}
