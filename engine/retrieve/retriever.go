// Package retrieve turns a question into a ranked candidate set: it embeds
// the question, queries the vector store for nearest neighbors, and converts
// distances to similarity scores. Selection of the final generation context
// also lives here.
package retrieve

import (
	"context"
	"log/slog"

	"github.com/docsage/docsage/engine/domain"
	"github.com/docsage/docsage/engine/vectorstore"
)

// DefaultCandidateCount is how many nearest neighbors a query pulls from
// the store before reranking.
const DefaultCandidateCount = 20

// Embedder embeds a single query string. *gemini.Client satisfies it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Retriever runs the embed-and-search step of a query.
type Retriever struct {
	embedder Embedder
	store    vectorstore.Store
	count    int
	log      *slog.Logger
}

// New constructs a Retriever. A non-positive count falls back to
// DefaultCandidateCount; a nil logger falls back to slog.Default.
func New(embedder Embedder, store vectorstore.Store, count int, log *slog.Logger) *Retriever {
	if count <= 0 {
		count = DefaultCandidateCount
	}
	if log == nil {
		log = slog.Default()
	}
	return &Retriever{embedder: embedder, store: store, count: count, log: log}
}

// Retrieve embeds the question and returns up to the configured number of
// candidates ordered by descending similarity. An empty store yields an
// empty slice, not an error.
func (r *Retriever) Retrieve(ctx context.Context, question string) ([]domain.RetrievedCandidate, error) {
	vector, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, domain.NewPipelineError("retrieve", domain.ErrEmbedding, err)
	}

	matches, err := r.store.TopK(ctx, vector, r.count)
	if err != nil {
		return nil, domain.NewPipelineError("retrieve", domain.ErrRetrieval, err)
	}

	candidates := make([]domain.RetrievedCandidate, len(matches))
	for i, m := range matches {
		candidates[i] = domain.RetrievedCandidate{
			ID:              m.ID,
			Content:         m.Content,
			ChunkIndex:      m.ChunkIndex,
			SimilarityScore: domain.Round4(1 - m.Distance),
			Metadata:        m.Metadata,
		}
	}

	r.log.Debug("retrieve: candidates", "question_len", len(question), "count", len(candidates))
	return candidates, nil
}
