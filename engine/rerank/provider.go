package rerank

import (
	"context"
	"fmt"

	"github.com/docsage/docsage/engine/domain"
	"github.com/docsage/docsage/pkg/cohere"
	"github.com/docsage/docsage/pkg/fn"
)

// Client is the rerank provider surface. *cohere.Client satisfies it.
type Client interface {
	Rerank(ctx context.Context, query string, documents []string, topN int) ([]cohere.Ranked, error)
}

// Provider scores candidates with a cross-encoder rerank API.
type Provider struct {
	client Client
}

// NewProvider constructs a provider-backed reranker.
func NewProvider(client Client) *Provider {
	return &Provider{client: client}
}

// Rerank sends every candidate to the provider, requesting scores for all
// of them, and returns the candidates ordered by provider score.
func (p *Provider) Rerank(ctx context.Context, question string, candidates []domain.RetrievedCandidate) ([]domain.RerankedCandidate, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	docs := fn.Map(candidates, func(c domain.RetrievedCandidate) string { return c.Content })
	ranked, err := p.client.Rerank(ctx, question, docs, len(docs))
	if err != nil {
		return nil, domain.NewPipelineError("rerank", domain.ErrRerankProvider, err)
	}

	out := make([]domain.RerankedCandidate, 0, len(ranked))
	for _, r := range ranked {
		if r.Index < 0 || r.Index >= len(candidates) {
			return nil, domain.NewPipelineError("rerank", domain.ErrRerankProvider,
				fmt.Errorf("provider returned index %d for %d documents", r.Index, len(candidates)))
		}
		c := candidates[r.Index]
		out = append(out, domain.RerankedCandidate{
			RetrievedCandidate: c,
			RerankScore:        domain.Round4(r.Score),
			RerankMethod:       domain.RerankProvider,
			OriginalSimilarity: c.SimilarityScore,
		})
	}

	sortByScore(out)
	return out, nil
}
