// Package rerank reorders retrieved candidates by relevance to the
// question. Two scoring paths exist: a cross-encoder provider and a
// deterministic keyword-weighted fallback. The Resilient decorator wires
// them together behind a circuit breaker so provider outages degrade to
// the fallback instead of failing queries.
package rerank

import (
	"context"
	"sort"

	"github.com/docsage/docsage/engine/domain"
)

// Reranker scores retrieved candidates against a question and returns them
// ordered by descending rerank score.
type Reranker interface {
	Rerank(ctx context.Context, question string, candidates []domain.RetrievedCandidate) ([]domain.RerankedCandidate, error)
}

// sortByScore stable-sorts candidates by descending rerank score, so
// equal scores keep their incoming order.
func sortByScore(candidates []domain.RerankedCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].RerankScore > candidates[j].RerankScore
	})
}
