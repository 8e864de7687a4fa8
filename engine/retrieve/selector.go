package retrieve

import (
	"sort"

	"github.com/docsage/docsage/engine/domain"
)

// DefaultFinalCount is how many reranked candidates feed the generator.
const DefaultFinalCount = 5

// SelectTop returns the top count candidates by rerank score, marked as
// selected. The input is re-sorted defensively with a stable sort, so
// equal scores keep their incoming order and repeated calls on the same
// slice pick the same chunks. The input slice is not modified.
func SelectTop(candidates []domain.RerankedCandidate, count int) []domain.SelectedChunk {
	if count <= 0 {
		count = DefaultFinalCount
	}

	ordered := make([]domain.RerankedCandidate, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].RerankScore > ordered[j].RerankScore
	})

	if count > len(ordered) {
		count = len(ordered)
	}
	selected := make([]domain.SelectedChunk, count)
	for i, c := range ordered[:count] {
		c.SelectedForLLM = true
		selected[i] = domain.SelectedChunk{RerankedCandidate: c}
	}
	return selected
}
