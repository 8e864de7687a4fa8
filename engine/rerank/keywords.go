package rerank

import (
	"context"
	"strings"

	"github.com/docsage/docsage/engine/domain"
)

const (
	// similarityWeight scales the original similarity into the fallback
	// score, leaving headroom for keyword boosts.
	similarityWeight = 0.7
	// termBoost is the per-occurrence boost for a matched query term.
	termBoost = 0.05
	// termBoostCap bounds the total boost any single term contributes.
	termBoostCap = 0.15
)

// Keywords is the deterministic fallback reranker. It needs no network:
// the score blends the retrieval similarity with keyword-frequency boosts
// for the question's terms.
type Keywords struct{}

// NewKeywords constructs the fallback reranker.
func NewKeywords() *Keywords {
	return &Keywords{}
}

// Rerank scores each candidate as similarity * 0.7 plus a capped boost per
// question term, clamped to 1.0. Terms match whole content tokens only,
// never substrings. Identical inputs always produce identical output.
func (k *Keywords) Rerank(_ context.Context, question string, candidates []domain.RetrievedCandidate) ([]domain.RerankedCandidate, error) {
	terms := queryTerms(question)

	out := make([]domain.RerankedCandidate, len(candidates))
	for i, c := range candidates {
		freq := tokenFrequency(c.Content)
		score := c.SimilarityScore * similarityWeight
		for _, term := range terms {
			boost := float64(freq[term]) * termBoost
			if boost > termBoostCap {
				boost = termBoostCap
			}
			score += boost
		}
		if score > 1 {
			score = 1
		}
		out[i] = domain.RerankedCandidate{
			RetrievedCandidate: c,
			RerankScore:        domain.Round4(score),
			RerankMethod:       domain.RerankKeywords,
			OriginalSimilarity: c.SimilarityScore,
		}
	}

	sortByScore(out)
	return out, nil
}

// queryTerms lowercases the question and keeps words longer than two
// characters, dropping stopword-sized noise.
func queryTerms(question string) []string {
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(question)) {
		if len(w) > 2 {
			terms = append(terms, w)
		}
	}
	return terms
}

// tokenFrequency counts exact whitespace-delimited tokens of the
// lowercased content.
func tokenFrequency(content string) map[string]int {
	freq := make(map[string]int)
	for _, w := range strings.Fields(strings.ToLower(content)) {
		freq[w]++
	}
	return freq
}
