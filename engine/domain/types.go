// Package domain holds the core data model shared across the retrieval
// pipeline: chunks produced at ingestion time, candidates flowing through
// retrieval and reranking, and the final generated answer.
package domain

import "math"

// Chunk is a bounded span of source document text, the atomic retrieval
// unit. Chunks are immutable once created; chunk indexes are 0-based and
// dense within one ingested document.
type Chunk struct {
	Content    string         `json:"content"`
	ChunkIndex int            `json:"chunk_index"`
	TokenCount int            `json:"token_count"`
	Metadata   map[string]any `json:"metadata"`
}

// RetrievedCandidate is one nearest-neighbor hit, created fresh per query
// and never persisted. SimilarityScore is cosine-derived, in [-1, 1].
type RetrievedCandidate struct {
	ID              string         `json:"id"`
	Content         string         `json:"content"`
	ChunkIndex      int            `json:"chunk_index"`
	SimilarityScore float64        `json:"similarity_score"`
	Metadata        map[string]any `json:"metadata"`
	SelectedForLLM  bool           `json:"selected_for_llm"`
}

// RerankMethod identifies which scoring path produced a rerank score.
type RerankMethod string

const (
	// RerankProvider means the cross-encoder rerank provider scored the
	// candidate.
	RerankProvider RerankMethod = "provider_rerank"
	// RerankKeywords means the deterministic keyword-weighted fallback
	// scored the candidate.
	RerankKeywords RerankMethod = "similarity_with_keywords"
)

// RerankedCandidate is a RetrievedCandidate with a rerank score attached.
// Read-only after creation.
type RerankedCandidate struct {
	RetrievedCandidate
	RerankScore        float64      `json:"rerank_score"`
	RerankMethod       RerankMethod `json:"rerank_method"`
	OriginalSimilarity float64      `json:"original_similarity"`
}

// SelectedChunk is a reranked candidate chosen for the generation context,
// with SelectedForLLM set true.
type SelectedChunk struct {
	RerankedCandidate
}

// Round4 rounds a score to four decimal places. Every similarity and
// rerank score in the pipeline is reported at this precision.
func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// AnswerResult is the output of grounded generation.
type AnswerResult struct {
	Answer        string `json:"answer"`
	ModelUsed     string `json:"model_used"`
	TokensUsed    int    `json:"tokens_used"`
	ContextChunks int    `json:"context_chunks"`
}
