package ingest

import (
	"math"
	"regexp"
	"strings"

	"github.com/docsage/docsage/engine/domain"
)

const (
	// DefaultChunkSize is the target chunk size in approximate tokens.
	DefaultChunkSize = 800
	// DefaultOverlap is the approximate-token budget shared between
	// adjacent chunks.
	DefaultOverlap = 150

	// minSentenceLen filters out fragments left over by the boundary
	// heuristic (initials, list markers, page numbers).
	minSentenceLen = 10
)

var (
	whitespaceRuns   = regexp.MustCompile(`\s+`)
	newlineRuns      = regexp.MustCompile(`\n{3,}`)
	sentenceBoundary = regexp.MustCompile(`([.!?])\s+([A-Z])`)
)

// Chunker splits normalized document text into overlapping sentence-based
// chunks sized by an approximate token budget.
type Chunker struct {
	chunkSize   int
	overlapSize int
}

// NewChunker creates a Chunker. Non-positive sizes fall back to the
// defaults.
func NewChunker(chunkSize, overlapSize int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlapSize < 0 {
		overlapSize = DefaultOverlap
	}
	return &Chunker{chunkSize: chunkSize, overlapSize: overlapSize}
}

// Chunk splits text into chunks. Sentences are accumulated greedily until
// the next one would exceed the chunk size; each closed chunk seeds the
// next with its trailing sentences up to the overlap budget, so adjacent
// chunks share context. A single sentence larger than the chunk size
// still becomes its own chunk; sentences are never split.
//
// Empty or whitespace-only input yields no chunks. That is not an error
// here; ingestion treats zero chunks as a failed run.
func (c *Chunker) Chunk(text string) []domain.Chunk {
	sentences := splitSentences(normalizeText(text))
	if len(sentences) == 0 {
		return nil
	}

	var chunks []domain.Chunk
	var current []string
	currentTokens := 0

	for _, sentence := range sentences {
		tokens := estimateTokens(sentence)

		if currentTokens+tokens > c.chunkSize && len(current) > 0 {
			chunks = append(chunks, c.buildChunk(current, currentTokens, len(chunks)))
			current, currentTokens = c.overlapTail(current)
		}

		current = append(current, sentence)
		currentTokens += tokens
	}

	if len(current) > 0 {
		chunks = append(chunks, c.buildChunk(current, currentTokens, len(chunks)))
	}
	return chunks
}

func (c *Chunker) buildChunk(sentences []string, tokens, index int) domain.Chunk {
	return domain.Chunk{
		Content:    strings.TrimSpace(strings.Join(sentences, " ")),
		ChunkIndex: index,
		TokenCount: tokens,
		Metadata: map[string]any{
			"sentence_count": len(sentences),
			"start_sentence": index * c.chunkSize,
		},
	}
}

// overlapTail walks backward through a closed chunk's sentences and
// returns, in original order, the longest suffix whose token estimate
// stays within the overlap budget.
func (c *Chunker) overlapTail(sentences []string) ([]string, int) {
	var tail []string
	tokens := 0
	for i := len(sentences) - 1; i >= 0; i-- {
		t := estimateTokens(sentences[i])
		if tokens+t > c.overlapSize {
			break
		}
		tail = append([]string{sentences[i]}, tail...)
		tokens += t
	}
	return tail, tokens
}

// normalizeText collapses whitespace runs to single spaces and runs of
// three or more newlines to exactly two.
func normalizeText(text string) string {
	text = newlineRuns.ReplaceAllString(text, "\n\n")
	text = whitespaceRuns.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// splitSentences splits on the boundary heuristic: a terminator (. ! ?)
// followed by whitespace and an uppercase letter. Fragments of
// minSentenceLen characters or fewer are dropped.
func splitSentences(text string) []string {
	if text == "" {
		return nil
	}
	marked := sentenceBoundary.ReplaceAllString(text, "$1|$2")
	var sentences []string
	for _, part := range strings.Split(marked, "|") {
		part = strings.TrimSpace(part)
		if len(part) > minSentenceLen {
			sentences = append(sentences, part)
		}
	}
	return sentences
}

// estimateTokens approximates the token count of a sentence as
// ceil(words * 0.75).
func estimateTokens(s string) int {
	return int(math.Ceil(float64(len(strings.Fields(s))) * 0.75))
}
