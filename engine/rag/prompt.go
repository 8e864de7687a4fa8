package rag

import (
	"fmt"
	"strings"

	"github.com/docsage/docsage/engine/domain"
)

const promptTemplate = `You are a helpful assistant that answers questions based strictly on the provided context.

INSTRUCTIONS:
1. Answer the user's question using ONLY information from the provided context
2. If the context doesn't contain enough information to answer, clearly state this
3. Be concise and direct in your responses
4. Use specific quotes or details from the context to support your answer
5. Do not make assumptions or add information not present in the context
6. If multiple contexts are relevant, synthesize information from them
7. Maintain a professional and informative tone

CONTEXT:
%s

QUESTION:
%s

Please answer the question based on the context provided above. If the context doesn't contain relevant information, explicitly state that.`

// buildContext renders the selected chunks as numbered context blocks.
func buildContext(chunks []domain.SelectedChunk) string {
	parts := make([]string, len(chunks))
	for i, chunk := range chunks {
		parts[i] = fmt.Sprintf("[Context %d]\n%s\n", i+1, chunk.Content)
	}
	return strings.Join(parts, "\n---\n\n")
}

// buildPrompt assembles the grounded-answer prompt for the generator.
func buildPrompt(question string, chunks []domain.SelectedChunk) string {
	return fmt.Sprintf(promptTemplate, buildContext(chunks), question)
}
