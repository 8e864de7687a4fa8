// Package rag orchestrates the question-answering pipeline: retrieve
// candidates for a question, rerank them, select the generation context,
// and produce a grounded answer. The stages run strictly in sequence; each
// consumes the previous stage's full output.
package rag

import (
	"context"
	"log/slog"
	"time"

	"github.com/docsage/docsage/engine/domain"
	"github.com/docsage/docsage/engine/rerank"
	"github.com/docsage/docsage/engine/retrieve"
	"github.com/docsage/docsage/pkg/gemini"
)

// Retriever produces candidates for a question. *retrieve.Retriever
// satisfies it.
type Retriever interface {
	Retrieve(ctx context.Context, question string) ([]domain.RetrievedCandidate, error)
}

// Generator produces text for a prompt. *gemini.Client satisfies it.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts gemini.GenOptions) (gemini.GenResult, error)
	GenModel() string
}

// Options bounds the generation step and the context size.
type Options struct {
	FinalCount      int
	Temperature     float64
	MaxOutputTokens int
}

// DefaultOptions returns the standard pipeline settings: five context
// chunks and a low temperature for factual answers.
func DefaultOptions() Options {
	return Options{
		FinalCount:      retrieve.DefaultFinalCount,
		Temperature:     0.1,
		MaxOutputTokens: 2048,
	}
}

// Service runs the query pipeline.
type Service struct {
	retriever Retriever
	reranker  rerank.Reranker
	generator Generator
	opts      Options
	observe   func(stage string, d time.Duration, err error)
	log       *slog.Logger
}

// Deps holds the service's dependencies. Observe and Logger are optional.
type Deps struct {
	Retriever Retriever
	Reranker  rerank.Reranker
	Generator Generator
	Options   Options
	Observe   func(stage string, d time.Duration, err error)
	Logger    *slog.Logger
}

// New constructs the query service.
func New(deps Deps) *Service {
	opts := deps.Options
	if opts.FinalCount <= 0 {
		opts.FinalCount = retrieve.DefaultFinalCount
	}
	if opts.MaxOutputTokens <= 0 {
		opts.MaxOutputTokens = DefaultOptions().MaxOutputTokens
	}
	observe := deps.Observe
	if observe == nil {
		observe = func(string, time.Duration, error) {}
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		retriever: deps.Retriever,
		reranker:  deps.Reranker,
		generator: deps.Generator,
		opts:      opts,
		observe:   observe,
		log:       log,
	}
}

// Outcome is the full result of one query: every reranked candidate, the
// subset chosen as context, and the generated answer. Answer is nil when
// nothing was retrieved.
type Outcome struct {
	Question   string
	Candidates []domain.RerankedCandidate
	Selected   []domain.SelectedChunk
	Answer     *domain.AnswerResult
}

// Query runs retrieve, rerank, select, and generate for one question.
// An empty retrieval result short-circuits with a nil Answer and no error.
func (s *Service) Query(ctx context.Context, question string) (*Outcome, error) {
	if err := domain.ValidateQuestion(question); err != nil {
		return nil, err
	}
	s.log.Info("query: start", "question_len", len(question))

	retrieved, err := timed(ctx, s.observe, "retrieve", func(ctx context.Context) ([]domain.RetrievedCandidate, error) {
		return s.retriever.Retrieve(ctx, question)
	})
	if err != nil {
		return nil, err
	}
	if len(retrieved) == 0 {
		s.log.Info("query: nothing retrieved")
		return &Outcome{Question: question}, nil
	}

	reranked, err := timed(ctx, s.observe, "rerank", func(ctx context.Context) ([]domain.RerankedCandidate, error) {
		return s.reranker.Rerank(ctx, question, retrieved)
	})
	if err != nil {
		return nil, err
	}

	selected := retrieve.SelectTop(reranked, s.opts.FinalCount)
	markSelected(reranked, selected)

	answer, err := timed(ctx, s.observe, "generate", func(ctx context.Context) (*domain.AnswerResult, error) {
		return s.generate(ctx, question, selected)
	})
	if err != nil {
		return nil, err
	}

	method := domain.RerankMethod("")
	if len(reranked) > 0 {
		method = reranked[0].RerankMethod
	}
	s.log.Info("query: done",
		"candidates", len(reranked),
		"selected", len(selected),
		"method", method,
		"tokens", answer.TokensUsed,
	)
	return &Outcome{
		Question:   question,
		Candidates: reranked,
		Selected:   selected,
		Answer:     answer,
	}, nil
}

func (s *Service) generate(ctx context.Context, question string, selected []domain.SelectedChunk) (*domain.AnswerResult, error) {
	prompt := buildPrompt(question, selected)
	result, err := s.generator.Generate(ctx, prompt, gemini.GenOptions{
		Temperature:     s.opts.Temperature,
		MaxOutputTokens: s.opts.MaxOutputTokens,
	})
	if err != nil {
		return nil, domain.NewPipelineError("generate", domain.ErrGeneration, err)
	}

	// Provider usage is authoritative; otherwise estimate from sizes.
	tokens := 0
	if result.Usage != nil {
		tokens = result.Usage.PromptTokens + result.Usage.CompletionTokens
	} else {
		tokens = (len(prompt) + len(result.Text) + 3) / 4
	}

	return &domain.AnswerResult{
		Answer:        result.Text,
		ModelUsed:     s.generator.GenModel(),
		TokensUsed:    tokens,
		ContextChunks: len(selected),
	}, nil
}

// markSelected flips the selection flag on the reranked candidates that
// made the context, so the full candidate list reports what was used.
func markSelected(reranked []domain.RerankedCandidate, selected []domain.SelectedChunk) {
	chosen := make(map[string]bool, len(selected))
	for _, s := range selected {
		chosen[s.ID] = true
	}
	for i := range reranked {
		if chosen[reranked[i].ID] {
			reranked[i].SelectedForLLM = true
		}
	}
}

// timed runs one stage, reporting its duration to the observe hook.
func timed[T any](ctx context.Context, observe func(string, time.Duration, error), stage string, f func(context.Context) (T, error)) (T, error) {
	start := time.Now()
	out, err := f(ctx)
	observe(stage, time.Since(start), err)
	return out, err
}
