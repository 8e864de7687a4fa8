package rerank

import (
	"context"
	"log/slog"

	"github.com/docsage/docsage/engine/domain"
	"github.com/docsage/docsage/pkg/resilience"
)

// Resilient runs a primary reranker behind a circuit breaker and degrades
// to a fallback on any failure. The fallback path never returns an error,
// so a provider outage costs ranking quality, not availability.
type Resilient struct {
	primary    Reranker
	fallback   Reranker
	breaker    *resilience.Breaker
	onFallback func()
	log        *slog.Logger
}

// ResilientOpts configures the decorator.
type ResilientOpts struct {
	Breaker *resilience.Breaker
	// OnFallback is invoked once per degraded call, for metrics. Optional.
	OnFallback func()
	Logger     *slog.Logger
}

// NewResilient wraps primary with fallback. A nil primary means every call
// uses the fallback directly, which is how the service runs without a
// provider API key.
func NewResilient(primary, fallback Reranker, opts ResilientOpts) *Resilient {
	breaker := opts.Breaker
	if breaker == nil {
		breaker = resilience.NewBreaker(resilience.DefaultBreakerOpts)
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	onFallback := opts.OnFallback
	if onFallback == nil {
		onFallback = func() {}
	}
	return &Resilient{primary: primary, fallback: fallback, breaker: breaker, onFallback: onFallback, log: log}
}

// Rerank tries the primary through the breaker, then degrades to the
// fallback. Only the fallback's own error, if any, reaches the caller.
func (r *Resilient) Rerank(ctx context.Context, question string, candidates []domain.RetrievedCandidate) ([]domain.RerankedCandidate, error) {
	if r.primary != nil {
		var out []domain.RerankedCandidate
		err := r.breaker.Call(ctx, func(ctx context.Context) error {
			var callErr error
			out, callErr = r.primary.Rerank(ctx, question, candidates)
			return callErr
		})
		if err == nil {
			return out, nil
		}
		r.log.Warn("rerank: provider degraded to keyword scoring",
			"error", err,
			"breaker_state", r.breaker.State().String(),
		)
		r.onFallback()
	}

	return r.fallback.Rerank(ctx, question, candidates)
}
