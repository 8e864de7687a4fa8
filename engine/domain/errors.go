package domain

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for the pipeline. Callers classify failures with
// errors.Is; the HTTP boundary maps each kind to a user-visible summary
// without echoing raw provider output.
var (
	// ErrIngestionInput means the source document is missing, unreadable,
	// or yielded no chunks. Fatal for the ingestion run.
	ErrIngestionInput = errors.New("ingestion input error")
	// ErrEmbedding means the embedding gateway failed. Fatal for the
	// current query or ingestion batch; never retried inside the pipeline.
	ErrEmbedding = errors.New("embedding error")
	// ErrRetrieval means the vector store query failed. Fatal for the
	// current query.
	ErrRetrieval = errors.New("retrieval error")
	// ErrRerankProvider means the cross-encoder provider failed. Handled
	// internally by falling back to keyword scoring; never surfaces.
	ErrRerankProvider = errors.New("rerank provider error")
	// ErrGeneration means the generation provider failed. Fatal for the
	// current query.
	ErrGeneration = errors.New("generation error")
)

// PipelineError wraps a sentinel kind with the stage that raised it.
type PipelineError struct {
	Stage   string
	Kind    error
	Wrapped error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Stage, e.Kind, e.Wrapped)
}

// Unwrap exposes the wrapped cause; Is matches the sentinel kind.
func (e *PipelineError) Unwrap() error { return e.Wrapped }

func (e *PipelineError) Is(target error) bool { return target == e.Kind }

// NewPipelineError creates a PipelineError for the given stage and kind.
func NewPipelineError(stage string, kind, wrapped error) *PipelineError {
	return &PipelineError{Stage: stage, Kind: kind, Wrapped: wrapped}
}
