// Package ingest provides the ingestion pipeline that processes uploaded
// documents through extraction, chunking, embedding, and storage stages.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/docsage/docsage/engine/domain"
	"github.com/docsage/docsage/engine/extract"
	"github.com/docsage/docsage/engine/vectorstore"
	"github.com/docsage/docsage/pkg/fn"
	"github.com/docsage/docsage/pkg/resilience"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const (
	// IngestSubject is the NATS subject for incoming ingestion jobs.
	IngestSubject = "docsage.ingest"
	// DLQSubject is the dead letter queue subject for failed jobs.
	DLQSubject = "docsage.ingest.dlq"
	// MaxRetries before sending to DLQ.
	MaxRetries = 3
)

// --- Pipeline Stages ---

// NewExtract creates a stage that reads a job's file and extracts its text.
func NewExtract() fn.Stage[Job, RawDocument] {
	return func(_ context.Context, job Job) fn.Result[RawDocument] {
		if job.Path == "" {
			return fn.Err[RawDocument](domain.NewPipelineError("extract", domain.ErrIngestionInput,
				fmt.Errorf("job %q has no path", job.DocID)))
		}
		text, err := extract.FromFile(job.Path)
		if err != nil {
			return fn.Err[RawDocument](domain.NewPipelineError("extract", domain.ErrIngestionInput, err))
		}
		if strings.TrimSpace(text) == "" {
			return fn.Err[RawDocument](domain.NewPipelineError("extract", domain.ErrIngestionInput,
				fmt.Errorf("document %q contains no extractable text", job.Name)))
		}
		return fn.Ok(RawDocument{DocID: job.DocID, Name: job.Name, Text: text})
	}
}

// NewChunk creates a stage that splits a raw document into chunks.
func NewChunk(chunker *Chunker) fn.Stage[RawDocument, ChunkedDocument] {
	return func(_ context.Context, doc RawDocument) fn.Result[ChunkedDocument] {
		chunks := chunker.Chunk(doc.Text)
		if len(chunks) == 0 {
			return fn.Err[ChunkedDocument](domain.NewPipelineError("chunk", domain.ErrIngestionInput,
				fmt.Errorf("document %q produced no chunks", doc.Name)))
		}
		return fn.Ok(ChunkedDocument{RawDocument: doc, Chunks: chunks})
	}
}

// NewEmbed creates a stage that embeds every chunk of a document.
func NewEmbed(embedder Embedder) fn.Stage[ChunkedDocument, EmbeddedDocument] {
	return func(ctx context.Context, doc ChunkedDocument) fn.Result[EmbeddedDocument] {
		texts := fn.Map(doc.Chunks, func(c domain.Chunk) string { return c.Content })
		embeddings, err := embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fn.Err[EmbeddedDocument](domain.NewPipelineError("embed", domain.ErrEmbedding, err))
		}
		if len(embeddings) != len(doc.Chunks) {
			return fn.Err[EmbeddedDocument](domain.NewPipelineError("embed", domain.ErrEmbedding,
				fmt.Errorf("got %d embeddings for %d chunks", len(embeddings), len(doc.Chunks))))
		}
		return fn.Ok(EmbeddedDocument{ChunkedDocument: doc, Embeddings: embeddings})
	}
}

// NewStore creates a stage that replaces the indexed corpus with the
// document's chunks. The store holds one document at a time, so the
// previous contents are cleared first.
func NewStore(store vectorstore.Store) fn.Stage[EmbeddedDocument, Report] {
	return func(ctx context.Context, doc EmbeddedDocument) fn.Result[Report] {
		if err := store.DeleteAll(ctx); err != nil {
			return fn.Err[Report](fmt.Errorf("ingest: clear store: %w", err))
		}

		records := make([]vectorstore.Record, len(doc.Chunks))
		for i, chunk := range doc.Chunks {
			records[i] = vectorstore.Record{
				ID:         PointID(doc.DocID, chunk.ChunkIndex),
				Content:    chunk.Content,
				Embedding:  doc.Embeddings[i],
				Metadata:   chunkMetadata(doc, chunk),
				ChunkIndex: chunk.ChunkIndex,
			}
		}
		if err := store.Upsert(ctx, records); err != nil {
			return fn.Err[Report](fmt.Errorf("ingest: upsert: %w", err))
		}

		return fn.Ok(Report{DocID: doc.DocID, Name: doc.Name, ChunkCount: len(doc.Chunks)})
	}
}

// PointID derives a deterministic record ID from a document ID and chunk
// index, so re-ingesting the same document overwrites its old points.
func PointID(docID string, chunkIndex int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s-%d", docID, chunkIndex))).String()
}

func chunkMetadata(doc EmbeddedDocument, chunk domain.Chunk) map[string]any {
	meta := map[string]any{
		"doc_id":      doc.DocID,
		"name":        doc.Name,
		"token_count": chunk.TokenCount,
	}
	for k, v := range chunk.Metadata {
		meta[k] = v
	}
	return meta
}

// NewPipeline constructs the full ingestion pipeline with all stages wired.
// The embed stage is rate limited when deps.Limiter is set.
func NewPipeline(deps Deps) fn.Stage[Job, Report] {
	chunker := deps.Chunker
	if chunker == nil {
		chunker = NewChunker(DefaultChunkSize, DefaultOverlap)
	}
	observe := deps.Observe
	if observe == nil {
		observe = func(string, time.Duration, error) {}
	}

	embed := NewEmbed(deps.Embedder)
	if deps.Limiter != nil {
		embed = resilience.LimitStage(deps.Limiter, embed)
	}

	extracted := fn.Traced("ingest.extract", fn.Logged("extract", observe, NewExtract()))
	chunked := fn.Traced("ingest.chunk", fn.Logged("chunk", observe, NewChunk(chunker)))
	embedded := fn.Traced("ingest.embed", fn.Logged("embed", observe, embed))
	stored := fn.Traced("ingest.store", fn.Logged("store", observe, NewStore(deps.Store)))

	return fn.Then(fn.Then(fn.Then(extracted, chunked), embedded), stored)
}

// dlqMessage is published to the DLQ on repeated failure.
type dlqMessage struct {
	Job     Job    `json:"job"`
	Error   string `json:"error"`
	Retries int    `json:"retries"`
}

// jobReply is sent back to the requester when the job carries a reply
// subject.
type jobReply struct {
	Success bool    `json:"success"`
	Report  *Report `json:"report,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// StartConsumer subscribes to the ingest subject and runs jobs through the
// pipeline with retry and DLQ support.
func StartConsumer(nc *nats.Conn, deps Deps) (*nats.Subscription, error) {
	pipeline := NewPipeline(deps)
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	return nc.Subscribe(IngestSubject, func(msg *nats.Msg) {
		var job Job
		if err := json.Unmarshal(msg.Data, &job); err != nil {
			log.Error("ingest: unmarshal failed", "error", err)
			return
		}

		ctx := context.Background()

		retries := retryCount(msg.Header, log)

		result := pipeline(ctx, job)
		if result.IsErr() {
			_, pipeErr := result.Unwrap()
			retries++
			log.Error("ingest: pipeline failed",
				"error", pipeErr,
				"doc_id", job.DocID,
				"retry", retries,
			)

			// Bad input never succeeds on retry; dead-letter it at once.
			if retries >= MaxRetries || errors.Is(pipeErr, domain.ErrIngestionInput) {
				dlq := dlqMessage{Job: job, Error: pipeErr.Error(), Retries: retries}
				data, _ := json.Marshal(dlq)
				if err := nc.Publish(DLQSubject, data); err != nil {
					log.Error("ingest: DLQ publish failed", "error", err)
				}
				respond(msg, jobReply{Success: false, Error: pipeErr.Error()})
			} else {
				retryMsg := nats.NewMsg(IngestSubject)
				retryMsg.Data = msg.Data
				retryMsg.Header = nats.Header{}
				retryMsg.Header.Set("X-Retry-Count", strconv.Itoa(retries))
				if err := nc.PublishMsg(retryMsg); err != nil {
					log.Error("ingest: retry publish failed", "error", err)
				}
			}
			return
		}

		report, _ := result.Unwrap()
		log.Info("ingest: success", "doc_id", report.DocID, "chunks", report.ChunkCount)
		respond(msg, jobReply{Success: true, Report: &report})
	})
}

// retryCount reads the retry header; a missing or unparsable value counts
// as the first attempt.
func retryCount(h nats.Header, log *slog.Logger) int {
	if h == nil {
		return 0
	}
	v := h.Get("X-Retry-Count")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn("ingest: bad retry header", "value", v, "error", err)
		return 0
	}
	return n
}

func respond(msg *nats.Msg, reply jobReply) {
	if msg.Reply == "" {
		return
	}
	data, _ := json.Marshal(reply)
	_ = msg.Respond(data)
}
