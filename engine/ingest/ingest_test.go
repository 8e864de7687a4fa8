package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/docsage/docsage/engine/domain"
	"github.com/docsage/docsage/engine/vectorstore/memory"
	"github.com/nats-io/nats.go"
)

type fakeEmbedder struct {
	calls [][]string
	err   error
	short bool
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, texts)
	if f.err != nil {
		return nil, f.err
	}
	n := len(texts)
	if f.short && n > 0 {
		n--
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{float32(i), 1, 0}
	}
	return out, nil
}

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const sampleDoc = "Alpha bravo charlie delta echo foxtrot golf hotel. " +
	"India juliet kilo lima mike november oscar papa. " +
	"Quebec romeo sierra tango uniform victor whiskey xray."

func TestPipeline_Success(t *testing.T) {
	store := memory.New()
	emb := &fakeEmbedder{}
	pipeline := NewPipeline(Deps{Embedder: emb, Store: store})

	job := Job{DocID: "doc-1", Name: "doc.txt", Path: writeDoc(t, sampleDoc)}
	report, err := pipeline(context.Background(), job).Unwrap()
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	if report.DocID != "doc-1" || report.ChunkCount == 0 {
		t.Errorf("report = %+v", report)
	}
	if store.Len() != report.ChunkCount {
		t.Errorf("store has %d records, report says %d", store.Len(), report.ChunkCount)
	}
	if len(emb.calls) != 1 || len(emb.calls[0]) != report.ChunkCount {
		t.Errorf("embedder calls = %v", emb.calls)
	}
}

func TestPipeline_ReplacesPreviousDocument(t *testing.T) {
	store := memory.New()
	pipeline := NewPipeline(Deps{Embedder: &fakeEmbedder{}, Store: store})

	first := Job{DocID: "doc-1", Name: "a.txt", Path: writeDoc(t, sampleDoc)}
	if _, err := pipeline(context.Background(), first).Unwrap(); err != nil {
		t.Fatal(err)
	}
	second := Job{DocID: "doc-2", Name: "b.txt", Path: writeDoc(t, "Badgers dig deep burrows near the river every spring.")}
	report, err := pipeline(context.Background(), second).Unwrap()
	if err != nil {
		t.Fatal(err)
	}
	if store.Len() != report.ChunkCount {
		t.Errorf("store has %d records after re-ingest, want %d", store.Len(), report.ChunkCount)
	}
}

func TestPipeline_MissingFile(t *testing.T) {
	pipeline := NewPipeline(Deps{Embedder: &fakeEmbedder{}, Store: memory.New()})
	job := Job{DocID: "doc-1", Name: "gone.txt", Path: filepath.Join(t.TempDir(), "gone.txt")}

	_, err := pipeline(context.Background(), job).Unwrap()
	if !errors.Is(err, domain.ErrIngestionInput) {
		t.Errorf("err = %v, want ErrIngestionInput", err)
	}
}

func TestPipeline_EmptyDocument(t *testing.T) {
	pipeline := NewPipeline(Deps{Embedder: &fakeEmbedder{}, Store: memory.New()})
	job := Job{DocID: "doc-1", Name: "empty.txt", Path: writeDoc(t, "   \n\t ")}

	_, err := pipeline(context.Background(), job).Unwrap()
	if !errors.Is(err, domain.ErrIngestionInput) {
		t.Errorf("err = %v, want ErrIngestionInput", err)
	}
}

func TestPipeline_EmbedFailure(t *testing.T) {
	store := memory.New()
	emb := &fakeEmbedder{err: errors.New("quota exceeded")}
	pipeline := NewPipeline(Deps{Embedder: emb, Store: store})

	job := Job{DocID: "doc-1", Name: "doc.txt", Path: writeDoc(t, sampleDoc)}
	_, err := pipeline(context.Background(), job).Unwrap()
	if !errors.Is(err, domain.ErrEmbedding) {
		t.Errorf("err = %v, want ErrEmbedding", err)
	}
	if store.Len() != 0 {
		t.Errorf("store has %d records after embed failure, want 0", store.Len())
	}
}

func TestPipeline_EmbeddingCountMismatch(t *testing.T) {
	pipeline := NewPipeline(Deps{Embedder: &fakeEmbedder{short: true}, Store: memory.New()})
	job := Job{DocID: "doc-1", Name: "doc.txt", Path: writeDoc(t, sampleDoc)}

	_, err := pipeline(context.Background(), job).Unwrap()
	if !errors.Is(err, domain.ErrEmbedding) {
		t.Errorf("err = %v, want ErrEmbedding", err)
	}
}

func TestRetryCount(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cases := []struct {
		name   string
		header nats.Header
		want   int
	}{
		{"nil header", nil, 0},
		{"absent", nats.Header{}, 0},
		{"valid", nats.Header{"X-Retry-Count": []string{"2"}}, 2},
		{"garbage", nats.Header{"X-Retry-Count": []string{"two"}}, 0},
	}
	for _, tc := range cases {
		if got := retryCount(tc.header, log); got != tc.want {
			t.Errorf("%s: retryCount = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestPointID_Deterministic(t *testing.T) {
	if PointID("doc-1", 0) != PointID("doc-1", 0) {
		t.Error("same doc and index must yield the same ID")
	}
	if PointID("doc-1", 0) == PointID("doc-1", 1) {
		t.Error("different indexes must yield different IDs")
	}
	if PointID("doc-1", 0) == PointID("doc-2", 0) {
		t.Error("different docs must yield different IDs")
	}
}
