package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(Config{APIKey: "test-key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_RequiresAPIKey(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestEmbed(t *testing.T) {
	var gotPath, gotKey string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		json.NewEncoder(w).Encode(map[string]any{
			"embedding": map[string]any{"values": []float64{0.1, 0.2, 0.3}},
		})
	})

	vec, err := c.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 3 || vec[0] != 0.1 {
		t.Errorf("vec = %v", vec)
	}
	if !strings.Contains(gotPath, "text-embedding-004:embedContent") {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("api key header = %q", gotKey)
	}
}

func TestEmbed_ErrorStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"quota"}`, http.StatusTooManyRequests)
	})

	if _, err := c.Embed(context.Background(), "x"); err == nil || !strings.Contains(err.Error(), "429") {
		t.Errorf("err = %v, want status 429", err)
	}
}

func TestEmbed_EmptyVector(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"embedding": map[string]any{"values": []float64{}}})
	})

	if _, err := c.Embed(context.Background(), "x"); err == nil {
		t.Error("expected error for empty embedding")
	}
}

func TestEmbedBatch_OrderAndCount(t *testing.T) {
	n := 0
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		n++
		json.NewEncoder(w).Encode(map[string]any{
			"embedding": map[string]any{"values": []float64{float64(n)}},
		})
	})

	vecs, err := c.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("got %d vectors", len(vecs))
	}
	for i, v := range vecs {
		if v[0] != float32(i+1) {
			t.Errorf("vecs[%d] = %v, order not preserved", i, v)
		}
	}
}

func TestEmbedBatch_AbortsOnFailure(t *testing.T) {
	n := 0
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		n++
		if n == 2 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"embedding": map[string]any{"values": []float64{1}}})
	})

	_, err := c.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err == nil || !strings.Contains(err.Error(), "batch [1]") {
		t.Errorf("err = %v, want batch index 1 failure", err)
	}
	if n != 2 {
		t.Errorf("made %d calls, want 2 (abort on first failure)", n)
	}
}

func TestGenerate_WithUsage(t *testing.T) {
	var gotBody map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{
				map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": "the answer"}}}},
			},
			"usageMetadata": map[string]any{"promptTokenCount": 100, "candidatesTokenCount": 20},
		})
	})

	res, err := c.Generate(context.Background(), "prompt", GenOptions{Temperature: 0.1, MaxOutputTokens: 2048})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Text != "the answer" {
		t.Errorf("text = %q", res.Text)
	}
	if res.Usage == nil || res.Usage.PromptTokens != 100 || res.Usage.CompletionTokens != 20 {
		t.Errorf("usage = %+v", res.Usage)
	}

	cfg := gotBody["generationConfig"].(map[string]any)
	if cfg["temperature"].(float64) != 0.1 {
		t.Errorf("temperature sent = %v", cfg["temperature"])
	}
	if cfg["maxOutputTokens"].(float64) != 2048 {
		t.Errorf("maxOutputTokens sent = %v", cfg["maxOutputTokens"])
	}
}

func TestGenerate_MultiPartContent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{
				map[string]any{"content": map[string]any{"parts": []any{
					map[string]any{"text": "first part, "},
					map[string]any{"text": "second part, "},
					map[string]any{"text": "third part"},
				}}},
			},
		})
	})

	res, err := c.Generate(context.Background(), "p", GenOptions{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Text != "first part, second part, third part" {
		t.Errorf("text = %q, want all parts joined", res.Text)
	}
}

func TestGenerate_NoUsageMetadata(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{
				map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": "ok"}}}},
			},
		})
	})

	res, err := c.Generate(context.Background(), "p", GenOptions{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Usage != nil {
		t.Errorf("usage = %+v, want nil", res.Usage)
	}
}

func TestGenerate_NoCandidates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	})

	if _, err := c.Generate(context.Background(), "p", GenOptions{}); err == nil {
		t.Error("expected error for empty candidates")
	}
}
