package cohere

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNew_RequiresAPIKey(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestRerank(t *testing.T) {
	var gotAuth string
	var gotReq map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(map[string]any{
			"results": []any{
				map[string]any{"index": 1, "relevance_score": 0.98},
				map[string]any{"index": 0, "relevance_score": 0.12},
			},
		})
	}))
	defer srv.Close()

	c, err := New(Config{APIKey: "key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	results, err := c.Rerank(context.Background(), "q", []string{"doc a", "doc b"}, 2)
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("got %d results", len(results))
	}
	if results[0].Index != 1 || results[0].Score != 0.98 {
		t.Errorf("results[0] = %+v", results[0])
	}

	if gotAuth != "Bearer key" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotReq["model"] != "rerank-english-v3.0" {
		t.Errorf("model sent = %v", gotReq["model"])
	}
	if gotReq["top_n"].(float64) != 2 {
		t.Errorf("top_n sent = %v", gotReq["top_n"])
	}
}

func TestRerank_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"invalid api token"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, _ := New(Config{APIKey: "bad", BaseURL: srv.URL})
	_, err := c.Rerank(context.Background(), "q", []string{"d"}, 1)
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Errorf("err = %v, want status 401", err)
	}
}
