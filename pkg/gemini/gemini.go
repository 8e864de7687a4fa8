// Package gemini is an HTTP client for the Google Generative Language API,
// covering the two capabilities the pipeline needs: text embedding and
// grounded text generation.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL    = "https://generativelanguage.googleapis.com/v1beta"
	defaultEmbedModel = "text-embedding-004"
	defaultGenModel   = "gemini-2.5-flash"

	// EmbedBatchSize is how many texts are embedded between group pauses.
	EmbedBatchSize = 50
)

// Config configures a Client.
type Config struct {
	APIKey     string
	BaseURL    string
	EmbedModel string
	GenModel   string
	Timeout    time.Duration
}

// Client calls the Generative Language REST API. Batch embedding is paced
// with two token buckets: a per-call limiter and a slower one consulted at
// group boundaries, so sustained ingestion stays inside provider rate
// limits.
type Client struct {
	cfg          Config
	http         *http.Client
	callLimiter  *rate.Limiter
	groupLimiter *rate.Limiter
}

// New creates a Client. The API key is required.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: missing API key")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = defaultEmbedModel
	}
	if cfg.GenModel == "" {
		cfg.GenModel = defaultGenModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		cfg:          cfg,
		http:         &http.Client{Timeout: cfg.Timeout},
		callLimiter:  rate.NewLimiter(rate.Every(50*time.Millisecond), 1),
		groupLimiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
	}, nil
}

// EmbedModel returns the configured embedding model name.
func (c *Client) EmbedModel() string { return c.cfg.EmbedModel }

// GenModel returns the configured generation model name.
func (c *Client) GenModel() string { return c.cfg.GenModel }

type contentPart struct {
	Text string `json:"text"`
}

type content struct {
	Parts []contentPart `json:"parts"`
}

type embedRequest struct {
	Content content `json:"content"`
}

type embedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

// Embed returns the embedding vector for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp embedResponse
	url := fmt.Sprintf("%s/models/%s:embedContent", c.cfg.BaseURL, c.cfg.EmbedModel)
	if err := c.post(ctx, url, embedRequest{Content: content{Parts: []contentPart{{Text: text}}}}, &resp); err != nil {
		return nil, fmt.Errorf("gemini: embed: %w", err)
	}
	if len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("gemini: embed: empty embedding in response")
	}
	return resp.Embedding.Values, nil
}

// EmbedBatch embeds texts sequentially, pacing each call and pausing
// longer between groups of EmbedBatchSize. Returns one vector per input
// text, in order. The first failure aborts the batch.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if i > 0 && i%EmbedBatchSize == 0 {
			if err := c.groupLimiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		if err := c.callLimiter.Wait(ctx); err != nil {
			return nil, err
		}
		vec, err := c.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("batch [%d]: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}

// GenOptions bounds a generation call.
type GenOptions struct {
	Temperature     float64
	MaxOutputTokens int
}

// Usage is provider-reported token usage.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// GenResult is the outcome of a generation call. Usage is nil when the
// provider reported no usage metadata.
type GenResult struct {
	Text  string
	Usage *Usage
}

type generateRequest struct {
	Contents         []content `json:"contents"`
	GenerationConfig struct {
		Temperature     float64 `json:"temperature"`
		MaxOutputTokens int     `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

// Generate produces text for a prompt under the given options.
func (c *Client) Generate(ctx context.Context, prompt string, opts GenOptions) (GenResult, error) {
	req := generateRequest{Contents: []content{{Parts: []contentPart{{Text: prompt}}}}}
	req.GenerationConfig.Temperature = opts.Temperature
	req.GenerationConfig.MaxOutputTokens = opts.MaxOutputTokens

	var resp generateResponse
	url := fmt.Sprintf("%s/models/%s:generateContent", c.cfg.BaseURL, c.cfg.GenModel)
	if err := c.post(ctx, url, req, &resp); err != nil {
		return GenResult{}, fmt.Errorf("gemini: generate: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return GenResult{}, fmt.Errorf("gemini: generate: no candidates in response")
	}

	// Long answers come back split across parts; the answer is their
	// concatenation.
	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}

	result := GenResult{Text: text.String()}
	if resp.UsageMetadata != nil {
		result.Usage = &Usage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
		}
	}
	return result, nil
}

func (c *Client) post(ctx context.Context, url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, raw)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
