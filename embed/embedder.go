// Package embed fetches text embeddings from OpenRouter and keeps them in
// a local cache keyed by normalized text.
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultBaseURL is the OpenRouter endpoint root.
	DefaultBaseURL = "https://openrouter.ai"

	// DefaultModel is the embedding model used for event titles.
	DefaultModel = "qwen/qwen3-embedding-8b"

	// DefaultBatchSize is how many texts go into one request.
	DefaultBatchSize = 256

	// DefaultWorkers bounds concurrent embedding requests.
	DefaultWorkers = 4

	embeddingsPath = "/api/v1/embeddings"
	defaultTimeout = 2 * time.Minute
)

// Embedder turns texts into vectors. When a Cache is attached, texts whose
// normalized key is already cached are served locally and only the misses
// are requested.
type Embedder struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	batchSize  int
	workers    int
	cache      *Cache
	logger     *slog.Logger
}

type Option func(*Embedder)

func WithBaseURL(u string) Option {
	return func(e *Embedder) { e.baseURL = strings.TrimRight(u, "/") }
}

func WithModel(model string) Option {
	return func(e *Embedder) { e.model = model }
}

func WithBatchSize(n int) Option {
	return func(e *Embedder) { e.batchSize = n }
}

func WithWorkers(n int) Option {
	return func(e *Embedder) { e.workers = n }
}

func WithCache(c *Cache) Option {
	return func(e *Embedder) { e.cache = c }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(e *Embedder) { e.httpClient = hc }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Embedder) { e.logger = logger }
}

// New returns an Embedder authenticated with the given OpenRouter key.
func New(apiKey string, opts ...Option) *Embedder {
	e := &Embedder{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		model:      DefaultModel,
		batchSize:  DefaultBatchSize,
		workers:    DefaultWorkers,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.batchSize < 1 {
		e.batchSize = 1
	}
	if e.workers < 1 {
		e.workers = 1
	}
	return e
}

// NormalizeKey is the cache key for a text: trimmed and lowercased, and
// also what gets sent to the model.
func NormalizeKey(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// EmbedTexts returns one vector per input text, index-aligned. Misses are
// fetched in batches on a bounded pool; a failed batch is logged and
// leaves nil vectors in its slots.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) [][]float64 {
	vecs := make([][]float64, len(texts))
	keys := make([]string, len(texts))
	var misses []int
	for i, text := range texts {
		keys[i] = NormalizeKey(text)
		if e.cache != nil {
			if vec, ok := e.cache.Get(keys[i]); ok {
				vecs[i] = vec
				continue
			}
		}
		misses = append(misses, i)
	}
	if len(misses) == 0 {
		return vecs
	}

	e.logger.Info("embedding texts",
		"total", len(texts), "cached", len(texts)-len(misses), "misses", len(misses))

	sem := make(chan struct{}, e.workers)
	var wg sync.WaitGroup
	for start := 0; start < len(misses); start += e.batchSize {
		end := start + e.batchSize
		if end > len(misses) {
			end = len(misses)
		}
		batch := misses[start:end]

		wg.Add(1)
		go func(batch []int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			input := make([]string, len(batch))
			for bi, idx := range batch {
				input[bi] = keys[idx]
			}
			out, err := e.embedBatch(ctx, input)
			if err != nil {
				e.logger.Warn("embedding batch failed", "size", len(batch), "error", err)
				return
			}
			for bi, idx := range batch {
				vecs[idx] = out[bi]
				if e.cache != nil {
					e.cache.Put(keys[idx], out[bi])
				}
			}
		}(batch)
	}
	wg.Wait()
	return vecs
}

func (e *Embedder) embedBatch(ctx context.Context, input []string) ([][]float64, error) {
	payload, err := json.Marshal(map[string]any{
		"model": e.model,
		"input": input,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+embeddingsPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embeddings request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("openrouter status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Data) != len(input) {
		return nil, fmt.Errorf("got %d embeddings for %d inputs", len(out.Data), len(input))
	}

	vecs := make([][]float64, len(out.Data))
	for i, item := range out.Data {
		vecs[i] = item.Embedding
	}
	return vecs, nil
}
