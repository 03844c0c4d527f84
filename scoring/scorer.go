// Package scoring assigns insider scores to event titles through the
// OpenRouter chat completions API.
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultBaseURL is the OpenRouter endpoint root.
	DefaultBaseURL = "https://openrouter.ai"

	// DefaultModel scores titles quickly and cheaply.
	DefaultModel = "google/gemini-2.5-flash-lite"

	// DefaultWorkers bounds concurrent scoring requests.
	DefaultWorkers = 4

	chatPath       = "/api/v1/chat/completions"
	maxAttempts    = 3
	defaultTimeout = 2 * time.Minute
)

// Scorer calls the chat completions endpoint and parses scores out of the
// model's replies. Failures degrade to score 0 rather than aborting a run.
type Scorer struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	workers    int
	logger     *slog.Logger
}

type Option func(*Scorer)

func WithBaseURL(u string) Option {
	return func(s *Scorer) { s.baseURL = strings.TrimRight(u, "/") }
}

func WithModel(model string) Option {
	return func(s *Scorer) { s.model = model }
}

func WithWorkers(n int) Option {
	return func(s *Scorer) { s.workers = n }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(s *Scorer) { s.httpClient = hc }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scorer) { s.logger = logger }
}

// New returns a Scorer authenticated with the given OpenRouter key.
func New(apiKey string, opts ...Option) *Scorer {
	s := &Scorer{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		model:      DefaultModel,
		workers:    DefaultWorkers,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.workers < 1 {
		s.workers = 1
	}
	return s
}

// ScoreTitle scores one event title. It asks the model up to three times;
// when no attempt yields a parseable score the result is 0 and a warning
// is logged.
func (s *Scorer) ScoreTitle(ctx context.Context, title string) int {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		score, err := s.scoreOnce(ctx, title)
		if err == nil {
			return score
		}
		s.logger.Debug("score attempt failed",
			"title", title, "attempt", attempt, "error", err)
		if ctx.Err() != nil {
			break
		}
	}
	s.logger.Warn("failed to score event, defaulting to 0", "title", title)
	return 0
}

// ScoreTitles scores a batch of titles on a bounded worker pool. The
// result slice lines up with titles by index.
func (s *Scorer) ScoreTitles(ctx context.Context, titles []string) []int {
	scores := make([]int, len(titles))
	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup
	for i, title := range titles {
		wg.Add(1)
		go func(i int, title string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			scores[i] = s.ScoreTitle(ctx, title)
		}(i, title)
	}
	wg.Wait()
	return scores
}

func (s *Scorer) scoreOnce(ctx context.Context, title string) (int, error) {
	reqBody := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{
				Role: "system",
				Content: []contentPart{{
					Type:         "text",
					Text:         scoreSystemPrompt,
					CacheControl: &cacheControl{Type: "ephemeral", TTL: "1h"},
				}},
			},
			{
				Role:    "user",
				Content: fmt.Sprintf("Evaluate this event: %q", title),
			},
		},
		MaxTokens:   1024,
		Temperature: 0.5,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return 0, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+chatPath, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, fmt.Errorf("openrouter status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return 0, fmt.Errorf("no choices in response")
	}

	score, ok := parseScore(out.Choices[0].Message.Content)
	if !ok {
		return 0, fmt.Errorf("no score line in response")
	}
	return score, nil
}

// parseScore extracts the score from the last "Score: X" line of a reply.
// Matching is case-insensitive per the prompt contract that the reply ends
// with exactly such a line.
func parseScore(content string) (int, bool) {
	text := strings.ToLower(strings.TrimSpace(content))
	score, found := 0, false
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "score:") {
			continue
		}
		raw := strings.TrimSpace(strings.TrimPrefix(line, "score:"))
		n, err := strconv.Atoi(raw)
		if err != nil {
			continue
		}
		score, found = n, true
	}
	return score, found
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type         string        `json:"type"`
	Text         string        `json:"text"`
	CacheControl *cacheControl `json:"cache_control,omitempty"`
}

type cacheControl struct {
	Type string `json:"type"`
	TTL  string `json:"ttl,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}
