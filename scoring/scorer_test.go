package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completion(content string) string {
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
		ok      bool
	}{
		{"plain", "Analysis here.\nScore: 125", 125, true},
		{"case insensitive", "SCORE: 7", 7, true},
		{"last line wins", "score: 1\nmore text\nScore: 40", 40, true},
		{"padded", "  Score:   12  ", 12, true},
		{"analysis line ignored", "Insider Score = 2\nScore: 2", 2, true},
		{"not a number", "Score: about five", 0, false},
		{"missing", "I cannot evaluate this.", 0, false},
		{"empty", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseScore(tt.content)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScoreTitle(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var gotBody chatRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/v1/chat/completions", r.URL.Path)
			require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			fmt.Fprint(w, completion("1. Quantity: 5\nScore: 75"))
		}))
		defer srv.Close()

		s := New("test-key", WithBaseURL(srv.URL))
		score := s.ScoreTitle(context.Background(), "Will OpenAI release GPT-5?")

		assert.Equal(t, 75, score)
		assert.Equal(t, DefaultModel, gotBody.Model)
		assert.Equal(t, 1024, gotBody.MaxTokens)
		assert.Equal(t, 0.5, gotBody.Temperature)
		require.Len(t, gotBody.Messages, 2)
		assert.Equal(t, "system", gotBody.Messages[0].Role)
		assert.Contains(t, fmt.Sprint(gotBody.Messages[1].Content), "Will OpenAI release GPT-5?")
	})

	t.Run("retries then zero", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			fmt.Fprint(w, completion("no score here"))
		}))
		defer srv.Close()

		s := New("test-key", WithBaseURL(srv.URL))
		score := s.ScoreTitle(context.Background(), "some event")

		assert.Equal(t, 0, score)
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("retry then success", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) == 1 {
				fmt.Fprint(w, completion("garbled"))
				return
			}
			fmt.Fprint(w, completion("Score: 9"))
		}))
		defer srv.Close()

		s := New("test-key", WithBaseURL(srv.URL))
		score := s.ScoreTitle(context.Background(), "some event")

		assert.Equal(t, 9, score)
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	})

	t.Run("server error degrades to zero", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "upstream down", http.StatusBadGateway)
		}))
		defer srv.Close()

		s := New("test-key", WithBaseURL(srv.URL))
		assert.Equal(t, 0, s.ScoreTitle(context.Background(), "some event"))
	})
}

func TestScoreTitles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		user := fmt.Sprint(req.Messages[1].Content)
		score := 0
		switch {
		case strings.Contains(user, "alpha"):
			score = 10
		case strings.Contains(user, "beta"):
			score = 20
		case strings.Contains(user, "gamma"):
			score = 30
		}
		fmt.Fprint(w, completion(fmt.Sprintf("Score: %d", score)))
	}))
	defer srv.Close()

	s := New("test-key", WithBaseURL(srv.URL), WithWorkers(2))
	scores := s.ScoreTitles(context.Background(), []string{"alpha", "beta", "gamma"})

	assert.Equal(t, []int{10, 20, 30}, scores)
}

func TestScoreEvents(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, completion("Score: 50"))
	}))
	defer srv.Close()

	s := New("test-key", WithBaseURL(srv.URL))
	events := []Event{
		{ID: "1", Title: "big event", Volume: 90000},
		{ID: "2", Title: "small event", Volume: 100},
		{ID: "3", Title: "no volume yet"},
		{ID: "4", Title: "already scored", Volume: 50000},
	}
	existing := map[string]int{"4": 12}

	merged := s.ScoreEvents(context.Background(), events, existing, 25000)

	// Scored: 1 (above threshold) and 3 (unknown volume). Skipped: 2
	// (below threshold) and 4 (already scored).
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, map[string]int{"1": 50, "3": 50, "4": 12}, merged)
	assert.Equal(t, map[string]int{"4": 12}, existing, "input map must not change")
}

func TestScoreEventsNothingToDo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))
	defer srv.Close()

	s := New("test-key", WithBaseURL(srv.URL))
	merged := s.ScoreEvents(context.Background(), []Event{{ID: "9", Title: "t", Volume: 1}}, map[string]int{"8": 3}, 25000)
	assert.Equal(t, map[string]int{"8": 3}, merged)
}
