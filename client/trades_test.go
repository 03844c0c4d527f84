package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

var testCreds = L2Credentials{
	APIKey:     "api-key",
	APISecret:  "c2VjcmV0LWtleS1ieXRlcw==",
	Passphrase: "passphrase",
	Address:    "0x1234567890abcdef1234567890abcdef12345678",
}

func clobTradeRow(id string, matchTime string) map[string]any {
	return map[string]any{
		"id":         id,
		"market":     "0xcond",
		"side":       "BUY",
		"size":       "10",
		"price":      "0.5",
		"status":     "CONFIRMED",
		"match_time": matchTime,
	}
}

func TestClobTrades(t *testing.T) {
	t.Run("walks cursors to the terminal sentinel", func(t *testing.T) {
		var requests int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requests, 1)
			for _, h := range []string{"POLY_ADDRESS", "POLY_SIGNATURE", "POLY_TIMESTAMP", "POLY_API_KEY", "POLY_PASSPHRASE"} {
				if r.Header.Get(h) == "" {
					t.Errorf("header %s missing", h)
				}
			}
			if ts := r.Header.Get("POLY_TIMESTAMP"); ts != "" {
				if _, err := strconv.ParseInt(ts, 10, 64); err != nil {
					t.Errorf("POLY_TIMESTAMP = %q, not epoch seconds", ts)
				}
			}

			var page map[string]any
			switch r.URL.Query().Get("next_cursor") {
			case "MA==":
				page = map[string]any{
					"data":        []any{clobTradeRow("t1", "2024-03-01T00:00:00Z"), clobTradeRow("t2", "2024-03-01T01:00:00Z")},
					"next_cursor": "NTAw",
				}
			case "NTAw":
				page = map[string]any{
					"data":        []any{clobTradeRow("t3", "2024-03-01T02:00:00Z")},
					"next_cursor": "LTE=",
				}
			default:
				t.Errorf("unexpected cursor %q", r.URL.Query().Get("next_cursor"))
				page = map[string]any{"data": []any{}}
			}
			json.NewEncoder(w).Encode(page)
		}))
		defer server.Close()

		c := New(WithClobBase(server.URL), WithCredentials(testCreds))
		trades, err := c.ClobTrades(context.Background(), ClobTradesParams{Market: "0xcond"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(trades) != 3 {
			t.Errorf("len(trades) = %d, want 3", len(trades))
		}
		if requests != 2 {
			t.Errorf("requests = %d, want 2", requests)
		}
		if trades[0].ID != "t1" || trades[2].ID != "t3" {
			t.Errorf("trades = %v", []string{trades[0].ID, trades[1].ID, trades[2].ID})
		}
	})

	t.Run("stuck cursor terminates locally", func(t *testing.T) {
		var requests int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requests, 1)
			json.NewEncoder(w).Encode(map[string]any{
				"data":        []any{clobTradeRow("t1", "2024-03-01T00:00:00Z")},
				"next_cursor": r.URL.Query().Get("next_cursor"),
			})
		}))
		defer server.Close()

		c := New(WithClobBase(server.URL), WithCredentials(testCreds))
		trades, err := c.ClobTrades(context.Background(), ClobTradesParams{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if requests != 1 {
			t.Errorf("requests = %d, want 1", requests)
		}
		if len(trades) != 1 {
			t.Errorf("len(trades) = %d, want 1", len(trades))
		}
	})

	t.Run("empty page terminates locally", func(t *testing.T) {
		var requests int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requests, 1)
			json.NewEncoder(w).Encode(map[string]any{"data": []any{}, "next_cursor": "NTAw"})
		}))
		defer server.Close()

		c := New(WithClobBase(server.URL), WithCredentials(testCreds))
		trades, err := c.ClobTrades(context.Background(), ClobTradesParams{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if requests != 1 {
			t.Errorf("requests = %d, want 1", requests)
		}
		if len(trades) != 0 {
			t.Errorf("len(trades) = %d, want 0", len(trades))
		}
	})

	t.Run("only first page", func(t *testing.T) {
		var requests int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requests, 1)
			json.NewEncoder(w).Encode(map[string]any{
				"data":        []any{clobTradeRow("t1", "2024-03-01T00:00:00Z")},
				"next_cursor": "NTAw",
			})
		}))
		defer server.Close()

		c := New(WithClobBase(server.URL), WithCredentials(testCreds))
		_, err := c.ClobTrades(context.Background(), ClobTradesParams{OnlyFirstPage: true})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if requests != 1 {
			t.Errorf("requests = %d, want 1", requests)
		}
	})

	t.Run("max pages caps the walk", func(t *testing.T) {
		var requests int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := atomic.AddInt32(&requests, 1)
			json.NewEncoder(w).Encode(map[string]any{
				"data":        []any{clobTradeRow(fmt.Sprintf("t%d", n), "2024-03-01T00:00:00Z")},
				"next_cursor": fmt.Sprintf("cursor-%d", n),
			})
		}))
		defer server.Close()

		c := New(WithClobBase(server.URL), WithCredentials(testCreds))
		trades, err := c.ClobTrades(context.Background(), ClobTradesParams{MaxPages: 2})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if requests != 2 {
			t.Errorf("requests = %d, want 2", requests)
		}
		if len(trades) != 2 {
			t.Errorf("len(trades) = %d, want 2", len(trades))
		}
	})

	t.Run("bare list response accepted", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode([]any{clobTradeRow("t1", "2024-03-01T00:00:00Z")})
		}))
		defer server.Close()

		c := New(WithClobBase(server.URL), WithCredentials(testCreds))
		trades, err := c.ClobTrades(context.Background(), ClobTradesParams{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(trades) != 1 {
			t.Errorf("len(trades) = %d, want 1", len(trades))
		}
	})

	t.Run("missing credentials is a config error", func(t *testing.T) {
		for _, env := range []string{"POLY_API_KEY", "POLY_API_SECRET", "POLY_API_PASSPHRASE", "POLY_ADDRESS"} {
			t.Setenv(env, "")
		}
		c := New()
		_, err := c.ClobTrades(context.Background(), ClobTradesParams{})
		if !errors.Is(err, ErrNoCredentials) {
			t.Errorf("err = %v, want ErrNoCredentials", err)
		}
	})

	t.Run("partial credentials is a config error", func(t *testing.T) {
		c := New()
		_, err := c.ClobTrades(context.Background(), ClobTradesParams{
			Credentials: &L2Credentials{APIKey: "only-key"},
		})
		if !errors.Is(err, ErrIncompleteCredentials) {
			t.Errorf("err = %v, want ErrIncompleteCredentials", err)
		}
	})
}

func TestClobTradesAsOf(t *testing.T) {
	ref := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	t.Run("after bound past the reference short-circuits", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected")
		}))
		defer server.Close()

		c := New(WithClobBase(server.URL), WithCredentials(testCreds), WithAsOf(ref))
		trades, err := c.ClobTrades(context.Background(), ClobTradesParams{After: ref.Unix() + 1000})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if trades != nil {
			t.Errorf("trades = %v, want nil", trades)
		}
	})

	t.Run("before bound clamped to the reference", func(t *testing.T) {
		var gotBefore string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotBefore = r.URL.Query().Get("before")
			json.NewEncoder(w).Encode(map[string]any{"data": []any{}, "next_cursor": "LTE="})
		}))
		defer server.Close()

		c := New(WithClobBase(server.URL), WithCredentials(testCreds), WithAsOf(ref))
		_, err := c.ClobTrades(context.Background(), ClobTradesParams{Before: ref.Unix() + 99999})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gotBefore != strconv.FormatInt(ref.Unix(), 10) {
			t.Errorf("before = %s, want %d", gotBefore, ref.Unix())
		}
	})

	t.Run("post-reference fills dropped", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"data": []any{
					clobTradeRow("kept", "2024-03-01T00:00:00Z"),
					clobTradeRow("dropped", "2024-03-05T00:00:00Z"),
				},
				"next_cursor": "LTE=",
			})
		}))
		defer server.Close()

		c := New(WithClobBase(server.URL), WithCredentials(testCreds), WithAsOf(ref))
		trades, err := c.ClobTrades(context.Background(), ClobTradesParams{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(trades) != 1 || trades[0].ID != "kept" {
			t.Errorf("trades = %+v, want only the pre-reference fill", trades)
		}
	})
}

func publicTradeRow(hash, side string, ts int64) map[string]any {
	return map[string]any{
		"transactionHash": hash,
		"proxyWallet":     "0xwallet",
		"conditionId":     "0xcond",
		"side":            side,
		"size":            "100",
		"price":           "0.5",
		"timestamp":       json.Number(strconv.FormatInt(ts, 10)),
	}
}

func TestPublicTrades(t *testing.T) {
	t.Run("query encoding", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("market") != "0xaaa,0xbbb" {
				t.Errorf("market = %q, want comma-joined", q.Get("market"))
			}
			if q.Get("takerOnly") != "false" {
				t.Errorf("takerOnly = %q, want false", q.Get("takerOnly"))
			}
			if q.Get("filterType") != "CASH" {
				t.Errorf("filterType = %q", q.Get("filterType"))
			}
			if q.Get("filterAmount") != "500" {
				t.Errorf("filterAmount = %q", q.Get("filterAmount"))
			}
			if q.Get("side") != "BUY" {
				t.Errorf("side = %q", q.Get("side"))
			}
			json.NewEncoder(w).Encode([]any{})
		}))
		defer server.Close()

		c := New(WithDataBase(server.URL))
		_, err := c.PublicTrades(context.Background(), PublicTradesParams{
			TakerOnly:    Bool(false),
			FilterType:   "CASH",
			FilterAmount: 500,
			Markets:      []string{"0xaaa", "0xbbb"},
			Side:         "BUY",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("as-of drops unstamped and later trades", func(t *testing.T) {
		ref := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rows := []any{
				publicTradeRow("0x1", "BUY", ref.Unix()-100),
				publicTradeRow("0x2", "BUY", ref.Unix()+100),
				map[string]any{"transactionHash": "0x3", "side": "BUY"},
			}
			json.NewEncoder(w).Encode(rows)
		}))
		defer server.Close()

		c := New(WithDataBase(server.URL), WithAsOf(ref))
		trades, err := c.PublicTrades(context.Background(), PublicTradesParams{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(trades) != 1 || trades[0].TransactionHash != "0x1" {
			t.Errorf("trades = %+v, want only 0x1", trades)
		}
	})
}

func TestSweepPublicTrades(t *testing.T) {
	t.Run("dual pass with dedup", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("market") != "0xcond" {
				t.Errorf("market = %q", q.Get("market"))
			}
			offset, _ := strconv.Atoi(q.Get("offset"))

			var rows []any
			switch q.Get("side") {
			case "BUY":
				switch offset {
				case 0:
					rows = []any{publicTradeRow("0xb1", "BUY", 1709000000), publicTradeRow("0xb2", "BUY", 1709000100)}
				case 2:
					rows = []any{publicTradeRow("0xb3", "BUY", 1709000200)}
				}
			case "SELL":
				switch offset {
				case 0:
					rows = []any{publicTradeRow("0xs1", "SELL", 1709000000), publicTradeRow("0xs2", "SELL", 1709000100)}
				case 2:
					// First row repeats the tail of the previous page.
					rows = []any{publicTradeRow("0xs2", "SELL", 1709000100), publicTradeRow("0xs3", "SELL", 1709000200)}
				case 4:
					rows = []any{}
				}
			default:
				t.Errorf("side = %q, want BUY or SELL", q.Get("side"))
			}
			json.NewEncoder(w).Encode(rows)
		}))
		defer server.Close()

		c := New(WithDataBase(server.URL), WithTradePaging(2, 4))
		trades, err := c.SweepPublicTrades(context.Background(), "0xcond", 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(trades) != 6 {
			hashes := make([]string, len(trades))
			for i, tr := range trades {
				hashes[i] = tr.TransactionHash
			}
			t.Errorf("len(trades) = %d, want 6 (got %v)", len(trades), hashes)
		}
	})

	t.Run("offset ceiling stops full-page walks", func(t *testing.T) {
		var buyRequests int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("side") == "BUY" {
				atomic.AddInt32(&buyRequests, 1)
			}
			offset, _ := strconv.Atoi(q.Get("offset"))
			rows := []any{
				publicTradeRow(fmt.Sprintf("0x%s-%d-0", q.Get("side"), offset), q.Get("side"), 1709000000),
				publicTradeRow(fmt.Sprintf("0x%s-%d-1", q.Get("side"), offset), q.Get("side"), 1709000001),
			}
			json.NewEncoder(w).Encode(rows)
		}))
		defer server.Close()

		c := New(WithDataBase(server.URL), WithTradePaging(2, 4))
		trades, err := c.SweepPublicTrades(context.Background(), "0xcond", 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// Offsets 0, 2 and 4 fit under the ceiling; 6 would pass it.
		if buyRequests != 3 {
			t.Errorf("BUY requests = %d, want 3", buyRequests)
		}
		if len(trades) != 12 {
			t.Errorf("len(trades) = %d, want 12", len(trades))
		}
	})

	t.Run("cash filter forwarded", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("filterType") != "CASH" {
				t.Errorf("filterType = %q, want CASH", q.Get("filterType"))
			}
			if q.Get("filterAmount") != "500" {
				t.Errorf("filterAmount = %q, want 500", q.Get("filterAmount"))
			}
			json.NewEncoder(w).Encode([]any{})
		}))
		defer server.Close()

		c := New(WithDataBase(server.URL))
		if _, err := c.SweepPublicTrades(context.Background(), "0xcond", 500); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestTradeKey(t *testing.T) {
	ts := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	base := PublicTrade{
		TransactionHash: "0xhash",
		ProxyWallet:     "0xwallet",
		ConditionID:     "0xcond",
		Side:            "BUY",
		Size:            Float(100),
		Price:           Float(0.5),
		Timestamp:       &ts,
	}

	if tradeKey(base) != tradeKey(base) {
		t.Error("identical trades disagree on key")
	}

	flipped := base
	flipped.Side = "SELL"
	if tradeKey(base) == tradeKey(flipped) {
		t.Error("side should distinguish keys")
	}

	repriced := base
	repriced.Price = Float(0.51)
	if tradeKey(base) == tradeKey(repriced) {
		t.Error("price should distinguish keys")
	}

	unstamped := base
	unstamped.Timestamp = nil
	if tradeKey(base) == tradeKey(unstamped) {
		t.Error("timestamp should distinguish keys")
	}
}
