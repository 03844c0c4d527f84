package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestVisible(t *testing.T) {
	ref := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		asOf *time.Time
		raw  map[string]any
		keys []string
		want bool
	}{
		{
			name: "no reference means everything visible",
			asOf: nil,
			raw:  map[string]any{},
			keys: eventCreatedKeys,
			want: true,
		},
		{
			name: "created before reference",
			asOf: &ref,
			raw:  map[string]any{"createdAt": "2024-03-01T00:00:00Z"},
			keys: eventCreatedKeys,
			want: true,
		},
		{
			name: "created exactly at reference",
			asOf: &ref,
			raw:  map[string]any{"createdAt": "2024-03-04T00:00:00Z"},
			keys: eventCreatedKeys,
			want: true,
		},
		{
			name: "created after reference",
			asOf: &ref,
			raw:  map[string]any{"createdAt": "2024-03-05T00:00:00Z"},
			keys: eventCreatedKeys,
			want: false,
		},
		{
			name: "falls through to creationDate",
			asOf: &ref,
			raw:  map[string]any{"creationDate": "2024-03-01T00:00:00Z"},
			keys: eventCreatedKeys,
			want: true,
		},
		{
			name: "unparsable first key falls through",
			asOf: &ref,
			raw:  map[string]any{"createdAt": "???", "creationDate": "2024-03-01T00:00:00Z"},
			keys: eventCreatedKeys,
			want: true,
		},
		{
			name: "first resolvable key decides even when later keys pass",
			asOf: &ref,
			raw:  map[string]any{"createdAt": "2024-03-05T00:00:00Z", "creationDate": "2024-03-01T00:00:00Z"},
			keys: eventCreatedKeys,
			want: false,
		},
		{
			name: "no resolvable key is not visible",
			asOf: &ref,
			raw:  map[string]any{"title": "mystery"},
			keys: eventCreatedKeys,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := visible(tt.asOf, tt.raw, tt.keys); got != tt.want {
				t.Errorf("visible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRedactRaw(t *testing.T) {
	raw := map[string]any{
		"id":          json.Number("42"),
		"title":       "Will it rain?",
		"slug":        "will-it-rain",
		"description": "desc",
		"startDate":   "2024-03-01T00:00:00Z",
		"endDate":     "2024-06-01T00:00:00Z",
		"createdAt":   "2024-02-01T00:00:00Z",
		"active":      true,
		"closed":      false,
		"volume":      json.Number("123456.7"),
		"liquidity":   json.Number("999.9"),
		"updatedAt":   "2024-03-10T00:00:00Z",
		"extraField":  "should vanish",
	}

	got := redactRaw(raw, eventPolicies)

	if got["id"] != "42" {
		t.Errorf("id = %v (%T), want string \"42\"", got["id"], got["id"])
	}
	if got["title"] != "Will it rain?" {
		t.Errorf("title = %v", got["title"])
	}
	for _, key := range []string{"active", "closed", "volume", "liquidity", "updatedAt", "extraField"} {
		if _, present := got[key]; present {
			t.Errorf("%s leaked into redacted payload", key)
		}
	}
	// Source map stays intact.
	if raw["active"] != true || raw["volume"] == nil {
		t.Errorf("input map mutated: %v", raw)
	}
}

// gammaServer serves canned JSON per path for event and market tests.
func gammaServer(t *testing.T, responses map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := responses[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
}

func TestGetEventAsOf(t *testing.T) {
	eventJSON := `{
		"id": 42,
		"title": "Will it rain?",
		"slug": "will-it-rain",
		"createdAt": "2024-03-05T00:00:00Z",
		"active": true,
		"closed": false,
		"volume": "1000",
		"markets": []
	}`

	server := gammaServer(t, map[string]string{"/events/42": eventJSON})
	defer server.Close()

	t.Run("visible live", func(t *testing.T) {
		c := New(WithGammaBase(server.URL))
		ev, err := c.GetEvent(context.Background(), "42")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ev == nil {
			t.Fatal("event = nil, want value")
		}
		if ev.ID != "42" || ev.Title != "Will it rain?" {
			t.Errorf("event = %+v", ev)
		}
		if ev.Active == nil || !*ev.Active {
			t.Errorf("Active = %v, want true", ev.Active)
		}
		if ev.Volume == nil || *ev.Volume != 1000 {
			t.Errorf("Volume = %v, want 1000", ev.Volume)
		}
	})

	t.Run("not yet created reads as missing", func(t *testing.T) {
		c := New(WithGammaBase(server.URL), WithAsOf(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)))
		ev, err := c.GetEvent(context.Background(), "42")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ev != nil {
			t.Fatalf("event = %+v, want nil before creation", ev)
		}
	})

	t.Run("visible but redacted", func(t *testing.T) {
		c := New(WithGammaBase(server.URL), WithAsOf(time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)))
		ev, err := c.GetEvent(context.Background(), "42")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ev == nil {
			t.Fatal("event = nil, want value")
		}
		if ev.Active != nil || ev.Closed != nil || ev.Volume != nil {
			t.Errorf("live-mutable fields leaked: active=%v closed=%v volume=%v", ev.Active, ev.Closed, ev.Volume)
		}
		if _, present := ev.Raw["active"]; present {
			t.Error("raw payload kept active")
		}
		if ev.Raw["markets"] != nil {
			t.Errorf("raw markets = %v, want nil", ev.Raw["markets"])
		}
		if ev.Raw["title"] != "Will it rain?" {
			t.Errorf("identity field lost: %v", ev.Raw["title"])
		}
	})

	t.Run("missing id reads as nil", func(t *testing.T) {
		c := New(WithGammaBase(server.URL))
		ev, err := c.GetEvent(context.Background(), "9999")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ev != nil {
			t.Fatalf("event = %+v, want nil", ev)
		}
	})
}

func TestEventEmbeddedMarketFiltering(t *testing.T) {
	eventJSON := `{
		"id": "7",
		"title": "Race",
		"createdAt": "2024-01-01T00:00:00Z",
		"markets": [
			{"id": "100", "question": "Old market", "createdAt": "2024-01-02T00:00:00Z",
			 "outcomes": "[\"Yes\", \"No\"]", "clobTokenIds": "[\"111\", \"222\"]"},
			{"id": "101", "question": "New market", "createdAt": "2024-05-01T00:00:00Z",
			 "outcomes": "[\"Yes\", \"No\"]", "clobTokenIds": "[\"333\", \"444\"]"}
		]
	}`

	history := func(samples string) string { return `{"history": ` + samples + `}` }

	var mux http.ServeMux
	mux.HandleFunc("/events/7", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(eventJSON))
	})
	mux.HandleFunc("/prices-history", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("market") {
		case "111":
			w.Write([]byte(history(`[{"t": 1709000000, "p": 0.35}, {"t": 1709100000, "p": 0.4}]`)))
		default:
			w.Write([]byte(history(`[]`)))
		}
	})
	server := httptest.NewServer(&mux)
	defer server.Close()

	t.Run("live keeps both markets", func(t *testing.T) {
		c := New(WithGammaBase(server.URL), WithClobBase(server.URL))
		ev, err := c.GetEvent(context.Background(), "7")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(ev.Markets) != 2 {
			t.Fatalf("len(Markets) = %d, want 2", len(ev.Markets))
		}
	})

	t.Run("as-of drops the later market and reconstructs prices", func(t *testing.T) {
		c := New(
			WithGammaBase(server.URL),
			WithClobBase(server.URL),
			WithAsOf(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)),
		)
		ev, err := c.GetEvent(context.Background(), "7")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(ev.Markets) != 1 {
			t.Fatalf("len(Markets) = %d, want 1", len(ev.Markets))
		}
		m := ev.Markets[0]
		if m.ID != "100" {
			t.Errorf("surviving market = %s, want 100", m.ID)
		}
		if len(m.OutcomePrices) != 2 {
			t.Fatalf("len(OutcomePrices) = %d, want 2", len(m.OutcomePrices))
		}
		// Token 111 has history ending at 0.4 before the reference; token 222
		// has none and must stay absent rather than borrowing a live value.
		if m.OutcomePrices[0] == nil || *m.OutcomePrices[0] != 0.4 {
			t.Errorf("OutcomePrices[0] = %v, want 0.4", m.OutcomePrices[0])
		}
		if m.OutcomePrices[1] != nil {
			t.Errorf("OutcomePrices[1] = %v, want nil", *m.OutcomePrices[1])
		}
	})
}

func TestFilterVisible(t *testing.T) {
	ref := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	rows := []map[string]any{
		{"id": "1", "createdAt": "2024-03-01T00:00:00Z"},
		{"id": "2", "createdAt": "2024-03-05T00:00:00Z"},
		{"id": "3", "createdAt": "2024-03-02T00:00:00Z"},
	}

	got := filterVisible(&ref, rows, eventCreatedKeys)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0]["id"] != "1" || got[1]["id"] != "3" {
		t.Errorf("kept = %v", got)
	}

	if all := filterVisible(nil, rows, eventCreatedKeys); len(all) != 3 {
		t.Errorf("nil reference filtered rows: %d", len(all))
	}
}
