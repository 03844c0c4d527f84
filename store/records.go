package store

import (
	"encoding/json"
	"time"

	"github.com/sqlc-dev/pqtype"

	"github.com/marketmole/polymarket-data/pull"
)

// Run is one pipeline invocation.
type Run struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
	Events     int        `json:"events"`
	Notes      string     `json:"notes"`
}

// EventRecord is one row of the events table.
type EventRecord struct {
	ID         string                `json:"id"`
	Title      string                `json:"title"`
	Slug       string                `json:"slug"`
	VolumeUSD  *float64              `json:"volume_usd"`
	CreatedDay *string               `json:"created_day"`
	Raw        pqtype.NullRawMessage `json:"-"`
	RunID      string                `json:"run_id"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

// ScoredEvent is an event joined with one model's insider score.
type ScoredEvent struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	VolumeUSD *float64  `json:"volume_usd"`
	Model     string    `json:"model"`
	Score     int       `json:"score"`
	ScoredAt  time.Time `json:"scored_at"`
}

// WatchedTrade is one live trade the watcher recorded.
type WatchedTrade struct {
	AssetID  string                `json:"asset_id"`
	Market   string                `json:"market"`
	Side     string                `json:"side"`
	Price    float64               `json:"price"`
	Size     float64               `json:"size"`
	ValueUSD float64               `json:"value_usd"`
	TradedAt *time.Time            `json:"traded_at"`
	Payload  pqtype.NullRawMessage `json:"-"`
}

// EventRecordFromSummary maps an events.json row to a table row. raw, when
// not nil, is stored as the event's JSON payload.
func EventRecordFromSummary(s pull.EventSummary, raw map[string]any, runID string) EventRecord {
	rec := EventRecord{
		ID:         s.ID,
		Title:      s.Title,
		Slug:       s.Slug,
		VolumeUSD:  s.Volume,
		CreatedDay: s.CreatedAt,
		RunID:      runID,
	}
	if raw != nil {
		if encoded, err := json.Marshal(raw); err == nil {
			rec.Raw = pqtype.NullRawMessage{RawMessage: encoded, Valid: true}
		}
	}
	return rec
}
