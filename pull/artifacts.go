package pull

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Artifact names inside the data directory.
const (
	EventsFile    = "events.json"
	ScoresFile    = "event_scores.json"
	NeighborsFile = "event_neighbors.json"
	TradesDir     = "trades"
	MetadataFile  = "metadata.json"
)

// EventSummary is one row of events.json.
type EventSummary struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Slug      string   `json:"slug"`
	Volume    *float64 `json:"volume"`
	CreatedAt *string  `json:"created_at"`
}

// TradeRow is one recorded trade in a per-market trades file.
type TradeRow struct {
	Account   string  `json:"account"`
	Side      string  `json:"side"`
	Value     float64 `json:"value"`
	Timestamp *string `json:"timestamp"`
}

// Metadata describes one event's trades directory.
type Metadata struct {
	GeneratedAt string  `json:"generated_at"`
	CreatedAt   *string `json:"created_at"`
	ResolvedAt  *string `json:"resolved_at"`
	Resolution  string  `json:"resolution"`
	RunID       string  `json:"run_id"`
}

// WriteJSON writes v to path through a tmp file and rename, creating
// parent directories as needed. Readers never see a half-written file.
func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// ReadJSON reads path into out.
func ReadJSON(path string, out any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// ReadEvents loads events.json from the data directory.
func ReadEvents(dataDir string) ([]EventSummary, error) {
	var events []EventSummary
	if err := ReadJSON(filepath.Join(dataDir, EventsFile), &events); err != nil {
		return nil, err
	}
	return events, nil
}

// ReadScores loads event_scores.json; a missing file is an empty map.
func ReadScores(dataDir string) (map[string]int, error) {
	scores := make(map[string]int)
	err := ReadJSON(filepath.Join(dataDir, ScoresFile), &scores)
	if os.IsNotExist(err) {
		return scores, nil
	}
	if err != nil {
		return nil, err
	}
	return scores, nil
}

// WriteScores writes event_scores.json.
func WriteScores(dataDir string, scores map[string]int) error {
	return WriteJSON(filepath.Join(dataDir, ScoresFile), scores)
}
