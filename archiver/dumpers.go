package archiver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/marketmole/polymarket-data/embed"
	"github.com/marketmole/polymarket-data/pull"
)

// ErrNoData marks a dataset whose artifact has not been produced yet.
// The runner skips such datasets instead of failing the sweep.
var ErrNoData = errors.New("dataset has no data")

// Dumper writes one dataset as NDJSON rows.
type Dumper interface {
	Dump(ctx context.Context, out io.Writer) (rows int64, err error)
}

// Dumpers maps every archivable dataset under dataDir.
func Dumpers(dataDir string) map[string]Dumper {
	return map[string]Dumper{
		"events":    &EventsDumper{DataDir: dataDir},
		"scores":    &ScoresDumper{DataDir: dataDir},
		"neighbors": &NeighborsDumper{DataDir: dataDir},
		"trades":    &TradesDumper{DataDir: dataDir},
	}
}

type EventsDumper struct{ DataDir string }

func (d *EventsDumper) Dump(ctx context.Context, out io.Writer) (int64, error) {
	events, err := pull.ReadEvents(d.DataDir)
	if os.IsNotExist(err) {
		return 0, ErrNoData
	}
	if err != nil {
		return 0, err
	}
	enc := json.NewEncoder(out)
	var n int64
	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if err := enc.Encode(ev); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

type ScoresDumper struct{ DataDir string }

func (d *ScoresDumper) Dump(ctx context.Context, out io.Writer) (int64, error) {
	scores, err := pull.ReadScores(d.DataDir)
	if err != nil {
		return 0, err
	}
	if len(scores) == 0 {
		return 0, ErrNoData
	}
	enc := json.NewEncoder(out)
	var n int64
	for id, score := range scores {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		rec := struct {
			EventID string `json:"event_id"`
			Score   int    `json:"score"`
		}{EventID: id, Score: score}
		if err := enc.Encode(rec); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

type NeighborsDumper struct{ DataDir string }

func (d *NeighborsDumper) Dump(ctx context.Context, out io.Writer) (int64, error) {
	var rel embed.Relation
	err := pull.ReadJSON(filepath.Join(d.DataDir, pull.NeighborsFile), &rel)
	if os.IsNotExist(err) {
		return 0, ErrNoData
	}
	if err != nil {
		return 0, err
	}
	enc := json.NewEncoder(out)
	var n int64
	for _, nb := range rel.Neighbors {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if err := enc.Encode(nb); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// TradesDumper flattens the per-event-per-market trade files into rows
// tagged with their event and market ids.
type TradesDumper struct{ DataDir string }

type tradeRecord struct {
	EventID  string `json:"event_id"`
	MarketID string `json:"market_id"`
	pull.TradeRow
}

func (d *TradesDumper) Dump(ctx context.Context, out io.Writer) (int64, error) {
	root := filepath.Join(d.DataDir, pull.TradesDir)
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return 0, ErrNoData
	}
	if err != nil {
		return 0, err
	}

	enc := json.NewEncoder(out)
	var n int64
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		eventID := entry.Name()
		files, err := os.ReadDir(filepath.Join(root, eventID))
		if err != nil {
			return n, err
		}
		for _, f := range files {
			if err := ctx.Err(); err != nil {
				return n, err
			}
			name := f.Name()
			if f.IsDir() || name == pull.MetadataFile || !strings.HasSuffix(name, ".json") {
				continue
			}
			var rows []pull.TradeRow
			if err := pull.ReadJSON(filepath.Join(root, eventID, name), &rows); err != nil {
				return n, err
			}
			marketID := strings.TrimSuffix(name, ".json")
			for _, row := range rows {
				rec := tradeRecord{EventID: eventID, MarketID: marketID, TradeRow: row}
				if err := enc.Encode(rec); err != nil {
					return n, err
				}
				n++
			}
		}
	}
	if n == 0 {
		return 0, ErrNoData
	}
	return n, nil
}
