package pull

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/marketmole/polymarket-data/client"
)

// marketJob ties one tradeable market to its parent event.
type marketJob struct {
	eventID     string
	marketID    string
	conditionID string
	volume      float64
}

// PullTrades reads events.json, refetches each event with its markets,
// and writes the qualifying trades of every market with enough volume to
// data/trades/<event-id>/<market-id>.json, highest volume first. Each
// event directory gets a metadata.json on first contact.
//
// A market whose sweep fails is logged and skipped; only artifact and
// events.json errors abort the run.
func (p *Puller) PullTrades(ctx context.Context) error {
	summaries, err := ReadEvents(p.dataDir)
	if err != nil {
		return fmt.Errorf("read events artifact: %w", err)
	}

	eventsByID := make(map[string]*client.Event)
	var jobs []marketJob
	for _, summary := range summaries {
		if summary.ID == "" {
			continue
		}
		ev, err := p.client.GetEvent(ctx, summary.ID)
		if err != nil {
			p.logger.Warn("event fetch failed", "event", summary.ID, "error", err)
			continue
		}
		if ev == nil || len(ev.Markets) == 0 {
			continue
		}
		eventsByID[ev.ID] = ev
		for i := range ev.Markets {
			m := &ev.Markets[i]
			cid := m.ConditionID()
			if cid == "" {
				continue
			}
			var vol float64
			if v := m.VolumeUSD(); v != nil {
				vol = *v
			}
			if vol < p.volumeThreshold {
				continue
			}
			jobs = append(jobs, marketJob{
				eventID:     ev.ID,
				marketID:    m.ID,
				conditionID: cid,
				volume:      vol,
			})
		}
	}

	sort.SliceStable(jobs, func(i, j int) bool { return jobs[i].volume > jobs[j].volume })
	p.logger.Info("pulling trades", "run_id", p.runID, "markets", len(jobs))

	for idx, job := range jobs {
		dir := filepath.Join(p.dataDir, TradesDir, job.eventID)
		metaPath := filepath.Join(dir, MetadataFile)
		if _, err := os.Stat(metaPath); os.IsNotExist(err) {
			if err := WriteJSON(metaPath, p.metadata(eventsByID[job.eventID])); err != nil {
				return err
			}
		}

		trades, err := p.client.SweepPublicTrades(ctx, job.conditionID, p.minTradeValue)
		if err != nil {
			p.logger.Warn("trade sweep failed", "market", job.marketID, "error", err)
			continue
		}
		rows := p.tradeRows(trades)
		if err := WriteJSON(filepath.Join(dir, job.marketID+".json"), rows); err != nil {
			return err
		}
		p.logger.Info("saved trades",
			"progress", fmt.Sprintf("%d/%d", idx+1, len(jobs)),
			"market", job.marketID, "trades", len(rows))
	}
	return nil
}

// tradeRows keeps the trades worth recording: priced, at or above the
// minimum value, and attributable to a wallet.
func (p *Puller) tradeRows(trades []client.PublicTrade) []TradeRow {
	rows := make([]TradeRow, 0, len(trades))
	for _, tr := range trades {
		if tr.Price == nil || tr.Size == nil {
			continue
		}
		value := *tr.Price * *tr.Size
		if value < p.minTradeValue {
			continue
		}
		if tr.ProxyWallet == "" {
			continue
		}
		side := tr.Outcome
		if side == "" {
			side = tr.Side
		}
		row := TradeRow{Account: tr.ProxyWallet, Side: side, Value: value}
		if tr.Timestamp != nil {
			ts := tr.Timestamp.UTC().Format(time.RFC3339)
			row.Timestamp = &ts
		}
		rows = append(rows, row)
	}
	return rows
}

func (p *Puller) metadata(ev *client.Event) Metadata {
	meta := Metadata{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Resolution:  resolutionFlag(ev),
		RunID:       p.runID,
	}
	if s := rawTimeString(ev.Raw, "createdAt", "creationDate"); s != "" {
		meta.CreatedAt = &s
	} else if ev.CreatedAt != nil {
		s := ev.CreatedAt.UTC().Format(time.RFC3339)
		meta.CreatedAt = &s
	}
	if s := rawTimeString(ev.Raw, "resolvedAt", "resolutionDate", "endDate"); s != "" {
		meta.ResolvedAt = &s
	} else if ev.EndDate != nil {
		s := ev.EndDate.UTC().Format(time.RFC3339)
		meta.ResolvedAt = &s
	}
	return meta
}

// resolutionFlag reads the event's resolved flag, falling back to closed.
func resolutionFlag(ev *client.Event) string {
	v, ok := ev.Raw["resolved"]
	if !ok || v == nil {
		v = ev.Raw["closed"]
	}
	if b, _ := v.(bool); b {
		return "yes"
	}
	return "no"
}

// rawTimeString returns the first non-empty string under the given keys,
// keeping the upstream representation as-is.
func rawTimeString(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := raw[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
