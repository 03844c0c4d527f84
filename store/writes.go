package store

import (
	"context"
	"database/sql"
	"fmt"
)

// StartRun records a new pipeline run. Restarting with the same id keeps
// the original row.
func (s *Store) StartRun(ctx context.Context, id, kind string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pull_runs (id, kind)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING`,
		id, kind)
	if err != nil {
		return fmt.Errorf("start run %s: %w", id, err)
	}
	return nil
}

// FinishRun stamps a run's completion with how many events it touched.
func (s *Store) FinishRun(ctx context.Context, id string, events int, notes string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE pull_runs
		SET finished_at = now(), events = $2, notes = $3
		WHERE id = $1`,
		id, events, notes)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	return nil
}

// UpsertEvent inserts or refreshes one event row, keyed on the event id.
func (s *Store) UpsertEvent(ctx context.Context, rec EventRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, title, slug, volume_usd, created_day, raw, run_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (id) DO UPDATE
		SET title = EXCLUDED.title,
		    slug = EXCLUDED.slug,
		    volume_usd = EXCLUDED.volume_usd,
		    created_day = EXCLUDED.created_day,
		    raw = EXCLUDED.raw,
		    run_id = EXCLUDED.run_id,
		    updated_at = now()`,
		rec.ID, rec.Title, rec.Slug, rec.VolumeUSD, rec.CreatedDay, rec.Raw, rec.RunID)
	if err != nil {
		return fmt.Errorf("upsert event %s: %w", rec.ID, err)
	}
	return nil
}

// UpsertScore inserts or refreshes one (event, model) score.
func (s *Store) UpsertScore(ctx context.Context, eventID, model string, score int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO event_scores (event_id, model, score, scored_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (event_id, model) DO UPDATE
		SET score = EXCLUDED.score, scored_at = now()`,
		eventID, model, score)
	if err != nil {
		return fmt.Errorf("upsert score for %s: %w", eventID, err)
	}
	return nil
}

// InsertWatchedTrade appends one live trade record.
func (s *Store) InsertWatchedTrade(ctx context.Context, tr WatchedTrade) error {
	var tradedAt sql.NullTime
	if tr.TradedAt != nil {
		tradedAt = sql.NullTime{Time: *tr.TradedAt, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO watched_trades (asset_id, market, side, price, size, value_usd, traded_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		tr.AssetID, tr.Market, tr.Side, tr.Price, tr.Size, tr.ValueUSD, tradedAt, tr.Payload)
	if err != nil {
		return fmt.Errorf("insert watched trade: %w", err)
	}
	return nil
}
