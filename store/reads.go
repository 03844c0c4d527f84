package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ScoredEventsQuery filters the events/scores join.
type ScoredEventsQuery struct {
	MinVolume float64
	MinScore  int
	Limit     int
	Offset    int
}

// ListScoredEvents returns scored events ordered by score, then volume.
// A positive MinVolume drops events with unknown volume.
func (s *Store) ListScoredEvents(ctx context.Context, q ScoredEventsQuery) ([]ScoredEvent, error) {
	if q.Limit <= 0 {
		q.Limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.title, e.slug, e.volume_usd, sc.model, sc.score, sc.scored_at
		FROM events e
		JOIN event_scores sc ON sc.event_id = e.id
		WHERE ($1::double precision <= 0 OR e.volume_usd >= $1)
		  AND sc.score >= $2
		ORDER BY sc.score DESC, e.volume_usd DESC NULLS LAST
		LIMIT $3 OFFSET $4`,
		q.MinVolume, q.MinScore, q.Limit, q.Offset)
	if err != nil {
		return nil, fmt.Errorf("list scored events: %w", err)
	}
	defer rows.Close()
	return scanScoredEvents(rows)
}

// TopScores returns the highest-scoring events.
func (s *Store) TopScores(ctx context.Context, limit int) ([]ScoredEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.title, e.slug, e.volume_usd, sc.model, sc.score, sc.scored_at
		FROM events e
		JOIN event_scores sc ON sc.event_id = e.id
		ORDER BY sc.score DESC, sc.scored_at DESC
		LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("top scores: %w", err)
	}
	defer rows.Close()
	return scanScoredEvents(rows)
}

// GetEvent returns one event row, or nil when absent.
func (s *Store) GetEvent(ctx context.Context, id string) (*EventRecord, error) {
	var (
		rec    EventRecord
		volume sql.NullFloat64
		day    sql.NullString
		runID  sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, slug, volume_usd, created_day, raw, run_id, updated_at
		FROM events WHERE id = $1`,
		id).Scan(&rec.ID, &rec.Title, &rec.Slug, &volume, &day, &rec.Raw, &runID, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event %s: %w", id, err)
	}
	if volume.Valid {
		rec.VolumeUSD = &volume.Float64
	}
	if day.Valid {
		rec.CreatedDay = &day.String
	}
	rec.RunID = runID.String
	return &rec, nil
}

// ScoreRow is one model's score for an event.
type ScoreRow struct {
	Model    string    `json:"model"`
	Score    int       `json:"score"`
	ScoredAt time.Time `json:"scored_at"`
}

// EventScores returns every model's score for one event.
func (s *Store) EventScores(ctx context.Context, eventID string) ([]ScoreRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT model, score, scored_at
		FROM event_scores
		WHERE event_id = $1
		ORDER BY model`,
		eventID)
	if err != nil {
		return nil, fmt.Errorf("event scores %s: %w", eventID, err)
	}
	defer rows.Close()

	var out []ScoreRow
	for rows.Next() {
		var row ScoreRow
		if err := rows.Scan(&row.Model, &row.Score, &row.ScoredAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// ListRuns returns recent pipeline runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, started_at, finished_at, events, notes
		FROM pull_runs
		ORDER BY started_at DESC
		LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			run      Run
			finished sql.NullTime
		)
		if err := rows.Scan(&run.ID, &run.Kind, &run.StartedAt, &finished, &run.Events, &run.Notes); err != nil {
			return nil, err
		}
		if finished.Valid {
			t := finished.Time
			run.FinishedAt = &t
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func scanScoredEvents(rows *sql.Rows) ([]ScoredEvent, error) {
	var out []ScoredEvent
	for rows.Next() {
		var (
			ev     ScoredEvent
			volume sql.NullFloat64
		)
		if err := rows.Scan(&ev.ID, &ev.Title, &ev.Slug, &volume, &ev.Model, &ev.Score, &ev.ScoredAt); err != nil {
			return nil, err
		}
		if volume.Valid {
			ev.VolumeUSD = &volume.Float64
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
