// Command scoreevents asks the LLM for an insider-trading likelihood
// score per pulled event and merges the results into
// <data-dir>/event_scores.json. Already-scored and low-volume events are
// skipped.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/marketmole/polymarket-data/pull"
	"github.com/marketmole/polymarket-data/scoring"
	"github.com/marketmole/polymarket-data/store"
	"github.com/marketmole/polymarket-data/utils/config"
	"github.com/marketmole/polymarket-data/utils/logging"
)

func main() {
	logger := logging.NewComponent("scoreevents")
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.OpenRouterKey == "" {
		logger.Error("OPENROUTER_API_KEY must be set")
		os.Exit(1)
	}
	logger.Info("starting", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summaries, err := pull.ReadEvents(cfg.DataDir)
	if err != nil {
		logger.Error("read events.json (run pullevents first?)", "error", err)
		os.Exit(1)
	}
	existing, err := pull.ReadScores(cfg.DataDir)
	if err != nil {
		logger.Error("read scores", "error", err)
		os.Exit(1)
	}

	events := make([]scoring.Event, 0, len(summaries))
	for _, s := range summaries {
		ev := scoring.Event{ID: s.ID, Title: s.Title}
		if s.Volume != nil {
			ev.Volume = *s.Volume
		}
		events = append(events, ev)
	}

	scorer := scoring.New(cfg.OpenRouterKey,
		scoring.WithBaseURL(cfg.OpenRouterBase),
		scoring.WithModel(cfg.ScoreModel),
		scoring.WithWorkers(cfg.ScoreWorkers),
		scoring.WithLogger(logger),
	)

	merged := scorer.ScoreEvents(ctx, events, existing, cfg.VolumeThresholdUSD)
	if err := pull.WriteScores(cfg.DataDir, merged); err != nil {
		logger.Error("write scores", "error", err)
		os.Exit(1)
	}

	if cfg.DatabaseURL != "" {
		if err := persist(ctx, cfg, merged, existing); err != nil {
			logger.Error("store persist failed", "error", err)
			os.Exit(1)
		}
	}
	logger.Info("done", "scored", len(merged)-len(existing), "total", len(merged))
}

// persist upserts only the scores this run produced.
func persist(ctx context.Context, cfg *config.Config, merged, existing map[string]int) error {
	st, err := store.Open(cfg.DatabaseURL, nil)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Bootstrap(ctx); err != nil {
		return err
	}
	for id, score := range merged {
		if _, ok := existing[id]; ok {
			continue
		}
		if err := st.UpsertScore(ctx, id, cfg.ScoreModel, score); err != nil {
			return err
		}
	}
	return nil
}
