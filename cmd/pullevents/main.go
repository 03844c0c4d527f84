// Command pullevents fetches every Gamma event and writes the filtered,
// sorted summaries to <data-dir>/events.json. With DATABASE_URL set the
// summaries are also upserted into the Postgres store.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/marketmole/polymarket-data/client"
	"github.com/marketmole/polymarket-data/pull"
	"github.com/marketmole/polymarket-data/store"
	"github.com/marketmole/polymarket-data/utils/config"
	"github.com/marketmole/polymarket-data/utils/logging"
)

func main() {
	logger := logging.NewComponent("pullevents")
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger.Info("starting", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []client.Option{client.WithLogger(logger)}
	if asOf, ok, _ := cfg.AsOfTime(); ok {
		logger.Info("historical mode", "as_of", asOf)
		opts = append(opts, client.WithAsOf(asOf))
	}
	c := client.New(opts...)

	puller := pull.New(c, cfg.DataDir,
		pull.WithLogger(logger),
		pull.WithExcludeKeywords(cfg.ExcludeSlugKeywords),
	)

	summaries, err := puller.PullEvents(ctx)
	if err != nil {
		logger.Error("pull failed", "error", err)
		os.Exit(1)
	}

	if cfg.DatabaseURL != "" {
		if err := persist(ctx, cfg.DatabaseURL, summaries, puller.RunID(), logger); err != nil {
			logger.Error("store persist failed", "error", err)
			os.Exit(1)
		}
	}
	logger.Info("done", "events", len(summaries), "run_id", puller.RunID())
}

func persist(ctx context.Context, databaseURL string, summaries []pull.EventSummary, runID string, logger *slog.Logger) error {
	st, err := store.Open(databaseURL, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Bootstrap(ctx); err != nil {
		return err
	}
	if err := st.StartRun(ctx, runID, "pullevents"); err != nil {
		return err
	}
	for _, s := range summaries {
		if err := st.UpsertEvent(ctx, store.EventRecordFromSummary(s, nil, runID)); err != nil {
			return err
		}
	}
	if err := st.FinishRun(ctx, runID, len(summaries), ""); err != nil {
		return err
	}
	logger.Info("persisted to store", "events", len(summaries))
	return nil
}
