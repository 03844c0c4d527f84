// Command watch records live CLOB trades for selected markets. Asset ids
// come either from -assets directly or from -event, which resolves every
// token id of the event's markets via the Gamma API. Qualifying trades go
// to <data-dir>/watched_trades.ndjson and, with DATABASE_URL set, the
// watched_trades table.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/marketmole/polymarket-data/client"
	"github.com/marketmole/polymarket-data/store"
	"github.com/marketmole/polymarket-data/utils/config"
	"github.com/marketmole/polymarket-data/utils/logging"
	"github.com/marketmole/polymarket-data/watch"
)

func main() {
	assetsFlag := flag.String("assets", "", "comma-separated CLOB token ids to watch")
	eventFlag := flag.String("event", "", "Gamma event id; watch every token of its markets")
	flag.Parse()

	logger := logging.NewComponent("watch")
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	assetIDs := splitAssets(*assetsFlag)
	if *eventFlag != "" {
		resolved, err := eventAssets(ctx, logger, *eventFlag)
		if err != nil {
			logger.Error("resolve event assets", "event", *eventFlag, "error", err)
			os.Exit(1)
		}
		assetIDs = append(assetIDs, resolved...)
	}
	if len(assetIDs) == 0 {
		logger.Error("nothing to watch: pass -assets or -event")
		os.Exit(1)
	}

	var st watch.Store
	if cfg.DatabaseURL != "" {
		pg, err := store.Open(cfg.DatabaseURL, logger)
		if err != nil {
			logger.Error("open store", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		if err := pg.Bootstrap(ctx); err != nil {
			logger.Error("bootstrap store", "error", err)
			os.Exit(1)
		}
		st = pg
	}

	watcher := watch.New(watch.Config{
		StreamURL:   cfg.StreamURL,
		AssetIDs:    assetIDs,
		MinValueUSD: cfg.MinTradeValueUSD,
		OutPath:     filepath.Join(cfg.DataDir, "watched_trades.ndjson"),
		FlushEvery:  cfg.FlushInterval,
	}, st, logger)

	if err := watcher.Start(); err != nil {
		logger.Error("start watcher", "error", err)
		os.Exit(1)
	}
	logger.Info("watching", "assets", len(assetIDs), "min_value", cfg.MinTradeValueUSD)

	<-ctx.Done()
	watcher.Stop()
}

func splitAssets(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func eventAssets(ctx context.Context, logger *slog.Logger, eventID string) ([]string, error) {
	c := client.New(client.WithLogger(logger))
	ev, err := c.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		logger.Warn("event not found", "event", eventID)
		return nil, nil
	}
	var out []string
	for _, m := range ev.Markets {
		out = append(out, m.ClobTokenIDs...)
	}
	return out, nil
}
