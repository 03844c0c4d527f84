// Command relateevents embeds every pulled event title, computes pairwise
// title similarity, and writes the distribution stats plus the most
// similar pairs to <data-dir>/event_neighbors.json. Embeddings are cached
// across runs in <data-dir>/embeddings_cache.json.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/marketmole/polymarket-data/embed"
	"github.com/marketmole/polymarket-data/pull"
	"github.com/marketmole/polymarket-data/utils/config"
	"github.com/marketmole/polymarket-data/utils/logging"
)

func main() {
	logger := logging.NewComponent("relateevents")
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

	cachePath := cfg.EmbedCachePath
	if cachePath == "" {
		cachePath = filepath.Join(cfg.DataDir, "embeddings_cache.json")
	}
	cache := embed.OpenCache(cachePath, logger)
	defer cache.Close()

	embedder := embed.New(cfg.OpenRouterKey,
		embed.WithBaseURL(cfg.OpenRouterBase),
		embed.WithModel(cfg.EmbedModel),
		embed.WithBatchSize(cfg.EmbedBatchSize),
		embed.WithWorkers(cfg.EmbedWorkers),
		embed.WithCache(cache),
		embed.WithLogger(logger),
	)

	titles := make([]string, len(summaries))
	for i, s := range summaries {
		titles[i] = s.Title
	}
	vectors := embedder.EmbedTexts(ctx, titles)

	items := make([]embed.Item, len(summaries))
	for i, s := range summaries {
		items[i] = embed.Item{ID: s.ID, Title: s.Title, Vec: vectors[i]}
	}
	relation := embed.Relate(items, embed.DefaultTopK)

	path := filepath.Join(cfg.DataDir, pull.NeighborsFile)
	if err := pull.WriteJSON(path, relation); err != nil {
		logger.Error("write neighbors", "error", err)
		os.Exit(1)
	}
	logger.Info("done",
		"items", relation.Stats.Items,
		"pairs", relation.Stats.Pairs,
		"mean", relation.Stats.Mean,
		"path", path)
}
