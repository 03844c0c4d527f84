// Command pulltrades reads <data-dir>/events.json and writes the large
// public trades of every qualifying market under <data-dir>/trades/.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/marketmole/polymarket-data/client"
	"github.com/marketmole/polymarket-data/pull"
	"github.com/marketmole/polymarket-data/utils/config"
	"github.com/marketmole/polymarket-data/utils/logging"
)

func main() {
	logger := logging.NewComponent("pulltrades")
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
		pull.WithVolumeThreshold(cfg.VolumeThresholdUSD),
		pull.WithMinTradeValue(cfg.MinTradeValueUSD),
	)

	if err := puller.PullTrades(ctx); err != nil {
		logger.Error("pull failed", "error", err)
		os.Exit(1)
	}
	logger.Info("done", "run_id", puller.RunID())
}
