// Command archiver uploads the data-directory artifacts to S3 as daily
// gzipped NDJSON partitions. By default it runs one sweep and exits;
// -daemon keeps it sweeping on ARCHIVE_INTERVAL.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marketmole/polymarket-data/archiver"
	"github.com/marketmole/polymarket-data/utils/config"
	"github.com/marketmole/polymarket-data/utils/logging"
	"github.com/marketmole/polymarket-data/utils/scheduler"
)

func main() {
	daemon := flag.Bool("daemon", false, "keep archiving on an interval instead of one sweep")
	dayFlag := flag.String("day", "", "partition day to archive, YYYY-MM-DD (default: today UTC)")
	flag.Parse()

	logger := logging.NewComponent("archiver")
	cfg := config.Load()
	if cfg.ArchiveBucket == "" {
		logger.Error("ARCHIVE_BUCKET must be set")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink, err := archiver.NewS3Sink(ctx, cfg.ArchiveBucket, cfg.AWSRegion)
	if err != nil {
		logger.Error("s3 sink", "error", err)
		os.Exit(1)
	}
	runner := archiver.New(sink, cfg.ArchivePrefix, cfg.DataDir, logger)

	day := time.Now().UTC()
	if *dayFlag != "" {
		day, err = time.Parse("2006-01-02", *dayFlag)
		if err != nil {
			logger.Error("bad -day", "value", *dayFlag, "error", err)
			os.Exit(1)
		}
	}

	if !*daemon {
		if err := runner.RunAll(ctx, day); err != nil {
			logger.Error("sweep failed", "error", err)
			os.Exit(1)
		}
		return
	}

	logger.Info("daemon mode", "interval", cfg.ArchiveInterval, "bucket", cfg.ArchiveBucket)
	sched := scheduler.New(logger)
	sched.Every(cfg.ArchiveInterval, "archive-sweep", func(ctx context.Context) {
		if err := runner.RunAll(ctx, time.Now().UTC()); err != nil {
			logger.Error("sweep failed", "error", err)
		}
	})
	sched.Run(ctx)
}
