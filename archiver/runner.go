// Package archiver copies the data-directory artifacts to S3 as daily
// gzipped NDJSON partitions. Keys follow
// <prefix>/<dataset>/dt=YYYY-MM-DD/part-00000.json.gz with a _SUCCESS
// marker per partition, and an already-archived partition is skipped.
package archiver

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"
)

type Runner struct {
	Sink    Sink
	Prefix  string
	Dumpers map[string]Dumper
	Logger  *slog.Logger
}

// New wires a runner over every dataset under dataDir.
func New(sink Sink, prefix, dataDir string, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		Sink:    sink,
		Prefix:  prefix,
		Dumpers: Dumpers(dataDir),
		Logger:  logger,
	}
}

// RunOnce archives one dataset for the given UTC day. It reports whether
// an object was written; skips (already archived, no data) return false
// with a nil error.
func (r *Runner) RunOnce(ctx context.Context, dataset string, day time.Time) (bool, error) {
	d, ok := r.Dumpers[dataset]
	if !ok {
		return false, fmt.Errorf("unsupported dataset %q", dataset)
	}

	dir := fmt.Sprintf("%s/%s/dt=%s", strings.TrimSuffix(r.Prefix, "/"), dataset, day.UTC().Format("2006-01-02"))
	key := path.Join(dir, "part-00000.json.gz")
	marker := path.Join(dir, "_SUCCESS")

	exists, err := r.Sink.Exists(ctx, key)
	if err != nil {
		r.Logger.Warn("head failed, continuing", "dataset", dataset, "key", key, "error", err)
	} else if exists {
		r.Logger.Info("already archived", "dataset", dataset, "key", key)
		return false, nil
	}

	rows, err := gzipStream(ctx, d, func(body io.Reader) error {
		return r.Sink.Put(ctx, key, body)
	})
	if errors.Is(err, ErrNoData) {
		r.Logger.Info("no data to archive", "dataset", dataset)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("archive %s: %w", dataset, err)
	}

	if err := r.Sink.PutEmpty(ctx, marker); err != nil {
		r.Logger.Warn("success marker failed", "dataset", dataset, "key", marker, "error", err)
	}
	r.Logger.Info("archived", "dataset", dataset, "key", key, "rows", rows)
	return true, nil
}

// RunAll archives every dataset for the given day, continuing past
// per-dataset failures and returning the first error observed.
func (r *Runner) RunAll(ctx context.Context, day time.Time) error {
	var firstErr error
	for _, dataset := range []string{"events", "scores", "neighbors", "trades"} {
		if _, err := r.RunOnce(ctx, dataset, day); err != nil {
			r.Logger.Error("dataset archive failed", "dataset", dataset, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// gzipStream pipes the dumper's NDJSON through gzip into put without
// buffering the whole dataset in memory.
func gzipStream(ctx context.Context, d Dumper, put func(r io.Reader) error) (int64, error) {
	pr, pw := io.Pipe()

	type res struct {
		rows int64
		err  error
	}
	ch := make(chan res, 1)

	go func() {
		gw := gzip.NewWriter(pw)
		rows, derr := d.Dump(ctx, gw)
		if cerr := gw.Close(); derr == nil {
			derr = cerr
		}
		_ = pw.CloseWithError(derr)
		ch <- res{rows, derr}
	}()

	if err := put(pr); err != nil {
		_ = pr.CloseWithError(err)
		r := <-ch
		if r.err != nil {
			return 0, r.err
		}
		return 0, err
	}
	r := <-ch
	return r.rows, r.err
}
