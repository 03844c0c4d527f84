// Package watch records live CLOB trades for selected markets to an
// NDJSON artifact and, when configured, the Postgres store.
package watch

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marketmole/polymarket-data/client"
	"github.com/marketmole/polymarket-data/store"
)

// Store is the slice of the persistence layer the watcher uses.
type Store interface {
	InsertWatchedTrade(ctx context.Context, tr store.WatchedTrade) error
}

// Config selects what the watcher records.
type Config struct {
	// StreamURL defaults to the public CLOB market channel.
	StreamURL string

	// AssetIDs are the CLOB token ids to subscribe to.
	AssetIDs []string

	// MinValueUSD drops trades below this price*size value.
	MinValueUSD float64

	// OutPath is the NDJSON artifact; empty disables file output.
	OutPath string

	// FlushEvery is the file flush cadence. Zero means 30s.
	FlushEvery time.Duration
}

// Record is one NDJSON line.
type Record struct {
	AssetID    string    `json:"asset_id"`
	Market     string    `json:"market"`
	Side       string    `json:"side"`
	Price      float64   `json:"price"`
	Size       float64   `json:"size"`
	ValueUSD   float64   `json:"value_usd"`
	TradedAt   time.Time `json:"traded_at"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Stats are the watcher's counters since Start.
type Stats struct {
	Received    int64 `json:"received"`
	Recorded    int64 `json:"recorded"`
	Dropped     int64 `json:"dropped"`
	StoreErrors int64 `json:"store_errors"`
}

// Watcher consumes the market trade stream and records qualifying trades.
// It reconnects with backoff until stopped.
type Watcher struct {
	cfg    Config
	store  Store
	logger *slog.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	writerWg sync.WaitGroup
	out      chan Record

	received    int64
	recorded    int64
	dropped     int64
	storeErrors int64
}

// New returns a Watcher; st may be nil for file-only recording.
func New(cfg Config, st Store, logger *slog.Logger) *Watcher {
	if cfg.StreamURL == "" {
		cfg.StreamURL = client.DefaultStreamURL
	}
	if cfg.FlushEvery <= 0 {
		cfg.FlushEvery = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		cfg:    cfg,
		store:  st,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		out:    make(chan Record, 1024),
	}
}

// Start launches the stream consumer and the record writer.
func (w *Watcher) Start() error {
	if len(w.cfg.AssetIDs) == 0 {
		return errors.New("no asset ids to watch")
	}

	var file *os.File
	if w.cfg.OutPath != "" {
		if err := os.MkdirAll(filepath.Dir(w.cfg.OutPath), 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		f, err := os.OpenFile(w.cfg.OutPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open output: %w", err)
		}
		file = f
	}

	w.logger.Info("starting watcher",
		"assets", len(w.cfg.AssetIDs),
		"min_value", w.cfg.MinValueUSD,
		"out", w.cfg.OutPath)

	w.writerWg.Add(1)
	go w.writeLoop(file)

	w.wg.Add(1)
	go w.run()
	return nil
}

// Stop shuts the stream down, drains pending records to disk and the
// store, and logs the final counters.
func (w *Watcher) Stop() {
	w.cancel()
	w.wg.Wait()
	close(w.out)
	w.writerWg.Wait()

	stats := w.Stats()
	w.logger.Info("watcher stopped",
		"received", stats.Received,
		"recorded", stats.Recorded,
		"dropped", stats.Dropped,
		"store_errors", stats.StoreErrors)
}

// Stats reads the counters.
func (w *Watcher) Stats() Stats {
	return Stats{
		Received:    atomic.LoadInt64(&w.received),
		Recorded:    atomic.LoadInt64(&w.recorded),
		Dropped:     atomic.LoadInt64(&w.dropped),
		StoreErrors: atomic.LoadInt64(&w.storeErrors),
	}
}

func (w *Watcher) run() {
	defer w.wg.Done()

	backoff := time.Second
	for {
		if w.ctx.Err() != nil {
			return
		}
		err := w.streamOnce()
		if err == nil || w.ctx.Err() != nil {
			return
		}
		w.logger.Warn("stream ended, reconnecting", "error", err, "backoff", backoff)
		select {
		case <-w.ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 5*time.Second {
			backoff += time.Second
		}
	}
}

func (w *Watcher) streamOnce() error {
	stream, err := client.DialStream(w.ctx, w.cfg.StreamURL, w.logger)
	if err != nil {
		return err
	}
	defer stream.Close()

	ticks, err := stream.Subscribe(w.cfg.AssetIDs...)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- stream.Listen(w.ctx) }()

	for {
		select {
		case err := <-done:
			// Drain whatever the listener buffered before it ended.
			for {
				select {
				case tick := <-ticks:
					w.handle(tick)
				default:
					return err
				}
			}
		case tick := <-ticks:
			w.handle(tick)
		}
	}
}

func (w *Watcher) handle(tick client.StreamTrade) {
	atomic.AddInt64(&w.received, 1)

	value := tick.Price * tick.Size
	if value < w.cfg.MinValueUSD {
		return
	}

	rec := Record{
		AssetID:    tick.AssetID,
		Market:     tick.Market,
		Side:       tick.Side,
		Price:      tick.Price,
		Size:       tick.Size,
		ValueUSD:   value,
		TradedAt:   tick.Timestamp,
		RecordedAt: time.Now().UTC(),
	}

	select {
	case w.out <- rec:
	default:
		atomic.AddInt64(&w.dropped, 1)
		w.logger.Warn("record queue full, dropping trade", "asset", tick.AssetID)
	}
}

// writeLoop drains records to the NDJSON file and the store. It owns the
// file handle and closes it on exit.
func (w *Watcher) writeLoop(file *os.File) {
	defer w.writerWg.Done()

	var buf *bufio.Writer
	if file != nil {
		buf = bufio.NewWriter(file)
		defer func() {
			buf.Flush()
			file.Close()
		}()
	}

	ticker := time.NewTicker(w.cfg.FlushEvery)
	defer ticker.Stop()

	for {
		select {
		case rec, ok := <-w.out:
			if !ok {
				return
			}
			w.persist(rec, buf)
		case <-ticker.C:
			if buf != nil {
				if err := buf.Flush(); err != nil {
					w.logger.Error("flush failed", "error", err)
				}
			}
		}
	}
}

func (w *Watcher) persist(rec Record, buf *bufio.Writer) {
	if buf != nil {
		line, err := json.Marshal(rec)
		if err == nil {
			buf.Write(line)
			buf.WriteByte('\n')
		}
	}

	if w.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		tradedAt := rec.TradedAt
		err := w.store.InsertWatchedTrade(ctx, store.WatchedTrade{
			AssetID:  rec.AssetID,
			Market:   rec.Market,
			Side:     rec.Side,
			Price:    rec.Price,
			Size:     rec.Size,
			ValueUSD: rec.ValueUSD,
			TradedAt: &tradedAt,
		})
		cancel()
		if err != nil {
			atomic.AddInt64(&w.storeErrors, 1)
			w.logger.Error("store insert failed", "asset", rec.AssetID, "error", err)
		}
	}

	atomic.AddInt64(&w.recorded, 1)
}
