package archiver

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/marketmole/polymarket-data/pull"
)

type memSink struct {
	objects map[string][]byte
	puts    int
}

func newMemSink() *memSink {
	return &memSink{objects: make(map[string][]byte)}
}

func (s *memSink) Exists(_ context.Context, key string) (bool, error) {
	_, ok := s.objects[key]
	return ok, nil
}

func (s *memSink) Put(_ context.Context, key string, body io.Reader) error {
	raw, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.objects[key] = raw
	s.puts++
	return nil
}

func (s *memSink) PutEmpty(_ context.Context, key string) error {
	s.objects[key] = nil
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	vol := 50000.0
	day := "2024-03-01"
	events := []pull.EventSummary{
		{ID: "11", Title: "Will X resign?", Slug: "will-x-resign", Volume: &vol, CreatedAt: &day},
		{ID: "12", Title: "Will Y win?", Slug: "will-y-win"},
	}
	if err := pull.WriteJSON(filepath.Join(dir, pull.EventsFile), events); err != nil {
		t.Fatal(err)
	}
	if err := pull.WriteScores(dir, map[string]int{"11": 7}); err != nil {
		t.Fatal(err)
	}

	ts := "2024-03-02T10:00:00Z"
	rows := []pull.TradeRow{
		{Account: "0xabc", Side: "Yes", Value: 1200, Timestamp: &ts},
		{Account: "0xdef", Side: "No", Value: 800, Timestamp: &ts},
	}
	if err := pull.WriteJSON(filepath.Join(dir, pull.TradesDir, "11", "0xm1.json"), rows); err != nil {
		t.Fatal(err)
	}
	meta := pull.Metadata{GeneratedAt: ts, Resolution: "no", RunID: "run-1"}
	if err := pull.WriteJSON(filepath.Join(dir, pull.TradesDir, "11", pull.MetadataFile), meta); err != nil {
		t.Fatal(err)
	}
	return dir
}

func gunzipLines(t *testing.T, raw []byte) []string {
	t.Helper()
	gr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	defer gr.Close()
	var lines []string
	sc := bufio.NewScanner(gr)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return lines
}

func TestRunOnceWritesPartitionAndMarker(t *testing.T) {
	dir := seedDataDir(t)
	sink := newMemSink()
	r := New(sink, "polymarket", dir, discardLogger())
	day := time.Date(2024, 3, 5, 13, 30, 0, 0, time.UTC)

	wrote, err := r.RunOnce(context.Background(), "events", day)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if !wrote {
		t.Fatal("expected a write")
	}

	key := "polymarket/events/dt=2024-03-05/part-00000.json.gz"
	raw, ok := sink.objects[key]
	if !ok {
		t.Fatalf("missing object %s; have %v", key, keys(sink))
	}
	if _, ok := sink.objects["polymarket/events/dt=2024-03-05/_SUCCESS"]; !ok {
		t.Fatal("missing _SUCCESS marker")
	}

	lines := gunzipLines(t, raw)
	if len(lines) != 2 {
		t.Fatalf("got %d rows, want 2", len(lines))
	}
	var first pull.EventSummary
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("row 0 not JSON: %v", err)
	}
	if first.ID != "11" {
		t.Errorf("first row id = %q, want 11", first.ID)
	}
}

func TestRunOnceSkipsExistingPartition(t *testing.T) {
	dir := seedDataDir(t)
	sink := newMemSink()
	r := New(sink, "polymarket", dir, discardLogger())
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		if _, err := r.RunOnce(context.Background(), "events", day); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	if sink.puts != 1 {
		t.Fatalf("got %d puts, want 1 (second run must skip)", sink.puts)
	}
}

func TestRunOnceUnknownDataset(t *testing.T) {
	r := New(newMemSink(), "polymarket", t.TempDir(), discardLogger())
	if _, err := r.RunOnce(context.Background(), "quotes", time.Now()); err == nil {
		t.Fatal("expected error for unknown dataset")
	}
}

func TestRunAllSkipsMissingArtifacts(t *testing.T) {
	// Empty data dir: every dataset reports no data, nothing is uploaded.
	sink := newMemSink()
	r := New(sink, "polymarket", t.TempDir(), discardLogger())
	if err := r.RunAll(context.Background(), time.Now()); err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if sink.puts != 0 {
		t.Fatalf("got %d puts, want 0", sink.puts)
	}
}

func TestTradesDumperFlattensMarkets(t *testing.T) {
	dir := seedDataDir(t)
	var buf bytes.Buffer
	d := &TradesDumper{DataDir: dir}

	rows, err := d.Dump(context.Background(), &buf)
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if rows != 2 {
		t.Fatalf("got %d rows, want 2", rows)
	}

	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var rec tradeRecord
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			t.Fatalf("row not JSON: %v", err)
		}
		if rec.EventID != "11" || rec.MarketID != "0xm1" {
			t.Errorf("row tagged %s/%s, want 11/0xm1", rec.EventID, rec.MarketID)
		}
	}
}

func TestDumpersNoData(t *testing.T) {
	dir := t.TempDir()
	for name, d := range Dumpers(dir) {
		_, err := d.Dump(context.Background(), io.Discard)
		if !errors.Is(err, ErrNoData) {
			t.Errorf("%s: got %v, want ErrNoData", name, err)
		}
	}
}

func keys(s *memSink) []string {
	out := make([]string, 0, len(s.objects))
	for k := range s.objects {
		out = append(out, k)
	}
	return out
}
