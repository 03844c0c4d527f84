// Package logging builds the structured logger shared by the commands.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// New returns a JSON logger writing to stdout. DEBUG=true lowers the
// level to debug, matching the rest of the pipeline tooling.
func New() *slog.Logger {
	return NewWriter(os.Stdout)
}

// NewWriter is New with an explicit sink, for tests and file capture.
func NewWriter(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") == "true" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewComponent tags every record with the component name so that log
// lines from different processes can be told apart after aggregation.
func NewComponent(name string) *slog.Logger {
	return New().With("component", name)
}
