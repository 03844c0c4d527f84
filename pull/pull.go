// Package pull fetches Polymarket events and their large trades into the
// data directory as JSON artifacts.
package pull

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/marketmole/polymarket-data/client"
)

const (
	// DefaultVolumeThreshold is the minimum market volume, in USD, for a
	// market's trades to be pulled.
	DefaultVolumeThreshold = 25000

	// DefaultMinTradeValue is the minimum price*size, in USD, for a trade
	// to be recorded.
	DefaultMinTradeValue = 500
)

// DefaultExcludeKeywords drops the high-frequency crypto series whose
// slugs contain these substrings.
var DefaultExcludeKeywords = []string{"btc", "eth", "xrp", "sol"}

// Puller runs the pull pipeline against one data directory. Every run is
// stamped with a run id that ends up in the metadata artifacts.
type Puller struct {
	client  *client.Client
	dataDir string
	logger  *slog.Logger
	runID   string

	excludeKeywords []string
	volumeThreshold float64
	minTradeValue   float64
}

type Option func(*Puller)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Puller) { p.logger = logger }
}

func WithExcludeKeywords(keywords []string) Option {
	return func(p *Puller) { p.excludeKeywords = keywords }
}

func WithVolumeThreshold(usd float64) Option {
	return func(p *Puller) { p.volumeThreshold = usd }
}

func WithMinTradeValue(usd float64) Option {
	return func(p *Puller) { p.minTradeValue = usd }
}

func WithRunID(id string) Option {
	return func(p *Puller) { p.runID = id }
}

// New returns a Puller writing under dataDir.
func New(c *client.Client, dataDir string, opts ...Option) *Puller {
	p := &Puller{
		client:          c,
		dataDir:         dataDir,
		logger:          slog.Default(),
		runID:           uuid.NewString(),
		excludeKeywords: DefaultExcludeKeywords,
		volumeThreshold: DefaultVolumeThreshold,
		minTradeValue:   DefaultMinTradeValue,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RunID identifies this pull run in artifacts and the store.
func (p *Puller) RunID() string {
	return p.runID
}
