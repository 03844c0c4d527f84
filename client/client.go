package client

import (
	"log/slog"
	"net/http"
	"time"
)

const (
	DefaultGammaBase = "https://gamma-api.polymarket.com"
	DefaultClobBase  = "https://clob.polymarket.com"
	DefaultDataBase  = "https://data-api.polymarket.com"

	DefaultTimeout = 20 * time.Second

	// Data API /trades paging bounds. The endpoint stops honoring offsets
	// past a ceiling, so sweeps cap out rather than paging forever.
	DefaultTradePageSize  = 10000
	DefaultTradeMaxOffset = 10000

	defaultUserAgent = "Mozilla/5.0 (polymarket-backtest)"
)

// Client talks to the Gamma, CLOB and Data API bases. The zero value is not
// usable; construct with New. A Client is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger

	gammaBase string
	clobBase  string
	dataBase  string
	userAgent string

	asOf  *time.Time
	creds *L2Credentials

	tradePageSize  int
	tradeMaxOffset int
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for non-fatal diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithAsOf pins the client to a historical reference time. See the package
// documentation for what that changes.
func WithAsOf(t time.Time) Option {
	return func(c *Client) {
		u := t.UTC()
		c.asOf = &u
	}
}

// WithCredentials stores L2 credentials for authenticated CLOB calls.
func WithCredentials(creds L2Credentials) Option {
	return func(c *Client) {
		cc := creds
		c.creds = &cc
	}
}

// WithGammaBase overrides the Gamma base URL.
func WithGammaBase(u string) Option {
	return func(c *Client) { c.gammaBase = u }
}

// WithClobBase overrides the CLOB base URL.
func WithClobBase(u string) Option {
	return func(c *Client) { c.clobBase = u }
}

// WithDataBase overrides the Data API base URL.
func WithDataBase(u string) Option {
	return func(c *Client) { c.dataBase = u }
}

// WithTradePaging overrides the Data API sweep page size and offset ceiling.
func WithTradePaging(pageSize, maxOffset int) Option {
	return func(c *Client) {
		if pageSize > 0 {
			c.tradePageSize = pageSize
		}
		if maxOffset > 0 {
			c.tradeMaxOffset = maxOffset
		}
	}
}

// New builds a Client with the production base URLs and default timeout.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient:     &http.Client{Timeout: DefaultTimeout},
		logger:         slog.Default(),
		gammaBase:      DefaultGammaBase,
		clobBase:       DefaultClobBase,
		dataBase:       DefaultDataBase,
		userAgent:      defaultUserAgent,
		tradePageSize:  DefaultTradePageSize,
		tradeMaxOffset: DefaultTradeMaxOffset,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// At returns a copy of the client pinned to the given reference time.
// Records returned earlier are unaffected.
func (c *Client) At(t time.Time) *Client {
	dup := *c
	u := t.UTC()
	dup.asOf = &u
	return &dup
}

// Live returns a copy of the client with no reference time set.
func (c *Client) Live() *Client {
	dup := *c
	dup.asOf = nil
	return &dup
}

// AsOf reports the reference time, if one is set.
func (c *Client) AsOf() (time.Time, bool) {
	if c.asOf == nil {
		return time.Time{}, false
	}
	return *c.asOf, true
}
