package client

import (
	"context"
	"net/url"
	"strconv"
	"strings"
)

// Cursor sentinels for /data/trades: base64 "0" opens the walk, base64 "-1"
// closes it.
const (
	cursorStart = "MA=="
	cursorEnd   = "LTE="
)

// ClobTradesParams filters the authenticated CLOB trade history.
type ClobTradesParams struct {
	ID           string
	MakerAddress string
	Market       string
	AssetID      string
	// Before and After are epoch-second bounds; zero means unbounded.
	Before int64
	After  int64
	// NextCursor resumes a walk mid-stream; empty starts from the top.
	NextCursor    string
	OnlyFirstPage bool
	// MaxPages caps the walk regardless of server cursors; zero means no cap.
	MaxPages int
	// Credentials overrides the client credentials for this call.
	Credentials *L2Credentials
}

// ClobTrades walks the cursor-paginated /data/trades endpoint and returns
// every fill it yields. The walk ends at the terminal sentinel, an absent or
// repeated cursor, or an empty page. Requires L2 credentials.
//
// Under an as-of reference the Before bound is clamped to the reference, an
// After bound past the reference short-circuits to empty, and fills matched
// after the reference are dropped. A fill updated after the reference (but
// matched before it) keeps its body with status and last-update nulled.
func (c *Client) ClobTrades(ctx context.Context, params ClobTradesParams) ([]Trade, error) {
	before, after := params.Before, params.After
	if c.asOf != nil {
		asOfTs := c.asOf.Unix()
		if after != 0 && after > asOfTs {
			return nil, nil
		}
		if before == 0 || before > asOfTs {
			before = asOfTs
		}
	}

	headers, err := c.l2Headers("GET", "/data/trades", "", params.Credentials)
	if err != nil {
		return nil, err
	}

	q := newQuery()
	q.set("id", params.ID)
	q.set("maker_address", params.MakerAddress)
	q.set("market", params.Market)
	q.set("asset_id", params.AssetID)
	q.setInt64("before", before)
	q.setInt64("after", after)

	cursor := params.NextCursor
	if cursor == "" {
		cursor = cursorStart
	}

	var trades []Trade
	pages := 0
	for cursor != "" && cursor != cursorEnd {
		q.Set("next_cursor", cursor)
		v, err := c.getAny(ctx, c.clobBase, "/data/trades", q.Values, headers)
		if err != nil {
			return nil, err
		}

		var rawTrades []any
		next := ""
		switch page := v.(type) {
		case map[string]any:
			rawTrades, _ = page["data"].([]any)
			next = asString(page["next_cursor"])
		case []any:
			rawTrades = page
		default:
			return trades, nil
		}

		for _, item := range rawTrades {
			raw, ok := item.(map[string]any)
			if !ok {
				continue
			}
			trade := c.tradeFromRaw(raw)
			if c.asOf != nil {
				seen := trade.MatchTime
				if seen == nil {
					seen = trade.LastUpdate
				}
				if seen != nil && seen.After(*c.asOf) {
					continue
				}
			}
			trades = append(trades, trade)
		}

		pages++
		if params.OnlyFirstPage {
			break
		}
		if params.MaxPages > 0 && pages >= params.MaxPages {
			break
		}
		// Local termination guards: an empty page or a cursor that fails to
		// advance ends the walk whatever the server says.
		if len(rawTrades) == 0 || next == cursor {
			break
		}
		cursor = next
	}
	return trades, nil
}

// PublicTradesParams filters the unauthenticated Data API trade history.
type PublicTradesParams struct {
	Limit        int
	Offset       int
	TakerOnly    *bool
	FilterType   string
	FilterAmount float64
	Markets      []string
	EventIDs     []int
	User         string
	Side         string
}

func (p PublicTradesParams) query() url.Values {
	q := newQuery()
	q.setInt("limit", p.Limit)
	q.setInt("offset", p.Offset)
	q.setBool("takerOnly", p.TakerOnly)
	q.set("filterType", p.FilterType)
	q.setFloat("filterAmount", p.FilterAmount)
	q.setJoined("market", p.Markets)
	q.setJoinedInts("eventId", p.EventIDs)
	q.set("user", p.User)
	q.set("side", p.Side)
	return q.Values
}

func (c *Client) publicTradesRaw(ctx context.Context, params PublicTradesParams) ([]map[string]any, error) {
	v, err := c.getAny(ctx, c.dataBase, "/trades", params.query(), nil)
	if err != nil {
		return nil, err
	}
	return asObjectList(v), nil
}

// PublicTrades fetches one page of public trade history. Under an as-of
// reference, trades with an absent or post-reference timestamp are dropped.
func (c *Client) PublicTrades(ctx context.Context, params PublicTradesParams) ([]PublicTrade, error) {
	rows, err := c.publicTradesRaw(ctx, params)
	if err != nil {
		return nil, err
	}
	return c.publicTradesFromRows(rows), nil
}

func (c *Client) publicTradesFromRows(rows []map[string]any) []PublicTrade {
	trades := make([]PublicTrade, 0, len(rows))
	for _, raw := range rows {
		trade := publicTradeFromRaw(raw)
		if c.asOf != nil {
			if trade.Timestamp == nil || trade.Timestamp.After(*c.asOf) {
				continue
			}
		}
		trades = append(trades, trade)
	}
	return trades
}

// SweepPublicTrades pages the public trade history for one market through a
// BUY pass and a SELL pass, each offset-paged up to the endpoint's offset
// ceiling, and dedups the union by composite key. minAmount, when positive,
// becomes the endpoint's CASH filter.
//
// The ceiling means a side with more qualifying fills than it allows is
// silently truncated; that is an upstream paging limitation, not a
// completeness guarantee.
func (c *Client) SweepPublicTrades(ctx context.Context, conditionID string, minAmount float64) ([]PublicTrade, error) {
	pageSize := c.tradePageSize
	maxOffset := c.tradeMaxOffset

	params := PublicTradesParams{
		Limit:     pageSize,
		TakerOnly: Bool(false),
		Markets:   []string{conditionID},
	}
	if minAmount > 0 {
		params.FilterType = "CASH"
		params.FilterAmount = minAmount
	}

	var out []PublicTrade
	seen := make(map[string]struct{})
	for _, side := range []string{"BUY", "SELL"} {
		params.Side = side
		for offset := 0; offset <= maxOffset; {
			params.Offset = offset
			rows, err := c.publicTradesRaw(ctx, params)
			if err != nil {
				return nil, err
			}
			if len(rows) == 0 {
				break
			}
			for _, trade := range c.publicTradesFromRows(rows) {
				key := tradeKey(trade)
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				out = append(out, trade)
			}
			if len(rows) < pageSize {
				break
			}
			if offset+pageSize > maxOffset {
				break
			}
			offset += pageSize
		}
	}
	return out, nil
}

// tradeKey is the composite identity used to dedup overlapping sweep pages.
func tradeKey(t PublicTrade) string {
	ts := ""
	if t.Timestamp != nil {
		ts = strconv.FormatInt(t.Timestamp.Unix(), 10)
	}
	size, price := "", ""
	if t.Size != nil {
		size = strconv.FormatFloat(*t.Size, 'f', -1, 64)
	}
	if t.Price != nil {
		price = strconv.FormatFloat(*t.Price, 'f', -1, 64)
	}
	return strings.Join([]string{
		t.TransactionHash, ts, t.ProxyWallet, t.ConditionID, t.Side, size, price,
	}, "-")
}
