package client

import (
	"context"
	"sort"
)

// Midpoint returns the token's current midpoint price. Under an as-of
// reference it answers from history instead: the last sample at or before
// the reference, or nil when the token has none.
func (c *Client) Midpoint(ctx context.Context, tokenID string) (*float64, error) {
	if c.asOf != nil {
		return c.lastHistoricalPrice(ctx, tokenID)
	}
	q := newQuery()
	q.set("token_id", tokenID)
	v, err := c.getAny(ctx, c.clobBase, "/midpoint", q.Values, nil)
	if err != nil {
		return nil, err
	}
	return parseFloat(asObject(v)["mid"]), nil
}

// Price returns the token's current BUY or SELL price. Under an as-of
// reference it answers from history, the same as Midpoint.
func (c *Client) Price(ctx context.Context, tokenID, side string) (*float64, error) {
	if c.asOf != nil {
		return c.lastHistoricalPrice(ctx, tokenID)
	}
	q := newQuery()
	q.set("token_id", tokenID)
	q.set("side", side)
	v, err := c.getAny(ctx, c.clobBase, "/price", q.Values, nil)
	if err != nil {
		return nil, err
	}
	return parseFloat(asObject(v)["price"]), nil
}

func (c *Client) lastHistoricalPrice(ctx context.Context, tokenID string) (*float64, error) {
	history, err := c.PriceHistory(ctx, tokenID, PriceHistoryParams{})
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, nil
	}
	last := history[len(history)-1].Price
	return &last, nil
}

// PriceHistoryParams bounds a /prices-history query. Interval is one of
// 1h, 6h, 1d, 1w, 1m.
type PriceHistoryParams struct {
	StartTs  int64
	EndTs    int64
	Interval string
	Fidelity int
}

// PriceHistory fetches a token's trade-price history, sorted ascending by
// timestamp. Under an as-of reference the query is clamped to the
// reference: EndTs cannot pass it, an Interval converts to a StartTs window
// ending at it, and any post-reference samples are dropped.
func (c *Client) PriceHistory(ctx context.Context, tokenID string, params PriceHistoryParams) ([]PricePoint, error) {
	startTs, endTs, interval := params.StartTs, params.EndTs, params.Interval
	if c.asOf != nil {
		asOfTs := c.asOf.Unix()
		if endTs == 0 || endTs > asOfTs {
			endTs = asOfTs
		}
		if interval != "" {
			if seconds, ok := intervalSeconds(interval); ok && startTs == 0 {
				startTs = max(asOfTs-seconds, 0)
			}
			interval = ""
		}
	}

	q := newQuery()
	q.set("market", tokenID)
	q.setInt64("startTs", startTs)
	q.setInt64("endTs", endTs)
	q.set("interval", interval)
	q.setInt("fidelity", params.Fidelity)

	v, err := c.getAny(ctx, c.clobBase, "/prices-history", q.Values, nil)
	if err != nil {
		return nil, err
	}
	history, _ := asObject(v)["history"].([]any)

	points := make([]PricePoint, 0, len(history))
	for _, item := range history {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		ts := parseUnixTime(obj["t"])
		price := parseFloat(obj["p"])
		if ts == nil || price == nil {
			continue
		}
		if c.asOf != nil && ts.After(*c.asOf) {
			continue
		}
		points = append(points, PricePoint{Timestamp: *ts, Price: *price})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})
	return points, nil
}

func intervalSeconds(interval string) (int64, bool) {
	switch interval {
	case "1h":
		return 3600, true
	case "6h":
		return 6 * 3600, true
	case "1d":
		return 86400, true
	case "1w":
		return 7 * 86400, true
	case "1m":
		return 30 * 86400, true
	}
	return 0, false
}
