package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Epoch values above this are milliseconds, below it seconds.
const epochMillisCutoff = 1_000_000_000_000

// parseFloat coerces numbers and numeric strings. Anything else is absent.
func parseFloat(v any) *float64 {
	switch x := v.(type) {
	case float64:
		return &x
	case int:
		f := float64(x)
		return &f
	case int64:
		f := float64(x)
		return &f
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return nil
		}
		return &f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

// parseInt coerces integral numbers and integer strings, truncating floats.
func parseInt(v any) *int {
	switch x := v.(type) {
	case int:
		return &x
	case int64:
		n := int(x)
		return &n
	case float64:
		n := int(x)
		return &n
	case json.Number:
		if i, err := x.Int64(); err == nil {
			n := int(i)
			return &n
		}
		if f, err := x.Float64(); err == nil {
			n := int(f)
			return &n
		}
		return nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return nil
		}
		return &n
	default:
		return nil
	}
}

func parseBool(v any) *bool {
	if b, ok := v.(bool); ok {
		return &b
	}
	return nil
}

// asString renders scalars as strings without losing digits; nil reads as "".
func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// parseTime accepts ISO-8601 strings (with or without offset, bare dates
// allowed) and epoch numbers, disambiguating seconds from milliseconds by
// magnitude. Everything lands in UTC; unparsable values are absent.
func parseTime(v any) *time.Time {
	switch x := v.(type) {
	case nil:
		return nil
	case time.Time:
		u := x.UTC()
		return &u
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return nil
		}
		return epochTime(f)
	case float64:
		return epochTime(x)
	case int:
		return epochTime(float64(x))
	case int64:
		return epochTime(float64(x))
	case string:
		text := strings.TrimSpace(x)
		if text == "" {
			return nil
		}
		for _, layout := range isoLayouts {
			parsed, err := time.Parse(layout, text)
			if err != nil {
				continue
			}
			u := parsed.UTC()
			return &u
		}
		return nil
	default:
		return nil
	}
}

// parseUnixTime accepts epoch numbers or numeric strings, applying the same
// magnitude rule as parseTime. ISO strings are not accepted here.
func parseUnixTime(v any) *time.Time {
	f := parseFloat(v)
	if f == nil {
		return nil
	}
	return epochTime(*f)
}

func epochTime(epoch float64) *time.Time {
	if epoch > epochMillisCutoff {
		epoch = epoch / 1000
	}
	sec := int64(epoch)
	nsec := int64((epoch - float64(sec)) * float64(time.Second))
	t := time.Unix(sec, nsec).UTC()
	return &t
}

// parseStringList normalizes Gamma's list fields, which sometimes arrive as
// JSON-encoded strings. The fallback strips brackets and quotes and splits
// on commas; it never errors. A bare scalar becomes a one-element list.
func parseStringList(v any) []string {
	switch x := v.(type) {
	case nil:
		return nil
	case []string:
		return x
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			out = append(out, asString(item))
		}
		return out
	case string:
		text := strings.TrimSpace(x)
		if text == "" {
			return nil
		}
		var parsed []any
		dec := json.NewDecoder(strings.NewReader(text))
		dec.UseNumber()
		if err := dec.Decode(&parsed); err == nil {
			out := make([]string, 0, len(parsed))
			for _, item := range parsed {
				out = append(out, asString(item))
			}
			return out
		}
		cleaned := strings.Trim(text, "[]")
		parts := strings.Split(cleaned, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			out = append(out, strings.Trim(trimmed, `'"`))
		}
		return out
	default:
		return []string{asString(x)}
	}
}

// firstTime tries the candidate keys in order and returns the first that
// parses to a timestamp.
func firstTime(raw map[string]any, keys ...string) *time.Time {
	for _, key := range keys {
		if t := parseTime(raw[key]); t != nil {
			return t
		}
	}
	return nil
}

func makerOrderFromRaw(raw map[string]any) MakerOrder {
	return MakerOrder{
		OrderID:       asString(raw["order_id"]),
		MakerAddress:  asString(raw["maker_address"]),
		Owner:         asString(raw["owner"]),
		MatchedAmount: parseFloat(raw["matched_amount"]),
		FeeRateBps:    parseFloat(raw["fee_rate_bps"]),
		Price:         parseFloat(raw["price"]),
		AssetID:       asString(raw["asset_id"]),
		Outcome:       asString(raw["outcome"]),
		Side:          asString(raw["side"]),
		Raw:           raw,
	}
}

func (c *Client) tradeFromRaw(raw map[string]any) Trade {
	matchTime := parseTime(raw["match_time"])
	lastUpdate := parseTime(raw["last_update"])
	status := asString(raw["status"])
	if c.asOf != nil && lastUpdate != nil && lastUpdate.After(*c.asOf) {
		status = ""
		lastUpdate = nil
	}

	var makerOrders []MakerOrder
	if rawOrders, ok := raw["maker_orders"].([]any); ok {
		makerOrders = make([]MakerOrder, 0, len(rawOrders))
		for _, item := range rawOrders {
			if obj, ok := item.(map[string]any); ok {
				makerOrders = append(makerOrders, makerOrderFromRaw(obj))
			}
		}
	}

	payload := raw
	if c.asOf != nil && lastUpdate == nil && raw["last_update"] != nil {
		payload = make(map[string]any, len(raw))
		for k, v := range raw {
			payload[k] = v
		}
		payload["last_update"] = nil
		payload["status"] = nil
	}

	traderSide := asString(raw["trader_side"])
	if traderSide == "" {
		traderSide = asString(raw["type"])
	}

	return Trade{
		ID:              asString(raw["id"]),
		TakerOrderID:    asString(raw["taker_order_id"]),
		Market:          asString(raw["market"]),
		AssetID:         asString(raw["asset_id"]),
		Side:            asString(raw["side"]),
		Size:            parseFloat(raw["size"]),
		FeeRateBps:      parseFloat(raw["fee_rate_bps"]),
		Price:           parseFloat(raw["price"]),
		Status:          status,
		MatchTime:       matchTime,
		LastUpdate:      lastUpdate,
		Outcome:         asString(raw["outcome"]),
		BucketIndex:     parseInt(raw["bucket_index"]),
		Owner:           asString(raw["owner"]),
		MakerAddress:    asString(raw["maker_address"]),
		MakerOrders:     makerOrders,
		TransactionHash: asString(raw["transaction_hash"]),
		TraderSide:      traderSide,
		Raw:             payload,
	}
}

func publicTradeFromRaw(raw map[string]any) PublicTrade {
	return PublicTrade{
		ProxyWallet:           asString(raw["proxyWallet"]),
		Side:                  asString(raw["side"]),
		Asset:                 asString(raw["asset"]),
		ConditionID:           asString(raw["conditionId"]),
		Size:                  parseFloat(raw["size"]),
		Price:                 parseFloat(raw["price"]),
		Timestamp:             parseUnixTime(raw["timestamp"]),
		Title:                 asString(raw["title"]),
		Slug:                  asString(raw["slug"]),
		Icon:                  asString(raw["icon"]),
		EventSlug:             asString(raw["eventSlug"]),
		Outcome:               asString(raw["outcome"]),
		OutcomeIndex:          parseInt(raw["outcomeIndex"]),
		Name:                  asString(raw["name"]),
		Pseudonym:             asString(raw["pseudonym"]),
		Bio:                   asString(raw["bio"]),
		ProfileImage:          asString(raw["profileImage"]),
		ProfileImageOptimized: asString(raw["profileImageOptimized"]),
		TransactionHash:       asString(raw["transactionHash"]),
		Raw:                   raw,
	}
}

// eventFromRaw builds an Event, parsing embedded markets when asked to.
// Under an as-of reference, embedded markets created after the reference are
// dropped and live-mutable fields are redacted per the policy tables.
func (c *Client) eventFromRaw(ctx context.Context, raw map[string]any, includeMarkets bool) (Event, error) {
	var markets []Market
	if includeMarkets {
		if rawMarkets, ok := raw["markets"].([]any); ok {
			markets = make([]Market, 0, len(rawMarkets))
			for _, item := range rawMarkets {
				obj, ok := item.(map[string]any)
				if !ok || !visible(c.asOf, obj, marketCreatedKeys) {
					continue
				}
				market, err := c.marketFromRaw(ctx, obj)
				if err != nil {
					return Event{}, err
				}
				markets = append(markets, market)
			}
		}
	}

	active := parseBool(raw["active"])
	closed := parseBool(raw["closed"])
	volume := parseFloat(raw["volume"])
	liquidity := parseFloat(raw["liquidity"])
	updatedAt := parseTime(raw["updatedAt"])

	payload := raw
	if c.asOf != nil {
		active, closed = nil, nil
		volume, liquidity = nil, nil
		updatedAt = nil
		payload = redactRaw(raw, eventPolicies)
		payload["markets"] = nil
	}

	return Event{
		ID:          asString(raw["id"]),
		Title:       asString(raw["title"]),
		Slug:        asString(raw["slug"]),
		Description: asString(raw["description"]),
		StartDate:   parseTime(raw["startDate"]),
		EndDate:     parseTime(raw["endDate"]),
		CreatedAt:   firstTime(raw, "createdAt", "creationDate"),
		UpdatedAt:   updatedAt,
		Active:      active,
		Closed:      closed,
		Volume:      volume,
		Liquidity:   liquidity,
		Markets:     markets,
		Raw:         payload,
	}, nil
}

// marketFromRaw builds a Market. Under an as-of reference the outcome prices
// are reconstructed from per-token price history instead of the live values,
// padded with nils to the outcome count.
func (c *Client) marketFromRaw(ctx context.Context, raw map[string]any) (Market, error) {
	outcomes := parseStringList(raw["outcomes"])
	clobTokenIDs := parseStringList(raw["clobTokenIds"])

	var outcomePrices []*float64
	if c.asOf == nil {
		rawPrices := parseStringList(raw["outcomePrices"])
		outcomePrices = make([]*float64, 0, len(rawPrices))
		for _, p := range rawPrices {
			outcomePrices = append(outcomePrices, parseFloat(p))
		}
	} else {
		var err error
		outcomePrices, err = c.pricesAsOf(ctx, clobTokenIDs)
		if err != nil {
			return Market{}, err
		}
		for len(outcomePrices) < len(outcomes) {
			outcomePrices = append(outcomePrices, nil)
		}
	}

	active := parseBool(raw["active"])
	closed := parseBool(raw["closed"])
	updatedAt := parseTime(raw["updatedAt"])

	payload := raw
	if c.asOf != nil {
		active, closed = nil, nil
		updatedAt = nil
		payload = redactRaw(raw, marketPolicies)
	}

	return Market{
		ID:            asString(raw["id"]),
		Question:      asString(raw["question"]),
		Slug:          asString(raw["slug"]),
		Description:   asString(raw["description"]),
		Outcomes:      outcomes,
		OutcomePrices: outcomePrices,
		ClobTokenIDs:  clobTokenIDs,
		StartDate:     parseTime(raw["startDate"]),
		EndDate:       parseTime(raw["endDate"]),
		CreatedAt:     parseTime(raw["createdAt"]),
		UpdatedAt:     updatedAt,
		Active:        active,
		Closed:        closed,
		Raw:           payload,
	}, nil
}

// pricesAsOf fetches the last known price at or before the reference for
// each token. Tokens with no history yield nil, never a live fallback.
func (c *Client) pricesAsOf(ctx context.Context, tokenIDs []string) ([]*float64, error) {
	prices := make([]*float64, 0, len(tokenIDs))
	for _, tokenID := range tokenIDs {
		history, err := c.PriceHistory(ctx, tokenID, PriceHistoryParams{})
		if err != nil {
			return nil, err
		}
		if len(history) == 0 {
			prices = append(prices, nil)
			continue
		}
		last := history[len(history)-1].Price
		prices = append(prices, &last)
	}
	return prices, nil
}
