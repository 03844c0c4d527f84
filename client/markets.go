package client

import (
	"context"
	"net/url"
)

// ListMarketsParams mirrors the documented /markets query parameters. Zero
// values are omitted from the request.
type ListMarketsParams struct {
	Limit               int
	Offset              int
	Order               string
	Ascending           *bool
	IDs                 []string
	Slugs               []string
	ClobTokenIDs        []string
	ConditionIDs        []string
	MarketMakerAddress  []string
	LiquidityNumMin     float64
	LiquidityNumMax     float64
	VolumeNumMin        float64
	VolumeNumMax        float64
	StartDateMin        string
	StartDateMax        string
	EndDateMin          string
	EndDateMax          string
	TagID               int
	RelatedTags         *bool
	CYOM                *bool
	UmaResolutionStatus string
	GameID              string
	SportsMarketTypes   []string
	RewardsMinSize      float64
	QuestionIDs         []string
	IncludeTag          *bool
	Closed              *bool
}

func (p ListMarketsParams) query() url.Values {
	q := newQuery()
	q.setInt("limit", p.Limit)
	q.setInt("offset", p.Offset)
	q.set("order", p.Order)
	q.setBool("ascending", p.Ascending)
	q.setRepeated("id", p.IDs)
	q.setRepeated("slug", p.Slugs)
	q.setRepeated("clob_token_ids", p.ClobTokenIDs)
	q.setRepeated("condition_ids", p.ConditionIDs)
	q.setRepeated("market_maker_address", p.MarketMakerAddress)
	q.setFloat("liquidity_num_min", p.LiquidityNumMin)
	q.setFloat("liquidity_num_max", p.LiquidityNumMax)
	q.setFloat("volume_num_min", p.VolumeNumMin)
	q.setFloat("volume_num_max", p.VolumeNumMax)
	q.set("start_date_min", p.StartDateMin)
	q.set("start_date_max", p.StartDateMax)
	q.set("end_date_min", p.EndDateMin)
	q.set("end_date_max", p.EndDateMax)
	q.setInt("tag_id", p.TagID)
	q.setBool("related_tags", p.RelatedTags)
	q.setBool("cyom", p.CYOM)
	q.set("uma_resolution_status", p.UmaResolutionStatus)
	q.set("game_id", p.GameID)
	q.setRepeated("sports_market_types", p.SportsMarketTypes)
	q.setFloat("rewards_min_size", p.RewardsMinSize)
	q.setRepeated("question_ids", p.QuestionIDs)
	q.setBool("include_tag", p.IncludeTag)
	q.setBool("closed", p.Closed)
	return q.Values
}

func (c *Client) listMarketsRaw(ctx context.Context, params ListMarketsParams) ([]map[string]any, error) {
	v, err := c.getAny(ctx, c.gammaBase, "/markets", params.query(), nil)
	if err != nil {
		return nil, err
	}
	return asObjectList(v), nil
}

// ListMarkets fetches one page of markets.
func (c *Client) ListMarkets(ctx context.Context, params ListMarketsParams) ([]Market, error) {
	rows, err := c.listMarketsRaw(ctx, params)
	if err != nil {
		return nil, err
	}
	return c.marketsFromRows(ctx, rows)
}

// ListAllMarkets pages through /markets with the same short-page rule as
// ListAllEvents.
func (c *Client) ListAllMarkets(ctx context.Context, params ListMarketsParams) ([]Market, error) {
	pageSize := params.Limit
	if pageSize <= 0 {
		pageSize = DefaultEventPageSize
	}
	params.Limit = pageSize
	offset := params.Offset

	var all []Market
	for {
		params.Offset = offset
		rows, err := c.listMarketsRaw(ctx, params)
		if err != nil {
			return nil, err
		}
		markets, err := c.marketsFromRows(ctx, rows)
		if err != nil {
			return nil, err
		}
		all = append(all, markets...)
		if len(rows) < pageSize {
			return all, nil
		}
		offset += pageSize
	}
}

func (c *Client) marketsFromRows(ctx context.Context, rows []map[string]any) ([]Market, error) {
	rows = filterVisible(c.asOf, rows, marketCreatedKeys)
	markets := make([]Market, 0, len(rows))
	for _, raw := range rows {
		market, err := c.marketFromRaw(ctx, raw)
		if err != nil {
			return nil, err
		}
		markets = append(markets, market)
	}
	return markets, nil
}

// GetMarket fetches a single market by id. Missing or not-yet-visible
// markets come back nil.
func (c *Client) GetMarket(ctx context.Context, marketID string) (*Market, error) {
	return c.getMarket(ctx, "/markets/"+url.PathEscape(marketID))
}

// GetMarketBySlug fetches a single market by slug.
func (c *Client) GetMarketBySlug(ctx context.Context, slug string) (*Market, error) {
	return c.getMarket(ctx, "/markets/slug/"+url.PathEscape(slug))
}

func (c *Client) getMarket(ctx context.Context, path string) (*Market, error) {
	v, err := c.getAny(ctx, c.gammaBase, path, nil, nil)
	if err != nil {
		return nil, err
	}
	raw := asObject(v)
	if raw == nil || !visible(c.asOf, raw, marketCreatedKeys) {
		return nil, nil
	}
	market, err := c.marketFromRaw(ctx, raw)
	if err != nil {
		return nil, err
	}
	return &market, nil
}

// MarketTokensParams tunes how MarketTokens resolves per-token prices.
type MarketTokensParams struct {
	// PriceSide asks /price for BUY or SELL instead of the midpoint.
	PriceSide string
	// History bounds force price-history lookups even without as-of.
	HistoryStartTs  int64
	HistoryEndTs    int64
	HistoryInterval string
	HistoryFidelity int
	// NoPriceFallback disables falling back to Gamma outcome prices when a
	// live lookup finds nothing. The fallback never applies under as-of.
	NoPriceFallback bool
}

// MarketTokens returns the market's tokens with prices filled in: from
// history when an as-of reference or history bound is in play, otherwise
// from the live midpoint or side price.
func (c *Client) MarketTokens(ctx context.Context, market *Market, params MarketTokensParams) ([]Token, error) {
	if market == nil {
		return nil, nil
	}

	useHistory := c.asOf != nil ||
		params.HistoryStartTs != 0 || params.HistoryEndTs != 0 ||
		params.HistoryInterval != "" || params.HistoryFidelity != 0

	endTs := params.HistoryEndTs
	if useHistory && endTs == 0 && params.HistoryInterval == "" && c.asOf != nil {
		endTs = c.asOf.Unix()
	}

	allowFallback := !params.NoPriceFallback && c.asOf == nil

	tokens := make([]Token, 0, len(market.ClobTokenIDs))
	for idx, tokenID := range market.ClobTokenIDs {
		var outcome string
		if idx < len(market.Outcomes) {
			outcome = market.Outcomes[idx]
		}

		var price *float64
		if useHistory {
			history, err := c.PriceHistory(ctx, tokenID, PriceHistoryParams{
				StartTs:  params.HistoryStartTs,
				EndTs:    endTs,
				Interval: params.HistoryInterval,
				Fidelity: params.HistoryFidelity,
			})
			if err != nil {
				return nil, err
			}
			if len(history) > 0 {
				last := history[len(history)-1].Price
				price = &last
			}
		} else if params.PriceSide != "" {
			p, err := c.Price(ctx, tokenID, params.PriceSide)
			if err != nil {
				return nil, err
			}
			price = p
		} else {
			p, err := c.Midpoint(ctx, tokenID)
			if err != nil {
				return nil, err
			}
			price = p
		}

		if price == nil && allowFallback && idx < len(market.OutcomePrices) {
			price = market.OutcomePrices[idx]
		}

		tokens = append(tokens, Token{TokenID: tokenID, Outcome: outcome, Price: price})
	}
	return tokens, nil
}
