package client

import (
	"strings"
	"time"
)

// Bool returns a pointer to v, for tri-state query parameters.
func Bool(v bool) *bool { return &v }

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Token pairs an outcome label with its CLOB token id and a price, when one
// is known.
type Token struct {
	TokenID string
	Outcome string
	Price   *float64
}

// PricePoint is one sample of a token's trade-price history.
type PricePoint struct {
	Timestamp time.Time
	Price     float64
}

// MakerOrder is the maker leg of a matched CLOB trade.
type MakerOrder struct {
	OrderID       string
	MakerAddress  string
	Owner         string
	MatchedAmount *float64
	FeeRateBps    *float64
	Price         *float64
	AssetID       string
	Outcome       string
	Side          string
	Raw           map[string]any
}

// Trade is an executed fill from the CLOB trade-history endpoint.
type Trade struct {
	ID              string
	TakerOrderID    string
	Market          string
	AssetID         string
	Side            string
	Size            *float64
	FeeRateBps      *float64
	Price           *float64
	Status          string
	MatchTime       *time.Time
	LastUpdate      *time.Time
	Outcome         string
	BucketIndex     *int
	Owner           string
	MakerAddress    string
	MakerOrders     []MakerOrder
	TransactionHash string
	TraderSide      string
	Raw             map[string]any
}

// PublicTrade is a fill from the public Data API trade history.
type PublicTrade struct {
	ProxyWallet           string
	Side                  string
	Asset                 string
	ConditionID           string
	Size                  *float64
	Price                 *float64
	Timestamp             *time.Time
	Title                 string
	Slug                  string
	Icon                  string
	EventSlug             string
	Outcome               string
	OutcomeIndex          *int
	Name                  string
	Pseudonym             string
	Bio                   string
	ProfileImage          string
	ProfileImageOptimized string
	TransactionHash       string
	Raw                   map[string]any
}

// Market is Gamma market metadata. Outcomes, OutcomePrices and ClobTokenIDs
// are positionally aligned by outcome index; upstream occasionally disagrees
// on lengths, and missing entries read as absent rather than erroring.
type Market struct {
	ID            string
	Question      string
	Slug          string
	Description   string
	Outcomes      []string
	OutcomePrices []*float64
	ClobTokenIDs  []string
	StartDate     *time.Time
	EndDate       *time.Time
	CreatedAt     *time.Time
	UpdatedAt     *time.Time
	Active        *bool
	Closed        *bool
	Raw           map[string]any
}

// Tokens assembles the market's parallel lists into Token views.
func (m *Market) Tokens() []Token {
	tokens := make([]Token, 0, len(m.ClobTokenIDs))
	for idx, tokenID := range m.ClobTokenIDs {
		var outcome string
		if idx < len(m.Outcomes) {
			outcome = m.Outcomes[idx]
		}
		var price *float64
		if idx < len(m.OutcomePrices) {
			price = m.OutcomePrices[idx]
		}
		tokens = append(tokens, Token{TokenID: tokenID, Outcome: outcome, Price: price})
	}
	return tokens
}

// ConditionID returns the market's 0x-prefixed condition id from the raw
// payload, or "" when absent or malformed.
func (m *Market) ConditionID() string {
	cid := asString(m.Raw["conditionId"])
	if cid == "" {
		cid = asString(m.Raw["condition_id"])
	}
	if strings.HasPrefix(cid, "0x") && len(cid) == 66 {
		return cid
	}
	return ""
}

// VolumeUSD reads the market's traded volume from the raw payload, trying
// the Gamma aliases in order. Redacted payloads yield nil.
func (m *Market) VolumeUSD() *float64 {
	for _, key := range []string{"volume", "volumeNum", "volumeClob"} {
		if v := parseFloat(m.Raw[key]); v != nil {
			return v
		}
	}
	return nil
}

// Event is Gamma event metadata with its markets parsed in when requested.
type Event struct {
	ID          string
	Title       string
	Slug        string
	Description string
	StartDate   *time.Time
	EndDate     *time.Time
	CreatedAt   *time.Time
	UpdatedAt   *time.Time
	Active      *bool
	Closed      *bool
	Volume      *float64
	Liquidity   *float64
	Markets     []Market
	Raw         map[string]any
}

// ResolvedAt returns the event's resolution-type timestamp, trying the
// candidate keys in priority order.
func (e *Event) ResolvedAt() *time.Time {
	return firstTime(e.Raw, "resolvedAt", "resolutionDate", "endDate")
}
