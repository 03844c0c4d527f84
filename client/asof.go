package client

import "time"

// fieldPolicy classifies how a raw field behaves once an as-of reference is
// set. The tables below are the single source of truth for redaction; the
// normalizers consult them instead of hand-nulling fields.
type fieldPolicy int

const (
	// policyLive fields carry no future state and pass through unchanged.
	policyLive fieldPolicy = iota
	// policyRedact fields would leak post-reference state; they are nulled.
	policyRedact
	// policyReconstruct fields are rebuilt from time-bounded history.
	policyReconstruct
)

var eventPolicies = map[string]fieldPolicy{
	"id":           policyLive,
	"title":        policyLive,
	"slug":         policyLive,
	"description":  policyLive,
	"startDate":    policyLive,
	"endDate":      policyLive,
	"createdAt":    policyLive,
	"creationDate": policyLive,
	"active":       policyRedact,
	"closed":       policyRedact,
	"volume":       policyRedact,
	"liquidity":    policyRedact,
	"updatedAt":    policyRedact,
}

var marketPolicies = map[string]fieldPolicy{
	"id":            policyLive,
	"question":      policyLive,
	"slug":          policyLive,
	"description":   policyLive,
	"outcomes":      policyLive,
	"clobTokenIds":  policyLive,
	"startDate":     policyLive,
	"endDate":       policyLive,
	"createdAt":     policyLive,
	"active":        policyRedact,
	"closed":        policyRedact,
	"updatedAt":     policyRedact,
	"outcomePrices": policyReconstruct,
}

// Creation-type candidate keys, in priority order.
var (
	eventCreatedKeys  = []string{"createdAt", "creationDate"}
	marketCreatedKeys = []string{"createdAt"}
)

// visible reports whether a raw record existed at the reference time. The
// first candidate key that parses decides; a record with no resolvable
// creation time is not visible.
func visible(asOf *time.Time, raw map[string]any, createdKeys []string) bool {
	if asOf == nil {
		return true
	}
	for _, key := range createdKeys {
		if t := parseTime(raw[key]); t != nil {
			return !t.After(*asOf)
		}
	}
	return false
}

func filterVisible(asOf *time.Time, items []map[string]any, createdKeys []string) []map[string]any {
	if asOf == nil {
		return items
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if visible(asOf, item, createdKeys) {
			out = append(out, item)
		}
	}
	return out
}

// redactRaw rebuilds a raw payload containing only the policyLive keys, so
// retained payloads cannot leak post-reference state either.
func redactRaw(raw map[string]any, policies map[string]fieldPolicy) map[string]any {
	out := make(map[string]any, len(policies))
	for key, policy := range policies {
		if policy == policyLive {
			out[key] = raw[key]
		}
	}
	out["id"] = asString(raw["id"])
	return out
}
