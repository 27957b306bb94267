// Package polymarket implements the REST and WebSocket clients for the
// Polymarket Gamma and CLOB APIs, translating wire DTOs into domain types.
package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"

	"updownbot/internal/domain"

	"github.com/shopspring/decimal"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") because the
// Gamma API is inconsistent about how it sends boolean fields.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// APIMarket is a market as returned by the Gamma API. Outcomes,
// OutcomePrices and ClobTokenIDs arrive as JSON-encoded strings, e.g.
// "[\"Up\",\"Down\"]".
type APIMarket struct {
	ID            string     `json:"id"`
	Question      string     `json:"question"`
	ConditionID   string     `json:"conditionId"`
	Slug          string     `json:"slug"`
	Active        flexBool   `json:"active"`
	Closed        flexBool   `json:"closed"`
	Outcomes      string     `json:"outcomes"`
	OutcomePrices string     `json:"outcomePrices"`
	ClobTokenIDs  string     `json:"clobTokenIds"`
	Tokens        []APIToken `json:"tokens"`
	EndDateISO    string     `json:"endDateIso"`
}

// APIToken is a token entry inside a CLOB market response.
type APIToken struct {
	TokenID string `json:"token_id"`
	Outcome string `json:"outcome"`
	Winner  bool   `json:"winner"`
}

// APIOrderResult is the CLOB response to placing an order.
type APIOrderResult struct {
	Success     bool   `json:"success"`
	ErrorMsg    string `json:"errorMsg,omitempty"`
	OrderID     string `json:"orderID,omitempty"`
	Status      string `json:"status,omitempty"`
	ShouldRetry bool   `json:"shouldRetry,omitempty"`
}

// APIBook is the CLOB /book response. Levels are price-ascending for bids
// and price-descending for asks, but the conversion does not rely on order.
type APIBook struct {
	AssetID string     `json:"asset_id"`
	Bids    []APILevel `json:"bids"`
	Asks    []APILevel `json:"asks"`
}

// APILevel is one price level of an order book side.
type APILevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// ToDomainMarket converts a Gamma market into a domain.Market, pairing the
// Up and Down tokens and extracting the period timestamp from the slug.
func (m *APIMarket) ToDomainMarket() domain.Market {
	dm := domain.Market{
		ConditionID:     m.ConditionID,
		Slug:            m.Slug,
		Question:        m.Question,
		Active:          bool(m.Active),
		Closed:          bool(m.Closed),
		PeriodTimestamp: periodFromSlug(m.Slug),
	}

	outcomes := decodeStringList(m.Outcomes)
	tokenIDs := decodeStringList(m.ClobTokenIDs)

	// Prefer the CLOB token entries, which carry explicit outcome labels
	// and winner flags; fall back to positional pairing of the two
	// JSON-string arrays.
	if len(m.Tokens) > 0 {
		for _, t := range m.Tokens {
			assignToken(&dm, t.Outcome, t.TokenID)
		}
	} else {
		for i, id := range tokenIDs {
			if i < len(outcomes) {
				assignToken(&dm, outcomes[i], id)
			}
		}
	}

	if dm.Closed {
		dm.Outcome = resolveOutcome(m, outcomes)
	}

	return dm
}

// ToDomainPrice reduces a book to its best bid and ask.
func (b *APIBook) ToDomainPrice() domain.TokenPrice {
	var p domain.TokenPrice
	for _, lvl := range b.Bids {
		d, err := decimal.NewFromString(lvl.Price)
		if err != nil {
			continue
		}
		if p.Bid == nil || d.GreaterThan(*p.Bid) {
			p.Bid = &d
		}
	}
	for _, lvl := range b.Asks {
		d, err := decimal.NewFromString(lvl.Price)
		if err != nil {
			continue
		}
		if p.Ask == nil || d.LessThan(*p.Ask) {
			p.Ask = &d
		}
	}
	return p
}

func assignToken(dm *domain.Market, outcome, tokenID string) {
	if tokenID == "" {
		return
	}
	switch strings.ToLower(outcome) {
	case "up":
		dm.UpToken = &domain.TokenInfo{TokenID: tokenID, Outcome: domain.SideUp}
	case "down":
		dm.DownToken = &domain.TokenInfo{TokenID: tokenID, Outcome: domain.SideDown}
	}
}

// resolveOutcome determines the winning side of a closed market, first from
// token winner flags, then from outcome prices ("1" marks the winner).
func resolveOutcome(m *APIMarket, outcomes []string) *domain.TokenSide {
	for _, t := range m.Tokens {
		if t.Winner {
			if side, ok := sideOf(t.Outcome); ok {
				return &side
			}
		}
	}

	prices := decodeStringList(m.OutcomePrices)
	for i, p := range prices {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil || f < 0.5 {
			continue
		}
		if i < len(outcomes) {
			if side, ok := sideOf(outcomes[i]); ok {
				return &side
			}
		}
	}
	return nil
}

func sideOf(outcome string) (domain.TokenSide, bool) {
	switch strings.ToLower(outcome) {
	case "up":
		return domain.SideUp, true
	case "down":
		return domain.SideDown, true
	}
	return "", false
}

// decodeStringList parses a JSON-encoded string array field. Malformed input
// yields nil; callers treat that the same as an absent field.
func decodeStringList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}

// periodFromSlug extracts the trailing Unix timestamp from slugs shaped like
// "btc-updown-15m-1700000100". Returns 0 when the slug has no numeric tail.
func periodFromSlug(slug string) int64 {
	i := strings.LastIndex(slug, "-")
	if i < 0 || i == len(slug)-1 {
		return 0
	}
	n, err := strconv.ParseInt(slug[i+1:], 10, 64)
	if err != nil {
		return 0
	}
	return n
}
