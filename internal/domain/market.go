package domain

import "strings"

// TokenInfo describes one outcome token of a market.
type TokenInfo struct {
	TokenID string
	Outcome TokenSide
}

// Market describes one 15-minute up/down market instance of one asset.
// UpToken/DownToken are nil when the exchange response did not carry token
// ids (the market is then observed but not tradable).
type Market struct {
	ConditionID     string
	Slug            string
	Question        string
	Active          bool
	Closed          bool
	UpToken         *TokenInfo
	DownToken       *TokenInfo
	PeriodTimestamp int64 // 900-second floor of the market start, from the slug

	// Outcome is set once the market has resolved: SideUp when the "Up"
	// outcome paid out, SideDown otherwise. Nil while unresolved.
	Outcome *TokenSide
}

// Tradable reports whether orders may be placed on this market.
func (m Market) Tradable() bool {
	return m.Active && !m.Closed && !m.IsDummy()
}

// IsDummy reports whether this is a placeholder market for a disabled or
// undiscoverable asset.
func (m Market) IsDummy() bool {
	return strings.HasPrefix(m.ConditionID, "dummy_")
}

// DummyMarket returns the placeholder market used when an asset is disabled
// or could not be discovered.
func DummyMarket(asset Asset) Market {
	prefix := strings.ToLower(string(asset))
	return Market{
		ConditionID: asset.DummyConditionID(),
		Slug:        prefix + "-updown-15m-fallback",
		Question:    string(asset) + " Trading Disabled",
		Active:      false,
		Closed:      true,
	}
}

// MarketSet holds the current market for each asset.
type MarketSet struct {
	ETH    Market
	BTC    Market
	Solana Market
	XRP    Market
}

// ByAsset returns the market for the given asset.
func (s MarketSet) ByAsset(a Asset) Market {
	switch a {
	case AssetETH:
		return s.ETH
	case AssetBTC:
		return s.BTC
	case AssetSolana:
		return s.Solana
	case AssetXRP:
		return s.XRP
	default:
		return Market{}
	}
}

// ConditionIDs returns the condition ids of all four markets in
// (ETH, BTC, Solana, XRP) order, dummies included.
func (s MarketSet) ConditionIDs() []string {
	return []string{s.ETH.ConditionID, s.BTC.ConditionID, s.Solana.ConditionID, s.XRP.ConditionID}
}
