// Package domain defines the core types of the up/down trading engine:
// assets, markets, quotes, snapshots, orders, and positions. It has no
// dependencies on the exchange wire format.
package domain

// Asset is one of the tradable underlyings of the 15-minute up/down markets.
type Asset string

const (
	AssetBTC    Asset = "BTC"
	AssetETH    Asset = "ETH"
	AssetSolana Asset = "Solana"
	AssetXRP    Asset = "XRP"
)

// Assets lists every supported asset in canonical order. BTC is always
// traded; the rest are toggled by configuration.
var Assets = []Asset{AssetBTC, AssetETH, AssetSolana, AssetXRP}

// SlugPrefixes returns the market slug prefixes tried during discovery,
// in preference order.
func (a Asset) SlugPrefixes() []string {
	switch a {
	case AssetBTC:
		return []string{"btc"}
	case AssetETH:
		return []string{"eth"}
	case AssetSolana:
		return []string{"solana", "sol"}
	case AssetXRP:
		return []string{"xrp"}
	default:
		return nil
	}
}

// DummyConditionID is the reserved condition id used for the placeholder
// market of a disabled or undiscoverable asset. Dummy markets are never
// traded and are excluded from uniqueness checks.
func (a Asset) DummyConditionID() string {
	switch a {
	case AssetBTC:
		return "dummy_btc_fallback"
	case AssetETH:
		return "dummy_eth_fallback"
	case AssetSolana:
		return "dummy_solana_fallback"
	case AssetXRP:
		return "dummy_xrp_fallback"
	default:
		return "dummy_fallback"
	}
}

// TokenSide is the outcome side of a binary up/down token.
type TokenSide string

const (
	SideUp   TokenSide = "Up"
	SideDown TokenSide = "Down"
)

// TokenType identifies one of the eight tradable tokens as an
// (asset, side) pair.
type TokenType struct {
	Asset Asset
	Side  TokenSide
}

// String returns e.g. "BTC Up".
func (t TokenType) String() string {
	return string(t.Asset) + " " + string(t.Side)
}
