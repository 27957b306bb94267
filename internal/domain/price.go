package domain

import "github.com/shopspring/decimal"

// TokenPrice is the top of book for one token. Bid or Ask is nil when the
// corresponding side of the book is empty. Prices are exact decimals in
// [0, 1]; they are converted to float64 only at logging boundaries.
type TokenPrice struct {
	Bid *decimal.Decimal
	Ask *decimal.Decimal
}

// Mid returns the mid price when both sides of the book are present.
func (p TokenPrice) Mid() (decimal.Decimal, bool) {
	if p.Bid == nil || p.Ask == nil {
		return decimal.Decimal{}, false
	}
	return p.Bid.Add(*p.Ask).Div(decimal.NewFromInt(2)), true
}

// MarketView is one asset's slice of a PeriodSnapshot: the current market
// and the most recent quotes for its two tokens.
type MarketView struct {
	Market    Market
	UpPrice   *TokenPrice
	DownPrice *TokenPrice
}

// PeriodSnapshot is emitted by the monitor after every quote poll. It is an
// immutable value; consumers never reach back into the monitor.
type PeriodSnapshot struct {
	PeriodTimestamp      int64
	TimeRemainingSeconds int64 // 0 once the period has ended
	ETH                  MarketView
	BTC                  MarketView
	Solana               MarketView
	XRP                  MarketView
}

// View returns the MarketView for the given asset.
func (s PeriodSnapshot) View(a Asset) MarketView {
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
		return MarketView{}
	}
}

// BuyOpportunity is one resting limit buy the engine intends to place at the
// open of a period.
type BuyOpportunity struct {
	ConditionID        string
	TokenID            string
	TokenType          TokenType
	BidPrice           decimal.Decimal // the configured limit price
	PeriodTimestamp    int64
	TimeElapsedSeconds int64
	UseMarketOrder     bool // always false for the dual-limit strategy
}
