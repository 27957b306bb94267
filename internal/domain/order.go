package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide indicates whether this is a buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// Order is a resting limit order, live or simulated. Orders are keyed by
// (token id, side); at most one pending order exists per key.
type Order struct {
	ID              string // exchange order id (live) or local uuid (simulation)
	TokenID         string
	TokenType       TokenType
	ConditionID     string
	Side            OrderSide
	TargetPrice     decimal.Decimal
	Size            decimal.Decimal // shares
	PeriodTimestamp int64
	CreatedAt       time.Time
	Filled          bool
}

// Key returns the pending-order map key for this order.
func (o Order) Key() string {
	return o.TokenID + "_" + string(o.Side)
}

// Position is an open or resolved holding created by a BUY fill. Positions
// are keyed by token id; at most one open position exists per token.
type Position struct {
	TokenID          string
	TokenType        TokenType
	ConditionID      string
	PurchasePrice    decimal.Decimal
	Units            decimal.Decimal
	InvestmentAmount decimal.Decimal // PurchasePrice * Units at fill time
	PeriodTimestamp  int64
	OpenedAt         time.Time
	Sold             bool
	SellPrice        *decimal.Decimal // target sell price, if a sell was placed
	SellPriceActual  *decimal.Decimal // realized exit price (1.00 / 0.00 on resolution)
	SellTimestamp    *time.Time
}

// LimitOrderRequest is what the trader hands to the exchange when placing a
// live order.
type LimitOrderRequest struct {
	TokenID string
	Side    OrderSide
	Price   decimal.Decimal
	Size    decimal.Decimal
}
