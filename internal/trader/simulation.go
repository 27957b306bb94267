package trader

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"updownbot/internal/domain"
	"updownbot/internal/history"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	oneDollar = decimal.NewFromInt(1)
	sixPlaces = int32(6)
)

// Tracker is the engine's order and position book. Both modes record their
// orders here; in simulation orders additionally fill against observed
// quotes and resolved markets credit $1.00 or $0.00 per unit. Pending
// orders, positions, and the running totals each have their own mutex;
// locks are never held across each other.
type Tracker struct {
	log    *history.Log
	logger *slog.Logger

	ordersMu sync.Mutex
	orders   map[string]*domain.Order // key: Order.Key()

	posMu     sync.Mutex
	positions map[string]*domain.Position // key: token id

	totalsMu         sync.Mutex
	totalInvested    decimal.Decimal
	totalRealizedPnL decimal.Decimal

	now func() time.Time
}

// NewTracker creates an empty Tracker writing events to log.
func NewTracker(log *history.Log, logger *slog.Logger) *Tracker {
	return &Tracker{
		log:       log,
		logger:    logger.With(slog.String("component", "simulation")),
		orders:    make(map[string]*domain.Order),
		positions: make(map[string]*domain.Position),
		now:       time.Now,
	}
}

// AddOrder registers a pending limit order. A later order with the same
// (token, side) key replaces the earlier one.
func (t *Tracker) AddOrder(o domain.Order) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = t.now()
	}

	t.ordersMu.Lock()
	t.orders[o.Key()] = &o
	total := len(t.orders)
	unfilled := t.unfilledCountLocked()
	t.ordersMu.Unlock()

	t.log.Event(fmt.Sprintf(
		"Limit %s order added - Token: %s (%s), Price: $%s, Size: %s | Total orders: %d, Unfilled: %d",
		o.Side, o.TokenID, o.TokenType.Side, o.TargetPrice.StringFixed(sixPlaces),
		o.Size.StringFixed(sixPlaces), total, unfilled))
}

// CheckPendingOrders fills every unfilled order whose fill condition holds
// against prices: BUY fills iff 0 < ask <= target, SELL iff bid >= target.
// The fill price is the observed quote, not the target.
func (t *Tracker) CheckPendingOrders(prices map[string]domain.TokenPrice) {
	var toFill []string

	t.ordersMu.Lock()
	unfilled := t.unfilledCountLocked()
	if unfilled > 0 && len(prices) == 0 {
		t.ordersMu.Unlock()
		t.log.Event(fmt.Sprintf("SIMULATION: Checking %d pending order(s) but no price data available", unfilled))
		return
	}
	for key, o := range t.orders {
		if o.Filled {
			continue
		}
		if fillable(o, prices) {
			toFill = append(toFill, key)
		}
	}
	t.ordersMu.Unlock()

	for _, key := range toFill {
		t.fillOrder(key, prices)
	}
}

// fillable evaluates one order's fill condition. Comparisons use exact
// decimals; a zero quote never fills.
func fillable(o *domain.Order, prices map[string]domain.TokenPrice) bool {
	p, ok := prices[o.TokenID]
	if !ok {
		return false
	}
	switch o.Side {
	case domain.OrderSideBuy:
		return p.Ask != nil && p.Ask.IsPositive() && p.Ask.LessThanOrEqual(o.TargetPrice)
	case domain.OrderSideSell:
		return p.Bid != nil && p.Bid.IsPositive() && p.Bid.GreaterThanOrEqual(o.TargetPrice)
	}
	return false
}

func (t *Tracker) fillOrder(key string, prices map[string]domain.TokenPrice) {
	t.ordersMu.Lock()
	o, ok := t.orders[key]
	if !ok || o.Filled {
		t.ordersMu.Unlock()
		return
	}
	o.Filled = true
	order := *o
	t.ordersMu.Unlock()

	fillPrice := order.TargetPrice
	if p, ok := prices[order.TokenID]; ok {
		if order.Side == domain.OrderSideBuy && p.Ask != nil {
			fillPrice = *p.Ask
		}
		if order.Side == domain.OrderSideSell && p.Bid != nil {
			fillPrice = *p.Bid
		}
	}

	switch order.Side {
	case domain.OrderSideBuy:
		t.openPosition(order, fillPrice)
	case domain.OrderSideSell:
		t.closePosition(order, fillPrice)
	}
}

func (t *Tracker) openPosition(order domain.Order, fillPrice decimal.Decimal) {
	investment := order.Size.Mul(fillPrice)

	pos := &domain.Position{
		TokenID:          order.TokenID,
		TokenType:        order.TokenType,
		ConditionID:      order.ConditionID,
		PurchasePrice:    fillPrice,
		Units:            order.Size,
		InvestmentAmount: investment,
		PeriodTimestamp:  order.PeriodTimestamp,
		OpenedAt:         t.now(),
	}

	t.posMu.Lock()
	t.positions[order.TokenID] = pos
	open := t.openCountLocked()
	t.posMu.Unlock()

	t.totalsMu.Lock()
	t.totalInvested = t.totalInvested.Add(investment)
	invested := t.totalInvested
	realized := t.totalRealizedPnL
	t.totalsMu.Unlock()

	msg := fmt.Sprintf(
		"SIMULATION: Limit BUY order FILLED - Token: %s (%s), Fill Price: $%s, Size: %s, Investment: $%s",
		order.TokenID, order.TokenType.Side, fillPrice.StringFixed(sixPlaces),
		order.Size.StringFixed(sixPlaces), investment.StringFixed(2))
	t.log.MarketEvent(order.ConditionID, order.PeriodTimestamp, msg)
	t.log.Event(fmt.Sprintf(
		"SIMULATION: Position created! Open positions: %d, Total invested: $%s, Total realized PnL: $%s",
		open, invested.StringFixed(2), realized.StringFixed(2)))
}

func (t *Tracker) closePosition(order domain.Order, fillPrice decimal.Decimal) {
	t.posMu.Lock()
	pos, ok := t.positions[order.TokenID]
	if !ok || pos.Sold {
		t.posMu.Unlock()
		return
	}
	pos.Sold = true
	actual := fillPrice
	ts := t.now()
	pos.SellPriceActual = &actual
	pos.SellTimestamp = &ts
	realized := fillPrice.Sub(pos.PurchasePrice).Mul(pos.Units)
	t.posMu.Unlock()

	t.totalsMu.Lock()
	t.totalRealizedPnL = t.totalRealizedPnL.Add(realized)
	t.totalsMu.Unlock()

	t.log.MarketEvent(order.ConditionID, order.PeriodTimestamp, fmt.Sprintf(
		"SIMULATION: Limit SELL order FILLED - Token: %s (%s), Fill Price: $%s, Size: %s, Realized PnL: $%s",
		order.TokenID, order.TokenType.Side, fillPrice.StringFixed(sixPlaces),
		order.Size.StringFixed(sixPlaces), realized.StringFixed(2)))
}

// ActivePositionExists reports whether an unsold position for the token type
// is already open in the given period.
func (t *Tracker) ActivePositionExists(period int64, tt domain.TokenType) bool {
	t.posMu.Lock()
	defer t.posMu.Unlock()

	for _, p := range t.positions {
		if !p.Sold && p.TokenType == tt && p.PeriodTimestamp == period {
			return true
		}
	}
	return false
}

// ExpireOrders archives unfilled orders from periods before newPeriod.
// Positions are untouched; they resolve with their market.
func (t *Tracker) ExpireOrders(newPeriod int64) {
	t.ordersMu.Lock()
	var expired []domain.Order
	for key, o := range t.orders {
		if !o.Filled && o.PeriodTimestamp < newPeriod {
			expired = append(expired, *o)
			delete(t.orders, key)
		}
	}
	t.ordersMu.Unlock()

	for _, o := range expired {
		t.log.Event(fmt.Sprintf(
			"Order EXPIRED unfilled - Token: %s (%s), Side: %s, Target: $%s, Period: %d",
			o.TokenID, o.TokenType.Side, o.Side, o.TargetPrice.StringFixed(sixPlaces), o.PeriodTimestamp))
	}
}

// ResolveMarket settles every open position on the condition id: winners
// receive $1.00 per unit, losers $0.00. Returns the market's total cost,
// total payout, and net PnL.
func (t *Tracker) ResolveMarket(conditionID string, resolvedUp bool) (spent, earned, net decimal.Decimal) {
	t.posMu.Lock()
	var toResolve []*domain.Position
	for _, p := range t.positions {
		if p.ConditionID == conditionID && !p.Sold {
			toResolve = append(toResolve, p)
		}
	}
	t.posMu.Unlock()

	for _, pos := range toResolve {
		won := (pos.TokenType.Side == domain.SideUp) == resolvedUp

		finalValue := decimal.Zero
		if won {
			finalValue = oneDollar
		}
		payout := pos.Units.Mul(finalValue)
		cost := pos.InvestmentAmount
		pnl := payout.Sub(cost)

		t.posMu.Lock()
		if pos.Sold {
			// A concurrent resolve settled this position after the
			// collection pass; crediting it again would double-count.
			t.posMu.Unlock()
			continue
		}
		pos.Sold = true
		fv := finalValue
		ts := t.now()
		pos.SellPriceActual = &fv
		pos.SellTimestamp = &ts
		t.posMu.Unlock()

		t.totalsMu.Lock()
		t.totalRealizedPnL = t.totalRealizedPnL.Add(pnl)
		t.totalsMu.Unlock()

		spent = spent.Add(cost)
		earned = earned.Add(payout)

		outcome := "LOST ($0.00)"
		if won {
			outcome = "WON ($1.00)"
		}
		t.log.MarketEvent(conditionID, pos.PeriodTimestamp, fmt.Sprintf(
			"MARKET RESOLVED: %s - %s | Purchase: $%s | Final Value: $%s | Units: %s | Value: $%s | Cost: $%s | PnL: $%s",
			pos.TokenType, outcome,
			pos.PurchasePrice.StringFixed(sixPlaces), finalValue.StringFixed(2),
			pos.Units.StringFixed(sixPlaces), payout.StringFixed(2),
			cost.StringFixed(2), pnl.StringFixed(2)))
	}

	return spent, earned, earned.Sub(spent)
}

// OpenPositions returns copies of every unsold position.
func (t *Tracker) OpenPositions() []domain.Position {
	t.posMu.Lock()
	defer t.posMu.Unlock()

	out := make([]domain.Position, 0, len(t.positions))
	for _, p := range t.positions {
		if !p.Sold {
			out = append(out, *p)
		}
	}
	return out
}

// PendingOrderCount returns the number of unfilled orders.
func (t *Tracker) PendingOrderCount() int {
	t.ordersMu.Lock()
	defer t.ordersMu.Unlock()
	return t.unfilledCountLocked()
}

// PendingOrders returns copies of every unfilled order.
func (t *Tracker) PendingOrders() []domain.Order {
	t.ordersMu.Lock()
	defer t.ordersMu.Unlock()

	out := make([]domain.Order, 0, len(t.orders))
	for _, o := range t.orders {
		if !o.Filled {
			out = append(out, *o)
		}
	}
	return out
}

// Totals returns (invested, realized PnL).
func (t *Tracker) Totals() (invested, realized decimal.Decimal) {
	t.totalsMu.Lock()
	defer t.totalsMu.Unlock()
	return t.totalInvested, t.totalRealizedPnL
}

// UnrealizedPnL sums (mid - purchase) * units over open positions. A
// position without a current mid contributes zero.
func (t *Tracker) UnrealizedPnL(prices map[string]domain.TokenPrice) decimal.Decimal {
	total := decimal.Zero
	for _, pos := range t.OpenPositions() {
		p, ok := prices[pos.TokenID]
		if !ok {
			continue
		}
		mid, ok := p.Mid()
		if !ok {
			continue
		}
		total = total.Add(mid.Sub(pos.PurchasePrice).Mul(pos.Units))
	}
	return total
}

// Summary renders the periodic position report and appends it to the
// history log.
func (t *Tracker) Summary(prices map[string]domain.TokenPrice) string {
	invested, realized := t.Totals()
	unrealized := t.UnrealizedPnL(prices)
	open := t.OpenPositions()

	rule := strings.Repeat("=", 59)
	var b strings.Builder
	fmt.Fprintf(&b, "%s\nSIMULATION POSITION SUMMARY\n%s\n", rule, rule)
	fmt.Fprintf(&b, "Total Invested: $%s\n", invested.StringFixed(2))
	fmt.Fprintf(&b, "Realized PnL: $%s\n", realized.StringFixed(2))
	fmt.Fprintf(&b, "Unrealized PnL: $%s\n", unrealized.StringFixed(2))
	fmt.Fprintf(&b, "Total PnL: $%s\n", realized.Add(unrealized).StringFixed(2))
	fmt.Fprintf(&b, "Open Positions: %d\n", len(open))

	if len(open) > 0 {
		b.WriteString("\nOpen Positions:\n")
		for i, pos := range open {
			current := pos.PurchasePrice
			if p, ok := prices[pos.TokenID]; ok {
				if mid, ok := p.Mid(); ok {
					current = mid
				}
			}
			unreal := current.Sub(pos.PurchasePrice).Mul(pos.Units)
			fmt.Fprintf(&b, "  %d. %s - Purchase: $%s, Current: $%s, Units: %s, Unrealized PnL: $%s\n",
				i+1, pos.TokenType,
				pos.PurchasePrice.StringFixed(sixPlaces), current.StringFixed(sixPlaces),
				pos.Units.StringFixed(sixPlaces), unreal.StringFixed(2))
		}
	}
	b.WriteString(rule + "\n")

	summary := b.String()
	t.log.Event(summary)
	return summary
}

// MarketStart records the period rollover across the history logs.
func (t *Tracker) MarketStart(period int64, ethID, btcID, solID, xrpID string) {
	t.log.MarketStart(period, ethID, btcID, solID, xrpID)
}

// MarketEnded records a market closing, before resolution is known.
func (t *Tracker) MarketEnded(name string, period int64, conditionID string) {
	t.log.MarketEvent(conditionID, period, fmt.Sprintf(
		"MARKET ENDED | Market: %s | Period: %d | Condition: %s", name, period, shortID(conditionID)))
}

func (t *Tracker) unfilledCountLocked() int {
	n := 0
	for _, o := range t.orders {
		if !o.Filled {
			n++
		}
	}
	return n
}

func (t *Tracker) openCountLocked() int {
	n := 0
	for _, p := range t.positions {
		if !p.Sold {
			n++
		}
	}
	return n
}

func shortID(id string) string {
	if len(id) > 16 {
		return id[:16]
	}
	return id
}
