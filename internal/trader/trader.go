// Package trader is the order engine: it turns period-open snapshots into
// symmetric dual-limit buy batches, at most once per period, and tracks the
// resulting orders and positions through market resolution.
package trader

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"updownbot/internal/clock"
	"updownbot/internal/config"
	"updownbot/internal/domain"

	"github.com/shopspring/decimal"
)

// openWindowSeconds is how far into a period the engine may still place the
// period's order batch.
const openWindowSeconds = 2

// Trader consumes PeriodSnapshots. In simulation mode orders land in the
// Tracker; in live mode they are submitted to the exchange. Either way the
// dedup bookkeeping guarantees at most one batch per period.
type Trader struct {
	cfg     config.TradingConfig
	placer  domain.OrderPlacer   // nil in simulation
	markets domain.MarketFetcher // closure detection
	tracker *Tracker
	logger  *slog.Logger

	limitPrice decimal.Decimal
	shares     decimal.Decimal // zero means derive from fixed amount
	fixedAmt   decimal.Decimal

	// periodMu guards the read-modify-write of lastSeenPeriod and
	// lastPlacedPeriod. Two racing snapshots must agree on which one
	// places the batch.
	periodMu         sync.Mutex
	lastSeenPeriod   int64
	lastPlacedPeriod int64
}

// New creates a Trader. placer may be nil for simulation mode; tracker must
// always be set, it carries position state for both modes' dedup checks.
func New(cfg config.TradingConfig, placer domain.OrderPlacer, markets domain.MarketFetcher, tracker *Tracker, logger *slog.Logger) *Trader {
	return &Trader{
		cfg:        cfg,
		placer:     placer,
		markets:    markets,
		tracker:    tracker,
		logger:     logger.With(slog.String("component", "trader")),
		limitPrice: decimal.NewFromFloat(cfg.DualLimitPrice),
		shares:     decimal.NewFromFloat(cfg.DualLimitShares),
		fixedAmt:   decimal.NewFromFloat(cfg.FixedTradeAmount),
	}
}

// HandleSnapshot is the Monitor callback. Decision order: dead-period skip,
// startup skip, open-window check, per-period dedup, batch build, placement.
func (t *Trader) HandleSnapshot(ctx context.Context, snap domain.PeriodSnapshot) {
	if snap.TimeRemainingSeconds == 0 {
		return
	}

	elapsed := clock.PeriodSeconds - snap.TimeRemainingSeconds

	t.periodMu.Lock()
	if t.lastSeenPeriod == 0 {
		// First snapshot after startup: this period is already in
		// flight, never enter it.
		t.lastSeenPeriod = snap.PeriodTimestamp
		t.periodMu.Unlock()
		t.logger.Info("startup inside period, skipping",
			slog.Int64("period", snap.PeriodTimestamp),
			slog.Int64("elapsed_s", elapsed))
		return
	}
	if elapsed > openWindowSeconds {
		t.periodMu.Unlock()
		return
	}
	if t.lastPlacedPeriod == snap.PeriodTimestamp {
		t.periodMu.Unlock()
		return
	}
	t.lastPlacedPeriod = snap.PeriodTimestamp
	t.periodMu.Unlock()

	opps := t.buildOpportunities(snap, elapsed)
	t.logger.Info("placing period batch",
		slog.Int64("period", snap.PeriodTimestamp),
		slog.Int64("elapsed_s", elapsed),
		slog.Int("opportunities", len(opps)))

	for _, opp := range opps {
		t.place(ctx, opp)
	}
}

// buildOpportunities emits one Up and one Down buy per tradable enabled
// asset at the configured limit price. Tokens absent from the market
// descriptor are skipped.
func (t *Trader) buildOpportunities(snap domain.PeriodSnapshot, elapsed int64) []domain.BuyOpportunity {
	var opps []domain.BuyOpportunity

	for _, asset := range domain.Assets {
		if !t.assetEnabled(asset) {
			continue
		}
		m := snap.View(asset).Market
		if !m.Tradable() {
			continue
		}
		for _, tok := range []*domain.TokenInfo{m.UpToken, m.DownToken} {
			if tok == nil {
				continue
			}
			opps = append(opps, domain.BuyOpportunity{
				ConditionID:        m.ConditionID,
				TokenID:            tok.TokenID,
				TokenType:          domain.TokenType{Asset: asset, Side: tok.Outcome},
				BidPrice:           t.limitPrice,
				PeriodTimestamp:    snap.PeriodTimestamp,
				TimeElapsedSeconds: elapsed,
			})
		}
	}
	return opps
}

func (t *Trader) assetEnabled(a domain.Asset) bool {
	switch a {
	case domain.AssetBTC:
		return true
	case domain.AssetETH:
		return t.cfg.EnableEthTrading
	case domain.AssetSolana:
		return t.cfg.EnableSolanaTrading
	case domain.AssetXRP:
		return t.cfg.EnableXrpTrading
	default:
		return false
	}
}

// orderSize returns the share count per order: the explicit configured size,
// or the dollar budget divided by the limit price rounded to six decimals.
func (t *Trader) orderSize() decimal.Decimal {
	if t.shares.IsPositive() {
		return t.shares
	}
	return t.fixedAmt.Div(t.limitPrice).Round(6)
}

// place submits one opportunity, skipping token types that already hold an
// active position this period. Placement failures are logged and dropped;
// the period dedup prevents a retry within the same period.
func (t *Trader) place(ctx context.Context, opp domain.BuyOpportunity) {
	if t.tracker.ActivePositionExists(opp.PeriodTimestamp, opp.TokenType) {
		t.logger.Info("skipping, active position exists",
			slog.String("token", opp.TokenType.String()),
			slog.Int64("period", opp.PeriodTimestamp))
		return
	}

	order := domain.Order{
		TokenID:         opp.TokenID,
		TokenType:       opp.TokenType,
		ConditionID:     opp.ConditionID,
		Side:            domain.OrderSideBuy,
		TargetPrice:     opp.BidPrice,
		Size:            t.orderSize(),
		PeriodTimestamp: opp.PeriodTimestamp,
	}

	if t.placer != nil {
		id, err := t.placer.PlaceLimitOrder(ctx, domain.LimitOrderRequest{
			TokenID: order.TokenID,
			Side:    order.Side,
			Price:   order.TargetPrice,
			Size:    order.Size,
		})
		if err != nil {
			t.logger.Warn("order placement failed",
				slog.String("token", opp.TokenType.String()),
				slog.String("error", err.Error()))
			return
		}
		order.ID = id
		t.logger.Info("order placed",
			slog.String("token", opp.TokenType.String()),
			slog.String("order_id", id),
			slog.String("price", order.TargetPrice.String()),
			slog.String("size", order.Size.String()))
	}

	// Both modes record the order in the book: live orders keep the
	// exchange id and are archived by ResetPeriod like simulated ones.
	t.tracker.AddOrder(order)
}

// ResetPeriod archives unfilled orders from periods before newPeriod.
// Positions survive the boundary; they resolve with their market.
func (t *Trader) ResetPeriod(newPeriod int64) {
	t.tracker.ExpireOrders(newPeriod)
}

// CheckClosures polls each open position's market and resolves positions on
// markets that have closed with a published outcome. Closed markets without
// an outcome are retried on the next tick.
func (t *Trader) CheckClosures(ctx context.Context) {
	checked := make(map[string]bool)

	for _, pos := range t.tracker.OpenPositions() {
		if checked[pos.ConditionID] {
			continue
		}
		checked[pos.ConditionID] = true

		m, err := t.markets.GetMarketByCondition(ctx, pos.ConditionID)
		if err != nil {
			t.logger.Warn("closure check failed",
				slog.String("condition_id", pos.ConditionID),
				slog.String("error", err.Error()))
			continue
		}
		if !m.Closed {
			continue
		}
		if m.Outcome == nil {
			t.logger.Info("market closed, outcome pending",
				slog.String("condition_id", pos.ConditionID))
			continue
		}

		t.tracker.MarketEnded(fmt.Sprintf("%s period %d", pos.TokenType.Asset, pos.PeriodTimestamp),
			pos.PeriodTimestamp, pos.ConditionID)
		spent, earned, net := t.tracker.ResolveMarket(pos.ConditionID, *m.Outcome == domain.SideUp)
		t.logger.Info("market resolved",
			slog.String("condition_id", pos.ConditionID),
			slog.String("outcome", string(*m.Outcome)),
			slog.String("spent", spent.StringFixed(2)),
			slog.String("earned", earned.StringFixed(2)),
			slog.String("net", net.StringFixed(2)))
	}
}
