package trader

import (
	"strings"
	"sync"
	"testing"

	"updownbot/internal/domain"

	"github.com/shopspring/decimal"
)

func buyOrder(tokenID string, asset domain.Asset, side domain.TokenSide, price, size string, period int64) domain.Order {
	return domain.Order{
		TokenID:         tokenID,
		TokenType:       domain.TokenType{Asset: asset, Side: side},
		ConditionID:     "0x" + strings.ToLower(string(asset)),
		Side:            domain.OrderSideBuy,
		TargetPrice:     decimal.RequireFromString(price),
		Size:            decimal.RequireFromString(size),
		PeriodTimestamp: period,
	}
}

func quote(bid, ask string) domain.TokenPrice {
	var p domain.TokenPrice
	if bid != "" {
		d := decimal.RequireFromString(bid)
		p.Bid = &d
	}
	if ask != "" {
		d := decimal.RequireFromString(ask)
		p.Ask = &d
	}
	return p
}

func TestBuyFillsAtObservedAsk(t *testing.T) {
	tracker := newTestTracker(t)
	tracker.AddOrder(buyOrder("tok-up", domain.AssetBTC, domain.SideUp, "0.45", "10", 1699999200))

	tracker.CheckPendingOrders(map[string]domain.TokenPrice{
		"tok-up": quote("0.42", "0.44"),
	})

	open := tracker.OpenPositions()
	if len(open) != 1 {
		t.Fatalf("open positions = %d, want 1", len(open))
	}
	pos := open[0]
	if pos.PurchasePrice.StringFixed(2) != "0.44" {
		t.Errorf("purchase price = %s, want 0.44", pos.PurchasePrice)
	}
	if pos.InvestmentAmount.StringFixed(2) != "4.40" {
		t.Errorf("investment = %s, want 4.40", pos.InvestmentAmount)
	}
	invested, _ := tracker.Totals()
	if invested.StringFixed(2) != "4.40" {
		t.Errorf("total invested = %s, want 4.40", invested)
	}
	if tracker.PendingOrderCount() != 0 {
		t.Error("filled order still counted as pending")
	}
}

func TestBuyDoesNotFillAboveTargetOrAtZero(t *testing.T) {
	tracker := newTestTracker(t)
	tracker.AddOrder(buyOrder("tok-up", domain.AssetBTC, domain.SideUp, "0.45", "10", 1699999200))

	for _, q := range []domain.TokenPrice{
		quote("", "0.46"), // above target
		quote("", "0"),    // zero ask
		quote("0.44", ""), // no ask at all
		{},                // empty book
	} {
		tracker.CheckPendingOrders(map[string]domain.TokenPrice{"tok-up": q})
		if len(tracker.OpenPositions()) != 0 {
			t.Fatalf("order filled on quote %+v", q)
		}
	}

	// Boundary: ask exactly at target fills.
	tracker.CheckPendingOrders(map[string]domain.TokenPrice{"tok-up": quote("", "0.45")})
	if len(tracker.OpenPositions()) != 1 {
		t.Error("order did not fill at ask == target")
	}
}

func TestFillIsPermanent(t *testing.T) {
	tracker := newTestTracker(t)
	tracker.AddOrder(buyOrder("tok-up", domain.AssetBTC, domain.SideUp, "0.45", "10", 1699999200))

	prices := map[string]domain.TokenPrice{"tok-up": quote("", "0.44")}
	tracker.CheckPendingOrders(prices)
	tracker.CheckPendingOrders(prices)
	tracker.CheckPendingOrders(prices)

	if got := len(tracker.OpenPositions()); got != 1 {
		t.Errorf("positions after repeated checks = %d, want 1", got)
	}
	invested, _ := tracker.Totals()
	if invested.StringFixed(2) != "4.40" {
		t.Errorf("invested double-counted: %s", invested)
	}
}

func TestSellFillRealizesPnL(t *testing.T) {
	tracker := newTestTracker(t)
	tracker.AddOrder(buyOrder("tok-up", domain.AssetBTC, domain.SideUp, "0.45", "10", 1699999200))
	tracker.CheckPendingOrders(map[string]domain.TokenPrice{"tok-up": quote("", "0.44")})

	sell := buyOrder("tok-up", domain.AssetBTC, domain.SideUp, "0.60", "10", 1699999200)
	sell.Side = domain.OrderSideSell
	tracker.AddOrder(sell)

	// Bid below target: no fill.
	tracker.CheckPendingOrders(map[string]domain.TokenPrice{"tok-up": quote("0.55", "")})
	if len(tracker.OpenPositions()) != 1 {
		t.Fatal("sell filled below target")
	}

	// Bid at 0.62 fills at the observed bid.
	tracker.CheckPendingOrders(map[string]domain.TokenPrice{"tok-up": quote("0.62", "")})
	if len(tracker.OpenPositions()) != 0 {
		t.Fatal("sell did not fill")
	}
	_, realized := tracker.Totals()
	// (0.62 - 0.44) * 10 = 1.80
	if realized.StringFixed(2) != "1.80" {
		t.Errorf("realized = %s, want 1.80", realized)
	}
}

func TestResolutionWin(t *testing.T) {
	tracker := newTestTracker(t)
	o := buyOrder("tok-up", domain.AssetBTC, domain.SideUp, "0.45", "22.22", 1699999200)
	tracker.AddOrder(o)
	tracker.CheckPendingOrders(map[string]domain.TokenPrice{"tok-up": quote("", "0.45")})

	// investment = 22.22 * 0.45 = 9.999
	spent, earned, net := tracker.ResolveMarket("0xbtc", true)
	if spent.StringFixed(3) != "9.999" {
		t.Errorf("spent = %s", spent)
	}
	if earned.StringFixed(2) != "22.22" {
		t.Errorf("earned = %s, want 22.22", earned)
	}
	_, realized := tracker.Totals()
	if !realized.Equal(net) {
		t.Errorf("realized %s != net %s", realized, net)
	}
	if realized.StringFixed(3) != "12.221" {
		t.Errorf("realized = %s, want 12.221", realized)
	}
	if len(tracker.OpenPositions()) != 0 {
		t.Error("resolved position still open")
	}
}

func TestResolutionLoss(t *testing.T) {
	tracker := newTestTracker(t)
	tracker.AddOrder(buyOrder("tok-up", domain.AssetBTC, domain.SideUp, "0.45", "10", 1699999200))
	tracker.CheckPendingOrders(map[string]domain.TokenPrice{"tok-up": quote("", "0.45")})

	tracker.ResolveMarket("0xbtc", false)

	_, realized := tracker.Totals()
	if realized.StringFixed(2) != "-4.50" {
		t.Errorf("realized = %s, want -4.50", realized)
	}
}

func TestResolutionPnLConservation(t *testing.T) {
	tracker := newTestTracker(t)

	// Up and Down positions on the same market.
	tracker.AddOrder(buyOrder("tok-up", domain.AssetBTC, domain.SideUp, "0.45", "10", 1699999200))
	down := buyOrder("tok-down", domain.AssetBTC, domain.SideDown, "0.45", "10", 1699999200)
	tracker.AddOrder(down)
	tracker.CheckPendingOrders(map[string]domain.TokenPrice{
		"tok-up":   quote("", "0.44"),
		"tok-down": quote("", "0.43"),
	})

	_, before := tracker.Totals()
	spent, earned, net := tracker.ResolveMarket("0xbtc", true)
	_, after := tracker.Totals()

	if !after.Sub(before).Equal(net) {
		t.Errorf("realized delta %s != market net %s", after.Sub(before), net)
	}
	// Up wins $10.00 against $4.40; Down loses $4.30.
	if spent.StringFixed(2) != "8.70" || earned.StringFixed(2) != "10.00" {
		t.Errorf("spent=%s earned=%s", spent, earned)
	}
	if net.StringFixed(2) != "1.30" {
		t.Errorf("net = %s, want 1.30", net)
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	tracker := newTestTracker(t)
	tracker.AddOrder(buyOrder("tok-up", domain.AssetBTC, domain.SideUp, "0.45", "10", 1699999200))
	tracker.CheckPendingOrders(map[string]domain.TokenPrice{"tok-up": quote("", "0.45")})

	tracker.ResolveMarket("0xbtc", true)
	tracker.ResolveMarket("0xbtc", true)

	_, realized := tracker.Totals()
	if realized.StringFixed(2) != "5.50" {
		t.Errorf("realized = %s after double resolve, want 5.50", realized)
	}
}

func TestConcurrentResolveCreditsOnce(t *testing.T) {
	tracker := newTestTracker(t)
	tracker.AddOrder(buyOrder("tok-up", domain.AssetBTC, domain.SideUp, "0.45", "10", 1699999200))
	tracker.CheckPendingOrders(map[string]domain.TokenPrice{"tok-up": quote("", "0.45")})

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.ResolveMarket("0xbtc", true)
		}()
	}
	wg.Wait()

	_, realized := tracker.Totals()
	if realized.StringFixed(2) != "5.50" {
		t.Errorf("realized = %s after concurrent resolves, want 5.50", realized)
	}
	if len(tracker.OpenPositions()) != 0 {
		t.Error("position still open after resolution")
	}
}

func TestExpireOrdersKeepsPositions(t *testing.T) {
	tracker := newTestTracker(t)

	tracker.AddOrder(buyOrder("tok-up", domain.AssetBTC, domain.SideUp, "0.45", "10", 1699999200))
	tracker.AddOrder(buyOrder("tok-down", domain.AssetBTC, domain.SideDown, "0.45", "10", 1699999200))
	// Fill one of the two.
	tracker.CheckPendingOrders(map[string]domain.TokenPrice{"tok-up": quote("", "0.44")})

	tracker.ExpireOrders(1700000100)

	if got := tracker.PendingOrderCount(); got != 0 {
		t.Errorf("pending after expiry = %d, want 0", got)
	}
	if got := len(tracker.OpenPositions()); got != 1 {
		t.Errorf("positions after expiry = %d, want 1", got)
	}

	// Orders of the new period are not expired.
	tracker.AddOrder(buyOrder("tok2-up", domain.AssetETH, domain.SideUp, "0.45", "10", 1700000100))
	tracker.ExpireOrders(1700000100)
	if got := tracker.PendingOrderCount(); got != 1 {
		t.Errorf("current-period order expired, pending = %d", got)
	}
}

func TestUnrealizedPnLAndSummary(t *testing.T) {
	tracker := newTestTracker(t)
	tracker.AddOrder(buyOrder("tok-up", domain.AssetBTC, domain.SideUp, "0.45", "10", 1699999200))
	tracker.CheckPendingOrders(map[string]domain.TokenPrice{"tok-up": quote("", "0.44")})

	prices := map[string]domain.TokenPrice{"tok-up": quote("0.48", "0.52")}
	// mid = 0.50, unrealized = (0.50 - 0.44) * 10 = 0.60
	if got := tracker.UnrealizedPnL(prices); got.StringFixed(2) != "0.60" {
		t.Errorf("unrealized = %s, want 0.60", got)
	}

	s := tracker.Summary(prices)
	for _, want := range []string{
		"SIMULATION POSITION SUMMARY",
		"Total Invested: $4.40",
		"Unrealized PnL: $0.60",
		"Open Positions: 1",
		"BTC Up",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("summary missing %q:\n%s", want, s)
		}
	}
}
