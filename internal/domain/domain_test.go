package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestMid(t *testing.T) {
	bid := decimal.RequireFromString("0.44")
	ask := decimal.RequireFromString("0.46")

	mid, ok := TokenPrice{Bid: &bid, Ask: &ask}.Mid()
	if !ok || mid.String() != "0.45" {
		t.Errorf("Mid = %s, %v", mid, ok)
	}

	for _, p := range []TokenPrice{{}, {Bid: &bid}, {Ask: &ask}} {
		if _, ok := p.Mid(); ok {
			t.Errorf("Mid defined for one-sided book %+v", p)
		}
	}
}

func TestOrderKeySeparatesSides(t *testing.T) {
	buy := Order{TokenID: "tok", Side: OrderSideBuy}
	sell := Order{TokenID: "tok", Side: OrderSideSell}
	if buy.Key() == sell.Key() {
		t.Error("buy and sell share a key")
	}
	if buy.Key() != (Order{TokenID: "tok", Side: OrderSideBuy}).Key() {
		t.Error("key not stable")
	}
}

func TestDummyMarket(t *testing.T) {
	for _, a := range Assets {
		m := DummyMarket(a)
		if !m.IsDummy() {
			t.Errorf("%s dummy not recognized", a)
		}
		if m.Tradable() {
			t.Errorf("%s dummy is tradable", a)
		}
	}

	real := Market{ConditionID: "0xabc", Active: true}
	if real.IsDummy() || !real.Tradable() {
		t.Errorf("real market misclassified: %+v", real)
	}
}

func TestSlugPrefixes(t *testing.T) {
	if got := AssetSolana.SlugPrefixes(); len(got) != 2 || got[0] != "solana" || got[1] != "sol" {
		t.Errorf("Solana prefixes = %v", got)
	}
	if got := AssetBTC.SlugPrefixes(); len(got) != 1 || got[0] != "btc" {
		t.Errorf("BTC prefixes = %v", got)
	}
}

func TestSnapshotView(t *testing.T) {
	snap := PeriodSnapshot{
		BTC: MarketView{Market: Market{ConditionID: "0xbtc"}},
		ETH: MarketView{Market: Market{ConditionID: "0xeth"}},
	}
	if snap.View(AssetBTC).Market.ConditionID != "0xbtc" {
		t.Error("BTC view wrong")
	}
	if snap.View(AssetETH).Market.ConditionID != "0xeth" {
		t.Error("ETH view wrong")
	}
	if snap.View(Asset("DOGE")).Market.ConditionID != "" {
		t.Error("unknown asset returned a view")
	}
}
