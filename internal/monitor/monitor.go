// Package monitor owns the current four-asset market set, polls top-of-book
// quotes, and delivers period snapshots to a registered callback.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"updownbot/internal/clock"
	"updownbot/internal/domain"
)

// SnapshotHandler consumes one immutable PeriodSnapshot. Handlers are
// invoked synchronously from the poll loop, so delivery is serialized and a
// snapshot never mixes prices from before and after a market swap.
type SnapshotHandler func(ctx context.Context, snap domain.PeriodSnapshot)

// Monitor polls quotes for every token of the current market set at a fixed
// cadence and emits a snapshot after each poll.
type Monitor struct {
	quotes   domain.QuoteFetcher
	interval time.Duration
	logger   *slog.Logger
	handler  SnapshotHandler

	mu     sync.RWMutex
	set    domain.MarketSet
	prices map[string]domain.TokenPrice

	now func() int64
}

// New creates a Monitor over the initial market set.
func New(quotes domain.QuoteFetcher, initial domain.MarketSet, interval time.Duration, logger *slog.Logger) *Monitor {
	return &Monitor{
		quotes:   quotes,
		interval: interval,
		logger:   logger.With(slog.String("component", "monitor")),
		set:      initial,
		prices:   make(map[string]domain.TokenPrice),
		now:      func() int64 { return time.Now().Unix() },
	}
}

// SetHandler registers the snapshot callback. Must be called before Run.
func (m *Monitor) SetHandler(h SnapshotHandler) {
	m.handler = h
}

// Run polls until ctx is done. Each cycle fetches quotes for every known
// token, then hands the assembled snapshot to the handler.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Poll(ctx)
		}
	}
}

// Poll runs one quote-fetch cycle and emits the resulting snapshot.
func (m *Monitor) Poll(ctx context.Context) {
	for _, tokenID := range m.tokenIDs() {
		price, err := m.quotes.GetTopOfBook(ctx, tokenID)
		if err != nil {
			// Stale quotes age out naturally; skip this token this poll.
			m.logger.Debug("quote fetch failed",
				slog.String("token_id", tokenID),
				slog.String("error", err.Error()))
			continue
		}
		m.ApplyQuote(tokenID, price)
	}

	snap := m.Snapshot()
	if m.handler != nil {
		m.handler(ctx, snap)
	}
}

// ApplyQuote stores a top-of-book update. Quotes for tokens outside the
// current market set are dropped; this keeps pushed WebSocket updates from a
// previous period out of the cache after a swap.
func (m *Monitor) ApplyQuote(tokenID string, price domain.TokenPrice) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.knownTokenLocked(tokenID) {
		return
	}
	m.prices[tokenID] = price
}

// Snapshot assembles the current view. TimeRemainingSeconds is computed from
// the BTC market's period and floors at zero once the period has ended.
func (m *Monitor) Snapshot() domain.PeriodSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	period := m.set.BTC.PeriodTimestamp
	remaining := period + clock.PeriodSeconds - now
	if remaining < 0 {
		remaining = 0
	}

	return domain.PeriodSnapshot{
		PeriodTimestamp:      period,
		TimeRemainingSeconds: remaining,
		ETH:                  m.viewLocked(m.set.ETH),
		BTC:                  m.viewLocked(m.set.BTC),
		Solana:               m.viewLocked(m.set.Solana),
		XRP:                  m.viewLocked(m.set.XRP),
	}
}

// UpdateMarkets atomically swaps the market set and clears the quote cache,
// so no snapshot can pair old prices with new markets.
func (m *Monitor) UpdateMarkets(eth, btc, sol, xrp domain.Market) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.set = domain.MarketSet{ETH: eth, BTC: btc, Solana: sol, XRP: xrp}
	m.prices = make(map[string]domain.TokenPrice)

	m.logger.Info("market set updated",
		slog.Int64("period", btc.PeriodTimestamp),
		slog.String("btc", btc.ConditionID),
		slog.String("eth", eth.ConditionID),
		slog.String("sol", sol.ConditionID),
		slog.String("xrp", xrp.ConditionID))
}

// CurrentPeriod returns the period timestamp of the held BTC market.
func (m *Monitor) CurrentPeriod() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.set.BTC.PeriodTimestamp
}

// ConditionIDs returns the condition ids of the current set, dummies
// included, in (ETH, BTC, Solana, XRP) order.
func (m *Monitor) ConditionIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.set.ConditionIDs()
}

// Markets returns a copy of the current market set.
func (m *Monitor) Markets() domain.MarketSet {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.set
}

// Prices returns a copy of the quote cache keyed by token id.
func (m *Monitor) Prices() map[string]domain.TokenPrice {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]domain.TokenPrice, len(m.prices))
	for k, v := range m.prices {
		out[k] = v
	}
	return out
}

// TokenIDs returns every token id of the current set, for feed subscription.
func (m *Monitor) TokenIDs() []string {
	return m.tokenIDs()
}

func (m *Monitor) tokenIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, 8)
	for _, a := range domain.Assets {
		mk := m.set.ByAsset(a)
		if mk.IsDummy() {
			continue
		}
		if mk.UpToken != nil {
			ids = append(ids, mk.UpToken.TokenID)
		}
		if mk.DownToken != nil {
			ids = append(ids, mk.DownToken.TokenID)
		}
	}
	return ids
}

// knownTokenLocked reports whether tokenID belongs to the current set.
// Caller must hold m.mu.
func (m *Monitor) knownTokenLocked(tokenID string) bool {
	for _, a := range domain.Assets {
		mk := m.set.ByAsset(a)
		if mk.UpToken != nil && mk.UpToken.TokenID == tokenID {
			return true
		}
		if mk.DownToken != nil && mk.DownToken.TokenID == tokenID {
			return true
		}
	}
	return false
}

// viewLocked builds one asset's MarketView. Caller must hold m.mu.
func (m *Monitor) viewLocked(mk domain.Market) domain.MarketView {
	view := domain.MarketView{Market: mk}
	if mk.UpToken != nil {
		if p, ok := m.prices[mk.UpToken.TokenID]; ok {
			cp := p
			view.UpPrice = &cp
		}
	}
	if mk.DownToken != nil {
		if p, ok := m.prices[mk.DownToken.TokenID]; ok {
			cp := p
			view.DownPrice = &cp
		}
	}
	return view
}
