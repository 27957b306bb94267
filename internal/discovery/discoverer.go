// Package discovery locates the active 15-minute market for each asset at
// every period boundary, with fallback over recent periods and placeholder
// markets for disabled assets.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"updownbot/internal/clock"
	"updownbot/internal/domain"
)

// previousOffsets are the period fallbacks tried when allowPrevious is set.
// Markets are sometimes listed under the slug of a slightly earlier period.
var previousOffsets = []int64{-900, -1800, -2700}

// Discoverer resolves assets to tradable markets via slug lookups against
// the Gamma API.
type Discoverer struct {
	markets domain.MarketFetcher
	enabled map[domain.Asset]bool
	logger  *slog.Logger

	now func() int64
}

// New creates a Discoverer. enabled controls which optional assets are
// looked up; BTC is always treated as enabled.
func New(markets domain.MarketFetcher, enabled map[domain.Asset]bool, logger *slog.Logger) *Discoverer {
	return &Discoverer{
		markets: markets,
		enabled: enabled,
		logger:  logger.With(slog.String("component", "discovery")),
		now:     func() int64 { return time.Now().Unix() },
	}
}

// Enabled reports whether the asset participates in trading.
func (d *Discoverer) Enabled(a domain.Asset) bool {
	return a == domain.AssetBTC || d.enabled[a]
}

// Discover returns a tradable market for the asset whose condition id is not
// in seen. Each slug prefix is tried at the current period first; with
// allowPrevious the three preceding periods are tried before moving to the
// next prefix. Exhaustion maps to domain.ErrNotFound.
func (d *Discoverer) Discover(ctx context.Context, asset domain.Asset, seen map[string]bool, allowPrevious bool) (domain.Market, error) {
	p := clock.PeriodStart(d.now())

	offsets := []int64{0}
	if allowPrevious {
		offsets = append(offsets, previousOffsets...)
	}

	for _, prefix := range asset.SlugPrefixes() {
		for _, off := range offsets {
			slug := fmt.Sprintf("%s-updown-15m-%d", prefix, p+off)

			m, err := d.markets.GetMarketBySlug(ctx, slug)
			if err != nil {
				if !errors.Is(err, domain.ErrNotFound) {
					d.logger.Warn("slug lookup failed",
						slog.String("slug", slug),
						slog.String("error", err.Error()))
				}
				continue
			}
			if !m.Active || m.Closed {
				continue
			}
			if seen[m.ConditionID] {
				d.logger.Debug("rejecting already-seen market",
					slog.String("slug", slug),
					slog.String("condition_id", m.ConditionID))
				continue
			}

			d.logger.Info("market discovered",
				slog.String("asset", string(asset)),
				slog.String("slug", slug),
				slog.String("condition_id", m.ConditionID))
			return m, nil
		}
	}

	return domain.Market{}, fmt.Errorf("discovery: %w: asset=%s period=%d", domain.ErrNotFound, asset, p)
}

// DiscoverAll performs the startup discovery pass. A missing BTC market is
// an error; disabled or undiscoverable optional assets fall back to their
// dummy markets. The returned set has not yet been checked for duplicates.
func (d *Discoverer) DiscoverAll(ctx context.Context) (domain.MarketSet, error) {
	var set domain.MarketSet

	btc, err := d.Discover(ctx, domain.AssetBTC, nil, true)
	if err != nil {
		return domain.MarketSet{}, fmt.Errorf("discovery: BTC market unavailable: %w", err)
	}
	set.BTC = btc

	set.ETH = d.discoverOptional(ctx, domain.AssetETH)
	set.Solana = d.discoverOptional(ctx, domain.AssetSolana)
	set.XRP = d.discoverOptional(ctx, domain.AssetXRP)

	return set, nil
}

func (d *Discoverer) discoverOptional(ctx context.Context, asset domain.Asset) domain.Market {
	if !d.Enabled(asset) {
		return domain.DummyMarket(asset)
	}
	m, err := d.Discover(ctx, asset, nil, true)
	if err != nil {
		d.logger.Warn("falling back to dummy market",
			slog.String("asset", string(asset)),
			slog.String("error", err.Error()))
		return domain.DummyMarket(asset)
	}
	return m
}

// ValidateDistinct enforces pairwise condition-id uniqueness across the set.
// Dummy markets are excluded. A violation at startup is fatal.
func ValidateDistinct(set domain.MarketSet) error {
	ids := make(map[string]domain.Asset)
	for _, a := range domain.Assets {
		m := set.ByAsset(a)
		if m.IsDummy() || m.ConditionID == "" {
			continue
		}
		if other, dup := ids[m.ConditionID]; dup {
			return fmt.Errorf("discovery: %w: %s and %s both resolved to %s",
				domain.ErrDuplicateCondition, other, a, m.ConditionID)
		}
		ids[m.ConditionID] = a
	}
	return nil
}
