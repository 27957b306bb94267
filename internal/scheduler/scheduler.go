// Package scheduler drives the period rollover: it sleeps to each 15-minute
// boundary, re-discovers the four markets, swaps them into the monitor, and
// resets the trader's per-period bookkeeping.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"updownbot/internal/clock"
	"updownbot/internal/discovery"
	"updownbot/internal/domain"
	"updownbot/internal/monitor"
	"updownbot/internal/trader"
)

// anomalyThresholdSeconds bounds a plausible sleep-to-boundary. Anything
// longer means the clock moved; re-check after a short pause instead.
const anomalyThresholdSeconds = 1800

// Scheduler is the top-level control loop.
type Scheduler struct {
	discoverer *discovery.Discoverer
	monitor    *monitor.Monitor
	trader     *trader.Trader
	tracker    *trader.Tracker // nil outside simulation
	logger     *slog.Logger

	// onUpdate runs after each market swap, e.g. to resubscribe a quote
	// feed to the new token set.
	onUpdate func()

	now   func() int64
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Scheduler. tracker may be nil in live mode; onUpdate may be
// nil.
func New(d *discovery.Discoverer, m *monitor.Monitor, t *trader.Trader, tracker *trader.Tracker, onUpdate func(), logger *slog.Logger) *Scheduler {
	return &Scheduler{
		discoverer: d,
		monitor:    m,
		trader:     t,
		tracker:    tracker,
		logger:     logger.With(slog.String("component", "scheduler")),
		onUpdate:   onUpdate,
		now:        func() int64 { return time.Now().Unix() },
		sleep:      sleepCtx,
	}
}

// Run loops until ctx is done. Each iteration sleeps to the next boundary
// (unless the monitor's period already disagrees with the clock) and then
// performs one rollover.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		now := s.now()
		p := clock.PeriodStart(now)
		known := s.monitor.CurrentPeriod()

		// wait is computed from a second clock read, so a wall-clock jump
		// between the reads lands in the guard below instead of producing
		// an hours-long sleep.
		wait := clock.NextBoundary(now) - s.now()

		switch {
		case known != 0 && known != p:
			s.logger.Info("period mismatch, rolling over immediately",
				slog.Int64("monitor_period", known),
				slog.Int64("clock_period", p))

		case wait <= 0:
			// At or past a boundary; roll over now.

		case wait < anomalyThresholdSeconds:
			s.logger.Debug("sleeping to next boundary", slog.Int64("seconds", wait))
			if err := s.sleep(ctx, time.Duration(wait)*time.Second); err != nil {
				return err
			}

		default:
			s.logger.Warn("implausible time to next boundary, re-checking",
				slog.Int64("seconds", wait))
			if err := s.sleep(ctx, 5*time.Second); err != nil {
				return err
			}
			continue
		}

		s.Rollover(ctx)
	}
}

// Rollover re-discovers every asset's market, seeding the seen set with the
// currently-held condition ids so a stale market cannot be re-adopted, then
// swaps the set and resets the trader. Discovery failures retain the
// previous market for that asset.
func (s *Scheduler) Rollover(ctx context.Context) {
	newPeriod := clock.PeriodStart(s.now())
	prev := s.monitor.Markets()

	seen := make(map[string]bool)
	for _, id := range s.monitor.ConditionIDs() {
		seen[id] = true
	}

	next := domain.MarketSet{
		ETH:    s.rediscover(ctx, domain.AssetETH, prev.ETH, seen),
		BTC:    s.rediscover(ctx, domain.AssetBTC, prev.BTC, seen),
		Solana: s.rediscover(ctx, domain.AssetSolana, prev.Solana, seen),
		XRP:    s.rediscover(ctx, domain.AssetXRP, prev.XRP, seen),
	}

	// A mid-flight duplicate is logged and skipped; the previous set
	// stays in place until the next boundary.
	if err := discovery.ValidateDistinct(next); err != nil {
		s.logger.Error("duplicate condition ids after rollover, keeping previous markets",
			slog.String("error", err.Error()))
		return
	}

	s.monitor.UpdateMarkets(next.ETH, next.BTC, next.Solana, next.XRP)
	s.trader.ResetPeriod(newPeriod)

	if s.tracker != nil {
		s.tracker.MarketStart(newPeriod,
			next.ETH.ConditionID, next.BTC.ConditionID,
			next.Solana.ConditionID, next.XRP.ConditionID)
	}
	if s.onUpdate != nil {
		s.onUpdate()
	}
}

func (s *Scheduler) rediscover(ctx context.Context, asset domain.Asset, prev domain.Market, seen map[string]bool) domain.Market {
	if !s.discoverer.Enabled(asset) {
		return domain.DummyMarket(asset)
	}

	m, err := s.discoverer.Discover(ctx, asset, seen, true)
	if err != nil {
		s.logger.Warn("discovery failed, retaining previous market",
			slog.String("asset", string(asset)),
			slog.String("condition_id", prev.ConditionID),
			slog.String("error", err.Error()))
		return prev
	}
	return m
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
