// Package app owns the application lifecycle for the up/down bot. It wires
// the exchange clients, market discovery, monitor, trader, and scheduler, and
// runs them as a goroutine group until the context is cancelled.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"updownbot/internal/config"
)

// App is the root application object.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates an App from a validated configuration.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires the dependencies, starts the run loops, and blocks until the
// context is cancelled or a loop fails. Cancellation is a clean shutdown, not
// an error.
func (a *App) Run(ctx context.Context) error {
	mode := "live"
	if a.cfg.Simulation {
		mode = "simulation"
	}
	a.logger.InfoContext(ctx, "starting up/down bot",
		slog.String("mode", mode),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	// Live mode derives API credentials when none are configured. Quote
	// polling and order signing work without them only partially, so a
	// failure here is surfaced but not fatal.
	if !a.cfg.Simulation && a.cfg.Polymarket.ApiKey == "" {
		if err := deps.Clob.DeriveAPIKey(ctx); err != nil {
			a.logger.WarnContext(ctx, "API key derivation failed, authenticated endpoints unavailable",
				slog.String("error", err.Error()))
		}
	}

	// The WebSocket feed is a push supplement; polling stays authoritative,
	// so a failed connect only logs.
	if deps.Feed != nil {
		if err := deps.Feed.Connect(ctx); err != nil {
			a.logger.WarnContext(ctx, "quote feed connect failed, continuing on polling only",
				slog.String("error", err.Error()))
		} else if err := deps.Feed.Subscribe(deps.Monitor.TokenIDs()); err != nil {
			a.logger.WarnContext(ctx, "quote feed subscribe failed",
				slog.String("error", err.Error()))
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return deps.Monitor.Run(ctx)
	})
	g.Go(func() error {
		return deps.Scheduler.Run(ctx)
	})
	g.Go(func() error {
		return a.tick(ctx, time.Duration(a.cfg.Trading.MarketClosureCheckIntervalSeconds)*time.Second, func() {
			deps.Trader.CheckClosures(ctx)
		})
	})

	if a.cfg.Simulation {
		g.Go(func() error {
			return a.tick(ctx, time.Duration(a.cfg.Trading.FillCheckIntervalMs)*time.Millisecond, func() {
				deps.Tracker.CheckPendingOrders(deps.Monitor.Prices())
			})
		})
		g.Go(func() error {
			return a.tick(ctx, time.Duration(a.cfg.Trading.SummaryIntervalSeconds)*time.Second, func() {
				deps.Tracker.Summary(deps.Monitor.Prices())
			})
		})
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close tears down all resources in reverse registration order. Safe to call
// more than once.
func (a *App) Close() {
	a.logger.Info("shutting down")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// tick runs fn at the given interval until ctx is done.
func (a *App) tick(ctx context.Context, interval time.Duration, fn func()) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			fn()
		}
	}
}
