package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"updownbot/internal/config"
	"updownbot/internal/crypto"
	"updownbot/internal/discovery"
	"updownbot/internal/domain"
	"updownbot/internal/history"
	"updownbot/internal/monitor"
	"updownbot/internal/platform/polymarket"
	"updownbot/internal/scheduler"
	"updownbot/internal/trader"
)

// Dependencies bundles everything the run loop needs. It is constructed by
// Wire and torn down by the returned cleanup function.
type Dependencies struct {
	History    *history.Log
	Gamma      *polymarket.GammaClient
	Clob       *polymarket.ClobClient
	Feed       *polymarket.QuoteFeed // nil when no WebSocket URL is configured
	Tracker    *trader.Tracker
	Discoverer *discovery.Discoverer
	Monitor    *monitor.Monitor
	Trader     *trader.Trader
	Scheduler  *scheduler.Scheduler
}

// Wire constructs the dependency graph from the configuration, performs the
// startup market discovery, and returns the dependencies together with a
// cleanup function. A missing BTC market or duplicate condition ids across
// the discovered set are startup failures.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	log, err := history.Open(cfg.History.File, cfg.History.Dir)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: history: %w", err)
	}
	closers = append(closers, func() { _ = log.Close() })
	deps.History = log

	deps.Gamma = polymarket.NewGammaClient(cfg.Polymarket.GammaAPIURL)

	// The CLOB client serves quotes in both modes; signing identity is only
	// wired for live trading.
	var signer *crypto.Signer
	creds := &crypto.APICreds{
		Key:        cfg.Polymarket.ApiKey,
		Secret:     cfg.Polymarket.ApiSecret,
		Passphrase: cfg.Polymarket.ApiPassphrase,
	}
	if !cfg.Simulation {
		keyHex, err := crypto.LoadKey(crypto.KeySource{
			RawPrivateKey:    cfg.Polymarket.PrivateKey,
			EncryptedKeyPath: cfg.Polymarket.EncryptedKeyPath,
			KeyPassword:      cfg.Polymarket.KeyPassword,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: signing key: %w", err)
		}
		signer, err = crypto.NewSigner(keyHex, cfg.Polymarket.ChainID)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: signer: %w", err)
		}
	}
	deps.Clob = polymarket.NewClobClient(
		cfg.Polymarket.ClobAPIURL, signer, creds,
		cfg.Polymarket.ProxyWalletAddress, cfg.Polymarket.SignatureType,
	)

	// The tracker carries order and position state in both modes; live mode
	// uses it for the active-position dedup check.
	deps.Tracker = trader.NewTracker(log, logger)

	deps.Discoverer = discovery.New(deps.Gamma, map[domain.Asset]bool{
		domain.AssetETH:    cfg.Trading.EnableEthTrading,
		domain.AssetSolana: cfg.Trading.EnableSolanaTrading,
		domain.AssetXRP:    cfg.Trading.EnableXrpTrading,
	}, logger)

	set, err := deps.Discoverer.DiscoverAll(ctx)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: startup discovery: %w", err)
	}
	if err := discovery.ValidateDistinct(set); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: startup discovery: %w", err)
	}

	deps.Monitor = monitor.New(
		deps.Clob, set,
		time.Duration(cfg.Trading.CheckIntervalMs)*time.Millisecond,
		logger,
	)

	var placer domain.OrderPlacer
	if !cfg.Simulation {
		placer = deps.Clob
	}
	deps.Trader = trader.New(cfg.Trading, placer, deps.Gamma, deps.Tracker, logger)
	deps.Monitor.SetHandler(deps.Trader.HandleSnapshot)

	var onUpdate func()
	if cfg.Polymarket.WsURL != "" {
		feed := polymarket.NewQuoteFeed(cfg.Polymarket.WsURL, deps.Monitor.ApplyQuote)
		closers = append(closers, func() { _ = feed.Close() })
		deps.Feed = feed
		onUpdate = func() { _ = feed.Subscribe(deps.Monitor.TokenIDs()) }
	}

	var simTracker *trader.Tracker
	if cfg.Simulation {
		simTracker = deps.Tracker
	}
	deps.Scheduler = scheduler.New(deps.Discoverer, deps.Monitor, deps.Trader, simTracker, onUpdate, logger)

	if cfg.Simulation {
		deps.Tracker.MarketStart(deps.Monitor.CurrentPeriod(),
			set.ETH.ConditionID, set.BTC.ConditionID,
			set.Solana.ConditionID, set.XRP.ConditionID)
	}

	return deps, cleanup, nil
}
