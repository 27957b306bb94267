// Package config defines the top-level configuration for the up/down bot and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by UPDOWN_* environment variables.
type Config struct {
	Trading    TradingConfig    `toml:"trading"`
	Polymarket PolymarketConfig `toml:"polymarket"`
	History    HistoryConfig    `toml:"history"`
	LogLevel   string           `toml:"log_level"`
	LogFile    string           `toml:"log_file"`

	// Simulation is set from the -simulation CLI flag, never from TOML.
	Simulation bool `toml:"-"`
}

// TradingConfig holds the dual-limit strategy parameters.
type TradingConfig struct {
	// DualLimitPrice is the fixed resting price for both Up and Down limit
	// buys, in dollars per share.
	DualLimitPrice float64 `toml:"dual_limit_price"`

	// DualLimitShares is the explicit share count per order. When zero,
	// shares are derived as FixedTradeAmount / DualLimitPrice.
	DualLimitShares float64 `toml:"dual_limit_shares"`

	// FixedTradeAmount is the dollar budget per order, used when
	// DualLimitShares is unset.
	FixedTradeAmount float64 `toml:"fixed_trade_amount"`

	// CheckIntervalMs is the monitor's quote poll cadence.
	CheckIntervalMs int `toml:"check_interval_ms"`

	// FillCheckIntervalMs is the simulation fill-check cadence.
	FillCheckIntervalMs int `toml:"fill_check_interval_ms"`

	// MarketClosureCheckIntervalSeconds is the closure-watcher cadence.
	MarketClosureCheckIntervalSeconds int `toml:"market_closure_check_interval_seconds"`

	// SummaryIntervalSeconds is the simulation position-summary cadence.
	SummaryIntervalSeconds int `toml:"summary_interval_seconds"`

	EnableEthTrading    bool `toml:"enable_eth_trading"`
	EnableSolanaTrading bool `toml:"enable_solana_trading"`
	EnableXrpTrading    bool `toml:"enable_xrp_trading"`
}

// PolymarketConfig holds Polymarket API endpoints and signing identity.
type PolymarketConfig struct {
	GammaAPIURL   string `toml:"gamma_api_url"`
	ClobAPIURL    string `toml:"clob_api_url"`
	WsURL         string `toml:"ws_url"`
	ChainID       int    `toml:"chain_id"`
	SignatureType int    `toml:"signature_type"`

	ApiKey        string `toml:"api_key"`
	ApiSecret     string `toml:"api_secret"`
	ApiPassphrase string `toml:"api_passphrase"`

	PrivateKey         string `toml:"private_key"`
	EncryptedKeyPath   string `toml:"encrypted_key_path"`
	KeyPassword        string `toml:"key_password"`
	ProxyWalletAddress string `toml:"proxy_wallet_address"`
}

// HistoryConfig holds the simulation event-log layout.
type HistoryConfig struct {
	// File is the append-only main event log.
	File string `toml:"file"`
	// Dir is the directory for per-market event logs.
	Dir string `toml:"dir"`
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Trading: TradingConfig{
			DualLimitPrice:                    0.45,
			DualLimitShares:                   0,
			FixedTradeAmount:                  10.0,
			CheckIntervalMs:                   500,
			FillCheckIntervalMs:               1000,
			MarketClosureCheckIntervalSeconds: 5,
			SummaryIntervalSeconds:            30,
			EnableEthTrading:                  true,
			EnableSolanaTrading:               true,
			EnableXrpTrading:                  true,
		},
		Polymarket: PolymarketConfig{
			GammaAPIURL:   "https://gamma-api.polymarket.com",
			ClobAPIURL:    "https://clob.polymarket.com",
			WsURL:         "wss://ws-subscriptions-clob.polymarket.com/ws/market",
			ChainID:       137,
			SignatureType: 2,
		},
		History: HistoryConfig{
			File: "history.toml",
			Dir:  "history",
		},
		LogLevel: "info",
		LogFile:  "updownbot.log",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Trading.DualLimitPrice <= 0 || c.Trading.DualLimitPrice >= 1 {
		errs = append(errs, fmt.Sprintf("trading: dual_limit_price must be in (0, 1), got %v", c.Trading.DualLimitPrice))
	}
	if c.Trading.DualLimitShares < 0 {
		errs = append(errs, "trading: dual_limit_shares must be >= 0")
	}
	if c.Trading.DualLimitShares == 0 && c.Trading.FixedTradeAmount <= 0 {
		errs = append(errs, "trading: fixed_trade_amount must be > 0 when dual_limit_shares is unset")
	}
	if c.Trading.CheckIntervalMs < 1 {
		errs = append(errs, "trading: check_interval_ms must be >= 1")
	}
	if c.Trading.FillCheckIntervalMs < 1 {
		errs = append(errs, "trading: fill_check_interval_ms must be >= 1")
	}
	if c.Trading.MarketClosureCheckIntervalSeconds < 1 {
		errs = append(errs, "trading: market_closure_check_interval_seconds must be >= 1")
	}
	if c.Trading.SummaryIntervalSeconds < 1 {
		errs = append(errs, "trading: summary_interval_seconds must be >= 1")
	}

	if c.Polymarket.GammaAPIURL == "" {
		errs = append(errs, "polymarket: gamma_api_url must not be empty")
	}
	if c.Polymarket.ClobAPIURL == "" {
		errs = append(errs, "polymarket: clob_api_url must not be empty")
	}
	if c.Polymarket.ChainID <= 0 {
		errs = append(errs, "polymarket: chain_id must be positive")
	}
	if c.Polymarket.SignatureType != 0 && c.Polymarket.SignatureType != 1 && c.Polymarket.SignatureType != 2 {
		errs = append(errs, fmt.Sprintf("polymarket: signature_type must be 0 (EOA), 1 (proxy) or 2 (Safe), got %d", c.Polymarket.SignatureType))
	}

	// Live mode needs a signing key; simulation places nothing upstream.
	if !c.Simulation {
		if c.Polymarket.PrivateKey == "" && c.Polymarket.EncryptedKeyPath == "" {
			errs = append(errs, "polymarket: either private_key or encrypted_key_path must be set for live trading")
		}
		if c.Polymarket.EncryptedKeyPath != "" && c.Polymarket.KeyPassword == "" {
			errs = append(errs, "polymarket: key_password is required when encrypted_key_path is set")
		}
	}

	if c.History.File == "" {
		errs = append(errs, "history: file must not be empty")
	}
	if c.History.Dir == "" {
		errs = append(errs, "history: dir must not be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
