package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies UPDOWN_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known UPDOWN_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Trading ──
	setFloat64(&cfg.Trading.DualLimitPrice, "UPDOWN_TRADING_DUAL_LIMIT_PRICE")
	setFloat64(&cfg.Trading.DualLimitShares, "UPDOWN_TRADING_DUAL_LIMIT_SHARES")
	setFloat64(&cfg.Trading.FixedTradeAmount, "UPDOWN_TRADING_FIXED_TRADE_AMOUNT")
	setInt(&cfg.Trading.CheckIntervalMs, "UPDOWN_TRADING_CHECK_INTERVAL_MS")
	setInt(&cfg.Trading.FillCheckIntervalMs, "UPDOWN_TRADING_FILL_CHECK_INTERVAL_MS")
	setInt(&cfg.Trading.MarketClosureCheckIntervalSeconds, "UPDOWN_TRADING_MARKET_CLOSURE_CHECK_INTERVAL_SECONDS")
	setInt(&cfg.Trading.SummaryIntervalSeconds, "UPDOWN_TRADING_SUMMARY_INTERVAL_SECONDS")
	setBool(&cfg.Trading.EnableEthTrading, "UPDOWN_TRADING_ENABLE_ETH_TRADING")
	setBool(&cfg.Trading.EnableSolanaTrading, "UPDOWN_TRADING_ENABLE_SOLANA_TRADING")
	setBool(&cfg.Trading.EnableXrpTrading, "UPDOWN_TRADING_ENABLE_XRP_TRADING")

	// ── Polymarket ──
	setStr(&cfg.Polymarket.GammaAPIURL, "UPDOWN_POLYMARKET_GAMMA_API_URL")
	setStr(&cfg.Polymarket.ClobAPIURL, "UPDOWN_POLYMARKET_CLOB_API_URL")
	setStr(&cfg.Polymarket.WsURL, "UPDOWN_POLYMARKET_WS_URL")
	setInt(&cfg.Polymarket.ChainID, "UPDOWN_POLYMARKET_CHAIN_ID")
	setInt(&cfg.Polymarket.SignatureType, "UPDOWN_POLYMARKET_SIGNATURE_TYPE")
	setStr(&cfg.Polymarket.ApiKey, "UPDOWN_POLYMARKET_API_KEY")
	setStr(&cfg.Polymarket.ApiSecret, "UPDOWN_POLYMARKET_API_SECRET")
	setStr(&cfg.Polymarket.ApiPassphrase, "UPDOWN_POLYMARKET_API_PASSPHRASE")
	setStr(&cfg.Polymarket.PrivateKey, "UPDOWN_POLYMARKET_PRIVATE_KEY")
	setStr(&cfg.Polymarket.EncryptedKeyPath, "UPDOWN_POLYMARKET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Polymarket.KeyPassword, "UPDOWN_POLYMARKET_KEY_PASSWORD")
	setStr(&cfg.Polymarket.ProxyWalletAddress, "UPDOWN_POLYMARKET_PROXY_WALLET_ADDRESS")

	// ── History ──
	setStr(&cfg.History.File, "UPDOWN_HISTORY_FILE")
	setStr(&cfg.History.Dir, "UPDOWN_HISTORY_DIR")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "UPDOWN_LOG_LEVEL")
	setStr(&cfg.LogFile, "UPDOWN_LOG_FILE")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
