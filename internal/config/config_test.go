package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultsValidateInSimulation(t *testing.T) {
	cfg := Defaults()
	cfg.Simulation = true
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults invalid in simulation: %v", err)
	}
}

func TestDefaultsRequireKeyForLiveTrading(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err == nil {
		t.Error("live config without a signing key passed validation")
	}

	cfg.Polymarket.PrivateKey = "abc123"
	if err := cfg.Validate(); err != nil {
		t.Errorf("live config with raw key invalid: %v", err)
	}
}

func TestEncryptedKeyRequiresPassword(t *testing.T) {
	cfg := Defaults()
	cfg.Polymarket.EncryptedKeyPath = "/tmp/key.json"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "key_password") {
		t.Errorf("missing key_password not reported: %v", err)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Simulation = true
	cfg.LogLevel = "loud"
	cfg.Trading.DualLimitPrice = 1.5
	cfg.Trading.CheckIntervalMs = 0
	cfg.Polymarket.ChainID = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid config passed validation")
	}
	for _, want := range []string{"log_level", "dual_limit_price", "check_interval_ms", "chain_id"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error does not mention %s: %v", want, err)
		}
	}
}

func TestLimitPriceBounds(t *testing.T) {
	for _, price := range []float64{0, -0.1, 1, 1.2} {
		cfg := Defaults()
		cfg.Simulation = true
		cfg.Trading.DualLimitPrice = price
		if err := cfg.Validate(); err == nil {
			t.Errorf("dual_limit_price %v passed validation", price)
		}
	}
}

func TestSharesAndAmountInterplay(t *testing.T) {
	cfg := Defaults()
	cfg.Simulation = true

	// Explicit shares: the fixed amount no longer matters.
	cfg.Trading.DualLimitShares = 20
	cfg.Trading.FixedTradeAmount = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("explicit shares rejected: %v", err)
	}

	// No shares and no amount is unusable.
	cfg.Trading.DualLimitShares = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero shares with zero amount passed validation")
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
log_level = "debug"

[trading]
dual_limit_price = 0.40
enable_eth_trading = false

[history]
file = "sim.toml"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.Trading.DualLimitPrice != 0.40 {
		t.Errorf("DualLimitPrice = %v", cfg.Trading.DualLimitPrice)
	}
	if cfg.Trading.EnableEthTrading {
		t.Error("EnableEthTrading not overridden")
	}
	// Untouched fields keep their defaults.
	if cfg.Trading.FixedTradeAmount != 10.0 {
		t.Errorf("FixedTradeAmount = %v, want default 10.0", cfg.Trading.FixedTradeAmount)
	}
	if cfg.History.File != "sim.toml" || cfg.History.Dir != "history" {
		t.Errorf("history = %+v", cfg.History)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("UPDOWN_TRADING_DUAL_LIMIT_PRICE", "0.38")
	t.Setenv("UPDOWN_POLYMARKET_PRIVATE_KEY", "deadbeef")
	t.Setenv("UPDOWN_TRADING_ENABLE_SOLANA_TRADING", "false")

	path := writeConfig(t, `
[trading]
dual_limit_price = 0.42
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Trading.DualLimitPrice != 0.38 {
		t.Errorf("env override lost, DualLimitPrice = %v", cfg.Trading.DualLimitPrice)
	}
	if cfg.Polymarket.PrivateKey != "deadbeef" {
		t.Errorf("PrivateKey = %q", cfg.Polymarket.PrivateKey)
	}
	if cfg.Trading.EnableSolanaTrading {
		t.Error("bool env override lost")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("missing config file did not error")
	}
}
