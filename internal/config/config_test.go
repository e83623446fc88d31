package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadMissingFileIsEmptyMapping(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Env != "" || cfg.Trading.Leverage != 0 {
		t.Errorf("expected zero-value config for a missing file, got %+v", cfg)
	}
}

func TestLoadParsesYAML(t *testing.T) {
	path := writeTempConfig(t, `
env: prod
trading:
  leverage: 2
  max_positions: 3
  fixed_order_size: 25.5
arbitrage:
  enabled: true
  scenario: a
  exchange_a: binance
  exchange_b: polymarket
  symbol: BTCUSDT
  entry_threshold: 0.05
  exit_threshold: 0.01
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Env != "prod" {
		t.Errorf("Env = %q, want prod", cfg.Env)
	}
	if cfg.Trading.MaxPositions != 3 {
		t.Errorf("MaxPositions = %d, want 3", cfg.Trading.MaxPositions)
	}
	if cfg.Arbitrage.Scenario != "a" {
		t.Errorf("Scenario = %q, want a", cfg.Arbitrage.Scenario)
	}
}

func TestEnvOverrideSetsDottedPath(t *testing.T) {
	path := writeTempConfig(t, `
trading:
  max_positions: 1
`)
	t.Setenv("PARCER_TRADING__MAX_POSITIONS", "7")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Trading.MaxPositions != 7 {
		t.Errorf("MaxPositions = %d, want 7 (env override)", cfg.Trading.MaxPositions)
	}
}

func TestEnvOverrideParsesScalarType(t *testing.T) {
	path := writeTempConfig(t, "")
	t.Setenv("PARCER_ARBITRAGE__ENABLED", "true")
	t.Setenv("PARCER_ARBITRAGE__ENTRY_THRESHOLD", "0.08")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Arbitrage.Enabled {
		t.Error("expected arbitrage.enabled to be true from env override")
	}
	if cfg.Arbitrage.EntryThreshold != 0.08 {
		t.Errorf("EntryThreshold = %v, want 0.08", cfg.Arbitrage.EntryThreshold)
	}
}

func TestEnvOverrideIgnoresReservedSuffixes(t *testing.T) {
	path := writeTempConfig(t, "")
	t.Setenv("PARCER_CONFIG", "/some/other/path.yml")
	t.Setenv("PARCER_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "" {
		t.Errorf("expected PARCER_LOG_LEVEL to be reserved, not folded into config, got %q", cfg.Logging.Level)
	}
}

func TestValidateRequiresPositiveLeverage(t *testing.T) {
	cfg := &Config{Trading: TradingConfig{Leverage: 0, FixedOrderSize: 10}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected Validate to reject zero leverage")
	}
}

func TestValidateRequiresKnownScenario(t *testing.T) {
	cfg := &Config{
		Trading:   TradingConfig{Leverage: 1, FixedOrderSize: 10},
		Arbitrage: ArbitrageConfig{Enabled: true, Scenario: "c", ExchangeA: "x", ExchangeB: "y", Symbol: "BTCUSDT", EntryThreshold: 0.05},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected Validate to reject an unknown scenario")
	}
}

func TestRedactedHidesCredentials(t *testing.T) {
	cfg := &Config{
		Exchanges: map[string]ExchangeConfig{
			"binance": {Credentials: &ExchangeCredentials{APIKey: "secret-key", APISecret: "secret-value"}},
		},
		Proxy: ProxyConfig{Password: "hunter2"},
	}
	redacted := cfg.Redacted()
	if redacted.Exchanges["binance"].Credentials.APIKey != "***" {
		t.Error("expected api_key to be redacted")
	}
	if redacted.Proxy.Password != "***" {
		t.Error("expected proxy password to be redacted")
	}
	if cfg.Exchanges["binance"].Credentials.APIKey != "secret-key" {
		t.Error("Redacted must not mutate the original config")
	}
}
