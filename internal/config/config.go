// Package config loads arbitrage engine configuration from a YAML file
// (default: config.yml) with PARCER_*-prefixed environment variable
// overrides. Sensitive fields (exchange credentials, proxy password) are
// never logged in the clear; see Config.Redacted.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"
)

// Config is the top-level configuration. Maps directly to the YAML file
// structure described in the external interfaces.
type Config struct {
	Env           string                    `mapstructure:"env"`
	Proxy         ProxyConfig               `mapstructure:"proxy"`
	Trading       TradingConfig             `mapstructure:"trading"`
	Exchanges     map[string]ExchangeConfig `mapstructure:"exchanges"`
	Arbitrage     ArbitrageConfig           `mapstructure:"arbitrage"`
	Logging       LoggingConfig             `mapstructure:"logging"`
	Dashboard     DashboardConfig           `mapstructure:"dashboard"`
	Normalization NormalizationConfig       `mapstructure:"normalization"`
}

// ProxyConfig configures an outbound HTTP proxy for venue transports.
type ProxyConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// TradingConfig holds the risk gate's sizing and leverage defaults.
type TradingConfig struct {
	Leverage       float64 `mapstructure:"leverage"`
	MaxPositions   int     `mapstructure:"max_positions"`
	FixedOrderSize float64 `mapstructure:"fixed_order_size"`
}

// ExchangeCredentials holds a venue's API key material.
type ExchangeCredentials struct {
	APIKey     string `mapstructure:"api_key"`
	APISecret  string `mapstructure:"api_secret"`
	Passphrase string `mapstructure:"passphrase"`
}

// ExchangeConfig describes one configured venue adapter.
type ExchangeConfig struct {
	Enabled     bool                 `mapstructure:"enabled"`
	Sandbox     bool                 `mapstructure:"sandbox"`
	Credentials *ExchangeCredentials `mapstructure:"credentials"`
	Options     map[string]any       `mapstructure:"options"`
}

// ArbitrageConfig selects the strategy scenario and its venue/symbol pair.
type ArbitrageConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	Scenario       string  `mapstructure:"scenario"` // "a" or "b"
	ExchangeA      string  `mapstructure:"exchange_a"`
	ExchangeB      string  `mapstructure:"exchange_b"`
	Symbol         string  `mapstructure:"symbol"`
	EntryThreshold float64 `mapstructure:"entry_threshold"`
	ExitThreshold  float64 `mapstructure:"exit_threshold"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DashboardConfig controls the optional read-only HTTP/WebSocket API that
// surfaces open positions and recent trade history.
type DashboardConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// NormalizationConfig overrides the quote-currency set ExtractBaseQuote
// falls back to when a symbol has no separator. Empty means use
// venue.DefaultQuoteCurrencies.
type NormalizationConfig struct {
	QuoteCurrencies []string `mapstructure:"quote_currencies"`
}

// envPrefix and the two reserved suffixes mirror the source's
// _apply_env_overrides: PARCER_CONFIG and PARCER_LOG_LEVEL are read
// directly by callers (Load's path argument, and main's logger setup)
// rather than folded into the config tree.
const envPrefix = "PARCER_"

var reservedEnvSuffixes = map[string]bool{
	"CONFIG":    true,
	"LOG_LEVEL": true,
}

// Load reads path as YAML, applies PARCER_-prefixed environment overrides,
// and unmarshals the result into a Config. A missing file is treated as an
// empty mapping, not an error, so a deployment driven entirely by
// environment variables is valid.
func Load(path string) (*Config, error) {
	raw, err := readYAMLFile(path)
	if err != nil {
		return nil, err
	}

	merged := applyEnvOverrides(raw, envPrefix)

	v := viper.New()
	if err := v.MergeConfigMap(merged); err != nil {
		return nil, fmt.Errorf("merge config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func readYAMLFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if len(data) == 0 {
		return map[string]any{}, nil
	}

	var loaded any
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	if loaded == nil {
		return map[string]any{}, nil
	}

	mapped, ok := toStringKeyMap(loaded)
	if !ok {
		return nil, fmt.Errorf("config root must be a mapping, got %T", loaded)
	}
	return mapped, nil
}

// applyEnvOverrides walks os.Environ(), decodes every PARCER_-prefixed
// variable (other than the two reserved ones) into a dotted path by
// splitting on "__", and deep-sets the parsed scalar into a copy of base.
func applyEnvOverrides(base map[string]any, prefix string) map[string]any {
	merged := make(map[string]any, len(base))
	for k, v := range base {
		merged[k] = v
	}

	for _, kv := range os.Environ() {
		key, raw, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, prefix) {
			continue
		}
		remainder := strings.TrimPrefix(key, prefix)
		if reservedEnvSuffixes[remainder] {
			continue
		}

		var path []string
		for _, p := range strings.Split(remainder, "__") {
			if p == "" {
				continue
			}
			path = append(path, strings.ToLower(p))
		}
		if len(path) == 0 {
			continue
		}

		deepSet(merged, path, parseEnvScalar(raw))
	}
	return merged
}

// deepSet writes value at the dotted path inside obj, creating intermediate
// maps (and overwriting any non-map value found along the way) as needed.
func deepSet(obj map[string]any, path []string, value any) {
	cur := obj
	for _, key := range path[:len(path)-1] {
		next, ok := cur[key].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[key] = next
		}
		cur = next
	}
	cur[path[len(path)-1]] = value
}

// parseEnvScalar parses raw as YAML so bools/numbers survive as their
// native type (e.g. PARCER_TRADING__MAX_POSITIONS=3 decodes to int 3, not
// the string "3"), falling back to the raw string on any parse failure.
func parseEnvScalar(raw string) any {
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	if v == nil {
		return raw
	}
	return v
}

// toStringKeyMap recursively normalizes a yaml.v3-decoded value (which may
// contain map[string]interface{} at any depth) into the map[string]any
// shape viper.MergeConfigMap and deepSet both expect.
func toStringKeyMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[k] = normalizeValue(val)
		}
		return out, true
	default:
		return nil, false
	}
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		m, _ := toStringKeyMap(val)
		return m
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	default:
		return val
	}
}

// Redacted returns a copy of c suitable for logging: exchange credentials
// and the proxy password are replaced with a fixed placeholder.
func (c *Config) Redacted() Config {
	cp := *c
	cp.Exchanges = make(map[string]ExchangeConfig, len(c.Exchanges))
	for name, ex := range c.Exchanges {
		if ex.Credentials != nil {
			redacted := *ex.Credentials
			redacted.APIKey = "***"
			redacted.APISecret = "***"
			if redacted.Passphrase != "" {
				redacted.Passphrase = "***"
			}
			ex.Credentials = &redacted
		}
		cp.Exchanges[name] = ex
	}
	if cp.Proxy.Password != "" {
		cp.Proxy.Password = "***"
	}
	return cp
}

// Validate checks the value ranges the external interface promises:
// leverage and fixed_order_size must be positive, max_positions
// non-negative, and the selected scenario must be one of "a" or "b" when
// arbitrage is enabled.
func (c *Config) Validate() error {
	if c.Trading.Leverage <= 0 {
		return fmt.Errorf("trading.leverage must be > 0")
	}
	if c.Trading.MaxPositions < 0 {
		return fmt.Errorf("trading.max_positions must be >= 0")
	}
	if c.Trading.FixedOrderSize <= 0 {
		return fmt.Errorf("trading.fixed_order_size must be > 0")
	}
	if c.Arbitrage.Enabled {
		switch c.Arbitrage.Scenario {
		case "a", "b":
		default:
			return fmt.Errorf("arbitrage.scenario must be %q or %q, got %q", "a", "b", c.Arbitrage.Scenario)
		}
		if c.Arbitrage.ExchangeA == "" || c.Arbitrage.ExchangeB == "" {
			return fmt.Errorf("arbitrage.exchange_a and arbitrage.exchange_b are required")
		}
		if c.Arbitrage.Symbol == "" {
			return fmt.Errorf("arbitrage.symbol is required")
		}
		if c.Arbitrage.EntryThreshold <= 0 {
			return fmt.Errorf("arbitrage.entry_threshold must be > 0")
		}
	}
	return nil
}

// ConfigPath resolves the config file path: the PARCER_CONFIG env var if
// set, otherwise "config.yml".
func ConfigPath() string {
	if p := os.Getenv("PARCER_CONFIG"); p != "" {
		return p
	}
	return "config.yml"
}

// LogLevel resolves the PARCER_LOG_LEVEL env var, falling back to the
// loaded config's logging.level, then "info".
func LogLevel(cfg *Config) string {
	if lvl := os.Getenv("PARCER_LOG_LEVEL"); lvl != "" {
		return lvl
	}
	if cfg.Logging.Level != "" {
		return cfg.Logging.Level
	}
	return "info"
}
