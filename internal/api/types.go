package api

import (
	"time"

	"arbitrage/internal/config"
)

// DashboardSnapshot is the complete read-only state served by
// /api/snapshot and pushed to every websocket client on connect.
type DashboardSnapshot struct {
	Timestamp      time.Time      `json:"timestamp"`
	OpenPositions  []PositionView `json:"open_positions"`
	RecentTrades   []TradeView    `json:"recent_trades"`
	TotalOpenCount int            `json:"total_open_count"`
	Config         ConfigSummary  `json:"config"`
}

// PositionView is the JSON projection of a position.Position.
type PositionView struct {
	ID          string  `json:"id"`
	Scenario    string  `json:"scenario"`
	Status      string  `json:"status"`
	VenueA      string  `json:"venue_a"`
	VenueB      string  `json:"venue_b"`
	SymbolA     string  `json:"symbol_a"`
	SymbolB     string  `json:"symbol_b"`
	EntryPriceA float64 `json:"entry_price_a"`
	EntryPriceB float64 `json:"entry_price_b"`
	EntrySpread float64 `json:"entry_spread"`
	PnL         float64 `json:"pnl"`
}

// TradeView is the JSON projection of one types.HistoryEvent.
type TradeView struct {
	Timestamp    time.Time `json:"timestamp"`
	EventType    string    `json:"event_type"`
	PositionID   string    `json:"position_id"`
	VenueA       string    `json:"venue_a"`
	VenueB       string    `json:"venue_b"`
	Side         string    `json:"side"`
	Quantity     float64   `json:"quantity"`
	Price        float64   `json:"price"`
	PnL          float64   `json:"pnl"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// ConfigSummary is the non-sensitive subset of config.Config surfaced to
// the dashboard: trading/arbitrage parameters only, never credentials.
type ConfigSummary struct {
	Env            string  `json:"env"`
	Leverage       float64 `json:"leverage"`
	MaxPositions   int     `json:"max_positions"`
	FixedOrderSize float64 `json:"fixed_order_size"`
	Scenario       string  `json:"scenario"`
	ExchangeA      string  `json:"exchange_a"`
	ExchangeB      string  `json:"exchange_b"`
	Symbol         string  `json:"symbol"`
	EntryThreshold float64 `json:"entry_threshold"`
	ExitThreshold  float64 `json:"exit_threshold"`
}

// NewConfigSummary builds a ConfigSummary from a loaded config. Pass
// cfg.Redacted() upstream is unnecessary here since ConfigSummary never
// carries credentials to begin with.
func NewConfigSummary(cfg config.Config) ConfigSummary {
	return ConfigSummary{
		Env:            cfg.Env,
		Leverage:       cfg.Trading.Leverage,
		MaxPositions:   cfg.Trading.MaxPositions,
		FixedOrderSize: cfg.Trading.FixedOrderSize,
		Scenario:       cfg.Arbitrage.Scenario,
		ExchangeA:      cfg.Arbitrage.ExchangeA,
		ExchangeB:      cfg.Arbitrage.ExchangeB,
		Symbol:         cfg.Arbitrage.Symbol,
		EntryThreshold: cfg.Arbitrage.EntryThreshold,
		ExitThreshold:  cfg.Arbitrage.ExitThreshold,
	}
}
