// Package risk implements the three ordered pre-trade checks every entry
// must pass before either leg is placed: open-position limit, leverage
// setup, and balance sufficiency.
package risk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"arbitrage/internal/venue"
)

// ErrInsufficientBalance is returned when the venue's free balance cannot
// cover the order at the configured leverage.
var ErrInsufficientBalance = errors.New("insufficient balance")

// ErrMaxPositionsReached is returned when the open-position count is
// already at the configured limit. The wording matches the original
// source's risk_manager.py verbatim, since the coordinator's recorded
// position_error message is required to carry it.
var ErrMaxPositionsReached = errors.New("Maximum positions limit reached")

// ErrExecutionDiscrepancy is returned by the coordinator (not this
// package) when an order response doesn't match what was requested; it's
// declared here because RiskGate and the coordinator share the same
// taxonomy.
var ErrExecutionDiscrepancy = errors.New("execution discrepancy")

// PositionCounter reports how many positions are currently OPENED. In
// production this is backed by history.Store.CountOpenPositions.
type PositionCounter interface {
	CountOpenPositions() (int, error)
}

// Config holds the tunables from the trading/arbitrage config sections
// that the gate needs.
type Config struct {
	MaxPositions     int
	Leverage         decimal.Decimal
	QuoteCurrency    string // default "USDT"
	FixedOrderSize   decimal.Decimal
	DefaultQuantity  decimal.Decimal // used when no price hint is available
	LeveragedSymbols []string        // substrings identifying perp/swap instruments, default {PERP, SWAP}
}

// Gate performs the three pre-trade checks in order.
type Gate struct {
	cfg     Config
	counter PositionCounter
	logger  *slog.Logger
}

func New(cfg Config, counter PositionCounter, logger *slog.Logger) *Gate {
	if len(cfg.LeveragedSymbols) == 0 {
		cfg.LeveragedSymbols = []string{"PERP", "SWAP"}
	}
	if cfg.QuoteCurrency == "" {
		cfg.QuoteCurrency = "USDT"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{cfg: cfg, counter: counter, logger: logger}
}

// CheckPositionLimit rejects with ErrMaxPositionsReached if the open count
// is already at or above the configured maximum.
func (g *Gate) CheckPositionLimit() error {
	count, err := g.counter.CountOpenPositions()
	if err != nil {
		return fmt.Errorf("count open positions: %w", err)
	}
	if count >= g.cfg.MaxPositions {
		return fmt.Errorf("%w: %d/%d open", ErrMaxPositionsReached, count, g.cfg.MaxPositions)
	}
	return nil
}

// SetLeverageIfNeeded calls SetLeverage on client when symbol looks like a
// perpetual/swap instrument. Failures are logged, never returned: leverage
// setup is best-effort per spec.
func (g *Gate) SetLeverageIfNeeded(ctx context.Context, client venue.Client, symbol string) {
	if !g.isLeveraged(symbol) {
		return
	}
	if err := client.SetLeverage(ctx, g.cfg.Leverage, symbol); err != nil {
		var unsupported *venue.UnsupportedOperationError
		if errors.As(err, &unsupported) {
			g.logger.Debug("leverage not supported by venue", "venue", client.Name(), "symbol", symbol)
			return
		}
		g.logger.Warn("leverage setup failed", "venue", client.Name(), "symbol", symbol, "error", err)
	}
}

func (g *Gate) isLeveraged(symbol string) bool {
	upper := strings.ToUpper(symbol)
	for _, s := range g.cfg.LeveragedSymbols {
		if strings.Contains(upper, strings.ToUpper(s)) {
			return true
		}
	}
	return false
}

// InsufficientBalanceError carries the structured values behind
// ErrInsufficientBalance so callers (the coordinator) can record
// required/available/shortfall metadata without re-deriving them from
// the error's formatted string.
type InsufficientBalanceError struct {
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("%s: required %s, available %s", ErrInsufficientBalance, e.Required, e.Available)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// Shortfall is how much more balance would have been needed.
func (e *InsufficientBalanceError) Shortfall() decimal.Decimal {
	return e.Required.Sub(e.Available)
}

// CheckBalanceSufficiency fetches the venue's quote-currency balance and
// rejects with an *InsufficientBalanceError (wrapping ErrInsufficientBalance)
// if it can't cover qty*priceHint at the configured leverage. If priceHint
// is the zero value, the check is skipped (logged) because there's
// nothing to size the requirement from.
func (g *Gate) CheckBalanceSufficiency(ctx context.Context, client venue.Client, qty, priceHint decimal.Decimal) error {
	if priceHint.IsZero() {
		g.logger.Warn("no price hint available, skipping balance check", "venue", client.Name())
		return nil
	}

	balance, err := client.GetBalance(ctx, g.cfg.QuoteCurrency)
	if err != nil {
		return fmt.Errorf("get balance: %w", err)
	}

	leverage := g.cfg.Leverage
	if leverage.IsZero() {
		leverage = decimal.NewFromInt(1)
	}
	required := qty.Mul(priceHint).Div(leverage)

	if balance.Free.LessThan(required) {
		return &InsufficientBalanceError{Required: required, Available: balance.Free}
	}
	return nil
}

// OrderQuantity sizes an order from the configured fixed notional and a
// price hint; falls back to DefaultQuantity (a small constant) with a
// warning when no price is known yet.
func (g *Gate) OrderQuantity(priceHint decimal.Decimal) decimal.Decimal {
	if priceHint.IsZero() {
		g.logger.Warn("no price hint available, using default order quantity")
		if g.cfg.DefaultQuantity.IsZero() {
			return decimal.NewFromFloat(0.001)
		}
		return g.cfg.DefaultQuantity
	}
	size := g.cfg.FixedOrderSize
	if size.IsZero() {
		size = decimal.NewFromInt(10)
	}
	return size.Div(priceHint)
}
