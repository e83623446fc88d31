// Package position holds the pure data model and lifecycle transitions for
// a two-leg arbitrage position. It performs no I/O: the OrderCoordinator
// mutates a Position in memory while it's active, and the HistoryStore's
// event log is its durable source of truth across restarts.
package position

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"arbitrage/pkg/types"
)

// Position represents one hedged pair of legs: leg A is always BUY, leg B
// is always SELL, fixed at creation. Scenario B picks which venue is
// "cheap" at creation time and assigns BUY there (see strategy package).
type Position struct {
	ID       string
	Scenario types.Scenario

	VenueA  string
	SymbolA string
	SideA   types.Side
	QtyA    decimal.Decimal

	VenueB  string
	SymbolB string
	SideB   types.Side
	QtyB    decimal.Decimal

	EntryPriceA decimal.Decimal
	EntryPriceB decimal.Decimal
	EntrySpread decimal.Decimal

	OrderIDA string
	OrderIDB string

	ExitSpread decimal.Decimal
	PnL        decimal.Decimal

	Status PositionStatus

	CreatedAt time.Time
	OpenedAt  time.Time
	ClosedAt  time.Time
}

// PositionStatus is re-exported from pkg/types so callers don't need two
// imports for one concept.
type PositionStatus = types.PositionStatus

const (
	Pending = types.PositionPending
	Opened  = types.PositionOpened
	Closing = types.PositionClosing
	Closed  = types.PositionClosed
	Error   = types.PositionError
)

// New creates a pending position. Sides are fixed here for the lifetime of
// the position: leg A is always BUY, leg B is always SELL.
func New(scenario types.Scenario, venueA, symbolA string, qtyA decimal.Decimal, venueB, symbolB string, qtyB decimal.Decimal) *Position {
	return &Position{
		ID:        uuid.NewString(),
		Scenario:  scenario,
		VenueA:    venueA,
		SymbolA:   symbolA,
		SideA:     types.Buy,
		QtyA:      qtyA,
		VenueB:    venueB,
		SymbolB:   symbolB,
		SideB:     types.Sell,
		QtyB:      qtyB,
		Status:    Pending,
		CreatedAt: time.Now().UTC(),
	}
}

// IsOpen reports whether the position is in the OPENED state.
func (p *Position) IsOpen() bool {
	return p.Status == Opened
}

// IsTerminal reports whether the position can no longer transition.
func (p *Position) IsTerminal() bool {
	return p.Status == Closed || p.Status == Error
}

// MarkOpened transitions PENDING → OPENED, records entry prices, and
// computes the entry spread using the scenario-dependent convention:
// scenario A is (a-b)/b, scenario B is (b-a)/a. See §9 of the design notes
// for why the sign differs by scenario.
func (p *Position) MarkOpened(entryPriceA, entryPriceB decimal.Decimal) {
	p.EntryPriceA = entryPriceA
	p.EntryPriceB = entryPriceB
	p.EntrySpread = computeSpread(p.Scenario, entryPriceA, entryPriceB)
	p.OpenedAt = time.Now().UTC()
	p.Status = Opened
}

// MarkClosed transitions CLOSING → CLOSED, records the exit spread and PnL.
//
// PnL convention (leg A is always BUY, by construction):
//
//	pnl = (exit_a - entry_a) * qty_a + (entry_b - exit_b) * qty_b
//
// for both scenarios. This is the long-A form; see DESIGN.md for why the
// source's alternate (short-A) formula for scenario A was not used.
func (p *Position) MarkClosed(exitPriceA, exitPriceB decimal.Decimal) {
	p.ExitSpread = computeSpread(p.Scenario, exitPriceA, exitPriceB)
	legAPnL := exitPriceA.Sub(p.EntryPriceA).Mul(p.QtyA)
	legBPnL := p.EntryPriceB.Sub(exitPriceB).Mul(p.QtyB)
	p.PnL = legAPnL.Add(legBPnL)
	p.ClosedAt = time.Now().UTC()
	p.Status = Closed
}

// MarkError transitions to the absorbing ERROR state from any non-terminal
// state.
func (p *Position) MarkError() {
	p.Status = Error
}

// MarkClosing transitions OPENED → CLOSING in memory before exit orders are
// placed. No history event is recorded for this transition, so a position
// recovered after a crash mid-exit reads back as OPENED.
func (p *Position) MarkClosing() {
	p.Status = Closing
}

func computeSpread(scenario types.Scenario, priceA, priceB decimal.Decimal) decimal.Decimal {
	if scenario == types.ScenarioA {
		if priceB.IsZero() {
			return decimal.Zero
		}
		return priceA.Sub(priceB).Div(priceB)
	}
	if priceA.IsZero() {
		return decimal.Zero
	}
	return priceB.Sub(priceA).Div(priceA)
}
