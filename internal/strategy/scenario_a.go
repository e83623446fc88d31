package strategy

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"arbitrage/internal/coordinator"
	"arbitrage/internal/market"
	"arbitrage/internal/position"
	"arbitrage/internal/risk"
	"arbitrage/internal/venue"
	"arbitrage/pkg/types"
)

// ScenarioA is the spot-vs-futures strategy: leg A is BUY on the
// futures/mark venue, leg B is SELL on the spot venue.
type ScenarioA struct {
	cache   *market.Cache
	coord   *coordinator.Coordinator
	gate    *risk.Gate
	logger  *slog.Logger

	futuresVenue venue.Client
	spotVenue    venue.Client
	futuresSym   string
	spotSym      string

	entryThreshold  decimal.Decimal
	exitThreshold   decimal.Decimal
	quoteCurrencies []string

	current *position.Position
}

func NewScenarioA(cache *market.Cache, coord *coordinator.Coordinator, gate *risk.Gate, futuresVenue, spotVenue venue.Client, futuresSym, spotSym string, entryThreshold, exitThreshold decimal.Decimal, quoteCurrencies []string, logger *slog.Logger) *ScenarioA {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScenarioA{
		cache: cache, coord: coord, gate: gate, logger: logger,
		futuresVenue: futuresVenue, spotVenue: spotVenue,
		futuresSym: futuresSym, spotSym: spotSym,
		entryThreshold: entryThreshold, exitThreshold: exitThreshold,
		quoteCurrencies: quoteCurrencies,
	}
}

func (s *ScenarioA) CurrentPosition() *position.Position { return s.current }

// Resume adopts a position recovered from the history store at startup
// (status OPENED) so the next tick checks for exit instead of entry.
func (s *ScenarioA) Resume(pos *position.Position) {
	s.current = pos
}

func (s *ScenarioA) Tick(ctx context.Context) {
	if s.current == nil {
		s.checkEntry(ctx)
		return
	}
	s.checkExit(ctx)
}

func (s *ScenarioA) checkEntry(ctx context.Context) {
	futuresPrice, ok := s.cache.GetPrice(s.futuresVenue.Name(), s.futuresSym)
	if !ok {
		return
	}
	spotPrice, ok := s.cache.GetPrice(s.spotVenue.Name(), s.spotSym)
	if !ok {
		return
	}

	calc := market.SpreadScenarioA(futuresPrice.Price, spotPrice.Price)
	if !market.EntryOk(calc.Spread, s.entryThreshold) {
		return
	}

	venue.CheckSymbolMismatch(s.logger, s.futuresSym, s.spotSym, s.quoteCurrencies)

	qty := s.gate.OrderQuantity(futuresPrice.Price)
	pos, ok := s.coord.Enter(ctx, coordinator.EntryParams{
		Scenario: types.ScenarioA,
		VenueA:   s.futuresVenue, SymbolA: s.futuresSym, QtyA: qty, PriceA: futuresPrice.Price,
		VenueB: s.spotVenue, SymbolB: s.spotSym, QtyB: qty, PriceB: spotPrice.Price,
	})
	if !ok {
		s.logger.Warn("scenario A entry failed", "position_id", pos.ID)
		return
	}
	s.logger.Info("scenario A entry opened", "position_id", pos.ID, "spread", calc.Spread)
	s.current = pos
}

func (s *ScenarioA) checkExit(ctx context.Context) {
	futuresPrice, ok := s.cache.GetPrice(s.futuresVenue.Name(), s.futuresSym)
	if !ok {
		return
	}
	spotPrice, ok := s.cache.GetPrice(s.spotVenue.Name(), s.spotSym)
	if !ok {
		return
	}

	calc := market.SpreadScenarioA(futuresPrice.Price, spotPrice.Price)
	if !market.ExitOk(calc.Spread, s.exitThreshold) {
		return
	}

	if s.coord.Exit(ctx, s.current, s.futuresVenue, s.spotVenue) {
		s.logger.Info("scenario A exit closed", "position_id", s.current.ID, "pnl", s.current.PnL)
		s.current = nil
	}
}
