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

// ScenarioB is the perp-vs-perp strategy: at entry time, whichever venue
// quotes lower becomes leg A (BUY); the other becomes leg B (SELL).
type ScenarioB struct {
	cache  *market.Cache
	coord  *coordinator.Coordinator
	gate   *risk.Gate
	logger *slog.Logger

	venueX, venueY venue.Client
	symX, symY     string

	entryThreshold  decimal.Decimal
	exitThreshold   decimal.Decimal
	quoteCurrencies []string

	current    *position.Position
	exitVenueA venue.Client // remembers which physical venue ended up as leg A/B for exit
	exitVenueB venue.Client
}

func NewScenarioB(cache *market.Cache, coord *coordinator.Coordinator, gate *risk.Gate, venueX, venueY venue.Client, symX, symY string, entryThreshold, exitThreshold decimal.Decimal, quoteCurrencies []string, logger *slog.Logger) *ScenarioB {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScenarioB{
		cache: cache, coord: coord, gate: gate, logger: logger,
		venueX: venueX, venueY: venueY, symX: symX, symY: symY,
		entryThreshold: entryThreshold, exitThreshold: exitThreshold,
		quoteCurrencies: quoteCurrencies,
	}
}

func (s *ScenarioB) CurrentPosition() *position.Position { return s.current }

// Resume adopts a position recovered from the history store at startup
// (status OPENED). Since scenario B's leg-to-venue assignment is dynamic,
// the recovered position's own VenueA/VenueB decide which physical venue
// exits each leg, not the fixed venueX/venueY config order.
func (s *ScenarioB) Resume(pos *position.Position) {
	s.current = pos
	if pos.VenueA == s.venueX.Name() {
		s.exitVenueA, s.exitVenueB = s.venueX, s.venueY
	} else {
		s.exitVenueA, s.exitVenueB = s.venueY, s.venueX
	}
}

func (s *ScenarioB) Tick(ctx context.Context) {
	if s.current == nil {
		s.checkEntry(ctx)
		return
	}
	s.checkExit(ctx)
}

func (s *ScenarioB) checkEntry(ctx context.Context) {
	priceX, ok := s.cache.GetPrice(s.venueX.Name(), s.symX)
	if !ok {
		return
	}
	priceY, ok := s.cache.GetPrice(s.venueY.Name(), s.symY)
	if !ok {
		return
	}

	calc := market.SpreadScenarioB(priceX.Price, priceY.Price, s.venueX.Name(), s.venueY.Name())
	if !market.EntryOk(calc.Spread, s.entryThreshold) {
		return
	}

	venue.CheckSymbolMismatch(s.logger, s.symX, s.symY, s.quoteCurrencies)

	// The cheap venue becomes leg A (BUY); the expensive venue becomes leg B (SELL).
	cheapVenue, expensiveVenue := s.venueX, s.venueY
	cheapSym, expensiveSym := s.symX, s.symY
	cheapPrice, expensivePrice := priceX.Price, priceY.Price
	if priceY.Price.LessThan(priceX.Price) {
		cheapVenue, expensiveVenue = s.venueY, s.venueX
		cheapSym, expensiveSym = s.symY, s.symX
		cheapPrice, expensivePrice = priceY.Price, priceX.Price
	}

	qty := s.gate.OrderQuantity(cheapPrice)
	pos, ok := s.coord.Enter(ctx, coordinator.EntryParams{
		Scenario: types.ScenarioB,
		VenueA:   cheapVenue, SymbolA: cheapSym, QtyA: qty, PriceA: cheapPrice,
		VenueB: expensiveVenue, SymbolB: expensiveSym, QtyB: qty, PriceB: expensivePrice,
	})
	if !ok {
		s.logger.Warn("scenario B entry failed", "position_id", pos.ID)
		return
	}
	s.logger.Info("scenario B entry opened", "position_id", pos.ID, "spread", calc.Spread)
	s.current = pos
	s.exitVenueA = cheapVenue
	s.exitVenueB = expensiveVenue
}

func (s *ScenarioB) checkExit(ctx context.Context) {
	priceX, ok := s.cache.GetPrice(s.venueX.Name(), s.symX)
	if !ok {
		return
	}
	priceY, ok := s.cache.GetPrice(s.venueY.Name(), s.symY)
	if !ok {
		return
	}

	calc := market.SpreadScenarioB(priceX.Price, priceY.Price, s.venueX.Name(), s.venueY.Name())
	if !market.ExitOk(calc.Spread, s.exitThreshold) {
		return
	}

	if s.coord.Exit(ctx, s.current, s.exitVenueA, s.exitVenueB) {
		s.logger.Info("scenario B exit closed", "position_id", s.current.ID, "pnl", s.current.PnL)
		s.current = nil
		s.exitVenueA, s.exitVenueB = nil, nil
	}
}
