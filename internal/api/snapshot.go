package api

import (
	"time"

	"arbitrage/internal/config"
	"arbitrage/internal/position"
	"arbitrage/pkg/types"
)

// SnapshotProvider is the read surface BuildSnapshot needs; history.Store
// satisfies it directly.
type SnapshotProvider interface {
	ListPositions(status types.PositionStatus) ([]*position.Position, error)
	RecentTrades(hours int) ([]types.HistoryEvent, error)
}

// recentTradesWindow bounds how far back /api/snapshot looks for trades.
const recentTradesWindow = 24

// BuildSnapshot aggregates open positions and recent trade history into a
// single read-only view for the dashboard.
func BuildSnapshot(provider SnapshotProvider, cfg config.Config) DashboardSnapshot {
	open, _ := provider.ListPositions(types.PositionOpened)
	trades, _ := provider.RecentTrades(recentTradesWindow)

	positions := make([]PositionView, 0, len(open))
	for _, p := range open {
		positions = append(positions, toPositionView(p))
	}

	views := make([]TradeView, 0, len(trades))
	for _, e := range trades {
		views = append(views, toTradeView(e))
	}

	return DashboardSnapshot{
		Timestamp:      time.Now().UTC(),
		OpenPositions:  positions,
		RecentTrades:   views,
		TotalOpenCount: len(positions),
		Config:         NewConfigSummary(cfg),
	}
}

func toPositionView(p *position.Position) PositionView {
	entryA, _ := p.EntryPriceA.Float64()
	entryB, _ := p.EntryPriceB.Float64()
	spread, _ := p.EntrySpread.Float64()
	pnl, _ := p.PnL.Float64()
	return PositionView{
		ID:          p.ID,
		Scenario:    string(p.Scenario),
		Status:      string(p.Status),
		VenueA:      p.VenueA,
		VenueB:      p.VenueB,
		SymbolA:     p.SymbolA,
		SymbolB:     p.SymbolB,
		EntryPriceA: entryA,
		EntryPriceB: entryB,
		EntrySpread: spread,
		PnL:         pnl,
	}
}
