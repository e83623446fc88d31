// Package strategy polls the spread engine on a fixed tick and drives the
// coordinator's entry/exit state machines: scenario A (spot-vs-perp) and
// scenario B (perp-vs-perp), one position at a time per instance.
package strategy

import (
	"context"
	"log/slog"
	"time"

	"arbitrage/internal/position"
)

// defaultTick is the strategy loop's polling interval.
const defaultTick = 500 * time.Millisecond

// Evaluator is implemented by ScenarioA and ScenarioB: one tick either
// attempts entry (no open position) or exit (position open).
type Evaluator interface {
	Tick(ctx context.Context)
	CurrentPosition() *position.Position
}

// Run drives ev on a fixed interval until ctx is cancelled.
func Run(ctx context.Context, ev Evaluator, tick time.Duration, logger *slog.Logger) {
	if tick <= 0 {
		tick = defaultTick
	}
	if logger == nil {
		logger = slog.Default()
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ev.Tick(ctx)
		}
	}
}
