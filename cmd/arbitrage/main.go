// Command arbitrage runs the cross-venue arbitrage execution engine.
//
// Architecture:
//
//	main.go                    — entry point: loads config, wires every
//	                              component, waits for SIGINT/SIGTERM.
//	internal/venue             — the VenueClient contract + factory;
//	                              concrete adapters are replaceable
//	                              collaborators built against it.
//	internal/market            — PriceCache + SpreadEngine.
//	internal/streams           — PriceStreamSupervisor: one goroutine per
//	                              (venue, symbol, kind) subscription.
//	internal/risk               — RiskGate: pre-trade balance/position/
//	                              leverage checks.
//	internal/history           — append-only CSV + relational trade log,
//	                              also used to recover open positions.
//	internal/coordinator        — OrderCoordinator: the two-leg entry/exit
//	                              state machine with cancel+hedge
//	                              compensation.
//	internal/strategy           — ScenarioA/ScenarioB evaluators driven by
//	                              StrategyLoop.Run on a fixed tick.
//	internal/api                — optional read-only dashboard (HTTP +
//	                              websocket) backed by the history store.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"arbitrage/internal/api"
	"arbitrage/internal/config"
	"arbitrage/internal/coordinator"
	"arbitrage/internal/history"
	"arbitrage/internal/market"
	"arbitrage/internal/position"
	"arbitrage/internal/risk"
	"arbitrage/internal/strategy"
	"arbitrage/internal/streams"
	"arbitrage/internal/venue"
	"arbitrage/pkg/types"
)

func main() {
	cfgPath := config.ConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(config.LogLevel(cfg), cfg.Logging.Format)
	logger.Info("config loaded", "path", cfgPath, "config", cfg.Redacted())

	if !cfg.Arbitrage.Enabled {
		logger.Info("arbitrage disabled in config, nothing to run")
		return
	}

	store, err := history.Open("data", logger)
	if err != nil {
		logger.Error("failed to open history store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	clientA, err := buildVenue(cfg.Arbitrage.ExchangeA, cfg, logger)
	if err != nil {
		logger.Error("failed to build exchange_a client", "exchange", cfg.Arbitrage.ExchangeA, "error", err)
		os.Exit(1)
	}
	defer clientA.Close()

	clientB, err := buildVenue(cfg.Arbitrage.ExchangeB, cfg, logger)
	if err != nil {
		logger.Error("failed to build exchange_b client", "exchange", cfg.Arbitrage.ExchangeB, "error", err)
		os.Exit(1)
	}
	defer clientB.Close()

	gate := risk.New(risk.Config{
		MaxPositions:   cfg.Trading.MaxPositions,
		Leverage:       decimal.NewFromFloat(cfg.Trading.Leverage),
		FixedOrderSize: decimal.NewFromFloat(cfg.Trading.FixedOrderSize),
	}, store, logger)

	coord := coordinator.New(gate, store, logger)

	var apiServer *api.Server
	if cfg.Dashboard.Enabled {
		apiServer = api.NewServer(cfg.Dashboard, store, *cfg, logger)
		coord.SetBroadcaster(apiServer)
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error("dashboard server failed", "error", err)
			}
		}()
		logger.Info("dashboard started", "url", fmt.Sprintf("http://localhost:%d", cfg.Dashboard.Port))
	}

	cache := market.NewCache()
	supervisor := streams.New(cache, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	openPositions, err := store.ListPositions(types.PositionOpened)
	if err != nil {
		logger.Error("failed to recover open positions from history", "error", err)
		os.Exit(1)
	}

	symbol := cfg.Arbitrage.Symbol
	var ev strategy.Evaluator
	switch cfg.Arbitrage.Scenario {
	case "a":
		supervisor.Start(ctx, []streams.Subscription{
			{Venue: clientA, Symbol: symbol, Kind: types.Mark},
			{Venue: clientB, Symbol: symbol, Kind: types.Spot},
		})
		sa := strategy.NewScenarioA(cache, coord, gate, clientA, clientB, symbol, symbol,
			decimal.NewFromFloat(cfg.Arbitrage.EntryThreshold), decimal.NewFromFloat(cfg.Arbitrage.ExitThreshold),
			cfg.Normalization.QuoteCurrencies, logger)
		if pos := recoveredPosition(openPositions, types.ScenarioA); pos != nil {
			logger.Info("resuming open position from history", "position_id", pos.ID)
			sa.Resume(pos)
		}
		ev = sa
	case "b":
		supervisor.Start(ctx, []streams.Subscription{
			{Venue: clientA, Symbol: symbol, Kind: types.Mark},
			{Venue: clientB, Symbol: symbol, Kind: types.Mark},
		})
		sb := strategy.NewScenarioB(cache, coord, gate, clientA, clientB, symbol, symbol,
			decimal.NewFromFloat(cfg.Arbitrage.EntryThreshold), decimal.NewFromFloat(cfg.Arbitrage.ExitThreshold),
			cfg.Normalization.QuoteCurrencies, logger)
		if pos := recoveredPosition(openPositions, types.ScenarioB); pos != nil {
			logger.Info("resuming open position from history", "position_id", pos.ID)
			sb.Resume(pos)
		}
		ev = sb
	default:
		logger.Error("unknown arbitrage.scenario", "scenario", cfg.Arbitrage.Scenario)
		os.Exit(1)
	}

	go strategy.Run(ctx, ev, 500*time.Millisecond, logger)

	logger.Info("arbitrage engine started",
		"scenario", cfg.Arbitrage.Scenario,
		"exchange_a", cfg.Arbitrage.ExchangeA,
		"exchange_b", cfg.Arbitrage.ExchangeB,
		"symbol", symbol,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	cancel()
	supervisor.Wait()

	if apiServer != nil {
		if err := apiServer.Stop(); err != nil {
			logger.Error("failed to stop dashboard", "error", err)
		}
	}
}

// recoveredPosition returns the first open position matching scenario,
// if any. A process only ever runs one scenario instance, so at most one
// should exist, but the history log is the source of truth, not an
// in-memory invariant, so this tolerates more than one by taking the
// first.
func recoveredPosition(positions []*position.Position, scenario types.Scenario) *position.Position {
	for _, p := range positions {
		if p.Scenario == scenario {
			return p
		}
	}
	return nil
}

// buildVenue looks up a registered adapter for name; if none is
// registered (no concrete adapter ships with this module — see
// internal/venue's package doc) it falls back to an in-memory stub so the
// engine still runs end-to-end, and says so loudly.
func buildVenue(name string, cfg *config.Config, logger *slog.Logger) (venue.Client, error) {
	options := map[string]any{}
	if ex, ok := cfg.Exchanges[name]; ok {
		options = ex.Options
		if options == nil {
			options = map[string]any{}
		}
	}

	client, err := venue.Build(name, options)
	if err == nil {
		return client, nil
	}
	if _, unsupported := err.(*venue.UnsupportedOperationError); !unsupported {
		return nil, err
	}

	logger.Warn("no adapter registered for venue, using in-memory stub", "venue", name)
	stub := venue.NewStub(name)
	applyRateLimit(stub, options, logger)
	return stub, nil
}

// applyRateLimit reads exchanges.<name>.options.rate_limit_per_sec /
// .rate_limit_burst (both float64-ish, per spec §6's venue options bag)
// and installs a token-bucket limiter on the stub so the fallback adapter
// throttles itself the way a real adapter would against a venue's
// published request limits. Absent either key, no limiter is installed.
func applyRateLimit(stub *venue.Stub, options map[string]any, logger *slog.Logger) {
	rate, rateOK := toFloat(options["rate_limit_per_sec"])
	burst, burstOK := toFloat(options["rate_limit_burst"])
	if !rateOK || !burstOK || rate <= 0 || burst <= 0 {
		return
	}
	stub.SetRateLimit(burst, rate)
	logger.Info("rate limit configured for venue", "venue", stub.Name(), "rate_per_sec", rate, "burst", burst)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func newLogger(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(level)}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
