// Package streams owns one background task per (venue, symbol, kind)
// price subscription, feeding a shared market.Cache. It consumes a venue's
// push stream and reconnects after a fixed backoff when the stream closes.
// When opening a stream fails, it falls back to polling: re-opening the
// stream once per fixed interval and taking a point if one is ready.
package streams

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"arbitrage/internal/market"
	"arbitrage/internal/venue"
	"arbitrage/pkg/types"
)

// defaultPollInterval is used when a venue adapter doesn't expose a push
// stream and the supervisor must poll instead.
const defaultPollInterval = time.Second

// defaultBackoff is the fixed reconnect delay after a stream error.
const defaultBackoff = time.Second

// Subscription describes one (venue, symbol, kind) feed to maintain.
type Subscription struct {
	Venue  venue.Client
	Symbol string
	Kind   types.PriceKind
}

// Supervisor runs one goroutine per Subscription, each writing into cache.
// A single cancellation (ctx) stops every child; Wait blocks until they've
// all returned.
type Supervisor struct {
	cache   *market.Cache
	logger  *slog.Logger
	wg      sync.WaitGroup
	backoff time.Duration
	poll    time.Duration
}

func New(cache *market.Cache, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{cache: cache, logger: logger, backoff: defaultBackoff, poll: defaultPollInterval}
}

// Start launches one task per subscription. It returns immediately; call
// Wait to block until ctx is cancelled and every task has exited.
func (s *Supervisor) Start(ctx context.Context, subs []Subscription) {
	for _, sub := range subs {
		sub := sub
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.run(ctx, sub)
		}()
	}
}

// Wait blocks until every task started by Start has returned.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}

func (s *Supervisor) run(ctx context.Context, sub Subscription) {
	stream, err := s.openStream(ctx, sub)
	if err != nil {
		s.logger.Warn("stream open failed, falling back to polling",
			"venue", sub.Venue.Name(), "symbol", sub.Symbol, "kind", sub.Kind, "error", err)
		s.poll_(ctx, sub)
		return
	}
	s.consume(ctx, sub, stream)
}

func (s *Supervisor) openStream(ctx context.Context, sub Subscription) (<-chan types.PricePoint, error) {
	if sub.Kind == types.Mark {
		return sub.Venue.StreamMarkPrice(ctx, sub.Symbol)
	}
	return sub.Venue.StreamSpotPrice(ctx, sub.Symbol)
}

// consume reads from a push stream until it closes or ctx is cancelled,
// then reconnects after a fixed backoff — the channel closing is treated
// the same as any other transient disconnect.
func (s *Supervisor) consume(ctx context.Context, sub Subscription, stream <-chan types.PricePoint) {
	for {
		select {
		case <-ctx.Done():
			return
		case point, ok := <-stream:
			if !ok {
				s.logger.Debug("stream closed, reconnecting", "venue", sub.Venue.Name(), "symbol", sub.Symbol)
				if !s.sleepOrDone(ctx, s.backoff) {
					return
				}
				next, err := s.openStream(ctx, sub)
				if err != nil {
					s.logger.Warn("reconnect failed, falling back to polling",
						"venue", sub.Venue.Name(), "symbol", sub.Symbol, "error", err)
					s.poll_(ctx, sub)
					return
				}
				stream = next
				continue
			}
			s.cache.UpdatePrice(sub.Venue.Name(), sub.Symbol, point)
		}
	}
}

// poll_ is the fallback path after a stream fails to open: once per fixed
// interval it re-opens the venue's stream and caches a point if one is
// immediately available. Open errors are logged and retried on the next
// tick; the loop ends when ctx is cancelled.
func (s *Supervisor) poll_(ctx context.Context, sub Subscription) {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stream, err := s.openStream(ctx, sub)
			if err != nil {
				s.logger.Warn("poll attempt failed, retrying next tick",
					"venue", sub.Venue.Name(), "symbol", sub.Symbol, "error", err)
				continue
			}
			select {
			case point, ok := <-stream:
				if ok {
					s.cache.UpdatePrice(sub.Venue.Name(), sub.Symbol, point)
				}
			case <-ctx.Done():
				return
			default:
			}
		}
	}
}

func (s *Supervisor) sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
