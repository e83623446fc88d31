package streams

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"arbitrage/internal/market"
	"arbitrage/internal/venue"
	"arbitrage/pkg/types"
)

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// streamingStub emits a fixed sequence of points on its mark-price stream,
// then closes it, exercising the push path and its reconnect. Its spot
// stream is the embedded Stub's, which closes immediately.
type streamingStub struct {
	*venue.Stub
	points []types.PricePoint
}

func newStreamingStub(name string, points []types.PricePoint) *streamingStub {
	return &streamingStub{Stub: venue.NewStub(name), points: points}
}

func (s *streamingStub) StreamMarkPrice(ctx context.Context, symbol string) (<-chan types.PricePoint, error) {
	ch := make(chan types.PricePoint, len(s.points))
	for _, p := range s.points {
		ch <- p
	}
	close(ch)
	return ch, nil
}

func TestSupervisorFeedsCacheFromPushStream(t *testing.T) {
	cache := market.NewCache()
	points := []types.PricePoint{
		{Price: decimal.NewFromInt(100), Kind: types.Mark, Venue: "alpha", Symbol: "BTCUSDT"},
	}
	stub := newStreamingStub("alpha", points)

	sup := New(cache, silentLogger())
	sup.backoff = 10 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())

	sup.Start(ctx, []Subscription{{Venue: stub, Symbol: "BTCUSDT", Kind: types.Mark}})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, ok := cache.GetPrice("alpha", "BTCUSDT"); ok {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	point, ok := cache.GetPrice("alpha", "BTCUSDT")
	if !ok {
		t.Fatal("expected the cache to have been populated from the stream")
	}
	if !point.Price.Equal(decimal.NewFromInt(100)) {
		t.Errorf("cached price = %s, want 100", point.Price)
	}

	cancel()
	sup.Wait()
}

func TestSupervisorReturnsPromptlyOnCancelAfterStreamCloses(t *testing.T) {
	stub := venue.NewStub("beta") // Stub's default stream closes immediately.

	cache := market.NewCache()
	sup := New(cache, silentLogger())

	ctx, cancel := context.WithCancel(context.Background())
	sup.Start(ctx, []Subscription{{Venue: stub, Symbol: "ETHUSDT", Kind: types.Spot}})

	// The closed stream sends the task into its reconnect backoff; cancel
	// must still stop it promptly instead of waiting out the full backoff.
	time.Sleep(30 * time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() { sup.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("supervisor did not stop within 1s of cancellation")
	}
}
