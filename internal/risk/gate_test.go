package risk

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"arbitrage/internal/venue"
)

type fakeCounter struct {
	count int
	err   error
}

func (f fakeCounter) CountOpenPositions() (int, error) { return f.count, f.err }

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCheckPositionLimit(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		count   int
		max     int
		wantErr bool
	}{
		{"below limit", 2, 5, false},
		{"at limit", 5, 5, true},
		{"above limit", 6, 5, true},
		{"zero limit", 0, 0, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := New(Config{MaxPositions: tt.max}, fakeCounter{count: tt.count}, silentLogger())
			err := g.CheckPositionLimit()
			if tt.wantErr && !errors.Is(err, ErrMaxPositionsReached) {
				t.Errorf("got err=%v, want ErrMaxPositionsReached", err)
			}
			if tt.wantErr && !strings.Contains(err.Error(), "Maximum positions") {
				t.Errorf("got err=%q, want it to contain %q", err, "Maximum positions")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("got err=%v, want nil", err)
			}
		})
	}
}

func TestCheckBalanceSufficiency(t *testing.T) {
	t.Parallel()
	stub := venue.NewStub("test")
	stub.SetBalance("USDT", decimal.NewFromInt(100), decimal.Zero)

	g := New(Config{QuoteCurrency: "USDT", Leverage: decimal.NewFromInt(1)}, fakeCounter{}, silentLogger())

	// required = 5 * 10 / 1 = 50 <= 100 available
	if err := g.CheckBalanceSufficiency(context.Background(), stub, decimal.NewFromInt(5), decimal.NewFromInt(10)); err != nil {
		t.Errorf("expected sufficient balance, got %v", err)
	}

	// required = 50 * 10 / 1 = 500 > 100 available
	err := g.CheckBalanceSufficiency(context.Background(), stub, decimal.NewFromInt(50), decimal.NewFromInt(10))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("got err=%v, want ErrInsufficientBalance", err)
	}
	var insufficient *InsufficientBalanceError
	if !errors.As(err, &insufficient) {
		t.Fatalf("got err=%v, want *InsufficientBalanceError", err)
	}
	if !insufficient.Required.Equal(decimal.NewFromInt(500)) {
		t.Errorf("Required = %s, want 500", insufficient.Required)
	}
	if !insufficient.Available.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Available = %s, want 100", insufficient.Available)
	}
	if !insufficient.Shortfall().Equal(decimal.NewFromInt(400)) {
		t.Errorf("Shortfall = %s, want 400", insufficient.Shortfall())
	}
}

func TestCheckBalanceSufficiencySkipsWithoutPriceHint(t *testing.T) {
	t.Parallel()
	stub := venue.NewStub("test")
	stub.SetBalance("USDT", decimal.Zero, decimal.Zero)
	g := New(Config{QuoteCurrency: "USDT"}, fakeCounter{}, silentLogger())

	if err := g.CheckBalanceSufficiency(context.Background(), stub, decimal.NewFromInt(5), decimal.Zero); err != nil {
		t.Errorf("expected the check to be skipped (nil error), got %v", err)
	}
}

func TestSetLeverageIfNeededOnlyForPerpSymbols(t *testing.T) {
	t.Parallel()
	stub := venue.NewStub("test")
	g := New(Config{Leverage: decimal.NewFromInt(3)}, fakeCounter{}, silentLogger())

	g.SetLeverageIfNeeded(context.Background(), stub, "BTC-PERP")
	g.SetLeverageIfNeeded(context.Background(), stub, "BTCUSDT")
	// No observable side effect beyond "doesn't panic and doesn't error out
	// of the caller's control flow" — SetLeverage failures are swallowed.
}

func TestSetLeverageIfNeededSwallowsFailure(t *testing.T) {
	t.Parallel()
	stub := venue.NewStub("test")
	stub.SetLeverageError(&venue.UnsupportedOperationError{Venue: "test", Op: "set_leverage"})
	g := New(Config{Leverage: decimal.NewFromInt(3)}, fakeCounter{}, silentLogger())

	g.SetLeverageIfNeeded(context.Background(), stub, "BTC-SWAP")
}

func TestOrderQuantity(t *testing.T) {
	t.Parallel()
	g := New(Config{FixedOrderSize: decimal.NewFromInt(100)}, fakeCounter{}, silentLogger())

	got := g.OrderQuantity(decimal.NewFromInt(50))
	want := decimal.NewFromInt(2)
	if !got.Equal(want) {
		t.Errorf("OrderQuantity = %s, want %s", got, want)
	}

	fallback := g.OrderQuantity(decimal.Zero)
	if fallback.IsZero() {
		t.Error("OrderQuantity with no price hint should fall back to a non-zero default")
	}
}

func TestIsLeveragedDefaultSet(t *testing.T) {
	t.Parallel()
	g := New(Config{}, fakeCounter{}, silentLogger())
	cases := map[string]bool{
		"BTC-PERP":  true,
		"ETH-SWAP":  true,
		"BTCUSDT":   false,
		"btc-perp":  true,
	}
	for symbol, want := range cases {
		if got := g.isLeveraged(symbol); got != want {
			t.Errorf("isLeveraged(%q) = %v, want %v", symbol, got, want)
		}
	}
}
