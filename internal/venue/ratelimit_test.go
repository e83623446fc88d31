package venue

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"arbitrage/pkg/types"
)

func TestTokenBucketAllowsBurstThenThrottles(t *testing.T) {
	t.Parallel()
	tb := NewTokenBucket(2, 1000) // burst 2, refills fast so the test stays quick

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 2; i++ {
		if err := tb.Wait(ctx); err != nil {
			t.Fatalf("Wait() within burst capacity: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("burst of 2 took %v, expected near-instant", elapsed)
	}
}

func TestTokenBucketRespectsContextCancellation(t *testing.T) {
	t.Parallel()
	tb := NewTokenBucket(1, 0.001) // effectively never refills within the test window
	ctx := context.Background()
	if err := tb.Wait(ctx); err != nil {
		t.Fatalf("first Wait() should consume the initial token: %v", err)
	}

	cancelCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := tb.Wait(cancelCtx); err == nil {
		t.Error("expected Wait() to return the context's error once the bucket is empty and ctx expires")
	}
}

func TestStubPlaceMarketOrderHonorsRateLimit(t *testing.T) {
	t.Parallel()
	s := NewStub("limited")
	s.SetRateLimit(1, 0.001) // burst of 1, effectively no refill in the test window

	ctx := context.Background()
	qty := decimal.NewFromInt(1)
	if _, err := s.PlaceMarketOrder(ctx, "BTCUSDT", types.Buy, qty); err != nil {
		t.Fatalf("first order should consume the initial token: %v", err)
	}

	cancelCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if _, err := s.PlaceMarketOrder(cancelCtx, "BTCUSDT", types.Buy, qty); err == nil {
		t.Error("expected the second order to block on the exhausted rate limit and time out")
	}
}
