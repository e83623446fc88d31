package market

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"arbitrage/pkg/types"
)

func TestCacheGetPriceUnknown(t *testing.T) {
	t.Parallel()
	c := NewCache()

	if _, ok := c.GetPrice("binance", "BTCUSDT"); ok {
		t.Fatal("expected unknown for never-written key")
	}
}

func TestCacheLastWriteWins(t *testing.T) {
	t.Parallel()
	c := NewCache()

	c.UpdatePrice("binance", "BTCUSDT", types.PricePoint{Price: decimal.NewFromInt(100), TimestampMs: 1})
	c.UpdatePrice("binance", "BTCUSDT", types.PricePoint{Price: decimal.NewFromInt(200), TimestampMs: 2})

	got, ok := c.GetPrice("binance", "BTCUSDT")
	if !ok {
		t.Fatal("expected a price")
	}
	if !got.Price.Equal(decimal.NewFromInt(200)) {
		t.Errorf("GetPrice = %s, want 200 (last write)", got.Price)
	}
}

func TestCacheConcurrentWritesNoRace(t *testing.T) {
	c := NewCache()
	var wg sync.WaitGroup

	venues := []string{"binance", "okx", "bybit", "gate"}
	for _, v := range venues {
		wg.Add(1)
		go func(venue string) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				c.UpdatePrice(venue, "BTCUSDT", types.PricePoint{
					Price:       decimal.NewFromInt(int64(i)),
					Venue:       venue,
					Symbol:      "BTCUSDT",
					TimestampMs: int64(i),
				})
			}
		}(v)
	}
	wg.Wait()

	for _, v := range venues {
		p, ok := c.GetPrice(v, "BTCUSDT")
		if !ok {
			t.Errorf("expected a price for venue %s", v)
		}
		if p.Venue != v {
			t.Errorf("cross-venue contamination: GetPrice(%s) returned venue %s", v, p.Venue)
		}
	}
}

func TestCacheIndependentKeys(t *testing.T) {
	t.Parallel()
	c := NewCache()

	c.UpdatePrice("binance", "BTCUSDT", types.PricePoint{Price: decimal.NewFromInt(1)})
	if _, ok := c.GetPrice("binance", "ETHUSDT"); ok {
		t.Fatal("expected unknown for unwritten symbol on same venue")
	}
	if _, ok := c.GetPrice("okx", "BTCUSDT"); ok {
		t.Fatal("expected unknown for unwritten venue with same symbol")
	}
}
