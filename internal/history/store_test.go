package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"arbitrage/internal/position"
	"arbitrage/pkg/types"
)

func TestStoreRecordAndLoadPositionRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	now := time.Now().UTC()
	store.Record(types.HistoryEvent{
		Timestamp:  now,
		EventType:  types.EventPositionCreated,
		PositionID: "pos-abc",
		Scenario:   types.ScenarioA,
		VenueA:     "alpha",
		VenueB:     "beta",
		SymbolA:    "BTCUSDT",
		SymbolB:    "BTCUSDT",
		Metadata:   map[string]any{"qty_a": 2.0, "qty_b": 2.0},
	})
	store.Record(types.HistoryEvent{
		Timestamp:  now.Add(time.Second),
		EventType:  types.EventOrderPlaced,
		PositionID: "pos-abc",
		Metadata:   map[string]any{"leg": "a", "order_id": "ord-a1"},
	})
	store.Record(types.HistoryEvent{
		Timestamp:  now.Add(2 * time.Second),
		EventType:  types.EventOrderPlaced,
		PositionID: "pos-abc",
		Metadata:   map[string]any{"leg": "b", "order_id": "ord-b1"},
	})
	store.Record(types.HistoryEvent{
		Timestamp:  now.Add(3 * time.Second),
		EventType:  types.EventPositionOpened,
		PositionID: "pos-abc",
		Price:      decimal.NewFromFloat(0.02),
		Metadata: map[string]any{
			"entry_price_a": 100.0,
			"entry_price_b": 98.0,
		},
	})

	got, err := store.LoadPosition("pos-abc")
	if err != nil {
		t.Fatalf("LoadPosition: %v", err)
	}
	if got == nil {
		t.Fatal("LoadPosition returned nil for a recorded position")
	}
	if got.Status != position.Opened {
		t.Errorf("Status = %q, want OPENED", got.Status)
	}
	if got.OrderIDA != "ord-a1" || got.OrderIDB != "ord-b1" {
		t.Errorf("order ids = (%q, %q), want (ord-a1, ord-b1)", got.OrderIDA, got.OrderIDB)
	}
	if !got.EntryPriceA.Equal(decimal.NewFromFloat(100.0)) {
		t.Errorf("EntryPriceA = %s, want 100", got.EntryPriceA)
	}

	count, err := store.CountOpenPositions()
	if err != nil {
		t.Fatalf("CountOpenPositions: %v", err)
	}
	if count != 1 {
		t.Errorf("CountOpenPositions = %d, want 1", count)
	}

	// Closing the position should flip CountOpenPositions back to zero —
	// status is derived from the latest event, never accumulated.
	store.Record(types.HistoryEvent{
		Timestamp:  now.Add(4 * time.Second),
		EventType:  types.EventPositionClosed,
		PositionID: "pos-abc",
		Price:      decimal.NewFromFloat(0.01),
		PnL:        decimal.NewFromFloat(3.5),
	})

	count, err = store.CountOpenPositions()
	if err != nil {
		t.Fatalf("CountOpenPositions after close: %v", err)
	}
	if count != 0 {
		t.Errorf("CountOpenPositions after close = %d, want 0", count)
	}

	history, err := store.PositionHistory("pos-abc")
	if err != nil {
		t.Fatalf("PositionHistory: %v", err)
	}
	if len(history) != 5 {
		t.Fatalf("PositionHistory returned %d events, want 5", len(history))
	}
	for i := 1; i < len(history); i++ {
		if history[i].Timestamp.Before(history[i-1].Timestamp) {
			t.Errorf("PositionHistory not oldest-first at index %d", i)
		}
	}
}

func TestStoreRecordNeverFailsOnBadMetadata(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	// Metadata containing an unmarshalable value (a channel) must not panic
	// or block Record; the event is simply logged and dropped by that sink.
	store.Record(types.HistoryEvent{
		EventType:  types.EventPositionError,
		PositionID: "pos-bad",
		Metadata:   map[string]any{"chan": make(chan int)},
	})
}

func TestOpenCreatesHistoryDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "history")
	store, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()
}
