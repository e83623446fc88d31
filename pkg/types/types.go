// Package types defines shared data structures used across all packages.
//
// This package is the common vocabulary for the arbitrage engine — price
// points, order/venue shapes, and position scenarios. It has no
// dependencies on internal packages, so it can be imported by any layer.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// ————————————————————————————————————————————————————————————————————————
// Core enums
// ————————————————————————————————————————————————————————————————————————

// Side represents the direction of an order: BUY or SELL.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Opposite returns the reverse side, used when building a compensating order.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// PriceKind distinguishes the two scalar price types the system consumes.
// The cache treats them identically; only the strategy layer cares which
// kind it asked for.
type PriceKind string

const (
	Spot PriceKind = "SPOT"
	Mark PriceKind = "MARK"
)

// OrderStatus is the normalized status of a venue order response. Venues
// report status as free-form strings; the venue boundary maps them
// case-insensitively into this enum. Unknown strings map to Unknown —
// the core never branches on a raw string.
type OrderStatus string

const (
	OrderNew             OrderStatus = "NEW"
	OrderPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderFilled          OrderStatus = "FILLED"
	OrderCancelled       OrderStatus = "CANCELLED"
	OrderRejected        OrderStatus = "REJECTED"
	OrderUnknown         OrderStatus = "UNKNOWN"
)

// ParseOrderStatus maps a venue-specific status string onto the normalized
// enum. Matching is case-insensitive and also accepts the common synonym
// "closed" (some venues report fully-filled market orders this way).
func ParseOrderStatus(raw string) OrderStatus {
	switch normalizeStatus(raw) {
	case "new", "open", "live":
		return OrderNew
	case "partially_filled", "partial":
		return OrderPartiallyFilled
	case "filled", "closed", "done":
		return OrderFilled
	case "cancelled", "canceled":
		return OrderCancelled
	case "rejected":
		return OrderRejected
	default:
		return OrderUnknown
	}
}

func normalizeStatus(raw string) string {
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}

// ————————————————————————————————————————————————————————————————————————
// Price ingestion
// ————————————————————————————————————————————————————————————————————————

// PricePoint is an immutable snapshot of a single price observation for a
// (venue, symbol) pair. The cache overwrites its stored point on every
// update; no history is retained.
type PricePoint struct {
	Price       decimal.Decimal
	Kind        PriceKind
	Venue       string
	Symbol      string
	TimestampMs int64
}

// ————————————————————————————————————————————————————————————————————————
// Balances and orders
// ————————————————————————————————————————————————————————————————————————

// Balance reports free/used/total holdings of one asset on one venue.
type Balance struct {
	Asset string
	Free  decimal.Decimal
	Used  decimal.Decimal
}

// Total returns Free + Used.
func (b Balance) Total() decimal.Decimal {
	return b.Free.Add(b.Used)
}

// Order is the normalized response to placing, querying, or cancelling an
// order on a venue. Status is already mapped onto OrderStatus at the venue
// boundary — the core never sees a raw venue string.
type Order struct {
	OrderID           string
	Symbol            string
	Side              Side
	QuantityRequested decimal.Decimal
	QuantityFilled    decimal.Decimal
	AvgPrice          decimal.Decimal
	Status            OrderStatus
}

// ————————————————————————————————————————————————————————————————————————
// Positions
// ————————————————————————————————————————————————————————————————————————

// Scenario identifies which strategy variant opened a position.
type Scenario string

const (
	ScenarioA Scenario = "a" // spot-vs-perp
	ScenarioB Scenario = "b" // perp-vs-perp
)

// PositionStatus is the lifecycle state of an arbitrage position.
// Transitions are monotone along PENDING < OPENED < CLOSING < CLOSED;
// ERROR is reachable from any non-terminal state and is absorbing.
type PositionStatus string

const (
	PositionPending PositionStatus = "PENDING"
	PositionOpened  PositionStatus = "OPENED"
	PositionClosing PositionStatus = "CLOSING"
	PositionClosed  PositionStatus = "CLOSED"
	PositionError   PositionStatus = "ERROR"
)

// HistoryEventType enumerates the append-only event kinds recorded by the
// HistoryStore.
type HistoryEventType string

const (
	EventPositionCreated     HistoryEventType = "position_created"
	EventPositionOpened      HistoryEventType = "position_opened"
	EventPositionClosed      HistoryEventType = "position_closed"
	EventPositionError       HistoryEventType = "position_error"
	EventOrderPlaced         HistoryEventType = "order_placed"
	EventOrderCancelled      HistoryEventType = "order_cancelled"
	EventOrderRollback       HistoryEventType = "order_rollback"
	EventOrderFailed         HistoryEventType = "order_failed"
	EventInsufficientBalance HistoryEventType = "insufficient_balance"
)

// HistoryEvent is one append-only record in the trade log. Metadata is a
// free-form key-value map serialized as compact JSON in both sinks.
type HistoryEvent struct {
	ID           int64 // relational auto-increment id; zero until persisted
	Timestamp    time.Time
	EventType    HistoryEventType
	PositionID   string
	Scenario     Scenario
	VenueA       string
	VenueB       string
	SymbolA      string
	SymbolB      string
	OrderType    string
	Side         Side
	Quantity     decimal.Decimal
	Price        decimal.Decimal
	PnL          decimal.Decimal
	Status       string
	ErrorMessage string
	Metadata     map[string]any
}
