// Package coordinator implements the two-leg order execution state
// machine: either both legs end FILLED with the intended side and
// quantity, or the position is left flat on both venues and marked ERROR.
// Market orders on two independent venues can't be committed atomically,
// so failures are handled with forward compensation — cancel the
// unconfirmed leg and flatten any already-executed counter-leg with a
// reverse-side market order — never true rollback.
package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"arbitrage/internal/history"
	"arbitrage/internal/position"
	"arbitrage/internal/risk"
	"arbitrage/internal/venue"
	"arbitrage/pkg/types"
)

// defaultQtyTolerance is the maximum relative difference between filled
// and requested quantity still considered a confirmed fill.
const defaultQtyTolerance = 0.01

// EntryParams describes one proposed two-leg entry.
type EntryParams struct {
	Scenario types.Scenario

	VenueA  venue.Client
	SymbolA string
	QtyA    decimal.Decimal
	PriceA  decimal.Decimal // price hint for risk sizing, not the fill price

	VenueB  venue.Client
	SymbolB string
	QtyB    decimal.Decimal
	PriceB  decimal.Decimal
}

// Broadcaster is notified of every history event the coordinator records,
// in addition to the durable write to the history store. The dashboard
// API server implements this to push live trade updates to websocket
// clients; it is optional and nil in tests and headless deployments.
type Broadcaster interface {
	BroadcastTrade(e types.HistoryEvent)
}

// Coordinator runs the entry/exit state machines for one position at a
// time. Each position is mutated by exactly one coordinator call; the
// caller (a StrategyLoop) is responsible for not invoking Enter/Exit
// concurrently for the same position.
type Coordinator struct {
	gate         *risk.Gate
	store        *history.Store
	broadcaster  Broadcaster
	logger       *slog.Logger
	qtyTolerance decimal.Decimal
}

func New(gate *risk.Gate, store *history.Store, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		gate:         gate,
		store:        store,
		logger:       logger,
		qtyTolerance: decimal.NewFromFloat(defaultQtyTolerance),
	}
}

// SetBroadcaster attaches an optional live-event sink. Call before the
// coordinator starts processing entries/exits; it is not safe to swap
// concurrently with in-flight Enter/Exit calls.
func (c *Coordinator) SetBroadcaster(b Broadcaster) {
	c.broadcaster = b
}

// Enter runs the entry state machine. It returns the new Position and true
// on success (terminal state OPENED); on any failure it returns the
// position in its terminal ERROR state (or nil if no position could be
// created at all) and false.
func (c *Coordinator) Enter(ctx context.Context, p EntryParams) (*position.Position, bool) {
	pos := position.New(p.Scenario, p.VenueA.Name(), p.SymbolA, p.QtyA, p.VenueB.Name(), p.SymbolB, p.QtyB)

	c.record(types.HistoryEvent{
		EventType:  types.EventPositionCreated,
		PositionID: pos.ID,
		Scenario:   p.Scenario,
		VenueA:     p.VenueA.Name(),
		VenueB:     p.VenueB.Name(),
		SymbolA:    p.SymbolA,
		SymbolB:    p.SymbolB,
		Metadata: map[string]any{
			"qty_a": qtyFloat(p.QtyA),
			"qty_b": qtyFloat(p.QtyB),
		},
	})

	// INIT: pre-trade risk checks. No orders placed yet, so a failure here
	// needs no compensation.
	if err := c.preTradeChecks(ctx, pos, p); err != nil {
		var insufficient *risk.InsufficientBalanceError
		if errors.As(err, &insufficient) {
			c.recordInsufficientBalance(pos, insufficient)
		}
		c.recordPositionError(pos, "pre-trade risk check failed", err)
		pos.MarkError()
		return pos, false
	}

	// PLACE_A / VALIDATE_A
	orderA, err := p.VenueA.PlaceMarketOrder(ctx, p.SymbolA, types.Buy, p.QtyA)
	if err != nil {
		c.record(orderFailedEvent(pos, "a", types.Buy, p.QtyA, err))
		c.recordPositionError(pos, "leg A placement failed", err)
		pos.MarkError()
		return pos, false
	}
	pos.OrderIDA = orderA.OrderID
	c.record(orderPlacedEvent(pos, "a", orderA))

	if err := ValidateExecution(orderA, p.QtyA, c.qtyTolerance); err != nil {
		c.cleanupLeg(ctx, p.VenueA, p.SymbolA, orderA.OrderID, types.Buy, p.QtyA, "entry_a_unconfirmed")
		c.recordPositionError(pos, "leg A unconfirmed", err)
		pos.MarkError()
		return pos, false
	}

	// PLACE_B / VALIDATE_B
	orderB, err := p.VenueB.PlaceMarketOrder(ctx, p.SymbolB, types.Sell, p.QtyB)
	if err != nil {
		c.record(orderFailedEvent(pos, "b", types.Sell, p.QtyB, err))
		c.hedgeLeg(ctx, p.VenueA, p.SymbolA, types.Buy.Opposite(), p.QtyA, "entry_b_placement_failed")
		c.recordPositionError(pos, "leg B placement failed", err)
		pos.MarkError()
		return pos, false
	}
	pos.OrderIDB = orderB.OrderID
	c.record(orderPlacedEvent(pos, "b", orderB))

	if err := ValidateExecution(orderB, p.QtyB, c.qtyTolerance); err != nil {
		c.cleanupLeg(ctx, p.VenueB, p.SymbolB, orderB.OrderID, types.Sell, p.QtyB, "entry_b_unconfirmed")
		c.hedgeLeg(ctx, p.VenueA, p.SymbolA, types.Buy.Opposite(), p.QtyA, "entry_b_unconfirmed")
		c.recordPositionError(pos, "leg B unconfirmed", err)
		pos.MarkError()
		return pos, false
	}

	pos.MarkOpened(orderA.AvgPrice, orderB.AvgPrice)
	c.record(types.HistoryEvent{
		EventType:  types.EventPositionOpened,
		PositionID: pos.ID,
		Scenario:   pos.Scenario,
		VenueA:     pos.VenueA,
		VenueB:     pos.VenueB,
		SymbolA:    pos.SymbolA,
		SymbolB:    pos.SymbolB,
		Price:      pos.EntrySpread,
		Metadata: map[string]any{
			"entry_price_a": qtyFloat(orderA.AvgPrice),
			"entry_price_b": qtyFloat(orderB.AvgPrice),
		},
	})
	return pos, true
}

// Exit runs the exit state machine for an OPENED position: reverse-side
// market orders on both venues, in order (A then B), each validated.
func (c *Coordinator) Exit(ctx context.Context, pos *position.Position, venueA, venueB venue.Client) bool {
	pos.MarkClosing()

	exitSideA := pos.SideA.Opposite()
	orderA, err := venueA.PlaceMarketOrder(ctx, pos.SymbolA, exitSideA, pos.QtyA)
	if err != nil {
		c.record(orderFailedEvent(pos, "a", exitSideA, pos.QtyA, err))
		c.recordPositionError(pos, "exit leg A placement failed", err)
		pos.MarkError()
		return false
	}
	c.record(orderPlacedEvent(pos, "a", orderA))

	if err := ValidateExecution(orderA, pos.QtyA, c.qtyTolerance); err != nil {
		// Exit-A unconfirmed: cancel + opposite-side market re-opens leg A.
		c.cleanupLeg(ctx, venueA, pos.SymbolA, orderA.OrderID, exitSideA, pos.QtyA, "exit_a_unconfirmed")
		c.recordPositionError(pos, "exit leg A unconfirmed", err)
		pos.MarkError()
		return false
	}

	exitSideB := pos.SideB.Opposite()
	orderB, err := venueB.PlaceMarketOrder(ctx, pos.SymbolB, exitSideB, pos.QtyB)
	if err != nil {
		c.record(orderFailedEvent(pos, "b", exitSideB, pos.QtyB, err))
		// Restore the hedge: re-open leg A in its original direction.
		c.hedgeLeg(ctx, venueA, pos.SymbolA, pos.SideA, pos.QtyA, "exit_b_placement_failed_restore_hedge")
		c.recordPositionError(pos, "exit leg B placement failed", err)
		pos.MarkError()
		return false
	}
	c.record(orderPlacedEvent(pos, "b", orderB))

	if err := ValidateExecution(orderB, pos.QtyB, c.qtyTolerance); err != nil {
		c.cleanupLeg(ctx, venueB, pos.SymbolB, orderB.OrderID, exitSideB, pos.QtyB, "exit_b_unconfirmed")
		c.hedgeLeg(ctx, venueA, pos.SymbolA, pos.SideA, pos.QtyA, "exit_b_unconfirmed_restore_hedge")
		c.recordPositionError(pos, "exit leg B unconfirmed", err)
		pos.MarkError()
		return false
	}

	pos.MarkClosed(orderA.AvgPrice, orderB.AvgPrice)
	c.record(types.HistoryEvent{
		EventType:  types.EventPositionClosed,
		PositionID: pos.ID,
		Scenario:   pos.Scenario,
		VenueA:     pos.VenueA,
		VenueB:     pos.VenueB,
		SymbolA:    pos.SymbolA,
		SymbolB:    pos.SymbolB,
		Price:      pos.ExitSpread,
		PnL:        pos.PnL,
	})
	return true
}

func (c *Coordinator) preTradeChecks(ctx context.Context, pos *position.Position, p EntryParams) error {
	if err := c.gate.CheckPositionLimit(); err != nil {
		return err
	}
	c.gate.SetLeverageIfNeeded(ctx, p.VenueA, p.SymbolA)
	c.gate.SetLeverageIfNeeded(ctx, p.VenueB, p.SymbolB)
	if err := c.gate.CheckBalanceSufficiency(ctx, p.VenueA, p.QtyA, p.PriceA); err != nil {
		return err
	}
	if err := c.gate.CheckBalanceSufficiency(ctx, p.VenueB, p.QtyB, p.PriceB); err != nil {
		return err
	}
	return nil
}

// cleanupLeg implements CLEANUP_X: best-effort cancel the just-placed
// order (ignoring errors), then place an opposite-side market order for
// the same quantity, tagged order_rollback.
func (c *Coordinator) cleanupLeg(ctx context.Context, client venue.Client, symbol, orderID string, placedSide types.Side, qty decimal.Decimal, reason string) {
	_, _ = client.CancelOrder(ctx, orderID, symbol) // best-effort, errors ignored

	rollbackSide := placedSide.Opposite()
	rollbackOrder, err := client.PlaceMarketOrder(ctx, symbol, rollbackSide, qty)
	meta := map[string]any{"reason": reason, "original_order_id": orderID}
	if err != nil {
		meta["error"] = err.Error()
		c.record(types.HistoryEvent{
			EventType:  types.EventOrderFailed,
			VenueA:     client.Name(),
			SymbolA:    symbol,
			Side:       rollbackSide,
			Quantity:   qty,
			ErrorMessage: "rollback order failed, manual intervention required: " + err.Error(),
			Metadata:   meta,
		})
		return
	}
	meta["rollback_order_id"] = rollbackOrder.OrderID
	c.record(types.HistoryEvent{
		EventType: types.EventOrderRollback,
		VenueA:    client.Name(),
		SymbolA:   symbol,
		Side:      rollbackSide,
		Quantity:  qty,
		Price:     rollbackOrder.AvgPrice,
		Status:    string(rollbackOrder.Status),
		Metadata:  meta,
	})
}

// hedgeLeg implements HEDGE_A: the confirmed leg was already filled, so no
// cancel is needed — just place a market order for side (the direction
// that neutralizes or restores the existing fill) and the same quantity.
func (c *Coordinator) hedgeLeg(ctx context.Context, client venue.Client, symbol string, side types.Side, qty decimal.Decimal, reason string) {
	hedgeOrder, err := client.PlaceMarketOrder(ctx, symbol, side, qty)
	meta := map[string]any{"reason": reason}
	if err != nil {
		meta["error"] = err.Error()
		c.record(types.HistoryEvent{
			EventType:  types.EventOrderFailed,
			VenueA:     client.Name(),
			SymbolA:    symbol,
			Quantity:   qty,
			ErrorMessage: "hedge order failed, manual intervention required: " + err.Error(),
			Metadata:   meta,
		})
		return
	}
	c.record(types.HistoryEvent{
		EventType: types.EventOrderRollback,
		VenueA:    client.Name(),
		SymbolA:   symbol,
		Side:      hedgeOrder.Side,
		Quantity:  qty,
		Price:     hedgeOrder.AvgPrice,
		Status:    string(hedgeOrder.Status),
		Metadata:  meta,
	})
}

func (c *Coordinator) record(e types.HistoryEvent) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	c.store.Record(e)
	if c.broadcaster != nil {
		c.broadcaster.BroadcastTrade(e)
	}
}

// recordInsufficientBalance emits the distinct insufficient_balance event
// spec.md's end-to-end scenarios require, carrying required/available/
// shortfall metadata. This is recorded in addition to (before) the
// generic position_error event Enter always records on pre-trade
// rejection.
func (c *Coordinator) recordInsufficientBalance(pos *position.Position, err *risk.InsufficientBalanceError) {
	c.record(types.HistoryEvent{
		EventType:    types.EventInsufficientBalance,
		PositionID:   pos.ID,
		Scenario:     pos.Scenario,
		VenueA:       pos.VenueA,
		VenueB:       pos.VenueB,
		SymbolA:      pos.SymbolA,
		SymbolB:      pos.SymbolB,
		ErrorMessage: err.Error(),
		Metadata: map[string]any{
			"required":  qtyFloat(err.Required),
			"available": qtyFloat(err.Available),
			"shortfall": qtyFloat(err.Shortfall()),
		},
	})
}

func (c *Coordinator) recordPositionError(pos *position.Position, reason string, err error) {
	c.record(types.HistoryEvent{
		EventType:    types.EventPositionError,
		PositionID:   pos.ID,
		Scenario:     pos.Scenario,
		VenueA:       pos.VenueA,
		VenueB:       pos.VenueB,
		SymbolA:      pos.SymbolA,
		SymbolB:      pos.SymbolB,
		ErrorMessage: reason + ": " + err.Error(),
	})
}

func orderPlacedEvent(pos *position.Position, leg string, o types.Order) types.HistoryEvent {
	return types.HistoryEvent{
		EventType:  types.EventOrderPlaced,
		PositionID: pos.ID,
		Scenario:   pos.Scenario,
		Side:       o.Side,
		Quantity:   o.QuantityFilled,
		Price:      o.AvgPrice,
		Status:     string(o.Status),
		Metadata:   map[string]any{"leg": leg, "order_id": o.OrderID},
	}
}

func orderFailedEvent(pos *position.Position, leg string, side types.Side, qty decimal.Decimal, err error) types.HistoryEvent {
	return types.HistoryEvent{
		EventType:    types.EventOrderFailed,
		PositionID:   pos.ID,
		Scenario:     pos.Scenario,
		Side:         side,
		Quantity:     qty,
		ErrorMessage: err.Error(),
		Metadata:     map[string]any{"leg": leg},
	}
}

func qtyFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// ValidateExecution fails with ExecutionDiscrepancy if the order isn't
// filled, or if the filled quantity differs from requested by more than
// tolerance (a relative fraction, default 0.01).
func ValidateExecution(order types.Order, requestedQty, tolerance decimal.Decimal) error {
	// types.ParseOrderStatus already folds the venue's "closed"/"done"
	// strings into OrderFilled, so a single comparison covers both names
	// the contract calls out (FILLED, CLOSED).
	if order.Status != types.OrderFilled {
		return errors.Join(risk.ErrExecutionDiscrepancy, errors.New("order status "+string(order.Status)+" not FILLED/CLOSED"))
	}
	if requestedQty.IsZero() {
		return nil
	}
	if order.QuantityFilled.IsZero() && order.QuantityRequested.IsZero() {
		// Some venues omit quantity_filled on the response; nothing to check.
		return nil
	}
	filled := order.QuantityFilled
	diff := filled.Sub(requestedQty).Abs().Div(requestedQty)
	if diff.GreaterThan(tolerance) {
		return errors.Join(risk.ErrExecutionDiscrepancy, errors.New("filled quantity outside tolerance"))
	}
	return nil
}
