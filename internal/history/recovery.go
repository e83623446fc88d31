package history

import (
	"github.com/shopspring/decimal"

	"arbitrage/internal/position"
	"arbitrage/pkg/types"
)

// LoadPosition folds positionID's recorded events into a Position. Status
// is derived from the latest lifecycle event, never accumulated, so
// recording the same logical event twice never produces two OPENED states.
func (s *Store) LoadPosition(positionID string) (*position.Position, error) {
	events, err := s.sql.positionHistory(positionID)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	return foldEvents(positionID, events), nil
}

// foldEvents rebuilds a Position from its oldest-first event history. Each
// lifecycle event overwrites the fields it carries; the result reflects the
// latest write for every field, matching a live Position's final state.
func foldEvents(positionID string, events []types.HistoryEvent) *position.Position {
	p := &position.Position{ID: positionID}

	for _, e := range events {
		if e.Scenario != "" {
			p.Scenario = e.Scenario
		}
		if e.VenueA != "" {
			p.VenueA = e.VenueA
		}
		if e.VenueB != "" {
			p.VenueB = e.VenueB
		}
		if e.SymbolA != "" {
			p.SymbolA = e.SymbolA
		}
		if e.SymbolB != "" {
			p.SymbolB = e.SymbolB
		}

		switch e.EventType {
		case types.EventPositionCreated:
			p.Status = position.Pending
			p.CreatedAt = e.Timestamp
			p.SideA = types.Buy
			p.SideB = types.Sell
			if qtyA, ok := e.Metadata["qty_a"]; ok {
				p.QtyA = decimalFromAny(qtyA)
			}
			if qtyB, ok := e.Metadata["qty_b"]; ok {
				p.QtyB = decimalFromAny(qtyB)
			}

		case types.EventOrderPlaced:
			if leg, _ := e.Metadata["leg"].(string); leg == "a" {
				p.OrderIDA, _ = e.Metadata["order_id"].(string)
			} else if leg == "b" {
				p.OrderIDB, _ = e.Metadata["order_id"].(string)
			}

		case types.EventPositionOpened:
			p.Status = position.Opened
			p.OpenedAt = e.Timestamp
			p.EntryPriceA = decimalFromAny(e.Metadata["entry_price_a"])
			p.EntryPriceB = decimalFromAny(e.Metadata["entry_price_b"])
			p.EntrySpread = e.Price

		case types.EventPositionClosed:
			p.Status = position.Closed
			p.ClosedAt = e.Timestamp
			p.ExitSpread = e.Price
			p.PnL = e.PnL

		case types.EventPositionError:
			p.Status = position.Error

		case types.EventOrderRollback, types.EventOrderFailed, types.EventOrderCancelled, types.EventInsufficientBalance:
			// Compensation/rejection events don't change lifecycle status by
			// themselves; the paired position_error event carries that.
		}

		if p.Status == "" {
			p.Status = position.Pending
		}
	}

	return p
}

func decimalFromAny(v any) decimal.Decimal {
	switch x := v.(type) {
	case float64:
		return decimal.NewFromFloat(x)
	case string:
		d, err := decimal.NewFromString(x)
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}
