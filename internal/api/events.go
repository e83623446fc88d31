package api

import (
	"time"

	"arbitrage/pkg/types"
)

// DashboardEvent is the wrapper for every event pushed to connected
// websocket clients: type discriminates the payload shape.
type DashboardEvent struct {
	Type       string      `json:"type"` // "snapshot" or "trade"
	Timestamp  time.Time   `json:"timestamp"`
	PositionID string      `json:"position_id,omitempty"`
	Data       interface{} `json:"data"`
}

// NewTradeEvent wraps one history event for live broadcast.
func NewTradeEvent(e types.HistoryEvent) DashboardEvent {
	return DashboardEvent{
		Type:       "trade",
		Timestamp:  e.Timestamp,
		PositionID: e.PositionID,
		Data:       toTradeView(e),
	}
}

func toTradeView(e types.HistoryEvent) TradeView {
	qty, _ := e.Quantity.Float64()
	price, _ := e.Price.Float64()
	pnl, _ := e.PnL.Float64()
	return TradeView{
		Timestamp:    e.Timestamp,
		EventType:    string(e.EventType),
		PositionID:   e.PositionID,
		VenueA:       e.VenueA,
		VenueB:       e.VenueB,
		Side:         string(e.Side),
		Quantity:     qty,
		Price:        price,
		PnL:          pnl,
		Status:       e.Status,
		ErrorMessage: e.ErrorMessage,
	}
}
