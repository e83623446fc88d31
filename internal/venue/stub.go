package venue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"arbitrage/pkg/types"
)

// Stub is an in-memory Client used by tests and as the documented
// reference shape for real adapters. It lets a test script exactly what
// each call returns — queued order responses, canned balances, canned
// cancel results, and injectable errors for PlaceMarketOrder and
// SetLeverage — rather than talking to a network.
type Stub struct {
	name string

	mu            sync.Mutex
	balances      map[string]types.Balance
	orderQueue    []orderResult
	cancelResults map[string]types.Order
	leverageErr   error
	placedOrders  []placedOrder
	cancelledIDs  []string
	counter       atomic.Int64
	limiter       *TokenBucket
}

type orderResult struct {
	order types.Order
	err   error
}

type placedOrder struct {
	Symbol   string
	Side     types.Side
	Quantity decimal.Decimal
}

// NewStub creates a stub venue with no queued responses; callers configure
// behavior with QueueOrder/SetBalance/etc before exercising it.
func NewStub(name string) *Stub {
	return &Stub{
		name:          name,
		balances:      make(map[string]types.Balance),
		cancelResults: make(map[string]types.Order),
	}
}

func (s *Stub) Name() string { return s.name }

// SetBalance configures the balance GetBalance returns for asset.
func (s *Stub) SetBalance(asset string, free, used decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[asset] = types.Balance{Asset: asset, Free: free, Used: used}
}

// QueueOrder appends an order response to be returned, in order, by
// successive PlaceMarketOrder calls. Passing a non-nil err makes that call
// fail instead.
func (s *Stub) QueueOrder(order types.Order, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orderQueue = append(s.orderQueue, orderResult{order: order, err: err})
}

// SetCancelResult configures what CancelOrder returns for a given order id.
func (s *Stub) SetCancelResult(orderID string, order types.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelResults[orderID] = order
}

// SetLeverageError makes every SetLeverage call fail with err (e.g.
// &UnsupportedOperationError{}).
func (s *Stub) SetLeverageError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leverageErr = err
}

// SetRateLimit installs a token-bucket limiter (burst capacity,
// tokens-refilled-per-second) that PlaceMarketOrder blocks on before
// placing each order, the same way a real adapter would throttle itself
// against a venue's published request limits. No limiter is installed by
// default, so existing callers that never configure one see no behavior
// change.
func (s *Stub) SetRateLimit(capacity, ratePerSecond float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limiter = NewTokenBucket(capacity, ratePerSecond)
}

// PlacedOrders returns every order this stub was asked to place, in call
// order — used by tests to assert compensation behavior (e.g. exactly one
// rollback order with the opposite side and same quantity).
func (s *Stub) PlacedOrders() []placedOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]placedOrder, len(s.placedOrders))
	copy(out, s.placedOrders)
	return out
}

// CancelledIDs returns every order id CancelOrder was called with.
func (s *Stub) CancelledIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.cancelledIDs))
	copy(out, s.cancelledIDs)
	return out
}

func (s *Stub) GetBalance(ctx context.Context, asset string) (types.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.balances[asset]
	if !ok {
		return types.Balance{Asset: asset}, nil
	}
	return b, nil
}

func (s *Stub) PlaceMarketOrder(ctx context.Context, symbol string, side types.Side, quantity decimal.Decimal) (types.Order, error) {
	s.mu.Lock()
	limiter := s.limiter
	s.mu.Unlock()
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return types.Order{}, err
		}
	}

	s.mu.Lock()
	s.placedOrders = append(s.placedOrders, placedOrder{Symbol: symbol, Side: side, Quantity: quantity})
	var res orderResult
	if len(s.orderQueue) > 0 {
		res = s.orderQueue[0]
		s.orderQueue = s.orderQueue[1:]
	} else {
		id := s.counter.Add(1)
		res = orderResult{order: types.Order{
			OrderID:           fmt.Sprintf("%s-%d", s.name, id),
			Symbol:            symbol,
			Side:              side,
			QuantityRequested: quantity,
			QuantityFilled:    quantity,
			Status:            types.OrderFilled,
		}}
	}
	s.mu.Unlock()

	if res.err != nil {
		return types.Order{}, NewError(s.name, "place_market_order", res.err)
	}
	if res.order.QuantityRequested.IsZero() {
		res.order.QuantityRequested = quantity
	}
	if res.order.Symbol == "" {
		res.order.Symbol = symbol
	}
	if res.order.Side == "" {
		res.order.Side = side
	}
	return res.order, nil
}

func (s *Stub) CancelOrder(ctx context.Context, orderID, symbol string) (types.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelledIDs = append(s.cancelledIDs, orderID)
	if o, ok := s.cancelResults[orderID]; ok {
		return o, nil
	}
	return types.Order{OrderID: orderID, Symbol: symbol, Status: types.OrderCancelled}, nil
}

func (s *Stub) SetLeverage(ctx context.Context, leverage decimal.Decimal, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.leverageErr != nil {
		return s.leverageErr
	}
	return nil
}

// StreamMarkPrice and StreamSpotPrice close their channel immediately —
// the stub is used for order/risk/history tests, not stream tests.
func (s *Stub) StreamMarkPrice(ctx context.Context, symbol string) (<-chan types.PricePoint, error) {
	ch := make(chan types.PricePoint)
	close(ch)
	return ch, nil
}

func (s *Stub) StreamSpotPrice(ctx context.Context, symbol string) (<-chan types.PricePoint, error) {
	ch := make(chan types.PricePoint)
	close(ch)
	return ch, nil
}

func (s *Stub) Close() error { return nil }
