// Package venue defines the narrow contract every venue adapter must
// implement (VenueClient), pure symbol-normalization helpers used at the
// venue boundary, and a rate limiter shared by adapter implementations.
//
// Concrete adapters (HMAC signing, venue-specific JSON shapes, URL
// formatting) are out of scope for this module — they are replaceable
// collaborators built against this contract. Stub, in this package, is a
// reference in-memory implementation used by tests and by cmd/arbitrage
// when no adapter is registered for a configured venue name.
package venue

import (
	"context"

	"github.com/shopspring/decimal"

	"arbitrage/pkg/types"
)

// Client is the capability set every venue adapter exposes to the core.
// It is modeled as an explicit interface (a capability set), not a base
// class — the factory in this package maps a venue name to a constructor,
// and the core never branches on adapter type.
type Client interface {
	// Name returns the venue's identifier, used as VenueA/VenueB in
	// positions and history events.
	Name() string

	// GetBalance fetches the free/used balance for one asset.
	GetBalance(ctx context.Context, asset string) (types.Balance, error)

	// PlaceMarketOrder places a market order and returns its (possibly
	// still-settling) normalized order response.
	PlaceMarketOrder(ctx context.Context, symbol string, side types.Side, quantity decimal.Decimal) (types.Order, error)

	// CancelOrder cancels a resting or partially-filled order by id.
	// symbol is passed through for venues that require it; adapters that
	// don't need it may ignore the argument.
	CancelOrder(ctx context.Context, orderID, symbol string) (types.Order, error)

	// SetLeverage configures leverage for a perpetual/swap symbol. Venues
	// that don't support leverage return *UnsupportedOperationError; the
	// RiskGate treats this as best-effort and logs rather than failing.
	SetLeverage(ctx context.Context, leverage decimal.Decimal, symbol string) error

	// StreamMarkPrice and StreamSpotPrice deliver price updates on the
	// returned channel until ctx is cancelled, at which point the channel
	// is closed. Adapters that lack a push feed may implement this as a
	// fixed-interval poll.
	StreamMarkPrice(ctx context.Context, symbol string) (<-chan types.PricePoint, error)
	StreamSpotPrice(ctx context.Context, symbol string) (<-chan types.PricePoint, error)

	// Close releases the venue's HTTP/WebSocket resources. Safe to call
	// multiple times.
	Close() error
}

// Factory constructs a Client by venue name, e.g. "binance", "okx". Real
// adapters register themselves here; this module ships only Stub, used by
// tests and as a documented reference implementation of the contract.
type Factory func(name string, options map[string]any) (Client, error)

var registry = map[string]Factory{}

// Register adds a venue constructor to the factory map. Adapter packages
// call this from an init() func; this module's own stub registers itself
// under "stub".
func Register(name string, factory Factory) {
	registry[name] = factory
}

// Build looks up a registered venue constructor by name and invokes it.
func Build(name string, options map[string]any) (Client, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, &UnsupportedOperationError{Venue: name, Op: "construct"}
	}
	return factory(name, options)
}

func init() {
	Register("stub", func(name string, options map[string]any) (Client, error) {
		return NewStub(name), nil
	})
}
