package venue

import "fmt"

// UnsupportedOperationError is returned by adapters (or the factory) for a
// capability the venue genuinely doesn't have — e.g. leverage on a spot-only
// venue. Callers treat this as logged-but-not-fatal (spec §7).
type UnsupportedOperationError struct {
	Venue string
	Op    string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("%s: operation %q is not supported", e.Venue, e.Op)
}

// Error is a transport/auth/API error surfaced by a venue adapter. The
// coordinator treats any error of this shape as "leg placement failed."
type Error struct {
	Venue string
	Op    string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("venue %s: %s: %v", e.Venue, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err as a venue.Error for the given venue/operation.
func NewError(venueName, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Venue: venueName, Op: op, Err: err}
}
