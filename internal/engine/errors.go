package engine

import "errors"

var (
	// ErrInvalidSide is returned when an order's side is neither yes nor no.
	ErrInvalidSide = errors.New("engine: side must be yes or no")

	// ErrInvalidKind is returned when an order's kind is neither limit nor market.
	ErrInvalidKind = errors.New("engine: kind must be limit or market")

	// ErrOutcomeResolved is returned when trading is attempted on an
	// outcome-group that has already been resolved.
	ErrOutcomeResolved = errors.New("engine: outcome is resolved")

	// ErrAlreadyResolved is returned when resolving an outcome-group twice.
	ErrAlreadyResolved = errors.New("engine: outcome already resolved")

	// ErrNotCancellable is returned when cancelling an order that is already
	// filled or cancelled.
	ErrNotCancellable = errors.New("engine: order cannot be cancelled")

	// ErrNoLiquidity is returned when a market order arrives and the
	// complementary side's book is empty.
	ErrNoLiquidity = errors.New("engine: no matching orders available for market order")

	// ErrOrderNotFound is returned when an order id is unknown.
	ErrOrderNotFound = errors.New("engine: order not found")

	// ErrOutcomeHalted is returned when an outcome-group has been frozen
	// after an invariant violation. No further mutation is allowed until
	// the corrupted state is investigated.
	ErrOutcomeHalted = errors.New("engine: outcome halted after invariant violation")
)
