// Package pricing implements the complementary-price arithmetic for binary
// outcome markets.
//
// Every outcome-group has two sides, yes and no, whose prices must sum to the
// par value 1.0. A resting buy order at price p on one side therefore offers
// the other side an implied price of 1.0 - p. Matching and settlement both
// derive from this single constraint.
//
// All monetary values use shopspring/decimal — never float64 for money.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidPrice is returned when a limit price falls outside (0, 1].
	ErrInvalidPrice = errors.New("pricing: limit price must be in (0, 1]")

	// ErrInvalidQuantity is returned when a quantity is not a positive
	// whole number of contracts.
	ErrInvalidQuantity = errors.New("pricing: quantity must be a positive whole number of contracts")

	// ParValue is the fixed settlement value a winning contract pays.
	ParValue = decimal.NewFromInt(1)

	// Tolerance is the maximum allowed deviation between a limit price and
	// the implied price of a complementary resting order for the two to match.
	Tolerance = decimal.NewFromFloat(0.0001)

	// LedgerScale is the number of decimal places the ledger settles at.
	// Balances are stored as NUMERIC(20,2); all debits round to this scale.
	LedgerScale int32 = 2
)

// ValidatePrice checks that a limit price lies strictly within (0, 1].
func ValidatePrice(p decimal.Decimal) error {
	if p.LessThanOrEqual(decimal.Zero) || p.GreaterThan(ParValue) {
		return ErrInvalidPrice
	}
	return nil
}

// ValidateQuantity checks that a contract count is positive.
func ValidateQuantity(q int64) error {
	if q <= 0 {
		return ErrInvalidQuantity
	}
	return nil
}

// Implied returns the price the complementary side effectively offers:
// par value minus the resting order's price.
func Implied(restingPrice decimal.Decimal) decimal.Decimal {
	return ParValue.Sub(restingPrice)
}

// WithinTolerance reports whether a limit price accepts the given implied price.
func WithinTolerance(limit, implied decimal.Decimal) bool {
	return limit.Sub(implied).Abs().LessThanOrEqual(Tolerance)
}

// Cost returns price * quantity rounded to the ledger scale. This is the
// incoming party's debit for one trade.
func Cost(price decimal.Decimal, quantity int64) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(quantity)).Round(LedgerScale)
}

// SplitCost returns both parties' debits for one trade. The incoming debit
// is price * quantity rounded to the ledger scale; the resting debit is the
// exact complement quantity * par - incomingDebit, never rounded
// independently, so the two always sum to exactly quantity * par value.
func SplitCost(price decimal.Decimal, quantity int64) (incoming, resting decimal.Decimal) {
	total := ParValue.Mul(decimal.NewFromInt(quantity))
	incoming = Cost(price, quantity)
	resting = total.Sub(incoming)
	return incoming, resting
}
