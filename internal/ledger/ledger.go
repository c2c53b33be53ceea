// Package ledger holds each account's spendable balance.
//
// Balances are mutated only through Apply, which enforces sufficiency in the
// same atomic step as the debit: a balance can never go negative. PostgreSQL
// is the production backend; the in-memory implementation serves tests and
// development.
//
// All monetary values use shopspring/decimal — never float64 for money.
package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientBalance is returned when a debit exceeds the account's
	// spendable balance.
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")

	// ErrAccountNotFound is returned when the account has never been funded.
	ErrAccountNotFound = errors.New("ledger: account not found")
)

// Ledger is the balance store. Implementations must make Apply atomic:
// the sufficiency check and the mutation happen in one step.
type Ledger interface {
	// Apply adds the signed amount to the account's balance and returns the
	// new balance. Debits (negative amounts) fail with ErrInsufficientBalance
	// when the balance cannot cover them, leaving the balance untouched.
	Apply(ctx context.Context, accountID string, amount decimal.Decimal) (decimal.Decimal, error)

	// Balance returns the account's current spendable balance.
	Balance(ctx context.Context, accountID string) (decimal.Decimal, error)

	// CanCover reports whether the account can pay the given (positive) amount.
	CanCover(ctx context.Context, accountID string, amount decimal.Decimal) (bool, error)
}
