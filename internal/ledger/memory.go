package ledger

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// MemoryLedger implements Ledger with an in-memory map. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[string]decimal.Decimal
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{balances: make(map[string]decimal.Decimal)}
}

func (l *MemoryLedger) Apply(_ context.Context, accountID string, amount decimal.Decimal) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.balances[accountID].Add(amount)
	if next.IsNegative() {
		return decimal.Decimal{}, ErrInsufficientBalance
	}
	l.balances[accountID] = next
	return next, nil
}

func (l *MemoryLedger) Balance(_ context.Context, accountID string) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	bal, ok := l.balances[accountID]
	if !ok {
		return decimal.Decimal{}, ErrAccountNotFound
	}
	return bal, nil
}

func (l *MemoryLedger) CanCover(_ context.Context, accountID string, amount decimal.Decimal) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.balances[accountID].GreaterThanOrEqual(amount), nil
}
