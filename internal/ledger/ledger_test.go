package ledger

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func TestApply_CreditCreatesAccount(t *testing.T) {
	l := NewMemoryLedger()
	bal, err := l.Apply(context.Background(), "alice", d(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bal.Equal(d(100)) {
		t.Errorf("expected balance 100, got %s", bal)
	}
}

func TestApply_DebitWithinBalance(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()
	l.Apply(ctx, "alice", d(100))

	bal, err := l.Apply(ctx, "alice", d(-65))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bal.Equal(d(35)) {
		t.Errorf("expected balance 35, got %s", bal)
	}
}

func TestApply_InsufficientBalance(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()
	l.Apply(ctx, "alice", d(50))

	if _, err := l.Apply(ctx, "alice", d(-50.01)); err != ErrInsufficientBalance {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}

	// Balance untouched after a failed debit.
	bal, _ := l.Balance(ctx, "alice")
	if !bal.Equal(d(50)) {
		t.Errorf("failed debit must not change balance, got %s", bal)
	}
}

func TestApply_DebitNewAccount(t *testing.T) {
	l := NewMemoryLedger()
	if _, err := l.Apply(context.Background(), "nobody", d(-1)); err != ErrInsufficientBalance {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestBalance_UnknownAccount(t *testing.T) {
	l := NewMemoryLedger()
	if _, err := l.Balance(context.Background(), "nobody"); err != ErrAccountNotFound {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestCanCover(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()
	l.Apply(ctx, "alice", d(100))

	ok, err := l.CanCover(ctx, "alice", d(100))
	if err != nil || !ok {
		t.Errorf("expected coverage at exact balance, got ok=%v err=%v", ok, err)
	}

	ok, err = l.CanCover(ctx, "alice", d(100.01))
	if err != nil || ok {
		t.Errorf("expected no coverage above balance, got ok=%v err=%v", ok, err)
	}

	ok, err = l.CanCover(ctx, "nobody", d(1))
	if err != nil || ok {
		t.Errorf("unknown account covers nothing, got ok=%v err=%v", ok, err)
	}
}
