package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
)

// d is a test helper for creating decimals from float64.
func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// --- Validation tests ---

func TestValidatePrice_Valid(t *testing.T) {
	for _, p := range []float64{0.01, 0.5, 0.65, 0.9999, 1.0} {
		if err := ValidatePrice(d(p)); err != nil {
			t.Errorf("price %v should be valid, got %v", p, err)
		}
	}
}

func TestValidatePrice_Invalid(t *testing.T) {
	for _, p := range []float64{0, -0.5, 1.01, 2} {
		if err := ValidatePrice(d(p)); err != ErrInvalidPrice {
			t.Errorf("price %v should fail with ErrInvalidPrice, got %v", p, err)
		}
	}
}

func TestValidateQuantity(t *testing.T) {
	if err := ValidateQuantity(1); err != nil {
		t.Errorf("quantity 1 should be valid, got %v", err)
	}
	if err := ValidateQuantity(0); err != ErrInvalidQuantity {
		t.Errorf("quantity 0 should fail, got %v", err)
	}
	if err := ValidateQuantity(-10); err != ErrInvalidQuantity {
		t.Errorf("quantity -10 should fail, got %v", err)
	}
}

// --- Complementary price tests ---

func TestImplied_SumsToPar(t *testing.T) {
	for _, p := range []float64{0.01, 0.35, 0.5, 0.65, 0.99} {
		price := d(p)
		if !price.Add(Implied(price)).Equal(ParValue) {
			t.Errorf("price %s + implied %s != 1.0", price, Implied(price))
		}
	}
}

func TestWithinTolerance(t *testing.T) {
	if !WithinTolerance(d(0.65), d(0.65)) {
		t.Error("exact match should be within tolerance")
	}
	if !WithinTolerance(d(0.65), d(0.6501)) {
		t.Error("deviation of 0.0001 should be within tolerance")
	}
	if WithinTolerance(d(0.65), d(0.6502)) {
		t.Error("deviation of 0.0002 should be outside tolerance")
	}
	if WithinTolerance(d(0.65), d(0.60)) {
		t.Error("deviation of 0.05 should be outside tolerance")
	}
}

// --- Settlement arithmetic tests ---

func TestCost_RoundsToLedgerScale(t *testing.T) {
	got := Cost(d(0.333), 10)
	if !got.Equal(d(3.33)) {
		t.Errorf("expected 3.33, got %s", got)
	}
}

func TestSplitCost_ConservesCash(t *testing.T) {
	tests := []struct {
		price float64
		qty   int64
	}{
		{0.65, 100},
		{0.5, 1},
		{0.333, 7},
		{0.0001, 99999},
		{0.9999, 3},
	}
	for _, tc := range tests {
		incoming, resting := SplitCost(d(tc.price), tc.qty)
		total := ParValue.Mul(decimal.NewFromInt(tc.qty))
		if !incoming.Add(resting).Equal(total) {
			t.Errorf("price=%v qty=%d: %s + %s != %s",
				tc.price, tc.qty, incoming, resting, total)
		}
	}
}

func TestSplitCost_KnownValues(t *testing.T) {
	incoming, resting := SplitCost(d(0.65), 100)
	if !incoming.Equal(d(65)) {
		t.Errorf("expected incoming 65.00, got %s", incoming)
	}
	if !resting.Equal(d(35)) {
		t.Errorf("expected resting 35.00, got %s", resting)
	}
}
