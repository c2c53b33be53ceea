package book

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func TestInsert_Duplicate(t *testing.T) {
	b := New()
	if err := b.Insert("o1", d(0.5), 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.Insert("o1", d(0.6), 5); err != ErrDuplicateEntry {
		t.Errorf("expected ErrDuplicateEntry, got %v", err)
	}
}

func TestBest_HighestPriceFirst(t *testing.T) {
	b := New()
	b.Insert("low", d(0.40), 10)
	b.Insert("high", d(0.70), 10)
	b.Insert("mid", d(0.55), 10)

	best, ok := b.Best()
	if !ok {
		t.Fatal("expected a best entry")
	}
	if best.OrderID != "high" {
		t.Errorf("expected best=high, got %s", best.OrderID)
	}
}

func TestBest_Empty(t *testing.T) {
	b := New()
	if _, ok := b.Best(); ok {
		t.Error("empty book should have no best entry")
	}
}

func TestPriority_TimeOrderAtEqualPrice(t *testing.T) {
	b := New()
	b.Insert("first", d(0.50), 10)
	b.Insert("second", d(0.50), 10)
	b.Insert("third", d(0.50), 10)

	var got []string
	for e := range b.InPriorityOrder() {
		got = append(got, e.OrderID)
	}
	want := []string{"first", "second", "third"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestPriority_SurvivesQuantityUpdate(t *testing.T) {
	b := New()
	b.Insert("first", d(0.50), 10)
	b.Insert("second", d(0.50), 10)

	if err := b.UpdateRemaining("first", 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	best, _ := b.Best()
	if best.OrderID != "first" {
		t.Errorf("quantity update must not lose time priority, best=%s", best.OrderID)
	}
	if best.Remaining != 3 {
		t.Errorf("expected remaining 3, got %d", best.Remaining)
	}
}

func TestRemove(t *testing.T) {
	b := New()
	b.Insert("o1", d(0.50), 10)

	if !b.Remove("o1") {
		t.Error("expected Remove to report true")
	}
	if b.Remove("o1") {
		t.Error("second Remove should report false")
	}
	if b.Len() != 0 {
		t.Errorf("expected empty book, got len=%d", b.Len())
	}
}

func TestUpdateRemaining_NotFound(t *testing.T) {
	b := New()
	if err := b.UpdateRemaining("missing", 5); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestInPriorityOrder_SnapshotUnaffectedByRemoval(t *testing.T) {
	b := New()
	b.Insert("a", d(0.60), 10)
	b.Insert("b", d(0.50), 10)

	var seen []string
	for e := range b.InPriorityOrder() {
		seen = append(seen, e.OrderID)
		// Mutating mid-iteration must not disturb the sequence.
		b.Remove("b")
	}
	if len(seen) != 2 {
		t.Errorf("expected snapshot of 2 entries, saw %v", seen)
	}
}
