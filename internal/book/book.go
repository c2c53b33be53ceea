// Package book implements the order book index: the set of live resting
// limit orders on one side of one outcome-group, ordered by price-time
// priority.
//
// All resting orders are buys. The highest price is the best entry, because
// it offers the complementary side the lowest implied price. Ties at equal
// price are broken by an explicit monotonically increasing sequence number
// assigned at insertion, so time priority survives quantity updates.
//
// The book is a pure data structure with no cross-component calls. Callers
// are responsible for serializing access (the engine holds one exclusive
// lock per outcome-group).
package book

import (
	"errors"
	"iter"
	"sort"

	"github.com/shopspring/decimal"
)

var (
	// ErrDuplicateEntry is returned when inserting an order id already present.
	ErrDuplicateEntry = errors.New("book: order already in book")

	// ErrNotFound is returned when updating an order id that is not present.
	ErrNotFound = errors.New("book: order not in book")
)

// Entry is one resting order's book state.
type Entry struct {
	OrderID   string
	Price     decimal.Decimal
	Remaining int64
	seq       uint64
}

// Book holds the resting orders for one (market, outcome-group, side) key.
type Book struct {
	entries []*Entry          // sorted: price descending, then seq ascending
	byID    map[string]*Entry
	nextSeq uint64
}

// New creates an empty book.
func New() *Book {
	return &Book{byID: make(map[string]*Entry)}
}

// Len returns the number of resting orders.
func (b *Book) Len() int {
	return len(b.entries)
}

// Insert adds a resting order. Fails with ErrDuplicateEntry if the id is
// already present.
func (b *Book) Insert(orderID string, price decimal.Decimal, remaining int64) error {
	if _, ok := b.byID[orderID]; ok {
		return ErrDuplicateEntry
	}

	e := &Entry{
		OrderID:   orderID,
		Price:     price,
		Remaining: remaining,
		seq:       b.nextSeq,
	}
	b.nextSeq++

	// Insertion point: after all entries with a higher price, and after all
	// entries at the same price (their seq is necessarily lower).
	i := sort.Search(len(b.entries), func(i int) bool {
		return b.entries[i].Price.LessThan(price)
	})

	b.entries = append(b.entries, nil)
	copy(b.entries[i+1:], b.entries[i:])
	b.entries[i] = e
	b.byID[orderID] = e
	return nil
}

// Remove deletes an order from the book. Returns false if the id is absent;
// absence is reported, not fatal.
func (b *Book) Remove(orderID string) bool {
	e, ok := b.byID[orderID]
	if !ok {
		return false
	}
	for i, cur := range b.entries {
		if cur == e {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			break
		}
	}
	delete(b.byID, orderID)
	return true
}

// UpdateRemaining adjusts an order's remaining quantity in place. Price
// priority and time priority are untouched: the entry keeps its position
// and its original sequence number.
func (b *Book) UpdateRemaining(orderID string, remaining int64) error {
	e, ok := b.byID[orderID]
	if !ok {
		return ErrNotFound
	}
	e.Remaining = remaining
	return nil
}

// Best returns the highest-priority resting order, or false if the book is
// empty.
func (b *Book) Best() (Entry, bool) {
	if len(b.entries) == 0 {
		return Entry{}, false
	}
	return *b.entries[0], true
}

// InPriorityOrder returns a sequence of entries in price-then-arrival order.
// The sequence is fixed at call time: removals and quantity updates made
// while ranging do not affect it.
func (b *Book) InPriorityOrder() iter.Seq[Entry] {
	snapshot := make([]Entry, len(b.entries))
	for i, e := range b.entries {
		snapshot[i] = *e
	}
	return func(yield func(Entry) bool) {
		for _, e := range snapshot {
			if !yield(e) {
				return
			}
		}
	}
}
