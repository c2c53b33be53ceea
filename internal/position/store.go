// Package position holds each account's exposure per (market, outcome-group,
// side) and implements the netting and weighted-average accounting applied on
// every trade leg.
//
// Positions are engine-owned state: the store lives behind the engine's
// per-outcome-group exclusivity boundary and is mutated only during a match
// or a resolution. After every mutation the store checks that a position's
// cost basis equals quantity * average price within rounding tolerance;
// a violation is a fatal internal error, not a recoverable one.
//
// All monetary values use shopspring/decimal — never float64 for money.
package position

import (
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/drewwilen/BetThat/internal/model"
)

var (
	// ErrInvariantViolation signals corrupted position state: the cost basis
	// diverged from quantity * average price beyond rounding tolerance.
	// It must never be swallowed; the engine halts the affected outcome-group.
	ErrInvariantViolation = errors.New("position: cost basis diverged from quantity * average price")

	// invariantEpsilon is the fixed base of the acceptable drift between the
	// cost basis and quantity * average price.
	invariantEpsilon = decimal.NewFromFloat(0.0001)

	// priceScale is the number of decimal places for average-price rounding.
	priceScale int32 = 8

	// avgPriceHalfULP is the worst-case rounding error per contract of an
	// average price stored at priceScale decimal places. The drift between
	// cost basis and quantity * average price grows by up to this much per
	// contract held, so the invariant bound must scale with quantity.
	avgPriceHalfULP = decimal.New(5, -(priceScale + 1))
)

type key struct {
	accountID string
	marketID  string
	outcome   string
	side      model.Side
}

// Store is the in-memory position store. Safe for concurrent use; the engine
// additionally serializes all mutations per outcome-group.
type Store struct {
	mu        sync.RWMutex
	positions map[key]*model.Position
}

// NewStore creates an empty position store.
func NewStore() *Store {
	return &Store{positions: make(map[key]*model.Position)}
}

// Get returns a copy of the position for the given key, or false if none.
func (s *Store) Get(accountID, marketID, outcome string, side model.Side) (model.Position, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.positions[key{accountID, marketID, outcome, side}]
	if !ok {
		return model.Position{}, false
	}
	return *p, true
}

// ByAccount returns copies of all of an account's positions.
func (s *Store) ByAccount(accountID string) []model.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Position
	for k, p := range s.positions {
		if k.accountID == accountID {
			out = append(out, *p)
		}
	}
	return out
}

// ForOutcome returns copies of all positions on one outcome-group.
// Used by the resolution engine to compute payouts.
func (s *Store) ForOutcome(marketID, outcome string) []model.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Position
	for k, p := range s.positions {
		if k.marketID == marketID && k.outcome == outcome {
			out = append(out, *p)
		}
	}
	return out
}

// Accumulate opens or increases a position with a weighted-average price
// update: newAvg = (oldCost + qty*price) / (oldQty + qty).
func (s *Store) Accumulate(accountID, marketID, outcome string, side model.Side, quantity int64, price decimal.Decimal) error {
	if quantity <= 0 {
		return fmt.Errorf("position: accumulate quantity must be positive, got %d", quantity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{accountID, marketID, outcome, side}
	cost := price.Mul(decimal.NewFromInt(quantity))

	p, ok := s.positions[k]
	if !ok {
		p = &model.Position{
			AccountID: accountID,
			MarketID:  marketID,
			Outcome:   outcome,
			Side:      side,
			Quantity:  quantity,
			AvgPrice:  price,
			CostBasis: cost,
		}
		s.positions[k] = p
		return s.checkInvariant(p)
	}

	p.Quantity += quantity
	p.CostBasis = p.CostBasis.Add(cost)
	p.AvgPrice = p.CostBasis.DivRound(decimal.NewFromInt(p.Quantity), priceScale)
	return s.checkInvariant(p)
}

// Reduce closes up to quantity contracts of the position on the given side,
// removing cost basis proportionally (cost-per-unit * amount closed). The
// position is deleted when it reaches exactly zero. Returns the number of
// contracts actually closed, which is zero when no position exists.
func (s *Store) Reduce(accountID, marketID, outcome string, side model.Side, quantity int64) (int64, error) {
	if quantity <= 0 {
		return 0, fmt.Errorf("position: reduce quantity must be positive, got %d", quantity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{accountID, marketID, outcome, side}
	p, ok := s.positions[k]
	if !ok || p.Quantity <= 0 {
		return 0, nil
	}

	closed := quantity
	if p.Quantity < closed {
		closed = p.Quantity
	}

	costPerUnit := p.CostBasis.DivRound(decimal.NewFromInt(p.Quantity), priceScale)
	p.Quantity -= closed
	p.CostBasis = p.CostBasis.Sub(costPerUnit.Mul(decimal.NewFromInt(closed)))

	if p.Quantity == 0 {
		delete(s.positions, k)
		return closed, nil
	}

	p.AvgPrice = p.CostBasis.DivRound(decimal.NewFromInt(p.Quantity), priceScale)
	return closed, s.checkInvariant(p)
}

// ApplyTradeLeg applies one party's side of a trade: net against any
// opposite-side position first, then open or increase a position on the
// bought side with whatever quantity remains. Exposed separately from the
// matching engine so resolution and tests can exercise it directly.
func (s *Store) ApplyTradeLeg(accountID, marketID, outcome string, side model.Side, quantity int64, price decimal.Decimal) error {
	closed, err := s.Reduce(accountID, marketID, outcome, side.Opposite(), quantity)
	if err != nil {
		return err
	}
	if remaining := quantity - closed; remaining > 0 {
		return s.Accumulate(accountID, marketID, outcome, side, remaining, price)
	}
	return nil
}

// checkInvariant verifies costBasis == quantity * avgPrice within the
// quantity-scaled tolerance. Caller must hold the write lock.
func (s *Store) checkInvariant(p *model.Position) error {
	qty := decimal.NewFromInt(p.Quantity)
	expected := p.AvgPrice.Mul(qty)
	allowed := invariantEpsilon.Add(avgPriceHalfULP.Mul(qty))
	if p.CostBasis.Sub(expected).Abs().GreaterThan(allowed) {
		return fmt.Errorf("%w: account=%s market=%s outcome=%s side=%s qty=%d avg=%s cost=%s",
			ErrInvariantViolation,
			p.AccountID, p.MarketID, p.Outcome, p.Side, p.Quantity, p.AvgPrice, p.CostBasis)
	}
	return nil
}
