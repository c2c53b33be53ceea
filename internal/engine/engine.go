// Package engine implements the matching and resolution engine for
// peer-to-peer binary outcome markets.
//
// Every order is a buy on one side of an outcome-group; an incoming order
// matches complementary resting orders whose prices sum with its own to the
// par value 1.0. Trades settle atomically against the ledger and the
// position store, and cash is conserved exactly: the two legs of every trade
// always debit a combined quantity * par value.
//
// All operations on one outcome-group are serialized behind that group's
// exclusive lock; independent outcome-groups proceed fully in parallel.
// There are no optimistic retries — once matching begins for an order it
// runs to completion, because executed trades have externally visible
// ledger effects that cannot be rolled back transparently.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/drewwilen/BetThat/internal/book"
	"github.com/drewwilen/BetThat/internal/ledger"
	"github.com/drewwilen/BetThat/internal/model"
	"github.com/drewwilen/BetThat/internal/pricing"
	"github.com/drewwilen/BetThat/internal/store"
)

// Notifier receives engine events. The engine has no knowledge of how
// updates are delivered; the caller provides an implementation (e.g. a
// WebSocket hub) or nil.
type Notifier interface {
	TradeExecuted(t model.Trade)
	BookUpdated(marketID, outcome string, side model.Side)
	OutcomeResolved(marketID, outcome string, winner model.Side)
}

// PositionStore is the position-accounting surface the engine mutates during
// matching and reads during resolution.
type PositionStore interface {
	Accumulate(accountID, marketID, outcome string, side model.Side, quantity int64, price decimal.Decimal) error
	Reduce(accountID, marketID, outcome string, side model.Side, quantity int64) (int64, error)
	ApplyTradeLeg(accountID, marketID, outcome string, side model.Side, quantity int64, price decimal.Decimal) error
	ForOutcome(marketID, outcome string) []model.Position
}

// Engine owns the live trading state: order books, order registry, positions.
// The ledger, position store, and audit store are injected so callers choose
// the backing persistence.
type Engine struct {
	ledger    ledger.Ledger
	positions PositionStore
	store     store.Store
	notifier  Notifier // optional

	mu     sync.Mutex
	groups map[groupKey]*group
	orders map[string]*orderRef
}

type groupKey struct {
	marketID string
	outcome  string
}

// group is one outcome-group's owned state. All submit/cancel/resolve calls
// touching the group hold its mutex for their full duration.
type group struct {
	mu         sync.Mutex
	books      map[model.Side]*book.Book
	resolved   bool
	halted     bool
	resolution *model.Resolution
}

type orderRef struct {
	order *model.Order
	group *group
}

// New creates an engine. Pass nil for notifier if event delivery is not needed.
func New(l ledger.Ledger, positions PositionStore, st store.Store, notifier Notifier) *Engine {
	return &Engine{
		ledger:    l,
		positions: positions,
		store:     st,
		notifier:  notifier,
		groups:    make(map[groupKey]*group),
		orders:    make(map[string]*orderRef),
	}
}

// Positions exposes the position store for portfolio queries.
func (e *Engine) Positions() PositionStore {
	return e.positions
}

// group returns the outcome-group's state, creating it lazily on first use.
// Outcome-groups come into existence when the external market service creates
// them; the engine materializes state for a key the first time it is touched.
func (e *Engine) group(marketID, outcome string) *group {
	e.mu.Lock()
	defer e.mu.Unlock()

	k := groupKey{marketID, outcome}
	g, ok := e.groups[k]
	if !ok {
		g = &group{books: map[model.Side]*book.Book{
			model.Yes: book.New(),
			model.No:  book.New(),
		}}
		e.groups[k] = g
	}
	return g
}

func (e *Engine) registerOrder(o *model.Order, g *group) {
	e.mu.Lock()
	e.orders[o.ID] = &orderRef{order: o, group: g}
	e.mu.Unlock()
}

func (e *Engine) lookupOrder(id string) (*orderRef, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ref, ok := e.orders[id]
	return ref, ok
}

// SubmitRequest describes one incoming order.
type SubmitRequest struct {
	AccountID string
	MarketID  string
	Outcome   string
	Side      model.Side
	Kind      model.OrderKind
	Price     decimal.Decimal // limit orders only
	Quantity  int64
}

// Submit accepts one order, matches it against the complementary side's
// resting orders, and leaves any unfilled limit remainder resting in the
// book. It returns the order's final state and the trades produced, in
// execution order.
//
// The worst-case debit is checked before any mutation; a submission that
// fails validation or the balance check leaves ledger, positions, and books
// exactly as they were.
func (e *Engine) Submit(ctx context.Context, req SubmitRequest) (model.Order, []model.Trade, error) {
	if !req.Side.Valid() {
		return model.Order{}, nil, ErrInvalidSide
	}
	if req.Kind != model.Limit && req.Kind != model.Market {
		return model.Order{}, nil, ErrInvalidKind
	}
	if err := pricing.ValidateQuantity(req.Quantity); err != nil {
		return model.Order{}, nil, err
	}
	if req.Kind == model.Limit {
		if err := pricing.ValidatePrice(req.Price); err != nil {
			return model.Order{}, nil, err
		}
	}

	g := e.group(req.MarketID, req.Outcome)
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.halted {
		return model.Order{}, nil, ErrOutcomeHalted
	}
	if g.resolved {
		return model.Order{}, nil, ErrOutcomeResolved
	}

	opp := req.Side.Opposite()
	oppBook := g.books[opp]

	// Worst-case price for the sufficiency check: the limit price, or the
	// best available implied price for market orders.
	worstPrice := req.Price
	if req.Kind == model.Market {
		best, ok := oppBook.Best()
		if !ok {
			return model.Order{}, nil, ErrNoLiquidity
		}
		worstPrice = pricing.Implied(best.Price)
	}

	covered, err := e.ledger.CanCover(ctx, req.AccountID, pricing.Cost(worstPrice, req.Quantity))
	if err != nil {
		return model.Order{}, nil, fmt.Errorf("balance check for %s: %w", req.AccountID, err)
	}
	if !covered {
		return model.Order{}, nil, ledger.ErrInsufficientBalance
	}

	order := &model.Order{
		ID:        uuid.New().String(),
		AccountID: req.AccountID,
		MarketID:  req.MarketID,
		Outcome:   req.Outcome,
		Side:      req.Side,
		Kind:      req.Kind,
		Price:     req.Price,
		Quantity:  req.Quantity,
		State:     model.Pending,
		CreatedAt: time.Now().UTC(),
	}
	e.registerOrder(order, g)
	if err := e.store.InsertOrder(ctx, order); err != nil {
		slog.Warn("order audit insert failed", "order", order.ID, "err", err)
	}

	trades, err := e.match(ctx, g, order)

	switch {
	case order.Remaining() == 0:
		order.State = model.Filled
	case order.Filled > 0:
		order.State = model.PartiallyFilled
	}

	if err != nil {
		// Invariant violation: the group is already halted; executed trades
		// stand, the order does not rest, but its fill state is recorded.
		if uerr := e.store.UpdateOrder(ctx, order); uerr != nil {
			slog.Warn("order audit update failed", "order", order.ID, "err", uerr)
		}
		return *order, trades, err
	}

	// Market orders never rest; unfilled remainder is simply not satisfied.
	if order.Kind == model.Limit && order.Remaining() > 0 {
		if err := g.books[order.Side].Insert(order.ID, order.Price, order.Remaining()); err != nil {
			return *order, trades, fmt.Errorf("rest order %s: %w", order.ID, err)
		}
	}

	if err := e.store.UpdateOrder(ctx, order); err != nil {
		slog.Warn("order audit update failed", "order", order.ID, "err", err)
	}

	slog.Info("order submitted",
		"order", order.ID,
		"account", order.AccountID,
		"market", order.MarketID,
		"outcome", order.Outcome,
		"side", order.Side,
		"kind", order.Kind,
		"qty", order.Quantity,
		"filled", order.Filled,
		"state", order.State,
		"trades", len(trades),
	)

	if e.notifier != nil {
		for _, t := range trades {
			e.notifier.TradeExecuted(t)
		}
		e.notifier.BookUpdated(req.MarketID, req.Outcome, req.Side)
		e.notifier.BookUpdated(req.MarketID, req.Outcome, opp)
	}

	return *order, trades, nil
}

// match runs the matching loop for one incoming order. Caller holds the
// group lock.
func (e *Engine) match(ctx context.Context, g *group, order *model.Order) ([]model.Trade, error) {
	opp := order.Side.Opposite()
	oppBook := g.books[opp]

	var trades []model.Trade

	for entry := range oppBook.InPriorityOrder() {
		if order.Remaining() == 0 {
			break
		}

		implied := pricing.Implied(entry.Price)

		if order.Kind == model.Limit {
			// Prices only rise along the book, so once the implied price
			// leaves the tolerance band upward no later candidate can match.
			if implied.GreaterThan(order.Price.Add(pricing.Tolerance)) {
				break
			}
			if !pricing.WithinTolerance(order.Price, implied) {
				continue
			}
		}

		ref, ok := e.lookupOrder(entry.OrderID)
		if !ok {
			// Registry and book should never disagree.
			oppBook.Remove(entry.OrderID)
			slog.Error("resting order missing from registry", "order", entry.OrderID)
			continue
		}
		maker := ref.order

		tradeQty := order.Remaining()
		if entry.Remaining < tradeQty {
			tradeQty = entry.Remaining
		}

		incomingDebit, restingDebit := pricing.SplitCost(implied, tradeQty)

		// The pre-loop check covered the worst case for limit orders, but a
		// market order can walk into higher prices than the best it was
		// checked against. Stop cleanly before this trade applies anything.
		canPay, err := e.ledger.CanCover(ctx, order.AccountID, incomingDebit)
		if err != nil {
			slog.Error("balance check failed mid-match", "account", order.AccountID, "err", err)
			break
		}
		if !canPay {
			break
		}

		if _, err := e.ledger.Apply(ctx, order.AccountID, incomingDebit.Neg()); err != nil {
			slog.Error("incoming debit failed", "account", order.AccountID, "err", err)
			break
		}

		// The resting party's balance was checked at placement but may have
		// been spent in another market since. A stale order is removed and
		// the incoming debit refunded; no trade leg is half-applied.
		if _, err := e.ledger.Apply(ctx, maker.AccountID, restingDebit.Neg()); err != nil {
			if _, rerr := e.ledger.Apply(ctx, order.AccountID, incomingDebit); rerr != nil {
				return trades, fmt.Errorf("refund after failed resting debit: %w", rerr)
			}
			if errors.Is(err, ledger.ErrInsufficientBalance) {
				oppBook.Remove(maker.ID)
				maker.State = model.Cancelled
				if uerr := e.store.UpdateOrder(ctx, maker); uerr != nil {
					slog.Warn("order audit update failed", "order", maker.ID, "err", uerr)
				}
				slog.Warn("resting order removed, balance no longer covers it",
					"order", maker.ID, "account", maker.AccountID)
				continue
			}
			slog.Error("resting debit failed", "account", maker.AccountID, "err", err)
			break
		}

		// Position legs. The incoming party nets any opposite exposure and
		// opens the full traded quantity on the side it bought; the resting
		// party nets first and opens only the remainder.
		if err := e.applyPositions(order, maker, implied, entry.Price, tradeQty); err != nil {
			g.halted = true
			slog.Error("invariant violation, outcome halted",
				"market", order.MarketID, "outcome", order.Outcome, "err", err)
			return trades, err
		}

		trade := model.Trade{
			ID:         uuid.New().String(),
			MarketID:   order.MarketID,
			Outcome:    order.Outcome,
			Side:       order.Side,
			Price:      implied,
			Quantity:   tradeQty,
			BuyerID:    order.AccountID,
			CounterID:  maker.AccountID,
			ExecutedAt: time.Now().UTC(),
		}
		if err := e.store.InsertTrade(ctx, &trade); err != nil {
			slog.Warn("trade audit insert failed", "trade", trade.ID, "err", err)
		}
		trades = append(trades, trade)

		maker.Filled += tradeQty
		if maker.Remaining() == 0 {
			maker.State = model.Filled
			oppBook.Remove(maker.ID)
		} else {
			maker.State = model.PartiallyFilled
			if err := oppBook.UpdateRemaining(maker.ID, maker.Remaining()); err != nil {
				slog.Error("book update failed", "order", maker.ID, "err", err)
			}
		}
		if err := e.store.UpdateOrder(ctx, maker); err != nil {
			slog.Warn("order audit update failed", "order", maker.ID, "err", err)
		}

		order.Filled += tradeQty

		slog.Info("trade executed",
			"trade", trade.ID,
			"market", trade.MarketID,
			"outcome", trade.Outcome,
			"side", trade.Side,
			"price", trade.Price.String(),
			"qty", trade.Quantity,
			"buyer", trade.BuyerID,
			"counterparty", trade.CounterID,
		)
	}

	return trades, nil
}

// applyPositions applies both parties' position legs for one trade.
func (e *Engine) applyPositions(order, maker *model.Order, price, makerPrice decimal.Decimal, qty int64) error {
	m, o := order.MarketID, order.Outcome

	if _, err := e.positions.Reduce(order.AccountID, m, o, order.Side.Opposite(), qty); err != nil {
		return err
	}
	if err := e.positions.Accumulate(order.AccountID, m, o, order.Side, qty, price); err != nil {
		return err
	}

	return e.positions.ApplyTradeLeg(maker.AccountID, m, o, maker.Side, qty, makerPrice)
}

// Cancel removes a resting order from its book and marks it cancelled.
// Only pending and partially-filled orders can be cancelled.
func (e *Engine) Cancel(ctx context.Context, orderID string) (model.Order, error) {
	ref, ok := e.lookupOrder(orderID)
	if !ok {
		return model.Order{}, ErrOrderNotFound
	}

	g := ref.group
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.halted {
		return model.Order{}, ErrOutcomeHalted
	}

	o := ref.order
	if o.State != model.Pending && o.State != model.PartiallyFilled {
		return *o, ErrNotCancellable
	}

	g.books[o.Side].Remove(o.ID)
	o.State = model.Cancelled
	if err := e.store.UpdateOrder(ctx, o); err != nil {
		slog.Warn("order audit update failed", "order", o.ID, "err", err)
	}

	slog.Info("order cancelled", "order", o.ID, "account", o.AccountID)

	if e.notifier != nil {
		e.notifier.BookUpdated(o.MarketID, o.Outcome, o.Side)
	}
	return *o, nil
}

// Order returns a snapshot of an order's current state.
func (e *Engine) Order(orderID string) (model.Order, error) {
	ref, ok := e.lookupOrder(orderID)
	if !ok {
		return model.Order{}, ErrOrderNotFound
	}

	ref.group.mu.Lock()
	defer ref.group.mu.Unlock()
	return *ref.order, nil
}

// BookSnapshot returns up to depth resting orders on one side of an
// outcome-group, in price-time priority order, for display purposes.
func (e *Engine) BookSnapshot(marketID, outcome string, side model.Side, depth int) ([]model.BookLevel, error) {
	if !side.Valid() {
		return nil, ErrInvalidSide
	}

	g := e.group(marketID, outcome)
	g.mu.Lock()
	defer g.mu.Unlock()

	levels := []model.BookLevel{}
	for entry := range g.books[side].InPriorityOrder() {
		if depth > 0 && len(levels) >= depth {
			break
		}
		owner := ""
		if ref, ok := e.lookupOrder(entry.OrderID); ok {
			owner = ref.order.AccountID
		}
		levels = append(levels, model.BookLevel{
			Price:     entry.Price,
			Quantity:  entry.Remaining,
			OrderID:   entry.OrderID,
			AccountID: owner,
		})
	}
	return levels, nil
}
