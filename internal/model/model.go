// Package model defines the core domain types shared across the trading engine.
// All monetary values use shopspring/decimal — never float64 for money.
// Quantities are whole contracts and use int64; fractional contracts do not exist.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is one of the two complementary sides of an outcome-group.
// Prices on opposite sides always sum to the par value 1.0.
type Side string

const (
	Yes Side = "yes"
	No  Side = "no"
)

// Valid reports whether the side is one of the two known values.
func (s Side) Valid() bool {
	return s == Yes || s == No
}

// Opposite returns the complementary side.
func (s Side) Opposite() Side {
	if s == Yes {
		return No
	}
	return Yes
}

// OrderKind distinguishes limit from market orders. All orders are buys;
// selling a side is expressed as buying its complement.
type OrderKind string

const (
	Limit  OrderKind = "limit"
	Market OrderKind = "market"
)

// OrderState is the order lifecycle state.
// pending → partially-filled → filled, or pending/partially-filled → cancelled.
type OrderState string

const (
	Pending         OrderState = "pending"
	PartiallyFilled OrderState = "partially_filled"
	Filled          OrderState = "filled"
	Cancelled       OrderState = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s OrderState) Terminal() bool {
	return s == Filled || s == Cancelled
}

// Order is a buy order on one side of an outcome-group. Mutated only by the
// matching engine (fills) or by an external cancel request.
type Order struct {
	ID        string          `json:"id" db:"id"`
	AccountID string          `json:"account_id" db:"account_id"`
	MarketID  string          `json:"market_id" db:"market_id"`
	Outcome   string          `json:"outcome" db:"outcome"` // outcome-group name, e.g. "default", "Team A"
	Side      Side            `json:"side" db:"side"`
	Kind      OrderKind       `json:"kind" db:"kind"`
	Price     decimal.Decimal `json:"price" db:"price"` // limit price in (0,1]; meaningless for market orders
	Quantity  int64           `json:"quantity" db:"quantity"`
	Filled    int64           `json:"filled_quantity" db:"filled_quantity"`
	State     OrderState      `json:"state" db:"state"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// Remaining returns the unfilled contract count.
func (o *Order) Remaining() int64 {
	return o.Quantity - o.Filled
}

// Trade is an immutable record of one match event. Once created, these are
// never modified or deleted.
type Trade struct {
	ID         string          `json:"id" db:"id"`
	MarketID   string          `json:"market_id" db:"market_id"`
	Outcome    string          `json:"outcome" db:"outcome"`
	Side       Side            `json:"side" db:"side"` // side the incoming party bought
	Price      decimal.Decimal `json:"price" db:"price"`
	Quantity   int64           `json:"quantity" db:"quantity"`
	BuyerID    string          `json:"buyer_id" db:"buyer_id"`               // incoming party
	CounterID  string          `json:"counterparty_id" db:"counterparty_id"` // resting party, bought the opposite side
	ExecutedAt time.Time       `json:"executed_at" db:"executed_at"`
}

// Position is a trader's exposure on one side of one outcome-group.
// Invariant: CostBasis == AvgPrice * Quantity within rounding tolerance.
type Position struct {
	AccountID string          `json:"account_id"`
	MarketID  string          `json:"market_id"`
	Outcome   string          `json:"outcome"`
	Side      Side            `json:"side"`
	Quantity  int64           `json:"quantity"`
	AvgPrice  decimal.Decimal `json:"average_price"`
	CostBasis decimal.Decimal `json:"total_cost"`
}

// Payout is one account's credit from an outcome resolution.
type Payout struct {
	AccountID string          `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// Resolution records how and when an outcome-group was resolved.
type Resolution struct {
	MarketID   string    `json:"market_id" db:"market_id"`
	Outcome    string    `json:"outcome" db:"outcome"`
	Winner     Side      `json:"winner" db:"winner"`
	ResolvedBy string    `json:"resolved_by" db:"resolved_by"`
	ResolvedAt time.Time `json:"resolved_at" db:"resolved_at"`
}

// BookLevel is one resting order in a book snapshot, for display purposes.
type BookLevel struct {
	Price     decimal.Decimal `json:"price"`
	Quantity  int64           `json:"quantity"`
	OrderID   string          `json:"order_id"`
	AccountID string          `json:"account_id"`
}
