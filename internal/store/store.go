// Package store defines the audit persistence interface for the trading
// engine: orders, immutable trade records, and outcome resolutions.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
//
// The engine's live matching state (books, positions) is engine-owned and is
// not read back from here; this store serves history queries and restarts.
package store

import (
	"context"

	"github.com/drewwilen/BetThat/internal/model"
)

// Store is the audit persistence interface.
type Store interface {
	// --- Orders ---

	// InsertOrder persists a newly accepted order.
	InsertOrder(ctx context.Context, order *model.Order) error

	// UpdateOrder persists an order's fill progress and state.
	UpdateOrder(ctx context.Context, order *model.Order) error

	// GetOrder retrieves an order by id.
	GetOrder(ctx context.Context, id string) (*model.Order, error)

	// --- Immutable trades ---

	// InsertTrade appends an immutable trade record.
	InsertTrade(ctx context.Context, trade *model.Trade) error

	// TradesByMarket returns all trades for a market in execution order.
	TradesByMarket(ctx context.Context, marketID string) ([]model.Trade, error)

	// TradesByAccount returns all trades an account took part in.
	TradesByAccount(ctx context.Context, accountID string) ([]model.Trade, error)

	// --- Resolutions ---

	// InsertResolution records an outcome-group's resolution.
	InsertResolution(ctx context.Context, res *model.Resolution) error
}
