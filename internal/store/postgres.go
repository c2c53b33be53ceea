package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/drewwilen/BetThat/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) InsertOrder(ctx context.Context, o *model.Order) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO orders (id, account_id, market_id, outcome, side, kind, price, quantity, filled_quantity, state, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::NUMERIC, $8, $9, $10, $11)`,
		o.ID, o.AccountID, o.MarketID, o.Outcome, string(o.Side), string(o.Kind),
		o.Price.String(), o.Quantity, o.Filled, string(o.State), o.CreatedAt,
	)
	return err
}

func (s *PostgresStore) UpdateOrder(ctx context.Context, o *model.Order) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE orders SET filled_quantity = $2, state = $3 WHERE id = $1`,
		o.ID, o.Filled, string(o.State),
	)
	return err
}

func (s *PostgresStore) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	var o model.Order
	var side, kind, state, priceS string

	err := s.pool.QueryRow(ctx,
		`SELECT id, account_id, market_id, outcome, side, kind,
		        price::TEXT, quantity, filled_quantity, state, created_at
		 FROM orders WHERE id = $1`, id).
		Scan(&o.ID, &o.AccountID, &o.MarketID, &o.Outcome, &side, &kind,
			&priceS, &o.Quantity, &o.Filled, &state, &o.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}

	o.Side = model.Side(side)
	o.Kind = model.OrderKind(kind)
	o.State = model.OrderState(state)
	o.Price, _ = decimal.NewFromString(priceS)

	return &o, nil
}

func (s *PostgresStore) InsertTrade(ctx context.Context, t *model.Trade) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO trades (id, market_id, outcome, side, price, quantity, buyer_id, counterparty_id, executed_at)
		 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6, $7, $8, $9)`,
		t.ID, t.MarketID, t.Outcome, string(t.Side),
		t.Price.String(), t.Quantity, t.BuyerID, t.CounterID, t.ExecutedAt,
	)
	return err
}

func (s *PostgresStore) TradesByMarket(ctx context.Context, marketID string) ([]model.Trade, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, market_id, outcome, side, price::TEXT, quantity, buyer_id, counterparty_id, executed_at
		 FROM trades WHERE market_id = $1 ORDER BY executed_at`, marketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTrades(rows)
}

func (s *PostgresStore) TradesByAccount(ctx context.Context, accountID string) ([]model.Trade, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, market_id, outcome, side, price::TEXT, quantity, buyer_id, counterparty_id, executed_at
		 FROM trades WHERE buyer_id = $1 OR counterparty_id = $1 ORDER BY executed_at`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTrades(rows)
}

func (s *PostgresStore) InsertResolution(ctx context.Context, r *model.Resolution) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO resolutions (market_id, outcome, winner, resolved_by, resolved_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		r.MarketID, r.Outcome, string(r.Winner), r.ResolvedBy, r.ResolvedAt,
	)
	return err
}

// scanTrades reads pgx rows into Trade slices.
type pgxRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanTrades(rows pgxRows) ([]model.Trade, error) {
	var trades []model.Trade
	for rows.Next() {
		var t model.Trade
		var side, priceS string

		if err := rows.Scan(&t.ID, &t.MarketID, &t.Outcome, &side,
			&priceS, &t.Quantity, &t.BuyerID, &t.CounterID, &t.ExecutedAt); err != nil {
			return nil, err
		}

		t.Side = model.Side(side)
		t.Price, _ = decimal.NewFromString(priceS)

		trades = append(trades, t)
	}
	return trades, rows.Err()
}
