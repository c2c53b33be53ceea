package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresLedger implements Ledger on PostgreSQL. Balances are stored as
// NUMERIC(20,2). The sufficiency check rides in the UPDATE's WHERE clause,
// so check and mutation are a single atomic statement.
type PostgresLedger struct {
	pool *pgxpool.Pool
}

// NewPostgresLedger creates a PostgreSQL-backed ledger.
func NewPostgresLedger(pool *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{pool: pool}
}

func (l *PostgresLedger) Apply(ctx context.Context, accountID string, amount decimal.Decimal) (decimal.Decimal, error) {
	// Credits may create the account row; debits require it to exist with
	// sufficient balance. A failed sufficiency check produces zero rows.
	var balS string
	err := l.pool.QueryRow(ctx,
		`WITH updated AS (
		     UPDATE accounts SET balance = balance + $2::NUMERIC
		     WHERE id = $1 AND balance + $2::NUMERIC >= 0
		     RETURNING balance
		 ), inserted AS (
		     INSERT INTO accounts (id, balance)
		     SELECT $1, $2::NUMERIC
		     WHERE $2::NUMERIC >= 0
		       AND NOT EXISTS (SELECT 1 FROM accounts WHERE id = $1)
		     RETURNING balance
		 )
		 SELECT balance::TEXT FROM updated
		 UNION ALL
		 SELECT balance::TEXT FROM inserted`,
		accountID, amount.String()).Scan(&balS)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Decimal{}, ErrInsufficientBalance
	}
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("apply %s to %s: %w", amount, accountID, err)
	}

	bal, err := decimal.NewFromString(balS)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse balance for %s: %w", accountID, err)
	}
	return bal, nil
}

func (l *PostgresLedger) Balance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	var balS string
	err := l.pool.QueryRow(ctx,
		`SELECT balance::TEXT FROM accounts WHERE id = $1`, accountID).Scan(&balS)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Decimal{}, ErrAccountNotFound
	}
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("balance for %s: %w", accountID, err)
	}

	bal, err := decimal.NewFromString(balS)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse balance for %s: %w", accountID, err)
	}
	return bal, nil
}

func (l *PostgresLedger) CanCover(ctx context.Context, accountID string, amount decimal.Decimal) (bool, error) {
	bal, err := l.Balance(ctx, accountID)
	if errors.Is(err, ErrAccountNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return bal.GreaterThanOrEqual(amount), nil
}
