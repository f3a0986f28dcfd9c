package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Yuliannahernandez/backend-app/internal/domain/loyalty"
)

const (
	loyaltyBalanceSQL = `SELECT COALESCE(SUM(points), 0)
		FROM loyalty_entries WHERE customer_id = $1`

	appendLoyaltyEntrySQL = `INSERT INTO loyalty_entries
		(id, customer_id, points, kind, order_id, reward_id, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	hasAccrualSQL = `SELECT EXISTS (
		SELECT 1 FROM loyalty_entries WHERE order_id = $1 AND kind = 'earned')`

	loyaltyHistorySQL = `SELECT id, customer_id, points, kind, order_id, reward_id, description, created_at
		FROM loyalty_entries WHERE customer_id = $1
		ORDER BY created_at DESC LIMIT $2`
)

var _ loyalty.Repository = (*LoyaltyRepository)(nil)

// LoyaltyRepository implements the append-only point ledger on PostgreSQL.
type LoyaltyRepository struct {
	pool *pgxpool.Pool
}

// NewLoyaltyRepository returns a LoyaltyRepository that uses the given pool.
func NewLoyaltyRepository(pool *pgxpool.Pool) *LoyaltyRepository {
	return &LoyaltyRepository{pool: pool}
}

// Balance sums the customer's signed entries. No entries means zero.
func (r *LoyaltyRepository) Balance(ctx context.Context, customerID string) (int, error) {
	var balance int
	err := r.pool.QueryRow(ctx, loyaltyBalanceSQL, customerID).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("computing balance for %q: %w", customerID, err)
	}
	return balance, nil
}

// Append inserts one immutable ledger entry.
func (r *LoyaltyRepository) Append(ctx context.Context, e *loyalty.Entry) error {
	_, err := r.pool.Exec(ctx, appendLoyaltyEntrySQL,
		e.ID, e.CustomerID, e.Points, string(e.Kind),
		e.OrderID, e.RewardID, e.Description, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("appending ledger entry %q: %w", e.ID, err)
	}
	return nil
}

// HasAccrual reports whether an earned entry already references the order.
func (r *LoyaltyRepository) HasAccrual(ctx context.Context, orderID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, hasAccrualSQL, orderID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking accrual for order %q: %w", orderID, err)
	}
	return exists, nil
}

// History returns the customer's entries newest-first, at most limit.
func (r *LoyaltyRepository) History(ctx context.Context, customerID string, limit int) ([]loyalty.Entry, error) {
	rows, err := r.pool.Query(ctx, loyaltyHistorySQL, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("loading ledger history for %q: %w", customerID, err)
	}
	return pgx.CollectRows(rows, scanLoyaltyEntry)
}

func scanLoyaltyEntry(row pgx.CollectableRow) (loyalty.Entry, error) {
	var (
		e    loyalty.Entry
		kind string
	)
	err := row.Scan(&e.ID, &e.CustomerID, &e.Points, &kind,
		&e.OrderID, &e.RewardID, &e.Description, &e.CreatedAt)
	e.Kind = loyalty.EntryKind(kind)
	return e, err
}
