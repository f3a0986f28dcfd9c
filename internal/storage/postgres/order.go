package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Yuliannahernandez/backend-app/internal/domain/cart"
	"github.com/Yuliannahernandez/backend-app/internal/domain/coupon"
)

const (
	orderColumns = `id, customer_id, branch_id, payment_method_id, delivery_mode, state,
		subtotal, discount, shipping_cost, total, coupon_code, estimated_minutes,
		created_at, confirmed_at, completed_at`

	activeCartSQL = `SELECT ` + orderColumns + `
		FROM orders WHERE customer_id = $1 AND state = 'cart'`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listOrdersByCustomerSQL = `SELECT ` + orderColumns + `
		FROM orders WHERE customer_id = $1 AND state <> 'cart'
		ORDER BY created_at DESC`

	listActiveOrdersSQL = `SELECT ` + orderColumns + `
		FROM orders WHERE state NOT IN ('cart', 'completed', 'cancelled')
		ORDER BY confirmed_at`

	insertOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	updateOrderSQL = `UPDATE orders SET
		branch_id = $2, payment_method_id = $3, delivery_mode = $4, state = $5,
		subtotal = $6, discount = $7, shipping_cost = $8, total = $9,
		coupon_code = $10, estimated_minutes = $11, confirmed_at = $12, completed_at = $13
		WHERE id = $1`

	deleteOrderLinesSQL = `DELETE FROM order_lines WHERE order_id = $1`

	insertOrderLineSQL = `INSERT INTO order_lines (id, order_id, product_id, quantity, unit_price, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6)`

	listOrderLinesSQL = `SELECT id, order_id, product_id, quantity, unit_price, subtotal
		FROM order_lines WHERE order_id = ANY($1) ORDER BY id`

	lockCouponCapsSQL = `SELECT max_total_uses, max_uses_per_customer
		FROM coupons WHERE id = $1 FOR UPDATE`

	insertCouponUsageSQL = `INSERT INTO coupon_usages (id, coupon_id, customer_id, order_id, discount_applied, used_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
)

var _ cart.Repository = (*OrderRepository)(nil)

// OrderRepository implements cart.Repository backed by PostgreSQL. Orders and
// their lines live in separate tables; every write replaces the lines.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// ActiveCart returns the customer's cart-state order, or cart.ErrNoActiveCart.
func (r *OrderRepository) ActiveCart(ctx context.Context, customerID string) (*cart.Order, error) {
	rows, err := r.pool.Query(ctx, activeCartSQL, customerID)
	if err != nil {
		return nil, fmt.Errorf("loading active cart for %q: %w", customerID, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNoActiveCart
		}
		return nil, fmt.Errorf("loading active cart for %q: %w", customerID, err)
	}
	if err := r.attachLines(ctx, []*cart.Order{&o}); err != nil {
		return nil, err
	}
	return &o, nil
}

// Create persists a new order together with its lines.
func (r *OrderRepository) Create(ctx context.Context, o *cart.Order) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertOrderSQL, orderArgs(o)...); err != nil {
			return fmt.Errorf("inserting order %q: %w", o.ID, err)
		}
		return insertLines(ctx, tx, o)
	})
}

// Update persists the order and replaces its lines.
func (r *OrderRepository) Update(ctx context.Context, o *cart.Order) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		return updateOrder(ctx, tx, o)
	})
}

// GetByID loads any order with its lines.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*cart.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrOrderNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	if err := r.attachLines(ctx, []*cart.Order{&o}); err != nil {
		return nil, err
	}
	return &o, nil
}

// ListByCustomer returns the customer's non-cart orders, newest first.
func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID string) ([]cart.Order, error) {
	return r.list(ctx, listOrdersByCustomerSQL, customerID)
}

// ListActive returns all orders between confirmed and delivered.
func (r *OrderRepository) ListActive(ctx context.Context) ([]cart.Order, error) {
	return r.list(ctx, listActiveOrdersSQL)
}

// Confirm atomically persists the confirmed order and, when usage is not nil,
// inserts the coupon usage record. The coupon row is locked and both caps are
// recounted inside the transaction so concurrent confirmations cannot
// oversubscribe a coupon.
func (r *OrderRepository) Confirm(ctx context.Context, o *cart.Order, usage *coupon.Usage) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if usage != nil {
			if err := consumeCouponUse(ctx, tx, usage); err != nil {
				return err
			}
		}
		return updateOrder(ctx, tx, o)
	})
}

func consumeCouponUse(ctx context.Context, tx pgx.Tx, usage *coupon.Usage) error {
	var maxTotal, maxCustomer int32
	err := tx.QueryRow(ctx, lockCouponCapsSQL, usage.CouponID).Scan(&maxTotal, &maxCustomer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return coupon.ErrNotFound
		}
		return fmt.Errorf("locking coupon %q: %w", usage.CouponID, err)
	}

	if maxTotal > 0 {
		var used int
		if err := tx.QueryRow(ctx, countCouponUsageSQL, usage.CouponID).Scan(&used); err != nil {
			return fmt.Errorf("counting usage for coupon %q: %w", usage.CouponID, err)
		}
		if used >= int(maxTotal) {
			return coupon.ErrGlobalLimitReached
		}
	}
	if maxCustomer > 0 {
		var used int
		err := tx.QueryRow(ctx, countCustomerCouponUsageSQL, usage.CouponID, usage.CustomerID).Scan(&used)
		if err != nil {
			return fmt.Errorf("counting customer usage for coupon %q: %w", usage.CouponID, err)
		}
		if used >= int(maxCustomer) {
			return coupon.ErrCustomerLimitReached
		}
	}

	_, err = tx.Exec(ctx, insertCouponUsageSQL,
		usage.ID, usage.CouponID, usage.CustomerID, usage.OrderID,
		usage.DiscountApplied, usage.UsedAt,
	)
	if err != nil {
		return fmt.Errorf("recording usage for coupon %q: %w", usage.CouponID, err)
	}
	return nil
}

func (r *OrderRepository) list(ctx context.Context, sql string, args ...any) ([]cart.Order, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}

	refs := make([]*cart.Order, len(orders))
	for i := range orders {
		refs[i] = &orders[i]
	}
	if err := r.attachLines(ctx, refs); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrderRepository) attachLines(ctx context.Context, orders []*cart.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	byID := make(map[string]*cart.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
	}

	rows, err := r.pool.Query(ctx, listOrderLinesSQL, ids)
	if err != nil {
		return fmt.Errorf("loading order lines: %w", err)
	}
	lines, err := pgx.CollectRows(rows, scanLine)
	if err != nil {
		return fmt.Errorf("loading order lines: %w", err)
	}
	for _, line := range lines {
		o := byID[line.OrderID]
		o.Lines = append(o.Lines, line)
	}
	return nil
}

func (r *OrderRepository) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func updateOrder(ctx context.Context, tx pgx.Tx, o *cart.Order) error {
	tag, err := tx.Exec(ctx, updateOrderSQL,
		o.ID, o.BranchID, o.PaymentMethodID, string(o.DeliveryMode), string(o.State),
		o.Subtotal, o.Discount, o.ShippingCost, o.Total,
		o.CouponCode, o.EstimatedMinutes, o.ConfirmedAt, o.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("updating order %q: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrOrderNotFound
	}

	if _, err := tx.Exec(ctx, deleteOrderLinesSQL, o.ID); err != nil {
		return fmt.Errorf("clearing lines for order %q: %w", o.ID, err)
	}
	return insertLines(ctx, tx, o)
}

func insertLines(ctx context.Context, tx pgx.Tx, o *cart.Order) error {
	for _, line := range o.Lines {
		_, err := tx.Exec(ctx, insertOrderLineSQL,
			line.ID, o.ID, line.ProductID, line.Quantity, line.UnitPrice, line.Subtotal,
		)
		if err != nil {
			return fmt.Errorf("inserting line %q: %w", line.ID, err)
		}
	}
	return nil
}

func orderArgs(o *cart.Order) []any {
	return []any{
		o.ID, o.CustomerID, o.BranchID, o.PaymentMethodID,
		string(o.DeliveryMode), string(o.State),
		o.Subtotal, o.Discount, o.ShippingCost, o.Total,
		o.CouponCode, o.EstimatedMinutes,
		o.CreatedAt, o.ConfirmedAt, o.CompletedAt,
	}
}

func scanOrder(row pgx.CollectableRow) (cart.Order, error) {
	var (
		o            cart.Order
		deliveryMode string
		state        string
		estimated    int32
	)
	err := row.Scan(
		&o.ID, &o.CustomerID, &o.BranchID, &o.PaymentMethodID, &deliveryMode, &state,
		&o.Subtotal, &o.Discount, &o.ShippingCost, &o.Total,
		&o.CouponCode, &estimated, &o.CreatedAt, &o.ConfirmedAt, &o.CompletedAt,
	)
	o.DeliveryMode = cart.DeliveryMode(deliveryMode)
	o.State = cart.State(state)
	o.EstimatedMinutes = int(estimated)
	return o, err
}

func scanLine(row pgx.CollectableRow) (cart.Line, error) {
	var (
		line cart.Line
		qty  int32
	)
	err := row.Scan(&line.ID, &line.OrderID, &line.ProductID, &qty, &line.UnitPrice, &line.Subtotal)
	line.Quantity = int(qty)
	return line, err
}
