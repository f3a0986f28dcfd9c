package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Yuliannahernandez/backend-app/internal/domain/coupon"
	"github.com/Yuliannahernandez/backend-app/internal/domain/pricing"
)

const (
	couponColumns = `id, code, description, discount_type, discount_value, minimum_amount,
		valid_from, valid_to, max_total_uses, max_uses_per_customer, active, created_at`

	findCouponByCodeSQL = `SELECT ` + couponColumns + `
		FROM coupons WHERE code = $1 AND active = TRUE`

	getCouponByIDSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`

	createCouponSQL = `INSERT INTO coupons (` + couponColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	countCouponUsageSQL = `SELECT COUNT(*) FROM coupon_usages WHERE coupon_id = $1`

	countCustomerCouponUsageSQL = `SELECT COUNT(*) FROM coupon_usages
		WHERE coupon_id = $1 AND customer_id = $2`

	listActiveCouponsSQL = `SELECT ` + couponColumns + `
		FROM coupons
		WHERE active = TRUE AND valid_from <= $1 AND valid_to >= $1
		ORDER BY valid_to`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up an active coupon by its normalized code.
// Returns coupon.ErrNotFound when no matching active coupon exists.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, findCouponByCodeSQL, coupon.Normalize(code))
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

// GetByID looks up a coupon by ID regardless of active state.
func (r *CouponRepository) GetByID(ctx context.Context, id string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting coupon %q: %w", id, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("getting coupon %q: %w", id, err)
	}
	return &c, nil
}

// Create inserts a new coupon.
func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	_, err := r.pool.Exec(ctx, createCouponSQL,
		c.ID, c.Code, c.Description, string(c.DiscountType), c.DiscountValue,
		c.MinimumAmount, c.ValidFrom, c.ValidTo,
		c.MaxTotalUses, c.MaxUsesPerCustomer, c.Active, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating coupon %q: %w", c.Code, err)
	}
	return nil
}

// CountUsage returns the number of usage records across all customers.
func (r *CouponRepository) CountUsage(ctx context.Context, couponID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, countCouponUsageSQL, couponID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting usage for coupon %q: %w", couponID, err)
	}
	return n, nil
}

// CountCustomerUsage returns the number of usage records for one customer.
func (r *CouponRepository) CountCustomerUsage(ctx context.Context, couponID, customerID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, countCustomerCouponUsageSQL, couponID, customerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting customer usage for coupon %q: %w", couponID, err)
	}
	return n, nil
}

// ListActive returns active coupons whose validity window contains now.
func (r *CouponRepository) ListActive(ctx context.Context, now time.Time) ([]coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, listActiveCouponsSQL, now)
	if err != nil {
		return nil, fmt.Errorf("listing active coupons: %w", err)
	}
	return pgx.CollectRows(rows, scanCoupon)
}

// ListCodes returns every coupon code, used to warm the code prefilter.
func (r *CouponRepository) ListCodes(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT code FROM coupons`)
	if err != nil {
		return nil, fmt.Errorf("listing coupon codes: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var code string
		err := row.Scan(&code)
		return code, err
	})
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c            coupon.Coupon
		discountType string
		maxTotal     int32
		maxCustomer  int32
	)
	err := row.Scan(
		&c.ID, &c.Code, &c.Description, &discountType, &c.DiscountValue,
		&c.MinimumAmount, &c.ValidFrom, &c.ValidTo,
		&maxTotal, &maxCustomer, &c.Active, &c.CreatedAt,
	)
	c.DiscountType = pricing.DiscountKind(discountType)
	c.MaxTotalUses = int(maxTotal)
	c.MaxUsesPerCustomer = int(maxCustomer)
	return c, err
}
