// Package coupon owns promotional coupon rules, validation, and usage
// accounting against global and per-customer caps.
package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/Yuliannahernandez/backend-app/internal/domain/pricing"
)

// Validation failures, each a distinct reason the API layer can surface.
var (
	// ErrEmptyCode is returned when the code is blank after normalization.
	ErrEmptyCode = errors.New("coupon code is required")
	// ErrNotFound is returned when no active coupon matches the code.
	ErrNotFound = errors.New("coupon not found or inactive")
	// ErrNotYetValid is returned before the coupon's validity window opens.
	ErrNotYetValid = errors.New("coupon is not yet valid")
	// ErrExpired is returned after the coupon's validity window closes.
	ErrExpired = errors.New("coupon expired")
	// ErrGlobalLimitReached is returned when the coupon has no uses left overall.
	ErrGlobalLimitReached = errors.New("coupon usage limit reached")
	// ErrCustomerLimitReached is returned when this customer has no uses left.
	ErrCustomerLimitReached = errors.New("coupon already used the maximum number of times")
	// ErrMinimumNotMet is returned when the cart subtotal is below the coupon minimum.
	ErrMinimumNotMet = errors.New("order does not reach the coupon minimum amount")
)

// Coupon is a promotional discount rule. Codes are stored uppercase and
// matched case-insensitively.
type Coupon struct {
	ID            string
	Code          string
	Description   string
	DiscountType  pricing.DiscountKind
	DiscountValue decimal.Decimal
	MinimumAmount decimal.Decimal
	ValidFrom     time.Time
	ValidTo       time.Time
	// MaxTotalUses caps redemptions across all customers. Zero means unlimited.
	MaxTotalUses int
	// MaxUsesPerCustomer caps redemptions per customer. Zero means unlimited.
	MaxUsesPerCustomer int
	Active             bool
	CreatedAt          time.Time
}

// Discount returns the coupon's terms in pricing form.
func (c *Coupon) Discount() *pricing.Discount {
	return &pricing.Discount{Kind: c.DiscountType, Value: c.DiscountValue}
}

// Usage records one completed redemption, written at order confirmation.
// Applied-then-abandoned coupons never consume a use.
type Usage struct {
	ID              string
	CouponID        string
	CustomerID      string
	OrderID         string
	DiscountApplied decimal.Decimal
	UsedAt          time.Time
}

// Repository provides lookup and usage accounting for coupons.
type Repository interface {
	// FindByCode looks up an active coupon by normalized code.
	// Returns ErrNotFound when no matching active coupon exists.
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	// GetByID looks up a coupon by ID regardless of active state.
	GetByID(ctx context.Context, id string) (*Coupon, error)
	Create(ctx context.Context, c *Coupon) error
	// CountUsage returns the number of usage records across all customers.
	CountUsage(ctx context.Context, couponID string) (int, error)
	// CountCustomerUsage returns the number of usage records for one customer.
	CountCustomerUsage(ctx context.Context, couponID, customerID string) (int, error)
	// ListActive returns active coupons whose validity window contains now.
	ListActive(ctx context.Context, now time.Time) ([]Coupon, error)
}

// Normalize trims surrounding whitespace and uppercases a coupon code.
// Every entry point into the package goes through it.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
