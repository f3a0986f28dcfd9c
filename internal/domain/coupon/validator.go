package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Validator enforces coupon eligibility rules in a fixed order so each
// failure maps to one distinct reason: empty code, unknown code, window,
// global cap, per-customer cap, and (on application only) minimum amount.
type Validator struct {
	repo      Repository
	prefilter *CodeFilter
	now       func() time.Time
}

// NewValidator creates a Validator backed by the given Repository.
func NewValidator(repo Repository) *Validator {
	return &Validator{repo: repo, now: time.Now}
}

// WithPrefilter installs a bloom-filter prefilter over known codes. Unknown
// codes are rejected without touching the repository.
func (v *Validator) WithPrefilter(cf *CodeFilter) *Validator {
	v.prefilter = cf
	return v
}

// Validate checks everything except the minimum order amount, which depends
// on the cart and is enforced only when the coupon is applied.
func (v *Validator) Validate(ctx context.Context, code, customerID string) (*Coupon, error) {
	code = Normalize(code)
	if code == "" {
		return nil, ErrEmptyCode
	}

	if v.prefilter != nil && !v.prefilter.Test(code) {
		return nil, ErrNotFound
	}

	c, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	now := v.now()
	if now.Before(c.ValidFrom) {
		return nil, ErrNotYetValid
	}
	if now.After(c.ValidTo) {
		return nil, ErrExpired
	}

	if c.MaxTotalUses > 0 {
		used, err := v.repo.CountUsage(ctx, c.ID)
		if err != nil {
			return nil, errors.Wrap(err, "count coupon usage")
		}
		if used >= c.MaxTotalUses {
			return nil, ErrGlobalLimitReached
		}
	}

	if c.MaxUsesPerCustomer > 0 {
		customerUsed, err := v.repo.CountCustomerUsage(ctx, c.ID, customerID)
		if err != nil {
			return nil, errors.Wrap(err, "count customer coupon usage")
		}
		if customerUsed >= c.MaxUsesPerCustomer {
			return nil, ErrCustomerLimitReached
		}
	}

	return c, nil
}

// ValidateForAmount runs the full validation and additionally enforces the
// coupon's minimum order amount against the given cart subtotal.
func (v *Validator) ValidateForAmount(ctx context.Context, code, customerID string, subtotal decimal.Decimal) (*Coupon, error) {
	c, err := v.Validate(ctx, code, customerID)
	if err != nil {
		return nil, err
	}
	if subtotal.LessThan(c.MinimumAmount) {
		return nil, ErrMinimumNotMet
	}
	return c, nil
}

// ListAvailable returns the active, in-window coupons the customer can still
// redeem, filtering out those whose global or per-customer cap is exhausted.
func (v *Validator) ListAvailable(ctx context.Context, customerID string) ([]Coupon, error) {
	active, err := v.repo.ListActive(ctx, v.now())
	if err != nil {
		return nil, errors.Wrap(err, "list active coupons")
	}

	available := make([]Coupon, 0, len(active))
	for _, c := range active {
		if c.MaxTotalUses > 0 {
			used, err := v.repo.CountUsage(ctx, c.ID)
			if err != nil {
				return nil, errors.Wrap(err, "count coupon usage")
			}
			if used >= c.MaxTotalUses {
				continue
			}
		}
		if c.MaxUsesPerCustomer > 0 {
			customerUsed, err := v.repo.CountCustomerUsage(ctx, c.ID, customerID)
			if err != nil {
				return nil, errors.Wrap(err, "count customer coupon usage")
			}
			if customerUsed >= c.MaxUsesPerCustomer {
				continue
			}
		}
		available = append(available, c)
	}
	return available, nil
}
