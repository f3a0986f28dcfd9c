// Package reward holds the loyalty reward catalog and the issuer that mints
// single-use coupons for redemptions and trivia prizes.
package reward

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested reward does not exist.
var ErrNotFound = errors.New("reward not found")

// Kind enumerates what a reward grants on redemption.
type Kind string

const (
	// KindDiscount grants a discount coupon.
	KindDiscount Kind = "discount"
	// KindFreeProduct grants a free product, handled outside the coupon system.
	KindFreeProduct Kind = "free_product"
	// KindCoupon grants a coupon whose terms are encoded in Value.
	KindCoupon Kind = "coupon"
)

// Reward is a catalog entry customers redeem loyalty points for.
// Value is textual: a percentage when suffixed with '%', otherwise a fixed
// amount in currency units.
type Reward struct {
	ID             string
	Name           string
	Description    string
	PointsRequired int
	Kind           Kind
	Value          string
	Active         bool
}

// Repository defines read operations for the reward catalog.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Reward, error)
	ListActive(ctx context.Context) ([]Reward, error)
}
