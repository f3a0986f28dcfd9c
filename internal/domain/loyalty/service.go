package loyalty

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Yuliannahernandez/backend-app/internal/domain/coupon"
	"github.com/Yuliannahernandez/backend-app/internal/domain/reward"
)

// Accrual formula: 10 points per 1000 currency units of order total.
var accrualUnit = decimal.NewFromInt(1000)

const (
	pointsPerUnit = 10
	historyLimit  = 50
)

// CouponMinter issues the coupon for a redeemed coupon- or discount-kind reward.
type CouponMinter interface {
	MintFromReward(ctx context.Context, customerID string, rw *reward.Reward) (*coupon.Coupon, error)
}

// RedeemResult is the outcome of a successful redemption.
type RedeemResult struct {
	RemainingBalance int
	// IssuedCoupon is set for coupon and discount kind rewards.
	IssuedCoupon *coupon.Coupon
}

// Service implements point accrual, redemption, and history over the ledger.
type Service struct {
	entries Repository
	rewards reward.Repository
	minter  CouponMinter
	locks   *accountLocks
	now     func() time.Time
}

// NewService creates a loyalty Service.
func NewService(entries Repository, rewards reward.Repository, minter CouponMinter) *Service {
	return &Service{
		entries: entries,
		rewards: rewards,
		minter:  minter,
		locks:   newAccountLocks(),
		now:     time.Now,
	}
}

// Accrue grants points for a confirmed order: floor(total/1000) * 10.
// Idempotent per order: a retried confirmation grants nothing and returns 0.
func (s *Service) Accrue(ctx context.Context, customerID, orderID string, orderTotal decimal.Decimal) (int, error) {
	unlock := s.locks.Lock(customerID)
	defer unlock()

	done, err := s.entries.HasAccrual(ctx, orderID)
	if err != nil {
		return 0, errors.Wrap(err, "check existing accrual")
	}
	if done {
		return 0, nil
	}

	points := int(orderTotal.Div(accrualUnit).IntPart()) * pointsPerUnit
	if points <= 0 {
		return 0, nil
	}

	entry := &Entry{
		ID:          uuid.New().String(),
		CustomerID:  customerID,
		Points:      points,
		Kind:        KindEarned,
		OrderID:     orderID,
		Description: fmt.Sprintf("Purchase of %s", orderTotal.StringFixed(2)),
		CreatedAt:   s.now(),
	}
	if err := s.entries.Append(ctx, entry); err != nil {
		return 0, errors.Wrap(err, "append earned entry")
	}
	return points, nil
}

// Redeem spends points on a reward. Coupon and discount kind rewards mint a
// single-use coupon for the customer; free products are fulfilled outside
// the coupon system.
func (s *Service) Redeem(ctx context.Context, customerID, rewardID string) (*RedeemResult, error) {
	rw, err := s.rewards.GetByID(ctx, rewardID)
	if err != nil {
		return nil, err
	}

	// Balance check and debit must be one exclusive section, or two
	// concurrent redemptions could both pass the check and overdraw.
	unlock := s.locks.Lock(customerID)
	defer unlock()

	balance, err := s.entries.Balance(ctx, customerID)
	if err != nil {
		return nil, errors.Wrap(err, "read balance")
	}
	if balance < rw.PointsRequired {
		return nil, ErrInsufficientPoints
	}

	var issued *coupon.Coupon
	if rw.Kind == reward.KindCoupon || rw.Kind == reward.KindDiscount {
		issued, err = s.minter.MintFromReward(ctx, customerID, rw)
		if err != nil {
			return nil, errors.Wrap(err, "mint reward coupon")
		}
	}

	entry := &Entry{
		ID:          uuid.New().String(),
		CustomerID:  customerID,
		Points:      -rw.PointsRequired,
		Kind:        KindRedeemed,
		RewardID:    rw.ID,
		Description: fmt.Sprintf("Redeemed: %s", rw.Name),
		CreatedAt:   s.now(),
	}
	if err := s.entries.Append(ctx, entry); err != nil {
		return nil, errors.Wrap(err, "append redeemed entry")
	}

	return &RedeemResult{
		RemainingBalance: balance - rw.PointsRequired,
		IssuedCoupon:     issued,
	}, nil
}

// Balance returns the customer's current point balance.
func (s *Service) Balance(ctx context.Context, customerID string) (int, error) {
	return s.entries.Balance(ctx, customerID)
}

// History returns the customer's most recent ledger entries, newest first.
func (s *Service) History(ctx context.Context, customerID string) ([]Entry, error) {
	return s.entries.History(ctx, customerID, historyLimit)
}

// ListRewards returns the active reward catalog.
func (s *Service) ListRewards(ctx context.Context) ([]reward.Reward, error) {
	return s.rewards.ListActive(ctx)
}
