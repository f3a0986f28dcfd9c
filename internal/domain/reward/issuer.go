package reward

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Yuliannahernandez/backend-app/internal/domain/coupon"
	"github.com/Yuliannahernandez/backend-app/internal/domain/pricing"
)

// Trivia prize thresholds: 4 of 5 correct earns 15% off, a perfect run 20%.
const (
	triviaMinCorrect    = 4
	triviaQuestionCount = 5
	rewardValidityDays  = 30
	triviaValidityDays  = 7
)

var (
	// ErrBelowThreshold is returned when a trivia score does not earn a coupon.
	ErrBelowThreshold = errors.New("trivia score below reward threshold")
	// ErrUnparsableValue is returned when a reward's textual value is malformed.
	ErrUnparsableValue = errors.New("reward value is not a percentage or amount")

	triviaPerfectDiscount = decimal.NewFromInt(20)
	triviaGoodDiscount    = decimal.NewFromInt(15)
	// triviaMinimumAmount keeps trivia prizes off trivially small orders.
	triviaMinimumAmount = decimal.NewFromInt(5000)
)

// Issuer mints single-use coupons as loyalty redemptions or trivia prizes.
// Minted coupons are persisted and returned for immediate display.
type Issuer struct {
	coupons coupon.Repository
	filter  *coupon.CodeFilter
	now     func() time.Time
}

// NewIssuer creates an Issuer persisting through the given coupon repository.
func NewIssuer(coupons coupon.Repository) *Issuer {
	return &Issuer{coupons: coupons, now: time.Now}
}

// WithCodeFilter registers minted codes into the validator's bloom prefilter
// so freshly issued coupons validate without a cold miss.
func (i *Issuer) WithCodeFilter(cf *coupon.CodeFilter) *Issuer {
	i.filter = cf
	return i
}

// MintFromReward issues the coupon for a redeemed discount- or coupon-kind
// reward. The coupon is valid 30 days, usable once, with no minimum amount.
func (i *Issuer) MintFromReward(ctx context.Context, customerID string, rw *Reward) (*coupon.Coupon, error) {
	kind, value, err := ParseValue(rw.Value)
	if err != nil {
		return nil, errors.Wrapf(err, "reward %s", rw.ID)
	}

	now := i.now()
	c := &coupon.Coupon{
		ID:                 uuid.New().String(),
		Code:               i.code("REWARD", customerID),
		Description:        rw.Name,
		DiscountType:       kind,
		DiscountValue:      value,
		MinimumAmount:      decimal.Zero,
		ValidFrom:          now,
		ValidTo:            now.AddDate(0, 0, rewardValidityDays),
		MaxTotalUses:       1,
		MaxUsesPerCustomer: 1,
		Active:             true,
		CreatedAt:          now,
	}
	return c, i.persist(ctx, c)
}

// MintFromTrivia issues the prize coupon for a finished trivia session.
// Returns ErrBelowThreshold for fewer than 4 correct answers.
func (i *Issuer) MintFromTrivia(ctx context.Context, customerID string, correctCount int) (*coupon.Coupon, error) {
	if correctCount < triviaMinCorrect {
		return nil, ErrBelowThreshold
	}

	value := triviaGoodDiscount
	if correctCount >= triviaQuestionCount {
		value = triviaPerfectDiscount
	}

	now := i.now()
	c := &coupon.Coupon{
		ID:                 uuid.New().String(),
		Code:               i.code("TRIVIA", customerID),
		Description:        fmt.Sprintf("Trivia prize: %s%% off", value),
		DiscountType:       pricing.DiscountPercentage,
		DiscountValue:      value,
		MinimumAmount:      triviaMinimumAmount,
		ValidFrom:          now,
		ValidTo:            now.AddDate(0, 0, triviaValidityDays),
		MaxTotalUses:       1,
		MaxUsesPerCustomer: 1,
		Active:             true,
		CreatedAt:          now,
	}
	return c, i.persist(ctx, c)
}

func (i *Issuer) persist(ctx context.Context, c *coupon.Coupon) error {
	if err := i.coupons.Create(ctx, c); err != nil {
		return errors.Wrap(err, "persist minted coupon")
	}
	if i.filter != nil {
		i.filter.Add(c.Code)
	}
	return nil
}

// code builds a unique personal code: prefix, a customer fragment, and a
// random hex nonce. The nonce keeps codes distinct even when the same
// customer mints twice within one clock tick.
func (i *Issuer) code(prefix, customerID string) string {
	frag := strings.ToUpper(strings.ReplaceAll(customerID, "-", ""))
	if len(frag) > 6 {
		frag = frag[:6]
	}
	nonce := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("%s%s%s", prefix, frag, nonce)
}

// ParseValue interprets a reward's textual value: "15%" is a percentage
// discount, a bare number a fixed amount.
func ParseValue(s string) (pricing.DiscountKind, decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", decimal.Zero, ErrUnparsableValue
	}

	kind := pricing.DiscountFixed
	if strings.HasSuffix(s, "%") {
		kind = pricing.DiscountPercentage
		s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	}

	value, err := decimal.NewFromString(s)
	if err != nil || !value.IsPositive() {
		return "", decimal.Zero, ErrUnparsableValue
	}
	return kind, value, nil
}
