package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Yuliannahernandez/backend-app/internal/domain/audit"
	"github.com/Yuliannahernandez/backend-app/internal/domain/catalog"
	"github.com/Yuliannahernandez/backend-app/internal/domain/coupon"
	"github.com/Yuliannahernandez/backend-app/internal/domain/pricing"
)

// defaultEstimatedMinutes is shown for an unconfirmed cart view.
const defaultEstimatedMinutes = 15

// homeDeliveryExtraMinutes is added to the prep estimate for home delivery.
const homeDeliveryExtraMinutes = 30

// Accruer grants loyalty points for a confirmed order.
type Accruer interface {
	Accrue(ctx context.Context, customerID, orderID string, orderTotal decimal.Decimal) (int, error)
}

// Service orchestrates cart mutation, pricing recomputation, coupon
// application, confirmation, and the order state machine.
type Service struct {
	orders    Repository
	products  catalog.ProductRepository
	branches  catalog.BranchRepository
	coupons   coupon.Repository
	validator *coupon.Validator
	loyalty   Accruer
	observer  audit.Observer
	locks     *customerLocks
	now       func() time.Time
}

// NewService creates the cart Service with its collaborators.
func NewService(
	orders Repository,
	products catalog.ProductRepository,
	branches catalog.BranchRepository,
	coupons coupon.Repository,
	validator *coupon.Validator,
	loyalty Accruer,
	observer audit.Observer,
) *Service {
	return &Service{
		orders:    orders,
		products:  products,
		branches:  branches,
		coupons:   coupons,
		validator: validator,
		loyalty:   loyalty,
		observer:  observer,
		locks:     newCustomerLocks(),
		now:       time.Now,
	}
}

// GetCart returns the customer's active cart. A customer with no cart gets an
// empty cart view rather than an error.
func (s *Service) GetCart(ctx context.Context, customerID string) (*Order, error) {
	o, err := s.orders.ActiveCart(ctx, customerID)
	if err != nil {
		if errors.Is(err, ErrNoActiveCart) {
			return emptyCartView(customerID), nil
		}
		return nil, errors.Wrap(err, "load cart")
	}
	return o, nil
}

func emptyCartView(customerID string) *Order {
	return &Order{
		CustomerID:       customerID,
		DeliveryMode:     DeliveryPickup,
		State:            StateCart,
		EstimatedMinutes: defaultEstimatedMinutes,
	}
}

// AddItem puts a product in the cart, creating the cart lazily on first add.
// An existing line for the product has its quantity incremented; otherwise a
// new line snapshots the current catalog price.
func (s *Service) AddItem(ctx context.Context, customerID, productID string, quantity int) (*Order, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	unlock := s.locks.Lock(customerID)
	defer unlock()

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.Orderable {
		return nil, &ProductUnavailableError{ProductID: productID}
	}

	o, err := s.orders.ActiveCart(ctx, customerID)
	created := false
	if err != nil {
		if !errors.Is(err, ErrNoActiveCart) {
			return nil, errors.Wrap(err, "load cart")
		}
		o = &Order{
			ID:           uuid.New().String(),
			CustomerID:   customerID,
			DeliveryMode: DeliveryPickup,
			State:        StateCart,
			CreatedAt:    s.now(),
		}
		if err := s.orders.Create(ctx, o); err != nil {
			return nil, errors.Wrap(err, "create cart")
		}
		created = true
	}
	before := o.clone()

	if line := o.lineByProduct(productID); line != nil {
		line.Quantity += quantity
		line.Subtotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
	} else {
		qty := decimal.NewFromInt(int64(quantity))
		o.Lines = append(o.Lines, Line{
			ID:        uuid.New().String(),
			OrderID:   o.ID,
			ProductID: productID,
			Quantity:  quantity,
			UnitPrice: p.Price,
			Subtotal:  p.Price.Mul(qty),
		})
	}

	if err := s.saveRepriced(ctx, o); err != nil {
		return nil, err
	}
	action := audit.ActionUpdate
	if created {
		action = audit.ActionInsert
		before = nil
	}
	s.emit(ctx, action, before, o)
	return o, nil
}

// UpdateQuantity changes a line's quantity and recomputes its subtotal.
func (s *Service) UpdateQuantity(ctx context.Context, customerID, lineID string, quantity int) (*Order, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	return s.mutateCart(ctx, customerID, func(o *Order) error {
		line := o.lineByID(lineID)
		if line == nil {
			return ErrLineNotFound
		}
		line.Quantity = quantity
		line.Subtotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(quantity)))
		return nil
	})
}

// RemoveLine deletes a line. Removing the last line keeps the empty cart.
func (s *Service) RemoveLine(ctx context.Context, customerID, lineID string) (*Order, error) {
	return s.mutateCart(ctx, customerID, func(o *Order) error {
		for i := range o.Lines {
			if o.Lines[i].ID == lineID {
				o.Lines = append(o.Lines[:i], o.Lines[i+1:]...)
				return nil
			}
		}
		return ErrLineNotFound
	})
}

// SetDeliveryMode switches between home delivery and pickup, recomputing
// shipping and total.
func (s *Service) SetDeliveryMode(ctx context.Context, customerID string, mode DeliveryMode) (*Order, error) {
	if mode != DeliveryHome && mode != DeliveryPickup {
		return nil, ErrInvalidDeliveryMode
	}
	return s.mutateCart(ctx, customerID, func(o *Order) error {
		o.DeliveryMode = mode
		return nil
	})
}

// SelectBranch attaches a branch to the cart after checking it exists.
func (s *Service) SelectBranch(ctx context.Context, customerID, branchID string) (*Order, error) {
	if _, err := s.branches.GetByID(ctx, branchID); err != nil {
		return nil, err
	}
	return s.mutateCart(ctx, customerID, func(o *Order) error {
		o.BranchID = branchID
		return nil
	})
}

// SelectPaymentMethod stores the chosen payment method. The "cash" sentinel
// maps to an empty reference.
func (s *Service) SelectPaymentMethod(ctx context.Context, customerID, methodID string) (*Order, error) {
	return s.mutateCart(ctx, customerID, func(o *Order) error {
		if methodID == PaymentMethodCash {
			o.PaymentMethodID = ""
		} else {
			o.PaymentMethodID = methodID
		}
		return nil
	})
}

// ApplyCoupon validates the code against the customer and the cart subtotal,
// then attaches it and reprices. No usage is consumed until confirmation.
func (s *Service) ApplyCoupon(ctx context.Context, customerID, code string) (*Order, error) {
	unlock := s.locks.Lock(customerID)
	defer unlock()

	o, err := s.orders.ActiveCart(ctx, customerID)
	if err != nil {
		return nil, err
	}
	before := o.clone()

	c, err := s.validator.ValidateForAmount(ctx, code, customerID, o.Subtotal)
	if err != nil {
		return nil, err
	}
	o.CouponCode = c.Code

	if err := s.saveRepriced(ctx, o); err != nil {
		return nil, err
	}
	s.emit(ctx, audit.ActionUpdate, before, o)
	return o, nil
}

// RemoveCoupon detaches the applied coupon and restores the undiscounted totals.
func (s *Service) RemoveCoupon(ctx context.Context, customerID string) (*Order, error) {
	return s.mutateCart(ctx, customerID, func(o *Order) error {
		o.CouponCode = ""
		return nil
	})
}

// Clear removes every line from the cart. A customer without a cart gets the
// empty view back, mirroring GetCart.
func (s *Service) Clear(ctx context.Context, customerID string) (*Order, error) {
	unlock := s.locks.Lock(customerID)
	defer unlock()

	o, err := s.orders.ActiveCart(ctx, customerID)
	if err != nil {
		if errors.Is(err, ErrNoActiveCart) {
			return emptyCartView(customerID), nil
		}
		return nil, errors.Wrap(err, "load cart")
	}
	before := o.clone()

	o.Lines = nil
	o.CouponCode = ""
	if err := s.saveRepriced(ctx, o); err != nil {
		return nil, err
	}
	s.emit(ctx, audit.ActionUpdate, before, o)
	return o, nil
}

// Confirm is the single irreversible transition out of cart state. It stamps
// the confirmation time, estimates preparation, consumes the applied coupon's
// usage atomically, and accrues loyalty points. Accrual failures are logged
// and suppressed so checkout never blocks on the points side effect.
func (s *Service) Confirm(ctx context.Context, customerID string) (*Order, error) {
	unlock := s.locks.Lock(customerID)
	defer unlock()

	o, err := s.orders.ActiveCart(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if len(o.Lines) == 0 {
		return nil, ErrEmptyCart
	}
	if o.BranchID == "" {
		return nil, ErrBranchRequired
	}
	before := o.clone()

	if o.EstimatedMinutes == 0 {
		mins, err := s.estimateMinutes(ctx, o)
		if err != nil {
			return nil, err
		}
		o.EstimatedMinutes = mins
	}

	var usage *coupon.Usage
	if o.CouponCode != "" {
		c, err := s.validator.ValidateForAmount(ctx, o.CouponCode, customerID, o.Subtotal)
		if err != nil {
			return nil, err
		}
		usage = &coupon.Usage{
			ID:              uuid.New().String(),
			CouponID:        c.ID,
			CustomerID:      customerID,
			OrderID:         o.ID,
			DiscountApplied: o.Discount,
			UsedAt:          s.now(),
		}
	}

	now := s.now()
	o.State = StateConfirmed
	o.ConfirmedAt = &now

	if err := s.orders.Confirm(ctx, o, usage); err != nil {
		return nil, errors.Wrap(err, "confirm order")
	}

	if _, err := s.loyalty.Accrue(ctx, customerID, o.ID, o.Total); err != nil {
		zctx.From(ctx).Warn("loyalty accrual failed",
			zap.String("order_id", o.ID),
			zap.String("customer_id", customerID),
			zap.Error(err),
		)
	}

	s.emit(ctx, audit.ActionUpdate, before, o)
	return o, nil
}

// GetOrder loads any order by ID.
func (s *Service) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	return s.orders.GetByID(ctx, orderID)
}

// ListOrders returns the customer's order history, excluding the live cart.
func (s *Service) ListOrders(ctx context.Context, customerID string) ([]Order, error) {
	return s.orders.ListByCustomer(ctx, customerID)
}

// ListActiveOrders returns in-flight orders for the manager dashboard.
func (s *Service) ListActiveOrders(ctx context.Context) ([]Order, error) {
	return s.orders.ListActive(ctx)
}

// ChangeState performs a manager-driven transition, validated against the
// adjacency table. Completing an order stamps CompletedAt.
func (s *Service) ChangeState(ctx context.Context, orderID string, newState State) (*Order, error) {
	if !ValidState(newState) {
		return nil, &InvalidTransitionError{To: newState}
	}
	return s.transition(ctx, orderID, newState)
}

// Cancel moves an order to cancelled from any non-terminal state.
func (s *Service) Cancel(ctx context.Context, orderID string) (*Order, error) {
	return s.transition(ctx, orderID, StateCancelled)
}

func (s *Service) transition(ctx context.Context, orderID string, newState State) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(o.CustomerID)
	defer unlock()

	// Reload under the lock in case a concurrent transition won.
	o, err = s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.State.Terminal() {
		return nil, &TerminalStateError{State: o.State}
	}
	if !CanTransition(o.State, newState) {
		return nil, &InvalidTransitionError{From: o.State, To: newState}
	}
	before := o.clone()

	o.State = newState
	if newState == StateCompleted {
		now := s.now()
		o.CompletedAt = &now
	}
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, errors.Wrap(err, "update order state")
	}
	s.emit(ctx, audit.ActionUpdate, before, o)
	return o, nil
}

// mutateCart runs fn on the active cart inside the customer's exclusive
// section, then reprices, persists, and emits the audit event.
func (s *Service) mutateCart(ctx context.Context, customerID string, fn func(o *Order) error) (*Order, error) {
	unlock := s.locks.Lock(customerID)
	defer unlock()

	o, err := s.orders.ActiveCart(ctx, customerID)
	if err != nil {
		return nil, err
	}
	before := o.clone()

	if err := fn(o); err != nil {
		return nil, err
	}
	if err := s.saveRepriced(ctx, o); err != nil {
		return nil, err
	}
	s.emit(ctx, audit.ActionUpdate, before, o)
	return o, nil
}

// saveRepriced refreshes subtotal/discount/shipping/total and persists.
// An applied coupon that has since vanished is dropped rather than failing
// the mutation.
func (s *Service) saveRepriced(ctx context.Context, o *Order) error {
	lines := make([]pricing.LineItem, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = pricing.LineItem{UnitPrice: l.UnitPrice, Quantity: l.Quantity}
	}

	var discount *pricing.Discount
	if o.CouponCode != "" {
		c, err := s.coupons.FindByCode(ctx, o.CouponCode)
		switch {
		case err == nil:
			discount = c.Discount()
		case errors.Is(err, coupon.ErrNotFound):
			o.CouponCode = ""
		default:
			return errors.Wrap(err, "load applied coupon")
		}
	}

	q := pricing.Compute(lines, o.DeliveryMode == DeliveryHome, discount)
	o.Subtotal = q.Subtotal
	o.Discount = q.Discount
	o.ShippingCost = q.ShippingCost
	o.Total = q.Total

	if err := s.orders.Update(ctx, o); err != nil {
		return errors.Wrap(err, "save cart")
	}
	return nil
}

// estimateMinutes is the slowest line's preparation time, plus a delivery
// allowance for home orders.
func (s *Service) estimateMinutes(ctx context.Context, o *Order) (int, error) {
	maxPrep := 0
	for _, line := range o.Lines {
		p, err := s.products.GetByID(ctx, line.ProductID)
		if err != nil {
			return 0, errors.Wrapf(err, "load product %s", line.ProductID)
		}
		if p.PrepMinutes > maxPrep {
			maxPrep = p.PrepMinutes
		}
	}
	if o.DeliveryMode == DeliveryHome {
		maxPrep += homeDeliveryExtraMinutes
	}
	return maxPrep, nil
}

func (s *Service) emit(ctx context.Context, action audit.Action, before, after *Order) {
	ev := audit.Event{
		Entity:   "order",
		Action:   action,
		ActorID:  after.CustomerID,
		RecordID: after.ID,
		After:    after,
		At:       s.now(),
	}
	if before != nil {
		ev.Before = before
	}
	s.observer.Observe(ctx, ev)
}
