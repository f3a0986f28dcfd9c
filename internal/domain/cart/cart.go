// Package cart owns the root order entity: a mutable cart that becomes an
// order on confirmation and then moves through fulfillment states.
package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/Yuliannahernandez/backend-app/internal/domain/coupon"
)

var (
	// ErrNoActiveCart is returned when the customer has no cart-state order.
	ErrNoActiveCart = errors.New("no active cart")
	// ErrOrderNotFound is returned when an order ID is unknown.
	ErrOrderNotFound = errors.New("order not found")
	// ErrLineNotFound is returned when a line ID is not in the cart.
	ErrLineNotFound = errors.New("cart line not found")
	// ErrEmptyCart is returned when confirming a cart without lines.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrBranchRequired is returned when confirming without a branch selected.
	ErrBranchRequired = errors.New("branch must be selected before confirming")
	// ErrInvalidQuantity is returned for quantities below one.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	// ErrInvalidDeliveryMode is returned for unknown delivery modes.
	ErrInvalidDeliveryMode = errors.New("invalid delivery mode")
)

// ProductUnavailableError indicates the catalog marked a product not orderable.
type ProductUnavailableError struct {
	ProductID string
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("product %s is not available", e.ProductID)
}

// TerminalStateError indicates a mutation on a completed or cancelled order.
type TerminalStateError struct {
	State State
}

func (e *TerminalStateError) Error() string {
	return fmt.Sprintf("order is in terminal state %s", e.State)
}

// InvalidTransitionError indicates a state change not in the adjacency table.
type InvalidTransitionError struct {
	From, To State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move order from %s to %s", e.From, e.To)
}

// DeliveryMode is how the customer receives the order.
type DeliveryMode string

const (
	// DeliveryHome ships the order to the customer, with a shipping fee
	// below the free-shipping threshold.
	DeliveryHome DeliveryMode = "home"
	// DeliveryPickup has the customer collect at a branch; never charged shipping.
	DeliveryPickup DeliveryMode = "pickup"
)

// PaymentMethodCash is the sentinel clients send for cash payment; it maps to
// an empty payment-method reference.
const PaymentMethodCash = "cash"

// Line is one product entry in an order. UnitPrice is a snapshot taken when
// the line was added; later catalog price changes do not affect it.
type Line struct {
	ID        string
	OrderID   string
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}

// Order is the single cart/order entity, disambiguated by State. At most one
// order per customer is in cart state at any time.
type Order struct {
	ID               string
	CustomerID       string
	BranchID         string
	PaymentMethodID  string
	DeliveryMode     DeliveryMode
	State            State
	Lines            []Line
	Subtotal         decimal.Decimal
	Discount         decimal.Decimal
	ShippingCost     decimal.Decimal
	Total            decimal.Decimal
	CouponCode       string
	EstimatedMinutes int
	CreatedAt        time.Time
	ConfirmedAt      *time.Time
	CompletedAt      *time.Time
}

// clone returns a deep copy, used for audit before-snapshots.
func (o *Order) clone() *Order {
	cp := *o
	cp.Lines = append([]Line(nil), o.Lines...)
	return &cp
}

func (o *Order) lineByID(lineID string) *Line {
	for i := range o.Lines {
		if o.Lines[i].ID == lineID {
			return &o.Lines[i]
		}
	}
	return nil
}

func (o *Order) lineByProduct(productID string) *Line {
	for i := range o.Lines {
		if o.Lines[i].ProductID == productID {
			return &o.Lines[i]
		}
	}
	return nil
}

// Repository persists orders together with their lines.
type Repository interface {
	// ActiveCart returns the customer's cart-state order, or ErrNoActiveCart.
	ActiveCart(ctx context.Context, customerID string) (*Order, error)
	Create(ctx context.Context, o *Order) error
	// Update persists the order and replaces its lines.
	Update(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	// ListByCustomer returns the customer's non-cart orders, newest first.
	ListByCustomer(ctx context.Context, customerID string) ([]Order, error)
	// ListActive returns all orders between confirmed and delivered, for the
	// manager dashboard.
	ListActive(ctx context.Context) ([]Order, error)
	// Confirm atomically persists the confirmed order and, when usage is not
	// nil, inserts the coupon usage record. Implementations re-check the
	// coupon caps inside the same transaction and return
	// coupon.ErrGlobalLimitReached or coupon.ErrCustomerLimitReached when a
	// concurrent confirmation consumed the last use.
	Confirm(ctx context.Context, o *Order, usage *coupon.Usage) error
}
