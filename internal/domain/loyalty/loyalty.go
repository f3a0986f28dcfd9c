// Package loyalty keeps the append-only point ledger per customer. The
// balance is always the sum of a customer's entries and never goes negative:
// redemptions that would overdraw are rejected, not clamped.
package loyalty

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrInsufficientPoints is returned when a redemption exceeds the balance.
var ErrInsufficientPoints = errors.New("insufficient loyalty points")

// EntryKind classifies a ledger entry.
type EntryKind string

const (
	// KindEarned marks points granted for a confirmed order.
	KindEarned EntryKind = "earned"
	// KindRedeemed marks points spent on a reward. Points are negative.
	KindRedeemed EntryKind = "redeemed"
	// KindExpired marks points removed by expiry. Points are negative.
	KindExpired EntryKind = "expired"
)

// Entry is one immutable ledger record. Points are signed: positive for
// earned, negative for redeemed and expired.
type Entry struct {
	ID          string
	CustomerID  string
	Points      int
	Kind        EntryKind
	OrderID     string
	RewardID    string
	Description string
	CreatedAt   time.Time
}

// Repository provides append and read access to the ledger.
type Repository interface {
	// Balance returns the sum of the customer's entries. A customer with no
	// entries has balance zero.
	Balance(ctx context.Context, customerID string) (int, error)
	Append(ctx context.Context, e *Entry) error
	// HasAccrual reports whether an earned entry already references the order.
	HasAccrual(ctx context.Context, orderID string) (bool, error)
	// History returns entries newest-first, at most limit.
	History(ctx context.Context, customerID string, limit int) ([]Entry, error)
}
