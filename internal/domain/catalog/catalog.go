// Package catalog exposes the narrow read interfaces the ordering engine
// consumes from the product and branch catalog. Catalog browsing itself is
// owned by a separate subsystem.
package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrProductNotFound is returned when a requested product does not exist.
	ErrProductNotFound = errors.New("product not found")
	// ErrBranchNotFound is returned when a requested branch does not exist.
	ErrBranchNotFound = errors.New("branch not found")
)

// Product is the catalog view the engine needs to price and confirm orders.
type Product struct {
	ID          string
	Name        string
	Price       decimal.Decimal
	PrepMinutes int
	Orderable   bool
	Category    string
}

// Branch is a physical store a customer may pick an order up from.
type Branch struct {
	ID   string
	Name string
	Open bool
}

// ProductRepository defines read operations for the product catalog.
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context) ([]Product, error)
}

// BranchRepository defines read operations for store branches.
type BranchRepository interface {
	GetByID(ctx context.Context, id string) (*Branch, error)
	List(ctx context.Context) ([]Branch, error)
}
