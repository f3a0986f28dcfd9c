package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Yuliannahernandez/backend-app/internal/domain/catalog"
)

const (
	listProductsSQL = `SELECT id, name, price, prep_minutes, orderable, category
		FROM products ORDER BY id`

	getProductByIDSQL = `SELECT id, name, price, prep_minutes, orderable, category
		FROM products WHERE id = $1`

	listBranchesSQL = `SELECT id, name, open FROM branches ORDER BY name`

	getBranchByIDSQL = `SELECT id, name, open FROM branches WHERE id = $1`
)

var _ catalog.ProductRepository = (*ProductRepository)(nil)

// ProductRepository implements catalog.ProductRepository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var (
		p           catalog.Product
		prepMinutes int32
	)
	err := row.Scan(&p.ID, &p.Name, &p.Price, &prepMinutes, &p.Orderable, &p.Category)
	p.PrepMinutes = int(prepMinutes)
	return p, err
}

var _ catalog.BranchRepository = (*BranchRepository)(nil)

// BranchRepository implements catalog.BranchRepository backed by PostgreSQL.
type BranchRepository struct {
	pool *pgxpool.Pool
}

// NewBranchRepository returns a BranchRepository that uses the given pool.
func NewBranchRepository(pool *pgxpool.Pool) *BranchRepository {
	return &BranchRepository{pool: pool}
}

// List returns all branches ordered by name.
func (r *BranchRepository) List(ctx context.Context) ([]catalog.Branch, error) {
	rows, err := r.pool.Query(ctx, listBranchesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing branches: %w", err)
	}
	return pgx.CollectRows(rows, scanBranch)
}

// GetByID returns a single branch by its identifier.
func (r *BranchRepository) GetByID(ctx context.Context, id string) (*catalog.Branch, error) {
	rows, err := r.pool.Query(ctx, getBranchByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting branch %q: %w", id, err)
	}

	b, err := pgx.CollectExactlyOneRow(rows, scanBranch)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrBranchNotFound
		}
		return nil, fmt.Errorf("getting branch %q: %w", id, err)
	}
	return &b, nil
}

func scanBranch(row pgx.CollectableRow) (catalog.Branch, error) {
	var b catalog.Branch
	err := row.Scan(&b.ID, &b.Name, &b.Open)
	return b, err
}
