package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/product"
)

const (
	listProductsSQL = `SELECT id, name, price, image, category, created_at
		FROM products ORDER BY id DESC`

	createProductSQL = `INSERT INTO products (name, price, image, category)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, price, image, category, created_at`

	deleteProductSQL = `DELETE FROM products WHERE id = $1`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products ordered by ID, newest first.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return products, nil
}

// Create inserts the draft and returns the row as stored, including the
// database-assigned ID. The draft is expected to be validated by the caller.
func (r *ProductRepository) Create(ctx context.Context, d product.Draft) (*product.Product, error) {
	if d.Price == nil {
		return nil, fmt.Errorf("creating product %q: price is required", d.Name)
	}

	rows, err := r.pool.Query(ctx, createProductSQL, d.Name, *d.Price, d.Image, d.Category)
	if err != nil {
		return nil, fmt.Errorf("creating product %q: %w", d.Name, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("creating product %q: %w", d.Name, err)
	}
	return &p, nil
}

// Delete removes the product with the given ID. It returns
// product.ErrNotFound when no row matched, including when a concurrent
// request already deleted it.
func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		return fmt.Errorf("deleting product %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Image, &p.Category, &p.CreatedAt)
	return p, err
}
