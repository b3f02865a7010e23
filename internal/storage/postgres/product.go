package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/product"
)

const (
	productColumns = `id, name, description, price, reduction, currency, stock,
		images, colors, character, rarity, characteristics`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products ORDER BY position, id`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	lockStockSQL = `SELECT stock FROM products WHERE id = $1 FOR UPDATE`

	updateStockSQL = `UPDATE products SET stock = $2, updated_at = now() WHERE id = $1`

	upsertProductSQL = `INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			reduction = EXCLUDED.reduction,
			currency = EXCLUDED.currency,
			stock = EXCLUDED.stock,
			images = EXCLUDED.images,
			colors = EXCLUDED.colors,
			character = EXCLUDED.character,
			rarity = EXCLUDED.rarity,
			characteristics = EXCLUDED.characteristics,
			updated_at = now()`
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

// List returns all products in insertion order.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// DecrementStock locks the product row, subtracts quantity and commits. A
// result below zero is not written; product.ErrInsufficientStock is returned
// with the would-be stock level instead.
func (r *ProductRepository) DecrementStock(ctx context.Context, id string, quantity int) (product.StockResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return product.StockResult{}, fmt.Errorf("beginning stock update: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var stock int
	if err := tx.QueryRow(ctx, lockStockSQL, id).Scan(&stock); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return product.StockResult{}, product.ErrNotFound
		}
		return product.StockResult{}, fmt.Errorf("locking product %q: %w", id, err)
	}

	newStock := stock - quantity
	if newStock < 0 {
		return product.StockResult{NewStock: newStock}, product.ErrInsufficientStock
	}

	if _, err := tx.Exec(ctx, updateStockSQL, id, newStock); err != nil {
		return product.StockResult{}, fmt.Errorf("updating stock of %q: %w", id, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return product.StockResult{}, fmt.Errorf("committing stock update: %w", err)
	}
	return product.StockResult{Success: true, NewStock: newStock}, nil
}

// Upsert inserts p or replaces the stored product with the same id.
func (r *ProductRepository) Upsert(ctx context.Context, p *product.Product) error {
	other := p.Characteristics.Other
	if other == nil {
		other = map[string]string{}
	}
	_, err := r.pool.Exec(ctx, upsertProductSQL,
		p.ID, p.Name, p.Description, p.Price, p.Reduction, p.Currency, p.Stock,
		p.Images, p.Characteristics.Colors, p.Characteristics.Character, p.Characteristics.Rarity,
		other,
	)
	if err != nil {
		return fmt.Errorf("upserting product %q: %w", p.ID, err)
	}
	return nil
}

// Ping checks database connectivity.
func (r *ProductRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p     product.Product
		other map[string]string
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Reduction, &p.Currency, &p.Stock,
		&p.Images, &p.Characteristics.Colors, &p.Characteristics.Character, &p.Characteristics.Rarity,
		&other,
	)
	if len(other) > 0 {
		p.Characteristics.Other = other
	}
	return p, err
}
