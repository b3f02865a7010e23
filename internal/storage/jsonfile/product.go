// Package jsonfile implements product.Repository on top of a single JSON
// products file.
package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/api"
	"github.com/xenking/storefront/internal/domain/product"
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository reads the catalog from a JSON array of products. The
// file is read on every call so external edits are picked up; stock updates
// rewrite it atomically.
type ProductRepository struct {
	path string
	mu   sync.RWMutex
}

// NewProductRepository returns a ProductRepository for the file at path.
// The file must exist and hold a valid catalog.
func NewProductRepository(path string) (*ProductRepository, error) {
	r := &ProductRepository{path: path}
	if _, err := r.read(); err != nil {
		return nil, err
	}
	return r, nil
}

// Create writes products to a new or existing file at path and returns a
// repository for it.
func Create(ctx context.Context, path string, products []product.Product) (*ProductRepository, error) {
	r := &ProductRepository{path: path}
	if err := r.Replace(ctx, products); err != nil {
		return nil, err
	}
	return r, nil
}

// Path returns the products file path.
func (r *ProductRepository) Path() string { return r.path }

// List returns all products in file order.
func (r *ProductRepository) List(_ context.Context) ([]product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.read()
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(_ context.Context, id string) (*product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	products, err := r.read()
	if err != nil {
		return nil, err
	}
	for i := range products {
		if products[i].ID == id {
			return &products[i], nil
		}
	}
	return nil, product.ErrNotFound
}

// DecrementStock subtracts quantity from the stock of product id. When the
// result would be negative the file is left unchanged and
// product.ErrInsufficientStock is returned with the would-be stock level.
func (r *ProductRepository) DecrementStock(_ context.Context, id string, quantity int) (product.StockResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	products, err := r.read()
	if err != nil {
		return product.StockResult{}, err
	}

	i := -1
	for j := range products {
		if products[j].ID == id {
			i = j
			break
		}
	}
	if i < 0 {
		return product.StockResult{}, product.ErrNotFound
	}

	newStock := products[i].Stock - quantity
	if newStock < 0 {
		return product.StockResult{NewStock: newStock}, product.ErrInsufficientStock
	}

	products[i].Stock = newStock
	if err := r.write(products); err != nil {
		return product.StockResult{}, err
	}
	return product.StockResult{Success: true, NewStock: newStock}, nil
}

// Replace overwrites the catalog with products.
func (r *ProductRepository) Replace(_ context.Context, products []product.Product) error {
	for i := range products {
		if err := products[i].Validate(); err != nil {
			return errors.Wrap(err, "validate product")
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.write(products)
}

func (r *ProductRepository) read() ([]product.Product, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, errors.Wrap(err, "read products file")
	}
	products, err := api.DecodeProducts(jx.DecodeBytes(data))
	if err != nil {
		return nil, errors.Wrap(err, "decode products file")
	}
	return products, nil
}

// write replaces the file atomically via a temp file in the same directory.
func (r *ProductRepository) write(products []product.Product) error {
	var e jx.Encoder
	api.EncodeProducts(&e, products)

	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, ".products-*.json")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(e.Bytes()); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "write temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return errors.Wrap(err, "replace products file")
	}
	return nil
}
