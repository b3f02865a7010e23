// Package idfilter answers lookups for unknown product ids from a bloom
// filter instead of the catalog backend.
package idfilter

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/product"
)

const (
	// DefaultCapacity sizes the filter when the catalog is small.
	DefaultCapacity = 10_000
	// DefaultFalsePositiveRate is the target false positive rate.
	DefaultFalsePositiveRate = 0.001
)

var _ product.Repository = (*Repository)(nil)

// Repository decorates a product.Repository. Until the first Refresh every
// call is passed through. Afterwards ids absent from the filter are reported
// as product.ErrNotFound without reaching the backend; ids created after the
// last Refresh are rejected the same way until the next one.
type Repository struct {
	next product.Repository
	fpr  float64

	mu     sync.RWMutex
	filter *bloom.BloomFilter

	negatives atomic.Int64
}

// New wraps next. fpr outside (0, 1) selects DefaultFalsePositiveRate.
func New(next product.Repository, fpr float64) *Repository {
	if fpr <= 0 || fpr >= 1 {
		fpr = DefaultFalsePositiveRate
	}
	return &Repository{next: next, fpr: fpr}
}

// Refresh rebuilds the filter from the backend's product list.
func (r *Repository) Refresh(ctx context.Context) error {
	products, err := r.next.List(ctx)
	if err != nil {
		return errors.Wrap(err, "list products")
	}

	n := uint(max(len(products)*2, DefaultCapacity))
	f := bloom.NewWithEstimates(n, r.fpr)
	for i := range products {
		f.AddString(products[i].ID)
	}

	r.mu.Lock()
	r.filter = f
	r.mu.Unlock()
	return nil
}

// Run refreshes the filter every interval until ctx is done. Refresh errors
// are logged and the previous filter is kept.
func (r *Repository) Run(ctx context.Context, interval time.Duration) error {
	lg := zctx.From(ctx)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if err := r.Refresh(ctx); err != nil {
				lg.Warn("Id filter refresh failed", zap.Error(err))
			}
		}
	}
}

// Negatives returns how many lookups were answered by the filter.
func (r *Repository) Negatives() int64 {
	return r.negatives.Load()
}

func (r *Repository) known(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.filter == nil {
		return true
	}
	if r.filter.TestString(id) {
		return true
	}
	r.negatives.Add(1)
	return false
}

func (r *Repository) List(ctx context.Context) ([]product.Product, error) {
	return r.next.List(ctx)
}

func (r *Repository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	if !r.known(id) {
		return nil, product.ErrNotFound
	}
	return r.next.GetByID(ctx, id)
}

func (r *Repository) DecrementStock(ctx context.Context, id string, quantity int) (product.StockResult, error) {
	if !r.known(id) {
		return product.StockResult{}, product.ErrNotFound
	}
	return r.next.DecrementStock(ctx, id, quantity)
}
