package idfilter

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/product"
)

// --- Mock implementations ---

type mockRepo struct {
	products []product.Product
	listErr  error
	gets     []string
	decs     []string
}

func (m *mockRepo) List(context.Context) ([]product.Product, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.products, nil
}

func (m *mockRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	m.gets = append(m.gets, id)
	for i := range m.products {
		if m.products[i].ID == id {
			p := m.products[i]
			return &p, nil
		}
	}
	return nil, product.ErrNotFound
}

func (m *mockRepo) DecrementStock(_ context.Context, id string, quantity int) (product.StockResult, error) {
	m.decs = append(m.decs, id)
	return product.StockResult{Success: true, NewStock: 10 - quantity}, nil
}

// --- Helpers ---

func newRepo() *mockRepo {
	return &mockRepo{products: []product.Product{{ID: "shelly"}, {ID: "colt"}}}
}

// --- Tests ---

func TestRepository_PassThroughBeforeRefresh(t *testing.T) {
	next := newRepo()
	r := New(next, 0)

	_, err := r.GetByID(context.Background(), "unknown")
	require.ErrorIs(t, err, product.ErrNotFound)
	assert.Equal(t, []string{"unknown"}, next.gets)
	assert.Zero(t, r.Negatives())
}

func TestRepository_Negatives(t *testing.T) {
	ctx := context.Background()
	next := newRepo()
	r := New(next, 0.0001)
	require.NoError(t, r.Refresh(ctx))

	_, err := r.GetByID(ctx, "does-not-exist")
	require.ErrorIs(t, err, product.ErrNotFound)
	_, err = r.DecrementStock(ctx, "also-missing", 1)
	require.ErrorIs(t, err, product.ErrNotFound)

	assert.Empty(t, next.gets)
	assert.Empty(t, next.decs)
	assert.Equal(t, int64(2), r.Negatives())
}

func TestRepository_KnownIDsReachBackend(t *testing.T) {
	ctx := context.Background()
	next := newRepo()
	r := New(next, 0)
	require.NoError(t, r.Refresh(ctx))

	p, err := r.GetByID(ctx, "shelly")
	require.NoError(t, err)
	assert.Equal(t, "shelly", p.ID)

	res, err := r.DecrementStock(ctx, "colt", 3)
	require.NoError(t, err)
	assert.Equal(t, product.StockResult{Success: true, NewStock: 7}, res)

	list, err := r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Zero(t, r.Negatives())
}

func TestRepository_RefreshPicksUpNewIDs(t *testing.T) {
	ctx := context.Background()
	next := newRepo()
	r := New(next, 0.0001)
	require.NoError(t, r.Refresh(ctx))

	next.products = append(next.products, product.Product{ID: "spike"})
	_, err := r.GetByID(ctx, "spike")
	require.ErrorIs(t, err, product.ErrNotFound)

	require.NoError(t, r.Refresh(ctx))
	p, err := r.GetByID(ctx, "spike")
	require.NoError(t, err)
	assert.Equal(t, "spike", p.ID)
}

func TestRepository_RefreshFailureKeepsFilter(t *testing.T) {
	ctx := context.Background()
	next := newRepo()
	r := New(next, 0.0001)
	require.NoError(t, r.Refresh(ctx))

	next.listErr = errors.New("disk gone")
	require.Error(t, r.Refresh(ctx))

	_, err := r.GetByID(ctx, "missing")
	require.ErrorIs(t, err, product.ErrNotFound)
	assert.Empty(t, next.gets)
}
