// Package storefront assembles a shopping session: the cart, wishlist,
// address book and checkout engines over one client store and one catalog.
package storefront

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/catalogclient"
	"github.com/xenking/storefront/internal/clientstore"
	"github.com/xenking/storefront/internal/domain/address"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/checkout"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/wishlist"
)

// Catalog is the remote side of a session.
type Catalog interface {
	product.Repository
	address.Lookup
}

// Session is one shopper's state. Like a single browser tab, it is meant to
// be driven from one goroutine.
type Session struct {
	Catalog   Catalog
	Store     clientstore.Store
	Cart      *cart.Engine
	Wishlist  *wishlist.Engine
	Addresses *address.Book
	Search    *address.Searcher
	Checkout  *checkout.Coordinator

	lg      *zap.Logger
	closers []func() error
}

// Open builds the store and catalog client described by cfg and opens a
// session over them.
func Open(ctx context.Context, lg *zap.Logger, cfg *Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	catalog, err := catalogclient.New(cfg.CatalogURL, cfg.Timeout)
	if err != nil {
		return nil, errors.Wrap(err, "create catalog client")
	}

	var (
		store   clientstore.Store
		closers []func() error
	)
	switch cfg.Store.Backend {
	case StoreMemory:
		store = clientstore.NewMemory()
	case StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr: cfg.Store.RedisAddr,
			DB:   cfg.Store.RedisDB,
		})
		rs := clientstore.NewRedis(client, cfg.Store.Namespace)
		if err := rs.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, errors.Wrap(err, "connect to redis")
		}
		store = rs
		closers = append(closers, client.Close)
	default:
		path, err := cfg.statePath()
		if err != nil {
			return nil, err
		}
		store = clientstore.NewFile(path)
	}
	lg.Debug("Opening session",
		zap.String("catalog", cfg.CatalogURL),
		zap.String("store", cfg.Store.Backend),
	)

	s, err := New(ctx, lg, store, catalog, cfg.SearchDebounce)
	if err != nil {
		for _, c := range closers {
			_ = c()
		}
		return nil, err
	}
	s.closers = closers
	return s, nil
}

// New rehydrates a session from store.
func New(ctx context.Context, lg *zap.Logger, store clientstore.Store, catalog Catalog, debounce time.Duration) (*Session, error) {
	ctx = zctx.Base(ctx, lg)
	c, err := cart.Open(ctx, store)
	if err != nil {
		return nil, errors.Wrap(err, "open cart")
	}
	wl, err := wishlist.Open(ctx, store)
	if err != nil {
		return nil, errors.Wrap(err, "open wishlist")
	}
	book, err := address.OpenBook(ctx, store)
	if err != nil {
		return nil, errors.Wrap(err, "open address book")
	}

	s := &Session{
		Catalog:   catalog,
		Store:     store,
		Cart:      c,
		Wishlist:  wl,
		Addresses: book,
		Search:    address.NewSearcher(catalog, debounce),
		Checkout:  checkout.NewCoordinator(c, book, catalog),
		lg:        lg,
	}

	c.Subscribe(func(ev cart.Event) {
		lg.Debug("Cart changed", zap.Int("lines", len(ev.Lines)), zap.Int("items", ev.ItemCount))
	})
	wl.Subscribe(func(ev wishlist.Event) {
		lg.Debug("Wishlist changed", zap.Int("items", len(ev.IDs)))
	})
	s.Checkout.Subscribe(func(t checkout.Transition) {
		fields := []zap.Field{zap.Stringer("from", t.From), zap.Stringer("to", t.To)}
		if t.Err != nil {
			fields = append(fields, zap.Error(t.Err))
		}
		lg.Debug("Checkout transition", fields...)
	})
	return s, nil
}

// Refresh fetches the catalog once and feeds the cart's stock ceilings and
// the wishlist's product cache. Transport and not-found failures leave both
// empty and are returned for reporting.
func (s *Session) Refresh(ctx context.Context) ([]product.Product, error) {
	products, err := catalogclient.ListOrEmpty(ctx, s.Catalog)
	if products == nil {
		return nil, err
	}
	s.Cart.UpdateStock(products)
	for _, p := range products {
		if s.Wishlist.Contains(p.ID) {
			s.Wishlist.Cache(p)
		}
	}
	if err != nil {
		s.lg.Warn("Catalog unavailable", zap.Error(err))
	}
	return products, err
}

// Close releases the store connection, if any.
func (s *Session) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
