// Package wishlist implements the shopper's wishlist: a set of product ids,
// each with a 1–5 priority.
//
// Membership and priorities are persisted under two separate keys. Every
// operation writes both, and rehydration repairs any drift between them, so
// each member has exactly one priority and no priority exists without a member.
package wishlist

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/multierr"

	"github.com/xenking/storefront/internal/clientstore"
	"github.com/xenking/storefront/internal/domain/product"
)

// Priority bounds. New members start at DefaultPriority.
const (
	MinPriority     = 1
	MaxPriority     = 5
	DefaultPriority = 3
)

var (
	// ErrInvalidPriority is returned for priorities outside [MinPriority, MaxPriority].
	ErrInvalidPriority = errors.New("priority must be between 1 and 5")
	// ErrNotInWishlist is returned when an operation targets a non-member.
	ErrNotInWishlist = errors.New("product not in wishlist")
)

// Order names a wishlist sort order.
type Order string

const (
	OrderNone         Order = "none"
	OrderPriorityDesc Order = "priority-desc"
	OrderPriorityAsc  Order = "priority-asc"
	OrderPriceAsc     Order = "price-asc"
	OrderPriceDesc    Order = "price-desc"
)

// ParseOrder validates a sort order name. The empty string means OrderNone.
func ParseOrder(s string) (Order, error) {
	switch o := Order(s); o {
	case "":
		return OrderNone, nil
	case OrderNone, OrderPriorityDesc, OrderPriorityAsc, OrderPriceAsc, OrderPriceDesc:
		return o, nil
	default:
		return "", errors.Errorf("unknown sort order %q", s)
	}
}

// Item is a wishlist member with its cached product details.
type Item struct {
	Product  product.Product
	Priority int
}

// Event is emitted after every wishlist mutation.
type Event struct {
	IDs        []string
	Priorities map[string]int
}

// Engine owns a shopper's wishlist.
type Engine struct {
	store clientstore.Store

	mu         sync.Mutex
	ids        []string
	priorities map[string]int
	// products caches product details for display; it may lag membership.
	products map[string]product.Product

	subMu sync.Mutex
	subs  []func(Event)
}

// Open rehydrates the wishlist persisted in store.
func Open(ctx context.Context, store clientstore.Store) (*Engine, error) {
	var (
		ids        []string
		priorities map[string]int
	)
	if _, err := clientstore.Load(ctx, store, clientstore.KeyWishlist, &ids); err != nil {
		return nil, errors.Wrap(err, "load wishlist")
	}
	if _, err := clientstore.Load(ctx, store, clientstore.KeyWishlistPriorities, &priorities); err != nil {
		return nil, errors.Wrap(err, "load wishlist priorities")
	}

	e := &Engine{
		store:    store,
		products: make(map[string]product.Product),
	}
	repairedIDs, repairedPrio := repair(ids, priorities)
	if len(repairedIDs) == len(ids) && maps.Equal(repairedPrio, priorities) {
		e.ids, e.priorities = repairedIDs, repairedPrio
		return e, nil
	}

	// Persist the repair so both keys agree from now on. A failed write
	// restores the membership that was loaded.
	e.ids, e.priorities = ids, priorities
	e.mu.Lock()
	_, err := e.commit(ctx, repairedIDs, repairedPrio)
	e.mu.Unlock()
	if err != nil {
		return nil, errors.Wrap(err, "save repaired wishlist")
	}
	return e, nil
}

// repair drops duplicate ids and orphan priorities and gives every member
// a valid priority.
func repair(ids []string, priorities map[string]int) ([]string, map[string]int) {
	seen := make(map[string]bool, len(ids))
	outIDs := make([]string, 0, len(ids))
	outPrio := make(map[string]int, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		outIDs = append(outIDs, id)

		p, ok := priorities[id]
		if !ok || p < MinPriority || p > MaxPriority {
			p = DefaultPriority
		}
		outPrio[id] = p
	}
	return outIDs, outPrio
}

// Subscribe registers fn to receive an Event after every mutation.
func (e *Engine) Subscribe(fn func(Event)) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	e.subs = append(e.subs, fn)
}

func (e *Engine) notify(ev Event) {
	e.subMu.Lock()
	subs := slices.Clone(e.subs)
	e.subMu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

// commit writes both structures and installs them. Must be called with e.mu held.
func (e *Engine) commit(ctx context.Context, ids []string, priorities map[string]int) (Event, error) {
	if err := clientstore.Save(ctx, e.store, clientstore.KeyWishlist, ids); err != nil {
		return Event{}, errors.Wrap(err, "save wishlist")
	}
	if err := clientstore.Save(ctx, e.store, clientstore.KeyWishlistPriorities, priorities); err != nil {
		err = errors.Wrap(err, "save wishlist priorities")
		// Put membership back so the persisted pair stays consistent.
		if rerr := clientstore.Save(ctx, e.store, clientstore.KeyWishlist, e.ids); rerr != nil {
			err = multierr.Append(err, errors.Wrap(rerr, "restore wishlist"))
		}
		return Event{}, err
	}
	e.ids = ids
	e.priorities = priorities
	return Event{IDs: slices.Clone(ids), Priorities: maps.Clone(priorities)}, nil
}

// Toggle adds id with the default priority, or removes it when already a
// member. It reports whether id is a member afterwards.
func (e *Engine) Toggle(ctx context.Context, id string) (bool, error) {
	e.mu.Lock()
	ids := slices.Clone(e.ids)
	priorities := maps.Clone(e.priorities)

	added := false
	if i := slices.Index(ids, id); i >= 0 {
		ids = slices.Delete(ids, i, i+1)
		delete(priorities, id)
	} else {
		ids = append(ids, id)
		priorities[id] = DefaultPriority
		added = true
	}

	ev, err := e.commit(ctx, ids, priorities)
	if err == nil && !added {
		delete(e.products, id)
	}
	e.mu.Unlock()
	if err != nil {
		return false, err
	}

	e.notify(ev)
	return added, nil
}

// SetPriority changes the priority of a member. Priorities outside [1,5]
// are rejected, not clamped.
func (e *Engine) SetPriority(ctx context.Context, id string, priority int) error {
	if priority < MinPriority || priority > MaxPriority {
		return errors.Wrapf(ErrInvalidPriority, "got %d", priority)
	}

	e.mu.Lock()
	if !slices.Contains(e.ids, id) {
		e.mu.Unlock()
		return errors.Wrapf(ErrNotInWishlist, "product %s", id)
	}
	priorities := maps.Clone(e.priorities)
	priorities[id] = priority
	ev, err := e.commit(ctx, slices.Clone(e.ids), priorities)
	e.mu.Unlock()
	if err != nil {
		return err
	}

	e.notify(ev)
	return nil
}

// Remove deletes id, its priority and its cached product details. Removing
// a non-member is a no-op. Unlike cart removal no confirmation is asked.
func (e *Engine) Remove(ctx context.Context, id string) error {
	e.mu.Lock()
	i := slices.Index(e.ids, id)
	if i < 0 {
		e.mu.Unlock()
		return nil
	}
	ids := slices.Delete(slices.Clone(e.ids), i, i+1)
	priorities := maps.Clone(e.priorities)
	delete(priorities, id)

	ev, err := e.commit(ctx, ids, priorities)
	if err == nil {
		delete(e.products, id)
	}
	e.mu.Unlock()
	if err != nil {
		return err
	}

	e.notify(ev)
	return nil
}

// Contains reports whether id is a member.
func (e *Engine) Contains(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Contains(e.ids, id)
}

// Priority returns the priority of id and whether it is a member.
func (e *Engine) Priority(id string) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.priorities[id]
	return p, ok
}

// IDs returns the members in insertion order.
func (e *Engine) IDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.ids)
}

// Len returns the number of members.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.ids)
}

// Cache stores product details for display.
func (e *Engine) Cache(products ...product.Product) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range products {
		e.products[p.ID] = p
	}
}

// Load replaces the product cache with the catalog entries of current
// members. On failure the cache is left empty and the error is returned for
// reporting; the wishlist itself is unaffected.
func (e *Engine) Load(ctx context.Context, repo product.Repository) error {
	products, err := repo.List(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.products = make(map[string]product.Product, len(e.ids))
	if err != nil {
		return errors.Wrap(err, "list products")
	}
	for _, p := range products {
		if slices.Contains(e.ids, p.ID) {
			e.products[p.ID] = p
		}
	}
	return nil
}

// SortedView returns the members with cached product details, sorted by
// order. Members without cached details are omitted. Ties keep insertion order.
func (e *Engine) SortedView(order Order) []Item {
	e.mu.Lock()
	items := make([]Item, 0, len(e.ids))
	for _, id := range e.ids {
		p, ok := e.products[id]
		if !ok {
			continue
		}
		items = append(items, Item{Product: p, Priority: e.priorities[id]})
	}
	e.mu.Unlock()

	switch order {
	case OrderPriorityDesc:
		sort.SliceStable(items, func(i, j int) bool { return items[i].Priority > items[j].Priority })
	case OrderPriorityAsc:
		sort.SliceStable(items, func(i, j int) bool { return items[i].Priority < items[j].Priority })
	case OrderPriceAsc:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Product.DiscountedPrice().LessThan(items[j].Product.DiscountedPrice())
		})
	case OrderPriceDesc:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Product.DiscountedPrice().GreaterThan(items[j].Product.DiscountedPrice())
		})
	}
	return items
}
