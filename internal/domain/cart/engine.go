package cart

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/clientstore"
	"github.com/xenking/storefront/internal/domain/product"
)

// Engine owns a shopper's cart lines. Every mutation is persisted to the
// client store before it becomes visible, then announced to subscribers.
type Engine struct {
	store clientstore.Store

	mu    sync.Mutex
	lines []Line
	// stock holds the last known stock level per product id; it is the
	// ceiling for quantity changes.
	stock map[string]int

	subMu  sync.Mutex
	subs   map[int]func(Event)
	nextID int
}

// Open rehydrates the cart persisted in store.
func Open(ctx context.Context, store clientstore.Store) (*Engine, error) {
	var lines []Line
	if _, err := clientstore.Load(ctx, store, clientstore.KeyCart, &lines); err != nil {
		return nil, errors.Wrap(err, "load cart")
	}
	return &Engine{
		store: store,
		lines: normalize(lines),
		stock: make(map[string]int),
		subs:  make(map[int]func(Event)),
	}, nil
}

// normalize repairs a persisted line list: quantities below one are raised
// to one and duplicate (product, color) pairs are merged.
func normalize(lines []Line) []Line {
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		if l.Quantity < 1 {
			l.Quantity = 1
		}
		if i := indexOf(out, l.ProductID, l.Color); i >= 0 {
			out[i].Quantity += l.Quantity
			continue
		}
		out = append(out, l)
	}
	return out
}

func indexOf(lines []Line, productID, color string) int {
	return slices.IndexFunc(lines, func(l Line) bool { return l.sameItem(productID, color) })
}

// Subscribe registers fn to receive an Event after every mutation. The
// returned function unregisters it.
func (e *Engine) Subscribe(fn func(Event)) (unsubscribe func()) {
	e.subMu.Lock()
	defer e.subMu.Unlock()

	id := e.nextID
	e.nextID++
	e.subs[id] = fn
	return func() {
		e.subMu.Lock()
		defer e.subMu.Unlock()
		delete(e.subs, id)
	}
}

func (e *Engine) notify(ev Event) {
	e.subMu.Lock()
	subs := make([]func(Event), 0, len(e.subs))
	for _, fn := range e.subs {
		subs = append(subs, fn)
	}
	e.subMu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

// commit persists next and makes it the current line list. Must be called
// with e.mu held; the returned event is sent after unlocking.
func (e *Engine) commit(ctx context.Context, next []Line) (Event, error) {
	if err := clientstore.Save(ctx, e.store, clientstore.KeyCart, next); err != nil {
		return Event{}, errors.Wrap(err, "save cart")
	}
	e.lines = next
	return Event{
		Lines:     slices.Clone(next),
		Totals:    ComputeTotals(next),
		ItemCount: ItemCount(next),
	}, nil
}

// UpdateStock records the stock levels of products as quantity ceilings.
func (e *Engine) UpdateStock(products []product.Product) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, p := range products {
		e.stock[p.ID] = p.Stock
	}
}

// LoadStock fetches the catalog and records its stock levels.
func (e *Engine) LoadStock(ctx context.Context, repo product.Repository) error {
	products, err := repo.List(ctx)
	if err != nil {
		return errors.Wrap(err, "list products")
	}
	e.UpdateStock(products)
	return nil
}

// Add puts quantity units of p in the given color into the cart. An empty
// color selects the product's first color. Adding an existing (product,
// color) pair increments that line.
func (e *Engine) Add(ctx context.Context, p *product.Product, color string, quantity int) (Line, error) {
	if quantity < 1 {
		return Line{}, &ValidationError{Field: "quantity", Reason: "must be at least 1"}
	}
	if color == "" {
		color = p.DefaultColor()
	}
	if !p.HasColor(color) {
		return Line{}, &ValidationError{
			Field:  "color",
			Reason: fmt.Sprintf("%q is not available for product %s", color, p.ID),
		}
	}

	e.mu.Lock()
	next := slices.Clone(e.lines)
	i := indexOf(next, p.ID, color)
	if i >= 0 {
		next[i].Quantity += quantity
	} else {
		next = append(next, Line{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Reduction: p.Reduction,
			Currency:  p.Currency,
			Image:     p.MainImage(),
			Color:     color,
			Quantity:  quantity,
		})
		i = len(next) - 1
	}
	e.stock[p.ID] = p.Stock
	ev, err := e.commit(ctx, next)
	e.mu.Unlock()
	if err != nil {
		return Line{}, err
	}

	e.notify(ev)
	return next[i], nil
}

// SetQuantity sets the quantity of the line at index, clamped to
// [1, stock]. When stock is unknown only the floor applies.
func (e *Engine) SetQuantity(ctx context.Context, index, quantity int) (QuantityResult, error) {
	return e.updateQuantity(ctx, index, func(line Line, stock int, known bool) QuantityResult {
		res := QuantityResult{Quantity: quantity}
		if res.Quantity < 1 {
			res.Quantity = 1
		}
		if known && res.Quantity > stock {
			res.Quantity = max(stock, 1)
			res.CeilingReached = true
		}
		return res
	})
}

// SetQuantityInput parses raw shopper input and applies SetQuantity.
// Input that is not a positive integer floors to 1; a positive integer too
// large for an int is taken as the largest int and clamps to stock.
func (e *Engine) SetQuantityInput(ctx context.Context, index int, raw string) (QuantityResult, error) {
	raw = strings.TrimSpace(raw)
	n, err := strconv.Atoi(raw)
	switch {
	case errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(raw, "-"):
		n = math.MaxInt
	case err != nil || n < 1:
		n = 1
	}
	return e.SetQuantity(ctx, index, n)
}

// Increment adds one unit to the line at index unless it is already at the
// stock ceiling or the stock is unknown.
func (e *Engine) Increment(ctx context.Context, index int) (QuantityResult, error) {
	return e.updateQuantity(ctx, index, func(line Line, stock int, known bool) QuantityResult {
		if known && line.Quantity < stock {
			return QuantityResult{Quantity: line.Quantity + 1}
		}
		return QuantityResult{Quantity: line.Quantity, CeilingReached: true}
	})
}

// Decrement removes one unit from the line at index. A line at quantity 1 is
// left unchanged; only Remove deletes lines.
func (e *Engine) Decrement(ctx context.Context, index int) (QuantityResult, error) {
	return e.updateQuantity(ctx, index, func(line Line, _ int, _ bool) QuantityResult {
		if line.Quantity > 1 {
			return QuantityResult{Quantity: line.Quantity - 1}
		}
		return QuantityResult{Quantity: line.Quantity}
	})
}

func (e *Engine) updateQuantity(
	ctx context.Context,
	index int,
	apply func(line Line, stock int, known bool) QuantityResult,
) (QuantityResult, error) {
	e.mu.Lock()
	if index < 0 || index >= len(e.lines) {
		e.mu.Unlock()
		return QuantityResult{}, errors.Wrapf(ErrLineNotFound, "index %d", index)
	}

	line := e.lines[index]
	stock, known := e.stock[line.ProductID]
	res := apply(line, stock, known)
	res.Changed = res.Quantity != line.Quantity
	if !res.Changed {
		e.mu.Unlock()
		return res, nil
	}

	next := slices.Clone(e.lines)
	next[index].Quantity = res.Quantity
	ev, err := e.commit(ctx, next)
	e.mu.Unlock()
	if err != nil {
		return QuantityResult{}, err
	}

	e.notify(ev)
	return res, nil
}

// Remove deletes the line at index once confirm agrees. It reports whether
// the line was removed.
func (e *Engine) Remove(ctx context.Context, index int, confirm Confirmer) (bool, error) {
	e.mu.Lock()
	if index < 0 || index >= len(e.lines) {
		e.mu.Unlock()
		return false, errors.Wrapf(ErrLineNotFound, "index %d", index)
	}
	line := e.lines[index]
	e.mu.Unlock()

	ok, err := confirm.Confirm(ctx, fmt.Sprintf("Remove %s (%s) from your cart?", line.Name, line.Color))
	if err != nil {
		return false, errors.Wrap(err, "confirm removal")
	}
	if !ok {
		return false, nil
	}

	e.mu.Lock()
	// The cart may have changed while the shopper was answering.
	if index >= len(e.lines) || !e.lines[index].sameItem(line.ProductID, line.Color) {
		e.mu.Unlock()
		return false, errors.Wrapf(ErrLineNotFound, "index %d", index)
	}
	next := slices.Delete(slices.Clone(e.lines), index, index+1)
	ev, err := e.commit(ctx, next)
	e.mu.Unlock()
	if err != nil {
		return false, err
	}

	e.notify(ev)
	return true, nil
}

// Clear empties the cart.
func (e *Engine) Clear(ctx context.Context) error {
	e.mu.Lock()
	ev, err := e.commit(ctx, []Line{})
	e.mu.Unlock()
	if err != nil {
		return err
	}

	e.notify(ev)
	return nil
}

// Lines returns a copy of the current cart lines.
func (e *Engine) Lines() []Line {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.lines)
}

// Len returns the number of lines.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.lines)
}

// Totals returns the unrounded cart totals.
func (e *Engine) Totals() Totals {
	e.mu.Lock()
	defer e.mu.Unlock()
	return ComputeTotals(e.lines)
}

// ItemCount returns the total number of units in the cart.
func (e *Engine) ItemCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return ItemCount(e.lines)
}
