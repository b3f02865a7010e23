// Package checkout submits a cart to the catalog as a sequence of stock
// decrements.
//
// Lines are submitted one at a time in cart order. Stock already decremented
// for earlier lines is not restored when a later line fails, so a failed
// checkout can leave the catalog partially updated.
package checkout

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/product"
)

// State of a checkout attempt.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateSubmitting
	StateConfirmed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateSubmitting:
		return "submitting"
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrValidation matches every error that blocks a checkout before any
// stock is requested.
var ErrValidation = errors.New("checkout validation failed")

type validationError struct {
	reason string
}

func (e *validationError) Error() string { return e.reason }

func (e *validationError) Is(target error) bool { return target == ErrValidation }

// Validation failures.
var (
	ErrEmptyCart error = &validationError{reason: "cart is empty"}
	ErrNoAddress error = &validationError{reason: "no delivery address selected"}
)

// ErrInProgress is returned when Submit is called while another attempt is
// validating or submitting.
var ErrInProgress = errors.New("checkout already in progress")

// Cart is the part of the cart engine the coordinator needs.
type Cart interface {
	Lines() []cart.Line
	Clear(ctx context.Context) error
}

// AddressSource provides the selected delivery address.
type AddressSource interface {
	Selected() (string, bool)
}

// StockDecrementer requests stock decrements from the catalog.
type StockDecrementer interface {
	DecrementStock(ctx context.Context, id string, quantity int) (product.StockResult, error)
}

// LineOutcome is the catalog's answer for one cart line.
type LineOutcome struct {
	Line   cart.Line
	Result product.StockResult
	// Err is product.ErrNotFound or product.ErrInsufficientStock when the
	// catalog refused the decrement.
	Err error
}

// Outcome describes a confirmed checkout.
type Outcome struct {
	OrderRef string
	Address  string
	Totals   cart.Totals
	Lines    []LineOutcome
}

// Problems returns the lines the catalog refused.
func (o *Outcome) Problems() []LineOutcome {
	var out []LineOutcome
	for _, l := range o.Lines {
		if l.Err != nil {
			out = append(out, l)
		}
	}
	return out
}

// SubmitError is returned when a transport failure aborts the submission.
// Lines before Index were already decremented.
type SubmitError struct {
	Index     int
	ProductID string
	Submitted []LineOutcome
	Err       error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("submit line %d (product %s): %v", e.Index, e.ProductID, e.Err)
}

func (e *SubmitError) Unwrap() error { return e.Err }

// Transition is sent to subscribers on every state change.
type Transition struct {
	From State
	To   State
	Err  error
}

// Coordinator runs checkout attempts for a single session.
type Coordinator struct {
	cart    Cart
	address AddressSource
	stock   StockDecrementer
	newRef  func() string

	mu    sync.Mutex
	state State

	subMu sync.Mutex
	subs  []func(Transition)
}

// NewCoordinator creates a Coordinator in StateIdle.
func NewCoordinator(c Cart, address AddressSource, stock StockDecrementer) *Coordinator {
	return &Coordinator{
		cart:    c,
		address: address,
		stock:   stock,
		newRef:  func() string { return uuid.New().String() },
	}
}

// State returns the current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers fn to receive state transitions.
func (c *Coordinator) Subscribe(fn func(Transition)) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.subs = append(c.subs, fn)
}

func (c *Coordinator) transition(to State, err error) {
	c.mu.Lock()
	from := c.state
	c.state = to
	c.mu.Unlock()

	c.emit(Transition{From: from, To: to, Err: err})
}

func (c *Coordinator) emit(t Transition) {
	c.subMu.Lock()
	subs := slices.Clone(c.subs)
	c.subMu.Unlock()

	for _, fn := range subs {
		fn(t)
	}
}

// Submit validates the cart and address, then decrements stock for every
// line in order.
//
// A validation failure returns an error matching ErrValidation and leaves
// the coordinator idle. A catalog that refuses a line (unknown product or
// insufficient stock) is recorded in the outcome and submission continues.
// Any other error aborts the remaining lines with a *SubmitError, moves to
// StateFailed and leaves the cart untouched. When every line was answered
// the cart is cleared and the coordinator is confirmed.
//
// Once submission starts it runs to completion even if ctx is cancelled.
func (c *Coordinator) Submit(ctx context.Context) (*Outcome, error) {
	c.mu.Lock()
	from := c.state
	if from == StateValidating || from == StateSubmitting {
		c.mu.Unlock()
		return nil, ErrInProgress
	}
	c.state = StateValidating
	c.mu.Unlock()
	c.emit(Transition{From: from, To: StateValidating})

	lines := c.cart.Lines()
	addr, ok := c.address.Selected()
	switch {
	case len(lines) == 0:
		c.transition(StateIdle, ErrEmptyCart)
		return nil, ErrEmptyCart
	case !ok || addr == "":
		c.transition(StateIdle, ErrNoAddress)
		return nil, ErrNoAddress
	}

	c.transition(StateSubmitting, nil)
	ctx = context.WithoutCancel(ctx)

	outcome := &Outcome{
		Address: addr,
		Totals:  cart.ComputeTotals(lines),
		Lines:   make([]LineOutcome, 0, len(lines)),
	}
	for i, line := range lines {
		res, err := c.stock.DecrementStock(ctx, line.ProductID, line.Quantity)
		switch {
		case err == nil && !res.Success:
			// A refusal without a typed error still counts as a refused line.
			err = product.ErrInsufficientStock
			fallthrough
		case errors.Is(err, product.ErrNotFound), errors.Is(err, product.ErrInsufficientStock):
			outcome.Lines = append(outcome.Lines, LineOutcome{Line: line, Result: res, Err: err})
		case err != nil:
			serr := &SubmitError{
				Index:     i,
				ProductID: line.ProductID,
				Submitted: outcome.Lines,
				Err:       err,
			}
			c.transition(StateFailed, serr)
			return nil, serr
		default:
			outcome.Lines = append(outcome.Lines, LineOutcome{Line: line, Result: res})
		}
	}

	if err := c.cart.Clear(ctx); err != nil {
		err = errors.Wrap(err, "clear cart")
		c.transition(StateFailed, err)
		return nil, err
	}

	outcome.OrderRef = c.newRef()
	c.transition(StateConfirmed, nil)
	return outcome, nil
}

// Reset returns a finished coordinator to StateIdle.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	s := c.state
	c.mu.Unlock()
	if s == StateConfirmed || s == StateFailed {
		c.transition(StateIdle, nil)
	}
}
