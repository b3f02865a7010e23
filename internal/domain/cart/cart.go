package cart

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/product"
)

var hundred = decimal.NewFromInt(100)

// ErrLineNotFound is returned when a line index is out of range.
var ErrLineNotFound = errors.New("cart line not found")

// ValidationError indicates a cart operation received unusable input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Line is one cart entry. Product data is a snapshot taken when the line was
// created and is not re-synced with the catalog.
type Line struct {
	ProductID string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Reduction int             `json:"reduction"`
	Currency  string          `json:"currency"`
	Image     string          `json:"image"`
	Color     string          `json:"color"`
	Quantity  int             `json:"quantity"`
}

// UnitPrice returns the discounted price of one unit.
func (l Line) UnitPrice() decimal.Decimal {
	return product.DiscountedPrice(l.Price, l.Reduction)
}

// Gross returns price * quantity.
func (l Line) Gross() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Discount returns price * reduction/100 * quantity.
func (l Line) Discount() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Reduction))).Div(hundred).
		Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (l Line) sameItem(productID, color string) bool {
	return l.ProductID == productID && l.Color == color
}

// Totals summarises a cart. Values are unrounded; use Display for output.
type Totals struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// Display returns the totals rounded to two decimals.
func (t Totals) Display() Totals {
	return Totals{
		Subtotal: t.Subtotal.Round(2),
		Discount: t.Discount.Round(2),
		Total:    t.Total.Round(2),
	}
}

// ComputeTotals sums gross and discount over lines.
func ComputeTotals(lines []Line) Totals {
	subtotal := decimal.Zero
	discount := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Gross())
		discount = discount.Add(l.Discount())
	}
	return Totals{
		Subtotal: subtotal,
		Discount: discount,
		Total:    subtotal.Sub(discount),
	}
}

// ItemCount returns the sum of quantities over lines.
func ItemCount(lines []Line) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}

// CheckAvailability applies the product page rule before adding to the cart:
// the product must be in stock and quantity must not exceed the stock level.
func CheckAvailability(p *product.Product, quantity int) error {
	if p.Stock == 0 || quantity > p.Stock {
		return errors.Wrapf(product.ErrInsufficientStock, "product %s has %d in stock", p.ID, p.Stock)
	}
	return nil
}

// Confirmer asks the shopper a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to the Confirmer interface.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// Event is emitted after every cart mutation.
type Event struct {
	Lines     []Line
	Totals    Totals
	ItemCount int
}

// QuantityResult reports the effect of a quantity operation.
type QuantityResult struct {
	Quantity int
	// Changed is false when the operation left the line as it was.
	Changed bool
	// CeilingReached is set when the requested quantity hit the stock ceiling.
	CeilingReached bool
}
