package product

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a requested product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrInsufficientStock is returned when a stock decrement would drive
	// the stock level below zero.
	ErrInsufficientStock = errors.New("insufficient stock")
)

var hundred = decimal.NewFromInt(100)

// Product represents a catalog item available for purchase.
type Product struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Price           decimal.Decimal `json:"price"`
	Reduction       int             `json:"reduction"`
	Currency        string          `json:"currency"`
	Stock           int             `json:"stock"`
	Images          []string        `json:"images"`
	Characteristics Characteristics `json:"characteristics"`
}

// Characteristics holds the descriptive attributes of a product. Keys other
// than colors, character and rarity are kept in Other.
type Characteristics struct {
	Colors    []string
	Character string
	Rarity    string
	Other     map[string]string
}

type characteristicsJSON struct {
	Colors    []string `json:"colors"`
	Character string   `json:"character"`
	Rarity    string   `json:"rarity"`
}

// MarshalJSON flattens Other next to the well-known keys.
func (c Characteristics) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Other)+3)
	for k, v := range c.Other {
		out[k] = v
	}
	out["colors"] = c.Colors
	out["character"] = c.Character
	out["rarity"] = c.Rarity
	return json.Marshal(out)
}

// UnmarshalJSON splits well-known keys from free-form ones. Non-string
// free-form values are kept in their JSON text form.
func (c *Characteristics) UnmarshalJSON(data []byte) error {
	var known characteristicsJSON
	if err := json.Unmarshal(data, &known); err != nil {
		return errors.Wrap(err, "decode characteristics")
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "decode characteristics")
	}
	c.Colors = known.Colors
	c.Character = known.Character
	c.Rarity = known.Rarity
	c.Other = nil
	for k, v := range raw {
		switch k {
		case "colors", "character", "rarity":
			continue
		}
		if c.Other == nil {
			c.Other = make(map[string]string)
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			s = string(v)
		}
		c.Other[k] = s
	}
	return nil
}

// HasColor reports whether color is one of the product's colors.
func (p *Product) HasColor(color string) bool {
	for _, c := range p.Characteristics.Colors {
		if c == color {
			return true
		}
	}
	return false
}

// DefaultColor returns the first color of the product, or "" if it has none.
func (p *Product) DefaultColor() string {
	if len(p.Characteristics.Colors) == 0 {
		return ""
	}
	return p.Characteristics.Colors[0]
}

// MainImage returns the first image URL, or "" if the product has none.
func (p *Product) MainImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// DiscountedPrice returns price * (1 - reduction/100), unrounded.
func DiscountedPrice(price decimal.Decimal, reduction int) decimal.Decimal {
	factor := hundred.Sub(decimal.NewFromInt(int64(reduction))).Div(hundred)
	return price.Mul(factor)
}

// DiscountedPrice returns the product price after its reduction.
func (p *Product) DiscountedPrice() decimal.Decimal {
	return DiscountedPrice(p.Price, p.Reduction)
}

// Validate checks the catalog invariants of a product.
func (p *Product) Validate() error {
	switch {
	case p.ID == "":
		return errors.New("id is required")
	case p.Price.IsNegative():
		return errors.Errorf("product %s: negative price", p.ID)
	case p.Reduction < 0 || p.Reduction > 100:
		return errors.Errorf("product %s: reduction %d out of range", p.ID, p.Reduction)
	case p.Stock < 0:
		return errors.Errorf("product %s: negative stock", p.ID)
	case len(p.Images) == 0:
		return errors.Errorf("product %s: at least one image is required", p.ID)
	case len(p.Characteristics.Colors) == 0:
		return errors.Errorf("product %s: at least one color is required", p.ID)
	}
	return nil
}

// StockResult is the outcome of a stock decrement.
type StockResult struct {
	Success  bool
	NewStock int
}

// Repository is the Catalog Store contract.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	// DecrementStock subtracts quantity from the product's stock. When the
	// result would be negative it returns ErrInsufficientStock together with
	// a result carrying the stock level that would have been reached.
	DecrementStock(ctx context.Context, id string, quantity int) (StockResult, error)
}
