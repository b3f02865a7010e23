package product

import (
	"slices"
	"sort"
	"strings"
)

// Order names a product listing sort order.
type Order string

const (
	OrderNone      Order = "none"
	OrderPriceAsc  Order = "price-asc"
	OrderPriceDesc Order = "price-desc"
)

// SimilarLimit is the number of similar products shown on a product page.
const SimilarLimit = 4

// Filter narrows a catalog listing. Empty fields match everything.
type Filter struct {
	Search    string
	Character string
	Rarity    string
	Color     string
}

// Match reports whether p satisfies every criterion of f.
func (f Filter) Match(p *Product) bool {
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		if !strings.Contains(strings.ToLower(p.Name), term) &&
			!strings.Contains(strings.ToLower(p.Description), term) {
			return false
		}
	}
	if f.Character != "" && p.Characteristics.Character != f.Character {
		return false
	}
	if f.Rarity != "" && p.Characteristics.Rarity != f.Rarity {
		return false
	}
	if f.Color != "" && !p.HasColor(f.Color) {
		return false
	}
	return true
}

// Apply returns the products matching f, in their original order.
func (f Filter) Apply(products []Product) []Product {
	out := make([]Product, 0, len(products))
	for i := range products {
		if f.Match(&products[i]) {
			out = append(out, products[i])
		}
	}
	return out
}

// Sort orders products in place by discounted price. Unknown orders and
// OrderNone keep the existing order. The sort is stable.
func Sort(products []Product, order Order) {
	switch order {
	case OrderPriceAsc:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].DiscountedPrice().LessThan(products[j].DiscountedPrice())
		})
	case OrderPriceDesc:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].DiscountedPrice().GreaterThan(products[j].DiscountedPrice())
		})
	}
}

// Facets lists the distinct filter values present in a catalog.
type Facets struct {
	Characters []string
	Rarities   []string
	Colors     []string
}

// CollectFacets returns the sorted distinct characters, rarities and colors.
func CollectFacets(products []Product) Facets {
	var chars, rarities, colors []string
	for _, p := range products {
		chars = append(chars, p.Characteristics.Character)
		rarities = append(rarities, p.Characteristics.Rarity)
		colors = append(colors, p.Characteristics.Colors...)
	}
	return Facets{
		Characters: distinct(chars),
		Rarities:   distinct(rarities),
		Colors:     distinct(colors),
	}
}

func distinct(values []string) []string {
	slices.Sort(values)
	return slices.Compact(values)
}

// Similar returns up to limit products sharing p's character or rarity,
// excluding p itself.
func Similar(products []Product, p *Product, limit int) []Product {
	var out []Product
	for _, other := range products {
		if len(out) >= limit {
			break
		}
		if other.ID == p.ID {
			continue
		}
		if other.Characteristics.Character == p.Characteristics.Character ||
			other.Characteristics.Rarity == p.Characteristics.Rarity {
			out = append(out, other)
		}
	}
	return out
}

// StockStatus classifies a stock level for display.
type StockStatus string

const (
	InStock    StockStatus = "in-stock"
	LowStock   StockStatus = "low-stock"
	OutOfStock StockStatus = "out-of-stock"
)

// lowStockThreshold is the level at or below which stock is shown as low.
const lowStockThreshold = 10

// Status returns the display stock status of p.
func (p *Product) Status() StockStatus {
	switch {
	case p.Stock > lowStockThreshold:
		return InStock
	case p.Stock > 0:
		return LowStock
	default:
		return OutOfStock
	}
}
