// Package api holds the JSON documents exchanged with the Catalog Store and
// their jx encoders and decoders. The server handlers and the HTTP catalog
// client share these so both sides agree on the wire format.
package api

import (
	"slices"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/product"
)

// EncodeProduct writes p as a JSON object. Prices are written as JSON numbers.
func EncodeProduct(e *jx.Encoder, p *product.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	if p.Description != "" {
		e.FieldStart("description")
		e.Str(p.Description)
	}
	e.FieldStart("price")
	e.Num(jx.Num(p.Price.String()))
	e.FieldStart("reduction")
	e.Int(p.Reduction)
	e.FieldStart("currency")
	e.Str(p.Currency)
	e.FieldStart("stock")
	e.Int(p.Stock)
	e.FieldStart("images")
	e.ArrStart()
	for _, img := range p.Images {
		e.Str(img)
	}
	e.ArrEnd()
	e.FieldStart("characteristics")
	encodeCharacteristics(e, &p.Characteristics)
	e.ObjEnd()
}

func encodeCharacteristics(e *jx.Encoder, c *product.Characteristics) {
	e.ObjStart()
	e.FieldStart("colors")
	e.ArrStart()
	for _, color := range c.Colors {
		e.Str(color)
	}
	e.ArrEnd()
	e.FieldStart("character")
	e.Str(c.Character)
	e.FieldStart("rarity")
	e.Str(c.Rarity)

	keys := make([]string, 0, len(c.Other))
	for k := range c.Other {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		e.FieldStart(k)
		e.Str(c.Other[k])
	}
	e.ObjEnd()
}

// EncodeProducts writes products as a JSON array.
func EncodeProducts(e *jx.Encoder, products []product.Product) {
	e.ArrStart()
	for i := range products {
		EncodeProduct(e, &products[i])
	}
	e.ArrEnd()
}

// DecodeProduct reads a product object into p. Unknown fields are skipped.
func DecodeProduct(d *jx.Decoder, p *product.Product) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Str()
		case "name":
			p.Name, err = d.Str()
		case "description":
			p.Description, err = d.Str()
		case "price":
			p.Price, err = decodeDecimal(d)
		case "reduction":
			p.Reduction, err = d.Int()
		case "currency":
			p.Currency, err = d.Str()
		case "stock":
			p.Stock, err = d.Int()
		case "images":
			p.Images, err = decodeStrings(d)
		case "characteristics":
			err = decodeCharacteristics(d, &p.Characteristics)
		default:
			err = d.Skip()
		}
		return errors.Wrapf(err, "decode field %q", key)
	})
}

// DecodeProducts reads a JSON array of products.
func DecodeProducts(d *jx.Decoder) ([]product.Product, error) {
	out := []product.Product{}
	err := d.Arr(func(d *jx.Decoder) error {
		var p product.Product
		if err := DecodeProduct(d, &p); err != nil {
			return err
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func decodeCharacteristics(d *jx.Decoder, c *product.Characteristics) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "colors":
			c.Colors, err = decodeStrings(d)
		case "character":
			c.Character, err = d.Str()
		case "rarity":
			c.Rarity, err = d.Str()
		default:
			var v string
			if d.Next() == jx.String {
				v, err = d.Str()
			} else {
				var raw jx.Raw
				raw, err = d.Raw()
				v = raw.String()
			}
			if err == nil {
				if c.Other == nil {
					c.Other = make(map[string]string)
				}
				c.Other[key] = v
			}
		}
		return errors.Wrapf(err, "decode characteristic %q", key)
	})
}

// decodeDecimal accepts both JSON numbers and numeric strings.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(s)
	default:
		n, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(n.String())
	}
}

func decodeStrings(d *jx.Decoder) ([]string, error) {
	out := []string{}
	err := d.Arr(func(d *jx.Decoder) error {
		s, err := d.Str()
		if err != nil {
			return err
		}
		out = append(out, s)
		return nil
	})
	return out, err
}
