package api

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/product"
)

// StockRequest is the body of PUT /api/products/{id}/stock.
type StockRequest struct {
	Quantity int
}

// Encode writes the request as JSON.
func (r *StockRequest) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("quantity")
	e.Int(r.Quantity)
	e.ObjEnd()
}

// Decode reads the request. A missing quantity is an error.
func (r *StockRequest) Decode(d *jx.Decoder) error {
	seen := false
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "quantity" {
			return d.Skip()
		}
		n, err := d.Int()
		if err != nil {
			return errors.Wrap(err, "decode quantity")
		}
		r.Quantity = n
		seen = true
		return nil
	})
	if err != nil {
		return err
	}
	if !seen {
		return errors.New("quantity is required")
	}
	return nil
}

// EncodeStockResult writes a successful decrement response.
func EncodeStockResult(e *jx.Encoder, r product.StockResult) {
	e.ObjStart()
	e.FieldStart("success")
	e.Bool(r.Success)
	e.FieldStart("newStock")
	e.Int(r.NewStock)
	e.ObjEnd()
}

// DecodeStockResult reads a decrement response.
func DecodeStockResult(d *jx.Decoder) (product.StockResult, error) {
	var r product.StockResult
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "success":
			r.Success, err = d.Bool()
		case "newStock":
			r.NewStock, err = d.Int()
		default:
			err = d.Skip()
		}
		return errors.Wrapf(err, "decode field %q", key)
	})
	return r, err
}
