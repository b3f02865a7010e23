package api

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/address"
)

// EncodeAddresses writes address suggestions as a JSON array.
func EncodeAddresses(e *jx.Encoder, addrs []address.Address) {
	e.ArrStart()
	for _, a := range addrs {
		e.ObjStart()
		e.FieldStart("id")
		e.Int(a.ID)
		e.FieldStart("address")
		e.Str(a.Address)
		e.ObjEnd()
	}
	e.ArrEnd()
}

// DecodeAddresses reads a JSON array of address suggestions.
func DecodeAddresses(d *jx.Decoder) ([]address.Address, error) {
	out := []address.Address{}
	err := d.Arr(func(d *jx.Decoder) error {
		var a address.Address
		err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "id":
				a.ID, err = d.Int()
			case "address":
				a.Address, err = d.Str()
			default:
				err = d.Skip()
			}
			return errors.Wrapf(err, "decode field %q", key)
		})
		if err != nil {
			return err
		}
		out = append(out, a)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
