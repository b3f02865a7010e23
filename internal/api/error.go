package api

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// Error is the body of every non-2xx response.
type Error struct {
	Code    int
	Message string
	// NewStock is set on insufficient stock responses to the level the
	// decrement would have reached.
	NewStock *int
}

func (e *Error) Error() string {
	return e.Message
}

// Encode writes the error as JSON.
func (e *Error) Encode(enc *jx.Encoder) {
	enc.ObjStart()
	enc.FieldStart("code")
	enc.Int(e.Code)
	enc.FieldStart("message")
	enc.Str(e.Message)
	if e.NewStock != nil {
		enc.FieldStart("success")
		enc.Bool(false)
		enc.FieldStart("newStock")
		enc.Int(*e.NewStock)
	}
	enc.ObjEnd()
}

// Decode reads an error body. The legacy {"error": "..."} shape is accepted.
func (e *Error) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "code":
			e.Code, err = d.Int()
		case "message", "error":
			e.Message, err = d.Str()
		case "newStock":
			var n int
			n, err = d.Int()
			e.NewStock = &n
		default:
			err = d.Skip()
		}
		return errors.Wrapf(err, "decode field %q", key)
	})
}
