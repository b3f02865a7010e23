package catalogclient

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/product"
)

// TransportError reports a failed exchange with the Catalog Store: the
// request could not be sent, the server answered 5xx, or the body could not
// be decoded.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: catalog returned %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err is or wraps a *TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// ListOrEmpty lists the catalog and degrades transport and not-found
// failures to an empty result. The error is still returned so callers can
// report it; other errors yield a nil slice.
func ListOrEmpty(ctx context.Context, repo product.Repository) ([]product.Product, error) {
	products, err := repo.List(ctx)
	switch {
	case err == nil:
		return products, nil
	case IsTransport(err), errors.Is(err, product.ErrNotFound):
		return []product.Product{}, err
	default:
		return nil, err
	}
}
