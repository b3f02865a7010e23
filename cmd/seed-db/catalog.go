package main

import (
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"

	"github.com/xenking/storefront/db"
	"github.com/xenking/storefront/internal/api"
	"github.com/xenking/storefront/internal/domain/product"
)

func sourceName(path string) string {
	if path == "" {
		return "embedded"
	}
	return path
}

// readCatalog reads products from path, gunzipping files ending in .gz. An
// empty path selects the embedded sample catalog.
func readCatalog(path string) ([]product.Product, error) {
	if path == "" {
		return decodeCatalog(db.SeedProducts)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip")
		}
		defer gz.Close()
		r = gz
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read")
	}
	return decodeCatalog(data)
}

// decodeCatalog decodes and validates a catalog. Duplicate ids are rejected.
func decodeCatalog(data []byte) ([]product.Product, error) {
	products, err := api.DecodeProducts(jx.DecodeBytes(data))
	if err != nil {
		return nil, errors.Wrap(err, "decode")
	}

	seen := make(map[string]struct{}, len(products))
	for i := range products {
		p := &products[i]
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[p.ID]; dup {
			return nil, errors.Errorf("duplicate product id %q", p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return products, nil
}
