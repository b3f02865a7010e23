// Package handler implements the Catalog Store REST API.
package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/api"
	"github.com/xenking/storefront/internal/domain/address"
	"github.com/xenking/storefront/internal/domain/product"
)

const maxBodySize = 1 << 20

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	// When empty, image paths are returned as stored.
	ImageBaseURL string
}

// Handler serves the catalog, stock and address endpoints.
type Handler struct {
	products     product.Repository
	addresses    address.Lookup
	imageBaseURL string

	decrements   metric.Int64Counter
	insufficient metric.Int64Counter
}

// NewHandler constructs a Handler. Counters are registered on mp.
func NewHandler(
	cfg HandlerConfig,
	products product.Repository,
	addresses address.Lookup,
	mp metric.MeterProvider,
) (*Handler, error) {
	meter := mp.Meter("github.com/xenking/storefront/internal/handler")

	decrements, err := meter.Int64Counter("catalog.stock.decrements",
		metric.WithDescription("Units removed from stock by successful decrements"),
		metric.WithUnit("{unit}"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create decrements counter")
	}
	insufficient, err := meter.Int64Counter("catalog.stock.insufficient",
		metric.WithDescription("Stock decrements refused for insufficient stock"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create insufficient counter")
	}

	return &Handler{
		products:     products,
		addresses:    addresses,
		imageBaseURL: strings.TrimRight(cfg.ImageBaseURL, "/"),
		decrements:   decrements,
		insufficient: insufficient,
	}, nil
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)
	mux.HandleFunc("PUT /api/products/{id}/stock", h.UpdateStock)
	mux.HandleFunc("GET /api/address/{query}", h.SearchAddress)
}

func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeError(w http.ResponseWriter, apiErr *api.Error) {
	var e jx.Encoder
	apiErr.Encode(&e)
	writeJSON(w, apiErr.Code, &e)
}

// writeInternal logs err and answers 500 without leaking details.
func writeInternal(w http.ResponseWriter, r *http.Request, msg string, err error) {
	zctx.From(r.Context()).Error(msg, zap.Error(err))
	writeError(w, &api.Error{Code: http.StatusInternalServerError, Message: "internal error"})
}

// resolveImages returns p with relative image paths prefixed by the base URL.
func (h *Handler) resolveImages(p product.Product) product.Product {
	if h.imageBaseURL == "" {
		return p
	}
	images := make([]string, len(p.Images))
	for i, img := range p.Images {
		if strings.HasPrefix(img, "http://") || strings.HasPrefix(img, "https://") {
			images[i] = img
			continue
		}
		images[i] = h.imageBaseURL + "/" + strings.TrimLeft(img, "/")
	}
	p.Images = images
	return p
}
