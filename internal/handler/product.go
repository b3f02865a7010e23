package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/api"
	"github.com/xenking/storefront/internal/domain/product"
)

// ListProducts answers GET /api/products. The optional search, character,
// rarity, color and sort query parameters narrow and order the listing.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeInternal(w, r, "List products", err)
		return
	}

	q := r.URL.Query()
	filter := product.Filter{
		Search:    q.Get("search"),
		Character: q.Get("character"),
		Rarity:    q.Get("rarity"),
		Color:     q.Get("color"),
	}
	if filter != (product.Filter{}) {
		products = filter.Apply(products)
	}
	product.Sort(products, product.Order(q.Get("sort")))

	for i := range products {
		products[i] = h.resolveImages(products[i])
	}

	var e jx.Encoder
	api.EncodeProducts(&e, products)
	writeJSON(w, http.StatusOK, &e)
}

// GetProduct answers GET /api/products/{id}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("product.id", id))

	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, &api.Error{Code: http.StatusNotFound, Message: "product not found"})
			return
		}
		writeInternal(w, r, "Get product", err)
		return
	}

	resolved := h.resolveImages(*p)
	var e jx.Encoder
	api.EncodeProduct(&e, &resolved)
	writeJSON(w, http.StatusOK, &e)
}

// UpdateStock answers PUT /api/products/{id}/stock with body {"quantity":n}.
// A decrement that would drive stock negative is refused with 400 and the
// stock level it would have reached; stored stock is left unchanged.
func (h *Handler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeError(w, &api.Error{Code: http.StatusBadRequest, Message: "invalid request body"})
		return
	}
	var req api.StockRequest
	if err := req.Decode(jx.DecodeBytes(body)); err != nil {
		writeError(w, &api.Error{Code: http.StatusBadRequest, Message: "invalid request body"})
		return
	}
	if req.Quantity <= 0 {
		writeError(w, &api.Error{Code: http.StatusBadRequest, Message: "quantity must be positive"})
		return
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("product.id", id),
		attribute.Int("stock.quantity", req.Quantity),
	)
	lg := zctx.From(ctx).With(zap.String("product_id", id), zap.Int("quantity", req.Quantity))

	res, err := h.products.DecrementStock(ctx, id, req.Quantity)
	switch {
	case err == nil:
	case errors.Is(err, product.ErrNotFound):
		writeError(w, &api.Error{Code: http.StatusNotFound, Message: "product not found"})
		return
	case errors.Is(err, product.ErrInsufficientStock):
		h.insufficient.Add(ctx, 1, metric.WithAttributes(attribute.String("product.id", id)))
		lg.Info("Insufficient stock", zap.Int("new_stock", res.NewStock))
		newStock := res.NewStock
		writeError(w, &api.Error{
			Code:     http.StatusBadRequest,
			Message:  "insufficient stock",
			NewStock: &newStock,
		})
		return
	default:
		writeInternal(w, r, "Decrement stock", err)
		return
	}

	h.decrements.Add(ctx, int64(req.Quantity), metric.WithAttributes(attribute.String("product.id", id)))
	lg.Debug("Stock decremented", zap.Int("new_stock", res.NewStock))

	var e jx.Encoder
	api.EncodeStockResult(&e, res)
	writeJSON(w, http.StatusOK, &e)
}
