// Package catalogclient is an HTTP client for the Catalog Store REST API.
package catalogclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/xenking/storefront/internal/api"
	"github.com/xenking/storefront/internal/domain/address"
	"github.com/xenking/storefront/internal/domain/product"
)

var (
	_ product.Repository = (*Client)(nil)
	_ address.Lookup     = (*Client)(nil)
)

// maxBody bounds how much of a response body is read.
const maxBody = 8 << 20

// Client talks to a Catalog Store over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default instrumented HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// New creates a Client for the store at baseURL, e.g. http://localhost:8080.
func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse catalog url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("catalog url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// List implements product.Repository.
func (c *Client) List(ctx context.Context) ([]product.Product, error) {
	const op = "list products"

	status, body, err := c.do(ctx, op, http.MethodGet, "/api/products", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, c.statusError(op, status, body)
	}

	products, err := api.DecodeProducts(jx.DecodeBytes(body))
	if err != nil {
		return nil, &TransportError{Op: op, Err: errors.Wrap(err, "decode body")}
	}
	return products, nil
}

// GetByID implements product.Repository.
func (c *Client) GetByID(ctx context.Context, id string) (*product.Product, error) {
	const op = "get product"

	status, body, err := c.do(ctx, op, http.MethodGet, "/api/products/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, errors.Wrapf(product.ErrNotFound, "product %s", id)
	default:
		return nil, c.statusError(op, status, body)
	}

	var p product.Product
	if err := api.DecodeProduct(jx.DecodeBytes(body), &p); err != nil {
		return nil, &TransportError{Op: op, Err: errors.Wrap(err, "decode body")}
	}
	return &p, nil
}

// DecrementStock implements product.Repository. A 404 maps to
// product.ErrNotFound and an insufficient stock answer to
// product.ErrInsufficientStock; every other failure is a *TransportError.
func (c *Client) DecrementStock(ctx context.Context, id string, quantity int) (product.StockResult, error) {
	const op = "decrement stock"

	var e jx.Encoder
	req := api.StockRequest{Quantity: quantity}
	req.Encode(&e)

	status, body, err := c.do(ctx, op, http.MethodPut, "/api/products/"+url.PathEscape(id)+"/stock", e.Bytes())
	if err != nil {
		return product.StockResult{}, err
	}

	switch status {
	case http.StatusOK:
		res, err := api.DecodeStockResult(jx.DecodeBytes(body))
		if err != nil {
			return product.StockResult{}, &TransportError{Op: op, Err: errors.Wrap(err, "decode body")}
		}
		return res, nil
	case http.StatusNotFound:
		return product.StockResult{}, errors.Wrapf(product.ErrNotFound, "product %s", id)
	case http.StatusBadRequest:
		var apiErr api.Error
		if err := apiErr.Decode(jx.DecodeBytes(body)); err != nil {
			return product.StockResult{}, &TransportError{Op: op, StatusCode: status, Err: errors.Wrap(err, "decode body")}
		}
		if apiErr.NewStock != nil {
			return product.StockResult{NewStock: *apiErr.NewStock},
				errors.Wrapf(product.ErrInsufficientStock, "product %s", id)
		}
		return product.StockResult{}, errors.Wrap(&apiErr, op)
	default:
		return product.StockResult{}, c.statusError(op, status, body)
	}
}

// Search implements address.Lookup against GET /api/address/{query}.
func (c *Client) Search(ctx context.Context, query string) ([]address.Address, error) {
	const op = "search addresses"

	status, body, err := c.do(ctx, op, http.MethodGet, "/api/address/"+url.PathEscape(query), nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, c.statusError(op, status, body)
	}

	addrs, err := api.DecodeAddresses(jx.DecodeBytes(body))
	if err != nil {
		return nil, &TransportError{Op: op, Err: errors.Wrap(err, "decode body")}
	}
	return addrs, nil
}

// do sends a request and reads the whole response body.
func (c *Client) do(ctx context.Context, op, method, path string, body []byte) (int, []byte, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return 0, nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, &TransportError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return 0, nil, &TransportError{Op: op, StatusCode: resp.StatusCode, Err: errors.Wrap(err, "read body")}
	}
	return resp.StatusCode, data, nil
}

// statusError turns an unexpected status into a *TransportError, using the
// server's error message when the body carries one.
func (c *Client) statusError(op string, status int, body []byte) error {
	var apiErr api.Error
	if err := apiErr.Decode(jx.DecodeBytes(body)); err != nil || apiErr.Message == "" {
		return &TransportError{Op: op, StatusCode: status, Err: errors.New(http.StatusText(status))}
	}
	return &TransportError{Op: op, StatusCode: status, Err: &apiErr}
}
