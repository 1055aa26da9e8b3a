// Package catalogclient loads the product catalog from the catalog API.
package catalogclient

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/storefront/internal/api"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/product"
)

var _ catalog.Source = (*Client)(nil)

// StatusError is returned when the catalog API answers with a non-2xx status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return "catalog api responded with " + http.StatusText(e.Code)
}

// Config holds non-dependency configuration for the Client.
type Config struct {
	// BaseURL is the catalog API origin, e.g. http://localhost:8080/api.
	BaseURL string
	Timeout time.Duration

	// Transport is the underlying round tripper. Defaults to
	// http.DefaultTransport.
	Transport      http.RoundTripper
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Client fetches products over HTTP.
type Client struct {
	http *resty.Client
}

// New creates a catalog API client.
func New(cfg Config) *Client {
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	var opts []otelhttp.Option
	if cfg.TracerProvider != nil {
		opts = append(opts, otelhttp.WithTracerProvider(cfg.TracerProvider))
	}
	if cfg.MeterProvider != nil {
		opts = append(opts, otelhttp.WithMeterProvider(cfg.MeterProvider))
	}

	c := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTransport(otelhttp.NewTransport(transport, opts...)).
		SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		c.SetTimeout(cfg.Timeout)
	}

	return &Client{http: c}
}

// List returns the full product list, most recent first.
func (c *Client) List(ctx context.Context) ([]product.Product, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get("/products")
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	if !resp.IsSuccess() {
		return nil, &StatusError{Code: resp.StatusCode()}
	}

	products, err := api.DecodeProducts(resp.Body())
	if err != nil {
		return nil, err
	}
	return products, nil
}

// Ping checks that the catalog API is reachable and not failing.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Head("/products")
	if err != nil {
		return errors.Wrap(err, "ping catalog api")
	}
	if resp.StatusCode() >= http.StatusInternalServerError {
		return &StatusError{Code: resp.StatusCode()}
	}
	return nil
}
