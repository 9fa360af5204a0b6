// Package deals is the HTTP client for the deals aggregator: batch title
// mapping and bulk price listings.
package deals

import (
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Config holds connection settings for the aggregator.
type Config struct {
	BaseURL string
	APIKey  string
	// Country selects regional pricing. Optional; the aggregator falls
	// back to its default region.
	Country string
	Timeout time.Duration
}

// Client talks to the aggregator's JSON API. Pacing between bulk price
// requests is the caller's job; the client performs exactly one request
// per call.
type Client struct {
	http    *http.Client
	baseURL string
	key     string
	country string
}

// NewClient creates a Client with an instrumented transport.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		key:     cfg.APIKey,
		country: cfg.Country,
	}
}

// sign attaches the API key and pricing region. A non-empty country
// overrides the client default.
func (c *Client) sign(req *http.Request, country string) {
	if country == "" {
		country = c.country
	}

	q := req.URL.Query()
	q.Set("key", c.key)
	if country != "" {
		q.Set("country", country)
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Accept", "application/json")
}
