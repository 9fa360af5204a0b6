// Package storefront is the HTTP client for the storefront's public
// endpoints: the bulk app catalog and per-user wishlists.
package storefront

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dealscout/dealscout/internal/catalog"
	"github.com/dealscout/dealscout/internal/check"
)

var (
	_ catalog.Source        = (*Client)(nil)
	_ check.WishlistFetcher = (*Client)(nil)
)

// Config holds connection settings for the storefront.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the storefront's unauthenticated JSON endpoints.
type Client struct {
	http    *http.Client
	baseURL string
}

// NewClient creates a Client with an instrumented transport. The default
// timeout is generous because the full catalog payload runs to hundreds
// of thousands of entries.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}

	return &Client{
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}
}

// Load fetches the complete app list. The payload is decoded as a
// stream; entries with a blank name are kept so that catalog ordering
// matches the storefront exactly.
func (c *Client) Load(ctx context.Context) ([]catalog.Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/apps/list", nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "app list request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("app list request: unexpected status %d", resp.StatusCode)
	}

	entries, err := decodeAppList(jx.Decode(resp.Body, 4096))
	if err != nil {
		return nil, errors.Wrap(err, "decode app list")
	}
	return entries, nil
}

func decodeAppList(d *jx.Decoder) ([]catalog.Entry, error) {
	var entries []catalog.Entry
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "applist" {
			return d.Skip()
		}
		return d.Obj(func(d *jx.Decoder, key string) error {
			if key != "apps" {
				return d.Skip()
			}
			return d.Arr(func(d *jx.Decoder) error {
				var entry catalog.Entry
				if err := d.Obj(func(d *jx.Decoder, key string) error {
					switch key {
					case "appid":
						v, err := d.Int64()
						if err != nil {
							return err
						}
						entry.ID = v
						return nil
					case "name":
						v, err := d.Str()
						if err != nil {
							return err
						}
						entry.Name = v
						return nil
					default:
						return d.Skip()
					}
				}); err != nil {
					return err
				}
				entries = append(entries, entry)
				return nil
			})
		})
	})
	return entries, err
}

// Wishlist fetches the user's public wishlist. Results are read fresh on
// every call; wishlists change too often to cache.
func (c *Client) Wishlist(ctx context.Context, user string) (map[int64]check.WishlistItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/wishlist/profiles/"+url.PathEscape(user)+"/data", nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "wishlist request")
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, errors.Errorf("wishlist request: no public wishlist for %q", user)
	default:
		return nil, errors.Errorf("wishlist request: unexpected status %d", resp.StatusCode)
	}

	items, err := decodeWishlist(jx.Decode(resp.Body, 4096))
	if err != nil {
		return nil, errors.Wrap(err, "decode wishlist")
	}
	return items, nil
}

func decodeWishlist(d *jx.Decoder) (map[int64]check.WishlistItem, error) {
	items := make(map[int64]check.WishlistItem)
	err := d.Obj(func(d *jx.Decoder, idKey string) error {
		id, err := strconv.ParseInt(idKey, 10, 64)
		if err != nil {
			// The storefront mixes metadata keys into the same object.
			return d.Skip()
		}
		var item check.WishlistItem
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "priority":
				v, err := d.Int()
				if err != nil {
					return err
				}
				item.Priority = v
				return nil
			case "date_added":
				v, err := d.Int64()
				if err != nil {
					return err
				}
				item.DateAdded = time.Unix(v, 0).UTC()
				return nil
			default:
				return d.Skip()
			}
		}); err != nil {
			return err
		}
		items[id] = item
		return nil
	})
	return items, err
}
