package storefront

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealscout/dealscout/internal/catalog"
	"github.com/dealscout/dealscout/internal/check"
)

// --- Tests ---

func TestClientLoad(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/apps/list", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"applist": {
				"apps": [
					{"appid": 10, "name": "Half-Life 2"},
					{"appid": 20, "name": ""},
					{"appid": 30, "name": "Portal", "extra": {"ignored": true}}
				]
			}
		}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})

	entries, err := c.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []catalog.Entry{
		{ID: 10, Name: "Half-Life 2"},
		{ID: 20, Name: ""},
		{ID: 30, Name: "Portal"},
	}, entries)
}

func TestClientLoad_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})

	_, err := c.Load(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "503")
}

func TestClientWishlist(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/wishlist/profiles/gabe/data", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"10": {"priority": 1, "date_added": 1700000000},
			"620": {"priority": 0, "date_added": 1600000000, "discount": 50},
			"_meta": {"pages": 1}
		}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})

	items, err := c.Wishlist(context.Background(), "gabe")
	require.NoError(t, err)
	assert.Equal(t, map[int64]check.WishlistItem{
		10:  {Priority: 1, DateAdded: time.Unix(1700000000, 0).UTC()},
		620: {Priority: 0, DateAdded: time.Unix(1600000000, 0).UTC()},
	}, items)
}

func TestClientWishlist_EscapesUser(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})

	items, err := c.Wishlist(context.Background(), "two words/slash")
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, "/wishlist/profiles/two%20words%2Fslash/data", gotPath)
}

func TestClientWishlist_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})

	_, err := c.Wishlist(context.Background(), "nobody")
	require.Error(t, err)
	assert.ErrorContains(t, err, "nobody")
}
