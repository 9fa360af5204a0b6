// Package check owns the core domain of the service: a check run, its
// per-title records, and the orchestration that takes pasted game titles
// through resolution, paced price fetching, and aggregation.
package check

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of one record. Transitions only move
// forward: pending is the sole mutable state, the other three are
// terminal.
type Status string

const (
	StatusPending  Status = "pending"
	StatusFound    Status = "found"
	StatusNotFound Status = "not-found"
	StatusError    Status = "error"
)

// GameRecord tracks one submitted title. Every non-blank submitted line
// produces exactly one record, duplicates included. A zero ID means the
// title never resolved; such records are never enqueued for pricing.
type GameRecord struct {
	Name     string
	ID       int64
	Price    decimal.NullDecimal
	Currency string
	Status   Status

	// TradingCards is set in deals mode when the resolver strategy
	// carries card data.
	TradingCards *bool

	// DateAdded and Priority are populated for wishlist hits only.
	DateAdded time.Time
	Priority  int
}

// PriceInfo is the aggregator's listing for one app. Individual price
// fields may be null upstream.
type PriceInfo struct {
	Retail   decimal.NullDecimal
	Keyshops decimal.NullDecimal
	Currency string
}

// Best returns the cheaper of the retail and keyshop prices, compared
// unrounded. Rounding is presentation-only and happens at render time.
func (p *PriceInfo) Best() (decimal.Decimal, bool) {
	switch {
	case p.Retail.Valid && p.Keyshops.Valid:
		return decimal.Min(p.Retail.Decimal, p.Keyshops.Decimal), true
	case p.Retail.Valid:
		return p.Retail.Decimal, true
	case p.Keyshops.Valid:
		return p.Keyshops.Decimal, true
	default:
		return decimal.Decimal{}, false
	}
}

// PriceMap holds one pricing response: requested id to listing, with a
// nil entry for apps the aggregator explicitly reports as unlisted.
type PriceMap map[int64]*PriceInfo

// PriceFetcher performs one bulk pricing request for up to a chunk's
// worth of ids. An empty country selects the fetcher's default region.
type PriceFetcher interface {
	Prices(ctx context.Context, ids []int64, country string) (PriceMap, error)
}

// WishlistItem is one row of a storefront user's wishlist.
type WishlistItem struct {
	Priority  int
	DateAdded time.Time
}

// WishlistFetcher fetches a user's current wishlist keyed by app id.
// Wishlist responses are never cached; every run sees the live list.
type WishlistFetcher interface {
	Wishlist(ctx context.Context, user string) (map[int64]WishlistItem, error)
}
