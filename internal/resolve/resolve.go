// Package resolve maps free-text game titles to storefront app ids. Two
// strategies implement the same interface: a matcher over the local
// catalog, and a delegate to the deals aggregator's mapping service.
// Which strategy a deployment uses is configuration, not a separate code
// path.
package resolve

import "context"

// Match is the outcome for one submitted title, positionally aligned with
// the input slice. A zero ID means the title stayed unresolved.
type Match struct {
	ID int64

	// TradingCards is the mapping service's card flag for the matched
	// app. Nil when the strategy carries no card data.
	TradingCards *bool
}

// Resolver resolves a batch of titles in one call. Unresolved titles are
// not an error; they come back as zero Matches. An error means the
// strategy's backing source was unusable and nothing was resolved.
type Resolver interface {
	Resolve(ctx context.Context, names []string) ([]Match, error)
}
