package resolve

import (
	"context"

	"github.com/go-faster/errors"
)

// MappedItem is one successfully mapped title from the mapping service.
type MappedItem struct {
	Name         string
	ID           int64
	TradingCards *bool
}

// MapResult is the mapping service response: resolved items plus the
// titles the service could not map.
type MapResult struct {
	Items  []MappedItem
	Failed []string
}

// MappingClient calls the aggregator's batch title-mapping endpoint.
type MappingClient interface {
	Map(ctx context.Context, names []string) (MapResult, error)
}

var _ Resolver = (*Remote)(nil)

// Remote resolves titles by delegating the whole batch to the mapping
// service. No local fuzzy logic is applied; titles the service reports in
// failedToMap stay unresolved.
type Remote struct {
	client MappingClient
}

// NewRemote creates a Remote resolver over the mapping client.
func NewRemote(client MappingClient) *Remote {
	return &Remote{client: client}
}

// Resolve maps the batch in one request and aligns the response with the
// submitted titles by exact name echo.
func (r *Remote) Resolve(ctx context.Context, names []string) ([]Match, error) {
	res, err := r.client.Map(ctx, names)
	if err != nil {
		return nil, errors.Wrap(err, "map titles")
	}

	byName := make(map[string]MappedItem, len(res.Items))
	for _, item := range res.Items {
		if _, ok := byName[item.Name]; !ok {
			byName[item.Name] = item
		}
	}

	matches := make([]Match, len(names))
	for i, name := range names {
		if item, ok := byName[name]; ok {
			matches[i] = Match{ID: item.ID, TradingCards: item.TradingCards}
		}
	}

	return matches, nil
}
