package resolve

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/dealscout/dealscout/internal/catalog"
)

var _ Resolver = (*Local)(nil)

// Local resolves titles against the storefront catalog: exact normalized
// equality first, then the first substring containment in catalog order.
type Local struct {
	provider *catalog.Provider
}

// NewLocal creates a Local resolver over the catalog provider.
func NewLocal(provider *catalog.Provider) *Local {
	return &Local{provider: provider}
}

// Resolve matches every title independently, so duplicate inputs yield
// duplicate matches. An empty catalog resolves nothing.
func (l *Local) Resolve(ctx context.Context, names []string) ([]Match, error) {
	store, err := l.provider.Get(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load catalog")
	}

	matches := make([]Match, len(names))
	for i, name := range names {
		if id, ok := store.Match(name); ok {
			matches[i].ID = id
		}
	}

	return matches, nil
}
