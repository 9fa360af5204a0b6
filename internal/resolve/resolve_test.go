package resolve

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealscout/dealscout/internal/catalog"
)

// --- Mock implementations ---

type stubCatalogSource struct {
	entries []catalog.Entry
	err     error
}

func (s stubCatalogSource) Load(_ context.Context) ([]catalog.Entry, error) {
	return s.entries, s.err
}

type mockMappingClient struct {
	result    MapResult
	err       error
	lastNames []string
}

func (m *mockMappingClient) Map(_ context.Context, names []string) (MapResult, error) {
	m.lastNames = names
	if m.err != nil {
		return MapResult{}, m.err
	}
	return m.result, nil
}

// --- Helpers ---

func newLocalResolver(entries ...catalog.Entry) *Local {
	return NewLocal(catalog.NewProvider(stubCatalogSource{entries: entries}, nil, 0))
}

func boolPtr(v bool) *bool { return &v }

// --- Tests ---

func TestLocalResolve(t *testing.T) {
	r := newLocalResolver(
		catalog.Entry{ID: 10, Name: "Half-Life 2"},
		catalog.Entry{ID: 20, Name: "Portal"},
	)

	matches, err := r.Resolve(context.Background(), []string{
		"half-life 2",
		"  Half-Life 2 ",
		"half-life 2",
		"nothing here",
	})
	require.NoError(t, err)

	require.Len(t, matches, 4)
	assert.Equal(t, int64(10), matches[0].ID)
	assert.Equal(t, int64(10), matches[1].ID)
	assert.Equal(t, int64(10), matches[2].ID)
	assert.Zero(t, matches[3].ID)
	assert.Nil(t, matches[0].TradingCards)
}

func TestLocalResolve_EmptyCatalog(t *testing.T) {
	r := newLocalResolver()

	matches, err := r.Resolve(context.Background(), []string{"Half-Life 2", "Portal"})
	require.NoError(t, err)

	for _, m := range matches {
		assert.Zero(t, m.ID)
	}
}

func TestLocalResolve_CatalogUnavailable(t *testing.T) {
	provider := catalog.NewProvider(stubCatalogSource{err: errors.New("storefront down")}, nil, 0)
	r := NewLocal(provider)

	_, err := r.Resolve(context.Background(), []string{"Portal"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load catalog")
}

func TestRemoteResolve(t *testing.T) {
	client := &mockMappingClient{
		result: MapResult{
			Items: []MappedItem{
				{Name: "Portal", ID: 400, TradingCards: boolPtr(true)},
			},
			Failed: []string{"Unknown Game"},
		},
	}
	r := NewRemote(client)

	matches, err := r.Resolve(context.Background(), []string{"Portal", "Unknown Game", "Portal"})
	require.NoError(t, err)

	assert.Equal(t, []string{"Portal", "Unknown Game", "Portal"}, client.lastNames)

	require.Len(t, matches, 3)
	assert.Equal(t, int64(400), matches[0].ID)
	require.NotNil(t, matches[0].TradingCards)
	assert.True(t, *matches[0].TradingCards)

	assert.Zero(t, matches[1].ID)
	assert.Equal(t, int64(400), matches[2].ID)
}

func TestRemoteResolve_Error(t *testing.T) {
	r := NewRemote(&mockMappingClient{err: errors.New("mapping service unavailable")})

	_, err := r.Resolve(context.Background(), []string{"Portal"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "map titles")
}
