package catalog

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealscout/dealscout/internal/cache"
)

// --- Mock implementations ---

type stubSource struct {
	entries []Entry
	err     error
	calls   int
}

func (s *stubSource) Load(_ context.Context) ([]Entry, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.entries, nil
}

// --- Tests ---

func TestProviderGet_LoadsOnce(t *testing.T) {
	src := &stubSource{entries: []Entry{{ID: 10, Name: "Half-Life 2"}}}
	p := NewProvider(src, nil, 0)

	first, err := p.Get(context.Background())
	require.NoError(t, err)

	second, err := p.Get(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, src.calls)
}

func TestProviderGet_RetriesAfterFailure(t *testing.T) {
	src := &stubSource{err: errors.New("upstream down")}
	p := NewProvider(src, nil, 0)

	_, err := p.Get(context.Background())
	require.Error(t, err)
	assert.False(t, p.Ready())

	src.err = nil
	src.entries = []Entry{{ID: 20, Name: "Portal"}}

	store, err := p.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())
	assert.True(t, p.Ready())
}

func TestProviderGet_ServedFromCache(t *testing.T) {
	c := cache.NewMemory()
	defer func() { _ = c.Close() }()

	// First provider populates the payload cache.
	warm := &stubSource{entries: []Entry{{ID: 10, Name: "Half-Life 2"}}}
	_, err := NewProvider(warm, c, time.Hour).Get(context.Background())
	require.NoError(t, err)

	// Second provider must not touch its source at all.
	cold := &stubSource{err: errors.New("should not be called")}
	store, err := NewProvider(cold, c, time.Hour).Get(context.Background())
	require.NoError(t, err)

	id, ok := store.Match("half-life 2")
	require.True(t, ok)
	assert.Equal(t, int64(10), id)
	assert.Equal(t, 0, cold.calls)
}

func TestProviderGet_CorruptCacheFallsBack(t *testing.T) {
	c := cache.NewMemory()
	defer func() { _ = c.Close() }()

	require.NoError(t, c.Set(context.Background(), cacheKey, []byte("not a snapshot"), time.Hour))

	src := &stubSource{entries: []Entry{{ID: 20, Name: "Portal"}}}
	store, err := NewProvider(src, c, time.Hour).Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, src.calls)
	assert.Equal(t, 1, store.Len())

	// The corrupt payload was replaced by a fresh snapshot.
	data, err := c.Get(context.Background(), cacheKey)
	require.NoError(t, err)
	_, err = ReadSnapshot(bytes.NewReader(data))
	require.NoError(t, err)
}
