package catalog

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"

	"github.com/dealscout/dealscout/internal/cache"
)

// cacheKey names the encoded snapshot payload in the shared cache backend.
const cacheKey = "catalog:apps:v1"

// Provider loads the catalog once and serves the same Store for the rest
// of the process lifetime. With a payload cache configured, the encoded
// snapshot is kept there so a restart can skip the upstream fetch.
type Provider struct {
	source Source
	cache  cache.Cache
	ttl    time.Duration

	mu    sync.Mutex
	store atomic.Pointer[Store]
}

// NewProvider creates a Provider over source. payloadCache may be nil to
// disable snapshot caching.
func NewProvider(source Source, payloadCache cache.Cache, ttl time.Duration) *Provider {
	return &Provider{
		source: source,
		cache:  payloadCache,
		ttl:    ttl,
	}
}

// Get returns the catalog Store, loading it on first use. Concurrent
// callers share one load; a failed load is retried by the next caller.
func (p *Provider) Get(ctx context.Context) (*Store, error) {
	if s := p.store.Load(); s != nil {
		return s, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if s := p.store.Load(); s != nil {
		return s, nil
	}

	entries, err := p.load(ctx)
	if err != nil {
		return nil, err
	}

	s := NewStore(entries)
	p.store.Store(s)

	return s, nil
}

// Ready reports whether the catalog has been loaded.
func (p *Provider) Ready() bool {
	return p.store.Load() != nil
}

func (p *Provider) load(ctx context.Context) ([]Entry, error) {
	if p.cache != nil {
		if data, err := p.cache.Get(ctx, cacheKey); err == nil {
			entries, err := ReadSnapshot(bytes.NewReader(data))
			if err == nil {
				return entries, nil
			}
			// Corrupt payload: drop it and fall through to the source.
			_ = p.cache.Delete(ctx, cacheKey)
		}
	}

	entries, err := p.source.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load catalog")
	}

	if p.cache != nil {
		var buf bytes.Buffer
		if err := WriteSnapshot(&buf, entries); err == nil {
			_ = p.cache.Set(ctx, cacheKey, buf.Bytes(), p.ttl)
		}
	}

	return entries, nil
}
