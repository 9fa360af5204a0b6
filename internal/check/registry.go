package check

import (
	"context"
	"sync"
	"time"
)

// Registry holds live runs by id. Runs are session-scoped: a janitor
// evicts them once they outlive the TTL, cancelling any drain still
// active.
type Registry struct {
	ttl           time.Duration
	sweepInterval time.Duration

	mu   sync.RWMutex
	runs map[string]*Run
}

// NewRegistry creates a Registry evicting runs ttl after creation.
func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		ttl:           ttl,
		sweepInterval: time.Minute,
		runs:          make(map[string]*Run),
	}
}

// Add registers a run.
func (r *Registry) Add(run *Run) {
	r.mu.Lock()
	r.runs[run.ID] = run
	r.mu.Unlock()
}

// Get returns the run with the given id, if it has not been evicted.
func (r *Registry) Get(id string) (*Run, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	return run, ok
}

// Len reports the number of live runs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.runs)
}

// Start launches the eviction janitor. It stops when ctx is done.
func (r *Registry) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.sweep(time.Now())
			case <-ctx.Done():
				return
			}
		}
	}()
}

// sweep evicts runs created more than ttl ago and returns how many went.
func (r *Registry) sweep(now time.Time) int {
	cutoff := now.Add(-r.ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, run := range r.runs {
		if run.CreatedAt.After(cutoff) {
			continue
		}
		run.Cancel()
		delete(r.runs, id)
		evicted++
	}

	return evicted
}
