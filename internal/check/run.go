package check

import (
	"sync"
	"time"

	"github.com/dealscout/dealscout/internal/pipeline"
	"github.com/dealscout/dealscout/internal/resolve"
)

// Mode selects what a check looks up for each title.
type Mode string

const (
	// ModeDeals looks up the cheapest current price per title.
	ModeDeals Mode = "deals"
	// ModeWishlist checks titles against a storefront user's wishlist.
	ModeWishlist Mode = "wishlist"
)

// State is the lifecycle of a whole run.
type State string

const (
	StateRunning   State = "running"
	StateDone      State = "done"
	StateCancelled State = "cancelled"
	StateFailed    State = "failed"
)

// Progress reports drain advancement for a running check.
type Progress struct {
	ChunksDone    int
	ChunksTotal   int
	NextRequestAt time.Time
}

// Run is one submitted check: its records, drain machinery, and state.
// HTTP readers snapshot concurrently with the drain loop, so record and
// state access stays behind the mutex.
type Run struct {
	ID        string
	Mode      Mode
	HasCards  bool
	CreatedAt time.Time

	runner *pipeline.Runner

	mu       sync.RWMutex
	state    State
	records  []*GameRecord
	progress Progress
	failure  string
}

func newRun(id string, mode Mode, names []string, hasCards bool, runner *pipeline.Runner) *Run {
	records := make([]*GameRecord, len(names))
	for i, name := range names {
		records[i] = &GameRecord{Name: name, Status: StatusPending}
	}

	return &Run{
		ID:        id,
		Mode:      mode,
		HasCards:  hasCards,
		CreatedAt: time.Now(),
		runner:    runner,
		state:     StateRunning,
		records:   records,
	}
}

// Cancel requests cooperative cancellation: the queue of unfetched chunks
// is dropped and a pending inter-chunk wait is woken. A pricing call
// already in flight is not aborted and its results still settle.
// Idempotent; a no-op once the run has reached a terminal state.
func (r *Run) Cancel() {
	r.runner.Cancel()
}

// Cancelled reports whether cancellation has been requested.
func (r *Run) Cancelled() bool {
	return r.runner.Cancelled()
}

// applyResolution writes resolver matches onto the records, marks
// unresolved ones not-found, and returns the ids to enqueue for pricing.
// Duplicate titles stay independent records and enqueue independently.
func (r *Run) applyResolution(matches []resolve.Match) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]int64, 0, len(matches))
	for i, m := range matches {
		if i >= len(r.records) {
			break
		}
		rec := r.records[i]
		rec.ID = m.ID
		rec.TradingCards = m.TradingCards
		if m.ID == 0 {
			rec.transition(StatusNotFound)
			continue
		}
		ids = append(ids, m.ID)
	}

	return ids
}

// applyPrices settles every pending record whose id is in the chunk: a
// listing yields found with the cheaper price, an explicit null (or a
// missing key) yields not-found.
func (r *Run) applyPrices(chunk []int64, prices PriceMap) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range chunk {
		info, listed := prices[id]
		for _, rec := range r.records {
			if rec.ID != id || rec.Status != StatusPending {
				continue
			}
			if !listed || info == nil {
				rec.transition(StatusNotFound)
				continue
			}
			if best, ok := info.Best(); ok {
				rec.Price.Decimal = best
				rec.Price.Valid = true
			}
			rec.Currency = info.Currency
			rec.transition(StatusFound)
		}
	}
}

// markError settles every pending record in a failed chunk as error.
func (r *Run) markError(chunk []int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range chunk {
		for _, rec := range r.records {
			if rec.ID == id && rec.Status == StatusPending {
				rec.transition(StatusError)
			}
		}
	}
}

// applyWishlist settles all records against the fetched wishlist: a
// resolved id present on the list is found with its metadata, a resolved
// id absent from it is not-found.
func (r *Run) applyWishlist(matches []resolve.Match, items map[int64]WishlistItem) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, m := range matches {
		if i >= len(r.records) {
			break
		}
		rec := r.records[i]
		if rec.Status != StatusPending {
			continue
		}
		rec.ID = m.ID
		if m.ID == 0 {
			rec.transition(StatusNotFound)
			continue
		}
		item, ok := items[m.ID]
		if !ok {
			rec.transition(StatusNotFound)
			continue
		}
		rec.DateAdded = item.DateAdded
		rec.Priority = item.Priority
		rec.transition(StatusFound)
	}
}

func (r *Run) setTotalChunks(total int) {
	r.mu.Lock()
	r.progress.ChunksTotal = total
	r.mu.Unlock()
}

func (r *Run) bumpProgress(nextAt time.Time) {
	r.mu.Lock()
	r.progress.ChunksDone++
	r.progress.NextRequestAt = nextAt
	r.mu.Unlock()
}

// finish marks the run done unless it already reached a terminal state.
func (r *Run) finish() {
	r.setState(StateDone)
}

// setCancelled marks the run cancelled. Records still pending stay
// pending; they were never fetched and carry no result.
func (r *Run) setCancelled() {
	r.setState(StateCancelled)
}

// fail marks the run failed and settles every pending record as error.
func (r *Run) fail(detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateRunning {
		return
	}
	r.state = StateFailed
	r.failure = detail
	for _, rec := range r.records {
		if rec.Status == StatusPending {
			rec.transition(StatusError)
		}
	}
}

func (r *Run) setState(s State) {
	r.mu.Lock()
	if r.state == StateRunning {
		r.state = s
	}
	r.mu.Unlock()
}

// Snapshot is a point-in-time copy of a run for rendering and export.
type Snapshot struct {
	ID        string
	Mode      Mode
	HasCards  bool
	State     State
	CreatedAt time.Time
	Failure   string
	Progress  Progress
	Records   []GameRecord
}

// Snapshot copies the run under the read lock.
func (r *Run) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]GameRecord, len(r.records))
	for i, rec := range r.records {
		records[i] = *rec
	}

	return Snapshot{
		ID:        r.ID,
		Mode:      r.Mode,
		HasCards:  r.HasCards,
		State:     r.state,
		CreatedAt: r.CreatedAt,
		Failure:   r.failure,
		Progress:  r.progress,
		Records:   records,
	}
}

// transition moves a record out of pending. Settled records never change
// again; late updates are dropped.
func (rec *GameRecord) transition(s Status) bool {
	if rec.Status != StatusPending {
		return false
	}
	rec.Status = s
	return true
}
