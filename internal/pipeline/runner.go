package pipeline

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/go-faster/errors"
)

// Sentinel errors for drain control flow.
var (
	ErrAlreadyRunning = errors.New("drain already in progress")
	ErrCancelled      = errors.New("drain cancelled")
)

// ChunkFunc handles one dequeued chunk. It owns its own failure handling:
// the loop keeps draining whatever it returns, so per-chunk errors must be
// recorded by the callback, not bubbled up.
type ChunkFunc func(ctx context.Context, ids []int64)

// Runner drains an id queue in FIFO chunks through a single loop. Exactly
// one upstream call is made per chunk, with pacing between consecutive
// chunks. A Runner belongs to one run and is not reusable after Cancel.
type Runner struct {
	chunkSize int
	pacer     *Pacer

	running    atomic.Bool
	cancelled  chan struct{}
	cancelOnce sync.Once
}

// NewRunner creates a Runner that dequeues at most chunkSize ids per call
// and paces consecutive chunks through pacer.
func NewRunner(chunkSize int, pacer *Pacer) *Runner {
	return &Runner{
		chunkSize: chunkSize,
		pacer:     pacer,
		cancelled: make(chan struct{}),
	}
}

// Run drains ids front to back, invoking fn once per chunk. It returns
// ErrAlreadyRunning when a drain is already active, making a second start
// a no-op for the caller. Cancellation is observed at chunk boundaries and
// within the inter-chunk wait; the chunk call in flight when Cancel
// arrives is never aborted, and the ids it was given still settle.
func (r *Runner) Run(ctx context.Context, ids []int64, fn ChunkFunc) error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer r.running.Store(false)

	// The pacer wait must wake on run cancellation as well as on ctx.
	waitCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() {
		select {
		case <-r.cancelled:
			stop()
		case <-waitCtx.Done():
		}
	}()

	for _, chunk := range Chunks(ids, r.chunkSize) {
		select {
		case <-r.cancelled:
			return ErrCancelled
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Every chunk takes a permit, so the first request of a fresh run
		// is paced against whatever request the pacer saw last.
		if err := r.pacer.Take(waitCtx); err != nil {
			if r.Cancelled() {
				return ErrCancelled
			}
			return err
		}

		fn(ctx, chunk)
	}

	return nil
}

// Cancel drops all chunks not yet handed to the ChunkFunc and wakes a
// pending inter-chunk wait. Idempotent.
func (r *Runner) Cancel() {
	r.cancelOnce.Do(func() { close(r.cancelled) })
}

// Cancelled reports whether Cancel has been called.
func (r *Runner) Cancelled() bool {
	select {
	case <-r.cancelled:
		return true
	default:
		return false
	}
}

// Running reports whether a drain loop is active.
func (r *Runner) Running() bool {
	return r.running.Load()
}

// Chunks splits ids into consecutive slices of at most size elements,
// preserving order. A non-positive size yields a single chunk.
func Chunks(ids []int64, size int) [][]int64 {
	if len(ids) == 0 {
		return nil
	}
	if size <= 0 {
		return [][]int64{ids}
	}

	out := make([][]int64, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		out = append(out, ids[start:end])
	}

	return out
}
