// Package health provides Kubernetes-style liveness and readiness probes.
//
// Every registered check runs on its own goroutine at a fixed interval.
// Consecutive-failure and consecutive-success thresholds keep a flaky check
// from flapping the reported state on every run.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc probes one component. It returns nil when the component is
// healthy and an error describing the problem otherwise.
type CheckFunc func(ctx context.Context) error

// probe is one registered check plus its runtime state.
//
// run is only ever called from the probe's own goroutine, so the counters
// need no locking. healthy and lastErr are read by HTTP handlers from
// arbitrary goroutines and use atomics.
type probe struct {
	name      string
	timeout   time.Duration
	fn        CheckFunc
	failAfter int
	okAfter   int

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	fails int
	oks   int
}

func (p *probe) isHealthy() bool {
	return p.healthy.Load()
}

func (p *probe) lastError() error {
	if e := p.lastErr.Load(); e != nil {
		return *e
	}
	return nil
}

// run executes the check once and applies the thresholds.
func (p *probe) run(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.fn(checkCtx)
	p.lastErr.Store(&err)

	if err != nil {
		p.oks = 0
		p.fails++
		if p.fails >= p.failAfter {
			p.healthy.Store(false)
		}
		return
	}
	p.fails = 0
	p.oks++
	if p.oks >= p.okAfter {
		p.healthy.Store(true)
	}
}

// Option adjusts how a single check is evaluated.
type Option func(*probe)

// WithFailureThreshold sets how many consecutive failures flip a check to
// unhealthy. The default is 3.
func WithFailureThreshold(n int) Option {
	return func(p *probe) {
		if n > 0 {
			p.failAfter = n
		}
	}
}

// WithSuccessThreshold sets how many consecutive successes flip a failed
// check back to healthy. The default is 1.
func WithSuccessThreshold(n int) Option {
	return func(p *probe) {
		if n > 0 {
			p.okAfter = n
		}
	}
}

// Health tracks liveness and readiness checks for a service.
type Health struct {
	ready atomic.Bool

	// mu guards the probe slices and cancel. Handlers copy a slice under
	// RLock and release it before touching probe state.
	mu        sync.RWMutex
	liveness  []*probe
	readiness []*probe
	cancel    context.CancelFunc
}

// New creates a Health instance. The service starts not ready; call
// SetReady(true) once initialization is complete.
func New() *Health {
	return &Health{}
}

func newProbe(name string, timeout time.Duration, fn CheckFunc, opts []Option) *probe {
	p := &probe{
		name:      name,
		timeout:   timeout,
		fn:        fn,
		failAfter: 3,
		okAfter:   1,
	}
	for _, opt := range opts {
		opt(p)
	}
	// Healthy until the thresholds say otherwise.
	p.healthy.Store(true)
	return p
}

// AddLivenessCheck registers a check that decides whether the process is
// alive at all, such as goroutine counts or GC pause times. A failing
// liveness check typically gets the process restarted.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc, opts ...Option) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.liveness = append(h.liveness, newProbe(name, timeout, fn, opts))
}

// AddReadinessCheck registers a check that decides whether the service can
// take traffic, such as cache availability or upstream reachability. A
// failing readiness check removes the instance from rotation without
// restarting it.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc, opts ...Option) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readiness = append(h.readiness, newProbe(name, timeout, fn, opts))
}

// Start launches one goroutine per registered check, each firing at the
// given interval. Register all checks before calling Start.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	probes := make([]*probe, 0, len(h.liveness)+len(h.readiness))
	probes = append(probes, h.liveness...)
	probes = append(probes, h.readiness...)
	h.mu.Unlock()

	for _, p := range probes {
		go runProbe(ctx, p, interval)
	}
}

// runProbe executes a single probe until the context is cancelled.
func runProbe(ctx context.Context, p *probe, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// First run happens immediately, not one interval in.
	p.run(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.run(ctx)
		}
	}
}

// Stop cancels all probe goroutines. Safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady flips the manual readiness gate. Call with true after startup
// and with false at the beginning of graceful shutdown so load balancers
// stop sending new traffic.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the service should receive traffic: the manual
// gate must be open and every readiness check passing.
func (h *Health) IsReady() bool {
	if !h.ready.Load() {
		return false
	}

	h.mu.RLock()
	probes := h.readiness
	h.mu.RUnlock()

	for _, p := range probes {
		if !p.isHealthy() {
			return false
		}
	}
	return true
}

// statusResponse is the JSON body served by both endpoints.
type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves the /livez probe: 200 with {"status":"ok"} while all
// liveness checks pass, 503 with the failing checks otherwise.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	probes := make([]*probe, len(h.liveness))
	copy(probes, h.liveness)
	h.mu.RUnlock()

	writeStatus(w, failures(probes))
}

// ReadyEndpoint serves the /readyz probe: 200 only when the manual gate is
// open and every readiness check passes.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	ready := h.ready.Load()

	h.mu.RLock()
	probes := make([]*probe, len(h.readiness))
	copy(probes, h.readiness)
	h.mu.RUnlock()

	failed := failures(probes)
	if !ready {
		failed["_readiness"] = "service is not ready"
	}
	writeStatus(w, failed)
}

// failures maps the name of every unhealthy probe to its last error. The
// stored error is used as-is; probes are never re-executed on request.
func failures(probes []*probe) map[string]string {
	failed := make(map[string]string)
	for _, p := range probes {
		if p.isHealthy() {
			continue
		}
		if err := p.lastError(); err != nil {
			failed[p.name] = err.Error()
		} else {
			failed[p.name] = "check is unhealthy"
		}
	}
	return failed
}

func writeStatus(w http.ResponseWriter, failed map[string]string) {
	w.Header().Set("Content-Type", "application/json")

	resp := statusResponse{Status: "ok"}
	status := http.StatusOK
	if len(failed) > 0 {
		resp.Status = "unhealthy"
		resp.Checks = failed
		status = http.StatusServiceUnavailable
	}

	w.WriteHeader(status)
	// The status line is out the door, so encode errors are unrecoverable
	// and almost certainly a disconnected client.
	_ = json.NewEncoder(w).Encode(resp)
}
