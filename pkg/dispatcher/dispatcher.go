// Package dispatcher implements the engine's single writer: one goroutine owns a *state.MemoryState and runs every
// mutating command against it, so concurrent clients never observe a torn or interleaved update. Read queries that
// only touch snapshot-immutable substructure may bypass the dispatcher (the "fast path" of spec 4.5); everything
// else is submitted here.
package dispatcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/jobforge/forge/pkg/clock"
	"github.com/jobforge/forge/pkg/state"
	"github.com/jobforge/forge/pkg/storeerr"
)

// waitSlice bounds how long the worker waits on its semaphore before running an eviction pass instead.
const waitSlice = time.Second

// EvictionReport summarizes one evict_expired_entries pass, by entity kind.
type EvictionReport struct {
	Jobs, Hashes, Lists, Sets, Counters int
	Duration                           time.Duration
}

// Dispatcher is the single worker thread described in spec 4.5. Construct with New, start with Run (typically in
// its own goroutine), and stop with Stop.
type Dispatcher[K comparable] struct {
	state *state.MemoryState[K]
	clock *clock.Clock

	mu    sync.Mutex
	queue []func(*state.MemoryState[K])

	sem         *semaphore.Weighted
	outstanding atomic.Bool
	stopping    atomic.Bool
	stopped     chan struct{}

	// seq counts every callback the worker has run against live state, including eviction ticks. pkg/monitoring
	// tags its cached snapshots with the value observed when they were built, so a snapshot built before the most
	// recent eviction tick is never confused with one built after it.
	seq atomic.Uint64

	// onEvict, if set, is invoked after every eviction pass (including no-op ones), letting pkg/monitoring refresh
	// its read-through cache in lockstep with the dispatcher's notion of "now".
	onEvict func(EvictionReport)
}

// New constructs a Dispatcher over state, using clk to timestamp eviction ticks. The worker does not start until
// Run is called.
func New[K comparable](st *state.MemoryState[K], clk *clock.Clock) *Dispatcher[K] {
	sem := semaphore.NewWeighted(1)
	sem.TryAcquire(1) // Hold the only token so the worker's Acquire blocks until a submission releases it.
	return &Dispatcher[K]{
		state:   st,
		clock:   clk,
		sem:     sem,
		stopped: make(chan struct{}),
	}
}

// OnEvict registers a callback invoked after every eviction tick. Not safe to call concurrently with Run.
func (d *Dispatcher[K]) OnEvict(fn func(EvictionReport)) { d.onEvict = fn }

// Run is the worker loop; it blocks until Stop is called (or ctx is cancelled) and then drains any remaining
// callbacks with Cancelled before returning. Run must be called at most once.
func (d *Dispatcher[K]) Run(ctx context.Context) {
	defer close(d.stopped)
	for {
		waitCtx, cancel := context.WithTimeout(ctx, waitSlice)
		err := d.sem.Acquire(waitCtx, 1)
		cancel()

		if d.stopping.Load() || ctx.Err() != nil {
			d.drain(func(fn func(*state.MemoryState[K])) { fn(nil) })
			return
		}

		if err == nil {
			d.outstanding.Store(false)
			d.drain(func(fn func(*state.MemoryState[K])) { fn(d.state); d.seq.Add(1) })
		} else {
			d.runEviction()
			d.seq.Add(1)
		}
	}
}

// drain empties the submit queue, applying run to each callback in FIFO (submission) order.
func (d *Dispatcher[K]) drain(run func(func(*state.MemoryState[K]))) {
	d.mu.Lock()
	pending := d.queue
	d.queue = nil
	d.mu.Unlock()
	queuedCallbacks.Set(0)
	for _, fn := range pending {
		run(fn)
	}
}

func (d *Dispatcher[K]) runEviction() {
	start := time.Now()
	jobs, hashes, lists, sets, counters := d.state.EvictExpired(d.clock.Now())
	report := EvictionReport{Jobs: jobs, Hashes: hashes, Lists: lists, Sets: sets, Counters: counters, Duration: time.Since(start)}

	evictionTickSeconds.Observe(report.Duration.Seconds())
	entitiesEvicted.WithLabelValues("job").Add(float64(jobs))
	entitiesEvicted.WithLabelValues("hash").Add(float64(hashes))
	entitiesEvicted.WithLabelValues("list").Add(float64(lists))
	entitiesEvicted.WithLabelValues("sorted_set").Add(float64(sets))
	entitiesEvicted.WithLabelValues("counter").Add(float64(counters))

	if d.onEvict != nil {
		d.onEvict(report)
	}
}

// Sequence returns the number of callbacks (commands, queries, and eviction ticks) the worker has run so far. It is
// safe to call from any goroutine.
func (d *Dispatcher[K]) Sequence() uint64 { return d.seq.Load() }

// Stop signals the worker to drain and exit, blocking until it has. Pending callbacks complete with Cancelled;
// submissions observed after Stop has been called fail with ServerGone.
func (d *Dispatcher[K]) Stop() {
	d.stopping.Store(true)
	if d.outstanding.CompareAndSwap(false, true) {
		d.sem.Release(1) // Wake the worker so it notices stopping even if idle.
	}
	<-d.stopped
}

// submit enqueues fn for the worker to run against live state, waking it if it was idle. It fails with ServerGone
// once Stop has been called or the worker has exited.
func (d *Dispatcher[K]) submit(fn func(*state.MemoryState[K])) error {
	select {
	case <-d.stopped:
		return storeerr.ErrServerGone
	default:
	}
	if d.stopping.Load() {
		return storeerr.ErrServerGone
	}

	d.mu.Lock()
	d.queue = append(d.queue, fn)
	queuedCallbacks.Set(float64(len(d.queue)))
	d.mu.Unlock()

	if d.outstanding.CompareAndSwap(false, true) {
		d.sem.Release(1)
	}
	return nil
}

// Submit runs fn against live MemoryState on the dispatcher's worker goroutine and returns its result. It blocks
// until fn has run, the worker drains it with Cancelled (shutdown), or ctx is done (CommandTimeout) — whichever
// happens first; on a ctx deadline the callback may still complete later; the engine tolerates the discarded
// result, per spec 4.5.
func Submit[K comparable, R any](ctx context.Context, d *Dispatcher[K], fn func(*state.MemoryState[K]) R) (R, error) {
	var (
		result R
		zero   R
		runErr error
		done   = make(chan struct{})
	)
	wrapped := func(s *state.MemoryState[K]) {
		if s == nil {
			runErr = storeerr.ErrCancelled
		} else {
			result = fn(s)
		}
		close(done)
	}
	if err := d.submit(wrapped); err != nil {
		return zero, err
	}

	select {
	case <-done:
		return result, runErr
	case <-ctx.Done():
		commandTimeouts.Inc()
		if errors.Is(ctx.Err(), context.Canceled) {
			return zero, storeerr.ErrCancelled
		}
		return zero, storeerr.ErrCommandTimeout
	}
}
