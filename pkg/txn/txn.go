// Package txn implements Transaction, the engine's write-batching façade. A Transaction accumulates two ordered
// action lists — effects and queue-enqueues — and ships them to the dispatcher as a single callback on Commit, so a
// consumer can never observe a queue entry before the job state it refers to (spec 4.7). Locks acquired through the
// transaction are tracked and released on Dispose, including Commit's finally-path.
package txn

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jobforge/forge/pkg/command"
	"github.com/jobforge/forge/pkg/dispatcher"
	"github.com/jobforge/forge/pkg/entities"
	"github.com/jobforge/forge/pkg/locktable"
	"github.com/jobforge/forge/pkg/state"
	"github.com/jobforge/forge/pkg/waitlist"
)

type effect[K comparable] func(s *state.MemoryState[K])

// Transaction batches effects and queue-enqueues for one atomic Commit against the dispatcher. It is not safe for
// concurrent use by multiple goroutines; a Connection hands each caller its own Transaction.
type Transaction[K comparable] struct {
	dispatcher *dispatcher.Dispatcher[K]
	locks      *locktable.Table

	owner string // unique per transaction, used as the lock table's owner identity

	mu            sync.Mutex
	effects       []effect[K]
	enqueues      []effect[K]
	touchedQueues map[string]struct{}
	heldResources []string
	disposed      bool
}

// New constructs an empty Transaction against d, tracking distributed locks acquired through locks.
func New[K comparable](d *dispatcher.Dispatcher[K], locks *locktable.Table) *Transaction[K] {
	return &Transaction[K]{
		dispatcher:    d,
		locks:         locks,
		owner:         uuid.NewString(),
		touchedQueues: make(map[string]struct{}),
	}
}

// addEffect wraps a command's Execute method (which returns a typed, unused-here result) into a bare effect[K] and
// appends it to the pending list.
func addEffect[K comparable, R any](t *Transaction[K], execute func(*state.MemoryState[K]) R) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.effects = append(t.effects, func(s *state.MemoryState[K]) { execute(s) })
}

// ---- Jobs ----

// ExpireJob re-clamps and re-indexes a job's TTL.
func (t *Transaction[K]) ExpireJob(key K, now state.Time, expireIn time.Duration, ignoreMax bool) {
	addEffect(t, command.JobExpireCommand[K]{Key: key, Now: now, ExpireIn: expireIn, HasExpireIn: true, IgnoreMax: ignoreMax}.Execute)
}

// PersistJob clears a job's expiration, making it permanent.
func (t *Transaction[K]) PersistJob(key K) {
	addEffect(t, command.JobExpireCommand[K]{Key: key, HasExpireIn: false}.Execute)
}

// SetJobState appends record to the job's history and promotes it to the job's current state.
func (t *Transaction[K]) SetJobState(key K, record entities.StateRecord) {
	addEffect(t, command.JobAddStateCommand[K]{Key: key, Record: record, SetCurrent: true}.Execute)
}

// AddJobState appends record to the job's history without changing its current state.
func (t *Transaction[K]) AddJobState(key K, record entities.StateRecord) {
	addEffect(t, command.JobAddStateCommand[K]{Key: key, Record: record, SetCurrent: false}.Execute)
}

// ---- Queues ----

// AddToQueue enqueues key onto the named queue. The queue is signalled once, after Commit returns successfully, not
// while effects are still applying — so a waiter that wakes on the signal is guaranteed to see every prior effect.
func (t *Transaction[K]) AddToQueue(name string, key K) {
	execute := command.QueueEnqueueCommand[K]{Name: name, Key: key}.Execute
	t.mu.Lock()
	defer t.mu.Unlock()
	t.touchedQueues[name] = struct{}{}
	t.enqueues = append(t.enqueues, func(s *state.MemoryState[K]) { execute(s) })
}

// RemoveFromQueue is a no-op: this engine's queues are append-only FIFOs drained by FetchNextJob, and nothing else
// removes an entry by value. The method exists to keep the Transaction contract complete for callers migrating
// from an engine where queues support arbitrary removal.
func (t *Transaction[K]) RemoveFromQueue(string, K) {}

// ---- Counters ----

func (t *Transaction[K]) CounterIncrement(key string, delta int64, now state.Time, expireIn time.Duration, hasExpireIn bool) {
	addEffect(t, command.CounterIncrementCommand[K]{Key: key, Delta: delta, Now: now, ExpireIn: expireIn, HasExpireIn: hasExpireIn}.Execute)
}

func (t *Transaction[K]) CounterDecrement(key string, delta int64, now state.Time, expireIn time.Duration, hasExpireIn bool) {
	t.CounterIncrement(key, -delta, now, expireIn, hasExpireIn)
}

// ---- Sorted sets ----

func (t *Transaction[K]) SortedSetAdd(key, value string, score float64) {
	addEffect(t, command.SortedSetAddCommand[K]{Key: key, Value: value, Score: score}.Execute)
}

func (t *Transaction[K]) SortedSetAddRange(key string, members []state.ScoredValue) {
	addEffect(t, command.SortedSetAddRangeCommand[K]{Key: key, Values: members}.Execute)
}

func (t *Transaction[K]) SortedSetRemove(key, value string) {
	addEffect(t, command.SortedSetRemoveCommand[K]{Key: key, Value: value}.Execute)
}

func (t *Transaction[K]) SortedSetDelete(key string) {
	addEffect(t, command.SortedSetDeleteCommand[K]{Key: key}.Execute)
}

func (t *Transaction[K]) SortedSetExpire(key string, now state.Time, expireIn time.Duration, ignoreMax bool) {
	addEffect(t, command.SortedSetExpireCommand[K]{Key: key, Now: now, ExpireIn: expireIn, HasExpireIn: true, IgnoreMax: ignoreMax}.Execute)
}

func (t *Transaction[K]) SortedSetPersist(key string) {
	addEffect(t, command.SortedSetExpireCommand[K]{Key: key, HasExpireIn: false}.Execute)
}

// ---- Lists ----

func (t *Transaction[K]) ListInsert(key, value string) {
	addEffect(t, command.ListInsertCommand[K]{Key: key, Value: value}.Execute)
}

func (t *Transaction[K]) ListRemoveAll(key, value string) {
	addEffect(t, command.ListRemoveAllCommand[K]{Key: key, Value: value}.Execute)
}

func (t *Transaction[K]) ListTrim(key string, start, stop int) {
	addEffect(t, command.ListTrimCommand[K]{Key: key, Start: start, Stop: stop}.Execute)
}

func (t *Transaction[K]) ListExpire(key string, now state.Time, expireIn time.Duration, ignoreMax bool) {
	addEffect(t, command.ListExpireCommand[K]{Key: key, Now: now, ExpireIn: expireIn, HasExpireIn: true, IgnoreMax: ignoreMax}.Execute)
}

func (t *Transaction[K]) ListPersist(key string) {
	addEffect(t, command.ListExpireCommand[K]{Key: key, HasExpireIn: false}.Execute)
}

// ---- Hashes ----

func (t *Transaction[K]) HashSetRange(key string, entries []entities.Param) {
	addEffect(t, command.HashSetRangeCommand[K]{Key: key, Entries: entries}.Execute)
}

func (t *Transaction[K]) HashRemove(key, field string) {
	addEffect(t, command.HashRemoveCommand[K]{Key: key, Field: field}.Execute)
}

func (t *Transaction[K]) HashExpire(key string, now state.Time, expireIn time.Duration, ignoreMax bool) {
	addEffect(t, command.HashExpireCommand[K]{Key: key, Now: now, ExpireIn: expireIn, HasExpireIn: true, IgnoreMax: ignoreMax}.Execute)
}

func (t *Transaction[K]) HashPersist(key string) {
	addEffect(t, command.HashExpireCommand[K]{Key: key, HasExpireIn: false}.Execute)
}

// ---- Locks ----

// AcquireDistributedLock blocks up to timeout acquiring resource, tracking it so Dispose (and Commit's
// finally-path) releases it automatically.
func (t *Transaction[K]) AcquireDistributedLock(resource string, timeout time.Duration) error {
	if err := t.locks.TryAcquire(t.owner, resource, timeout); err != nil {
		return err
	}
	t.mu.Lock()
	t.heldResources = append(t.heldResources, resource)
	t.mu.Unlock()
	return nil
}

// ---- Commit / Dispose ----

// Commit submits every accumulated effect, then every queue-enqueue, as a single dispatcher callback — so they run
// atomically with respect to every other client — and, only once that callback has returned successfully, signals
// one waiter on each touched queue. If ctx expires first, the signals are skipped: waking a worker early is a
// best-effort hint, never a correctness requirement.
func (t *Transaction[K]) Commit(ctx context.Context) error {
	defer t.Dispose()
	t.mu.Lock()
	effects := t.effects
	enqueues := t.enqueues
	touched := make([]string, 0, len(t.touchedQueues))
	for name := range t.touchedQueues {
		touched = append(touched, name)
	}
	t.mu.Unlock()

	waiters, err := dispatcher.Submit(ctx, t.dispatcher, func(s *state.MemoryState[K]) []*waitlist.List {
		for _, e := range effects {
			e(s)
		}
		for _, e := range enqueues {
			e(s)
		}
		out := make([]*waitlist.List, 0, len(touched))
		for _, name := range touched {
			out = append(out, s.QueueGetOrCreate(name).Waiters)
		}
		return out
	})
	if err != nil {
		return err
	}
	for _, w := range waiters {
		w.SignalOne()
	}
	return nil
}

// Dispose releases every lock this transaction acquired. It is idempotent and safe to call after Commit (as its
// finally-path) or instead of Commit when the transaction is abandoned.
func (t *Transaction[K]) Dispose() {
	t.mu.Lock()
	if t.disposed {
		t.mu.Unlock()
		return
	}
	t.disposed = true
	resources := t.heldResources
	t.heldResources = nil
	t.mu.Unlock()

	for _, resource := range resources {
		_ = t.locks.Release(t.owner, resource)
	}
}
