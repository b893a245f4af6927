// Package connection implements Connection, the per-client façade spec 4.8 describes: read operations that map to
// Queries, write operations that map to Commands, transaction construction, and the FetchNextJob protocol. Every
// read or write of MemoryState here is a dispatcher.Submit call under the hood; none of them touch it directly, so a
// Connection never needs its own locking.
package connection

import (
	"context"
	"time"

	"github.com/jobforge/forge/pkg/clock"
	"github.com/jobforge/forge/pkg/command"
	"github.com/jobforge/forge/pkg/dispatcher"
	"github.com/jobforge/forge/pkg/entities"
	"github.com/jobforge/forge/pkg/keys"
	"github.com/jobforge/forge/pkg/locktable"
	"github.com/jobforge/forge/pkg/options"
	"github.com/jobforge/forge/pkg/state"
	"github.com/jobforge/forge/pkg/storeerr"
	"github.com/jobforge/forge/pkg/txn"
	"github.com/jobforge/forge/pkg/waitlist"
)

// Connection is a per-client façade over the dispatcher and lock table. It holds its own set of currently-held lock
// handles, disposed by Close — mirroring Transaction's lock-tracking so a client that dies mid-hold does not
// deadlock the resource forever once its process-level cleanup runs Close.
type Connection[K comparable] struct {
	dispatcher *dispatcher.Dispatcher[K]
	locks      *locktable.Table
	clock      *clock.Clock
	opts       *options.Options
	provider   keys.Provider[K]
	owner      string

	held []string
}

// New constructs a Connection. owner must be unique per connection; it becomes the lock table's owner identity for
// every AcquireDistributedLock call made through this Connection.
func New[K comparable](d *dispatcher.Dispatcher[K], locks *locktable.Table, clk *clock.Clock, opts *options.Options,
	provider keys.Provider[K], owner string) *Connection[K] {
	return &Connection[K]{dispatcher: d, locks: locks, clock: clk, opts: opts, provider: provider, owner: owner}
}

// GetUtcDateTime returns the current time as a UTC wall-clock estimate, per MonotonicClock.to_wall_clock.
func (c *Connection[K]) GetUtcDateTime() time.Time {
	return c.clock.ToWallClock(c.clock.Now())
}

func (c *Connection[K]) submitCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.opts.CommandTimeout)
}

// ---- Writes ----

// CreateExpiredJob creates a job with the given invocation payload and parameters, expiring after expireIn.
func (c *Connection[K]) CreateExpiredJob(invocation []byte, params []entities.Param, createdAt state.Time,
	expireIn time.Duration) (K, error) {
	ctx, cancel := c.submitCtx()
	defer cancel()
	result, err := dispatcher.Submit(ctx, c.dispatcher, command.JobCreateCommand[K]{
		Key:            c.provider.Next(),
		InvocationData: invocation,
		Parameters:     params,
		Now:            createdAt,
		ExpireIn:       expireIn,
		HasExpireIn:    expireIn > 0,
	}.Execute)
	if err != nil {
		var zero K
		return zero, err
	}
	if result.Err != nil {
		var zero K
		return zero, result.Err
	}
	return result.Job.Key, nil
}

// SetJobParameter sets name to value on the job id; a missing job is a no-op.
func (c *Connection[K]) SetJobParameter(id K, name, value string) error {
	ctx, cancel := c.submitCtx()
	defer cancel()
	_, err := dispatcher.Submit(ctx, c.dispatcher, command.JobSetParameterCommand[K]{Key: id, Name: name, Value: value}.Execute)
	return err
}

// AnnounceServer registers a server polling queues with workerCount workers.
func (c *Connection[K]) AnnounceServer(id string, queues []string, workerCount int) error {
	ctx, cancel := c.submitCtx()
	defer cancel()
	_, err := dispatcher.Submit(ctx, c.dispatcher, command.ServerAnnounceCommand[K]{
		ID: id, Queues: queues, WorkerCount: workerCount, Now: c.clock.Now(),
	}.Execute)
	return err
}

// RemoveServer deletes the server registration at id.
func (c *Connection[K]) RemoveServer(id string) error {
	ctx, cancel := c.submitCtx()
	defer cancel()
	_, err := dispatcher.Submit(ctx, c.dispatcher, command.ServerDeleteCommand[K]{ID: id}.Execute)
	return err
}

// Heartbeat refreshes the heartbeat of the server at id, failing with ServerGone if it is not registered.
func (c *Connection[K]) Heartbeat(id string) error {
	ctx, cancel := c.submitCtx()
	defer cancel()
	result, err := dispatcher.Submit(ctx, c.dispatcher, command.ServerHeartbeatCommand[K]{ID: id, Now: c.clock.Now()}.Execute)
	if err != nil {
		return err
	}
	if !result.Known {
		return storeerr.ErrServerGone
	}
	return nil
}

// RemoveTimedOutServers deletes every server whose last heartbeat is older than timeout, returning the count removed.
func (c *Connection[K]) RemoveTimedOutServers(timeout time.Duration) (int, error) {
	ctx, cancel := c.submitCtx()
	defer cancel()
	result, err := dispatcher.Submit(ctx, c.dispatcher, command.ServerDeleteInactiveCommand[K]{Timeout: timeout, Now: c.clock.Now()}.Execute)
	return result.Removed, err
}

// AcquireDistributedLock blocks up to timeout acquiring resource, tracking the lock so Close releases it.
func (c *Connection[K]) AcquireDistributedLock(resource string, timeout time.Duration) error {
	if err := c.locks.TryAcquire(c.owner, resource, timeout); err != nil {
		return err
	}
	c.held = append(c.held, resource)
	return nil
}

// CreateWriteTransaction constructs a Transaction that shares this Connection's dispatcher and lock table.
func (c *Connection[K]) CreateWriteTransaction() *txn.Transaction[K] {
	return txn.New[K](c.dispatcher, c.locks)
}

// Close releases every lock this Connection acquired directly (not through a Transaction, which tracks its own).
func (c *Connection[K]) Close() {
	for _, resource := range c.held {
		_ = c.locks.Release(c.owner, resource)
	}
	c.held = nil
}

// ---- Job reads ----

func (c *Connection[K]) GetJobParameter(id K, name string) (string, bool, error) {
	ctx, cancel := c.submitCtx()
	defer cancel()
	return dispatcherSubmit3(ctx, c.dispatcher, func(s *state.MemoryState[K]) (string, bool) {
		job, ok := s.JobGet(id)
		if !ok {
			return "", false
		}
		return job.GetParameter(name)
	})
}

// JobData is the read-only snapshot get_job_data returns: the job itself, its load exception (if invocation
// deserialization failed — attached here rather than thrown, per spec 7), and a few convenience projections.
type JobData[K comparable] struct {
	Job               *entities.Job[K]
	LoadException     error
	CreatedAtUTC      time.Time
	StateName         string
	HasState          bool
	InvocationData    []byte
	ParametersSnapshot []entities.Param
}

// GetJobData returns a full read snapshot of the job at id, or ok=false if it does not exist.
func (c *Connection[K]) GetJobData(id K) (JobData[K], bool, error) {
	ctx, cancel := c.submitCtx()
	defer cancel()
	data, ok, err := dispatcherSubmit3(ctx, c.dispatcher, func(s *state.MemoryState[K]) (JobData[K], bool) {
		job, found := s.JobGet(id)
		if !found {
			return JobData[K]{}, false
		}
		d := JobData[K]{
			Job:            job,
			CreatedAtUTC:   c.clock.ToWallClock(job.CreatedAt),
			InvocationData: job.InvocationData,
			ParametersSnapshot: append([]entities.Param(nil), job.Parameters...),
		}
		if job.CurrentState != nil {
			d.StateName = job.CurrentState.Name
			d.HasState = true
		}
		return d, true
	})
	return data, ok, err
}

// StateData is the read-only snapshot get_state_data returns.
type StateData struct {
	Name   string
	Reason string
	Data   []entities.StateRecord
}

// GetStateData returns the current state of the job at id, or ok=false if the job has no current state (or does not
// exist).
func (c *Connection[K]) GetStateData(id K) (StateData, bool, error) {
	ctx, cancel := c.submitCtx()
	defer cancel()
	return dispatcherSubmit3(ctx, c.dispatcher, func(s *state.MemoryState[K]) (StateData, bool) {
		job, ok := s.JobGet(id)
		if !ok || job.CurrentState == nil {
			return StateData{}, false
		}
		return StateData{Name: job.CurrentState.Name, Reason: job.CurrentState.Reason}, true
	})
}

// ---- Sorted-set reads ----

func (c *Connection[K]) SortedSetAll(key string) ([]entities.Param, error) {
	ctx, cancel := c.submitCtx()
	defer cancel()
	return dispatcher.Submit(ctx, c.dispatcher, func(s *state.MemoryState[K]) []entities.Param {
		set, ok := s.SortedSetGet(key)
		if !ok {
			return nil
		}
		return set.All()
	})
}

func (c *Connection[K]) SortedSetFirstByLowestScore(key string, from, to float64) (string, bool, error) {
	values, err := c.sortedSetFirstByLowestScoreMultiple(key, from, to, 1)
	if err != nil || len(values) == 0 {
		return "", false, err
	}
	return values[0], true, nil
}

func (c *Connection[K]) SortedSetFirstByLowestScoreMultiple(key string, from, to float64, count int) ([]string, error) {
	return c.sortedSetFirstByLowestScoreMultiple(key, from, to, count)
}

func (c *Connection[K]) sortedSetFirstByLowestScoreMultiple(key string, from, to float64, count int) ([]string, error) {
	if from > to {
		return nil, storeerr.ErrInvalidArgument
	}
	ctx, cancel := c.submitCtx()
	defer cancel()
	return dispatcher.Submit(ctx, c.dispatcher, func(s *state.MemoryState[K]) []string {
		set, ok := s.SortedSetGet(key)
		if !ok {
			return nil
		}
		return set.FirstByLowestScore(from, to, count)
	})
}

func (c *Connection[K]) SortedSetContains(key, value string) (bool, error) {
	ctx, cancel := c.submitCtx()
	defer cancel()
	return dispatcher.Submit(ctx, c.dispatcher, func(s *state.MemoryState[K]) bool {
		set, ok := s.SortedSetGet(key)
		return ok && set.Contains(value)
	})
}

func (c *Connection[K]) SortedSetCount(key string) (int, error) {
	ctx, cancel := c.submitCtx()
	defer cancel()
	return dispatcher.Submit(ctx, c.dispatcher, func(s *state.MemoryState[K]) int {
		set, ok := s.SortedSetGet(key)
		if !ok {
			return 0
		}
		return set.Len()
	})
}

// SortedSetCountMultiple returns Len for each of keys (0 if absent), truncated to limit keys.
func (c *Connection[K]) SortedSetCountMultiple(keysList []string, limit int) (map[string]int, error) {
	if limit > 0 && len(keysList) > limit {
		keysList = keysList[:limit]
	}
	ctx, cancel := c.submitCtx()
	defer cancel()
	return dispatcher.Submit(ctx, c.dispatcher, func(s *state.MemoryState[K]) map[string]int {
		out := make(map[string]int, len(keysList))
		for _, key := range keysList {
			if set, ok := s.SortedSetGet(key); ok {
				out[key] = set.Len()
			} else {
				out[key] = 0
			}
		}
		return out
	})
}

func (c *Connection[K]) SortedSetRange(key string, start, stop int) ([]string, error) {
	ctx, cancel := c.submitCtx()
	defer cancel()
	return dispatcher.Submit(ctx, c.dispatcher, func(s *state.MemoryState[K]) []string {
		set, ok := s.SortedSetGet(key)
		if !ok {
			return nil
		}
		return set.Range(start, stop)
	})
}

func (c *Connection[K]) SortedSetTTL(key string) (time.Duration, bool, error) {
	ctx, cancel := c.submitCtx()
	defer cancel()
	return dispatcherSubmit3(ctx, c.dispatcher, func(s *state.MemoryState[K]) (time.Duration, bool) {
		set, ok := s.SortedSetGet(key)
		if !ok || set.ExpiresAt().Zero() {
			return 0, false
		}
		return set.ExpiresAt().Sub(c.clock.Now()), true
	})
}

// ---- List reads ----

func (c *Connection[K]) ListCount(key string) (int, error) {
	ctx, cancel := c.submitCtx()
	defer cancel()
	return dispatcher.Submit(ctx, c.dispatcher, func(s *state.MemoryState[K]) int {
		l, ok := s.ListGet(key)
		if !ok {
			return 0
		}
		return l.Len()
	})
}

func (c *Connection[K]) ListAll(key string) ([]string, error) {
	ctx, cancel := c.submitCtx()
	defer cancel()
	return dispatcher.Submit(ctx, c.dispatcher, func(s *state.MemoryState[K]) []string {
		l, ok := s.ListGet(key)
		if !ok {
			return nil
		}
		return l.All()
	})
}

func (c *Connection[K]) ListRange(key string, start, stop int) ([]string, error) {
	ctx, cancel := c.submitCtx()
	defer cancel()
	return dispatcher.Submit(ctx, c.dispatcher, func(s *state.MemoryState[K]) []string {
		l, ok := s.ListGet(key)
		if !ok {
			return nil
		}
		return l.Range(start, stop)
	})
}

func (c *Connection[K]) ListTTL(key string) (time.Duration, bool, error) {
	ctx, cancel := c.submitCtx()
	defer cancel()
	return dispatcherSubmit3(ctx, c.dispatcher, func(s *state.MemoryState[K]) (time.Duration, bool) {
		l, ok := s.ListGet(key)
		if !ok || l.ExpiresAt().Zero() {
			return 0, false
		}
		return l.ExpiresAt().Sub(c.clock.Now()), true
	})
}

// ---- Hash reads/writes ----

func (c *Connection[K]) HashCount(key string) (int, error) {
	ctx, cancel := c.submitCtx()
	defer cancel()
	return dispatcher.Submit(ctx, c.dispatcher, func(s *state.MemoryState[K]) int {
		h, ok := s.HashGet(key)
		if !ok {
			return 0
		}
		return h.Len()
	})
}

func (c *Connection[K]) HashAllEntries(key string) ([]entities.Param, error) {
	ctx, cancel := c.submitCtx()
	defer cancel()
	return dispatcher.Submit(ctx, c.dispatcher, func(s *state.MemoryState[K]) []entities.Param {
		h, ok := s.HashGet(key)
		if !ok {
			return nil
		}
		return h.AllEntries()
	})
}

func (c *Connection[K]) HashGetValue(key, field string) (string, bool, error) {
	ctx, cancel := c.submitCtx()
	defer cancel()
	return dispatcherSubmit3(ctx, c.dispatcher, func(s *state.MemoryState[K]) (string, bool) {
		h, ok := s.HashGet(key)
		if !ok {
			return "", false
		}
		return h.Get(field)
	})
}

func (c *Connection[K]) HashSetRange(key string, entries []entities.Param) error {
	ctx, cancel := c.submitCtx()
	defer cancel()
	_, err := dispatcher.Submit(ctx, c.dispatcher, command.HashSetRangeCommand[K]{Key: key, Entries: entries}.Execute)
	return err
}

func (c *Connection[K]) HashTTL(key string) (time.Duration, bool, error) {
	ctx, cancel := c.submitCtx()
	defer cancel()
	return dispatcherSubmit3(ctx, c.dispatcher, func(s *state.MemoryState[K]) (time.Duration, bool) {
		h, ok := s.HashGet(key)
		if !ok || h.ExpiresAt().Zero() {
			return 0, false
		}
		return h.ExpiresAt().Sub(c.clock.Now()), true
	})
}

// ---- Counter reads ----

func (c *Connection[K]) CounterGet(key string) (int64, bool, error) {
	ctx, cancel := c.submitCtx()
	defer cancel()
	return dispatcherSubmit3(ctx, c.dispatcher, func(s *state.MemoryState[K]) (int64, bool) {
		counter, ok := s.CounterGet(key)
		if !ok {
			return 0, false
		}
		return counter.Value, true
	})
}

// ---- FetchNextJob ----

// Fetched is the result of a successful FetchNextJob: the queue the job was dequeued from, and its key.
type Fetched[K comparable] struct {
	Queue string
	JobKey K
}

// FetchNextJob implements spec 4.8's fetch protocol: a fast path that tries every queue in argument order (priority,
// not fairness), then a slow path that parks on a wait node per queue, re-checking all queues on every wake and on
// cancel, with a 1-second re-check ceiling so cancellation is never starved.
func (c *Connection[K]) FetchNextJob(ctx context.Context, queues []string) (Fetched[K], error) {
	if len(queues) == 0 {
		var zero Fetched[K]
		return zero, storeerr.ErrInvalidArgument
	}

	if fetched, ok, err := c.tryFetchOnce(queues); err != nil || ok {
		return fetched, err
	}

	nodes := make([]*waitlist.Node, len(queues))
	for i, name := range queues {
		node := waitlist.NewNode()
		nodes[i] = node
		if err := c.registerWaiter(name, node); err != nil {
			var zero Fetched[K]
			return zero, err
		}
	}

	for {
		select {
		case <-ctx.Done():
			var zero Fetched[K]
			return zero, storeerr.ErrCancelled
		default:
		}

		sliceCtx, cancel := context.WithTimeout(ctx, time.Second)
		woken := c.waitAny(sliceCtx, nodes)
		cancel()

		if fetched, ok, err := c.tryFetchOnce(queues); err != nil || ok {
			return fetched, err
		}
		// The node(s) that fired are now one-shot-spent; re-arm them on their queue so a later enqueue can still
		// wake this fetcher, per the "event that fired is cleared and re-armed" step of the fetch protocol.
		for _, i := range woken {
			nodes[i] = waitlist.NewNode()
			if err := c.registerWaiter(queues[i], nodes[i]); err != nil {
				var zero Fetched[K]
				return zero, err
			}
		}
		if len(woken) > 0 {
			continue
		}
		if ctx.Err() != nil {
			var zero Fetched[K]
			return zero, storeerr.ErrCancelled
		}
	}
}

func (c *Connection[K]) tryFetchOnce(queues []string) (Fetched[K], bool, error) {
	ctx, cancel := c.submitCtx()
	defer cancel()
	type fetchResult struct {
		fetched Fetched[K]
		ok      bool
	}
	result, err := dispatcher.Submit(ctx, c.dispatcher, func(s *state.MemoryState[K]) fetchResult {
		for _, name := range queues {
			q := s.QueueGetOrCreate(name)
			if key, ok := q.Dequeue(); ok {
				q.Waiters.SignalOne()
				return fetchResult{fetched: Fetched[K]{Queue: name, JobKey: key}, ok: true}
			}
		}
		return fetchResult{}
	})
	if err != nil {
		var zero Fetched[K]
		return zero, false, err
	}
	return result.fetched, result.ok, nil
}

func (c *Connection[K]) registerWaiter(queueName string, node *waitlist.Node) error {
	ctx, cancel := c.submitCtx()
	defer cancel()
	_, err := dispatcher.Submit(ctx, c.dispatcher, func(s *state.MemoryState[K]) struct{} {
		s.QueueGetOrCreate(queueName).Waiters.Add(node)
		return struct{}{}
	})
	return err
}

// waitAny blocks until at least one node in nodes wakes or ctx is done, returning the indices of every node that
// fired (usually one, but a burst of concurrent enqueues can fire several in the same slice). Nodes that have not
// fired by the time the first one does are not joined: they're cancelled via a private context and abandoned, so a
// signal on one queue returns immediately instead of waiting out the rest of the slice on the others.
func (c *Connection[K]) waitAny(ctx context.Context, nodes []*waitlist.Node) []int {
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	fired := make(chan int, len(nodes))
	for i, node := range nodes {
		go func(i int, n *waitlist.Node) {
			if n.Wait(waitCtx) {
				fired <- i
			}
		}(i, node)
	}

	var woken []int
	select {
	case i := <-fired:
		woken = append(woken, i)
	case <-ctx.Done():
		return woken
	}
	cancel() // Unblock every node goroutine that hasn't fired yet; they were abandoned in their queue's wait-list.
	// Drain any further nodes that fired in the same instant without blocking further.
	for {
		select {
		case i := <-fired:
			woken = append(woken, i)
		default:
			return woken
		}
	}
}

// dispatcherSubmit3 adapts a (value, bool) query into a dispatcher.Submit round-trip, since dispatcher.Submit itself
// is single-return-value generic.
func dispatcherSubmit3[K comparable, V any](ctx context.Context, d *dispatcher.Dispatcher[K], fn func(*state.MemoryState[K]) (V, bool)) (V, bool, error) {
	type pair struct {
		value V
		ok    bool
	}
	p, err := dispatcher.Submit(ctx, d, func(s *state.MemoryState[K]) pair {
		v, ok := fn(s)
		return pair{value: v, ok: ok}
	})
	if err != nil {
		var zero V
		return zero, false, err
	}
	return p.value, p.ok, nil
}
