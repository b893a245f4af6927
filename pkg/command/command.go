// Package command is the catalogue of mutating operations the dispatcher runs against MemoryState. Each command is
// a plain value — parameters plus an Execute method — following the teacher's SetCommand/SetResult shape: callers
// build a command, the dispatcher (and only the dispatcher) calls Execute, and the returned result carries any
// failure instead of the call panicking or returning a bare error from deep inside the single writer goroutine.
package command

import (
	"time"

	"github.com/jobforge/forge/pkg/entities"
	"github.com/jobforge/forge/pkg/state"
)

// ---- Jobs ----

// JobCreateCommand inserts a new job. ExpireIn/HasExpireIn/IgnoreMax mirror MemoryState.JobCreate's TTL parameters.
type JobCreateCommand[K comparable] struct {
	Key            K
	InvocationData []byte
	Parameters     []entities.Param
	Now            state.Time
	ExpireIn       time.Duration
	HasExpireIn    bool
	IgnoreMax      bool
}

// JobCreateResult carries the created job, or the error if Key already existed.
type JobCreateResult[K comparable] struct {
	Job *entities.Job[K]
	Err error
}

func (c JobCreateCommand[K]) Execute(s *state.MemoryState[K]) JobCreateResult[K] {
	job, err := s.JobCreate(c.Key, c.InvocationData, c.Parameters, c.Now, c.ExpireIn, c.HasExpireIn, c.IgnoreMax)
	return JobCreateResult[K]{Job: job, Err: err}
}

// JobSetParameterCommand sets one parameter on an existing job; a missing job is a no-op.
type JobSetParameterCommand[K comparable] struct {
	Key   K
	Name  string
	Value string
}

type JobSetParameterResult struct{}

func (c JobSetParameterCommand[K]) Execute(s *state.MemoryState[K]) JobSetParameterResult {
	s.JobSetParameter(c.Key, c.Name, c.Value)
	return JobSetParameterResult{}
}

// JobExpireCommand re-clamps and re-indexes a job's TTL.
type JobExpireCommand[K comparable] struct {
	Key         K
	Now         state.Time
	ExpireIn    time.Duration
	HasExpireIn bool
	IgnoreMax   bool
}

type JobExpireResult struct{}

func (c JobExpireCommand[K]) Execute(s *state.MemoryState[K]) JobExpireResult {
	s.JobExpire(c.Key, c.Now, c.ExpireIn, c.HasExpireIn, c.IgnoreMax)
	return JobExpireResult{}
}

// JobAddStateCommand appends Record to the job's bounded history, optionally (SetCurrent) making it the job's
// current state and moving its state-index bucket.
type JobAddStateCommand[K comparable] struct {
	Key        K
	Record     entities.StateRecord
	SetCurrent bool
}

type JobAddStateResult struct{}

func (c JobAddStateCommand[K]) Execute(s *state.MemoryState[K]) JobAddStateResult {
	s.JobSetState(c.Key, c.Record, c.SetCurrent)
	return JobAddStateResult{}
}

// JobDeleteCommand removes a job and every index entry referencing it.
type JobDeleteCommand[K comparable] struct {
	Key K
}

type JobDeleteResult struct{}

func (c JobDeleteCommand[K]) Execute(s *state.MemoryState[K]) JobDeleteResult {
	s.JobDelete(c.Key)
	return JobDeleteResult{}
}

// ---- Hashes ----

type HashSetRangeCommand[K comparable] struct {
	Key     string
	Entries []entities.Param
}

type HashSetRangeResult struct{}

func (c HashSetRangeCommand[K]) Execute(s *state.MemoryState[K]) HashSetRangeResult {
	s.HashSetRange(c.Key, c.Entries)
	return HashSetRangeResult{}
}

type HashRemoveCommand[K comparable] struct {
	Key   string
	Field string
}

type HashRemoveResult struct{ Removed bool }

func (c HashRemoveCommand[K]) Execute(s *state.MemoryState[K]) HashRemoveResult {
	return HashRemoveResult{Removed: s.HashRemove(c.Key, c.Field)}
}

type HashExpireCommand[K comparable] struct {
	Key         string
	Now         state.Time
	ExpireIn    time.Duration
	HasExpireIn bool
	IgnoreMax   bool
}

type HashExpireResult struct{}

func (c HashExpireCommand[K]) Execute(s *state.MemoryState[K]) HashExpireResult {
	s.HashExpire(c.Key, c.Now, c.ExpireIn, c.HasExpireIn, c.IgnoreMax)
	return HashExpireResult{}
}

// ---- Lists ----

type ListInsertCommand[K comparable] struct {
	Key   string
	Value string
}

type ListInsertResult struct{}

func (c ListInsertCommand[K]) Execute(s *state.MemoryState[K]) ListInsertResult {
	s.ListInsert(c.Key, c.Value)
	return ListInsertResult{}
}

type ListRemoveAllCommand[K comparable] struct {
	Key   string
	Value string
}

type ListRemoveAllResult struct{ Removed int }

func (c ListRemoveAllCommand[K]) Execute(s *state.MemoryState[K]) ListRemoveAllResult {
	return ListRemoveAllResult{Removed: s.ListRemoveAll(c.Key, c.Value)}
}

type ListTrimCommand[K comparable] struct {
	Key         string
	Start, Stop int
}

type ListTrimResult struct{}

func (c ListTrimCommand[K]) Execute(s *state.MemoryState[K]) ListTrimResult {
	s.ListTrim(c.Key, c.Start, c.Stop)
	return ListTrimResult{}
}

type ListExpireCommand[K comparable] struct {
	Key         string
	Now         state.Time
	ExpireIn    time.Duration
	HasExpireIn bool
	IgnoreMax   bool
}

type ListExpireResult struct{}

func (c ListExpireCommand[K]) Execute(s *state.MemoryState[K]) ListExpireResult {
	s.ListExpire(c.Key, c.Now, c.ExpireIn, c.HasExpireIn, c.IgnoreMax)
	return ListExpireResult{}
}

// ---- Sorted sets ----

type SortedSetAddCommand[K comparable] struct {
	Key   string
	Value string
	Score float64
}

type SortedSetAddResult struct{}

func (c SortedSetAddCommand[K]) Execute(s *state.MemoryState[K]) SortedSetAddResult {
	s.SortedSetAdd(c.Key, c.Value, c.Score)
	return SortedSetAddResult{}
}

type SortedSetAddRangeCommand[K comparable] struct {
	Key    string
	Values []state.ScoredValue
}

type SortedSetAddRangeResult struct{}

func (c SortedSetAddRangeCommand[K]) Execute(s *state.MemoryState[K]) SortedSetAddRangeResult {
	s.SortedSetAddRange(c.Key, c.Values)
	return SortedSetAddRangeResult{}
}

type SortedSetRemoveCommand[K comparable] struct {
	Key   string
	Value string
}

type SortedSetRemoveResult struct{ Removed bool }

func (c SortedSetRemoveCommand[K]) Execute(s *state.MemoryState[K]) SortedSetRemoveResult {
	return SortedSetRemoveResult{Removed: s.SortedSetRemove(c.Key, c.Value)}
}

type SortedSetDeleteCommand[K comparable] struct {
	Key string
}

type SortedSetDeleteResult struct{}

func (c SortedSetDeleteCommand[K]) Execute(s *state.MemoryState[K]) SortedSetDeleteResult {
	s.SortedSetDelete(c.Key)
	return SortedSetDeleteResult{}
}

type SortedSetExpireCommand[K comparable] struct {
	Key         string
	Now         state.Time
	ExpireIn    time.Duration
	HasExpireIn bool
	IgnoreMax   bool
}

type SortedSetExpireResult struct{}

func (c SortedSetExpireCommand[K]) Execute(s *state.MemoryState[K]) SortedSetExpireResult {
	s.SortedSetExpire(c.Key, c.Now, c.ExpireIn, c.HasExpireIn, c.IgnoreMax)
	return SortedSetExpireResult{}
}

// ---- Counters ----

// CounterIncrementCommand adds Delta to the counter at Key, optionally re-clamping its TTL.
type CounterIncrementCommand[K comparable] struct {
	Key         string
	Delta       int64
	Now         state.Time
	ExpireIn    time.Duration
	HasExpireIn bool
}

type CounterIncrementResult struct{ Value int64 }

func (c CounterIncrementCommand[K]) Execute(s *state.MemoryState[K]) CounterIncrementResult {
	return CounterIncrementResult{Value: s.CounterIncrement(c.Key, c.Delta, c.Now, c.ExpireIn, c.HasExpireIn)}
}

// ---- Queues ----

// QueueEnqueueCommand pushes Key onto the named queue and records the queue name into EnqueuedSet so the caller
// (a Transaction) can signal its waiters once the surrounding commit has returned successfully.
type QueueEnqueueCommand[K comparable] struct {
	Name        string
	Key         K
	EnqueuedSet map[string]struct{}
}

type QueueEnqueueResult struct{}

func (c QueueEnqueueCommand[K]) Execute(s *state.MemoryState[K]) QueueEnqueueResult {
	q := s.QueueGetOrCreate(c.Name)
	q.Enqueue(c.Key)
	if c.EnqueuedSet != nil {
		c.EnqueuedSet[c.Name] = struct{}{}
	}
	return QueueEnqueueResult{}
}

// ---- Servers ----

type ServerAnnounceCommand[K comparable] struct {
	ID          string
	Queues      []string
	WorkerCount int
	Now         state.Time
}

type ServerAnnounceResult struct{}

func (c ServerAnnounceCommand[K]) Execute(s *state.MemoryState[K]) ServerAnnounceResult {
	s.ServerAnnounce(c.ID, c.Queues, c.WorkerCount, c.Now)
	return ServerAnnounceResult{}
}

type ServerHeartbeatCommand[K comparable] struct {
	ID  string
	Now state.Time
}

type ServerHeartbeatResult struct{ Known bool }

func (c ServerHeartbeatCommand[K]) Execute(s *state.MemoryState[K]) ServerHeartbeatResult {
	return ServerHeartbeatResult{Known: s.ServerHeartbeat(c.ID, c.Now)}
}

type ServerDeleteCommand[K comparable] struct {
	ID string
}

type ServerDeleteResult struct{}

func (c ServerDeleteCommand[K]) Execute(s *state.MemoryState[K]) ServerDeleteResult {
	s.ServerDelete(c.ID)
	return ServerDeleteResult{}
}

// ServerDeleteInactiveCommand removes every server whose heartbeat is older than Timeout as of Now.
type ServerDeleteInactiveCommand[K comparable] struct {
	Timeout time.Duration
	Now     state.Time
}

type ServerDeleteInactiveResult struct{ Removed int }

func (c ServerDeleteInactiveCommand[K]) Execute(s *state.MemoryState[K]) ServerDeleteInactiveResult {
	return ServerDeleteInactiveResult{Removed: s.ServerDeleteInactive(c.Timeout, c.Now)}
}
