// Package state implements MemoryState, the sole mutable container the dispatcher owns. It exposes only typed
// operations — no direct map access — and is responsible for keeping every secondary index (state-name index, the
// five expiration indexes) consistent with the primary entity maps on every mutation.
package state

import (
	"strings"
	"time"

	"github.com/jobforge/forge/pkg/clock"
	"github.com/jobforge/forge/pkg/entities"
	"github.com/jobforge/forge/pkg/keys"
	"github.com/jobforge/forge/pkg/options"
	"github.com/jobforge/forge/pkg/orderedset"
	"github.com/jobforge/forge/pkg/storeerr"
)

// Time is a convenience alias, mirroring entities.Time.
type Time = clock.Time

// stateIndexKey orders the state-name index by (state.CreatedAt, job.CreatedAt, key), per the data model.
type stateIndexKey[K any] struct {
	stateCreatedAt Time
	jobCreatedAt   Time
	key            K
}

func compareStateIndexKey[K any](keyCompare func(a, b K) int) func(a, b stateIndexKey[K]) int {
	return func(a, b stateIndexKey[K]) int {
		if c := a.stateCreatedAt.Compare(b.stateCreatedAt); c != 0 {
			return c
		}
		if c := a.jobCreatedAt.Compare(b.jobCreatedAt); c != 0 {
			return c
		}
		return keyCompare(a.key, b.key)
	}
}

// MemoryState is the engine's sole mutable data container. K is the configured job-key type; every operation on it
// must run serialized (single-writer) — this package enforces no locking itself, since the dispatcher is the only
// caller and it already guarantees serialization.
type MemoryState[K comparable] struct {
	opts     *options.Options
	provider keys.Provider[K]

	jobs      map[K]*entities.Job[K]
	jobExpIdx *orderedset.Set[expireKey[K], K]

	// stateIndex maps a case-insensitive-normalized state name to the ordered set of jobs currently in that state.
	stateIndex map[string]*orderedset.Set[stateIndexKey[K], K]

	hashes      map[string]*entities.Hash
	hashExpIdx  *orderedset.Set[expireKey[string], string]
	lists       map[string]*entities.List
	listExpIdx  *orderedset.Set[expireKey[string], string]
	sets        map[string]*entities.SortedSet
	setExpIdx   *orderedset.Set[expireKey[string], string]
	counters    map[string]*entities.Counter
	counterExpIdx *orderedset.Set[expireKey[string], string]

	queues  map[string]*entities.Queue[K]
	servers map[string]*entities.Server
}

// New constructs an empty MemoryState configured by opts and using provider to order job keys.
func New[K comparable](opts *options.Options, provider keys.Provider[K]) *MemoryState[K] {
	return &MemoryState[K]{
		opts:          opts,
		provider:      provider,
		jobs:          make(map[K]*entities.Job[K]),
		jobExpIdx:     orderedset.New[expireKey[K], K](compareExpireKey[K](provider.Compare)),
		stateIndex:    make(map[string]*orderedset.Set[stateIndexKey[K], K]),
		hashes:        make(map[string]*entities.Hash),
		hashExpIdx:    orderedset.New[expireKey[string], string](compareExpireKey[string](strings.Compare)),
		lists:         make(map[string]*entities.List),
		listExpIdx:    orderedset.New[expireKey[string], string](compareExpireKey[string](strings.Compare)),
		sets:          make(map[string]*entities.SortedSet),
		setExpIdx:     orderedset.New[expireKey[string], string](compareExpireKey[string](strings.Compare)),
		counters:      make(map[string]*entities.Counter),
		counterExpIdx: orderedset.New[expireKey[string], string](compareExpireKey[string](strings.Compare)),
		queues:        make(map[string]*entities.Queue[K]),
		servers:       make(map[string]*entities.Server),
	}
}

func normalizeStateName(name string) string { return strings.ToLower(name) }

// ---- Jobs ----

// JobCreate inserts a new job under key, clamping expireIn through Options unless ignoreMax. It fails with
// storeerr.ErrAlreadyExists if key is already present.
func (s *MemoryState[K]) JobCreate(key K, invocationData []byte, params []entities.Param, now Time,
	expireIn time.Duration, hasExpireIn, ignoreMax bool) (*entities.Job[K], error) {
	if _, exists := s.jobs[key]; exists {
		return nil, storeerr.ErrAlreadyExists
	}
	job := entities.NewJob[K](key, invocationData, now, s.opts.MaxStateHistoryLength, s.opts.StringEqual())
	for _, p := range params {
		job.SetParameter(p.Name, p.Value)
	}
	s.jobs[key] = job
	entryExpire[K](s.opts, job, s.jobExpIdx, key, now, expireIn, hasExpireIn, ignoreMax)
	return job, nil
}

// JobGet returns the job stored under key.
func (s *MemoryState[K]) JobGet(key K) (*entities.Job[K], bool) {
	job, ok := s.jobs[key]
	return job, ok
}

// JobSetParameter sets name to value on the job at key. A missing job is a no-op, per the Connection contract.
func (s *MemoryState[K]) JobSetParameter(key K, name, value string) {
	if job, ok := s.jobs[key]; ok {
		job.SetParameter(name, value)
	}
}

// JobSetState appends record to the job's history. When setCurrent is true it also replaces the job's current state
// and atomically moves the job at key from its old state-name bucket to record.Name's bucket (dropping the old
// bucket if it becomes empty). A missing job is a no-op.
func (s *MemoryState[K]) JobSetState(key K, record entities.StateRecord, setCurrent bool) {
	job, ok := s.jobs[key]
	if !ok {
		return
	}
	if setCurrent && job.CurrentState != nil {
		s.removeFromStateIndex(normalizeStateName(job.CurrentState.Name), job.CreatedAt, key)
	}
	job.PushState(record, setCurrent)
	if setCurrent {
		s.addToStateIndex(normalizeStateName(record.Name), record.CreatedAt, job.CreatedAt, key)
	}
}

func (s *MemoryState[K]) addToStateIndex(normalizedName string, stateCreatedAt, jobCreatedAt Time, key K) {
	idx, ok := s.stateIndex[normalizedName]
	if !ok {
		idx = orderedset.New[stateIndexKey[K], K](compareStateIndexKey[K](s.provider.Compare))
		s.stateIndex[normalizedName] = idx
	}
	idx.Set(stateIndexKey[K]{stateCreatedAt: stateCreatedAt, jobCreatedAt: jobCreatedAt, key: key}, key)
}

func (s *MemoryState[K]) removeFromStateIndex(normalizedName string, _ Time, key K) {
	idx, ok := s.stateIndex[normalizedName]
	if !ok {
		return
	}
	s.removeJobFromIndexByScan(idx, key)
	if idx.Len() == 0 {
		delete(s.stateIndex, normalizedName)
	}
}

// removeJobFromIndexByScan removes every entry for key from idx. The state-name index's ordering key embeds
// timestamps the caller does not always have on hand at removal time (e.g. job deletion), so removal scans rather
// than recomputing the exact composite key; buckets are small in practice (one job per current state).
func (s *MemoryState[K]) removeJobFromIndexByScan(idx *orderedset.Set[stateIndexKey[K], K], key K) {
	var found *stateIndexKey[K]
	idx.Range(func(k stateIndexKey[K], v K) bool {
		if v == key {
			found = &k
			return false
		}
		return true
	})
	if found != nil {
		idx.Delete(*found)
	}
}

// JobsInState returns every job key currently in the named state (case-insensitive), ordered by
// (state.CreatedAt, job.CreatedAt, key).
func (s *MemoryState[K]) JobsInState(name string) []K {
	idx, ok := s.stateIndex[normalizeStateName(name)]
	if !ok {
		return nil
	}
	out := make([]K, 0, idx.Len())
	idx.Range(func(_ stateIndexKey[K], v K) bool {
		out = append(out, v)
		return true
	})
	return out
}

// JobExpire re-clamps and re-indexes the expiration of the job at key. A missing job is a no-op.
func (s *MemoryState[K]) JobExpire(key K, now Time, expireIn time.Duration, hasExpireIn, ignoreMax bool) {
	job, ok := s.jobs[key]
	if !ok {
		return
	}
	entryExpire[K](s.opts, job, s.jobExpIdx, key, now, expireIn, hasExpireIn, ignoreMax)
}

// JobDelete removes the job at key entirely: from the primary map, its expiration index entry (if any), and its
// state-name index bucket (if any).
func (s *MemoryState[K]) JobDelete(key K) {
	job, ok := s.jobs[key]
	if !ok {
		return
	}
	if !job.ExpireAt.Zero() {
		s.jobExpIdx.Delete(expireKey[K]{expireAt: job.ExpireAt, key: key})
	}
	if job.CurrentState != nil {
		s.removeFromStateIndex(normalizeStateName(job.CurrentState.Name), job.CreatedAt, key)
	}
	delete(s.jobs, key)
}

// JobCount returns the number of jobs currently stored.
func (s *MemoryState[K]) JobCount() int {
	return len(s.jobs)
}
