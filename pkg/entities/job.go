// Package entities defines the in-memory records the engine stores: jobs, hashes, lists, sorted sets, counters,
// queues, servers, and locks. These are plain data types plus the small amount of logic that keeps an individual
// record internally consistent (parameter ordering, bounded history, score ordering); cross-entity invariants
// (expiration indexes, the state-name index) are MemoryState's responsibility, not this package's.
package entities

import (
	"github.com/jobforge/forge/pkg/clock"
	"github.com/jobforge/forge/pkg/dlist"
	"github.com/jobforge/forge/pkg/utils"
)

// StateRecord captures one point in a job's lifecycle: a name, an optional reason, the moment it was recorded, and
// a snapshotted array of key/value pairs. Data is a flat array rather than a map to minimize allocation and because
// order rarely matters but copy-out cost always does (see the "GC-allocated parameters snapshot" design note).
type StateRecord struct {
	Name      string
	Reason    string // empty means "no reason given"
	CreatedAt clock.Time
	Data      []utils.Pair[string, string]
}

// Param is one entry of a Job's parameter list: ordered by first-insertion position, looked up by Name under the
// engine's configured string comparer.
type Param struct {
	Name  string
	Value string
}

// Job is an immutable core (Key, InvocationData, CreatedAt) plus mutable Parameters and lifecycle state. K is the
// engine's configured key type, produced and compared by a keys.Provider[K].
type Job[K comparable] struct {
	Key            K
	InvocationData []byte
	CreatedAt      clock.Time
	ExpireAt       clock.Time // zero value means "never expires"

	Parameters   []Param
	CurrentState *StateRecord
	History      *dlist.List[StateRecord]

	maxHistory int
	compare    func(a, b string) bool // string equality under the configured comparer
}

// NewJob constructs a Job. maxHistory bounds the state history length (oldest entries drop first); equalFn is the
// engine's configured string-equality predicate, used for parameter name lookups.
func NewJob[K comparable](key K, invocationData []byte, createdAt clock.Time, maxHistory int, equalFn func(a, b string) bool) *Job[K] {
	if maxHistory <= 0 {
		maxHistory = 1
	}
	return &Job[K]{
		Key:            key,
		InvocationData: invocationData,
		CreatedAt:      createdAt,
		History:        dlist.New[StateRecord](),
		maxHistory:     maxHistory,
		compare:        equalFn,
	}
}

// SetParameter sets name to value, preserving the position of an existing entry or appending a new one.
func (j *Job[K]) SetParameter(name, value string) {
	for i := range j.Parameters {
		if j.compare(j.Parameters[i].Name, name) {
			j.Parameters[i].Value = value
			return
		}
	}
	j.Parameters = append(j.Parameters, Param{Name: name, Value: value})
}

// GetParameter returns the value of name, if present.
func (j *Job[K]) GetParameter(name string) (string, bool) {
	for _, p := range j.Parameters {
		if j.compare(p.Name, name) {
			return p.Value, true
		}
	}
	return "", false
}

// PushState appends record to the history, dropping the oldest entry once at capacity, and optionally promotes it
// to CurrentState.
func (j *Job[K]) PushState(record StateRecord, setCurrent bool) {
	j.History.PushBack(record)
	for j.History.Len() > j.maxHistory {
		j.History.Remove(j.History.Front())
	}
	if setCurrent {
		rec := record
		j.CurrentState = &rec
	}
}

// HistorySnapshot returns the history in chronological (oldest-first) order, safe for the caller to retain.
func (j *Job[K]) HistorySnapshot() []StateRecord {
	return j.History.Values()
}

// ExpiresAt returns the job's current expiration time, or the zero Time if it never expires.
func (j *Job[K]) ExpiresAt() Time { return j.ExpireAt }

// SetExpiresAt updates the job's expiration time.
func (j *Job[K]) SetExpiresAt(t Time) { j.ExpireAt = t }
