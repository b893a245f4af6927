// Package locktable implements the reentrant, owner-tagged distributed lock table: try-acquire with a timeout,
// release by the current owner, and blocking wait for contended resources. The table itself is guarded by a single
// mutex; each resource entry additionally carries its own wake channel so a blocked acquirer doesn't have to hold
// the table lock while it sleeps. Whenever both locks are needed together, the table lock is always taken first
// (table -> entry), matching the dispatcher's own locking order and avoiding deadlock between the two.
package locktable

import (
	"sync"
	"time"

	"github.com/jobforge/forge/pkg/entities"
	"github.com/jobforge/forge/pkg/storeerr"
	"github.com/jobforge/forge/pkg/utils"
)

// entry is one resource's lock state plus the synchronization needed to block and wake waiters. mu guards every
// field below it; waitCh is closed and replaced on every release that leaves other waiters queued, so a blocked
// acquirer can select on it instead of polling.
type entry struct {
	mu     sync.Mutex
	data   entities.Lock
	waitCh chan struct{}
}

func newEntry(owner, resource string) *entry {
	return &entry{data: entities.Lock{Resource: resource, Owner: owner, Level: 1, RefCount: 1}, waitCh: make(chan struct{})}
}

// Table is the distributed lock table. The zero value is not usable; construct with New.
type Table struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New constructs an empty Table.
func New() *Table {
	return &Table{entries: make(map[string]*entry)}
}

// TryAcquire acquires resource for owner, blocking up to timeout if another owner currently holds it. It is
// reentrant: the same owner may acquire the same resource multiple times, each call incrementing a nesting level
// that must be matched by an equal number of Release calls. Returns storeerr.ErrLockTimeout if timeout elapses
// before the resource becomes available.
func (t *Table) TryAcquire(owner, resource string, timeout time.Duration) error {
	t.mu.Lock()
	e, exists := t.entries[resource]
	if !exists {
		t.entries[resource] = newEntry(owner, resource)
		t.mu.Unlock()
		return nil
	}
	e.mu.Lock()
	t.mu.Unlock()

	if e.data.Owner == owner {
		e.data.Level++
		e.data.RefCount++
		e.mu.Unlock()
		return nil
	}

	e.data.RefCount++
	deadline := time.Now().Add(timeout)
	for e.data.Owner != "" && e.data.Owner != owner {
		waitCh := e.waitCh
		e.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining < 0 {
			remaining = 0
		}
		select {
		case <-waitCh:
			e.mu.Lock()
		case <-time.After(remaining):
			e.mu.Lock()
			if e.data.Owner != "" && e.data.Owner != owner {
				e.data.RefCount--
				t.releaseEmptyEntryLocked(resource, e)
				return storeerr.ErrLockTimeout
			}
			// The resource freed up in the narrow window between the timer firing and re-acquiring e.mu; fall
			// through to claim it like any other woken waiter.
		}
	}

	e.data.Owner = owner
	e.data.Level = 1
	e.mu.Unlock()
	return nil
}

// Release releases one nesting level of resource held by owner. It returns storeerr.ErrProtocolError if resource is
// not held, or is held by a different owner — both indicate a caller bug, never a legitimate contention outcome.
func (t *Table) Release(owner, resource string) error {
	t.mu.Lock()
	e, exists := t.entries[resource]
	t.mu.Unlock()
	if !exists {
		utils.RaiseInvariant("locktable", "release_unknown_resource", "release of resource %q with no entry", resource)
		return storeerr.ErrProtocolError
	}

	e.mu.Lock()
	if e.data.Owner != owner {
		e.mu.Unlock()
		utils.RaiseInvariant("locktable", "release_by_non_owner", "owner %q released resource %q held by %q",
			owner, resource, e.data.Owner)
		return storeerr.ErrProtocolError
	}

	e.data.Level--
	e.data.RefCount--
	if e.data.Level > 0 {
		e.mu.Unlock()
		return nil
	}

	e.data.Owner = ""
	if e.data.RefCount == 0 {
		e.mu.Unlock()
		t.removeIfStillEmpty(resource, e)
		return nil
	}
	close(e.waitCh)
	e.waitCh = make(chan struct{})
	e.mu.Unlock()
	return nil
}

// releaseEmptyEntryLocked is called with e.mu held, after a timed-out waiter decremented RefCount to (possibly)
// zero; it unlocks e.mu and, if the entry is now unreferenced, removes it from the table.
func (t *Table) releaseEmptyEntryLocked(resource string, e *entry) {
	empty := e.data.RefCount == 0
	e.mu.Unlock()
	if empty {
		t.removeIfStillEmpty(resource, e)
	}
}

// removeIfStillEmpty re-takes the table lock then the entry lock (table -> entry order preserved) and deletes the
// map entry if it is still the same, still-unreferenced entry — another acquirer may have raced in since the
// caller last held e.mu.
func (t *Table) removeIfStillEmpty(resource string, e *entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cur, ok := t.entries[resource]
	if !ok || cur != e {
		return
	}
	cur.mu.Lock()
	defer cur.mu.Unlock()
	if cur.data.RefCount == 0 {
		delete(t.entries, resource)
	}
}

// Snapshot returns the current data of resource's lock entry, for monitoring. The zero value and ok=false are
// returned if resource is not currently tracked (unheld and unreferenced).
func (t *Table) Snapshot(resource string) (entities.Lock, bool) {
	t.mu.Lock()
	e, exists := t.entries[resource]
	t.mu.Unlock()
	if !exists {
		return entities.Lock{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.data, true
}

// Len returns the number of resources currently tracked (held or awaited).
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
