// Package waitlist implements a lock-free singly-linked stack of wait nodes, one per queue, used to park
// job-fetching consumers and wake them when work arrives without the fetcher holding the dispatcher's attention
// while it sleeps.
package waitlist

import (
	"context"
	"runtime"
	"sync/atomic"

	"github.com/jobforge/forge/pkg/utils"
)

// Node is a one-shot wake primitive registered on a List by a blocked consumer. A Node must not be reused across
// more than one registration; callers allocate a fresh Node per wait attempt.
type Node struct {
	next atomic.Pointer[Node]
	wake chan struct{}
}

// NewNode constructs an unsignalled Node ready to be added to a List.
func NewNode() *Node {
	return &Node{wake: make(chan struct{}, 1)}
}

// Signal wakes the node's waiter exactly once. Signal is idempotent: calling it more than once (which should not
// happen under the List's own signal_one invariant, but costs nothing to guard) does not queue extra wakeups.
func (n *Node) Signal() {
	select {
	case n.wake <- struct{}{}:
	default:
	}
}

// Wait blocks until the node is signalled or ctx is done, returning true in the former case.
func (n *Node) Wait(ctx context.Context) bool {
	select {
	case <-n.wake:
		return true
	case <-ctx.Done():
		return false
	}
}

// tombstone is a distinguished sentinel meaning "a signal_one call is currently extracting the chain"; external
// callers never observe it, since head is unexported and only List's own methods dereference it.
var tombstone = &Node{}

// List is a lock-free LIFO of wait Nodes. add is a plain CAS push; signal_one atomically claims the entire chain,
// pops its head, and publishes the remainder back, so that additions racing with a signal are never lost.
type List struct {
	head atomic.Pointer[Node]
}

// New constructs an empty List.
func New() *List {
	return &List{}
}

// Add pushes node onto the head of the list.
func (l *List) Add(node *Node) {
	for {
		old := l.head.Load()
		if old == tombstone {
			runtime.Gosched()
			continue
		}
		node.next.Store(old)
		if l.head.CompareAndSwap(old, node) {
			return
		}
	}
}

// SignalOne pops one node (if any) and signals it, reporting whether a node was signalled. The nodes it does not pop
// stay in the list, including any added while it holds its claim.
func (l *List) SignalOne() bool {
	for {
		old := l.head.Load()
		if old == nil {
			return false
		}
		if old == tombstone {
			runtime.Gosched()
			continue
		}
		if !l.head.CompareAndSwap(old, tombstone) {
			continue
		}
		rest := old.next.Load()
		old.next.Store(nil)
		if !l.head.CompareAndSwap(tombstone, rest) {
			utils.RaiseInvariant("waitlist", "tombstone_overwritten",
				"observed a concurrent writer over an exclusively held tombstone claim")
			l.head.Store(rest)
		}
		old.Signal()
		return true
	}
}

// Empty reports whether the list currently has no waiting nodes. This is a snapshot; it may be stale the instant
// after it is read.
func (l *List) Empty() bool {
	return l.head.Load() == nil
}
