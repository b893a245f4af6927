package entities

import (
	"github.com/jobforge/forge/pkg/dlist"
	"github.com/jobforge/forge/pkg/waitlist"
)

// Queue is a named FIFO of job keys paired with a lock-free wait-node list that parks fetchers until a job is
// enqueued. Queues are not expirable.
type Queue[K comparable] struct {
	Name    string
	jobs    *dlist.List[K]
	Waiters *waitlist.List
}

// NewQueue constructs an empty Queue named name.
func NewQueue[K comparable](name string) *Queue[K] {
	return &Queue[K]{Name: name, jobs: dlist.New[K](), Waiters: waitlist.New()}
}

// Enqueue appends key to the tail of the FIFO.
func (q *Queue[K]) Enqueue(key K) {
	q.jobs.PushBack(key)
}

// Dequeue removes and returns the key at the head of the FIFO.
func (q *Queue[K]) Dequeue() (K, bool) {
	var zero K
	front := q.jobs.Front()
	if front == nil {
		return zero, false
	}
	key := front.Value
	q.jobs.Remove(front)
	return key, true
}

// Len returns the number of queued job keys.
func (q *Queue[K]) Len() int {
	return q.jobs.Len()
}

// Empty reports whether the FIFO has no queued job keys.
func (q *Queue[K]) Empty() bool {
	return q.jobs.Len() == 0
}
