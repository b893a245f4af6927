package state

import "github.com/jobforge/forge/pkg/entities"

// QueueGetOrCreate returns the queue named name, creating it idempotently if it does not yet exist.
func (s *MemoryState[K]) QueueGetOrCreate(name string) *entities.Queue[K] {
	q, ok := s.queues[name]
	if !ok {
		q = entities.NewQueue[K](name)
		s.queues[name] = q
	}
	return q
}

// QueueGet returns the queue named name, if it exists, without creating it.
func (s *MemoryState[K]) QueueGet(name string) (*entities.Queue[K], bool) {
	q, ok := s.queues[name]
	return q, ok
}

// AllQueues returns every queue that currently exists, in no particular order.
func (s *MemoryState[K]) AllQueues() []*entities.Queue[K] {
	out := make([]*entities.Queue[K], 0, len(s.queues))
	for _, q := range s.queues {
		out = append(out, q)
	}
	return out
}
