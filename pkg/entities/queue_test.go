package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueue_EnqueueDequeue_FIFO(t *testing.T) {
	q := NewQueue[uint64]("q1")
	assert.True(t, q.Empty())

	q.Enqueue(1)
	q.Enqueue(2)
	q.Enqueue(3)
	assert.Equal(t, 3, q.Len())

	for _, want := range []uint64{1, 2, 3} {
		got, ok := q.Dequeue()
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}
	assert.True(t, q.Empty())
	_, ok := q.Dequeue()
	assert.False(t, ok)
}

func TestQueue_Waiters_IsUsable(t *testing.T) {
	q := NewQueue[uint64]("q1")
	assert.NotNil(t, q.Waiters)
	assert.True(t, q.Waiters.Empty())
}
