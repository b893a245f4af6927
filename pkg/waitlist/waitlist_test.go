package waitlist

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestList_SignalOne_EmptyList(t *testing.T) {
	l := New()
	assert.True(t, l.Empty())
	assert.False(t, l.SignalOne())
}

func TestList_AddThenSignalOne_Wakes(t *testing.T) {
	l := New()
	node := NewNode()
	l.Add(node)
	assert.False(t, l.Empty())

	assert.True(t, l.SignalOne())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.True(t, node.Wait(ctx))
}

func TestList_SignalOne_WakesOnlyOne(t *testing.T) {
	l := New()
	a, b := NewNode(), NewNode()
	l.Add(a)
	l.Add(b)

	assert.True(t, l.SignalOne())

	waitFor := func(n *Node) bool {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		return n.Wait(ctx)
	}
	aWoke := waitFor(a)
	bWoke := waitFor(b)
	assert.True(t, aWoke != bWoke, "exactly one of the two nodes should have woken")
}

func TestList_SignalOne_LIFOOrder(t *testing.T) {
	l := New()
	first, second := NewNode(), NewNode()
	l.Add(first)
	l.Add(second)

	l.SignalOne()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.True(t, second.Wait(ctx), "the most recently added node is signalled first")
}

func TestList_Add_AfterSignalOne_NeverLostWakeup(t *testing.T) {
	l := New()
	first := NewNode()
	l.Add(first)
	assert.True(t, l.SignalOne())

	second := NewNode()
	l.Add(second)
	assert.True(t, l.SignalOne())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.True(t, first.Wait(ctx))
	assert.True(t, second.Wait(ctx))
}

func TestList_ConcurrentAddAndSignal_NoNodeLostOrDoubleSignalled(t *testing.T) {
	l := New()
	const n = 200
	nodes := make([]*Node, n)
	for i := range nodes {
		nodes[i] = NewNode()
	}

	var wg sync.WaitGroup
	for _, node := range nodes {
		wg.Add(1)
		go func(node *Node) {
			defer wg.Done()
			l.Add(node)
		}(node)
	}
	wg.Wait()

	var signalled int
	for range nodes {
		if l.SignalOne() {
			signalled++
		}
	}
	assert.Equal(t, n, signalled)
	assert.True(t, l.Empty())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	woke := 0
	for _, node := range nodes {
		if node.Wait(ctx) {
			woke++
		}
	}
	assert.Equal(t, n, woke)
}

func TestNode_Signal_IsIdempotent(t *testing.T) {
	node := NewNode()
	node.Signal()
	node.Signal()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.True(t, node.Wait(ctx))

	ctx2, cancel2 := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel2()
	assert.False(t, node.Wait(ctx2), "a single Signal should wake at most one Wait call")
}
