package dlist

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func assertListEqualsSlice[V comparable](t *testing.T, expected []V, list *List[V]) {
	t.Helper()
	assert.Equal(t, len(expected), list.Len(), "List length mismatch")

	if len(expected) == 0 {
		assert.Nil(t, list.Front())
		assert.Nil(t, list.Back())
		return
	}

	assert.Equal(t, expected[0], list.Front().Value)
	assert.Equal(t, expected[len(expected)-1], list.Back().Value)

	var forward []V
	for n := list.Front(); n != nil; n = n.Next() {
		forward = append(forward, n.Value)
	}
	assert.Equal(t, expected, forward)

	var backward []V
	for n := list.Back(); n != nil; n = n.Prev() {
		backward = append(backward, n.Value)
	}
	slices.Reverse(backward)
	assert.Equal(t, expected, backward)

	assert.Equal(t, expected, list.Values())
}

func TestList_PushFront(t *testing.T) {
	list := new(List[int])
	list.PushFront(1)
	assertListEqualsSlice(t, []int{1}, list)
	list.PushFront(2)
	assertListEqualsSlice(t, []int{2, 1}, list)
	list.PushFront(3)
	assertListEqualsSlice(t, []int{3, 2, 1}, list)
}

func TestList_PushBack(t *testing.T) {
	list := new(List[int])
	list.PushBack(1)
	list.PushBack(2)
	list.PushBack(3)
	assertListEqualsSlice(t, []int{1, 2, 3}, list)
}

func TestList_Remove(t *testing.T) {
	newListWithNodes := func(n int) (*List[int], []*Node[int]) {
		list := new(List[int])
		nodes := make([]*Node[int], n)
		for i := 1; i <= n; i++ {
			nodes[i-1] = list.PushBack(i)
		}
		return list, nodes
	}

	t.Run("middle", func(t *testing.T) {
		list, nodes := newListWithNodes(5)
		list.Remove(nodes[2])
		assertListEqualsSlice(t, []int{1, 2, 4, 5}, list)
	})
	t.Run("head", func(t *testing.T) {
		list, nodes := newListWithNodes(5)
		list.Remove(nodes[0])
		assertListEqualsSlice(t, []int{2, 3, 4, 5}, list)
	})
	t.Run("tail", func(t *testing.T) {
		list, nodes := newListWithNodes(5)
		list.Remove(nodes[4])
		assertListEqualsSlice(t, []int{1, 2, 3, 4}, list)
	})
	t.Run("until empty", func(t *testing.T) {
		list, nodes := newListWithNodes(3)
		for _, n := range nodes {
			list.Remove(n)
		}
		assertListEqualsSlice(t, []int{}, list)
	})
}
