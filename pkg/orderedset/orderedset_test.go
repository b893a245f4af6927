package orderedset

import (
	"cmp"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet_EmptyGet(t *testing.T) {
	s := New[int, string](cmp.Compare)
	_, ok := s.Get(42)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

// setNewKey puts key/value into s and asserts that the key was not present before.
func setNewKey[K any, V any](t *testing.T, s *Set[K, V], key K, value V) {
	t.Helper()
	existed := s.Set(key, value)
	assert.Falsef(t, existed, "expected key %v to be new", key)
}

// updateExistingKey updates key with value and asserts it was present before.
func updateExistingKey[K any, V any](t *testing.T, s *Set[K, V], key K, value V) {
	t.Helper()
	existed := s.Set(key, value)
	assert.Truef(t, existed, "expected key %v to already exist", key)
}

func assertHasKey[K any, V any](t *testing.T, s *Set[K, V], key K, expected V) {
	t.Helper()
	got, ok := s.Get(key)
	assert.True(t, ok)
	assert.Equal(t, expected, got)
}

func TestSet_SetAndGet_Simple(t *testing.T) {
	s := New[int, string](cmp.Compare)
	setNewKey(t, s, 2, "two")
	setNewKey(t, s, 1, "one")
	setNewKey(t, s, 3, "three")

	assertHasKey(t, s, 1, "one")
	assertHasKey(t, s, 2, "two")
	assertHasKey(t, s, 3, "three")
	assert.Equal(t, 3, s.Len())
}

func TestSet_UpdateValue(t *testing.T) {
	s := New[int, string](cmp.Compare)
	setNewKey(t, s, 10, "ten")
	updateExistingKey(t, s, 10, "TEN")
	assertHasKey(t, s, 10, "TEN")
	assert.Equal(t, 1, s.Len())
}

func TestSet_Delete(t *testing.T) {
	s := New[int, string](cmp.Compare)
	assert.False(t, s.Delete(7))

	for _, tc := range []struct {
		k int
		v string
	}{{1, "a"}, {2, "b"}, {3, "c"}} {
		setNewKey(t, s, tc.k, tc.v)
	}
	assert.True(t, s.Delete(2))
	_, ok := s.Get(2)
	assert.False(t, ok)
	assert.False(t, s.Delete(2))
	assertHasKey(t, s, 1, "a")
	assertHasKey(t, s, 3, "c")
	assert.Equal(t, 2, s.Len())
}

func TestSet_BulkInsertAndGet(t *testing.T) {
	s := New[int, string](cmp.Compare)
	const samples = 200
	for i := 0; i < samples; i++ {
		setNewKey(t, s, i, fmt.Sprintf("val-%d", i))
	}
	for i := 0; i < samples; i++ {
		got, ok := s.Get(i)
		assert.True(t, ok)
		assert.Equal(t, fmt.Sprintf("val-%d", i), got)
	}
	assert.Equal(t, samples, s.Len())
}

func TestSet_Range_AscendingOrder(t *testing.T) {
	s := New[int, string](cmp.Compare)
	setNewKey(t, s, 3, "three")
	setNewKey(t, s, 1, "one")
	setNewKey(t, s, 2, "two")

	var keys []int
	s.Range(func(key int, value string) bool {
		keys = append(keys, key)
		return true
	})
	assert.Equal(t, []int{1, 2, 3}, keys)

	updateExistingKey(t, s, 2, "TWO")
	var values []string
	s.Range(func(key int, value string) bool {
		values = append(values, value)
		return true
	})
	assert.Equal(t, []string{"one", "TWO", "three"}, values)
}

func TestSet_Range_EarlyStop(t *testing.T) {
	s := New[int, string](cmp.Compare)
	for i := 0; i < 10; i++ {
		setNewKey(t, s, i, fmt.Sprintf("v%d", i))
	}
	var seen []int
	s.Range(func(key int, value string) bool {
		seen = append(seen, key)
		return key < 3
	})
	assert.Equal(t, []int{0, 1, 2, 3}, seen)
}

func TestSet_Min_AndPopMin(t *testing.T) {
	s := New[int, string](cmp.Compare)
	_, _, ok := s.Min()
	assert.False(t, ok)

	setNewKey(t, s, 5, "five")
	setNewKey(t, s, 2, "two")
	setNewKey(t, s, 8, "eight")

	k, v, ok := s.Min()
	assert.True(t, ok)
	assert.Equal(t, 2, k)
	assert.Equal(t, "two", v)
	assert.Equal(t, 3, s.Len(), "Min must not remove")

	k, v, ok = s.PopMin()
	assert.True(t, ok)
	assert.Equal(t, 2, k)
	assert.Equal(t, "two", v)
	assert.Equal(t, 2, s.Len())

	k, _, ok = s.Min()
	assert.True(t, ok)
	assert.Equal(t, 5, k)
}

func TestSet_RangeFrom(t *testing.T) {
	s := New[int, string](cmp.Compare)
	for _, k := range []int{1, 3, 5, 7, 9} {
		setNewKey(t, s, k, fmt.Sprintf("v%d", k))
	}
	var got []int
	s.RangeFrom(4, func(key int, value string) bool {
		got = append(got, key)
		return true
	})
	assert.Equal(t, []int{5, 7, 9}, got)

	got = nil
	s.RangeFrom(5, func(key int, value string) bool {
		got = append(got, key)
		return true
	})
	assert.Equal(t, []int{5, 7, 9}, got, "RangeFrom is inclusive of an exact match")
}

func TestSet_RangeBetween(t *testing.T) {
	s := New[int, string](cmp.Compare)
	for i := 0; i < 10; i++ {
		setNewKey(t, s, i, fmt.Sprintf("v%d", i))
	}
	var got []int
	s.RangeBetween(3, 6, func(key int, value string) bool {
		got = append(got, key)
		return true
	})
	assert.Equal(t, []int{3, 4, 5, 6}, got)
}

type compositeKey struct {
	expireAt int64
	key      string
}

func compareComposite(a, b compositeKey) int {
	if c := cmp.Compare(a.expireAt, b.expireAt); c != 0 {
		return c
	}
	return cmp.Compare(a.key, b.key)
}

func TestSet_CompositeKeyOrdering(t *testing.T) {
	s := New[compositeKey, struct{}](compareComposite)
	setNewKey(t, s, compositeKey{expireAt: 10, key: "b"}, struct{}{})
	setNewKey(t, s, compositeKey{expireAt: 10, key: "a"}, struct{}{})
	setNewKey(t, s, compositeKey{expireAt: 5, key: "z"}, struct{}{})

	var order []compositeKey
	s.Range(func(key compositeKey, _ struct{}) bool {
		order = append(order, key)
		return true
	})
	assert.Equal(t, []compositeKey{
		{expireAt: 5, key: "z"},
		{expireAt: 10, key: "a"},
		{expireAt: 10, key: "b"},
	}, order)
}
