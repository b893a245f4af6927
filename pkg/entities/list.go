package entities

import "github.com/jobforge/forge/pkg/dlist"

// List is a string key mapping to a sequence of strings. Add inserts at head; index 0 always refers to the most
// recently added element.
type List struct {
	Key      string
	ExpireAt Time

	items *dlist.List[string]
}

// NewList constructs an empty List.
func NewList(key string) *List {
	return &List{Key: key, items: dlist.New[string]()}
}

// Insert adds value at index 0, pushing every existing element back one position.
func (l *List) Insert(value string) {
	l.items.PushFront(value)
}

// RemoveAll removes every element equal to value, returning the count removed.
func (l *List) RemoveAll(value string) int {
	removed := 0
	for n := l.items.Front(); n != nil; {
		next := n.Next()
		if n.Value == value {
			l.items.Remove(n)
			removed++
		}
		n = next
	}
	return removed
}

// Trim keeps only the elements within [start, stop] (inclusive, 0-based, head-to-tail), dropping the rest. Negative
// bounds are not resolved here; callers pass already-clamped, non-negative indices.
func (l *List) Trim(start, stop int) {
	values := l.items.Values()
	if start < 0 {
		start = 0
	}
	if stop >= len(values) {
		stop = len(values) - 1
	}
	newList := dlist.New[string]()
	if start <= stop {
		for i := start; i <= stop; i++ {
			newList.PushBack(values[i])
		}
	}
	l.items = newList
}

// Len returns the number of elements.
func (l *List) Len() int {
	return l.items.Len()
}

// Empty reports whether the list has no elements (such a list becomes eligible for deletion).
func (l *List) Empty() bool {
	return l.items.Len() == 0
}

// All returns every element, head (most recent) to tail (oldest).
func (l *List) All() []string {
	return l.items.Values()
}

// Range returns the elements with index in [start, stop], head-to-tail, clamped to the list's bounds.
func (l *List) Range(start, stop int) []string {
	values := l.items.Values()
	if start < 0 {
		start = 0
	}
	if stop >= len(values) {
		stop = len(values) - 1
	}
	if start > stop || start >= len(values) {
		return nil
	}
	out := make([]string, stop-start+1)
	copy(out, values[start:stop+1])
	return out
}

// ExpiresAt returns the list's current expiration time, or the zero Time if it never expires.
func (l *List) ExpiresAt() Time { return l.ExpireAt }

// SetExpiresAt updates the list's expiration time.
func (l *List) SetExpiresAt(t Time) { l.ExpireAt = t }
