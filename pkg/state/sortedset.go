package state

import (
	"time"

	"github.com/jobforge/forge/pkg/entities"
)

// SortedSetAdd inserts or updates value's score in the sorted set at key, creating it if absent.
func (s *MemoryState[K]) SortedSetAdd(key, value string, score float64) {
	set, ok := s.sets[key]
	if !ok {
		set = entities.NewSortedSet(key)
		s.sets[key] = set
	}
	set.Add(value, score)
}

// SortedSetAddRange inserts or updates every (value, score) pair in members, creating the set if absent.
func (s *MemoryState[K]) SortedSetAddRange(key string, members []ScoredValue) {
	set, ok := s.sets[key]
	if !ok {
		set = entities.NewSortedSet(key)
		s.sets[key] = set
	}
	for _, m := range members {
		set.Add(m.Value, m.Score)
	}
}

// ScoredValue pairs a sorted-set member with its score, the unit SortedSetAddRange operates on.
type ScoredValue struct {
	Value string
	Score float64
}

// SortedSetRemove removes value from the sorted set at key, deleting the set if it becomes empty. A missing set is
// a no-op and returns false.
func (s *MemoryState[K]) SortedSetRemove(key, value string) bool {
	set, ok := s.sets[key]
	if !ok {
		return false
	}
	removed := set.Remove(value)
	if set.Empty() {
		s.deleteSortedSet(key)
	}
	return removed
}

// SortedSetDelete removes the sorted set at key entirely, regardless of its contents.
func (s *MemoryState[K]) SortedSetDelete(key string) {
	if _, ok := s.sets[key]; ok {
		s.deleteSortedSet(key)
	}
}

// SortedSetExpire re-clamps and re-indexes the expiration of the sorted set at key. A missing set is a no-op.
func (s *MemoryState[K]) SortedSetExpire(key string, now Time, expireIn time.Duration, hasExpireIn, ignoreMax bool) {
	set, ok := s.sets[key]
	if !ok {
		return
	}
	entryExpire[string](s.opts, set, s.setExpIdx, key, now, expireIn, hasExpireIn, ignoreMax)
}

// SortedSetGet returns the sorted set stored at key.
func (s *MemoryState[K]) SortedSetGet(key string) (*entities.SortedSet, bool) {
	set, ok := s.sets[key]
	return set, ok
}

func (s *MemoryState[K]) deleteSortedSet(key string) {
	set := s.sets[key]
	if !set.ExpiresAt().Zero() {
		s.setExpIdx.Delete(expireKey[string]{expireAt: set.ExpiresAt(), key: key})
	}
	delete(s.sets, key)
}
