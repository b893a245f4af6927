package state

import (
	"time"

	"github.com/jobforge/forge/pkg/entities"
)

// ListInsert adds value at the head of the list at key, creating it if absent.
func (s *MemoryState[K]) ListInsert(key, value string) {
	l, ok := s.lists[key]
	if !ok {
		l = entities.NewList(key)
		s.lists[key] = l
	}
	l.Insert(value)
}

// ListRemoveAll removes every element equal to value from the list at key, returning the count removed. The list
// is deleted if it becomes empty. A missing list is a no-op.
func (s *MemoryState[K]) ListRemoveAll(key, value string) int {
	l, ok := s.lists[key]
	if !ok {
		return 0
	}
	removed := l.RemoveAll(value)
	if l.Empty() {
		s.deleteList(key)
	}
	return removed
}

// ListTrim keeps only indices [start, stop] of the list at key, deleting it if the result is empty. A missing list
// is a no-op.
func (s *MemoryState[K]) ListTrim(key string, start, stop int) {
	l, ok := s.lists[key]
	if !ok {
		return
	}
	l.Trim(start, stop)
	if l.Empty() {
		s.deleteList(key)
	}
}

// ListExpire re-clamps and re-indexes the expiration of the list at key. A missing list is a no-op.
func (s *MemoryState[K]) ListExpire(key string, now Time, expireIn time.Duration, hasExpireIn, ignoreMax bool) {
	l, ok := s.lists[key]
	if !ok {
		return
	}
	entryExpire[string](s.opts, l, s.listExpIdx, key, now, expireIn, hasExpireIn, ignoreMax)
}

// ListGet returns the list stored at key.
func (s *MemoryState[K]) ListGet(key string) (*entities.List, bool) {
	l, ok := s.lists[key]
	return l, ok
}

func (s *MemoryState[K]) deleteList(key string) {
	l := s.lists[key]
	if !l.ExpiresAt().Zero() {
		s.listExpIdx.Delete(expireKey[string]{expireAt: l.ExpiresAt(), key: key})
	}
	delete(s.lists, key)
}
