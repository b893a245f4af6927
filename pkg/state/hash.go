package state

import (
	"time"

	"github.com/jobforge/forge/pkg/entities"
)

// HashSetRange upserts kvs into the hash at key, creating it if absent.
func (s *MemoryState[K]) HashSetRange(key string, kvs []entities.Param) {
	h, ok := s.hashes[key]
	if !ok {
		h = entities.NewHash(key, s.opts.StringCompare())
		s.hashes[key] = h
	}
	h.SetRange(kvs)
}

// HashRemove removes field from the hash at key, deleting the hash entirely if it becomes empty (invariant: a
// Hash/Set/List becomes eligible for deletion the instant its inner collection empties). A missing hash is a no-op
// and returns false.
func (s *MemoryState[K]) HashRemove(key, field string) bool {
	h, ok := s.hashes[key]
	if !ok {
		return false
	}
	removed := h.Remove(field)
	if h.Empty() {
		s.deleteHash(key)
	}
	return removed
}

// HashExpire re-clamps and re-indexes the expiration of the hash at key. A missing hash is a no-op.
func (s *MemoryState[K]) HashExpire(key string, now Time, expireIn time.Duration, hasExpireIn, ignoreMax bool) {
	h, ok := s.hashes[key]
	if !ok {
		return
	}
	entryExpire[string](s.opts, h, s.hashExpIdx, key, now, expireIn, hasExpireIn, ignoreMax)
}

// HashGet returns the hash stored at key.
func (s *MemoryState[K]) HashGet(key string) (*entities.Hash, bool) {
	h, ok := s.hashes[key]
	return h, ok
}

func (s *MemoryState[K]) deleteHash(key string) {
	h := s.hashes[key]
	if !h.ExpiresAt().Zero() {
		s.hashExpIdx.Delete(expireKey[string]{expireAt: h.ExpiresAt(), key: key})
	}
	delete(s.hashes, key)
}
