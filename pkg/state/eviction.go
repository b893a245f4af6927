package state

import "github.com/jobforge/forge/pkg/orderedset"

// EvictExpired implements the eviction algorithm: for each of the five expiration indexes, peek the minimum
// (expire_at, key) entry; while its expire_at <= now, delete the entity via its typed delete (which also drops it
// from the index), and repeat. This is O(k log n) where k is the number of entries expiring this tick. Running it
// twice with the same now is idempotent — the second call finds every index already empty of due entries.
//
// Counts is returned by kind for observability (dispatcher metrics), in the order: jobs, hashes, lists, sets,
// counters.
func (s *MemoryState[K]) EvictExpired(now Time) (jobs, hashes, lists, sets, counters int) {
	jobs = evictIndex(s.jobExpIdx, now, func(key K) { s.JobDelete(key) })
	hashes = evictIndex(s.hashExpIdx, now, func(key string) { s.deleteHash(key) })
	lists = evictIndex(s.listExpIdx, now, func(key string) { s.deleteList(key) })
	sets = evictIndex(s.setExpIdx, now, func(key string) { s.deleteSortedSet(key) })
	counters = evictIndex(s.counterExpIdx, now, func(key string) { s.deleteCounter(key) })
	return jobs, hashes, lists, sets, counters
}

// deleteCounter is the counter's typed delete; like Hash/List/SortedSet, counters are deleted by expiration (they
// are exempt from MaxExpirationTime but not from expiring altogether once a TTL was set).
func (s *MemoryState[K]) deleteCounter(key string) {
	c, ok := s.counters[key]
	if !ok {
		return
	}
	if !c.ExpiresAt().Zero() {
		s.counterExpIdx.Delete(expireKey[string]{expireAt: c.ExpiresAt(), key: key})
	}
	delete(s.counters, key)
}

// evictIndex repeatedly pops idx's minimum entry and deletes it via deleteFn while its expire_at <= now.
func evictIndex[X any](idx *orderedset.Set[expireKey[X], X], now Time, deleteFn func(key X)) int {
	count := 0
	for {
		k, _, ok := idx.Min()
		if !ok || k.expireAt.After(now) {
			return count
		}
		deleteFn(k.key)
		count++
	}
}
