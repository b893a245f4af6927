package state

import (
	"time"

	"github.com/jobforge/forge/pkg/entities"
)

// CounterIncrement adds delta to the counter at key (creating it at zero if absent) and returns the new value.
// expireIn, if present, re-clamps the counter's TTL — but counters are exempt from MaxExpirationTime (ignoreMax is
// implicitly true), per the data model's invariant that statistics may outlive the cap.
func (s *MemoryState[K]) CounterIncrement(key string, delta int64, now Time, expireIn time.Duration, hasExpireIn bool) int64 {
	c, ok := s.counters[key]
	if !ok {
		c = entities.NewCounter(key)
		s.counters[key] = c
	}
	value := c.Increment(delta)
	if hasExpireIn {
		entryExpire[string](s.opts, c, s.counterExpIdx, key, now, expireIn, true, true /* ignoreMax */)
	}
	return value
}

// CounterGet returns the counter stored at key.
func (s *MemoryState[K]) CounterGet(key string) (*entities.Counter, bool) {
	c, ok := s.counters[key]
	return c, ok
}
