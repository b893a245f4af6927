package state

import (
	"time"

	"github.com/jobforge/forge/pkg/options"
	"github.com/jobforge/forge/pkg/orderedset"
)

// expireKey orders an expiration index by (expire_at, key), nulls excluded — an entry with a zero ExpireAt is
// simply absent from the index.
type expireKey[X any] struct {
	expireAt Time
	key      X
}

func compareExpireKey[X any](keyCompare func(a, b X) int) func(a, b expireKey[X]) int {
	return func(a, b expireKey[X]) int {
		if c := a.expireAt.Compare(b.expireAt); c != 0 {
			return c
		}
		return keyCompare(a.key, b.key)
	}
}

// expirable is the minimal interface entryExpire needs of an entity: read and write its ExpireAt.
type expirable interface {
	ExpiresAt() Time
	SetExpiresAt(t Time)
}

// entryExpire is the common TTL routine described by MemoryState: it removes entry from idx if it was previously
// indexed, clamps expireIn to Options.MaxExpirationTime unless ignoreMax, sets the entity's new ExpireAt (or clears
// it if hasExpireIn is false), and re-adds it to idx when a new expiration was set.
func entryExpire[X any](
	opts *options.Options,
	entry expirable,
	idx *orderedset.Set[expireKey[X], X],
	key X,
	now Time,
	expireIn time.Duration,
	hasExpireIn bool,
	ignoreMax bool,
) {
	if old := entry.ExpiresAt(); !old.Zero() {
		idx.Delete(expireKey[X]{expireAt: old, key: key})
	}
	if !hasExpireIn {
		entry.SetExpiresAt(Time{})
		return
	}
	clamped := opts.ClampExpiration(expireIn, ignoreMax)
	newExpireAt := now.Add(clamped)
	entry.SetExpiresAt(newExpireAt)
	idx.Set(expireKey[X]{expireAt: newExpireAt, key: key}, key)
}
